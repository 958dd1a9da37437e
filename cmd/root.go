package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/abhisek/medipredict/internal/apperr"
	"github.com/abhisek/medipredict/internal/bundle"
	"github.com/abhisek/medipredict/internal/config"
	"github.com/abhisek/medipredict/internal/features"
	"github.com/abhisek/medipredict/internal/httpapi"
	"github.com/abhisek/medipredict/internal/logging"
	"github.com/abhisek/medipredict/internal/predict"
	"github.com/abhisek/medipredict/internal/store"
	"github.com/abhisek/medipredict/internal/training"
	"github.com/abhisek/medipredict/internal/ui/theme"
)

var rootCmd = &cobra.Command{
	Use:   "medipredict",
	Short: "Disease prediction from symptoms and patient profile",
	Long: "medipredict trains a random forest on a symptom dataset and predicts the most likely\n" +
		"disease for a patient, from the command line or over HTTP.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig(cmd)
	},
}

var (
	cfgFile string
	cfg     config.Config
)

// flagKeys binds command-line flags to configuration keys. A flag only
// overrides the config when it was set explicitly.
var flagKeys = map[string]string{
	"artifacts":    config.KeyArtifactsDir,
	"db":           config.KeyDBPath,
	"log-level":    config.KeyLogLevel,
	"dataset":      config.KeyDatasetPath,
	"strict":       config.KeyPredictStrict,
	"trees":        config.KeyTrainTrees,
	"max-depth":    config.KeyTrainMaxDepth,
	"seed":         config.KeyTrainSeed,
	"workers":      config.KeyTrainWorkers,
	"aibom":        config.KeyTrainAIBOM,
	"test-percent": config.KeyTrainTestPercent,
	"addr":         config.KeyServerAddr,
	"cors-origin":  config.KeyCORSOrigins,
	"history":      config.KeyPredictHistory,
}

// SetVersion sets the version reported by the CLI.
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// GetRootCmd returns the root command for use with fang.
func GetRootCmd() *cobra.Command {
	return rootCmd
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default is ./medipredict.yaml or $HOME/.medipredict.yaml)")
	pf.String("artifacts", "", "model artifacts directory (default \"models\")")
	pf.String("db", "", "path to SQLite history database (overrides MEDIPREDICT_DB env var)")
	pf.String("log-level", "", "log level: quiet|standard|debug")

	rootCmd.AddCommand(trainCmd)
	rootCmd.AddCommand(predictCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(versionCmd)
}

func initConfig(cmd *cobra.Command) error {
	v, err := config.NewViper(cfgFile)
	if err != nil {
		return apperr.Userf("could not read configuration: %w", err)
	}
	if err := bindFlags(v, cmd.Flags()); err != nil {
		return err
	}
	c, err := config.Load(v)
	if err != nil {
		return apperr.Userf("invalid configuration: %w", err)
	}
	cfg = c

	level, _ := logging.ParseLevel(cfg.LogLevel)
	setLoggers(os.Stderr, level)

	if used := v.ConfigFileUsed(); used != "" && level >= logging.LevelStandard {
		fmt.Fprintln(os.Stderr, theme.Hint.Render("Using config file: ")+theme.Label.Render(used))
	}
	return nil
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	var err error
	flags.VisitAll(func(f *pflag.Flag) {
		key, ok := flagKeys[f.Name]
		if !ok || err != nil {
			return
		}
		err = v.BindPFlag(key, f)
	})
	return err
}

func setLoggers(w io.Writer, level logging.Level) {
	for _, set := range []func(io.Writer, logging.Level){
		bundle.SetLogger,
		training.SetLogger,
		predict.SetLogger,
		httpapi.SetLogger,
	} {
		set(w, level)
	}
}

// resolveDBPath returns the database path using --db / db.path (highest
// priority), then MEDIPREDICT_DB env var, then the default XDG path.
func resolveDBPath() (string, error) {
	if cfg.DBPath != "" {
		return cfg.DBPath, store.EnsureDir(cfg.DBPath)
	}
	return store.DefaultDBPath()
}

// openStore opens the history database.
func openStore() (*store.Store, error) {
	path, err := resolveDBPath()
	if err != nil {
		return nil, fmt.Errorf("resolving database path: %w", err)
	}
	st, err := store.Open(store.DSN(path))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return st, nil
}

// loadService loads the active bundle into a predict.Service.
func loadService() (*predict.Service, error) {
	b, err := bundle.Load(cfg.ArtifactsDir)
	if err != nil {
		if !bundle.Exists(cfg.ArtifactsDir) {
			return nil, apperr.Userf("no trained model in %s; run `medipredict train` first: %w", cfg.ArtifactsDir, err)
		}
		return nil, fmt.Errorf("loading model from %s: %w", cfg.ArtifactsDir, err)
	}
	return predict.NewService(bundle.NewHolder(b), features.Encoder{Strict: cfg.Predict.Strict}), nil
}
