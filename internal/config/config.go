// Package config loads runtime settings from flags, MEDIPREDICT_* environment
// variables and an optional YAML file, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/abhisek/medipredict/internal/logging"
)

// Configuration keys. Environment variables use the MEDIPREDICT_ prefix with
// dots replaced by underscores, e.g. MEDIPREDICT_SERVER_ADDR.
const (
	KeyArtifactsDir     = "artifacts.dir"
	KeyDatasetPath      = "dataset.path"
	KeyDBPath           = "db.path"
	KeyServerAddr       = "server.addr"
	KeyCORSOrigins      = "server.cors_origins"
	KeyShutdownTimeout  = "server.shutdown_timeout"
	KeyPredictStrict    = "predict.strict"
	KeyPredictHistory   = "predict.history"
	KeyLogLevel         = "log.level"
	KeyTrainTrees       = "train.trees"
	KeyTrainMaxDepth    = "train.max_depth"
	KeyTrainSeed        = "train.seed"
	KeyTrainWorkers     = "train.workers"
	KeyTrainAIBOM       = "train.aibom"
	KeyTrainTestPercent = "train.test_percent"
)

const envPrefix = "MEDIPREDICT"

// Config holds all runtime settings.
type Config struct {
	ArtifactsDir string
	DatasetPath  string

	// DBPath is the prediction history database. Empty means the XDG
	// default resolved by the store package.
	DBPath string

	Server  ServerConfig
	Predict PredictConfig
	Train   TrainConfig

	LogLevel string
}

// ServerConfig configures the HTTP transport.
type ServerConfig struct {
	Addr            string
	CORSOrigins     []string
	ShutdownTimeout time.Duration
}

// PredictConfig configures inference.
type PredictConfig struct {
	// Strict rejects binary and gender values other than Yes/No and
	// Male/Female instead of encoding them as 0.
	Strict bool

	// History records every successful prediction.
	History bool
}

// TrainConfig overrides training hyperparameters.
type TrainConfig struct {
	Trees       int
	MaxDepth    int
	Seed        uint64
	Workers     int
	AIBOM       bool
	TestPercent int
}

// DefaultConfig returns a Config with the production defaults.
func DefaultConfig() Config {
	return Config{
		ArtifactsDir: "models",
		DatasetPath:  "data/Disease_symptom_and_patient_profile_dataset.csv",
		Server: ServerConfig{
			Addr:            ":8000",
			CORSOrigins:     []string{"http://localhost:3000"},
			ShutdownTimeout: 10 * time.Second,
		},
		Predict: PredictConfig{
			History: true,
		},
		Train: TrainConfig{
			Trees:       300,
			MaxDepth:    20,
			Seed:        42,
			AIBOM:       true,
			TestPercent: 20,
		},
		LogLevel: "standard",
	}
}

// SetDefaults registers DefaultConfig values on v.
func SetDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault(KeyArtifactsDir, d.ArtifactsDir)
	v.SetDefault(KeyDatasetPath, d.DatasetPath)
	v.SetDefault(KeyDBPath, d.DBPath)
	v.SetDefault(KeyServerAddr, d.Server.Addr)
	v.SetDefault(KeyCORSOrigins, d.Server.CORSOrigins)
	v.SetDefault(KeyShutdownTimeout, d.Server.ShutdownTimeout)
	v.SetDefault(KeyPredictStrict, d.Predict.Strict)
	v.SetDefault(KeyPredictHistory, d.Predict.History)
	v.SetDefault(KeyLogLevel, d.LogLevel)
	v.SetDefault(KeyTrainTrees, d.Train.Trees)
	v.SetDefault(KeyTrainMaxDepth, d.Train.MaxDepth)
	v.SetDefault(KeyTrainSeed, d.Train.Seed)
	v.SetDefault(KeyTrainWorkers, d.Train.Workers)
	v.SetDefault(KeyTrainAIBOM, d.Train.AIBOM)
	v.SetDefault(KeyTrainTestPercent, d.Train.TestPercent)
}

// NewViper returns a viper instance with defaults and environment binding.
// When cfgFile is set it must exist; otherwise ./medipredict.yaml and
// $HOME/.medipredict.yaml are read if present.
func NewViper(cfgFile string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", cfgFile, err)
		}
		return v, nil
	}

	v.SetConfigType("yaml")
	v.SetConfigName("medipredict")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		notFound := viper.ConfigFileNotFoundError{}
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		v.SetConfigName(".medipredict")
		v.AddConfigPath("$HOME")
		if err := v.ReadInConfig(); err != nil && !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return v, nil
}

// Load builds a Config from v.
func Load(v *viper.Viper) (Config, error) {
	cfg := Config{
		ArtifactsDir: v.GetString(KeyArtifactsDir),
		DatasetPath:  v.GetString(KeyDatasetPath),
		DBPath:       v.GetString(KeyDBPath),
		Server: ServerConfig{
			Addr:            v.GetString(KeyServerAddr),
			CORSOrigins:     splitList(v.GetStringSlice(KeyCORSOrigins)),
			ShutdownTimeout: v.GetDuration(KeyShutdownTimeout),
		},
		Predict: PredictConfig{
			Strict:  v.GetBool(KeyPredictStrict),
			History: v.GetBool(KeyPredictHistory),
		},
		Train: TrainConfig{
			Trees:       v.GetInt(KeyTrainTrees),
			MaxDepth:    v.GetInt(KeyTrainMaxDepth),
			Seed:        v.GetUint64(KeyTrainSeed),
			Workers:     v.GetInt(KeyTrainWorkers),
			AIBOM:       v.GetBool(KeyTrainAIBOM),
			TestPercent: v.GetInt(KeyTrainTestPercent),
		},
		LogLevel: v.GetString(KeyLogLevel),
	}
	return cfg, cfg.Validate()
}

// Validate checks the settings that have no safe fallback.
func (c Config) Validate() error {
	if strings.TrimSpace(c.ArtifactsDir) == "" {
		return fmt.Errorf("%s must not be empty", KeyArtifactsDir)
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%s: %w", KeyLogLevel, err)
	}
	if c.Train.Trees < 1 {
		return fmt.Errorf("%s must be >= 1, got %d", KeyTrainTrees, c.Train.Trees)
	}
	if c.Train.MaxDepth < 1 {
		return fmt.Errorf("%s must be >= 1, got %d", KeyTrainMaxDepth, c.Train.MaxDepth)
	}
	if c.Train.Workers < 0 {
		return fmt.Errorf("%s must be >= 0, got %d", KeyTrainWorkers, c.Train.Workers)
	}
	if c.Train.TestPercent < 1 || c.Train.TestPercent > 99 {
		return fmt.Errorf("%s must be between 1 and 99, got %d", KeyTrainTestPercent, c.Train.TestPercent)
	}
	if c.Server.ShutdownTimeout < 0 {
		return fmt.Errorf("%s must not be negative", KeyShutdownTimeout)
	}
	return nil
}

// splitList accepts both YAML lists and comma-separated env values.
func splitList(in []string) []string {
	var out []string
	for _, s := range in {
		for _, part := range strings.Split(s, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}
