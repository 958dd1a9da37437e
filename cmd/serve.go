package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/abhisek/medipredict/internal/bundle"
	"github.com/abhisek/medipredict/internal/config"
	"github.com/abhisek/medipredict/internal/features"
	"github.com/abhisek/medipredict/internal/httpapi"
	"github.com/abhisek/medipredict/internal/logging"
	"github.com/abhisek/medipredict/internal/predict"
	"github.com/abhisek/medipredict/internal/ui/theme"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve predictions over HTTP",
	Long: "Serve the prediction API. The server starts without a model when none is\n" +
		"trained yet and answers 503 until POST /api/model/reload succeeds. SIGHUP\n" +
		"also reloads the model.",
	RunE: runServe,
}

func init() {
	d := config.DefaultConfig()
	f := serveCmd.Flags()
	f.String("addr", d.Server.Addr, "listen address")
	f.StringSlice("cors-origin", d.Server.CORSOrigins, "allowed CORS origins (\"*\" for any)")
	f.Bool("history", d.Predict.History, "record predictions in the history database")
	f.Bool("strict", false, "reject binary values other than Yes/No and Male/Female")
}

func runServe(cmd *cobra.Command, args []string) error {
	holder := bundle.NewHolder(nil)
	if _, err := holder.Reload(cfg.ArtifactsDir); err != nil {
		fmt.Fprintln(os.Stderr, theme.Hint.Render("model not loaded: "+err.Error()))
	} else {
		md := holder.Get().Metadata
		fmt.Fprintf(os.Stderr, "%s %s (accuracy %.4f, %d diseases)\n",
			theme.Label.Render("Model loaded:"), md.Version, md.Accuracy, md.NClasses)
	}
	svc := predict.NewService(holder, features.Encoder{Strict: cfg.Predict.Strict})

	opts := httpapi.Options{
		CORSOrigins:  cfg.Server.CORSOrigins,
		ArtifactsDir: cfg.ArtifactsDir,
	}
	level, _ := logging.ParseLevel(cfg.LogLevel)
	if level >= logging.LevelDebug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	if level >= logging.LevelStandard {
		opts.RequestLog = os.Stderr
	}
	if cfg.Predict.History {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()
		opts.History = st.PredictionRepo()
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-hup:
				b, err := svc.Reload(cfg.ArtifactsDir)
				if err != nil {
					fmt.Fprintln(os.Stderr, theme.Low.Render("reload failed: ")+err.Error())
					continue
				}
				fmt.Fprintln(os.Stderr, theme.High.Render("model reloaded: ")+b.Metadata.Version)
			}
		}
	}()

	return httpapi.New(svc, opts).ListenAndServe(ctx, cfg.Server.Addr, cfg.Server.ShutdownTimeout)
}
