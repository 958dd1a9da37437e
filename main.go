package main

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/charmbracelet/fang"

	"github.com/abhisek/medipredict/cmd"
	"github.com/abhisek/medipredict/internal/apperr"
	"github.com/abhisek/medipredict/internal/ui/theme"
)

// Version is set at build time.
var Version = "(devel)"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cmd.SetVersion(Version)
	if err := fang.Execute(
		ctx,
		cmd.GetRootCmd(),
		fang.WithColorSchemeFunc(theme.FangColorScheme),
	); err != nil {
		// Aborting an interactive form is not a failure.
		if errors.Is(err, apperr.ErrCancelled) {
			os.Exit(0)
		}
		os.Exit(1)
	}
}
