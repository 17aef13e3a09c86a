package cmd

import (
	"context"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"prmirror/internal/bootstrap"
	"prmirror/internal/bootstrap/logging"
	"prmirror/internal/errs"
)

// withApp boots the fx graph for one command, hands it the requested
// dependency and stops the graph when the command returns. Once config is
// loaded the command context carries the configured logger.
func withApp[T any](run func(cmd *cobra.Command, app *bootstrap.App, dep T) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := logging.WithAttrs(
			cmd.Context(),
			slog.String("command", cmd.CommandPath()),
			slog.String("config_file", cfgFile),
		)

		var app *bootstrap.App
		var dep T
		fxApp := fx.New(
			bootstrap.Module,
			fx.NopLogger,
			fx.Provide(func() context.Context { return ctx }),
			fx.Provide(
				fx.Annotate(
					func() string { return cfgFile },
					fx.ResultTags(`name:"configFile"`),
				),
			),
			fx.Populate(&app, &dep),
		)

		startCtx, cancelStart := context.WithTimeout(ctx, 10*time.Second)
		defer cancelStart()
		if err := fxApp.Start(startCtx); err != nil {
			logging.Error(ctx, "bootstrap application failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "start fx application")
		}

		defer func() {
			stopCtx, cancelStop := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancelStop()
			if err := fxApp.Stop(stopCtx); err != nil {
				logging.Error(ctx, "fx application stop failed", slog.Any("err", errs.Loggable(err)))
			}
		}()

		runCtx := logging.WithLogger(cmd.Context(), app.Logger)
		runCtx = logging.WithAttrs(runCtx, slog.String("command", cmd.CommandPath()))
		cmd.SetContext(runCtx)

		if err := run(cmd, app, dep); err != nil {
			return errs.Wrap(err, "run command")
		}
		return nil
	}
}
