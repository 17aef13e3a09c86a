package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"prmirror/internal/bootstrap"
	"prmirror/internal/bootstrap/logging"
	"prmirror/internal/errs"
)

var initDBCmd = &cobra.Command{
	Use:     "initdb",
	Aliases: []string{"init-db"},
	Short:   "Initialize database schema",
	RunE: withApp(func(cmd *cobra.Command, app *bootstrap.App, _ *bootstrap.App) error {
		ctx := cmd.Context()
		logging.Info(ctx, "start initdb")

		if err := app.InitSchema(ctx); err != nil {
			logging.Error(ctx, "initialize schema failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "initialize schema")
		}

		logging.Info(ctx, "initdb finished", slog.String("database_dsn", app.Config.Database.DSN))
		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "database schema initialized: %s\n", app.Config.Database.DSN); err != nil {
			return errs.Wrap(err, "write initdb output")
		}
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(initDBCmd)
}
