package bootstrap

import (
	"context"
	"errors"
	"log/slog"

	"gorm.io/gorm"

	"prmirror/internal/bootstrap/config"
	"prmirror/internal/bootstrap/logging"
	"prmirror/internal/errs"
	"prmirror/internal/infrastructure/persistence/model"
)

type App struct {
	Config config.Config
	DB     *gorm.DB
	Logger *slog.Logger
}

// InitSchema creates or migrates every mirror, ledger and key-value table.
func (a *App) InitSchema(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return errs.Wrap(err, "check context")
	}

	logCtx := logging.WithAttrs(ctx, slog.String("component", "bootstrap.app"))
	logging.Info(logCtx, "start schema migration")

	if err := a.DB.WithContext(ctx).AutoMigrate(model.All()...); err != nil {
		return errs.Wrap(err, "auto migrate schema")
	}

	logging.Info(logCtx, "schema migration completed")
	return nil
}
