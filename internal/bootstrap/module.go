package bootstrap

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"go.uber.org/fx"
	"gorm.io/gorm"

	"prmirror/internal/bootstrap/config"
	"prmirror/internal/bootstrap/database"
	"prmirror/internal/bootstrap/logging"
	cacheinfra "prmirror/internal/infrastructure/cache"
	githubinfra "prmirror/internal/infrastructure/github"
	"prmirror/internal/infrastructure/metrics"
	"prmirror/internal/infrastructure/persistence/repository"
	"prmirror/internal/infrastructure/persistence/uow"
	"prmirror/internal/ports"
	"prmirror/internal/transport/httpapi"
	"prmirror/internal/usecase/ingest"
	"prmirror/internal/usecase/mirrorsync"
)

var Module = fx.Options(
	fx.Provide(provideConfig),
	fx.Provide(provideLogger),
	fx.Provide(provideDatabase),
	fx.Provide(provideApp),
	fx.Provide(
		fx.Annotate(
			repository.NewEventRepository,
			fx.As(new(ports.EventStore)),
		),
	),
	fx.Provide(
		fx.Annotate(
			repository.NewMirrorRepository,
			fx.As(new(ports.MirrorRepository)),
		),
	),
	fx.Provide(
		fx.Annotate(
			uow.NewUnitOfWork,
			fx.As(new(ports.UnitOfWork)),
		),
	),
	fx.Provide(
		fx.Annotate(
			cacheinfra.NewKVCache,
			fx.As(new(ports.Cache)),
		),
	),
	fx.Provide(metrics.NewCollector),
	fx.Provide(func(c *metrics.Collector) ports.IngestMetrics { return c }),
	fx.Provide(provideGitHubSource),
	fx.Provide(ingest.NewService),
	fx.Provide(mirrorsync.NewService),
	fx.Provide(provideHTTPHandler),
)

type configParams struct {
	fx.In

	Ctx        context.Context
	ConfigFile string `name:"configFile"`
}

func provideConfig(p configParams) (config.Config, error) {
	ctx := logging.WithAttrs(p.Ctx, slog.String("component", "bootstrap.fx"))
	return config.Load(ctx, p.ConfigFile)
}

func provideLogger(cfg config.Config) *slog.Logger {
	return logging.New(os.Stderr, cfg.Log.Format, cfg.Log.Level)
}

func provideDatabase(lc fx.Lifecycle, ctx context.Context, cfg config.Config) (*gorm.DB, error) {
	logCtx := logging.WithAttrs(ctx, slog.String("component", "bootstrap.fx"))

	db, err := database.Open(logCtx, cfg.Database)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		},
	})

	return db, nil
}

func provideGitHubSource(ctx context.Context, cfg config.Config) (ports.GitHubSource, error) {
	return githubinfra.NewClient(ctx, githubinfra.Options{
		Token:          cfg.GitHub.Token,
		BaseURL:        cfg.GitHub.BaseURL,
		AppID:          cfg.GitHub.AppID,
		InstallationID: cfg.GitHub.InstallationID,
		PrivateKeyPath: cfg.GitHub.PrivateKeyPath,
	})
}

func provideHTTPHandler(cfg config.Config, svc *ingest.Service, collector *metrics.Collector) http.Handler {
	return httpapi.NewRouter(svc, collector, httpapi.Options{
		Secret:         cfg.Webhook.Secret,
		AdminToken:     cfg.Server.AdminToken,
		RequestTimeout: cfg.Server.RequestTimeout,
		RateLimit:      cfg.Server.RateLimit,
		RateBurst:      cfg.Server.RateBurst,
	})
}

func provideApp(cfg config.Config, db *gorm.DB, logger *slog.Logger) *App {
	return &App{
		Config: cfg,
		DB:     db,
		Logger: logger,
	}
}
