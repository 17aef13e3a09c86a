package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"prmirror/internal/bootstrap"
	"prmirror/internal/bootstrap/logging"
	"prmirror/internal/errs"
	"prmirror/internal/transport/httpapi"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the GitHub webhook receiver and admin API",
	RunE: withApp(func(cmd *cobra.Command, app *bootstrap.App, handler http.Handler) error {
		baseCtx := cmd.Context()
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if migrate, _ := cmd.Flags().GetBool("migrate"); migrate {
			if err := app.InitSchema(ctx); err != nil {
				return errs.Wrap(err, "initialize schema")
			}
		}

		addr, _ := cmd.Flags().GetString("addr")
		addr = strings.TrimSpace(addr)
		if addr == "" {
			addr = app.Config.Server.Addr
		}

		server := &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: app.Config.Server.ReadHeaderTimeout,
			BaseContext:       func(_ net.Listener) context.Context { return baseCtx },
		}

		errCh := make(chan error, 1)
		go func() {
			logging.Info(ctx, "webhook server started",
				slog.String("addr", addr),
				slog.String("webhook_path", httpapi.WebhookPath),
				slog.Bool("admin_api", app.Config.Server.AdminToken != ""),
			)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case err, ok := <-errCh:
			if ok && err != nil {
				logging.Error(ctx, "webhook server failed", slog.Any("err", errs.Loggable(err)))
				return errs.Wrap(err, "serve webhook")
			}
			return nil
		case <-ctx.Done():
		}

		logging.Info(ctx, "shutting down webhook server")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return errs.Wrap(err, "shutdown webhook server")
		}
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "Listen address (overrides server.addr)")
	serveCmd.Flags().Bool("migrate", false, "Run schema migration before serving")
}
