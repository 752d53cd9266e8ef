package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/subcommands"
	"go.uber.org/zap"

	"brokerage_tracker/internal/infrastructure/restapi"
)

type serveCmd struct {
	port           string
	refreshOnStart bool
}

func (*serveCmd) Name() string     { return "serve" }
func (*serveCmd) Synopsis() string { return "run the REST API" }
func (*serveCmd) Usage() string {
	return `tracker serve [-port <port>] [-refresh]

  Serves accounts, positions, prices and the portfolio view under /api/v1,
  plus /healthz and /metrics.
`
}

func (c *serveCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.port, "port", "", "Port to listen on. Overrides server.port from the config.")
	f.BoolVar(&c.refreshOnStart, "refresh", false, "Refresh prices once in the background at startup.")
}

func (c *serveCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	app, err := newApplication(false)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer app.Close()
	zapLogger := app.logger

	port := app.cfg.Server.Port
	if c.port != "" {
		port = c.port
	}

	if c.refreshOnStart {
		go func() {
			refreshCtx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			defer cancel()
			result, err := app.service.RefreshPrices(refreshCtx)
			if err != nil {
				zapLogger.Error("Initial price refresh failed", zap.Error(err))
				return
			}
			zapLogger.Info("Initial price refresh completed",
				zap.Int("prices", len(result.Prices)),
				zap.Bool("stale", result.Stale))
		}()
	}

	handler := restapi.NewPortfolioHandler(app.service, zapLogger)
	router := restapi.SetupRouter(handler, app.registry)

	srv := &http.Server{
		Addr:         listenAddr(port),
		Handler:      router,
		ReadTimeout:  time.Duration(app.cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(app.cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(app.cfg.Server.IdleTimeout) * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		zapLogger.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case <-ctx.Done():
	case err := <-serverErr:
		zapLogger.Error("Failed to start server", zap.Error(err))
		return subcommands.ExitFailure
	}
	zapLogger.Info("Shutting down server...")

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(ctxShutdown); err != nil {
		zapLogger.Error("Server forced to shutdown", zap.Error(err))
		return subcommands.ExitFailure
	}

	zapLogger.Info("Server exiting")
	return subcommands.ExitSuccess
}

func listenAddr(port string) string {
	if strings.Contains(port, ":") {
		return port
	}
	return net.JoinHostPort("", port)
}
