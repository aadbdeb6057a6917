package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mcoot/arenasession/internal/api"
	"github.com/mcoot/arenasession/internal/config"
	"github.com/mcoot/arenasession/internal/factory"
)

func main() {
	settings, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Set up logging with JSON output
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: settings.SlogLevel(),
	}))
	slog.SetDefault(logger)

	app, err := factory.New(factory.Config{
		Settings: settings,
		Logger:   logger,
	})
	if err != nil {
		logger.Error("failed to create application", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// SIGINT/SIGTERM cancel ctx, which stops the transport and the API
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	server := api.NewServer(app.APIRouter(logger), app.APIServerConfig(), logger)

	errCh := make(chan error, 2)
	go func() {
		errCh <- app.Host(ctx)
	}()
	go func() {
		errCh <- server.Run(ctx)
	}()

	logger.Info("server started",
		slog.String("api_addr", server.Addr()),
		slog.String("transport", settings.Transport),
		slog.Int("port", settings.Port),
	)

	// Either side failing, or a signal, stops both
	exitCode := 0
	for range 2 {
		if err := <-errCh; err != nil {
			logger.Error("server error", slog.String("error", err.Error()))
			exitCode = 1
		}
		cancel()
	}
	app.Transport.Close()

	logger.Info("server stopped")
	os.Exit(exitCode)
}
