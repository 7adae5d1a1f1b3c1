package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/onkernel/cvd2img/cmd/cvd2img/config"
	cvdotel "github.com/onkernel/cvd2img/lib/otel"
)

func main() {
	if err := run(); err != nil {
		slog.Error("image creation failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// Setup context with signal handling
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdown, err := cvdotel.Init(ctx, cvdotel.Config{
		Endpoint:    cfg.OtelEndpoint,
		ServiceName: cfg.OtelServiceName,
	})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(flushCtx); err != nil {
			slog.Warn("failed to flush telemetry", "error", err)
		}
	}()

	app, cleanup, err := initializeApp(cfg)
	if err != nil {
		return fmt.Errorf("initialize application: %w", err)
	}
	defer cleanup()

	slog.SetDefault(app.Logger)

	start := time.Now()
	if err := app.Pipeline.Run(ctx); err != nil {
		return err
	}

	app.Logger.InfoContext(ctx, "disk images created",
		"system", cfg.SystemImage,
		"properties", cfg.PropertiesImage,
		"virgl_properties", cfg.VirglPropertiesImage,
		"duration", time.Since(start))
	return nil
}
