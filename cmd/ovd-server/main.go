package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"ovdlink/internal/config"
	"ovdlink/internal/device"
	"ovdlink/internal/logger"
	"ovdlink/internal/metrics"
	"ovdlink/internal/mirror"
	"ovdlink/internal/session"
	"ovdlink/internal/status"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("ovd-server: %v", err)
	}
}

func run() error {
	// Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	// Setup structured logging
	appLogger, logCloser, err := logger.Open(logger.Config{
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
		Outputs: cfg.LogOutputs,
	})
	if err != nil {
		return fmt.Errorf("failed to open logger: %w", err)
	}
	defer logCloser.Close()
	slog.SetDefault(appLogger)

	var m *metrics.Metrics
	if cfg.PrometheusEnabled {
		m = metrics.New()
	}

	sess := session.New(session.Config{
		Addr:               cfg.TCPAddr(),
		ReadIdleTimeout:    cfg.ReadIdleTimeout,
		WriteTimeout:       cfg.WriteTimeout,
		PartialBodyUpdates: cfg.PartialBodyUpdates,
		QueueHighWatermark: cfg.QueueHighWatermark,
	}, session.WithLogger(appLogger), session.WithMetrics(m))

	appLogger.Info("starting_ovd_server",
		"env", cfg.Env,
		"tcp_addr", cfg.TCPAddr(),
		"status_enabled", cfg.StatusEnabled,
		"redis_mirror_enabled", cfg.RedisMirrorEnabled,
	)

	if err := sess.Start(); err != nil {
		return err
	}
	defer sess.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var sink device.Sink = device.NewLogSink(appLogger)
	var mir *mirror.Mirror
	if cfg.RedisMirrorEnabled {
		mir, err = mirror.Dial(ctx, mirror.Options{
			URL:      cfg.RedisURL,
			Password: cfg.RedisPassword,
			RateHz:   float64(cfg.MirrorRateHz),
			Logger:   appLogger,
		}, sink)
		if err != nil {
			// the link keeps running without the mirror
			appLogger.Warn("redis_mirror_unavailable", "error", err)
		} else {
			sink = mir
			appLogger.Info("redis_mirror_enabled", "rate_hz", cfg.MirrorRateHz)
		}
	}

	var statusServer *status.Server
	if cfg.StatusEnabled {
		if cfg.IsProduction() {
			gin.SetMode(gin.ReleaseMode)
		}
		var gatherer prometheus.Gatherer
		if m != nil {
			gatherer = m.Registry()
		}
		statusServer = status.NewServer(cfg.StatusAddr(), status.NewHandler(sess, gatherer), appLogger)
		if err := statusServer.Start(); err != nil {
			return err
		}
	}

	fleet := device.NewFleet(sess.Endpoints(), sink,
		device.WithControllerHz(float64(cfg.ControllerReportHz)),
		device.WithTrackerHz(float64(cfg.TrackerReportHz)),
		device.WithLogger(appLogger),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return fleet.Run(gctx)
	})

	// Wait for shutdown signal or a device failure
	<-gctx.Done()
	if ctx.Err() != nil {
		appLogger.Info("received_shutdown_signal")
	}

	if statusServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := statusServer.Shutdown(shutdownCtx); err != nil {
			appLogger.Error("status_api_shutdown_failed", "error", err)
		}
		cancel()
	}

	sess.Close()
	fleetErr := g.Wait()

	if mir != nil {
		if err := mir.Close(); err != nil {
			appLogger.Error("redis_mirror_close_failed", "error", err)
		}
	}

	if fleetErr != nil && !errors.Is(fleetErr, context.Canceled) {
		return fleetErr
	}
	appLogger.Info("server_stopped_gracefully")
	return nil
}
