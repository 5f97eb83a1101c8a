package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/Noirsys/aflr-viewbox/internal/config"
	"github.com/Noirsys/aflr-viewbox/internal/engine"
	"github.com/Noirsys/aflr-viewbox/internal/logging"
	"github.com/Noirsys/aflr-viewbox/internal/server"
	"github.com/Noirsys/aflr-viewbox/internal/state"
	"github.com/Noirsys/aflr-viewbox/internal/telemetry"
	"github.com/Noirsys/aflr-viewbox/internal/transport"
)

const shutdownTimeout = 10 * time.Second

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func runGracefulShutdown(srv *server.Server, eng *engine.Engine) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logging.WithError(err).Error("Server shutdown error")
		}

		eng.Close()
		close(done)
	}()

	return done
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Viewbox starting", "env", cfg.AppEnv, "relay", cfg.RelayURL, "port", cfg.Port)

	reporter := telemetry.Multi{
		telemetry.NewSlogReporter(logging.Logger),
		telemetry.NewPrometheusReporter(),
	}

	eng, err := engine.New(engine.Options{
		Transport:     transport.NewWebsocket(cfg.RelayURL, clock),
		Reporter:      reporter,
		Clock:         clock,
		BaseDelay:     cfg.BaseReconnectDelay,
		MaxDelay:      cfg.MaxReconnectDelay,
		BatchWindow:   cfg.BatchWindow,
		QueueCapacity: cfg.OutboundQueueCapacity,
		OnState: func(s *state.BroadcastState) {
			slog.Debug("State transition",
				"status", string(s.Connection.Status),
				"last_timestamp", s.LastTimestamp,
			)
		},
	})
	if err != nil {
		logging.WithError(err).Error("Failed to create engine")
		os.Exit(1)
	}
	eng.Connect()

	srv := server.New(cfg.Port, eng)
	done := runGracefulShutdown(srv, eng)

	slog.Info("Ops server starting", "port", cfg.Port)
	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logging.WithError(err).Error("Server error")
		os.Exit(1)
	}

	<-done
}
