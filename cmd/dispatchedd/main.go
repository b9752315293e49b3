// Command dispatchedd runs the local Dispatched webhook-delivery server.
//
// Configuration comes from the environment; DISPATCHED_WEBHOOK_SECRET
// and DISPATCHED_FORWARD_URL are required. Jobs are held in memory and
// lost on exit.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dispatched-dev/dispatched"
	"github.com/dispatched-dev/dispatched/api"
	"github.com/dispatched-dev/dispatched/delivery"
	"github.com/dispatched-dev/dispatched/engine"
	"github.com/dispatched-dev/dispatched/scheduler"
	"github.com/dispatched-dev/dispatched/store/memory"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	if err := run(logger); err != nil {
		logger.Error("server exited", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	cfg, err := dispatched.LoadConfig()
	if err != nil {
		return err
	}

	store := memory.New()
	defer store.Close()

	forwarder := delivery.NewHTTPForwarder(cfg.ForwardURL, cfg.WebhookSecret,
		delivery.WithTimeout(cfg.ForwardTimeout),
	)
	dispatcher := delivery.NewDispatcher(store, forwarder, logger)
	eng := engine.New(store, dispatcher, logger)

	scanner := scheduler.NewScanner(store, dispatcher, logger,
		scheduler.WithInterval(cfg.ScanInterval),
		scheduler.WithDelay(cfg.DispatchDelay),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := scanner.Start(ctx); err != nil {
		return fmt.Errorf("start scanner: %w", err)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           api.New(eng, cfg.WebhookSecret, logger).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening",
			slog.String("addr", srv.Addr),
			slog.String("forward_url", cfg.ForwardURL),
			slog.Duration("dispatch_delay", cfg.DispatchDelay),
		)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		_ = scanner.Stop(context.Background())
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown error", slog.String("error", err.Error()))
	}
	return scanner.Stop(shutdownCtx)
}
