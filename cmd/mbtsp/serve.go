package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sevenvista/MB-TSP/internal/api"
	"github.com/sevenvista/MB-TSP/internal/config"
	"github.com/sevenvista/MB-TSP/internal/mapproc"
	"github.com/sevenvista/MB-TSP/internal/orchestrator"
	"github.com/sevenvista/MB-TSP/internal/queue"
	"github.com/sevenvista/MB-TSP/internal/storage"
	"github.com/sevenvista/MB-TSP/internal/tsp"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the service in the foreground",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

func runServe() error {
	fmt.Fprintf(os.Stderr, "mbtsp version %s\n", version)

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logLevel := slog.LevelInfo
	if strings.EqualFold(cfg.Log.Level, "debug") {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			printWarning("closing storage: %v", err)
		}
	}()

	broker, err := queue.DialAMQP(ctx, queue.AMQPConfig{
		URL:               cfg.Broker.URL,
		MapRequestQueue:   cfg.Broker.MapRequestQueue,
		MapResponseQueue:  cfg.Broker.MapResponseQueue,
		TourRequestQueue:  cfg.Broker.TourRequestQueue,
		TourResponseQueue: cfg.Broker.TourResponseQueue,
		ConnectAttempts:   cfg.Broker.ConnectAttempts,
		RetryDelay:        time.Duration(cfg.Broker.RetryDelaySeconds) * time.Second,
	})
	if err != nil {
		return err
	}
	defer broker.Close()

	builder := mapproc.NewBuilder(store, cfg.Solver.Workers)
	solver := tsp.NewSolver(cfg.Solver.Seed)
	orch := orchestrator.New(broker, builder, solver, store, cfg.Solver.Workers)

	orchDone := make(chan error, 1)
	go func() {
		orchDone <- orch.Run(ctx)
	}()

	handler := api.NewHandler(api.Deps{
		Store: store,
		Queues: api.QueueInfo{
			MapRequest:   cfg.Broker.MapRequestQueue,
			MapResponse:  cfg.Broker.MapResponseQueue,
			TourRequest:  cfg.Broker.TourRequestQueue,
			TourResponse: cfg.Broker.TourResponseQueue,
		},
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	errCh := make(chan error, 1)
	go func() {
		fmt.Fprintf(os.Stderr, "mbtsp listening on %s\n", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		fmt.Fprintln(os.Stderr, "shutting down...")
		// Let in-flight jobs drain before tearing down the broker.
		<-orchDone
	case err := <-errCh:
		stop()
		<-orchDone
		if err != nil {
			runErr = fmt.Errorf("server error: %w", err)
		}
	case err := <-orchDone:
		stop()
		if err != nil {
			runErr = fmt.Errorf("orchestrator error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}
