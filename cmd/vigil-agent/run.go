package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"vigil/internal/client"
	"vigil/internal/logging"
	"vigil/internal/metrics"
	"vigil/internal/session"
	"vigil/internal/stream"
)

const (
	requestTimeout  = 10 * time.Second
	shutdownTimeout = 5 * time.Second
)

func runAgent(cfg Config, logger *logging.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	agentID, err := loadOrCreateAgentID(cfg.StateDir)
	if err != nil {
		return err
	}
	logger.Info("agent starting", map[string]string{
		"agent_id":    agentID,
		"coordinator": cfg.CoordinatorURL,
	})

	httpClient := &http.Client{Timeout: requestTimeout}
	registry := metrics.Default

	watchSession := session.New(ctx, session.NotifierFunc(func(projectID string) error {
		return client.PostSyncRequest(httpClient, cfg.CoordinatorURL, cfg.Token, agentID, projectID)
	}), session.Options{
		QuietPeriod: cfg.QuietPeriod,
		Logger:      logger,
		Registry:    registry,
	})
	defer watchSession.Close()

	records, err := client.FetchWatchRecords(httpClient, cfg.CoordinatorURL, cfg.Token)
	if err != nil {
		return fmt.Errorf("fetch watch records: %w", err)
	}
	for _, record := range records {
		if err := watchSession.Apply(record); err != nil {
			logger.Error("watch record rejected", map[string]string{
				"project_id": record.ProjectID,
				"error":      err.Error(),
			})
		}
	}

	mux := http.NewServeMux()
	mux.Handle("/events", stream.NewHandler(watchSession.Bus(), logger))
	mux.Handle("/metrics", stream.MetricsHandler(registry))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	server := &http.Server{Addr: cfg.ListenAddr, Handler: mux}
	serverErr := make(chan error, 1)
	go func() {
		logger.Info("listening", map[string]string{"addr": cfg.ListenAddr})
		serverErr <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
	}

	logger.Info("shutting down", nil)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown failed", map[string]string{"error": err.Error()})
	}
	return nil
}
