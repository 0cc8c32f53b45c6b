package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/manualrag/internal/metrics"
	chiTransport "github.com/kailas-cloud/manualrag/internal/transport/chi"
	openaiTransport "github.com/kailas-cloud/manualrag/internal/transport/openai"
	"github.com/kailas-cloud/manualrag/internal/usecase/answer"
	healthuc "github.com/kailas-cloud/manualrag/internal/usecase/health"
	"github.com/kailas-cloud/manualrag/internal/version"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long:  `Serves /api/chat, /api/retrieve, /api/rank, /api/ingest and /api/stats plus /health and /metrics.`,
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	d, err := openDeps(ctx)
	if err != nil {
		return err
	}
	defer d.close()

	cfg, logger := d.cfg, d.logger
	logger.Info("Starting manualrag API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_driver", cfg.Database.Driver),
		zap.String("embedding_model", cfg.Embedding.Model),
		zap.String("chat_model", cfg.Generation.Model),
	)

	metrics.RegisterPipelineMetrics()

	generator := openaiTransport.NewGenerator(&openaiTransport.GeneratorConfig{
		Config: openaiTransport.Config{
			APIKey:  cfg.Generation.APIKey,
			BaseURL: cfg.Generation.BaseURL,
			Model:   cfg.Generation.Model,
			Logger:  logger,
		},
		Temperature: cfg.Generation.Temperature,
		MaxTokens:   cfg.Generation.MaxTokens,
	})

	retrieveSvc := d.retrieveService()
	answerSvc := answer.New(retrieveSvc, generator, logger).
		WithLanguage(cfg.Generation.Language, cfg.Generation.Fallback)
	ingestSvc := d.ingestService()
	healthSvc := healthuc.New(d.store, d.base).WithProvider("generation", generator)

	// Make sure the default tenant is queryable from the first request on.
	if created, err := d.chunks.EnsureIndex(ctx, cfg.Tenant.Default); err != nil {
		logger.Warn("Could not ensure default tenant index",
			zap.String("tenant", cfg.Tenant.Default), zap.Error(err))
	} else if created {
		logger.Info("Created index", zap.String("tenant", cfg.Tenant.Default))
	}

	server := chiTransport.NewServer(answerSvc, retrieveSvc, ingestSvc, d.chunks, healthSvc, logger)
	handler := chiTransport.NewRouter(server, chiTransport.RouterOptions{
		APIKeys:        cfg.Auth.APIKeys,
		DefaultTenant:  cfg.Tenant.Default,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		CORSMaxAge:     cfg.CORS.MaxAgeSec,
		Logger:         logger,
	})

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
		logger.Info("Received shutdown signal")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
		return fmt.Errorf("shutdown: %w", err)
	}

	logger.Info("Server stopped gracefully")
	return nil
}
