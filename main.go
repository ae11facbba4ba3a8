package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/cohortiq-inc/cohortiq-engine/pkg/adapters/datasource/duckdb"
	"github.com/cohortiq-inc/cohortiq-engine/pkg/audit"
	"github.com/cohortiq-inc/cohortiq-engine/pkg/classifier"
	"github.com/cohortiq-inc/cohortiq-engine/pkg/config"
	"github.com/cohortiq-inc/cohortiq-engine/pkg/digest"
	"github.com/cohortiq-inc/cohortiq-engine/pkg/handlers"
	"github.com/cohortiq-inc/cohortiq-engine/pkg/llm"
	"github.com/cohortiq-inc/cohortiq-engine/pkg/middleware"
	"github.com/cohortiq-inc/cohortiq-engine/pkg/segmentation"
	"github.com/cohortiq-inc/cohortiq-engine/pkg/worker"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := buildLogger(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("configuration loaded",
		zap.String("env", cfg.Env),
		zap.String("version", cfg.Version),
		zap.String("duckdb_path", cfg.DuckDB.Path),
		zap.Bool("llm_enabled", cfg.LLM.Enabled()),
		zap.String("worker_command", cfg.Worker.Command))

	db, err := duckdb.New(ctx, cfg.DuckDB.Path, logger)
	if err != nil {
		logger.Fatal("failed to open database", zap.Error(err))
	}
	defer func() { _ = db.Close() }()

	var llmClient llm.LLMClient
	if cfg.LLM.Enabled() {
		llmClient, err = llm.NewClient(&llm.Config{
			Provider:  cfg.LLM.Provider,
			Endpoint:  cfg.LLM.Endpoint,
			Model:     cfg.LLM.Model,
			APIKey:    cfg.LLM.APIKey,
			MaxTokens: cfg.LLM.MaxTokens,
		}, logger)
		if err != nil {
			logger.Fatal("failed to build llm client", zap.Error(err))
		}
	}
	router := classifier.NewRouter(llmClient, logger)

	workerClient := worker.NewClient(cfg.Worker.Command, cfg.Worker.Args, cfg.Worker.Timeout(), logger)
	defer func() { _ = workerClient.Close() }()

	orchestrator := segmentation.NewOrchestrator(db, workerClient, logger)

	auditor := audit.NewSecurityAuditor(logger)
	limits := digest.Limits{
		MaxFilters: cfg.Digest.MaxFilters,
		MaxMetrics: cfg.Digest.MaxMetrics,
		MaxChars:   cfg.Digest.MaxChars,
	}

	mux := http.NewServeMux()
	handlers.NewHealthHandler(cfg, logger).RegisterRoutes(mux)
	handlers.NewAnalyzeHandler(router, orchestrator, auditor, logger).RegisterRoutes(mux)
	handlers.NewCompileHandler(auditor, limits, logger).RegisterRoutes(mux)

	handler := middleware.RequestID()(middleware.RequestLogger(logger)(mux))

	server := &http.Server{
		Addr:    cfg.BindAddr + ":" + cfg.Port,
		Handler: handler,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting cohortiq-engine",
			zap.String("addr", server.Addr),
			zap.String("version", cfg.Version))
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		logger.Fatal("server failed", zap.Error(err))
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown error", zap.Error(err))
		}
	}
}

func buildLogger(env string) (*zap.Logger, error) {
	if env == "local" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
