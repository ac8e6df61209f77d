// Package main provides the entry point for the memtwin MCP server.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/memtwin/memtwin/internal/config"
	"github.com/memtwin/memtwin/internal/consolidate"
	"github.com/memtwin/memtwin/internal/db"
	"github.com/memtwin/memtwin/internal/llm"
	"github.com/memtwin/memtwin/internal/metrics"
	"github.com/memtwin/memtwin/internal/scoring"
	"github.com/memtwin/memtwin/internal/server"
	"github.com/memtwin/memtwin/internal/service"
	"github.com/memtwin/memtwin/internal/tools"
	"github.com/memtwin/memtwin/internal/vectorindex"
)

const version = "0.1.0"

func main() {
	// Load configuration
	cfg := config.Load()

	// Setup logger (dual output: stderr text + file JSON)
	logger, cleanup := config.SetupLogger(cfg.LogFile, cfg.LogLevel)
	defer cleanup()

	logger.Info("memtwin starting",
		"version", version,
		"surrealdb_url", cfg.SurrealDBURL,
		"embed_model", cfg.EmbedModel,
		"llm_model", cfg.LLMModel,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Connect to the metadata store
	dbCfg := db.Config{
		URL:       cfg.SurrealDBURL,
		Namespace: cfg.SurrealDBNamespace,
		Database:  cfg.SurrealDBDatabase,
		Username:  cfg.SurrealDBUser,
		Password:  cfg.SurrealDBPass,
		AuthLevel: cfg.SurrealDBAuthLevel,
	}

	dbClient, err := db.NewClient(ctx, dbCfg, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() {
		logger.Info("closing database connection")
		_ = dbClient.Close(ctx)
	}()

	if err := dbClient.InitSchema(ctx); err != nil {
		logger.Error("failed to initialize database schema", "error", err)
		os.Exit(1)
	}

	// Open the vector index
	index, err := vectorindex.New(cfg.VectorIndexDir, logger)
	if err != nil {
		logger.Error("failed to open vector index", "error", err)
		os.Exit(1)
	}
	logger.Info("vector index ready", "dir", cfg.VectorIndexDir, "episodes", index.CountEpisodes())

	// Create LLM components
	embedder, err := llm.NewEmbedder(cfg)
	if err != nil {
		logger.Error("failed to create embedder", "error", err)
		os.Exit(1)
	}
	logger.Info("embedder initialized", "model", embedder.Model())

	model, err := llm.NewModel(ctx, cfg)
	if err != nil {
		logger.Error("failed to create LLM model", "error", err)
		os.Exit(1)
	}
	logger.Info("model initialized", "model", model.Model())

	// Wire services
	collector := metrics.NewCollector()
	scorer := scoring.NewScorer(cfg.AccessBoost, cfg.DecayEnabled, cfg.DecayRate)
	episodes := service.NewEpisodeService(dbClient, index, embedder, collector)
	deps := &tools.Dependencies{
		Episodes:  episodes,
		Capture:   service.NewCaptureService(model, episodes, collector),
		Search:    service.NewSearchService(dbClient, dbClient, index, embedder, scorer, collector),
		Status:    service.NewStatusService(dbClient, dbClient, index, cfg.AccessThreshold, cfg.UnconsolidatedThreshold),
		Reconcile: service.NewReconcileService(dbClient, index, embedder, collector),
		Consolidator: consolidate.New(dbClient, dbClient, index, model, embedder, collector, consolidate.Options{
			MinClusterSize:    cfg.MinClusterSize,
			MaxClusterSize:    cfg.MaxClusterSize,
			Eps:               cfg.ClusterEps,
			MaxEpisodesPerRun: cfg.MaxEpisodesPerRun,
			Timeout:           cfg.ConsolidationTimeout,
		}),
		Collector: collector,
		Logger:    logger,
	}

	// Create and setup server
	srv := server.New(version, logger)
	srv.Setup()
	tools.RegisterAll(srv.MCPServer(), deps, &cfg)
	logger.Info("tools registered")

	logger.Info("server ready, awaiting connections")

	// Run server (blocks until disconnect or context cancelled)
	if err := srv.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}

	logger.Info("shutdown complete")
}
