// Package cli provides the command-line interface for memtwin.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/memtwin/memtwin/internal/config"
	"github.com/memtwin/memtwin/internal/consolidate"
	"github.com/memtwin/memtwin/internal/db"
	"github.com/memtwin/memtwin/internal/llm"
	"github.com/memtwin/memtwin/internal/scoring"
	"github.com/memtwin/memtwin/internal/service"
	"github.com/memtwin/memtwin/internal/tools"
	"github.com/memtwin/memtwin/internal/vectorindex"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	verbose bool

	// Global config, stores, and lazily initialized LLM components
	cfg      config.Config
	dbClient *db.Client
	index    *vectorindex.Index
	embedder *llm.Embedder
	model    *llm.Model
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "memtwin",
	Short: "Episodic memory for coding assistants",
	Long: `Memtwin captures the reasoning behind coding decisions as episodes,
retrieves them by hybrid semantic search, and periodically consolidates
clusters of related episodes into higher-level meta-memories.

Episode metadata lives in SurrealDB; embeddings live in a local chromem
index.`,
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip connections for version and help commands
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		cfg = config.Load()

		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		if verbose {
			logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
		}
		slog.SetDefault(logger)

		ctx := cmd.Context()
		dbCfg := db.Config{
			URL:       cfg.SurrealDBURL,
			Namespace: cfg.SurrealDBNamespace,
			Database:  cfg.SurrealDBDatabase,
			Username:  cfg.SurrealDBUser,
			Password:  cfg.SurrealDBPass,
			AuthLevel: cfg.SurrealDBAuthLevel,
		}

		var err error
		dbClient, err = db.NewClient(ctx, dbCfg, logger)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}
		if err := dbClient.InitSchema(ctx); err != nil {
			return fmt.Errorf("initialize schema: %w", err)
		}

		index, err = vectorindex.New(cfg.VectorIndexDir, logger)
		if err != nil {
			return fmt.Errorf("open vector index: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if dbClient != nil {
			if err := dbClient.Close(context.Background()); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to close database: %v\n", err)
			}
		}
	},
}

// initLLM lazily creates the embedder, and the generative model when
// requireModel is set. Commands that only read metadata never pay for an
// LLM connection.
func initLLM(ctx context.Context, requireModel bool) error {
	if embedder == nil {
		var err error
		embedder, err = llm.NewEmbedder(cfg)
		if err != nil {
			return fmt.Errorf("init embedder: %w", err)
		}
	}
	if requireModel && model == nil {
		var err error
		model, err = llm.NewModel(ctx, cfg)
		if err != nil {
			return fmt.Errorf("init model: %w", err)
		}
	}
	return nil
}

func newScorer() scoring.Scorer {
	return scoring.NewScorer(cfg.AccessBoost, cfg.DecayEnabled, cfg.DecayRate)
}

func episodeService() *service.EpisodeService {
	return service.NewEpisodeService(dbClient, index, embedder, nil)
}

func searchService() *service.SearchService {
	return service.NewSearchService(dbClient, dbClient, index, embedder, newScorer(), nil)
}

func statusService() *service.StatusService {
	return service.NewStatusService(dbClient, dbClient, index, cfg.AccessThreshold, cfg.UnconsolidatedThreshold)
}

func consolidator() *consolidate.Consolidator {
	return consolidate.New(dbClient, dbClient, index, model, embedder, nil, consolidate.Options{
		MinClusterSize:    cfg.MinClusterSize,
		MaxClusterSize:    cfg.MaxClusterSize,
		Eps:               cfg.ClusterEps,
		MaxEpisodesPerRun: cfg.MaxEpisodesPerRun,
		Timeout:           cfg.ConsolidationTimeout,
	})
}

// resolveProject applies the --project flag, the configured default, or
// auto-detection from the git origin or working directory.
func resolveProject(flag string) string {
	return tools.DetectProject(flag, &cfg)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the memtwin version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("memtwin", Version)
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging to stderr")

	rootCmd.AddCommand(captureCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(markCmd)
	rootCmd.AddCommand(timelineCmd)
	rootCmd.AddCommand(consolidateCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(reconcileCmd)
	rootCmd.AddCommand(versionCmd)
}
