package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/memtwin/memtwin/internal/models"
)

var (
	searchProject string
	searchType    string
	searchTags    []string
	searchTopK    int
	searchMeta    bool
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search episodes by hybrid relevance",
	Long: `Search episodes using semantic similarity combined with importance,
access frequency, and curation flags. Returned episodes have their access
count reinforced.

Examples:
  memtwin search "websocket reconnect backoff"
  memtwin search "cache invalidation" --project api --type bug_fix
  memtwin search "retry patterns" --meta`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().StringVarP(&searchProject, "project", "p", "", "project name filter")
	searchCmd.Flags().StringVarP(&searchType, "type", "t", "", "episode type filter")
	searchCmd.Flags().StringSliceVar(&searchTags, "tags", nil, "episodes must carry all listed tags")
	searchCmd.Flags().IntVarP(&searchTopK, "top", "n", 5, "max results")
	searchCmd.Flags().BoolVar(&searchMeta, "meta", false, "search meta-memories instead of episodes")
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := args[0]
	ctx := cmd.Context()

	if err := initLLM(ctx, false); err != nil {
		return err
	}
	svc := searchService()
	project := resolveProject(searchProject)

	if searchMeta {
		results, err := svc.SearchMetaMemories(ctx, query, searchTopK, project)
		if err != nil {
			return fmt.Errorf("search meta-memories: %w", err)
		}
		if len(results) == 0 {
			fmt.Println("No results found.")
			return nil
		}
		fmt.Printf("Found %d meta-memories:\n\n", len(results))
		for i, r := range results {
			m := r.MetaMemory
			fmt.Printf("%d. %s (score %.3f, confidence %.2f, %d episodes)\n", i+1, m.Pattern, r.Score, m.Confidence, m.EpisodeCount)
			if m.PatternSummary != "" {
				fmt.Printf("   %s\n", m.PatternSummary)
			}
			for _, lesson := range m.Lessons {
				fmt.Printf("   - %s\n", lesson)
			}
			fmt.Println()
		}
		return nil
	}

	results, err := svc.SearchEpisodes(ctx, query, searchTopK, models.SearchFilters{
		Project: project,
		Type:    models.EpisodeType(searchType),
		Tags:    searchTags,
	})
	if err != nil {
		return fmt.Errorf("search episodes: %w", err)
	}

	if len(results) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	fmt.Printf("Found %d episodes:\n\n", len(results))
	for i, r := range results {
		ep := r.Episode
		fmt.Printf("%d. %s [%s] (score %.3f)\n", i+1, ep.Task, ep.EpisodeType, r.Score)
		if ep.SolutionSummary != "" {
			fmt.Printf("   %s\n", ep.SolutionSummary)
		}
		flags := episodeFlags(&ep)
		if flags != "" {
			fmt.Printf("   Flags: %s\n", flags)
		}
		if verbose {
			fmt.Printf("   ID: %s  Semantic: %.3f  Accesses: %d\n", ep.ID, r.SemanticScore, ep.AccessCount)
		}
		fmt.Println()
	}

	return nil
}

func episodeFlags(ep *models.Episode) string {
	var flags string
	if ep.IsCritical {
		flags += "critical "
	}
	if ep.IsAntipattern {
		flags += "antipattern "
	}
	if ep.SupersededBy != nil {
		flags += "superseded "
	}
	if len(flags) > 0 {
		return flags[:len(flags)-1]
	}
	return ""
}
