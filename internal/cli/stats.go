package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/memtwin/memtwin/internal/service"
)

var (
	statsProject     string
	reconcileProject string
	reconcileLimit   int
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show episode statistics",
	Long:  `Show episode counts by type and assistant plus index coverage. Without --project the numbers cover the whole store.`,
	RunE:  runStats,
}

func init() {
	statsCmd.Flags().StringVarP(&statsProject, "project", "p", "", "project to inspect (empty for all)")
	reconcileCmd.Flags().StringVarP(&reconcileProject, "project", "p", "", "project to reconcile")
	reconcileCmd.Flags().IntVarP(&reconcileLimit, "limit", "n", 200, "max episodes to check")
}

func runStats(cmd *cobra.Command, args []string) error {
	stats, err := statusService().Stats(cmd.Context(), statsProject)
	if err != nil {
		return fmt.Errorf("stats: %w", err)
	}

	if stats.Project != "" {
		fmt.Printf("Project: %s\n", stats.Project)
	}
	fmt.Printf("Episodes: %d (indexed: %d)\n", stats.TotalEpisodes, stats.IndexedCount)

	if len(stats.ByType) > 0 {
		fmt.Println("\nBy type:")
		printCounts(toStringCounts(stats.ByType))
	}
	if len(stats.ByAssistant) > 0 {
		fmt.Println("\nBy assistant:")
		printCounts(stats.ByAssistant)
	}
	return nil
}

func toStringCounts[K ~string](m map[K]int) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[string(k)] = v
	}
	return out
}

func printCounts(counts map[string]int) {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Printf("  %-14s %d\n", k, counts[k])
	}
}

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Repair the vector index against the metadata store",
	Long: `Reconcile re-embeds and re-indexes episodes that exist in the metadata
store but are missing from the vector index.`,
	RunE: runReconcile,
}

func runReconcile(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if err := initLLM(ctx, false); err != nil {
		return err
	}

	svc := service.NewReconcileService(dbClient, index, embedder, nil)
	report, err := svc.Reconcile(ctx, resolveProject(reconcileProject), reconcileLimit)
	if err != nil {
		return fmt.Errorf("reconcile: %w", err)
	}

	fmt.Printf("Checked %d episodes: %d repaired, %d failed.\n", report.Checked, report.Repaired, report.Failed)
	return nil
}
