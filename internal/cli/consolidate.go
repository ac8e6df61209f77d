package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	consolidateProject string
	consolidateMinSize int
	statusProject      string
)

var consolidateCmd = &cobra.Command{
	Use:   "consolidate",
	Short: "Cluster related episodes into meta-memories",
	Long: `Consolidate clusters related episodes by embedding similarity and
synthesizes each cluster into a meta-memory via the configured LLM.
Episodes are never modified; consolidation only creates new records.

Examples:
  memtwin consolidate --project api`,
	RunE: runConsolidate,
}

func init() {
	consolidateCmd.Flags().StringVarP(&consolidateProject, "project", "p", "", "project to consolidate")
	consolidateCmd.Flags().IntVar(&consolidateMinSize, "min-cluster-size", 0, "minimum episodes per cluster for this run (default from config)")
	statusCmd.Flags().StringVarP(&statusProject, "project", "p", "", "project to inspect")
}

func runConsolidate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if err := initLLM(ctx, true); err != nil {
		return err
	}

	project := resolveProject(consolidateProject)
	report, err := consolidator().Run(ctx, project, consolidateMinSize)
	if err != nil {
		return fmt.Errorf("consolidate: %w", err)
	}

	fmt.Printf("Examined %d episodes (%d clusterable), found %d clusters.\n",
		report.EpisodesExamined, report.EpisodesClusterable, report.ClustersFound)
	if report.ClustersSkipped > 0 {
		fmt.Printf("Skipped %d clusters whose synthesis failed.\n", report.ClustersSkipped)
	}
	if len(report.MetaMemories) == 0 {
		fmt.Println("No meta-memories created.")
		return nil
	}

	fmt.Printf("Created %d meta-memories:\n\n", len(report.MetaMemories))
	for i, m := range report.MetaMemories {
		fmt.Printf("%d. %s\n", i+1, m.Pattern)
		fmt.Printf("   %d episodes, confidence %.2f, coherence %.2f\n", m.EpisodeCount, m.Confidence, m.CoherenceScore)
	}
	return nil
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report whether consolidation looks worthwhile",
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	project := resolveProject(statusProject)
	status, err := statusService().ConsolidationStatus(cmd.Context(), project)
	if err != nil {
		return fmt.Errorf("status: %w", err)
	}

	fmt.Printf("Project:          %s\n", status.Project)
	fmt.Printf("Episodes:         %d\n", status.TotalEpisodes)
	fmt.Printf("Hot episodes:     %d (accessed >= %d times)\n", status.HotEpisodes, status.AccessThreshold)
	fmt.Printf("Max access count: %d\n", status.MaxAccessCount)
	fmt.Printf("Unconsolidated:   ~%d (threshold %d)\n", status.EstimatedUnconsolidated, status.UnconsolidatedThreshold)
	if status.ShouldConsolidate {
		fmt.Println("\nConsolidation recommended: run 'memtwin consolidate'.")
	} else {
		fmt.Println("\nNo consolidation needed yet.")
	}
	return nil
}
