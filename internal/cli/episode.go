package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/memtwin/memtwin/internal/models"
)

var getCmd = &cobra.Command{
	Use:   "get <episode-id>",
	Short: "Show an episode with full details",
	Args:  cobra.ExactArgs(1),
	RunE:  runGet,
}

func runGet(cmd *cobra.Command, args []string) error {
	id, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid episode ID: %w", err)
	}

	ep, err := episodeService().Get(cmd.Context(), id)
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(ep, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal episode: %w", err)
	}
	fmt.Println(string(out))
	return nil
}

var deleteForce bool

var deleteCmd = &cobra.Command{
	Use:   "delete <episode-id>",
	Short: "Delete an episode from the store and the index",
	Long: `Delete an episode. Requires confirmation unless --force is used.
Deleting an unknown ID is not an error.`,
	Args: cobra.ExactArgs(1),
	RunE: runDelete,
}

func init() {
	deleteCmd.Flags().BoolVarP(&deleteForce, "force", "f", false, "skip confirmation")
}

func runDelete(cmd *cobra.Command, args []string) error {
	id, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid episode ID: %w", err)
	}

	if !deleteForce {
		fmt.Printf("About to delete episode %s\n", id)
		fmt.Print("\nContinue? [y/N]: ")

		reader := bufio.NewReader(os.Stdin)
		response, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("read input: %w", err)
		}
		response = strings.TrimSpace(strings.ToLower(response))
		if response != "y" && response != "yes" {
			fmt.Println("Cancelled.")
			return nil
		}
	}

	deleted, err := episodeService().Delete(cmd.Context(), id)
	if err != nil {
		return fmt.Errorf("delete episode: %w", err)
	}
	if deleted {
		fmt.Println("Deleted.")
	} else {
		fmt.Println("Episode did not exist.")
	}
	return nil
}

var (
	markAntipattern  bool
	markCritical     bool
	markClear        bool
	markSupersededBy string
	markReason       string
	markImportance   float64
)

var markCmd = &cobra.Command{
	Use:   "mark <episode-id>",
	Short: "Update curation flags of an episode",
	Long: `Mark an episode with curation flags that influence search ranking.

Examples:
  memtwin mark <id> --critical
  memtwin mark <id> --antipattern --reason "races under load"
  memtwin mark <id> --superseded-by <other-id>
  memtwin mark <id> --importance 2.5
  memtwin mark <id> --clear`,
	Args: cobra.ExactArgs(1),
	RunE: runMark,
}

func init() {
	markCmd.Flags().BoolVar(&markAntipattern, "antipattern", false, "mark as an approach that should not be repeated")
	markCmd.Flags().BoolVar(&markCritical, "critical", false, "mark as must-know knowledge")
	markCmd.Flags().BoolVar(&markClear, "clear", false, "clear antipattern and critical flags")
	markCmd.Flags().StringVar(&markSupersededBy, "superseded-by", "", "UUID of the episode that replaces this one")
	markCmd.Flags().StringVar(&markReason, "reason", "", "why this episode is deprecated")
	markCmd.Flags().Float64Var(&markImportance, "importance", 0, "manual importance weight")
}

func runMark(cmd *cobra.Command, args []string) error {
	id, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid episode ID: %w", err)
	}

	var updates models.FlagUpdates
	boolPtr := func(v bool) *bool { return &v }
	if markClear {
		updates.IsAntipattern = boolPtr(false)
		updates.IsCritical = boolPtr(false)
	}
	if cmd.Flags().Changed("antipattern") {
		updates.IsAntipattern = boolPtr(markAntipattern)
	}
	if cmd.Flags().Changed("critical") {
		updates.IsCritical = boolPtr(markCritical)
	}
	if markSupersededBy != "" {
		successor, err := uuid.Parse(markSupersededBy)
		if err != nil {
			return fmt.Errorf("invalid superseded-by ID: %w", err)
		}
		updates.SupersededBy = &successor
	}
	if markReason != "" {
		updates.DeprecationReason = &markReason
	}
	if cmd.Flags().Changed("importance") {
		updates.ImportanceScore = &markImportance
	}
	if updates.Empty() {
		return fmt.Errorf("no flag changes provided")
	}

	ep, err := episodeService().UpdateFlags(cmd.Context(), id, updates)
	if err != nil {
		return fmt.Errorf("mark episode: %w", err)
	}

	fmt.Printf("Updated episode %s\n", ep.ID)
	fmt.Printf("  Critical:    %v\n", ep.IsCritical)
	fmt.Printf("  Antipattern: %v\n", ep.IsAntipattern)
	fmt.Printf("  Importance:  %.2f\n", ep.ImportanceScore)
	if ep.SupersededBy != nil {
		fmt.Printf("  Superseded:  %s\n", *ep.SupersededBy)
	}
	return nil
}

var (
	timelineProject string
	timelineType    string
	timelineFrom    string
	timelineTo      string
	timelineLimit   int
)

var timelineCmd = &cobra.Command{
	Use:   "timeline",
	Short: "List episodes newest first",
	Long: `List episodes in reverse chronological order.

Examples:
  memtwin timeline --project api
  memtwin timeline --type bug_fix --from 2026-08-01T00:00:00Z`,
	RunE: runTimeline,
}

func init() {
	timelineCmd.Flags().StringVarP(&timelineProject, "project", "p", "", "project name filter")
	timelineCmd.Flags().StringVarP(&timelineType, "type", "t", "", "episode type filter")
	timelineCmd.Flags().StringVar(&timelineFrom, "from", "", "RFC 3339 lower bound")
	timelineCmd.Flags().StringVar(&timelineTo, "to", "", "RFC 3339 upper bound")
	timelineCmd.Flags().IntVarP(&timelineLimit, "limit", "n", 20, "max results")
}

func runTimeline(cmd *cobra.Command, args []string) error {
	filters := models.TimelineFilters{
		Project: resolveProject(timelineProject),
		Type:    models.EpisodeType(timelineType),
	}
	if timelineFrom != "" {
		from, err := time.Parse(time.RFC3339, timelineFrom)
		if err != nil {
			return fmt.Errorf("invalid --from: %w", err)
		}
		filters.DateFrom = &from
	}
	if timelineTo != "" {
		to, err := time.Parse(time.RFC3339, timelineTo)
		if err != nil {
			return fmt.Errorf("invalid --to: %w", err)
		}
		filters.DateTo = &to
	}

	episodes, err := episodeService().Timeline(cmd.Context(), filters, timelineLimit)
	if err != nil {
		return fmt.Errorf("timeline: %w", err)
	}

	if len(episodes) == 0 {
		fmt.Println("No episodes found.")
		return nil
	}

	for _, ep := range episodes {
		fmt.Printf("%s  %-12s  %s\n", ep.Timestamp.Format("2006-01-02 15:04"), ep.EpisodeType, ep.Task)
		if verbose {
			fmt.Printf("%19s  ID: %s\n", "", ep.ID)
		}
	}
	return nil
}
