package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/memtwin/memtwin/internal/service"
)

var (
	captureFile      string
	capturePrompt    string
	captureChanges   string
	captureProject   string
	captureAssistant string
	captureTags      []string
)

var captureCmd = &cobra.Command{
	Use:   "capture [raw text]",
	Short: "Structure raw reasoning text into a stored episode",
	Long: `Capture turns free-form reasoning text into a structured episode via the
configured LLM and stores it with its embedding.

The raw text comes from the argument, --file, or stdin (in that order).

Examples:
  memtwin capture "I chose exponential backoff because..." --project api
  memtwin capture --file reasoning.txt --assistant claude --tags retry,websocket
  cat reasoning.txt | memtwin capture`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCapture,
}

func init() {
	captureCmd.Flags().StringVarP(&captureFile, "file", "f", "", "read raw text from file")
	captureCmd.Flags().StringVar(&capturePrompt, "prompt", "", "the user request that triggered the reasoning")
	captureCmd.Flags().StringVar(&captureChanges, "changes", "", "diff or description of code changes")
	captureCmd.Flags().StringVarP(&captureProject, "project", "p", "", "project name")
	captureCmd.Flags().StringVarP(&captureAssistant, "assistant", "a", "", "assistant that produced the reasoning")
	captureCmd.Flags().StringSliceVarP(&captureTags, "tags", "t", nil, "extra tags")
}

func runCapture(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	rawText, err := captureText(args)
	if err != nil {
		return err
	}

	if err := initLLM(ctx, true); err != nil {
		return err
	}

	captureSvc := service.NewCaptureService(model, episodeService(), nil)
	ep, err := captureSvc.Capture(ctx, service.CaptureRequest{
		RawText:     rawText,
		UserPrompt:  capturePrompt,
		CodeChanges: captureChanges,
		Project:     resolveProject(captureProject),
		Assistant:   captureAssistant,
		Tags:        captureTags,
	})
	if err != nil {
		return fmt.Errorf("capture: %w", err)
	}

	fmt.Printf("Captured episode %s\n", ep.ID)
	fmt.Printf("  Task:    %s\n", ep.Task)
	fmt.Printf("  Type:    %s\n", ep.EpisodeType)
	fmt.Printf("  Project: %s\n", ep.ProjectName)
	if len(ep.Tags) > 0 {
		fmt.Printf("  Tags:    %v\n", ep.Tags)
	}
	return nil
}

// captureText resolves the raw text source: argument > file > stdin.
func captureText(args []string) (string, error) {
	if len(args) == 1 && args[0] != "" {
		return args[0], nil
	}
	if captureFile != "" {
		data, err := os.ReadFile(captureFile)
		if err != nil {
			return "", fmt.Errorf("read file: %w", err)
		}
		return string(data), nil
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	if len(data) == 0 {
		return "", fmt.Errorf("no raw text provided: pass an argument, --file, or pipe stdin")
	}
	return string(data), nil
}
