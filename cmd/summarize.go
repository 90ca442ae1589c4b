package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rtzll/tldm/internal"
)

// summarizeCmd represents the summarize command
var summarizeCmd = &cobra.Command{
	Use:   "summarize [transcript file]",
	Short: "Summarize a transcript without downloading or mailing anything",
	Example: `  # Summarize the transcript of the last run again
  tldm summarize

  # Summarize another transcript with a specific model
  tldm summarize retro.txt --model gpt-4o -o retro.md

  # Use a custom instruction
  tldm summarize --prompt "List every action item with its owner: "`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := internal.ValidateSummaryRequirements(cmd, config); err != nil {
			return err
		}

		transcriptFile := config.TranscriptPath
		if len(args) == 1 {
			transcriptFile = args[0]
		}
		transcript, err := os.ReadFile(transcriptFile)
		if err != nil {
			return fmt.Errorf("reading transcript: %w", err)
		}

		app := internal.NewApp(config)
		if err := internal.HandlePromptFlag(cmd, app); err != nil {
			return err
		}

		outputFile, _ := cmd.Flags().GetString("output")
		summary, err := app.SummarizeText(cmd.Context(), string(transcript), outputFile)
		if err != nil {
			return err
		}

		if !config.Quiet {
			rendered, err := internal.RenderMarkdown(summary)
			if err != nil {
				return fmt.Errorf("rendering markdown: %w", err)
			}
			fmt.Println(rendered)
		}
		return nil
	},
}

func init() {
	internal.AddSummaryFlags(summarizeCmd)
	internal.AddOutputFlag(summarizeCmd, "summary")
	rootCmd.AddCommand(summarizeCmd)
}
