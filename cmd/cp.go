package cmd

import (
	"fmt"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"

	"github.com/rtzll/tldm/internal"
)

// cpCmd copies the last summary to the system clipboard instead of printing to stdout.
var cpCmd = &cobra.Command{
	Use:   "cp",
	Short: "Copy the last summary (or transcript) to the clipboard",
	Example: `  # Copy the summary of the last run
  tldm cp

  # Copy the transcript instead
  tldm cp --transcript`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		app := internal.NewApp(config)

		what := "Summary"
		read := app.LastSummary
		if transcript, _ := cmd.Flags().GetBool("transcript"); transcript {
			what = "Transcript"
			read = app.LastTranscript
		}

		text, err := read()
		if err != nil {
			return err
		}

		if err := clipboard.WriteAll(text); err != nil {
			return fmt.Errorf("copying %s to clipboard: %w", what, err)
		}

		if !config.Quiet {
			fmt.Printf("%s copied to clipboard\n", what)
		}

		return nil
	},
}

func init() {
	cpCmd.Flags().Bool("transcript", false, "Copy the transcript instead of the summary")
	rootCmd.AddCommand(cpCmd)
}
