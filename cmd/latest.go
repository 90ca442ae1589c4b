package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rtzll/tldm/internal"
)

// latestCmd represents the latest command
var latestCmd = &cobra.Command{
	Use:   "latest",
	Short: "Show the newest recording in the Drive folder",
	Example: `  # Show the recording the next run would pick
  tldm latest

  # Save it to a file as pretty JSON
  tldm latest --pretty -o latest.json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		app := internal.NewApp(config)

		rec, err := app.Latest(cmd.Context())
		if err != nil {
			return err
		}

		var jsonData []byte
		pretty, _ := cmd.Flags().GetBool("pretty")
		if pretty {
			jsonData, err = json.MarshalIndent(rec, "", "  ")
		} else {
			jsonData, err = json.Marshal(rec)
		}
		if err != nil {
			return fmt.Errorf("error converting recording to JSON: %w", err)
		}

		outputFile, _ := cmd.Flags().GetString("output")
		if outputFile != "" {
			return os.WriteFile(outputFile, jsonData, 0644)
		}

		fmt.Println(string(jsonData))
		return nil
	},
}

func init() {
	latestCmd.Flags().StringP("output", "o", "", "Output file path (default: stdout)")
	latestCmd.Flags().Bool("pretty", false, "Format output as pretty JSON")
	rootCmd.AddCommand(latestCmd)
}
