package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// pathsCmd represents the paths command
var pathsCmd = &cobra.Command{
	Use:   "paths",
	Short: "Show paths used by the application",
	Example: `  # Show all application paths
  tldm paths`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("Config directory: %s\n", config.ConfigDir)
		fmt.Printf("Data directory: %s\n", config.DataDir)
		fmt.Printf("Cache directory: %s\n", config.CacheDir)
		fmt.Printf("Video: %s\n", config.VideoPath)
		fmt.Printf("Audio: %s\n", config.AudioPath)
		fmt.Printf("Transcript: %s\n", config.TranscriptPath)
		fmt.Printf("Summary: %s\n", config.SummaryPath)
		if config.SummaryDocxPath != "" {
			fmt.Printf("Summary (docx): %s\n", config.SummaryDocxPath)
		}
	},
}

func init() {
	rootCmd.AddCommand(pathsCmd)
}
