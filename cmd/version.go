package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	version = "dev" // overridden at build time via -ldflags
	commit  = ""
	date    = ""
)

var versionShort bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version and the configured backends",
	Example: `  # Version with backends
  tldm version

  # Version number only
  tldm version --short`,
	Run: func(cmd *cobra.Command, args []string) {
		if versionShort {
			fmt.Println(version)
			return
		}

		fmt.Printf("tldm v%s", version)
		if commit != "" {
			fmt.Printf(" (commit %s, built %s)", commit, date)
		}
		fmt.Println()
		fmt.Printf("transcription: %s\n", config.TranscribeBackend)
		fmt.Printf("summary: %s\n", config.SummaryBackend)
	},
}

func init() {
	versionCmd.Flags().BoolVar(&versionShort, "short", false, "print only the version number")
	rootCmd.AddCommand(versionCmd)
}
