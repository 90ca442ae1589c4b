package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rtzll/tldm/internal"
)

// transcribeCmd represents the transcribe command
var transcribeCmd = &cobra.Command{
	Use:   "transcribe [audio file]",
	Short: "Transcribe a local audio file",
	Example: `  # Transcribe the audio of the last run again
  tldm transcribe

  # Transcribe another file into a separate transcript
  tldm transcribe retro.mp3 -o retro.txt

  # Use the OpenAI Whisper API instead of whisper.cpp
  TLDM_TRANSCRIBE_BACKEND=openai tldm transcribe retro.mp3`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := internal.ValidateTranscribeRequirements(config); err != nil {
			return err
		}

		audioFile := config.AudioPath
		if len(args) == 1 {
			audioFile = args[0]
		}
		outputFile, _ := cmd.Flags().GetString("output")

		app := internal.NewApp(config)
		transcript, err := app.TranscribeFile(cmd.Context(), audioFile, outputFile)
		if err != nil {
			return err
		}

		if !config.Quiet && outputFile == "" {
			fmt.Println(transcript)
		}
		return nil
	},
}

func init() {
	internal.AddOutputFlag(transcribeCmd, "transcript")
	rootCmd.AddCommand(transcribeCmd)
}
