package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rtzll/tldm/internal"
)

var (
	config     *internal.Config
	configFile string
)

// rootCmd runs the full pipeline when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "tldm",
	Short: "Too Long; Didn't Meet - meeting recording summarizer",
	Long: `TLDM (Too Long; Didn't Meet) summarizes your latest meeting recording.

It downloads the newest video from a Google Drive folder, extracts the audio
with ffmpeg, transcribes it with whisper.cpp or OpenAI Whisper, summarizes the
transcript into agenda, tasks, decisions and participants, and emails the result.

Every artifact is written to a fixed path and overwritten on the next run.
A failing stage is reported but does not change the exit status.`,
	Example: `  # Summarize the newest recording and email it
  tldm

  # Use Gemini for the summary
  tldm --backend gemini

  # Keep the summary local
  tldm --no-mail

  # Use a custom instruction
  tldm --prompt ~/notes/standup-prompt.txt`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadConfig(cmd)
	},
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := internal.ValidateSummaryRequirements(cmd, config); err != nil {
			fmt.Fprintln(os.Stderr, "ERROR:", err)
			return nil
		}
		if err := internal.ValidateTranscribeRequirements(config); err != nil {
			fmt.Fprintln(os.Stderr, "ERROR:", err)
			return nil
		}

		var opts []internal.AppOption
		if noMail, _ := cmd.Flags().GetBool("no-mail"); noMail {
			opts = append(opts, internal.WithoutMail())
		}

		app := internal.NewApp(config, opts...)
		if err := internal.HandlePromptFlag(cmd, app); err != nil {
			fmt.Fprintln(os.Stderr, "ERROR:", err)
			return nil
		}

		report := app.Run(cmd.Context())
		if report.Failed() {
			// failures are printed, never signalled through the exit code
			fmt.Fprintln(os.Stderr, "ERROR:", report.Err)
			return nil
		}

		if !config.Quiet {
			rendered, err := internal.RenderMarkdown(report.Summary)
			if err != nil {
				rendered = report.Summary
			}
			fmt.Println(rendered)
		}
		return nil
	},
}

// loadConfig reads the config file and prepares the XDG directories
func loadConfig(cmd *cobra.Command) error {
	if config != nil {
		return internal.HandleVerboseFlag(cmd, config)
	}

	cfg, err := internal.InitConfig(configFile)
	if err != nil {
		return err
	}
	config = cfg

	if err := internal.HandleVerboseFlag(cmd, config); err != nil {
		return err
	}

	if err := internal.EnsureDirs(config.ConfigDir, config.DataDir, config.CacheDir); err != nil {
		return fmt.Errorf("creating XDG directories: %w", err)
	}

	// Ensure default config and instruction exist in XDG config directory
	if err := internal.EnsureDefaultConfig(config.ConfigDir); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Failed to ensure default config: %v\n", err)
	}
	if err := internal.EnsureDefaultPrompt(config.ConfigDir); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Failed to ensure default prompt: %v\n", err)
	}

	return nil
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	// Create a cancellable context for the entire application
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Set up signal handling for graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	// Handle shutdown signal in a separate goroutine
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nReceived interrupt signal. Cleaning up and shutting down...")

		// Cancel the main context to signal all operations to stop
		cancel()

		cleanupCtx, cleanupCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cleanupCancel()

		cleanupDone := make(chan struct{})
		go func() {
			if config != nil {
				if err := internal.CleanupTempDir(config.TempDir); err != nil {
					fmt.Fprintf(os.Stderr, "Error cleaning up temporary files: %v\n", err)
				}
			}
			close(cleanupDone)
		}()

		select {
		case <-cleanupDone:
		case <-cleanupCtx.Done():
			fmt.Fprintln(os.Stderr, "Warning: Cleanup timed out, forcing exit")
		}

		os.Exit(0)
	}()

	rootCmd.SetContext(ctx)

	return rootCmd.Execute()
}

func init() {
	internal.AddSummaryFlags(rootCmd)
	rootCmd.Flags().Bool("no-mail", false, "Write the summary but do not email it")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output for debugging")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "Only print errors")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file (default is $XDG_CONFIG_HOME/tldm/config.toml)")
}
