package internal

import (
	"fmt"

	"github.com/spf13/cobra"
)

// AddSummaryFlags adds flags selecting the summary backend, model and instruction
func AddSummaryFlags(cmd *cobra.Command) {
	cmd.Flags().String("backend", "", "Summary backend (openai or gemini)")
	cmd.Flags().StringP("model", "m", "", "Model to use for summaries")
	cmd.Flags().StringP("prompt", "p", "", "Custom instruction (string or file path)")
}

// AddOutputFlag adds the -o flag for commands that write a single artifact
func AddOutputFlag(cmd *cobra.Command, what string) {
	cmd.Flags().StringP("output", "o", "", fmt.Sprintf("Write the %s to this file (default: the fixed artifact path)", what))
}

// HandlePromptFlag processes the --prompt flag to set custom prompt
func HandlePromptFlag(cmd *cobra.Command, app *App) error {
	// Check if prompt flag was explicitly set
	promptFlag := cmd.Flags().Lookup("prompt")
	if promptFlag == nil || !promptFlag.Changed {
		return nil
	}

	prompt, err := cmd.Flags().GetString("prompt")
	if err != nil {
		return fmt.Errorf("failed to get prompt flag: %w", err)
	}

	// If prompt is empty, nothing to do
	if prompt == "" {
		return nil
	}

	app.SetPromptManager(NewPromptManager(app.config.ConfigDir, prompt))

	if IsLikelyFilePath(prompt) && FileExists(prompt) {
		app.ui.Verbose("Using custom prompt file: %s\n", prompt)
	} else {
		app.ui.Verbose("Using custom prompt string\n")
	}

	return nil
}

// HandleVerboseFlag processes --verbose and --quiet to update config
func HandleVerboseFlag(cmd *cobra.Command, config *Config) error {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		return fmt.Errorf("failed to get verbose flag: %w", err)
	}
	quiet, err := cmd.Flags().GetBool("quiet")
	if err != nil {
		return fmt.Errorf("failed to get quiet flag: %w", err)
	}

	if cmd.Flags().Changed("verbose") {
		config.Verbose = verbose
	}
	if cmd.Flags().Changed("quiet") {
		config.Quiet = quiet
	}
	if config.Verbose && config.Quiet {
		return fmt.Errorf("--verbose and --quiet cannot be used together")
	}
	return nil
}

// ValidateSummaryRequirements checks backend, model and API key from flags and config
func ValidateSummaryRequirements(cmd *cobra.Command, config *Config) error {
	if flag := cmd.Flags().Lookup("backend"); flag != nil && flag.Changed {
		config.SummaryBackend = flag.Value.String()
	}

	modelFlag := ""
	if flag := cmd.Flags().Lookup("model"); flag != nil {
		modelFlag = flag.Value.String()
	}

	switch config.SummaryBackend {
	case BackendOpenAI:
		if err := ValidateOpenAIAPIKey(config.OpenAIAPIKey); err != nil {
			return err
		}
		if modelFlag != "" {
			if err := ValidateModel(modelFlag); err != nil {
				return err
			}
			config.TLDRModel = modelFlag
		} else if err := ValidateModel(config.TLDRModel); err != nil {
			return fmt.Errorf("invalid model in config: %w", err)
		}
	case BackendGemini:
		if config.GeminiAPIKey == "" {
			return fmt.Errorf("Gemini API key is required - set it in config.toml or GEMINI_API_KEY environment variable")
		}
		if modelFlag != "" {
			config.GeminiModel = modelFlag
		}
	default:
		return fmt.Errorf("unknown summary backend %q (supported: %s, %s)", config.SummaryBackend, BackendOpenAI, BackendGemini)
	}

	return nil
}

// ValidateTranscribeRequirements checks that the selected speech backend can run
func ValidateTranscribeRequirements(config *Config) error {
	switch config.TranscribeBackend {
	case BackendOpenAI:
		return ValidateOpenAIAPIKey(config.OpenAIAPIKey)
	case BackendWhisperCPP:
		if config.WhisperModel == "" {
			return fmt.Errorf("transcribe.whisper_model is required for the %s backend", BackendWhisperCPP)
		}
		return nil
	default:
		return fmt.Errorf("unknown transcribe backend %q (supported: %s, %s)", config.TranscribeBackend, BackendWhisperCPP, BackendOpenAI)
	}
}
