package internal

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"
	"time"
)

// PromptData for template injection
type PromptData struct {
	Recording  string
	Created    string
	Transcript string
}

// PromptManager handles loading the summary instruction
type PromptManager struct {
	promptFile   string
	promptString string
	configDir    string
}

// NewPromptManager creates a new prompt manager
func NewPromptManager(configDir, promptSetting string) *PromptManager {
	pm := &PromptManager{
		configDir: configDir,
	}

	// Configure prompt based on config setting
	if promptSetting != "" {
		if IsLikelyFilePath(promptSetting) && FileExists(promptSetting) {
			pm.promptFile = promptSetting
		} else {
			pm.promptString = promptSetting
		}
	}

	return pm
}

// Instruction returns the raw instruction text: a custom string, a custom file,
// prompt.txt in the config directory, or the embedded default, in that order.
func (pm *PromptManager) Instruction() (string, error) {
	if pm.promptString != "" {
		return pm.promptString, nil
	}

	promptFile := pm.promptFile
	if promptFile == "" {
		promptFile = filepath.Join(pm.configDir, "prompt.txt")
		if !FileExists(promptFile) {
			return DefaultPrompt(), nil
		}
	}

	content, err := os.ReadFile(promptFile)
	if err != nil {
		return "", fmt.Errorf("reading prompt template: %w", err)
	}
	return string(content), nil
}

// CreatePrompt builds the text handed to the summary model.
// Instructions without a {{.Transcript}} placeholder get the transcript appended directly.
func (pm *PromptManager) CreatePrompt(transcript string, rec *Recording) (string, error) {
	instruction, err := pm.Instruction()
	if err != nil {
		return "", err
	}

	if !strings.Contains(instruction, "{{") {
		return instruction + transcript, nil
	}

	return pm.buildPromptFromTemplate(instruction, transcript, rec)
}

// buildPromptFromTemplate builds the AI prompt from template content
func (pm *PromptManager) buildPromptFromTemplate(templateContent, transcript string, rec *Recording) (string, error) {
	tmpl, err := template.New("prompt").Parse(templateContent)
	if err != nil {
		return "", fmt.Errorf("parsing prompt template: %w", err)
	}

	data := PromptData{
		Transcript: transcript,
	}
	if rec != nil {
		data.Recording = rec.Name
		data.Created = rec.CreatedTime.Format(time.DateTime)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("executing prompt template: %w", err)
	}

	prompt := buf.String()
	if !strings.Contains(templateContent, ".Transcript") {
		prompt += transcript
	}
	return prompt, nil
}

// IsLikelyFilePath uses heuristics to determine if a string is likely a file path
func IsLikelyFilePath(s string) bool {
	// Check for common file path indicators
	if strings.Contains(s, "/") || strings.Contains(s, "\\") {
		return true
	}

	// Check for common file extensions
	if strings.Contains(s, ".txt") || strings.Contains(s, ".md") ||
		strings.Contains(s, ".template") || strings.Contains(s, ".tmpl") {
		return true
	}

	// If it's longer than 200 characters, it's likely a prompt string
	if len(s) > 200 {
		return false
	}

	// Default to treating as file path if it doesn't contain spaces and newlines
	return !strings.Contains(s, " ") && !strings.Contains(s, "\n")
}
