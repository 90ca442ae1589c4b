package internal

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
)

// SummaryLimits bounds the length of each chunk summary in tokens
type SummaryLimits struct {
	MinTokens int
	MaxTokens int
}

// Instruction is the system message sent with every chunk
func (l SummaryLimits) Instruction() string {
	return fmt.Sprintf(
		"Summarize the text you are given in at least %d and at most %d tokens. "+
			"Keep any section headings and bullet points that appear in it. "+
			"Do not add facts that are not in the text.",
		l.MinTokens, l.MaxTokens)
}

// SummaryModel condenses a single chunk of text
type SummaryModel interface {
	Summarize(ctx context.Context, text string, limits SummaryLimits) (string, error)
	Name() string
}

// Summarizer chunks instruction and transcript and summarizes each chunk in order
type Summarizer struct {
	model         SummaryModel
	promptManager *PromptManager
	chunkSize     int
	limits        SummaryLimits
	summaryPath   string
	docxPath      string
	timeout       time.Duration
	logger        zerolog.Logger
}

// SummarizerConfig holds the settings for NewSummarizer
type SummarizerConfig struct {
	ChunkSize   int
	Limits      SummaryLimits
	SummaryPath string
	DocxPath    string
	// Timeout applies to each model call; zero disables it
	Timeout time.Duration
}

// NewSummarizer creates a summarizer writing to cfg.SummaryPath
func NewSummarizer(model SummaryModel, promptManager *PromptManager, cfg SummarizerConfig, logger zerolog.Logger) *Summarizer {
	return &Summarizer{
		model:         model,
		promptManager: promptManager,
		chunkSize:     cfg.ChunkSize,
		limits:        cfg.Limits,
		summaryPath:   cfg.SummaryPath,
		docxPath:      cfg.DocxPath,
		timeout:       cfg.Timeout,
		logger:        logger,
	}
}

// Chunks returns the pieces of instruction plus transcript that are sent to the model
func (s *Summarizer) Chunks(transcript string, rec *Recording) ([]string, error) {
	prompt, err := s.promptManager.CreatePrompt(transcript, rec)
	if err != nil {
		return nil, fmt.Errorf("creating prompt: %w", err)
	}
	return ChunkText(prompt, s.chunkSize), nil
}

// Summarize produces and persists the summary of transcript.
// Each chunk summary is trimmed and followed by a blank line.
func (s *Summarizer) Summarize(ctx context.Context, transcript string, rec *Recording, bar ProgressBar) (string, error) {
	chunks, err := s.Chunks(transcript, rec)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for i, chunk := range chunks {
		if bar != nil {
			bar.Describe(fmt.Sprintf("Summarizing chunk %d/%d", i+1, len(chunks)))
		}

		out, err := s.summarizeChunk(ctx, chunk)
		if err != nil {
			return "", &InferenceError{
				Stage:   "summarize",
				Backend: s.model.Name(),
				Err:     fmt.Errorf("chunk %d/%d: %w", i+1, len(chunks), err),
			}
		}

		s.logger.Debug().
			Int("chunk", i+1).
			Int("chunks", len(chunks)).
			Int("chars", utf8.RuneCountInString(out)).
			Msg("chunk summarized")

		sb.WriteString(strings.TrimSpace(out))
		sb.WriteString("\n\n")

		if bar != nil {
			bar.Advance()
		}
	}

	summary := sb.String()
	if err := SaveText(s.summaryPath, summary); err != nil {
		return "", fmt.Errorf("saving summary: %w", err)
	}

	if s.docxPath != "" {
		title := "Meeting Summary"
		if rec != nil {
			title = fmt.Sprintf("Meeting Summary: %s", rec.Name)
		}
		if err := WriteSummaryDocx(title, summary, s.docxPath); err != nil {
			s.logger.Warn().Err(err).Str("path", s.docxPath).Msg("docx export failed")
		}
	}

	return summary, nil
}

func (s *Summarizer) summarizeChunk(ctx context.Context, chunk string) (string, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	return s.model.Summarize(ctx, chunk, s.limits)
}
