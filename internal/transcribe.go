package internal

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
)

// SpeechRecognizer turns an audio file into a transcript
type SpeechRecognizer interface {
	Recognize(ctx context.Context, audioPath string) (*Transcript, error)
	Name() string
}

// Transcriber runs speech recognition and persists the flat transcript
type Transcriber struct {
	recognizer     SpeechRecognizer
	transcriptPath string
	timeout        time.Duration
	logger         zerolog.Logger
}

// NewTranscriber creates a transcriber writing to transcriptPath.
// A zero timeout leaves the recognizer unbounded.
func NewTranscriber(recognizer SpeechRecognizer, transcriptPath string, timeout time.Duration, logger zerolog.Logger) *Transcriber {
	return &Transcriber{
		recognizer:     recognizer,
		transcriptPath: transcriptPath,
		timeout:        timeout,
		logger:         logger,
	}
}

// Transcribe recognizes audioPath and writes the flattened transcript verbatim
func (t *Transcriber) Transcribe(ctx context.Context, audioPath string) (string, error) {
	if !FileExists(audioPath) {
		return "", fmt.Errorf("audio file %s not found", audioPath)
	}

	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	started := time.Now()
	result, err := t.recognizer.Recognize(ctx, audioPath)
	if err != nil {
		return "", &InferenceError{Stage: "transcribe", Backend: t.recognizer.Name(), Err: err}
	}

	transcript := result.Flatten()
	t.logger.Debug().
		Str("backend", t.recognizer.Name()).
		Int("segments", len(result.Segments)).
		Int("chars", utf8.RuneCountInString(transcript)).
		Dur("took", time.Since(started)).
		Msg("transcription finished")

	if err := SaveText(t.transcriptPath, transcript); err != nil {
		return "", fmt.Errorf("saving transcript: %w", err)
	}
	return transcript, nil
}
