package internal

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// WhisperCPP runs local CPU inference through the whisper.cpp command line tool
type WhisperCPP struct {
	cmdRunner CommandRunner
	binary    string
	model     string
	language  string
	threads   int
	tempDir   string
}

// NewWhisperCPP creates a recognizer using the given whisper.cpp binary and ggml model
func NewWhisperCPP(cmdRunner CommandRunner, binary, model, language string, threads int, tempDir string) *WhisperCPP {
	return &WhisperCPP{
		cmdRunner: cmdRunner,
		binary:    binary,
		model:     model,
		language:  language,
		threads:   threads,
		tempDir:   tempDir,
	}
}

func (w *WhisperCPP) Name() string {
	return BackendWhisperCPP
}

// whisperOutput is the subset of whisper.cpp's -oj file we read
type whisperOutput struct {
	Result struct {
		Language string `json:"language"`
	} `json:"result"`
	Transcription []struct {
		Offsets struct {
			From int64 `json:"from"`
			To   int64 `json:"to"`
		} `json:"offsets"`
		Text string `json:"text"`
	} `json:"transcription"`
}

// Recognize transcribes audioPath with timestamped segments
func (w *WhisperCPP) Recognize(ctx context.Context, audioPath string) (*Transcript, error) {
	if err := EnsureDirs(w.tempDir); err != nil {
		return nil, fmt.Errorf("creating temp directory: %w", err)
	}

	// whisper.cpp appends .json to the output prefix
	prefix := filepath.Join(w.tempDir, strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath)))
	jsonPath := prefix + ".json"
	defer cleanupFiles(jsonPath)

	args := []string{
		"-m", w.model,
		"-f", audioPath,
		"-oj",
		"-of", prefix,
		"-t", strconv.Itoa(w.threads),
		"-np",
	}
	if w.language != "" {
		args = append(args, "-l", w.language)
	}

	output, err := w.cmdRunner.Run(ctx, w.binary, args...)
	if err != nil {
		return nil, fmt.Errorf("%s failed: %w\nOutput: %s", w.binary, err, lastLines(string(output), 5))
	}

	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return nil, fmt.Errorf("reading whisper output: %w", err)
	}
	return ParseWhisperJSON(data)
}

// ParseWhisperJSON converts whisper.cpp JSON output into a Transcript
func ParseWhisperJSON(data []byte) (*Transcript, error) {
	var out whisperOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("parsing whisper output: %w", err)
	}

	transcript := &Transcript{Language: out.Result.Language}
	var sb strings.Builder
	for _, seg := range out.Transcription {
		transcript.Segments = append(transcript.Segments, Segment{
			Start: time.Duration(seg.Offsets.From) * time.Millisecond,
			End:   time.Duration(seg.Offsets.To) * time.Millisecond,
			Text:  seg.Text,
		})
		sb.WriteString(seg.Text)
	}
	transcript.Text = sb.String()

	return transcript, nil
}
