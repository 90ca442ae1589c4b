package internal

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned when the remote folder holds no matching recording
var ErrNotFound = errors.New("no matching recording found")

// TranscodeError reports a failed ffmpeg invocation
type TranscodeError struct {
	Input  string
	Output string
	Err    error
}

func (e *TranscodeError) Error() string {
	msg := fmt.Sprintf("transcoding %s: %v", e.Input, e.Err)
	if out := strings.TrimSpace(e.Output); out != "" {
		msg += "\nOutput: " + lastLines(out, 5)
	}
	return msg
}

func (e *TranscodeError) Unwrap() error {
	return e.Err
}

// InferenceError reports a failed speech-to-text or summarization call
type InferenceError struct {
	Stage   string
	Backend string
	Err     error
}

func (e *InferenceError) Error() string {
	return fmt.Sprintf("%s (%s): %v", e.Stage, e.Backend, e.Err)
}

func (e *InferenceError) Unwrap() error {
	return e.Err
}

// DeliveryError reports a mail that could not be sent
type DeliveryError struct {
	Recipient string
	Err       error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("sending mail to %s: %v", e.Recipient, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// StageError wraps the failure that ended a pipeline run
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// lastLines keeps the tail of noisy subprocess output
func lastLines(s string, n int) string {
	lines := strings.Split(s, "\n")
	if len(lines) <= n {
		return s
	}
	return strings.Join(lines[len(lines)-n:], "\n")
}
