package internal

import (
	"fmt"
	"time"
)

// Stage is a state of the pipeline run
type Stage int

const (
	StageAuthPending Stage = iota
	StageDownloading
	StageTranscoding
	StageTranscribing
	StageSummarizing
	StageNotifying
	StageDone
	StageFailed
)

// String returns a human-readable representation of the stage
func (s Stage) String() string {
	switch s {
	case StageAuthPending:
		return "auth"
	case StageDownloading:
		return "download"
	case StageTranscoding:
		return "transcode"
	case StageTranscribing:
		return "transcribe"
	case StageSummarizing:
		return "summarize"
	case StageNotifying:
		return "notify"
	case StageDone:
		return "done"
	case StageFailed:
		return "failed"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

// Terminal reports whether the run ends in this stage
func (s Stage) Terminal() bool {
	return s == StageDone || s == StageFailed
}

// Next returns the stage that follows s on success.
// Terminal stages return themselves.
func (s Stage) Next() Stage {
	if s.Terminal() || s < StageAuthPending {
		return s
	}
	return s + 1
}

// CanTransition reports whether the pipeline may move from s to next
func (s Stage) CanTransition(next Stage) bool {
	if s.Terminal() {
		return false
	}
	return next == StageFailed || next == s.Next()
}

// Report describes the outcome of one pipeline run
type Report struct {
	RunID     string
	Stage     Stage
	Recording *Recording
	Summary   string
	StartedAt time.Time
	Durations map[Stage]time.Duration

	// Err is the failure that moved the run to StageFailed
	Err error
	// NotifyErr is set when the mail could not be delivered, even if the run is Done
	NotifyErr error
}

func newReport(runID string) *Report {
	return &Report{
		RunID:     runID,
		Stage:     StageAuthPending,
		StartedAt: time.Now(),
		Durations: make(map[Stage]time.Duration),
	}
}

// Failed reports whether the run ended in StageFailed
func (r *Report) Failed() bool {
	return r.Stage == StageFailed
}

// advance moves the report to next, refusing out-of-order transitions
func (r *Report) advance(next Stage) error {
	if r.Stage == next && next == StageAuthPending {
		return nil
	}
	if !r.Stage.CanTransition(next) {
		return fmt.Errorf("invalid stage transition %s -> %s", r.Stage, next)
	}
	r.Stage = next
	return nil
}

// fail moves the report to StageFailed with err attributed to stage
func (r *Report) fail(stage Stage, err error) {
	r.Err = &StageError{Stage: stage, Err: err}
	r.Stage = StageFailed
}
