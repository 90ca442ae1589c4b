package internal

import (
	"fmt"
	"strings"
	"time"
)

// Recording is a meeting video stored in the remote folder
type Recording struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	MimeType    string    `json:"mime_type"`
	Size        int64     `json:"size"`
	CreatedTime time.Time `json:"created_time"`
}

// String returns a short human-readable description of the recording
func (r *Recording) String() string {
	return fmt.Sprintf("%s (%s, created %s)", r.Name, formatBytes(r.Size), r.CreatedTime.Format(time.RFC3339))
}

// Segment is a timestamped piece of recognized speech
type Segment struct {
	Start time.Duration `json:"start"`
	End   time.Duration `json:"end"`
	Text  string        `json:"text"`
}

// Transcript is the raw speech recognition result.
// Segments may be empty when the backend only returns aggregate text.
type Transcript struct {
	Language string    `json:"language,omitempty"`
	Text     string    `json:"text"`
	Segments []Segment `json:"segments,omitempty"`
}

// Flatten returns the transcript as a single string: segment texts joined by
// single spaces when segments exist, the aggregate text otherwise.
func (t *Transcript) Flatten() string {
	if len(t.Segments) == 0 {
		return t.Text
	}

	texts := make([]string, len(t.Segments))
	for i, seg := range t.Segments {
		texts[i] = seg.Text
	}
	return strings.Join(texts, " ")
}

// Notification is a single outgoing message
type Notification struct {
	To      string
	Subject string
	Body    string
}

// SummarySections lists the headings the summary instruction asks the model for
var SummarySections = []string{
	"Agenda",
	"Tasks Completed",
	"Tasks In Progress",
	"Future Action Items",
	"Key Decisions Made",
	"Participants Mentioned",
	"Overall Meeting Intent",
}

// formatBytes renders a byte count using binary units
func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
