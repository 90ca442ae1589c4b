package internal

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/wneessen/go-mail"
)

type runnerCall struct {
	name string
	args []string
}

type fakeRunner struct {
	mu     sync.Mutex
	calls  []runnerCall
	output []byte
	err    error
	run    func(name string, args []string) ([]byte, error)
}

func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	f.mu.Lock()
	f.calls = append(f.calls, runnerCall{name: name, args: args})
	f.mu.Unlock()

	if f.run != nil {
		return f.run(name, args)
	}
	return f.output, f.err
}

func (f *fakeRunner) callsTo(name string) []runnerCall {
	var out []runnerCall
	for _, c := range f.calls {
		if c.name == name {
			out = append(out, c)
		}
	}
	return out
}

type fakeStore struct {
	recordings []Recording
	content    map[string][]byte
	listErr    error
	opened     []string
}

func (s *fakeStore) List(ctx context.Context, folderID, mimeType string) ([]Recording, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []Recording
	for _, r := range s.recordings {
		if mimeType == "" || r.MimeType == mimeType {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *fakeStore) Open(ctx context.Context, id string) (io.ReadCloser, error) {
	s.opened = append(s.opened, id)
	data, ok := s.content[id]
	if !ok {
		return nil, fmt.Errorf("file %s not found", id)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

type fakeRecognizer struct {
	transcript *Transcript
	err        error
	calls      []string
}

func (r *fakeRecognizer) Name() string { return "fake-asr" }

func (r *fakeRecognizer) Recognize(ctx context.Context, audioPath string) (*Transcript, error) {
	r.calls = append(r.calls, audioPath)
	if r.err != nil {
		return nil, r.err
	}
	return r.transcript, nil
}

type fakeSummaryModel struct {
	reply  func(text string) string
	err    error
	inputs []string
	limits []SummaryLimits
}

func (m *fakeSummaryModel) Name() string { return "fake-llm" }

func (m *fakeSummaryModel) Summarize(ctx context.Context, text string, limits SummaryLimits) (string, error) {
	m.inputs = append(m.inputs, text)
	m.limits = append(m.limits, limits)
	if m.err != nil {
		return "", m.err
	}
	if m.reply != nil {
		return m.reply(text), nil
	}
	return "summary of " + text, nil
}

type fakeMailSender struct {
	err  error
	sent []*mail.Msg
}

func (s *fakeMailSender) DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error {
	s.sent = append(s.sent, messages...)
	return s.err
}

type recordingBar struct {
	sets         []int
	advances     int
	descriptions []string
	finished     bool
}

func (b *recordingBar) Set(current int)             { b.sets = append(b.sets, current) }
func (b *recordingBar) Advance()                    { b.advances++ }
func (b *recordingBar) Describe(description string) { b.descriptions = append(b.descriptions, description) }
func (b *recordingBar) Finish()                     { b.finished = true }

// sectionedSummary mimics a model that follows the seven-section instruction
func sectionedSummary(string) string {
	var sb strings.Builder
	for i, section := range SummarySections {
		fmt.Fprintf(&sb, "%d. **%s**\n- item\n", i+1, section)
	}
	return sb.String()
}

// testConfig returns defaults with every artifact inside a temp directory
func testConfig(t *testing.T) *Config {
	t.Helper()

	dir := t.TempDir()
	config := ConfigFromViper(NewViper(dir))
	config.ConfigDir = filepath.Join(dir, "config")
	config.DataDir = dir
	config.CacheDir = filepath.Join(dir, "cache")
	config.TempDir = filepath.Join(dir, "cache", "temp_chunks")

	config.FolderID = "meetings-folder"
	config.MimeType = "video/mp4"
	config.MailTo = "team@example.com"
	config.SMTPUsername = "bot@example.com"
	config.SummaryDocxPath = ""
	config.Verbose = false
	config.Quiet = true
	return config
}
