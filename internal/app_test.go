package internal

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wneessen/go-mail"
)

type pipelineFixture struct {
	config     *Config
	store      *fakeStore
	runner     *fakeRunner
	recognizer *fakeRecognizer
	model      *fakeSummaryModel
	sender     *fakeMailSender
}

func newPipelineFixture(t *testing.T) *pipelineFixture {
	t.Helper()

	t1 := time.Date(2024, 5, 6, 9, 0, 0, 0, time.UTC)
	f := &pipelineFixture{
		config: testConfig(t),
		store: &fakeStore{
			recordings: []Recording{
				{ID: "vid-1", Name: "standup.mp4", MimeType: "video/mp4", Size: 16, CreatedTime: t1},
			},
			content: map[string][]byte{"vid-1": []byte("fake mp4 payload")},
		},
		recognizer: &fakeRecognizer{transcript: &Transcript{
			Text: "Good morning. We shipped the release.",
			Segments: []Segment{
				{Start: 0, End: 2 * time.Second, Text: "Good morning."},
				{Start: 2 * time.Second, End: 5 * time.Second, Text: "We shipped the release."},
			},
		}},
		model:  &fakeSummaryModel{reply: sectionedSummary},
		sender: &fakeMailSender{},
	}

	// ffmpeg writes the output file named before the trailing -y
	f.runner = &fakeRunner{
		run: func(name string, args []string) ([]byte, error) {
			if name == "ffmpeg" {
				return nil, os.WriteFile(args[len(args)-2], []byte("mp3 payload"), 0644)
			}
			return []byte("5.0"), nil
		},
	}
	return f
}

func (f *pipelineFixture) app(extra ...AppOption) *App {
	opts := []AppOption{
		WithStore(f.store),
		WithCommandRunner(f.runner),
		WithRecognizer(f.recognizer),
		WithSummaryModel(f.model),
		WithMailSender(f.sender),
		WithUI(NewWriterUIManager(io.Discard, false, true)),
		WithLogger(zerolog.Nop()),
	}
	return NewApp(f.config, append(opts, extra...)...)
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestRunEndToEnd(t *testing.T) {
	f := newPipelineFixture(t)

	report := f.app().Run(context.Background())

	require.NoError(t, report.Err)
	assert.Equal(t, StageDone, report.Stage)
	assert.NotEmpty(t, report.RunID)
	require.NotNil(t, report.Recording)
	assert.Equal(t, "standup.mp4", report.Recording.Name)

	assert.Equal(t, "fake mp4 payload", readFile(t, f.config.VideoPath))
	assert.Equal(t, "mp3 payload", readFile(t, f.config.AudioPath))

	transcript := readFile(t, f.config.TranscriptPath)
	assert.Equal(t, "Good morning. We shipped the release.", transcript)

	summary := readFile(t, f.config.SummaryPath)
	for _, section := range SummarySections {
		assert.Contains(t, summary, section)
	}
	assert.Equal(t, report.Summary, summary)

	wantChunks := (utf8.RuneCountInString(DefaultPrompt()+transcript) + 1023) / 1024
	assert.Len(t, f.model.inputs, wantChunks)

	require.Len(t, f.sender.sent, 1)
	msg := f.sender.sent[0]
	assert.Equal(t, []string{"Meeting Summary"}, msg.GetGenHeader(mail.HeaderSubject))
	recipients, err := msg.GetRecipients()
	require.NoError(t, err)
	assert.Equal(t, []string{"team@example.com"}, recipients)

	ffmpegCalls := f.runner.callsTo("ffmpeg")
	require.Len(t, ffmpegCalls, 1)
	assert.Equal(t, TranscodeArgs(f.config.VideoPath, f.config.AudioPath), ffmpegCalls[0].args)

	for _, stage := range []Stage{StageAuthPending, StageDownloading, StageTranscoding, StageTranscribing, StageSummarizing, StageNotifying} {
		assert.Contains(t, report.Durations, stage)
	}
}

func TestRunTwiceOverwritesArtifacts(t *testing.T) {
	f := newPipelineFixture(t)

	first := f.app().Run(context.Background())
	require.Equal(t, StageDone, first.Stage)

	f.recognizer.transcript = &Transcript{Text: "Second meeting."}
	second := f.app().Run(context.Background())
	require.Equal(t, StageDone, second.Stage)

	assert.NotEqual(t, first.RunID, second.RunID)
	assert.Equal(t, "Second meeting.", readFile(t, f.config.TranscriptPath))
	assert.Len(t, f.sender.sent, 2)
}

func TestRunMailFailureStillDone(t *testing.T) {
	f := newPipelineFixture(t)
	f.sender.err = errors.New("535 authentication failed")

	report := f.app().Run(context.Background())

	assert.Equal(t, StageDone, report.Stage)
	assert.NoError(t, report.Err)

	var deliveryErr *DeliveryError
	require.ErrorAs(t, report.NotifyErr, &deliveryErr)
	assert.Equal(t, "team@example.com", deliveryErr.Recipient)

	assert.NotEmpty(t, readFile(t, f.config.SummaryPath))
	assert.Len(t, f.sender.sent, 1)
}

func TestRunMailFailureStrict(t *testing.T) {
	f := newPipelineFixture(t)
	f.config.StrictNotify = true
	f.sender.err = errors.New("connection refused")

	report := f.app().Run(context.Background())

	require.True(t, report.Failed())
	var stageErr *StageError
	require.ErrorAs(t, report.Err, &stageErr)
	assert.Equal(t, StageNotifying, stageErr.Stage)
	assert.True(t, FileExists(f.config.SummaryPath))
}

func TestRunEmptyFolder(t *testing.T) {
	f := newPipelineFixture(t)
	f.store.recordings = nil

	report := f.app().Run(context.Background())

	require.True(t, report.Failed())
	assert.ErrorIs(t, report.Err, ErrNotFound)

	var stageErr *StageError
	require.ErrorAs(t, report.Err, &stageErr)
	assert.Equal(t, StageDownloading, stageErr.Stage)

	assert.Empty(t, f.store.opened)
	assert.False(t, FileExists(f.config.VideoPath))
	assert.Empty(t, f.runner.calls)
	assert.Empty(t, f.sender.sent)
}

func TestRunTranscodeFailureStrict(t *testing.T) {
	f := newPipelineFixture(t)
	f.runner.run = func(name string, args []string) ([]byte, error) {
		return []byte("moov atom not found"), errors.New("exit status 1")
	}

	report := f.app().Run(context.Background())

	require.True(t, report.Failed())
	var transcodeErr *TranscodeError
	assert.ErrorAs(t, report.Err, &transcodeErr)

	var stageErr *StageError
	require.ErrorAs(t, report.Err, &stageErr)
	assert.Equal(t, StageTranscoding, stageErr.Stage)
	assert.Empty(t, f.recognizer.calls)
}

func TestRunTranscodeFailureLenient(t *testing.T) {
	f := newPipelineFixture(t)
	f.config.StrictTranscode = false
	f.runner.run = func(name string, args []string) ([]byte, error) {
		return nil, errors.New("exit status 1")
	}

	// stale audio from an earlier run
	require.NoError(t, SaveText(f.config.AudioPath, "old mp3"))

	report := f.app().Run(context.Background())

	assert.Equal(t, StageDone, report.Stage)
	assert.Equal(t, []string{f.config.AudioPath}, f.recognizer.calls)
}

func TestRunInferenceFailure(t *testing.T) {
	f := newPipelineFixture(t)
	f.model.err = errors.New("model overloaded")

	report := f.app().Run(context.Background())

	require.True(t, report.Failed())
	var inferenceErr *InferenceError
	require.ErrorAs(t, report.Err, &inferenceErr)
	assert.Equal(t, "summarize", inferenceErr.Stage)
	assert.Empty(t, f.sender.sent)

	// transcript from the earlier stage stays in place
	assert.True(t, FileExists(f.config.TranscriptPath))
	assert.False(t, FileExists(f.config.SummaryPath))
}

func TestRunInvalidConfig(t *testing.T) {
	f := newPipelineFixture(t)
	f.config.FolderID = ""

	report := f.app().Run(context.Background())

	require.True(t, report.Failed())
	var stageErr *StageError
	require.ErrorAs(t, report.Err, &stageErr)
	assert.Equal(t, StageAuthPending, stageErr.Stage)
	assert.Contains(t, report.Err.Error(), "drive.folder_id")
}

func TestRunWithoutMail(t *testing.T) {
	f := newPipelineFixture(t)
	f.config.MailTo = ""

	report := f.app(WithoutMail()).Run(context.Background())

	assert.Equal(t, StageDone, report.Stage)
	assert.Empty(t, f.sender.sent)
	assert.True(t, FileExists(f.config.SummaryPath))
}

func TestRunCancelled(t *testing.T) {
	f := newPipelineFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report := f.app().Run(ctx)

	require.True(t, report.Failed())
	assert.ErrorIs(t, report.Err, context.Canceled)
	assert.Empty(t, f.store.opened)
}

func TestAppLatest(t *testing.T) {
	f := newPipelineFixture(t)
	f.store.recordings = append(f.store.recordings, Recording{
		ID: "vid-2", Name: "retro.mp4", MimeType: "video/mp4", CreatedTime: time.Date(2024, 5, 7, 9, 0, 0, 0, time.UTC),
	})

	rec, err := f.app().Latest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "retro.mp4", rec.Name)
	assert.Empty(t, f.store.opened)
}

func TestAppSummarizeText(t *testing.T) {
	f := newPipelineFixture(t)
	out := f.config.DataDir + "/other_summary.md"

	summary, err := f.app().SummarizeText(context.Background(), "short transcript", out)
	require.NoError(t, err)
	assert.Equal(t, summary, readFile(t, out))
	assert.False(t, FileExists(f.config.SummaryPath))

	_, err = f.app().SummarizeText(context.Background(), "", out)
	assert.Error(t, err)
}

func TestAppTranscribeFile(t *testing.T) {
	f := newPipelineFixture(t)
	require.NoError(t, SaveText(f.config.AudioPath, "mp3"))

	transcript, err := f.app().TranscribeFile(context.Background(), f.config.AudioPath, "")
	require.NoError(t, err)
	assert.Equal(t, "Good morning. We shipped the release.", transcript)
	assert.Equal(t, transcript, readFile(t, f.config.TranscriptPath))
}

func TestAppLastArtifacts(t *testing.T) {
	f := newPipelineFixture(t)
	app := f.app()

	_, err := app.LastSummary()
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "run tldm first"))

	require.Equal(t, StageDone, app.Run(context.Background()).Stage)

	summary, err := app.LastSummary()
	require.NoError(t, err)
	assert.NotEmpty(t, summary)

	transcript, err := app.LastTranscript()
	require.NoError(t, err)
	assert.Equal(t, "Good morning. We shipped the release.", transcript)
}

func TestRunMissingRecipientIsDeliveryFailure(t *testing.T) {
	f := newPipelineFixture(t)
	f.config.MailTo = ""

	report := f.app().Run(context.Background())

	assert.Equal(t, StageDone, report.Stage)
	var deliveryErr *DeliveryError
	require.ErrorAs(t, report.NotifyErr, &deliveryErr)
	assert.Contains(t, deliveryErr.Error(), "mail.to")

	// the recording was still processed
	assert.Len(t, f.store.opened, 1)
	assert.True(t, FileExists(f.config.SummaryPath))
	assert.Empty(t, f.sender.sent)
}

func TestRunMissingRecipientStrict(t *testing.T) {
	f := newPipelineFixture(t)
	f.config.MailTo = ""
	f.config.StrictNotify = true

	report := f.app().Run(context.Background())

	require.True(t, report.Failed())
	var stageErr *StageError
	require.ErrorAs(t, report.Err, &stageErr)
	assert.Equal(t, StageNotifying, stageErr.Stage)
}

func TestConnectStoreDialsOnce(t *testing.T) {
	f := newPipelineFixture(t)
	app := NewApp(f.config,
		WithUI(NewWriterUIManager(io.Discard, false, true)),
		WithLogger(zerolog.Nop()),
	)

	var dials atomic.Int32
	app.dialStore = func(ctx context.Context) (RecordingStore, error) {
		dials.Add(1)
		return f.store, nil
	}

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := app.connectStore(context.Background())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), dials.Load())

	rec, err := app.Latest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "standup.mp4", rec.Name)
}

func TestConnectStoreRetriesAfterDialError(t *testing.T) {
	f := newPipelineFixture(t)
	app := NewApp(f.config, WithLogger(zerolog.Nop()), WithUI(NewWriterUIManager(io.Discard, false, true)))

	calls := 0
	app.dialStore = func(ctx context.Context) (RecordingStore, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("invalid_grant")
		}
		return f.store, nil
	}

	_, err := app.connectStore(context.Background())
	require.Error(t, err)

	store, err := app.connectStore(context.Background())
	require.NoError(t, err)
	assert.Equal(t, f.store, store)
}
