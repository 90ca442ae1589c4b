package internal

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// App holds the application state and dependencies
type App struct {
	config        *Config
	cmdRunner     CommandRunner
	store         RecordingStore
	audio         *Audio
	recognizer    SpeechRecognizer
	summaryModel  SummaryModel
	promptManager *PromptManager
	mailSender    MailSender
	ui            UIManager
	logger        zerolog.Logger
	loggerSet     bool
	skipNotify    bool

	storeMu   *sync.Mutex
	dialStore func(ctx context.Context) (RecordingStore, error)
}

// NewApp initializes the application.
// Options run first; anything they leave unset is built from config.
func NewApp(config *Config, options ...AppOption) *App {
	app := &App{config: config, storeMu: &sync.Mutex{}}

	for _, option := range options {
		option(app)
	}

	if app.cmdRunner == nil {
		app.cmdRunner = &DefaultCommandRunner{}
	}
	if app.dialStore == nil {
		app.dialStore = func(ctx context.Context) (RecordingStore, error) {
			return NewDrive(ctx, config.CredentialsFile)
		}
	}
	if app.audio == nil {
		app.audio = NewAudio(app.cmdRunner, config.TempDir)
	}
	if app.recognizer == nil {
		app.recognizer = app.defaultRecognizer()
	}
	if app.summaryModel == nil {
		app.summaryModel = app.defaultSummaryModel()
	}
	if app.promptManager == nil {
		app.promptManager = NewPromptManager(config.ConfigDir, config.Prompt)
	}
	if app.ui == nil {
		app.ui = NewUIManager(config.Verbose, config.Quiet)
	}
	if !app.loggerSet {
		app.logger = LoggerFromConfig(os.Stderr, config)
	}

	return app
}

// AppOption customizes App creation
type AppOption func(*App)

// WithCommandRunner sets the runner used for ffmpeg and whisper.cpp
func WithCommandRunner(runner CommandRunner) AppOption {
	return func(a *App) {
		a.cmdRunner = runner
	}
}

// WithStore sets the recording store instead of connecting to Drive
func WithStore(store RecordingStore) AppOption {
	return func(a *App) {
		a.store = store
	}
}

// WithAudio sets a custom audio processor
func WithAudio(audio *Audio) AppOption {
	return func(a *App) {
		a.audio = audio
	}
}

// WithRecognizer sets the speech-to-text backend
func WithRecognizer(recognizer SpeechRecognizer) AppOption {
	return func(a *App) {
		a.recognizer = recognizer
	}
}

// WithSummaryModel sets the summarization backend
func WithSummaryModel(model SummaryModel) AppOption {
	return func(a *App) {
		a.summaryModel = model
	}
}

// WithMailSender sets the transport used for notifications
func WithMailSender(sender MailSender) AppOption {
	return func(a *App) {
		a.mailSender = sender
	}
}

// WithUI sets the status line and progress bar output
func WithUI(ui UIManager) AppOption {
	return func(a *App) {
		a.ui = ui
	}
}

// WithLogger sets the structured logger
func WithLogger(logger zerolog.Logger) AppOption {
	return func(a *App) {
		a.logger = logger
		a.loggerSet = true
	}
}

// WithoutMail ends the pipeline after the summary is written
func WithoutMail() AppOption {
	return func(a *App) {
		a.skipNotify = true
	}
}

// withoutMail returns a copy of app that does not send the summary
func (app *App) withoutMail() *App {
	clone := *app
	clone.skipNotify = true
	return &clone
}

// SetPromptManager sets a new prompt manager
func (app *App) SetPromptManager(pm *PromptManager) {
	app.promptManager = pm
}

// Config returns the settings the app was built with
func (app *App) Config() *Config {
	return app.config
}

func (app *App) defaultRecognizer() SpeechRecognizer {
	if app.config.TranscribeBackend == BackendOpenAI {
		return NewAIWithKey(app.config.OpenAIAPIKey, app.audio, app.config.TLDRModel, app.config.Language, WhisperLimit)
	}
	return NewWhisperCPP(app.cmdRunner, app.config.WhisperBinary, app.config.WhisperModel,
		app.config.Language, app.config.WhisperThreads, app.config.TempDir)
}

func (app *App) defaultSummaryModel() SummaryModel {
	if app.config.SummaryBackend == BackendGemini {
		return NewGemini(app.config.GeminiAPIKey, app.config.GeminiModel)
	}
	return NewAIWithKey(app.config.OpenAIAPIKey, app.audio, app.config.TLDRModel, app.config.Language, WhisperLimit)
}

// connectStore returns the configured store or authenticates against Drive
func (app *App) connectStore(ctx context.Context) (RecordingStore, error) {
	app.storeMu.Lock()
	defer app.storeMu.Unlock()

	if app.store != nil {
		return app.store, nil
	}

	store, err := app.dialStore(ctx)
	if err != nil {
		return nil, err
	}
	app.store = store
	return store, nil
}

func (app *App) newTranscriber(transcriptPath string, logger zerolog.Logger) *Transcriber {
	return NewTranscriber(app.recognizer, transcriptPath, app.config.WhisperTimeout, logger)
}

func (app *App) newSummarizer(summaryPath, docxPath string, logger zerolog.Logger) *Summarizer {
	return NewSummarizer(app.summaryModel, app.promptManager, SummarizerConfig{
		ChunkSize: app.config.ChunkSize,
		Limits: SummaryLimits{
			MinTokens: app.config.MinTokens,
			MaxTokens: app.config.MaxTokens,
		},
		SummaryPath: summaryPath,
		DocxPath:    docxPath,
		Timeout:     app.config.SummaryTimeout,
	}, logger)
}

func (app *App) mailer() (*Mailer, error) {
	from := app.config.MailFrom
	if from == "" {
		from = app.config.SMTPUsername
	}

	sender := app.mailSender
	if sender == nil {
		client, err := NewSMTPClient(SMTPSettings{
			Host:     app.config.SMTPHost,
			Port:     app.config.SMTPPort,
			Username: app.config.SMTPUsername,
			Password: app.config.SMTPPassword,
			Timeout:  time.Minute,
		})
		if err != nil {
			return nil, err
		}
		sender = client
	}

	return NewMailer(sender, from), nil
}

// pipelineRun carries what one stage hands to the next
type pipelineRun struct {
	app        *App
	report     *Report
	logger     zerolog.Logger
	store      RecordingStore
	transcript string
}

type pipelineStep struct {
	stage Stage
	run   func(r *pipelineRun, ctx context.Context, logger zerolog.Logger) error
}

var pipelineSteps = []pipelineStep{
	{StageAuthPending, (*pipelineRun).authenticate},
	{StageDownloading, (*pipelineRun).download},
	{StageTranscoding, (*pipelineRun).transcode},
	{StageTranscribing, (*pipelineRun).transcribe},
	{StageSummarizing, (*pipelineRun).summarize},
	{StageNotifying, (*pipelineRun).notify},
}

// Run executes every stage in order and returns the report of the run.
// The first unhandled failure moves the run to StageFailed; nothing is retried.
func (app *App) Run(ctx context.Context) *Report {
	report := newReport(uuid.NewString())
	r := &pipelineRun{
		app:    app,
		report: report,
		logger: app.logger.With().Str("run_id", report.RunID).Logger(),
	}

	r.logger.Info().Msg("pipeline started")

	for _, step := range pipelineSteps {
		if err := report.advance(step.stage); err != nil {
			report.fail(report.Stage, err)
			return report
		}

		logger := r.logger.With().Str("stage", step.stage.String()).Logger()
		if err := ctx.Err(); err != nil {
			report.fail(step.stage, err)
			logger.Error().Err(err).Msg("pipeline cancelled")
			return report
		}

		started := time.Now()
		err := step.run(r, ctx, logger)
		report.Durations[step.stage] = time.Since(started)

		if err != nil {
			report.fail(step.stage, err)
			logger.Error().Err(err).Dur("took", report.Durations[step.stage]).Msg("stage failed")
			return report
		}
		logger.Debug().Dur("took", report.Durations[step.stage]).Msg("stage finished")
	}

	if err := report.advance(StageDone); err != nil {
		report.fail(report.Stage, err)
		return report
	}

	r.logger.Info().Dur("took", time.Since(report.StartedAt)).Msg("pipeline finished")
	return report
}

func (r *pipelineRun) authenticate(ctx context.Context, logger zerolog.Logger) error {
	if err := r.app.config.Validate(); err != nil {
		return err
	}

	store, err := r.app.connectStore(ctx)
	if err != nil {
		return fmt.Errorf("authenticating: %w", err)
	}
	r.store = store
	return nil
}

func (r *pipelineRun) download(ctx context.Context, logger zerolog.Logger) error {
	cfg := r.app.config
	ui := r.app.ui

	ui.Printf("Searching for %s files in Drive...\n", cfg.MimeType)
	rec, err := LatestRecording(ctx, r.store, cfg.FolderID, cfg.MimeType)
	if err != nil {
		return err
	}
	r.report.Recording = rec

	ui.Printf("Downloading: %s ...\n", rec.Name)
	bar := ui.NewProgressBar(100, "Downloading")
	written, err := DownloadRecording(ctx, r.store, rec, cfg.VideoPath, bar)
	bar.Finish()
	if err != nil {
		return err
	}

	logger.Info().
		Str("recording", rec.Name).
		Str("id", rec.ID).
		Int64("bytes", written).
		Str("path", cfg.VideoPath).
		Msg("recording downloaded")
	ui.Println("Download complete.")
	return nil
}

func (r *pipelineRun) transcode(ctx context.Context, logger zerolog.Logger) error {
	cfg := r.app.config
	ui := r.app.ui

	ui.Println("Converting to MP3...")
	if err := r.app.audio.Transcode(ctx, cfg.VideoPath, cfg.AudioPath); err != nil {
		if cfg.StrictTranscode {
			return err
		}
		logger.Warn().Err(err).Str("audio", cfg.AudioPath).Msg("transcode failed, continuing with existing audio")
		return nil
	}

	if cfg.Verbose {
		if seconds, err := r.app.audio.Duration(ctx, cfg.AudioPath); err == nil {
			logger.Debug().Float64("seconds", seconds).Msg("audio length")
		}
	}

	ui.Println("MP3 conversion done.")
	return nil
}

func (r *pipelineRun) transcribe(ctx context.Context, logger zerolog.Logger) error {
	cfg := r.app.config

	spinner := r.app.ui.NewSpinner(fmt.Sprintf("Transcribing audio with %s...", r.app.recognizer.Name()))
	transcript, err := r.app.newTranscriber(cfg.TranscriptPath, logger).Transcribe(ctx, cfg.AudioPath)
	spinner.Finish()
	if err != nil {
		return err
	}

	r.transcript = transcript
	logger.Info().Int("chars", utf8.RuneCountInString(transcript)).Str("path", cfg.TranscriptPath).Msg("transcript saved")
	return nil
}

func (r *pipelineRun) summarize(ctx context.Context, logger zerolog.Logger) error {
	cfg := r.app.config
	summarizer := r.app.newSummarizer(cfg.SummaryPath, cfg.SummaryDocxPath, logger)

	chunks, err := summarizer.Chunks(r.transcript, r.report.Recording)
	if err != nil {
		return err
	}
	r.app.ui.Printf("Summarizing %d chunks with %s...\n", len(chunks), r.app.summaryModel.Name())

	bar := r.app.ui.NewProgressBar(len(chunks), "Summarizing")
	summary, err := summarizer.Summarize(ctx, r.transcript, r.report.Recording, bar)
	bar.Finish()
	if err != nil {
		return err
	}

	r.report.Summary = summary
	logger.Info().Int("chunks", len(chunks)).Str("path", cfg.SummaryPath).Msg("summary saved")
	return nil
}

func (r *pipelineRun) notify(ctx context.Context, logger zerolog.Logger) error {
	cfg := r.app.config
	ui := r.app.ui

	if r.app.skipNotify {
		logger.Info().Msg("mail disabled, summary not sent")
		return nil
	}

	ui.Println("Sending email...")
	err := r.app.sendSummary(ctx, r.report.Summary)
	if err == nil {
		logger.Info().Str("to", cfg.MailTo).Msg("summary mailed")
		ui.Println("Email sent successfully.")
		return nil
	}

	r.report.NotifyErr = err
	ui.Printf("Email failed: %v\n", err)
	if cfg.StrictNotify {
		return err
	}
	logger.Error().Err(err).Str("to", cfg.MailTo).Msg("mail delivery failed")
	return nil
}

// sendSummary mails summary to the configured recipient
func (app *App) sendSummary(ctx context.Context, summary string) error {
	if err := app.config.ValidateMail(); err != nil {
		return &DeliveryError{Recipient: app.config.MailTo, Err: err}
	}

	mailer, err := app.mailer()
	if err != nil {
		return &DeliveryError{Recipient: app.config.MailTo, Err: err}
	}

	return mailer.Notify(ctx, Notification{
		To:      app.config.MailTo,
		Subject: app.config.MailSubject,
		Body:    summary,
	})
}

// Latest returns the newest recording without downloading it
func (app *App) Latest(ctx context.Context) (*Recording, error) {
	if app.config.FolderID == "" {
		return nil, fmt.Errorf("drive.folder_id is required")
	}

	store, err := app.connectStore(ctx)
	if err != nil {
		return nil, fmt.Errorf("authenticating: %w", err)
	}
	return LatestRecording(ctx, store, app.config.FolderID, app.config.MimeType)
}

// TranscribeFile transcribes a local audio file and writes the transcript to transcriptPath
func (app *App) TranscribeFile(ctx context.Context, audioPath, transcriptPath string) (string, error) {
	if transcriptPath == "" {
		transcriptPath = app.config.TranscriptPath
	}

	spinner := app.ui.NewSpinner(fmt.Sprintf("Transcribing audio with %s...", app.recognizer.Name()))
	defer spinner.Finish()

	return app.newTranscriber(transcriptPath, app.logger).Transcribe(ctx, audioPath)
}

// SummarizeText summarizes transcript and writes the result to summaryPath
func (app *App) SummarizeText(ctx context.Context, transcript, summaryPath string) (string, error) {
	if transcript == "" {
		return "", fmt.Errorf("transcript is empty")
	}
	if summaryPath == "" {
		summaryPath = app.config.SummaryPath
	}

	summarizer := app.newSummarizer(summaryPath, app.config.SummaryDocxPath, app.logger)
	chunks, err := summarizer.Chunks(transcript, nil)
	if err != nil {
		return "", err
	}

	bar := app.ui.NewProgressBar(len(chunks), "Summarizing")
	defer bar.Finish()

	return summarizer.Summarize(ctx, transcript, nil, bar)
}

// LastSummary reads the summary written by the most recent run
func (app *App) LastSummary() (string, error) {
	return readArtifact(app.config.SummaryPath, "summary")
}

// LastTranscript reads the transcript written by the most recent run
func (app *App) LastTranscript() (string, error) {
	return readArtifact(app.config.TranscriptPath, "transcript")
}

func readArtifact(path, description string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("no %s at %s yet - run tldm first", description, path)
		}
		return "", fmt.Errorf("reading %s: %w", description, err)
	}
	return string(data), nil
}
