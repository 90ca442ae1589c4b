package internal

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"
)

// CommandRunner executes external commands
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// DefaultCommandRunner implements CommandRunner
type DefaultCommandRunner struct{}

func (r *DefaultCommandRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	return cmd.CombinedOutput()
}

// Config holds application settings
type Config struct {
	// Remote folder
	CredentialsFile string
	FolderID        string
	MimeType        string

	// Artifact paths, overwritten on every run
	VideoPath       string
	AudioPath       string
	TranscriptPath  string
	SummaryPath     string
	SummaryDocxPath string

	// Speech to text
	TranscribeBackend string
	WhisperBinary     string
	WhisperModel      string
	WhisperThreads    int
	Language          string
	WhisperTimeout    time.Duration

	// Summaries
	SummaryBackend string
	TLDRModel      string
	GeminiModel    string
	ChunkSize      int
	MinTokens      int
	MaxTokens      int
	SummaryTimeout time.Duration
	Prompt         string

	// Mail
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	MailFrom     string
	MailTo       string
	MailSubject  string

	// Failure policy
	StrictTranscode bool
	StrictNotify    bool

	OpenAIAPIKey string
	GeminiAPIKey string

	LogLevel  string
	LogFormat string
	Verbose   bool
	Quiet     bool

	// Fixed XDG paths (not configurable)
	ConfigDir string
	DataDir   string
	CacheDir  string
	TempDir   string
}

//go:embed config.toml prompt.txt
var defaultFS embed.FS

// WhisperLimit is the maximum file size accepted by OpenAI's Whisper API (25 MiB)
const WhisperLimit int64 = 25 << 20

const (
	BackendWhisperCPP = "whisper-cpp"
	BackendOpenAI     = "openai"
	BackendGemini     = "gemini"
)

// ensureDefaultFile checks if a file exists in the specified directory
// and creates it from the embedded default if it doesn't exist
func ensureDefaultFile(configDir, embedFilename, description string) error {
	filePath := filepath.Join(configDir, embedFilename)

	if FileExists(filePath) {
		return nil
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	defaultContent, err := defaultFS.ReadFile(embedFilename)
	if err != nil {
		return fmt.Errorf("reading embedded default %s: %w", description, err)
	}

	if err := os.WriteFile(filePath, defaultContent, 0600); err != nil {
		return fmt.Errorf("writing default %s: %w", description, err)
	}

	fmt.Fprintf(os.Stderr, "Created default %s at %s\n", description, filePath)
	return nil
}

// EnsureDefaultConfig checks if a config file exists in the XDG config directory
// and creates it from the embedded default if it doesn't exist
func EnsureDefaultConfig(configDir string) error {
	return ensureDefaultFile(configDir, "config.toml", "configuration")
}

// EnsureDefaultPrompt checks if a prompt.txt file exists in the XDG config directory
// and creates it from the embedded default if it doesn't exist
func EnsureDefaultPrompt(configDir string) error {
	return ensureDefaultFile(configDir, "prompt.txt", "summary instruction")
}

// DefaultPrompt returns the embedded summary instruction
func DefaultPrompt() string {
	data, err := defaultFS.ReadFile("prompt.txt")
	if err != nil {
		// embedded at build time
		panic(err)
	}
	return string(data)
}

// InitConfig initializes Viper and loads configuration.
// configFile overrides the XDG/working-directory lookup when set.
func InitConfig(configFile string) (*Config, error) {
	configDir := filepath.Join(xdg.ConfigHome, "tldm")
	dataDir := filepath.Join(xdg.DataHome, "tldm")
	cacheDir := filepath.Join(xdg.CacheHome, "tldm")

	v := NewViper(dataDir)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("toml")
		v.AddConfigPath(configDir)
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	config := ConfigFromViper(v)
	config.ConfigDir = configDir
	config.DataDir = dataDir
	config.CacheDir = cacheDir
	config.TempDir = filepath.Join(cacheDir, "temp_chunks")

	return config, nil
}

// NewViper returns a viper instance with defaults and environment bindings.
// Artifact paths default to files inside dataDir.
func NewViper(dataDir string) *viper.Viper {
	v := viper.New()

	v.SetDefault("drive.credentials_file", "service-account.json")
	v.SetDefault("drive.folder_id", "")
	v.SetDefault("drive.mime_type", "video/mp4")

	v.SetDefault("paths.video", filepath.Join(dataDir, "meeting_video.mp4"))
	v.SetDefault("paths.audio", filepath.Join(dataDir, "meeting_audio.mp3"))
	v.SetDefault("paths.transcript", filepath.Join(dataDir, "meeting_transcript.txt"))
	v.SetDefault("paths.summary", filepath.Join(dataDir, "meeting_summary.md"))
	v.SetDefault("paths.summary_docx", "")

	v.SetDefault("transcribe.backend", BackendWhisperCPP)
	v.SetDefault("transcribe.whisper_binary", "whisper-cli")
	v.SetDefault("transcribe.whisper_model", filepath.Join(dataDir, "models", "ggml-base.bin"))
	v.SetDefault("transcribe.threads", 4)
	v.SetDefault("transcribe.language", "en")
	v.SetDefault("transcribe.timeout", 30*time.Minute)

	v.SetDefault("summarize.backend", BackendOpenAI)
	v.SetDefault("summarize.model", "gpt-4o-mini")
	v.SetDefault("summarize.gemini_model", "gemini-2.5-flash")
	v.SetDefault("summarize.chunk_size", 1024)
	v.SetDefault("summarize.min_tokens", 40)
	v.SetDefault("summarize.max_tokens", 150)
	v.SetDefault("summarize.timeout", 2*time.Minute)
	v.SetDefault("prompt", "") // if empty will use the default instruction

	v.SetDefault("smtp.host", "smtp.gmail.com")
	v.SetDefault("smtp.port", 587)
	v.SetDefault("smtp.username", "")
	v.SetDefault("smtp.password", "")
	v.SetDefault("mail.from", "")
	v.SetDefault("mail.to", "")
	v.SetDefault("mail.subject", "Meeting Summary")

	v.SetDefault("transcode.strict", true)
	v.SetDefault("notify.strict", false)

	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "console")
	v.SetDefault("verbose", false)
	v.SetDefault("quiet", false)

	// TLDM_SMTP_PASSWORD, TLDM_DRIVE_FOLDER_ID, ...
	v.SetEnvPrefix("TLDM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	_ = v.BindEnv("openai_api_key", "OPENAI_API_KEY")
	_ = v.BindEnv("gemini_api_key", "GEMINI_API_KEY", "GOOGLE_API_KEY")

	return v
}

// ConfigFromViper builds a Config from the resolved viper settings
func ConfigFromViper(v *viper.Viper) *Config {
	return &Config{
		CredentialsFile: v.GetString("drive.credentials_file"),
		FolderID:        v.GetString("drive.folder_id"),
		MimeType:        v.GetString("drive.mime_type"),

		VideoPath:       v.GetString("paths.video"),
		AudioPath:       v.GetString("paths.audio"),
		TranscriptPath:  v.GetString("paths.transcript"),
		SummaryPath:     v.GetString("paths.summary"),
		SummaryDocxPath: v.GetString("paths.summary_docx"),

		TranscribeBackend: v.GetString("transcribe.backend"),
		WhisperBinary:     v.GetString("transcribe.whisper_binary"),
		WhisperModel:      v.GetString("transcribe.whisper_model"),
		WhisperThreads:    v.GetInt("transcribe.threads"),
		Language:          v.GetString("transcribe.language"),
		WhisperTimeout:    v.GetDuration("transcribe.timeout"),

		SummaryBackend: v.GetString("summarize.backend"),
		TLDRModel:      v.GetString("summarize.model"),
		GeminiModel:    v.GetString("summarize.gemini_model"),
		ChunkSize:      v.GetInt("summarize.chunk_size"),
		MinTokens:      v.GetInt("summarize.min_tokens"),
		MaxTokens:      v.GetInt("summarize.max_tokens"),
		SummaryTimeout: v.GetDuration("summarize.timeout"),
		Prompt:         v.GetString("prompt"),

		SMTPHost:     v.GetString("smtp.host"),
		SMTPPort:     v.GetInt("smtp.port"),
		SMTPUsername: v.GetString("smtp.username"),
		SMTPPassword: v.GetString("smtp.password"),
		MailFrom:     v.GetString("mail.from"),
		MailTo:       v.GetString("mail.to"),
		MailSubject:  v.GetString("mail.subject"),

		StrictTranscode: v.GetBool("transcode.strict"),
		StrictNotify:    v.GetBool("notify.strict"),

		OpenAIAPIKey: v.GetString("openai_api_key"),
		GeminiAPIKey: v.GetString("gemini_api_key"),

		LogLevel:  v.GetString("log_level"),
		LogFormat: v.GetString("log_format"),
		Verbose:   v.GetBool("verbose"),
		Quiet:     v.GetBool("quiet"),
	}
}

// Validate checks the settings a full pipeline run depends on
func (c *Config) Validate() error {
	var problems []string

	if c.FolderID == "" {
		problems = append(problems, "drive.folder_id is required")
	}
	if c.ChunkSize <= 0 {
		problems = append(problems, "summarize.chunk_size must be positive")
	}
	if c.MinTokens < 0 || c.MaxTokens <= 0 || c.MinTokens > c.MaxTokens {
		problems = append(problems, fmt.Sprintf("summarize token bounds %d..%d are invalid", c.MinTokens, c.MaxTokens))
	}
	switch c.TranscribeBackend {
	case BackendWhisperCPP, BackendOpenAI:
	default:
		problems = append(problems, fmt.Sprintf("unknown transcribe.backend %q", c.TranscribeBackend))
	}
	switch c.SummaryBackend {
	case BackendOpenAI, BackendGemini:
	default:
		problems = append(problems, fmt.Sprintf("unknown summarize.backend %q", c.SummaryBackend))
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// ValidateMail checks the settings needed to send the summary
func (c *Config) ValidateMail() error {
	var problems []string

	if c.MailTo == "" {
		problems = append(problems, "mail.to is required")
	}
	if c.SMTPHost == "" {
		problems = append(problems, "smtp.host is required")
	}
	if c.SMTPPort <= 0 {
		problems = append(problems, "smtp.port must be positive")
	}
	if c.MailFrom == "" && c.SMTPUsername == "" {
		problems = append(problems, "mail.from or smtp.username is required")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid mail configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}
