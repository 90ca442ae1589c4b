package internal

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigDefaults(t *testing.T) {
	dataDir := t.TempDir()
	config := ConfigFromViper(NewViper(dataDir))

	assert.Equal(t, "video/mp4", config.MimeType)
	assert.Equal(t, filepath.Join(dataDir, "meeting_video.mp4"), config.VideoPath)
	assert.Equal(t, filepath.Join(dataDir, "meeting_audio.mp3"), config.AudioPath)
	assert.Equal(t, filepath.Join(dataDir, "meeting_transcript.txt"), config.TranscriptPath)
	assert.Equal(t, filepath.Join(dataDir, "meeting_summary.md"), config.SummaryPath)
	assert.Empty(t, config.SummaryDocxPath)

	assert.Equal(t, BackendWhisperCPP, config.TranscribeBackend)
	assert.Equal(t, BackendOpenAI, config.SummaryBackend)
	assert.Equal(t, 1024, config.ChunkSize)
	assert.Equal(t, 40, config.MinTokens)
	assert.Equal(t, 150, config.MaxTokens)
	assert.Equal(t, 30*time.Minute, config.WhisperTimeout)

	assert.Equal(t, "smtp.gmail.com", config.SMTPHost)
	assert.Equal(t, 587, config.SMTPPort)
	assert.Equal(t, "Meeting Summary", config.MailSubject)

	assert.True(t, config.StrictTranscode)
	assert.False(t, config.StrictNotify)
}

func TestConfigEnvOverrides(t *testing.T) {
	t.Setenv("TLDM_DRIVE_FOLDER_ID", "folder-from-env")
	t.Setenv("TLDM_SMTP_PASSWORD", "secret")
	t.Setenv("TLDM_SUMMARIZE_CHUNK_SIZE", "2048")
	t.Setenv("TLDM_NOTIFY_STRICT", "true")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("GEMINI_API_KEY", "gm-test")

	config := ConfigFromViper(NewViper(t.TempDir()))

	assert.Equal(t, "folder-from-env", config.FolderID)
	assert.Equal(t, "secret", config.SMTPPassword)
	assert.Equal(t, 2048, config.ChunkSize)
	assert.True(t, config.StrictNotify)
	assert.Equal(t, "sk-test", config.OpenAIAPIKey)
	assert.Equal(t, "gm-test", config.GeminiAPIKey)
}

func TestInitConfigReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tldm.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[drive]
folder_id = "abc123"

[summarize]
backend = "gemini"
max_tokens = 200

[transcode]
strict = false

[mail]
to = "lead@example.com"
`), 0644))

	config, err := InitConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "abc123", config.FolderID)
	assert.Equal(t, BackendGemini, config.SummaryBackend)
	assert.Equal(t, 200, config.MaxTokens)
	assert.False(t, config.StrictTranscode)
	assert.Equal(t, "lead@example.com", config.MailTo)
	assert.NotEmpty(t, config.DataDir)
	assert.Equal(t, filepath.Join(config.CacheDir, "temp_chunks"), config.TempDir)
}

func TestInitConfigMissingExplicitFile(t *testing.T) {
	_, err := InitConfig(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestEmbeddedDefaultConfigParses(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, EnsureDefaultConfig(dir))

	config, err := InitConfig(filepath.Join(dir, "config.toml"))
	require.NoError(t, err)
	assert.Equal(t, "Meeting Summary", config.MailSubject)
	assert.Equal(t, 1024, config.ChunkSize)

	// existing files are left alone
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte("# mine"), 0600))
	require.NoError(t, EnsureDefaultConfig(dir))
	data, err := os.ReadFile(filepath.Join(dir, "config.toml"))
	require.NoError(t, err)
	assert.Equal(t, "# mine", string(data))
}

func TestConfigValidate(t *testing.T) {
	config := testConfig(t)
	require.NoError(t, config.Validate())
	require.NoError(t, config.ValidateMail())

	config.FolderID = ""
	config.ChunkSize = 0
	config.MinTokens = 200
	config.SummaryBackend = "bart"
	err := config.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "drive.folder_id")
	assert.Contains(t, err.Error(), "chunk_size")
	assert.Contains(t, err.Error(), "token bounds")
	assert.Contains(t, err.Error(), `"bart"`)
}

func TestConfigValidateMail(t *testing.T) {
	config := testConfig(t)
	config.MailTo = ""
	config.SMTPUsername = ""

	err := config.ValidateMail()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mail.to")
	assert.Contains(t, err.Error(), "mail.from")
}
