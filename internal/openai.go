package internal

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
)

// ChatRequest is a single bounded, deterministic chat completion
type ChatRequest struct {
	Model     string
	System    string
	Prompt    string
	MaxTokens int
}

// OpenAIClientInterface defines the interface for OpenAI client operations
type OpenAIClientInterface interface {
	CreateTranscription(ctx context.Context, file *os.File, language string) (*Transcript, error)
	CreateChatCompletion(ctx context.Context, req ChatRequest) (string, error)
}

// OpenAIClient wraps the official OpenAI Go SDK
type OpenAIClient struct {
	client *openai.Client
}

// NewOpenAIClient creates a new OpenAI client.
// Extra options are applied after the API key, e.g. option.WithBaseURL.
func NewOpenAIClient(apiKey string, opts ...option.RequestOption) *OpenAIClient {
	client := openai.NewClient(append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)...)
	return &OpenAIClient{client: &client}
}

// verboseTranscription is the verbose_json body; the SDK type only carries Text
type verboseTranscription struct {
	Language string `json:"language"`
	Text     string `json:"text"`
	Segments []struct {
		Start float64 `json:"start"`
		End   float64 `json:"end"`
		Text  string  `json:"text"`
	} `json:"segments"`
}

// CreateTranscription requests segment timestamps from Whisper
func (c *OpenAIClient) CreateTranscription(ctx context.Context, file *os.File, language string) (*Transcript, error) {
	params := openai.AudioTranscriptionNewParams{
		File:                   file,
		Model:                  openai.AudioModelWhisper1,
		ResponseFormat:         openai.AudioResponseFormatVerboseJSON,
		TimestampGranularities: []string{"segment"},
	}
	if language != "" {
		params.Language = openai.String(language)
	}

	resp, err := c.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return nil, err
	}

	var verbose verboseTranscription
	if err := json.Unmarshal([]byte(resp.RawJSON()), &verbose); err != nil {
		return nil, fmt.Errorf("decoding verbose transcription: %w", err)
	}
	if verbose.Text == "" {
		verbose.Text = resp.Text
	}

	transcript := &Transcript{Language: verbose.Language, Text: verbose.Text}
	for _, seg := range verbose.Segments {
		transcript.Segments = append(transcript.Segments, Segment{
			Start: secondsToDuration(seg.Start),
			End:   secondsToDuration(seg.End),
			Text:  seg.Text,
		})
	}
	return transcript, nil
}

// CreateChatCompletion runs a temperature 0 completion capped at req.MaxTokens
func (c *OpenAIClient) CreateChatCompletion(ctx context.Context, req ChatRequest) (string, error) {
	var oaiModel openai.ChatModel
	switch req.Model {
	case "gpt-4o":
		oaiModel = openai.ChatModelGPT4o
	case "gpt-4o-mini":
		oaiModel = openai.ChatModelGPT4oMini
	case "gpt-4.1-mini":
		oaiModel = openai.ChatModelGPT4_1Mini
	case "gpt-4.1-nano":
		oaiModel = openai.ChatModelGPT4_1Nano
	default:
		return "", fmt.Errorf("unsupported model: %s", req.Model)
	}

	messages := []openai.ChatCompletionMessageParamUnion{}
	if req.System != "" {
		messages = append(messages, openai.SystemMessage(req.System))
	}
	messages = append(messages, openai.UserMessage(req.Prompt))

	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:               oaiModel,
		Messages:            messages,
		MaxCompletionTokens: openai.Int(int64(req.MaxTokens)),
		Temperature:         openai.Float(0),
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response choices from OpenAI")
	}
	return resp.Choices[0].Message.Content, nil
}

// AI handles OpenAI API interactions for transcription and summarization
type AI struct {
	client       OpenAIClientInterface
	audio        *Audio
	model        string
	language     string
	whisperLimit int64
	apiKey       string
	clientOnce   sync.Once
}

// NewAI creates a new AI processor
func NewAI(client OpenAIClientInterface, audio *Audio, model, language string, whisperLimit int64) *AI {
	return &AI{
		client:       client,
		audio:        audio,
		model:        model,
		language:     language,
		whisperLimit: whisperLimit,
	}
}

// NewAIWithKey creates a new AI processor with lazy client initialization
func NewAIWithKey(apiKey string, audio *Audio, model, language string, whisperLimit int64) *AI {
	return &AI{
		audio:        audio,
		model:        model,
		language:     language,
		whisperLimit: whisperLimit,
		apiKey:       apiKey,
	}
}

func (ai *AI) Name() string {
	return BackendOpenAI
}

// ensureClient initializes the OpenAI client if needed
func (ai *AI) ensureClient() error {
	if ai.client != nil {
		return nil
	}

	if ai.apiKey == "" {
		return ValidateOpenAIAPIKey("")
	}

	ai.clientOnce.Do(func() {
		ai.client = NewOpenAIClient(ai.apiKey)
	})

	return nil
}

// Recognize transcribes audio using OpenAI's Whisper API.
// Files above the upload limit are split and segment times shifted per chunk.
func (ai *AI) Recognize(ctx context.Context, audioFile string) (*Transcript, error) {
	if err := ai.ensureClient(); err != nil {
		return nil, err
	}

	info, err := os.Stat(audioFile)
	if err != nil {
		return nil, fmt.Errorf("getting audio file info: %w", err)
	}

	numChunks := int(math.Ceil(float64(info.Size()) / float64(ai.whisperLimit)))
	if numChunks <= 1 {
		return ai.transcribeFile(ctx, audioFile)
	}

	chunks, chunkSeconds, err := ai.audio.Split(ctx, audioFile, numChunks)
	if err != nil {
		return nil, fmt.Errorf("splitting audio: %w", err)
	}
	defer cleanupFiles(chunks...)

	return ai.processAudioChunks(ctx, chunks, time.Duration(chunkSeconds)*time.Second)
}

// processAudioChunks transcribes audio chunks sequentially
func (ai *AI) processAudioChunks(ctx context.Context, chunks []string, chunkLength time.Duration) (*Transcript, error) {
	merged := &Transcript{}
	texts := make([]string, 0, len(chunks))

	for i, chunkPath := range chunks {
		part, err := ai.transcribeFile(ctx, chunkPath)
		if err != nil {
			return nil, fmt.Errorf("transcribing chunk %d/%d: %w", i+1, len(chunks), err)
		}

		offset := time.Duration(i) * chunkLength
		for _, seg := range part.Segments {
			seg.Start += offset
			seg.End += offset
			merged.Segments = append(merged.Segments, seg)
		}
		texts = append(texts, part.Text)
		if merged.Language == "" {
			merged.Language = part.Language
		}
	}

	merged.Text = strings.Join(texts, " ")
	return merged, nil
}

func (ai *AI) transcribeFile(ctx context.Context, path string) (*Transcript, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer file.Close()

	return ai.client.CreateTranscription(ctx, file, ai.language)
}

// Summarize condenses one chunk of text within the given token bounds
func (ai *AI) Summarize(ctx context.Context, text string, limits SummaryLimits) (string, error) {
	if err := ai.ensureClient(); err != nil {
		return "", err
	}

	content, err := ai.client.CreateChatCompletion(ctx, ChatRequest{
		Model:     ai.model,
		System:    limits.Instruction(),
		Prompt:    text,
		MaxTokens: limits.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("creating chat completion: %w", err)
	}

	return content, nil
}

// ValidateOpenAIAPIKey checks if the OpenAI API key is set and returns a standardized error if not
func ValidateOpenAIAPIKey(apiKey string) error {
	if apiKey == "" {
		return fmt.Errorf("OpenAI API key is required - set it in config.toml or OPENAI_API_KEY environment variable")
	}
	return nil
}

// ValidateModel checks if the model is supported
func ValidateModel(model string) error {
	supportedModels := []string{"gpt-4o", "gpt-4o-mini", "gpt-4.1-mini", "gpt-4.1-nano"}
	if slices.Contains(supportedModels, model) {
		return nil
	}
	return fmt.Errorf("unsupported model: %s (supported: %s)", model, strings.Join(supportedModels, ", "))
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
