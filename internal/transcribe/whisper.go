package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/ymiyake/murmur/internal/record"
)

const (
	defaultWhisperEndpoint = "https://api.openai.com/v1/audio/transcriptions"
	defaultWhisperModel    = "whisper-1"
	defaultTimeout         = 60 * time.Second
)

// Whisper talks to an OpenAI-compatible audio transcription endpoint.
type Whisper struct {
	endpoint string
	apiKey   string
	model    string
	language string
	client   *http.Client
}

// WhisperConfig holds Whisper client settings. Endpoint and Model default
// to the OpenAI service; APIKey is required.
type WhisperConfig struct {
	Endpoint string
	APIKey   string
	Model    string
	Language string
	Timeout  time.Duration
}

// NewWhisper builds a Whisper client. A missing API key returns
// ErrNotConfigured so callers can degrade to the disabled transcriber.
func NewWhisper(cfg WhisperConfig) (*Whisper, error) {
	if cfg.APIKey == "" {
		return nil, ErrNotConfigured
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = defaultWhisperEndpoint
	}
	if cfg.Model == "" {
		cfg.Model = defaultWhisperModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Whisper{
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		model:    cfg.Model,
		language: cfg.Language,
		client:   &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// Transcribe uploads the clip as a WAV file and returns the recognized text.
func (w *Whisper) Transcribe(ctx context.Context, clip record.Clip) (Result, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", "audio.wav")
	if err != nil {
		return Result{}, fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(record.EncodeWAV(clip)); err != nil {
		return Result{}, fmt.Errorf("write audio data: %w", err)
	}
	if err := writer.WriteField("model", w.model); err != nil {
		return Result{}, fmt.Errorf("write model field: %w", err)
	}
	// OpenAI rejects "auto"; empty means auto-detect.
	if w.language != "" && w.language != "auto" {
		if err := writer.WriteField("language", w.language); err != nil {
			return Result{}, fmt.Errorf("write language field: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return Result{}, fmt.Errorf("close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.endpoint, &buf)
	if err != nil {
		return Result{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+w.apiKey)

	resp, err := w.client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("transcription API error %d: %s", resp.StatusCode, string(body))
	}

	var apiResp struct {
		Text     string `json:"text"`
		Language string `json:"language"`
	}
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return Result{}, fmt.Errorf("parse response: %w", err)
	}
	return Result{Text: apiResp.Text, Language: apiResp.Language}, nil
}
