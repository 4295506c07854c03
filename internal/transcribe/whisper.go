// Package transcribe turns audio files into SRT transcripts using an
// OpenAI-compatible audio transcription endpoint.
package transcribe

import (
	"context"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	openai "github.com/sashabaranov/go-openai"
)

const DefaultModel = openai.Whisper1

// Config configures the Whisper backend.
type Config struct {
	APIKey  string
	APIURL  string // empty means the public OpenAI endpoint
	Model   string
	Timeout time.Duration
}

// Whisper is a Transcriber backed by the OpenAI audio API.
type Whisper struct {
	client *openai.Client
	model  string
}

// NewWhisper builds a Whisper client. A nil httpClient gets one with cfg.Timeout.
func NewWhisper(cfg Config, httpClient *http.Client) (*Whisper, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("transcription API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.APIURL != "" {
		clientConfig.BaseURL = strings.TrimSuffix(cfg.APIURL, "/")
	}
	clientConfig.HTTPClient = httpClient

	return &Whisper{
		client: openai.NewClientWithConfig(clientConfig),
		model:  cfg.Model,
	}, nil
}

// Transcribe uploads the audio file and returns the transcript as SRT text.
func (w *Whisper) Transcribe(ctx context.Context, audioPath string) (string, error) {
	if _, err := os.Stat(audioPath); err != nil {
		return "", errors.Wrap(err, "unable to open audio for transcription")
	}

	resp, err := w.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    w.model,
		FilePath: audioPath,
		Format:   openai.AudioResponseFormatSRT,
	})
	if err != nil {
		return "", errors.Wrap(err, "unable to create whisper transcription")
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return "", errors.New("whisper returned an empty transcript")
	}
	return text + "\n", nil
}
