package telegram

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"

	"github.com/MimeLyc/subtitle-bot/pkg/log"
)

// API is the subset of tgbotapi.BotAPI the transport uses.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetFileDirectURL(fileID string) (string, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

type Config struct {
	Token       string
	PollTimeout int // seconds
	// MaxDownloadBytes stops a download one byte past the limit so the
	// caller can tell it was too large. Zero means unlimited.
	MaxDownloadBytes int64
}

type Option func(*Bot)

// WithHTTPClient sets the client used for file downloads.
func WithHTTPClient(c *http.Client) Option {
	return func(b *Bot) {
		b.httpClient = c
	}
}

// Bot sends and receives files and text through the Telegram Bot API.
type Bot struct {
	api        API
	cfg        Config
	httpClient *http.Client
}

// Connect logs in with the token and returns a ready Bot.
func Connect(cfg Config, opts ...Option) (*Bot, error) {
	if cfg.Token == "" {
		return nil, errors.New("telegram bot token is required")
	}
	client := &http.Client{Timeout: 5 * time.Minute}
	api, err := tgbotapi.NewBotAPIWithClient(cfg.Token, tgbotapi.APIEndpoint, client)
	if err != nil {
		return nil, errors.Wrap(err, "unable to connect to telegram")
	}
	log.Info("Authorized on telegram as @%s", api.Self.UserName)
	return New(api, cfg, append([]Option{WithHTTPClient(client)}, opts...)...), nil
}

func New(api API, cfg Config, opts ...Option) *Bot {
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = 60
	}
	b := &Bot{
		api:        api,
		cfg:        cfg,
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// SendText sends a plain text message.
func (b *Bot) SendText(_ context.Context, chatID int64, text string) error {
	if _, err := b.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		return errors.Wrapf(err, "unable to send message to chat %d", chatID)
	}
	return nil
}

// SendDocument uploads a local file as a document.
func (b *Bot) SendDocument(_ context.Context, chatID int64, path string) error {
	if _, err := os.Stat(path); err != nil {
		return errors.Wrap(err, "document not readable")
	}
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FilePath(path))
	if _, err := b.api.Send(doc); err != nil {
		return errors.Wrapf(err, "unable to send document %s", filepath.Base(path))
	}
	return nil
}

// SendVideo uploads a local file as a playable video.
func (b *Bot) SendVideo(_ context.Context, chatID int64, path string) error {
	if _, err := os.Stat(path); err != nil {
		return errors.Wrap(err, "video not readable")
	}
	video := tgbotapi.NewVideo(chatID, tgbotapi.FilePath(path))
	video.SupportsStreaming = true
	if _, err := b.api.Send(video); err != nil {
		return errors.Wrapf(err, "unable to send video %s", filepath.Base(path))
	}
	return nil
}

// Download fetches a file by id into dest and returns the bytes written.
func (b *Bot) Download(ctx context.Context, fileID, dest string) (int64, error) {
	url, err := b.api.GetFileDirectURL(fileID)
	if err != nil {
		return 0, errors.Wrap(err, "unable to resolve file url")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, errors.Wrap(err, "unable to build download request")
	}
	resp, err := b.httpClient.Do(req)
	if err != nil {
		return 0, errors.Wrap(err, "download request failed")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("download failed with status %d", resp.StatusCode)
	}

	out, err := os.Create(dest)
	if err != nil {
		return 0, errors.Wrap(err, "unable to create download file")
	}
	defer out.Close()

	var body io.Reader = resp.Body
	if b.cfg.MaxDownloadBytes > 0 {
		body = io.LimitReader(resp.Body, b.cfg.MaxDownloadBytes+1)
	}
	n, err := io.Copy(out, body)
	if err != nil {
		return n, errors.Wrap(err, "unable to write download")
	}
	return n, nil
}
