package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/MimeLyc/subtitle-bot/internal/jobs"
	"github.com/MimeLyc/subtitle-bot/pkg/log"
)

const (
	msgProcessing      = "Processing your media..."
	msgSetLanguageHelp = "Please specify a language name. Example: /setlanguage Spanish"
	msgLanguageLocked  = "You've reached the daily limit. You cannot change the language right now."
	msgLanguageSet     = "Language set to %s."
	msgAlreadyQueued   = "This file is already being processed."
)

// Quota is the admission side of users.QuotaManager.
type Quota interface {
	Check(userID int64) bool
	CheckAndConsume(userID int64) bool
	Refund(userID int64)
	Limit() int
}

// Languages is users.LanguageStore.
type Languages interface {
	Get(userID int64) string
	Set(userID int64, raw string) (string, error)
	Default() string
}

type JobQueue interface {
	Enqueue(req jobs.EnqueueRequest) (*jobs.Job, bool)
}

type QuotaMetrics interface {
	ObserveQuotaDecision(allowed bool)
}

type HandlerConfig struct {
	Source         string // job source label, e.g. "telegram"
	MaxUploadBytes int64
	// ChargeRejected keeps the quota charge for uploads rejected at
	// admission (no attachment, too large).
	ChargeRejected bool
}

type HandlerOption func(*Handler)

func WithQuotaMetrics(m QuotaMetrics) HandlerOption {
	return func(h *Handler) {
		h.metrics = m
	}
}

// Handler turns inbound chat messages into replies and queued jobs.
type Handler struct {
	cfg       HandlerConfig
	quota     Quota
	languages Languages
	queue     JobQueue
	notifier  Notifier
	metrics   QuotaMetrics
}

func NewHandler(
	cfg HandlerConfig,
	quota Quota,
	languages Languages,
	queue JobQueue,
	notifier Notifier,
	opts ...HandlerOption,
) *Handler {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if cfg.Source == "" {
		cfg.Source = "telegram"
	}
	h := &Handler{
		cfg:       cfg,
		quota:     quota,
		languages: languages,
		queue:     queue,
		notifier:  notifier,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// HandleStart answers /start and /help.
func (h *Handler) HandleStart(ctx context.Context, msg Message) {
	log.Info("User %d sent /start", msg.UserID)
	if !h.quota.Check(msg.UserID) {
		h.reply(ctx, msg, h.dailyLimitMessage())
		return
	}
	h.reply(ctx, msg, h.usageMessage())
}

// HandleSetLanguage answers /setlanguage with the joined arguments.
func (h *Handler) HandleSetLanguage(ctx context.Context, msg Message, args []string) {
	log.Info("User %d is trying to set language", msg.UserID)
	if !h.quota.Check(msg.UserID) {
		h.reply(ctx, msg, msgLanguageLocked)
		return
	}

	name, err := h.languages.Set(msg.UserID, strings.Join(args, " "))
	if err != nil {
		h.reply(ctx, msg, msgSetLanguageHelp)
		return
	}
	log.Info("User %d set language to %s", msg.UserID, name)
	h.reply(ctx, msg, fmt.Sprintf(msgLanguageSet, name))
}

// HandleMedia admits an upload: quota first, then attachment presence, then
// declared size. Admitted uploads are queued. Rejections are replied to and
// returned as *JobError.
func (h *Handler) HandleMedia(ctx context.Context, msg Message) (*jobs.Job, error) {
	allowed := h.quota.CheckAndConsume(msg.UserID)
	if h.metrics != nil {
		h.metrics.ObserveQuotaDecision(allowed)
	}
	if !allowed {
		log.Info("User %d is over the daily limit", msg.UserID)
		err := NewError(ErrQuotaExceeded, "daily upload limit reached").
			WithContext("user", msg.UserID).
			WithUserMessage(h.dailyLimitMessage())
		h.reply(ctx, msg, err.UserMessage())
		return nil, err
	}

	if msg.Attachment == nil || msg.Attachment.FileID == "" {
		return nil, h.reject(ctx, msg, NewError(ErrUnsupportedAttachment, "message has no media attachment"))
	}

	att := *msg.Attachment
	if att.Size > h.cfg.MaxUploadBytes {
		err := NewError(ErrOversizedMedia, "declared size exceeds limit").
			WithContext("size", att.Size).
			WithUserMessage(OversizeMessage(att.Size, h.cfg.MaxUploadBytes))
		return nil, h.reject(ctx, msg, err)
	}

	job, created := h.queue.Enqueue(jobs.EnqueueRequest{
		Source:    h.cfg.Source,
		DedupeKey: fmt.Sprintf("%d:%d", msg.ChatID, msg.MessageID),
		Payload: jobs.Payload{
			UserID:    msg.UserID,
			ChatID:    msg.ChatID,
			MessageID: msg.MessageID,
			FileID:    att.FileID,
			FileName:  att.FileName,
			MimeType:  att.MimeType,
			Kind:      string(att.Kind),
			Size:      att.Size,
		},
	})
	if !created {
		// redelivered message: it was charged when first admitted
		h.quota.Refund(msg.UserID)
		h.reply(ctx, msg, msgAlreadyQueued)
		return job, nil
	}

	log.Info("Queued job %s for user %d (%s, %s)", job.ID, msg.UserID, att.Kind, att.FileName)
	h.reply(ctx, msg, msgProcessing)
	return job, nil
}

func (h *Handler) reject(ctx context.Context, msg Message, err *JobError) error {
	log.Info("Rejected upload from user %d: %v", msg.UserID, err)
	if !h.cfg.ChargeRejected {
		h.quota.Refund(msg.UserID)
	}
	h.reply(ctx, msg, err.UserMessage())
	return err
}

func (h *Handler) reply(ctx context.Context, msg Message, text string) {
	if h.notifier != nil {
		h.notifier.Notify(ctx, msg.ChatID, text)
	}
}

func (h *Handler) dailyLimitMessage() string {
	return fmt.Sprintf("You've reached the daily limit of %d uploads. Please try again tomorrow.", h.quota.Limit())
}

func (h *Handler) usageMessage() string {
	return fmt.Sprintf("Send me a video or audio file, and I'll generate subtitles for it. Default language is %s. "+
		"You can change the language by sending /setlanguage <language_name> (e.g., /setlanguage Spanish).",
		h.languages.Default())
}
