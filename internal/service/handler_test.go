package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type decisionCounter struct {
	allowed, denied int
}

func (d *decisionCounter) ObserveQuotaDecision(allowed bool) {
	if allowed {
		d.allowed++
	} else {
		d.denied++
	}
}

func mediaMessage(userID int64, messageID int, att *Attachment) Message {
	return Message{ChatID: userID, UserID: userID, MessageID: messageID, Attachment: att}
}

func videoAttachment(size int64) *Attachment {
	return &Attachment{FileID: "vid", FileName: "clip.mp4", MimeType: "video/mp4", Size: size, Kind: AttachmentVideo}
}

func TestHandler_AdmitsAndQueues(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	job, err := h.handler.HandleMedia(ctx, mediaMessage(42, 7, videoAttachment(1<<20)))
	require.NoError(t, err)
	require.NotNil(t, job)

	assert.Equal(t, "42:7", job.DedupeKey)
	assert.Equal(t, "telegram", job.Source)
	assert.Equal(t, int64(42), job.Payload.UserID)
	assert.Equal(t, "vid", job.Payload.FileID)
	assert.Equal(t, string(AttachmentVideo), job.Payload.Kind)
	assert.Equal(t, msgProcessing, h.notifier.last())
	assert.Equal(t, 1, h.quota.Usage(42).Used)
}

func TestHandler_SixthUploadRejected(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		_, err := h.handler.HandleMedia(ctx, mediaMessage(77, i, videoAttachment(1024)))
		require.NoError(t, err, "upload %d", i)
	}

	job, err := h.handler.HandleMedia(ctx, mediaMessage(77, 6, videoAttachment(1024)))
	assert.Nil(t, job)
	require.Error(t, err)
	assert.True(t, IsKind(err, ErrQuotaExceeded))

	assert.Equal(t, 5, h.queue.count())
	assert.Equal(t, 5, h.quota.Usage(77).Used)
	assert.Equal(t, "You've reached the daily limit of 5 uploads. Please try again tomorrow.", h.notifier.last())
	assert.Equal(t, 0, h.transcriber.calls())
}

func TestHandler_AllowListedUserIsNeverLimited(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	for i := 1; i <= 8; i++ {
		_, err := h.handler.HandleMedia(ctx, mediaMessage(1, i, videoAttachment(1024)))
		require.NoError(t, err)
	}
	assert.Equal(t, 8, h.queue.count())
	_, tracked := h.store.Get(1)
	assert.False(t, tracked, "allow-listed users have no quota record")
}

func TestHandler_OversizeRejectedBeforeDownload(t *testing.T) {
	h := newHarness(t)

	job, err := h.handler.HandleMedia(context.Background(), mediaMessage(9, 1, videoAttachment(25<<20)))
	assert.Nil(t, job)
	require.True(t, IsKind(err, ErrOversizedMedia))

	assert.Equal(t, 0, h.queue.count())
	assert.Equal(t, 0, h.messenger.downloads)
	assert.Equal(t, 0, h.transcoder.calls())
	assert.Equal(t, 0, h.transcriber.calls())
	assert.Equal(t, "This file is 25 MiB, which is over the 20 MiB limit. Please send a smaller file.", h.notifier.last())
	assert.Equal(t, 1, h.quota.Usage(9).Used, "rejected uploads stay charged by default")
}

func TestHandler_RefundsRejectedWhenNotCharging(t *testing.T) {
	h := newHarness(t)
	handler := NewHandler(HandlerConfig{ChargeRejected: false}, h.quota, h.languages, h.queue, h.notifier)
	ctx := context.Background()

	_, err := handler.HandleMedia(ctx, mediaMessage(9, 1, videoAttachment(25<<20)))
	require.True(t, IsKind(err, ErrOversizedMedia))
	_, err = handler.HandleMedia(ctx, mediaMessage(9, 2, nil))
	require.True(t, IsKind(err, ErrUnsupportedAttachment))

	assert.Equal(t, 0, h.quota.Usage(9).Used)
	assert.Equal(t, ErrUnsupportedAttachment.UserMessage(), h.notifier.last())
}

func TestHandler_DuplicateDeliveryIsRefunded(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	msg := mediaMessage(31, 4, videoAttachment(1024))

	first, err := h.handler.HandleMedia(ctx, msg)
	require.NoError(t, err)
	second, err := h.handler.HandleMedia(ctx, msg)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, h.queue.count())
	assert.Equal(t, 1, h.quota.Usage(31).Used)
	assert.Equal(t, msgAlreadyQueued, h.notifier.last())
}

func TestHandler_QuotaMetrics(t *testing.T) {
	h := newHarness(t)
	counter := &decisionCounter{}
	handler := NewHandler(HandlerConfig{}, h.quota, h.languages, h.queue, h.notifier, WithQuotaMetrics(counter))
	ctx := context.Background()

	for i := 1; i <= 6; i++ {
		_, _ = handler.HandleMedia(ctx, mediaMessage(55, i, videoAttachment(10)))
	}
	assert.Equal(t, 5, counter.allowed)
	assert.Equal(t, 1, counter.denied)
}

func TestHandler_Start(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.handler.HandleStart(ctx, Message{ChatID: 3, UserID: 3})
	assert.Contains(t, h.notifier.last(), "Default language is Hebrew")
	assert.Contains(t, h.notifier.last(), "/setlanguage <language_name>")
	assert.Equal(t, 0, h.quota.Usage(3).Used, "/start does not consume quota")

	for i := 0; i < 5; i++ {
		require.True(t, h.quota.CheckAndConsume(3))
	}
	h.handler.HandleStart(ctx, Message{ChatID: 3, UserID: 3})
	assert.Equal(t, h.handler.dailyLimitMessage(), h.notifier.last())
}

func TestHandler_SetLanguage(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		consumed int
		wantMsg  string
		wantLang string
	}{
		{name: "sets normalized name", args: []string{"brazilian", "PORTUGUESE"}, wantMsg: "Language set to Brazilian Portuguese.", wantLang: "Brazilian Portuguese"},
		{name: "missing argument", args: nil, wantMsg: msgSetLanguageHelp, wantLang: "Hebrew"},
		{name: "blank argument", args: []string{"  "}, wantMsg: msgSetLanguageHelp, wantLang: "Hebrew"},
		{name: "locked at limit", args: []string{"French"}, consumed: 5, wantMsg: msgLanguageLocked, wantLang: "Hebrew"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			for i := 0; i < tt.consumed; i++ {
				h.quota.Consume(8)
			}

			h.handler.HandleSetLanguage(context.Background(), Message{ChatID: 8, UserID: 8}, tt.args)
			assert.Equal(t, tt.wantMsg, h.notifier.last())
			assert.Equal(t, tt.wantLang, h.languages.Get(8))
			assert.Equal(t, tt.consumed, h.quota.Usage(8).Used)
		})
	}
}

func TestHandler_QueuedJobRunsThroughPipeline(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	att := &Attachment{FileID: "a", FileName: "memo.ogg", Kind: AttachmentVoice, Size: 2048}
	job, err := h.handler.HandleMedia(ctx, mediaMessage(64, 1, att))
	require.NoError(t, err)

	require.NoError(t, h.pipeline.Execute(ctx, job))
	require.Len(t, h.messenger.documents, 2)
	assert.Equal(t, "memo_original.srt", h.messenger.documents[0].Name)
	assert.Equal(t, fmt.Sprintf("memo_translated_%s.srt", "Hebrew"), h.messenger.documents[1].Name)
	assert.Equal(t, msgAudioFinished, h.notifier.last())
}
