package service

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/MimeLyc/subtitle-bot/internal/jobs"
	"github.com/MimeLyc/subtitle-bot/internal/media"
	"github.com/MimeLyc/subtitle-bot/internal/subtitle"
	"github.com/MimeLyc/subtitle-bot/pkg/file"
	"github.com/MimeLyc/subtitle-bot/pkg/log"
)

const DefaultMaxUploadBytes int64 = 20 << 20

const (
	msgDownloading   = "Downloading your media..."
	msgTranscribing  = "Extracting audio and transcribing..."
	msgSendingOrig   = "Uploading the original transcript..."
	msgTranslating   = "Translating subtitles to %s..."
	msgSendingTrans  = "Uploading the translated subtitles..."
	msgEmbedding     = "Generating video with subtitles..."
	msgSendingVideo  = "Uploading your video with subtitles!"
	msgAudioFinished = "Done! Both subtitle files have been sent."

	msgTranslationFailedAfterTranscript = "Sorry, the translation failed. The original transcript was still sent."
)

type PipelineConfig struct {
	WorkDir        string // parent of per-job directories, empty means os.TempDir
	MaxUploadBytes int64
}

// PipelineDeps are the external collaborators of the pipeline.
type PipelineDeps struct {
	Messenger   Messenger
	Transcoder  media.Transcoder
	Transcriber Transcriber
	Translator  Translator
	Languages   LanguageResolver
	Notifier    Notifier
}

type PipelineOption func(*Pipeline)

// WithStageObserver registers a callback for stage transitions.
func WithStageObserver(fn StageObserver) PipelineOption {
	return func(p *Pipeline) {
		p.observer = fn
	}
}

func WithPipelineMetrics(m PipelineMetrics) PipelineOption {
	return func(p *Pipeline) {
		p.metrics = m
	}
}

// WithOversizeRefund gives back quota when a download turns out too large.
func WithOversizeRefund(r Refunder) PipelineOption {
	return func(p *Pipeline) {
		p.refunder = r
	}
}

// Pipeline runs one MediaJob through download, transcription, translation
// and, for video, subtitle burn-in.
type Pipeline struct {
	cfg  PipelineConfig
	deps PipelineDeps

	observer StageObserver
	metrics  PipelineMetrics
	refunder Refunder
}

func NewPipeline(cfg PipelineConfig, deps PipelineDeps, opts ...PipelineOption) *Pipeline {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = DefaultMaxUploadBytes
	}
	p := &Pipeline{cfg: cfg, deps: deps}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Execute adapts Run to jobs.Queue.
func (p *Pipeline) Execute(ctx context.Context, job *jobs.Job) error {
	return p.Run(ctx, NewMediaJob(job))
}

// NewMediaJob builds a pipeline job from a queued job.
func NewMediaJob(job *jobs.Job) *MediaJob {
	return &MediaJob{
		ID:     job.ID,
		UserID: job.Payload.UserID,
		ChatID: job.Payload.ChatID,
		Attachment: Attachment{
			FileID:   job.Payload.FileID,
			FileName: job.Payload.FileName,
			MimeType: job.Payload.MimeType,
			Size:     job.Payload.Size,
			Kind:     AttachmentKind(job.Payload.Kind),
		},
		Language: job.Payload.Language,
	}
}

// Run executes every stage in order. The job's working directory is removed
// on every exit path. The returned error is a *JobError for fatal failures.
func (p *Pipeline) Run(ctx context.Context, job *MediaJob) error {
	p.transition(job, StageReceived)

	if err := os.MkdirAll(p.workRoot(), 0o755); err != nil {
		return p.fail(ctx, job, NewErrorWithCause(ErrInternal, "failed to create work root", err))
	}
	dir, err := os.MkdirTemp(p.workRoot(), "job-*")
	if err != nil {
		return p.fail(ctx, job, NewErrorWithCause(ErrInternal, "failed to create job directory", err))
	}
	job.WorkDir = dir
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			log.Warn("Failed to remove job directory %s: %v", dir, err)
		}
	}()

	if err := SafeExecute(func() error { return p.runStages(ctx, job) }); err != nil {
		return p.fail(ctx, job, err)
	}

	p.transition(job, StageCompleted)
	log.Info("Job %s completed for user %d (%s, %d artifacts)", job.ID, job.UserID, job.Kind, len(job.Artifacts))
	return nil
}

func (p *Pipeline) runStages(ctx context.Context, job *MediaJob) error {
	if err := p.download(ctx, job); err != nil {
		return err
	}
	p.transition(job, StageDownloaded)

	if err := p.extractAudio(ctx, job); err != nil {
		return err
	}
	p.transition(job, StageAudioExtracted)

	if err := p.transcribe(ctx, job); err != nil {
		return err
	}
	p.transition(job, StageTranscribed)

	base := artifactBase(job.Attachment.FileName)

	originalPath := filepath.Join(job.WorkDir, base+"_original.srt")
	if err := p.writeSubtitles(originalPath, job.Transcript); err != nil {
		return err
	}
	p.notify(ctx, job, msgSendingOrig)
	p.deliver(ctx, job, ArtifactTranscript, originalPath, p.deps.Messenger.SendDocument)
	p.transition(job, StageTranscriptDelivered)

	if job.Language == "" {
		job.Language = p.deps.Languages.Get(job.UserID)
	}
	p.notify(ctx, job, fmt.Sprintf(msgTranslating, job.Language))
	translated, err := p.deps.Translator.Translate(ctx, job.Transcript, job.Language)
	if err != nil {
		jobErr := NewErrorWithCause(ErrTranslation, "translation failed", err).
			WithContext("language", job.Language)
		if job.delivered(ArtifactTranscript) {
			jobErr.WithUserMessage(msgTranslationFailedAfterTranscript)
		}
		return jobErr
	}
	job.Translated = translated
	p.transition(job, StageTranslated)

	langPart := file.SafeName(job.Language)
	translatedPath := filepath.Join(job.WorkDir, base+"_translated_"+langPart+".srt")
	if err := p.writeSubtitles(translatedPath, job.Translated); err != nil {
		return err
	}
	p.notify(ctx, job, msgSendingTrans)
	p.deliver(ctx, job, ArtifactTranslation, translatedPath, p.deps.Messenger.SendDocument)
	p.transition(job, StageTranslationDelivered)

	if job.Kind != KindVideo {
		p.notify(ctx, job, msgAudioFinished)
		return nil
	}

	p.notify(ctx, job, msgEmbedding)
	videoPath := filepath.Join(job.WorkDir, base+"_"+langPart+"_sub.mp4")
	if err := p.deps.Transcoder.BurnSubtitles(ctx, job.SourcePath, translatedPath, videoPath); err != nil {
		return NewErrorWithCause(ErrTranscode, "failed to burn subtitles", err)
	}
	job.VideoPath = videoPath
	p.transition(job, StageVideoEmbedded)

	p.notify(ctx, job, msgSendingVideo)
	p.deliver(ctx, job, ArtifactVideo, videoPath, p.deps.Messenger.SendVideo)
	p.transition(job, StageVideoDelivered)
	return nil
}

func (p *Pipeline) download(ctx context.Context, job *MediaJob) error {
	att := job.Attachment
	if att.FileID == "" {
		return NewError(ErrUnsupportedAttachment, "job has no attachment")
	}
	if att.Size > p.cfg.MaxUploadBytes {
		return p.oversized(att.Size)
	}

	p.notify(ctx, job, msgDownloading)
	dest := filepath.Join(job.WorkDir, "source"+sourceExt(att))
	n, err := p.deps.Messenger.Download(ctx, att.FileID, dest)
	if err != nil {
		return NewErrorWithCause(ErrDownload, "failed to download attachment", err).
			WithContext("file_id", att.FileID)
	}
	if n > p.cfg.MaxUploadBytes {
		return p.oversized(n)
	}
	job.SourcePath = dest
	return nil
}

func (p *Pipeline) oversized(size int64) *JobError {
	return NewError(ErrOversizedMedia, "media exceeds upload limit").
		WithContext("size", size).
		WithUserMessage(OversizeMessage(size, p.cfg.MaxUploadBytes))
}

// OversizeMessage is the user-visible rejection text for a too large file.
func OversizeMessage(size, limit int64) string {
	return fmt.Sprintf("This file is %s, which is over the %s limit. Please send a smaller file.",
		humanize.IBytes(uint64(size)), humanize.IBytes(uint64(limit)))
}

func (p *Pipeline) extractAudio(ctx context.Context, job *MediaJob) error {
	kind, err := p.detectKind(ctx, job)
	if err != nil {
		return NewErrorWithCause(ErrTranscode, "failed to probe media", err)
	}
	job.Kind = kind

	if kind == KindAudio {
		job.AudioPath = job.SourcePath
		return nil
	}

	p.notify(ctx, job, msgTranscribing)
	audio := file.ReplaceExt(job.SourcePath, ".audio.mp3")
	if err := p.deps.Transcoder.ExtractAudio(ctx, job.SourcePath, audio); err != nil {
		return NewErrorWithCause(ErrTranscode, "failed to extract audio", err)
	}
	job.AudioPath = audio
	return nil
}

func (p *Pipeline) detectKind(ctx context.Context, job *MediaJob) (MediaKind, error) {
	att := job.Attachment
	switch att.Kind {
	case AttachmentAudio, AttachmentVoice:
		return KindAudio, nil
	case AttachmentVideo, AttachmentVideoNote:
		return KindVideo, nil
	}

	switch {
	case strings.HasPrefix(att.MimeType, "video/"):
		return KindVideo, nil
	case strings.HasPrefix(att.MimeType, "audio/"):
		return KindAudio, nil
	}

	hasVideo, err := p.deps.Transcoder.HasVideoStream(ctx, job.SourcePath)
	if err != nil {
		return "", err
	}
	if hasVideo {
		return KindVideo, nil
	}
	return KindAudio, nil
}

func (p *Pipeline) transcribe(ctx context.Context, job *MediaJob) error {
	if job.Kind == KindAudio {
		p.notify(ctx, job, msgTranscribing)
	}

	text, err := p.deps.Transcriber.Transcribe(ctx, job.AudioPath)
	if err != nil {
		return NewErrorWithCause(ErrTranscription, "transcription request failed", err)
	}
	if err := subtitle.Validate(text); err != nil {
		return NewErrorWithCause(ErrTranscription, "transcription is not valid SRT", err)
	}
	cues, err := subtitle.ParseString(text)
	if err != nil {
		return NewErrorWithCause(ErrTranscription, "failed to parse transcription", err)
	}
	if len(cues) == 0 {
		return NewErrorWithCause(ErrTranscription, "transcription has no cues", subtitle.ErrNoCues)
	}
	job.Transcript = cues
	return nil
}

func (p *Pipeline) writeSubtitles(path string, cues []subtitle.Cue) error {
	if err := subtitle.WriteFile(path, cues); err != nil {
		return NewErrorWithCause(ErrInternal, "failed to write subtitle artifact", err).
			WithContext("path", path)
	}
	return nil
}

// deliver sends an artifact. A failed send is logged and the job goes on.
func (p *Pipeline) deliver(
	ctx context.Context,
	job *MediaJob,
	kind ArtifactKind,
	path string,
	send func(ctx context.Context, chatID int64, path string) error,
) {
	artifact := Artifact{Kind: kind, Name: filepath.Base(path), Path: path}
	if err := send(ctx, job.ChatID, path); err != nil {
		jobErr := NewErrorWithCause(ErrDelivery, "failed to deliver artifact", err).
			WithContext("job", job.ID).
			WithContext("artifact", artifact.Name)
		log.Warn("%v", jobErr)
		if p.metrics != nil {
			p.metrics.ObserveFailure(jobErr.Kind.String())
		}
	} else {
		artifact.Delivered = true
	}
	job.Artifacts = append(job.Artifacts, artifact)
}

func (p *Pipeline) fail(ctx context.Context, job *MediaJob, err error) error {
	jobErr := AsJobError(err)
	failedAt := job.Stage
	p.transition(job, StageFailed)

	log.Error("Job %s for user %d failed after %s: %v", job.ID, job.UserID, failedAt, jobErr)
	if p.metrics != nil {
		p.metrics.ObserveFailure(jobErr.Kind.String())
	}
	if jobErr.Kind == ErrOversizedMedia && p.refunder != nil {
		p.refunder.Refund(job.UserID)
	}

	p.notify(context.WithoutCancel(ctx), job, jobErr.UserMessage())
	return jobErr
}

func (p *Pipeline) transition(job *MediaJob, stage Stage) {
	now := time.Now()
	if !job.stageStarted.IsZero() && p.metrics != nil {
		p.metrics.ObserveStage(string(stage), now.Sub(job.stageStarted))
	}
	job.stageStarted = now
	job.Stage = stage
	log.Debug("Job %s -> %s", job.ID, stage)

	if p.observer != nil {
		p.observer(job, stage)
	}
}

func (p *Pipeline) notify(ctx context.Context, job *MediaJob, message string) {
	if p.deps.Notifier != nil {
		p.deps.Notifier.Notify(ctx, job.ChatID, message)
	}
}

func (p *Pipeline) workRoot() string {
	if p.cfg.WorkDir != "" {
		return p.cfg.WorkDir
	}
	return os.TempDir()
}

// artifactBase derives the artifact file prefix from the upload name.
func artifactBase(name string) string {
	base := file.SafeName(file.Stem(name))
	if base == "" {
		base = "media_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	}
	return base
}

func sourceExt(att Attachment) string {
	if ext := filepath.Ext(att.FileName); ext != "" && len(ext) <= 6 {
		return strings.ToLower(ext)
	}
	switch att.Kind {
	case AttachmentVoice:
		return ".ogg"
	case AttachmentAudio:
		return ".mp3"
	case AttachmentVideo, AttachmentVideoNote:
		return ".mp4"
	}
	if att.MimeType != "" {
		if exts, err := mime.ExtensionsByType(att.MimeType); err == nil && len(exts) > 0 {
			return exts[0]
		}
	}
	return ""
}
