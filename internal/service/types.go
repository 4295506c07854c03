package service

import (
	"context"
	"time"

	"github.com/MimeLyc/subtitle-bot/internal/subtitle"
)

// Stage is a step of the media pipeline state machine.
type Stage string

const (
	StageReceived             Stage = "Received"
	StageDownloaded           Stage = "Downloaded"
	StageAudioExtracted       Stage = "AudioExtracted"
	StageTranscribed          Stage = "Transcribed"
	StageTranscriptDelivered  Stage = "TranscriptDelivered"
	StageTranslated           Stage = "Translated"
	StageTranslationDelivered Stage = "TranslationDelivered"
	StageVideoEmbedded        Stage = "VideoEmbedded"
	StageVideoDelivered       Stage = "VideoDelivered"
	StageCompleted            Stage = "Completed"
	StageFailed               Stage = "Failed"
)

func (s Stage) Terminal() bool {
	return s == StageCompleted || s == StageFailed
}

type MediaKind string

const (
	KindAudio MediaKind = "audio"
	KindVideo MediaKind = "video"
)

// AttachmentKind is how the chat platform labelled the upload.
type AttachmentKind string

const (
	AttachmentAudio     AttachmentKind = "audio"
	AttachmentVoice     AttachmentKind = "voice"
	AttachmentVideo     AttachmentKind = "video"
	AttachmentVideoNote AttachmentKind = "video_note"
	AttachmentDocument  AttachmentKind = "document"
)

type Attachment struct {
	FileID   string
	FileName string
	MimeType string
	Size     int64 // declared size, 0 when unknown
	Kind     AttachmentKind
}

// Message is an inbound chat message, already stripped of platform types.
type Message struct {
	ChatID     int64
	UserID     int64
	MessageID  int
	Text       string
	Attachment *Attachment
}

type ArtifactKind string

const (
	ArtifactTranscript  ArtifactKind = "transcript"
	ArtifactTranslation ArtifactKind = "translation"
	ArtifactVideo       ArtifactKind = "video"
)

type Artifact struct {
	Kind      ArtifactKind
	Name      string
	Path      string
	Delivered bool
}

// MediaJob is the state of one media message going through the pipeline.
type MediaJob struct {
	ID         string
	UserID     int64
	ChatID     int64
	Attachment Attachment
	Kind       MediaKind
	WorkDir    string
	Stage      Stage
	Language   string

	SourcePath string
	AudioPath  string
	Transcript []subtitle.Cue
	Translated []subtitle.Cue
	VideoPath  string
	Artifacts  []Artifact

	stageStarted time.Time
}

// delivered reports whether an artifact of kind reached the requester.
func (j *MediaJob) delivered(kind ArtifactKind) bool {
	for _, a := range j.Artifacts {
		if a.Kind == kind && a.Delivered {
			return true
		}
	}
	return false
}

// Messenger moves files between the chat platform and local disk.
type Messenger interface {
	Download(ctx context.Context, fileID, dest string) (int64, error)
	SendDocument(ctx context.Context, chatID int64, path string) error
	SendVideo(ctx context.Context, chatID int64, path string) error
}

type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (string, error)
}

type Translator interface {
	Translate(ctx context.Context, cues []subtitle.Cue, targetLanguage string) ([]subtitle.Cue, error)
}

// Notifier sends best-effort progress text. It never fails the caller.
type Notifier interface {
	Notify(ctx context.Context, chatID int64, message string)
}

type LanguageResolver interface {
	Get(userID int64) string
}

type Refunder interface {
	Refund(userID int64)
}

type PipelineMetrics interface {
	ObserveStage(stage string, elapsed time.Duration)
	ObserveFailure(kind string)
}

// StageObserver is called on every stage transition of a job.
type StageObserver func(job *MediaJob, stage Stage)
