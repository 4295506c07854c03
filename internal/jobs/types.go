package jobs

import "time"

type Status string

const (
	StatusPending Status = "pending"
	StatusRunning Status = "running"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

func (s Status) Terminal() bool {
	return s == StatusSuccess || s == StatusFailed
}

type EnqueueRequest struct {
	Source    string
	DedupeKey string
	Payload   Payload
}

// Payload describes the media a job works on.
type Payload struct {
	UserID    int64  `json:"user_id"`
	ChatID    int64  `json:"chat_id"`
	MessageID int    `json:"message_id,omitempty"`
	FileID    string `json:"file_id,omitempty"`
	FileName  string `json:"file_name"`
	MimeType  string `json:"mime_type,omitempty"`
	Kind      string `json:"kind"`
	Size      int64  `json:"size"`
	Language  string `json:"language,omitempty"`
}

type Job struct {
	ID        string    `json:"id"`
	Source    string    `json:"source"`
	DedupeKey string    `json:"dedupe_key"`
	Payload   Payload   `json:"payload"`
	Status    Status    `json:"status"`
	Stage     string    `json:"stage,omitempty"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Observer is told about every job state change, outside the queue lock.
type Observer interface {
	JobChanged(job Job)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(job Job)

func (f ObserverFunc) JobChanged(job Job) { f(job) }
