package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

type ErrorKind int

const (
	ErrQuotaExceeded ErrorKind = iota
	ErrUnsupportedAttachment
	ErrOversizedMedia
	ErrDownload
	ErrTranscode
	ErrTranscription
	ErrTranslation
	ErrDelivery
	ErrInternal
)

func (k ErrorKind) String() string {
	switch k {
	case ErrQuotaExceeded:
		return "QuotaExceeded"
	case ErrUnsupportedAttachment:
		return "UnsupportedAttachment"
	case ErrOversizedMedia:
		return "OversizedMedia"
	case ErrDownload:
		return "DownloadFailure"
	case ErrTranscode:
		return "TranscodeFailure"
	case ErrTranscription:
		return "TranscriptionFailure"
	case ErrTranslation:
		return "TranslationFailure"
	case ErrDelivery:
		return "DeliveryFailure"
	default:
		return "Internal"
	}
}

// Fatal reports whether the kind ends the job. Only delivery failures don't.
func (k ErrorKind) Fatal() bool {
	return k != ErrDelivery
}

// UserMessage is the text sent to the requester for this kind.
func (k ErrorKind) UserMessage() string {
	switch k {
	case ErrQuotaExceeded:
		return "You've reached your daily upload limit. Please try again tomorrow."
	case ErrUnsupportedAttachment:
		return "Please send an audio or video file."
	case ErrOversizedMedia:
		return "This file is too large to process."
	case ErrDownload:
		return "Sorry, I couldn't download your file. Please send it again."
	case ErrTranscode:
		return "Sorry, I couldn't process the media in this file."
	case ErrTranscription:
		return "Sorry, I couldn't transcribe this file."
	case ErrTranslation:
		return "Sorry, the translation failed."
	case ErrDelivery:
		return "Sorry, I couldn't send one of the result files."
	default:
		return "Something went wrong while processing your media."
	}
}

type JobError struct {
	Kind    ErrorKind
	Message string
	Context map[string]any
	Cause   error

	userMessage string
}

func NewError(kind ErrorKind, message string) *JobError {
	return &JobError{
		Kind:    kind,
		Message: message,
		Context: make(map[string]any),
	}
}

func NewErrorWithCause(kind ErrorKind, message string, cause error) *JobError {
	return &JobError{
		Kind:    kind,
		Message: message,
		Context: make(map[string]any),
		Cause:   cause,
	}
}

func (e *JobError) Error() string {
	var parts []string
	parts = append(parts, fmt.Sprintf("[%s] %s", e.Kind.String(), e.Message))

	if len(e.Context) > 0 {
		keys := make([]string, 0, len(e.Context))
		for k := range e.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		ctxParts := make([]string, 0, len(keys))
		for _, k := range keys {
			ctxParts = append(ctxParts, fmt.Sprintf("%s=%v", k, e.Context[k]))
		}
		parts = append(parts, fmt.Sprintf("context: %s", strings.Join(ctxParts, ", ")))
	}

	if e.Cause != nil {
		parts = append(parts, fmt.Sprintf("cause: %v", e.Cause))
	}

	return strings.Join(parts, " | ")
}

func (e *JobError) Unwrap() error {
	return e.Cause
}

func (e *JobError) WithContext(key string, value any) *JobError {
	e.Context[key] = value
	return e
}

// WithUserMessage overrides the kind's default user-visible text.
func (e *JobError) WithUserMessage(msg string) *JobError {
	e.userMessage = msg
	return e
}

func (e *JobError) UserMessage() string {
	if e.userMessage != "" {
		return e.userMessage
	}
	return e.Kind.UserMessage()
}

func IsKind(err error, kind ErrorKind) bool {
	var jobErr *JobError
	if errors.As(err, &jobErr) {
		return jobErr.Kind == kind
	}
	return false
}

// AsJobError returns err as a *JobError, classifying foreign errors as internal.
func AsJobError(err error) *JobError {
	if err == nil {
		return nil
	}
	var jobErr *JobError
	if errors.As(err, &jobErr) {
		return jobErr
	}
	return NewErrorWithCause(ErrInternal, "unexpected error", err)
}

// SafeExecute runs fn and turns a panic into an internal JobError.
func SafeExecute(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = NewError(ErrInternal, fmt.Sprintf("runtime error: %v", r))
		}
	}()

	return fn()
}
