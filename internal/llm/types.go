package llm

import (
	"errors"
	"fmt"
)

// ErrTruncated is returned when the backend stopped at the token limit.
// A cut-off subtitle document cannot be mapped back onto its cues.
var ErrTruncated = errors.New("completion truncated at token limit")

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"

	finishLength = "length"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Params overrides the client defaults for one request.
// Zero MaxTokens and nil Temperature keep the configured values.
type Params struct {
	MaxTokens   int
	Temperature *float64
}

// Completion is the first choice of a chat response.
type Completion struct {
	Content      string
	FinishReason string
	Model        string
	Usage        Usage
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// APIError is an error reported by the chat endpoint.
type APIError struct {
	StatusCode int
	Message    string
	Type       string
	Code       any
}

func (e *APIError) Error() string {
	if e.Type == "" {
		return fmt.Sprintf("chat API status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("chat API status %d: %s (type: %s, code: %v)", e.StatusCode, e.Message, e.Type, e.Code)
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message      Message `json:"message"`
		FinishReason string  `json:"finish_reason"`
	} `json:"choices"`
	Usage Usage `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    any    `json:"code"`
	} `json:"error,omitempty"`
}
