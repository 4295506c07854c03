package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/pkg/errors"

	"github.com/MimeLyc/subtitle-bot/pkg/log"
)

// UsageObserver receives token usage of every successful completion.
type UsageObserver func(model string, usage Usage)

// Client talks to one chat completions endpoint. Safe for concurrent use.
type Client struct {
	config     *Config
	httpClient *http.Client
	endpoint   string
	onUsage    UsageObserver
}

type ClientOption func(*Client)

func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithUsageObserver registers a callback for token usage.
func WithUsageObserver(fn UsageObserver) ClientOption {
	return func(c *Client) {
		c.onUsage = fn
	}
}

func NewClient(config *Config, opts ...ClientOption) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}

	client := &Client{
		config:     config,
		endpoint:   strings.TrimSuffix(config.APIURL, "/") + "/chat/completions",
		httpClient: &http.Client{Timeout: config.timeout()},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Complete sends messages and returns the first choice. A response cut at
// the token limit is returned together with ErrTruncated.
func (c *Client) Complete(ctx context.Context, messages []Message, params Params) (*Completion, error) {
	request := chatRequest{
		Model:       c.config.Model,
		Messages:    messages,
		MaxTokens:   c.config.MaxTokens,
		Temperature: c.config.Temperature,
	}
	if params.MaxTokens > 0 {
		request.MaxTokens = params.MaxTokens
	}
	if params.Temperature != nil {
		request.Temperature = *params.Temperature
	}

	response, err := c.post(ctx, request)
	if err != nil {
		return nil, errors.Wrap(err, "chat completion failed")
	}
	if len(response.Choices) == 0 {
		return nil, errors.New("chat completion returned no choices")
	}

	if c.onUsage != nil {
		c.onUsage(c.config.Model, response.Usage)
	}

	choice := response.Choices[0]
	completion := &Completion{
		Content:      choice.Message.Content,
		FinishReason: choice.FinishReason,
		Model:        response.Model,
		Usage:        response.Usage,
	}
	if choice.FinishReason == finishLength {
		return completion, ErrTruncated
	}
	return completion, nil
}

// SimpleChat sends one user prompt with an optional system prompt and
// returns the reply text. A truncated reply is returned with ErrTruncated.
func (c *Client) SimpleChat(ctx context.Context, prompt string, systemPrompt string) (string, error) {
	messages := make([]Message, 0, 2)
	if systemPrompt != "" {
		messages = append(messages, Message{Role: RoleSystem, Content: systemPrompt})
	}
	messages = append(messages, Message{Role: RoleUser, Content: prompt})

	completion, err := c.Complete(ctx, messages, Params{})
	if errors.Is(err, ErrTruncated) {
		return completion.Content, err
	}
	if err != nil {
		return "", err
	}
	log.Debug("Chat completion used %d prompt and %d completion tokens",
		completion.Usage.PromptTokens, completion.Usage.CompletionTokens)
	return completion.Content, nil
}

func (c *Client) post(ctx context.Context, payload chatRequest) (*chatResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, "marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "create request")
	}
	c.config.setHeaders(req.Header)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "send request")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "read response")
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		if !ok(resp.StatusCode) {
			return nil, &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(raw))}
		}
		return nil, errors.Wrap(err, "parse response")
	}
	if parsed.Error != nil && parsed.Error.Message != "" {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    parsed.Error.Message,
			Type:       parsed.Error.Type,
			Code:       parsed.Error.Code,
		}
	}
	if !ok(resp.StatusCode) {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(raw))}
	}
	return &parsed, nil
}

func ok(status int) bool {
	return status >= 200 && status < 300
}
