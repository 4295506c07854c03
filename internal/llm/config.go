package llm

import (
	"fmt"
	"net/http"
	"time"
)

// Config points the client at an OpenAI-compatible chat completions
// endpoint (OpenAI, OpenRouter or a compatible gateway).
type Config struct {
	APIKey      string
	APIURL      string
	Model       string
	MaxTokens   int
	Temperature float64
	Timeout     int // seconds
	SiteURL     string
	AppName     string
}

func (c *Config) Validate() error {
	switch {
	case c.APIKey == "":
		return fmt.Errorf("API key is required")
	case c.APIURL == "":
		return fmt.Errorf("API URL is required")
	case c.Model == "":
		return fmt.Errorf("model is required")
	case c.MaxTokens < 1:
		return fmt.Errorf("max tokens must be greater than 0")
	case c.Temperature < 0 || c.Temperature > 2:
		return fmt.Errorf("temperature must be between 0 and 2")
	case c.Timeout < 1:
		return fmt.Errorf("timeout must be greater than 0")
	}
	return nil
}

func (c *Config) timeout() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

// setHeaders adds auth and the optional OpenRouter attribution headers.
func (c *Config) setHeaders(h http.Header) {
	h.Set("Authorization", "Bearer "+c.APIKey)
	h.Set("Content-Type", "application/json")
	if c.SiteURL != "" {
		h.Set("HTTP-Referer", c.SiteURL)
	}
	if c.AppName != "" {
		h.Set("X-Title", c.AppName)
	}
}
