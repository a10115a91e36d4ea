// Package llm implements a thin client for an OpenAI-compatible
// chat-completions API (OpenRouter in production). It intentionally stays a
// hand-rolled JSON-over-HTTP client: the upstream response carries a
// non-standard "thinking" field and error bodies must be inspected verbatim
// for rate-limit classification, both of which typed SDK responses hide.
//
// Model fallback lives in the service layer; this package only issues one
// completion per call and classifies failures via IsRateLimit.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
)

// Message is one chat turn sent to or received from the model.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is the chat-completions payload. Stream is always false: the
// advisor returns complete answers only.
type Request struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	TopP        float64   `json:"top_p"`
	Stream      bool      `json:"stream"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

// Choice is one completion alternative returned by the API.
type Choice struct {
	Message struct {
		Content string `json:"content"`
		// Thinking is an OpenRouter extension: some models return their
		// reasoning trace as a sibling of content.
		Thinking string `json:"thinking,omitempty"`
	} `json:"message"`
}

// Response is the chat-completions result envelope.
type Response struct {
	Choices []Choice `json:"choices"`
}

// APIError is a non-2xx upstream response. Body holds a bounded excerpt of
// the response body so rate-limit classification and operator logs can see
// the upstream message.
type APIError struct {
	Status int
	Body   string
}

// Error renders the status plus the body excerpt.
func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("llm: upstream returned HTTP %d", e.Status)
	}
	return fmt.Sprintf("llm: upstream returned HTTP %d: %s", e.Status, e.Body)
}

// maxErrBodyBytes caps the error-body excerpt kept in APIError.
const maxErrBodyBytes = 300

// rateLimitMarkers are the substrings that classify a failure as a
// rate-limit, matched case-insensitively against the whole error text.
var rateLimitMarkers = []string{"429", "rate limit", "rate-limit", "temporarily", "limite"}

// IsRateLimit reports whether err should trigger model fallback instead of
// aborting. Classification is a substring heuristic over the error text,
// matching what upstream providers actually return.
func IsRateLimit(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range rateLimitMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// Client calls the chat-completions endpoint of baseURL with bearer auth.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient constructs a Client. connectTimeout bounds dial time; timeout
// bounds the whole request including body read. There is no cancellation
// path beyond these timeouts and the caller's context.
func NewClient(baseURL, apiKey string, connectTimeout, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				DialContext:           (&net.Dialer{Timeout: connectTimeout}).DialContext,
				TLSHandshakeTimeout:   connectTimeout,
				ResponseHeaderTimeout: timeout,
			},
		},
	}
}

// Complete performs one blocking chat-completion call. Non-2xx responses
// become *APIError; an empty choice list is an error because the advisor has
// no fallback text to synthesize.
func (c *Client) Complete(ctx context.Context, req Request) (*Response, error) {
	req.Stream = false
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrBodyBytes))
		return nil, &APIError{Status: resp.StatusCode, Body: strings.TrimSpace(string(excerpt))}
	}

	var out Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("llm: malformed response: %w", err)
	}
	if len(out.Choices) == 0 {
		return nil, errors.New("llm: response contained no choices")
	}
	return &out, nil
}
