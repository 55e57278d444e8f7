// Package suggest calls the AI chat-completions endpoint for conversation
// suggestions and meeting summaries.
package suggest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	apperrors "github.com/meetpilot/meetpilot/internal/errors"
	"github.com/meetpilot/meetpilot/internal/history"
	"github.com/meetpilot/meetpilot/internal/resilience"
)

// Client is a chat-completions client. One request is in flight per hotkey
// press; the breaker keeps a dead endpoint from eating the operator's
// requests, and the retry policy allows a single quick retry on transient
// connection failures only.
type Client struct {
	baseURL string
	model   string
	apiKey  string

	http    *http.Client
	breaker *resilience.Breaker
	retry   resilience.RetryConfig
}

// NewClient creates a suggestion client for the given endpoint.
func NewClient(baseURL, model, apiKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		model:   model,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
		breaker: resilience.New(resilience.AssistConfig()),
		retry:   resilience.AssistRetryConfig(),
	}
}

// Suggestions asks for practical next moves given the recent conversation.
// The returned error carries a code from the failure taxonomy; callers map
// it to exactly one operator notification.
func (c *Client) Suggestions(ctx context.Context, entries []history.Entry) ([]string, error) {
	text, err := c.complete(ctx, suggestionsSystem,
		fmt.Sprintf(suggestionsUser, renderContext(entries)), suggestionsMaxTokens)
	if err != nil {
		return nil, err
	}
	return parseSuggestions(text), nil
}

// Summary asks for a structured meeting summary of the whole conversation.
func (c *Client) Summary(ctx context.Context, entries []history.Entry) (string, error) {
	return c.complete(ctx, summarySystem,
		fmt.Sprintf(summaryUser, renderContext(entries)), summaryMaxTokens)
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (c *Client) complete(ctx context.Context, system, user string, maxTokens int) (string, error) {
	req := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		MaxTokens:   maxTokens,
		Temperature: chatTemperature,
	}

	var text string
	err := resilience.Retry(ctx, c.retry, func() error {
		var err error
		text, err = resilience.ExecuteWithResult(c.breaker, func() (string, error) {
			return c.post(ctx, req)
		})
		if errors.Is(err, resilience.ErrOpen) {
			return apperrors.Wrap(err, apperrors.Unavailable, "suggestion service circuit open")
		}
		return err
	})
	return text, err
}

func (c *Client) post(ctx context.Context, req chatRequest) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.Unknown, "encode chat request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.Unknown, "build chat request")
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", classifyTransport(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", classifyStatus(resp)
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", apperrors.Wrap(err, apperrors.MalformedResponse, "decode chat response")
	}
	if len(parsed.Choices) == 0 || strings.TrimSpace(parsed.Choices[0].Message.Content) == "" {
		return "", apperrors.New(apperrors.MalformedResponse, "chat response has no content")
	}

	slog.Debug("chat completion received",
		"model", c.model, "elapsed", time.Since(start).Round(time.Millisecond))
	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}

// classifyTransport maps connection-level failures. Timeouts are terminal:
// the latency budget is already spent, so they must not be retried.
func classifyTransport(err error) error {
	if errors.Is(err, context.Canceled) {
		return apperrors.Wrap(err, apperrors.Canceled, "chat request canceled")
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return apperrors.Wrap(err, apperrors.Timeout, "chat request timed out")
	}
	return apperrors.Wrap(err, apperrors.Unavailable, "suggestion service unreachable")
}

func classifyStatus(resp *http.Response) error {
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 200))

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return apperrors.Newf(apperrors.AuthFailed, "authentication rejected (%d): %s", resp.StatusCode, snippet)
	case resp.StatusCode == http.StatusTooManyRequests:
		return apperrors.Newf(apperrors.RateLimited, "rate limited: %s", snippet)
	case resp.StatusCode >= 500:
		return apperrors.Newf(apperrors.Unavailable, "suggestion service error (%d): %s", resp.StatusCode, snippet)
	default:
		return apperrors.Newf(apperrors.Unknown, "unexpected status %d: %s", resp.StatusCode, snippet)
	}
}

// renderContext numbers the entries the way the prompt expects.
func renderContext(entries []history.Entry) string {
	var b strings.Builder
	for i, e := range entries {
		fmt.Fprintf(&b, "%d. %s\n", i+1, e.Text)
	}
	return strings.TrimRight(b.String(), "\n")
}

// parseSuggestions splits a completion into individual suggestion lines,
// stripping list markers. A completion that does not look like a list is
// returned whole as a single suggestion.
func parseSuggestions(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "-*• \t")
		// "1. foo" / "2) foo"
		if n := strings.IndexAny(line, ".)"); n > 0 && n <= 2 && isDigits(line[:n]) {
			line = strings.TrimSpace(line[n+1:])
		}
		if line != "" {
			out = append(out, line)
		}
	}
	if len(out) == 0 && strings.TrimSpace(text) != "" {
		return []string{strings.TrimSpace(text)}
	}
	return out
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}
