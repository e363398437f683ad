package classify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cleanymail/cleany/internal/gmail"
)

// Suggestion is one classifier verdict for an email in the submitted batch.
type Suggestion struct {
	Index  int    `json:"index"`
	Action string `json:"action"` // keep, delete or unsubscribe
	Reason string `json:"reason"`
}

// Client calls an OpenAI-compatible chat completions endpoint to classify
// emails and summarize triage activity. It is strictly optional: callers must
// treat every error as "no suggestions" and continue.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

// NewClient creates a classifier client for the given endpoint.
func NewClient(baseURL, apiKey, model string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

const classifySystemPrompt = `You are an email triage assistant. For each email decide whether the user should keep it, delete it, or unsubscribe from the sender. Marketing blasts and dormant newsletters lean toward unsubscribe, one-off promotions toward delete, and personal or actionable mail toward keep.`

var classifyTool = map[string]any{
	"type": "function",
	"function": map[string]any{
		"name":        "classify_emails",
		"description": "Classify a batch of emails into triage actions",
		"parameters": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"classifications": map[string]any{
					"type": "array",
					"items": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"index":  map[string]any{"type": "integer"},
							"action": map[string]any{"type": "string", "enum": []string{"keep", "delete", "unsubscribe"}},
							"reason": map[string]any{"type": "string"},
						},
						"required": []string{"index", "action", "reason"},
					},
				},
			},
			"required": []string{"classifications"},
		},
	},
}

type chatRequest struct {
	Model      string           `json:"model"`
	Messages   []chatMessage    `json:"messages"`
	Tools      []map[string]any `json:"tools,omitempty"`
	ToolChoice any              `json:"tool_choice,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content   string `json:"content"`
			ToolCalls []struct {
				Function struct {
					Name      string `json:"name"`
					Arguments string `json:"arguments"`
				} `json:"function"`
			} `json:"tool_calls"`
		} `json:"message"`
	} `json:"choices"`
}

// Classify submits a batch of messages and returns one suggestion per
// classified index. Suggestions reference messages by their position in msgs.
func (c *Client) Classify(ctx context.Context, msgs []*gmail.Message) ([]Suggestion, error) {
	if len(msgs) == 0 {
		return nil, nil
	}

	var sb strings.Builder
	sb.WriteString("Classify these emails:\n")
	for i, m := range msgs {
		fmt.Fprintf(&sb, "%d. From: %s | Subject: %s | Snippet: %s\n",
			i, m.Sender, m.Subject, m.Snippet)
	}

	resp, err := c.complete(ctx, chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: classifySystemPrompt},
			{Role: "user", Content: sb.String()},
		},
		Tools:      []map[string]any{classifyTool},
		ToolChoice: map[string]any{"type": "function", "function": map[string]any{"name": "classify_emails"}},
	})
	if err != nil {
		return nil, err
	}

	if len(resp.Choices) == 0 || len(resp.Choices[0].Message.ToolCalls) == 0 {
		return nil, fmt.Errorf("classifier returned no tool call")
	}

	var parsed struct {
		Classifications []Suggestion `json:"classifications"`
	}
	args := resp.Choices[0].Message.ToolCalls[0].Function.Arguments
	if err := json.Unmarshal([]byte(args), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse classifier response: %w", err)
	}

	return parsed.Classifications, nil
}

// Summarize turns triage percentages into a short personality blurb about the
// user's inbox habits.
func (c *Client) Summarize(ctx context.Context, kept, deleted, unsubscribed float64) (string, error) {
	prompt := fmt.Sprintf(
		"In two sentences, describe this user's email habits with a light touch. They kept %.0f%%, deleted %.0f%% and unsubscribed from %.0f%% of their triaged mail.",
		kept, deleted, unsubscribed)

	resp, err := c.complete(ctx, chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "user", Content: prompt},
		},
	})
	if err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("summarizer returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// complete performs one chat completion call.
func (c *Client) complete(ctx context.Context, reqBody chatRequest) (*chatResponse, error) {
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call classifier: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read classifier response: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusTooManyRequests:
		return nil, fmt.Errorf("classifier rate limited (429)")
	case http.StatusPaymentRequired:
		return nil, fmt.Errorf("classifier credits exhausted (402)")
	default:
		return nil, fmt.Errorf("classifier returned status %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode classifier response: %w", err)
	}
	return &parsed, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
