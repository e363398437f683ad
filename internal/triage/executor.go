package triage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cleanymail/cleany/internal/instrumentation"
)

// browserUserAgent is sent on unsubscribe requests. A number of unsubscribe
// endpoints refuse non-browser user agents.
const browserUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Executor performs the actual unsubscribe request for a resolved candidate.
type Executor struct {
	client  *http.Client
	timeout time.Duration
	metrics *instrumentation.Metrics
	logger  *slog.Logger
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithExecutorClient overrides the HTTP client.
func WithExecutorClient(c *http.Client) ExecutorOption {
	return func(e *Executor) {
		e.client = c
	}
}

// WithExecutorTimeout bounds the unsubscribe request.
func WithExecutorTimeout(d time.Duration) ExecutorOption {
	return func(e *Executor) {
		e.timeout = d
	}
}

// WithExecutorMetrics attaches a metrics recorder.
func WithExecutorMetrics(m *instrumentation.Metrics) ExecutorOption {
	return func(e *Executor) {
		e.metrics = m
	}
}

// NewExecutor creates an Executor.
func NewExecutor(opts ...ExecutorOption) *Executor {
	e := &Executor{
		client:  &http.Client{},
		timeout: 30 * time.Second,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute performs the unsubscribe request for the candidate. Mailto
// candidates are refused: they require a user-sent email and are never
// executed automatically. Success means a 2xx response.
func (e *Executor) Execute(ctx context.Context, cand *UnsubscribeCandidate) error {
	err := e.execute(ctx, cand)
	if e.metrics != nil {
		status := instrumentation.StatusSuccess
		if err != nil {
			status = instrumentation.StatusError
		}
		e.metrics.RecordUnsubscribeRequest(ctx, status)
	}
	return err
}

func (e *Executor) execute(ctx context.Context, cand *UnsubscribeCandidate) error {
	if cand == nil {
		return fmt.Errorf("no unsubscribe candidate")
	}

	if cand.Method == MethodMailto {
		return fmt.Errorf("mailto unsubscribe links must be handled manually: %s", cand.URL)
	}

	if !strings.HasPrefix(cand.URL, "http://") && !strings.HasPrefix(cand.URL, "https://") {
		return fmt.Errorf("invalid unsubscribe URL: %s", cand.URL)
	}

	method := http.MethodGet
	if cand.Method == MethodPost {
		method = http.MethodPost
	}

	reqCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, method, cand.URL, nil)
	if err != nil {
		return fmt.Errorf("failed to create unsubscribe request: %w", err)
	}
	req.Header.Set("User-Agent", browserUserAgent)

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send unsubscribe request: %w", err)
	}
	defer resp.Body.Close()

	// Drain so the connection can be reused
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unsubscribe request failed with status %d", resp.StatusCode)
	}

	e.logger.Info("unsubscribe request sent", "url", cand.URL, "status", resp.StatusCode)
	return nil
}
