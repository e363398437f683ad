package triage

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"
)

var staleBodyRe = regexp.MustCompile(`(?i)expired|invalid|oops`)

const validatorMaxBodyBytes = 64 * 1024

// Validator confirms that a discovered unsubscribe URL is still actionable.
// All network failures degrade to "cannot confirm, keep original": Validate
// never returns an error.
type Validator struct {
	client  *http.Client
	timeout time.Duration
	logger  *slog.Logger
}

// ValidatorOption configures a Validator.
type ValidatorOption func(*Validator)

// WithValidatorClient overrides the HTTP client used for confirmation
// requests.
func WithValidatorClient(c *http.Client) ValidatorOption {
	return func(v *Validator) {
		v.client = c
	}
}

// WithValidatorTimeout bounds each confirmation request.
func WithValidatorTimeout(d time.Duration) ValidatorOption {
	return func(v *Validator) {
		v.timeout = d
	}
}

// NewValidator creates a Validator.
func NewValidator(opts ...ValidatorOption) *Validator {
	v := &Validator{
		client:  &http.Client{},
		timeout: 10 * time.Second,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Validate checks a candidate URL in two passes. First, URLs that do not look
// like unsubscribe links themselves are confirmed with a HEAD request
// following redirects; when the final URL matches the intent pattern it
// replaces the original. Second, links carrying one-time tokens are discarded
// outright, and the rest are fetched once to detect already-expired pages.
func (v *Validator) Validate(ctx context.Context, rawURL string) ValidationResult {
	finalURL := rawURL

	if !intentRe.MatchString(finalURL) {
		if resolved := v.followRedirects(ctx, finalURL); resolved != "" && intentRe.MatchString(resolved) {
			finalURL = resolved
		}
	}

	// One-time tokens are almost always single-use and long since consumed.
	if strings.Contains(finalURL, "token=") {
		return ValidationResult{OK: false}
	}

	if v.pageLooksStale(ctx, finalURL) {
		return ValidationResult{OK: false}
	}

	return ValidationResult{OK: true, FinalURL: finalURL}
}

// followRedirects issues a HEAD request and returns the final URL after
// redirects. Returns the empty string when the request fails.
func (v *Validator) followRedirects(ctx context.Context, rawURL string) string {
	reqCtx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodHead, rawURL, nil)
	if err != nil {
		return ""
	}

	resp, err := v.client.Do(req)
	if err != nil {
		v.logger.Debug("redirect confirmation failed", "url", rawURL, "error", err)
		return ""
	}
	defer resp.Body.Close()

	return resp.Request.URL.String()
}

// pageLooksStale fetches the URL and reports whether the response body reads
// like an expired or broken unsubscribe page. Fetch failures report false so
// the candidate is kept.
func (v *Validator) pageLooksStale(ctx context.Context, rawURL string) bool {
	reqCtx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		return false
	}

	resp, err := v.client.Do(req)
	if err != nil {
		v.logger.Debug("expiry check fetch failed", "url", rawURL, "error", err)
		return false
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, validatorMaxBodyBytes))
	if err != nil {
		return false
	}

	return staleBodyRe.Match(body)
}
