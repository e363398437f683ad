package gmail

import (
	"context"
	"fmt"
	"time"

	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/cleanymail/cleany/internal/google"
	"github.com/cleanymail/cleany/internal/instrumentation"
)

// Client wraps the Gmail Users service for a single account.
type Client struct {
	svc     *gmail.UsersService
	account string
	metrics *instrumentation.Metrics
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithMetrics attaches a metrics recorder to the client. Every Gmail API call
// is then counted and timed.
func WithMetrics(m *instrumentation.Metrics) ClientOption {
	return func(c *Client) {
		c.metrics = m
	}
}

// Account returns the account name this client is associated with.
func (c *Client) Account() string {
	return c.account
}

// HasTokenForAccount checks if a valid OAuth token exists for the specified account.
func HasTokenForAccount(account string) bool {
	return google.HasTokenForAccount(account)
}

// HasToken checks if a valid OAuth token exists for the default account.
func HasToken() bool {
	return google.HasToken()
}

// NewClientForAccount creates a new Gmail client with OAuth2 authentication
// for a specific account.
func NewClientForAccount(ctx context.Context, account string, opts ...ClientOption) (*Client, error) {
	client, err := google.GetHTTPClientForAccount(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("no valid Google OAuth token found for account %s: %w", account, err)
	}

	svc, err := gmail.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}

	c := &Client{
		svc:     svc.Users,
		account: account,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// NewClient creates a new Gmail client for the default account.
func NewClient(ctx context.Context, opts ...ClientOption) (*Client, error) {
	return NewClientForAccount(ctx, google.DefaultAccount, opts...)
}

// record reports a Gmail API call to the metrics recorder, if one is attached.
func (c *Client) record(ctx context.Context, operation string, start time.Time, err error) {
	if c.metrics == nil {
		return
	}
	status := instrumentation.StatusSuccess
	if err != nil {
		status = instrumentation.StatusError
	}
	c.metrics.RecordGmailOperation(ctx, operation, status, time.Since(start))
}

// SearchMessages returns one page of message stubs matching the query.
// The returned stubs carry only Id and ThreadId; use GetMessage for content.
// An empty next page token means the listing is exhausted.
func (c *Client) SearchMessages(ctx context.Context, query string, pageSize int64, pageToken string) ([]*gmail.Message, string, error) {
	start := time.Now()

	req := c.svc.Messages.List("me").Q(query).MaxResults(pageSize).Context(ctx)
	if pageToken != "" {
		req = req.PageToken(pageToken)
	}

	res, err := req.Do()
	c.record(ctx, "search", start, err)
	if err != nil {
		return nil, "", fmt.Errorf("failed to search messages: %w", err)
	}

	return res.Messages, res.NextPageToken, nil
}

// GetMessage retrieves a single message. Format is one of "full", "minimal"
// or "metadata" as defined by the Gmail API.
func (c *Client) GetMessage(ctx context.Context, id, format string) (*gmail.Message, error) {
	start := time.Now()

	msg, err := c.svc.Messages.Get("me", id).Format(format).Context(ctx).Do()
	c.record(ctx, "get", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to get message %s: %w", id, err)
	}

	return msg, nil
}

// TrashMessage moves a message to the trash.
func (c *Client) TrashMessage(ctx context.Context, id string) error {
	start := time.Now()

	_, err := c.svc.Messages.Trash("me", id).Context(ctx).Do()
	c.record(ctx, "trash", start, err)
	if err != nil {
		return fmt.Errorf("failed to trash message %s: %w", id, err)
	}

	return nil
}

// ForeachMessagePage iterates over all pages of message stubs matching the
// query, invoking fn once per page. Iteration stops on the first error from
// either the API or fn.
func (c *Client) ForeachMessagePage(ctx context.Context, query string, pageSize int64, fn func(msgs []*gmail.Message) error) error {
	pageToken := ""
	for {
		msgs, next, err := c.SearchMessages(ctx, query, pageSize, pageToken)
		if err != nil {
			return err
		}
		if len(msgs) > 0 {
			if err := fn(msgs); err != nil {
				return err
			}
		}
		if next == "" {
			return nil
		}
		pageToken = next
	}
}
