package triage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	gmailapi "google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"

	"github.com/cleanymail/cleany/internal/instrumentation"
	"github.com/cleanymail/cleany/internal/logging"
)

// MessageAPI is the slice of the Gmail client the bulk operator needs.
type MessageAPI interface {
	SearchMessages(ctx context.Context, query string, pageSize int64, pageToken string) ([]*gmailapi.Message, string, error)
	GetMessage(ctx context.Context, id, format string) (*gmailapi.Message, error)
	TrashMessage(ctx context.Context, id string) error
}

// OperatorConfig tunes the pacing and safety limits of bulk operations.
type OperatorConfig struct {
	// PageSize is the number of message stubs fetched per search page.
	PageSize int64

	// MaxProcessed caps how many messages a single bulk call may touch.
	MaxProcessed int

	// PageDelay is the pause between search pages and pacing groups.
	PageDelay time.Duration

	// PaceEvery inserts a PageDelay pause after this many sequential
	// deletions in keep-latest mode.
	PaceEvery int

	// RequestTimeout bounds each individual API call.
	RequestTimeout time.Duration
}

// DefaultOperatorConfig returns the stock pacing configuration.
func DefaultOperatorConfig() OperatorConfig {
	return OperatorConfig{
		PageSize:       100,
		MaxProcessed:   500,
		PageDelay:      200 * time.Millisecond,
		PaceEvery:      20,
		RequestTimeout: 30 * time.Second,
	}
}

// Operator performs bulk delete operations against a single sender.
type Operator struct {
	api     MessageAPI
	cfg     OperatorConfig
	metrics *instrumentation.Metrics
	logger  *slog.Logger
}

// OperatorOption configures an Operator.
type OperatorOption func(*Operator)

// WithOperatorMetrics attaches a metrics recorder to the operator.
func WithOperatorMetrics(m *instrumentation.Metrics) OperatorOption {
	return func(o *Operator) {
		o.metrics = m
	}
}

// WithOperatorLogger overrides the operator logger.
func WithOperatorLogger(l *slog.Logger) OperatorOption {
	return func(o *Operator) {
		o.logger = l
	}
}

// NewOperator creates an Operator over the given message API.
func NewOperator(api MessageAPI, cfg OperatorConfig, opts ...OperatorOption) *Operator {
	if cfg.PageSize <= 0 {
		cfg = DefaultOperatorConfig()
	}
	o := &Operator{
		api:    api,
		cfg:    cfg,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// DeleteAll trashes every inbox message from the sender, page by page. Each
// page is trashed concurrently and joined before the next page is fetched.
// A failed first page fetch aborts the batch before any message is touched;
// individual trash failures are counted, not fatal.
func (o *Operator) DeleteAll(ctx context.Context, sender string) (result *BulkResult, err error) {
	ctx, span := instrumentation.StartOperationSpan(ctx, "delete_all")
	defer func() {
		if result != nil {
			instrumentation.SetSpanMessageCount(span, result.TotalProcessed)
		}
		instrumentation.RecordSpanError(span, err)
		span.End()
	}()

	query := fmt.Sprintf("in:inbox from:%s", sender)
	result = &BulkResult{}
	domain := senderDomain(sender)

	pageToken := ""
	for {
		msgs, next, err := o.searchPage(ctx, query, pageToken)
		if err != nil {
			if result.TotalProcessed == 0 {
				return nil, fmt.Errorf("failed to list messages from %s: %w", sender, err)
			}
			return result, fmt.Errorf("failed to list messages from %s after %d processed: %w", sender, result.TotalProcessed, err)
		}
		if len(msgs) == 0 {
			break
		}

		deleted, failed := o.trashPage(ctx, msgs)
		result.TotalProcessed += len(msgs)
		result.DeletedCount += deleted
		result.FailedCount += failed

		if o.metrics != nil {
			o.metrics.RecordMessagesTrashed(ctx, domain, int64(deleted), int64(failed))
		}

		if next == "" || result.TotalProcessed >= o.cfg.MaxProcessed {
			break
		}
		pageToken = next

		if err := sleepCtx(ctx, o.cfg.PageDelay); err != nil {
			return result, err
		}
	}

	o.logger.Info("bulk delete finished",
		"sender_domain", domain,
		"processed", result.TotalProcessed,
		"deleted", result.DeletedCount,
		"failed", result.FailedCount,
	)
	return result, nil
}

// KeepLatestN trashes all inbox messages from the sender except the n most
// recent ones. Recency uses the Gmail internal timestamp, fetched per message.
// When nothing needs deleting no trash call is made at all.
func (o *Operator) KeepLatestN(ctx context.Context, sender string, n int) (result *BulkResult, err error) {
	ctx, span := instrumentation.StartOperationSpan(ctx, "keep_latest")
	defer func() {
		if result != nil {
			instrumentation.SetSpanMessageCount(span, result.TotalProcessed)
		}
		instrumentation.RecordSpanError(span, err)
		span.End()
	}()

	query := fmt.Sprintf("in:inbox from:%s", sender)
	domain := senderDomain(sender)

	type stamped struct {
		id   string
		date int64
	}

	var all []stamped
	pageToken := ""
	for {
		msgs, next, err := o.searchPage(ctx, query, pageToken)
		if err != nil {
			if len(all) == 0 {
				return nil, fmt.Errorf("failed to list messages from %s: %w", sender, err)
			}
			return nil, fmt.Errorf("failed to list messages from %s after %d collected: %w", sender, len(all), err)
		}

		for _, m := range msgs {
			date := o.internalDate(ctx, m.Id)
			all = append(all, stamped{id: m.Id, date: date})
		}

		if next == "" || len(all) >= o.cfg.MaxProcessed {
			break
		}
		pageToken = next

		if err := sleepCtx(ctx, o.cfg.PageDelay); err != nil {
			return nil, err
		}
	}

	sort.Slice(all, func(i, j int) bool { return all[i].date > all[j].date })

	result = &BulkResult{TotalProcessed: len(all)}
	if len(all) <= n {
		result.KeptCount = len(all)
		return result, nil
	}
	result.KeptCount = n

	for i, s := range all[n:] {
		if i > 0 && o.cfg.PaceEvery > 0 && i%o.cfg.PaceEvery == 0 {
			if err := sleepCtx(ctx, o.cfg.PageDelay); err != nil {
				return result, err
			}
		}
		if err := o.trashOne(ctx, s.id); err != nil {
			o.logger.Warn("failed to trash message", "sender_domain", domain, logging.Err(err))
			result.FailedCount++
			continue
		}
		result.DeletedCount++
	}

	if o.metrics != nil {
		o.metrics.RecordMessagesTrashed(ctx, domain, int64(result.DeletedCount), int64(result.FailedCount))
	}

	o.logger.Info("keep latest finished",
		"sender_domain", domain,
		"processed", result.TotalProcessed,
		"kept", result.KeptCount,
		"deleted", result.DeletedCount,
		"failed", result.FailedCount,
	)
	return result, nil
}

// searchPage fetches one page of stubs with a bounded per-call timeout.
func (o *Operator) searchPage(ctx context.Context, query, pageToken string) ([]*gmailapi.Message, string, error) {
	callCtx, cancel := context.WithTimeout(ctx, o.cfg.RequestTimeout)
	defer cancel()
	return o.api.SearchMessages(callCtx, query, o.cfg.PageSize, pageToken)
}

// trashPage trashes all messages of one page concurrently and waits for the
// whole fan-out to finish.
func (o *Operator) trashPage(ctx context.Context, msgs []*gmailapi.Message) (deleted, failed int) {
	var wg sync.WaitGroup
	var mu sync.Mutex

	for _, m := range msgs {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			err := o.trashOne(ctx, id)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed++
				return
			}
			deleted++
		}(m.Id)
	}
	wg.Wait()

	return deleted, failed
}

// trashOne trashes a single message, retrying explicit rate limits with
// exponential backoff before giving up.
func (o *Operator) trashOne(ctx context.Context, id string) error {
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		callCtx, cancel := context.WithTimeout(ctx, o.cfg.RequestTimeout)
		defer cancel()

		err := o.api.TrashMessage(callCtx, id)
		if err == nil {
			return struct{}{}, nil
		}
		if isRateLimited(err) {
			return struct{}{}, err
		}
		return struct{}{}, backoff.Permanent(err)
	},
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(4),
	)
	return err
}

// internalDate fetches the Gmail internal timestamp for a message. Failures
// degrade to zero so the message sorts as oldest and stays deletable.
func (o *Operator) internalDate(ctx context.Context, id string) int64 {
	callCtx, cancel := context.WithTimeout(ctx, o.cfg.RequestTimeout)
	defer cancel()

	msg, err := o.api.GetMessage(callCtx, id, "minimal")
	if err != nil {
		o.logger.Warn("failed to fetch message timestamp", logging.Err(err))
		return 0
	}
	return msg.InternalDate
}

// isRateLimited reports whether err is an explicit Gmail API rate limit.
func isRateLimited(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == 429
}

// sleepCtx pauses for d unless the context ends first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// senderDomain extracts the domain label used on metrics and logs.
func senderDomain(sender string) string {
	for i := len(sender) - 1; i >= 0; i-- {
		if sender[i] == '@' {
			return sender[i+1:]
		}
	}
	return sender
}
