package cmd

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
	gmailapi "google.golang.org/api/gmail/v1"

	"github.com/cleanymail/cleany/internal/cache"
	"github.com/cleanymail/cleany/internal/classify"
	"github.com/cleanymail/cleany/internal/gmail"
	"github.com/cleanymail/cleany/internal/google"
	"github.com/cleanymail/cleany/internal/prefs"
)

// errFetchLimit stops inbox pagination once enough messages are collected.
var errFetchLimit = errors.New("message limit reached")

// topSenders caps the sender-count listing in suggest output.
const topSenders = 10

func newSuggestCmd() *cobra.Command {
	var (
		account string
		limit   int
		refresh bool
	)

	cmd := &cobra.Command{
		Use:   "suggest",
		Short: "Suggest triage actions for recent inbox mail",
		Long: `Fetch recent inbox messages and suggest an action for each sender. Learned
preferences are applied first; when a classifier endpoint is configured, the
remaining messages are sent there for a second opinion. Suggestions are never
executed automatically.

Fetched messages are cached for a few minutes so repeated runs stay fast;
--refresh forces a new fetch.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := context.Background()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.shutdown(ctx)

			msgs, err := a.fetchInbox(ctx, account, limit, refresh)
			if err != nil {
				return err
			}
			if len(msgs) == 0 {
				cmd.Println("Inbox is empty, nothing to suggest.")
				return nil
			}

			store, learner, err := a.prefsStore()
			if err != nil {
				return err
			}
			defer store.Close()

			suggestions, err := learner.ApplyPreferences(ctx, msgs, a.cfg.MinConfidence)
			if err != nil {
				return err
			}

			// Ask the classifier about messages no learned preference covers.
			if a.cfg.ClassifierEnabled() {
				a.fillFromClassifier(ctx, msgs, suggestions)
			}

			for i, s := range suggestions {
				subject := msgs[i].Subject
				if s.Suggestion != nil {
					cmd.Printf("%-12s %s | %s\n    %s\n",
						s.Suggestion.Action, s.Sender, subject, s.Suggestion.Reason)
					continue
				}
				cmd.Printf("%-12s %s | %s\n    %s\n", "(none)", s.Sender, subject, s.Reason)
			}

			groups := gmail.GroupBySender(msgs)
			if len(groups) > topSenders {
				groups = groups[:topSenders]
			}
			cmd.Println("\nNoisiest senders:")
			for _, g := range groups {
				cmd.Printf("  %4d  %s\n", g.Count, g.Sender)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&account, "account", google.DefaultAccount, "Google account name to use")
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum number of messages to fetch")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "Ignore the cached inbox snapshot")
	return cmd
}

// fetchInbox returns recent decoded inbox messages, served from the snapshot
// cache when fresh.
func (a *app) fetchInbox(ctx context.Context, account string, limit int, refresh bool) ([]*gmail.Message, error) {
	snapshots := cache.NewStore("")

	if !refresh {
		if msgs, ok := snapshots.Get(account); ok {
			a.logger.Debug("using cached inbox snapshot", "messages", len(msgs))
			return msgs, nil
		}
	}

	client, err := a.gmailClient(ctx, account)
	if err != nil {
		return nil, err
	}

	decoder := gmail.NewDecoder(gmail.DefaultDecoderConfig())
	var msgs []*gmail.Message

	pageSize := a.cfg.PageSize
	if int64(limit) < pageSize {
		pageSize = int64(limit)
	}

	err = client.ForeachMessagePage(ctx, "in:inbox", pageSize, func(stubs []*gmailapi.Message) error {
		for _, stub := range stubs {
			if len(msgs) >= limit {
				return errFetchLimit
			}
			full, err := client.GetMessage(ctx, stub.Id, "full")
			if err != nil {
				a.logger.Warn("failed to fetch message", "error", err)
				continue
			}
			msgs = append(msgs, decoder.Decode(full))
		}
		return nil
	})
	if err != nil && !errors.Is(err, errFetchLimit) {
		return nil, err
	}

	if err := snapshots.Put(account, msgs); err != nil {
		a.logger.Warn("failed to cache inbox snapshot", "error", err)
	}
	return msgs, nil
}

// fillFromClassifier asks the classifier about messages without a learned
// suggestion and merges its verdicts in. Classifier failures only log.
func (a *app) fillFromClassifier(ctx context.Context, msgs []*gmail.Message, suggestions []prefs.MessageSuggestion) {
	var pending []*gmail.Message
	var pendingIdx []int
	for i, s := range suggestions {
		if s.Suggestion == nil {
			pending = append(pending, msgs[i])
			pendingIdx = append(pendingIdx, i)
		}
	}
	if len(pending) == 0 {
		return
	}

	client := classify.NewClient(a.cfg.ClassifierURL, a.cfg.ClassifierKey, a.cfg.ClassifierModel)
	verdicts, err := client.Classify(ctx, pending)
	if err != nil {
		a.logger.Warn("classifier unavailable, continuing without it", "error", err)
		return
	}

	for _, v := range verdicts {
		if v.Index < 0 || v.Index >= len(pendingIdx) {
			continue
		}
		i := pendingIdx[v.Index]
		suggestions[i].Suggestion = &prefs.Suggestion{
			Action: v.Action,
			Reason: v.Reason,
		}
		suggestions[i].Reason = ""
	}
}
