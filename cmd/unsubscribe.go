package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cleanymail/cleany/internal/gmail"
	"github.com/cleanymail/cleany/internal/google"
	"github.com/cleanymail/cleany/internal/prefs"
	"github.com/cleanymail/cleany/internal/triage"
)

func newUnsubscribeCmd() *cobra.Command {
	var (
		account string
		sender  string
		execute bool
	)

	cmd := &cobra.Command{
		Use:   "unsubscribe",
		Short: "Find (and optionally fire) the unsubscribe link for a sender",
		Long: `Fetch the most recent inbox message from a sender, locate its unsubscribe
mechanism and print it. With --execute the link is requested immediately.
Mailto links are only printed; they require a manually sent email.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if sender == "" {
				return fmt.Errorf("--sender is required")
			}

			ctx := context.Background()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.shutdown(ctx)

			client, err := a.gmailClient(ctx, account)
			if err != nil {
				return err
			}

			msg, err := latestFrom(ctx, client, sender)
			if err != nil {
				return err
			}

			resolution := a.resolver().Resolve(ctx, msg)
			switch resolution.Outcome {
			case triage.OutcomeSkippedSystem:
				cmd.Printf("%s looks like a system or transactional sender; skipping.\n", sender)
				return nil
			case triage.OutcomeNotFound:
				cmd.Printf("No unsubscribe mechanism found for %s.\n", sender)
				return nil
			}

			cand := resolution.Candidate
			cmd.Printf("Unsubscribe for %s:\n  %s %s\n", sender, cand.Method, cand.URL)

			if cand.Method == triage.MethodMailto {
				cmd.Println("This is a mailto link; send the email manually to unsubscribe.")
				return nil
			}

			if !execute {
				cmd.Println("Re-run with --execute to send the unsubscribe request.")
				return nil
			}

			executor := triage.NewExecutor(
				triage.WithExecutorTimeout(a.cfg.RequestTimeout),
				triage.WithExecutorMetrics(a.provider.Metrics()),
			)
			if err := executor.Execute(ctx, cand); err != nil {
				return fmt.Errorf("unsubscribe failed: %w", err)
			}
			cmd.Println("Unsubscribe request sent.")

			store, learner, err := a.prefsStore()
			if err != nil {
				return err
			}
			defer store.Close()

			if err := learner.Learn(ctx, []prefs.SenderAction{
				{Sender: sender, Action: prefs.ActionUnsubscribe},
			}); err != nil {
				a.logger.Warn("failed to record preference", "error", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&account, "account", google.DefaultAccount, "Google account name to use")
	cmd.Flags().StringVar(&sender, "sender", "", "Sender address to unsubscribe from")
	cmd.Flags().BoolVar(&execute, "execute", false, "Send the unsubscribe request instead of just printing it")
	return cmd
}

// latestFrom fetches and decodes the most recent inbox message from a sender.
func latestFrom(ctx context.Context, client *gmail.Client, sender string) (*gmail.Message, error) {
	stubs, _, err := client.SearchMessages(ctx, fmt.Sprintf("in:inbox from:%s", sender), 1, "")
	if err != nil {
		return nil, err
	}
	if len(stubs) == 0 {
		return nil, fmt.Errorf("no inbox messages from %s", sender)
	}

	full, err := client.GetMessage(ctx, stubs[0].Id, "full")
	if err != nil {
		return nil, err
	}

	return gmail.NewDecoder(gmail.DefaultDecoderConfig()).Decode(full), nil
}
