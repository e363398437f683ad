package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cleanymail/cleany/internal/cache"
	"github.com/cleanymail/cleany/internal/google"
	"github.com/cleanymail/cleany/internal/prefs"
	"github.com/cleanymail/cleany/internal/triage"
)

func newCleanupCmd() *cobra.Command {
	var (
		account    string
		sender     string
		keepLatest int
	)

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Bulk-delete inbox mail from a sender",
		Long: `Move every inbox message from a sender to the trash. With --keep-latest N
the N most recent messages survive. Deletions are paced and capped so a single
run never touches more than the configured maximum number of messages.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if sender == "" {
				return fmt.Errorf("--sender is required")
			}
			if keepLatest < 0 {
				return fmt.Errorf("--keep-latest must not be negative")
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

			// Never bulk-delete a protected system sender.
			msg, err := latestFrom(ctx, client, sender)
			if err != nil {
				return err
			}
			if triage.NewGuard(nil, nil).IsProtected(msg) {
				return fmt.Errorf("%s looks like a system or transactional sender; refusing to bulk-delete", sender)
			}

			op := a.operator(client)

			var result *triage.BulkResult
			if keepLatest > 0 {
				result, err = op.KeepLatestN(ctx, sender, keepLatest)
			} else {
				result, err = op.DeleteAll(ctx, sender)
			}
			if err != nil {
				return err
			}

			cmd.Printf("Processed %d messages from %s: deleted %d, kept %d, failed %d\n",
				result.TotalProcessed, sender, result.DeletedCount, result.KeptCount, result.FailedCount)

			if result.DeletedCount == 0 {
				return nil
			}

			// The cached inbox snapshot no longer reflects reality.
			if err := cache.NewStore("").Invalidate(account); err != nil {
				a.logger.Warn("failed to invalidate inbox snapshot", "error", err)
			}

			store, learner, err := a.prefsStore()
			if err != nil {
				return err
			}
			defer store.Close()

			if err := learner.Learn(ctx, []prefs.SenderAction{
				{Sender: sender, Action: prefs.ActionDelete},
			}); err != nil {
				a.logger.Warn("failed to record preference", "error", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&account, "account", google.DefaultAccount, "Google account name to use")
	cmd.Flags().StringVar(&sender, "sender", "", "Sender address to clean up")
	cmd.Flags().IntVar(&keepLatest, "keep-latest", 0, "Keep this many most recent messages (0 deletes everything)")
	return cmd
}
