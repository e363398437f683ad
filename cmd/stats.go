package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cleanymail/cleany/internal/classify"
	"github.com/cleanymail/cleany/internal/server"
)

func newStatsCmd() *cobra.Command {
	var (
		weeks        int
		personality  bool
		serveMetrics bool
		metricsAddr  string
	)

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show triage statistics and learned preferences",
		Long: `Print the weekly triage summaries and the learned sender preferences.
With --personality and a configured classifier endpoint, a short blurb about
your email habits is included.

With --serve-metrics the command additionally exposes Prometheus metrics and
blocks until interrupted.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := context.Background()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.shutdown(ctx)

			store, _, err := a.prefsStore()
			if err != nil {
				return err
			}
			defer store.Close()

			summaries, err := store.ListWeeklySummaries(ctx, weeks)
			if err != nil {
				return err
			}

			if len(summaries) == 0 {
				cmd.Println("No triage activity recorded yet.")
			} else {
				cmd.Println("Week starting  processed  kept  deleted  unsubscribed  auto")
				var processed, kept, deleted, unsubscribed int64
				for _, s := range summaries {
					cmd.Printf("%-14s %9d %5d %8d %13d %5d\n",
						s.WeekStart, s.EmailsProcessed, s.EmailsKept,
						s.EmailsDeleted, s.EmailsUnsubscribed, s.AutoActionsApplied)
					processed += s.EmailsProcessed
					kept += s.EmailsKept
					deleted += s.EmailsDeleted
					unsubscribed += s.EmailsUnsubscribed
				}

				if personality && a.cfg.ClassifierEnabled() && processed > 0 {
					c := classify.NewClient(a.cfg.ClassifierURL, a.cfg.ClassifierKey, a.cfg.ClassifierModel)
					blurb, err := c.Summarize(ctx,
						percent(kept, processed),
						percent(deleted, processed),
						percent(unsubscribed, processed))
					if err != nil {
						a.logger.Warn("summary unavailable", "error", err)
					} else {
						cmd.Printf("\n%s\n", blurb)
					}
				}
			}

			prefRows, err := store.ListPreferences(ctx, 0)
			if err != nil {
				return err
			}
			if len(prefRows) > 0 {
				cmd.Println("\nLearned preferences:")
				for _, p := range prefRows {
					cmd.Printf("  %-30s %-12s %3.0f%% (%d actions)\n",
						p.SenderPattern, p.PreferredAction, p.Confidence*100, p.ActionCount)
				}
			}

			if !serveMetrics {
				return nil
			}

			metricsServer, err := server.NewMetricsServer(server.MetricsServerConfig{
				Addr:                    metricsAddr,
				Enabled:                 true,
				InstrumentationProvider: a.provider,
			})
			if err != nil {
				return err
			}

			errCh := make(chan error, 1)
			go func() {
				if err := metricsServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
			}()

			cmd.Printf("\nServing metrics on %s, press Ctrl+C to stop.\n", metricsServer.Addr())

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

			select {
			case err := <-errCh:
				return err
			case <-sigCh:
			}

			shutdownCtx, cancel := context.WithTimeout(ctx, server.DefaultShutdownTimeout)
			defer cancel()
			return metricsServer.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().IntVar(&weeks, "weeks", 8, "Number of recent weeks to show")
	cmd.Flags().BoolVar(&personality, "personality", false, "Include a classifier-written blurb about your email habits")
	cmd.Flags().BoolVar(&serveMetrics, "serve-metrics", false, "Expose Prometheus metrics and block")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", server.DefaultMetricsAddr, "Address for the metrics endpoint")
	return cmd
}

func percent(part, total int64) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}
