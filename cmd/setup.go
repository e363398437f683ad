package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cleanymail/cleany/internal/config"
	"github.com/cleanymail/cleany/internal/gmail"
	"github.com/cleanymail/cleany/internal/instrumentation"
	"github.com/cleanymail/cleany/internal/logging"
	"github.com/cleanymail/cleany/internal/prefs"
	"github.com/cleanymail/cleany/internal/triage"
)

// app bundles the shared wiring every command needs: configuration, logging
// and the instrumentation provider.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	provider *instrumentation.Provider
}

// newApp loads configuration, installs the logger and starts instrumentation.
func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	icfg := instrumentation.DefaultConfig()
	icfg.ServiceVersion = version
	if err := icfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid instrumentation config: %w", err)
	}

	provider, err := instrumentation.NewProvider(ctx, icfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize instrumentation: %w", err)
	}

	return &app{
		cfg:      cfg,
		logger:   logger,
		provider: provider,
	}, nil
}

// shutdown flushes telemetry.
func (a *app) shutdown(ctx context.Context) {
	if err := a.provider.Shutdown(ctx); err != nil {
		a.logger.Warn("instrumentation shutdown failed", "error", err)
	}
}

// gmailClient builds an authenticated Gmail client for the account.
func (a *app) gmailClient(ctx context.Context, account string) (*gmail.Client, error) {
	client, err := gmail.NewClientForAccount(ctx, account,
		gmail.WithMetrics(a.provider.Metrics()))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail client for account %s: %w", account, err)
	}
	return client, nil
}

// operator builds the bulk operator over the Gmail client with the configured
// pacing.
func (a *app) operator(client *gmail.Client) *triage.Operator {
	return triage.NewOperator(client, triage.OperatorConfig{
		PageSize:       a.cfg.PageSize,
		MaxProcessed:   a.cfg.MaxBulkRecords,
		PageDelay:      a.cfg.PageDelay,
		PaceEvery:      a.cfg.DeletePaceN,
		RequestTimeout: a.cfg.RequestTimeout,
	},
		triage.WithOperatorMetrics(a.provider.Metrics()),
		triage.WithOperatorLogger(a.logger),
	)
}

// resolver builds the unsubscribe resolver with default guard lists.
func (a *app) resolver() *triage.Resolver {
	validator := triage.NewValidator(triage.WithValidatorTimeout(a.cfg.RequestTimeout))
	return triage.NewResolver(
		triage.NewGuard(nil, nil),
		validator,
		triage.WithResolverMetrics(a.provider.Metrics()),
		triage.WithResolverLogger(a.logger),
	)
}

// prefsStore opens the preference database and wraps it in a learner.
func (a *app) prefsStore() (*prefs.Store, *prefs.Learner, error) {
	store, err := prefs.Open(a.cfg.DatabasePath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open preference store: %w", err)
	}
	learner := prefs.NewLearner(store, prefs.WithLearnerMetrics(a.provider.Metrics()))
	return store, learner, nil
}
