package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/storage"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jakepage91/page-watcher/internal/clock/system"
	"github.com/jakepage91/page-watcher/internal/config"
	collyfetcher "github.com/jakepage91/page-watcher/internal/fetcher/colly"
	"github.com/jakepage91/page-watcher/internal/fingerprint"
	"github.com/jakepage91/page-watcher/internal/hash/sha256"
	"github.com/jakepage91/page-watcher/internal/id/uuid"
	"github.com/jakepage91/page-watcher/internal/logging"
	"github.com/jakepage91/page-watcher/internal/metrics"
	"github.com/jakepage91/page-watcher/internal/notify"
	"github.com/jakepage91/page-watcher/internal/runner"
	filestate "github.com/jakepage91/page-watcher/internal/state/file"
	gcsstate "github.com/jakepage91/page-watcher/internal/state/gcs"
	"github.com/jakepage91/page-watcher/internal/watcher"
)

func newRunCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Perform one watch check and exit.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := loadEnvFile(); err != nil {
				return &configError{err: err}
			}

			cfg, err := config.Load()
			if err != nil {
				return &configError{err: err}
			}
			if force {
				cfg.Watch.ForceNotify = true
			}

			logger, err := logging.New(cfg.Logging.Development, cfg.Logging.File)
			if err != nil {
				return &configError{err: fmt.Errorf("build logger: %w", err)}
			}
			defer func() { _ = logger.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return runWatch(ctx, cfg, logger)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "send notifications regardless of the detection verdict")

	return cmd
}

func runWatch(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	m := metrics.New()

	fetcher := collyfetcher.New(collyfetcher.Config{
		UserAgent: cfg.Watch.UserAgent,
		Timeout:   cfg.Fetch.Timeout(),
		Retry: watcher.NewRetryPolicy(
			cfg.Fetch.MaxAttempts,
			cfg.Fetch.BackoffInitial(),
			cfg.Fetch.BackoffMax(),
		),
	}, logger)

	store, cleanup, err := buildStateStore(ctx, cfg, logger)
	if err != nil {
		return &configError{err: err}
	}
	defer cleanup()

	channels, channelCleanup, err := buildChannels(ctx, cfg)
	if err != nil {
		return &configError{err: err}
	}
	defer channelCleanup()
	if len(channels) == 0 {
		logger.Warn("no notification channels configured; changes will only be logged")
	}

	dispatcher := notify.NewDispatcher(
		channels,
		watcher.NewRetryPolicy(cfg.Notify.MaxAttempts, time.Second, 4*time.Second),
		logger,
	)

	clock := system.New()
	run, err := runner.New(runner.Options{
		URL:         cfg.Watch.URL,
		Selector:    cfg.Watch.Selector,
		Keywords:    cfg.Watch.Keywords(),
		UserAgent:   cfg.Watch.UserAgent,
		ForceNotify: cfg.Watch.ForceNotify,
		Fetcher:     fetcher,
		Store:       store,
		Engine:      fingerprint.New(sha256.New(), clock, cfg.Watch.HashCaseFold),
		Dispatcher:  dispatcher,
		Metrics:     m,
		Clock:       clock,
		IDs:         uuid.New(),
		Logger:      logger,
	})
	if err != nil {
		return &configError{err: err}
	}

	summary, runErr := run.Run(ctx)

	if pushErr := m.Push(cfg.Metrics.PushgatewayURL, "page_watcher"); pushErr != nil {
		// Metrics delivery never changes the run outcome.
		logger.Warn("metrics push failed", zap.Error(pushErr))
	}

	if runErr != nil {
		logger.Error("watch run failed",
			zap.String("run_id", summary.RunID),
			zap.Error(runErr),
		)
		return runErr
	}
	return nil
}

// buildStateStore constructs the configured backend. The returned cleanup
// releases any client the backend holds.
func buildStateStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (watcher.StateStore, func(), error) {
	switch cfg.State.Backend {
	case "file":
		store, err := filestate.New(cfg.State.Path, logger)
		if err != nil {
			return nil, nil, err
		}
		return store, func() {}, nil
	case "gcs":
		client, err := storage.NewClient(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("create gcs client: %w", err)
		}
		store, err := gcsstate.New(client, gcsstate.Config{
			Bucket: cfg.State.Bucket,
			Object: cfg.State.Object,
		}, logger)
		if err != nil {
			_ = client.Close()
			return nil, nil, err
		}
		return store, func() { _ = client.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown state backend %q", cfg.State.Backend)
	}
}

// buildChannels constructs every fully-configured notification channel.
// Partially-configured channels were already rejected by config validation.
func buildChannels(ctx context.Context, cfg config.Config) ([]watcher.Channel, func(), error) {
	var (
		channels []watcher.Channel
		closers  []func()
	)
	cleanup := func() {
		for _, c := range closers {
			c()
		}
	}

	if cfg.Email.Configured() {
		email, err := notify.NewEmail(notify.EmailConfig{
			Host:     cfg.Email.Host,
			Port:     cfg.Email.Port,
			Username: cfg.Email.Username,
			Password: cfg.Email.Password,
			From:     cfg.Email.From,
			To:       cfg.Email.To,
		})
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		channels = append(channels, email)
	}

	if cfg.WhatsApp.Configured() {
		wa, err := notify.NewWhatsApp(notify.WhatsAppConfig{
			AccountSID: cfg.WhatsApp.AccountSID,
			AuthToken:  cfg.WhatsApp.AuthToken,
			From:       cfg.WhatsApp.From,
			To:         cfg.WhatsApp.To,
		})
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		channels = append(channels, wa)
	}

	if cfg.PubSub.Configured() {
		ps, err := notify.NewPubSub(ctx, notify.PubSubConfig{
			ProjectID: cfg.PubSub.ProjectID,
			Topic:     cfg.PubSub.Topic,
		})
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		channels = append(channels, ps)
		closers = append(closers, func() { _ = ps.Close() })
	}

	return channels, cleanup, nil
}
