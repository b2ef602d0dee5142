// Package runner orchestrates a single watch run: load state, fetch,
// extract, fingerprint, detect, notify, save.
package runner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jakepage91/page-watcher/internal/extract"
	"github.com/jakepage91/page-watcher/internal/fingerprint"
	"github.com/jakepage91/page-watcher/internal/metrics"
	"github.com/jakepage91/page-watcher/internal/notify"
	"github.com/jakepage91/page-watcher/internal/watcher"
)

// ErrNotificationsFailed is returned when a change warranted notification
// but every configured channel failed. State has already been saved at
// that point; the next run will not re-detect the same change.
var ErrNotificationsFailed = errors.New("all notification channels failed")

// Options wires a Runner. Fetcher, Store, Engine and Dispatcher are
// required; Metrics is optional.
type Options struct {
	URL         string
	Selector    string
	Keywords    []string
	UserAgent   string
	ForceNotify bool

	Fetcher    watcher.Fetcher
	Store      watcher.StateStore
	Engine     *fingerprint.Engine
	Dispatcher *notify.Dispatcher
	Metrics    *metrics.Metrics
	Clock      watcher.Clock
	IDs        watcher.IDGenerator
	Logger     *zap.Logger
}

// Summary reports what one run did.
type Summary struct {
	RunID          string
	Verdict        watcher.Verdict
	Results        []watcher.NotificationResult
	SelectorMissed bool
	FetchAttempts  int
}

// Runner executes watch runs. A Runner is built once per process; each
// Run is independent.
type Runner struct {
	opts Options
}

// New validates the wiring and returns a Runner.
func New(opts Options) (*Runner, error) {
	if strings.TrimSpace(opts.URL) == "" {
		return nil, fmt.Errorf("runner: url is required")
	}
	if opts.Fetcher == nil {
		return nil, fmt.Errorf("runner: fetcher is required")
	}
	if opts.Store == nil {
		return nil, fmt.Errorf("runner: state store is required")
	}
	if opts.Engine == nil {
		return nil, fmt.Errorf("runner: fingerprint engine is required")
	}
	if opts.Dispatcher == nil {
		return nil, fmt.Errorf("runner: dispatcher is required")
	}
	if opts.Clock == nil {
		return nil, fmt.Errorf("runner: clock is required")
	}
	if opts.IDs == nil {
		return nil, fmt.Errorf("runner: id generator is required")
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Runner{opts: opts}, nil
}

// Run performs one complete check. State is only saved after a successful
// fetch and detection pass; a fetch failure leaves the previous record
// untouched so the change is caught on a later run. Notification failures
// do not prevent the save.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	start := r.opts.Clock.Now()

	runID, err := r.opts.IDs.NewID()
	if err != nil {
		return Summary{}, fmt.Errorf("generate run id: %w", err)
	}
	logger := r.opts.Logger.With(zap.String("run_id", runID), zap.String("url", r.opts.URL))
	logger.Info("watch run starting",
		zap.String("selector", r.opts.Selector),
		zap.Strings("keywords", r.opts.Keywords),
		zap.Bool("force_notify", r.opts.ForceNotify),
	)

	state, err := r.opts.Store.Load(ctx)
	if err != nil {
		if !errors.Is(err, watcher.ErrNoState) {
			r.observeRun("load_failure", start)
			return Summary{RunID: runID}, fmt.Errorf("load state: %w", err)
		}
		logger.Info("no prior state, treating as first run")
		state = watcher.WatchState{}
	}

	resp, err := r.opts.Fetcher.Fetch(ctx, watcher.FetchRequest{
		URL:       r.opts.URL,
		UserAgent: r.opts.UserAgent,
	})
	if err != nil {
		var fetchErr *watcher.FetchError
		if errors.As(err, &fetchErr) {
			r.observeFetchAttempts(fetchErr.Attempts)
		}
		r.observeRun("fetch_failure", start)
		return Summary{RunID: runID}, err
	}
	r.observeFetchAttempts(resp.Attempts)
	logger.Info("page fetched",
		zap.Int("status", resp.StatusCode),
		zap.Int("bytes", len(resp.Body)),
		zap.Int("attempts", resp.Attempts),
		zap.Duration("duration", resp.Duration),
	)

	extracted, err := extract.Extract(resp.Body, r.opts.Selector)
	if err != nil {
		r.observeRun("extract_failure", start)
		return Summary{RunID: runID, FetchAttempts: resp.Attempts}, fmt.Errorf("extract content: %w", err)
	}
	if extracted.SelectorMissed {
		logger.Warn("selector matched nothing, watching whole page",
			zap.String("selector", r.opts.Selector),
		)
	}

	current, err := r.opts.Engine.Compute(extracted.Text, r.opts.Keywords)
	if err != nil {
		r.observeRun("fingerprint_failure", start)
		return Summary{RunID: runID, FetchAttempts: resp.Attempts}, err
	}

	verdict := watcher.Detect(state, current)
	if r.opts.Metrics != nil {
		r.opts.Metrics.VerdictsTotal.WithLabelValues(string(verdict.Kind)).Inc()
	}
	logger.Info("detection complete",
		zap.String("verdict", string(verdict.Kind)),
		zap.Strings("keywords_added", verdict.Added),
		zap.Strings("keywords_removed", verdict.Removed),
	)

	now := r.opts.Clock.Now().UTC()
	msg := notify.Render(runID, r.opts.URL, verdict, now, r.opts.ForceNotify)
	results := r.opts.Dispatcher.Dispatch(ctx, verdict, msg, r.opts.ForceNotify)
	for _, res := range results {
		if r.opts.Metrics != nil {
			r.opts.Metrics.ObserveNotification(res.Channel, res.Success)
		}
	}

	checked := now
	state.LastFingerprint = &current
	state.LastCheckedAt = &checked
	state.LastMatch = strings.Join(current.KeywordHits, ",")
	if anySucceeded(results) {
		notified := checked
		state.LastNotifiedAt = &notified
	}
	if err := r.opts.Store.Save(ctx, state); err != nil {
		r.observeRun("save_failure", start)
		return Summary{
			RunID:          runID,
			Verdict:        verdict,
			Results:        results,
			SelectorMissed: extracted.SelectorMissed,
			FetchAttempts:  resp.Attempts,
		}, fmt.Errorf("save state: %w", err)
	}

	summary := Summary{
		RunID:          runID,
		Verdict:        verdict,
		Results:        results,
		SelectorMissed: extracted.SelectorMissed,
		FetchAttempts:  resp.Attempts,
	}

	if notify.AllFailed(results) {
		r.observeRun("notify_failure", start)
		return summary, ErrNotificationsFailed
	}

	r.observeRun("success", start)
	logger.Info("watch run complete", zap.String("verdict", string(verdict.Kind)))
	return summary, nil
}

func anySucceeded(results []watcher.NotificationResult) bool {
	for _, r := range results {
		if r.Success {
			return true
		}
	}
	return false
}

func (r *Runner) observeFetchAttempts(attempts int) {
	if r.opts.Metrics == nil || attempts <= 0 {
		return
	}
	r.opts.Metrics.FetchAttempts.Add(float64(attempts))
}

func (r *Runner) observeRun(outcome string, start time.Time) {
	if r.opts.Metrics == nil {
		return
	}
	r.opts.Metrics.RunsTotal.WithLabelValues(outcome).Inc()
	r.opts.Metrics.RunDurationSeconds.Observe(r.opts.Clock.Now().Sub(start).Seconds())
}
