// Package notify renders change notifications and dispatches them across
// the configured channels.
package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jakepage91/page-watcher/internal/watcher"
)

// Dispatcher attempts delivery through every configured channel. A channel
// failure never blocks the others; failures are collected into the per-run
// results rather than raised immediately.
type Dispatcher struct {
	channels []watcher.Channel
	retry    *watcher.RetryPolicy
	logger   *zap.Logger
}

// NewDispatcher builds a Dispatcher. retry governs each channel's own
// attempt budget (smaller than the fetcher's).
func NewDispatcher(channels []watcher.Channel, retry *watcher.RetryPolicy, logger *zap.Logger) *Dispatcher {
	if retry == nil {
		retry = watcher.NewRetryPolicy(2, time.Second, 4*time.Second)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{channels: channels, retry: retry, logger: logger}
}

// Dispatch sends msg through all channels when the verdict warrants it.
// FirstRun and Unchanged verdicts are no-ops unless force is set, which
// bypasses verdict gating entirely (connectivity testing). The returned
// slice has one entry per configured channel, or is empty on a no-op.
func (d *Dispatcher) Dispatch(ctx context.Context, verdict watcher.Verdict, msg watcher.Message, force bool) []watcher.NotificationResult {
	if !verdict.Notifiable() && !force {
		return nil
	}
	if len(d.channels) == 0 {
		d.logger.Warn("change detected but no notification channels configured")
		return nil
	}

	results := make([]watcher.NotificationResult, 0, len(d.channels))
	for _, ch := range d.channels {
		attempts, err := d.retry.Do(ctx, func(ctx context.Context) error {
			return ch.Send(ctx, msg)
		})
		if err != nil {
			sendErr := &watcher.SendError{Channel: ch.Name(), Attempts: attempts, Err: err}
			d.logger.Error("notification failed",
				zap.String("channel", ch.Name()),
				zap.Int("attempts", attempts),
				zap.Error(err),
			)
			results = append(results, watcher.NotificationResult{
				Channel:  ch.Name(),
				Success:  false,
				Attempts: attempts,
				Err:      sendErr,
			})
			continue
		}
		d.logger.Info("notification sent",
			zap.String("channel", ch.Name()),
			zap.Int("attempts", attempts),
		)
		results = append(results, watcher.NotificationResult{
			Channel:  ch.Name(),
			Success:  true,
			Attempts: attempts,
		})
	}
	return results
}

// AllFailed reports whether at least one channel was attempted and every
// attempt failed, the only notification outcome that fails the run.
func AllFailed(results []watcher.NotificationResult) bool {
	if len(results) == 0 {
		return false
	}
	for _, r := range results {
		if r.Success {
			return false
		}
	}
	return true
}

// Render builds the notification message for a verdict.
func Render(runID, url string, verdict watcher.Verdict, now time.Time, force bool) watcher.Message {
	subject := "Page Watcher Alert: Change Detected!"
	if force && !verdict.Notifiable() {
		subject = "Page Watcher: Test Notification"
	}

	var b strings.Builder
	b.WriteString("The monitored page has changed!\n\n")
	fmt.Fprintf(&b, "URL: %s\n", url)
	fmt.Fprintf(&b, "Time (UTC): %s\n", now.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "Change: %s\n", describe(verdict))
	if len(verdict.Added) > 0 {
		fmt.Fprintf(&b, "Keywords appeared: %s\n", strings.Join(verdict.Added, ", "))
	}
	if len(verdict.Removed) > 0 {
		fmt.Fprintf(&b, "Keywords disappeared: %s\n", strings.Join(verdict.Removed, ", "))
	}
	fmt.Fprintf(&b, "Run ID: %s\n", runID)
	fmt.Fprintf(&b, "\nCheck the page now: %s\n", url)

	return watcher.Message{
		RunID:   runID,
		Subject: subject,
		Body:    b.String(),
		URL:     url,
		Verdict: verdict,
		SentAt:  now.UTC(),
	}
}

func describe(v watcher.Verdict) string {
	switch v.Kind {
	case watcher.VerdictKeywordChanged:
		return "keyword presence changed"
	case watcher.VerdictContentChanged:
		return "content changed"
	case watcher.VerdictBothChanged:
		return "content and keyword presence changed"
	case watcher.VerdictFirstRun:
		return "baseline established (test send)"
	default:
		return "no change (test send)"
	}
}
