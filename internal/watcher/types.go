// Package watcher defines core types shared across subsystems.
package watcher

import "time"

// PageSnapshot is the fetched page after extraction. Built fresh each run,
// never persisted.
type PageSnapshot struct {
	RawHTML        []byte
	NormalizedText string
	SelectorMissed bool
	FetchedAt      time.Time
}

// Fingerprint is the comparable summary of page content at a point in time.
// KeywordHits holds the lower-cased configured keywords currently present in
// the page, sorted.
type Fingerprint struct {
	ContentHash string    `json:"content_hash"`
	KeywordHits []string  `json:"keyword_hits"`
	CapturedAt  time.Time `json:"captured_at"`
}

// WatchState is the single durable record carried between runs.
type WatchState struct {
	LastFingerprint *Fingerprint `json:"last_fingerprint,omitempty"`
	LastNotifiedAt  *time.Time   `json:"last_notified_at,omitempty"`
	LastCheckedAt   *time.Time   `json:"last_checked_at,omitempty"`
	LastMatch       string       `json:"last_match,omitempty"`
}

// VerdictKind classifies the outcome of comparing two fingerprints.
type VerdictKind string

// Verdict kinds, in increasing order of precedence for notification.
const (
	VerdictFirstRun       VerdictKind = "first_run"
	VerdictUnchanged      VerdictKind = "unchanged"
	VerdictKeywordChanged VerdictKind = "keyword_changed"
	VerdictContentChanged VerdictKind = "content_changed"
	VerdictBothChanged    VerdictKind = "both_changed"
)

// Verdict is the classified result of one detection pass. Added and Removed
// are only populated for keyword-bearing kinds.
type Verdict struct {
	Kind    VerdictKind
	Added   []string
	Removed []string
}

// Notifiable reports whether the verdict should trigger notifications
// absent a force-notify override.
func (v Verdict) Notifiable() bool {
	switch v.Kind {
	case VerdictKeywordChanged, VerdictContentChanged, VerdictBothChanged:
		return true
	default:
		return false
	}
}

// Message is the rendered notification handed to every channel.
type Message struct {
	RunID   string
	Subject string
	Body    string
	URL     string
	Verdict Verdict
	SentAt  time.Time
}

// NotificationResult is the per-channel outcome of one dispatch.
type NotificationResult struct {
	Channel  string
	Success  bool
	Attempts int
	Err      error
}

// FetchRequest captures everything needed to fetch the watched page.
type FetchRequest struct {
	URL       string
	UserAgent string
}

// FetchResponse is the raw result returned by a Fetcher implementation.
// Attempts counts the HTTP requests made, including retries.
type FetchResponse struct {
	URL        string
	StatusCode int
	Body       []byte
	Duration   time.Duration
	Attempts   int
}
