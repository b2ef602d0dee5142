package watcher

import (
	"errors"
	"fmt"
)

// FetchErrorKind classifies why a fetch was declared failed.
type FetchErrorKind string

// Fetch failure kinds.
const (
	FetchNetworkFailure FetchErrorKind = "network_failure"
	FetchHTTPStatus     FetchErrorKind = "http_status"
	FetchTimeout        FetchErrorKind = "timeout"
)

// FetchError is returned once the fetcher has exhausted its retries. It is
// fatal for the run: no state is written.
type FetchError struct {
	Kind       FetchErrorKind
	URL        string
	StatusCode int
	Attempts   int
	Err        error
}

func (e *FetchError) Error() string {
	if e.Kind == FetchHTTPStatus {
		return fmt.Sprintf("fetch %s: status %d after %d attempts", e.URL, e.StatusCode, e.Attempts)
	}
	return fmt.Sprintf("fetch %s: %s after %d attempts: %v", e.URL, e.Kind, e.Attempts, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ErrNoState is returned by StateStore.Load when no prior state exists.
// Missing and corrupt records both map here; the run treats it as first run.
var ErrNoState = errors.New("no prior watch state")

// StateSaveError wraps a failed state write. Surfaced loudly: losing the
// baseline silently causes repeated false notifications.
type StateSaveError struct {
	Path string
	Err  error
}

func (e *StateSaveError) Error() string {
	return fmt.Sprintf("save watch state %s: %v", e.Path, e.Err)
}

func (e *StateSaveError) Unwrap() error { return e.Err }

// SendError records a channel delivery failure after its retries.
type SendError struct {
	Channel  string
	Attempts int
	Err      error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("channel %s: send failed after %d attempts: %v", e.Channel, e.Attempts, e.Err)
}

func (e *SendError) Unwrap() error { return e.Err }
