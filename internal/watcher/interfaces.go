package watcher

import (
	"context"
	"time"
)

// Fetcher retrieves the watched page, retrying transient failures
// internally before returning a FetchError.
type Fetcher interface {
	Fetch(ctx context.Context, request FetchRequest) (FetchResponse, error)
}

// StateStore performs the physical read/write of the durable WatchState.
// Load returns ErrNoState when no prior state exists; a corrupt record is
// treated the same way. Save must be atomic: a crash mid-save leaves the
// previous record readable.
type StateStore interface {
	Load(ctx context.Context) (WatchState, error)
	Save(ctx context.Context, state WatchState) error
}

// Channel is an independent notification delivery mechanism. Send delivers
// a single rendered message; retry is handled by the dispatcher.
type Channel interface {
	Name() string
	Send(ctx context.Context, msg Message) error
}

// Hasher computes the stable content digest.
type Hasher interface {
	Hash(data []byte) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces run IDs (UUIDs).
type IDGenerator interface {
	NewID() (string, error)
}
