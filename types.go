package keel

import (
	"context"
	"errors"
	"time"
)

// Source provides configuration data from a backend (files, environment,
// directory services) as a Node tree. Sources never interpolate; variable
// expansion happens lazily at access time, not at load time.
type Source interface {
	// Load reads the backend and returns its data as a tree rooted at an
	// unnamed node. Missing optional backends should return an empty root.
	Load(ctx context.Context) (*Node, error)

	// Watch emits a ChangeEvent when the backend changes. Returns
	// ErrWatchNotSupported if the backend cannot be watched.
	Watch(ctx context.Context) (<-chan ChangeEvent, error)

	// Name identifies the source for origin tracking (e.g. "file:app.yaml").
	Name() string
}

// ChangeEvent notifies of a source change.
type ChangeEvent struct {
	At    time.Time
	Cause string // description (e.g., "file-changed")
}

// ErrWatchNotSupported is returned when watching is not supported.
var ErrWatchNotSupported = errors.New("keel: watch not supported by this source")

// Snapshot represents a configuration version emitted by Watch().
type Snapshot struct {
	Config   *Configuration
	Version  int64 // increments on reload (starts at 1)
	LoadedAt time.Time
	Source   string // what triggered the load
}
