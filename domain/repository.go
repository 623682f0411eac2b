package domain

import (
	"context"
	"fmt"
)

// Storage is the host persistence primitive: one opaque document, read and
// written whole. Get returns nil, nil when nothing was ever stored.
type Storage interface {
	Get(ctx context.Context) ([]byte, error)
	Set(ctx context.Context, data []byte) error
}

// PersistenceError reports a failed read, write or decode of the stored watchlist.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("watchlist %s failed: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
