package domain

import (
	"context"
	"time"
)

// OrderStore is the port to the caller's order persistence. Implementations
// must make Transition atomic with respect to the persisted status: the
// status check and the write happen as one compare-and-set.
type OrderStore interface {
	// Create registers a new order in Pending state. Registering an id twice
	// returns ErrCodeOrderExists.
	Create(ctx context.Context, o *Order) error

	Get(ctx context.Context, id string) (*Order, error)
	FindByPrepayID(ctx context.Context, prepayID string) (*Order, error)

	// SetMetadata merges the given key/value pairs into the order's metadata.
	SetMetadata(ctx context.Context, id string, meta map[string]string) error

	// Transition moves the order to the target status, merging metadata and
	// appending the note, but only if the current status is one of from.
	// It returns false with a nil error when the order has already moved on;
	// callers treat a lost race as a successful no-op.
	Transition(ctx context.Context, id string, from []OrderStatus, to OrderStatus, meta map[string]string, note string) (bool, error)

	// FindActive returns non-terminal orders that carry a processor handle and
	// were last touched before the cutoff, oldest first.
	FindActive(ctx context.Context, olderThan time.Duration, limit int) ([]*Order, error)
}

// SettingsStore is the port to the caller's key/value settings and cache
// store. A value written with a positive TTL reads as absent once expired.
type SettingsStore interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}
