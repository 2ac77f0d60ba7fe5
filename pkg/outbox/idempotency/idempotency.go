package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Store is the redis surface needed for sent markers.
type Store interface {
	SetNX(context.Context, string, any, time.Duration) (bool, error)
	IdempotencyKey(scope, id string) string
	Del(context.Context, ...string) error
}

// Manager records which outbox events a publisher has already handed to the broker, so a
// batch that fails to commit after a successful write does not send the same event twice.
// Keys follow the `mk:idempotency:evt:sent:<publisher>:<event_id>` pattern.
type Manager struct {
	store Store
	ttl   time.Duration
}

// NewManager builds a guard that keeps sent markers for ttl.
func NewManager(store Store, ttl time.Duration) (*Manager, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be non-negative")
	}
	return &Manager{
		store: store,
		ttl:   ttl,
	}, nil
}

// MarkSent returns true if the event was already sent by publisher and otherwise records it.
func (m *Manager) MarkSent(ctx context.Context, publisher string, eventID uuid.UUID) (bool, error) {
	key, err := m.sentKey(publisher, eventID)
	if err != nil {
		return false, err
	}
	set, err := m.store.SetNX(ctx, key, "1", m.ttl)
	if err != nil {
		return false, err
	}
	return !set, nil
}

// Unmark clears the marker after a failed send so the next attempt is allowed through.
func (m *Manager) Unmark(ctx context.Context, publisher string, eventID uuid.UUID) error {
	key, err := m.sentKey(publisher, eventID)
	if err != nil {
		return err
	}
	return m.store.Del(ctx, key)
}

func (m *Manager) sentKey(publisher string, eventID uuid.UUID) (string, error) {
	if publisher == "" {
		return "", errors.New("publisher name is required")
	}
	if eventID == uuid.Nil {
		return "", errors.New("event id is required")
	}
	scope := fmt.Sprintf("evt:sent:%s", publisher)
	return m.store.IdempotencyKey(scope, eventID.String()), nil
}
