package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/prudhvinik1/possync/internal/models"
)

// MutationQueue is the ordered, durable log of local writes awaiting push.
// The whole queue is one document; mu serializes read-modify-write of it.
type MutationQueue struct {
	store *LocalStore
	now   func() time.Time

	mu sync.Mutex
}

func NewMutationQueue(store *LocalStore, now func() time.Time) *MutationQueue {
	if now == nil {
		now = time.Now
	}
	return &MutationQueue{store: store, now: now}
}

// Enqueue appends one mutation and persists the queue before returning.
// For deletes only the record id is kept.
func (q *MutationQueue) Enqueue(ctx context.Context, c models.Collection, op models.Operation, record any) (models.QueueItem, error) {
	if !c.Valid() {
		return models.QueueItem{}, fmt.Errorf("%w: %q", models.ErrInvalidCollection, c)
	}
	if !op.Valid() {
		return models.QueueItem{}, fmt.Errorf("%w: %q", models.ErrInvalidOperation, op)
	}

	payload, err := json.Marshal(record)
	if err != nil {
		return models.QueueItem{}, fmt.Errorf("failed to encode payload: %w", err)
	}
	id, err := models.PayloadID(payload)
	if err != nil {
		return models.QueueItem{}, err
	}
	if op == models.OperationDelete {
		payload, _ = json.Marshal(map[string]string{"id": id})
	}

	item := models.QueueItem{
		ID:         uuid.NewString(),
		Collection: c,
		Operation:  op,
		Payload:    payload,
		CreatedAt:  q.now(),
		RetryCount: 0,
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	items, err := q.store.loadQueue(ctx)
	if err != nil {
		return models.QueueItem{}, err
	}
	items = append(items, item)
	if err := q.store.saveQueue(ctx, items); err != nil {
		return models.QueueItem{}, err
	}
	return item, nil
}

// Items returns a snapshot of the queue in FIFO order.
func (q *MutationQueue) Items(ctx context.Context) ([]models.QueueItem, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.store.loadQueue(ctx)
}

func (q *MutationQueue) Len(ctx context.Context) (int, error) {
	items, err := q.Items(ctx)
	if err != nil {
		return 0, err
	}
	return len(items), nil
}

// Commit replaces the items of snapshot with remaining. Items enqueued after
// snapshot was taken are kept after remaining in their original order.
// It returns the new queue length.
func (q *MutationQueue) Commit(ctx context.Context, snapshot, remaining []models.QueueItem) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	current, err := q.store.loadQueue(ctx)
	if err != nil {
		return 0, err
	}

	seen := make(map[string]struct{}, len(snapshot))
	for _, item := range snapshot {
		seen[item.ID] = struct{}{}
	}

	next := make([]models.QueueItem, 0, len(remaining)+len(current))
	next = append(next, remaining...)
	for _, item := range current {
		if _, ok := seen[item.ID]; !ok {
			next = append(next, item)
		}
	}

	if err := q.store.saveQueue(ctx, next); err != nil {
		return 0, err
	}
	return len(next), nil
}

func (q *MutationQueue) Clear(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.store.saveQueue(ctx, nil)
}
