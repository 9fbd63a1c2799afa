package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryQueue is an in-process Queue. It backs single-node deployments and
// tests; multi-node setups put a broker in front instead.
type MemoryQueue struct {
	mu    sync.Mutex
	items map[string]*Item
	order []string
	now   func() time.Time
}

// NewMemoryQueue builds an empty in-memory queue.
func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{
		items: make(map[string]*Item),
		now:   time.Now,
	}
}

// Enqueue adds the item. A missing ID gets a generated one.
func (q *MemoryQueue) Enqueue(_ context.Context, item Item) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	if _, exists := q.items[item.ID]; exists {
		return fmt.Errorf("item %s already queued", item.ID)
	}
	item.EnqueuedAt = q.now()
	q.items[item.ID] = &item
	q.order = append(q.order, item.ID)
	return nil
}

// GetNextPendingItem leases the oldest unleased item to workerID.
func (q *MemoryQueue) GetNextPendingItem(_ context.Context, workerID string) (*Item, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, id := range q.order {
		item, ok := q.items[id]
		if !ok || item.LeasedBy != "" {
			continue
		}
		item.LeasedBy = workerID
		item.LeasedAt = q.now()
		item.Attempts++
		leased := *item
		return &leased, nil
	}
	return nil, ErrEmpty
}

// MarkCompleted removes the item from the queue.
func (q *MemoryQueue) MarkCompleted(_ context.Context, itemID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.items[itemID]; !ok {
		return fmt.Errorf("item %s not found", itemID)
	}
	delete(q.items, itemID)
	q.removeFromOrder(itemID)
	return nil
}

// MarkFailed releases the lease so another worker can retry the item.
func (q *MemoryQueue) MarkFailed(_ context.Context, itemID string, _ string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	item, ok := q.items[itemID]
	if !ok {
		return fmt.Errorf("item %s not found", itemID)
	}
	item.LeasedBy = ""
	item.LeasedAt = time.Time{}
	return nil
}

// ReleaseStaleItems frees leases older than maxLease.
func (q *MemoryQueue) ReleaseStaleItems(_ context.Context, maxLease time.Duration) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	cutoff := q.now().Add(-maxLease)
	released := 0
	for _, item := range q.items {
		if item.LeasedBy != "" && item.LeasedAt.Before(cutoff) {
			item.LeasedBy = ""
			item.LeasedAt = time.Time{}
			released++
		}
	}
	return released, nil
}

// Len reports the number of queued items, leased or not.
func (q *MemoryQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *MemoryQueue) removeFromOrder(itemID string) {
	for i, id := range q.order {
		if id == itemID {
			q.order = append(q.order[:i], q.order[i+1:]...)
			return
		}
	}
}
