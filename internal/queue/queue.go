// Package queue provides the pending-submission queue the background worker
// drains. Items are leased to a worker and released back when the lease
// goes stale.
package queue

import (
	"context"
	"errors"
	"time"

	"github.com/noah-isme/mathgrade-go-api/internal/dto"
)

// ErrEmpty is returned when no pending item is ready to lease.
var ErrEmpty = errors.New("queue is empty")

// Item is one queued grading request.
type Item struct {
	ID         string
	Request    dto.GradingRequest
	Attempts   int
	EnqueuedAt time.Time
	LeasedBy   string
	LeasedAt   time.Time
}

// Queue hands out pending grading work. Implementations must be safe for
// concurrent use by multiple workers.
type Queue interface {
	Enqueue(ctx context.Context, item Item) error
	// GetNextPendingItem leases the oldest pending item to workerID.
	GetNextPendingItem(ctx context.Context, workerID string) (*Item, error)
	MarkCompleted(ctx context.Context, itemID string) error
	// MarkFailed returns the item to the pending state for another attempt.
	MarkFailed(ctx context.Context, itemID string, reason string) error
	// ReleaseStaleItems returns items whose lease outlived maxLease to the
	// pending state and reports how many were released.
	ReleaseStaleItems(ctx context.Context, maxLease time.Duration) (int, error)
}
