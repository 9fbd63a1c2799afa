package resilience

import (
	"sync"
	"time"
)

// Batcher collects items and flushes them in groups, either when the batch
// fills or when the flush interval elapses. Used to coalesce bursts of small
// provider requests.
type Batcher[T any] struct {
	size     int
	interval time.Duration
	flush    func([]T)

	mu      sync.Mutex
	pending []T
	timer   *time.Timer
	closed  bool
}

// NewBatcher builds a batcher that hands groups of up to size items to flush.
func NewBatcher[T any](size int, interval time.Duration, flush func([]T)) *Batcher[T] {
	if size <= 0 {
		size = 10
	}
	if interval <= 0 {
		interval = time.Second
	}
	return &Batcher[T]{size: size, interval: interval, flush: flush}
}

// Add queues an item, flushing synchronously when the batch is full.
func (b *Batcher[T]) Add(item T) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.pending = append(b.pending, item)
	if len(b.pending) >= b.size {
		batch := b.takeLocked()
		b.mu.Unlock()
		b.flush(batch)
		return
	}
	if b.timer == nil {
		b.timer = time.AfterFunc(b.interval, b.Flush)
	}
	b.mu.Unlock()
}

// Flush drains whatever is pending.
func (b *Batcher[T]) Flush() {
	b.mu.Lock()
	batch := b.takeLocked()
	b.mu.Unlock()
	if len(batch) > 0 {
		b.flush(batch)
	}
}

// Close flushes remaining items and rejects further adds.
func (b *Batcher[T]) Close() {
	b.mu.Lock()
	b.closed = true
	batch := b.takeLocked()
	b.mu.Unlock()
	if len(batch) > 0 {
		b.flush(batch)
	}
}

func (b *Batcher[T]) takeLocked() []T {
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	batch := b.pending
	b.pending = nil
	return batch
}
