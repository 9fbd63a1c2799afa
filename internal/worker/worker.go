// Package worker drains the grading queue in the background, grading each
// leased submission and publishing lifecycle events.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/mathgrade-go-api/internal/dto"
	"github.com/noah-isme/mathgrade-go-api/internal/events"
	"github.com/noah-isme/mathgrade-go-api/internal/queue"
)

// Grader is the slice of the grading service the worker needs.
type Grader interface {
	GradeSubmission(ctx context.Context, req *dto.GradingRequest) dto.GradingResult
}

// Config tunes the worker loop.
type Config struct {
	PollInterval  time.Duration
	StaleInterval time.Duration
	MaxLease      time.Duration
	MaxAttempts   int
}

func (c *Config) applyDefaults() {
	if c.PollInterval <= 0 {
		c.PollInterval = 2 * time.Second
	}
	if c.StaleInterval <= 0 {
		c.StaleInterval = time.Minute
	}
	if c.MaxLease <= 0 {
		c.MaxLease = 5 * time.Minute
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
}

// Worker polls the queue and grades pending submissions one at a time.
type Worker struct {
	id        string
	grader    Grader
	queue     queue.Queue
	publisher *events.Publisher
	cfg       Config
	logger    zerolog.Logger
}

// New builds a worker with a generated identity.
func New(grader Grader, q queue.Queue, publisher *events.Publisher, cfg Config, logger zerolog.Logger) *Worker {
	cfg.applyDefaults()
	id := fmt.Sprintf("worker-%s", uuid.NewString()[:8])
	return &Worker{
		id:        id,
		grader:    grader,
		queue:     q,
		publisher: publisher,
		cfg:       cfg,
		logger:    logger.With().Str("component", "grading_worker").Str("worker_id", id).Logger(),
	}
}

// ID returns the worker's identity used for queue leases.
func (w *Worker) ID() string { return w.id }

// Run blocks until ctx is cancelled, polling for work and periodically
// releasing stale leases left behind by dead workers.
func (w *Worker) Run(ctx context.Context) {
	w.logger.Info().Msg("worker started")

	poll := time.NewTicker(w.cfg.PollInterval)
	stale := time.NewTicker(w.cfg.StaleInterval)
	defer poll.Stop()
	defer stale.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info().Msg("worker stopped")
			return
		case <-stale.C:
			released, err := w.queue.ReleaseStaleItems(ctx, w.cfg.MaxLease)
			if err != nil {
				w.logger.Warn().Err(err).Msg("release stale items")
			} else if released > 0 {
				w.logger.Info().Int("released", released).Msg("released stale leases")
			}
		case <-poll.C:
			w.drainOnce(ctx)
		}
	}
}

// drainOnce processes queued items until the queue is empty or ctx ends.
func (w *Worker) drainOnce(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		item, err := w.queue.GetNextPendingItem(ctx, w.id)
		if err != nil {
			if !errors.Is(err, queue.ErrEmpty) {
				w.logger.Warn().Err(err).Msg("lease next item")
			}
			return
		}
		w.process(ctx, item)
	}
}

func (w *Worker) process(ctx context.Context, item *queue.Item) {
	logger := w.logger.With().Str("item_id", item.ID).Str("submission_id", item.Request.SubmissionID).Logger()

	result := w.grader.GradeSubmission(ctx, &item.Request)
	if result.Success {
		if err := w.queue.MarkCompleted(ctx, item.ID); err != nil {
			logger.Warn().Err(err).Msg("mark completed")
		}
		w.publisher.PublishCompleted(result)
		logger.Info().Float64("percentage", result.Percentage).Msg("queued submission graded")
		return
	}

	if item.Attempts >= w.cfg.MaxAttempts {
		if err := w.queue.MarkCompleted(ctx, item.ID); err != nil {
			logger.Warn().Err(err).Msg("drop exhausted item")
		}
		w.publisher.PublishFailed(item.Request.SubmissionID, result.Error)
		logger.Error().Str("error", result.Error).Int("attempts", item.Attempts).Msg("submission abandoned after max attempts")
		return
	}

	if err := w.queue.MarkFailed(ctx, item.ID, result.Error); err != nil {
		logger.Warn().Err(err).Msg("mark failed")
	}
	logger.Warn().Str("error", result.Error).Int("attempts", item.Attempts).Msg("grading attempt failed, requeued")
}
