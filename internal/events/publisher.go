// Package events publishes grading lifecycle events over NATS so other
// services can react to finished submissions.
package events

import (
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/mathgrade-go-api/internal/dto"
	"github.com/noah-isme/mathgrade-go-api/internal/resilience"
)

const (
	subjectCompleted = "grading.submission.completed"
	subjectFailed    = "grading.submission.failed"

	eventBatchSize     = 16
	eventFlushInterval = 250 * time.Millisecond
)

// Broker is the slice of a NATS connection the publisher needs. *nats.Conn
// satisfies it.
type Broker interface {
	Publish(subject string, data []byte) error
	Flush() error
}

// CompletedEvent is emitted when a submission finishes grading.
type CompletedEvent struct {
	SubmissionID string    `json:"submission_id"`
	TotalScore   float64   `json:"total_score"`
	MaxScore     float64   `json:"max_score"`
	Percentage   float64   `json:"percentage"`
	NeedsReview  bool      `json:"needs_review"`
	GradedAt     time.Time `json:"graded_at"`
}

// FailedEvent is emitted when a grading run ends in failure.
type FailedEvent struct {
	SubmissionID string    `json:"submission_id"`
	Error        string    `json:"error"`
	FailedAt     time.Time `json:"failed_at"`
}

type message struct {
	subject string
	payload []byte
}

// Publisher sends grading events. Events are coalesced through a batcher so
// a burst of drained queue items costs one broker flush, not one per event.
// A nil broker turns every publish into a no-op so deployments without NATS
// still work.
type Publisher struct {
	broker  Broker
	logger  zerolog.Logger
	batcher *resilience.Batcher[message]
}

// NewPublisher builds the publisher. broker may be nil.
func NewPublisher(broker Broker, logger zerolog.Logger) *Publisher {
	p := &Publisher{
		broker: broker,
		logger: logger.With().Str("component", "event_publisher").Logger(),
	}
	p.batcher = resilience.NewBatcher(eventBatchSize, eventFlushInterval, p.deliver)
	return p
}

// PublishCompleted emits a completion event for the graded submission.
func (p *Publisher) PublishCompleted(result dto.GradingResult) {
	if p.broker == nil {
		return
	}
	event := CompletedEvent{
		SubmissionID: result.SubmissionID,
		TotalScore:   result.TotalScore,
		MaxScore:     result.MaxScore,
		Percentage:   result.Percentage,
		NeedsReview:  result.NeedsReview,
		GradedAt:     time.Now().UTC(),
	}
	p.enqueue(subjectCompleted, event)
}

// PublishFailed emits a failure event for the submission.
func (p *Publisher) PublishFailed(submissionID, errMsg string) {
	if p.broker == nil {
		return
	}
	event := FailedEvent{
		SubmissionID: submissionID,
		Error:        errMsg,
		FailedAt:     time.Now().UTC(),
	}
	p.enqueue(subjectFailed, event)
}

// Close flushes pending events and rejects further publishes.
func (p *Publisher) Close() {
	p.batcher.Close()
}

func (p *Publisher) enqueue(subject string, event any) {
	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.Error().Err(err).Str("subject", subject).Msg("marshal event")
		return
	}
	p.batcher.Add(message{subject: subject, payload: payload})
}

func (p *Publisher) deliver(batch []message) {
	for _, m := range batch {
		if err := p.broker.Publish(m.subject, m.payload); err != nil {
			p.logger.Warn().Err(err).Str("subject", m.subject).Msg("publish event")
		}
	}
	if err := p.broker.Flush(); err != nil {
		p.logger.Warn().Err(err).Msg("flush events")
	}
}
