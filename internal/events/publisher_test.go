package events

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/mathgrade-go-api/internal/dto"
)

type stubBroker struct {
	mu       sync.Mutex
	subjects []string
	payloads [][]byte
	flushes  int
}

func (b *stubBroker) Publish(subject string, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subjects = append(b.subjects, subject)
	b.payloads = append(b.payloads, data)
	return nil
}

func (b *stubBroker) Flush() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.flushes++
	return nil
}

func TestPublisherWithoutBrokerIsNoOp(t *testing.T) {
	p := NewPublisher(nil, zerolog.Nop())

	// Neither call may panic when no broker is configured.
	assert.NotPanics(t, func() {
		p.PublishCompleted(dto.GradingResult{SubmissionID: "sub-1", Percentage: 80})
		p.PublishFailed("sub-1", "grading call failed")
		p.Close()
	})
}

func TestPublisherBatchesEvents(t *testing.T) {
	broker := &stubBroker{}
	p := NewPublisher(broker, zerolog.Nop())

	p.PublishCompleted(dto.GradingResult{SubmissionID: "sub-1", TotalScore: 3, MaxScore: 4, Percentage: 75})
	p.PublishFailed("sub-2", "grading call failed: all chat providers failed (2 attempted)")
	p.Close()

	require.Equal(t, []string{"grading.submission.completed", "grading.submission.failed"}, broker.subjects)
	assert.Equal(t, 1, broker.flushes, "one close must cost one broker flush")

	var completed CompletedEvent
	require.NoError(t, json.Unmarshal(broker.payloads[0], &completed))
	assert.Equal(t, "sub-1", completed.SubmissionID)
	assert.InDelta(t, 75.0, completed.Percentage, 1e-9)
	assert.False(t, completed.GradedAt.IsZero())

	var failed FailedEvent
	require.NoError(t, json.Unmarshal(broker.payloads[1], &failed))
	assert.Equal(t, "sub-2", failed.SubmissionID)
	assert.Contains(t, failed.Error, "all chat providers failed")
}

func TestPublisherFlushesFullBatchImmediately(t *testing.T) {
	broker := &stubBroker{}
	p := NewPublisher(broker, zerolog.Nop())

	for i := 0; i < eventBatchSize; i++ {
		p.PublishFailed("sub", "err")
	}

	// A full batch delivers synchronously, before any timer or Close.
	broker.mu.Lock()
	delivered := len(broker.subjects)
	flushes := broker.flushes
	broker.mu.Unlock()
	assert.Equal(t, eventBatchSize, delivered)
	assert.Equal(t, 1, flushes)

	p.Close()
}
