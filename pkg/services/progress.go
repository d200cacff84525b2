package services

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/insightloop/insight-engine/pkg/models"
)

// DefaultEventBuffer is the per-subscriber channel capacity used when the
// configured buffer is not positive.
const DefaultEventBuffer = 16

// ProgressBroker fans pipeline progress events out to subscribers, keyed by
// question ID. Subscribers receive on bounded channels; a subscriber that
// stops draining loses events instead of stalling the pipeline, so Report
// never blocks.
type ProgressBroker struct {
	mu          sync.RWMutex
	subscribers map[uuid.UUID][]chan models.ProgressEvent
	buffer      int
	logger      *zap.Logger
}

// NewProgressBroker creates a broker with the given per-subscriber channel
// capacity.
func NewProgressBroker(buffer int, logger *zap.Logger) *ProgressBroker {
	if buffer <= 0 {
		buffer = DefaultEventBuffer
	}
	return &ProgressBroker{
		subscribers: make(map[uuid.UUID][]chan models.ProgressEvent),
		buffer:      buffer,
		logger:      logger.Named("progress-broker"),
	}
}

// Subscribe registers for the question's events. The returned cancel
// function closes the channel and must be called exactly once when the
// subscriber is done; it is safe to call after the run has completed.
func (b *ProgressBroker) Subscribe(questionID uuid.UUID) (<-chan models.ProgressEvent, func()) {
	ch := make(chan models.ProgressEvent, b.buffer)

	b.mu.Lock()
	b.subscribers[questionID] = append(b.subscribers[questionID], ch)
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			subs := b.subscribers[questionID]
			for i, sub := range subs {
				if sub == ch {
					b.subscribers[questionID] = append(subs[:i], subs[i+1:]...)
					break
				}
			}
			if len(b.subscribers[questionID]) == 0 {
				delete(b.subscribers, questionID)
			}
			close(ch)
		})
	}
	return ch, cancel
}

// Reporter returns the per-run reporter bound to one question ID.
func (b *ProgressBroker) Reporter(questionID uuid.UUID) *ProgressReporter {
	return &ProgressReporter{broker: b, questionID: questionID}
}

// publish delivers the event to every current subscriber without blocking.
// Channels are only closed while the write lock is held, so sending under
// the read lock cannot race a close.
func (b *ProgressBroker) publish(event models.ProgressEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subscribers[event.QuestionID] {
		select {
		case ch <- event:
		default:
			b.logger.Debug("Dropped progress event for slow subscriber",
				zap.String("question_id", event.QuestionID.String()),
				zap.String("stage", string(event.Stage)))
		}
	}
}

// ProgressReporter emits events for one pipeline run. A nil reporter
// discards every event.
type ProgressReporter struct {
	broker     *ProgressBroker
	questionID uuid.UUID
}

// Report emits one stage event. The percent is the stage's fixed constant.
func (r *ProgressReporter) Report(stage models.ProgressStage, message string) {
	if r == nil || r.broker == nil {
		return
	}
	r.broker.publish(models.ProgressEvent{
		QuestionID: r.questionID,
		Stage:      stage,
		Percent:    stage.Percent(),
		Message:    message,
		Timestamp:  time.Now().UTC(),
	})
}
