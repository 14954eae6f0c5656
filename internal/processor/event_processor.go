package processor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"estatehub/server/internal/models"
	"estatehub/server/internal/queue"
)

// Publisher delivers a listing event outside the process.
type Publisher interface {
	Publish(ctx context.Context, event models.ListingEvent) error
}

// Recorder counts delivery outcomes. *metrics.Metrics implements it.
type Recorder interface {
	ObserveEvent(eventType string, outcome string)
}

type Settings struct {
	MaxRetries int
	RetryDelay time.Duration
}

// EventProcessor drains the event queue into a publisher, retrying failed deliveries.
type EventProcessor struct {
	publisher Publisher
	queue     *queue.EventQueue
	settings  Settings
	recorder  Recorder
	logger    *logrus.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	startOnce sync.Once
}

// NewEventProcessor creates a new event processor. recorder may be nil.
func NewEventProcessor(publisher Publisher, q *queue.EventQueue, settings Settings, recorder Recorder, logger *logrus.Logger) *EventProcessor {
	if logger == nil {
		logger = logrus.New()
	}
	if settings.MaxRetries < 0 {
		settings.MaxRetries = 0
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &EventProcessor{
		publisher: publisher,
		queue:     q,
		settings:  settings,
		recorder:  recorder,
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start subscribes to the queue. Calling it more than once has no effect.
func (p *EventProcessor) Start() {
	p.startOnce.Do(func() {
		p.queue.Subscribe(p.processEvent)
	})
}

// Stop abandons pending retries and cancels in-flight publishes. Anything the queue
// dispatches afterwards fails, so use Shutdown to flush the queue first.
func (p *EventProcessor) Stop() {
	p.cancel()
}

// Shutdown closes the queue, which blocks until every queued event has been handed to
// the publisher, and then stops the processor.
func (p *EventProcessor) Shutdown() error {
	err := p.queue.Close()
	p.Stop()
	if err != nil {
		return fmt.Errorf("failed to close event queue: %w", err)
	}
	return nil
}

// processEvent publishes one event, retrying until MaxRetries is exhausted.
func (p *EventProcessor) processEvent(event models.ListingEvent) error {
	var err error
	for attempt := 0; attempt <= p.settings.MaxRetries; attempt++ {
		if attempt > 0 {
			p.logger.Infof("Retrying event delivery, attempt %d of %d", attempt, p.settings.MaxRetries)
			select {
			case <-time.After(p.settings.RetryDelay):
			case <-p.ctx.Done():
				p.record(event, "abandoned")
				return fmt.Errorf("event delivery stopped: %w", err)
			}
		}

		err = p.publisher.Publish(p.ctx, event)
		if err == nil {
			p.logger.WithFields(logrus.Fields{
				"event":      event.Type,
				"listing_id": event.ListingID,
			}).Debug("Published listing event")
			p.record(event, "published")
			return nil
		}

		p.logger.WithError(err).WithField("event", event.Type).Warn("Event delivery failed")
		if p.ctx.Err() != nil {
			break
		}
	}

	p.record(event, "failed")
	return fmt.Errorf("failed to publish event after %d attempts: %w", p.settings.MaxRetries+1, err)
}

func (p *EventProcessor) record(event models.ListingEvent, outcome string) {
	if p.recorder != nil {
		p.recorder.ObserveEvent(string(event.Type), outcome)
	}
}
