package queue

import (
	"errors"
	"sync"

	"github.com/sirupsen/logrus"

	"estatehub/server/internal/models"
)

var (
	ErrQueueFull   = errors.New("queue is full")
	ErrQueueClosed = errors.New("queue is closed")
)

// EventQueue is an in-memory queue of listing events drained by a single goroutine.
type EventQueue struct {
	items    chan models.ListingEvent
	done     chan struct{}
	maxSize  int
	closed   bool
	mu       sync.RWMutex
	logger   *logrus.Logger
	handlers []func(models.ListingEvent) error
	wg       sync.WaitGroup
}

// NewEventQueue creates a new event queue with the specified buffer size
func NewEventQueue(bufferSize int, logger *logrus.Logger) *EventQueue {
	if logger == nil {
		logger = logrus.New()
	}
	return &EventQueue{
		items:    make(chan models.ListingEvent, bufferSize),
		done:     make(chan struct{}),
		maxSize:  bufferSize,
		logger:   logger,
		handlers: make([]func(models.ListingEvent) error, 0),
	}
}

// Push adds an event without blocking the caller.
func (q *EventQueue) Push(event models.ListingEvent) error {
	// The read lock is held through the send so Close cannot race it.
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}

	select {
	case q.items <- event:
		q.logger.WithFields(logrus.Fields{
			"event":      event.Type,
			"listing_id": event.ListingID,
		}).Debug("Pushed event to queue")
		return nil
	default:
		return ErrQueueFull
	}
}

// Subscribe adds a handler function that will be called for each event
func (q *EventQueue) Subscribe(handler func(models.ListingEvent) error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers = append(q.handlers, handler)
}

// Start begins processing items in the queue
func (q *EventQueue) Start() {
	q.wg.Add(1)
	go q.process()
}

func (q *EventQueue) process() {
	defer q.wg.Done()
	for {
		select {
		case <-q.done:
			q.drain()
			return
		case event := <-q.items:
			q.dispatch(event)
		}
	}
}

// drain hands over whatever was queued before Close.
func (q *EventQueue) drain() {
	for {
		select {
		case event := <-q.items:
			q.dispatch(event)
		default:
			return
		}
	}
}

func (q *EventQueue) dispatch(event models.ListingEvent) {
	q.mu.RLock()
	handlers := q.handlers
	q.mu.RUnlock()

	for _, handler := range handlers {
		if err := handler(event); err != nil {
			q.logger.WithError(err).WithField("event", event.Type).Error("Handler failed to process event")
		}
	}
}

// Close stops accepting events and waits for the queued ones to be handled.
func (q *EventQueue) Close() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.done)
	q.mu.Unlock()

	q.wg.Wait()
	return nil
}

// Len returns the current number of events in the queue
func (q *EventQueue) Len() int {
	return len(q.items)
}

// IsClosed returns whether the queue has been closed
func (q *EventQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
