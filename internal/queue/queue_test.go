package queue

import (
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"estatehub/server/internal/models"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestNewEventQueue(t *testing.T) {
	q := NewEventQueue(10, testLogger())
	assert.NotNil(t, q)
	assert.Equal(t, 10, q.maxSize)
	assert.False(t, q.IsClosed())
}

func TestEventQueue_Push(t *testing.T) {
	q := NewEventQueue(2, testLogger())

	event := models.ListingEvent{Type: models.EventCreated, ListingID: 1}
	err := q.Push(event)
	assert.NoError(t, err)
	assert.Equal(t, 1, q.Len())

	_ = q.Push(event)
	err = q.Push(event)
	assert.ErrorIs(t, err, ErrQueueFull)

	assert.NoError(t, q.Close())
	err = q.Push(event)
	assert.ErrorIs(t, err, ErrQueueClosed)
}

func TestEventQueue_Subscribe(t *testing.T) {
	q := NewEventQueue(10, testLogger())

	var processed []models.ListingEvent
	var mu sync.Mutex

	q.Subscribe(func(event models.ListingEvent) error {
		mu.Lock()
		processed = append(processed, event)
		mu.Unlock()
		return nil
	})
	q.Start()

	assert.NoError(t, q.Push(models.ListingEvent{Type: models.EventCreated, ListingID: 1}))
	assert.NoError(t, q.Push(models.ListingEvent{Type: models.EventDeleted, ListingID: 2}))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(processed) == 2
	}, time.Second, 10*time.Millisecond)

	mu.Lock()
	assert.Equal(t, models.EventCreated, processed[0].Type)
	assert.Equal(t, int64(2), processed[1].ListingID)
	mu.Unlock()

	assert.NoError(t, q.Close())
}

func TestEventQueue_Close(t *testing.T) {
	q := NewEventQueue(10, testLogger())
	q.Start()

	err := q.Close()
	assert.NoError(t, err)
	assert.True(t, q.IsClosed())

	// Second close is a no-op.
	err = q.Close()
	assert.NoError(t, err)
}

func TestEventQueue_CloseDrainsPendingEvents(t *testing.T) {
	q := NewEventQueue(10, testLogger())

	var count int
	var mu sync.Mutex
	q.Subscribe(func(models.ListingEvent) error {
		mu.Lock()
		count++
		mu.Unlock()
		return nil
	})

	for i := 0; i < 5; i++ {
		assert.NoError(t, q.Push(models.ListingEvent{Type: models.EventUpdated, ListingID: int64(i)}))
	}
	q.Start()
	assert.NoError(t, q.Close())

	mu.Lock()
	assert.Equal(t, 5, count)
	mu.Unlock()
}

func TestEventQueue_MultipleHandlers(t *testing.T) {
	q := NewEventQueue(10, testLogger())

	var wg sync.WaitGroup
	handled := 0
	var mu sync.Mutex

	for i := 0; i < 3; i++ {
		wg.Add(1)
		q.Subscribe(func(models.ListingEvent) error {
			mu.Lock()
			handled++
			mu.Unlock()
			wg.Done()
			return nil
		})
	}
	q.Start()
	defer q.Close()

	assert.NoError(t, q.Push(models.ListingEvent{Type: models.EventActivated, ListingID: 9}))
	wg.Wait()

	mu.Lock()
	assert.Equal(t, 3, handled)
	mu.Unlock()
}

func TestEventQueue_ConcurrentPushAndClose(t *testing.T) {
	q := NewEventQueue(100, testLogger())
	q.Subscribe(func(models.ListingEvent) error { return nil })
	q.Start()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			err := q.Push(models.ListingEvent{Type: models.EventCreated, ListingID: id})
			if err != nil {
				assert.ErrorIs(t, err, ErrQueueClosed)
			}
		}(int64(i))
	}
	assert.NoError(t, q.Close())
	wg.Wait()
}
