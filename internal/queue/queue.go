package queue

import (
	"errors"
	"sync"

	"github.com/sirupsen/logrus"

	"propstack/server/internal/models"
)

var (
	ErrQueueFull   = errors.New("queue is full")
	ErrQueueClosed = errors.New("queue is closed")
)

// ListingQueue buffers batches of listings awaiting duplicate detection.
// Ingestion pushes batches; the dedup processor subscribes.
type ListingQueue struct {
	batches  chan []*models.Listing
	done     chan struct{}
	maxSize  int
	closed   bool
	mu       sync.RWMutex
	logger   *logrus.Logger
	handlers []func([]*models.Listing) error
}

// NewListingQueue creates a queue with the specified buffer size.
func NewListingQueue(bufferSize int, logger *logrus.Logger) *ListingQueue {
	return &ListingQueue{
		batches: make(chan []*models.Listing, bufferSize),
		done:    make(chan struct{}),
		maxSize: bufferSize,
		logger:  logger,
	}
}

// Push adds a batch of listings to the queue. The send is non-blocking; a
// full queue is reported, not waited on.
func (q *ListingQueue) Push(listings []*models.Listing) error {
	q.mu.RLock()
	if q.closed {
		q.mu.RUnlock()
		return ErrQueueClosed
	}
	q.mu.RUnlock()

	select {
	case q.batches <- listings:
		q.logger.WithField("batch_size", len(listings)).Debug("Pushed listing batch to dedup queue")
		return nil
	default:
		return ErrQueueFull
	}
}

// Subscribe adds a handler called for each batch.
func (q *ListingQueue) Subscribe(handler func([]*models.Listing) error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers = append(q.handlers, handler)
}

// Start begins draining the queue.
func (q *ListingQueue) Start() {
	go q.process()
}

func (q *ListingQueue) process() {
	for {
		select {
		case <-q.done:
			return
		case batch := <-q.batches:
			q.dispatch(batch)
		}
	}
}

func (q *ListingQueue) dispatch(batch []*models.Listing) {
	q.mu.RLock()
	handlers := q.handlers
	q.mu.RUnlock()

	for _, handler := range handlers {
		if err := handler(batch); err != nil {
			q.logger.WithError(err).Error("Handler failed to process listing batch")
		}
	}
}

// Close stops the queue and rejects further pushes.
func (q *ListingQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	q.closed = true
	// Only done is closed; closing batches would let the drain loop read
	// the channel's zero value and hand handlers a nil batch.
	close(q.done)
	return nil
}

// Len returns the number of batches currently buffered.
func (q *ListingQueue) Len() int {
	return len(q.batches)
}

// IsClosed reports whether the queue has been closed.
func (q *ListingQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
