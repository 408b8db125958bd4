// Package feedback logs every match decision for offline quality
// monitoring and threshold recalibration. Recording is fire-and-forget:
// it must never block or fail the matching or attendance path, so entries
// are queued onto a buffered channel and written by a background worker.
// Errors are logged and swallowed; a full queue drops the entry with a
// log line. At-least-once delivery is acceptable, the log is append-only
// and analytical.
package feedback

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/facegate/facegate/internal/storage"
)

const (
	defaultQueueSize = 256
	writeTimeout     = 5 * time.Second
)

// Recorder drains queued feedback records into the store.
type Recorder struct {
	store storage.FeedbackStore
	queue chan storage.FeedbackRecord

	// mu orders enqueues against Close: Record holds the read lock across
	// its check-and-send so the queue is never closed mid-send.
	mu     sync.RWMutex
	closed bool

	done chan struct{}
}

// NewRecorder starts the background worker.
func NewRecorder(store storage.FeedbackStore) *Recorder {
	r := &Recorder{
		store: store,
		queue: make(chan storage.FeedbackRecord, defaultQueueSize),
		done:  make(chan struct{}),
	}
	go r.drain()
	return r
}

// Record enqueues one feedback entry. Never blocks: when the queue is
// full the entry is dropped and logged.
func (r *Recorder) Record(rec storage.FeedbackRecord) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return
	}

	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	select {
	case r.queue <- rec:
	default:
		log.Printf("feedback queue full, dropping entry for employee %s (action %s)", rec.EmployeeID, rec.Action)
	}
}

func (r *Recorder) drain() {
	defer close(r.done)
	for rec := range r.queue {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		if err := r.store.Append(ctx, &rec); err != nil {
			log.Printf("failed to write feedback entry for employee %s: %v", rec.EmployeeID, err)
		}
		cancel()
	}
}

// Close stops accepting entries and waits for the queue to drain.
// Safe to call more than once and concurrently with Record.
func (r *Recorder) Close() {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.queue)
	}
	r.mu.Unlock()
	<-r.done
}
