// Package activity records the audit trail of user-visible actions. Writes
// are best effort: a failure is logged and counted, never returned to the
// operation that triggered it.
package activity

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"retailpro/backend/internal/domain"
	"retailpro/backend/internal/logger"
	"retailpro/backend/internal/metrics"
	"retailpro/backend/internal/store"
	"retailpro/backend/internal/xid"
)

const (
	writeTimeout     = 2 * time.Second
	publishQueueSize = 256
)

// Recorder writes entries to the activity log on the caller's goroutine and
// hands them to the publisher through a bounded queue, so a slow stream
// never holds up the request. Close drains the queue.
type Recorder struct {
	log       store.ActivityLog
	publisher Publisher
	logger    *zap.Logger
	metrics   *metrics.Metrics
	now       func() time.Time

	mu     sync.RWMutex
	closed bool
	queue  chan domain.ActivityLogEntry
	done   chan struct{}
}

func NewRecorder(log store.ActivityLog, publisher Publisher, zl *zap.Logger, m *metrics.Metrics) *Recorder {
	if zl == nil {
		zl = zap.NewNop()
	}
	r := &Recorder{
		log:       log,
		publisher: publisher,
		logger:    zl,
		metrics:   m,
		now:       func() time.Time { return time.Now().UTC() },
	}
	if _, noop := publisher.(NoopPublisher); publisher != nil && !noop {
		r.queue = make(chan domain.ActivityLogEntry, publishQueueSize)
		r.done = make(chan struct{})
		go r.drain()
	}
	return r
}

// Record appends an entry for actor. It detaches from the caller's
// cancellation so a client hanging up after a committed sale still leaves
// the audit line behind.
func (r *Recorder) Record(ctx context.Context, actor domain.Actor, action string, details string) {
	entry := domain.ActivityLogEntry{
		ID:        xid.New("log"),
		ActorID:   actor.ID,
		ActorName: actor.Name,
		ActorRole: actor.Role,
		Action:    action,
		Details:   details,
		Timestamp: r.now(),
	}

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), writeTimeout)
	defer cancel()

	zl := logger.FromContext(ctx, r.logger)
	if err := r.log.AppendActivity(writeCtx, entry); err != nil {
		r.metrics.ActivityDropped()
		zl.Warn("activity log write failed", zap.String("action", action), zap.Error(err))
		return
	}
	r.enqueue(zl, entry)
}

func (r *Recorder) enqueue(zl *zap.Logger, entry domain.ActivityLogEntry) {
	if r.queue == nil {
		return
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return
	}
	select {
	case r.queue <- entry:
	default:
		r.metrics.ActivityDropped()
		zl.Warn("activity publish queue full", zap.String("entry_id", entry.ID))
	}
}

func (r *Recorder) drain() {
	defer close(r.done)
	for entry := range r.queue {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		if err := r.publisher.Publish(ctx, entry); err != nil {
			r.metrics.ActivityDropped()
			r.logger.Warn("activity log publish failed", zap.String("entry_id", entry.ID), zap.Error(err))
		}
		cancel()
	}
}

// Close stops accepting entries for publishing and waits until the queued
// ones have been handed to the publisher. Entries recorded afterwards are
// still written to the log. Safe to call more than once.
func (r *Recorder) Close() error {
	if r.queue == nil {
		return nil
	}
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.queue)
	}
	r.mu.Unlock()
	<-r.done
	return nil
}

func (r *Recorder) List(ctx context.Context, limit int) ([]domain.ActivityLogEntry, error) {
	return r.log.ListActivity(ctx, limit)
}
