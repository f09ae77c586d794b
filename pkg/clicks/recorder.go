// Package clicks persists click events off the request path. Recording is
// best effort: the redirect response never waits on, and never observes,
// the outcome of a click write.
package clicks

import (
	"context"
	"sync"
	"time"

	"shortlink/pkg/logging"
	"shortlink/pkg/storage"
)

// Event is one resolved redirect waiting to be persisted.
type Event struct {
	MappingID int64
	UserAgent *string
	Referrer  *string
}

// Recorder fans click events out to a pool of worker goroutines through a
// buffered channel. Handlers enqueue with Record and move on; workers write
// to the store with their own context, so a slow or failing store is
// invisible to the caller.
type Recorder struct {
	events    chan Event
	store     storage.Store
	logger    *logging.Logger
	wg        sync.WaitGroup
	closeOnce sync.Once
}

const writeTimeout = 5 * time.Second

func NewRecorder(store storage.Store, logger *logging.Logger, workers, buffer int) *Recorder {
	if workers < 1 {
		workers = 1
	}
	if buffer < 1 {
		buffer = 1
	}
	r := &Recorder{
		events: make(chan Event, buffer),
		store:  store,
		logger: logger,
	}
	for i := 0; i < workers; i++ {
		r.wg.Add(1)
		go r.worker(i)
	}
	return r
}

// Record enqueues a click event without blocking. When the buffer is full
// the event is dropped and logged; analytics completeness is secondary to
// redirect latency.
func (r *Recorder) Record(mappingID int64, userAgent, referrer *string) {
	select {
	case r.events <- Event{MappingID: mappingID, UserAgent: userAgent, Referrer: referrer}:
	default:
		r.logger.Warn(context.Background(), "click buffer full, dropping event", "mapping_id", mappingID)
	}
}

func (r *Recorder) worker(id int) {
	defer r.wg.Done()
	for ev := range r.events {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		if err := r.store.RecordClick(ctx, ev.MappingID, ev.UserAgent, ev.Referrer); err != nil {
			r.logger.Error(ctx, "failed to record click",
				"worker", id,
				"mapping_id", ev.MappingID,
				"error", err,
			)
		}
		cancel()
	}
}

// Close stops intake and waits for buffered events to drain. Call it only
// after the HTTP server has stopped accepting requests.
func (r *Recorder) Close() {
	r.closeOnce.Do(func() {
		close(r.events)
	})
	r.wg.Wait()
}
