// Package notify fans committed session events out to delivery sinks
// without blocking the request that produced them.
package notify

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/saeid-a/GymSessionsBack/internal/models"
	"golang.org/x/sync/errgroup"
)

var ErrDispatcherClosed = errors.New("dispatcher closed")

// Sink delivers one event to a channel (websocket, log, mail...).
type Sink interface {
	Name() string
	Deliver(ctx context.Context, event models.SessionEvent) error
}

type dropRecorder interface {
	RecordNotificationDropped()
}

type Options struct {
	Workers        int
	QueueSize      int
	DeliverTimeout time.Duration
	Metrics        dropRecorder
}

// Dispatcher is a bounded queue drained by a fixed worker pool. A full queue
// drops the event: notifications are best effort and must never hold up a
// committed write.
type Dispatcher struct {
	queue   chan models.SessionEvent
	sinks   []Sink
	workers int
	timeout time.Duration
	metrics dropRecorder

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func NewDispatcher(opts Options, sinks ...Sink) *Dispatcher {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.QueueSize < 1 {
		opts.QueueSize = 1
	}
	if opts.DeliverTimeout <= 0 {
		opts.DeliverTimeout = 5 * time.Second
	}
	return &Dispatcher{
		queue:   make(chan models.SessionEvent, opts.QueueSize),
		sinks:   sinks,
		workers: opts.Workers,
		timeout: opts.DeliverTimeout,
		metrics: opts.Metrics,
	}
}

// Start launches the workers. Call it once.
func (d *Dispatcher) Start() {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.work(i)
	}
}

// Notify enqueues event and returns immediately.
func (d *Dispatcher) Notify(event models.SessionEvent) {
	if !d.enqueue(event) {
		if d.metrics != nil {
			d.metrics.RecordNotificationDropped()
		}
		log.Warn().
			Str("event_id", event.ID).
			Int64("session_id", event.SessionID).
			Str("type", event.Type).
			Msg("notification dropped")
	}
}

func (d *Dispatcher) enqueue(event models.SessionEvent) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return false
	}
	select {
	case d.queue <- event:
		return true
	default:
		return false
	}
}

// Close stops intake and waits for queued events to drain, or for ctx.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return ErrDispatcherClosed
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) work(id int) {
	defer d.wg.Done()
	for event := range d.queue {
		if err := d.dispatch(event); err != nil {
			log.Error().
				Err(err).
				Int("worker", id).
				Str("event_id", event.ID).
				Int64("session_id", event.SessionID).
				Msg("notification delivery failed")
		}
	}
}

// dispatch delivers to every sink concurrently. One failing sink does not
// cancel the others.
func (d *Dispatcher) dispatch(event models.SessionEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	errwg := new(errgroup.Group)
	for _, sink := range d.sinks {
		errwg.Go(func() error {
			if err := sink.Deliver(ctx, event); err != nil {
				log.Debug().Err(err).Str("sink", sink.Name()).Str("event_id", event.ID).Msg("sink failed")
				return err
			}
			return nil
		})
	}
	return errwg.Wait()
}
