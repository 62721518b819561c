package goAttend

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// auditDispatcher moves session audit events off the request path onto a
// single worker that feeds the sink. Events that cannot be queued are
// counted in MetricAuditDropped. A nil dispatcher discards everything.
type auditDispatcher struct {
	cfg     AuditConfig
	sink    AuditSink
	metrics *Metrics
	logger  *slog.Logger
	now     func() time.Time

	queue     chan AuditEvent
	stop      chan struct{}
	wg        sync.WaitGroup
	dropped   atomic.Uint64
	closed    atomic.Bool
	closeOnce sync.Once
}

func newAuditDispatcher(cfg AuditConfig, sink AuditSink, metrics *Metrics, logger *slog.Logger) *auditDispatcher {
	if !cfg.Enabled {
		return nil
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}
	if sink == nil {
		sink = NoOpSink{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	d := &auditDispatcher{
		cfg:     cfg,
		sink:    sink,
		metrics: metrics,
		logger:  logger.With("component", "audit"),
		now:     time.Now,
		queue:   make(chan AuditEvent, cfg.BufferSize),
		stop:    make(chan struct{}),
	}

	d.wg.Add(1)
	go d.worker()

	return d
}

func (d *auditDispatcher) worker() {
	defer d.wg.Done()

	for {
		select {
		case event := <-d.queue:
			d.deliver(event)
		case <-d.stop:
			// flush what was accepted before Close
			for {
				select {
				case event := <-d.queue:
					d.deliver(event)
				default:
					return
				}
			}
		}
	}
}

// deliver hands one event to the sink. A panicking sink loses that event
// only.
func (d *auditDispatcher) deliver(event AuditEvent) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("audit sink panicked", "event_type", event.EventType, "session_id", event.SessionID, "panic", r)
		}
	}()
	d.sink.Emit(context.Background(), event)
}

// Emit queues event, filling in a missing id or timestamp. With DropIfFull
// it never blocks; otherwise it waits for room until ctx ends or the
// dispatcher closes. Either way an event that was not queued is a drop.
func (d *auditDispatcher) Emit(ctx context.Context, event AuditEvent) {
	if d == nil || d.closed.Load() {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = d.now()
	}

	if d.cfg.DropIfFull {
		select {
		case d.queue <- event:
		case <-d.stop:
		default:
			d.drop(event, "queue full")
		}
		return
	}

	select {
	case d.queue <- event:
	case <-ctx.Done():
		d.drop(event, "request ended")
	case <-d.stop:
	}
}

func (d *auditDispatcher) drop(event AuditEvent, why string) {
	d.dropped.Add(1)
	d.metrics.Inc(MetricAuditDropped)
	d.logger.Debug("audit event dropped", "event_type", event.EventType, "session_id", event.SessionID, "why", why)
}

// Close stops the worker after flushing queued events. Safe to call twice.
func (d *auditDispatcher) Close() {
	if d == nil {
		return
	}
	d.closeOnce.Do(func() {
		d.closed.Store(true)
		close(d.stop)
		d.wg.Wait()
	})
}

func (d *auditDispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}
