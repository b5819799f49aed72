// Package publisher decouples event emission from persistence. In sync mode
// Emit appends directly to the store; with an async buffer, events queue on
// a channel and a single goroutine drains them, so write-path latency never
// depends on the audit backend. Close drains the buffer before returning.
package publisher

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"registrar/pkg/domain"
	audit "registrar/pkg/platform/audit"
)

// Publisher emits audit events to a Store.
type Publisher struct {
	store  audit.Store
	logger *slog.Logger

	inbox   chan audit.Event
	done    chan struct{}
	closeMu sync.Mutex
	closed  bool
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithAsyncBuffer enables asynchronous emission with the given channel size.
func WithAsyncBuffer(size int) Option {
	return func(p *Publisher) {
		p.inbox = make(chan audit.Event, size)
	}
}

// WithLogger sets the logger used to report dropped events.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// NewPublisher constructs a publisher over the given store.
func NewPublisher(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{store: store, logger: slog.Default(), done: make(chan struct{})}
	for _, opt := range opts {
		opt(p)
	}
	if p.inbox != nil {
		go p.drain()
	}
	return p
}

func (p *Publisher) drain() {
	defer close(p.done)
	for event := range p.inbox {
		// Audit persistence must not be cancelled by the request that
		// triggered it; use a bounded background context instead.
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = p.store.Append(ctx, event)
		cancel()
	}
}

// Emit records one audit event. Missing ID and Timestamp fields are filled
// in here so call sites only describe what happened. In async mode Emit
// never blocks the caller: events arriving after Close, or while the inbox
// is full, are dropped and logged.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if p.inbox != nil {
		p.closeMu.Lock()
		defer p.closeMu.Unlock()
		if p.closed {
			p.logger.Warn("audit event dropped, publisher closed",
				"event_id", event.ID, "action", event.Action)
			return nil
		}
		select {
		case p.inbox <- event:
		default:
			p.logger.Warn("audit event dropped, inbox full",
				"event_id", event.ID, "action", event.Action)
		}
		return nil
	}
	return p.store.Append(ctx, event)
}

// List returns the events recorded for one owner.
func (p *Publisher) List(ctx context.Context, owner domain.OwnerAddress) ([]audit.Event, error) {
	return p.store.ListByOwner(ctx, owner)
}

// Close stops async processing after draining any buffered events.
// Safe to call multiple times.
func (p *Publisher) Close() {
	p.closeMu.Lock()
	defer p.closeMu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	if p.inbox != nil {
		close(p.inbox)
		<-p.done
	}
}
