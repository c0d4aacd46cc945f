package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Publisher fans events out to a sink, either synchronously or through a
// buffered channel drained by a background goroutine. Audit failures are
// logged, never propagated: an unreachable sink must not fail the domain
// operation that emitted the event.
type Publisher struct {
	sink   Sink
	logger *slog.Logger

	ch     chan Event
	wg     sync.WaitGroup
	closed chan struct{}
}

// PublisherOption configures a Publisher.
type PublisherOption func(*Publisher)

// WithAsyncBuffer switches the publisher to asynchronous delivery with the
// given channel capacity. Close drains the buffer before returning.
func WithAsyncBuffer(size int) PublisherOption {
	return func(p *Publisher) {
		if size > 0 {
			p.ch = make(chan Event, size)
		}
	}
}

func WithPublisherLogger(logger *slog.Logger) PublisherOption {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// NewPublisher constructs a Publisher over the given sink.
func NewPublisher(sink Sink, opts ...PublisherOption) *Publisher {
	p := &Publisher{sink: sink, closed: make(chan struct{})}
	for _, opt := range opts {
		opt(p)
	}
	if p.ch != nil {
		p.wg.Add(1)
		go p.drain()
	}
	return p
}

// Emit delivers an event. A zero timestamp is stamped with the current UTC
// time. In async mode a full buffer drops the event with a warning rather
// than blocking the caller.
func (p *Publisher) Emit(ctx context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if p.ch == nil {
		if err := p.sink.Append(ctx, event); err != nil {
			p.warn(ctx, "audit append failed", event, err)
		}
		return nil
	}
	select {
	case p.ch <- event:
	default:
		p.warn(ctx, "audit buffer full, event dropped", event, nil)
	}
	return nil
}

// Close stops the background drain, flushing any buffered events first.
func (p *Publisher) Close() {
	select {
	case <-p.closed:
		return
	default:
	}
	close(p.closed)
	if p.ch != nil {
		close(p.ch)
		p.wg.Wait()
	}
}

func (p *Publisher) drain() {
	defer p.wg.Done()
	for event := range p.ch {
		if err := p.sink.Append(context.Background(), event); err != nil {
			p.warn(context.Background(), "audit append failed", event, err)
		}
	}
}

func (p *Publisher) warn(ctx context.Context, msg string, event Event, err error) {
	if p.logger == nil {
		return
	}
	args := []any{"action", event.Action}
	if err != nil {
		args = append(args, "error", err)
	}
	p.logger.WarnContext(ctx, msg, args...)
}
