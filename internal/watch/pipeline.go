package watch

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/flemzord/promowatch/internal/history"
	"github.com/flemzord/promowatch/internal/keyword"
	"github.com/flemzord/promowatch/pkg/event"
)

const defaultDispatchTimeout = 15 * time.Second

// Sink delivers a formatted notification to the configured recipient.
type Sink interface {
	Notify(ctx context.Context, n event.Notification) error
}

// Snapshotter provides an immutable copy of the current keyword set in
// insertion order. *keyword.Store satisfies it.
type Snapshotter interface {
	Snapshot() []string
}

// Config holds pipeline construction parameters.
type Config struct {
	Keywords Snapshotter
	Matcher  *keyword.Matcher
	Filter   *Filter
	Sink     Sink
	History  history.Store // optional
	Metrics  *Metrics      // optional
	Logger   *slog.Logger

	// DispatchTimeout bounds a single notification delivery attempt.
	// A stuck sink call must not hold an event goroutine forever.
	DispatchTimeout time.Duration
}

// Pipeline processes inbound chat events: filter, scan the keyword
// snapshot in insertion order, and dispatch at most one notification per
// event (first match wins). Each event runs in its own goroutine; a
// failure or panic in one event never affects another.
type Pipeline struct {
	keywords        Snapshotter
	matcher         *keyword.Matcher
	filter          *Filter
	sink            Sink
	history         history.Store
	metrics         *Metrics
	logger          *slog.Logger
	dispatchTimeout time.Duration
	tracer          trace.Tracer

	wg      sync.WaitGroup
	mu      sync.Mutex
	stopped bool
}

// NewPipeline creates a Pipeline from cfg.
func NewPipeline(cfg Config) *Pipeline {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.DispatchTimeout
	if timeout <= 0 {
		timeout = defaultDispatchTimeout
	}
	return &Pipeline{
		keywords:        cfg.Keywords,
		matcher:         cfg.Matcher,
		filter:          cfg.Filter,
		sink:            cfg.Sink,
		history:         cfg.History,
		metrics:         cfg.Metrics,
		logger:          logger,
		dispatchTimeout: timeout,
		tracer:          otel.Tracer("promowatch/watch"),
	}
}

// Submit accepts an inbound event and processes it asynchronously.
// It is the inbox handed to the event source. Events submitted after
// Stop are dropped with a warning.
func (p *Pipeline) Submit(ev event.ChatEvent) error {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		p.logger.Warn("event dropped, pipeline stopped",
			"chat_id", ev.ChatID,
			"message_id", ev.MessageID,
		)
		return nil
	}
	p.wg.Add(1)
	p.mu.Unlock()

	go func() {
		defer p.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				p.logger.Error("event handler panicked",
					"chat_id", ev.ChatID,
					"message_id", ev.MessageID,
					"panic", r,
				)
			}
		}()
		p.process(ev)
	}()
	return nil
}

// process runs the full pipeline for one event.
func (p *Pipeline) process(ev event.ChatEvent) {
	if p.metrics != nil {
		p.metrics.eventsReceived.Inc()
	}

	ctx, span := p.tracer.Start(context.Background(), "watch.process",
		trace.WithAttributes(
			attribute.Int64("chat.id", ev.ChatID),
			attribute.Int64("message.id", ev.MessageID),
		),
	)
	defer span.End()

	if ok, reason := p.filter.Accept(ev); !ok {
		if p.metrics != nil {
			p.metrics.eventsFiltered.WithLabelValues(reason).Inc()
		}
		span.SetAttributes(attribute.String("filter.reason", reason))
		return
	}

	textLower := strings.ToLower(ev.Text)

	start := time.Now()
	matched := ""
	for _, phrase := range p.keywords.Snapshot() {
		if p.matcher.Matches(textLower, phrase) {
			matched = phrase
			break
		}
	}
	if p.metrics != nil {
		p.metrics.scanDuration.Observe(time.Since(start).Seconds())
	}

	if matched == "" {
		return
	}

	span.SetAttributes(attribute.String("keyword.matched", matched))
	p.logger.Info("keyword matched",
		"keyword", matched,
		"chat_id", ev.ChatID,
		"chat_title", ev.ChatTitle,
		"message_id", ev.MessageID,
	)

	p.dispatch(ctx, ev, matched)
}

// dispatch delivers the notification and records it in history.
// Failures are logged and swallowed: the event counts as fully processed
// either way, and one bad dispatch never aborts the ingestion stream.
func (p *Pipeline) dispatch(ctx context.Context, ev event.ChatEvent, phrase string) {
	n := FormatAlert(ev, phrase)

	sendCtx, cancel := context.WithTimeout(ctx, p.dispatchTimeout)
	defer cancel()

	if err := p.sink.Notify(sendCtx, n); err != nil {
		if p.metrics != nil {
			p.metrics.dispatchFailures.Inc()
		}
		p.logger.Error("notification dispatch failed",
			"keyword", phrase,
			"chat_id", ev.ChatID,
			"message_id", ev.MessageID,
			"error", err,
		)
		return
	}

	if p.metrics != nil {
		p.metrics.dispatches.Inc()
	}

	if p.history != nil {
		if err := p.history.Record(ctx, history.Entry{
			Keyword:      phrase,
			ChatID:       ev.ChatID,
			ChatTitle:    ev.ChatTitle,
			MessageID:    ev.MessageID,
			DispatchedAt: time.Now().UTC(),
		}); err != nil {
			p.logger.Warn("history record failed",
				"keyword", phrase,
				"chat_id", ev.ChatID,
				"error", err,
			)
		}
	}
}

// Stop waits for in-flight events to finish, up to the context deadline.
// Events still running at the deadline are abandoned with a warning.
func (p *Pipeline) Stop(ctx context.Context) error {
	p.mu.Lock()
	p.stopped = true
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		p.logger.Warn("pipeline stop timed out, abandoning in-flight events")
		return ctx.Err()
	}
}
