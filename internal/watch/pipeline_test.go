package watch

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/flemzord/promowatch/internal/history"
	"github.com/flemzord/promowatch/internal/keyword"
	"github.com/flemzord/promowatch/pkg/event"
)

type fakeSink struct {
	mu     sync.Mutex
	sent   []event.Notification
	err    error
	panics bool
}

func (s *fakeSink) Notify(_ context.Context, n event.Notification) error {
	if s.panics {
		panic("sink exploded")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, n)
	return nil
}

func (s *fakeSink) notifications() []event.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]event.Notification(nil), s.sent...)
}

type fakeHistory struct {
	mu      sync.Mutex
	entries []history.Entry
	err     error
}

func (h *fakeHistory) Record(_ context.Context, e history.Entry) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.err != nil {
		return h.err
	}
	h.entries = append(h.entries, e)
	return nil
}

func (h *fakeHistory) Recent(context.Context, int) ([]history.Entry, error) {
	return nil, nil
}

func (h *fakeHistory) CountByKeyword(context.Context, time.Time) ([]history.KeywordCount, error) {
	return nil, nil
}

func (h *fakeHistory) recorded() []history.Entry {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]history.Entry(nil), h.entries...)
}

type staticKeywords []string

func (k staticKeywords) Snapshot() []string { return append([]string(nil), k...) }

func newTestPipeline(t *testing.T, phrases []string, sink Sink, hist history.Store) *Pipeline {
	t.Helper()
	discard := slog.New(slog.DiscardHandler)
	return NewPipeline(Config{
		Keywords: staticKeywords(phrases),
		Matcher:  keyword.NewMatcher(discard),
		Filter:   NewFilter(func() int64 { return 42 }, 7, []string{"Comentários"}, discard),
		Sink:     sink,
		History:  hist,
		Metrics:  NewMetrics(prometheus.NewRegistry()),
		Logger:   discard,
	})
}

func drain(t *testing.T, p *Pipeline) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := p.Stop(ctx); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
}

func TestPipelineDispatchesOnMatch(t *testing.T) {
	sink := &fakeSink{}
	hist := &fakeHistory{}
	p := newTestPipeline(t, []string{"ps5"}, sink, hist)

	p.Submit(event.ChatEvent{
		SenderID:  100,
		ChatID:    1234,
		ChatTitle: "Deals BR",
		MessageID: 9,
		Text:      "Buy PS5 today, huge discount",
	})
	drain(t, p)

	sent := sink.notifications()
	if len(sent) != 1 {
		t.Fatalf("dispatched %d notifications, want 1", len(sent))
	}
	if !strings.Contains(sent[0].Text, "`ps5`") {
		t.Errorf("notification missing matched keyword: %s", sent[0].Text)
	}

	entries := hist.recorded()
	if len(entries) != 1 {
		t.Fatalf("recorded %d history entries, want 1", len(entries))
	}
	if entries[0].Keyword != "ps5" || entries[0].ChatID != 1234 || entries[0].MessageID != 9 {
		t.Errorf("history entry = %+v", entries[0])
	}
	if entries[0].DispatchedAt.IsZero() {
		t.Error("history entry has zero DispatchedAt")
	}
}

func TestPipelineFirstMatchWins(t *testing.T) {
	sink := &fakeSink{}
	p := newTestPipeline(t, []string{"iphone", "ps5"}, sink, nil)

	// Both phrases match; only the first in insertion order dispatches.
	p.Submit(event.ChatEvent{SenderID: 100, ChatID: 1, MessageID: 1, Text: "ps5 and iphone combo deal"})
	drain(t, p)

	sent := sink.notifications()
	if len(sent) != 1 {
		t.Fatalf("dispatched %d notifications, want 1", len(sent))
	}
	if !strings.Contains(sent[0].Text, "`iphone`") {
		t.Errorf("notification = %s, want first keyword iphone", sent[0].Text)
	}
}

func TestPipelineNoMatchNoDispatch(t *testing.T) {
	sink := &fakeSink{}
	p := newTestPipeline(t, []string{"ps5"}, sink, nil)

	p.Submit(event.ChatEvent{SenderID: 100, ChatID: 1, MessageID: 1, Text: "the apps500 deal is live"})
	drain(t, p)

	if n := len(sink.notifications()); n != 0 {
		t.Errorf("dispatched %d notifications, want 0", n)
	}
}

func TestPipelineFilteredEventsSkipScanning(t *testing.T) {
	sink := &fakeSink{}
	p := newTestPipeline(t, []string{"ps5"}, sink, nil)

	events := []event.ChatEvent{
		{SenderID: 7, ChatID: 1, MessageID: 1, Text: "ps5", Outgoing: true},
		{SenderID: 42, ChatID: 1, MessageID: 2, Text: "ps5"},
		{SenderID: 7, ChatID: 1, MessageID: 3, Text: "ps5"},
		{SenderID: 100, ChatID: 2, ChatTitle: "Comentários", MessageID: 4, Text: "ps5"},
		{SenderID: 100, ChatID: 1, MessageID: 5, Text: "  "},
	}
	for _, ev := range events {
		p.Submit(ev)
	}
	drain(t, p)

	if n := len(sink.notifications()); n != 0 {
		t.Errorf("dispatched %d notifications, want 0", n)
	}
}

func TestPipelineDispatchFailureIsSwallowed(t *testing.T) {
	sink := &fakeSink{err: errors.New("telegram unreachable")}
	hist := &fakeHistory{}
	p := newTestPipeline(t, []string{"ps5"}, sink, hist)

	if err := p.Submit(event.ChatEvent{SenderID: 100, ChatID: 1, MessageID: 1, Text: "ps5 restock"}); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	drain(t, p)

	if n := len(hist.recorded()); n != 0 {
		t.Errorf("recorded %d history entries after failed dispatch, want 0", n)
	}
}

func TestPipelineHistoryFailureIsSwallowed(t *testing.T) {
	sink := &fakeSink{}
	hist := &fakeHistory{err: errors.New("disk full")}
	p := newTestPipeline(t, []string{"ps5"}, sink, hist)

	p.Submit(event.ChatEvent{SenderID: 100, ChatID: 1, MessageID: 1, Text: "ps5 restock"})
	drain(t, p)

	if n := len(sink.notifications()); n != 1 {
		t.Errorf("dispatched %d notifications, want 1", n)
	}
}

func TestPipelineRecoversFromPanic(t *testing.T) {
	sink := &fakeSink{panics: true}
	p := newTestPipeline(t, []string{"ps5"}, sink, nil)

	p.Submit(event.ChatEvent{SenderID: 100, ChatID: 1, MessageID: 1, Text: "ps5 restock"})
	drain(t, p)

	// A second event must still be accepted and processed after the panic.
	sink.panics = false
	p2 := newTestPipeline(t, []string{"ps5"}, sink, nil)
	p2.Submit(event.ChatEvent{SenderID: 100, ChatID: 1, MessageID: 2, Text: "ps5 again"})
	drain(t, p2)

	if n := len(sink.notifications()); n != 1 {
		t.Errorf("dispatched %d notifications, want 1", n)
	}
}

func TestPipelineDropsEventsAfterStop(t *testing.T) {
	sink := &fakeSink{}
	p := newTestPipeline(t, []string{"ps5"}, sink, nil)
	drain(t, p)

	if err := p.Submit(event.ChatEvent{SenderID: 100, ChatID: 1, MessageID: 1, Text: "ps5"}); err != nil {
		t.Fatalf("Submit() after Stop error = %v", err)
	}
	if n := len(sink.notifications()); n != 0 {
		t.Errorf("dispatched %d notifications after Stop, want 0", n)
	}
}

func TestPipelineMultiWordPhrase(t *testing.T) {
	sink := &fakeSink{}
	p := newTestPipeline(t, []string{"iphone 15 pro"}, sink, nil)

	// All words must be present; order and adjacency do not matter.
	p.Submit(event.ChatEvent{SenderID: 100, ChatID: 1, MessageID: 1, Text: "Max deal: iPhone 15 with case"})
	p.Submit(event.ChatEvent{SenderID: 100, ChatID: 1, MessageID: 2, Text: "Pro tip: the iPhone 15 is in stock"})
	drain(t, p)

	if n := len(sink.notifications()); n != 1 {
		t.Errorf("dispatched %d notifications, want 1", n)
	}
}
