package cron

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/flemzord/promowatch/internal/history"
	"github.com/flemzord/promowatch/internal/markup"
	"github.com/flemzord/promowatch/pkg/event"
)

// Notifier delivers the digest message to the configured recipient.
type Notifier interface {
	Notify(ctx context.Context, n event.Notification) error
}

// DigestJob summarises dispatched alerts per keyword over a rolling window
// and sends the summary to the recipient. Windows with no dispatches are
// skipped silently.
type DigestJob struct {
	History      history.Store
	Notifier     Notifier
	Logger       *slog.Logger
	Window       time.Duration // empty = 24h
	ScheduleExpr string        // empty = default "0 9 * * *"
}

// Compile-time interface check.
var _ Job = (*DigestJob)(nil)

// Name implements Job.
func (j *DigestJob) Name() string { return "dispatch_digest" }

// Schedule implements Job.
func (j *DigestJob) Schedule() string {
	if j.ScheduleExpr != "" {
		return j.ScheduleExpr
	}
	return "0 9 * * *"
}

// Run implements Job.
func (j *DigestJob) Run(ctx context.Context) error {
	window := j.Window
	if window <= 0 {
		window = 24 * time.Hour
	}

	counts, err := j.History.CountByKeyword(ctx, time.Now().Add(-window))
	if err != nil {
		return fmt.Errorf("cron: digest aggregation: %w", err)
	}
	if len(counts) == 0 {
		j.Logger.Debug("cron: digest skipped, no dispatches in window")
		return nil
	}

	if err := j.Notifier.Notify(ctx, formatDigest(counts, window)); err != nil {
		return fmt.Errorf("cron: send digest: %w", err)
	}
	j.Logger.Info("cron: digest sent", "keywords", len(counts))
	return nil
}

// formatDigest renders the per-keyword counts as a MarkdownV2 message.
func formatDigest(counts []history.KeywordCount, window time.Duration) event.Notification {
	var b strings.Builder
	b.WriteString(markup.Bold("📊 Deal digest") + "\n")
	b.WriteString(markup.EscapeMarkdownV2(fmt.Sprintf("Alerts in the last %s:", window)) + "\n\n")

	var total int64
	for _, kc := range counts {
		total += kc.Count
		noun := "alerts"
		if kc.Count == 1 {
			noun = "alert"
		}
		b.WriteString(fmt.Sprintf("• %s: %d %s\n", markup.Code(kc.Keyword), kc.Count, noun))
	}
	b.WriteString("\n" + markup.Bold(fmt.Sprintf("Total: %d", total)))

	return event.Notification{
		Text:      b.String(),
		ParseMode: "MarkdownV2",
	}
}
