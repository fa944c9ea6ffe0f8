package reload

import (
	"context"
	"log/slog"
)

// Run consumes events from w and invokes fn for each one until the context
// is cancelled or the watcher is stopped. Errors from fn are logged and do
// not end the loop.
func Run(ctx context.Context, w *Watcher, logger *slog.Logger, fn func(context.Context) error) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-w.Events():
			if !ok {
				return
			}
			logger.Info("watched file changed, reloading", "path", evt.Path)
			if err := fn(ctx); err != nil {
				logger.Error("reload failed", "path", evt.Path, "error", err)
			}
		}
	}
}
