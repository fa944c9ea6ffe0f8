package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/flemzord/promowatch/internal/command"
	"github.com/flemzord/promowatch/internal/core"
	"github.com/flemzord/promowatch/internal/history"
	"github.com/flemzord/promowatch/internal/keyword"
	"github.com/flemzord/promowatch/internal/watch"
	"github.com/flemzord/promowatch/pkg/event"
)

// eventSource is the contract a source module must satisfy to feed the
// pipeline. The bridge module implements it.
type eventSource interface {
	SetInbox(fn func(event.ChatEvent) error)
	SelfID() int64
	Blacklist() []string
}

// notifier is the contract a notifier module must satisfy. The Telegram
// module implements it.
type notifier interface {
	Notify(ctx context.Context, n event.Notification) error
	Reply(ctx context.Context, chatID int64, n event.Notification) error
	SetInbox(fn func(event.BotMessage) error)
	BotID() int64
	Recipient() int64
}

// pipelineModule wraps a *watch.Pipeline to satisfy core.Module,
// core.Starter, and core.Stopper, so the pipeline participates in the
// App lifecycle.
type pipelineModule struct {
	pipeline *watch.Pipeline
}

func (m *pipelineModule) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{ID: "watch.pipeline"}
}

func (m *pipelineModule) Start() error { return nil }

func (m *pipelineModule) Stop(ctx context.Context) error {
	return m.pipeline.Stop(ctx)
}

// wirePipeline discovers the event source, notifier, and stores from the
// loaded modules, builds the watch pipeline and the command router, and
// connects both inboxes. Must be called after LoadModules and before Start.
func wirePipeline(
	app *core.App,
	appCtx *core.AppContext,
	ids []string,
	logger *slog.Logger,
) error {
	var src eventSource
	var sink notifier

	for _, id := range ids {
		mod, ok := app.Module(id)
		if !ok {
			continue
		}
		if s, ok := mod.(eventSource); ok {
			src = s
			logger.Info("pipeline: discovered event source", "module", id)
		}
		if n, ok := mod.(notifier); ok {
			sink = n
			logger.Info("pipeline: discovered notifier", "module", id)
		}
	}

	if src == nil {
		return errors.New("pipeline: no event source module loaded (add source.bridge to the config)")
	}
	if sink == nil {
		return errors.New("pipeline: no notifier module loaded (add notifier.telegram to the config)")
	}

	svc, ok := appCtx.Service("keywords.store")
	if !ok {
		return errors.New("pipeline: keywords.store service not found (add keywords.file to the config)")
	}
	store, ok := svc.(*keyword.Store)
	if !ok {
		return errors.New("pipeline: keywords.store service has unexpected type")
	}

	// Dispatch history is optional; the pipeline degrades to not recording.
	var dispatch history.Store
	if svc, ok := appCtx.Service("history.store"); ok {
		dispatch, _ = svc.(history.Store)
	}

	pipeline := watch.NewPipeline(watch.Config{
		Keywords: store,
		Matcher:  keyword.NewMatcher(logger),
		Filter:   watch.NewFilter(sink.BotID, src.SelfID(), src.Blacklist(), logger),
		Sink:     sink,
		History:  dispatch,
		Metrics:  watch.NewMetrics(nil),
		Logger:   logger,
	})
	src.SetInbox(pipeline.Submit)

	router, err := command.NewRouter(command.Config{
		Recipient: sink.Recipient(),
		Store:     store,
		Replier:   sink,
		Logger:    logger,
	})
	if err != nil {
		return fmt.Errorf("pipeline: creating command router: %w", err)
	}
	sink.SetInbox(func(msg event.BotMessage) error {
		return router.Handle(context.Background(), msg)
	})

	// Append the pipeline to the app lifecycle so Stop drains in-flight
	// events before the notifier shuts down.
	app.AppendModule("watch.pipeline", &pipelineModule{pipeline: pipeline})

	logger.Info("pipeline: wired")
	return nil
}
