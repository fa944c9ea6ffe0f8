package cron

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/flemzord/promowatch/internal/core"
	"github.com/flemzord/promowatch/internal/history"
)

func init() {
	core.RegisterModule(&Module{})
}

// Compile-time interface guards.
var (
	_ core.Configurable = (*Module)(nil)
	_ core.Provisioner  = (*Module)(nil)
	_ core.Starter      = (*Module)(nil)
	_ core.Stopper      = (*Module)(nil)
)

// ModuleConfig holds the digest scheduling configuration.
type ModuleConfig struct {
	// Schedule is a 5-field cron expression. Defaults to "0 9 * * *".
	Schedule string `yaml:"schedule"`

	// Window is the aggregation window. Defaults to 24h.
	Window time.Duration `yaml:"window"`
}

// Module runs the digest job on a cron schedule. It resolves the history
// store and notification sink from the service registry at Start, so
// module load order does not matter.
type Module struct {
	config    ModuleConfig
	appCtx    *core.AppContext
	logger    *slog.Logger
	scheduler *Scheduler
}

// ModuleInfo implements core.Module.
func (m *Module) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "cron.digest",
		New: func() core.Module { return &Module{} },
	}
}

// Configure implements core.Configurable.
func (m *Module) Configure(node *yaml.Node) error {
	if err := node.Decode(&m.config); err != nil {
		return fmt.Errorf("cron: decode config: %w", err)
	}
	return nil
}

// Provision implements core.Provisioner.
func (m *Module) Provision(ctx *core.AppContext) error {
	m.appCtx = ctx
	m.logger = ctx.Logger
	return nil
}

// Start implements core.Starter.
func (m *Module) Start() error {
	svc, ok := m.appCtx.Service("history.store")
	if !ok {
		return errors.New("cron: history.store service not found (is the history module loaded?)")
	}
	store, ok := svc.(history.Store)
	if !ok {
		return errors.New("cron: history.store service has unexpected type")
	}

	svc, ok = m.appCtx.Service("notifier.sink")
	if !ok {
		return errors.New("cron: notifier.sink service not found (is the notifier module loaded?)")
	}
	sink, ok := svc.(Notifier)
	if !ok {
		return errors.New("cron: notifier.sink service has unexpected type")
	}

	m.scheduler = NewScheduler(m.logger)
	if err := m.scheduler.RegisterJob(&DigestJob{
		History:      store,
		Notifier:     sink,
		Logger:       m.logger,
		Window:       m.config.Window,
		ScheduleExpr: m.config.Schedule,
	}); err != nil {
		return err
	}

	return m.scheduler.Start()
}

// Stop implements core.Stopper.
func (m *Module) Stop(ctx context.Context) error {
	if m.scheduler == nil {
		return nil
	}
	return m.scheduler.Stop(ctx)
}
