package keyword

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/flemzord/promowatch/internal/core"
	"github.com/flemzord/promowatch/internal/reload"
	"gopkg.in/yaml.v3"
)

func init() {
	core.RegisterModule(&Module{})
}

// Compile-time interface guards.
var (
	_ core.Configurable = (*Module)(nil)
	_ core.Provisioner  = (*Module)(nil)
	_ core.Validator    = (*Module)(nil)
	_ core.Starter      = (*Module)(nil)
	_ core.Stopper      = (*Module)(nil)
)

// Module exposes the file-backed keyword store to the module system.
// It registers the store as service "keywords.store" so the watch pipeline,
// the command router, and the HTTP gateway can discover it.
type Module struct {
	config  Config
	store   *Store
	logger  *slog.Logger
	watcher *reload.Watcher
	cancel  context.CancelFunc
}

// Config holds the keyword store configuration.
type Config struct {
	// Path to the keyword file. Relative paths resolve against DataDir.
	// Defaults to "keywords.txt" in DataDir.
	Path string `yaml:"path"`

	// WatchFile enables polling the keyword file for external edits,
	// reloading the set when the file changes.
	WatchFile bool `yaml:"watch_file"`

	// PollInterval is how often to check for file changes when WatchFile
	// is enabled. Defaults to 5 seconds.
	PollInterval time.Duration `yaml:"poll_interval"`
}

// ModuleInfo implements core.Module.
func (m *Module) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "keywords.file",
		New: func() core.Module { return &Module{} },
	}
}

// Configure implements core.Configurable.
func (m *Module) Configure(node *yaml.Node) error {
	if err := node.Decode(&m.config); err != nil {
		return fmt.Errorf("keyword: decode config: %w", err)
	}
	return nil
}

// Provision implements core.Provisioner. It opens (or initializes) the
// keyword file and registers the store for discovery.
func (m *Module) Provision(ctx *core.AppContext) error {
	m.logger = ctx.Logger

	path := m.config.Path
	if path == "" {
		path = "keywords.txt"
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(ctx.DataDir, path)
	}

	store, err := Open(path, m.logger)
	if err != nil {
		return err
	}
	m.store = store

	ctx.RegisterService("keywords.store", store)
	return nil
}

// Validate implements core.Validator.
func (m *Module) Validate() error {
	if strings.ContainsRune(m.config.Path, '\n') {
		return errors.New("keyword: path must not contain newlines")
	}
	if m.config.PollInterval < 0 {
		return errors.New("keyword: poll_interval must not be negative")
	}
	return nil
}

// Start implements core.Starter. When watch_file is enabled it begins
// polling the keyword file so hand edits are picked up without a restart.
func (m *Module) Start() error {
	if !m.config.WatchFile {
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel

	m.watcher = reload.NewWatcher(reload.WatcherConfig{
		Path:         m.store.Path(),
		PollInterval: m.config.PollInterval,
	})
	m.watcher.Start(ctx)

	go reload.Run(ctx, m.watcher, m.logger, func(context.Context) error {
		return m.store.Reload()
	})

	m.logger.Info("keyword file watch enabled", "path", m.store.Path())
	return nil
}

// Stop implements core.Stopper. The store has no open handles between
// mutations; Stop tears down the file watcher, if any, and logs the final
// set size for diagnostics.
func (m *Module) Stop(_ context.Context) error {
	if m.cancel != nil {
		m.cancel()
		m.watcher.Stop()
	}
	if m.store != nil {
		m.logger.Info("keyword store stopped", "count", m.store.Len())
	}
	return nil
}

// Store returns the provisioned store. Only valid after Provision.
func (m *Module) Store() *Store {
	return m.store
}
