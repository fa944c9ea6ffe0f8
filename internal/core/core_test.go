package core

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"gopkg.in/yaml.v3"
)

// fakeModule records lifecycle calls for assertions.
type fakeModule struct {
	id         string
	calls      *[]string
	startErr   error
	configured testConfig
}

type testConfig struct {
	Value string `yaml:"value"`
}

func (m *fakeModule) ModuleInfo() ModuleInfo {
	return ModuleInfo{
		ID:  ModuleID(m.id),
		New: func() Module { return &fakeModule{id: m.id, calls: m.calls, startErr: m.startErr} },
	}
}

func (m *fakeModule) Configure(node *yaml.Node) error {
	*m.calls = append(*m.calls, m.id+":configure")
	return node.Decode(&m.configured)
}

func (m *fakeModule) Provision(ctx *AppContext) error {
	*m.calls = append(*m.calls, m.id+":provision")
	ctx.RegisterService("test."+m.id, m)
	return nil
}

func (m *fakeModule) Validate() error {
	*m.calls = append(*m.calls, m.id+":validate")
	return nil
}

func (m *fakeModule) Start() error {
	*m.calls = append(*m.calls, m.id+":start")
	return m.startErr
}

func (m *fakeModule) Stop(_ context.Context) error {
	*m.calls = append(*m.calls, m.id+":stop")
	return nil
}

func newTestContext() *AppContext {
	logger := slog.New(slog.DiscardHandler)
	return NewAppContext(logger, "")
}

func TestLoadModuleLifecycleOrder(t *testing.T) {
	var calls []string
	RegisterModule(&fakeModule{id: "test.order", calls: &calls})

	var node yaml.Node
	if err := yaml.Unmarshal([]byte("value: hello"), &node); err != nil {
		t.Fatalf("unmarshal config: %v", err)
	}

	ctx := newTestContext().WithModuleConfigs(map[string]yaml.Node{"test.order": node})
	mod, err := ctx.LoadModule("test.order")
	if err != nil {
		t.Fatalf("LoadModule() error: %v", err)
	}

	want := []string{"test.order:configure", "test.order:provision", "test.order:validate"}
	if len(calls) != len(want) {
		t.Fatalf("calls = %v, want %v", calls, want)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Errorf("calls[%d] = %q, want %q", i, calls[i], want[i])
		}
	}

	fm := mod.(*fakeModule)
	if fm.configured.Value != "hello" {
		t.Errorf("configured value = %q, want %q", fm.configured.Value, "hello")
	}
}

func TestLoadModuleUnknown(t *testing.T) {
	ctx := newTestContext()
	if _, err := ctx.LoadModule("test.does-not-exist"); err == nil {
		t.Fatal("LoadModule() expected error for unknown module")
	}
}

func TestServiceRegistrySharedAcrossScopes(t *testing.T) {
	ctx := newTestContext()
	child := ctx.ForModule("test.child")
	child.RegisterService("shared.value", 42)

	got, ok := ctx.Service("shared.value")
	if !ok {
		t.Fatal("Service() not found on parent context")
	}
	if got.(int) != 42 {
		t.Errorf("Service() = %v, want 42", got)
	}
}

func TestAppStartFailureStopsStartedModules(t *testing.T) {
	var calls []string
	RegisterModule(&fakeModule{id: "test.ok", calls: &calls})
	RegisterModule(&fakeModule{id: "test.fail", calls: &calls, startErr: errors.New("boom")})

	ctx := newTestContext()
	app := NewApp(ctx)
	if err := app.LoadModules([]string{"test.ok", "test.fail"}); err != nil {
		t.Fatalf("LoadModules() error: %v", err)
	}

	calls = calls[:0]
	if err := app.Start(); err == nil {
		t.Fatal("Start() expected error")
	}

	want := []string{"test.ok:start", "test.fail:start", "test.ok:stop"}
	if len(calls) != len(want) {
		t.Fatalf("calls = %v, want %v", calls, want)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Errorf("calls[%d] = %q, want %q", i, calls[i], want[i])
		}
	}
}

func TestAppendModuleParticipatesInLifecycle(t *testing.T) {
	var calls []string
	ctx := newTestContext()
	app := NewApp(ctx)
	app.AppendModule("test.appended", &fakeModule{id: "test.appended", calls: &calls})

	if err := app.Start(); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	app.Stop()

	want := []string{"test.appended:start", "test.appended:stop"}
	if len(calls) != len(want) {
		t.Fatalf("calls = %v, want %v", calls, want)
	}
}
