package daemon

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/fx"

	"github.com/geovannymcode/chatflow-client/internal/config"
	"github.com/geovannymcode/chatflow-client/internal/status"
)

func writeTestConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.DataDir = dir
	path := filepath.Join(dir, "config.toml")
	if err := config.Save(path, cfg); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestModuleGraphIsValid(t *testing.T) {
	if err := fx.ValidateApp(Module(Params{ConfigPath: writeTestConfig(t)})); err != nil {
		t.Fatalf("fx graph invalid: %v", err)
	}
}

func TestDaemonLifecycle(t *testing.T) {
	var client *Client
	app := fx.New(
		Module(Params{ConfigPath: writeTestConfig(t)}),
		fx.Populate(&client),
		fx.NopLogger,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}

	// No stored credentials: connect is refused before any dial, so the
	// daemon comes up offline.
	if got := client.State(); got != status.Disconnected {
		t.Fatalf("state = %v", got)
	}

	// Optimistic sends still queue locally while offline.
	p := client.SendMessage("c1", "queued")
	if got := client.Pending("c1"); len(got) != 1 || got[0].TempID != p.TempID {
		t.Fatalf("pending = %+v", got)
	}

	if err := client.SetTokens("access", "refresh"); err != nil {
		t.Fatal(err)
	}

	if err := app.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}
}

func TestSecondInstanceRefused(t *testing.T) {
	cfgPath := writeTestConfig(t)

	app1 := fx.New(Module(Params{ConfigPath: cfgPath}), fx.NopLogger)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app1.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer func() { _ = app1.Stop(ctx) }()

	app2 := fx.New(Module(Params{ConfigPath: cfgPath}), fx.NopLogger)
	if err := app2.Start(ctx); err == nil {
		_ = app2.Stop(ctx)
		t.Fatal("second instance should fail to acquire the data dir lock")
	}
}
