package config

import (
	"context"
	"os"
	"sync/atomic"
	"testing"
	"time"
)

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	path := writeConfig(t, "upstream:\n  model: \"first\"\n")

	w, err := NewWatcher(path, 20*time.Millisecond)
	if err != nil {
		t.Fatalf("failed to create watcher: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloaded := make(chan *Config, 1)
	done := make(chan error, 1)
	go func() {
		done <- w.Watch(ctx, func(cfg *Config) {
			select {
			case reloaded <- cfg:
			default:
			}
		})
	}()

	// Give the watcher a moment to register the directory.
	time.Sleep(100 * time.Millisecond)

	if err := os.WriteFile(path, []byte("upstream:\n  model: \"second\"\n"), 0644); err != nil {
		t.Fatal(err)
	}

	select {
	case cfg := <-reloaded:
		if cfg.Upstream.Model != "second" {
			t.Errorf("expected reloaded model %q, got %q", "second", cfg.Upstream.Model)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for reload")
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("watch returned error: %v", err)
	}
}

func TestWatcher_InvalidEditKeepsPrevious(t *testing.T) {
	path := writeConfig(t, "upstream:\n  model: \"first\"\n")

	w, err := NewWatcher(path, 20*time.Millisecond)
	if err != nil {
		t.Fatalf("failed to create watcher: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	go func() {
		_ = w.Watch(ctx, func(*Config) { calls.Add(1) })
	}()
	time.Sleep(100 * time.Millisecond)

	if err := os.WriteFile(path, []byte("proxy:\n  mount: \"no-slash\"\n"), 0644); err != nil {
		t.Fatal(err)
	}
	time.Sleep(300 * time.Millisecond)

	if n := calls.Load(); n != 0 {
		t.Errorf("expected no reload callbacks for invalid config, got %d", n)
	}
}

func TestDebouncer_CoalescesTriggers(t *testing.T) {
	d := NewDebouncer(30 * time.Millisecond)
	defer d.Stop()

	var count atomic.Int32
	for i := 0; i < 5; i++ {
		d.Trigger(func() { count.Add(1) })
	}

	time.Sleep(150 * time.Millisecond)
	if n := count.Load(); n != 1 {
		t.Errorf("expected 1 callback, got %d", n)
	}
}
