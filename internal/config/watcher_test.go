package config

import (
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"
)

type watchedConfig struct {
	Name  string `toml:"name"`
	Value int    `toml:"value"`
}

func loadWatchedConfig(path string) (watchedConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return watchedConfig{}, err
	}
	var cfg watchedConfig
	err = toml.Unmarshal(data, &cfg)
	return cfg, err
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestWatcherBasicReload(t *testing.T) {
	path := writeTempTOML(t, "name = \"initial\"\nvalue = 1\n")

	received := make(chan watchedConfig, 1)
	watcher := NewWatcher(path, loadWatchedConfig, newTestLogger(),
		WithDebounce[watchedConfig](50*time.Millisecond))

	watcher.OnReload(func(cfg watchedConfig) {
		received <- cfg
	})

	if startErr := watcher.Start(); startErr != nil {
		t.Fatal(startErr)
	}
	defer func() {
		if stopErr := watcher.Stop(); stopErr != nil {
			t.Errorf("watcher.Stop failed: %v", stopErr)
		}
	}()

	// Wait for watcher to initialize
	time.Sleep(100 * time.Millisecond)

	if writeErr := os.WriteFile(path, []byte("name = \"updated\"\nvalue = 42\n"), 0o644); writeErr != nil {
		t.Fatal(writeErr)
	}

	select {
	case cfg := <-received:
		if cfg.Name != "updated" || cfg.Value != 42 {
			t.Errorf("got %+v, want name=updated, value=42", cfg)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for config reload")
	}
}

func TestWatcherDebounce(t *testing.T) {
	path := writeTempTOML(t, "value = 0\n")

	var count atomic.Int32
	var lastValue atomic.Int32

	watcher := NewWatcher(path, loadWatchedConfig, newTestLogger(),
		WithDebounce[watchedConfig](200*time.Millisecond))

	watcher.OnReload(func(cfg watchedConfig) {
		count.Add(1)
		lastValue.Store(int32(cfg.Value))
	})

	if startErr := watcher.Start(); startErr != nil {
		t.Fatal(startErr)
	}
	defer func() { _ = watcher.Stop() }()

	// Rapid changes within debounce window
	time.Sleep(100 * time.Millisecond)
	for i := 1; i <= 5; i++ {
		if writeErr := os.WriteFile(path, fmt.Appendf(nil, "value = %d\n", i), 0o644); writeErr != nil {
			t.Fatal(writeErr)
		}
		time.Sleep(50 * time.Millisecond)
	}

	time.Sleep(500 * time.Millisecond)

	if got := count.Load(); got != 1 {
		t.Errorf("expected 1 debounced call, got %d", got)
	}
	if got := lastValue.Load(); got != 5 {
		t.Errorf("expected final value 5, got %d", got)
	}
}

func TestWatcherUnsubscribe(t *testing.T) {
	path := writeTempTOML(t, "value = 1\n")

	var count1, count2 atomic.Int32
	watcher := NewWatcher(path, loadWatchedConfig, newTestLogger(),
		WithDebounce[watchedConfig](50*time.Millisecond))

	watcher.OnReload(func(_ watchedConfig) { count1.Add(1) })
	unsub2 := watcher.OnReload(func(_ watchedConfig) { count2.Add(1) })

	if startErr := watcher.Start(); startErr != nil {
		t.Fatal(startErr)
	}
	defer func() { _ = watcher.Stop() }()

	time.Sleep(100 * time.Millisecond)
	if writeErr := os.WriteFile(path, []byte("value = 10\n"), 0o644); writeErr != nil {
		t.Fatal(writeErr)
	}
	time.Sleep(300 * time.Millisecond)

	unsub2()

	if writeErr := os.WriteFile(path, []byte("value = 20\n"), 0o644); writeErr != nil {
		t.Fatal(writeErr)
	}
	time.Sleep(300 * time.Millisecond)

	if got := count1.Load(); got != 2 {
		t.Errorf("handler1: expected 2 calls, got %d", got)
	}
	if got := count2.Load(); got != 1 {
		t.Errorf("handler2: expected 1 call, got %d", got)
	}
}

func TestWatcherStop(t *testing.T) {
	path := writeTempTOML(t, "value = 1\n")

	var count atomic.Int32
	watcher := NewWatcher(path, loadWatchedConfig, newTestLogger(),
		WithDebounce[watchedConfig](50*time.Millisecond))

	watcher.OnReload(func(_ watchedConfig) { count.Add(1) })

	if startErr := watcher.Start(); startErr != nil {
		t.Fatal(startErr)
	}

	time.Sleep(100 * time.Millisecond)

	if stopErr := watcher.Stop(); stopErr != nil {
		t.Fatal(stopErr)
	}

	// Changes after stop should not trigger handler
	if writeErr := os.WriteFile(path, []byte("value = 99\n"), 0o644); writeErr != nil {
		t.Fatal(writeErr)
	}
	time.Sleep(200 * time.Millisecond)

	if got := count.Load(); got != 0 {
		t.Errorf("expected 0 calls after stop, got %d", got)
	}
}

func TestWatcherBadReloadKeepsRunning(t *testing.T) {
	path := writeTempTOML(t, "name = \"valid\"\nvalue = 1\n")

	received := make(chan watchedConfig, 2)
	watcher := NewWatcher(path, loadWatchedConfig, newTestLogger(),
		WithDebounce[watchedConfig](50*time.Millisecond))

	watcher.OnReload(func(cfg watchedConfig) { received <- cfg })

	if startErr := watcher.Start(); startErr != nil {
		t.Fatal(startErr)
	}
	defer func() { _ = watcher.Stop() }()

	// Invalid TOML: handlers are skipped, the watcher survives.
	time.Sleep(100 * time.Millisecond)
	if writeErr := os.WriteFile(path, []byte("invalid toml [[["), 0o644); writeErr != nil {
		t.Fatal(writeErr)
	}
	time.Sleep(300 * time.Millisecond)

	select {
	case cfg := <-received:
		t.Fatalf("handler called for invalid config: %+v", cfg)
	default:
	}

	if writeErr := os.WriteFile(path, []byte("name = \"recovered\"\nvalue = 2\n"), 0o644); writeErr != nil {
		t.Fatal(writeErr)
	}

	select {
	case cfg := <-received:
		if cfg.Name != "recovered" {
			t.Errorf("got %+v, want name=recovered", cfg)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not recover after invalid config")
	}
}
