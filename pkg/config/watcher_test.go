// Copyright 2026 © The Agentdeck Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

// rewrite replaces the file and moves its mtime forward so coarse
// filesystem timestamps still register a change.
func rewrite(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	future := time.Now().Add(5 * time.Second)
	if err := os.Chtimes(path, future, future); err != nil {
		t.Fatalf("chtimes %s: %v", path, err)
	}
}

func TestWatcherDetectsChanges(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte("log:\n  level: info\n"), 0o644); err != nil {
		t.Fatalf("failed to write initial config: %v", err)
	}

	watcher, err := NewWatcher(LoadOptions{ConfigPath: configPath}, WithWatchInterval(20*time.Millisecond))
	if err != nil {
		t.Fatalf("failed to create watcher: %v", err)
	}

	changes := make(chan *Config, 1)
	watcher.OnChange(func(cfg *Config) {
		select {
		case changes <- cfg:
		default:
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	watcher.Start(ctx)
	defer watcher.Stop()

	if got := watcher.Config().Log.Level; got != "info" {
		t.Errorf("expected initial level info, got %q", got)
	}

	rewrite(t, configPath, "log:\n  level: debug\n")

	select {
	case cfg := <-changes:
		if cfg.Log.Level != "debug" {
			t.Errorf("expected level debug, got %q", cfg.Log.Level)
		}
		if watcher.Config().Log.Level != "debug" {
			t.Errorf("expected Config() to return the reloaded value")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for config change notification")
	}
}

func TestWatcherEnvFileChange(t *testing.T) {
	t.Setenv("GROQ_API_KEY", "")
	envPath := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(envPath, []byte("GROQ_API_KEY=old\n"), 0o644); err != nil {
		t.Fatalf("write env: %v", err)
	}

	watcher, err := NewWatcher(LoadOptions{EnvFile: envPath}, WithWatchInterval(20*time.Millisecond))
	if err != nil {
		t.Fatalf("failed to create watcher: %v", err)
	}
	var calls atomic.Int32
	done := make(chan struct{}, 1)
	watcher.OnChange(func(cfg *Config) {
		if cfg.Providers.Groq == "new" && calls.Add(1) == 1 {
			done <- struct{}{}
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	watcher.Start(ctx)
	defer watcher.Stop()

	rewrite(t, envPath, "GROQ_API_KEY=new\n")
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for env file reload")
	}
}

func TestWatcherKeepsConfigOnBadReload(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte("log:\n  level: warn\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	watcher, err := NewWatcher(LoadOptions{ConfigPath: configPath})
	if err != nil {
		t.Fatalf("failed to create watcher: %v", err)
	}
	rewrite(t, configPath, "log: [unterminated\n")
	if !watcher.checkForChanges() {
		t.Fatal("expected change to be detected")
	}
	watcher.reload()
	if got := watcher.Config().Log.Level; got != "warn" {
		t.Errorf("expected previous config to survive, got level %q", got)
	}
}

func TestWatcherStops(t *testing.T) {
	watcher, err := NewWatcher(LoadOptions{}, WithWatchInterval(10*time.Millisecond))
	if err != nil {
		t.Fatalf("failed to create watcher: %v", err)
	}
	watcher.Start(context.Background())

	done := make(chan struct{})
	go func() {
		watcher.Stop()
		watcher.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Error("watcher.Stop() did not complete in time")
	}
}
