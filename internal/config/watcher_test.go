package config

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

const watcherYAMLv1 = `
server:
  log_level: info
providers:
  stt:
    name: whisper
wake:
  word: arthur
`

const watcherYAMLv2 = `
server:
  log_level: debug
providers:
  stt:
    name: whisper
wake:
  word: arthur
`

func writeConfig(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestWatcherInitialLoad(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "arthur.yaml")
	writeConfig(t, path, watcherYAMLv1)

	w, err := NewWatcher(path, nil, WithInterval(10*time.Millisecond))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer w.Stop()

	if got := w.Current().Server.LogLevel; got != LogInfo {
		t.Errorf("LogLevel = %q, want info", got)
	}
}

func TestWatcherInitialLoadFails(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "arthur.yaml")
	writeConfig(t, path, "server: [not a mapping")

	if _, err := NewWatcher(path, nil); err == nil {
		t.Fatal("expected an error for invalid initial config")
	}
}

func TestWatcherDetectsChange(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "arthur.yaml")
	writeConfig(t, path, watcherYAMLv1)

	var (
		mu      sync.Mutex
		changed bool
		gotNew  *Config
	)
	w, err := NewWatcher(path, func(_, new *Config) {
		mu.Lock()
		defer mu.Unlock()
		changed = true
		gotNew = new
	}, WithInterval(10*time.Millisecond))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer w.Stop()

	// Ensure the mtime actually moves on coarse-grained filesystems.
	writeConfig(t, path, watcherYAMLv2)
	future := time.Now().Add(time.Second)
	if err := os.Chtimes(path, future, future); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		ok := changed
		mu.Unlock()
		if ok {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	if !changed {
		t.Fatal("change was not detected")
	}
	if gotNew.Server.LogLevel != LogDebug {
		t.Errorf("new LogLevel = %q, want debug", gotNew.Server.LogLevel)
	}
	if w.Current().Server.LogLevel != LogDebug {
		t.Errorf("Current() not updated")
	}
}

func TestWatcherKeepsOldConfigOnInvalidReload(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "arthur.yaml")
	writeConfig(t, path, watcherYAMLv1)

	w, err := NewWatcher(path, nil, WithInterval(10*time.Millisecond))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer w.Stop()

	writeConfig(t, path, "wake: [broken")
	future := time.Now().Add(time.Second)
	if err := os.Chtimes(path, future, future); err != nil {
		t.Fatal(err)
	}
	time.Sleep(100 * time.Millisecond)

	if got := w.Current().Server.LogLevel; got != LogInfo {
		t.Errorf("LogLevel = %q, want the old value info", got)
	}
}
