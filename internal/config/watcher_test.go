package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

var testDefaults = Playback{DwellMS: 3000, BlankMS: 100, Brightness: 100}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func playbackTOML(dwell int) []byte {
	return fmt.Appendf(nil, "[playback]\ndwell_ms = %d\nblank_ms = 50\n", dwell)
}

// startWatcher creates a config file and a started watcher on it
func startWatcher(t *testing.T, debounce time.Duration, opts ...WatcherOption[Playback]) (string, *Watcher[Playback]) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, playbackTOML(3000), 0o644); err != nil {
		t.Fatal(err)
	}

	opts = append(opts, WithDebounce[Playback](debounce))
	watcher := NewConfigWatcher(path, PlaybackLoader(testDefaults), newTestLogger(), opts...)
	if err := watcher.Start(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := watcher.Stop(); err != nil {
			t.Errorf("watcher.Stop failed: %v", err)
		}
	})

	// Wait for watcher to initialize
	time.Sleep(100 * time.Millisecond)
	return path, watcher
}

func TestConfigWatcher_BasicReload(t *testing.T) {
	received := make(chan Playback, 1)
	path, watcher := startWatcher(t, 50*time.Millisecond)

	watcher.OnReload(func(cfg Playback) {
		received <- cfg
	})

	if err := os.WriteFile(path, playbackTOML(750), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case cfg := <-received:
		if cfg.DwellMS != 750 || cfg.BlankMS != 50 || cfg.Brightness != 100 {
			t.Errorf("got %+v, want dwell=750 blank=50 brightness=100", cfg)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for config reload")
	}
}

func TestConfigWatcher_AtomicReplace(t *testing.T) {
	received := make(chan Playback, 4)
	path, watcher := startWatcher(t, 50*time.Millisecond)

	watcher.OnReload(func(cfg Playback) {
		received <- cfg
	})

	// Editors often write a temp file and rename it over the original
	tmp := path + ".swp"
	if err := os.WriteFile(tmp, playbackTOML(1200), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Rename(tmp, path); err != nil {
		t.Fatal(err)
	}

	select {
	case cfg := <-received:
		if cfg.DwellMS != 1200 {
			t.Errorf("DwellMS = %d, want 1200", cfg.DwellMS)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for reload after rename")
	}
}

func TestConfigWatcher_IgnoresSiblings(t *testing.T) {
	var count atomic.Int32
	path, watcher := startWatcher(t, 20*time.Millisecond)

	watcher.OnReload(func(Playback) {
		count.Add(1)
	})

	sibling := filepath.Join(filepath.Dir(path), "other.toml")
	if err := os.WriteFile(sibling, playbackTOML(10), 0o644); err != nil {
		t.Fatal(err)
	}
	time.Sleep(200 * time.Millisecond)

	if got := count.Load(); got != 0 {
		t.Errorf("sibling write triggered %d reloads", got)
	}
}

func TestConfigWatcher_Unsubscribe(t *testing.T) {
	var count1, count2 atomic.Int32
	path, watcher := startWatcher(t, 50*time.Millisecond)

	watcher.OnReload(func(Playback) { count1.Add(1) })
	unsub2 := watcher.OnReload(func(Playback) { count2.Add(1) })

	if err := os.WriteFile(path, playbackTOML(1000), 0o644); err != nil {
		t.Fatal(err)
	}
	time.Sleep(250 * time.Millisecond)

	unsub2()

	if err := os.WriteFile(path, playbackTOML(2000), 0o644); err != nil {
		t.Fatal(err)
	}
	time.Sleep(250 * time.Millisecond)

	if got := count1.Load(); got != 2 {
		t.Errorf("handler1: expected 2 calls, got %d", got)
	}
	if got := count2.Load(); got != 1 {
		t.Errorf("handler2: expected 1 call, got %d", got)
	}
}

func TestConfigWatcher_ErrorHandler(t *testing.T) {
	errorReceived := make(chan error, 1)
	configReceived := make(chan Playback, 1)

	path, watcher := startWatcher(t, 50*time.Millisecond,
		WithErrorHandler[Playback](func(err error) {
			select {
			case errorReceived <- err:
			default:
			}
		}),
	)
	watcher.OnReload(func(cfg Playback) {
		configReceived <- cfg
	})

	// Parses but fails validation
	if err := os.WriteFile(path, []byte("[playback]\ndwell_ms = -5\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case <-errorReceived:
		// Expected
	case <-configReceived:
		t.Fatal("config handler should not be called on error")
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for error handler")
	}
}

func TestConfigWatcher_Debounce(t *testing.T) {
	var count atomic.Int32
	var lastDwell atomic.Int32
	path, watcher := startWatcher(t, 200*time.Millisecond)

	watcher.OnReload(func(cfg Playback) {
		count.Add(1)
		lastDwell.Store(int32(cfg.DwellMS))
	})

	// Rapid changes within debounce window
	for i := 1; i <= 5; i++ {
		if err := os.WriteFile(path, playbackTOML(i*100), 0o644); err != nil {
			t.Fatal(err)
		}
		time.Sleep(50 * time.Millisecond)
	}

	time.Sleep(500 * time.Millisecond)

	if got := count.Load(); got != 1 {
		t.Errorf("expected 1 debounced call, got %d", got)
	}
	if got := lastDwell.Load(); got != 500 {
		t.Errorf("expected final dwell 500, got %d", got)
	}
}

func TestConfigWatcher_ThreadSafety(t *testing.T) {
	path, watcher := startWatcher(t, 10*time.Millisecond)

	var wg sync.WaitGroup
	for range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unsub := watcher.OnReload(func(Playback) {})
			time.Sleep(time.Millisecond)
			unsub()
		}()
	}

	for i := range 10 {
		if err := os.WriteFile(path, playbackTOML(100+i), 0o644); err != nil {
			t.Fatal(err)
		}
		time.Sleep(20 * time.Millisecond)
	}

	wg.Wait()
}

func TestConfigWatcher_Stop(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, playbackTOML(3000), 0o644); err != nil {
		t.Fatal(err)
	}

	var count atomic.Int32
	watcher := NewConfigWatcher(path, PlaybackLoader(testDefaults), newTestLogger(),
		WithDebounce[Playback](50*time.Millisecond))
	watcher.OnReload(func(Playback) { count.Add(1) })

	if err := watcher.Start(); err != nil {
		t.Fatal(err)
	}
	time.Sleep(100 * time.Millisecond)

	if err := watcher.Stop(); err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(path, playbackTOML(900), 0o644); err != nil {
		t.Fatal(err)
	}
	time.Sleep(200 * time.Millisecond)

	if got := count.Load(); got != 0 {
		t.Errorf("expected 0 calls after Stop, got %d", got)
	}
}

func TestConfigWatcher_IgnoresUnchangedSave(t *testing.T) {
	var count atomic.Int32
	path, watcher := startWatcher(t, 30*time.Millisecond)

	watcher.OnReload(func(Playback) { count.Add(1) })

	// Same bytes as the baseline written by startWatcher
	if err := os.WriteFile(path, playbackTOML(3000), 0o644); err != nil {
		t.Fatal(err)
	}
	time.Sleep(200 * time.Millisecond)
	if got := count.Load(); got != 0 {
		t.Fatalf("unchanged save triggered %d reloads", got)
	}

	if err := os.WriteFile(path, playbackTOML(2500), 0o644); err != nil {
		t.Fatal(err)
	}
	time.Sleep(200 * time.Millisecond)
	if got := count.Load(); got != 1 {
		t.Errorf("changed save triggered %d reloads, want 1", got)
	}
}

func TestConfigWatcher_StopWithoutStart(t *testing.T) {
	watcher := NewConfigWatcher("missing.toml", PlaybackLoader(testDefaults), nil)
	if err := watcher.Stop(); err != nil {
		t.Errorf("Stop() = %v, want nil", err)
	}
}
