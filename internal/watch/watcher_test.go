package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestNewWatcher(t *testing.T) {
	w, err := New(Config{Path: filepath.Join(t.TempDir(), "Gasolina.xlsx")})
	if err != nil {
		t.Fatal(err)
	}
	defer w.watcher.Close()

	if w.Config.Debounce != DefaultDebounce {
		t.Errorf("expected default debounce, got %v", w.Config.Debounce)
	}
}

func TestNewWatcherRequiresPath(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Error("expected error without a path")
	}
}

func TestMatches(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "Gasolina.xlsx")
	w, _ := New(Config{Path: target})
	defer w.watcher.Close()

	if !w.matches(target) {
		t.Error("should match the spreadsheet")
	}
	if w.matches(filepath.Join(dir, "~$Gasolina.xlsx")) {
		t.Error("should ignore Office lock files")
	}
	if w.matches(filepath.Join(dir, "Other.xlsx")) {
		t.Error("should ignore other files")
	}
}

func TestWatcherCallsHandlerOnce(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "Gasolina.xlsx")

	w, err := New(Config{Path: target, Debounce: 50 * time.Millisecond})
	if err != nil {
		t.Fatal(err)
	}

	calls := make(chan string, 10)
	w.Handler = func(_ context.Context, path string) error {
		calls <- path
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Start(ctx)
	time.Sleep(100 * time.Millisecond)

	// A burst of writes collapses into one call.
	for i := 0; i < 3; i++ {
		os.WriteFile(target, []byte{byte(i)}, 0644)
	}

	select {
	case path := <-calls:
		if path != target {
			t.Errorf("expected %q, got %q", target, path)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for handler call")
	}

	time.Sleep(200 * time.Millisecond)
	if extra := len(calls); extra != 0 {
		t.Errorf("expected a single debounced call, got %d extra", extra)
	}

	events := w.GetEvents()
	if len(events) != 1 || events[0].Status != "processed" {
		t.Errorf("unexpected events: %+v", events)
	}
}

func TestWatcherRecordsHandlerError(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "Gasolina.xlsx")

	w, err := New(Config{Path: target, Debounce: 20 * time.Millisecond})
	if err != nil {
		t.Fatal(err)
	}
	done := make(chan struct{}, 1)
	w.Handler = func(context.Context, string) error {
		done <- struct{}{}
		return errors.New("broker down")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Start(ctx)
	time.Sleep(100 * time.Millisecond)

	os.WriteFile(target, []byte("x"), 0644)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for handler call")
	}
	time.Sleep(20 * time.Millisecond)

	events := w.GetEvents()
	if len(events) != 1 || events[0].Status != "error" || events[0].Error != "broker down" {
		t.Errorf("unexpected events: %+v", events)
	}
}

func TestWatcherIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()

	w, err := New(Config{Path: filepath.Join(dir, "Gasolina.xlsx"), Debounce: 20 * time.Millisecond})
	if err != nil {
		t.Fatal(err)
	}
	called := make(chan struct{}, 1)
	w.Handler = func(context.Context, string) error {
		called <- struct{}{}
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Start(ctx)
	time.Sleep(100 * time.Millisecond)

	os.WriteFile(filepath.Join(dir, "readme.txt"), []byte("test"), 0644)
	os.WriteFile(filepath.Join(dir, "~$Gasolina.xlsx"), []byte("lock"), 0644)

	select {
	case <-called:
		t.Error("handler should not be called for unrelated files")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestStartStopsOnCancel(t *testing.T) {
	w, err := New(Config{Path: filepath.Join(t.TempDir(), "Gasolina.xlsx")})
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- w.Start(ctx) }()
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("Start returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after cancel")
	}
}

func TestStartMissingDirectory(t *testing.T) {
	w, err := New(Config{Path: "/nonexistent/dir/Gasolina.xlsx"})
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(context.Background()); err == nil {
		t.Error("expected error for missing directory")
	}
}

func TestPIDFile(t *testing.T) {
	dir := t.TempDir()

	if err := WritePIDFile(dir); err != nil {
		t.Fatal(err)
	}

	pid, err := ReadPIDFile(dir)
	if err != nil {
		t.Fatal(err)
	}
	if pid != os.Getpid() {
		t.Errorf("expected PID %d, got %d", os.Getpid(), pid)
	}

	if err := RemovePIDFile(dir); err != nil {
		t.Fatal(err)
	}

	if _, err := ReadPIDFile(dir); err == nil {
		t.Error("expected error after removing PID file")
	}
}
