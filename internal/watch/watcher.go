// Package watch republishes the fuel figure whenever the spreadsheet changes.
// It watches the spreadsheet's directory, since sync clients and Excel replace
// the file on save rather than writing it in place.
package watch

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period before a change is handled.
const DefaultDebounce = 2 * time.Second

// Config holds the watcher configuration.
type Config struct {
	Path     string        `json:"path"`
	Debounce time.Duration `json:"debounce"`
}

// Event represents a change that was detected and handled.
type Event struct {
	Time      time.Time `json:"time"`
	Path      string    `json:"path"`
	Operation string    `json:"operation"`
	Status    string    `json:"status"` // "processed", "error"
	Error     string    `json:"error,omitempty"`
}

// Handler is called once per debounced change of the spreadsheet.
type Handler func(ctx context.Context, path string) error

// Watcher monitors one spreadsheet and triggers a handler on change.
type Watcher struct {
	Config  Config
	Logger  *log.Logger
	Handler Handler

	mu        sync.Mutex
	handlerMu sync.Mutex
	events    []Event
	watcher   *fsnotify.Watcher
	timer     *time.Timer
	target    string
}

// New creates a new Watcher with the given configuration.
func New(config Config) (*Watcher, error) {
	if config.Path == "" {
		return nil, fmt.Errorf("no spreadsheet path to watch")
	}
	target, err := filepath.Abs(config.Path)
	if err != nil {
		return nil, fmt.Errorf("could not resolve %s: %w", config.Path, err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("could not create file watcher: %w", err)
	}

	if config.Debounce <= 0 {
		config.Debounce = DefaultDebounce
	}

	return &Watcher{
		Config:  config,
		Logger:  log.New(io.Discard, "", 0),
		watcher: fsw,
		target:  target,
	}, nil
}

// Start begins watching. It blocks until the context is cancelled.
func (w *Watcher) Start(ctx context.Context) error {
	dir := filepath.Dir(w.target)
	if err := w.watcher.Add(dir); err != nil {
		w.watcher.Close()
		return fmt.Errorf("could not watch %s: %w", dir, err)
	}

	w.Logger.Printf("Watching %s", w.target)

	for {
		select {
		case <-ctx.Done():
			w.Logger.Println("Stopping watcher")
			w.mu.Lock()
			if w.timer != nil {
				w.timer.Stop()
			}
			w.mu.Unlock()
			return w.watcher.Close()
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(ctx, event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.Logger.Printf("Error: %v", err)
		}
	}
}

func (w *Watcher) handleEvent(ctx context.Context, event fsnotify.Event) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return
	}
	if !w.matches(event.Name) {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	op := event.Op.String()
	w.timer = time.AfterFunc(w.Config.Debounce, func() {
		w.process(ctx, op)
	})
}

// matches reports whether path is the watched spreadsheet. Office lock files
// (~$Gasolina.xlsx) and editor temp files are ignored.
func (w *Watcher) matches(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, "~$") || strings.HasPrefix(base, ".~") {
		return false
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	return abs == w.target
}

func (w *Watcher) process(ctx context.Context, operation string) {
	if ctx.Err() != nil {
		return
	}

	w.handlerMu.Lock()
	defer w.handlerMu.Unlock()

	evt := Event{
		Time:      time.Now(),
		Path:      w.target,
		Operation: operation,
		Status:    "processed",
	}

	if w.Handler != nil {
		if err := w.Handler(ctx, w.target); err != nil {
			evt.Status = "error"
			evt.Error = err.Error()
			w.Logger.Printf("Error processing %s: %v", w.target, err)
		} else {
			w.Logger.Printf("Processed %s", w.target)
		}
	}

	w.mu.Lock()
	w.events = append(w.events, evt)
	w.mu.Unlock()
}

// GetEvents returns all recorded events.
func (w *Watcher) GetEvents() []Event {
	w.mu.Lock()
	defer w.mu.Unlock()
	events := make([]Event, len(w.events))
	copy(events, w.events)
	return events
}

const pidFile = "watch.pid"

// WritePIDFile writes the current process ID to the PID file in the given directory.
func WritePIDFile(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	path := filepath.Join(dir, pidFile)
	return os.WriteFile(path, []byte(fmt.Sprintf("%d", os.Getpid())), 0644)
}

// ReadPIDFile reads the PID from the PID file.
func ReadPIDFile(dir string) (int, error) {
	data, err := os.ReadFile(filepath.Join(dir, pidFile))
	if err != nil {
		return 0, err
	}
	var pid int
	if _, err := fmt.Sscanf(string(data), "%d", &pid); err != nil {
		return 0, fmt.Errorf("invalid PID file: %w", err)
	}
	return pid, nil
}

// RemovePIDFile removes the PID file.
func RemovePIDFile(dir string) error {
	return os.Remove(filepath.Join(dir, pidFile))
}

// DefaultStateDir returns the directory holding the watcher's PID file.
func DefaultStateDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".fuelkit")
}
