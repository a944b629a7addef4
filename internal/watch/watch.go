// Package watch notifies on changes to usage log files. Log writers append
// in small bursts, so events are debounced per file before delivery.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DebounceDelay is the per-file quiet period before a change is delivered.
const DebounceDelay = 500 * time.Millisecond

// Watcher watches log roots recursively and sends the path of each changed
// .jsonl file on C, debounced.
type Watcher struct {
	C <-chan string

	roots    []string
	fsw      *fsnotify.Watcher
	events   chan string
	debounce *debouncer
	log      *slog.Logger
}

// New builds a watcher over the given roots. Call Run to start it.
func New(roots []string, log *slog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	events := make(chan string, 16)
	w := &Watcher{
		C:      events,
		roots:  roots,
		fsw:    fsw,
		events: events,
		log:    log,
	}
	w.debounce = newDebouncer(DebounceDelay, func(path string) {
		select {
		case events <- path:
		default:
			// Receiver is behind; it will re-scan on the next delivery.
		}
	})

	for _, root := range roots {
		if err := w.addRecursive(root); err != nil {
			fsw.Close()
			return nil, err
		}
	}
	return w, nil
}

func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) && path == root {
				return fmt.Errorf("watch root %s: %w", root, err)
			}
			return nil
		}
		if d.IsDir() {
			if err := w.fsw.Add(path); err != nil {
				w.log.Warn("cannot watch directory", "path", path, "error", err)
			}
		}
		return nil
	})
}

// Run pumps filesystem events until the context is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsw.Close()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handle(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watch error", "error", err)
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	// New session directories appear mid-run; watch them too.
	if ev.Op.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			_ = w.addRecursive(ev.Name)
			return
		}
	}
	if !strings.HasSuffix(ev.Name, ".jsonl") {
		return
	}
	if ev.Op.Has(fsnotify.Write) || ev.Op.Has(fsnotify.Create) {
		w.debounce.trigger(ev.Name)
	}
}
