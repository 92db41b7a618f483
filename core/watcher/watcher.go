package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/tristendillon/diagify/core/logger"
)

const DefaultDebounce = 500 * time.Millisecond

// ChangeFunc receives the new description text.
type ChangeFunc func(ctx context.Context, description string) error

// DescriptionWatcher reruns OnChange whenever the description file is saved
// with different content.
type DescriptionWatcher struct {
	Watcher  *fsnotify.Watcher
	Path     string
	Debounce time.Duration
	OnChange ChangeFunc

	last string
}

func NewDescriptionWatcher(path string, debounce time.Duration, onChange ChangeFunc) (*DescriptionWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	if _, err := os.Stat(abs); err != nil {
		return nil, fmt.Errorf("description file: %w", err)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	// Watch the directory: editors often save by renaming a temp file.
	if err := w.Add(filepath.Dir(abs)); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("failed to add watcher for %s: %w", filepath.Dir(abs), err)
	}

	return &DescriptionWatcher{
		Watcher:  w,
		Path:     abs,
		Debounce: debounce,
		OnChange: onChange,
	}, nil
}

// Watch runs OnChange once for the current content, then on every debounced
// change until ctx is done. The watcher is closed on return.
func (dw *DescriptionWatcher) Watch(ctx context.Context) error {
	defer dw.Watcher.Close()

	dw.fire(ctx)

	var (
		timer  *time.Timer
		timerC <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-dw.Watcher.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			if filepath.Clean(event.Name) != dw.Path || !event.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}
			logger.Debug("File event: %s %s", event.Op, event.Name)

			if timer == nil {
				timer = time.NewTimer(dw.Debounce)
			} else {
				timer.Reset(dw.Debounce)
			}
			timerC = timer.C

		case <-timerC:
			timerC = nil
			dw.fire(ctx)

		case err, ok := <-dw.Watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			logger.Error("Watcher error: %v", err)
		}
	}
}

func (dw *DescriptionWatcher) fire(ctx context.Context) {
	data, err := os.ReadFile(dw.Path)
	if err != nil {
		logger.Warn("Cannot read %s: %v", dw.Path, err)
		return
	}
	description := strings.TrimSpace(string(data))
	if description == "" || description == dw.last {
		logger.Debug("Description unchanged, skipping")
		return
	}
	dw.last = description

	logger.Info("Description changed, regenerating...")
	if err := dw.OnChange(ctx, description); err != nil {
		logger.Error("Regeneration failed: %v", err)
	}
}
