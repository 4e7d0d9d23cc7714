// Package watch triggers a callback when source documents change.
package watch

import (
	"context"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"gamecfg/internal/data/loader"
)

const DefaultDebounce = 300 * time.Millisecond

// ChangeFunc runs on the watcher goroutine, so calls never overlap.
type ChangeFunc func(ctx context.Context, paths []string)

type Watcher struct {
	dirs     []string
	debounce time.Duration
	log      *zap.Logger
	onChange ChangeFunc
}

func New(dirs []string, debounce time.Duration, logger *zap.Logger, onChange ChangeFunc) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{dirs: dirs, debounce: debounce, log: logger, onChange: onChange}
}

// Run blocks until ctx is done. Bursts of events inside the debounce window
// collapse into one callback.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsw.Close()

	for _, d := range w.dirs {
		if err := fsw.Add(d); err != nil {
			return err
		}
		w.log.Info("watching", zap.String("dir", d))
	}

	pending := map[string]struct{}{}
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
		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !relevant(ev) {
				continue
			}
			w.log.Debug("source changed", zap.String("path", ev.Name), zap.String("op", ev.Op.String()))
			pending[ev.Name] = struct{}{}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}
			timerC = timer.C
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watch error", zap.Error(err))
		case <-timerC:
			timerC = nil
			paths := make([]string, 0, len(pending))
			for p := range pending {
				paths = append(paths, p)
			}
			sort.Strings(paths)
			pending = map[string]struct{}{}
			w.onChange(ctx, paths)
		}
	}
}

func relevant(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) && !ev.Has(fsnotify.Remove) {
		return false
	}
	base := filepath.Base(ev.Name)
	if strings.HasPrefix(base, ".") {
		return false
	}
	ext := strings.ToLower(filepath.Ext(base))
	for _, e := range loader.Extensions {
		if ext == e {
			return true
		}
	}
	return false
}
