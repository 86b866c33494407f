package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// debounceInterval coalesces the burst of filesystem events an editor
// save produces into one reload.
const debounceInterval = 100 * time.Millisecond

// Watcher reloads the config file when it changes on disk. The parent
// directory is watched rather than the file itself, because most
// editors replace files by rename and the original inode's watch would
// die with the first save.
type Watcher struct {
	path     string
	onChange func(*Config)
	onError  func(error)

	fsw  *fsnotify.Watcher
	done chan struct{}
	wg   sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// Watch starts watching path and invokes onChange with the freshly
// loaded, validated config after each change. Load or validation
// failures go to onError and the previous config stays in effect.
// Either callback may be nil. Callbacks run on the watcher goroutine.
func Watch(path string, onChange func(*Config), onError func(error)) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving config path: %w", err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watching %s: %w", filepath.Dir(abs), err)
	}

	w := &Watcher{
		path:     abs,
		onChange: onChange,
		onError:  onError,
		fsw:      fsw,
		done:     make(chan struct{}),
	}
	w.wg.Add(1)
	go w.loop()
	return w, nil
}

// Path returns the absolute path being watched.
func (w *Watcher) Path() string {
	return w.path
}

// Close stops the watcher. Safe to call more than once. No callbacks
// run after it returns.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.done)
	w.mu.Unlock()

	w.wg.Wait()
	return w.fsw.Close()
}

func (w *Watcher) loop() {
	defer w.wg.Done()

	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-w.done:
			if timer != nil {
				timer.Stop()
			}
			return

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if !ev.Op.Has(fsnotify.Write) && !ev.Op.Has(fsnotify.Create) &&
				!ev.Op.Has(fsnotify.Rename) && !ev.Op.Has(fsnotify.Remove) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(debounceInterval)
				timerC = timer.C
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(debounceInterval)
			}

		case <-timerC:
			timer = nil
			timerC = nil
			w.reload()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			if w.onError != nil {
				w.onError(err)
			}
		}
	}
}

// reload loads the file and dispatches to the callbacks. A file absent
// at reload time is the gap in an atomic save; the create event that
// follows retries.
func (w *Watcher) reload() {
	if _, err := os.Stat(w.path); err != nil {
		return
	}
	cfg, err := Load(w.path)
	if err != nil {
		if w.onError != nil {
			w.onError(err)
		}
		return
	}
	if w.onChange != nil {
		w.onChange(cfg)
	}
}

// DiffFields compares two configs and names the fields that differ,
// split into those the render loop applies live and those that need a
// restart to take effect.
func DiffFields(old, next *Config) (reloadable, restart []string) {
	if old.Render.LimitFPS != next.Render.LimitFPS {
		reloadable = append(reloadable, "render.limit_fps")
	}
	if old.Render.TargetFPS != next.Render.TargetFPS {
		reloadable = append(reloadable, "render.target_fps")
	}
	if old.Render.FullRedraw != next.Render.FullRedraw {
		reloadable = append(reloadable, "render.full_redraw")
	}
	if old.Render.FullRedrawInterval != next.Render.FullRedrawInterval {
		reloadable = append(reloadable, "render.full_redraw_interval")
	}
	if old.Render.IdlePollInterval != next.Render.IdlePollInterval {
		reloadable = append(reloadable, "render.idle_poll_interval")
	}
	if old.Logging.Level != next.Logging.Level {
		reloadable = append(reloadable, "logging.level")
	}

	if old.Render.Mode != next.Render.Mode {
		restart = append(restart, "render.mode")
	}
	if old.Terminal.ColorProfile != next.Terminal.ColorProfile {
		restart = append(restart, "terminal.color_profile")
	}
	if old.Logging.Path != next.Logging.Path {
		restart = append(restart, "logging.path")
	}
	if old.Telemetry != next.Telemetry {
		restart = append(restart, "telemetry")
	}
	if old.Layout != next.Layout {
		restart = append(restart, "layout")
	}
	return reloadable, restart
}
