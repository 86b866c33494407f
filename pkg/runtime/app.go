// Package runtime drives a compositor against a terminal backend. One
// render-loop goroutine owns the screen pair and performs the whole
// paint, diff, write cycle; an event pump translates backend events;
// an optional watcher hot-reloads configuration. App.Run ties their
// lifetimes together and restores the terminal on the way out.
package runtime

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/muesli/termenv"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/odvcencio/oriel/pkg/compositor"
	"github.com/odvcencio/oriel/pkg/config"
	"github.com/odvcencio/oriel/pkg/telemetry"
	"github.com/odvcencio/oriel/pkg/term"
	"github.com/odvcencio/oriel/pkg/theme"
)

//go:generate mockgen -package=runtime -destination=mock_backend_test.go github.com/odvcencio/oriel/pkg/term Backend

// UpdateFunc handles a backend event. It runs on the event pump
// goroutine; compositor methods are safe to call from it.
type UpdateFunc func(app *App, ev term.Event)

// frameBufferSize is the bufio buffer for buffered render mode.
const frameBufferSize = 64 * 1024

// Nominal size used until the backend reports the real one.
const (
	defaultCols = 80
	defaultRows = 24
)

// AppConfig configures an App. Backend is required; everything else
// has a usable zero value.
type AppConfig struct {
	Backend term.Backend
	Config  *config.Config
	// ConfigPath enables hot reload of the file at that path.
	ConfigPath string
	Theme      *theme.Theme
	Update     UpdateFunc
	Logger     *telemetry.Logger
	// LogLevel, when the logger was built on it, lets config reloads
	// adjust verbosity without recreating the logger.
	LogLevel *slog.LevelVar
	Hub      *telemetry.Hub
}

// App owns the render loop and the event pump for one terminal session.
type App struct {
	backend    term.Backend
	comp       *compositor.Compositor
	renderer   *compositor.Renderer
	update     UpdateFunc
	logger     *telemetry.Logger
	logLevel   *slog.LevelVar
	hub        *telemetry.Hub
	theme      *theme.Theme
	configPath string

	cfgMu sync.RWMutex
	cfg   *config.Config

	limiter    *rate.Limiter
	buf        *bufio.Writer
	cfgChanged chan struct{}
	wakeCh     chan struct{}

	resizeMu      sync.Mutex
	resizeW       int
	resizeH       int
	resizePending bool
	resizeGen     atomic.Uint64

	forceFull   atomic.Bool
	running     atomic.Bool
	quitCh      chan struct{}
	quitOnce    sync.Once
	lastInvalid int
}

// NewApp creates an App from config. Windows may be added immediately;
// the compositor starts at a nominal size and adopts the terminal's
// real size when Run starts.
func NewApp(cfg AppConfig) *App {
	c := cfg.Config
	if c == nil {
		c = config.DefaultConfig()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = telemetry.NopLogger()
	}
	th := cfg.Theme
	if th == nil {
		th = theme.DefaultTheme()
	}

	a := &App{
		backend:    cfg.Backend,
		comp:       compositor.New(defaultCols, defaultRows),
		update:     cfg.Update,
		logger:     logger,
		logLevel:   cfg.LogLevel,
		hub:        cfg.Hub,
		theme:      th,
		configPath: cfg.ConfigPath,
		cfg:        c,
		cfgChanged: make(chan struct{}, 1),
		wakeCh:     make(chan struct{}, 1),
		quitCh:     make(chan struct{}),
	}
	a.comp.SetBackground(th.Background)
	return a
}

// Compositor returns the window manager for operations App does not
// wrap.
func (a *App) Compositor() *compositor.Compositor {
	return a.comp
}

// Theme returns the active theme.
func (a *App) Theme() *theme.Theme {
	return a.theme
}

// AddWindow creates a window and announces it on the telemetry hub.
func (a *App) AddWindow(title string, bounds compositor.Rect, painter compositor.Painter) *compositor.Window {
	w := a.comp.AddWindow(title, bounds, painter)
	telemetry.SetWindowsActive(len(a.comp.Windows()))
	a.logger.WindowCreated(w.ID(), title)
	a.emit(telemetry.EventWindowCreated, w.ID(), map[string]any{
		"title":  title,
		"x":      bounds.X,
		"y":      bounds.Y,
		"width":  bounds.Width,
		"height": bounds.Height,
	})
	return w
}

// CloseWindow removes the window and fires its cancellation signal.
func (a *App) CloseWindow(w *compositor.Window) {
	if w == nil {
		return
	}
	a.comp.CloseWindow(w)
	telemetry.SetWindowsActive(len(a.comp.Windows()))
	a.logger.WindowClosed(w.ID())
	a.emit(telemetry.EventWindowClosed, w.ID(), nil)
}

// MoveWindow repositions the window.
func (a *App) MoveWindow(w *compositor.Window, x, y int) {
	a.comp.MoveWindow(w, x, y)
	a.emit(telemetry.EventWindowMoved, w.ID(), map[string]any{"x": x, "y": y})
}

// ResizeWindow changes the window's size.
func (a *App) ResizeWindow(w *compositor.Window, width, height int) {
	a.comp.ResizeWindow(w, width, height)
	a.emit(telemetry.EventWindowResized, w.ID(), map[string]any{"width": width, "height": height})
}

// RaiseWindow brings the window to the top of its tier.
func (a *App) RaiseWindow(w *compositor.Window) {
	a.comp.RaiseWindow(w)
	a.emit(telemetry.EventWindowRaised, w.ID(), nil)
}

// SetFocus focuses the window, raising it above its tier peers.
func (a *App) SetFocus(w *compositor.Window) {
	a.comp.SetFocus(w)
	if w != nil {
		a.emit(telemetry.EventWindowFocused, w.ID(), nil)
	}
}

// Quit asks Run to unwind. Safe from any goroutine; calling it before
// Run makes Run return immediately after claiming the terminal.
func (a *App) Quit() {
	a.quitOnce.Do(func() { close(a.quitCh) })
}

// ForceRedraw schedules an unconditional full repaint of the next
// frame.
func (a *App) ForceRedraw() {
	a.forceFull.Store(true)
	a.poke()
}

func (a *App) poke() {
	select {
	case a.wakeCh <- struct{}{}:
	default:
	}
}

func (a *App) config() *config.Config {
	a.cfgMu.RLock()
	defer a.cfgMu.RUnlock()
	return a.cfg
}

func (a *App) emit(t telemetry.EventType, windowID string, data map[string]any) {
	if a.hub == nil {
		return
	}
	a.hub.Publish(telemetry.Event{Type: t, WindowID: windowID, Data: data})
}

// Run claims the terminal and drives the session until ctx is
// cancelled, Quit is called, or a write fails. The terminal is
// restored before it returns. A clean quit returns nil. An App is
// good for one Run.
func (a *App) Run(ctx context.Context) error {
	if a.backend == nil {
		return errors.New("backend is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if !a.running.CompareAndSwap(false, true) {
		return errors.New("app is already running")
	}
	defer a.running.Store(false)

	if err := a.backend.Init(); err != nil {
		return fmt.Errorf("init backend: %w", err)
	}
	defer a.backend.Fini()

	caps := a.backend.Capabilities()
	a.renderer = compositor.NewRenderer(compositor.NewEscapeCache(a.colorProfile(caps)))

	w, h, err := a.backend.Size()
	if err != nil {
		return fmt.Errorf("terminal size: %w", err)
	}
	a.comp.Resize(w, h)
	a.forceFull.Store(true)

	cfg := a.config()
	a.limiter = rate.NewLimiter(fpsLimit(cfg), 1)
	if strings.EqualFold(cfg.Render.Mode, config.RenderModeBuffered) {
		a.buf = bufio.NewWriterSize(a.backend, frameBufferSize)
	}

	runCtx, span := telemetry.StartSpan(ctx, "session.run")
	span.SetAttributes(
		telemetry.AttrTermWidth.Int(w),
		telemetry.AttrTermHeight.Int(h),
	)
	defer span.End()

	loopCtx, cancel := context.WithCancel(runCtx)
	defer cancel()
	go func() {
		select {
		case <-a.quitCh:
			cancel()
		case <-loopCtx.Done():
		}
	}()

	if a.configPath != "" {
		watcher, werr := config.Watch(a.configPath, a.applyConfig, func(err error) {
			a.logger.ConfigReloadFailed(a.configPath, err)
		})
		if werr != nil {
			a.logger.Warn("config watch unavailable", slog.String("error", werr.Error()))
		} else {
			defer watcher.Close()
		}
	}

	g, gctx := errgroup.WithContext(loopCtx)
	g.Go(func() error { return a.renderLoop(gctx, caps) })
	g.Go(func() error { return a.pumpEvents(gctx, w, h) })

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	if err != nil {
		telemetry.RecordError(runCtx, err)
	}
	return err
}

// colorProfile resolves the encoding profile: a config override wins,
// otherwise whatever the backend detected.
func (a *App) colorProfile(caps term.Capabilities) termenv.Profile {
	switch strings.ToLower(a.config().Terminal.ColorProfile) {
	case "ascii":
		return termenv.Ascii
	case "ansi":
		return termenv.ANSI
	case "ansi256":
		return termenv.ANSI256
	case "truecolor":
		return termenv.TrueColor
	default:
		return caps.ColorProfile
	}
}

func fpsLimit(cfg *config.Config) rate.Limit {
	if !cfg.Render.LimitFPS {
		return rate.Inf
	}
	return rate.Limit(cfg.Render.TargetFPS)
}

// applyConfig is the hot-reload callback. It swaps the config, applies
// the reloadable fields, and logs the rest as restart-required.
func (a *App) applyConfig(next *config.Config) {
	a.cfgMu.Lock()
	old := a.cfg
	a.cfg = next
	a.cfgMu.Unlock()

	reloadable, restart := config.DiffFields(old, next)
	if len(reloadable) == 0 && len(restart) == 0 {
		return
	}

	if a.logLevel != nil && old.Logging.Level != next.Logging.Level {
		a.logLevel.Set(telemetry.ParseLevel(next.Logging.Level))
	}
	if a.limiter != nil {
		a.limiter.SetLimit(fpsLimit(next))
	}
	select {
	case a.cfgChanged <- struct{}{}:
	default:
	}

	a.logger.ConfigReloaded(a.configPath)
	if len(restart) > 0 {
		a.logger.Info("config fields need a restart to apply",
			slog.String("fields", strings.Join(restart, ",")))
	}
	a.emit(telemetry.EventConfigReloaded, "", map[string]any{
		"applied":          reloadable,
		"requires_restart": restart,
	})
}

// renderLoop owns the screen. It parks until something needs a frame,
// paces itself, applies queued resizes, and renders.
func (a *App) renderLoop(ctx context.Context, caps term.Capabilities) error {
	cfg := a.config()

	idle := time.NewTimer(cfg.Render.IdlePollInterval)
	defer idle.Stop()

	// The periodic repaint exists to repair terminal state the session
	// cannot see getting corrupted. A platform that holds raw mode for
	// the whole session has no echo leak to repair.
	var redraw *time.Ticker
	var redrawC <-chan time.Time
	if !caps.PersistentRawMode {
		redraw = time.NewTicker(cfg.Render.FullRedrawInterval)
		defer redraw.Stop()
		redrawC = redraw.C
		if !cfg.Render.FullRedraw {
			redraw.Stop()
		}
	}

	var lastDropped uint64

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-a.comp.Wake():
		case <-a.wakeCh:
		case <-redrawC:
			a.forceFull.Store(true)
		case <-idle.C:
			a.observeDropped(&lastDropped)
		case <-a.cfgChanged:
			cfg = a.config()
			if redraw != nil {
				if cfg.Render.FullRedraw {
					redraw.Reset(cfg.Render.FullRedrawInterval)
				} else {
					redraw.Stop()
				}
			}
		}

		if err := a.limiter.Wait(ctx); err != nil {
			return ctx.Err()
		}

		a.applyPendingResize()

		if err := a.renderFrame(ctx); err != nil {
			return err
		}

		if !idle.Stop() {
			select {
			case <-idle.C:
			default:
			}
		}
		idle.Reset(cfg.Render.IdlePollInterval)
	}
}

// queueResize records a new terminal size for the render loop to apply.
// Called from the event pump; the loop owns the screen, so the resize
// itself must happen there.
func (a *App) queueResize(w, h int) {
	a.resizeMu.Lock()
	a.resizeW, a.resizeH = w, h
	a.resizePending = true
	a.resizeMu.Unlock()
	a.resizeGen.Add(1)

	a.logger.TerminalResized(w, h)
	a.emit(telemetry.EventTerminalResized, "", map[string]any{"width": w, "height": h})
	a.poke()
}

func (a *App) applyPendingResize() {
	a.resizeMu.Lock()
	pending, w, h := a.resizePending, a.resizeW, a.resizeH
	a.resizePending = false
	a.resizeMu.Unlock()
	if !pending {
		return
	}
	a.comp.Resize(w, h)
	a.forceFull.Store(true)
}

// renderFrame assembles, encodes, and writes one frame. A resize
// arriving between compose and write abandons the frame so a stale
// geometry never reaches the terminal.
func (a *App) renderFrame(ctx context.Context) error {
	gen := a.resizeGen.Load()
	full := a.forceFull.Swap(false)

	consumed, cstats, changed := a.comp.ComposeFrame()
	if !changed && !full {
		return nil
	}

	start := time.Now()
	screen := a.comp.Screen()
	var out string
	var fstats compositor.FrameStats
	if full {
		_, span := telemetry.StartSpan(ctx, "frame.full_redraw")
		out, fstats = a.renderer.RenderFull(screen)
		span.SetAttributes(
			telemetry.AttrFrameCells.Int(fstats.ChangedCells),
			telemetry.AttrFrameBytes.Int(fstats.Bytes),
			telemetry.AttrFrameFull.Bool(true),
		)
		span.End()
	} else {
		out, fstats = a.renderer.Render(screen)
	}

	if cstats.ClippedWrites > 0 {
		telemetry.RecordClippedWrites(cstats.ClippedWrites)
		a.logger.Debug("painter wrote outside its clip",
			slog.Int("writes", cstats.ClippedWrites))
	}
	if cstats.Invalid != a.lastInvalid {
		if cstats.Invalid > 0 {
			a.logger.Debug("windows excluded for invalid bounds",
				slog.Int("count", cstats.Invalid))
		}
		a.lastInvalid = cstats.Invalid
	}
	if fstats.BadStyles > 0 {
		a.logger.Warn("styles failed to encode",
			slog.Int("count", fstats.BadStyles))
	}

	if a.resizeGen.Load() != gen {
		a.comp.AbandonFrame(consumed)
		a.forceFull.Store(true)
		telemetry.RecordFrameAbandoned()
		a.logger.FrameAbandoned("terminal resized mid-frame")
		a.emit(telemetry.EventFrameAbandoned, "", map[string]any{"reason": "resize"})
		return nil
	}

	if out == "" {
		// The diff proved this frame is already on the terminal.
		a.comp.FinishFrame()
		telemetry.RecordFrameSkipped()
		a.emit(telemetry.EventFrameSkipped, "", nil)
		return nil
	}

	if err := a.writeFrame(out); err != nil {
		a.comp.AbandonFrame(consumed)
		telemetry.RecordFrameAbandoned()
		a.logger.FrameAbandoned(err.Error())
		return fmt.Errorf("writing frame: %w", err)
	}
	a.comp.FinishFrame()

	duration := time.Since(start)
	telemetry.RecordFrame(fstats.ChangedCells, fstats.Bytes, fstats.Full, duration)
	a.logger.FrameRendered(fstats.ChangedCells, fstats.Bytes, duration)
	if full {
		a.emit(telemetry.EventFullRedraw, "", map[string]any{"bytes": fstats.Bytes})
	} else {
		a.emit(telemetry.EventFrameRendered, "", map[string]any{
			"cells_changed": fstats.ChangedCells,
			"bytes":         fstats.Bytes,
		})
	}
	return nil
}

// writeFrame sends one frame's output to the backend. Direct mode is
// one Write per frame; buffered mode coalesces through bufio and
// flushes once per frame.
func (a *App) writeFrame(out string) error {
	if a.buf != nil {
		if _, err := a.buf.WriteString(out); err != nil {
			return err
		}
		return a.buf.Flush()
	}
	_, err := a.backend.Write([]byte(out))
	return err
}

// pumpEvents forwards backend events to the resize queue and the
// host's update function. It opens with a synthetic ResizeEvent
// carrying the size measured at startup, so applications lay out
// against real dimensions before the first frame; the compositor
// already adopted that size in Run, so the opening event goes straight
// to Update without touching the resize queue.
func (a *App) pumpEvents(ctx context.Context, width, height int) error {
	if a.update != nil {
		a.update(a, term.ResizeEvent{Width: width, Height: height})
	}
	events := a.backend.Events()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			a.dispatch(ev)
		}
	}
}

func (a *App) dispatch(ev term.Event) {
	if rz, ok := ev.(term.ResizeEvent); ok {
		a.queueResize(rz.Width, rz.Height)
	}
	if a.update != nil {
		a.update(a, ev)
	}
}

// observeDropped surfaces the backend's dropped-event counter when the
// backend keeps one.
func (a *App) observeDropped(last *uint64) {
	dc, ok := a.backend.(interface{ Dropped() uint64 })
	if !ok {
		return
	}
	total := dc.Dropped()
	if total == *last {
		return
	}
	*last = total
	telemetry.SetDroppedEvents(total)
	a.logger.InputDropped(total)
	a.emit(telemetry.EventInputDropped, "", map[string]any{"total": total})
}
