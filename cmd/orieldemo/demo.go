package main

import (
	"context"
	"fmt"
	"time"

	"github.com/odvcencio/oriel/pkg/compositor"
	"github.com/odvcencio/oriel/pkg/layout"
	appruntime "github.com/odvcencio/oriel/pkg/runtime"
	"github.com/odvcencio/oriel/pkg/telemetry"
	"github.com/odvcencio/oriel/pkg/term"
	"github.com/odvcencio/oriel/pkg/theme"
)

// demo assembles the example session: a static card, a ticking clock,
// a live telemetry feed, and a status bar pinned to the bottom row.
type demo struct {
	app     *appruntime.App
	hub     *telemetry.Hub
	session string
	version string

	status *compositor.Window
	cycle  []*compositor.Window
}

// setup creates the windows, restoring a saved layout for the session
// when the store has one.
func (d *demo) setup(ctx context.Context, store *layout.Store) error {
	th := d.app.Theme()
	if store != nil {
		saved, err := store.Load(ctx, d.session)
		if err != nil {
			return fmt.Errorf("loading layout %q: %w", d.session, err)
		}
		if len(saved) > 0 {
			d.restore(saved, th)
			return nil
		}
	}
	d.createWindows(th)
	return nil
}

func (d *demo) createWindows(th *theme.Theme) {
	about := d.app.AddWindow("about", compositor.Rect{X: 3, Y: 2, Width: 46, Height: 9}, aboutPainter(th, d.version))
	clock := d.app.AddWindow("clock", compositor.Rect{X: 52, Y: 3, Width: 24, Height: 5}, nil)
	events := d.app.AddWindow("events", compositor.Rect{X: 6, Y: 12, Width: 62, Height: 9}, nil)
	d.status = d.app.AddWindow("status", compositor.Rect{X: 0, Y: 23, Width: 80, Height: 1}, nil)
	d.app.Compositor().SetAlwaysOnTop(d.status, true)

	d.cycle = []*compositor.Window{about, clock, events}
	d.app.SetFocus(about)
	d.startTasks(clock, events)
}

// restore rebuilds a saved session. Windows are matched to their demo
// role by title; a snapshot from an older build may carry titles this
// build no longer draws, which come back as empty windows.
func (d *demo) restore(saved []layout.WindowLayout, th *theme.Theme) {
	windows := layout.Restore(d.app.Compositor(), saved, func(l layout.WindowLayout) compositor.Painter {
		if l.Title == "about" {
			return aboutPainter(th, d.version)
		}
		return nil
	})

	var clock, events *compositor.Window
	for _, w := range windows {
		switch w.Title() {
		case "status":
			d.status = w
		case "clock":
			clock = w
			d.cycle = append(d.cycle, w)
		case "events":
			events = w
			d.cycle = append(d.cycle, w)
		default:
			d.cycle = append(d.cycle, w)
		}
	}
	d.startTasks(clock, events)
}

func (d *demo) startTasks(clock, events *compositor.Window) {
	if clock != nil {
		clock.Run(context.Background(), d.runClock)
	}
	if events != nil {
		events.Run(context.Background(), d.runEventFeed)
	}
}

// handleEvent is the app's Update callback, running on the event pump.
func (d *demo) handleEvent(_ *appruntime.App, ev term.Event) {
	switch e := ev.(type) {
	case term.KeyEvent:
		d.handleKey(e)
	case term.ResizeEvent:
		d.layoutStatus(e.Width, e.Height)
	}
}

func (d *demo) handleKey(e term.KeyEvent) {
	if e.Ctrl {
		switch e.Rune {
		case 'c':
			d.app.Quit()
		case 'l':
			d.app.ForceRedraw()
		}
		return
	}
	switch e.Key {
	case term.KeyRune:
		if e.Rune == 'q' {
			d.app.Quit()
		}
	case term.KeyTab:
		d.cycleFocus()
	case term.KeyUp:
		d.adjustFocused(0, -1, e.Shift)
	case term.KeyDown:
		d.adjustFocused(0, 1, e.Shift)
	case term.KeyLeft:
		d.adjustFocused(-1, 0, e.Shift)
	case term.KeyRight:
		d.adjustFocused(1, 0, e.Shift)
	}
}

func (d *demo) cycleFocus() {
	if len(d.cycle) == 0 {
		return
	}
	next := 0
	if f := d.app.Compositor().Focused(); f != nil {
		for i, w := range d.cycle {
			if w == f {
				next = (i + 1) % len(d.cycle)
				break
			}
		}
	}
	w := d.cycle[next]
	d.app.SetFocus(w)
	d.app.RaiseWindow(w)
	d.redrawStatus()
}

// adjustFocused moves the focused window, or resizes it when shift is
// held. Sizes are clamped so a window can never shrink out of reach.
func (d *demo) adjustFocused(dx, dy int, resize bool) {
	f := d.app.Compositor().Focused()
	if f == nil || f == d.status {
		return
	}
	b := f.Bounds()
	if resize {
		width, height := b.Width+dx, b.Height+dy
		if width < 4 || height < 3 {
			return
		}
		d.app.ResizeWindow(f, width, height)
		return
	}
	d.app.MoveWindow(f, b.X+dx, b.Y+dy)
}

// layoutStatus keeps the status bar spanning the bottom row. The app
// delivers a resize with the real size before the first frame, so the
// nominal creation geometry never reaches the terminal.
func (d *demo) layoutStatus(width, height int) {
	if d.status == nil || width <= 0 || height <= 0 {
		return
	}
	d.app.MoveWindow(d.status, 0, height-1)
	d.app.ResizeWindow(d.status, width, 1)
	d.redrawStatus()
}

func (d *demo) redrawStatus() {
	if d.status == nil {
		return
	}
	th := d.app.Theme()
	focused := ""
	if f := d.app.Compositor().Focused(); f != nil && f != d.status {
		focused = f.Title()
	}
	d.status.Update(func(g *compositor.Grid) {
		w, _ := g.Size()
		g.Fill(compositor.Rect{X: 0, Y: 0, Width: w, Height: 1}, ' ', th.TitleBar)
		left := " " + d.session
		if focused != "" {
			left += "  " + theme.Symbols.Focused + " " + focused
		}
		g.SetString(0, 0, left, th.TitleBarFocus)
		hints := "tab focus  arrows move  shift+arrows resize  ctrl-l repaint  q quit "
		if x := w - len(hints); x > len(left)+2 {
			g.SetString(x, 0, hints, th.TitleBar)
		}
	})
}

// runClock is the clock window's update task.
func (d *demo) runClock(ctx context.Context, w *compositor.Window) {
	th := d.app.Theme()
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		now := time.Now().Format("15:04:05")
		w.Update(func(g *compositor.Grid) {
			drawChrome(g, th, "clock")
			g.SetString(3, 2, now, th.Success)
		})
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// runEventFeed mirrors the telemetry hub into the events window. The
// feed redraws on every event, which includes the window.moved and
// window.resized events its own manipulation produces.
func (d *demo) runEventFeed(ctx context.Context, w *compositor.Window) {
	th := d.app.Theme()
	events, unsubscribe := d.hub.Subscribe()
	defer unsubscribe()

	var lines []string
	redraw := func() {
		w.Update(func(g *compositor.Grid) {
			drawChrome(g, th, "events")
			gw, gh := g.Size()
			rows := gh - 2
			maxw := gw - 4
			if rows < 1 || maxw < 1 {
				return
			}
			start := 0
			if len(lines) > rows {
				start = len(lines) - rows
			}
			for i, line := range lines[start:] {
				if len(line) > maxw {
					line = line[:maxw]
				}
				g.SetString(2, 1+i, line, th.TextSecondary)
			}
		})
	}

	redraw()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			// Redrawing the feed renders a frame, which publishes
			// frame.rendered; listing those would render forever.
			if ev.Type == telemetry.EventFrameRendered || ev.Type == telemetry.EventFrameSkipped {
				continue
			}
			lines = append(lines, eventLine(ev))
			if len(lines) > 64 {
				lines = lines[len(lines)-64:]
			}
			redraw()
		}
	}
}

func eventLine(ev telemetry.Event) string {
	line := ev.Timestamp.Format("15:04:05") + " " + string(ev.Type)
	if ev.WindowID != "" {
		id := ev.WindowID
		if len(id) > 8 {
			id = id[:8]
		}
		line += " " + id
	}
	return line
}

// drawChrome fills a window with its body style and frames it with a
// border and title tab.
func drawChrome(g *compositor.Grid, th *theme.Theme, title string) {
	w, h := g.Size()
	r := compositor.Rect{X: 0, Y: 0, Width: w, Height: h}
	g.Fill(r, ' ', th.WindowBody)
	g.DrawBox(r, th.Border)
	g.SetString(2, 0, " "+title+" ", th.TitleBar)
}

func aboutPainter(th *theme.Theme, version string) compositor.Painter {
	return compositor.PainterFunc(func(g *compositor.Grid, clip compositor.Rect) {
		drawChrome(g, th, "oriel")
		g.SetString(3, 2, "oriel "+version, th.TextPrimary)
		g.SetString(3, 3, "window compositing for the terminal", th.TextSecondary)
		g.SetString(3, 5, "tab    cycle focus", th.TextMuted)
		g.SetString(3, 6, "arrows move window (shift resizes)", th.TextMuted)
		g.SetString(3, 7, "q      quit", th.TextMuted)
	})
}
