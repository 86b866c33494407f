package layout

import (
	"github.com/odvcencio/oriel/pkg/compositor"
)

// Snapshot captures the compositor's current window set as layouts.
// Geometry is read through the window accessors, so call it from the
// goroutine driving the compositor.
func Snapshot(c *compositor.Compositor) []WindowLayout {
	focused := c.Focused()
	windows := c.Windows()
	layouts := make([]WindowLayout, 0, len(windows))
	for _, w := range windows {
		b := w.Bounds()
		layouts = append(layouts, WindowLayout{
			WindowID:    w.ID(),
			Title:       w.Title(),
			X:           b.X,
			Y:           b.Y,
			Width:       b.Width,
			Height:      b.Height,
			Z:           w.Z(),
			AlwaysOnTop: w.AlwaysOnTop(),
			Hidden:      w.Hidden(),
			Focused:     w == focused,
		})
	}
	return layouts
}

// Restore replays a snapshot into the compositor. Saved window IDs are
// not reused; painterFor supplies each window's painter, keyed by the
// saved layout, and may return nil for windows drawn through Update.
// Returns the created windows in snapshot order.
func Restore(c *compositor.Compositor, layouts []WindowLayout, painterFor func(WindowLayout) compositor.Painter) []*compositor.Window {
	windows := make([]*compositor.Window, 0, len(layouts))
	for _, l := range layouts {
		var painter compositor.Painter
		if painterFor != nil {
			painter = painterFor(l)
		}
		bounds := compositor.Rect{X: l.X, Y: l.Y, Width: l.Width, Height: l.Height}
		w := c.AddWindow(l.Title, bounds, painter)
		c.SetZ(w, l.Z)
		if l.AlwaysOnTop {
			c.SetAlwaysOnTop(w, true)
		}
		if l.Hidden {
			c.SetHidden(w, true)
		}
		if l.Focused {
			c.SetFocus(w)
		}
		windows = append(windows, w)
	}
	return windows
}
