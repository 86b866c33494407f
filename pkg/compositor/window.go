package compositor

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/oklog/ulid/v2"
)

// Painter supplies a window's content. Paint writes into the window's
// own grid and must stay inside clip; the grid clips writes anyway, but
// a painter that relies on that is in breach of the contract and shows
// up in the clip-violation telemetry.
type Painter interface {
	Paint(g *Grid, clip Rect)
}

// PainterFunc adapts a function to the Painter interface.
type PainterFunc func(g *Grid, clip Rect)

// Paint calls the function.
func (f PainterFunc) Paint(g *Grid, clip Rect) { f(g, clip) }

// Window is one surface managed by the compositor. The window owns its
// grid exclusively: update tasks mutate it through Update, and the
// compositor borrows it read-only under the frame lock while painting.
// The dirty flag is the only externally settable state on the render
// path; everything geometric (bounds, stacking, visibility, focus) is
// changed through the Compositor so the visible-region cache stays
// honest.
type Window struct {
	id      string
	title   string
	painter Painter

	// Geometry, owned by the compositor and guarded by its lock.
	bounds      Rect
	z           int
	alwaysOnTop bool
	hidden      bool
	stale       bool   // content changed while fully covered
	seq         uint64 // insertion order, stable tiebreak

	// Content, owned by the window.
	gridMu sync.Mutex
	grid   *Grid

	dirty  atomic.Bool
	wake   func()
	closed chan struct{}
	once   sync.Once
}

func newWindow(title string, bounds Rect, painter Painter) *Window {
	w := &Window{
		id:      ulid.Make().String(),
		title:   title,
		painter: painter,
		bounds:  bounds,
		grid:    NewGrid(bounds.Width, bounds.Height),
		closed:  make(chan struct{}),
	}
	w.dirty.Store(true)
	return w
}

// ID returns the window's ULID.
func (w *Window) ID() string { return w.id }

// Title returns the window title.
func (w *Window) Title() string { return w.title }

// Bounds returns the window rectangle in screen coordinates.
func (w *Window) Bounds() Rect { return w.bounds }

// Z returns the stacking index within the window's tier.
func (w *Window) Z() int { return w.z }

// AlwaysOnTop reports whether the window stacks in the top tier.
func (w *Window) AlwaysOnTop() bool { return w.alwaysOnTop }

// Hidden reports whether the window is excluded from compositing.
func (w *Window) Hidden() bool { return w.hidden }

// Invalidate marks the window's content dirty and wakes the render
// loop. Safe from any goroutine, idempotent, never blocks.
func (w *Window) Invalidate() {
	w.dirty.Store(true)
	if w.wake != nil {
		w.wake()
	}
}

// IsDirty reports whether the window awaits a repaint.
func (w *Window) IsDirty() bool {
	return w.dirty.Load()
}

// Update runs fn with exclusive access to the window's grid, then marks
// the window dirty. This is the one sanctioned way for update tasks to
// touch window content.
func (w *Window) Update(fn func(g *Grid)) {
	w.gridMu.Lock()
	fn(w.grid)
	w.gridMu.Unlock()
	w.Invalidate()
}

// Done is closed when the window is closed, cancelling its update tasks.
func (w *Window) Done() <-chan struct{} {
	return w.closed
}

// Context derives a context cancelled when either parent ends or the
// window closes. Update tasks should watch it between suspension points.
func (w *Window) Context(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	go func() {
		select {
		case <-w.closed:
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}

// Run starts fn as the window's update task on its own goroutine, with a
// context that cancels on window close. fn must return promptly once the
// context ends; there is no forced termination.
func (w *Window) Run(parent context.Context, fn func(ctx context.Context, w *Window)) {
	ctx, cancel := w.Context(parent)
	go func() {
		defer cancel()
		fn(ctx, w)
	}()
}

// close fires the cancellation signal once.
func (w *Window) close() {
	w.once.Do(func() { close(w.closed) })
}

// paintLocked repaints the window grid via its painter if one is set,
// reporting whether a painter ran. Caller holds gridMu.
func (w *Window) paintLocked() bool {
	if w.painter == nil {
		return false
	}
	gw, gh := w.grid.Size()
	w.painter.Paint(w.grid, Rect{X: 0, Y: 0, Width: gw, Height: gh})
	return true
}

// resizeGridLocked replaces the content grid at the new size. Grid
// dimensions never change in place. Caller holds the compositor lock;
// takes gridMu itself.
func (w *Window) resizeGrid(width, height int) {
	w.gridMu.Lock()
	w.grid = NewGrid(width, height)
	w.gridMu.Unlock()
	w.dirty.Store(true)
}

// validSize reports whether the window has paintable dimensions.
// Zero or negative size excludes a window from the frame without
// removing it; its state persists for a future resize.
func (w *Window) validSize() bool {
	return w.bounds.Width > 0 && w.bounds.Height > 0
}
