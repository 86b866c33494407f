package compositor

import (
	"sort"
	"sync"
)

// Compositor owns the window set and the screen pair, and assembles
// frames: it decides which windows repaint, keeps the visible-region
// cache, and paints window grids into the screen's next-frame grid
// restricted to what is actually visible. All methods are safe for
// concurrent use; frame assembly and geometry changes serialize on one
// lock so a frame never observes half-applied geometry.
type Compositor struct {
	mu     sync.Mutex
	screen *Screen

	windows []*Window
	focused *Window
	nextSeq uint64

	background Style

	// visible is the cached visible-region set per window id. It is
	// recomputed only when geometry, stacking, membership, visibility
	// or focus change, never merely because content did.
	visible      map[string][]Rect
	visibleValid bool

	// recomposite forces a full rebuild of the next-frame grid, set by
	// anything that can expose previously covered cells.
	recomposite bool

	wakeCh chan struct{}
}

// ComposeStats describes one frame assembly.
type ComposeStats struct {
	Painted       int  // windows whose painter ran
	Blitted       int  // windows copied to the screen
	Covered       int  // dirty windows skipped as fully covered
	Invalid       int  // windows excluded for zero or negative bounds
	Recomposited  bool // whole screen rebuilt rather than patched
	ClippedWrites int  // out-of-bounds writes swallowed by window grids
}

// New creates a compositor with a screen of the given size.
func New(width, height int) *Compositor {
	return &Compositor{
		screen:     NewScreen(width, height),
		background: DefaultStyle(),
		wakeCh:     make(chan struct{}, 1),
		recomposite: true,
	}
}

// Screen returns the screen pair. Only the render loop may use it, and
// only between ComposeFrame and FinishFrame.
func (c *Compositor) Screen() *Screen {
	return c.screen
}

// Wake returns the channel pulsed whenever a window invalidates, so the
// render loop can sleep until there is work.
func (c *Compositor) Wake() <-chan struct{} {
	return c.wakeCh
}

func (c *Compositor) wake() {
	select {
	case c.wakeCh <- struct{}{}:
	default:
	}
}

// SetBackground sets the style of cells no window covers.
func (c *Compositor) SetBackground(s Style) {
	c.mu.Lock()
	c.background = s
	c.recomposite = true
	c.mu.Unlock()
	c.wake()
}

// AddWindow creates a window at bounds, above existing windows in its
// tier, and returns it. The painter may be nil for windows drawn only
// through Update.
func (c *Compositor) AddWindow(title string, bounds Rect, painter Painter) *Window {
	w := newWindow(title, bounds, painter)
	w.wake = c.wake

	c.mu.Lock()
	w.seq = c.nextSeq
	c.nextSeq++
	for _, other := range c.windows {
		if !other.alwaysOnTop && other.z >= w.z {
			w.z = other.z + 1
		}
	}
	c.windows = append(c.windows, w)
	c.invalidateGeometry()
	c.mu.Unlock()

	c.wake()
	return w
}

// CloseWindow removes the window, fires its cancellation signal, and
// exposes whatever it covered. Closing an unknown window is a no-op.
func (c *Compositor) CloseWindow(w *Window) {
	if w == nil {
		return
	}
	c.mu.Lock()
	for i, cur := range c.windows {
		if cur == w {
			c.windows = append(c.windows[:i], c.windows[i+1:]...)
			break
		}
	}
	if c.focused == w {
		c.focused = nil
	}
	c.invalidateGeometry()
	c.mu.Unlock()
	w.close()
	c.wake()
}

// Windows returns a snapshot of the window set in insertion order.
func (c *Compositor) Windows() []*Window {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*Window, len(c.windows))
	copy(out, c.windows)
	return out
}

// MoveWindow repositions a window.
func (c *Compositor) MoveWindow(w *Window, x, y int) {
	c.mu.Lock()
	w.bounds.X = x
	w.bounds.Y = y
	c.invalidateGeometry()
	c.mu.Unlock()
	c.wake()
}

// ResizeWindow changes a window's size, replacing its content grid.
// Zero or negative dimensions are recorded but exclude the window from
// painting until a valid size arrives.
func (c *Compositor) ResizeWindow(w *Window, width, height int) {
	c.mu.Lock()
	w.bounds.Width = width
	w.bounds.Height = height
	if width > 0 && height > 0 {
		w.resizeGrid(width, height)
	}
	c.invalidateGeometry()
	c.mu.Unlock()
	c.wake()
}

// SetZ assigns an explicit stacking index within the window's tier.
func (c *Compositor) SetZ(w *Window, z int) {
	c.mu.Lock()
	w.z = z
	c.invalidateGeometry()
	c.mu.Unlock()
	c.wake()
}

// RaiseWindow stacks the window above every other window in its tier.
func (c *Compositor) RaiseWindow(w *Window) {
	c.mu.Lock()
	top := w.z
	for _, other := range c.windows {
		if other != w && other.alwaysOnTop == w.alwaysOnTop && other.z >= top {
			top = other.z + 1
		}
	}
	w.z = top
	c.invalidateGeometry()
	c.mu.Unlock()
	c.wake()
}

// SetAlwaysOnTop moves the window between the normal and top tiers.
func (c *Compositor) SetAlwaysOnTop(w *Window, onTop bool) {
	c.mu.Lock()
	w.alwaysOnTop = onTop
	c.invalidateGeometry()
	c.mu.Unlock()
	c.wake()
}

// SetHidden toggles whether the window participates in compositing.
// Hidden windows keep their content and dirty state.
func (c *Compositor) SetHidden(w *Window, hidden bool) {
	c.mu.Lock()
	w.hidden = hidden
	c.invalidateGeometry()
	c.mu.Unlock()
	c.wake()
}

// SetFocus marks a window focused. Focus defers the window's paint to
// the end of its own tier, so it draws above tier-mates; it never lifts
// a normal window above the always-on-top tier. Passing nil clears
// focus.
func (c *Compositor) SetFocus(w *Window) {
	c.mu.Lock()
	c.focused = w
	c.invalidateGeometry()
	c.mu.Unlock()
	c.wake()
}

// Focused returns the focused window, or nil.
func (c *Compositor) Focused() *Window {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.focused
}

// Resize replaces the screen pair at the terminal's new dimensions,
// marks every window dirty, and unconditionally invalidates the
// visible-region cache.
func (c *Compositor) Resize(width, height int) {
	c.mu.Lock()
	c.screen.Resize(width, height)
	for _, w := range c.windows {
		w.dirty.Store(true)
	}
	c.invalidateGeometry()
	c.mu.Unlock()
	c.wake()
}

// invalidateGeometry drops the visible cache and forces a full
// recomposite. Caller holds c.mu.
func (c *Compositor) invalidateGeometry() {
	c.visibleValid = false
	c.recomposite = true
}

// paintOrder returns the windows back to front: the normal tier, then
// the always-on-top tier; within a tier by Z then insertion order, with
// the focused window deferred to the end of its tier.
func (c *Compositor) paintOrder() []*Window {
	ordered := make([]*Window, len(c.windows))
	copy(ordered, c.windows)
	focused := c.focused
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if a.alwaysOnTop != b.alwaysOnTop {
			return !a.alwaysOnTop
		}
		if (a == focused) != (b == focused) {
			return b == focused
		}
		if a.z != b.z {
			return a.z < b.z
		}
		return a.seq < b.seq
	})
	return ordered
}

// ensureVisible recomputes the visible sets if the cache is stale and
// re-dirties windows that regained visibility while their repaint was
// skipped as covered. Caller holds c.mu.
func (c *Compositor) ensureVisible(ordered []*Window) {
	if c.visibleValid {
		return
	}
	sw, sh := c.screen.Size()
	c.visible = computeVisible(ordered, Rect{0, 0, sw, sh})
	c.visibleValid = true

	for _, w := range c.windows {
		if w.stale && visibleArea(c.visible[w.id]) > 0 {
			w.stale = false
			w.dirty.Store(true)
		}
	}
}

// VisibleRegions returns the cached visible set for a window,
// recomputing if stale. Mostly a test and inspection hook.
func (c *Compositor) VisibleRegions(w *Window) []Rect {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ensureVisible(c.paintOrder())
	return append([]Rect(nil), c.visible[w.id]...)
}

// ComposeFrame assembles the next frame. It returns the windows whose
// dirty flag was consumed (to restore on abandon), per-frame stats, and
// whether anything actually changed; when it reports no change the
// caller skips the frame entirely.
//
// Windows invalidated while this runs are untouched: their flag stays
// set and the next frame picks them up. Never paints a half-applied
// geometry change, because every geometry mutation takes the same lock.
func (c *Compositor) ComposeFrame() ([]*Window, ComposeStats, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var stats ComposeStats

	ordered := c.paintOrder()
	c.ensureVisible(ordered)

	var consumed []*Window
	for _, w := range ordered {
		if w.hidden {
			continue
		}
		if !w.validSize() {
			stats.Invalid++
			continue
		}
		if !w.dirty.Load() {
			continue
		}
		if visibleArea(c.visible[w.id]) == 0 {
			// Fully covered: consume the flag without painting so the
			// loop can go idle; ensureVisible re-dirties on exposure.
			w.dirty.Store(false)
			w.stale = true
			stats.Covered++
			continue
		}
		if !w.dirty.Swap(false) {
			continue
		}
		consumed = append(consumed, w)
	}

	if len(consumed) == 0 && !c.recomposite {
		return nil, stats, false
	}

	// Repaint consumed windows' own grids via their painters.
	for _, w := range consumed {
		w.gridMu.Lock()
		if w.paintLocked() {
			stats.Painted++
		}
		stats.ClippedWrites += w.grid.takeClippedWrites()
		w.gridMu.Unlock()
	}

	next := c.screen.Next()
	if c.recomposite {
		// Geometry changed: rebuild the whole next grid back to front.
		next.Fill(Rect{0, 0, next.Width(), next.Height()}, ' ', c.background)
		for _, w := range ordered {
			c.blitWindow(next, w)
		}
		stats.Blitted = len(ordered)
		stats.Recomposited = true
		c.recomposite = false
	} else {
		// Content-only change: patch just the consumed windows.
		for _, w := range consumed {
			c.blitWindow(next, w)
			stats.Blitted++
		}
	}

	return consumed, stats, true
}

// blitWindow copies the window's grid into the next-frame grid,
// restricted to the window's visible rectangles. Caller holds c.mu.
func (c *Compositor) blitWindow(next *Grid, w *Window) {
	if w.hidden || !w.validSize() {
		return
	}
	set := c.visible[w.id]
	if len(set) == 0 {
		return
	}
	w.gridMu.Lock()
	for _, r := range set {
		next.BlitRect(r, w.grid, r.X-w.bounds.X, r.Y-w.bounds.Y)
	}
	w.gridMu.Unlock()
}

// FinishFrame confirms the composed frame reached the terminal: the
// next grid becomes the comparison baseline. Dirty flags were already
// consumed at compose time.
func (c *Compositor) FinishFrame() {
	c.mu.Lock()
	c.screen.Swap()
	c.mu.Unlock()
}

// AbandonFrame discards a composed frame that was never written, such
// as when the terminal resized mid-frame. The consumed windows get
// their dirty flags back so no update is lost, and the screen pair is
// left unswapped so nothing pretends the frame reached the terminal.
func (c *Compositor) AbandonFrame(consumed []*Window) {
	c.mu.Lock()
	for _, w := range consumed {
		w.dirty.Store(true)
	}
	c.recomposite = true
	c.mu.Unlock()
}
