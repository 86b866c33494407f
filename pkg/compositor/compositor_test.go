package compositor

import (
	"testing"
)

func fillPainter(r rune, style Style) PainterFunc {
	return func(g *Grid, clip Rect) {
		g.Fill(clip, r, style)
	}
}

func TestAddWindowStacking(t *testing.T) {
	c := New(40, 12)

	a := c.AddWindow("a", Rect{X: 0, Y: 0, Width: 5, Height: 3}, nil)
	b := c.AddWindow("b", Rect{X: 1, Y: 1, Width: 5, Height: 3}, nil)

	if b.Z() <= a.Z() {
		t.Errorf("new window should stack above: a.z=%d b.z=%d", a.Z(), b.Z())
	}
	if a.ID() == b.ID() {
		t.Error("window IDs must be unique")
	}
	if len(c.Windows()) != 2 {
		t.Errorf("got %d windows, want 2", len(c.Windows()))
	}
}

func TestPaintOrder(t *testing.T) {
	c := New(40, 12)
	bounds := Rect{X: 0, Y: 0, Width: 4, Height: 2}

	normal1 := c.AddWindow("n1", bounds, nil)
	normal2 := c.AddWindow("n2", bounds, nil)
	pinned := c.AddWindow("pin", bounds, nil)
	c.SetAlwaysOnTop(pinned, true)

	t.Run("top tier paints last", func(t *testing.T) {
		c.mu.Lock()
		ordered := c.paintOrder()
		c.mu.Unlock()
		if ordered[len(ordered)-1] != pinned {
			t.Error("always-on-top window should paint last")
		}
	})

	t.Run("focus defers within the tier only", func(t *testing.T) {
		c.SetFocus(normal1)
		c.mu.Lock()
		ordered := c.paintOrder()
		c.mu.Unlock()

		if ordered[0] != normal2 {
			t.Errorf("unfocused tier-mate should paint first, got %q", ordered[0].Title())
		}
		if ordered[1] != normal1 {
			t.Error("focused window should paint at the end of its tier")
		}
		if ordered[2] != pinned {
			t.Error("focus must not lift a normal window above the top tier")
		}
	})

	t.Run("z then insertion order", func(t *testing.T) {
		c.SetFocus(nil)
		c.SetZ(normal2, normal1.Z())
		c.mu.Lock()
		ordered := c.paintOrder()
		c.mu.Unlock()

		if ordered[0] != normal1 || ordered[1] != normal2 {
			t.Error("equal z should fall back to insertion order")
		}
	})
}

func TestFocusRaisesVisibility(t *testing.T) {
	c := New(80, 24)
	a := c.AddWindow("a", Rect{X: 0, Y: 0, Width: 10, Height: 5}, nil)
	b := c.AddWindow("b", Rect{X: 5, Y: 2, Width: 10, Height: 5}, nil)

	if got := visibleArea(c.VisibleRegions(a)); got != 35 {
		t.Errorf("got area %d before focus, want 35", got)
	}

	c.SetFocus(a)
	if got := visibleArea(c.VisibleRegions(a)); got != 50 {
		t.Errorf("focused window should be fully visible, got area %d", got)
	}
	if got := visibleArea(c.VisibleRegions(b)); got != 35 {
		t.Errorf("got area %d for the deferred-over window, want 35", got)
	}
}

func TestComposeFrameLifecycle(t *testing.T) {
	c := New(20, 6)
	style := DefaultStyle().WithFG(ColorGreen)
	w := c.AddWindow("w", Rect{X: 2, Y: 1, Width: 5, Height: 3}, fillPainter('#', style))

	t.Run("first frame paints and blits", func(t *testing.T) {
		consumed, stats, changed := c.ComposeFrame()
		if !changed {
			t.Fatal("first frame should report change")
		}
		if stats.Painted != 1 {
			t.Errorf("got %d painted, want 1", stats.Painted)
		}
		if !stats.Recomposited {
			t.Error("first frame should recomposite")
		}
		if len(consumed) != 1 || consumed[0] != w {
			t.Errorf("got consumed %v, want the one window", consumed)
		}

		next := c.Screen().Next()
		if got := next.Get(2, 1).Rune; got != '#' {
			t.Errorf("got %q at window origin, want '#'", got)
		}
		if got := next.Get(1, 1).Rune; got != ' ' {
			t.Errorf("got %q outside the window, want background space", got)
		}
		c.FinishFrame()
	})

	t.Run("idle frame reports no change", func(t *testing.T) {
		if _, _, changed := c.ComposeFrame(); changed {
			t.Error("no invalidation should mean no frame")
		}
	})

	t.Run("invalidate produces a content patch", func(t *testing.T) {
		w.Invalidate()
		_, stats, changed := c.ComposeFrame()
		if !changed {
			t.Fatal("invalidated window should produce a frame")
		}
		if stats.Recomposited {
			t.Error("content-only change should patch, not recomposite")
		}
		if stats.Blitted != 1 {
			t.Errorf("got %d blitted, want 1", stats.Blitted)
		}
		c.FinishFrame()
	})
}

func TestComposeFrameUpdateWithoutPainter(t *testing.T) {
	c := New(20, 6)
	w := c.AddWindow("log", Rect{X: 0, Y: 0, Width: 10, Height: 2}, nil)

	w.Update(func(g *Grid) {
		g.SetString(0, 0, "hello", DefaultStyle())
	})

	_, stats, changed := c.ComposeFrame()
	if !changed {
		t.Fatal("updated window should produce a frame")
	}
	if stats.Painted != 0 {
		t.Errorf("got %d painted, want 0 for a painterless window", stats.Painted)
	}
	if got := c.Screen().Next().Get(0, 0).Rune; got != 'h' {
		t.Errorf("got %q, want updated content on screen", got)
	}
}

func TestComposeFrameCoveredWindow(t *testing.T) {
	c := New(40, 12)
	bottom := c.AddWindow("bottom", Rect{X: 2, Y: 2, Width: 4, Height: 2}, fillPainter('b', DefaultStyle()))
	top := c.AddWindow("top", Rect{X: 0, Y: 0, Width: 12, Height: 8}, fillPainter('t', DefaultStyle()))

	if _, _, changed := c.ComposeFrame(); !changed {
		t.Fatal("setup frame should change")
	}
	c.FinishFrame()

	t.Run("covered invalidation paints nothing", func(t *testing.T) {
		bottom.Invalidate()
		_, stats, changed := c.ComposeFrame()
		if changed {
			t.Error("a fully covered window should not produce a frame")
		}
		if stats.Covered != 1 {
			t.Errorf("got %d covered, want 1", stats.Covered)
		}
		if bottom.IsDirty() {
			t.Error("covered window's flag should be consumed so the loop can idle")
		}
	})

	t.Run("exposure repaints the stale window", func(t *testing.T) {
		c.MoveWindow(top, 20, 0)
		_, stats, changed := c.ComposeFrame()
		if !changed {
			t.Fatal("exposing a stale window should produce a frame")
		}
		if stats.Painted != 1 {
			t.Errorf("got %d painted, want the exposed window repainted", stats.Painted)
		}
		if got := c.Screen().Next().Get(2, 2).Rune; got != 'b' {
			t.Errorf("got %q at the exposed cell, want 'b'", got)
		}
		c.FinishFrame()
	})
}

func TestMoveWindowRestoresBackground(t *testing.T) {
	c := New(20, 6)
	w := c.AddWindow("w", Rect{X: 0, Y: 0, Width: 3, Height: 2}, fillPainter('x', DefaultStyle()))

	if _, _, changed := c.ComposeFrame(); !changed {
		t.Fatal("setup frame should change")
	}
	c.FinishFrame()

	c.MoveWindow(w, 10, 3)
	_, stats, changed := c.ComposeFrame()
	if !changed {
		t.Fatal("move should produce a frame")
	}
	if !stats.Recomposited {
		t.Error("geometry change should force a recomposite")
	}

	next := c.Screen().Next()
	if got := next.Get(0, 0).Rune; got != ' ' {
		t.Errorf("vacated cell should return to background, got %q", got)
	}
	if got := next.Get(10, 3).Rune; got != 'x' {
		t.Errorf("got %q at the new position, want 'x'", got)
	}
}

func TestCloseWindow(t *testing.T) {
	c := New(20, 6)
	w := c.AddWindow("w", Rect{X: 1, Y: 1, Width: 3, Height: 2}, fillPainter('x', DefaultStyle()))

	if _, _, changed := c.ComposeFrame(); !changed {
		t.Fatal("setup frame should change")
	}
	c.FinishFrame()

	c.CloseWindow(w)
	select {
	case <-w.Done():
	default:
		t.Error("Done should fire on close")
	}
	if len(c.Windows()) != 0 {
		t.Error("closed window should leave the set")
	}

	_, _, changed := c.ComposeFrame()
	if !changed {
		t.Fatal("close should produce a frame")
	}
	if got := c.Screen().Next().Get(1, 1).Rune; got != ' ' {
		t.Errorf("closed window's cells should clear, got %q", got)
	}

	// Closing again is harmless.
	c.CloseWindow(w)
	c.CloseWindow(nil)
}

func TestHiddenWindow(t *testing.T) {
	c := New(20, 6)
	w := c.AddWindow("w", Rect{X: 0, Y: 0, Width: 4, Height: 2}, fillPainter('h', DefaultStyle()))

	c.SetHidden(w, true)
	_, stats, changed := c.ComposeFrame()
	if !changed {
		t.Fatal("hiding forces a recomposite frame")
	}
	if stats.Painted != 0 {
		t.Error("hidden window must not paint")
	}
	if got := c.Screen().Next().Get(0, 0).Rune; got != ' ' {
		t.Errorf("hidden window should not reach the screen, got %q", got)
	}
	c.FinishFrame()

	c.SetHidden(w, false)
	if _, _, changed := c.ComposeFrame(); !changed {
		t.Fatal("unhiding should produce a frame")
	}
	if got := c.Screen().Next().Get(0, 0).Rune; got != 'h' {
		t.Errorf("got %q after unhiding, want 'h'", got)
	}
}

func TestResizeMarksEverythingDirty(t *testing.T) {
	c := New(20, 6)
	a := c.AddWindow("a", Rect{X: 0, Y: 0, Width: 4, Height: 2}, fillPainter('a', DefaultStyle()))
	b := c.AddWindow("b", Rect{X: 5, Y: 3, Width: 4, Height: 2}, fillPainter('b', DefaultStyle()))

	if _, _, changed := c.ComposeFrame(); !changed {
		t.Fatal("setup frame should change")
	}
	c.FinishFrame()

	c.Resize(30, 10)
	if !a.IsDirty() || !b.IsDirty() {
		t.Error("resize should dirty every window")
	}

	_, stats, changed := c.ComposeFrame()
	if !changed {
		t.Fatal("resize should produce a frame")
	}
	if !stats.Recomposited {
		t.Error("resize should recomposite")
	}
	if stats.Painted != 2 {
		t.Errorf("got %d painted, want 2", stats.Painted)
	}

	w, h := c.Screen().Size()
	if w != 30 || h != 10 {
		t.Errorf("got screen %dx%d, want 30x10", w, h)
	}
}

func TestAbandonFrameRestoresDirty(t *testing.T) {
	c := New(20, 6)
	w := c.AddWindow("w", Rect{X: 0, Y: 0, Width: 4, Height: 2}, fillPainter('x', DefaultStyle()))

	consumed, _, changed := c.ComposeFrame()
	if !changed {
		t.Fatal("setup frame should change")
	}
	c.AbandonFrame(consumed)

	if !w.IsDirty() {
		t.Error("abandoned frame should restore the dirty flag")
	}
	_, stats, changed := c.ComposeFrame()
	if !changed {
		t.Fatal("retry after abandon should produce a frame")
	}
	if !stats.Recomposited {
		t.Error("retry should rebuild the frame from scratch")
	}
}

func TestClippedWritesSurface(t *testing.T) {
	c := New(20, 6)
	c.AddWindow("rogue", Rect{X: 0, Y: 0, Width: 4, Height: 2}, PainterFunc(func(g *Grid, clip Rect) {
		g.SetString(0, 0, "inside", DefaultStyle())
	}))

	_, stats, changed := c.ComposeFrame()
	if !changed {
		t.Fatal("setup frame should change")
	}
	if stats.ClippedWrites == 0 {
		t.Error("writes past the window grid should surface in stats")
	}
}

func TestZeroSizeWindowExcluded(t *testing.T) {
	c := New(20, 6)
	w := c.AddWindow("w", Rect{X: 0, Y: 0, Width: 4, Height: 2}, fillPainter('x', DefaultStyle()))

	c.ResizeWindow(w, 0, 2)
	_, stats, changed := c.ComposeFrame()
	if !changed {
		t.Fatal("geometry change still produces a recomposite frame")
	}
	if stats.Painted != 0 {
		t.Error("zero-size window must not paint")
	}
	if stats.Invalid != 1 {
		t.Errorf("got %d invalid windows, want 1", stats.Invalid)
	}
	c.FinishFrame()

	c.ResizeWindow(w, 6, 3)
	_, stats, changed = c.ComposeFrame()
	if !changed {
		t.Fatal("restoring a valid size should produce a frame")
	}
	if stats.Painted != 1 {
		t.Errorf("got %d painted after revalidation, want 1", stats.Painted)
	}
	if got := c.Screen().Next().Get(5, 2).Rune; got != 'x' {
		t.Errorf("got %q inside the regrown window, want 'x'", got)
	}
}

func TestRaiseWindow(t *testing.T) {
	c := New(40, 12)
	a := c.AddWindow("a", Rect{X: 0, Y: 0, Width: 10, Height: 5}, nil)
	c.AddWindow("b", Rect{X: 5, Y: 2, Width: 10, Height: 5}, nil)

	c.RaiseWindow(a)
	if got := visibleArea(c.VisibleRegions(a)); got != 50 {
		t.Errorf("raised window should be fully visible, got area %d", got)
	}
}
