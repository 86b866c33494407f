package compositor

// Screen is the terminal-sized comparison pair: the next-frame grid that
// windows are painted into and the previous-frame grid holding what was
// last flushed. The render loop owns the Screen exclusively; windows
// never touch it. Synchronization is the compositor's frame lock.
type Screen struct {
	width  int
	height int
	next   *Grid
	prev   *Grid

	cursorX       int
	cursorY       int
	cursorVisible bool
}

// NewScreen creates a screen pair at the given dimensions. The previous
// grid starts blank, so the first frame diffs as a full repaint.
func NewScreen(width, height int) *Screen {
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}
	return &Screen{
		width:  width,
		height: height,
		next:   NewGrid(width, height),
		prev:   NewGrid(width, height),
	}
}

// Size returns the screen dimensions.
func (s *Screen) Size() (width, height int) {
	return s.width, s.height
}

// Next returns the grid the current frame is painted into.
func (s *Screen) Next() *Grid {
	return s.next
}

// Prev returns the grid holding the last flushed frame.
func (s *Screen) Prev() *Grid {
	return s.prev
}

// Swap promotes the painted frame to the flushed baseline. Called only
// after the encoded frame was written in full; an abandoned frame must
// not swap, or the pair desynchronizes from the real terminal.
func (s *Screen) Swap() {
	s.prev.CopyFrom(s.next)
}

// Resize replaces both grids at the new dimensions. Grid dimensions
// never change in place. The previous grid comes back blank so the next
// frame re-emits everything.
func (s *Screen) Resize(width, height int) {
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}
	s.width = width
	s.height = height
	s.next = NewGrid(width, height)
	s.prev = NewGrid(width, height)
}

// SetCursor moves the hardware cursor position emitted at frame end.
func (s *Screen) SetCursor(x, y int) {
	s.cursorX = x
	s.cursorY = y
}

// Cursor returns the hardware cursor position.
func (s *Screen) Cursor() (x, y int) {
	return s.cursorX, s.cursorY
}

// SetCursorVisible toggles whether the hardware cursor shows after a
// flush. Hidden is the default for composited output.
func (s *Screen) SetCursorVisible(v bool) {
	s.cursorVisible = v
}

// CursorVisible reports whether the hardware cursor shows after a flush.
func (s *Screen) CursorVisible() bool {
	return s.cursorVisible
}
