package compositor

// FrameStats describes one encoded frame.
type FrameStats struct {
	TotalCells        int  // cells in the frame, continuations included
	ChangedCells      int  // cells written to the wire
	ContinuationCells int  // wide-rune trailing cells among those written
	BadStyles         int  // style changes that failed to encode
	Bytes             int  // encoded output length
	Full              bool // unconditional full repaint
}

// Renderer encodes screen frames into escape-sequence output. It is
// pure with respect to the screen: encoding never mutates the pair, so
// a frame the driver fails to write can be abandoned without the
// baseline lying about what the terminal shows.
type Renderer struct {
	cache *EscapeCache

	cursorShown bool
	lastCX      int
	lastCY      int
}

// NewRenderer creates a renderer encoding styles through the cache.
func NewRenderer(cache *EscapeCache) *Renderer {
	return &Renderer{cache: cache}
}

// Render encodes the minimal update from the screen's previous frame to
// its next frame. Identical frames yield an empty string: a second
// render of unchanged content costs zero bytes.
func (r *Renderer) Render(s *Screen) (string, FrameStats) {
	width, height := s.Size()
	stats := FrameStats{TotalCells: width * height}

	next, prev := s.Next(), s.Prev()

	w := NewANSIWriter(r.cache)
	w.Grow(width * height / 4)

	for y := 0; y < height; y++ {
		touchedEnd := false
		for x := 0; x < width; {
			curr := next.cells[next.index(x, y)]

			if curr.Width == 0 {
				stats.ContinuationCells++
				x++
				continue
			}

			if curr.Equal(prev.cells[prev.index(x, y)]) {
				x += int(curr.Width)
				continue
			}

			w.MoveTo(x, y)
			w.SetStyle(curr.Style)
			if curr.Rune == 0 {
				w.WriteCell(Cell{Rune: ' ', Width: 1})
			} else {
				w.WriteCell(curr)
			}
			stats.ChangedCells++
			stats.ContinuationCells += int(curr.Width) - 1

			if x+int(curr.Width) >= width {
				touchedEnd = true
			}
			x += int(curr.Width)
		}
		// Stop a style from bleeding past the writable edge when a
		// styled run reached the final column.
		if touchedEnd {
			w.Reset()
		}
	}

	stats.BadStyles = w.BadStyles()

	var prefix, body, suffix string
	if stats.ChangedCells > 0 {
		w.Reset()
		body = w.String()
	}

	cx, cy := s.Cursor()
	visible := s.CursorVisible()
	cursorMoved := visible != r.cursorShown ||
		(visible && (cx != r.lastCX || cy != r.lastCY))

	if r.cursorShown && (stats.ChangedCells > 0 || !visible) {
		prefix = ANSICursorHide
		r.cursorShown = false
	}
	if visible && (stats.ChangedCells > 0 || cursorMoved) {
		suffix = CursorTo(cx, cy) + ANSICursorShow
		r.cursorShown = true
		r.lastCX, r.lastCY = cx, cy
	}

	out := prefix + body + suffix
	stats.Bytes = len(out)
	return out, stats
}

// RenderFull encodes the entire next frame unconditionally: clear, home,
// every row. Used for first paint, after resize, and for the periodic
// self-heal redraw that repairs any state the terminal lost to output
// corruption.
func (r *Renderer) RenderFull(s *Screen) (string, FrameStats) {
	width, height := s.Size()
	stats := FrameStats{TotalCells: width * height, Full: true}

	next := s.Next()

	w := NewANSIWriter(r.cache)
	w.Grow(width * height * 2)

	if r.cursorShown {
		w.WriteString(ANSICursorHide)
		r.cursorShown = false
	}
	w.WriteString(ANSIClearScreen)
	w.WriteString(ANSICursorHome)

	for y := 0; y < height; y++ {
		if y > 0 {
			w.WriteString("\r\n")
		}
		for x := 0; x < width; {
			cell := next.cells[next.index(x, y)]
			if cell.Width == 0 {
				stats.ContinuationCells++
				x++
				continue
			}
			w.SetStyle(cell.Style)
			if cell.Rune == 0 {
				w.WriteCell(Cell{Rune: ' ', Width: 1})
			} else {
				w.WriteCell(cell)
			}
			stats.ChangedCells++
			stats.ContinuationCells += int(cell.Width) - 1
			x += int(cell.Width)
		}
	}
	w.Reset()

	if s.CursorVisible() {
		cx, cy := s.Cursor()
		w.WriteString(CursorTo(cx, cy))
		w.WriteString(ANSICursorShow)
		r.cursorShown = true
		r.lastCX, r.lastCY = cx, cy
	}

	stats.BadStyles = w.BadStyles()
	out := w.String()
	stats.Bytes = len(out)
	return out, stats
}
