package compositor

import (
	"github.com/mattn/go-runewidth"
)

// Grid is a fixed-size 2D surface of cells with flat storage. A window
// owns one grid sized to its content area; the screen keeps a pair of
// them for diffing. Grids carry no dirty bookkeeping: whether a cell
// needs repainting is decided by comparing values, never by a flag.
type Grid struct {
	width  int
	height int
	cells  []Cell

	clippedWrites int
}

// NewGrid creates a grid of the given size filled with blank cells.
// Non-positive dimensions yield an empty zero-size grid.
func NewGrid(width, height int) *Grid {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	g := &Grid{
		width:  width,
		height: height,
		cells:  make([]Cell, width*height),
	}
	g.Clear()
	return g
}

// Size returns the grid dimensions.
func (g *Grid) Size() (width, height int) {
	return g.width, g.height
}

// Width returns the grid width.
func (g *Grid) Width() int { return g.width }

// Height returns the grid height.
func (g *Grid) Height() int { return g.height }

func (g *Grid) index(x, y int) int {
	return y*g.width + x
}

func (g *Grid) inBounds(x, y int) bool {
	return x >= 0 && x < g.width && y >= 0 && y < g.height
}

// Get returns the cell at (x, y), or a blank cell out of bounds.
func (g *Grid) Get(x, y int) Cell {
	if !g.inBounds(x, y) {
		return EmptyCell()
	}
	return g.cells[g.index(x, y)]
}

// Set writes a rune with style at (x, y). Wide runes occupy a lead cell
// plus a width-0 continuation cell; overwriting either half of a wide
// rune clears the other half so the row never renders a torn glyph.
// Out-of-bounds writes are ignored.
func (g *Grid) Set(x, y int, r rune, style Style) {
	if !g.inBounds(x, y) {
		g.clippedWrites++
		return
	}

	w := runewidth.RuneWidth(r)
	if w == 0 {
		// Zero-width runes (combining marks) cannot occupy a cell of
		// their own in this model; render as space.
		r = ' '
		w = 1
	}

	g.clearWideAt(x, y)

	idx := g.index(x, y)
	g.cells[idx] = Cell{Rune: r, Width: uint8(w), Style: style}

	if w == 2 {
		if x+1 < g.width {
			g.clearWideAt(x+1, y)
			g.cells[g.index(x+1, y)] = Cell{Rune: 0, Width: 0, Style: style}
		} else {
			// No room for the trailing half at the edge.
			g.cells[idx] = Cell{Rune: ' ', Width: 1, Style: style}
		}
	}
}

// clearWideAt repairs a wide rune that (x, y) is about to overwrite:
// writing over the lead blanks the continuation, writing over the
// continuation blanks the lead.
func (g *Grid) clearWideAt(x, y int) {
	c := g.cells[g.index(x, y)]
	switch {
	case c.Width == 2 && x+1 < g.width:
		next := g.index(x+1, y)
		if g.cells[next].Width == 0 {
			g.cells[next] = Cell{Rune: ' ', Width: 1, Style: g.cells[next].Style}
		}
	case c.Width == 0 && x > 0:
		prev := g.index(x-1, y)
		if g.cells[prev].Width == 2 {
			g.cells[prev] = Cell{Rune: ' ', Width: 1, Style: g.cells[prev].Style}
		}
	}
}

// SetCell writes a prepared cell at (x, y), routing through Set so wide
// rune bookkeeping stays consistent.
func (g *Grid) SetCell(x, y int, c Cell) {
	g.Set(x, y, c.Rune, c.Style)
}

// SetString writes a string starting at (x, y), advancing by display
// width and clipping at the right edge. Returns the next x position.
func (g *Grid) SetString(x, y int, s string, style Style) int {
	for _, r := range s {
		if x >= g.width {
			break
		}
		g.Set(x, y, r, style)
		w := runewidth.RuneWidth(r)
		if w < 1 {
			w = 1
		}
		x += w
	}
	return x
}

// Fill sets every cell of a rectangle to the rune with the style,
// clipped to the grid.
func (g *Grid) Fill(r Rect, ch rune, style Style) {
	area := r.Intersect(Rect{0, 0, g.width, g.height})
	for y := area.Y; y < area.Bottom(); y++ {
		for x := area.X; x < area.Right(); x++ {
			g.Set(x, y, ch, style)
		}
	}
}

// Clear resets the whole grid to blank cells with default style.
func (g *Grid) Clear() {
	for i := range g.cells {
		g.cells[i] = EmptyCell()
	}
}

// ClearRect resets a rectangle to blank cells with default style.
func (g *Grid) ClearRect(r Rect) {
	g.Fill(r, ' ', DefaultStyle())
}

// DrawBox draws a single-line border along the rectangle's edge.
func (g *Grid) DrawBox(r Rect, style Style) {
	if r.Width < 2 || r.Height < 2 {
		return
	}

	g.Set(r.X, r.Y, '┌', style)
	g.Set(r.Right()-1, r.Y, '┐', style)
	g.Set(r.X, r.Bottom()-1, '└', style)
	g.Set(r.Right()-1, r.Bottom()-1, '┘', style)

	for x := r.X + 1; x < r.Right()-1; x++ {
		g.Set(x, r.Y, '─', style)
		g.Set(x, r.Bottom()-1, '─', style)
	}
	for y := r.Y + 1; y < r.Bottom()-1; y++ {
		g.Set(r.X, y, '│', style)
		g.Set(r.Right()-1, y, '│', style)
	}
}

// CopyFrom copies src wholesale. Both grids must be the same size;
// mismatched sizes copy the overlapping area only.
func (g *Grid) CopyFrom(src *Grid) {
	if src == nil {
		return
	}
	if g.width == src.width && g.height == src.height {
		copy(g.cells, src.cells)
		return
	}
	w := min(g.width, src.width)
	h := min(g.height, src.height)
	for y := 0; y < h; y++ {
		copy(g.cells[g.index(0, y):g.index(0, y)+w], src.cells[src.index(0, y):src.index(0, y)+w])
	}
}

// BlitRect copies the cells of src covered by the rectangle dst (given in
// this grid's coordinates) from src coordinates (srcX, srcY).
func (g *Grid) BlitRect(dst Rect, src *Grid, srcX, srcY int) {
	area := dst.Intersect(Rect{0, 0, g.width, g.height})
	for y := 0; y < area.Height; y++ {
		for x := 0; x < area.Width; x++ {
			sx := srcX + (area.X - dst.X) + x
			sy := srcY + (area.Y - dst.Y) + y
			if sx < 0 || sy < 0 || sx >= src.width || sy >= src.height {
				continue
			}
			g.cells[g.index(area.X+x, area.Y+y)] = src.cells[src.index(sx, sy)]
		}
	}
}

// Diff calls fn for every cell whose value differs from prev, in row
// order. Grids of different sizes are treated as fully different within
// this grid's bounds. A write that restored the previous value yields
// nothing: dirtiness is derived, not remembered.
func (g *Grid) Diff(prev *Grid, fn func(x, y int, c Cell)) {
	if prev == nil || prev.width != g.width || prev.height != g.height {
		for y := 0; y < g.height; y++ {
			for x := 0; x < g.width; x++ {
				fn(x, y, g.cells[g.index(x, y)])
			}
		}
		return
	}
	for y := 0; y < g.height; y++ {
		row := y * g.width
		for x := 0; x < g.width; x++ {
			if !g.cells[row+x].Equal(prev.cells[row+x]) {
				fn(x, y, g.cells[row+x])
			}
		}
	}
}

// takeClippedWrites returns and resets the count of writes swallowed
// for falling outside the grid. Painters that stay inside their clip
// never increment it.
func (g *Grid) takeClippedWrites() int {
	n := g.clippedWrites
	g.clippedWrites = 0
	return n
}

// DiffCount returns the number of cells that differ from prev.
func (g *Grid) DiffCount(prev *Grid) int {
	n := 0
	g.Diff(prev, func(int, int, Cell) { n++ })
	return n
}

// Equal reports whether two grids hold identical content.
func (g *Grid) Equal(other *Grid) bool {
	if other == nil || g.width != other.width || g.height != other.height {
		return false
	}
	for i := range g.cells {
		if !g.cells[i].Equal(other.cells[i]) {
			return false
		}
	}
	return true
}
