// Package termtest provides an in-memory terminal for tests: a VT
// interpreter that applies escape output to a model grid, and a Backend
// implementation whose writes feed it. Pipeline tests assert on what a
// terminal would display instead of on raw byte sequences.
package termtest

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/mattn/go-runewidth"

	"github.com/odvcencio/oriel/pkg/compositor"
)

// VT interprets the escape subset the render pipeline emits: cursor
// addressing, forward movement, SGR, screen and line erase, cursor
// visibility, and the private modes claimed at startup. Output lands on
// a model grid that tests can compare against an expected grid.
//
// The model does not scroll; the renderer never writes past the last
// row. Styles decode to resolved values, so grids fed through the
// interpreter compare equal only when the source grid held resolved
// styles, never inherit markers.
type VT struct {
	grid  *compositor.Grid
	x, y  int
	style compositor.Style

	savedX, savedY int

	cursorVisible  bool
	altScreen      bool
	bracketedPaste bool

	tail []byte
}

// NewVT creates an interpreter over a blank grid. The cursor starts
// visible, as on a freshly attached terminal.
func NewVT(width, height int) *VT {
	return &VT{
		grid:          compositor.NewGrid(width, height),
		style:         compositor.DefaultStyle(),
		cursorVisible: true,
	}
}

// Grid exposes the model grid.
func (v *VT) Grid() *compositor.Grid { return v.grid }

// Cursor returns the current cursor position.
func (v *VT) Cursor() (x, y int) { return v.x, v.y }

// CursorVisible reports the cursor visibility flag.
func (v *VT) CursorVisible() bool { return v.cursorVisible }

// AltScreen reports whether the alternate screen is active.
func (v *VT) AltScreen() bool { return v.altScreen }

// BracketedPaste reports whether bracketed paste is armed.
func (v *VT) BracketedPaste() bool { return v.bracketedPaste }

// Resize replaces the model grid, keeping the overlapping content.
func (v *VT) Resize(width, height int) {
	oldW, oldH := v.grid.Size()
	next := compositor.NewGrid(width, height)
	next.BlitRect(compositor.Rect{X: 0, Y: 0, Width: min(oldW, width), Height: min(oldH, height)}, v.grid, 0, 0)
	v.grid = next
	v.x = clamp(v.x, 0, width-1)
	v.y = clamp(v.y, 0, height-1)
}

// Feed applies a chunk of escape output to the model. Sequences split
// across chunks are held until the rest arrives.
func (v *VT) Feed(p []byte) {
	buf := p
	if len(v.tail) > 0 {
		buf = append(v.tail, p...)
		v.tail = nil
	}

	for len(buf) > 0 {
		b := buf[0]
		switch {
		case b == 0x1b:
			n := v.consumeEscape(buf)
			if n == 0 {
				// Incomplete sequence, keep for the next chunk.
				v.tail = append(v.tail, buf...)
				return
			}
			buf = buf[n:]
		case b == '\r':
			v.x = 0
			buf = buf[1:]
		case b == '\n':
			if v.y < v.grid.Height()-1 {
				v.y++
			}
			buf = buf[1:]
		case b < 0x20 || b == 0x7f:
			// Stray control byte, ignore.
			buf = buf[1:]
		default:
			if !utf8.FullRune(buf) {
				v.tail = append(v.tail, buf...)
				return
			}
			r, size := utf8.DecodeRune(buf)
			v.put(r)
			buf = buf[size:]
		}
	}
}

// put writes a rune at the cursor and advances by its display width.
func (v *VT) put(r rune) {
	v.grid.Set(v.x, v.y, r, v.style)
	w := runewidth.RuneWidth(r)
	if w < 1 {
		w = 1
	}
	v.x += w
}

// consumeEscape handles one escape sequence at the front of buf.
// Returns bytes consumed, or 0 if the sequence is incomplete.
func (v *VT) consumeEscape(buf []byte) int {
	if len(buf) < 2 {
		return 0
	}
	if buf[1] != '[' {
		// Not CSI; nothing in the pipeline emits these.
		return 2
	}

	end := 2
	for ; end < len(buf); end++ {
		if buf[end] >= 0x40 && buf[end] <= 0x7e {
			break
		}
	}
	if end >= len(buf) {
		return 0
	}

	v.applyCSI(string(buf[2:end]), buf[end])
	return end + 1
}

func (v *VT) applyCSI(params string, final byte) {
	if strings.HasPrefix(params, "?") {
		v.applyPrivateMode(params[1:], final)
		return
	}

	switch final {
	case 'H':
		row, col := 1, 1
		if params != "" {
			fields := strings.SplitN(params, ";", 2)
			row = paramInt(fields[0], 1)
			if len(fields) == 2 {
				col = paramInt(fields[1], 1)
			}
		}
		v.y = clamp(row-1, 0, v.grid.Height()-1)
		v.x = clamp(col-1, 0, v.grid.Width()-1)
	case 'C':
		v.x = clamp(v.x+paramInt(params, 1), 0, v.grid.Width()-1)
	case 'm':
		v.applySGR(params)
	case 'J':
		if paramInt(params, 0) == 2 {
			v.grid.Clear()
		}
	case 'K':
		if paramInt(params, 0) == 2 {
			v.grid.ClearRect(compositor.Rect{X: 0, Y: v.y, Width: v.grid.Width(), Height: 1})
		}
	case 's':
		v.savedX, v.savedY = v.x, v.y
	case 'u':
		v.x, v.y = v.savedX, v.savedY
	}
}

func (v *VT) applyPrivateMode(params string, final byte) {
	on := final == 'h'
	if final != 'h' && final != 'l' {
		return
	}
	switch paramInt(params, 0) {
	case 25:
		v.cursorVisible = on
	case 1049:
		v.altScreen = on
	case 2004:
		v.bracketedPaste = on
	}
}

// applySGR decodes a select-graphic-rendition parameter list into the
// current style. The encoder always leads with a reset parameter, but
// bare attribute toggles are handled too.
func (v *VT) applySGR(params string) {
	if params == "" {
		v.style = compositor.DefaultStyle()
		return
	}

	fields := strings.Split(params, ";")
	for i := 0; i < len(fields); i++ {
		switch n := paramInt(fields[i], 0); n {
		case 0:
			v.style = compositor.DefaultStyle()
		case 1:
			v.style.Bold = true
		case 2:
			v.style.Dim = true
		case 3:
			v.style.Italic = true
		case 4:
			v.style.Underline = true
		case 5:
			v.style.Blink = true
		case 7:
			v.style.Reverse = true
		case 9:
			v.style.Strikethrough = true
		case 22:
			v.style.Bold = false
			v.style.Dim = false
		case 23:
			v.style.Italic = false
		case 24:
			v.style.Underline = false
		case 25:
			v.style.Blink = false
		case 27:
			v.style.Reverse = false
		case 29:
			v.style.Strikethrough = false
		case 38:
			c, skip := extendedColor(fields[i+1:])
			v.style.FG = c
			i += skip
		case 48:
			c, skip := extendedColor(fields[i+1:])
			v.style.BG = c
			i += skip
		case 39:
			v.style.FG = compositor.ColorDefault
		case 49:
			v.style.BG = compositor.ColorDefault
		default:
			switch {
			case n >= 30 && n <= 37:
				v.style.FG = compositor.Color{Mode: compositor.ColorMode16, Value: uint32(n - 30)}
			case n >= 40 && n <= 47:
				v.style.BG = compositor.Color{Mode: compositor.ColorMode16, Value: uint32(n - 40)}
			case n >= 90 && n <= 97:
				v.style.FG = compositor.Color{Mode: compositor.ColorMode16, Value: uint32(n - 90 + 8)}
			case n >= 100 && n <= 107:
				v.style.BG = compositor.Color{Mode: compositor.ColorMode16, Value: uint32(n - 100 + 8)}
			}
		}
	}
}

// extendedColor decodes the tail of a 38/48 parameter: "5;n" for the
// 256 palette, "2;r;g;b" for true color. Returns the color and how
// many fields were consumed.
func extendedColor(fields []string) (compositor.Color, int) {
	if len(fields) == 0 {
		return compositor.ColorDefault, 0
	}
	switch paramInt(fields[0], 0) {
	case 5:
		if len(fields) < 2 {
			return compositor.ColorDefault, len(fields)
		}
		return compositor.Color256(uint8(paramInt(fields[1], 0))), 2
	case 2:
		if len(fields) < 4 {
			return compositor.ColorDefault, len(fields)
		}
		r := uint8(paramInt(fields[1], 0))
		g := uint8(paramInt(fields[2], 0))
		b := uint8(paramInt(fields[3], 0))
		return compositor.RGB(r, g, b), 4
	}
	return compositor.ColorDefault, 1
}

// Line returns the text of one row, continuation cells elided and
// trailing spaces trimmed.
func (v *VT) Line(y int) string {
	var sb strings.Builder
	for x := 0; x < v.grid.Width(); x++ {
		c := v.grid.Get(x, y)
		if c.Width == 0 {
			continue
		}
		sb.WriteRune(c.Rune)
	}
	return strings.TrimRight(sb.String(), " ")
}

// Screen returns every row joined with newlines.
func (v *VT) Screen() string {
	lines := make([]string, v.grid.Height())
	for y := range lines {
		lines[y] = v.Line(y)
	}
	return strings.Join(lines, "\n")
}

func paramInt(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func clamp(n, lo, hi int) int {
	if hi < lo {
		return lo
	}
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}
