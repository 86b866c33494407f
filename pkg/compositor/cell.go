// Package compositor implements the cell-grid rendering core for oriel:
// grids of styled character cells, overlapping window surfaces with
// Z-ordered visible regions, and a diff encoder that emits the minimal
// escape-sequence stream needed to bring the terminal up to date.
package compositor

// ColorMode defines how a color value is interpreted.
type ColorMode uint8

const (
	// ColorModeNone means the color is unset and should inherit.
	ColorModeNone ColorMode = iota
	// ColorModeDefault uses the terminal's default color.
	ColorModeDefault
	// ColorMode16 uses the basic 16 ANSI colors (0-15).
	ColorMode16
	// ColorMode256 uses the extended 256 color palette.
	ColorMode256
	// ColorModeRGB uses 24-bit true color.
	ColorModeRGB
)

// Color represents a terminal color.
type Color struct {
	Mode  ColorMode
	Value uint32 // 16/256: palette index, RGB: 0xRRGGBB
}

// Pre-defined colors for convenience.
var (
	ColorNone    = Color{Mode: ColorModeNone}
	ColorDefault = Color{Mode: ColorModeDefault}

	ColorBlack   = Color{Mode: ColorMode16, Value: 0}
	ColorRed     = Color{Mode: ColorMode16, Value: 1}
	ColorGreen   = Color{Mode: ColorMode16, Value: 2}
	ColorYellow  = Color{Mode: ColorMode16, Value: 3}
	ColorBlue    = Color{Mode: ColorMode16, Value: 4}
	ColorMagenta = Color{Mode: ColorMode16, Value: 5}
	ColorCyan    = Color{Mode: ColorMode16, Value: 6}
	ColorWhite   = Color{Mode: ColorMode16, Value: 7}

	ColorBrightBlack   = Color{Mode: ColorMode16, Value: 8}
	ColorBrightRed     = Color{Mode: ColorMode16, Value: 9}
	ColorBrightGreen   = Color{Mode: ColorMode16, Value: 10}
	ColorBrightYellow  = Color{Mode: ColorMode16, Value: 11}
	ColorBrightBlue    = Color{Mode: ColorMode16, Value: 12}
	ColorBrightMagenta = Color{Mode: ColorMode16, Value: 13}
	ColorBrightCyan    = Color{Mode: ColorMode16, Value: 14}
	ColorBrightWhite   = Color{Mode: ColorMode16, Value: 15}
)

// Color256 creates a 256-palette color (0-255).
func Color256(index uint8) Color {
	return Color{Mode: ColorMode256, Value: uint32(index)}
}

// RGB creates a 24-bit true color.
func RGB(r, g, b uint8) Color {
	return Color{Mode: ColorModeRGB, Value: uint32(r)<<16 | uint32(g)<<8 | uint32(b)}
}

// Hex creates a true color from a packed 0xRRGGBB value.
func Hex(hex uint32) Color {
	return Color{Mode: ColorModeRGB, Value: hex & 0xFFFFFF}
}

// IsSet reports whether the color carries an explicit value
// (anything other than "inherit").
func (c Color) IsSet() bool {
	return c.Mode != ColorModeNone
}

// RGBComponents splits an RGB color into its channels.
// Only meaningful for ColorModeRGB.
func (c Color) RGBComponents() (r, g, b uint8) {
	return uint8(c.Value >> 16), uint8(c.Value >> 8), uint8(c.Value)
}

// Style defines the visual attributes of a cell. Styles are plain values:
// two styles are interchangeable exactly when Equal reports true, and the
// encoder derives one SGR sequence per distinct value.
type Style struct {
	FG            Color
	BG            Color
	Bold          bool
	Dim           bool
	Italic        bool
	Underline     bool
	Blink         bool
	Reverse       bool
	Strikethrough bool
}

// DefaultStyle returns a style with terminal default colors and no attributes.
func DefaultStyle() Style {
	return Style{FG: ColorDefault, BG: ColorDefault}
}

// WithFG returns a copy with the foreground color set.
func (s Style) WithFG(c Color) Style {
	s.FG = c
	return s
}

// WithBG returns a copy with the background color set.
func (s Style) WithBG(c Color) Style {
	s.BG = c
	return s
}

// WithBold returns a copy with bold set.
func (s Style) WithBold(b bool) Style {
	s.Bold = b
	return s
}

// WithDim returns a copy with dim set.
func (s Style) WithDim(d bool) Style {
	s.Dim = d
	return s
}

// WithItalic returns a copy with italic set.
func (s Style) WithItalic(i bool) Style {
	s.Italic = i
	return s
}

// WithUnderline returns a copy with underline set.
func (s Style) WithUnderline(u bool) Style {
	s.Underline = u
	return s
}

// WithBlink returns a copy with blink set.
func (s Style) WithBlink(b bool) Style {
	s.Blink = b
	return s
}

// WithReverse returns a copy with reverse video set.
func (s Style) WithReverse(r bool) Style {
	s.Reverse = r
	return s
}

// WithStrikethrough returns a copy with strikethrough set.
func (s Style) WithStrikethrough(st bool) Style {
	s.Strikethrough = st
	return s
}

// Equal compares two styles for equality.
func (s Style) Equal(other Style) bool {
	return s.FG == other.FG &&
		s.BG == other.BG &&
		s.Bold == other.Bold &&
		s.Dim == other.Dim &&
		s.Italic == other.Italic &&
		s.Underline == other.Underline &&
		s.Blink == other.Blink &&
		s.Reverse == other.Reverse &&
		s.Strikethrough == other.Strikethrough
}

// Cell is one character cell of screen content. Cells are value types:
// dirtiness is never stored on a cell, it is always derived by comparing
// the cell against the previously flushed value.
type Cell struct {
	Rune  rune
	Width uint8 // display width: 1 for most runes, 2 for wide, 0 for continuation
	Style Style
}

// EmptyCell returns a blank cell with default style.
func EmptyCell() Cell {
	return Cell{Rune: ' ', Width: 1, Style: DefaultStyle()}
}

// NewCell creates a width-1 cell. Grid.Set corrects the width for wide runes.
func NewCell(r rune, style Style) Cell {
	return Cell{Rune: r, Width: 1, Style: style}
}

// Empty reports whether the cell is a default-styled space.
func (c Cell) Empty() bool {
	return c.Rune == ' ' && c.Width == 1 && c.Style.Equal(DefaultStyle())
}

// Equal compares two cells structurally.
func (c Cell) Equal(other Cell) bool {
	return c.Rune == other.Rune &&
		c.Width == other.Width &&
		c.Style.Equal(other.Style)
}
