package compositor

import (
	"fmt"
	"strings"
	"sync"

	"github.com/muesli/termenv"
)

// ANSI escape sequences.
const (
	ANSIEscape        = "\x1b["
	ANSIClearScreen   = "\x1b[2J"
	ANSIClearLine     = "\x1b[2K"
	ANSICursorHome    = "\x1b[H"
	ANSICursorHide    = "\x1b[?25l"
	ANSICursorShow    = "\x1b[?25h"
	ANSIReset         = "\x1b[0m"
	ANSISaveCursor    = "\x1b[s"
	ANSIRestoreCursor = "\x1b[u"
	ANSIAltScreen     = "\x1b[?1049h"
	ANSIMainScreen    = "\x1b[?1049l"
)

// CursorTo returns the sequence moving the cursor to (x, y).
// Coordinates are 0-indexed here; the wire format is 1-indexed.
func CursorTo(x, y int) string {
	return fmt.Sprintf("\x1b[%d;%dH", y+1, x+1)
}

// CursorForward returns the sequence moving the cursor right n columns.
func CursorForward(n int) string {
	if n <= 0 {
		return ""
	}
	return fmt.Sprintf("\x1b[%dC", n)
}

// StyleToANSI converts a Style to a full-fidelity SGR sequence.
// Use an EscapeCache when a terminal profile should cap color depth.
func StyleToANSI(s Style) string {
	return styleSGR(s, termenv.TrueColor)
}

// styleSGR renders the SGR sequence for a style, degrading colors to what
// the given profile can represent. The sequence always begins with a reset
// parameter so it fully replaces whatever style preceded it.
func styleSGR(s Style, p termenv.Profile) string {
	parts := make([]string, 0, 8)
	parts = append(parts, "0")

	if s.Bold {
		parts = append(parts, "1")
	}
	if s.Dim {
		parts = append(parts, "2")
	}
	if s.Italic {
		parts = append(parts, "3")
	}
	if s.Underline {
		parts = append(parts, "4")
	}
	if s.Blink {
		parts = append(parts, "5")
	}
	if s.Reverse {
		parts = append(parts, "7")
	}
	if s.Strikethrough {
		parts = append(parts, "9")
	}

	if seq := colorSequence(s.FG, false, p); seq != "" {
		parts = append(parts, seq)
	}
	if seq := colorSequence(s.BG, true, p); seq != "" {
		parts = append(parts, seq)
	}

	return ANSIEscape + strings.Join(parts, ";") + "m"
}

// colorSequence renders the SGR parameters for one color, converting
// through termenv so a 256-color or monochrome terminal never receives a
// true-color sequence it would misparse.
func colorSequence(c Color, bg bool, p termenv.Profile) string {
	switch c.Mode {
	case ColorModeNone, ColorModeDefault:
		if bg {
			return "49"
		}
		return "39"
	case ColorMode16:
		if p == termenv.Ascii {
			return ""
		}
		return termenv.ANSIColor(c.Value).Sequence(bg)
	case ColorMode256:
		if p == termenv.Ascii {
			return ""
		}
		return p.Convert(termenv.ANSI256Color(c.Value)).Sequence(bg)
	case ColorModeRGB:
		if p == termenv.Ascii {
			return ""
		}
		r, g, b := c.RGBComponents()
		rgb := termenv.RGBColor(fmt.Sprintf("#%02x%02x%02x", r, g, b))
		return p.Convert(rgb).Sequence(bg)
	}
	return ""
}

// EscapeCache memoizes the SGR sequence per style value for one terminal
// profile. Styles are produced by the resolver in a small vocabulary, so
// the map stays tiny while saving an encode per style change per frame.
type EscapeCache struct {
	mu      sync.RWMutex
	profile termenv.Profile
	cache   map[Style]string
}

// NewEscapeCache creates a cache that degrades colors to the given profile.
func NewEscapeCache(p termenv.Profile) *EscapeCache {
	return &EscapeCache{
		profile: p,
		cache:   make(map[Style]string),
	}
}

// Escape returns the SGR sequence for a style, encoding on first use.
func (ec *EscapeCache) Escape(s Style) string {
	ec.mu.RLock()
	esc, ok := ec.cache[s]
	ec.mu.RUnlock()
	if ok {
		return esc
	}

	esc = styleSGR(s, ec.profile)
	ec.mu.Lock()
	ec.cache[s] = esc
	ec.mu.Unlock()
	return esc
}

// Clear drops all cached sequences, e.g. after a profile change.
func (ec *EscapeCache) Clear() {
	ec.mu.Lock()
	ec.cache = make(map[Style]string)
	ec.mu.Unlock()
}

// Profile returns the profile the cache encodes for.
func (ec *EscapeCache) Profile() termenv.Profile {
	return ec.profile
}

// ANSIWriter assembles one frame of escape output. It tracks the cursor
// position and the last emitted style so repositioning and restyling are
// only emitted when they actually change. Emitting a style sequence for
// an unchanged style is a protocol error for this encoder, not merely
// wasted bytes.
type ANSIWriter struct {
	buf       strings.Builder
	cache     *EscapeCache
	lastStyle Style
	styleSet  bool
	lastX     int
	lastY     int
	posSet    bool
	badStyles int
}

// NewANSIWriter creates a writer encoding escapes through the given cache.
// A nil cache means full-fidelity true color.
func NewANSIWriter(cache *EscapeCache) *ANSIWriter {
	if cache == nil {
		cache = NewEscapeCache(termenv.TrueColor)
	}
	return &ANSIWriter{
		cache: cache,
		lastX: -1,
		lastY: -1,
	}
}

// MoveTo positions the cursor. Sequential writes emit nothing; a forward
// gap on the same row uses cursor-forward, which is never longer than a
// full reposition; everything else uses absolute positioning.
func (w *ANSIWriter) MoveTo(x, y int) {
	if w.posSet && w.lastY == y && w.lastX == x {
		return
	}

	if w.posSet && w.lastY == y && x > w.lastX {
		w.buf.WriteString(CursorForward(x - w.lastX))
		w.lastX = x
		return
	}

	w.buf.WriteString(CursorTo(x, y))
	w.lastX = x
	w.lastY = y
	w.posSet = true
}

// SetStyle switches the output style, emitting only on change. An escape
// that encodes to nothing is skipped but still recorded as current, so
// the stream and the grid never disagree about what was written.
func (w *ANSIWriter) SetStyle(s Style) {
	if w.styleSet && w.lastStyle.Equal(s) {
		return
	}
	esc := w.cache.Escape(s)
	if esc == "" {
		w.badStyles++
	} else {
		w.buf.WriteString(esc)
	}
	w.lastStyle = s
	w.styleSet = true
}

// WriteCell emits a cell's rune and advances the tracked cursor by the
// cell's display width. Continuation cells (width 0) must not be passed.
func (w *ANSIWriter) WriteCell(c Cell) {
	w.buf.WriteRune(c.Rune)
	w.lastX += int(c.Width)
}

// WriteString writes raw output without position tracking. Callers must
// follow with MoveTo before cell output resumes.
func (w *ANSIWriter) WriteString(s string) {
	w.buf.WriteString(s)
	w.posSet = false
}

// Reset emits a style reset and forgets the tracked style. Between
// frames the terminal always rests in the default style, so a reset
// with no style active is a no-op.
func (w *ANSIWriter) Reset() {
	if !w.styleSet {
		return
	}
	w.buf.WriteString(ANSIReset)
	w.styleSet = false
}

// BadStyles reports how many style changes failed to encode this frame.
func (w *ANSIWriter) BadStyles() int {
	return w.badStyles
}

// String returns the accumulated frame.
func (w *ANSIWriter) String() string {
	return w.buf.String()
}

// Len returns the current frame length in bytes.
func (w *ANSIWriter) Len() int {
	return w.buf.Len()
}

// Grow pre-allocates frame capacity.
func (w *ANSIWriter) Grow(n int) {
	w.buf.Grow(n)
}
