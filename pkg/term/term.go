// Package term provides the terminal I/O driver layer: the backend
// abstraction the render loop writes frames through, the raw-TTY
// implementation of it, and the input event types delivered to hosts.
package term

import (
	"errors"
	"os"

	"github.com/muesli/termenv"
)

var (
	// ErrClosed is returned by calls on a backend after Fini.
	ErrClosed = errors.New("term: backend closed")

	// ErrNotTerminal is returned by Init when the attached streams are
	// not a terminal.
	ErrNotTerminal = errors.New("term: not a terminal")
)

// Backend is the terminal transport. The render loop writes one encoded
// frame per Write call and consumes resize events from Events; all other
// events are forwarded to the host application.
type Backend interface {
	// Init claims the terminal: raw mode, alt screen, hidden cursor,
	// input and resize pumps started.
	Init() error

	// Fini releases the terminal and restores its original state. Safe
	// to call more than once. No events are delivered after it returns;
	// the Events channel stays open, so consumers stop on their own
	// context rather than on channel close.
	Fini()

	// Size returns the current terminal dimensions in cells.
	Size() (width, height int, err error)

	// Write sends one complete frame to the terminal. Exactly one call
	// per frame; the driver never splits or batches frames itself.
	Write(p []byte) (int, error)

	// Events returns the input event stream.
	Events() <-chan Event

	// Capabilities reports what was detected at Init.
	Capabilities() Capabilities
}

// Event is a terminal input event.
type Event interface {
	eventMarker()
}

// KeyEvent is a key press.
type KeyEvent struct {
	Key   Key
	Rune  rune
	Alt   bool
	Ctrl  bool
	Shift bool
}

func (KeyEvent) eventMarker() {}

// ResizeEvent reports new terminal dimensions.
type ResizeEvent struct {
	Width  int
	Height int
}

func (ResizeEvent) eventMarker() {}

// PasteEvent carries bracketed-paste content as one unit.
type PasteEvent struct {
	Text string
}

func (PasteEvent) eventMarker() {}

// Key identifies special keys.
type Key int

const (
	KeyNone Key = iota
	KeyRune     // regular character, see KeyEvent.Rune
	KeyEnter
	KeyBackspace
	KeyTab
	KeyEscape
	KeyUp
	KeyDown
	KeyLeft
	KeyRight
	KeyHome
	KeyEnd
	KeyPageUp
	KeyPageDown
	KeyDelete
	KeyInsert
	KeyF1
	KeyF2
	KeyF3
	KeyF4
	KeyF5
	KeyF6
	KeyF7
	KeyF8
	KeyF9
	KeyF10
	KeyF11
	KeyF12
)

// Capabilities describe what the attached terminal supports, resolved
// once at startup. There are no runtime toggles: behavior keyed on a
// capability is decided here and stays fixed for the session.
type Capabilities struct {
	// ColorProfile is the deepest color mode the terminal accepts. The
	// escape encoder degrades styles to it; grids always store full
	// fidelity.
	ColorProfile termenv.Profile

	// PersistentRawMode reports that raw mode reliably holds for the
	// whole session, which makes the periodic self-heal redraw
	// unnecessary.
	PersistentRawMode bool

	// AltScreen reports alternate-screen support.
	AltScreen bool

	// CursorAddressing reports absolute cursor positioning support.
	// Without it the diff encoder cannot operate.
	CursorAddressing bool
}

// DetectCapabilities resolves the capability set from the environment.
// Config may override individual fields after detection.
func DetectCapabilities() Capabilities {
	caps := Capabilities{
		ColorProfile:      termenv.ColorProfile(),
		PersistentRawMode: true,
		AltScreen:         true,
		CursorAddressing:  true,
	}

	// A dumb terminal has no cursor addressing or alternate screen;
	// callers should refuse to start against one.
	if os.Getenv("TERM") == "dumb" {
		caps.AltScreen = false
		caps.CursorAddressing = false
	}
	return caps
}
