package termtest

import (
	"strings"
	"sync"
	"sync/atomic"

	"github.com/muesli/termenv"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/odvcencio/oriel/pkg/term"
)

// Sim is an in-memory term.Backend for driving the render loop without
// a terminal. Frames written to it pass through the VT interpreter onto
// the model grid; injected events arrive on the same channel a TTY
// would deliver on.
type Sim struct {
	mu sync.Mutex
	vt *VT

	caps   term.Capabilities
	events chan term.Event
	closed atomic.Bool

	writes int
	bytes  int
}

// NewSim creates a simulated terminal of the given size with every
// capability enabled at true color.
func NewSim(width, height int) *Sim {
	return &Sim{
		vt: NewVT(width, height),
		caps: term.Capabilities{
			ColorProfile:      termenv.TrueColor,
			PersistentRawMode: true,
			AltScreen:         true,
			CursorAddressing:  true,
		},
		events: make(chan term.Event, 64),
	}
}

// SetCapabilities overrides the advertised capability set. Call before
// handing the backend to a render loop.
func (s *Sim) SetCapabilities(caps term.Capabilities) {
	s.caps = caps
}

// Init implements term.Backend. The simulation needs no setup.
func (s *Sim) Init() error { return nil }

// Fini implements term.Backend. Subsequent writes fail with ErrClosed;
// the events channel stays open, matching the TTY contract.
func (s *Sim) Fini() {
	s.closed.Store(true)
}

// Size returns the simulated dimensions.
func (s *Sim) Size() (int, int, error) {
	if s.closed.Load() {
		return 0, 0, term.ErrClosed
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	w, h := s.vt.Grid().Size()
	return w, h, nil
}

// Write applies one frame to the model grid.
func (s *Sim) Write(p []byte) (int, error) {
	if s.closed.Load() {
		return 0, term.ErrClosed
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vt.Feed(p)
	s.writes++
	s.bytes += len(p)
	return len(p), nil
}

// Events returns the injected event stream.
func (s *Sim) Events() <-chan term.Event { return s.events }

// Capabilities reports the configured capability set.
func (s *Sim) Capabilities() term.Capabilities { return s.caps }

// Resize changes the simulated terminal size and delivers the matching
// ResizeEvent, as a window-change signal would.
func (s *Sim) Resize(width, height int) {
	s.mu.Lock()
	s.vt.Resize(width, height)
	s.mu.Unlock()
	s.InjectEvent(term.ResizeEvent{Width: width, Height: height})
}

// InjectEvent posts an event without blocking; a full channel drops it,
// matching TTY delivery.
func (s *Sim) InjectEvent(ev term.Event) {
	select {
	case s.events <- ev:
	default:
	}
}

// InjectKey posts a key press.
func (s *Sim) InjectKey(key term.Key, r rune) {
	s.InjectEvent(term.KeyEvent{Key: key, Rune: r})
}

// InjectText posts one key press per rune.
func (s *Sim) InjectText(text string) {
	for _, r := range text {
		s.InjectKey(term.KeyRune, r)
	}
}

// Writes reports how many frames were written.
func (s *Sim) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

// BytesWritten reports the total encoded output size.
func (s *Sim) BytesWritten() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bytes
}

// CursorVisible reports the model's cursor visibility flag.
func (s *Sim) CursorVisible() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.vt.CursorVisible()
}

// AltScreen reports whether the model is on the alternate screen.
func (s *Sim) AltScreen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.vt.AltScreen()
}

// Capture renders the model grid as text, one line per row.
func (s *Sim) Capture() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.vt.Screen()
}

// ContainsText reports whether the capture contains the text. Matches
// never span rows.
func (s *Sim) ContainsText(text string) bool {
	return strings.Contains(s.Capture(), text)
}

// FindText locates text on screen and returns the grid position of its
// first rune.
func (s *Sim) FindText(text string) (x, y int, ok bool) {
	want := []rune(text)
	if len(want) == 0 {
		return 0, 0, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	grid := s.vt.Grid()
	for row := 0; row < grid.Height(); row++ {
		var runes []rune
		var cols []int
		for col := 0; col < grid.Width(); col++ {
			c := grid.Get(col, row)
			if c.Width == 0 {
				continue
			}
			runes = append(runes, c.Rune)
			cols = append(cols, col)
		}
		for start := 0; start+len(want) <= len(runes); start++ {
			match := true
			for i, r := range want {
				if runes[start+i] != r {
					match = false
					break
				}
			}
			if match {
				return cols[start], row, true
			}
		}
	}
	return 0, 0, false
}

// TextDiff returns a unified diff between the expected screen text and
// the capture, or the empty string when they match. Test failures read
// far better as a diff than as two screen dumps.
func (s *Sim) TextDiff(want string) string {
	got := s.Capture()
	if got == want {
		return ""
	}
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(want),
		B:        difflib.SplitLines(got),
		FromFile: "want",
		ToFile:   "got",
		Context:  2,
	})
	if err != nil {
		return "diff failed: " + err.Error()
	}
	return diff
}
