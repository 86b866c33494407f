package term

import (
	"fmt"
	"os"
	"sync/atomic"
	"time"

	xterm "golang.org/x/term"
)

// Screen claim and release sequences. Claiming enters the alternate
// screen, clears it, homes and hides the cursor, and arms bracketed
// paste; releasing undoes each in reverse.
const (
	claimScreen   = "\x1b[?1049h\x1b[2J\x1b[H\x1b[?25l\x1b[?2004h"
	releaseScreen = "\x1b[?2004l\x1b[?25h\x1b[?1049l"
)

// finiWait bounds how long Fini waits for the pump goroutines. The read
// loop polls, so it normally exits within one poll interval; the bound
// only matters if a read is wedged.
const finiWait = 250 * time.Millisecond

// TTY is the Backend implementation for a real terminal on stdin and
// stdout. Raw mode is entered once at Init and held for the whole
// session; there is no per-write toggling, so terminal echo can never
// interleave with frame output.
type TTY struct {
	in    *os.File
	out   *os.File
	inFd  int
	outFd int

	caps     Capabilities
	oldState *xterm.State

	events     chan Event
	stop       chan struct{}
	readerDone chan struct{}
	resizeDone chan struct{}
	pumping    bool

	closed  atomic.Bool
	dropped atomic.Uint64
}

// NewTTY creates a backend over the process's controlling terminal.
func NewTTY() *TTY {
	return NewTTYFromFiles(os.Stdin, os.Stdout)
}

// NewTTYFromFiles creates a backend over explicit terminal files, for
// embedding and for driving a session on a secondary pty. Both files
// must reference a terminal or Init fails.
func NewTTYFromFiles(in, out *os.File) *TTY {
	return &TTY{
		in:         in,
		out:        out,
		inFd:       int(in.Fd()),
		outFd:      int(out.Fd()),
		events:     make(chan Event, 64),
		stop:       make(chan struct{}),
		readerDone: make(chan struct{}),
		resizeDone: make(chan struct{}),
	}
}

// Init claims the terminal and starts the input and resize pumps.
func (t *TTY) Init() error {
	if !xterm.IsTerminal(t.inFd) || !xterm.IsTerminal(t.outFd) {
		return ErrNotTerminal
	}
	t.caps = DetectCapabilities()

	state, err := xterm.MakeRaw(t.inFd)
	if err != nil {
		return fmt.Errorf("term: enter raw mode: %w", err)
	}
	t.oldState = state

	if t.caps.AltScreen {
		if _, err := t.out.WriteString(claimScreen); err != nil {
			xterm.Restore(t.inFd, t.oldState)
			t.oldState = nil
			return fmt.Errorf("term: claim screen: %w", err)
		}
	}

	t.pumping = true
	go t.readLoop()
	go t.resizeLoop()
	return nil
}

// Fini releases the terminal. Idempotent. No events are delivered after
// it returns; consumers should stop on their own context rather than on
// channel close.
func (t *TTY) Fini() {
	if t.closed.Swap(true) {
		return
	}
	close(t.stop)
	if t.pumping {
		waitDone(t.readerDone)
		waitDone(t.resizeDone)
	}

	if t.caps.AltScreen {
		t.out.WriteString(releaseScreen)
	}
	if t.oldState != nil {
		xterm.Restore(t.inFd, t.oldState)
	}
}

func waitDone(ch <-chan struct{}) {
	select {
	case <-ch:
	case <-time.After(finiWait):
		// A wedged blocking read; restore the terminal anyway.
	}
}

// Size queries the terminal dimensions.
func (t *TTY) Size() (int, int, error) {
	if t.closed.Load() {
		return 0, 0, ErrClosed
	}
	w, h, err := windowSize(t.outFd)
	if err != nil {
		return 0, 0, fmt.Errorf("term: query size: %w", err)
	}
	return w, h, nil
}

// Write sends one encoded frame to the terminal.
func (t *TTY) Write(p []byte) (int, error) {
	if t.closed.Load() {
		return 0, ErrClosed
	}
	return t.out.Write(p)
}

// Events returns the input event stream.
func (t *TTY) Events() <-chan Event {
	return t.events
}

// Capabilities reports the set detected at Init.
func (t *TTY) Capabilities() Capabilities {
	return t.caps
}

// Dropped reports how many events were discarded because the consumer
// fell behind. Exposed for the telemetry layer.
func (t *TTY) Dropped() uint64 {
	return t.dropped.Load()
}

// readLoop pumps raw bytes through the decoder into the event channel.
func (t *TTY) readLoop() {
	defer close(t.readerDone)

	var d decoder
	for {
		data, err := readRaw(t.inFd, t.stop)
		if err != nil {
			return
		}
		select {
		case <-t.stop:
			return
		default:
		}
		if len(data) == 0 {
			// Quiet poll: a lone buffered ESC was a real key press.
			t.deliver(d.flushPending())
			continue
		}
		t.deliver(d.feed(data))
	}
}

// resizeLoop converts window-change signals into ResizeEvents carrying
// the size measured at delivery time.
func (t *TTY) resizeLoop() {
	defer close(t.resizeDone)

	sigCh := make(chan os.Signal, 1)
	notifyResize(sigCh)
	defer stopResize(sigCh)

	for {
		select {
		case <-t.stop:
			return
		case <-sigCh:
			w, h, err := windowSize(t.outFd)
			if err != nil {
				continue
			}
			t.deliver([]Event{ResizeEvent{Width: w, Height: h}})
		}
	}
}

// deliver posts events without blocking. A full channel means the
// consumer stalled; dropping input there beats wedging the pumps, and
// the drop count surfaces in metrics.
func (t *TTY) deliver(events []Event) {
	for _, ev := range events {
		select {
		case t.events <- ev:
		default:
			t.dropped.Add(1)
		}
	}
}
