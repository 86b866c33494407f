package term

import (
	"errors"
	"os"
	"testing"
)

func TestInitRejectsNonTerminal(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	defer r.Close()
	defer w.Close()

	tt := NewTTY()
	tt.in, tt.inFd = r, int(r.Fd())
	tt.out, tt.outFd = w, int(w.Fd())

	if err := tt.Init(); !errors.Is(err, ErrNotTerminal) {
		t.Errorf("Init on a pipe: got %v, want ErrNotTerminal", err)
	}
}

func TestFiniGuards(t *testing.T) {
	tt := NewTTY()
	tt.Fini()
	tt.Fini() // idempotent

	if _, err := tt.Write([]byte("x")); !errors.Is(err, ErrClosed) {
		t.Errorf("Write after Fini: got %v, want ErrClosed", err)
	}
	if _, _, err := tt.Size(); !errors.Is(err, ErrClosed) {
		t.Errorf("Size after Fini: got %v, want ErrClosed", err)
	}
}

func TestDeliverDropsWhenFull(t *testing.T) {
	tt := NewTTY()

	events := make([]Event, 70)
	for i := range events {
		events[i] = KeyEvent{Key: KeyRune, Rune: 'a'}
	}
	tt.deliver(events)

	if got := tt.Dropped(); got != 6 {
		t.Errorf("Dropped() = %d, want 6", got)
	}
	if got := len(tt.events); got != 64 {
		t.Errorf("buffered events = %d, want 64", got)
	}
}

func TestDetectCapabilities(t *testing.T) {
	t.Run("dumb terminal", func(t *testing.T) {
		t.Setenv("TERM", "dumb")
		caps := DetectCapabilities()
		if caps.AltScreen {
			t.Error("dumb terminal should not report alt screen")
		}
		if caps.CursorAddressing {
			t.Error("dumb terminal should not report cursor addressing")
		}
	})

	t.Run("xterm", func(t *testing.T) {
		t.Setenv("TERM", "xterm-256color")
		caps := DetectCapabilities()
		if !caps.AltScreen || !caps.CursorAddressing {
			t.Errorf("capable terminal misdetected: %+v", caps)
		}
		if !caps.PersistentRawMode {
			t.Error("raw mode should persist for a session")
		}
	})
}
