package term

import (
	"bytes"
	"unicode/utf8"
)

const (
	pasteStart = "\x1b[200~"
	pasteEnd   = "\x1b[201~"
)

// decoder assembles raw terminal bytes into events. Partial escape and
// UTF-8 sequences are kept across feeds, so a sequence split over two
// reads still decodes as one event. The decoder is pure: no I/O, no
// timers. The read loop resolves the one timing-dependent case, a
// standalone ESC, by calling flushPending after a quiet poll interval.
type decoder struct {
	buf     []byte
	pasting bool
	paste   []byte
}

// feed appends raw bytes and returns every event that became complete.
func (d *decoder) feed(p []byte) []Event {
	d.buf = append(d.buf, p...)
	var events []Event

	for len(d.buf) > 0 {
		if d.pasting {
			consumed, ev, done := d.consumePaste()
			if ev != nil {
				events = append(events, ev)
			}
			d.advance(consumed)
			if !done {
				return events
			}
			continue
		}

		consumed, ev := d.parseOne()
		if consumed == 0 {
			// Incomplete sequence, wait for more bytes.
			return events
		}
		if ev != nil {
			events = append(events, ev)
		}
		d.advance(consumed)
	}
	return events
}

// flushPending resolves a buffered lone ESC as a real Escape key press.
// Called by the read loop when input goes quiet, because only time can
// distinguish a pressed Escape from the start of a sequence.
func (d *decoder) flushPending() []Event {
	if len(d.buf) == 1 && d.buf[0] == 0x1b {
		d.buf = d.buf[:0]
		return []Event{KeyEvent{Key: KeyEscape}}
	}
	return nil
}

func (d *decoder) advance(n int) {
	if n >= len(d.buf) {
		d.buf = d.buf[:0]
		return
	}
	d.buf = append(d.buf[:0], d.buf[n:]...)
}

// consumePaste accumulates bytes until the bracketed-paste terminator.
// Returns the bytes consumed, the finished event if the terminator
// arrived, and whether pasting ended.
func (d *decoder) consumePaste() (int, Event, bool) {
	if i := bytes.Index(d.buf, []byte(pasteEnd)); i >= 0 {
		d.paste = append(d.paste, d.buf[:i]...)
		ev := PasteEvent{Text: string(d.paste)}
		d.paste = nil
		d.pasting = false
		return i + len(pasteEnd), ev, true
	}

	// Keep any tail that could be a split terminator; flush the rest.
	keep := 0
	for k := min(len(pasteEnd)-1, len(d.buf)); k > 0; k-- {
		if bytes.HasPrefix([]byte(pasteEnd), d.buf[len(d.buf)-k:]) {
			keep = k
			break
		}
	}
	flush := len(d.buf) - keep
	d.paste = append(d.paste, d.buf[:flush]...)
	return flush, nil, false
}

// parseOne decodes the first event in the buffer. Returns 0 consumed
// when the buffer holds an incomplete sequence.
func (d *decoder) parseOne() (int, Event) {
	b := d.buf[0]

	// Printable ASCII.
	if b >= 0x20 && b < 0x7f {
		return 1, KeyEvent{Key: KeyRune, Rune: rune(b)}
	}

	if b == 0x1b {
		return d.parseEscape()
	}

	// Control characters.
	if b < 0x20 {
		return 1, controlEvent(b)
	}
	if b == 0x7f {
		return 1, KeyEvent{Key: KeyBackspace}
	}

	// UTF-8 multibyte.
	if !utf8.FullRune(d.buf) {
		return 0, nil
	}
	r, size := utf8.DecodeRune(d.buf)
	if r == utf8.RuneError && size == 1 {
		// Invalid byte, drop it.
		return 1, nil
	}
	return size, KeyEvent{Key: KeyRune, Rune: r}
}

// parseEscape decodes a sequence starting at an ESC byte.
func (d *decoder) parseEscape() (int, Event) {
	if len(d.buf) < 2 {
		return 0, nil
	}
	next := d.buf[1]

	switch {
	case next == 0x1b:
		return 2, KeyEvent{Key: KeyEscape, Alt: true}
	case next == '[':
		return d.parseCSI()
	case next == 'O':
		return d.parseSS3()
	case next < 0x20:
		ev := controlEvent(next)
		if ke, ok := ev.(KeyEvent); ok {
			ke.Alt = true
			return 2, ke
		}
		return 2, ev
	case next >= 0x20 && next < 0x7f:
		return 2, KeyEvent{Key: KeyRune, Rune: rune(next), Alt: true}
	}

	// ESC followed by something unrecognizable: a real Escape press.
	return 1, KeyEvent{Key: KeyEscape}
}

// parseCSI decodes ESC [ params final.
func (d *decoder) parseCSI() (int, Event) {
	// Find the final byte. Parameter bytes are 0x30-0x3f, intermediates
	// 0x20-0x2f; anything 0x40-0x7e terminates.
	end := 2
	for ; end < len(d.buf); end++ {
		if end-2 > 16 {
			// Runaway sequence, discard the CSI introducer.
			return 2, nil
		}
		if d.buf[end] >= 0x40 && d.buf[end] <= 0x7e {
			break
		}
	}
	if end >= len(d.buf) {
		return 0, nil
	}

	params := string(d.buf[2:end])
	final := d.buf[end]
	consumed := end + 1

	if final == '~' && params == "200" {
		d.pasting = true
		return consumed, nil
	}

	if ev, ok := csiKey(params, final); ok {
		return consumed, ev
	}
	// Valid but unmapped CSI: swallow it.
	return consumed, nil
}

// parseSS3 decodes ESC O final, the application-mode function keys.
func (d *decoder) parseSS3() (int, Event) {
	if len(d.buf) < 3 {
		return 0, nil
	}
	var key Key
	switch d.buf[2] {
	case 'A':
		key = KeyUp
	case 'B':
		key = KeyDown
	case 'C':
		key = KeyRight
	case 'D':
		key = KeyLeft
	case 'H':
		key = KeyHome
	case 'F':
		key = KeyEnd
	case 'P':
		key = KeyF1
	case 'Q':
		key = KeyF2
	case 'R':
		key = KeyF3
	case 'S':
		key = KeyF4
	default:
		return 3, nil
	}
	return 3, KeyEvent{Key: key}
}

// csiKey maps CSI parameters and final byte to a key event. The
// optional second parameter carries xterm modifiers: value-1 is a
// bitmask of shift(1), alt(2), ctrl(4).
func csiKey(params string, final byte) (KeyEvent, bool) {
	num, mod := splitCSIParams(params)
	var ev KeyEvent

	switch final {
	case 'A':
		ev.Key = KeyUp
	case 'B':
		ev.Key = KeyDown
	case 'C':
		ev.Key = KeyRight
	case 'D':
		ev.Key = KeyLeft
	case 'H':
		ev.Key = KeyHome
	case 'F':
		ev.Key = KeyEnd
	case 'Z':
		// Back-tab arrives as shift-tab.
		ev.Key = KeyTab
		ev.Shift = true
	case '~':
		switch num {
		case 1, 7:
			ev.Key = KeyHome
		case 2:
			ev.Key = KeyInsert
		case 3:
			ev.Key = KeyDelete
		case 4, 8:
			ev.Key = KeyEnd
		case 5:
			ev.Key = KeyPageUp
		case 6:
			ev.Key = KeyPageDown
		case 11, 12, 13, 14, 15:
			ev.Key = KeyF1 + Key(num-11)
		case 17, 18, 19, 20, 21:
			ev.Key = KeyF6 + Key(num-17)
		case 23, 24:
			ev.Key = KeyF11 + Key(num-23)
		default:
			return KeyEvent{}, false
		}
	default:
		return KeyEvent{}, false
	}

	if mod > 0 {
		bits := mod - 1
		ev.Shift = ev.Shift || bits&1 != 0
		ev.Alt = bits&2 != 0
		ev.Ctrl = bits&4 != 0
	}
	return ev, true
}

// splitCSIParams parses "n" or "n;m" parameter strings.
func splitCSIParams(params string) (num, mod int) {
	field := 0
	for i := 0; i < len(params); i++ {
		c := params[i]
		if c == ';' {
			field++
			if field > 1 {
				break
			}
			continue
		}
		if c < '0' || c > '9' {
			return num, mod
		}
		if field == 0 {
			num = num*10 + int(c-'0')
		} else {
			mod = mod*10 + int(c-'0')
		}
	}
	return num, mod
}

// controlEvent maps a C0 control byte to its key event.
func controlEvent(b byte) Event {
	switch b {
	case 0x00:
		return KeyEvent{Key: KeyRune, Rune: ' ', Ctrl: true}
	case 0x08:
		return KeyEvent{Key: KeyBackspace}
	case 0x09:
		return KeyEvent{Key: KeyTab}
	case 0x0a, 0x0d:
		return KeyEvent{Key: KeyEnter}
	case 0x1b:
		return KeyEvent{Key: KeyEscape}
	}
	if b >= 0x01 && b <= 0x1a {
		return KeyEvent{Key: KeyRune, Rune: rune('a' + b - 1), Ctrl: true}
	}
	// Remaining control bytes have no mapping worth surfacing.
	return KeyEvent{Key: KeyNone}
}
