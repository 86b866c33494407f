package termtest

import (
	"testing"

	"github.com/muesli/termenv"

	"github.com/odvcencio/oriel/pkg/compositor"
)

func TestVTText(t *testing.T) {
	vt := NewVT(10, 3)
	vt.Feed([]byte("\x1b[1;1Hhi"))

	if got := vt.Line(0); got != "hi" {
		t.Errorf("Line(0) = %q, want %q", got, "hi")
	}
	if x, y := vt.Cursor(); x != 2 || y != 0 {
		t.Errorf("cursor = (%d,%d), want (2,0)", x, y)
	}
}

func TestVTCursorAddressing(t *testing.T) {
	vt := NewVT(10, 5)
	vt.Feed([]byte("\x1b[3;5Hx"))

	if got := vt.Grid().Get(4, 2).Rune; got != 'x' {
		t.Errorf("cell (4,2) = %q, want 'x'", got)
	}

	vt.Feed([]byte("\x1b[Hy"))
	if got := vt.Grid().Get(0, 0).Rune; got != 'y' {
		t.Errorf("bare CUP should home; cell (0,0) = %q", got)
	}
}

func TestVTCursorForward(t *testing.T) {
	vt := NewVT(12, 2)
	vt.Feed([]byte("\x1b[1;1Ha\x1b[3Cb"))

	if got := vt.Grid().Get(0, 0).Rune; got != 'a' {
		t.Errorf("cell (0,0) = %q, want 'a'", got)
	}
	if got := vt.Grid().Get(4, 0).Rune; got != 'b' {
		t.Errorf("cell (4,0) = %q, want 'b' after forward skip", got)
	}
}

func TestVTStyleDecode(t *testing.T) {
	styles := []compositor.Style{
		compositor.DefaultStyle(),
		compositor.DefaultStyle().WithBold(true).WithFG(compositor.ColorRed),
		compositor.DefaultStyle().WithFG(compositor.ColorBrightCyan),
		compositor.DefaultStyle().WithBG(compositor.Color256(17)),
		compositor.DefaultStyle().WithFG(compositor.RGB(255, 128, 64)).WithBG(compositor.RGB(1, 2, 3)),
		compositor.DefaultStyle().WithUnderline(true).WithStrikethrough(true).WithBG(compositor.ColorBlue),
		compositor.DefaultStyle().WithDim(true).WithItalic(true).WithReverse(true).WithBlink(true),
	}

	for _, style := range styles {
		vt := NewVT(4, 1)
		vt.Feed([]byte(compositor.StyleToANSI(style) + "A"))

		got := vt.Grid().Get(0, 0).Style
		if !got.Equal(style) {
			t.Errorf("decoded %+v, want %+v (sequence %q)", got, style, compositor.StyleToANSI(style))
		}
	}
}

func TestVTScreenModes(t *testing.T) {
	vt := NewVT(8, 3)
	vt.Feed([]byte("junk"))

	vt.Feed([]byte("\x1b[?1049h\x1b[2J\x1b[H\x1b[?25l\x1b[?2004h"))
	if !vt.AltScreen() {
		t.Error("alt screen should be active after claim")
	}
	if vt.CursorVisible() {
		t.Error("cursor should be hidden after claim")
	}
	if !vt.BracketedPaste() {
		t.Error("bracketed paste should be armed after claim")
	}
	if got := vt.Line(0); got != "" {
		t.Errorf("screen should be clear after claim, row 0 = %q", got)
	}
	if x, y := vt.Cursor(); x != 0 || y != 0 {
		t.Errorf("cursor = (%d,%d), want home", x, y)
	}

	vt.Feed([]byte("\x1b[?2004l\x1b[?25h\x1b[?1049l"))
	if vt.AltScreen() || !vt.CursorVisible() || vt.BracketedPaste() {
		t.Error("release should undo every claimed mode")
	}
}

func TestVTWideRunes(t *testing.T) {
	vt := NewVT(6, 1)
	vt.Feed([]byte("\x1b[1;1H世a"))

	lead := vt.Grid().Get(0, 0)
	if lead.Rune != '世' || lead.Width != 2 {
		t.Errorf("lead cell = %+v, want wide 世", lead)
	}
	if cont := vt.Grid().Get(1, 0); cont.Width != 0 {
		t.Errorf("continuation cell = %+v, want width 0", cont)
	}
	if got := vt.Grid().Get(2, 0).Rune; got != 'a' {
		t.Errorf("cell after wide rune = %q, want 'a'", got)
	}
	if got := vt.Line(0); got != "世a" {
		t.Errorf("Line(0) = %q, want %q", got, "世a")
	}
}

func TestVTSplitFeeds(t *testing.T) {
	vt := NewVT(10, 2)

	vt.Feed([]byte("\x1b[1;"))
	vt.Feed([]byte("3Hab"))
	if got := vt.Grid().Get(2, 0).Rune; got != 'a' {
		t.Errorf("cell (2,0) = %q, want 'a' after split escape", got)
	}

	raw := []byte("界")
	vt.Feed(raw[:1])
	vt.Feed(raw[1:])
	if got := vt.Grid().Get(4, 0).Rune; got != '界' {
		t.Errorf("split rune decoded as %q, want 界", got)
	}
}

func TestVTResizeKeepsContent(t *testing.T) {
	vt := NewVT(10, 4)
	vt.Feed([]byte("\x1b[1;1Hkeep"))

	vt.Resize(6, 2)
	if got := vt.Line(0); got != "keep" {
		t.Errorf("content lost on shrink: %q", got)
	}

	vt.Resize(20, 5)
	if got := vt.Line(0); got != "keep" {
		t.Errorf("content lost on grow: %q", got)
	}
}

// paintSample writes a mix of plain, styled, and wide content.
func paintSample(g *compositor.Grid, seed int) {
	g.Clear()
	styles := []compositor.Style{
		compositor.DefaultStyle(),
		compositor.DefaultStyle().WithBold(true).WithFG(compositor.ColorGreen),
		compositor.DefaultStyle().WithBG(compositor.Color256(100)),
		compositor.DefaultStyle().WithFG(compositor.RGB(200, 10, 30)).WithUnderline(true),
	}
	g.SetString(seed%5, 0, "status: ok", styles[seed%len(styles)])
	g.SetString(0, 1, "世界 wide", styles[(seed+1)%len(styles)])
	g.Fill(compositor.Rect{X: 2, Y: 2, Width: 8, Height: 2}, '#', styles[(seed+2)%len(styles)])
	g.Set(19, 4, 'E', styles[(seed+3)%len(styles)])
}

// TestVTRenderRoundTrip drives frames through the diff encoder into the
// interpreter and checks the model converges on the source grid every
// time. This is the end-to-end correctness property of the encoder: a
// terminal showing the previous frame shows exactly the next frame
// after the diff is applied.
func TestVTRenderRoundTrip(t *testing.T) {
	screen := compositor.NewScreen(20, 6)
	renderer := compositor.NewRenderer(compositor.NewEscapeCache(termenv.TrueColor))
	vt := NewVT(20, 6)

	for seed := 0; seed < 4; seed++ {
		paintSample(screen.Next(), seed)

		out, _ := renderer.Render(screen)
		vt.Feed([]byte(out))
		screen.Swap()

		if !vt.Grid().Equal(screen.Prev()) {
			t.Fatalf("frame %d: model diverged from flushed grid\nmodel:\n%s", seed, vt.Screen())
		}
	}
}

func TestVTRenderFullRoundTrip(t *testing.T) {
	screen := compositor.NewScreen(12, 4)
	renderer := compositor.NewRenderer(compositor.NewEscapeCache(termenv.TrueColor))

	paintSample(screen.Next(), 1)

	vt := NewVT(12, 4)
	vt.Feed([]byte("\x1b[1;1Hstale stale stale"))

	out, stats := renderer.RenderFull(screen)
	vt.Feed([]byte(out))

	if !stats.Full {
		t.Error("RenderFull should report a full frame")
	}
	if !vt.Grid().Equal(screen.Next()) {
		t.Fatalf("full repaint left the model stale\nmodel:\n%s", vt.Screen())
	}
}
