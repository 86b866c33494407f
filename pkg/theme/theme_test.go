package theme

import (
	"testing"

	"github.com/odvcencio/oriel/pkg/compositor"
)

func TestDefaultTheme(t *testing.T) {
	th := DefaultTheme()

	if th == nil {
		t.Fatal("DefaultTheme() returned nil")
	}

	checks := []struct {
		name  string
		style compositor.Style
	}{
		{"Background", th.Background},
		{"WindowBody", th.WindowBody},
		{"TitleBar", th.TitleBar},
		{"TitleBarFocus", th.TitleBarFocus},
		{"Border", th.Border},
		{"BorderFocus", th.BorderFocus},
		{"TextPrimary", th.TextPrimary},
		{"TextSecondary", th.TextSecondary},
		{"TextMuted", th.TextMuted},
		{"Success", th.Success},
		{"Warning", th.Warning},
		{"Error", th.Error},
		{"Info", th.Info},
		{"Selection", th.Selection},
		{"Scrollbar", th.Scrollbar},
		{"ScrollThumb", th.ScrollThumb},
	}
	for _, c := range checks {
		if c.style == (compositor.Style{}) {
			t.Errorf("%s style not set", c.name)
		}
	}

	if !th.TitleBarFocus.Bold {
		t.Error("focused title bar should be bold")
	}
	if th.TitleBarFocus.BG != th.TitleBar.BG {
		t.Error("focus should change the title foreground, not the bar background")
	}
}

func TestResolve(t *testing.T) {
	explicit := compositor.RGB(1, 2, 3)
	inherited := compositor.Color256(100)
	def := compositor.ColorWhite

	tests := []struct {
		name      string
		explicit  compositor.Color
		inherited compositor.Color
		want      compositor.Color
	}{
		{"explicit wins", explicit, inherited, explicit},
		{"inherited when explicit unset", compositor.ColorNone, inherited, inherited},
		{"default when both unset", compositor.ColorNone, compositor.ColorNone, def},
		{"terminal default is an explicit choice", compositor.ColorDefault, inherited, compositor.ColorDefault},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Resolve(tt.explicit, tt.inherited, def)
			if got != tt.want {
				t.Errorf("Resolve() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestResolveStyle(t *testing.T) {
	def := DefaultTheme().WindowBody

	explicit := compositor.Style{
		FG:   compositor.ColorRed,
		Bold: true,
	}
	inherited := compositor.DefaultStyle().
		WithFG(compositor.ColorGreen).
		WithBG(compositor.Color256(17))

	got := ResolveStyle(explicit, inherited, def)

	if got.FG != compositor.ColorRed {
		t.Errorf("FG = %+v, want explicit red", got.FG)
	}
	if got.BG != inherited.BG {
		t.Errorf("BG = %+v, want inherited palette color", got.BG)
	}
	if !got.Bold {
		t.Error("attributes of the explicit style should survive resolution")
	}

	bare := compositor.Style{}
	got = ResolveStyle(bare, compositor.Style{}, def)
	if got.FG != def.FG || got.BG != def.BG {
		t.Errorf("unset channels should fall back to the theme: %+v", got)
	}
}
