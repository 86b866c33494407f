// Package theme provides the visual vocabulary for oriel window chrome
// and the color fallback resolver hosts style their content with.
package theme

import (
	"github.com/odvcencio/oriel/pkg/compositor"
)

// Theme defines the styles the desktop and window chrome draw with.
type Theme struct {
	// Canvas
	Background compositor.Style // cells no window covers

	// Window chrome
	WindowBody    compositor.Style
	TitleBar      compositor.Style
	TitleBarFocus compositor.Style
	Border        compositor.Style
	BorderFocus   compositor.Style

	// Text hierarchy
	TextPrimary   compositor.Style
	TextSecondary compositor.Style
	TextMuted     compositor.Style

	// Semantic colors
	Success compositor.Style
	Warning compositor.Style
	Error   compositor.Style
	Info    compositor.Style

	// UI elements
	Selection   compositor.Style
	Scrollbar   compositor.Style
	ScrollThumb compositor.Style
}

// DefaultTheme returns the stock dark theme: deep neutral canvas,
// warm text, amber focus accents.
func DefaultTheme() *Theme {
	return &Theme{
		Background: compositor.DefaultStyle().WithBG(compositor.RGB(12, 12, 16)),

		WindowBody:    compositor.DefaultStyle().WithBG(compositor.RGB(22, 22, 28)).WithFG(compositor.RGB(240, 238, 232)),
		TitleBar:      compositor.DefaultStyle().WithBG(compositor.RGB(32, 32, 40)).WithFG(compositor.RGB(160, 158, 150)),
		TitleBarFocus: compositor.DefaultStyle().WithBG(compositor.RGB(32, 32, 40)).WithFG(compositor.RGB(255, 183, 77)).WithBold(true),
		Border:        compositor.DefaultStyle().WithFG(compositor.RGB(50, 50, 60)),
		BorderFocus:   compositor.DefaultStyle().WithFG(compositor.RGB(255, 183, 77)),

		TextPrimary:   compositor.DefaultStyle().WithFG(compositor.RGB(240, 238, 232)),
		TextSecondary: compositor.DefaultStyle().WithFG(compositor.RGB(160, 158, 150)),
		TextMuted:     compositor.DefaultStyle().WithFG(compositor.RGB(100, 98, 92)),

		Success: compositor.DefaultStyle().WithFG(compositor.RGB(134, 239, 172)),
		Warning: compositor.DefaultStyle().WithFG(compositor.RGB(255, 138, 101)),
		Error:   compositor.DefaultStyle().WithFG(compositor.RGB(255, 110, 90)),
		Info:    compositor.DefaultStyle().WithFG(compositor.RGB(77, 182, 172)),

		Selection:   compositor.DefaultStyle().WithBG(compositor.RGB(60, 60, 80)),
		Scrollbar:   compositor.DefaultStyle().WithFG(compositor.RGB(50, 50, 60)),
		ScrollThumb: compositor.DefaultStyle().WithFG(compositor.RGB(100, 100, 110)),
	}
}

// Symbols provides consistent chrome iconography.
var Symbols = struct {
	Close    string
	Focused  string
	Bullet   string
	Check    string
	Cross    string
	ArrowUp  string
	ArrowDn  string
	Ellipsis string
}{
	Close:    "✕",
	Focused:  "●",
	Bullet:   "•",
	Check:    "✓",
	Cross:    "✗",
	ArrowUp:  "▲",
	ArrowDn:  "▼",
	Ellipsis: "…",
}

// Resolve picks the effective color: the explicit one if set, else the
// inherited one, else the theme default. The whole fallback chain in
// one place; callers never test color state themselves.
func Resolve(explicit, inherited, themeDefault compositor.Color) compositor.Color {
	if explicit.IsSet() {
		return explicit
	}
	if inherited.IsSet() {
		return inherited
	}
	return themeDefault
}

// ResolveStyle resolves both color channels of a style against an
// inherited style and the theme defaults, keeping the explicit style's
// attributes.
func ResolveStyle(explicit, inherited, themeDefault compositor.Style) compositor.Style {
	out := explicit
	out.FG = Resolve(explicit.FG, inherited.FG, themeDefault.FG)
	out.BG = Resolve(explicit.BG, inherited.BG, themeDefault.BG)
	return out
}
