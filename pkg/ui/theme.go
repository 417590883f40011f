package ui

import (
	"os"

	"github.com/charmbracelet/colorprofile"
	"github.com/charmbracelet/lipgloss"
)

// TermProfile holds the detected terminal color profile. Computed once at
// package init so every style helper can branch without re-detecting.
var TermProfile colorprofile.Profile

func init() {
	TermProfile = colorprofile.Detect(os.Stdout, os.Environ())
}

// ThemeFg returns the given hex color for ANSI256+ terminals and a safe
// ANSI white (color 7) for 16-color or lower terminals.
func ThemeFg(hex string) lipgloss.TerminalColor {
	if TermProfile < colorprofile.ANSI256 {
		return lipgloss.ANSIColor(7)
	}
	return lipgloss.Color(hex)
}

// Theme bundles the adaptive colors and precomputed styles used across the
// view. Styles are created once at startup instead of per-frame.
type Theme struct {
	Renderer *lipgloss.Renderer

	Primary   lipgloss.AdaptiveColor
	Secondary lipgloss.AdaptiveColor
	Subtext   lipgloss.AdaptiveColor

	// File change statuses.
	Added     lipgloss.AdaptiveColor
	Modified  lipgloss.AdaptiveColor
	Deleted   lipgloss.AdaptiveColor
	Renamed   lipgloss.AdaptiveColor
	Untracked lipgloss.AdaptiveColor

	// Ref badge colors.
	Branch lipgloss.AdaptiveColor
	Remote lipgloss.AdaptiveColor
	Tag    lipgloss.AdaptiveColor
	Stash  lipgloss.AdaptiveColor

	Border    lipgloss.AdaptiveColor
	Highlight lipgloss.AdaptiveColor
	Muted     lipgloss.AdaptiveColor
	Error     lipgloss.AdaptiveColor

	Base         lipgloss.Style
	Selected     lipgloss.Style
	Header       lipgloss.Style
	MutedText    lipgloss.Style
	ErrorText    lipgloss.Style
	BadgeBranch  lipgloss.Style
	BadgeRemote  lipgloss.Style
	BadgeTag     lipgloss.Style
	BadgeStash   lipgloss.Style
	BadgeHead    lipgloss.Style
	PaneBorder   lipgloss.Style
	PaneTitle    lipgloss.Style
	StatusAdd    lipgloss.Style
	StatusMod    lipgloss.Style
	StatusDel    lipgloss.Style
	StatusRen    lipgloss.Style
	StatusUntrk  lipgloss.Style
	ReviewedMark lipgloss.Style

	// GraphPalette cycles per lane.
	GraphPalette []lipgloss.Style
}

// DefaultTheme returns the standard Dracula-inspired theme (adaptive).
func DefaultTheme(r *lipgloss.Renderer) Theme {
	t := Theme{
		Renderer: r,

		Primary:   lipgloss.AdaptiveColor{Light: "#6B47D9", Dark: "#BD93F9"},
		Secondary: lipgloss.AdaptiveColor{Light: "#555555", Dark: "#6272A4"},
		Subtext:   lipgloss.AdaptiveColor{Light: "#666666", Dark: "#BFBFBF"},

		Added:     lipgloss.AdaptiveColor{Light: "#007700", Dark: "#50FA7B"},
		Modified:  lipgloss.AdaptiveColor{Light: "#B06800", Dark: "#FFB86C"},
		Deleted:   lipgloss.AdaptiveColor{Light: "#CC0000", Dark: "#FF5555"},
		Renamed:   lipgloss.AdaptiveColor{Light: "#0066CC", Dark: "#6699FF"},
		Untracked: lipgloss.AdaptiveColor{Light: "#008080", Dark: "#00CED1"},

		Branch: lipgloss.AdaptiveColor{Light: "#007700", Dark: "#50FA7B"},
		Remote: lipgloss.AdaptiveColor{Light: "#006080", Dark: "#8BE9FD"},
		Tag:    lipgloss.AdaptiveColor{Light: "#B06800", Dark: "#FFB86C"},
		Stash:  lipgloss.AdaptiveColor{Light: "#6B47D9", Dark: "#BD93F9"},

		Border:    lipgloss.AdaptiveColor{Light: "#AAAAAA", Dark: "#44475A"},
		Highlight: lipgloss.AdaptiveColor{Light: "#E0E0E0", Dark: "#44475A"},
		Muted:     lipgloss.AdaptiveColor{Light: "#555555", Dark: "#6272A4"},
		Error:     lipgloss.AdaptiveColor{Light: "#CC0000", Dark: "#FF5555"},
	}

	t.Base = r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#000000", Dark: "#F8F8F2"})
	t.Selected = r.NewStyle().Background(t.Highlight).Bold(true)
	t.Header = r.NewStyle().Foreground(t.Primary).Bold(true)
	t.MutedText = r.NewStyle().Foreground(t.Muted)
	t.ErrorText = r.NewStyle().Foreground(t.Error).Bold(true)

	t.BadgeBranch = r.NewStyle().Foreground(t.Branch)
	t.BadgeRemote = r.NewStyle().Foreground(t.Remote)
	t.BadgeTag = r.NewStyle().Foreground(t.Tag)
	t.BadgeStash = r.NewStyle().Foreground(t.Stash)
	t.BadgeHead = r.NewStyle().Foreground(t.Branch).Bold(true)

	t.PaneBorder = r.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(t.Border)
	t.PaneTitle = r.NewStyle().Foreground(t.Secondary).Bold(true)

	t.StatusAdd = r.NewStyle().Foreground(t.Added)
	t.StatusMod = r.NewStyle().Foreground(t.Modified)
	t.StatusDel = r.NewStyle().Foreground(t.Deleted)
	t.StatusRen = r.NewStyle().Foreground(t.Renamed)
	t.StatusUntrk = r.NewStyle().Foreground(t.Untracked)
	t.ReviewedMark = r.NewStyle().Foreground(t.Added)

	for _, hex := range []string{
		"#FF5555", "#50FA7B", "#F1FA8C", "#8BE9FD",
		"#BD93F9", "#FFB86C", "#FF79C6", "#F8F8F2",
	} {
		t.GraphPalette = append(t.GraphPalette, r.NewStyle().Foreground(ThemeFg(hex)))
	}

	return t
}
