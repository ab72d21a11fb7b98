package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Styles holds the rendered styles for one theme.
type Styles struct {
	theme Theme

	Title   lipgloss.Style
	Bold    lipgloss.Style
	Muted   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Box     lipgloss.Style
}

// NewStyles creates Styles for the resolved theme.
func NewStyles() *Styles {
	return NewStylesWithTheme(ResolveTheme())
}

// NewStylesWithTheme creates Styles for theme.
func NewStylesWithTheme(theme Theme) *Styles {
	return &Styles{
		theme:   theme,
		Title:   lipgloss.NewStyle().Bold(true).Foreground(theme.Primary),
		Bold:    lipgloss.NewStyle().Bold(true),
		Muted:   lipgloss.NewStyle().Foreground(theme.Muted),
		Success: lipgloss.NewStyle().Foreground(theme.Success),
		Warning: lipgloss.NewStyle().Foreground(theme.Warning),
		Error:   lipgloss.NewStyle().Foreground(theme.Error),
		Box: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(theme.Border).
			Padding(0, 1),
	}
}

// Theme returns the palette these styles were built from.
func (s *Styles) Theme() Theme {
	return s.theme
}

// RenderKeyValue renders "key: value" with a muted key.
func (s *Styles) RenderKeyValue(key, value string) string {
	return s.Muted.Render(key+": ") + value
}

// RenderStatus renders a check or cross followed by message.
func (s *Styles) RenderStatus(ok bool, message string) string {
	if ok {
		return s.Success.Render("✓ " + message)
	}
	return s.Error.Render("✗ " + message)
}

// RenderBanner renders a boxed title followed by key/value lines. Pairs with
// an empty value are skipped.
func (s *Styles) RenderBanner(title string, pairs ...[2]string) string {
	lines := []string{s.Title.Render(title)}
	for _, p := range pairs {
		if p[1] == "" {
			continue
		}
		lines = append(lines, s.RenderKeyValue(p[0], p[1]))
	}
	return s.Box.Render(strings.Join(lines, "\n"))
}
