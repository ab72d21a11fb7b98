// Package tui holds the interactive pieces of the CLI: prompts, the
// progress spinner and lipgloss styles.
package tui

import (
	"fmt"
	"os"
	"regexp"

	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"
)

// Theme defines the color palette.
type Theme struct {
	Primary lipgloss.AdaptiveColor
	Success lipgloss.AdaptiveColor
	Warning lipgloss.AdaptiveColor
	Error   lipgloss.AdaptiveColor
	Muted   lipgloss.AdaptiveColor
	Border  lipgloss.AdaptiveColor
}

// DefaultTheme returns the default cencli theme.
func DefaultTheme() Theme {
	return Theme{
		Primary: lipgloss.AdaptiveColor{Light: "#d65a00", Dark: "#ff8300"},
		Success: lipgloss.AdaptiveColor{Light: "#1e8e3e", Dark: "#81c995"},
		Warning: lipgloss.AdaptiveColor{Light: "#b26a00", Dark: "#fdd663"},
		Error:   lipgloss.AdaptiveColor{Light: "#d93025", Dark: "#f28b82"},
		Muted:   lipgloss.AdaptiveColor{Light: "#80868b", Dark: "#6e7681"},
		Border:  lipgloss.AdaptiveColor{Light: "#dadce0", Dark: "#3c4043"},
	}
}

// NoColorTheme returns a theme with empty colors, which lipgloss renders
// as plain text.
func NoColorTheme() Theme {
	empty := lipgloss.AdaptiveColor{}
	return Theme{Primary: empty, Success: empty, Warning: empty, Error: empty, Muted: empty, Border: empty}
}

// ResolveTheme picks the palette:
//  1. NO_COLOR set → NoColorTheme
//  2. CENCLI_THEME names a readable theme file → that file over the default
//  3. DefaultTheme
func ResolveTheme() Theme {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return NoColorTheme()
	}
	if path := os.Getenv("CENCLI_THEME"); path != "" {
		if theme, err := LoadThemeFromFile(path); err == nil {
			return theme
		}
	}
	return DefaultTheme()
}

// themeFile is the YAML layout of a theme file. Each value is a hex color
// used for both light and dark terminals.
type themeFile struct {
	Primary string `yaml:"primary"`
	Success string `yaml:"success"`
	Warning string `yaml:"warning"`
	Error   string `yaml:"error"`
	Muted   string `yaml:"muted"`
	Border  string `yaml:"border"`
}

var hexColor = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// LoadThemeFromFile reads a YAML theme file. Keys that are missing or not
// hex colors keep their default.
func LoadThemeFromFile(path string) (Theme, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path comes from the operator's environment
	if err != nil {
		return Theme{}, err
	}
	var f themeFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return Theme{}, fmt.Errorf("parsing theme %s: %w", path, err)
	}

	theme := DefaultTheme()
	set := func(dst *lipgloss.AdaptiveColor, v string) {
		if hexColor.MatchString(v) {
			*dst = lipgloss.AdaptiveColor{Light: v, Dark: v}
		}
	}
	set(&theme.Primary, f.Primary)
	set(&theme.Success, f.Success)
	set(&theme.Warning, f.Warning)
	set(&theme.Error, f.Error)
	set(&theme.Muted, f.Muted)
	set(&theme.Border, f.Border)
	return theme, nil
}
