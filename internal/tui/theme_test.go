package tui

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveThemeNoColor(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	assert.Equal(t, NoColorTheme(), ResolveTheme())
}

func TestResolveThemeFromFile(t *testing.T) {
	unsetNoColor(t)
	path := filepath.Join(t.TempDir(), "theme.yaml")
	require.NoError(t, os.WriteFile(path, []byte("primary: \"#123456\"\n"), 0o600))
	t.Setenv("CENCLI_THEME", path)

	theme := ResolveTheme()
	assert.Equal(t, lipgloss.AdaptiveColor{Light: "#123456", Dark: "#123456"}, theme.Primary)
	assert.Equal(t, DefaultTheme().Error, theme.Error)
}

func TestResolveThemeMissingFileFallsBack(t *testing.T) {
	unsetNoColor(t)
	t.Setenv("CENCLI_THEME", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Equal(t, DefaultTheme(), ResolveTheme())
}

func TestLoadThemeFromFile(t *testing.T) {
	tests := []struct {
		name    string
		content string
		check   func(t *testing.T, theme Theme)
		wantErr bool
	}{
		{
			name:    "all keys",
			content: "primary: \"#111111\"\nsuccess: \"#222222\"\nwarning: \"#333333\"\nerror: \"#444444\"\nmuted: \"#555555\"\nborder: \"#666\"\n",
			check: func(t *testing.T, theme Theme) {
				assert.Equal(t, "#444444", theme.Error.Dark)
				assert.Equal(t, "#666", theme.Border.Light)
			},
		},
		{
			name:    "invalid color keeps default",
			content: "primary: orange\n",
			check: func(t *testing.T, theme Theme) {
				assert.Equal(t, DefaultTheme().Primary, theme.Primary)
			},
		},
		{
			name:    "malformed yaml",
			content: "primary: [\n",
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "theme.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o600))
			theme, err := LoadThemeFromFile(path)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.check(t, theme)
		})
	}
}

func TestRenderBannerSkipsEmptyValues(t *testing.T) {
	s := NewStylesWithTheme(NoColorTheme())
	out := s.RenderBanner("Tokens required", [2]string{"Reason", "expired"}, [2]string{"Client ID", ""})
	assert.Contains(t, out, "Tokens required")
	assert.Contains(t, out, "Reason: expired")
	assert.NotContains(t, out, "Client ID")
}

func TestRenderStatus(t *testing.T) {
	s := NewStylesWithTheme(NoColorTheme())
	assert.Contains(t, s.RenderStatus(true, "saved"), "✓ saved")
	assert.Contains(t, s.RenderStatus(false, "failed"), "✗ failed")
}

func unsetNoColor(t *testing.T) {
	t.Helper()
	t.Setenv("NO_COLOR", "")
	require.NoError(t, os.Unsetenv("NO_COLOR"))
}
