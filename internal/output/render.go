package output

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"
)

// Renderer handles human-readable terminal output.
type Renderer struct {
	w      io.Writer
	styled bool

	Summary lipgloss.Style
	Muted   lipgloss.Style
	Error   lipgloss.Style
	Hint    lipgloss.Style
}

// NewRenderer creates a renderer. Styling is only emitted when styled is true.
func NewRenderer(w io.Writer, styled bool) *Renderer {
	r := &Renderer{w: w, styled: styled}
	if styled {
		r.Summary = lipgloss.NewStyle().Foreground(lipgloss.Color("#ff8300")).Bold(true)
		r.Muted = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
		r.Error = lipgloss.NewStyle().Foreground(lipgloss.Color("#e5484d")).Bold(true)
		r.Hint = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Italic(true)
	} else {
		r.Summary = lipgloss.NewStyle()
		r.Muted = lipgloss.NewStyle()
		r.Error = lipgloss.NewStyle()
		r.Hint = lipgloss.NewStyle()
	}
	return r
}

// Render writes a Response or ErrorResponse as text.
func (r *Renderer) Render(v any) error {
	switch resp := v.(type) {
	case *Response:
		return r.RenderResponse(resp)
	case *ErrorResponse:
		return r.RenderError(resp)
	default:
		return r.renderData(v)
	}
}

// RenderResponse renders a success response.
func (r *Renderer) RenderResponse(resp *Response) error {
	if resp.Summary != "" {
		fmt.Fprintln(r.w, r.Summary.Render(resp.Summary))
	}
	if err := r.renderData(resp.Data); err != nil {
		return err
	}
	if len(resp.Meta) > 0 {
		keys := sortedKeys(resp.Meta)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s: %v", k, resp.Meta[k]))
		}
		fmt.Fprintln(r.w, r.Muted.Render(strings.Join(parts, " | ")))
	}
	return nil
}

// RenderError renders an error response.
func (r *Renderer) RenderError(resp *ErrorResponse) error {
	msg := resp.Error
	if resp.Status != 0 {
		msg = fmt.Sprintf("[%d] %s", resp.Status, msg)
	}
	fmt.Fprintln(r.w, r.Error.Render("Error:"), msg)
	if resp.Hint != "" {
		fmt.Fprintln(r.w, r.Hint.Render(resp.Hint))
	}
	return nil
}

func (r *Renderer) renderData(data any) error {
	switch d := data.(type) {
	case nil:
		return nil
	case string:
		fmt.Fprintln(r.w, strings.TrimRight(d, "\n"))
		return nil
	}
	b, err := yaml.Marshal(normalizeData(data))
	if err != nil {
		return err
	}
	_, err = r.w.Write(b)
	return err
}

func sortedKeys(m map[string]any) []string {
	return slices.Sorted(maps.Keys(m))
}
