package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/x/term"
	"gopkg.in/yaml.v3"
)

// Response is the success envelope for JSON output.
type Response struct {
	OK      bool           `json:"ok" yaml:"ok"`
	Data    any            `json:"data,omitempty" yaml:"data,omitempty"`
	Summary string         `json:"summary,omitempty" yaml:"summary,omitempty"`
	Context map[string]any `json:"context,omitempty" yaml:"context,omitempty"`
	Meta    map[string]any `json:"meta,omitempty" yaml:"meta,omitempty"`
}

// ErrorResponse is the error envelope for JSON output.
type ErrorResponse struct {
	OK     bool   `json:"ok" yaml:"ok"`
	Error  string `json:"error" yaml:"error"`
	Code   string `json:"code" yaml:"code"`
	Hint   string `json:"hint,omitempty" yaml:"hint,omitempty"`
	Status int    `json:"status_code,omitempty" yaml:"status_code,omitempty"`
}

// Format specifies the output format.
type Format int

const (
	FormatAuto Format = iota // Auto-detect: TTY → Text, non-TTY → JSON
	FormatJSON
	FormatYAML
	FormatText
	FormatQuiet // Data only, no envelope
)

// ParseFormat maps a --output value to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "", "auto":
		return FormatAuto, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "text", "plain":
		return FormatText, nil
	case "quiet", "raw":
		return FormatQuiet, nil
	default:
		return FormatAuto, ErrUsageHint(fmt.Sprintf("Unknown output format %q", s), "Use json, yaml, text or quiet")
	}
}

// Options controls output behavior.
type Options struct {
	Format Format
	Writer io.Writer
	// JQ, when set, filters the data before it is written.
	JQ string
}

// Writer handles all output formatting.
type Writer struct {
	opts Options
}

// New creates a new output writer.
func New(opts Options) *Writer {
	if opts.Writer == nil {
		opts.Writer = os.Stdout
	}
	return &Writer{opts: opts}
}

// Format returns the effective format after TTY auto-detection.
func (w *Writer) Format() Format {
	if w.opts.Format != FormatAuto {
		return w.opts.Format
	}
	if isTTY(w.opts.Writer) {
		return FormatText
	}
	return FormatJSON
}

// OK outputs a success response.
func (w *Writer) OK(data any, opts ...ResponseOption) error {
	resp := &Response{OK: true, Data: data}
	for _, opt := range opts {
		opt(resp)
	}
	if w.opts.JQ != "" {
		return w.writeFiltered(resp.Data)
	}
	return w.write(resp)
}

// Err outputs an error response.
func (w *Writer) Err(err error) error {
	e := AsError(err)
	return w.write(&ErrorResponse{
		OK:     false,
		Error:  e.Message,
		Code:   e.Code,
		Hint:   e.Hint,
		Status: e.HTTPStatus,
	})
}

func (w *Writer) write(v any) error {
	switch w.Format() {
	case FormatQuiet:
		if resp, ok := v.(*Response); ok {
			return w.writeJSON(resp.Data)
		}
		return w.writeJSON(v)
	case FormatYAML:
		return w.writeYAML(v)
	case FormatText:
		return NewRenderer(w.opts.Writer, isTTY(w.opts.Writer)).Render(v)
	default:
		return w.writeJSON(v)
	}
}

func (w *Writer) writeJSON(v any) error {
	enc := json.NewEncoder(w.opts.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (w *Writer) writeYAML(v any) error {
	enc := yaml.NewEncoder(w.opts.Writer)
	enc.SetIndent(2)
	if err := enc.Encode(normalizeData(v)); err != nil {
		return err
	}
	return enc.Close()
}

func (w *Writer) writeFiltered(data any) error {
	results, err := ApplyJQ(w.opts.JQ, data)
	if err != nil {
		return err
	}
	for _, r := range results {
		if s, ok := r.(string); ok {
			fmt.Fprintln(w.opts.Writer, s)
			continue
		}
		b, err := json.Marshal(r)
		if err != nil {
			return err
		}
		fmt.Fprintln(w.opts.Writer, string(b))
	}
	return nil
}

// isTTY checks if the writer is a terminal.
func isTTY(w io.Writer) bool {
	if f, ok := w.(*os.File); ok {
		return term.IsTerminal(f.Fd())
	}
	return false
}

// normalizeData converts typed values to plain maps/slices via a JSON round-trip
// so YAML and jq see the same shape JSON output does.
func normalizeData(data any) any {
	switch data.(type) {
	case nil, string, map[string]any, []any:
		return data
	}
	b, err := json.Marshal(data)
	if err != nil {
		return data
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return data
	}
	return out
}

// ResponseOption modifies a Response.
type ResponseOption func(*Response)

// WithSummary adds a summary to the response.
func WithSummary(s string) ResponseOption {
	return func(r *Response) { r.Summary = s }
}

// WithContext adds context to the response.
func WithContext(key string, value any) ResponseOption {
	return func(r *Response) {
		if r.Context == nil {
			r.Context = make(map[string]any)
		}
		r.Context[key] = value
	}
}

// WithMeta adds metadata to the response.
func WithMeta(key string, value any) ResponseOption {
	return func(r *Response) {
		if r.Meta == nil {
			r.Meta = make(map[string]any)
		}
		r.Meta[key] = value
	}
}
