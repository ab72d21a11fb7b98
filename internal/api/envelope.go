package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"net/http"
	"slices"
	"strings"
	"time"
)

// StatusException is the status of envelopes for calls that never got an
// HTTP response.
const StatusException = http.StatusTeapot

// StatusNotSent is the status of envelopes for calls that were never sent:
// rejected arguments and skipped batch entries.
const StatusNotSent = 0

var (
	// ErrNotMapping is returned by Items when the output is not an object.
	ErrNotMapping = errors.New("output is not a mapping")
	// ErrNoSuchKey is returned by Set for keys absent from the output.
	ErrNoSuchKey = errors.New("no such key in output")
)

// Envelope is the uniform result of one dispatched call.
type Envelope struct {
	OK         bool          `json:"ok"`
	StatusCode int           `json:"status_code"`
	Output     any           `json:"output"`
	Raw        []byte        `json:"-"`
	Error      string        `json:"error,omitempty"`
	URL        string        `json:"url"`
	Method     string        `json:"method"`
	Elapsed    time.Duration `json:"elapsed"`
	RateLimit  RateLimit     `json:"rate_limit"`
	Ambiguous  []string      `json:"ambiguous,omitempty"`
}

// newEnvelope decodes an HTTP response body. Bodies that are not JSON are
// kept as text; successful payloads are unwrapped.
func newEnvelope(method, url string, status int, body []byte, elapsed time.Duration) *Envelope {
	env := &Envelope{
		OK:         status >= 200 && status <= 299,
		StatusCode: status,
		Raw:        body,
		URL:        url,
		Method:     method,
		Elapsed:    elapsed,
	}

	decoded := decodeBody(body)

	if env.OK {
		env.Output, env.Ambiguous = Unwrap(decoded)
		return env
	}

	env.Error = errorText(decoded, status)
	env.Output = decoded
	if m, ok := decoded.(map[string]any); ok {
		if _, hasErr := m["error"]; hasErr {
			if _, hasDesc := m["error_description"]; hasDesc {
				env.Output = env.Error
			}
		}
	}
	if env.Output == nil || env.Output == "" {
		env.Output = env.Error
	}
	return env
}

// exceptionEnvelope reports a call that failed before a response arrived.
func exceptionEnvelope(method, url string, err error, elapsed time.Duration) *Envelope {
	return &Envelope{
		OK:         false,
		StatusCode: StatusException,
		Output:     map[string]any{},
		Error:      fmt.Sprintf("Exception occurred %T: %v", err, err),
		URL:        url,
		Method:     method,
		Elapsed:    elapsed,
	}
}

func decodeBody(body []byte) any {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return ""
	}
	var v any
	if err := json.Unmarshal(trimmed, &v); err != nil {
		return string(body)
	}
	return v
}

// errorText picks the most specific message a failing body offers and falls
// back to the HTTP reason phrase.
func errorText(decoded any, status int) string {
	if m, ok := decoded.(map[string]any); ok {
		errCode, _ := m["error"].(string)
		desc, _ := m["error_description"].(string)
		if errCode != "" && desc != "" {
			return errCode + ": " + desc
		}
		for _, k := range []string{"description", "message", "error_description", "error", "detail"} {
			if s, ok := m[k].(string); ok && s != "" {
				return s
			}
		}
	}
	if s, ok := decoded.(string); ok {
		if s = strings.TrimSpace(s); s != "" && len(s) <= 512 && !strings.HasPrefix(s, "<") {
			return s
		}
	}
	if reason := http.StatusText(status); reason != "" {
		return reason
	}
	return fmt.Sprintf("HTTP %d", status)
}

// IsOK reports whether the transport succeeded with a 2xx status.
func (e *Envelope) IsOK() bool {
	return e != nil && e.OK
}

// Get looks key up in an object output, returning def when absent.
func (e *Envelope) Get(key string, def any) any {
	if m, ok := e.Output.(map[string]any); ok {
		if v, ok := m[key]; ok {
			return v
		}
	}
	return def
}

// Items iterates an object output in key order.
func (e *Envelope) Items() (iter.Seq2[string, any], error) {
	m, ok := e.Output.(map[string]any)
	if !ok {
		return nil, ErrNotMapping
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return func(yield func(string, any) bool) {
		for _, k := range keys {
			if !yield(k, m[k]) {
				return
			}
		}
	}, nil
}

// GetField looks name up in the output, then one level down: inside the
// first wrapper key's object, or the only element of a one-item list.
func (e *Envelope) GetField(name string) (any, bool) {
	if m, ok := e.Output.(map[string]any); ok {
		if v, ok := m[name]; ok {
			return v, true
		}
	}

	var inner any
	switch out := e.Output.(type) {
	case map[string]any:
		inner, _ = firstWrapperValue(out)
	case []any:
		if len(out) == 1 {
			inner = out[0]
		}
	}
	if list, ok := inner.([]any); ok && len(list) == 1 {
		inner = list[0]
	}
	if m, ok := inner.(map[string]any); ok {
		v, ok := m[name]
		return v, ok
	}
	return nil, false
}

// Set replaces the value of an existing output key.
func (e *Envelope) Set(key string, value any) error {
	m, ok := e.Output.(map[string]any)
	if !ok {
		return ErrNotMapping
	}
	if _, ok := m[key]; !ok {
		return fmt.Errorf("%w: %s", ErrNoSuchKey, key)
	}
	m[key] = value
	return nil
}

// Len returns the number of items in a list or object output.
func (e *Envelope) Len() int {
	switch out := e.Output.(type) {
	case []any:
		return len(out)
	case map[string]any:
		return len(out)
	}
	return 0
}

func (e *Envelope) String() string {
	if !e.OK {
		return e.Error
	}
	if s, ok := e.Output.(string); ok {
		return s
	}
	b, err := json.MarshalIndent(e.Output, "", "  ")
	if err != nil {
		return fmt.Sprint(e.Output)
	}
	return string(b)
}
