package api

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// Request is one Central API call. Path is relative to the account base URL
// unless it is already an absolute http(s) URL.
type Request struct {
	Method  string
	Path    string
	Params  url.Values
	Body    any
	Headers http.Header
}

// NewRequest creates a request with empty params.
func NewRequest(method, path string) *Request {
	return &Request{Method: method, Path: path, Params: url.Values{}}
}

// Get creates a GET request.
func Get(path string) *Request { return NewRequest(http.MethodGet, path) }

// Post creates a POST request with a JSON body.
func Post(path string, body any) *Request {
	r := NewRequest(http.MethodPost, path)
	r.Body = body
	return r
}

// Param sets a query parameter. Empty values are skipped so optional
// filters can be passed unconditionally.
func (r *Request) Param(key, value string) *Request {
	if value == "" {
		return r
	}
	if r.Params == nil {
		r.Params = url.Values{}
	}
	r.Params.Set(key, value)
	return r
}

// IntParam sets a numeric query parameter; zero is skipped.
func (r *Request) IntParam(key string, value int) *Request {
	if value == 0 {
		return r
	}
	return r.Param(key, strconv.Itoa(value))
}

// BoolParam sets key=true when value is true.
func (r *Request) BoolParam(key string, value bool) *Request {
	if !value {
		return r
	}
	return r.Param(key, "true")
}

// Clone returns a copy whose params and headers can be modified independently.
func (r *Request) Clone() *Request {
	c := *r
	c.Params = url.Values{}
	for k, v := range r.Params {
		c.Params[k] = append([]string(nil), v...)
	}
	if r.Headers != nil {
		c.Headers = r.Headers.Clone()
	}
	return &c
}

// URL resolves the request against baseURL.
func (r *Request) URL(baseURL string) string {
	u := r.Path
	if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
		if !strings.HasPrefix(u, "/") {
			u = "/" + u
		}
		u = strings.TrimRight(baseURL, "/") + u
	}
	if len(r.Params) > 0 {
		sep := "?"
		if strings.Contains(u, "?") {
			sep = "&"
		}
		u += sep + r.Params.Encode()
	}
	return u
}

// encodeBody returns nil for bodyless requests. []byte and json.RawMessage
// bodies are sent as-is.
func (r *Request) encodeBody() ([]byte, error) {
	switch b := r.Body.(type) {
	case nil:
		return nil, nil
	case []byte:
		return b, nil
	case json.RawMessage:
		return b, nil
	case string:
		return []byte(b), nil
	default:
		return json.Marshal(b)
	}
}
