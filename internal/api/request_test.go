package api

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestURL(t *testing.T) {
	tests := []struct {
		name string
		req  *Request
		base string
		want string
	}{
		{"relative", Get("/central/v2/sites"), "https://apigw.example.com", "https://apigw.example.com/central/v2/sites"},
		{"missing slash", Get("central/v2/sites"), "https://apigw.example.com/", "https://apigw.example.com/central/v2/sites"},
		{"params sorted", Get("/monitoring/v1/aps").Param("site", "HQ").Param("group", "lab"), "https://x", "https://x/monitoring/v1/aps?group=lab&site=HQ"},
		{"empty params skipped", Get("/monitoring/v1/aps").Param("group", "").IntParam("limit", 0).BoolParam("calculate_total", false), "https://x", "https://x/monitoring/v1/aps"},
		{"absolute", Get("https://other.example.com/a?b=1").Param("c", "2"), "https://x", "https://other.example.com/a?b=1&c=2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.req.URL(tt.base))
		})
	}
}

func TestRequestClone(t *testing.T) {
	orig := Get("/x").Param("a", "1")
	orig.Headers = http.Header{"X-Test": {"1"}}

	c := orig.Clone()
	c.Params.Set("a", "2")
	c.Headers.Set("X-Test", "2")

	assert.Equal(t, "1", orig.Params.Get("a"))
	assert.Equal(t, "1", orig.Headers.Get("X-Test"))
}

func TestEncodeBody(t *testing.T) {
	b, err := Get("/x").encodeBody()
	require.NoError(t, err)
	assert.Nil(t, b)

	b, err = Post("/x", json.RawMessage(`{"a":1}`)).encodeBody()
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(b))

	b, err = Post("/x", map[string][]string{"cli_cmds": {"show version"}}).encodeBody()
	require.NoError(t, err)
	assert.JSONEq(t, `{"cli_cmds":["show version"]}`, string(b))
}

func TestParseRateLimit(t *testing.T) {
	h := http.Header{}
	assert.False(t, ParseRateLimit(h).Known)
	assert.Equal(t, "", ParseRateLimit(h).String())

	h.Set("X-RateLimit-Limit-day", "5000")
	h.Set("X-RateLimit-Remaining-day", "1000")
	h.Set("X-RateLimit-Limit-second", "7")
	h.Set("X-RateLimit-Remaining-second", "5")

	rl := ParseRateLimit(h)
	assert.True(t, rl.Known)
	assert.Equal(t, 4000, rl.UsedDay())
	assert.False(t, rl.NearLimit())
	assert.Equal(t, "API Rate Limit: 1000 of 5000 remaining.", rl.String())

	h.Set("X-RateLimit-Remaining-second", "1")
	assert.True(t, ParseRateLimit(h).NearLimit())
}

func TestParseRetryAfter(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, time.Second, parseRetryAfter("", now))
	assert.Equal(t, time.Second, parseRetryAfter("0", now))
	assert.Equal(t, time.Second, parseRetryAfter("soon", now))
	assert.Equal(t, 5*time.Second, parseRetryAfter("5", now))
	assert.Equal(t, time.Minute, parseRetryAfter("3600", now))
	assert.Equal(t, 10*time.Second, parseRetryAfter(now.Add(10*time.Second).Format(http.TimeFormat), now))
}

func TestNewHTTPClient(t *testing.T) {
	c := NewHTTPClient(0, false)
	assert.Equal(t, DefaultTimeout, c.Timeout)
	tr := c.Transport.(*http.Transport)
	assert.True(t, tr.TLSClientConfig.InsecureSkipVerify)

	c = NewHTTPClient(5*time.Second, true)
	assert.Equal(t, 5*time.Second, c.Timeout)
	assert.False(t, c.Transport.(*http.Transport).TLSClientConfig.InsecureSkipVerify)
}
