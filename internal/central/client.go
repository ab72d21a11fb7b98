// Package central maps Aruba Central REST endpoints onto api.Request values
// and sends them through an api.Dispatcher.
package central

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/Pack3tL0ss/central-api-cli-sub004/internal/api"
)

// Client issues endpoint calls for one account.
type Client struct {
	d *api.Dispatcher
}

// New creates a Client over d.
func New(d *api.Dispatcher) *Client {
	return &Client{d: d}
}

// Dispatcher returns the underlying dispatcher.
func (c *Client) Dispatcher() *api.Dispatcher {
	return c.d
}

func (c *Client) get(ctx context.Context, req *api.Request) *api.Envelope {
	return c.d.Do(ctx, req)
}

// pathf builds a URL path, escaping each argument as a single segment.
func pathf(format string, args ...string) string {
	escaped := make([]any, len(args))
	for i, a := range args {
		escaped[i] = url.PathEscape(a)
	}
	return fmt.Sprintf(format, escaped...)
}

// chunk splits items into slices of at most size elements.
func chunk(items []string, size int) [][]string {
	var out [][]string
	for len(items) > size {
		out = append(out, items[:size])
		items = items[size:]
	}
	if len(items) > 0 {
		out = append(out, items)
	}
	return out
}

func joinNonEmpty(items []string) string {
	kept := items[:0:0]
	for _, it := range items {
		if s := strings.TrimSpace(it); s != "" {
			kept = append(kept, s)
		}
	}
	return strings.Join(kept, ",")
}
