package central

import (
	"context"
	"errors"
	"net/http"

	"github.com/Pack3tL0ss/central-api-cli-sub004/internal/api"
)

// Central accepts at most this many groups per properties request and
// returns at most this many groups per listing page.
const groupsPerRequest = 20

// GetGroups returns all group names as a flat list of strings.
func (c *Client) GetGroups(ctx context.Context) *api.Envelope {
	env := c.d.DoAll(ctx, api.Get("/configuration/v2/groups"), groupsPerRequest)
	if !env.IsOK() {
		return env
	}
	rows, ok := env.Output.([]any)
	if !ok {
		return env
	}
	names := make([]any, 0, len(rows))
	for _, row := range rows {
		switch v := row.(type) {
		case []any:
			for _, n := range v {
				names = append(names, n)
			}
		default:
			names = append(names, v)
		}
	}
	env.Output = names
	return env
}

// GetGroupProperties returns properties for the named groups. Requests
// are split into batches of 20 and the results concatenated; the first
// failing batch is returned as-is.
func (c *Client) GetGroupProperties(ctx context.Context, groups []string) *api.Envelope {
	if len(groups) == 0 {
		return errorEnvelope(http.MethodGet, "/configuration/v1/groups/properties", errors.New("no groups given"))
	}

	var (
		out  []any
		last *api.Envelope
	)
	for _, batch := range chunk(groups, groupsPerRequest) {
		req := api.Get("/configuration/v1/groups/properties").Param("groups", joinNonEmpty(batch))
		env := c.get(ctx, req)
		if !env.IsOK() {
			return env
		}
		switch v := env.Output.(type) {
		case []any:
			out = append(out, v...)
		default:
			out = append(out, v)
		}
		last = env
	}
	last.Output = out
	return last
}

// errorEnvelope reports an argument error without sending anything. Its
// status is api.StatusNotSent so it cannot pass for a reply from Central.
func errorEnvelope(method, path string, err error) *api.Envelope {
	return &api.Envelope{
		StatusCode: api.StatusNotSent,
		Method:     method,
		URL:        path,
		Error:      err.Error(),
		Output:     err.Error(),
	}
}
