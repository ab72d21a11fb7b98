package central

import (
	"context"
	"fmt"
	"net/http"

	"github.com/Pack3tL0ss/central-api-cli-sub004/internal/api"
)

// ClientType selects wired or wireless clients.
type ClientType string

const (
	ClientsWireless ClientType = "wireless"
	ClientsWired    ClientType = "wired"
)

// ClientFilter narrows a client listing.
type ClientFilter struct {
	Group  string
	Site   string
	Label  string
	Serial string
}

// GetClients lists connected clients of one type.
func (c *Client) GetClients(ctx context.Context, typ ClientType, f ClientFilter) *api.Envelope {
	if typ != ClientsWireless && typ != ClientsWired {
		return errorEnvelope(http.MethodGet, "/monitoring/v1/clients", fmt.Errorf("invalid client type %q: must be wired or wireless", typ))
	}
	req := api.Get("/monitoring/v1/clients/"+string(typ)).
		Param("group", f.Group).
		Param("site", f.Site).
		Param("label", f.Label).
		Param("serial", f.Serial).
		BoolParam("calculate_total", true)
	return c.d.DoAll(ctx, req, devicesPageLimit)
}
