package central

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/Pack3tL0ss/central-api-cli-sub004/internal/api"
)

// DeviceType is a monitoring device collection.
type DeviceType string

const (
	DeviceAP      DeviceType = "aps"
	DeviceSwitch  DeviceType = "switches"
	DeviceGateway DeviceType = "gateways"
)

// ParseDeviceType accepts the collection name or the short forms the CLI
// uses (ap, switch, cx, sw, gw, gateway).
func ParseDeviceType(s string) (DeviceType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ap", "aps":
		return DeviceAP, nil
	case "switch", "switches", "sw", "cx":
		return DeviceSwitch, nil
	case "gw", "gateway", "gateways", "mobility_controllers":
		return DeviceGateway, nil
	default:
		return "", fmt.Errorf("invalid device type %q: must be one of ap, switch, gw", s)
	}
}

// SiteDeviceType is the device_type value the site association endpoint expects.
func (t DeviceType) SiteDeviceType() string {
	switch t {
	case DeviceAP:
		return "IAP"
	case DeviceSwitch:
		return "SWITCH"
	case DeviceGateway:
		return "CONTROLLER"
	default:
		return strings.ToUpper(string(t))
	}
}

// DeviceFilter narrows a monitoring device listing.
type DeviceFilter struct {
	Group  string
	Site   string
	Label  string
	Serial string
	// Status is Up or Down; matched case-insensitively.
	Status string
}

const devicesPageLimit = 1000

// GetDevices lists monitored devices of one type.
func (c *Client) GetDevices(ctx context.Context, typ DeviceType, f DeviceFilter) *api.Envelope {
	req := api.Get("/monitoring/v1/"+string(typ)).
		Param("group", f.Group).
		Param("site", f.Site).
		Param("label", f.Label).
		Param("serial", f.Serial).
		Param("status", titleCase(f.Status)).
		BoolParam("calculate_total", true)
	if typ != DeviceGateway {
		req.BoolParam("calculate_client_count", true)
	}
	return c.d.DoAll(ctx, req, devicesPageLimit)
}

// GetSwarms lists AP swarms (virtual controllers), optionally by group.
func (c *Client) GetSwarms(ctx context.Context, group string) *api.Envelope {
	req := api.Get("/monitoring/v1/swarms").Param("group", group)
	return c.d.DoAll(ctx, req, devicesPageLimit)
}

// GetInventory lists the device inventory (all devices added to the
// account, assigned or not). sku may be all, iap, switch or gateway.
func (c *Client) GetInventory(ctx context.Context, sku string) *api.Envelope {
	if sku == "" {
		sku = "all"
	}
	req := api.Get("/platform/device_inventory/v1/devices").Param("sku_type", sku)
	return c.d.DoAll(ctx, req, devicesPageLimit)
}

// gatewayMoveStarted is the text Central returns alongside HTTP 500 when a
// gateway group move was accepted.
const gatewayMoveStarted = "group move has been initiated"

// MoveDevicesToGroup moves devices to a configuration group.
func (c *Client) MoveDevicesToGroup(ctx context.Context, group string, serials []string) *api.Envelope {
	if group == "" || len(serials) == 0 {
		return errorEnvelope(http.MethodPost, "/configuration/v1/devices/move", fmt.Errorf("group and at least one serial are required"))
	}
	body := map[string]any{
		"group":   group,
		"serials": serials,
	}
	env := c.get(ctx, api.Post("/configuration/v1/devices/move", body))
	if env.StatusCode == http.StatusInternalServerError && strings.Contains(describe(env), gatewayMoveStarted) {
		env.OK = true
		env.Error = ""
	}
	return env
}

// AssignSite associates devices of one type with a site.
func (c *Client) AssignSite(ctx context.Context, siteID int, typ DeviceType, serials []string) *api.Envelope {
	if siteID <= 0 || len(serials) == 0 {
		return errorEnvelope(http.MethodPost, "/central/v2/sites/associations", fmt.Errorf("site id and at least one serial are required"))
	}
	body := map[string]any{
		"site_id":     siteID,
		"device_ids":  serials,
		"device_type": typ.SiteDeviceType(),
	}
	return c.get(ctx, api.Post("/central/v2/sites/associations", body))
}

// describe returns the description text of a failing reply.
func describe(env *api.Envelope) string {
	if m, ok := env.Output.(map[string]any); ok {
		if d, ok := m["description"].(string); ok {
			return d
		}
	}
	return env.Error
}

func titleCase(s string) string {
	if s == "" {
		return ""
	}
	s = strings.ToLower(s)
	return strings.ToUpper(s[:1]) + s[1:]
}
