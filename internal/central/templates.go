package central

import (
	"context"
	"errors"
	"net/http"

	"github.com/Pack3tL0ss/central-api-cli-sub004/internal/api"
)

const templatesPageLimit = 20

// GetTemplates lists the templates in a template group.
func (c *Client) GetTemplates(ctx context.Context, group string) *api.Envelope {
	return c.d.DoAll(ctx, api.Get(pathf("/configuration/v1/groups/%s/templates", group)), templatesPageLimit)
}

// GetTemplate returns the text of one template.
func (c *Client) GetTemplate(ctx context.Context, group, name string) *api.Envelope {
	return c.get(ctx, api.Get(pathf("/configuration/v1/groups/%s/templates/%s", group, name)))
}

// GetVariablisedTemplate returns a device's template with its variables applied.
func (c *Client) GetVariablisedTemplate(ctx context.Context, serial string) *api.Envelope {
	return c.get(ctx, api.Get(pathf("/configuration/v1/devices/%s/variablised_template", serial)))
}

// GetVariables returns the template variables of one device.
func (c *Client) GetVariables(ctx context.Context, serial string) *api.Envelope {
	return c.get(ctx, api.Get(pathf("/configuration/v1/devices/%s/template_variables", serial)))
}

// UpdateVariables patches a device's template variables. Central requires
// the _sys_serial and _sys_lan_mac system variables in every update.
func (c *Client) UpdateVariables(ctx context.Context, serial, mac string, vars map[string]any) *api.Envelope {
	path := pathf("/configuration/v1/devices/%s/template_variables", serial)
	if serial == "" || mac == "" {
		return errorEnvelope(http.MethodPatch, path, errors.New("serial and mac are required"))
	}

	merged := make(map[string]any, len(vars)+2)
	for k, v := range vars {
		merged[k] = v
	}
	merged["_sys_serial"] = serial
	merged["_sys_lan_mac"] = mac

	req := api.NewRequest(http.MethodPatch, path)
	req.Body = map[string]any{
		"total":     len(merged),
		"variables": merged,
	}
	return c.get(ctx, req)
}
