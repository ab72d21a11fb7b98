package central

import (
	"context"

	"github.com/Pack3tL0ss/central-api-cli-sub004/internal/api"
)

// DefaultSiteName is the placeholder site Central creates for VisualRF.
const DefaultSiteName = "visualrf_default"

const sitesPageLimit = 1000

// GetAllSites returns every site, following pagination.
func (c *Client) GetAllSites(ctx context.Context) *api.Envelope {
	req := api.Get("/central/v2/sites").
		BoolParam("calculate_total", true).
		Param("sort", "+site_name")
	return c.d.DoAll(ctx, req, sitesPageLimit)
}

// GetSite returns one site by id.
func (c *Client) GetSite(ctx context.Context, siteID string) *api.Envelope {
	return c.get(ctx, api.Get(pathf("/central/v2/sites/%s", siteID)))
}

// FilterDefaultSites drops the visualrf_default site from a sites listing.
// Envelopes that failed or do not carry a list are returned untouched.
func FilterDefaultSites(env *api.Envelope) *api.Envelope {
	if !env.IsOK() {
		return env
	}
	sites, ok := env.Output.([]any)
	if !ok {
		return env
	}
	kept := make([]any, 0, len(sites))
	for _, s := range sites {
		if m, ok := s.(map[string]any); ok && m["site_name"] == DefaultSiteName {
			continue
		}
		kept = append(kept, s)
	}
	env.Output = kept
	return env
}
