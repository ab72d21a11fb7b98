package central

import (
	"context"

	"github.com/Pack3tL0ss/central-api-cli-sub004/internal/api"
)

const certificatesPageLimit = 20

// GetCertificates lists uploaded certificates, optionally filtered by
// name with q.
func (c *Client) GetCertificates(ctx context.Context, q string) *api.Envelope {
	return c.d.DoAll(ctx, api.Get("/configuration/v1/certificates").Param("q", q), certificatesPageLimit)
}

// GetTaskStatus returns the status of an asynchronous task such as a
// device action.
func (c *Client) GetTaskStatus(ctx context.Context, taskID string) *api.Envelope {
	return c.get(ctx, api.Get(pathf("/device_management/v1/status/%s", taskID)))
}
