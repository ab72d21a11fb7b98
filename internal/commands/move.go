package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Pack3tL0ss/central-api-cli-sub004/internal/api"
	"github.com/Pack3tL0ss/central-api-cli-sub004/internal/central"
	"github.com/Pack3tL0ss/central-api-cli-sub004/internal/output"
)

// NewMoveCmd creates the move command.
func NewMoveCmd() *cobra.Command {
	var (
		group   string
		siteID  int
		devType string
		yes     bool
	)

	cmd := &cobra.Command{
		Use:   "move <serial>... [--group G] [--site ID --type T]",
		Short: "Move devices to a group and/or site",
		Long: `Move devices to a configuration group, associate them with a site, or both.

The group move runs first; when it fails the site association is skipped.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFrom(cmd)
			if err != nil {
				return err
			}
			if group == "" && siteID == 0 {
				return output.ErrUsage("--group or --site is required")
			}

			var typ central.DeviceType
			if siteID != 0 {
				if devType == "" {
					return output.ErrUsageHint("--type is required with --site", "Use ap, switch or gw")
				}
				if typ, err = central.ParseDeviceType(devType); err != nil {
					return output.ErrUsage(err.Error())
				}
			}

			serials := make([]string, len(args))
			for i, s := range args {
				serials[i] = strings.ToUpper(strings.TrimSpace(s))
			}

			var reqs []api.BatchRequest
			var actions []string
			if group != "" {
				reqs = append(reqs, api.BatchRequest{
					Label: "move to group " + group,
					Call: func(ctx context.Context) *api.Envelope {
						return app.Central.MoveDevicesToGroup(ctx, group, serials)
					},
				})
				actions = append(actions, "group "+group)
			}
			if siteID != 0 {
				reqs = append(reqs, api.BatchRequest{
					Label: fmt.Sprintf("assign site %d", siteID),
					Call: func(ctx context.Context) *api.Envelope {
						return app.Central.AssignSite(ctx, siteID, typ, serials)
					},
				})
				actions = append(actions, fmt.Sprintf("site %d", siteID))
			}

			msg := fmt.Sprintf("Move %d device(s) (%s) to %s?", len(serials), strings.Join(serials, ", "), strings.Join(actions, " and "))
			if err := app.Confirm(cmd.Context(), msg, yes); err != nil {
				return err
			}

			spin := app.Spinner("")
			spin.Start()
			results := app.Dispatcher.Batch(cmd.Context(), reqs,
				api.HaltOnFailure(nil),
				api.WithProgress(func(done, total int, label string) {
					spin.Update(progressText(label, done, total))
				}),
			)
			spin.Stop()

			labels := make([]string, len(reqs))
			for i, r := range reqs {
				labels[i] = r.Label
			}
			return app.Batch(labels, results, output.WithSummary(fmt.Sprintf("Moved %d device(s)", len(serials))))
		},
	}

	cmd.Flags().StringVarP(&group, "group", "g", "", "Destination configuration group")
	cmd.Flags().IntVar(&siteID, "site", 0, "Destination site id")
	cmd.Flags().StringVar(&devType, "type", "", "Device type for the site association (ap, switch, gw)")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip confirmation")
	return cmd
}
