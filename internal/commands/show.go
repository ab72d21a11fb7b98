package commands

import (
	"context"
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/Pack3tL0ss/central-api-cli-sub004/internal/api"
	"github.com/Pack3tL0ss/central-api-cli-sub004/internal/appctx"
	"github.com/Pack3tL0ss/central-api-cli-sub004/internal/central"
	"github.com/Pack3tL0ss/central-api-cli-sub004/internal/output"
)

// NewShowCmd creates the show command group.
func NewShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show details about Central objects",
		Long:  "Show sites, groups, devices, templates, variables, certificates and clients.",
	}

	cmd.AddCommand(
		newShowSitesCmd(),
		newShowGroupsCmd(),
		newShowDevicesCmd(),
		newShowSwarmsCmd(),
		newShowInventoryCmd(),
		newShowTemplatesCmd(),
		newShowVariablesCmd(),
		newShowCertsCmd(),
		newShowClientsCmd(),
	)
	return cmd
}

// showRun wraps the common shape of show commands: fetch under a spinner,
// then render.
func showRun(fetch func(ctx context.Context, app *appctx.App, args []string) (*api.Envelope, error)) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		app, err := appFrom(cmd)
		if err != nil {
			return err
		}
		var env *api.Envelope
		var fetchErr error
		app.Spinner("").Run(func() { env, fetchErr = fetch(cmd.Context(), app, args) })
		if fetchErr != nil {
			return fetchErr
		}
		return app.Envelope(env, output.WithSummary(summarize(env)))
	}
}

func summarize(env *api.Envelope) string {
	if n := env.Len(); n > 0 {
		if _, ok := env.Output.([]any); ok {
			return fmt.Sprintf("%d items", n)
		}
	}
	return ""
}

func newShowSitesCmd() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:     "sites [site_id]",
		Aliases: []string{"site"},
		Short:   "Show sites",
		Args:    cobra.MaximumNArgs(1),
		RunE: showRun(func(ctx context.Context, app *appctx.App, args []string) (*api.Envelope, error) {
			if len(args) == 1 {
				return app.Central.GetSite(ctx, args[0]), nil
			}
			env := app.Central.GetAllSites(ctx)
			if !all {
				env = central.FilterDefaultSites(env)
			}
			return env, nil
		}),
	}
	cmd.Flags().BoolVar(&all, "all", false, "Include the visualrf_default site")
	return cmd
}

func newShowGroupsCmd() *cobra.Command {
	var props bool
	return withFlags(&cobra.Command{
		Use:     "groups [group...]",
		Aliases: []string{"group"},
		Short:   "Show configuration groups",
		Long:    "List group names, or with --properties the properties of the given groups (all groups when none are named).",
		RunE: showRun(func(ctx context.Context, app *appctx.App, args []string) (*api.Envelope, error) {
			if !props {
				return app.Central.GetGroups(ctx), nil
			}
			groups := args
			if len(groups) == 0 {
				env := app.Central.GetGroups(ctx)
				if !env.IsOK() {
					return env, nil
				}
				for _, g := range env.Output.([]any) {
					if s, ok := g.(string); ok {
						groups = append(groups, s)
					}
				}
			}
			return app.Central.GetGroupProperties(ctx, groups), nil
		}),
	}, func(c *cobra.Command) {
		c.Flags().BoolVarP(&props, "properties", "p", false, "Show group properties")
	})
}

func newShowDevicesCmd() *cobra.Command {
	var f central.DeviceFilter
	return withFlags(&cobra.Command{
		Use:     "devices [ap|switch|gw]",
		Aliases: []string{"device"},
		Short:   "Show monitored devices",
		Long:    "Show monitored devices of one type, or all types when no type is given.",
		Args:    cobra.MaximumNArgs(1),
		RunE: showRun(func(ctx context.Context, app *appctx.App, args []string) (*api.Envelope, error) {
			if len(args) == 1 {
				typ, err := central.ParseDeviceType(args[0])
				if err != nil {
					return nil, output.ErrUsage(err.Error())
				}
				return app.Central.GetDevices(ctx, typ, f), nil
			}
			return allDevices(ctx, app, f), nil
		}),
	}, func(c *cobra.Command) {
		c.Flags().StringVar(&f.Group, "group", "", "Filter by group")
		c.Flags().StringVar(&f.Site, "site", "", "Filter by site name")
		c.Flags().StringVar(&f.Label, "label", "", "Filter by label")
		c.Flags().StringVar(&f.Serial, "serial", "", "Filter by serial")
		c.Flags().StringVar(&f.Status, "status", "", "Filter by status (up or down)")
	})
}

// allDevices fetches every device type as one batch and merges the lists,
// tagging each device with its type. The first failing type fails the whole
// listing.
func allDevices(ctx context.Context, app *appctx.App, f central.DeviceFilter) *api.Envelope {
	types := []central.DeviceType{central.DeviceAP, central.DeviceSwitch, central.DeviceGateway}
	reqs := make([]api.BatchRequest, len(types))
	for i, typ := range types {
		reqs[i] = api.BatchRequest{
			Label: string(typ),
			Call:  func(ctx context.Context) *api.Envelope { return app.Central.GetDevices(ctx, typ, f) },
		}
	}
	results := app.Dispatcher.Batch(ctx, reqs, api.HaltOnFailure(nil))

	var merged []any
	for i, env := range results {
		if !env.IsOK() {
			return env
		}
		list, _ := env.Output.([]any)
		for _, d := range list {
			if m, ok := d.(map[string]any); ok {
				m["type"] = string(types[i])
			}
			merged = append(merged, d)
		}
	}
	last := results[len(results)-1]
	if merged == nil {
		merged = []any{}
	}
	last.Output = merged
	return last
}

func newShowSwarmsCmd() *cobra.Command {
	var group string
	return withFlags(&cobra.Command{
		Use:   "swarms",
		Short: "Show AP swarms",
		Args:  cobra.NoArgs,
		RunE: showRun(func(ctx context.Context, app *appctx.App, _ []string) (*api.Envelope, error) {
			return app.Central.GetSwarms(ctx, group), nil
		}),
	}, func(c *cobra.Command) {
		c.Flags().StringVar(&group, "group", "", "Filter by group")
	})
}

func newShowInventoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inventory [all|iap|switch|gateway]",
		Short: "Show the device inventory",
		Args:  cobra.MaximumNArgs(1),
		RunE: showRun(func(ctx context.Context, app *appctx.App, args []string) (*api.Envelope, error) {
			sku := "all"
			if len(args) == 1 {
				sku = args[0]
				if !slices.Contains([]string{"all", "iap", "switch", "gateway"}, sku) {
					return nil, output.ErrUsageHint("Invalid inventory type "+sku, "Use all, iap, switch or gateway")
				}
			}
			return app.Central.GetInventory(ctx, sku), nil
		}),
	}
}

func newShowTemplatesCmd() *cobra.Command {
	var serial string
	return withFlags(&cobra.Command{
		Use:     "templates <group> [template]",
		Aliases: []string{"template"},
		Short:   "Show templates in a group",
		Long:    "List the templates of a template group, show one template, or with --device show a device's template with variables applied.",
		Args:    cobra.RangeArgs(0, 2),
		RunE: showRun(func(ctx context.Context, app *appctx.App, args []string) (*api.Envelope, error) {
			switch {
			case serial != "":
				return app.Central.GetVariablisedTemplate(ctx, serial), nil
			case len(args) == 2:
				return app.Central.GetTemplate(ctx, args[0], args[1]), nil
			case len(args) == 1:
				return app.Central.GetTemplates(ctx, args[0]), nil
			default:
				return nil, output.ErrUsage("group required (or --device <serial>)")
			}
		}),
	}, func(c *cobra.Command) {
		c.Flags().StringVar(&serial, "device", "", "Show the variablised template for this serial")
	})
}

func newShowVariablesCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "variables <serial>",
		Aliases: []string{"vars"},
		Short:   "Show a device's template variables",
		Args:    cobra.ExactArgs(1),
		RunE: showRun(func(ctx context.Context, app *appctx.App, args []string) (*api.Envelope, error) {
			return app.Central.GetVariables(ctx, args[0]), nil
		}),
	}
}

func newShowCertsCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "certs [name]",
		Aliases: []string{"certificates"},
		Short:   "Show uploaded certificates",
		Args:    cobra.MaximumNArgs(1),
		RunE: showRun(func(ctx context.Context, app *appctx.App, args []string) (*api.Envelope, error) {
			q := ""
			if len(args) == 1 {
				q = args[0]
			}
			return app.Central.GetCertificates(ctx, q), nil
		}),
	}
}

func newShowClientsCmd() *cobra.Command {
	var f central.ClientFilter
	return withFlags(&cobra.Command{
		Use:   "clients [wireless|wired]",
		Short: "Show connected clients",
		Args:  cobra.MaximumNArgs(1),
		RunE: showRun(func(ctx context.Context, app *appctx.App, args []string) (*api.Envelope, error) {
			typ := central.ClientsWireless
			if len(args) == 1 {
				typ = central.ClientType(args[0])
			}
			if typ != central.ClientsWireless && typ != central.ClientsWired {
				return nil, output.ErrUsageHint("Invalid client type "+string(typ), "Use wireless or wired")
			}
			return app.Central.GetClients(ctx, typ, f), nil
		}),
	}, func(c *cobra.Command) {
		c.Flags().StringVar(&f.Group, "group", "", "Filter by group")
		c.Flags().StringVar(&f.Site, "site", "", "Filter by site name")
		c.Flags().StringVar(&f.Label, "label", "", "Filter by label")
		c.Flags().StringVar(&f.Serial, "serial", "", "Filter by connected device serial")
	})
}

// withFlags applies flag registration to cmd and returns it.
func withFlags(cmd *cobra.Command, register func(*cobra.Command)) *cobra.Command {
	register(cmd)
	return cmd
}
