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

// NewCAASCmd creates the caas command group.
func NewCAASCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "caas",
		Short: "Send configuration commands to gateways",
		Long: `Run configuration commands on a gateway group or a single gateway (by MAC) through the CAAS API.

Central accepts the request even when commands fail, so each reply is checked
for its global and per-command status. A failed push exits non-zero.`,
	}
	cmd.AddCommand(newCAASSendCmd(), newCAASBatchCmd())
	return cmd
}

func newCAASSendCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "send <group|mac> <command>...",
		Short: "Send commands to one target",
		Example: `  cencli caas send Branch "netdestination guest" "host 10.0.0.1"
  cencli caas send 20:4c:03:aa:bb:cc "hostname gw1" --yes`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFrom(cmd)
			if err != nil {
				return err
			}
			target, cmds := args[0], args[1:]

			msg := fmt.Sprintf("Send %d command(s) to %s?\n  %s", len(cmds), target, strings.Join(cmds, "\n  "))
			if err := app.Confirm(cmd.Context(), msg, yes); err != nil {
				return err
			}

			env := collect(app, func() *api.Envelope {
				return app.Central.SendCommands(cmd.Context(), target, cmds)
			})
			if !env.IsOK() {
				return app.Envelope(env)
			}

			report, ok := central.EvalCAAS(env)
			if !ok {
				return output.ErrAPI(env.StatusCode, central.CAASError(env))
			}
			summary := fmt.Sprintf("Sent %d command(s) to %s: %s", len(cmds), target, report.Result)
			if err := app.OK(report, output.WithSummary(summary)); err != nil {
				return err
			}
			if !report.OK {
				return output.ErrAPI(env.StatusCode, central.CAASError(env))
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip confirmation")
	return cmd
}

func newCAASBatchCmd() *cobra.Command {
	var (
		targets []string
		file    string
		stop    bool
		yes     bool
	)

	cmd := &cobra.Command{
		Use:   "batch --target <group|mac>... --file <cmds.txt>",
		Short: "Send a command file to several targets",
		Long: `Send the commands in a file (one per line, '#' comments ignored, '-' for stdin)
to each target in turn. Every target gets its own result.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFrom(cmd)
			if err != nil {
				return err
			}
			if len(targets) == 0 || file == "" {
				return output.ErrUsage("--target and --file are required")
			}
			cmds, err := readLines(file, cmd.InOrStdin())
			if err != nil {
				return err
			}
			if len(cmds) == 0 {
				return output.ErrUsage("no commands in " + file)
			}

			msg := fmt.Sprintf("Send %d command(s) to %d target(s) (%s)?", len(cmds), len(targets), strings.Join(targets, ", "))
			if err := app.Confirm(cmd.Context(), msg, yes); err != nil {
				return err
			}

			reqs := make([]api.BatchRequest, len(targets))
			for i, target := range targets {
				reqs[i] = api.BatchRequest{
					Label: target,
					Call: func(ctx context.Context) *api.Envelope {
						return app.Central.SendCommands(ctx, target, cmds)
					},
				}
			}

			var opts []api.BatchOption
			if stop {
				opts = append(opts, api.HaltOnFailure(central.CAASFailed))
			}
			spin := app.Spinner("")
			opts = append(opts, api.WithProgress(func(done, total int, label string) {
				spin.Update(progressText(label, done, total))
			}))
			spin.Start()
			results := app.Dispatcher.Batch(cmd.Context(), reqs, opts...)
			spin.Stop()

			for _, env := range results {
				if report, ok := central.EvalCAAS(env); ok {
					env.Output = report
				}
			}
			return app.BatchChecked(targets, results, central.CAASError,
				output.WithSummary(fmt.Sprintf("Sent %d command(s) to %d target(s)", len(cmds), len(targets))))
		},
	}

	cmd.Flags().StringSliceVarP(&targets, "target", "t", nil, "Gateway group or MAC (repeatable)")
	cmd.Flags().StringVarP(&file, "file", "f", "", "File of commands, '-' for stdin")
	cmd.Flags().BoolVar(&stop, "stop-on-failure", false, "Skip remaining targets after a failure")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip confirmation")
	return cmd
}
