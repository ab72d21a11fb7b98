// Package cli wires the root command, global flags and process exit codes.
package cli

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"regexp"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/Pack3tL0ss/central-api-cli-sub004/internal/appctx"
	"github.com/Pack3tL0ss/central-api-cli-sub004/internal/commands"
	"github.com/Pack3tL0ss/central-api-cli-sub004/internal/config"
	"github.com/Pack3tL0ss/central-api-cli-sub004/internal/output"
	"github.com/Pack3tL0ss/central-api-cli-sub004/internal/version"
)

// skipSetup lists commands that run without config or credentials.
var skipSetup = map[string]bool{
	"help":       true,
	"version":    true,
	"completion": true,
}

// NewRootCmd creates the root cobra command. opts are passed to
// appctx.NewApp once flags are parsed.
func NewRootCmd(opts ...appctx.Option) *cobra.Command {
	var flags appctx.GlobalFlags

	cmd := &cobra.Command{
		Use:   "cencli",
		Short: "Command-line interface for the Aruba Central API",
		Long: `cencli talks to the Aruba Central REST API. It refreshes expired tokens
on its own, paces requests to Central's rate limits and prints results as
text, JSON or YAML.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if skipSetup[cmd.Name()] {
				return nil
			}

			cfg, err := config.Load(config.FlagOverrides{
				Account:   flags.Account,
				Path:      flags.Config,
				Debug:     flags.Debug,
				NoKeyring: flags.NoKeyring,
				Timeout:   flags.Timeout,
			})
			if err != nil {
				return output.ErrConfig(err.Error(), err)
			}

			app, err := appctx.NewApp(cfg, flags, append([]appctx.Option{appctx.WithIO(cmd.OutOrStdout(), cmd.ErrOrStderr())}, opts...)...)
			if err != nil {
				return err
			}
			cmd.SetContext(appctx.WithApp(cmd.Context(), app))
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if app := appctx.FromContext(cmd.Context()); app != nil {
				app.Close()
			}
		},
	}

	cmd.Flags().SetInterspersed(true)
	cmd.PersistentFlags().SetInterspersed(true)

	pf := cmd.PersistentFlags()
	pf.StringVarP(&flags.Account, "account", "a", "", "Account section in config.yaml (default central_info)")
	pf.StringVar(&flags.Config, "config", "", "Path to config.yaml")

	pf.StringVarP(&flags.Output, "output", "o", "", "Output format: json, yaml, text or quiet (default: text on a terminal, json otherwise)")
	pf.BoolVar(&flags.JSON, "json", false, "Output as JSON")
	pf.StringVar(&flags.JQ, "jq", "", "Filter output data with a jq expression")
	pf.BoolVarP(&flags.Quiet, "quiet", "q", false, "Output data only, no envelope")

	pf.CountVarP(&flags.Verbose, "verbose", "v", "Mirror log lines to stderr")
	pf.BoolVar(&flags.Debug, "debug", false, "Log at debug level")
	pf.BoolVar(&flags.Stats, "stats", false, "Show request statistics")
	pf.BoolVar(&flags.Trace, "trace", false, "Trace requests, retries and token recovery on stderr")
	pf.BoolVar(&flags.NoKeyring, "no-keyring", false, "Store tokens in files instead of the system keyring")
	pf.DurationVar(&flags.Timeout, "timeout", 0, "HTTP timeout (default from config, 30s)")

	for _, sub := range commands.All() {
		cmd.AddCommand(sub)
	}
	return cmd
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return run(ctx, NewRootCmd(), os.Args[1:], os.Stdout)
}

func run(ctx context.Context, cmd *cobra.Command, args []string, stdout io.Writer) int {
	cmd.SetArgs(args)
	cmd.SetOut(stdout)

	executed, err := cmd.ExecuteContextC(ctx)
	if err == nil {
		return output.ExitOK
	}

	err = transformCobraError(err)
	if errors.Is(err, context.Canceled) {
		err = output.ErrCanceled()
	}
	apiErr := output.AsError(err)

	if executed != nil {
		if app := appctx.FromContext(executed.Context()); app != nil {
			_ = app.Err(err)
			app.Close()
			return apiErr.ExitCode()
		}
	}

	// Setup failed before the app existed; honor the output flags directly.
	_ = output.New(output.Options{Format: formatFromFlags(cmd.PersistentFlags()), Writer: stdout}).Err(err)
	return apiErr.ExitCode()
}

// formatFromFlags resolves the output format from parsed global flags.
// Invalid --output values fall back to auto-detection.
func formatFromFlags(pf *pflag.FlagSet) output.Format {
	if quiet, _ := pf.GetBool("quiet"); quiet {
		return output.FormatQuiet
	}
	if jsonFlag, _ := pf.GetBool("json"); jsonFlag {
		return output.FormatJSON
	}
	if o, _ := pf.GetString("output"); o != "" {
		if f, err := output.ParseFormat(o); err == nil {
			return f
		}
	}
	return output.FormatAuto
}

var shorthandFlag = regexp.MustCompile(`unknown shorthand flag: '.' in (-\w)`)

// transformCobraError maps cobra's argument and flag errors to usage errors.
func transformCobraError(err error) error {
	msg := err.Error()

	switch {
	case strings.HasPrefix(msg, "flag needs an argument: "):
		return output.ErrUsage(strings.TrimPrefix(msg, "flag needs an argument: ") + " requires a value")
	case strings.HasPrefix(msg, "unknown flag: "):
		return output.ErrUsage("Unknown option: " + strings.TrimPrefix(msg, "unknown flag: "))
	case strings.HasPrefix(msg, "unknown shorthand flag: "):
		if m := shorthandFlag.FindStringSubmatch(msg); len(m) > 1 {
			return output.ErrUsage("Unknown option: " + m[1])
		}
	case strings.HasPrefix(msg, "unknown command "):
		return output.ErrUsageHint(msg, "Run cencli --help")
	case strings.Contains(msg, "invalid argument"),
		strings.Contains(msg, "arg(s)"),
		strings.HasPrefix(msg, "required flag(s) "):
		return output.ErrUsage(msg)
	}
	return err
}
