package commands

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Pack3tL0ss/central-api-cli-sub004/internal/appctx"
	"github.com/Pack3tL0ss/central-api-cli-sub004/internal/auth"
	"github.com/Pack3tL0ss/central-api-cli-sub004/internal/output"
	"github.com/Pack3tL0ss/central-api-cli-sub004/internal/tui"
)

// NewAuthCmd creates the auth command group.
func NewAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage Central API tokens",
		Long:  "Show, refresh, import and remove the stored tokens for the selected account.",
	}

	cmd.AddCommand(
		newAuthStatusCmd(),
		newAuthRefreshCmd(),
		newAuthImportCmd(),
		newAuthLogoutCmd(),
	)
	return cmd
}

func newAuthStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show token and quota status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFrom(cmd)
			if err != nil {
				return err
			}

			status := map[string]any{
				"account":  app.Account.Name,
				"base_url": app.Account.BaseURL,
				"store":    app.Store.Location(app.Account.Name),
			}

			stored, err := app.Store.Load(app.Account.Name)
			switch {
			case err == nil:
				status["authenticated"] = true
				status["source"] = "store"
				addExpiry(status, stored)
			case errors.Is(err, auth.ErrNotFound):
				seed := app.Account.Token != nil && app.Account.Token.AccessToken != ""
				status["authenticated"] = seed
				if seed {
					status["source"] = "config"
				}
			default:
				return output.ErrConfig("cannot read stored tokens", err)
			}

			if q, err := app.Limiter.Quota(); err == nil && q.Known() {
				status["quota"] = fmt.Sprintf("%d of %d remaining (as of %s)",
					q.RemainingDay, q.LimitDay, q.ObservedAt.Local().Format(time.RFC3339))
			}

			summary := "Not authenticated"
			if status["authenticated"] == true {
				summary = "Authenticated for " + app.Account.Name
			}
			return app.OK(status, output.WithSummary(summary))
		},
	}
}

func addExpiry(status map[string]any, creds *auth.Credentials) {
	if creds.ExpiresAt == nil {
		return
	}
	status["expires_at"] = creds.ExpiresAt.Format(time.RFC3339)
	status["expired"] = creds.Expired(time.Now())
}

func newAuthRefreshCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Refresh the access token now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFrom(cmd)
			if err != nil {
				return err
			}

			res := app.Refresher.Refresh(cmd.Context(), app.Dispatcher.Credentials())
			if !res.OK() {
				app.Logger.Error("auth.refresh_failed", zap.String("step", "manual"), zap.Error(res.Reason))
				msg := "Token refresh failed"
				if res.Reason != nil {
					msg += ": " + res.Reason.Error()
				}
				return output.ErrAuth(msg)
			}

			if err := saveCredentials(app, res.Credentials); err != nil {
				return err
			}
			app.Logger.Info("auth.refreshed", zap.String("step", "manual"))

			out := map[string]any{"account": app.Account.Name, "store": app.Store.Location(app.Account.Name)}
			addExpiry(out, res.Credentials)
			return app.OK(out, output.WithSummary("Tokens refreshed"))
		},
	}
}

func newAuthImportCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "import [access_token refresh_token]",
		Short: "Store tokens generated in the Central UI",
		Long: `Store tokens for the selected account. Accepts the JSON from Central's
"Download Tokens" dialog (via --file, '-' for stdin, or an interactive prompt)
or an access token and refresh token as arguments.`,
		Args: cobra.RangeArgs(0, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFrom(cmd)
			if err != nil {
				return err
			}

			var input string
			switch {
			case len(args) == 2:
				input = args[0] + " " + args[1]
			case len(args) == 1:
				return output.ErrUsage("both access_token and refresh_token are required")
			case file != "":
				lines, err := readLines(file, cmd.InOrStdin())
				if err != nil {
					return err
				}
				input = strings.Join(lines, "\n")
			case app.IsInteractive():
				creds, err := tui.NewTokenPrompt(app.Stderr).PromptTokens(cmd.Context(), auth.PromptInfo{
					Account:    app.Account.Name,
					BaseURL:    app.Account.BaseURL,
					CustomerID: app.Account.CustomerID,
					ClientID:   app.Account.ClientID,
					Reason:     "import",
				})
				if err != nil {
					return output.ErrUsage(err.Error())
				}
				return finishImport(app, creds)
			default:
				return output.ErrUsageHint("no tokens given", "Pass tokens as arguments or use --file")
			}

			creds, err := auth.ParseTokenInput(input)
			if err != nil {
				return output.ErrUsage(err.Error())
			}
			return finishImport(app, creds)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Token JSON file, '-' for stdin")
	return cmd
}

func finishImport(app *appctx.App, creds *auth.Credentials) error {
	if err := saveCredentials(app, creds); err != nil {
		return err
	}
	return app.OK(map[string]any{
		"account": app.Account.Name,
		"store":   app.Store.Location(app.Account.Name),
	}, output.WithSummary("Tokens stored for "+app.Account.Name))
}

func saveCredentials(app *appctx.App, creds *auth.Credentials) error {
	if err := app.Store.Save(app.Account.Name, creds); err != nil {
		return output.ErrConfig("cannot store tokens", err)
	}
	app.Dispatcher.SetCredentials(creds)
	return nil
}

func newAuthLogoutCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Remove stored tokens",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFrom(cmd)
			if err != nil {
				return err
			}

			if !yes {
				if !app.IsInteractive() {
					return output.ErrUsageHint("Confirmation required", "Re-run with --yes")
				}
				ok, err := tui.ConfirmDangerous(cmd.Context(), "Remove stored tokens for "+app.Account.Name+"?")
				if err != nil {
					return err
				}
				if !ok {
					return output.ErrCanceled()
				}
			}

			if err := app.Store.Delete(app.Account.Name); err != nil {
				return output.ErrConfig("cannot remove tokens", err)
			}
			return app.OK(map[string]string{"status": "logged_out", "account": app.Account.Name},
				output.WithSummary("Removed stored tokens"))
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip confirmation")
	return cmd
}
