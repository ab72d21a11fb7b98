package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Pack3tL0ss/central-api-cli-sub004/internal/output"
)

// NewConfigCmd creates the config command group.
func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect configuration",
	}
	cmd.AddCommand(newConfigShowCmd())
	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show effective configuration",
		Long:  "Display the effective global settings with their sources and the configured accounts. Secrets are never shown.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFrom(cmd)
			if err != nil {
				return err
			}
			cfg := app.Config

			settings := map[string]any{}
			add := func(key string, value any) {
				source := cfg.Sources[key]
				if source == "" {
					source = "default"
				}
				settings[key] = map[string]any{"value": value, "source": source}
			}
			add("account", app.Account.Name)
			add("ssl_verify", cfg.SSLVerify)
			add("timeout", cfg.Timeout.String())
			add("rate_limit", cfg.RateLimit)
			add("limit", cfg.Limit)
			add("debug", cfg.Debug)
			add("log_level", cfg.LogLevel)
			add("log_file", cfg.LogFile)
			add("no_keyring", cfg.NoKeyring)
			add("token_store", app.Store.Location(app.Account.Name))

			accounts := make([]map[string]any, 0, len(cfg.Accounts))
			for _, name := range cfg.AccountNames() {
				a := cfg.Accounts[name]
				accounts = append(accounts, map[string]any{
					"name":        name,
					"base_url":    a.BaseURL,
					"customer_id": a.CustomerID,
					"client_id":   a.ClientID,
					"ssl_verify":  a.SSLVerify,
					"login":       a.Username != "" && a.Password != "",
					"seed_token":  a.Token != nil && a.Token.RefreshToken != "",
					"selected":    name == app.Account.Name,
				})
			}

			return app.OK(map[string]any{
				"path":     cfg.Path,
				"settings": settings,
				"accounts": accounts,
			}, output.WithSummary(fmt.Sprintf("Effective configuration (%s)", cfg.Path)))
		},
	}
}
