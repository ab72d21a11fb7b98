package commands

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Pack3tL0ss/central-api-cli-sub004/internal/api"
	"github.com/Pack3tL0ss/central-api-cli-sub004/internal/output"
)

// NewAPICmd creates the api command for raw API access.
func NewAPICmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "api <verb> <path>",
		Short: "Raw API access",
		Long:  "Make raw requests to any Central endpoint through the same token refresh and rate limiting as other commands.",
	}

	cmd.AddCommand(
		newAPIVerbCmd(http.MethodGet),
		newAPIVerbCmd(http.MethodPost),
		newAPIVerbCmd(http.MethodPatch),
		newAPIVerbCmd(http.MethodPut),
		newAPIVerbCmd(http.MethodDelete),
	)
	return cmd
}

func newAPIVerbCmd(method string) *cobra.Command {
	var (
		params []string
		data   string
		all    bool
	)

	verb := strings.ToLower(method)
	cmd := &cobra.Command{
		Use:   verb + " <path>",
		Short: method + " request to the API",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFrom(cmd)
			if err != nil {
				return err
			}

			req := api.NewRequest(method, parsePath(args[0]))
			kv, err := parseParams(params)
			if err != nil {
				return err
			}
			for k, v := range kv {
				req.Param(k, v)
			}

			if data != "" {
				var body any
				if err := json.Unmarshal([]byte(data), &body); err != nil {
					return output.ErrUsageHint("Invalid JSON data", fmt.Sprintf("JSON parse error: %v", err))
				}
				req.Body = json.RawMessage(data)
			}

			env := collect(app, func() *api.Envelope {
				if all && method == http.MethodGet {
					return app.Dispatcher.DoAll(cmd.Context(), req, app.Config.Limit)
				}
				return app.Dispatcher.Do(cmd.Context(), req)
			})
			return app.Envelope(env, output.WithSummary(fmt.Sprintf("%s %s: %d", method, req.Path, env.StatusCode)))
		},
	}

	cmd.Flags().StringArrayVarP(&params, "param", "p", nil, "Query parameter key=value (repeatable)")
	if method != http.MethodGet && method != http.MethodDelete {
		cmd.Flags().StringVarP(&data, "data", "d", "", "JSON request body")
	}
	if method == http.MethodGet {
		cmd.Flags().BoolVar(&all, "all", false, "Follow limit/offset pagination and combine pages")
	}
	return cmd
}

// parsePath accepts a path with or without a leading slash, or a full
// Central URL, and returns the path part.
func parsePath(input string) string {
	input = strings.TrimSpace(input)
	if i := strings.Index(input, "://"); i >= 0 {
		rest := input[i+3:]
		if j := strings.Index(rest, "/"); j >= 0 {
			return rest[j:]
		}
		return "/"
	}
	if !strings.HasPrefix(input, "/") {
		input = "/" + input
	}
	return input
}
