package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Pack3tL0ss/central-api-cli-sub004/internal/api"
	"github.com/Pack3tL0ss/central-api-cli-sub004/internal/output"
)

// NewTaskCmd creates the task command.
func NewTaskCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "task <task_id>",
		Short: "Show the status of an asynchronous task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFrom(cmd)
			if err != nil {
				return err
			}
			env := collect(app, func() *api.Envelope {
				return app.Central.GetTaskStatus(cmd.Context(), args[0])
			})
			summary := ""
			if state, ok := env.GetField("state"); ok {
				summary = fmt.Sprintf("Task %s: %v", args[0], state)
			}
			return app.Envelope(env, output.WithSummary(summary))
		},
	}
}
