// Package commands implements the cencli subcommands. Each command builds
// its arguments, calls internal/central through the App and renders the
// resulting envelope.
package commands

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Pack3tL0ss/central-api-cli-sub004/internal/api"
	"github.com/Pack3tL0ss/central-api-cli-sub004/internal/appctx"
	"github.com/Pack3tL0ss/central-api-cli-sub004/internal/output"
)

// All returns every top-level subcommand.
func All() []*cobra.Command {
	return []*cobra.Command{
		NewShowCmd(),
		NewMoveCmd(),
		NewCAASCmd(),
		NewAPICmd(),
		NewTaskCmd(),
		NewAuthCmd(),
		NewConfigCmd(),
		NewVersionCmd(),
	}
}

// appFrom returns the App built by the root command.
func appFrom(cmd *cobra.Command) (*appctx.App, error) {
	app := appctx.FromContext(cmd.Context())
	if app == nil {
		return nil, fmt.Errorf("app not initialized")
	}
	return app, nil
}

// collect runs fn under the "Collecting Data..." spinner.
func collect(app *appctx.App, fn func() *api.Envelope) *api.Envelope {
	var env *api.Envelope
	app.Spinner("").Run(func() { env = fn() })
	return env
}

// progressText labels the batch request about to start. done counts the
// requests already finished, so the first one shows as 1/total.
func progressText(label string, done, total int) string {
	return fmt.Sprintf("%s (%d/%d)", label, done+1, total)
}

// readLines reads non-empty lines from path ("-" for stdin), skipping
// lines starting with '#'.
func readLines(path string, stdin io.Reader) ([]string, error) {
	var r io.Reader = stdin
	if path != "-" {
		f, err := os.Open(path) //nolint:gosec // G304: path is an operator-supplied input file
		if err != nil {
			return nil, output.ErrUsage(fmt.Sprintf("cannot read %s: %v", path, err))
		}
		defer f.Close()
		r = f
	}

	var lines []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return lines, nil
}

// parseParams turns key=value flags into a map.
func parseParams(pairs []string) (map[string]string, error) {
	params := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, output.ErrUsageHint(fmt.Sprintf("Invalid parameter %q", p), "Use --param key=value")
		}
		params[strings.TrimSpace(k)] = v
	}
	return params, nil
}
