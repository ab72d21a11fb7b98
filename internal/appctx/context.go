// Package appctx builds the per-invocation application object and carries
// it through the command context.
package appctx

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Pack3tL0ss/central-api-cli-sub004/internal/api"
	"github.com/Pack3tL0ss/central-api-cli-sub004/internal/auth"
	"github.com/Pack3tL0ss/central-api-cli-sub004/internal/central"
	"github.com/Pack3tL0ss/central-api-cli-sub004/internal/config"
	"github.com/Pack3tL0ss/central-api-cli-sub004/internal/logging"
	"github.com/Pack3tL0ss/central-api-cli-sub004/internal/observability"
	"github.com/Pack3tL0ss/central-api-cli-sub004/internal/output"
	"github.com/Pack3tL0ss/central-api-cli-sub004/internal/resilience"
	"github.com/Pack3tL0ss/central-api-cli-sub004/internal/tui"
)

type contextKey string

const appKey contextKey = "app"

// App holds everything a command needs for one invocation.
type App struct {
	Config  *config.Config
	Account *config.Account
	Logger  *zap.Logger
	Output  *output.Writer

	Store      *auth.Store
	Refresher  auth.Refresher
	Dispatcher *api.Dispatcher
	Central    *central.Client
	Limiter    *resilience.RateLimiter

	Collector *observability.SessionCollector
	Hooks     *observability.CLIHooks
	Trace     *observability.TraceWriter

	Flags GlobalFlags

	Stdout io.Writer
	Stderr io.Writer

	confirm  func(ctx context.Context, msg string) (bool, error)
	closeLog func()
}

// GlobalFlags holds values for global CLI flags.
type GlobalFlags struct {
	Account string
	Config  string
	Output  string
	JSON    bool
	JQ      string
	Quiet   bool

	Verbose   int
	Debug     bool
	Stats     bool
	Trace     bool
	NoKeyring bool
	Timeout   time.Duration
}

// Option adjusts NewApp.
type Option func(*appOptions)

type appOptions struct {
	stdout    io.Writer
	stderr    io.Writer
	transport api.Transport
	prompter  auth.TokenPrompter
	confirm   func(ctx context.Context, msg string) (bool, error)
}

// WithIO redirects command output and diagnostics.
func WithIO(stdout, stderr io.Writer) Option {
	return func(o *appOptions) {
		o.stdout = stdout
		o.stderr = stderr
	}
}

// WithTransport replaces the HTTP client used for Central calls.
func WithTransport(t api.Transport) Option {
	return func(o *appOptions) { o.transport = t }
}

// WithPrompter replaces the interactive token prompt.
func WithPrompter(p auth.TokenPrompter) Option {
	return func(o *appOptions) { o.prompter = p }
}

// WithConfirmer replaces the interactive yes/no question asked before
// commands that change Central configuration.
func WithConfirmer(fn func(ctx context.Context, msg string) (bool, error)) Option {
	return func(o *appOptions) { o.confirm = fn }
}

// NewApp resolves the selected account and wires the request pipeline.
// An unknown account is a usage error.
func NewApp(cfg *config.Config, flags GlobalFlags, opts ...Option) (*App, error) {
	o := appOptions{stdout: os.Stdout, stderr: os.Stderr}
	for _, opt := range opts {
		opt(&o)
	}

	acct, err := cfg.Account(flags.Account)
	switch {
	case errors.Is(err, config.ErrUnknownAccount):
		return nil, output.ErrUsageHint(err.Error(), "Use --account with one of the sections in "+cfg.Path)
	case err != nil:
		return nil, output.ErrConfig(err.Error(), err)
	}

	format, err := resolveFormat(flags)
	if err != nil {
		return nil, err
	}

	level := cfg.LogLevel
	if flags.Debug {
		level = "debug"
	}
	logger, closeLog, err := logging.New(logging.Options{
		Level:   level,
		File:    cfg.LogFile,
		Verbose: flags.Verbose > 0,
		Stderr:  o.stderr,
	})
	if err != nil {
		// The log file is best effort; keep going without it.
		fmt.Fprintf(o.stderr, "warning: %v\n", err)
		logger, closeLog = zap.NewNop(), func() {}
	}

	collector := observability.NewSessionCollector()
	trace := observability.NewTraceWriterTo(o.stderr)
	traceLevel := 0
	if flags.Trace {
		traceLevel = 1
	}
	hooks := observability.NewCLIHooks(traceLevel, collector, trace)

	httpClient := api.NewHTTPClient(cfg.Timeout, acct.SSLVerify)
	transport := o.transport
	if transport == nil {
		transport = httpClient
	}
	prompter := o.prompter
	if prompter == nil {
		prompter = tui.NewTokenPrompt(o.stderr)
	}

	store := auth.NewStore(cfg.TokenDir(), cfg.UseKeyring())
	limiter := resilience.NewRateLimiter(
		resilience.NewStore(resilience.AccountDir(cfg.CacheDir, acct.Name)),
		resilience.DefaultConfig(int(cfg.RateLimit)),
	)

	refresher := auth.NewOAuthRefresher(acct, httpClient)
	dispatcher := api.New(api.Options{
		Account:      acct,
		Store:        store,
		Refresher:    refresher,
		Prompter:     prompter,
		Reauthorizer: auth.NewLoginFlow(acct, httpClient),
		Limiter:      limiter,
		Hooks:        hooks,
		Logger:       logger,
		Transport:    transport,
	})

	return &App{
		Config:     cfg,
		Account:    acct,
		Logger:     logger,
		Output:     output.New(output.Options{Format: format, Writer: o.stdout, JQ: flags.JQ}),
		Store:      store,
		Refresher:  refresher,
		Dispatcher: dispatcher,
		Central:    central.New(dispatcher),
		Limiter:    limiter,
		Collector:  collector,
		Hooks:      hooks,
		Trace:      trace,
		Flags:      flags,
		Stdout:     o.stdout,
		Stderr:     o.stderr,
		confirm:    o.confirm,
		closeLog:   closeLog,
	}, nil
}

func resolveFormat(flags GlobalFlags) (output.Format, error) {
	switch {
	case flags.Quiet:
		return output.FormatQuiet, nil
	case flags.JSON:
		return output.FormatJSON, nil
	default:
		return output.ParseFormat(flags.Output)
	}
}

// Close flushes the log. Later calls do nothing.
func (a *App) Close() {
	if a.closeLog != nil {
		a.closeLog()
		a.closeLog = nil
	}
}

// OK outputs a success response, including stats when --stats is set.
func (a *App) OK(data any, opts ...output.ResponseOption) error {
	if a.Flags.Stats && a.Collector != nil {
		opts = append(opts, output.WithMeta("stats", a.Collector.Summary()))
	}
	return a.Output.OK(data, opts...)
}

// Err outputs an error response, printing stats to stderr when --stats is set.
func (a *App) Err(err error) error {
	if outputErr := a.Output.Err(err); outputErr != nil {
		return outputErr
	}
	a.printStats()
	return nil
}

// Envelope renders a dispatched call. A failing envelope becomes a typed
// error so the process exits non-zero.
func (a *App) Envelope(env *api.Envelope, opts ...output.ResponseOption) error {
	if !env.IsOK() {
		return output.ErrFromStatus(env.StatusCode, env.Error)
	}
	if env.RateLimit.Known {
		opts = append(opts, output.WithMeta("rate_limit", env.RateLimit))
		if env.RateLimit.NearLimit() {
			a.Logger.Warn("api.rate_limit_low", zap.String("quota", env.RateLimit.String()))
		}
	}
	return a.OK(env.Output, opts...)
}

// Batch renders a list of batch results. Each result keeps its own status;
// the command fails when any result failed.
func (a *App) Batch(labels []string, results []*api.Envelope, opts ...output.ResponseOption) error {
	return a.BatchChecked(labels, results, envelopeError, opts...)
}

// BatchChecked is Batch for replies whose failure is not visible in the HTTP
// status. check returns why a result failed, or "" when it succeeded.
func (a *App) BatchChecked(labels []string, results []*api.Envelope, check func(*api.Envelope) string, opts ...output.ResponseOption) error {
	rows := make([]map[string]any, len(results))
	var failed []string
	for i, env := range results {
		label := fmt.Sprintf("request %d", i+1)
		if i < len(labels) && labels[i] != "" {
			label = labels[i]
		}
		reason := check(env)
		row := map[string]any{
			"request":     label,
			"ok":          reason == "",
			"status_code": env.StatusCode,
			"output":      env.Output,
		}
		if reason != "" {
			row["error"] = reason
			failed = append(failed, label)
		}
		rows[i] = row
	}
	if len(failed) > 0 {
		if err := a.OK(rows, opts...); err != nil {
			return err
		}
		return output.ErrAPI(0, fmt.Sprintf("%d of %d requests failed: %s", len(failed), len(results), strings.Join(failed, ", ")))
	}
	return a.OK(rows, opts...)
}

func envelopeError(env *api.Envelope) string {
	switch {
	case env.IsOK():
		return ""
	case env.Error != "":
		return env.Error
	default:
		return fmt.Sprintf("request failed (HTTP %d)", env.StatusCode)
	}
}

// Confirm asks the operator to approve msg before a change is sent. yes
// skips the question. Without a terminal the command fails with a usage
// error, and a declined or aborted question is ErrCanceled.
func (a *App) Confirm(ctx context.Context, msg string, yes bool) error {
	if yes {
		return nil
	}
	confirm := a.confirm
	if confirm == nil {
		if !a.IsInteractive() {
			return output.ErrUsageHint("Confirmation required", "Re-run with --yes")
		}
		confirm = func(ctx context.Context, msg string) (bool, error) {
			return tui.Confirm(ctx, msg, false)
		}
	}

	ok, err := confirm(ctx, msg)
	switch {
	case errors.Is(err, tui.ErrAborted):
		return output.ErrCanceled()
	case err != nil:
		return err
	case !ok:
		return output.ErrCanceled()
	}
	return nil
}

// Spinner returns a progress spinner on stderr. It stays silent in quiet
// and machine output modes.
func (a *App) Spinner(message string) *tui.Spinner {
	return tui.NewSpinner(a.Stderr, message, !a.isMachineOutput() && !a.Flags.Trace)
}

// IsInteractive reports whether prompts can be shown.
func (a *App) IsInteractive() bool {
	return !a.isMachineOutput() && tui.IsInteractive()
}

func (a *App) isMachineOutput() bool {
	if a.Flags.Quiet || a.Flags.JSON || a.Flags.JQ != "" {
		return true
	}
	switch a.Output.Format() {
	case output.FormatJSON, output.FormatYAML, output.FormatQuiet:
		return true
	}
	return false
}

func (a *App) printStats() {
	if !a.Flags.Stats || a.Collector == nil || a.Trace == nil || a.isMachineOutput() {
		return
	}
	fmt.Fprintln(a.Stderr)
	a.Trace.WriteSummary(a.Collector.Summary())
}

// WithApp stores the app in the context.
func WithApp(ctx context.Context, app *App) context.Context {
	return context.WithValue(ctx, appKey, app)
}

// FromContext retrieves the app from the context.
func FromContext(ctx context.Context) *App {
	app, _ := ctx.Value(appKey).(*App)
	return app
}
