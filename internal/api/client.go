// Package api dispatches Central REST calls: it attaches credentials, recovers
// from expired tokens, paces requests and turns every reply into an Envelope.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Pack3tL0ss/central-api-cli-sub004/internal/auth"
	"github.com/Pack3tL0ss/central-api-cli-sub004/internal/config"
	"github.com/Pack3tL0ss/central-api-cli-sub004/internal/logging"
	"github.com/Pack3tL0ss/central-api-cli-sub004/internal/version"
)

const (
	// MaxAttempts bounds transport attempts for one call: the original send
	// and at most one retry after credential recovery.
	MaxAttempts = 2

	// maxRateLimitRetries bounds re-sends after HTTP 429. They do not count
	// against MaxAttempts.
	maxRateLimitRetries = 3

	// logFieldMax caps params and body in request logs.
	logFieldMax = 256

	// DefaultPageLimit is the page size DoAll uses when none is given.
	DefaultPageLimit = 100

	maxPages = 1000
)

// Options configures a Dispatcher. Only Account is required.
type Options struct {
	Account      *config.Account
	Store        auth.CredentialStore
	Refresher    auth.Refresher
	Prompter     auth.TokenPrompter
	Reauthorizer auth.Reauthorizer
	Limiter      RateLimiter
	Hooks        Hooks
	Logger       *zap.Logger
	Transport    Transport
}

// Dispatcher sends requests for one account. It holds the account's live
// credential set and replaces it as a whole after a successful recovery.
type Dispatcher struct {
	account      *config.Account
	store        auth.CredentialStore
	refresher    auth.Refresher
	prompter     auth.TokenPrompter
	reauthorizer auth.Reauthorizer
	limiter      RateLimiter
	hooks        Hooks
	logger       *zap.Logger
	transport    Transport

	credsOnce sync.Once
	mu        sync.Mutex
	creds     *auth.Credentials

	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a Dispatcher.
func New(opts Options) *Dispatcher {
	d := &Dispatcher{
		account:      opts.Account,
		store:        opts.Store,
		refresher:    opts.Refresher,
		prompter:     opts.Prompter,
		reauthorizer: opts.Reauthorizer,
		limiter:      opts.Limiter,
		hooks:        opts.Hooks,
		logger:       opts.Logger,
		transport:    opts.Transport,
		sleep:        sleepContext,
	}
	if d.account == nil {
		d.account = &config.Account{}
	}
	if d.prompter == nil {
		d.prompter = auth.NoPrompt{}
	}
	if d.hooks == nil {
		d.hooks = NopHooks{}
	}
	if d.logger == nil {
		d.logger = zap.NewNop()
	}
	if d.transport == nil {
		d.transport = NewHTTPClient(DefaultTimeout, d.account.SSLVerify)
	}
	d.logger = d.logger.With(zap.String("account", d.account.Name))
	return d
}

// Account returns the account this dispatcher serves.
func (d *Dispatcher) Account() *config.Account {
	return d.account
}

// Credentials returns the live credential set, loading it on first use.
func (d *Dispatcher) Credentials() *auth.Credentials {
	d.credsOnce.Do(d.loadCredentials)
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.creds
}

// SetCredentials replaces the live credential set without persisting it.
func (d *Dispatcher) SetCredentials(creds *auth.Credentials) {
	d.credsOnce.Do(func() {})
	d.mu.Lock()
	d.creds = creds
	d.mu.Unlock()
}

// loadCredentials reads the store, falling back to the seed token from config.
func (d *Dispatcher) loadCredentials() {
	var creds *auth.Credentials
	if d.store != nil {
		c, err := d.store.Load(d.account.Name)
		switch {
		case err == nil:
			creds = c
		case errors.Is(err, auth.ErrNotFound):
		default:
			d.logger.Warn("auth.store_failed", zap.String("op", "load"), zap.Error(err))
		}
	}
	if creds == nil {
		creds = d.seedCredentials()
	}
	d.mu.Lock()
	d.creds = creds
	d.mu.Unlock()
}

func (d *Dispatcher) seedCredentials() *auth.Credentials {
	if d.account.Token == nil || d.account.Token.AccessToken == "" && d.account.Token.RefreshToken == "" {
		return nil
	}
	return &auth.Credentials{
		AccessToken:  d.account.Token.AccessToken,
		RefreshToken: d.account.Token.RefreshToken,
	}
}

// Do sends req and returns its envelope. It never panics and never returns
// nil: transport failures become StatusException envelopes.
func (d *Dispatcher) Do(ctx context.Context, req *Request) *Envelope {
	requestID := uuid.NewString()
	log := d.logger.With(zap.String("request_id", requestID))

	rateRetries := 0
	attempt := 1
	for {
		env, retryAfter := d.send(ctx, req, attempt, requestID, log)

		if env.StatusCode == http.StatusTooManyRequests && rateRetries < maxRateLimitRetries {
			rateRetries++
			log.Warn("api.rate_limited",
				zap.String("url", env.URL),
				zap.Duration("retry_after", retryAfter),
				zap.Int("retry", rateRetries),
			)
			if d.limiter != nil {
				if err := d.limiter.SetRetryAfterDuration(retryAfter); err != nil {
					log.Debug("ratelimit.state_failed", zap.Error(err))
				}
			}
			d.hooks.OnRetry(ctx, RequestInfo{Method: req.Method, URL: env.URL, Attempt: attempt, RequestID: requestID}, RetryRateLimit, retryAfter)
			if err := d.sleep(ctx, retryAfter); err != nil {
				return env
			}
			continue
		}

		if attempt >= MaxAttempts || !tokenInvalid(env) {
			return env
		}

		if !d.recoverCredentials(ctx, log) {
			return env
		}
		d.hooks.OnRetry(ctx, RequestInfo{Method: req.Method, URL: env.URL, Attempt: attempt, RequestID: requestID}, RetryAuth, 0)
		attempt++
	}
}

// tokenInvalid reports the only reply that triggers credential recovery.
func tokenInvalid(env *Envelope) bool {
	return env.StatusCode == http.StatusUnauthorized && bytes.Contains(env.Raw, []byte("invalid_token"))
}

// send performs exactly one transport attempt.
func (d *Dispatcher) send(ctx context.Context, req *Request, attempt int, requestID string, log *zap.Logger) (*Envelope, time.Duration) {
	url := req.URL(d.account.BaseURL)
	info := RequestInfo{Method: req.Method, URL: url, Attempt: attempt, RequestID: requestID}

	body, err := req.encodeBody()
	if err != nil {
		log.Error("api.exception", zap.String("url", url), zap.Error(err))
		return exceptionEnvelope(req.Method, url, err, 0), 0
	}

	log.Info("api.request",
		zap.String("url", url),
		zap.String("method", req.Method),
		zap.Int("attempt", attempt),
		zap.String("params", logging.Truncate(req.Params.Encode(), logFieldMax)),
		zap.String("body", logging.Truncate(string(body), logFieldMax)),
	)

	if d.limiter != nil {
		if err := d.limiter.Wait(ctx); err != nil {
			log.Error("api.exception", zap.String("url", url), zap.Error(err))
			return exceptionEnvelope(req.Method, url, err, 0), 0
		}
	}

	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, url, bodyReader)
	if err != nil {
		log.Error("api.exception", zap.String("url", url), zap.Error(err))
		return exceptionEnvelope(req.Method, url, err, 0), 0
	}
	for k, v := range req.Headers {
		httpReq.Header[k] = v
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", version.UserAgent())
	if body != nil && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if creds := d.Credentials(); creds != nil && creds.AccessToken != "" {
		httpReq.Header.Set("Authorization", creds.Authorization())
	}

	ctx = d.hooks.OnRequestStart(ctx, info)
	start := time.Now()
	resp, err := d.transport.Do(httpReq)
	if err != nil {
		elapsed := time.Since(start)
		d.hooks.OnRequestEnd(ctx, info, RequestResult{Duration: elapsed, Err: err})
		log.Error("api.exception", zap.String("url", url), zap.Duration("elapsed", elapsed), zap.Error(err))
		return exceptionEnvelope(req.Method, url, err, elapsed), 0
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	elapsed := time.Since(start)
	if err != nil {
		d.hooks.OnRequestEnd(ctx, info, RequestResult{StatusCode: resp.StatusCode, Duration: elapsed, Err: err})
		log.Error("api.exception", zap.String("url", url), zap.Error(err))
		return exceptionEnvelope(req.Method, url, err, elapsed), 0
	}
	d.hooks.OnRequestEnd(ctx, info, RequestResult{StatusCode: resp.StatusCode, Duration: elapsed})

	env := newEnvelope(req.Method, url, resp.StatusCode, raw, elapsed)
	env.RateLimit = ParseRateLimit(resp.Header)
	if d.limiter != nil && env.RateLimit.Known {
		if err := d.limiter.RecordQuota(env.RateLimit.LimitDay, env.RateLimit.RemainingDay); err != nil {
			log.Debug("ratelimit.state_failed", zap.Error(err))
		}
	}

	if len(env.Ambiguous) > 0 {
		log.Warn("api.unwrap_ambiguous", zap.String("url", url), zap.Strings("keys", env.Ambiguous))
	}

	fields := []zap.Field{
		zap.String("url", url),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", elapsed),
	}
	if env.RateLimit.Known {
		fields = append(fields, zap.Int("remaining_day", env.RateLimit.RemainingDay), zap.Int("remaining_second", env.RateLimit.RemainingSecond))
	}
	if env.OK {
		log.Info("api.response", fields...)
	} else {
		log.Warn("api.response", append(fields, zap.String("error", env.Error))...)
	}

	var retryAfter time.Duration
	if resp.StatusCode == http.StatusTooManyRequests {
		retryAfter = parseRetryAfter(resp.Header.Get("Retry-After"), time.Now())
	}
	return env, retryAfter
}

// recoverCredentials runs the recovery chain once and reports whether a new
// credential set is in place.
func (d *Dispatcher) recoverCredentials(ctx context.Context, log *zap.Logger) bool {
	current := d.Credentials()

	res := d.refresh(ctx, current)
	if d.reportRefresh(ctx, log, StepRefresh, res) {
		return d.adopt(res.Credentials, log)
	}

	// A seed token in config is a second, independent refresh token.
	if seed := d.seedCredentials(); seed != nil && seed.RefreshToken != "" &&
		(current == nil || seed.RefreshToken != current.RefreshToken) {
		res = d.refresh(ctx, seed)
		if d.reportRefresh(ctx, log, StepSeedToken, res) {
			return d.adopt(res.Credentials, log)
		}
	}

	if d.account.Internal() {
		return d.manualEntry(ctx, log, res)
	}
	return d.reauthorize(ctx, log)
}

func (d *Dispatcher) refresh(ctx context.Context, current *auth.Credentials) auth.RefreshResult {
	if d.refresher == nil {
		if current == nil || current.RefreshToken == "" {
			return auth.ManualEntry(auth.ErrNoRefreshToken)
		}
		return auth.Failed(errors.New("no token refresher configured"))
	}
	return d.refresher.Refresh(ctx, current)
}

func (d *Dispatcher) reportRefresh(ctx context.Context, log *zap.Logger, step string, res auth.RefreshResult) bool {
	info := RefreshInfo{Account: d.account.Name, Step: step, OK: res.OK()}
	if !res.OK() {
		if res.Reason != nil {
			info.Reason = res.Reason.Error()
		}
		log.Error("auth.refresh_failed",
			zap.String("step", step),
			zap.Stringer("outcome", res.Outcome),
			zap.Error(res.Reason),
		)
	}
	d.hooks.OnRefresh(ctx, info)
	return res.OK()
}

func (d *Dispatcher) manualEntry(ctx context.Context, log *zap.Logger, last auth.RefreshResult) bool {
	reason := ""
	if last.Reason != nil {
		reason = last.Reason.Error()
	}
	log.Info("auth.manual_entry")

	pasted, err := d.prompter.PromptTokens(ctx, auth.PromptInfo{
		Account:    d.account.Name,
		BaseURL:    d.account.BaseURL,
		CustomerID: d.account.CustomerID,
		ClientID:   d.account.ClientID,
		Reason:     reason,
	})
	if err != nil {
		log.Error("auth.manual_entry", zap.Error(err))
		d.hooks.OnRefresh(ctx, RefreshInfo{Account: d.account.Name, Step: StepManualEntry, Reason: err.Error()})
		return false
	}

	res := d.refresh(ctx, pasted)
	if d.reportRefresh(ctx, log, StepManualEntry, res) {
		return d.adopt(res.Credentials, log)
	}
	return false
}

func (d *Dispatcher) reauthorize(ctx context.Context, log *zap.Logger) bool {
	if d.reauthorizer == nil {
		log.Error("auth.reauthorize", zap.Error(auth.ErrLoginUnavailable))
		d.hooks.OnRefresh(ctx, RefreshInfo{Account: d.account.Name, Step: StepReauthorize, Reason: auth.ErrLoginUnavailable.Error()})
		return false
	}

	log.Info("auth.reauthorize")
	creds, err := d.reauthorizer.Reauthorize(ctx)
	if err != nil || creds == nil {
		if err == nil {
			err = errors.New("login flow returned no credentials")
		}
		log.Error("auth.reauthorize", zap.Error(err))
		d.hooks.OnRefresh(ctx, RefreshInfo{Account: d.account.Name, Step: StepReauthorize, Reason: err.Error()})
		return false
	}
	d.hooks.OnRefresh(ctx, RefreshInfo{Account: d.account.Name, Step: StepReauthorize, OK: true})
	return d.adopt(creds, log)
}

// adopt swaps in creds and persists them. A failed save is logged; the new
// set is still used for this process.
func (d *Dispatcher) adopt(creds *auth.Credentials, log *zap.Logger) bool {
	d.SetCredentials(creds)
	if d.store != nil {
		if err := d.store.Save(d.account.Name, creds); err != nil {
			log.Error("auth.store_failed", zap.String("op", "save"), zap.Error(err))
		}
	}
	log.Info("auth.refreshed")
	return true
}

// DoAll follows limit/offset pagination and concatenates list outputs.
// The first failing page is returned as-is. Raw is nil on combined results.
func (d *Dispatcher) DoAll(ctx context.Context, req *Request, limit int) *Envelope {
	if limit <= 0 {
		limit = DefaultPageLimit
	}

	start := time.Now()
	var items []any
	var last *Envelope
	for page := 0; page < maxPages; page++ {
		offset := page * limit
		pageReq := req.Clone()
		pageReq.Params.Set("limit", strconv.Itoa(limit))
		pageReq.Params.Set("offset", strconv.Itoa(offset))

		env := d.Do(ctx, pageReq)
		if !env.OK {
			return env
		}
		list, ok := env.Output.([]any)
		if !ok {
			if page == 0 {
				return env
			}
			break
		}
		items = append(items, list...)
		last = env

		if len(list) < limit {
			break
		}
		if total, ok := pageTotal(env.Raw); ok && offset+len(list) >= total {
			break
		}
	}

	if last == nil {
		return exceptionEnvelope(req.Method, req.URL(d.account.BaseURL), errors.New("pagination produced no pages"), time.Since(start))
	}
	if items == nil {
		items = []any{}
	}
	last.Output = items
	last.Raw = nil
	last.Elapsed = time.Since(start)
	last.URL = req.URL(d.account.BaseURL)
	return last
}

// pageTotal reads a top-level "total" from a raw page body.
func pageTotal(raw []byte) (int, bool) {
	var body struct {
		Total *int `json:"total"`
	}
	if err := json.Unmarshal(raw, &body); err != nil || body.Total == nil {
		return 0, false
	}
	return *body.Total, true
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
