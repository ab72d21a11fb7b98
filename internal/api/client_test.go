package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Pack3tL0ss/central-api-cli-sub004/internal/auth"
	"github.com/Pack3tL0ss/central-api-cli-sub004/internal/config"
)

// =============================================================================
// Fakes
// =============================================================================

type transportFunc func(*http.Request) (*http.Response, error)

func (f transportFunc) Do(r *http.Request) (*http.Response, error) { return f(r) }

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Status:     fmt.Sprintf("%d %s", status, http.StatusText(status)),
		Header:     http.Header{"Content-Type": {"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

type memStore struct {
	mu      sync.Mutex
	creds   map[string]*auth.Credentials
	saves   int
	saveErr error
}

func newMemStore() *memStore {
	return &memStore{creds: map[string]*auth.Credentials{}}
}

func (s *memStore) Load(account string) (*auth.Credentials, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.creds[account]
	if !ok {
		return nil, auth.ErrNotFound
	}
	return c, nil
}

func (s *memStore) Save(account string, creds *auth.Credentials) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves++
	if s.saveErr != nil {
		return s.saveErr
	}
	s.creds[account] = creds
	return nil
}

type fakeRefresher struct {
	results []auth.RefreshResult
	calls   []*auth.Credentials
}

func (f *fakeRefresher) Refresh(_ context.Context, current *auth.Credentials) auth.RefreshResult {
	f.calls = append(f.calls, current)
	if len(f.calls) > len(f.results) {
		return auth.Failed(errors.New("unexpected refresh"))
	}
	return f.results[len(f.calls)-1]
}

type fakePrompter struct {
	creds *auth.Credentials
	err   error
	infos []auth.PromptInfo
}

func (f *fakePrompter) PromptTokens(_ context.Context, info auth.PromptInfo) (*auth.Credentials, error) {
	f.infos = append(f.infos, info)
	return f.creds, f.err
}

type fakeReauthorizer struct {
	creds *auth.Credentials
	err   error
	calls int
}

func (f *fakeReauthorizer) Reauthorize(context.Context) (*auth.Credentials, error) {
	f.calls++
	return f.creds, f.err
}

type fakeLimiter struct {
	waits       int
	retryAfters []time.Duration
	quota       [2]int
}

func (f *fakeLimiter) Wait(context.Context) error { f.waits++; return nil }
func (f *fakeLimiter) SetRetryAfterDuration(d time.Duration) error {
	f.retryAfters = append(f.retryAfters, d)
	return nil
}
func (f *fakeLimiter) RecordQuota(limitDay, remainingDay int) error {
	f.quota = [2]int{limitDay, remainingDay}
	return nil
}

type recordingHooks struct {
	NopHooks
	retries  []RetryReason
	refreshs []RefreshInfo
	ends     []RequestResult
}

func (h *recordingHooks) OnRequestEnd(_ context.Context, _ RequestInfo, r RequestResult) {
	h.ends = append(h.ends, r)
}
func (h *recordingHooks) OnRetry(_ context.Context, _ RequestInfo, reason RetryReason, _ time.Duration) {
	h.retries = append(h.retries, reason)
}
func (h *recordingHooks) OnRefresh(_ context.Context, info RefreshInfo) {
	h.refreshs = append(h.refreshs, info)
}

func testAccount(baseURL string) *config.Account {
	return &config.Account{
		Name:         "central_info",
		BaseURL:      baseURL,
		CustomerID:   "cust-1",
		ClientID:     "client-1",
		ClientSecret: "secret-1",
		SSLVerify:    true,
	}
}

func observedLogger() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return zap.New(core), logs
}

var (
	oldCreds = &auth.Credentials{AccessToken: "old-access", RefreshToken: "old-refresh"}
	newCreds = &auth.Credentials{AccessToken: "new-access", RefreshToken: "new-refresh", TokenType: "Bearer"}
)

const invalidTokenBody = `{"error":"invalid_token","error_description":"Invalid access token"}`

// =============================================================================
// Success and transport failures
// =============================================================================

func TestDoSitesScenario(t *testing.T) {
	var gotAuth, gotUA, gotAccept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/central/v2/sites", r.URL.Path)
		assert.Equal(t, "100", r.URL.Query().Get("limit"))
		gotAuth = r.Header.Get("Authorization")
		gotUA = r.Header.Get("User-Agent")
		gotAccept = r.Header.Get("Accept")
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-RateLimit-Limit-day", "5000")
		w.Header().Set("X-RateLimit-Remaining-day", "4998")
		w.Header().Set("X-RateLimit-Limit-second", "7")
		w.Header().Set("X-RateLimit-Remaining-second", "6")
		fmt.Fprint(w, `{"sites":[{"site_id":1,"site_name":"HQ"},{"site_id":2,"site_name":"visualrf_default"}],"count":2,"total":2}`)
	}))
	defer srv.Close()

	store := newMemStore()
	store.creds["central_info"] = oldCreds
	limiter := &fakeLimiter{}
	d := New(Options{Account: testAccount(srv.URL), Store: store, Limiter: limiter, Transport: srv.Client()})

	env := d.Do(context.Background(), Get("/central/v2/sites").IntParam("limit", 100))

	require.True(t, env.IsOK(), "error: %s", env.Error)
	assert.Equal(t, http.StatusOK, env.StatusCode)
	assert.Equal(t, "Bearer old-access", gotAuth)
	assert.True(t, strings.HasPrefix(gotUA, "cencli/"), gotUA)
	assert.Equal(t, "application/json", gotAccept)

	sites, ok := env.Output.([]any)
	require.True(t, ok, "sites should be unwrapped to a list, got %T", env.Output)
	require.Len(t, sites, 2)
	assert.Equal(t, "HQ", sites[0].(map[string]any)["site_name"])
	assert.Equal(t, "visualrf_default", sites[1].(map[string]any)["site_name"])

	assert.Equal(t, "API Rate Limit: 4998 of 5000 remaining.", env.RateLimit.String())
	assert.Equal(t, 1, limiter.waits)
	assert.Equal(t, [2]int{5000, 4998}, limiter.quota)
	assert.Equal(t, 0, store.saves)
}

func TestDoConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	logger, logs := observedLogger()
	d := New(Options{Account: testAccount(url), Logger: logger})

	env := d.Do(context.Background(), Get("/monitoring/v1/aps"))

	assert.False(t, env.IsOK())
	assert.Equal(t, StatusException, env.StatusCode)
	assert.Equal(t, 418, env.StatusCode)
	assert.Equal(t, map[string]any{}, env.Output)
	assert.True(t, strings.HasPrefix(env.Error, "Exception occurred *url.Error: "), env.Error)
	assert.Contains(t, env.Error, "connection refused")
	assert.Equal(t, 1, logs.FilterMessage("api.exception").Len())
}

func TestDoBadBodyBecomesException(t *testing.T) {
	calls := 0
	d := New(Options{
		Account: testAccount("https://central.example.com"),
		Transport: transportFunc(func(*http.Request) (*http.Response, error) {
			calls++
			return jsonResponse(200, `{}`), nil
		}),
	})

	env := d.Do(context.Background(), Post("/x", map[string]any{"ch": make(chan int)}))

	assert.Equal(t, StatusException, env.StatusCode)
	assert.Contains(t, env.Error, "Exception occurred *json.UnsupportedTypeError")
	assert.Equal(t, 0, calls)
}

func TestDoNonJSONBody(t *testing.T) {
	d := New(Options{
		Account: testAccount("https://central.example.com"),
		Transport: transportFunc(func(*http.Request) (*http.Response, error) {
			return jsonResponse(200, "show version\nArubaOS 8.10"), nil
		}),
	})

	env := d.Do(context.Background(), Get("/caasapi/v1/exec/cmd"))

	assert.True(t, env.IsOK())
	assert.Equal(t, "show version\nArubaOS 8.10", env.Output)
}

func TestDoSendsJSONBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "lab", body["group"])
		fmt.Fprint(w, `{"result":"success"}`)
	}))
	defer srv.Close()

	d := New(Options{Account: testAccount(srv.URL), Transport: srv.Client()})
	env := d.Do(context.Background(), Post("/configuration/v1/devices/move", map[string]any{"group": "lab", "serials": []string{"CN1"}}))

	require.True(t, env.IsOK(), env.Error)
	assert.Equal(t, "success", env.Output)
}

func TestDoLogsEveryAttempt(t *testing.T) {
	logger, logs := observedLogger()
	d := New(Options{
		Account: testAccount("https://central.example.com"),
		Logger:  logger,
		Transport: transportFunc(func(*http.Request) (*http.Response, error) {
			return jsonResponse(200, `{}`), nil
		}),
	})

	big := strings.Repeat("x", 1000)
	d.Do(context.Background(), Post("/configuration/v1/groups", map[string]string{"blob": big}).Param("group", "lab"))

	entries := logs.FilterMessage("api.request").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "https://central.example.com/configuration/v1/groups?group=lab", fields["url"])
	assert.Equal(t, "POST", fields["method"])
	assert.EqualValues(t, 1, fields["attempt"])
	assert.Equal(t, "group=lab", fields["params"])
	assert.Equal(t, "central_info", fields["account"])
	assert.NotEmpty(t, fields["request_id"])

	body := fields["body"].(string)
	assert.Less(t, len(body), 300)
	assert.Contains(t, body, "more bytes)")
}

// =============================================================================
// Token recovery
// =============================================================================

// tokenServer answers 401 invalid_token unless the bearer token matches valid.
func tokenServer(t *testing.T, valid string, calls *int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*calls++
		w.Header().Set("Content-Type", "application/json")
		if r.Header.Get("Authorization") != "Bearer "+valid {
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, invalidTokenBody)
			return
		}
		fmt.Fprint(w, `{"devices":[{"serial":"CN123"}],"total":1}`)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestDoRefreshesOnInvalidToken(t *testing.T) {
	calls := 0
	srv := tokenServer(t, "new-access", &calls)

	store := newMemStore()
	store.creds["central_info"] = oldCreds
	refresher := &fakeRefresher{results: []auth.RefreshResult{auth.Succeeded(newCreds)}}
	hooks := &recordingHooks{}
	logger, logs := observedLogger()

	d := New(Options{
		Account:   testAccount(srv.URL),
		Store:     store,
		Refresher: refresher,
		Hooks:     hooks,
		Logger:    logger,
		Transport: srv.Client(),
	})

	env := d.Do(context.Background(), Get("/platform/device_inventory/v1/devices"))

	require.True(t, env.IsOK(), env.Error)
	assert.Equal(t, 2, calls, "one failed attempt and one retry")
	assert.Equal(t, []any{map[string]any{"serial": "CN123"}}, env.Output)

	require.Len(t, refresher.calls, 1)
	assert.Equal(t, "old-refresh", refresher.calls[0].RefreshToken)
	assert.Equal(t, newCreds, store.creds["central_info"])
	assert.Equal(t, newCreds, d.Credentials())

	assert.Equal(t, []RetryReason{RetryAuth}, hooks.retries)
	require.Len(t, hooks.refreshs, 1)
	assert.True(t, hooks.refreshs[0].OK)

	attempts := logs.FilterMessage("api.request").All()
	require.Len(t, attempts, 2)
	assert.EqualValues(t, 1, attempts[0].ContextMap()["attempt"])
	assert.EqualValues(t, 2, attempts[1].ContextMap()["attempt"])
	assert.Equal(t, attempts[0].ContextMap()["request_id"], attempts[1].ContextMap()["request_id"])
}

func TestDoRefreshFailingTwiceReturnsFirst401(t *testing.T) {
	calls := 0
	srv := tokenServer(t, "never-valid", &calls)

	acct := testAccount(srv.URL)
	acct.Token = &config.TokenSeed{AccessToken: "seed-access", RefreshToken: "seed-refresh"}

	store := newMemStore()
	store.creds["central_info"] = oldCreds
	refresher := &fakeRefresher{results: []auth.RefreshResult{
		auth.Failed(errors.New("invalid_grant")),
		auth.Failed(errors.New("invalid_grant")),
	}}
	reauth := &fakeReauthorizer{err: auth.ErrLoginUnavailable}
	logger, logs := observedLogger()

	d := New(Options{
		Account:      acct,
		Store:        store,
		Refresher:    refresher,
		Reauthorizer: reauth,
		Logger:       logger,
		Transport:    srv.Client(),
	})

	env := d.Do(context.Background(), Get("/monitoring/v1/aps"))

	assert.False(t, env.IsOK())
	assert.Equal(t, http.StatusUnauthorized, env.StatusCode)
	assert.Equal(t, "invalid_token: Invalid access token", env.Error)
	assert.Equal(t, 1, calls, "no retry without new credentials")

	require.Len(t, refresher.calls, 2)
	assert.Equal(t, "old-refresh", refresher.calls[0].RefreshToken)
	assert.Equal(t, "seed-refresh", refresher.calls[1].RefreshToken)
	assert.Equal(t, 1, reauth.calls)
	assert.Equal(t, 0, store.saves)

	failures := logs.FilterMessage("auth.refresh_failed").All()
	require.Len(t, failures, 2)
	for _, e := range failures {
		assert.Equal(t, zapcore.ErrorLevel, e.Level)
	}
}

func TestDoNeverMakesAThirdAttempt(t *testing.T) {
	calls := 0
	srv := tokenServer(t, "never-valid", &calls)

	refresher := &fakeRefresher{results: []auth.RefreshResult{
		auth.Succeeded(newCreds),
		auth.Succeeded(newCreds),
	}}
	d := New(Options{
		Account:   testAccount(srv.URL),
		Store:     newMemStore(),
		Refresher: refresher,
		Transport: srv.Client(),
	})
	d.SetCredentials(oldCreds)

	env := d.Do(context.Background(), Get("/monitoring/v1/aps"))

	assert.Equal(t, http.StatusUnauthorized, env.StatusCode)
	assert.Equal(t, MaxAttempts, calls)
	assert.Len(t, refresher.calls, 1)
}

func TestDoIgnores401WithoutInvalidToken(t *testing.T) {
	calls := 0
	refresher := &fakeRefresher{}
	d := New(Options{
		Account:   testAccount("https://central.example.com"),
		Refresher: refresher,
		Transport: transportFunc(func(*http.Request) (*http.Response, error) {
			calls++
			return jsonResponse(401, `{"message":"Unauthorized for this customer"}`), nil
		}),
	})

	env := d.Do(context.Background(), Get("/x"))

	assert.Equal(t, 401, env.StatusCode)
	assert.Equal(t, "Unauthorized for this customer", env.Error)
	assert.Equal(t, 1, calls)
	assert.Empty(t, refresher.calls)
}

func TestDoInternalAccountPromptsForTokens(t *testing.T) {
	pasted := &auth.Credentials{AccessToken: "pasted-access", RefreshToken: "pasted-refresh"}

	var seen []string
	transport := transportFunc(func(r *http.Request) (*http.Response, error) {
		seen = append(seen, r.Header.Get("Authorization"))
		if r.Header.Get("Authorization") == "Bearer new-access" {
			return jsonResponse(200, `{"data":{"status":"ok"}}`), nil
		}
		return jsonResponse(401, invalidTokenBody), nil
	})

	refresher := &fakeRefresher{results: []auth.RefreshResult{
		auth.Failed(errors.New("invalid_grant")),
		auth.Succeeded(newCreds),
	}}
	prompter := &fakePrompter{creds: pasted}
	reauth := &fakeReauthorizer{}
	store := newMemStore()

	d := New(Options{
		Account:      testAccount("https://internal-apigw.central.arubanetworks.com"),
		Store:        store,
		Refresher:    refresher,
		Prompter:     prompter,
		Reauthorizer: reauth,
		Transport:    transport,
	})
	d.SetCredentials(oldCreds)

	env := d.Do(context.Background(), Get("/central/v2/sites"))

	require.True(t, env.IsOK(), env.Error)
	assert.Equal(t, map[string]any{"status": "ok"}, env.Output)
	assert.Equal(t, []string{"Bearer old-access", "Bearer new-access"}, seen)

	require.Len(t, prompter.infos, 1)
	assert.Equal(t, "central_info", prompter.infos[0].Account)
	assert.Equal(t, "cust-1", prompter.infos[0].CustomerID)
	assert.Equal(t, "invalid_grant", prompter.infos[0].Reason)

	require.Len(t, refresher.calls, 2)
	assert.Equal(t, pasted, refresher.calls[1], "the pasted pair is refreshed")
	assert.Equal(t, 0, reauth.calls, "internal accounts never run the login flow")
	assert.Equal(t, newCreds, store.creds["central_info"])
}

func TestDoInternalAccountWithoutTerminal(t *testing.T) {
	calls := 0
	d := New(Options{
		Account:   testAccount("https://internal-apigw.central.arubanetworks.com"),
		Refresher: &fakeRefresher{results: []auth.RefreshResult{auth.ManualEntry(auth.ErrNoRefreshToken)}},
		Transport: transportFunc(func(*http.Request) (*http.Response, error) {
			calls++
			return jsonResponse(401, invalidTokenBody), nil
		}),
	})

	env := d.Do(context.Background(), Get("/x"))

	assert.Equal(t, 401, env.StatusCode)
	assert.Equal(t, 1, calls)
}

func TestDoReauthorizesPublicAccount(t *testing.T) {
	calls := 0
	srv := tokenServer(t, "new-access", &calls)

	reauth := &fakeReauthorizer{creds: newCreds}
	store := newMemStore()
	d := New(Options{
		Account:      testAccount(srv.URL),
		Store:        store,
		Refresher:    &fakeRefresher{results: []auth.RefreshResult{auth.ManualEntry(auth.ErrNoRefreshToken)}},
		Prompter:     &fakePrompter{err: errors.New("must not prompt")},
		Reauthorizer: reauth,
		Transport:    srv.Client(),
	})

	env := d.Do(context.Background(), Get("/x"))

	require.True(t, env.IsOK(), env.Error)
	assert.Equal(t, 1, reauth.calls)
	assert.Equal(t, 2, calls)
	assert.Equal(t, newCreds, store.creds["central_info"])
}

func TestDoStoreFailureStillUsesNewCredentials(t *testing.T) {
	calls := 0
	srv := tokenServer(t, "new-access", &calls)

	store := newMemStore()
	store.saveErr = errors.New("keyring locked")
	logger, logs := observedLogger()
	d := New(Options{
		Account:   testAccount(srv.URL),
		Store:     store,
		Refresher: &fakeRefresher{results: []auth.RefreshResult{auth.Succeeded(newCreds)}},
		Logger:    logger,
		Transport: srv.Client(),
	})
	d.SetCredentials(oldCreds)

	env := d.Do(context.Background(), Get("/x"))

	require.True(t, env.IsOK(), env.Error)
	assert.Equal(t, 1, store.saves)
	assert.Equal(t, newCreds, d.Credentials())
	assert.Equal(t, 1, logs.FilterMessage("auth.store_failed").Len())
}

func TestCredentialsFallBackToSeedToken(t *testing.T) {
	acct := testAccount("https://central.example.com")
	acct.Token = &config.TokenSeed{AccessToken: "seed-access", RefreshToken: "seed-refresh"}

	d := New(Options{Account: acct, Store: newMemStore()})
	creds := d.Credentials()
	require.NotNil(t, creds)
	assert.Equal(t, "seed-access", creds.AccessToken)

	store := newMemStore()
	store.creds["central_info"] = oldCreds
	d = New(Options{Account: acct, Store: store})
	assert.Equal(t, oldCreds, d.Credentials(), "stored credentials win over the seed")
}

// =============================================================================
// Rate limiting
// =============================================================================

func TestDoRetriesAfter429(t *testing.T) {
	calls := 0
	limiter := &fakeLimiter{}
	hooks := &recordingHooks{}
	d := New(Options{
		Account: testAccount("https://central.example.com"),
		Limiter: limiter,
		Hooks:   hooks,
		Transport: transportFunc(func(*http.Request) (*http.Response, error) {
			calls++
			if calls == 1 {
				resp := jsonResponse(429, `{"message":"API rate limit exceeded"}`)
				resp.Header.Set("Retry-After", "2")
				return resp, nil
			}
			return jsonResponse(200, `{"aps":[]}`), nil
		}),
	})
	var slept []time.Duration
	d.sleep = func(_ context.Context, dur time.Duration) error {
		slept = append(slept, dur)
		return nil
	}

	env := d.Do(context.Background(), Get("/monitoring/v1/aps"))

	require.True(t, env.IsOK(), env.Error)
	assert.Equal(t, []any{}, env.Output)
	assert.Equal(t, 2, calls)
	assert.Equal(t, []time.Duration{2 * time.Second}, slept)
	assert.Equal(t, []time.Duration{2 * time.Second}, limiter.retryAfters)
	assert.Equal(t, []RetryReason{RetryRateLimit}, hooks.retries)
}

func TestDoGivesUpAfterRepeated429(t *testing.T) {
	calls := 0
	d := New(Options{
		Account: testAccount("https://central.example.com"),
		Transport: transportFunc(func(*http.Request) (*http.Response, error) {
			calls++
			return jsonResponse(429, `{"message":"API rate limit exceeded"}`), nil
		}),
	})
	d.sleep = func(context.Context, time.Duration) error { return nil }

	env := d.Do(context.Background(), Get("/x"))

	assert.Equal(t, http.StatusTooManyRequests, env.StatusCode)
	assert.Equal(t, "API rate limit exceeded", env.Error)
	assert.Equal(t, 1+maxRateLimitRetries, calls)
}

func TestDo429CanceledDuringWait(t *testing.T) {
	calls := 0
	d := New(Options{
		Account: testAccount("https://central.example.com"),
		Transport: transportFunc(func(*http.Request) (*http.Response, error) {
			calls++
			return jsonResponse(429, `{}`), nil
		}),
	})
	d.sleep = func(context.Context, time.Duration) error { return context.Canceled }

	env := d.Do(context.Background(), Get("/x"))

	assert.Equal(t, 429, env.StatusCode)
	assert.Equal(t, 1, calls)
}

// =============================================================================
// Pagination
// =============================================================================

func TestDoAllFollowsOffsets(t *testing.T) {
	const total = 250
	var offsets []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "lab", q.Get("group"))
		offsets = append(offsets, q.Get("offset"))
		limit, _ := strconv.Atoi(q.Get("limit"))
		offset, _ := strconv.Atoi(q.Get("offset"))

		var aps []map[string]any
		for i := offset; i < total && i < offset+limit; i++ {
			aps = append(aps, map[string]any{"serial": fmt.Sprintf("CN%04d", i)})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"aps": aps, "count": len(aps), "total": total})
	}))
	defer srv.Close()

	d := New(Options{Account: testAccount(srv.URL), Transport: srv.Client()})
	env := d.DoAll(context.Background(), Get("/monitoring/v1/aps").Param("group", "lab"), 100)

	require.True(t, env.IsOK(), env.Error)
	assert.Equal(t, []string{"0", "100", "200"}, offsets)
	items := env.Output.([]any)
	require.Len(t, items, total)
	assert.Equal(t, "CN0000", items[0].(map[string]any)["serial"])
	assert.Equal(t, "CN0249", items[249].(map[string]any)["serial"])
	assert.Nil(t, env.Raw)
}

func TestDoAllStopsAtTotal(t *testing.T) {
	calls := 0
	d := New(Options{
		Account: testAccount("https://central.example.com"),
		Transport: transportFunc(func(*http.Request) (*http.Response, error) {
			calls++
			return jsonResponse(200, `{"groups":[["a"],["b"]],"total":2}`), nil
		}),
	})

	env := d.DoAll(context.Background(), Get("/configuration/v2/groups"), 2)

	require.True(t, env.IsOK())
	assert.Equal(t, 1, calls)
	assert.Len(t, env.Output, 2)
}

func TestDoAllReturnsFirstFailingPage(t *testing.T) {
	calls := 0
	d := New(Options{
		Account: testAccount("https://central.example.com"),
		Transport: transportFunc(func(*http.Request) (*http.Response, error) {
			calls++
			if calls == 2 {
				return jsonResponse(500, `{"message":"Internal error"}`), nil
			}
			return jsonResponse(200, `{"aps":[{"serial":"a"},{"serial":"b"}]}`), nil
		}),
	})

	env := d.DoAll(context.Background(), Get("/monitoring/v1/aps"), 2)

	assert.False(t, env.IsOK())
	assert.Equal(t, 500, env.StatusCode)
	assert.Equal(t, "Internal error", env.Error)
	assert.Equal(t, 2, calls)
}

func TestDoAllPassesThroughNonListOutput(t *testing.T) {
	d := New(Options{
		Account: testAccount("https://central.example.com"),
		Transport: transportFunc(func(*http.Request) (*http.Response, error) {
			return jsonResponse(200, `{"name":"lab","properties":{"a":1}}`), nil
		}),
	})

	env := d.DoAll(context.Background(), Get("/x"), 0)

	require.True(t, env.IsOK())
	assert.Equal(t, "lab", env.Get("name", nil))
}
