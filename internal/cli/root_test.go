package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Pack3tL0ss/central-api-cli-sub004/internal/auth"
	"github.com/Pack3tL0ss/central-api-cli-sub004/internal/appctx"
	"github.com/Pack3tL0ss/central-api-cli-sub004/internal/output"
)

// writeConfig writes a config.yaml for baseURL and points the config dir
// at a temp directory so logs, cache and tokens stay inside the test.
func writeConfig(t *testing.T, baseURL string) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("CENCLI_CONFIG_DIR", dir)
	t.Setenv("CENCLI_ACCOUNT", "")
	path := filepath.Join(dir, "config.yaml")
	content := `central_info:
  base_url: ` + baseURL + `
  customer_id: cust
  client_id: cid
  client_secret: secret
  token:
    access_token: seed-access
    refresh_token: seed-refresh
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func execute(t *testing.T, args ...string) (int, string) {
	t.Helper()
	var stdout bytes.Buffer
	cmd := NewRootCmd(appctx.WithPrompter(auth.NoPrompt{}))
	cmd.SetErr(&bytes.Buffer{})
	code := run(context.Background(), cmd, args, &stdout)
	return code, stdout.String()
}

func TestVersionNeedsNoConfig(t *testing.T) {
	t.Setenv("CENCLI_CONFIG_DIR", t.TempDir())
	code, out := execute(t, "version")
	assert.Equal(t, output.ExitOK, code)
	assert.Contains(t, out, "cencli version")
}

func TestMissingConfigIsConfigError(t *testing.T) {
	t.Setenv("CENCLI_CONFIG_DIR", t.TempDir())
	code, out := execute(t, "--json", "--config", filepath.Join(t.TempDir(), "nope.yaml"), "show", "sites")
	assert.Equal(t, output.ExitConfig, code)
	assert.Contains(t, out, `"code": "config"`)
}

func TestUnknownAccountIsUsageError(t *testing.T) {
	path := writeConfig(t, "https://apigw-prod2.central.arubanetworks.com")
	code, out := execute(t, "--json", "--no-keyring", "--config", path, "-a", "missing", "show", "sites")
	assert.Equal(t, output.ExitUsage, code)
	assert.Contains(t, out, "account not found")
}

func TestUnknownFlag(t *testing.T) {
	t.Setenv("CENCLI_CONFIG_DIR", t.TempDir())
	code, out := execute(t, "--json", "version", "--bogus")
	assert.Equal(t, output.ExitUsage, code)
	assert.Contains(t, out, "Unknown option: --bogus")
}

func TestShowSitesEndToEnd(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/central/v2/sites", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"sites": []any{
				map[string]any{"site_id": 1, "site_name": "HQ"},
				map[string]any{"site_id": 2, "site_name": "visualrf_default"},
			},
			"total": 2,
		})
	}))
	defer srv.Close()

	path := writeConfig(t, srv.URL)
	code, out := execute(t, "--json", "--no-keyring", "--config", path, "show", "sites")
	require.Equal(t, output.ExitOK, code, out)

	var resp struct {
		OK   bool             `json:"ok"`
		Data []map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "HQ", resp.Data[0]["site_name"])
}

func TestFailingEnvelopeExitsNonZero(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]any{"description": "task not found"})
	}))
	defer srv.Close()

	path := writeConfig(t, srv.URL)
	code, out := execute(t, "--json", "--no-keyring", "--config", path, "task", "123")
	assert.Equal(t, output.ExitNotFound, code)
	assert.Contains(t, out, "task not found")
}

func TestAPIGetWithParams(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/monitoring/v1/aps", r.URL.Path)
		assert.Equal(t, "Lab", r.URL.Query().Get("group"))
		_ = json.NewEncoder(w).Encode(map[string]any{"aps": []any{map[string]any{"name": "ap1"}}, "count": 1})
	}))
	defer srv.Close()

	path := writeConfig(t, srv.URL)
	code, out := execute(t, "--jq", ".[0].name", "--no-keyring", "--config", path, "api", "get", "monitoring/v1/aps", "--param", "group=Lab")
	require.Equal(t, output.ExitOK, code, out)
	assert.Equal(t, "ap1\n", out)
}

func TestMoveRequiresConfirmationWhenNotInteractive(t *testing.T) {
	path := writeConfig(t, "https://apigw-prod2.central.arubanetworks.com")
	code, out := execute(t, "--json", "--no-keyring", "--config", path, "move", "CN1", "--group", "Branch")
	assert.Equal(t, output.ExitUsage, code)
	assert.Contains(t, out, "--yes")
}

func TestTransformCobraError(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"flag needs an argument: --group", "--group requires a value"},
		{"unknown flag: --nope", "Unknown option: --nope"},
		{"unknown shorthand flag: 'z' in -z", "Unknown option: -z"},
		{"accepts 1 arg(s), received 0", "accepts 1 arg(s), received 0"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			err := transformCobraError(assert.AnError)
			assert.Equal(t, assert.AnError, err)

			e := output.AsError(transformCobraError(errorString(tt.in)))
			assert.Equal(t, output.CodeUsage, e.Code)
			assert.Equal(t, tt.want, e.Message)
		})
	}
}

func TestFormatFromFlags(t *testing.T) {
	tests := []struct {
		args []string
		want output.Format
	}{
		{nil, output.FormatAuto},
		{[]string{"--json"}, output.FormatJSON},
		{[]string{"-o", "yaml"}, output.FormatYAML},
		{[]string{"-o", "xml"}, output.FormatAuto},
		{[]string{"--json", "-q"}, output.FormatQuiet},
	}
	for _, tt := range tests {
		cmd := NewRootCmd()
		require.NoError(t, cmd.PersistentFlags().Parse(tt.args))
		assert.Equal(t, tt.want, formatFromFlags(cmd.PersistentFlags()), "%v", tt.args)
	}
}

type errorString string

func (e errorString) Error() string { return string(e) }
