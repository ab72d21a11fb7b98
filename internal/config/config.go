// Package config loads config.yaml: per-account Central credentials plus
// global settings, layered with environment variables and flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Pack3tL0ss/central-api-cli-sub004/internal/hostutil"
)

const (
	// DefaultAccount is the account section used when none is selected.
	DefaultAccount = "central_info"

	// FileName is the config file name inside the config directory.
	FileName = "config.yaml"

	defaultTimeout   = 30 * time.Second
	defaultRateLimit = 7 // Central allows 7 calls per second per customer
	defaultLimit     = 100
)

var (
	// ErrNoAccounts is returned when the config defines no account sections.
	ErrNoAccounts = errors.New("no accounts defined in config")

	// ErrUnknownAccount is returned when the selected account is not defined.
	ErrUnknownAccount = errors.New("account not found in config")
)

// notAccountKeys are top-level keys that hold global settings.
var notAccountKeys = []string{
	"ssl_verify",
	"token_store",
	"forget_account_after",
	"debug",
	"debugv",
	"limit",
	"no_pager",
	"sanitize",
	"timeout",
	"rate_limit",
	"default_account",
}

// Config holds the resolved configuration.
type Config struct {
	Path     string
	Dir      string
	CacheDir string
	LogFile  string

	SSLVerify bool
	Timeout   time.Duration
	RateLimit float64
	Limit     int

	Debug     bool
	DebugV    bool
	LogLevel  string
	NoKeyring bool

	TokenStore     TokenStore
	DefaultAccount string

	// Selected is the account requested via flag or environment.
	Selected string

	Accounts map[string]*Account

	// Sources tracks where each global value came from.
	Sources map[string]string
}

// TokenStore selects the credential backend.
type TokenStore struct {
	Type string `yaml:"type"` // "local" forces the file backend
	Path string `yaml:"path"`
}

// TokenSeed is an access/refresh pair supplied in config.yaml. It is used when
// the credential store has nothing for the account yet.
type TokenSeed struct {
	AccessToken  string `yaml:"access_token"`
	RefreshToken string `yaml:"refresh_token"`
}

// Account is one Central account section. Immutable after load.
type Account struct {
	Name         string
	BaseURL      string
	CustomerID   string
	ClientID     string
	ClientSecret string
	Username     string
	Password     string
	SSLVerify    bool
	Token        *TokenSeed
}

// Internal reports whether the account targets an internal Central cluster.
// Those clusters do not support the login flow, so expired refresh tokens are
// replaced by pasting tokens generated in the UI.
func (a *Account) Internal() bool {
	return strings.Contains(a.BaseURL, "internal")
}

// TokenURL is the OAuth token endpoint for the account.
func (a *Account) TokenURL() string {
	return a.BaseURL + "/oauth2/token"
}

// Source indicates where a config value came from.
type Source string

const (
	SourceDefault Source = "default"
	SourceFile    Source = "file"
	SourceEnv     Source = "env"
	SourceFlag    Source = "flag"
)

// FlagOverrides holds command-line flag values.
type FlagOverrides struct {
	Account   string
	Path      string
	Debug     bool
	NoKeyring bool
	Timeout   time.Duration
}

type fileGlobals struct {
	SSLVerify      *bool       `yaml:"ssl_verify"`
	TokenStore     *TokenStore `yaml:"token_store"`
	Debug          *bool       `yaml:"debug"`
	DebugV         *bool       `yaml:"debugv"`
	Limit          *int        `yaml:"limit"`
	Timeout        *int        `yaml:"timeout"`
	RateLimit      *float64    `yaml:"rate_limit"`
	DefaultAccount string      `yaml:"default_account"`
}

type fileAccount struct {
	BaseURL      string     `yaml:"base_url"`
	CustomerID   string     `yaml:"customer_id"`
	ClientID     string     `yaml:"client_id"`
	ClientSecret string     `yaml:"client_secret"`
	Username     string     `yaml:"username"`
	Password     string     `yaml:"password"`
	SSLVerify    *bool      `yaml:"ssl_verify"`
	Token        *TokenSeed `yaml:"token"`
}

// Default returns the default configuration rooted at dir.
func Default(dir string) *Config {
	return &Config{
		Path:      filepath.Join(dir, FileName),
		Dir:       dir,
		CacheDir:  filepath.Join(dir, ".cache"),
		LogFile:   filepath.Join(dir, "logs", "cencli.log"),
		SSLVerify: true,
		Timeout:   defaultTimeout,
		RateLimit: defaultRateLimit,
		Limit:     defaultLimit,
		LogLevel:  "info",
		Accounts:  make(map[string]*Account),
		Sources:   make(map[string]string),
	}
}

// Load loads configuration from all sources.
// Precedence: flags > env > config.yaml > defaults
func Load(overrides FlagOverrides) (*Config, error) {
	LoadDotEnv()

	env, err := ParseEnv()
	if err != nil {
		return nil, err
	}

	dir := env.ConfigDir
	if dir == "" {
		dir = GlobalConfigDir()
	}
	cfg := Default(dir)

	path := cfg.Path
	if env.Config != "" {
		path = env.Config
	}
	if overrides.Path != "" {
		path = overrides.Path
	}

	data, err := os.ReadFile(path) //nolint:gosec // G304: path is the operator's own config
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file %s: %w", path, ErrNoAccounts)
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := cfg.parse(data); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	cfg.Path = path

	env.apply(cfg)
	ApplyOverrides(cfg, overrides)
	return cfg, nil
}

// Parse builds a Config from config.yaml contents, rooted at dir.
func Parse(dir string, data []byte) (*Config, error) {
	cfg := Default(dir)
	if err := cfg.parse(data); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (cfg *Config) parse(data []byte) error {
	var globals fileGlobals
	if err := yaml.Unmarshal(data, &globals); err != nil {
		return err
	}
	cfg.applyGlobals(globals)

	var sections map[string]yaml.Node
	if err := yaml.Unmarshal(data, &sections); err != nil {
		return err
	}
	for name, node := range sections {
		if slices.Contains(notAccountKeys, name) || node.Kind != yaml.MappingNode {
			continue
		}
		var fa fileAccount
		if err := node.Decode(&fa); err != nil {
			return fmt.Errorf("account %s: %w", name, err)
		}
		acct, err := cfg.newAccount(name, fa)
		if err != nil {
			return err
		}
		cfg.Accounts[name] = acct
	}
	return nil
}

func (cfg *Config) applyGlobals(g fileGlobals) {
	src := string(SourceFile)
	if g.SSLVerify != nil {
		cfg.SSLVerify = *g.SSLVerify
		cfg.Sources["ssl_verify"] = src
	}
	if g.TokenStore != nil {
		cfg.TokenStore = *g.TokenStore
		cfg.Sources["token_store"] = src
	}
	if g.Debug != nil {
		cfg.Debug = *g.Debug
		cfg.Sources["debug"] = src
	}
	if g.DebugV != nil {
		cfg.DebugV = *g.DebugV
		cfg.Sources["debugv"] = src
	}
	if g.Limit != nil && *g.Limit > 0 {
		cfg.Limit = *g.Limit
		cfg.Sources["limit"] = src
	}
	if g.Timeout != nil && *g.Timeout > 0 {
		cfg.Timeout = time.Duration(*g.Timeout) * time.Second
		cfg.Sources["timeout"] = src
	}
	if g.RateLimit != nil && *g.RateLimit > 0 {
		cfg.RateLimit = *g.RateLimit
		cfg.Sources["rate_limit"] = src
	}
	if g.DefaultAccount != "" {
		cfg.DefaultAccount = g.DefaultAccount
		cfg.Sources["default_account"] = src
	}
	if cfg.Debug || cfg.DebugV {
		cfg.LogLevel = "debug"
	}
}

func (cfg *Config) newAccount(name string, fa fileAccount) (*Account, error) {
	if fa.BaseURL == "" {
		return nil, fmt.Errorf("account %s: base_url is required", name)
	}
	baseURL, err := hostutil.NormalizeBaseURL(fa.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("account %s: %w", name, err)
	}
	acct := &Account{
		Name:         name,
		BaseURL:      baseURL,
		CustomerID:   fa.CustomerID,
		ClientID:     fa.ClientID,
		ClientSecret: fa.ClientSecret,
		Username:     fa.Username,
		Password:     fa.Password,
		SSLVerify:    cfg.SSLVerify,
		Token:        fa.Token,
	}
	if fa.SSLVerify != nil {
		acct.SSLVerify = *fa.SSLVerify
	}
	return acct, nil
}

// ApplyOverrides applies non-empty flag overrides to cfg.
func ApplyOverrides(cfg *Config, o FlagOverrides) {
	if o.Account != "" {
		cfg.Selected = o.Account
		cfg.Sources["account"] = string(SourceFlag)
	}
	if o.Debug {
		cfg.Debug = true
		cfg.LogLevel = "debug"
		cfg.Sources["debug"] = string(SourceFlag)
	}
	if o.NoKeyring {
		cfg.NoKeyring = true
		cfg.Sources["no_keyring"] = string(SourceFlag)
	}
	if o.Timeout > 0 {
		cfg.Timeout = o.Timeout
		cfg.Sources["timeout"] = string(SourceFlag)
	}
}

// Account returns the named account. An empty name resolves, in order, to the
// flag/env selection, default_account, central_info, or the only account defined.
func (cfg *Config) Account(name string) (*Account, error) {
	if len(cfg.Accounts) == 0 {
		return nil, ErrNoAccounts
	}
	if name == "" {
		name = cfg.resolveDefault()
	}
	acct, ok := cfg.Accounts[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s (defined: %s)", ErrUnknownAccount, name, strings.Join(cfg.AccountNames(), ", "))
	}
	return acct, nil
}

func (cfg *Config) resolveDefault() string {
	switch {
	case cfg.Selected != "":
		return cfg.Selected
	case cfg.DefaultAccount != "":
		return cfg.DefaultAccount
	}
	if _, ok := cfg.Accounts[DefaultAccount]; ok {
		return DefaultAccount
	}
	if len(cfg.Accounts) == 1 {
		for name := range cfg.Accounts {
			return name
		}
	}
	return DefaultAccount
}

// AccountNames returns the defined account names, sorted.
func (cfg *Config) AccountNames() []string {
	names := make([]string, 0, len(cfg.Accounts))
	for name := range cfg.Accounts {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// TokenDir is where file-backed credentials are written.
func (cfg *Config) TokenDir() string {
	if cfg.TokenStore.Path != "" {
		return cfg.TokenStore.Path
	}
	return cfg.CacheDir
}

// UseKeyring reports whether the OS keyring should back the credential store.
func (cfg *Config) UseKeyring() bool {
	return !cfg.NoKeyring && cfg.TokenStore.Type != "local"
}

// GlobalConfigDir returns the config directory path.
func GlobalConfigDir() string {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		home, _ := os.UserHomeDir()
		configDir = filepath.Join(home, ".config")
	}
	return filepath.Join(configDir, "cencli")
}
