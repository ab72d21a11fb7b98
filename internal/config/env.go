package config

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Env holds CENCLI_* environment overrides.
type Env struct {
	Account   string        `env:"ACCOUNT"`
	Config    string        `env:"CONFIG"`
	ConfigDir string        `env:"CONFIG_DIR"`
	Debug     string        `env:"DEBUG"`
	LogLevel  string        `env:"LOG_LEVEL"`
	LogFile   string        `env:"LOG_FILE"`
	NoKeyring string        `env:"NO_KEYRING"`
	Timeout   time.Duration `env:"TIMEOUT"`
}

// LoadDotEnv loads .env from the working directory and the config directory.
// Missing files are ignored and existing variables are never overwritten.
func LoadDotEnv() {
	_ = godotenv.Load()
	_ = godotenv.Load(filepath.Join(GlobalConfigDir(), ".env"))
}

// ParseEnv reads CENCLI_* variables.
func ParseEnv() (Env, error) {
	var e Env
	if err := env.ParseWithOptions(&e, env.Options{Prefix: "CENCLI_"}); err != nil {
		return e, fmt.Errorf("parsing environment: %w", err)
	}
	return e, nil
}

func (e Env) apply(cfg *Config) {
	src := string(SourceEnv)
	if e.Account != "" {
		cfg.Selected = e.Account
		cfg.Sources["account"] = src
	}
	if b, ok := parseEnvBool(e.Debug); ok {
		cfg.Debug = b
		if b {
			cfg.LogLevel = "debug"
		}
		cfg.Sources["debug"] = src
	}
	if e.LogLevel != "" {
		cfg.LogLevel = strings.ToLower(e.LogLevel)
		cfg.Sources["log_level"] = src
	}
	if e.LogFile != "" {
		cfg.LogFile = e.LogFile
		cfg.Sources["log_file"] = src
	}
	if e.NoKeyring != "" {
		cfg.NoKeyring = true
		cfg.Sources["no_keyring"] = src
	}
	if e.Timeout > 0 {
		cfg.Timeout = e.Timeout
		cfg.Sources["timeout"] = src
	}
}

// parseEnvBool parses a boolean environment variable strictly.
// Returns (value, true) for recognized values, (false, false) otherwise.
func parseEnvBool(v string) (bool, bool) {
	if v == "" {
		return false, false
	}
	b, err := strconv.ParseBool(strings.ToLower(v))
	if err != nil {
		return false, false
	}
	return b, true
}
