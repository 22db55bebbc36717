// Package config loads console settings from defaults, an optional
// leadconsole.yaml, LEADCONSOLE_* environment variables and command-line
// flags, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/goliatone/go-leadconsole/internal/logging"
)

// EnvPrefix prefixes environment overrides, e.g. LEADCONSOLE_API_BASE_URL.
const EnvPrefix = "LEADCONSOLE"

// API configures the remote endpoint.
type API struct {
	BaseURL    string
	Timeout    time.Duration
	RateLimit  float64
	RateBurst  int
	AuthScheme string
}

// Config is the resolved console configuration.
type Config struct {
	API           API
	SessionFile   string
	Log           logging.Config
	LeadsPageSize int
	UsersPageSize int
	Demo          bool
	DemoAddr      string
	// File is the config file that was read, "" when none.
	File string
}

func defaultSessionFile() string {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		return ".leadconsole-session.yaml"
	}
	return filepath.Join(dir, "leadconsole", "session.yaml")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.base_url", "http://localhost:8080/api")
	v.SetDefault("api.timeout", 15*time.Second)
	v.SetDefault("api.rate_limit", 10.0)
	v.SetDefault("api.rate_burst", 5)
	v.SetDefault("api.auth_scheme", "")
	v.SetDefault("session.file", defaultSessionFile())
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
	v.SetDefault("log.file", "")
	v.SetDefault("leads.page_size", 10)
	v.SetDefault("users.page_size", 3)
	v.SetDefault("demo.enabled", false)
	v.SetDefault("demo.addr", "127.0.0.1:0")
}

// Flags declares the command-line flags bound to config keys.
func Flags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("leadconsole", pflag.ContinueOnError)
	fs.String("config", "", "path to a leadconsole.yaml file")
	fs.String("api-url", "", "base URL of the API")
	fs.Duration("timeout", 0, "per-request timeout")
	fs.String("session-file", "", "where the session token is stored")
	fs.String("log-level", "", "debug, info, warn or error")
	fs.Bool("log-pretty", false, "human readable log lines")
	fs.String("log-file", "", "write logs to this rotating file")
	fs.Bool("demo", false, "serve an in-memory demo API and connect to it")
	return fs
}

var flagKeys = map[string]string{
	"api-url":      "api.base_url",
	"timeout":      "api.timeout",
	"session-file": "session.file",
	"log-level":    "log.level",
	"log-pretty":   "log.pretty",
	"log-file":     "log.file",
	"demo":         "demo.enabled",
}

// Load parses args and resolves the configuration. It returns pflag.ErrHelp
// when help was requested.
func Load(args []string) (Config, error) {
	fs := Flags()
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for flag, key := range flagKeys {
		if err := v.BindPFlag(key, fs.Lookup(flag)); err != nil {
			return Config{}, fmt.Errorf("config: bind %s: %w", flag, err)
		}
	}

	explicit, _ := fs.GetString("config")
	if explicit != "" {
		v.SetConfigFile(explicit)
	} else {
		v.SetConfigName("leadconsole")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "leadconsole"))
		}
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicit != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("config: read: %w", err)
		}
	}

	cfg := Config{
		API: API{
			BaseURL:    strings.TrimSpace(v.GetString("api.base_url")),
			Timeout:    v.GetDuration("api.timeout"),
			RateLimit:  v.GetFloat64("api.rate_limit"),
			RateBurst:  v.GetInt("api.rate_burst"),
			AuthScheme: v.GetString("api.auth_scheme"),
		},
		SessionFile: v.GetString("session.file"),
		Log: logging.Config{
			Level:  v.GetString("log.level"),
			Pretty: v.GetBool("log.pretty"),
			File:   v.GetString("log.file"),
		},
		LeadsPageSize: v.GetInt("leads.page_size"),
		UsersPageSize: v.GetInt("users.page_size"),
		Demo:          v.GetBool("demo.enabled"),
		DemoAddr:      v.GetString("demo.addr"),
		File:          v.ConfigFileUsed(),
	}
	return cfg, cfg.Validate()
}

// Validate reports settings the console cannot run with.
func (c Config) Validate() error {
	var problems []string
	if c.API.BaseURL == "" && !c.Demo {
		problems = append(problems, "api.base_url is required")
	}
	if c.API.Timeout < 0 {
		problems = append(problems, "api.timeout must not be negative")
	}
	if c.LeadsPageSize < 1 {
		problems = append(problems, "leads.page_size must be at least 1")
	}
	if c.UsersPageSize < 1 {
		problems = append(problems, "users.page_size must be at least 1")
	}
	if len(problems) > 0 {
		return fmt.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}
