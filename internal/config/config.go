// Package config handles global configuration loading using viper.
package config

import (
	"fmt"
	"net"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"

	"firestige.xyz/enipaddr/internal/core"
)

// Config represents the top-level configuration.
// Maps to the `enipaddr:` root key in YAML.
type Config struct {
	Log      LogConfig      `mapstructure:"log"`
	Inspect  InspectConfig  `mapstructure:"inspect"`
	Resolver ResolverConfig `mapstructure:"resolver"`
}

// ─── Log ───

// LogConfig contains logging settings.
type LogConfig struct {
	Level      string           `mapstructure:"level"`       // debug / info / warn / error
	Format     string           `mapstructure:"format"`      // json / text / pattern
	Pattern    string           `mapstructure:"pattern"`     // only for format=pattern
	TimeFormat string           `mapstructure:"time_format"` // only for format=pattern
	Outputs    LogOutputsConfig `mapstructure:"outputs"`
}

// LogOutputsConfig contains log output destinations besides stderr.
type LogOutputsConfig struct {
	File FileOutputConfig `mapstructure:"file"`
}

// FileOutputConfig configures file log output.
type FileOutputConfig struct {
	Enabled  bool           `mapstructure:"enabled"`
	Path     string         `mapstructure:"path"`
	Rotation RotationConfig `mapstructure:"rotation"`
}

// RotationConfig configures log file rotation.
type RotationConfig struct {
	MaxSizeMB  int  `mapstructure:"max_size_mb"`  // MB
	MaxAgeDays int  `mapstructure:"max_age_days"` // Days
	MaxBackups int  `mapstructure:"max_backups"`
	Compress   bool `mapstructure:"compress"`
}

// ─── Inspect ───

// InspectConfig configures capture inspection.
type InspectConfig struct {
	Ports   []int `mapstructure:"ports"`   // TCP/UDP ports carrying encapsulation traffic
	Workers int   `mapstructure:"workers"` // files scanned in parallel, 0 = GOMAXPROCS
	// Invalid-item warnings logged per source address per window; 0 = unlimited.
	WarnLimit  int    `mapstructure:"warn_limit"`
	WarnWindow string `mapstructure:"warn_window"`

	WarnWindowValue time.Duration `mapstructure:"-"`
}

// ─── Resolver ───

// ResolverConfig selects how host names are resolved.
type ResolverConfig struct {
	Mode    string `mapstructure:"mode"`    // system | dns
	Server  string `mapstructure:"server"`  // host[:port], required for mode=dns
	Timeout string `mapstructure:"timeout"` // per query, e.g. "3s"
	Retries int    `mapstructure:"retries"` // CLI-level retries of temporary failures

	TimeoutValue time.Duration `mapstructure:"-"`
}

// ─── Loading ───

// configRoot is the top-level wrapper matching the YAML structure `enipaddr: ...`.
type configRoot struct {
	Enipaddr Config `mapstructure:"enipaddr"`
}

// Load loads configuration from file. An empty path yields the defaults,
// still subject to environment overrides.
// The YAML file uses `enipaddr:` as root key; env vars use ENIPADDR_ prefix (e.g., ENIPADDR_LOG_LEVEL).
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// The `enipaddr.` key prefix maps to `ENIPADDR_` through the key replacer.
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	var root configRoot
	if err := v.Unmarshal(&root); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg := root.Enipaddr

	if err := cfg.ValidateAndApplyDefaults(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// Default returns the built-in configuration.
func Default() *Config {
	cfg, err := Load("")
	if err != nil {
		panic(err)
	}
	return cfg
}

// setDefaults sets default values for configuration.
// All keys use "enipaddr." prefix to match the YAML root wrapper.
func setDefaults(v *viper.Viper) {
	// Log defaults
	v.SetDefault("enipaddr.log.level", "info")
	v.SetDefault("enipaddr.log.format", "text")
	v.SetDefault("enipaddr.log.pattern", "%time [%level] %msg %field\n")
	v.SetDefault("enipaddr.log.time_format", "2006-01-02 15:04:05.000")
	v.SetDefault("enipaddr.log.outputs.file.enabled", false)
	v.SetDefault("enipaddr.log.outputs.file.path", "/var/log/enipaddr/enipaddr.log")
	v.SetDefault("enipaddr.log.outputs.file.rotation.max_size_mb", 100)
	v.SetDefault("enipaddr.log.outputs.file.rotation.max_age_days", 30)
	v.SetDefault("enipaddr.log.outputs.file.rotation.max_backups", 5)
	v.SetDefault("enipaddr.log.outputs.file.rotation.compress", true)

	// Inspect defaults
	v.SetDefault("enipaddr.inspect.ports", []int{44818, 2222})
	v.SetDefault("enipaddr.inspect.workers", 0)
	v.SetDefault("enipaddr.inspect.warn_limit", 20)
	v.SetDefault("enipaddr.inspect.warn_window", "10s")

	// Resolver defaults
	v.SetDefault("enipaddr.resolver.mode", "system")
	v.SetDefault("enipaddr.resolver.server", "")
	v.SetDefault("enipaddr.resolver.timeout", "5s")
	v.SetDefault("enipaddr.resolver.retries", 0)
}

// ValidateAndApplyDefaults validates configuration and applies runtime defaults.
func (cfg *Config) ValidateAndApplyDefaults() error {
	// ── Log validation ──
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Log.Level] {
		return fmt.Errorf("%w: log level %q (must be debug/info/warn/error)", core.ErrConfigInvalid, cfg.Log.Level)
	}
	switch cfg.Log.Format {
	case "json", "text":
	case "pattern":
		if cfg.Log.Pattern == "" {
			return fmt.Errorf("%w: log.pattern is required when log.format=pattern", core.ErrConfigInvalid)
		}
	default:
		return fmt.Errorf("%w: log format %q (must be json/text/pattern)", core.ErrConfigInvalid, cfg.Log.Format)
	}
	if cfg.Log.Outputs.File.Enabled && cfg.Log.Outputs.File.Path == "" {
		return fmt.Errorf("%w: log.outputs.file.path is required when file output is enabled", core.ErrConfigInvalid)
	}

	// ── Inspect ──
	if len(cfg.Inspect.Ports) == 0 || len(cfg.Inspect.Ports) > 64 {
		return fmt.Errorf("%w: inspect.ports needs 1 to 64 entries, got %d", core.ErrConfigInvalid, len(cfg.Inspect.Ports))
	}
	for _, p := range cfg.Inspect.Ports {
		if p < 1 || p > 65535 {
			return fmt.Errorf("%w: inspect port %d out of range", core.ErrConfigInvalid, p)
		}
	}
	if cfg.Inspect.Workers <= 0 {
		cfg.Inspect.Workers = runtime.GOMAXPROCS(0)
	}
	if cfg.Inspect.WarnLimit < 0 {
		return fmt.Errorf("%w: inspect.warn_limit must be >= 0", core.ErrConfigInvalid)
	}
	window, err := time.ParseDuration(cfg.Inspect.WarnWindow)
	if err != nil || window <= 0 {
		return fmt.Errorf("%w: inspect.warn_window %q", core.ErrConfigInvalid, cfg.Inspect.WarnWindow)
	}
	cfg.Inspect.WarnWindowValue = window

	// ── Resolver ──
	switch cfg.Resolver.Mode {
	case "system":
	case "dns":
		if cfg.Resolver.Server == "" {
			return fmt.Errorf("%w: resolver.server is required when resolver.mode=dns", core.ErrConfigInvalid)
		}
		if _, _, err := net.SplitHostPort(cfg.Resolver.Server); err != nil {
			cfg.Resolver.Server = net.JoinHostPort(cfg.Resolver.Server, "53")
		}
	default:
		return fmt.Errorf("%w: resolver mode %q (must be system/dns)", core.ErrConfigInvalid, cfg.Resolver.Mode)
	}
	timeout, err := time.ParseDuration(cfg.Resolver.Timeout)
	if err != nil || timeout <= 0 {
		return fmt.Errorf("%w: resolver.timeout %q", core.ErrConfigInvalid, cfg.Resolver.Timeout)
	}
	cfg.Resolver.TimeoutValue = timeout
	if cfg.Resolver.Retries < 0 {
		return fmt.Errorf("%w: resolver.retries must be >= 0", core.ErrConfigInvalid)
	}

	return nil
}
