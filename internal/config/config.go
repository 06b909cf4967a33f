// Package config holds the settings injected into every component.
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
)

// Cooldown failure policies applied when every backend is unreachable.
const (
	PolicyFailOpen   = "open"
	PolicyFailClosed = "closed"
)

// Document backends.
const (
	BackendFile  = "file"
	BackendRedis = "redis"
)

type Config struct {
	DataRoot   string `toml:"data_root"   env:"SIM_DATA_ROOT"`
	DocBackend string `toml:"doc_backend" env:"SIM_DOC_BACKEND"`

	// Empty RedisAddr disables the TTL backend; the file fallback is used alone.
	RedisAddr     string        `toml:"redis_addr"     env:"SIM_REDIS_ADDR"`
	RedisPassword string        `toml:"redis_password" env:"SIM_REDIS_PASSWORD"`
	RedisDB       int           `toml:"redis_db"       env:"SIM_REDIS_DB"`
	RedisTimeout  time.Duration `toml:"redis_timeout"  env:"SIM_REDIS_TIMEOUT"`

	CooldownPolicy  string        `toml:"cooldown_policy"   env:"SIM_COOLDOWN_POLICY"`
	FailClosedRetry time.Duration `toml:"fail_closed_retry" env:"SIM_FAIL_CLOSED_RETRY"`

	AsyncWorkers int `toml:"async_workers" env:"SIM_ASYNC_WORKERS"`
	AsyncQueue   int `toml:"async_queue"   env:"SIM_ASYNC_QUEUE"`

	DisabledSubsystems []string `toml:"disabled_subsystems" env:"SIM_DISABLED_SUBSYSTEMS" envSeparator:","`
	EventTopicPrefix   string   `toml:"event_topic_prefix"  env:"SIM_EVENT_TOPIC_PREFIX"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		DataRoot:         "data",
		DocBackend:       BackendFile,
		RedisTimeout:     250 * time.Millisecond,
		CooldownPolicy:   PolicyFailClosed,
		FailClosedRetry:  30 * time.Second,
		AsyncWorkers:     2,
		AsyncQueue:       64,
		EventTopicPrefix: "sim.action.",
	}
}

// Load layers defaults, the optional TOML file named by SIM_CONFIG_FILE and
// SIM_* environment variables, in that order.
func Load() (Config, error) {
	return LoadFile(os.Getenv("SIM_CONFIG_FILE"))
}

// LoadFile is Load with an explicit file path; an empty path skips the file.
func LoadFile(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("decode %s: %w", path, err)
		}
	}
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if c.DataRoot == "" {
		return errors.New("data_root is required")
	}
	switch c.DocBackend {
	case BackendFile:
	case BackendRedis:
		if c.RedisAddr == "" {
			return errors.New("doc_backend redis requires redis_addr")
		}
	default:
		return fmt.Errorf("unknown doc_backend %q", c.DocBackend)
	}
	if c.CooldownPolicy != PolicyFailOpen && c.CooldownPolicy != PolicyFailClosed {
		return fmt.Errorf("unknown cooldown_policy %q", c.CooldownPolicy)
	}
	if c.CooldownPolicy == PolicyFailClosed && c.FailClosedRetry <= 0 {
		return errors.New("fail_closed_retry must be positive")
	}
	if c.AsyncWorkers <= 0 || c.AsyncQueue <= 0 {
		return errors.New("async_workers and async_queue must be positive")
	}
	return nil
}

// SubsystemEnabled reports whether actions in scope may run.
func (c Config) SubsystemEnabled(scope string) bool {
	return !slices.Contains(c.DisabledSubsystems, scope)
}
