package config

import (
	"fmt"
	"time"

	"github.com/BakeLens/securefs/internal/types"
	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix is prepended to every environment override, e.g. SECUREFS_STORE_DIR.
const EnvPrefix = "SECUREFS"

// Env holds configuration overrides read from the environment. Unset
// variables leave the corresponding Config field alone. Keys come from
// split_words, not envconfig tags, so unprefixed names such as a global
// NO_COLOR are never consulted.
type Env struct {
	// Env: SECUREFS_LOG_LEVEL
	LogLevel string `split_words:"true"`
	// Env: SECUREFS_NO_COLOR
	NoColor *bool `split_words:"true"`
	// Env: SECUREFS_STORE_DIR
	StoreDir string `split_words:"true"`
	// Env: SECUREFS_LOCK_TIMEOUT (Go duration, e.g. "30s")
	LockTimeout time.Duration `split_words:"true"`
}

// LoadEnv reads overrides from environment variables
func LoadEnv() (*Env, error) {
	var e Env
	if err := envconfig.Process(EnvPrefix, &e); err != nil {
		return nil, fmt.Errorf("failed to load overrides from environment: %w", err)
	}
	return &e, nil
}

// Apply copies every set override into cfg.
func (e *Env) Apply(cfg *Config) {
	if e.LogLevel != "" {
		cfg.Log.Level = types.LogLevel(e.LogLevel)
	}
	if e.NoColor != nil {
		cfg.Log.NoColor = *e.NoColor
	}
	if e.StoreDir != "" {
		cfg.Store.Dir = expandHome(e.StoreDir)
	}
	if e.LockTimeout != 0 {
		cfg.Store.LockTimeout = e.LockTimeout
	}
}
