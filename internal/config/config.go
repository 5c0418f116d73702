package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BakeLens/securefs/internal/logger"
	"github.com/BakeLens/securefs/internal/types"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var cfgLog = logger.New("config")

// Config represents the securefs configuration
type Config struct {
	Log   LogConfig   `yaml:"log"`
	Store StoreConfig `yaml:"store"`
}

// LogConfig holds logging settings
type LogConfig struct {
	Level   types.LogLevel `yaml:"level" validate:"loglevel"`
	NoColor bool           `yaml:"no_color"`
}

// StoreConfig holds secret store settings
type StoreConfig struct {
	// Dir is the secret store directory. It is secured (0700 / owner-only
	// DACL) when the store is opened.
	Dir string `yaml:"dir" validate:"required"`
	// CreateParents creates missing parents of Dir, each owner-only.
	CreateParents bool `yaml:"create_parents"`
	// LockTimeout bounds the wait for the cross-process store lock.
	LockTimeout time.Duration `yaml:"lock_timeout" validate:"gt=0,lte=10m"`
}

// validate is the shared validator instance
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Registration only fails on an empty tag or nil func.
	_ = v.RegisterValidation("loglevel", func(fl validator.FieldLevel) bool {
		return types.LogLevel(fl.Field().String()).Valid()
	})
	return v
}

// baseDir returns ~/.securefs, or a relative fallback without a home directory.
func baseDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".securefs"
	}
	return filepath.Join(home, ".securefs")
}

// DefaultConfigPath returns the default config file path (~/.securefs/config.yaml).
func DefaultConfigPath() string {
	return filepath.Join(baseDir(), "config.yaml")
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Log: LogConfig{
			Level:   types.LogLevelInfo,
			NoColor: false,
		},
		Store: StoreConfig{
			Dir:           filepath.Join(baseDir(), "secrets"),
			CreateParents: true,
			LockTimeout:   10 * time.Second,
		},
	}
}

// Validate checks all Config fields and returns a multi-error report.
// Call this AFTER env and CLI overrides have been applied, not during Load().
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	var sb strings.Builder
	sb.WriteString("invalid configuration:")
	for _, fe := range verrs {
		sb.WriteString("\n  - ")
		sb.WriteString(describe(fe))
	}
	return errors.New(sb.String())
}

func describe(fe validator.FieldError) string {
	switch fe.Namespace() {
	case "Config.Log.Level":
		return fmt.Sprintf("log.level: unknown log level %q (valid: trace, debug, info, warn, error)", fe.Value())
	case "Config.Store.Dir":
		return "store.dir: must not be empty"
	case "Config.Store.LockTimeout":
		return fmt.Sprintf("store.lock_timeout: must be > 0 and <= 10m (got %v)", fe.Value())
	}
	return fmt.Sprintf("%s: failed %q check", fe.Namespace(), fe.Tag())
}

// isUnknownFieldError returns true if the error is from yaml.Decoder.KnownFields(true)
// detecting an unrecognized key (e.g. typo like "stor:").
func isUnknownFieldError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "not found in type")
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults.
// Note: Load does NOT call Validate(). Callers should apply overrides
// first, then call cfg.Validate() themselves.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	// Try strict decode to warn about unknown fields
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		if isUnknownFieldError(err) {
			cfgLog.Warn("config has unknown fields (ignored): %v", err)
			// Re-parse without strict mode for forward compatibility
			cfg = DefaultConfig()
			if err2 := yaml.Unmarshal(data, cfg); err2 != nil {
				return nil, fmt.Errorf("config parse error: %w", err2)
			}
		} else if !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("config parse error: %w", err)
		}
	}

	cfg.Store.Dir = expandHome(os.ExpandEnv(cfg.Store.Dir))
	return cfg, nil
}

// expandHome replaces a leading "~" with the user's home directory.
func expandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") && !strings.HasPrefix(p, `~\`) {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, p[1:])
}
