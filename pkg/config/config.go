// Package config provides configuration management for the management client
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/camelspeed/couchnode/pkg/errors"
)

// ClientConfig holds everything needed to reach a cluster management endpoint
type ClientConfig struct {
	// Endpoint is the base URL of the management API, e.g. http://127.0.0.1:8091
	Endpoint string `mapstructure:"endpoint" json:"endpoint" yaml:"endpoint" validate:"required,url"`

	// Credentials for HTTP basic authentication
	Username string `mapstructure:"username" json:"username" yaml:"username" validate:"required"`
	Password string `mapstructure:"password" json:"-" yaml:"-" validate:"required"`

	// RequestTimeout is the default per-request timeout; operations may
	// override it per call
	RequestTimeout time.Duration `mapstructure:"request_timeout" json:"request_timeout" yaml:"request_timeout"`

	// Retry behaviour for transient transport failures
	RetryCount    int           `mapstructure:"retry_count" json:"retry_count" yaml:"retry_count" validate:"min=0,max=10"`
	RetryWaitTime time.Duration `mapstructure:"retry_wait_time" json:"retry_wait_time" yaml:"retry_wait_time"`

	// TLSSkipVerify disables certificate verification for test clusters
	TLSSkipVerify bool `mapstructure:"tls_skip_verify" json:"tls_skip_verify" yaml:"tls_skip_verify"`

	// LogLevel controls client logging: debug, info, warn, error
	LogLevel string `mapstructure:"log_level" json:"log_level" yaml:"log_level" validate:"oneof=debug info warn error"`
}

// DefaultConfig returns a configuration with sensible defaults.
// Endpoint and credentials still have to be supplied before use.
func DefaultConfig() *ClientConfig {
	return &ClientConfig{
		RequestTimeout: 75 * time.Second,
		RetryCount:     0,
		RetryWaitTime:  time.Second,
		LogLevel:       "info",
	}
}

// Validate checks if the configuration is valid
func (c *ClientConfig) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		return errors.NewConfigError(fmt.Sprintf("invalid client configuration: %v", err))
	}
	if c.RequestTimeout <= 0 {
		return errors.NewConfigError("request_timeout must be positive")
	}
	return nil
}

// Load reads a configuration file (YAML or JSON, by extension) and applies
// COUCHNODE_* environment overrides on top of it.
func Load(path string) (*ClientConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)

	v.SetEnvPrefix("COUCHNODE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := DefaultConfig()
	v.SetDefault("request_timeout", cfg.RequestTimeout)
	v.SetDefault("retry_count", cfg.RetryCount)
	v.SetDefault("retry_wait_time", cfg.RetryWaitTime)
	v.SetDefault("log_level", cfg.LogLevel)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// FromEnv builds a configuration purely from COUCHNODE_* environment variables
func FromEnv() (*ClientConfig, error) {
	v := viper.New()
	v.SetEnvPrefix("COUCHNODE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := DefaultConfig()
	cfg.Endpoint = v.GetString("endpoint")
	cfg.Username = v.GetString("username")
	cfg.Password = v.GetString("password")
	if d := v.GetDuration("request_timeout"); d > 0 {
		cfg.RequestTimeout = d
	}
	if v.IsSet("retry_count") {
		cfg.RetryCount = v.GetInt("retry_count")
	}
	if d := v.GetDuration("retry_wait_time"); d > 0 {
		cfg.RetryWaitTime = d
	}
	if lvl := v.GetString("log_level"); lvl != "" {
		cfg.LogLevel = lvl
	}
	cfg.TLSSkipVerify = v.GetBool("tls_skip_verify")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ToYAMLFile saves the configuration to a YAML file.
// Credentials are not written out.
func (c *ClientConfig) ToYAMLFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0644)
}
