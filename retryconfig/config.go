// Package retryconfig loads retry policies from YAML.
package retryconfig

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/aniladanir/retry/v2"
)

// ErrConfigNotFound is returned when the config file does not exist.
// Callers can check for this with errors.Is(err, retryconfig.ErrConfigNotFound).
var ErrConfigNotFound = errors.New("config file not found")

// Config is the file representation of a retry.Policy. Empty fields keep the policy defaults.
type Config struct {
	Name             string `yaml:"name,omitempty"`
	MaxRetryAttempts *int   `yaml:"max_retry_attempts,omitempty"`
	Backoff          string `yaml:"backoff,omitempty"`
	UseJitter        *bool  `yaml:"use_jitter,omitempty"`
	BaseDelay        string `yaml:"base_delay,omitempty"`
	MaxDelay         string `yaml:"max_delay,omitempty"`
}

// Load reads and parses the config file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	return Parse(data)
}

// Parse decodes a config document. Unknown keys are rejected.
func Parse(data []byte) (*Config, error) {
	var cfg Config

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("retryconfig: %w", err)
	}

	return &cfg, nil
}

// Options converts the config into policy options.
func (c *Config) Options() ([]retry.Option, error) {
	var opts []retry.Option

	if c.Name != "" {
		opts = append(opts, retry.WithName(c.Name))
	}
	if c.MaxRetryAttempts != nil {
		opts = append(opts, retry.WithMaxRetryAttempts(*c.MaxRetryAttempts))
	}
	if c.Backoff != "" {
		t, err := retry.ParseBackoffType(c.Backoff)
		if err != nil {
			return nil, err
		}
		opts = append(opts, retry.WithBackoff(t))
	}
	if c.UseJitter != nil {
		opts = append(opts, retry.WithJitter(*c.UseJitter))
	}
	if c.BaseDelay != "" {
		d, err := parseDuration("base_delay", c.BaseDelay)
		if err != nil {
			return nil, err
		}
		opts = append(opts, retry.WithBaseDelay(d))
	}
	if c.MaxDelay != "" {
		d, err := parseDuration("max_delay", c.MaxDelay)
		if err != nil {
			return nil, err
		}
		opts = append(opts, retry.WithMaxDelay(d))
	}

	return opts, nil
}

// Policy builds a validated policy from the config. extra options are applied after the config values.
func (c *Config) Policy(extra ...retry.Option) (*retry.Policy, error) {
	opts, err := c.Options()
	if err != nil {
		return nil, err
	}

	return retry.NewPolicy(append(opts, extra...)...)
}

func parseDuration(field, s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("retryconfig: invalid %s %q: %w", field, s, err)
	}
	return d, nil
}
