// Package config loads apiscope settings from a YAML file and the
// environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/asaskevich/govalidator"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"apiscope/internal/compose"
	"apiscope/internal/model"
	"apiscope/internal/transport"
)

const envPrefix = "APISCOPE_"

type Config struct {
	// Catalog is a file path or an http(s) URL.
	Catalog   string          `yaml:"catalog"`
	BaseURL   string          `yaml:"base_url"`
	Transport TransportConfig `yaml:"transport"`
	Headers   []Header        `yaml:"headers"`
	Auth      AuthConfig      `yaml:"auth"`
	Command   CommandConfig   `yaml:"command"`
	Log       LogConfig       `yaml:"log"`
}

type TransportConfig struct {
	Mode           string        `yaml:"mode"`
	Timeout        time.Duration `yaml:"timeout"`
	SimulatedDelay time.Duration `yaml:"simulated_delay"`
}

// Header is one default request header. A list keeps the order.
type Header struct {
	Name  string `yaml:"name"`
	Value string `yaml:"value"`
}

type AuthConfig struct {
	Token string `yaml:"token"`
	// TokenURL enables the password login of the explorer, relative to the
	// base URL unless absolute.
	TokenURL string `yaml:"token_url"`
}

type CommandConfig struct {
	Style string `yaml:"style"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// Default returns the configuration written by "apiscope init".
func Default() *Config {
	c := &Config{}
	c.SetDefaults()
	return c
}

// DefaultPath is ~/.apiscope/config.yaml.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".apiscope", "config.yaml")
	}
	return filepath.Join(home, ".apiscope", "config.yaml")
}

// Load reads path, then applies environment overrides and defaults. A
// missing file is not an error unless it was asked for explicitly.
func Load(path string, explicit bool) (*Config, error) {
	c := &Config{}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, c); err != nil {
			return nil, errors.Wrapf(err, "could not parse config %s", path)
		}
	case os.IsNotExist(err) && !explicit:
	default:
		return nil, errors.Wrapf(err, "could not read config %s", path)
	}
	c.ApplyEnv(os.Getenv)
	c.SetDefaults()
	return c, nil
}

// ApplyEnv overrides fields from APISCOPE_* variables.
func (c *Config) ApplyEnv(getenv func(string) string) {
	str := func(name string, dst *string) {
		if v := strings.TrimSpace(getenv(envPrefix + name)); v != "" {
			*dst = v
		}
	}
	dur := func(name string, dst *time.Duration) {
		if v := strings.TrimSpace(getenv(envPrefix + name)); v != "" {
			if d, err := time.ParseDuration(v); err == nil {
				*dst = d
			}
		}
	}
	str("CATALOG", &c.Catalog)
	str("BASE_URL", &c.BaseURL)
	str("TRANSPORT", &c.Transport.Mode)
	dur("TIMEOUT", &c.Transport.Timeout)
	dur("SIMULATED_DELAY", &c.Transport.SimulatedDelay)
	str("TOKEN", &c.Auth.Token)
	str("TOKEN_URL", &c.Auth.TokenURL)
	str("COMMAND_STYLE", &c.Command.Style)
	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FILE", &c.Log.File)
}

func (c *Config) SetDefaults() {
	if c.Transport.Mode == "" {
		c.Transport.Mode = string(transport.ModeHTTP)
	}
	if c.Transport.Timeout == 0 {
		c.Transport.Timeout = 10 * time.Second
	}
	if c.Transport.SimulatedDelay == 0 {
		c.Transport.SimulatedDelay = 700 * time.Millisecond
	}
	if c.Headers == nil {
		c.Headers = []Header{
			{Name: "accept", Value: "application/json"},
			{Name: "content-type", Value: "application/json"},
		}
	}
	if c.Command.Style == "" {
		c.Command.Style = string(compose.StyleCurl)
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
}

func (c *Config) Validate() error {
	if c.BaseURL != "" && !govalidator.IsURL(c.BaseURL) {
		return fmt.Errorf("base_url %q is not a valid URL", c.BaseURL)
	}
	switch transport.Mode(strings.ToLower(c.Transport.Mode)) {
	case transport.ModeHTTP, transport.ModeSimulate:
	default:
		return fmt.Errorf("transport.mode must be http or simulate, got %q", c.Transport.Mode)
	}
	if c.Transport.Timeout < 0 || c.Transport.SimulatedDelay < 0 {
		return errors.New("transport durations must not be negative")
	}
	if _, err := compose.ParseStyle(c.Command.Style); err != nil {
		return err
	}
	for i, h := range c.Headers {
		if strings.TrimSpace(h.Name) == "" {
			return fmt.Errorf("headers[%d]: name is empty", i)
		}
	}
	return nil
}

// DefaultHeaders returns the configured headers in order.
func (c *Config) DefaultHeaders() model.Pairs {
	var p model.Pairs
	for _, h := range c.Headers {
		p.Set(strings.ToLower(strings.TrimSpace(h.Name)), h.Value)
	}
	return p
}

// TransportOptions maps the transport section onto transport.Options.
func (c *Config) TransportOptions() transport.Options {
	return transport.Options{
		Mode:           transport.Mode(c.Transport.Mode),
		BaseURL:        c.BaseURL,
		Timeout:        c.Transport.Timeout,
		SimulatedDelay: c.Transport.SimulatedDelay,
	}
}

// Write stores c as YAML at path, creating the directory. An existing file
// is only replaced when overwrite is set.
func (c *Config) Write(path string, overwrite bool) error {
	if _, err := os.Stat(path); err == nil && !overwrite {
		return fmt.Errorf("%s already exists", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "could not create config directory")
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "could not encode config")
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return errors.Wrapf(err, "could not write config %s", path)
	}
	return nil
}
