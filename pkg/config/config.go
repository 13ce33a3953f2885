// Copyright (c) 2026, The coapdash Authors.  All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/iot-lab/coapdash/pkg/defaults"
	cnserrors "github.com/iot-lab/coapdash/pkg/errors"
	"github.com/iot-lab/coapdash/pkg/serializer"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "COAPDASH_"

// DefaultEnvFile is loaded when present.
const DefaultEnvFile = ".env"

// Config is the complete coapdash configuration.
type Config struct {
	LogLevel  string          `json:"logLevel,omitempty" yaml:"logLevel,omitempty"`
	Dashboard DashboardConfig `json:"dashboard" yaml:"dashboard"`
	CoAP      CoAPConfig      `json:"coap" yaml:"coap"`
	Registry  RegistryConfig  `json:"registry" yaml:"registry"`
	Consul    ConsulConfig    `json:"consul" yaml:"consul"`
}

// DashboardConfig configures the dashboard and its poll cycles.
type DashboardConfig struct {
	Address string `json:"address,omitempty" yaml:"address,omitempty"`
	Port    int    `json:"port" yaml:"port"`

	// RegistryURI is the node list endpoint. Ignored when Consul is enabled.
	RegistryURI string `json:"registryURI" yaml:"registryURI"`

	NodeTimeout  Duration `json:"nodeTimeout" yaml:"nodeTimeout"`
	CycleTimeout Duration `json:"cycleTimeout" yaml:"cycleTimeout"`

	// PollInterval, when positive, runs cycles in the background and pushes
	// every snapshot to live clients.
	PollInterval Duration `json:"pollInterval,omitempty" yaml:"pollInterval,omitempty"`
}

// CoAPConfig configures the node transport.
type CoAPConfig struct {
	Port           int      `json:"port" yaml:"port"`
	RequestTimeout Duration `json:"requestTimeout" yaml:"requestTimeout"`
}

// RegistryConfig configures the registry service.
type RegistryConfig struct {
	Address   string   `json:"address,omitempty" yaml:"address,omitempty"`
	AlivePort int      `json:"alivePort" yaml:"alivePort"`
	HTTPPort  int      `json:"httpPort" yaml:"httpPort"`
	MaxAge    Duration `json:"maxAge" yaml:"maxAge"`
}

// ConsulConfig selects Consul as the node registry when Address is set.
type ConsulConfig struct {
	Address string `json:"address,omitempty" yaml:"address,omitempty"`
	Token   string `json:"token,omitempty" yaml:"token,omitempty"`
	Service string `json:"service,omitempty" yaml:"service,omitempty"`
	Tag     string `json:"tag,omitempty" yaml:"tag,omitempty"`
}

// Enabled reports whether Consul should be used as the registry.
func (c ConsulConfig) Enabled() bool {
	return c.Address != "" && c.Service != ""
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		Dashboard: DashboardConfig{
			Port:         8080,
			RegistryURI:  defaults.RegistryURI,
			NodeTimeout:  Duration(defaults.NodeTimeout),
			CycleTimeout: Duration(defaults.CycleTimeout),
		},
		CoAP: CoAPConfig{
			Port:           defaults.CoAPPort,
			RequestTimeout: Duration(defaults.CoAPRequestTimeout),
		},
		Registry: RegistryConfig{
			AlivePort: defaults.RegistryAlivePort,
			HTTPPort:  defaults.RegistryHTTPPort,
			MaxAge:    Duration(defaults.RegistryNodeMaxAge),
		},
	}
}

// Load builds the configuration from defaults, the optional file at path,
// the .env file if present and COAPDASH_* environment variables, in that
// order of precedence.
func Load(path string) (*Config, error) {
	if err := loadDotEnv(DefaultEnvFile); err != nil {
		return nil, err
	}

	cfg := Default()
	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return cnserrors.Wrap(cnserrors.ErrCodeInvalidRequest, "failed to load "+path, err)
	}
	slog.Debug("loaded environment file", "path", path)
	return nil
}

func (c *Config) mergeFile(path string) error {
	r, err := serializer.NewFileReader(serializer.FormatFromPath(path), path)
	if err != nil {
		return cnserrors.Wrap(cnserrors.ErrCodeInvalidRequest, "failed to open config file", err)
	}
	defer func() {
		if cerr := r.Close(); cerr != nil {
			slog.Warn("failed to close config file", "error", cerr)
		}
	}()

	if err := r.Deserialize(c); err != nil {
		return cnserrors.WrapWithContext(cnserrors.ErrCodeInvalidRequest,
			"failed to parse config file", err, map[string]any{"path": path})
	}
	return nil
}

type lookupFunc func(string) (string, bool)

func (c *Config) applyEnv(lookup lookupFunc) error {
	var errs []error

	str := func(key string, dst *string) {
		if v, ok := lookup(EnvPrefix + key); ok && v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		if v, ok := lookup(EnvPrefix + key); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = n
		}
	}
	dur := func(key string, dst *Duration) {
		if v, ok := lookup(EnvPrefix + key); ok && v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = Duration(d)
		}
	}

	str("LOG_LEVEL", &c.LogLevel)

	str("ADDRESS", &c.Dashboard.Address)
	num("PORT", &c.Dashboard.Port)
	str("REGISTRY_URI", &c.Dashboard.RegistryURI)
	dur("NODE_TIMEOUT", &c.Dashboard.NodeTimeout)
	dur("CYCLE_TIMEOUT", &c.Dashboard.CycleTimeout)
	dur("POLL_INTERVAL", &c.Dashboard.PollInterval)

	num("COAP_PORT", &c.CoAP.Port)
	dur("COAP_TIMEOUT", &c.CoAP.RequestTimeout)

	str("REGISTRY_ADDRESS", &c.Registry.Address)
	num("ALIVE_PORT", &c.Registry.AlivePort)
	num("REGISTRY_PORT", &c.Registry.HTTPPort)
	dur("NODE_MAX_AGE", &c.Registry.MaxAge)

	str("CONSUL_ADDR", &c.Consul.Address)
	str("CONSUL_TOKEN", &c.Consul.Token)
	str("CONSUL_SERVICE", &c.Consul.Service)
	str("CONSUL_TAG", &c.Consul.Tag)

	if len(errs) > 0 {
		return cnserrors.Wrap(cnserrors.ErrCodeInvalidRequest, "invalid environment override", errors.Join(errs...))
	}
	return nil
}

// Validate checks ports and the timeout chain: a CoAP request must fit in
// a node's deadline and a node's deadline in the cycle watchdog.
func (c *Config) Validate() error {
	invalid := func(msg string, ctx map[string]any) error {
		return cnserrors.NewWithContext(cnserrors.ErrCodeInvalidRequest, msg, ctx)
	}

	for name, port := range map[string]int{
		"dashboard.port":     c.Dashboard.Port,
		"coap.port":          c.CoAP.Port,
		"registry.alivePort": c.Registry.AlivePort,
		"registry.httpPort":  c.Registry.HTTPPort,
	} {
		if port <= 0 || port > 65535 {
			return invalid("port out of range", map[string]any{"field": name, "value": port})
		}
	}

	if c.CoAP.RequestTimeout <= 0 || c.Dashboard.NodeTimeout <= 0 || c.Dashboard.CycleTimeout <= 0 {
		return invalid("timeouts must be positive", nil)
	}
	if c.Dashboard.NodeTimeout > c.Dashboard.CycleTimeout {
		return invalid("node timeout exceeds cycle timeout", map[string]any{
			"nodeTimeout":  c.Dashboard.NodeTimeout.String(),
			"cycleTimeout": c.Dashboard.CycleTimeout.String(),
		})
	}
	if c.Dashboard.PollInterval < 0 {
		return invalid("poll interval must not be negative", nil)
	}
	if c.Registry.MaxAge <= 0 {
		return invalid("registry max age must be positive", nil)
	}
	if !c.Consul.Enabled() && c.Dashboard.RegistryURI == "" {
		return invalid("either a registry URI or a consul service is required", nil)
	}
	return nil
}
