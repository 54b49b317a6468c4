// Copyright 2025 Blink Labs Software
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
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/blinklabs-io/comitia/governance"
)

type ctxKey string

const configContextKey ctxKey = "comitia.config"

const (
	DefaultShutdownTimeout = "30s"
	DefaultEngineAddress   = "governance"
	DefaultTokenAddress    = "token"
	DefaultTreasuryAddress = "treasury"
)

// EnvPrefix is prepended to every environment variable name
const EnvPrefix = "comitia"

func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configContextKey, cfg)
}

func FromContext(ctx context.Context) *Config {
	cfg, ok := ctx.Value(configContextKey).(*Config)
	if !ok {
		return nil
	}
	return cfg
}

type tempConfig struct {
	Config *Config `yaml:"config,omitempty"`
}

type Config struct {
	DataDir         string `yaml:"dataDir"         split_words:"true"`
	BindAddr        string `yaml:"bindAddr"        split_words:"true"`
	EngineAddress   string `yaml:"engineAddress"   split_words:"true"`
	TokenAddress    string `yaml:"tokenAddress"    split_words:"true"`
	TreasuryAddress string `yaml:"treasuryAddress" split_words:"true"`
	ShutdownTimeout string `yaml:"shutdownTimeout" split_words:"true"`
	// Selector (hex) to thresholds. Only configurable from the file.
	Requirements        map[string]governance.ResolutionRequirement `yaml:"requirements"  ignored:"true"`
	Genesis             map[string]uint64                           `yaml:"genesis"`
	Quaestors           []string                                    `yaml:"quaestors"`
	Rule                governance.SessionRule                      `yaml:"rule"`
	ApiPort             uint                                        `yaml:"apiPort"       split_words:"true"`
	// Concurrent API requests allowed per client address. Zero disables
	// the limit.
	ApiMaxRequestsPerIP uint                                        `yaml:"apiMaxRequestsPerIp" envconfig:"API_MAX_REQUESTS_PER_IP"`
	MetricsPort         uint                                        `yaml:"metricsPort"   split_words:"true"`
	Tracing             bool                                        `yaml:"tracing"`
	TracingStdout       bool                                        `yaml:"tracingStdout" split_words:"true"`
	Debug               bool                                        `yaml:"debug"`
}

func defaultConfig() *Config {
	return &Config{
		DataDir:             ".comitia",
		BindAddr:            "0.0.0.0",
		ApiPort:             8080,
		ApiMaxRequestsPerIP: 32,
		MetricsPort:         12799,
		EngineAddress:       DefaultEngineAddress,
		TokenAddress:        DefaultTokenAddress,
		TreasuryAddress:     DefaultTreasuryAddress,
		ShutdownTimeout:     DefaultShutdownTimeout,
		Rule:                governance.DefaultSessionRule(),
	}
}

var globalConfig = defaultConfig()

func LoadConfig(configFile string) (*Config, error) {
	if configFile == "" {
		// Check for config file in this path: ~/.comitia/comitia.yaml
		if homeDir, err := os.UserHomeDir(); err == nil {
			userPath := filepath.Join(homeDir, ".comitia", "comitia.yaml")
			if _, err := os.Stat(userPath); err == nil {
				configFile = userPath
			}
		}

		// Try to check for /etc/comitia/comitia.yaml if still not found
		if configFile == "" {
			systemPath := "/etc/comitia/comitia.yaml"
			if _, err := os.Stat(systemPath); err == nil {
				configFile = systemPath
			}
		}
	}

	if configFile != "" {
		buf, err := os.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		var tempCfg tempConfig
		if err := yaml.Unmarshal(buf, &tempCfg); err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
		if tempCfg.Config != nil {
			// Overlay config values onto existing defaults
			configBytes, err := yaml.Marshal(tempCfg.Config)
			if err != nil {
				return nil, fmt.Errorf("error re-marshalling config: %w", err)
			}
			buf = configBytes
		}
		if err := yaml.Unmarshal(buf, globalConfig); err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
	}
	// Process environment variables
	if err := envconfig.Process(EnvPrefix, globalConfig); err != nil {
		return nil, fmt.Errorf("error processing environment: %+w", err)
	}
	if err := globalConfig.Validate(); err != nil {
		return nil, err
	}
	return globalConfig, nil
}

func GetConfig() *Config {
	return globalConfig
}

// Validate checks the values that cannot be checked by parsing alone
func (c *Config) Validate() error {
	if _, err := c.ShutdownTimeoutDuration(); err != nil {
		return err
	}
	if err := c.Rule.Validate(); err != nil {
		return fmt.Errorf("invalid rule: %w", err)
	}
	if _, err := c.SelectorRequirements(); err != nil {
		return err
	}
	if c.EngineAddress == "" {
		return errors.New("engineAddress must not be empty")
	}
	if c.TokenAddress == "" || c.TokenAddress == c.EngineAddress {
		return fmt.Errorf(
			"tokenAddress %q must be set and differ from engineAddress",
			c.TokenAddress,
		)
	}
	return nil
}

func (c *Config) ShutdownTimeoutDuration() (time.Duration, error) {
	timeout, err := time.ParseDuration(c.ShutdownTimeout)
	if err != nil {
		return 0, fmt.Errorf(
			"invalid shutdownTimeout %q: %w",
			c.ShutdownTimeout,
			err,
		)
	}
	if timeout <= 0 {
		return 0, fmt.Errorf("shutdownTimeout must be positive, got %s", timeout)
	}
	return timeout, nil
}

// SelectorRequirements decodes the hex selector keys of Requirements
func (c *Config) SelectorRequirements() (
	map[governance.Selector]governance.ResolutionRequirement,
	error,
) {
	ret := make(
		map[governance.Selector]governance.ResolutionRequirement,
		len(c.Requirements),
	)
	for key, req := range c.Requirements {
		sel, err := governance.ParseSelector(key)
		if err != nil {
			return nil, fmt.Errorf("requirement %q: %w", key, err)
		}
		ret[sel] = req
	}
	return ret, nil
}

func (c *Config) QuaestorAddresses() []governance.Address {
	ret := make([]governance.Address, 0, len(c.Quaestors))
	for _, q := range c.Quaestors {
		ret = append(ret, governance.Address(q))
	}
	return ret
}

func (c *Config) GenesisBalances() map[governance.Address]uint64 {
	ret := make(map[governance.Address]uint64, len(c.Genesis))
	for holder, amount := range c.Genesis {
		ret[governance.Address(holder)] = amount
	}
	return ret
}
