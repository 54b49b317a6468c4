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

package comitia

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/blinklabs-io/comitia/governance"
)

const (
	DefaultEngineAddress governance.Address = "governance"
	DefaultTokenAddress  governance.Address = "token"
)

type Config struct {
	promRegistry  prometheus.Registerer
	logger        *slog.Logger
	clock         governance.Clock
	requirements  map[governance.Selector]governance.ResolutionRequirement
	genesis       map[governance.Address]uint64
	rule          *governance.SessionRule
	dataDir       string
	engineAddress governance.Address
	tokenAddress  governance.Address
	treasury      governance.Address
	quaestors     []governance.Address
	// API listen address (empty = disabled)
	apiListenAddress string
	apiMaxRequests   int
	shutdownTimeout  time.Duration
	tracing          bool
	tracingStdout    bool
}

func (n *Node) configValidate() error {
	if n.config.engineAddress == "" {
		return errors.New("engine address must not be empty")
	}
	if n.config.tokenAddress == "" {
		return errors.New("token address must not be empty")
	}
	if n.config.tokenAddress == n.config.engineAddress {
		return fmt.Errorf(
			"token address %q collides with the engine address",
			n.config.tokenAddress,
		)
	}
	if n.config.rule != nil {
		if err := n.config.rule.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// ConfigOptionFunc is a type that represents functions that modify the node config
type ConfigOptionFunc func(*Config)

// NewConfig creates a new comitia config with the specified options
func NewConfig(opts ...ConfigOptionFunc) Config {
	c := Config{
		// Default logger will throw away logs
		// We do this so we don't have to add guards around every log operation
		logger:        slog.New(slog.NewJSONHandler(io.Discard, nil)),
		engineAddress: DefaultEngineAddress,
		tokenAddress:  DefaultTokenAddress,
	}
	// Apply options
	for _, opt := range opts {
		opt(&c)
	}
	if c.logger == nil {
		c.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return c
}

// WithDataDir specifies the persistent data directory to use. The default is to store everything in memory
func WithDataDir(dataDir string) ConfigOptionFunc {
	return func(c *Config) {
		c.dataDir = dataDir
	}
}

// WithLogger specifies the logger to use
func WithLogger(logger *slog.Logger) ConfigOptionFunc {
	return func(c *Config) {
		c.logger = logger
	}
}

// WithPrometheusRegistry specifies a prometheus.Registerer instance to add metrics to. In most cases, prometheus.DefaultRegistry would be
// a good choice to get metrics working
func WithPrometheusRegistry(registry prometheus.Registerer) ConfigOptionFunc {
	return func(c *Config) {
		c.promRegistry = registry
	}
}

// WithClock overrides the time source of the engine and the API
func WithClock(clock governance.Clock) ConfigOptionFunc {
	return func(c *Config) {
		c.clock = clock
	}
}

// WithSessionRule specifies the rule applied to sessions until a
// resolution replaces it
func WithSessionRule(rule governance.SessionRule) ConfigOptionFunc {
	return func(c *Config) {
		c.rule = &rule
	}
}

// WithResolutionRequirements specifies per-selector approval thresholds
func WithResolutionRequirements(
	requirements map[governance.Selector]governance.ResolutionRequirement,
) ConfigOptionFunc {
	return func(c *Config) {
		c.requirements = maps.Clone(requirements)
	}
}

// WithQuaestors specifies the initial quaestors
func WithQuaestors(quaestors ...governance.Address) ConfigOptionFunc {
	return func(c *Config) {
		c.quaestors = append(c.quaestors, quaestors...)
	}
}

// WithGenesis specifies the token balances minted into an empty ledger
func WithGenesis(balances map[governance.Address]uint64) ConfigOptionFunc {
	return func(c *Config) {
		c.genesis = maps.Clone(balances)
	}
}

// WithEngineAddress specifies the address that resolutions target to
// change the engine itself
func WithEngineAddress(addr governance.Address) ConfigOptionFunc {
	return func(c *Config) {
		c.engineAddress = addr
	}
}

// WithTokenAddress specifies the address that resolutions target to
// mint or seize tokens
func WithTokenAddress(addr governance.Address) ConfigOptionFunc {
	return func(c *Config) {
		c.tokenAddress = addr
	}
}

// WithTreasury specifies the holder that receives seized tokens
func WithTreasury(addr governance.Address) ConfigOptionFunc {
	return func(c *Config) {
		c.treasury = addr
	}
}

// WithApiListenAddress specifies the listen address of the REST API. An
// empty value disables the API.
func WithApiListenAddress(addr string) ConfigOptionFunc {
	return func(c *Config) {
		c.apiListenAddress = addr
	}
}

// WithApiMaxRequestsPerIP limits the concurrent API requests of a single
// client address
func WithApiMaxRequestsPerIP(limit int) ConfigOptionFunc {
	return func(c *Config) {
		c.apiMaxRequests = limit
	}
}

// WithTracing enables tracing. By default, spans are submitted to a HTTP(s) OTLP collector at localhost:4318 (or an address specified
// using the OTEL_EXPORTER_OTLP_* env vars documented in the README for [go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp]
func WithTracing(tracing bool) ConfigOptionFunc {
	return func(c *Config) {
		c.tracing = tracing
	}
}

// WithTracingStdout enables tracing output to stdout. This also requires tracing to enabled separately. This is mostly useful for debugging
func WithTracingStdout(stdout bool) ConfigOptionFunc {
	return func(c *Config) {
		c.tracingStdout = stdout
	}
}

// WithShutdownTimeout specifies the timeout for graceful shutdown. The default is 30 seconds
func WithShutdownTimeout(timeout time.Duration) ConfigOptionFunc {
	return func(c *Config) {
		c.shutdownTimeout = timeout
	}
}
