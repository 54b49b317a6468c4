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
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/blinklabs-io/comitia/api"
	"github.com/blinklabs-io/comitia/database"
	"github.com/blinklabs-io/comitia/event"
	"github.com/blinklabs-io/comitia/governance"
	"github.com/blinklabs-io/comitia/token"
)

type Node struct {
	eventBus      *event.EventBus
	ledger        *token.Ledger
	store         *database.Store
	engine        *governance.Engine
	api           *api.Server
	shutdownFuncs []func(context.Context) error
	config        Config
	started       chan struct{}
	done          chan struct{}
	startOnce     sync.Once
	shutdownOnce  sync.Once
}

func New(cfg Config) (*Node, error) {
	eventBus := event.NewEventBus(cfg.promRegistry, cfg.logger)
	n := &Node{
		config:   cfg,
		eventBus: eventBus,
		started:  make(chan struct{}),
		done:     make(chan struct{}),
	}
	if err := n.configValidate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return n, nil
}

// Run starts the node and blocks until Stop is called
func (n *Node) Run(ctx context.Context) error {
	// Configure tracing
	if n.config.tracing {
		if err := n.setupTracing(); err != nil {
			return err
		}
	}
	// Load token ledger
	ledgerOpts := []token.LedgerOptionFunc{
		token.WithLogger(n.config.logger),
		token.WithPromRegistry(n.config.promRegistry),
		token.WithDataDir(n.config.dataDir),
	}
	if n.config.treasury != "" {
		ledgerOpts = append(ledgerOpts, token.WithTreasury(n.config.treasury))
	}
	if n.config.clock != nil {
		ledgerOpts = append(ledgerOpts, token.WithClock(n.config.clock.Now))
	}
	ledger, err := token.New(ledgerOpts...)
	if err != nil {
		return fmt.Errorf("failed to open token ledger: %w", err)
	}
	n.ledger = ledger
	if len(n.config.genesis) > 0 {
		if err := n.ledger.Genesis(ctx, n.config.genesis); err != nil {
			return fmt.Errorf("failed to apply token genesis: %w", err)
		}
	}
	// Load engine store
	store, err := database.New(
		database.WithLogger(n.config.logger),
		database.WithPromRegistry(n.config.promRegistry),
		database.WithDataDir(n.config.dataDir),
		database.WithTracing(n.config.tracing),
	)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	n.store = store
	// Resolutions targeting the token address mint or seize
	router := governance.NewRouter()
	router.Register(n.config.tokenAddress, n.ledger)
	engineCfg := governance.EngineConfig{
		Logger:       n.config.logger,
		PromRegistry: n.config.promRegistry,
		EventBus:     n.eventBus,
		Oracle:       n.ledger,
		Invoker:      router,
		Clock:        n.config.clock,
		Store:        n.store,
		Address:      n.config.engineAddress,
		Requirements: n.config.requirements,
		Quaestors:    n.config.quaestors,
	}
	if n.config.rule != nil {
		engineCfg.Rule = *n.config.rule
	}
	engine, err := governance.NewEngine(engineCfg)
	if err != nil {
		return fmt.Errorf("failed to create governance engine: %w", err)
	}
	n.engine = engine
	// Restore persisted state. Stored governance changes take precedence
	// over the configured rule, requirements and quaestors.
	state, err := n.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load governance state: %w", err)
	}
	if err := n.engine.Restore(state); err != nil {
		return fmt.Errorf("failed to restore governance state: %w", err)
	}
	n.eventBus.SubscribeFunc(
		event.ResolutionExecutedEventType,
		n.handleResolutionExecuted,
	)
	// Configure API
	if n.config.apiListenAddress != "" {
		n.api = api.New(
			api.ServerConfig{
				ListenAddress:    n.config.apiListenAddress,
				Clock:            n.config.clock,
				MaxRequestsPerIP: n.config.apiMaxRequests,
			},
			n.engine,
			n.config.logger,
		)
		if err := n.api.Start(ctx); err != nil {
			return err
		}
	}
	n.config.logger.Info(
		"governance node started",
		"component", "node",
		"sessions", n.engine.SessionsCount(),
		"proposals", n.engine.ProposalsCount(),
	)
	n.startOnce.Do(func() { close(n.started) })

	// Wait for shutdown signal
	<-n.done
	return nil
}

// Started is closed once Run has finished starting all components
func (n *Node) Started() <-chan struct{} {
	return n.started
}

// Engine returns the governance engine. It is nil until the node has started.
func (n *Node) Engine() *governance.Engine {
	return n.engine
}

// Ledger returns the token ledger. It is nil until the node has started.
func (n *Node) Ledger() *token.Ledger {
	return n.ledger
}

func (n *Node) EventBus() *event.EventBus {
	return n.eventBus
}

// ApiAddr returns the address of the REST API, or an empty string when
// the API is disabled or not started
func (n *Node) ApiAddr() string {
	if n.api == nil || n.api.Addr() == nil {
		return ""
	}
	return n.api.Addr().String()
}

func (n *Node) handleResolutionExecuted(evt event.Event) {
	data, ok := evt.Data.(event.ResolutionExecutedEvent)
	if !ok {
		return
	}
	p, err := n.engine.Proposal(data.ProposalId)
	if err != nil {
		return
	}
	n.config.logger.Info(
		"resolution executed",
		"component", "node",
		"proposal", p.Id,
		"name", p.Name,
		"target", p.ResolutionTarget,
	)
}

func (n *Node) Stop() error {
	var err error
	n.shutdownOnce.Do(func() {
		err = n.shutdown()
	})
	return err
}

func (n *Node) shutdown() error {
	// Create shutdown context with timeout (default 30s if not configured)
	shutdownTimeout := 30 * time.Second
	if n.config.shutdownTimeout > 0 {
		shutdownTimeout = n.config.shutdownTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var err error

	n.config.logger.Debug("starting graceful shutdown")

	// Phase 1: Stop accepting new work
	n.config.logger.Debug("shutdown phase 1: stopping new work")

	if n.api != nil {
		if stopErr := n.api.Stop(ctx); stopErr != nil {
			err = errors.Join(err, fmt.Errorf("api shutdown: %w", stopErr))
		}
	}

	// Phase 2: Stop event delivery
	n.config.logger.Debug("shutdown phase 2: stopping event delivery")

	if n.eventBus != nil {
		n.eventBus.Stop()
	}

	// Phase 3: Close storage
	n.config.logger.Debug("shutdown phase 3: closing storage")

	if n.store != nil {
		if closeErr := n.store.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("database close: %w", closeErr))
		}
	}

	if n.ledger != nil {
		if closeErr := n.ledger.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("token ledger close: %w", closeErr))
		}
	}

	// Phase 4: Cleanup resources
	n.config.logger.Debug("shutdown phase 4: cleanup resources")

	// Call registered shutdown functions
	for _, fn := range n.shutdownFuncs {
		if fnErr := fn(ctx); fnErr != nil {
			err = errors.Join(err, fmt.Errorf("shutdown function: %w", fnErr))
		}
	}
	n.shutdownFuncs = nil

	n.config.logger.Debug("graceful shutdown complete")
	close(n.done)
	return err
}
