// Copyright 2026 Blink Labs Software
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

package governance

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// WeightOracle supplies voting weights. Lock asks the oracle to freeze the
// balances it governs for scope between start and end so that weights
// cannot move while a session is being voted and executed.
type WeightOracle interface {
	BalanceOf(ctx context.Context, holder Address) (uint64, error)
	TotalSupply(ctx context.Context) (uint64, error)
	Lock(ctx context.Context, scope Address, start, end time.Time) error
}

// Invoker dispatches a resolution payload to its target
type Invoker interface {
	Invoke(ctx context.Context, target Address, action []byte) error
}

// InvokerFunc adapts a plain function to the Invoker interface
type InvokerFunc func(ctx context.Context, target Address, action []byte) error

func (f InvokerFunc) Invoke(
	ctx context.Context,
	target Address,
	action []byte,
) error {
	return f(ctx, target, action)
}

var ErrUnknownTarget = errors.New("unknown resolution target")

// Router dispatches to the invoker registered for the target address
type Router struct {
	targets map[Address]Invoker
	mu      sync.RWMutex
}

func NewRouter() *Router {
	return &Router{
		targets: make(map[Address]Invoker),
	}
}

// Register makes target reachable from resolutions. A later registration
// for the same target replaces the earlier one.
func (r *Router) Register(target Address, invoker Invoker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.targets[target] = invoker
}

func (r *Router) Invoke(
	ctx context.Context,
	target Address,
	action []byte,
) error {
	r.mu.RLock()
	invoker, ok := r.targets[target]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTarget, target)
	}
	return invoker.Invoke(ctx, target, action)
}

type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now()
}

// Store persists engine changes. Commit must be all-or-nothing: either
// every record in the changeset is durable or none is.
type Store interface {
	Commit(ctx context.Context, cs *Changeset) error
}
