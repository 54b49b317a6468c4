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

package token

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/blinklabs-io/comitia/governance"
)

// DefaultTreasury receives seized tokens unless configured otherwise
const DefaultTreasury governance.Address = "treasury"

type LedgerOptionFunc func(*Ledger)

// WithLogger specifies the logger object to use for logging messages
func WithLogger(logger *slog.Logger) LedgerOptionFunc {
	return func(l *Ledger) {
		l.logger = logger
	}
}

// WithPromRegistry specifies the prometheus registry to use for metrics
func WithPromRegistry(registry prometheus.Registerer) LedgerOptionFunc {
	return func(l *Ledger) {
		l.promRegistry = registry
	}
}

// WithDataDir specifies the data directory to use for storage. An empty
// value keeps the ledger in memory.
func WithDataDir(dataDir string) LedgerOptionFunc {
	return func(l *Ledger) {
		l.dataDir = dataDir
	}
}

// WithGc specifies whether value log garbage collection is enabled
func WithGc(enabled bool) LedgerOptionFunc {
	return func(l *Ledger) {
		l.gcEnabled = enabled
	}
}

// WithTreasury specifies the address that receives seized tokens
func WithTreasury(treasury governance.Address) LedgerOptionFunc {
	return func(l *Ledger) {
		l.treasury = treasury
	}
}

// WithClock specifies the time source used to evaluate locks
func WithClock(now func() time.Time) LedgerOptionFunc {
	return func(l *Ledger) {
		l.now = now
	}
}
