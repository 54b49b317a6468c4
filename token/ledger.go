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
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/blinklabs-io/comitia/governance"
)

var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrTransfersLocked     = errors.New("transfers are locked")
	ErrSupplyOverflow      = errors.New("total supply overflow")
	ErrInvalidAmount       = errors.New("amount must be positive")
)

const (
	balancePrefix = "b/"
	lockPrefix    = "l/"
	supplyKey     = "supply"
)

// Lock is a window during which transfers are rejected
type Lock struct {
	Scope governance.Address
	Start time.Time
	End   time.Time
}

// Ledger keeps token balances in badger. It serves as the weight oracle of
// the governance engine and as the target of mint and seize resolutions.
type Ledger struct {
	promRegistry prometheus.Registerer
	db           *badger.DB
	logger       *slog.Logger
	metrics      *ledgerMetrics
	now          func() time.Time
	gcTicker     *time.Ticker
	gcStopCh     chan struct{}
	dataDir      string
	treasury     governance.Address
	gcWg         sync.WaitGroup
	// writes are serialized so that balance checks and updates cannot
	// interleave
	mu        sync.Mutex
	gcEnabled bool
}

// New opens a ledger. Without a data dir the ledger is kept in memory.
func New(opts ...LedgerOptionFunc) (*Ledger, error) {
	l := &Ledger{
		gcEnabled: true,
		now:       time.Now,
		treasury:  DefaultTreasury,
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.logger == nil {
		l.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	l.logger = l.logger.With("component", "token")
	var badgerOpts badger.Options
	if l.dataDir == "" {
		badgerOpts = badger.DefaultOptions("").
			WithLogger(newBadgerLogger(l.logger)).
			// The default INFO logging is a bit verbose
			WithLoggingLevel(badger.WARNING).
			WithInMemory(true)
		l.gcEnabled = false
	} else {
		if _, err := os.Stat(l.dataDir); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("failed to read data dir: %w", err)
			}
			if err := os.MkdirAll(l.dataDir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create data dir: %w", err)
			}
		}
		badgerOpts = badger.DefaultOptions(filepath.Join(l.dataDir, "token")).
			WithLogger(newBadgerLogger(l.logger)).
			WithLoggingLevel(badger.WARNING).
			WithCompression(options.Snappy)
	}
	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("open token ledger: %w", err)
	}
	l.db = db
	if l.promRegistry != nil {
		l.initMetrics(l.promRegistry)
		supply, err := l.TotalSupply(context.Background())
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		l.metrics.supply.Set(float64(supply))
	}
	if l.gcEnabled {
		l.gcTicker = time.NewTicker(5 * time.Minute)
		l.gcStopCh = make(chan struct{})
		l.gcWg.Add(1)
		go l.valueLogGc(l.gcTicker, l.gcStopCh)
	}
	return l, nil
}

func (l *Ledger) valueLogGc(t *time.Ticker, stop <-chan struct{}) {
	defer l.gcWg.Done()
	for {
		select {
		case <-t.C:
		again:
			err := l.db.RunValueLogGC(0.5)
			if err != nil {
				if !errors.Is(err, badger.ErrNoRewrite) {
					l.logger.Warn(fmt.Sprintf("token DB: GC failure: %s", err))
				}
			} else {
				// Run it again if it just ran successfully
				goto again
			}
		case <-stop:
			return
		}
	}
}

// Close stops background GC and closes the database
func (l *Ledger) Close() error {
	if l.gcTicker != nil {
		l.gcTicker.Stop()
		close(l.gcStopCh)
		l.gcWg.Wait()
		l.gcTicker = nil
	}
	return l.db.Close()
}

func (l *Ledger) Treasury() governance.Address {
	return l.treasury
}

func balanceKey(holder governance.Address) []byte {
	return append([]byte(balancePrefix), holder...)
}

func lockKey(lock Lock) []byte {
	key := make([]byte, 0, len(lockPrefix)+16+len(lock.Scope))
	key = append(key, lockPrefix...)
	key = binary.BigEndian.AppendUint64(key, uint64(lock.Start.Unix()))
	key = binary.BigEndian.AppendUint64(key, uint64(lock.End.Unix()))
	return append(key, lock.Scope...)
}

func readUint64(txn *badger.Txn, key []byte) (uint64, error) {
	item, err := txn.Get(key)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return 0, nil
		}
		return 0, err
	}
	var ret uint64
	err = item.Value(func(val []byte) error {
		if len(val) != 8 {
			return fmt.Errorf("corrupt value of %d bytes at %q", len(val), key)
		}
		ret = binary.BigEndian.Uint64(val)
		return nil
	})
	return ret, err
}

func writeUint64(txn *badger.Txn, key []byte, val uint64) error {
	if val == 0 {
		return txn.Delete(key)
	}
	return txn.Set(key, binary.BigEndian.AppendUint64(nil, val))
}

func (l *Ledger) BalanceOf(
	_ context.Context,
	holder governance.Address,
) (uint64, error) {
	var ret uint64
	err := l.db.View(func(txn *badger.Txn) error {
		var err error
		ret, err = readUint64(txn, balanceKey(holder))
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("read balance of %s: %w", holder, err)
	}
	return ret, nil
}

func (l *Ledger) TotalSupply(context.Context) (uint64, error) {
	var ret uint64
	err := l.db.View(func(txn *badger.Txn) error {
		var err error
		ret, err = readUint64(txn, []byte(supplyKey))
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("read total supply: %w", err)
	}
	return ret, nil
}

// Lock freezes transfers between start and end
func (l *Ledger) Lock(
	_ context.Context,
	scope governance.Address,
	start, end time.Time,
) error {
	if !end.After(start) {
		return fmt.Errorf("lock window ends at %s before it starts at %s", end, start)
	}
	lock := Lock{Scope: scope, Start: start, End: end}
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.db.Update(func(txn *badger.Txn) error {
		return txn.Set(lockKey(lock), nil)
	}); err != nil {
		return fmt.Errorf("store lock: %w", err)
	}
	l.logger.Info(
		"transfers locked",
		"scope", scope,
		"start", start,
		"end", end,
	)
	return nil
}

// Locks returns the stored lock windows ordered by start time
func (l *Ledger) Locks() ([]Lock, error) {
	var ret []Lock
	err := l.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{
			Prefix: []byte(lockPrefix),
		})
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			key := it.Item().KeyCopy(nil)[len(lockPrefix):]
			if len(key) < 16 {
				return fmt.Errorf("corrupt lock key %x", key)
			}
			ret = append(ret, Lock{
				Start: time.Unix(int64(binary.BigEndian.Uint64(key[:8])), 0).UTC(),
				End:   time.Unix(int64(binary.BigEndian.Uint64(key[8:16])), 0).UTC(),
				Scope: governance.Address(key[16:]),
			})
		}
		return nil
	})
	return ret, err
}

// LockedAt reports whether transfers are frozen at t
func (l *Ledger) LockedAt(t time.Time) (bool, error) {
	locks, err := l.Locks()
	if err != nil {
		return false, err
	}
	for _, lock := range locks {
		if !t.Before(lock.Start) && t.Before(lock.End) {
			return true, nil
		}
	}
	return false, nil
}

// Transfer moves tokens between holders. It fails while a lock is active.
func (l *Ledger) Transfer(
	_ context.Context,
	from, to governance.Address,
	amount uint64,
) error {
	if amount == 0 {
		return ErrInvalidAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	locked, err := l.LockedAt(now)
	if err != nil {
		return err
	}
	if locked {
		l.recordTransfer("locked")
		return fmt.Errorf("%w at %s", ErrTransfersLocked, now)
	}
	err = l.db.Update(func(txn *badger.Txn) error {
		return moveBalance(txn, from, to, amount)
	})
	if err != nil {
		l.recordTransfer("failed")
		return err
	}
	l.recordTransfer("ok")
	l.logger.Debug("transfer", "from", from, "to", to, "amount", amount)
	return nil
}

func moveBalance(
	txn *badger.Txn,
	from, to governance.Address,
	amount uint64,
) error {
	fromBalance, err := readUint64(txn, balanceKey(from))
	if err != nil {
		return err
	}
	if fromBalance < amount {
		return fmt.Errorf(
			"%w: %s holds %d, needs %d",
			ErrInsufficientBalance,
			from,
			fromBalance,
			amount,
		)
	}
	if from == to {
		return nil
	}
	toBalance, err := readUint64(txn, balanceKey(to))
	if err != nil {
		return err
	}
	if err := writeUint64(txn, balanceKey(from), fromBalance-amount); err != nil {
		return err
	}
	// cannot overflow since the sum is bounded by the total supply
	return writeUint64(txn, balanceKey(to), toBalance+amount)
}

// Mint creates new tokens for a holder
func (l *Ledger) Mint(
	_ context.Context,
	to governance.Address,
	amount uint64,
) error {
	if amount == 0 {
		return ErrInvalidAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	var supply uint64
	err := l.db.Update(func(txn *badger.Txn) error {
		var err error
		supply, err = readUint64(txn, []byte(supplyKey))
		if err != nil {
			return err
		}
		if supply > math.MaxUint64-amount {
			return ErrSupplyOverflow
		}
		balance, err := readUint64(txn, balanceKey(to))
		if err != nil {
			return err
		}
		supply += amount
		if err := writeUint64(txn, []byte(supplyKey), supply); err != nil {
			return err
		}
		return writeUint64(txn, balanceKey(to), balance+amount)
	})
	if err != nil {
		return fmt.Errorf("mint %d to %s: %w", amount, to, err)
	}
	if l.metrics != nil {
		l.metrics.supply.Set(float64(supply))
	}
	l.logger.Info("minted", "to", to, "amount", amount, "supply", supply)
	return nil
}

// Seize moves tokens from a holder to the treasury regardless of locks
func (l *Ledger) Seize(
	_ context.Context,
	from governance.Address,
	amount uint64,
) error {
	if amount == 0 {
		return ErrInvalidAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	err := l.db.Update(func(txn *badger.Txn) error {
		return moveBalance(txn, from, l.treasury, amount)
	})
	if err != nil {
		return fmt.Errorf("seize %d from %s: %w", amount, from, err)
	}
	l.logger.Info("seized", "from", from, "amount", amount, "treasury", l.treasury)
	return nil
}

// Genesis mints the initial balances into an empty ledger. It does
// nothing when tokens already exist.
func (l *Ledger) Genesis(
	ctx context.Context,
	balances map[governance.Address]uint64,
) error {
	supply, err := l.TotalSupply(ctx)
	if err != nil {
		return err
	}
	if supply > 0 {
		return nil
	}
	for holder, amount := range balances {
		if amount == 0 {
			continue
		}
		if err := l.Mint(ctx, holder, amount); err != nil {
			return err
		}
	}
	return nil
}

var (
	_ governance.WeightOracle = (*Ledger)(nil)
	_ governance.Invoker      = (*Ledger)(nil)
)
