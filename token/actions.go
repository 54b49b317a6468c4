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
	"fmt"

	"github.com/blinklabs-io/gouroboros/cbor"

	"github.com/blinklabs-io/comitia/governance"
)

// Selectors of the resolutions the ledger executes
var (
	SelectorMint  = governance.SelectorOf("mint(address,uint64)")
	SelectorSeize = governance.SelectorOf("seize(address,uint64)")
)

type amountArgs struct {
	cbor.StructAsArray
	Holder string
	Amount uint64
}

// EncodeMint builds the resolution action minting amount to holder
func EncodeMint(holder governance.Address, amount uint64) ([]byte, error) {
	return governance.EncodeAction(
		SelectorMint,
		&amountArgs{Holder: string(holder), Amount: amount},
	)
}

// EncodeSeize builds the resolution action moving amount from holder to
// the treasury
func EncodeSeize(holder governance.Address, amount uint64) ([]byte, error) {
	return governance.EncodeAction(
		SelectorSeize,
		&amountArgs{Holder: string(holder), Amount: amount},
	)
}

// Invoke executes a mint or seize resolution
func (l *Ledger) Invoke(
	ctx context.Context,
	_ governance.Address,
	action []byte,
) error {
	var args amountArgs
	switch sel := governance.ActionSelector(action); sel {
	case SelectorMint:
		if err := governance.DecodeActionArgs(action, &args); err != nil {
			return err
		}
		return l.Mint(ctx, governance.Address(args.Holder), args.Amount)
	case SelectorSeize:
		if err := governance.DecodeActionArgs(action, &args); err != nil {
			return err
		}
		return l.Seize(ctx, governance.Address(args.Holder), args.Amount)
	default:
		return fmt.Errorf("%w: %s", governance.ErrUnknownAction, sel)
	}
}
