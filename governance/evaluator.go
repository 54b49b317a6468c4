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
	"fmt"
	"math/bits"
)

// Tally is the evaluation of a proposal against its effective thresholds
type Tally struct {
	Approvals     uint64
	Participation uint64
	TotalSupply   uint64
	Requirement   ResolutionRequirement
	QuorumMet     bool
	MajorityMet   bool
	Cancelled     bool
}

func (t Tally) Approved() bool {
	return !t.Cancelled && t.QuorumMet && t.MajorityMet
}

// IsApproved reports whether a proposal currently meets both quorum and
// majority. Cancelled proposals are never approved.
func (e *Engine) IsApproved(ctx context.Context, id uint64) (bool, error) {
	tally, err := e.Tally(ctx, id)
	if err != nil {
		return false, err
	}
	return tally.Approved(), nil
}

// Tally evaluates a proposal. The total supply is read from the oracle at
// call time.
func (e *Engine) Tally(ctx context.Context, id uint64) (Tally, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, err := e.proposal(id)
	if err != nil {
		return Tally{}, err
	}
	return e.tally(ctx, p)
}

func (e *Engine) tally(ctx context.Context, p Proposal) (Tally, error) {
	sess := e.sessions[p.SessionId]
	supply, err := e.config.Oracle.TotalSupply(ctx)
	if err != nil {
		return Tally{}, fmt.Errorf("total supply: %w", err)
	}
	req := sess.requirement(ActionSelector(p.ResolutionAction))
	return Tally{
		Approvals:     p.Approvals,
		Participation: sess.Participation,
		TotalSupply:   supply,
		Requirement:   req,
		Cancelled:     p.Cancelled,
		QuorumMet: mulGeq(
			sess.Participation, 100,
			supply, uint64(req.Quorum),
		),
		MajorityMet: mulGeq(
			p.Approvals, 100,
			sess.Participation, uint64(req.Majority),
		),
	}, nil
}

// mulGeq reports a*b >= c*d without overflow
func mulGeq(a, b, c, d uint64) bool {
	hi1, lo1 := bits.Mul64(a, b)
	hi2, lo2 := bits.Mul64(c, d)
	return hi1 > hi2 || (hi1 == hi2 && lo1 >= lo2)
}

func validateRequirement(sel Selector, req ResolutionRequirement) error {
	if req.Majority > 100 || req.Quorum > 100 {
		return fmt.Errorf(
			"%w: requirement for %s has majority %d and quorum %d",
			ErrInvalidRule,
			sel,
			req.Majority,
			req.Quorum,
		)
	}
	return nil
}
