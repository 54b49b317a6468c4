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

	"github.com/blinklabs-io/comitia/event"
)

var errNoInvoker = errors.New("no invoker configured")

// ExecuteResolution dispatches the action of an approved proposal. It may
// only run during the grace period of the owning session and succeeds at
// most once per proposal.
func (e *Engine) ExecuteResolution(ctx context.Context, id uint64) (err error) {
	ctx, end := e.startSpan(ctx, "ExecuteResolution")
	defer func() { end(err) }()
	e.mu.Lock()
	defer e.mu.Unlock()
	p, err := e.proposal(id)
	if err != nil {
		return err
	}
	state := e.sessions[p.SessionId].StateAt(e.clock.Now())
	if state < SessionStateGrace {
		return fmt.Errorf(
			"%w: session %d is %s",
			ErrPhaseViolation,
			p.SessionId,
			state,
		)
	}
	if p.Executed {
		return fmt.Errorf("%w: proposal %d", ErrAlreadyExecuted, id)
	}
	if state == SessionStateClosed {
		return fmt.Errorf(
			"%w: grace period of session %d is over",
			ErrExpired,
			p.SessionId,
		)
	}
	tally, err := e.tally(ctx, p)
	if err != nil {
		return err
	}
	if !tally.Approved() {
		return fmt.Errorf(
			"%w: proposal %d (cancelled %t, quorum %t, majority %t)",
			ErrNotApproved,
			id,
			tally.Cancelled,
			tally.QuorumMet,
			tally.MajorityMet,
		)
	}
	cs := &Changeset{}
	if err := e.dispatch(ctx, cs, p); err != nil {
		return fmt.Errorf("%w: proposal %d: %w", ErrExecutionFailed, id, err)
	}
	p.Executed = true
	cs.putProposal(p)
	cs.observe(
		event.ResolutionExecutedEventType,
		event.ResolutionExecutedEvent{ProposalId: id},
	)
	if err := e.commit(ctx, cs); err != nil {
		// the external call may already have taken effect
		e.logger.Error(
			"failed to record executed resolution",
			"proposal", id,
			"target", p.ResolutionTarget,
			"error", err,
		)
		return err
	}
	e.logger.Info(
		"resolution executed",
		"proposal", id,
		"target", p.ResolutionTarget,
		"blank", p.IsBlank(),
	)
	return nil
}

// dispatch runs the resolution of p. Self-governance actions are staged
// into cs so that they commit together with the executed flag.
func (e *Engine) dispatch(ctx context.Context, cs *Changeset, p Proposal) error {
	switch {
	case p.IsBlank():
		return nil
	case p.ResolutionTarget == e.config.Address:
		return e.applyAction(cs, p.ResolutionAction)
	case e.config.Invoker == nil:
		return errNoInvoker
	default:
		return e.config.Invoker.Invoke(ctx, p.ResolutionTarget, p.ResolutionAction)
	}
}
