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
	"maps"
	"slices"
	"time"

	"github.com/blinklabs-io/comitia/event"
)

// DefineProposal attaches a new proposal to the session open for
// proposals, scheduling one when needed, and returns the proposal id
func (e *Engine) DefineProposal(
	ctx context.Context,
	caller Address,
	def ProposalDefinition,
) (id uint64, err error) {
	ctx, end := e.startSpan(ctx, "DefineProposal")
	defer func() { end(err) }()
	e.mu.Lock()
	defer e.mu.Unlock()
	now := e.clock.Now()
	cs := &Changeset{}
	sess, scheduled, err := e.proposalSession(now)
	if err != nil {
		return 0, err
	}
	balance, err := e.config.Oracle.BalanceOf(ctx, caller)
	if err != nil {
		return 0, fmt.Errorf("balance of %s: %w", caller, err)
	}
	if e.quaestors[caller] {
		if sess.ProposalsCount >= sess.Rule.MaxProposalsQuaestor {
			return 0, fmt.Errorf(
				"%w: session %d holds %d proposals",
				ErrQuotaExceeded,
				sess.Id,
				sess.ProposalsCount,
			)
		}
	} else {
		if balance < sess.Rule.NewProposalThreshold {
			return 0, fmt.Errorf(
				"%w: balance %d below proposal threshold %d",
				ErrNotAuthorized,
				balance,
				sess.Rule.NewProposalThreshold,
			)
		}
		if sess.ProposalsCount >= sess.Rule.MaxProposals {
			return 0, fmt.Errorf(
				"%w: session %d holds %d proposals",
				ErrQuotaExceeded,
				sess.Id,
				sess.ProposalsCount,
			)
		}
	}
	if scheduled {
		lockStart, lockEnd := sess.Rule.lockWindow(sess.StartAt)
		if err := e.config.Oracle.Lock(ctx, e.config.Address, lockStart, lockEnd); err != nil {
			return 0, fmt.Errorf("lock weights for session %d: %w", sess.Id, err)
		}
		cs.observe(
			event.SessionScheduledEventType,
			event.SessionScheduledEvent{SessionId: sess.Id, StartAt: sess.StartAt},
		)
	}
	p := Proposal{
		Id:               uint64(len(e.proposals)),
		SessionId:        sess.Id,
		Name:             def.Name,
		Url:              def.Url,
		ContentHash:      slices.Clone(def.ContentHash),
		ProposedBy:       caller,
		ResolutionTarget: def.ResolutionTarget,
		ResolutionAction: slices.Clone(def.ResolutionAction),
		Weight:           balance,
	}
	sess.ProposalsCount++
	cs.putSession(sess)
	cs.putProposal(p)
	cs.observe(
		event.ProposalDefinedEventType,
		event.ProposalDefinedEvent{ProposalId: p.Id, SessionId: sess.Id},
	)
	if err := e.commit(ctx, cs); err != nil {
		return 0, err
	}
	if scheduled {
		e.logger.Info(
			"session scheduled",
			"session", sess.Id,
			"start_at", sess.StartAt,
		)
	}
	e.logger.Info(
		"proposal defined",
		"proposal", p.Id,
		"session", sess.Id,
		"proposer", caller,
		"blank", p.IsBlank(),
	)
	return p.Id, nil
}

// proposalSession picks the session a new proposal goes to. The bool is
// true when the session is new and still has to be committed.
func (e *Engine) proposalSession(now time.Time) (Session, bool, error) {
	latest, ok := e.latestSession()
	if ok {
		state := latest.StateAt(now)
		switch state {
		case SessionStatePlanned, SessionStateCampaign:
			return latest, false, nil
		case SessionStateClosed:
		default:
			return Session{}, false, fmt.Errorf(
				"%w: session %d is %s",
				ErrPhaseViolation,
				latest.Id,
				state,
			)
		}
	}
	return Session{
		Id:              uint64(len(e.sessions)),
		StartAt:         NextStartAt(e.rule, now),
		FirstProposalId: uint64(len(e.proposals)),
		Rule:            e.rule,
		Requirements:    maps.Clone(e.requirements),
	}, true, nil
}

// CancelProposal withdraws a proposal so that it can no longer be
// approved or executed. Only the proposer or a quaestor may cancel.
func (e *Engine) CancelProposal(
	ctx context.Context,
	caller Address,
	id uint64,
) (err error) {
	ctx, end := e.startSpan(ctx, "CancelProposal")
	defer func() { end(err) }()
	e.mu.Lock()
	defer e.mu.Unlock()
	p, err := e.proposal(id)
	if err != nil {
		return err
	}
	if caller != p.ProposedBy && !e.quaestors[caller] {
		return fmt.Errorf(
			"%w: %s may not cancel proposal %d",
			ErrNotAuthorized,
			caller,
			id,
		)
	}
	if p.Executed {
		return fmt.Errorf("%w: proposal %d", ErrAlreadyExecuted, id)
	}
	if e.sessions[p.SessionId].StateAt(e.clock.Now()) == SessionStateClosed {
		return fmt.Errorf("%w: session %d is closed", ErrExpired, p.SessionId)
	}
	if p.Cancelled {
		return nil
	}
	p.Cancelled = true
	cs := &Changeset{}
	cs.putProposal(p)
	cs.observe(
		event.ProposalCancelledEventType,
		event.ProposalCancelledEvent{ProposalId: id, CancelledBy: string(caller)},
	)
	if err := e.commit(ctx, cs); err != nil {
		return err
	}
	e.logger.Info("proposal cancelled", "proposal", id, "by", caller)
	return nil
}
