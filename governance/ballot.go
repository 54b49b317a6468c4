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
	"time"

	"github.com/blinklabs-io/comitia/event"
)

// SubmitVote casts an open ballot in the session currently voting. Entry i
// of choices approves the i-th proposal of the session.
func (e *Engine) SubmitVote(
	ctx context.Context,
	voter Address,
	choices []bool,
) (err error) {
	ctx, end := e.startSpan(ctx, "SubmitVote")
	defer func() { end(err) }()
	e.mu.Lock()
	defer e.mu.Unlock()
	now := e.clock.Now()
	sess, err := e.activeSession(now, SessionStateVoting)
	if err != nil {
		return err
	}
	if err := e.checkNotVoted(sess.Id, voter); err != nil {
		return err
	}
	cs := &Changeset{}
	weight, err := e.castVote(ctx, cs, sess, voter, choices, now)
	if err != nil {
		return err
	}
	if err := e.commit(ctx, cs); err != nil {
		return err
	}
	e.logger.Debug("vote cast", "session", sess.Id, "voter", voter, "weight", weight)
	return nil
}

// SubmitVoteSecret records a commitment to a ballot revealed later. A
// commitment may be replaced until the voter has a counted vote.
func (e *Engine) SubmitVoteSecret(
	ctx context.Context,
	voter Address,
	commitment Commitment,
) (err error) {
	ctx, end := e.startSpan(ctx, "SubmitVoteSecret")
	defer func() { end(err) }()
	if commitment.IsZero() {
		return fmt.Errorf("%w: empty commitment", ErrInvalidBallot)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	sess, err := e.activeSession(e.clock.Now(), SessionStateVoting)
	if err != nil {
		return err
	}
	if err := e.checkNotVoted(sess.Id, voter); err != nil {
		return err
	}
	cs := &Changeset{
		Secrets: []SecretRecord{
			{SessionId: sess.Id, Voter: voter, Commitment: commitment},
		},
	}
	cs.observe(
		event.VoteSecretEventType,
		event.VoteSecretEvent{SessionId: sess.Id, Voter: string(voter)},
	)
	if err := e.commit(ctx, cs); err != nil {
		return err
	}
	e.logger.Debug("vote secret recorded", "session", sess.Id, "voter", voter)
	return nil
}

// RevealVoteSecret opens a committed ballot. The ballot counts exactly as
// if it had been submitted with SubmitVote.
func (e *Engine) RevealVoteSecret(
	ctx context.Context,
	voter Address,
	choices []bool,
	salt []byte,
) (err error) {
	ctx, end := e.startSpan(ctx, "RevealVoteSecret")
	defer func() { end(err) }()
	e.mu.Lock()
	defer e.mu.Unlock()
	now := e.clock.Now()
	sess, err := e.activeSession(now, SessionStateReveal)
	if err != nil {
		return err
	}
	if err := e.checkNotVoted(sess.Id, voter); err != nil {
		return err
	}
	stored, ok := e.secrets[ballotKey{sess.Id, voter}]
	if !ok {
		return fmt.Errorf(
			"%w: no commitment from %s in session %d",
			ErrSecretMismatch,
			voter,
			sess.Id,
		)
	}
	computed, err := BallotCommitment(choices, salt)
	if err != nil {
		return err
	}
	if computed != stored {
		return fmt.Errorf(
			"%w: ballot of %s does not match commitment %s",
			ErrSecretMismatch,
			voter,
			stored,
		)
	}
	cs := &Changeset{}
	cs.observe(
		event.VoteRevealedEventType,
		event.VoteRevealedEvent{SessionId: sess.Id, Voter: string(voter)},
	)
	weight, err := e.castVote(ctx, cs, sess, voter, choices, now)
	if err != nil {
		return err
	}
	if err := e.commit(ctx, cs); err != nil {
		return err
	}
	e.logger.Debug(
		"vote revealed",
		"session", sess.Id,
		"voter", voter,
		"weight", weight,
	)
	return nil
}

func (e *Engine) checkNotVoted(sessionId uint64, voter Address) error {
	if _, ok := e.votes[ballotKey{sessionId, voter}]; ok {
		return fmt.Errorf(
			"%w: %s in session %d",
			ErrDuplicateVote,
			voter,
			sessionId,
		)
	}
	return nil
}

// castVote stages the aggregation of one counted ballot
func (e *Engine) castVote(
	ctx context.Context,
	cs *Changeset,
	sess Session,
	voter Address,
	choices []bool,
	now time.Time,
) (uint64, error) {
	if uint64(len(choices)) != uint64(sess.ProposalsCount) {
		return 0, fmt.Errorf(
			"%w: %d choices for %d proposals",
			ErrInvalidBallot,
			len(choices),
			sess.ProposalsCount,
		)
	}
	weight, err := e.config.Oracle.BalanceOf(ctx, voter)
	if err != nil {
		return 0, fmt.Errorf("balance of %s: %w", voter, err)
	}
	for i, approve := range choices {
		if !approve {
			continue
		}
		p := e.proposals[sess.FirstProposalId+uint64(i)]
		p.Approvals += weight
		cs.putProposal(p)
	}
	sess.Participation += weight
	cs.putSession(sess)
	cs.Votes = append(
		cs.Votes,
		VoteRecord{SessionId: sess.Id, Voter: voter, VotedAt: now},
	)
	if _, ok := e.secrets[ballotKey{sess.Id, voter}]; ok {
		cs.Secrets = append(
			cs.Secrets,
			SecretRecord{SessionId: sess.Id, Voter: voter},
		)
	}
	cs.observe(
		event.VoteEventType,
		event.VoteEvent{SessionId: sess.Id, Voter: string(voter), Weight: weight},
	)
	return weight, nil
}
