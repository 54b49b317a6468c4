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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blinklabs-io/comitia/event"
)

func TestNoSessionIsClosed(t *testing.T) {
	env := newTestEnv(t, []uint64{100})
	assert.Equal(t, uint64(0), env.engine.SessionsCount())
	assert.Equal(t, SessionStateClosed, env.engine.SessionStateAt(0, testStartTime))
	assert.Equal(t, SessionStateClosed, env.engine.SessionStateAt(7, testStartTime))
	_, ok := env.engine.CurrentSession()
	assert.False(t, ok)
	_, err := env.engine.Session(0)
	assert.ErrorIs(t, err, ErrUnknownSession)
	_, err = env.engine.Proposal(0)
	assert.ErrorIs(t, err, ErrUnknownProposal)
}

func TestDefineProposalSchedulesSession(t *testing.T) {
	env := newTestEnv(t, []uint64{100, 3_000_000})
	id := env.define(t, testHolders[1], ProposalDefinition{
		Name:        "first",
		Url:         "https://example.com/first",
		ContentHash: []byte{0xca, 0xfe},
	})
	assert.Equal(t, uint64(0), id)
	require.Equal(t, uint64(1), env.engine.SessionsCount())
	sess, err := env.engine.Session(0)
	require.NoError(t, err)
	expectedStart := NextStartAt(DefaultSessionRule(), testStartTime)
	assert.Equal(t, expectedStart, sess.StartAt)
	assert.Equal(t, uint32(1), sess.ProposalsCount)
	assert.Equal(t, uint64(0), sess.FirstProposalId)
	assert.Equal(t, SessionStatePlanned, env.engine.SessionStateAt(0, testStartTime))

	p, err := env.engine.Proposal(id)
	require.NoError(t, err)
	assert.Equal(t, testHolders[1], p.ProposedBy)
	assert.Equal(t, uint64(3_000_000), p.Weight)
	assert.True(t, p.IsBlank())

	require.Len(t, env.oracle.locks, 1)
	lock := env.oracle.locks[0]
	assert.Equal(t, testEngineAddress, lock.scope)
	assert.Equal(t, sess.StartAt, lock.start)
	assert.Equal(t, sess.StartAt.Add(9*24*time.Hour), lock.end)

	obs := env.engine.Observations(0)
	require.Len(t, obs, 2)
	assert.Equal(t, event.SessionScheduledEventType, obs[0].Type)
	assert.Equal(t, uint64(1), obs[0].Seq)
	assert.Equal(
		t,
		event.SessionScheduledEvent{SessionId: 0, StartAt: sess.StartAt},
		obs[0].Data,
	)
	assert.Equal(t, event.ProposalDefinedEventType, obs[1].Type)
	assert.Equal(t, uint64(2), obs[1].Seq)
	assert.Len(t, env.engine.Observations(1), 1)
	assert.Empty(t, env.engine.Observations(2))
}

func TestDefineProposalAttachesToOpenSession(t *testing.T) {
	env := newTestEnv(t, []uint64{100})
	env.define(t, testHolders[0], ProposalDefinition{Name: "a"})
	env.enter(t, SessionStateCampaign)
	id := env.define(t, testHolders[0], ProposalDefinition{Name: "b"})
	assert.Equal(t, uint64(1), id)
	assert.Equal(t, uint64(1), env.engine.SessionsCount())
	sess, err := env.engine.Session(0)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), sess.ProposalsCount)
	assert.Len(t, env.oracle.locks, 1)
}

func TestDefineProposalPhaseViolation(t *testing.T) {
	for _, state := range []SessionState{
		SessionStateVoting,
		SessionStateReveal,
		SessionStateGrace,
	} {
		t.Run(state.String(), func(t *testing.T) {
			env := newTestEnv(t, []uint64{100})
			env.define(t, testHolders[0], ProposalDefinition{Name: "a"})
			env.enter(t, state)
			before := env.engine.Observations(0)
			_, err := env.engine.DefineProposal(
				context.Background(),
				testHolders[0],
				ProposalDefinition{Name: "late"},
			)
			assert.ErrorIs(t, err, ErrPhaseViolation)
			assert.Equal(t, CodePhaseViolation, CodeOf(err))
			assert.Equal(t, uint64(1), env.engine.ProposalsCount())
			assert.Equal(t, before, env.engine.Observations(0))
		})
	}
}

func TestDefineProposalAfterCloseSchedulesNextSession(t *testing.T) {
	env := newTestEnv(t, []uint64{100})
	env.define(t, testHolders[0], ProposalDefinition{Name: "a"})
	env.define(t, testHolders[0], ProposalDefinition{Name: "b"})
	first, _ := env.engine.CurrentSession()
	env.enter(t, SessionStateClosed)
	id := env.define(t, testHolders[0], ProposalDefinition{Name: "c"})
	assert.Equal(t, uint64(2), id)
	require.Equal(t, uint64(2), env.engine.SessionsCount())
	sess, err := env.engine.Session(1)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), sess.FirstProposalId)
	assert.True(t, sess.StartAt.After(first.StartAt))
	assert.Equal(t, SessionStateClosed, env.engine.SessionStateAt(0, env.clock.Now()))
	assert.Len(t, env.oracle.locks, 2)
}

func TestDefineProposalThreshold(t *testing.T) {
	env := newTestEnv(t, []uint64{100}, func(cfg *EngineConfig) {
		cfg.Rule = DefaultSessionRule()
		cfg.Rule.NewProposalThreshold = 101
	})
	_, err := env.engine.DefineProposal(
		context.Background(),
		testHolders[0],
		ProposalDefinition{Name: "poor"},
	)
	assert.ErrorIs(t, err, ErrNotAuthorized)
	assert.Equal(t, uint64(0), env.engine.SessionsCount())
	assert.Empty(t, env.oracle.locks)
	assert.Empty(t, env.store.commits)
	// quaestors are exempt from the threshold
	_, err = env.engine.DefineProposal(
		context.Background(),
		env.quaestor,
		ProposalDefinition{Name: "privileged"},
	)
	assert.NoError(t, err)
}

func TestDefineProposalQuota(t *testing.T) {
	env := newTestEnv(t, []uint64{100}, func(cfg *EngineConfig) {
		cfg.Rule = DefaultSessionRule()
		cfg.Rule.MaxProposals = 2
		cfg.Rule.MaxProposalsQuaestor = 3
	})
	env.define(t, testHolders[0], ProposalDefinition{Name: "a"})
	env.define(t, testHolders[0], ProposalDefinition{Name: "b"})
	_, err := env.engine.DefineProposal(
		context.Background(),
		testHolders[0],
		ProposalDefinition{Name: "c"},
	)
	assert.ErrorIs(t, err, ErrQuotaExceeded)
	env.define(t, env.quaestor, ProposalDefinition{Name: "c"})
	_, err = env.engine.DefineProposal(
		context.Background(),
		env.quaestor,
		ProposalDefinition{Name: "d"},
	)
	assert.ErrorIs(t, err, ErrQuotaExceeded)
	assert.Equal(t, uint64(3), env.engine.ProposalsCount())
}

func TestDefineProposalLockFailure(t *testing.T) {
	env := newTestEnv(t, []uint64{100})
	env.oracle.lockErr = errors.New("ledger unavailable")
	_, err := env.engine.DefineProposal(
		context.Background(),
		testHolders[0],
		ProposalDefinition{Name: "a"},
	)
	require.Error(t, err)
	assert.Equal(t, ErrorCode(""), CodeOf(err))
	assert.Equal(t, uint64(0), env.engine.SessionsCount())
	assert.Empty(t, env.engine.Observations(0))
}

func TestDefineProposalCopiesInput(t *testing.T) {
	env := newTestEnv(t, []uint64{100})
	hash := []byte{1, 2, 3}
	id := env.define(t, testHolders[0], ProposalDefinition{Name: "a", ContentHash: hash})
	hash[0] = 9
	p, err := env.engine.Proposal(id)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, p.ContentHash)
	p.ContentHash[1] = 9
	again, err := env.engine.Proposal(id)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, again.ContentHash)
}

func TestCancelProposal(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, []uint64{100, 200})
	id := env.define(t, testHolders[0], ProposalDefinition{Name: "a"})

	err := env.engine.CancelProposal(ctx, testHolders[1], id)
	assert.ErrorIs(t, err, ErrNotAuthorized)
	err = env.engine.CancelProposal(ctx, testHolders[0], 42)
	assert.ErrorIs(t, err, ErrUnknownProposal)

	require.NoError(t, env.engine.CancelProposal(ctx, testHolders[0], id))
	p, err := env.engine.Proposal(id)
	require.NoError(t, err)
	assert.True(t, p.Cancelled)
	obs := env.engine.Observations(0)
	assert.Equal(t, event.ProposalCancelledEventType, obs[len(obs)-1].Type)

	// cancelling again changes nothing
	require.NoError(t, env.engine.CancelProposal(ctx, env.quaestor, id))
	assert.Len(t, env.engine.Observations(0), len(obs))

	env.enter(t, SessionStateClosed)
	second := env.define(t, testHolders[1], ProposalDefinition{Name: "b"})
	env.enter(t, SessionStateClosed)
	err = env.engine.CancelProposal(ctx, env.quaestor, second)
	assert.ErrorIs(t, err, ErrExpired)
}
