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
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blinklabs-io/comitia/event"
)

var scenarioBalances = []uint64{100, 3_000_000, 2_000_000, 2_000_000}

func TestFourHolderScenario(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, scenarioBalances)
	env.scenarioProposals(t)
	env.enter(t, SessionStateVoting)
	ballots := [][]bool{
		{false, false, false},
		{true, true, false},
		{true, false, true},
		{true, true, false},
	}
	for i, choices := range ballots {
		require.NoError(t, env.engine.SubmitVote(ctx, testHolders[i], choices))
	}

	sess, err := env.engine.Session(0)
	require.NoError(t, err)
	assert.Equal(t, uint64(7_000_100), sess.Participation)
	expectedApprovals := []uint64{7_000_000, 5_000_000, 2_000_000}
	expectedApproved := []bool{true, true, false}
	for id := range uint64(3) {
		p, err := env.engine.Proposal(id)
		require.NoError(t, err)
		assert.Equal(t, expectedApprovals[id], p.Approvals, "proposal %d", id)
		approved, err := env.engine.IsApproved(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, expectedApproved[id], approved, "proposal %d", id)
	}

	// too early
	err = env.engine.ExecuteResolution(ctx, 1)
	assert.ErrorIs(t, err, ErrPhaseViolation)

	env.enter(t, SessionStateGrace)
	require.NoError(t, env.engine.ExecuteResolution(ctx, 1))
	require.Len(t, env.invoker.calls, 1)
	mint, _ := env.engine.Proposal(1)
	assert.Equal(t, testTokenAddress, env.invoker.calls[0].target)
	assert.Equal(t, mint.ResolutionAction, env.invoker.calls[0].action)
	assert.True(t, mint.Executed)
	obs := env.engine.Observations(0)
	assert.Equal(
		t,
		event.Event{
			Type: event.ResolutionExecutedEventType,
			Data: event.ResolutionExecutedEvent{ProposalId: 1},
			Seq:  uint64(len(obs)),
			// timestamps come from the engine clock
			Timestamp: env.clock.Now(),
		},
		obs[len(obs)-1],
	)

	err = env.engine.ExecuteResolution(ctx, 1)
	assert.ErrorIs(t, err, ErrAlreadyExecuted)
	assert.Len(t, env.invoker.calls, 1)

	err = env.engine.ExecuteResolution(ctx, 2)
	assert.ErrorIs(t, err, ErrNotApproved)

	// blank resolutions succeed without dispatching anything
	require.NoError(t, env.engine.ExecuteResolution(ctx, 0))
	assert.Len(t, env.invoker.calls, 1)

	err = env.engine.ExecuteResolution(ctx, 3)
	assert.ErrorIs(t, err, ErrUnknownProposal)
}

func TestLowTurnoutScenario(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, scenarioBalances)
	env.scenarioProposals(t)
	env.enter(t, SessionStateVoting)
	require.NoError(t, env.engine.SubmitVote(ctx, testHolders[0], []bool{true, true, true}))
	require.NoError(t, env.engine.SubmitVote(ctx, testHolders[2], []bool{true, true, false}))

	sess, _ := env.engine.Session(0)
	assert.Equal(t, uint64(2_000_100), sess.Participation)
	for id := range uint64(3) {
		tally, err := env.engine.Tally(ctx, id)
		require.NoError(t, err)
		assert.False(t, tally.QuorumMet, "proposal %d", id)
		assert.False(t, tally.Approved(), "proposal %d", id)
	}
	// the majority alone would have carried the first two
	tally, err := env.engine.Tally(ctx, 0)
	require.NoError(t, err)
	assert.True(t, tally.MajorityMet)

	env.enter(t, SessionStateGrace)
	for id := range uint64(3) {
		err := env.engine.ExecuteResolution(ctx, id)
		assert.ErrorIs(t, err, ErrNotApproved)
	}
}

func TestExecuteResolutionExpired(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, scenarioBalances)
	env.scenarioProposals(t)
	env.enter(t, SessionStateVoting)
	require.NoError(t, env.engine.SubmitVote(ctx, testHolders[1], []bool{true, true, true}))
	env.enter(t, SessionStateClosed)
	err := env.engine.ExecuteResolution(ctx, 1)
	assert.ErrorIs(t, err, ErrExpired)
	assert.Empty(t, env.invoker.calls)
}

func TestExecuteResolutionFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, scenarioBalances)
	env.scenarioProposals(t)
	env.enter(t, SessionStateVoting)
	for i := range testHolders {
		require.NoError(t, env.engine.SubmitVote(ctx, testHolders[i], []bool{true, true, true}))
	}
	env.enter(t, SessionStateGrace)
	before := env.engine.Observations(0)
	env.invoker.err = errors.New("reverted")
	err := env.engine.ExecuteResolution(ctx, 1)
	assert.ErrorIs(t, err, ErrExecutionFailed)
	assert.Equal(t, CodeExecutionFailed, CodeOf(err))
	assert.ErrorContains(t, err, "reverted")
	p, _ := env.engine.Proposal(1)
	assert.False(t, p.Executed)
	assert.Equal(t, before, env.engine.Observations(0))

	// a retry inside the grace period may still succeed
	env.invoker.err = nil
	require.NoError(t, env.engine.ExecuteResolution(ctx, 1))
	p, _ = env.engine.Proposal(1)
	assert.True(t, p.Executed)
}

func TestExecuteWithoutInvoker(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, scenarioBalances, func(cfg *EngineConfig) {
		cfg.Invoker = nil
	})
	env.scenarioProposals(t)
	env.enter(t, SessionStateVoting)
	require.NoError(t, env.engine.SubmitVote(ctx, testHolders[1], []bool{true, true, true}))
	require.NoError(t, env.engine.SubmitVote(ctx, testHolders[2], []bool{true, true, true}))
	env.enter(t, SessionStateGrace)
	assert.ErrorIs(t, env.engine.ExecuteResolution(ctx, 1), ErrExecutionFailed)
	assert.NoError(t, env.engine.ExecuteResolution(ctx, 0))
}

func TestCancelledProposalIsNeverApproved(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, scenarioBalances)
	env.scenarioProposals(t)
	env.enter(t, SessionStateVoting)
	for i := range testHolders {
		require.NoError(t, env.engine.SubmitVote(ctx, testHolders[i], []bool{true, true, true}))
	}
	require.NoError(t, env.engine.CancelProposal(ctx, env.quaestor, 1))
	approved, err := env.engine.IsApproved(ctx, 1)
	require.NoError(t, err)
	assert.False(t, approved)
	env.enter(t, SessionStateGrace)
	assert.ErrorIs(t, env.engine.ExecuteResolution(ctx, 1), ErrNotApproved)
}

func TestRequirementOverride(t *testing.T) {
	ctx := context.Background()
	mintSel := SelectorOf("mint(address,uint64)")
	env := newTestEnv(t, scenarioBalances, func(cfg *EngineConfig) {
		cfg.Requirements = map[Selector]ResolutionRequirement{
			mintSel: {Majority: 75, Quorum: 40},
		}
	})
	assert.Equal(
		t,
		ResolutionRequirement{Majority: 75, Quorum: 40},
		env.engine.ResolutionRequirement(mintSel),
	)
	assert.Equal(
		t,
		ResolutionRequirement{Majority: DefaultMajority, Quorum: DefaultQuorum},
		env.engine.ResolutionRequirement(Selector{}),
	)
	env.scenarioProposals(t)
	env.enter(t, SessionStateVoting)
	ballots := [][]bool{
		{false, false, false},
		{true, true, false},
		{true, false, true},
		{true, true, false},
	}
	for i, choices := range ballots {
		require.NoError(t, env.engine.SubmitVote(ctx, testHolders[i], choices))
	}
	// 5,000,000 of 7,000,100 is below 75%
	tally, err := env.engine.Tally(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, uint8(75), tally.Requirement.Majority)
	assert.False(t, tally.Approved())
}

func TestLiveSupplyAffectsQuorum(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, scenarioBalances)
	env.scenarioProposals(t)
	env.enter(t, SessionStateVoting)
	require.NoError(t, env.engine.SubmitVote(ctx, testHolders[1], []bool{true, false, false}))
	approved, err := env.engine.IsApproved(ctx, 0)
	require.NoError(t, err)
	// 3,000,000 of 7,000,100 clears a 40% quorum
	assert.True(t, approved)
	env.oracle.mint("treasury", 1_000_000)
	approved, err = env.engine.IsApproved(ctx, 0)
	require.NoError(t, err)
	assert.False(t, approved)
}

func TestMulGeq(t *testing.T) {
	assert.True(t, mulGeq(0, 100, 0, 40))
	assert.True(t, mulGeq(math.MaxUint64, 100, math.MaxUint64, 100))
	assert.False(t, mulGeq(math.MaxUint64-1, 100, math.MaxUint64, 100))
	assert.True(t, mulGeq(math.MaxUint64, 100, math.MaxUint64, 40))
	assert.False(t, mulGeq(1, 1, 2, 1))
}
