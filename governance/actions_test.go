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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blinklabs-io/comitia/event"
)

// passResolution defines a proposal for action, votes it through and
// moves the clock to the grace period
func passResolution(t *testing.T, env *testEnv, target Address, action []byte) uint64 {
	t.Helper()
	ctx := context.Background()
	id := env.define(t, env.quaestor, ProposalDefinition{
		Name:             "self",
		ResolutionTarget: target,
		ResolutionAction: action,
	})
	env.enter(t, SessionStateVoting)
	sess, _ := env.engine.CurrentSession()
	choices := make([]bool, sess.ProposalsCount)
	for i := range choices {
		choices[i] = true
	}
	for _, holder := range testHolders {
		require.NoError(t, env.engine.SubmitVote(ctx, holder, choices))
	}
	env.enter(t, SessionStateGrace)
	return id
}

func TestUpdateSessionRuleAppliesToFutureSessions(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, scenarioBalances)
	newRule := DefaultSessionRule()
	newRule.VotingPeriod = 3 * 24 * time.Hour
	newRule.MaxProposals = 7
	action, err := EncodeUpdateSessionRule(newRule)
	require.NoError(t, err)
	id := passResolution(t, env, testEngineAddress, action)
	current, _ := env.engine.CurrentSession()

	require.NoError(t, env.engine.ExecuteResolution(ctx, id))
	assert.Equal(t, newRule, env.engine.SessionRule())
	obs := env.engine.Observations(0)
	assert.Equal(t, event.SessionRuleUpdatedEventType, obs[len(obs)-2].Type)
	assert.Equal(
		t,
		event.SessionRuleUpdatedEvent{EffectiveSessionId: 1},
		obs[len(obs)-2].Data,
	)
	assert.Equal(t, event.ResolutionExecutedEventType, obs[len(obs)-1].Type)

	// the running session keeps its rule and phases
	sess, err := env.engine.Session(current.Id)
	require.NoError(t, err)
	assert.Equal(t, DefaultSessionRule(), sess.Rule)
	assert.Equal(t, SessionStateGrace, env.engine.SessionStateAt(sess.Id, env.clock.Now()))

	env.enter(t, SessionStateClosed)
	env.define(t, env.quaestor, ProposalDefinition{Name: "next"})
	next, _ := env.engine.CurrentSession()
	assert.Equal(t, uint64(1), next.Id)
	assert.Equal(t, newRule, next.Rule)
}

func TestUpdateResolutionRequirements(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, scenarioBalances)
	sel := SelectorOf("mint(address,uint64)")
	action, err := EncodeUpdateResolutionRequirements([]RequirementUpdate{
		{Selector: sel, Requirement: ResolutionRequirement{Majority: 90, Quorum: 90}},
	})
	require.NoError(t, err)
	id := passResolution(t, env, testEngineAddress, action)
	require.NoError(t, env.engine.ExecuteResolution(ctx, id))
	assert.Equal(
		t,
		ResolutionRequirement{Majority: 90, Quorum: 90},
		env.engine.ResolutionRequirement(sel),
	)
	sess, _ := env.engine.CurrentSession()
	assert.Empty(t, sess.Requirements)

	removal, err := EncodeUpdateResolutionRequirements([]RequirementUpdate{
		{Selector: sel, Remove: true},
	})
	require.NoError(t, err)
	env.enter(t, SessionStateClosed)
	id = passResolution(t, env, testEngineAddress, removal)
	sess, _ = env.engine.CurrentSession()
	assert.Equal(
		t,
		ResolutionRequirement{Majority: 90, Quorum: 90},
		sess.Requirements[sel],
	)
	require.NoError(t, env.engine.ExecuteResolution(ctx, id))
	assert.Equal(
		t,
		ResolutionRequirement{Majority: DefaultMajority, Quorum: DefaultQuorum},
		env.engine.ResolutionRequirement(sel),
	)
}

func TestUpdateQuaestors(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, scenarioBalances)
	action, err := EncodeUpdateQuaestors([]QuaestorUpdate{
		{Address: "censor", Enabled: true},
		{Address: env.quaestor, Enabled: false},
	})
	require.NoError(t, err)
	id := passResolution(t, env, testEngineAddress, action)
	require.NoError(t, env.engine.ExecuteResolution(ctx, id))
	assert.True(t, env.engine.IsQuaestor("censor"))
	assert.False(t, env.engine.IsQuaestor(env.quaestor))
	assert.Equal(t, []Address{"censor"}, env.engine.Quaestors())
	obs := env.engine.Observations(0)
	assert.Equal(
		t,
		event.QuaestorsUpdatedEvent{
			Enabled:  []string{"censor"},
			Disabled: []string{string(env.quaestor)},
		},
		obs[len(obs)-2].Data,
	)
}

func TestInvalidSelfGovernanceActionRollsBack(t *testing.T) {
	ctx := context.Background()
	badRule := DefaultSessionRule()
	badRule.DefaultQuorum = 150
	invalid, err := EncodeUpdateSessionRule(badRule)
	require.NoError(t, err)
	tests := []struct {
		name   string
		action []byte
	}{
		{"invalid rule", invalid},
		{"unknown selector", testAction(t, "selfDestruct()", 0)},
		{"truncated", SelectorUpdateQuaestors[:]},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, scenarioBalances)
			id := passResolution(t, env, testEngineAddress, tt.action)
			err := env.engine.ExecuteResolution(ctx, id)
			assert.ErrorIs(t, err, ErrExecutionFailed)
			assert.Equal(t, DefaultSessionRule(), env.engine.SessionRule())
			p, _ := env.engine.Proposal(id)
			assert.False(t, p.Executed)
			assert.Empty(t, env.invoker.calls)
		})
	}
}

func TestEncodeActionCarriesSelector(t *testing.T) {
	action, err := EncodeUpdateQuaestors([]QuaestorUpdate{{Address: "a", Enabled: true}})
	require.NoError(t, err)
	assert.Equal(t, SelectorUpdateQuaestors, ActionSelector(action))
	var args []quaestorArgs
	require.NoError(t, DecodeActionArgs(action, &args))
	require.Len(t, args, 1)
	assert.Equal(t, "a", args[0].Address)
	assert.True(t, args[0].Enabled)
	assert.Error(t, DecodeActionArgs([]byte{1, 2}, &args))
}
