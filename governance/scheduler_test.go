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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPhaseAt(t *testing.T) {
	rule := DefaultSessionRule()
	startAt := time.Unix(1_209_600*100, 0)
	day := 24 * time.Hour
	tests := []struct {
		name     string
		offset   time.Duration
		expected SessionState
	}{
		{"long before", -30 * day, SessionStatePlanned},
		{"just before campaign", -5*day - time.Nanosecond, SessionStatePlanned},
		{"campaign start", -5 * day, SessionStateCampaign},
		{"just before voting", -time.Nanosecond, SessionStateCampaign},
		{"voting start", 0, SessionStateVoting},
		{"end of voting", 2*day - time.Nanosecond, SessionStateVoting},
		{"reveal start", 2 * day, SessionStateReveal},
		{"grace start", 4 * day, SessionStateGrace},
		{"end of grace", 9*day - time.Nanosecond, SessionStateGrace},
		{"closed", 9 * day, SessionStateClosed},
		{"long after", 365 * day, SessionStateClosed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, PhaseAt(rule, startAt, startAt.Add(tt.offset)))
		})
	}
}

func TestPhaseAtMonotonic(t *testing.T) {
	rule := DefaultSessionRule()
	startAt := time.Unix(1_209_600*100, 0)
	prev := SessionStatePlanned
	for offset := -10 * 24 * time.Hour; offset <= 12*24*time.Hour; offset += 37 * time.Minute {
		state := PhaseAt(rule, startAt, startAt.Add(offset))
		require.True(t, state >= prev, "phase went backwards at offset %s", offset)
		prev = state
	}
	assert.Equal(t, SessionStateClosed, prev)
}

func TestPhaseAtWithoutReveal(t *testing.T) {
	rule := DefaultSessionRule()
	rule.RevealPeriod = 0
	startAt := time.Unix(0, 0)
	assert.Equal(t, SessionStateGrace, PhaseAt(rule, startAt, startAt.Add(rule.VotingPeriod)))
}

func TestNextStartAt(t *testing.T) {
	rule := DefaultSessionRule()
	cadence := int64(rule.Cadence() / time.Second)
	require.Equal(t, int64(1_209_600), cadence)
	tests := []struct {
		name     string
		now      int64
		expected int64
	}{
		{"epoch", 0, cadence},
		{"inside first cadence", 1, cadence},
		{"on a boundary", cadence, 2 * cadence},
		{"just before a boundary", 2*cadence - 1, 2 * cadence},
		{"negative", -1, 0},
		{"negative boundary", -cadence, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NextStartAt(rule, time.Unix(tt.now, 0))
			assert.Equal(t, tt.expected, got.Unix())
		})
	}
}

func TestNextStartAtIsStrictlyFuture(t *testing.T) {
	rule := DefaultSessionRule()
	now := time.Unix(1_700_000_000, 500)
	next := NextStartAt(rule, now)
	assert.True(t, next.After(now))
	assert.LessOrEqual(t, next.Sub(now), rule.Cadence())
}

func TestSessionRuleValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*SessionRule)
		valid  bool
	}{
		{"default", func(*SessionRule) {}, true},
		{"no campaign", func(r *SessionRule) { r.CampaignPeriod = 0 }, true},
		{"no voting", func(r *SessionRule) { r.VotingPeriod = 0 }, false},
		{"negative reveal", func(r *SessionRule) { r.RevealPeriod = -time.Second }, false},
		{"no grace", func(r *SessionRule) { r.GracePeriod = 0 }, false},
		{"majority over 100", func(r *SessionRule) { r.DefaultMajority = 101 }, false},
		{"quorum over 100", func(r *SessionRule) { r.DefaultQuorum = 200 }, false},
		{
			"sub-second cadence",
			func(r *SessionRule) {
				r.CampaignPeriod = 0
				r.RevealPeriod = 0
				r.VotingPeriod = time.Millisecond
				r.GracePeriod = time.Millisecond
			},
			false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := DefaultSessionRule()
			tt.mutate(&rule)
			err := rule.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidRule)
			}
		})
	}
}

func TestSessionStateString(t *testing.T) {
	assert.Equal(t, "VOTING", SessionStateVoting.String())
	assert.Equal(t, "CLOSED", SessionStateClosed.String())
	assert.Equal(t, "SessionState(9)", SessionState(9).String())
}
