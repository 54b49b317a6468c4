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
	"fmt"
	"time"
)

// SessionState is the phase of a session. The ordering of the values is
// the order in which a session moves through them.
type SessionState uint8

const (
	SessionStatePlanned SessionState = iota
	SessionStateCampaign
	SessionStateVoting
	SessionStateReveal
	SessionStateGrace
	SessionStateClosed
)

func (s SessionState) String() string {
	switch s {
	case SessionStatePlanned:
		return "PLANNED"
	case SessionStateCampaign:
		return "CAMPAIGN"
	case SessionStateVoting:
		return "VOTING"
	case SessionStateReveal:
		return "REVEAL"
	case SessionStateGrace:
		return "GRACE"
	case SessionStateClosed:
		return "CLOSED"
	default:
		return fmt.Sprintf("SessionState(%d)", uint8(s))
	}
}

const (
	DefaultCampaignPeriod       = 5 * 24 * time.Hour
	DefaultVotingPeriod         = 2 * 24 * time.Hour
	DefaultRevealPeriod         = 2 * 24 * time.Hour
	DefaultGracePeriod          = 5 * 24 * time.Hour
	DefaultMaxProposals         = 100
	DefaultMaxProposalsQuaestor = 255
	DefaultNewProposalThreshold = 1
	DefaultMajority             = 50
	DefaultQuorum               = 40
)

// SessionRule holds the phase durations and limits applied to sessions.
// A session keeps the rule that was current when it was scheduled.
type SessionRule struct {
	CampaignPeriod       time.Duration `json:"campaignPeriod"       yaml:"campaignPeriod"       envconfig:"CAMPAIGN_PERIOD"`
	VotingPeriod         time.Duration `json:"votingPeriod"         yaml:"votingPeriod"         envconfig:"VOTING_PERIOD"`
	RevealPeriod         time.Duration `json:"revealPeriod"         yaml:"revealPeriod"         envconfig:"REVEAL_PERIOD"`
	GracePeriod          time.Duration `json:"gracePeriod"          yaml:"gracePeriod"          envconfig:"GRACE_PERIOD"`
	MaxProposals         uint32        `json:"maxProposals"         yaml:"maxProposals"         envconfig:"MAX_PROPOSALS"`
	MaxProposalsQuaestor uint32        `json:"maxProposalsQuaestor" yaml:"maxProposalsQuaestor" envconfig:"MAX_PROPOSALS_QUAESTOR"`
	NewProposalThreshold uint64        `json:"newProposalThreshold" yaml:"newProposalThreshold" envconfig:"NEW_PROPOSAL_THRESHOLD"`
	DefaultMajority      uint8         `json:"defaultMajority"      yaml:"defaultMajority"      envconfig:"DEFAULT_MAJORITY"`
	DefaultQuorum        uint8         `json:"defaultQuorum"        yaml:"defaultQuorum"        envconfig:"DEFAULT_QUORUM"`
}

func DefaultSessionRule() SessionRule {
	return SessionRule{
		CampaignPeriod:       DefaultCampaignPeriod,
		VotingPeriod:         DefaultVotingPeriod,
		RevealPeriod:         DefaultRevealPeriod,
		GracePeriod:          DefaultGracePeriod,
		MaxProposals:         DefaultMaxProposals,
		MaxProposalsQuaestor: DefaultMaxProposalsQuaestor,
		NewProposalThreshold: DefaultNewProposalThreshold,
		DefaultMajority:      DefaultMajority,
		DefaultQuorum:        DefaultQuorum,
	}
}

// Cadence is the spacing between session start times
func (r SessionRule) Cadence() time.Duration {
	return r.CampaignPeriod + r.VotingPeriod + r.RevealPeriod + r.GracePeriod
}

// lockWindow returns the interval during which voting weights must stay
// frozen for a session starting at startAt
func (r SessionRule) lockWindow(startAt time.Time) (time.Time, time.Time) {
	return startAt, startAt.Add(r.VotingPeriod + r.RevealPeriod + r.GracePeriod)
}

// Validate checks that the rule can drive a session
func (r SessionRule) Validate() error {
	if r.CampaignPeriod < 0 || r.VotingPeriod <= 0 || r.RevealPeriod < 0 ||
		r.GracePeriod <= 0 {
		return fmt.Errorf(
			"%w: voting and grace periods must be positive, campaign and reveal periods must not be negative",
			ErrInvalidRule,
		)
	}
	if r.Cadence() < time.Second {
		return fmt.Errorf("%w: cadence must be at least one second", ErrInvalidRule)
	}
	if r.DefaultMajority > 100 || r.DefaultQuorum > 100 {
		return fmt.Errorf(
			"%w: majority %d and quorum %d must not exceed 100",
			ErrInvalidRule,
			r.DefaultMajority,
			r.DefaultQuorum,
		)
	}
	return nil
}

// PhaseAt derives the phase of a session starting at startAt under the
// given rule. It is pure and monotonic in t.
func PhaseAt(rule SessionRule, startAt time.Time, t time.Time) SessionState {
	votingEnd := startAt.Add(rule.VotingPeriod)
	revealEnd := votingEnd.Add(rule.RevealPeriod)
	graceEnd := revealEnd.Add(rule.GracePeriod)
	switch {
	case t.Before(startAt.Add(-rule.CampaignPeriod)):
		return SessionStatePlanned
	case t.Before(startAt):
		return SessionStateCampaign
	case t.Before(votingEnd):
		return SessionStateVoting
	case t.Before(revealEnd):
		return SessionStateReveal
	case t.Before(graceEnd):
		return SessionStateGrace
	default:
		return SessionStateClosed
	}
}

// NextStartAt returns the first cadence boundary strictly after now.
// Boundaries are aligned on the Unix epoch.
func NextStartAt(rule SessionRule, now time.Time) time.Time {
	cadence := int64(rule.Cadence() / time.Second)
	if cadence <= 0 {
		cadence = 1
	}
	secs := now.Unix()
	next := (secs/cadence + 1) * cadence
	if secs < 0 && secs%cadence != 0 {
		// integer division truncates toward zero
		next -= cadence
	}
	return time.Unix(next, 0).UTC()
}
