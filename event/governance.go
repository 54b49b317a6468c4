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

package event

import (
	"encoding/json"
	"fmt"
	"time"
)

const (
	SessionScheduledEventType              = EventType("governance.session.scheduled")
	ProposalDefinedEventType               = EventType("governance.proposal.defined")
	ProposalCancelledEventType             = EventType("governance.proposal.cancelled")
	VoteEventType                          = EventType("governance.vote")
	VoteSecretEventType                    = EventType("governance.vote.secret")
	VoteRevealedEventType                  = EventType("governance.vote.revealed")
	ResolutionExecutedEventType            = EventType("governance.resolution.executed")
	SessionRuleUpdatedEventType            = EventType("governance.rule.updated")
	ResolutionRequirementsUpdatedEventType = EventType("governance.requirements.updated")
	QuaestorsUpdatedEventType              = EventType("governance.quaestors.updated")
)

// GovernanceEventTypes lists every observation type emitted by the engine,
// in no particular order
var GovernanceEventTypes = []EventType{
	SessionScheduledEventType,
	ProposalDefinedEventType,
	ProposalCancelledEventType,
	VoteEventType,
	VoteSecretEventType,
	VoteRevealedEventType,
	ResolutionExecutedEventType,
	SessionRuleUpdatedEventType,
	ResolutionRequirementsUpdatedEventType,
	QuaestorsUpdatedEventType,
}

// SessionScheduledEvent is emitted when a new session slot is opened
type SessionScheduledEvent struct {
	SessionId uint64    `json:"sessionId"`
	StartAt   time.Time `json:"startAt"`
}

type ProposalDefinedEvent struct {
	ProposalId uint64 `json:"proposalId"`
	SessionId  uint64 `json:"sessionId"`
}

type ProposalCancelledEvent struct {
	ProposalId  uint64 `json:"proposalId"`
	CancelledBy string `json:"cancelledBy"`
}

// VoteEvent is emitted for every counted ballot, direct or revealed
type VoteEvent struct {
	SessionId uint64 `json:"sessionId"`
	Voter     string `json:"voter"`
	Weight    uint64 `json:"weight"`
}

type VoteSecretEvent struct {
	SessionId uint64 `json:"sessionId"`
	Voter     string `json:"voter"`
}

type VoteRevealedEvent struct {
	SessionId uint64 `json:"sessionId"`
	Voter     string `json:"voter"`
}

type ResolutionExecutedEvent struct {
	ProposalId uint64 `json:"proposalId"`
}

// SessionRuleUpdatedEvent carries the session id from which the new rule
// applies, which is the next id to be scheduled
type SessionRuleUpdatedEvent struct {
	EffectiveSessionId uint64 `json:"effectiveSessionId"`
}

type ResolutionRequirementsUpdatedEvent struct {
	EffectiveSessionId uint64   `json:"effectiveSessionId"`
	Selectors          []string `json:"selectors"`
}

type QuaestorsUpdatedEvent struct {
	Enabled  []string `json:"enabled,omitempty"`
	Disabled []string `json:"disabled,omitempty"`
}

// DecodeGovernanceData decodes the JSON form of a governance event payload
// into its concrete type
func DecodeGovernanceData(eventType EventType, data []byte) (any, error) {
	switch eventType {
	case SessionScheduledEventType:
		return decodeData[SessionScheduledEvent](data)
	case ProposalDefinedEventType:
		return decodeData[ProposalDefinedEvent](data)
	case ProposalCancelledEventType:
		return decodeData[ProposalCancelledEvent](data)
	case VoteEventType:
		return decodeData[VoteEvent](data)
	case VoteSecretEventType:
		return decodeData[VoteSecretEvent](data)
	case VoteRevealedEventType:
		return decodeData[VoteRevealedEvent](data)
	case ResolutionExecutedEventType:
		return decodeData[ResolutionExecutedEvent](data)
	case SessionRuleUpdatedEventType:
		return decodeData[SessionRuleUpdatedEvent](data)
	case ResolutionRequirementsUpdatedEventType:
		return decodeData[ResolutionRequirementsUpdatedEvent](data)
	case QuaestorsUpdatedEventType:
		return decodeData[QuaestorsUpdatedEvent](data)
	default:
		return nil, fmt.Errorf("unknown governance event type %q", eventType)
	}
}

func decodeData[T any](data []byte) (any, error) {
	var ret T
	if err := json.Unmarshal(data, &ret); err != nil {
		return nil, err
	}
	return ret, nil
}
