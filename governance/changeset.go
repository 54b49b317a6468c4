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
	"time"

	"github.com/blinklabs-io/comitia/event"
)

// VoteRecord marks a voter as having a counted vote in a session
type VoteRecord struct {
	SessionId uint64
	Voter     Address
	VotedAt   time.Time
}

// SecretRecord stores a pending commitment. A zero commitment removes it.
type SecretRecord struct {
	SessionId  uint64
	Voter      Address
	Commitment Commitment
}

// RequirementUpdate sets or removes the override for a selector
type RequirementUpdate struct {
	Selector    Selector
	Requirement ResolutionRequirement
	Remove      bool
}

type QuaestorUpdate struct {
	Address Address
	Enabled bool
}

// Changeset is the unit of work produced by one engine operation. Sessions
// and Proposals hold full records, new or updated. The same type carries a
// full snapshot when restoring an engine from storage.
type Changeset struct {
	Sessions     []Session
	Proposals    []Proposal
	Votes        []VoteRecord
	Secrets      []SecretRecord
	Rule         *SessionRule
	Requirements []RequirementUpdate
	Quaestors    []QuaestorUpdate
	Observations []event.Event
}

func (cs *Changeset) IsEmpty() bool {
	return len(cs.Sessions) == 0 &&
		len(cs.Proposals) == 0 &&
		len(cs.Votes) == 0 &&
		len(cs.Secrets) == 0 &&
		cs.Rule == nil &&
		len(cs.Requirements) == 0 &&
		len(cs.Quaestors) == 0 &&
		len(cs.Observations) == 0
}

// putSession stages s, replacing a copy staged earlier in the same
// changeset
func (cs *Changeset) putSession(s Session) {
	for i := range cs.Sessions {
		if cs.Sessions[i].Id == s.Id {
			cs.Sessions[i] = s
			return
		}
	}
	cs.Sessions = append(cs.Sessions, s)
}

func (cs *Changeset) putProposal(p Proposal) {
	for i := range cs.Proposals {
		if cs.Proposals[i].Id == p.Id {
			cs.Proposals[i] = p
			return
		}
	}
	cs.Proposals = append(cs.Proposals, p)
}

func (cs *Changeset) observe(eventType event.EventType, data any) {
	cs.Observations = append(
		cs.Observations,
		event.Event{Type: eventType, Data: data},
	)
}
