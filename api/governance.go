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
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or
// implied. See the License for the specific language governing
// permissions and limitations under the License.

package api

import (
	"context"
	"time"

	"github.com/blinklabs-io/comitia/event"
	"github.com/blinklabs-io/comitia/governance"
)

// Governance is the interface that the API server uses to reach the
// voting session engine. It is implemented by *governance.Engine and
// allows handlers to be tested against other implementations.
type Governance interface {
	// Registry
	DefineProposal(
		ctx context.Context,
		caller governance.Address,
		def governance.ProposalDefinition,
	) (uint64, error)
	CancelProposal(ctx context.Context, caller governance.Address, id uint64) error

	// Ballots
	SubmitVote(ctx context.Context, voter governance.Address, choices []bool) error
	SubmitVoteSecret(
		ctx context.Context,
		voter governance.Address,
		commitment governance.Commitment,
	) error
	RevealVoteSecret(
		ctx context.Context,
		voter governance.Address,
		choices []bool,
		salt []byte,
	) error

	// Resolutions
	Tally(ctx context.Context, id uint64) (governance.Tally, error)
	ExecuteResolution(ctx context.Context, id uint64) error

	// Queries
	SessionsCount() uint64
	Session(id uint64) (governance.Session, error)
	SessionStateAt(id uint64, t time.Time) governance.SessionState
	Proposal(id uint64) (governance.Proposal, error)
	SessionRule() governance.SessionRule
	ResolutionRequirement(sel governance.Selector) governance.ResolutionRequirement
	Quaestors() []governance.Address
	Observations(after uint64) []event.Event
}

var _ Governance = (*governance.Engine)(nil)
