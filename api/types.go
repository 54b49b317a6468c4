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

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	IsHealthy bool `json:"is_healthy"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	StatusCode int    `json:"status_code"`
	Error      string `json:"error"`
	Message    string `json:"message"`
}

// RuleResponse represents a session rule. Periods are in seconds.
type RuleResponse struct {
	CampaignPeriod       int64  `json:"campaign_period"`
	VotingPeriod         int64  `json:"voting_period"`
	RevealPeriod         int64  `json:"reveal_period"`
	GracePeriod          int64  `json:"grace_period"`
	MaxProposals         uint32 `json:"max_proposals"`
	MaxProposalsQuaestor uint32 `json:"max_proposals_quaestor"`
	NewProposalThreshold uint64 `json:"new_proposal_threshold"`
	DefaultMajority      uint8  `json:"default_majority"`
	DefaultQuorum        uint8  `json:"default_quorum"`
}

// RequirementResponse is returned by GET /api/v0/requirements/{selector}.
type RequirementResponse struct {
	Selector string `json:"selector"`
	Majority uint8  `json:"majority"`
	Quorum   uint8  `json:"quorum"`
}

// SessionResponse represents a voting session.
type SessionResponse struct {
	Id              uint64       `json:"id"`
	StartAt         int64        `json:"start_at"`
	State           string       `json:"state"`
	ProposalsCount  uint32       `json:"proposals_count"`
	FirstProposalId uint64       `json:"first_proposal_id"`
	Participation   uint64       `json:"participation"`
	Rule            RuleResponse `json:"rule"`
}

// SessionStateResponse is returned by GET /api/v0/sessions/{id}/state.
type SessionStateResponse struct {
	Id    uint64 `json:"id"`
	At    int64  `json:"at"`
	State string `json:"state"`
}

// ProposalResponse represents a proposal. Byte fields are hex encoded.
type ProposalResponse struct {
	Id               uint64 `json:"id"`
	SessionId        uint64 `json:"session_id"`
	Name             string `json:"name"`
	Url              string `json:"url"`
	ContentHash      string `json:"content_hash"`
	ProposedBy       string `json:"proposed_by"`
	ResolutionTarget string `json:"resolution_target"`
	ResolutionAction string `json:"resolution_action"`
	Weight           uint64 `json:"weight"`
	Approvals        uint64 `json:"approvals"`
	Executed         bool   `json:"executed"`
	Cancelled        bool   `json:"cancelled"`
}

// ApprovalResponse is returned by GET /api/v0/proposals/{id}/approved.
type ApprovalResponse struct {
	Id            uint64 `json:"id"`
	Approved      bool   `json:"approved"`
	Approvals     uint64 `json:"approvals"`
	Participation uint64 `json:"participation"`
	TotalSupply   uint64 `json:"total_supply"`
	Majority      uint8  `json:"majority"`
	Quorum        uint8  `json:"quorum"`
	QuorumMet     bool   `json:"quorum_met"`
	MajorityMet   bool   `json:"majority_met"`
}

// ObservationResponse represents one entry of the observation log.
type ObservationResponse struct {
	Seq       uint64 `json:"seq"`
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`
	Data      any    `json:"data"`
}

// DefineProposalRequest is the body of POST /api/v0/proposals.
type DefineProposalRequest struct {
	Caller           string `json:"caller"`
	Name             string `json:"name"`
	Url              string `json:"url"`
	ContentHash      string `json:"content_hash"`
	ResolutionTarget string `json:"resolution_target"`
	ResolutionAction string `json:"resolution_action"`
}

// DefineProposalResponse carries the id of a new proposal.
type DefineProposalResponse struct {
	Id uint64 `json:"id"`
}

// CallerRequest is the body of requests that only need a caller.
type CallerRequest struct {
	Caller string `json:"caller"`
}

// VoteRequest is the body of POST /api/v0/votes.
type VoteRequest struct {
	Voter   string `json:"voter"`
	Choices []bool `json:"choices"`
}

// VoteSecretRequest is the body of POST /api/v0/votes/secret.
type VoteSecretRequest struct {
	Voter      string `json:"voter"`
	Commitment string `json:"commitment"`
}

// RevealRequest is the body of POST /api/v0/votes/reveal.
type RevealRequest struct {
	Voter   string `json:"voter"`
	Choices []bool `json:"choices"`
	Salt    string `json:"salt"`
}

// HashRequest is the body of POST /api/v0/hash.
type HashRequest struct {
	Choices []bool `json:"choices"`
	Salt    string `json:"salt"`
}

// HashResponse carries the encoded ballot and its commitment.
type HashResponse struct {
	Payload    string `json:"payload"`
	Commitment string `json:"commitment"`
}
