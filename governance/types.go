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
	"encoding/hex"
	"fmt"
	"time"

	"golang.org/x/crypto/blake2b"
)

// Address identifies a token holder or a resolution target. The empty
// address is used as the target of blank resolutions.
type Address string

const NullAddress Address = ""

// Selector identifies the kind of action carried by a resolution payload.
// It is the first four bytes of the payload.
type Selector [4]byte

// SelectorOf derives a selector from an action signature
func SelectorOf(signature string) Selector {
	sum := blake2b.Sum256([]byte(signature))
	var sel Selector
	copy(sel[:], sum[:4])
	return sel
}

// ActionSelector returns the selector of a resolution payload. Payloads
// shorter than four bytes are zero padded.
func ActionSelector(action []byte) Selector {
	var sel Selector
	copy(sel[:], action)
	return sel
}

// ParseSelector decodes a hex encoded selector, with or without 0x prefix
func ParseSelector(s string) (Selector, error) {
	var sel Selector
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s = s[2:]
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return sel, fmt.Errorf("decode selector: %w", err)
	}
	if len(raw) != len(sel) {
		return sel, fmt.Errorf("selector must be %d bytes, got %d", len(sel), len(raw))
	}
	copy(sel[:], raw)
	return sel, nil
}

func (s Selector) String() string {
	return hex.EncodeToString(s[:])
}

func (s Selector) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Selector) UnmarshalText(text []byte) error {
	sel, err := ParseSelector(string(text))
	if err != nil {
		return err
	}
	*s = sel
	return nil
}

// Commitment is the Blake2b-256 hash binding a secret ballot
type Commitment [blake2b.Size256]byte

func (c Commitment) IsZero() bool {
	return c == Commitment{}
}

func (c Commitment) String() string {
	return hex.EncodeToString(c[:])
}

// ParseCommitment decodes a hex encoded commitment
func ParseCommitment(s string) (Commitment, error) {
	var c Commitment
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s = s[2:]
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return c, fmt.Errorf("decode commitment: %w", err)
	}
	if len(raw) != len(c) {
		return c, fmt.Errorf("commitment must be %d bytes, got %d", len(c), len(raw))
	}
	copy(c[:], raw)
	return c, nil
}

// ResolutionRequirement overrides the default thresholds for proposals
// whose action carries a given selector. Values are percentages.
type ResolutionRequirement struct {
	Majority uint8 `json:"majority" yaml:"majority"`
	Quorum   uint8 `json:"quorum"   yaml:"quorum"`
}

// Session is one governance cycle. Its phase is never stored, see StateAt.
type Session struct {
	Id              uint64
	StartAt         time.Time
	ProposalsCount  uint32
	Participation   uint64
	FirstProposalId uint64
	// Rule and Requirements are captured when the session is scheduled so
	// that later governance changes only affect future sessions
	Rule         SessionRule
	Requirements map[Selector]ResolutionRequirement
}

// StateAt returns the phase of the session at the given time
func (s Session) StateAt(t time.Time) SessionState {
	return PhaseAt(s.Rule, s.StartAt, t)
}

// requirement resolves the effective thresholds for a selector
func (s Session) requirement(sel Selector) ResolutionRequirement {
	if req, ok := s.Requirements[sel]; ok {
		return req
	}
	return ResolutionRequirement{
		Majority: s.Rule.DefaultMajority,
		Quorum:   s.Rule.DefaultQuorum,
	}
}

// Proposal is immutable once defined, except for Approvals, Executed and
// Cancelled
type Proposal struct {
	Id               uint64
	SessionId        uint64
	Name             string
	Url              string
	ContentHash      []byte
	ProposedBy       Address
	ResolutionTarget Address
	ResolutionAction []byte
	// Weight is the proposer balance when the proposal was defined. It is
	// informational and never used for tallying.
	Weight    uint64
	Approvals uint64
	Executed  bool
	Cancelled bool
}

// IsBlank reports whether executing the proposal has no side effect
func (p Proposal) IsBlank() bool {
	return p.ResolutionTarget == NullAddress
}

// ProposalDefinition carries the caller supplied fields of a new proposal
type ProposalDefinition struct {
	Name             string
	Url              string
	ContentHash      []byte
	ResolutionTarget Address
	ResolutionAction []byte
}

type ballotKey struct {
	sessionId uint64
	voter     Address
}
