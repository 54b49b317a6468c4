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

package models

import (
	"time"

	"github.com/blinklabs-io/comitia/governance"
)

// Session is a scheduled governance session. The rule and requirement
// table captured at scheduling time are stored as JSON.
type Session struct {
	ID              uint64                                                   `gorm:"primarykey;autoIncrement:false"`
	StartAt         time.Time                                                `gorm:"not null"`
	ProposalsCount  uint32                                                   `gorm:"not null"`
	Participation   uint64                                                   `gorm:"not null"`
	FirstProposalID uint64                                                   `gorm:"not null"`
	Rule            governance.SessionRule                                   `gorm:"serializer:json;not null"`
	Requirements    map[governance.Selector]governance.ResolutionRequirement `gorm:"serializer:json"`
}

// TableName returns the table name
func (Session) TableName() string {
	return "session"
}

func SessionFromGovernance(s governance.Session) Session {
	return Session{
		ID:              s.Id,
		StartAt:         s.StartAt,
		ProposalsCount:  s.ProposalsCount,
		Participation:   s.Participation,
		FirstProposalID: s.FirstProposalId,
		Rule:            s.Rule,
		Requirements:    s.Requirements,
	}
}

func (s Session) Governance() governance.Session {
	ret := governance.Session{
		Id:              s.ID,
		StartAt:         s.StartAt.UTC(),
		ProposalsCount:  s.ProposalsCount,
		Participation:   s.Participation,
		FirstProposalId: s.FirstProposalID,
		Rule:            s.Rule,
		Requirements:    s.Requirements,
	}
	if ret.Requirements == nil {
		ret.Requirements = make(map[governance.Selector]governance.ResolutionRequirement)
	}
	return ret
}

// Proposal is a proposal attached to a session
type Proposal struct {
	ID               uint64 `gorm:"primarykey;autoIncrement:false"`
	SessionID        uint64 `gorm:"index;not null"`
	Name             string `gorm:"not null"`
	Url              string
	ContentHash      []byte
	ProposedBy       string `gorm:"index;not null"`
	ResolutionTarget string
	ResolutionAction []byte
	Weight           uint64 `gorm:"not null"`
	Approvals        uint64 `gorm:"not null"`
	Executed         bool   `gorm:"not null"`
	Cancelled        bool   `gorm:"not null"`
}

// TableName returns the table name
func (Proposal) TableName() string {
	return "proposal"
}

func ProposalFromGovernance(p governance.Proposal) Proposal {
	return Proposal{
		ID:               p.Id,
		SessionID:        p.SessionId,
		Name:             p.Name,
		Url:              p.Url,
		ContentHash:      p.ContentHash,
		ProposedBy:       string(p.ProposedBy),
		ResolutionTarget: string(p.ResolutionTarget),
		ResolutionAction: p.ResolutionAction,
		Weight:           p.Weight,
		Approvals:        p.Approvals,
		Executed:         p.Executed,
		Cancelled:        p.Cancelled,
	}
}

func (p Proposal) Governance() governance.Proposal {
	return governance.Proposal{
		Id:               p.ID,
		SessionId:        p.SessionID,
		Name:             p.Name,
		Url:              p.Url,
		ContentHash:      p.ContentHash,
		ProposedBy:       governance.Address(p.ProposedBy),
		ResolutionTarget: governance.Address(p.ResolutionTarget),
		ResolutionAction: p.ResolutionAction,
		Weight:           p.Weight,
		Approvals:        p.Approvals,
		Executed:         p.Executed,
		Cancelled:        p.Cancelled,
	}
}
