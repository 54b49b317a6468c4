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

import "github.com/blinklabs-io/comitia/governance"

// Rule holds the session rule applied to future sessions. There is at
// most one row.
type Rule struct {
	ID   uint                   `gorm:"primarykey"`
	Rule governance.SessionRule `gorm:"serializer:json;not null"`
}

// TableName returns the table name
func (Rule) TableName() string {
	return "rule"
}

// RuleID is the primary key of the single rule row
const RuleID = 1

// Requirement is a resolution requirement override for an action selector.
// Removed rows are kept so that a removal also overrides configured
// requirements on restore.
type Requirement struct {
	Selector []byte `gorm:"primarykey;size:4"`
	Majority uint8  `gorm:"not null"`
	Quorum   uint8  `gorm:"not null"`
	Removed  bool   `gorm:"not null"`
}

// TableName returns the table name
func (Requirement) TableName() string {
	return "requirement"
}

// Quaestor records a quaestor granted or revoked through governance
type Quaestor struct {
	Address string `gorm:"primarykey"`
	Enabled bool   `gorm:"not null"`
}

// TableName returns the table name
func (Quaestor) TableName() string {
	return "quaestor"
}
