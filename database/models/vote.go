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

import "time"

// Vote marks a counted ballot of a voter in a session
type Vote struct {
	SessionID uint64    `gorm:"primarykey;autoIncrement:false"`
	Voter     string    `gorm:"primarykey"`
	VotedAt   time.Time `gorm:"not null"`
}

// TableName returns the table name
func (Vote) TableName() string {
	return "vote"
}

// Secret is a pending ballot commitment
type Secret struct {
	SessionID  uint64 `gorm:"primarykey;autoIncrement:false"`
	Voter      string `gorm:"primarykey"`
	Commitment []byte `gorm:"size:32;not null"`
}

// TableName returns the table name
func (Secret) TableName() string {
	return "secret"
}
