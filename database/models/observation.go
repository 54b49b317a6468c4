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

// Observation is an entry of the engine's append-only observation log.
// Data holds the JSON encoding of the event payload.
type Observation struct {
	Seq       uint64    `gorm:"primarykey;autoIncrement:false"`
	Type      string    `gorm:"index;not null"`
	Timestamp time.Time `gorm:"not null"`
	Data      []byte    `gorm:"not null"`
}

// TableName returns the table name
func (Observation) TableName() string {
	return "observation"
}
