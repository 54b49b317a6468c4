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

	"github.com/blinklabs-io/gouroboros/cbor"
	"golang.org/x/crypto/blake2b"
)

// ballot is the tuple a secret vote commits to. It is encoded as a CBOR
// array so the revealed payload maps to the committed bytes exactly.
type ballot struct {
	cbor.StructAsArray
	Choices []bool
	Salt    []byte
}

// EncodeBallot returns the canonical encoding of a (choices, salt) tuple.
// Nil and empty inputs encode identically.
func EncodeBallot(choices []bool, salt []byte) ([]byte, error) {
	if choices == nil {
		choices = []bool{}
	}
	if salt == nil {
		salt = []byte{}
	}
	data, err := cbor.Encode(&ballot{Choices: choices, Salt: salt})
	if err != nil {
		return nil, fmt.Errorf("%w: encode ballot: %w", ErrInvalidBallot, err)
	}
	return data, nil
}

// BuildHash returns the commitment for an encoded ballot payload
func BuildHash(payload []byte) Commitment {
	return Commitment(blake2b.Sum256(payload))
}

// BallotCommitment is shorthand for BuildHash(EncodeBallot(choices, salt))
func BallotCommitment(choices []bool, salt []byte) (Commitment, error) {
	payload, err := EncodeBallot(choices, salt)
	if err != nil {
		return Commitment{}, err
	}
	return BuildHash(payload), nil
}
