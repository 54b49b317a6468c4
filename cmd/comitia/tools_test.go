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

package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blinklabs-io/comitia/governance"
)

func TestWritePhases(t *testing.T) {
	var buf bytes.Buffer
	at := time.Unix(1_700_000_000, 0)
	require.NoError(t, writePhases(&buf, governance.DefaultSessionRule(), at))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 5)
	// the next 14 day boundary after 1,700,000,000 is 1,700,697,600
	assert.Equal(t, "CAMPAIGN  2023-11-18T00:00:00Z", lines[0])
	assert.Equal(t, "VOTING    2023-11-23T00:00:00Z", lines[1])
	assert.Equal(t, "CLOSED    2023-12-02T00:00:00Z", lines[4])
}

func TestWritePhasesInvalidRule(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, writePhases(&buf, governance.SessionRule{}, time.Now()))
}

func TestWriteHash(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeHash(&buf, []bool{true, false}, "0x0102"))
	want, err := governance.BallotCommitment([]bool{true, false}, []byte{1, 2})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "commitment: "+want.String())
	assert.Error(t, writeHash(&buf, nil, "xyz"))
}
