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

package comitia

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blinklabs-io/comitia/api"
	"github.com/blinklabs-io/comitia/event"
	"github.com/blinklabs-io/comitia/governance"
	"github.com/blinklabs-io/comitia/token"
)

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time {
	return c.now
}

// startNode runs a node in the background and waits for it to come up
func startNode(t *testing.T, opts ...ConfigOptionFunc) *Node {
	t.Helper()
	n, err := New(NewConfig(opts...))
	require.NoError(t, err)
	errCh := make(chan error, 1)
	go func() {
		errCh <- n.Run(context.Background())
	}()
	select {
	case <-n.Started():
	case err := <-errCh:
		_ = n.Stop()
		t.Fatalf("node failed to start: %v", err)
	case <-time.After(10 * time.Second):
		t.Fatal("timeout waiting for node to start")
	}
	t.Cleanup(func() {
		_ = n.Stop()
		select {
		case err := <-errCh:
			assert.NoError(t, err)
		case <-time.After(10 * time.Second):
			t.Error("timeout waiting for node to stop")
		}
	})
	return n
}

// enter moves the clock forward until session 0 reaches the given phase
func enter(t *testing.T, n *Node, clock *testClock, state governance.SessionState) {
	t.Helper()
	for n.Engine().SessionStateAt(0, clock.now) < state {
		clock.now = clock.now.Add(time.Hour)
	}
	require.Equal(t, state, n.Engine().SessionStateAt(0, clock.now))
}

func TestNodeRestoresStateAfterRestart(t *testing.T) {
	ctx := context.Background()
	dataDir := t.TempDir()
	clock := &testClock{now: time.Unix(1_700_000_000, 0).UTC()}
	opts := []ConfigOptionFunc{
		WithDataDir(dataDir),
		WithClock(clock),
		WithGenesis(map[governance.Address]uint64{
			"alice": 700,
			"bob":   300,
		}),
		WithQuaestors("censor"),
	}
	n, err := New(NewConfig(opts...))
	require.NoError(t, err)
	errCh := make(chan error, 1)
	go func() { errCh <- n.Run(ctx) }()
	<-n.Started()

	engine := n.Engine()
	mint, err := token.EncodeMint("carol", 100)
	require.NoError(t, err)
	id, err := engine.DefineProposal(ctx, "alice", governance.ProposalDefinition{
		Name:             "mint",
		ResolutionTarget: DefaultTokenAddress,
		ResolutionAction: mint,
	})
	require.NoError(t, err)
	quaestors, err := governance.EncodeUpdateQuaestors([]governance.QuaestorUpdate{
		{Address: "censor", Enabled: false},
		{Address: "tribune", Enabled: true},
	})
	require.NoError(t, err)
	qid, err := engine.DefineProposal(ctx, "censor", governance.ProposalDefinition{
		Name:             "quaestors",
		ResolutionTarget: DefaultEngineAddress,
		ResolutionAction: quaestors,
	})
	require.NoError(t, err)

	enter(t, n, clock, governance.SessionStateVoting)
	require.NoError(t, engine.SubmitVote(ctx, "alice", []bool{true, true}))
	enter(t, n, clock, governance.SessionStateGrace)
	require.NoError(t, engine.ExecuteResolution(ctx, id))
	require.NoError(t, engine.ExecuteResolution(ctx, qid))
	assert.True(t, engine.IsQuaestor("tribune"))
	assert.False(t, engine.IsQuaestor("censor"))

	require.NoError(t, n.Stop())
	require.NoError(t, <-errCh)

	// the configured quaestors must not override the executed resolution
	restarted := startNode(t, opts...)
	engine = restarted.Engine()
	assert.Equal(t, uint64(1), engine.SessionsCount())
	assert.Equal(t, uint64(2), engine.ProposalsCount())
	p, err := engine.Proposal(id)
	require.NoError(t, err)
	assert.True(t, p.Executed)
	assert.Equal(t, uint64(700), p.Approvals)
	assert.True(t, engine.IsQuaestor("tribune"))
	assert.False(t, engine.IsQuaestor("censor"))
	err = engine.ExecuteResolution(ctx, id)
	assert.ErrorIs(t, err, governance.ErrAlreadyExecuted)

	// genesis is only applied to an empty ledger
	supply, err := restarted.Ledger().TotalSupply(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1100), supply)
	balance, err := restarted.Ledger().BalanceOf(ctx, "carol")
	require.NoError(t, err)
	assert.Equal(t, uint64(100), balance)
}

func TestNodeApi(t *testing.T) {
	clock := &testClock{now: time.Unix(1_700_000_000, 0).UTC()}
	reg := prometheus.NewRegistry()
	n := startNode(
		t,
		WithClock(clock),
		WithPrometheusRegistry(reg),
		WithApiListenAddress("127.0.0.1:0"),
		WithGenesis(map[governance.Address]uint64{"alice": 10}),
	)
	_, scheduled := n.EventBus().Subscribe(event.SessionScheduledEventType)
	addr := n.ApiAddr()
	require.NotEmpty(t, addr)

	body := `{"caller":"alice","name":"blank"}`
	resp, err := http.Post(
		fmt.Sprintf("http://%s/api/v0/proposals", addr),
		"application/json",
		strings.NewReader(body),
	)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created api.DefineProposalResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	assert.Equal(t, uint64(0), created.Id)

	select {
	case evt := <-scheduled:
		data, ok := evt.Data.(event.SessionScheduledEvent)
		require.True(t, ok)
		assert.Equal(t, uint64(0), data.SessionId)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for session scheduled event")
	}

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make(map[string]bool)
	for _, family := range families {
		names[family.GetName()] = true
	}
	assert.True(t, names["comitia_governance_proposals"])
	assert.True(t, names["comitia_token_supply"])
	assert.True(t, names["comitia_database_commit_seconds"])
	assert.True(t, names["comitia_event_published_total"])
}
