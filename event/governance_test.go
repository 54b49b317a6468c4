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

package event_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blinklabs-io/comitia/event"
)

func TestGovernanceEventTypesUnique(t *testing.T) {
	seen := make(map[event.EventType]bool)
	for _, typ := range event.GovernanceEventTypes {
		assert.False(t, seen[typ], "duplicate event type %s", typ)
		seen[typ] = true
	}
	assert.Len(t, seen, 10)
}

func TestVoteEventPublishSubscribe(t *testing.T) {
	eb := event.NewEventBus(nil, nil)
	defer eb.Stop()
	_, ch := eb.Subscribe(event.VoteEventType)
	evt := event.NewEvent(
		event.VoteEventType,
		event.VoteEvent{SessionId: 3, Voter: "holder1", Weight: 3_000_000},
	)
	evt.Seq = 42
	eb.Publish(event.VoteEventType, evt)
	select {
	case got := <-ch:
		require.Equal(t, event.VoteEventType, got.Type)
		assert.Equal(t, uint64(42), got.Seq)
		data, ok := got.Data.(event.VoteEvent)
		require.True(t, ok, "expected VoteEvent, got %T", got.Data)
		assert.Equal(t, uint64(3), data.SessionId)
		assert.Equal(t, "holder1", data.Voter)
		assert.Equal(t, uint64(3_000_000), data.Weight)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for vote event")
	}
}

func TestEventTypesAreIsolated(t *testing.T) {
	eb := event.NewEventBus(nil, nil)
	defer eb.Stop()
	_, voteCh := eb.Subscribe(event.VoteEventType)
	eb.Publish(
		event.ResolutionExecutedEventType,
		event.NewEvent(
			event.ResolutionExecutedEventType,
			event.ResolutionExecutedEvent{ProposalId: 1},
		),
	)
	select {
	case evt := <-voteCh:
		t.Fatalf("vote subscriber received %s", evt.Type)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestGovernanceEventBusMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	eb := event.NewEventBus(reg, nil)
	defer eb.Stop()
	_, ch := eb.Subscribe(event.ProposalDefinedEventType)
	for i := range event.EventQueueSize + 3 {
		eb.Publish(
			event.ProposalDefinedEventType,
			event.NewEvent(
				event.ProposalDefinedEventType,
				event.ProposalDefinedEvent{ProposalId: uint64(i)},
			),
		)
	}
	assert.Len(t, ch, event.EventQueueSize)
	count, err := testutil.GatherAndCount(
		reg,
		"comitia_event_published_total",
		"comitia_event_dropped_total",
		"comitia_event_subscribers",
	)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	assert.InDelta(t, 3, counterValue(t, reg, "comitia_event_dropped_total"), 0)
	assert.InDelta(
		t,
		float64(event.EventQueueSize+3),
		counterValue(t, reg, "comitia_event_published_total"),
		0,
	)
}

func counterValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, fam := range families {
		if fam.GetName() != name {
			continue
		}
		var total float64
		for _, m := range fam.GetMetric() {
			total += m.GetCounter().GetValue()
		}
		return total
	}
	t.Fatalf("metric %s not found", name)
	return 0
}

func TestDecodeGovernanceData(t *testing.T) {
	data, err := json.Marshal(event.QuaestorsUpdatedEvent{Enabled: []string{"a"}})
	require.NoError(t, err)
	decoded, err := event.DecodeGovernanceData(event.QuaestorsUpdatedEventType, data)
	require.NoError(t, err)
	assert.Equal(t, event.QuaestorsUpdatedEvent{Enabled: []string{"a"}}, decoded)
	_, err = event.DecodeGovernanceData("test.event", data)
	assert.Error(t, err)
	_, err = event.DecodeGovernanceData(event.VoteEventType, []byte("{"))
	assert.Error(t, err)
}
