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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/blinklabs-io/comitia/event"
)

type engineMetrics struct {
	sessions     prometheus.Gauge
	proposals    prometheus.Gauge
	operations   *prometheus.CounterVec
	observations *prometheus.CounterVec
	voteWeight   prometheus.Histogram
	executions   prometheus.Counter
}

func (e *Engine) initMetrics(promRegistry prometheus.Registerer) {
	promautoFactory := promauto.With(promRegistry)
	m := &engineMetrics{}
	m.sessions = promautoFactory.NewGauge(prometheus.GaugeOpts{
		Name: "comitia_governance_sessions",
		Help: "number of sessions scheduled",
	})
	m.proposals = promautoFactory.NewGauge(prometheus.GaugeOpts{
		Name: "comitia_governance_proposals",
		Help: "number of proposals defined",
	})
	m.operations = promautoFactory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "comitia_governance_operations_total",
			Help: "engine operations by outcome",
		},
		[]string{"op", "result"},
	)
	m.observations = promautoFactory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "comitia_governance_observations_total",
			Help: "observations recorded by type",
		},
		[]string{"type"},
	)
	m.voteWeight = promautoFactory.NewHistogram(prometheus.HistogramOpts{
		Name:    "comitia_governance_vote_weight",
		Help:    "weight of counted ballots",
		Buckets: prometheus.ExponentialBuckets(1, 10, 12),
	})
	m.executions = promautoFactory.NewCounter(prometheus.CounterOpts{
		Name: "comitia_governance_resolutions_executed_total",
		Help: "resolutions executed",
	})
	e.metrics = m
}

func (e *Engine) recordOp(op string, err error) {
	if e.metrics == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = string(CodeOf(err))
		if result == "" {
			result = "error"
		}
	}
	e.metrics.operations.WithLabelValues(op, result).Inc()
}

func (e *Engine) recordObservations(evts []event.Event) {
	if e.metrics == nil {
		return
	}
	for _, evt := range evts {
		e.metrics.observations.WithLabelValues(string(evt.Type)).Inc()
		switch data := evt.Data.(type) {
		case event.VoteEvent:
			e.metrics.voteWeight.Observe(float64(data.Weight))
		case event.ResolutionExecutedEvent:
			e.metrics.executions.Inc()
		}
	}
}

func (e *Engine) updateGauges() {
	if e.metrics == nil {
		return
	}
	e.metrics.sessions.Set(float64(len(e.sessions)))
	e.metrics.proposals.Set(float64(len(e.proposals)))
}
