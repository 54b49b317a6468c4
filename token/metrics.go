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

package token

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type ledgerMetrics struct {
	supply    prometheus.Gauge
	transfers *prometheus.CounterVec
}

func (l *Ledger) initMetrics(promRegistry prometheus.Registerer) {
	promautoFactory := promauto.With(promRegistry)
	l.metrics = &ledgerMetrics{
		supply: promautoFactory.NewGauge(prometheus.GaugeOpts{
			Name: "comitia_token_supply",
			Help: "total token supply",
		}),
		transfers: promautoFactory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "comitia_token_transfers_total",
				Help: "transfers by outcome",
			},
			[]string{"result"},
		),
	}
}

func (l *Ledger) recordTransfer(result string) {
	if l.metrics == nil {
		return
	}
	l.metrics.transfers.WithLabelValues(result).Inc()
}
