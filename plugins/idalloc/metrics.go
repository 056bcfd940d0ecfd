// Copyright (c) 2019 Cisco and/or its affiliates.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at:
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package idalloc

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	// path where the ID pool statistics are exposed
	prometheusStatsPath = "/idalloc/stats"

	poolLabel = "pool"

	allocationsMetric   = "allocations"
	deallocationsMetric = "deallocations"
	exhaustionsMetric   = "exhaustions"
	boundValuesMetric   = "boundValues"
)

// poolMetrics implements Metrics using prometheus vectors labeled by pool name.
type poolMetrics struct {
	counterVecs map[string]*prometheus.CounterVec
	boundValues *prometheus.GaugeVec
}

func newPoolMetrics() *poolMetrics {
	m := &poolMetrics{
		counterVecs: map[string]*prometheus.CounterVec{},
	}
	for _, item := range [][2]string{
		{allocationsMetric, "Number of values allocated from the ID pool"},
		{deallocationsMetric, "Number of values released back to the ID pool"},
		{exhaustionsMetric, "Number of allocation requests failed due to exhausted ID pool"},
	} {
		name, help := item[0], item[1]
		m.counterVecs[name] = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: name,
			Help: help,
		}, []string{poolLabel})
	}
	m.boundValues = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: boundValuesMetric,
		Help: "Number of values currently bound in the ID pool",
	}, []string{poolLabel})
	return m
}

// collectors returns all metrics to be registered.
func (m *poolMetrics) collectors() map[string]prometheus.Collector {
	res := map[string]prometheus.Collector{boundValuesMetric: m.boundValues}
	for name, vec := range m.counterVecs {
		res[name] = vec
	}
	return res
}

func (m *poolMetrics) Allocated(pool string, bound int) {
	m.counterVecs[allocationsMetric].WithLabelValues(pool).Inc()
	m.boundValues.WithLabelValues(pool).Set(float64(bound))
}

func (m *poolMetrics) Deallocated(pool string, removed, bound int) {
	m.counterVecs[deallocationsMetric].WithLabelValues(pool).Add(float64(removed))
	m.boundValues.WithLabelValues(pool).Set(float64(bound))
}

func (m *poolMetrics) Exhausted(pool string) {
	m.counterVecs[exhaustionsMetric].WithLabelValues(pool).Inc()
}
