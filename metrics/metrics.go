/**
 * Copyright 2018 Atos
 *
 * Licensed under the Apache License, Version 2.0 (the "License"); you may not
 * use this file except in compliance with the License. You may obtain a copy of
 * the License at
 *
 * http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS, WITHOUT
 * WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the
 * License for the specific language governing permissions and limitations under
 * the License.
 */

// Package metrics provides the Prometheus metrics exported in serve mode.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "manageiq_vmdb"

var (
	// RequestsTotal counts invocations by operation and outcome
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Total number of VMDB invocations",
		},
		[]string{"operation", "result"},
	)

	// RequestDuration tracks how long invocations take, ManageIQ calls included
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Duration of VMDB invocations in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"operation"},
	)
)

func init() {
	prometheus.MustRegister(RequestsTotal, RequestDuration)
}

// ObserveRequest records the outcome of an invocation
func ObserveRequest(operation, result string, duration time.Duration) {
	RequestsTotal.WithLabelValues(operation, result).Inc()
	RequestDuration.WithLabelValues(operation).Observe(duration.Seconds())
}
