// Copyright 2020 PingCAP, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// See the License for the specific language governing permissions and
// limitations under the License.

package restore

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	executedStatementsCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "backup4go",
			Subsystem: "restore",
			Name:      "statements",
			Help:      "counter for statements executed by imports",
		})
	importDurationHistogram = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "backup4go",
			Subsystem: "restore",
			Name:      "duration_seconds",
			Help:      "Bucketed histogram of import batch time (s)",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 20),
		})
)

// RegisterMetrics registers metrics.
func RegisterMetrics(registry prometheus.Registerer) {
	registry.MustRegister(executedStatementsCounter)
	registry.MustRegister(importDurationHistogram)
}
