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

package export

import (
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	finishedSizeCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "backup4go",
			Subsystem: "dump",
			Name:      "finished_size",
			Help:      "counter for backup4go finished script size",
		})
	finishedRowsCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "backup4go",
			Subsystem: "dump",
			Name:      "finished_rows",
			Help:      "counter for backup4go finished rows",
		})
	writeTimeHistogram = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "backup4go",
			Subsystem: "write",
			Name:      "write_duration_time",
			Help:      "Bucketed histogram of write time (s) of script files",
			Buckets:   prometheus.ExponentialBuckets(0.00005, 2, 20),
		})
	errorCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "backup4go",
			Subsystem: "dump",
			Name:      "error_count",
			Help:      "Total error count during dumping progress",
		}, []string{"kind"})
)

// RegisterMetrics registers metrics.
func RegisterMetrics(registry prometheus.Registerer) {
	registry.MustRegister(finishedSizeCounter)
	registry.MustRegister(finishedRowsCounter)
	registry.MustRegister(writeTimeHistogram)
	registry.MustRegister(errorCount)
}

// ErrorKindLabel returns the metric label of err.
func ErrorKindLabel(err error) string {
	for _, kind := range []struct {
		sentinel error
		label    string
	}{
		{ErrConfiguration, "configuration"},
		{ErrCatalog, "catalog"},
		{ErrObjectExtraction, "object_extraction"},
		{ErrPersistence, "persistence"},
		{ErrImportParse, "import_parse"},
		{ErrImportBatch, "import_batch"},
	} {
		if errors.Is(err, kind.sentinel) {
			return kind.label
		}
	}
	return "unknown"
}

func observeError(err error) {
	errorCount.WithLabelValues(ErrorKindLabel(err)).Inc()
}
