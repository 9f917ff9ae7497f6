// Copyright 2026 The Treelite-Go Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package treelite

import (
	"github.com/cockroachdb/crlib/crtime"
	"github.com/prometheus/client_golang/prometheus"
)

// PredictorMetrics holds the Prometheus collectors updated by a Predictor. The
// caller owns registration.
type PredictorMetrics struct {
	// Rows counts the rows evaluated by prediction calls.
	Rows prometheus.Counter
	// BatchLatency observes the wall time of each prediction call, in seconds.
	BatchLatency prometheus.Histogram
	// Errors counts prediction calls that returned an error.
	Errors prometheus.Counter
}

// NewPredictorMetrics returns metrics whose collector names start with
// namespace.
func NewPredictorMetrics(namespace string) *PredictorMetrics {
	return &PredictorMetrics{
		Rows: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "predict_rows_total",
			Help:      "Number of rows evaluated.",
		}),
		BatchLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "predict_batch_latency_seconds",
			Help:      "Latency of prediction calls.",
			Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 12),
		}),
		Errors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "predict_errors_total",
			Help:      "Number of prediction calls that failed.",
		}),
	}
}

// Collectors returns the collectors, for registration.
func (m *PredictorMetrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{m.Rows, m.BatchLatency, m.Errors}
}

func (m *PredictorMetrics) record(rows int, start crtime.Mono, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.Errors.Inc()
		return
	}
	m.Rows.Add(float64(rows))
	m.BatchLatency.Observe(start.Elapsed().Seconds())
}
