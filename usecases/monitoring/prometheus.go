//                           _       _
// __      _____  __ ___   ___  __ _| |_ ___
// \ \ /\ / / _ \/ _` \ \ / / |/ _` | __/ _ \
//  \ V  V /  __/ (_| |\ V /| | (_| | ||  __/
//   \_/\_/ \___|\__,_| \_/ |_|\__,_|\__\___|
//
//  Copyright © 2016 - 2024 Weaviate B.V. All rights reserved.
//
//  CONTACT: hello@weaviate.io
//

package monitoring

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusMetrics groups the collectors of the schema pipeline. Every
// method is safe to call on a nil receiver, which disables metrics.
type PrometheusMetrics struct {
	DDLBatches               *prometheus.CounterVec
	DDLRequests              *prometheus.CounterVec
	WALAppends               *prometheus.CounterVec
	WALAppendErrors          *prometheus.CounterVec
	WALAppendDuration        prometheus.Histogram
	WALTrimmedEntries        *prometheus.CounterVec
	QuerySnapshotID          prometheus.Gauge
	SchemaVersion            prometheus.Gauge
	SnapshotListenersPending prometheus.Gauge
	SnapshotListenerFailures prometheus.Counter
	SnapshotWaitDuration     prometheus.Histogram
	MetricsServerConnections prometheus.Gauge
}

func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	f := promauto.With(reg)
	return &PrometheusMetrics{
		DDLBatches: f.NewCounterVec(prometheus.CounterOpts{
			Name: "graphmeta_ddl_batches_total",
			Help: "DDL batches submitted to the schema owner, by outcome",
		}, []string{"status"}),
		DDLRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "graphmeta_ddl_requests_total",
			Help: "Accepted DDL requests by operation type",
		}, []string{"type"}),
		WALAppends: f.NewCounterVec(prometheus.CounterOpts{
			Name: "graphmeta_wal_appends_total",
			Help: "Entries durably appended to the log",
		}, []string{"partition"}),
		WALAppendErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "graphmeta_wal_append_errors_total",
			Help: "Failed log appends",
		}, []string{"partition"}),
		WALAppendDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "graphmeta_wal_append_duration_seconds",
			Help:    "Time until an append was acknowledged",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
		}),
		WALTrimmedEntries: f.NewCounterVec(prometheus.CounterOpts{
			Name: "graphmeta_wal_trimmed_entries_total",
			Help: "Entries removed by trimming the log",
		}, []string{"partition"}),
		QuerySnapshotID: f.NewGauge(prometheus.GaugeOpts{
			Name: "graphmeta_query_snapshot_id",
			Help: "Latest snapshot id visible to readers",
		}),
		SchemaVersion: f.NewGauge(prometheus.GaugeOpts{
			Name: "graphmeta_schema_version",
			Help: "Version of the catalog visible to readers",
		}),
		SnapshotListenersPending: f.NewGauge(prometheus.GaugeOpts{
			Name: "graphmeta_snapshot_listeners_pending",
			Help: "Listeners waiting for a snapshot id",
		}),
		SnapshotListenerFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "graphmeta_snapshot_listener_failures_total",
			Help: "Snapshot listeners which panicked",
		}),
		SnapshotWaitDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "graphmeta_snapshot_wait_duration_seconds",
			Help:    "Time readers spent waiting for a snapshot id",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
		}),
		MetricsServerConnections: f.NewGauge(prometheus.GaugeOpts{
			Name: "graphmeta_metrics_server_connections",
			Help: "Open connections to the metrics endpoint",
		}),
	}
}

func partitionLabel(p int32) string {
	return strconv.FormatInt(int64(p), 10)
}

// BatchCommitted counts a committed batch and its requests.
func (pm *PrometheusMetrics) BatchCommitted(requestTypes []string) {
	if pm == nil {
		return
	}
	pm.DDLBatches.WithLabelValues("committed").Inc()
	for _, t := range requestTypes {
		pm.DDLRequests.WithLabelValues(t).Inc()
	}
}

// BatchFailed counts a batch which was rejected or could not be made durable.
func (pm *PrometheusMetrics) BatchFailed(status string) {
	if pm == nil {
		return
	}
	pm.DDLBatches.WithLabelValues(status).Inc()
}

func (pm *PrometheusMetrics) WALAppend(partition int32, took time.Duration, err error) {
	if pm == nil {
		return
	}
	if err != nil {
		pm.WALAppendErrors.WithLabelValues(partitionLabel(partition)).Inc()
		return
	}
	pm.WALAppends.WithLabelValues(partitionLabel(partition)).Inc()
	pm.WALAppendDuration.Observe(took.Seconds())
}

func (pm *PrometheusMetrics) WALTrimmed(partition int32, entries uint64) {
	if pm == nil {
		return
	}
	pm.WALTrimmedEntries.WithLabelValues(partitionLabel(partition)).Add(float64(entries))
}

// SnapshotAdvanced records the state visible to readers.
func (pm *PrometheusMetrics) SnapshotAdvanced(snapshotID, schemaVersion int64) {
	if pm == nil {
		return
	}
	pm.QuerySnapshotID.Set(float64(snapshotID))
	pm.SchemaVersion.Set(float64(schemaVersion))
}

func (pm *PrometheusMetrics) ListenersPending(n int) {
	if pm == nil {
		return
	}
	pm.SnapshotListenersPending.Set(float64(n))
}

func (pm *PrometheusMetrics) ListenerFailed() {
	if pm == nil {
		return
	}
	pm.SnapshotListenerFailures.Inc()
}

func (pm *PrometheusMetrics) SnapshotWaited(took time.Duration) {
	if pm == nil {
		return
	}
	pm.SnapshotWaitDuration.Observe(took.Seconds())
}
