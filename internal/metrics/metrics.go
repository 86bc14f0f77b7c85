// Package metrics registers the backup subsystem's Prometheus collectors.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

var (
	exportDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "habitvault_export_duration_seconds",
		Help:    "Time to export a full snapshot",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
	}, []string{"status"})

	restoreDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "habitvault_restore_duration_seconds",
		Help:    "Time to validate and restore a snapshot",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
	}, []string{"status"})

	snapshotSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "habitvault_snapshot_size_bytes",
		Help: "Size of the most recently exported snapshot",
	})

	restoreRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "habitvault_restore_rejections_total",
		Help: "Snapshots rejected before restore, by reason",
	}, []string{"reason"})

	transportOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "habitvault_transport_operations_total",
		Help: "Transport operations by backend, operation and status",
	}, []string{"transport", "operation", "status"})

	lastBackupTimestamp = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "habitvault_last_backup_timestamp_seconds",
		Help: "Unix time of the last successful automatic backup",
	})
)

func status(err error) string {
	if err != nil {
		return StatusFailure
	}
	return StatusSuccess
}

func ObserveExport(start time.Time, size int, err error) {
	exportDuration.WithLabelValues(status(err)).Observe(time.Since(start).Seconds())
	if err == nil {
		snapshotSize.Set(float64(size))
	}
}

func ObserveRestore(start time.Time, err error) {
	restoreDuration.WithLabelValues(status(err)).Observe(time.Since(start).Seconds())
}

func RecordRejection(reason string) {
	restoreRejections.WithLabelValues(reason).Inc()
}

func RecordTransport(transport, operation string, err error) {
	transportOperations.WithLabelValues(transport, operation, status(err)).Inc()
}

func RecordBackupSuccess(at time.Time) {
	lastBackupTimestamp.Set(float64(at.Unix()))
}
