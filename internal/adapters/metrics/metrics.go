// Package metrics экспортирует метрики Prometheus для файлового прокси.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filemanager_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "filemanager_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	transferBytes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filemanager_transfer_bytes_total",
			Help: "Bytes moved between clients and the remote store",
		},
		[]string{"direction"},
	)

	sessionsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "filemanager_remote_sessions_leased",
			Help: "Remote sessions currently leased, by pool",
		},
		[]string{"pool"},
	)

	sessionDialsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filemanager_remote_dials_total",
			Help: "Remote session dial attempts",
		},
		[]string{"pool", "result"},
	)

	leaseWait = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "filemanager_lease_wait_seconds",
			Help:    "Time spent waiting for a remote session lease",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"pool"},
	)

	archivesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filemanager_archives_total",
			Help: "Zip archives built",
		},
		[]string{"status"},
	)

	movesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filemanager_moves_total",
			Help: "Move operations by final journal status",
		},
		[]string{"status"},
	)
)

// Handler отдаёт метрики в формате Prometheus.
func Handler() http.Handler {
	return promhttp.Handler()
}

func RecordRequest(method, path string, status int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

func RecordTransfer(direction string, n int) {
	transferBytes.WithLabelValues(direction).Add(float64(n))
}

func LeaseAcquired(pool string, waited time.Duration) {
	sessionsActive.WithLabelValues(pool).Inc()
	leaseWait.WithLabelValues(pool).Observe(waited.Seconds())
}

func LeaseReleased(pool string) {
	sessionsActive.WithLabelValues(pool).Dec()
}

func RecordDial(pool string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	sessionDialsTotal.WithLabelValues(pool, result).Inc()
}

func RecordArchive(err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	archivesTotal.WithLabelValues(status).Inc()
}

func RecordMove(status string) {
	movesTotal.WithLabelValues(status).Inc()
}
