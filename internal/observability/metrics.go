package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	DecodeMalformedJSON    = "malformed_json"
	DecodeUnknownType      = "unknown_type"
	DecodeMalformedPayload = "malformed_payload"

	CommandResultSent    = "sent"
	CommandResultDropped = "dropped"
	CommandResultFailed  = "failed"
)

var (
	registerOnce sync.Once

	bytesReceived = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "tasksync",
			Subsystem: "transport",
			Name:      "bytes_received_total",
			Help:      "Bytes read from the server stream.",
		},
	)
	linesFramed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "tasksync",
			Subsystem: "transport",
			Name:      "lines_framed_total",
			Help:      "Non-empty lines extracted by the stream framer.",
		},
	)
	decodeErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tasksync",
			Subsystem: "protocol",
			Name:      "decode_errors_total",
			Help:      "Inbound lines dropped by the decoder.",
		},
		[]string{"kind"},
	)
	snapshotsApplied = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "tasksync",
			Subsystem: "store",
			Name:      "snapshots_applied_total",
			Help:      "FULL_LIST snapshots applied to the store.",
		},
	)
	snapshotItems = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "tasksync",
			Subsystem: "store",
			Name:      "items",
			Help:      "Items in the most recently applied snapshot.",
		},
	)
	commandsSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tasksync",
			Subsystem: "transport",
			Name:      "commands_total",
			Help:      "Outbound commands by verb and result.",
		},
		[]string{"command", "result"},
	)
	connectAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tasksync",
			Subsystem: "transport",
			Name:      "connect_attempts_total",
			Help:      "TCP connect attempts by outcome.",
		},
		[]string{"success"},
	)
	connectDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "tasksync",
			Subsystem: "transport",
			Name:      "connect_duration_seconds",
			Help:      "Time spent establishing the server connection.",
			Buckets:   prometheus.DefBuckets,
		},
	)
	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tasksync",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests to the metrics endpoint.",
		},
		[]string{"method", "path", "status"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			bytesReceived,
			linesFramed,
			decodeErrors,
			snapshotsApplied,
			snapshotItems,
			commandsSent,
			connectAttempts,
			connectDuration,
			httpRequests,
		)
	})
}

func RecordBytesReceived(n int) {
	RegisterMetrics()
	bytesReceived.Add(float64(n))
}

func RecordLinesFramed(n int) {
	RegisterMetrics()
	linesFramed.Add(float64(n))
}

func RecordDecodeError(kind string) {
	RegisterMetrics()
	decodeErrors.WithLabelValues(kind).Inc()
}

func RecordSnapshot(items int) {
	RegisterMetrics()
	snapshotsApplied.Inc()
	snapshotItems.Set(float64(items))
}

func RecordCommand(command, result string) {
	RegisterMetrics()
	commandsSent.WithLabelValues(command, result).Inc()
}

func RecordConnect(duration time.Duration, success bool) {
	RegisterMetrics()
	connectAttempts.WithLabelValues(strconv.FormatBool(success)).Inc()
	connectDuration.Observe(duration.Seconds())
}

func RecordHTTPRequest(method, path string, status int) {
	RegisterMetrics()
	httpRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
}
