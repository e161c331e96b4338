package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// WorkerMetrics tracks the consumer loop: task throughput by status,
// processing latency, in-flight slot usage (at most 1 per worker), queue
// lag, and the two failure sinks (dead letters, repairable store writes).
type WorkerMetrics struct {
	registry *prometheus.Registry
	worker   string

	taskTotal      *prometheus.CounterVec
	taskDuration   *prometheus.HistogramVec
	taskInFlight   prometheus.Gauge
	queueLag       *prometheus.HistogramVec
	deadLetters    prometheus.Counter
	storeRepairLog *prometheus.CounterVec
}

func NewWorkerMetrics(worker string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	taskTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docclassify",
			Subsystem: "worker",
			Name:      "task_total",
			Help:      "Processed tasks by status.",
		},
		[]string{"worker", "status"},
	)
	taskDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docclassify",
			Subsystem: "worker",
			Name:      "task_duration_seconds",
			Help:      "Full pipeline duration per task by status.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"worker", "status"},
	)
	taskInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "docclassify",
			Subsystem: "worker",
			Name:      "task_in_flight",
			Help:      "In-flight tasks; bounded at 1 by prefetch.",
			ConstLabels: prometheus.Labels{
				"worker": worker,
			},
		},
	)
	queueLag := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docclassify",
			Subsystem: "worker",
			Name:      "queue_lag_seconds",
			Help:      "Delay between document upload and processing start.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"worker"},
	)
	deadLetters := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "docclassify",
			Subsystem: "worker",
			Name:      "dead_letter_total",
			Help:      "Tasks moved to the dead-letter subject.",
			ConstLabels: prometheus.Labels{
				"worker": worker,
			},
		},
	)
	storeRepairLog := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docclassify",
			Subsystem: "worker",
			Name:      "store_repair_total",
			Help:      "Repairable store write failures needing reconciliation.",
		},
		[]string{"worker", "store"},
	)

	registry.MustRegister(taskTotal, taskDuration, taskInFlight, queueLag, deadLetters, storeRepairLog)

	return &WorkerMetrics{
		registry:       registry,
		worker:         worker,
		taskTotal:      taskTotal,
		taskDuration:   taskDuration,
		taskInFlight:   taskInFlight,
		queueLag:       queueLag,
		deadLetters:    deadLetters,
		storeRepairLog: storeRepairLog,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) StartTask() {
	m.taskInFlight.Inc()
}

func (m *WorkerMetrics) FinishTask(duration time.Duration, success bool) {
	m.taskInFlight.Dec()

	status := "success"
	if !success {
		status = "error"
	}
	m.taskTotal.WithLabelValues(m.worker, status).Inc()
	m.taskDuration.WithLabelValues(m.worker, status).Observe(duration.Seconds())
}

func (m *WorkerMetrics) ObserveQueueLag(lag time.Duration) {
	if lag < 0 {
		return
	}
	m.queueLag.WithLabelValues(m.worker).Observe(lag.Seconds())
}

func (m *WorkerMetrics) IncDeadLetter() {
	m.deadLetters.Inc()
}

func (m *WorkerMetrics) IncStoreRepair(store string) {
	m.storeRepairLog.WithLabelValues(m.worker, store).Inc()
}
