// Package metrics holds the process-wide Prometheus collectors shared by
// the store adapters, dispatcher, driver supervisors, and logic engine.
// Grounded on the teacher's sdk/metrics.go: package-level collectors
// registered once at init time and exposed over HTTP via promhttp, the only
// difference being that DrMem's core never owns the listener itself --
// cmd/drmemd starts Expose in a goroutine only if metrics are configured,
// since the HTTP surface is otherwise out of core scope (§1).
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

var (
	// StoreOpLatency observes how long each store.Store operation takes,
	// labeled by backend ("memory"/"streams") and operation name.
	StoreOpLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name: "drmem_store_op_duration_seconds",
		Help: "Latency of store.Store operations.",
	}, []string{"backend", "op"})

	// StoreHistoryLength tracks the current retained history length per
	// device.
	StoreHistoryLength = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "drmem_store_history_length",
		Help: "Number of history entries currently retained for a device.",
	}, []string{"backend", "device"})

	// StoreMonitorSubscribers tracks the number of live MonitorDevice
	// subscribers per device.
	StoreMonitorSubscribers = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "drmem_store_monitor_subscribers",
		Help: "Number of live monitor subscribers for a device.",
	}, []string{"backend", "device"})

	// DispatcherRequestsTotal counts requests the dispatcher has served,
	// labeled by request kind.
	DispatcherRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "drmem_dispatcher_requests_total",
		Help: "Requests served by the core dispatcher, by kind.",
	}, []string{"kind"})

	// DispatcherQueueDepth tracks the current buffered length of the
	// dispatcher's driver/client request queues.
	DispatcherQueueDepth = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "drmem_dispatcher_queue_depth",
		Help: "Number of requests currently buffered in a dispatcher queue.",
	}, []string{"queue"})

	// DriverRestartsTotal counts supervisor-driven restarts per driver.
	DriverRestartsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "drmem_driver_restarts_total",
		Help: "Number of times a driver instance was restarted after failure.",
	}, []string{"driver"})

	// LogicBlockEvaluationsTotal counts logic block evaluations, split by
	// whether the result changed the output.
	LogicBlockEvaluationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "drmem_logicblock_evaluations_total",
		Help: "Logic block evaluations, labeled by whether the output was set.",
	}, []string{"block", "result"})
)

func init() {
	prometheus.MustRegister(
		StoreOpLatency,
		StoreHistoryLength,
		StoreMonitorSubscribers,
		DispatcherRequestsTotal,
		DispatcherQueueDepth,
		DriverRestartsTotal,
		LogicBlockEvaluationsTotal,
	)
}

// Expose starts the /metrics HTTP endpoint on addr and blocks until it
// fails. The caller runs this as a goroutine.
func Expose(addr string) {
	log.WithField("addr", addr).Info("[metrics] exposing prometheus metrics")
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.WithError(err).Error("[metrics] metrics server stopped")
	}
}
