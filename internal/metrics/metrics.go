// Package metrics registers the fabric's Prometheus instrumentation:
// messages sent/delivered, validation rejections, handler faults, and
// per-channel queue depth.
//
// Grounded on the teacher's promauto-based recorder
// (pkg/agent/middleware/metrics/prometheus.go — a *prometheus.CounterVec/
// *prometheus.HistogramVec set registered via promauto.New*), generalized
// from LLM request accounting to fabric delivery accounting.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder is the fabric's Prometheus-backed metrics sink.
type Recorder struct {
	sentTotal        *prometheus.CounterVec
	deliveredTotal   *prometheus.CounterVec
	rejectionsTotal  *prometheus.CounterVec
	handlerFaults    *prometheus.CounterVec
	queueDepth       *prometheus.GaugeVec
}

// NewRecorder registers and returns a fresh Recorder against reg. Pass
// prometheus.NewRegistry() in tests to avoid colliding with the global
// default registerer across test runs.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)
	return &Recorder{
		sentTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fabric_messages_sent_total",
				Help: "Total number of send attempts by channel and result (enqueued|rejected|backpressure|unknown_channel|channel_not_running).",
			},
			[]string{"channel", "result"},
		),
		deliveredTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fabric_messages_delivered_total",
				Help: "Total number of messages delivered to a channel's handler.",
			},
			[]string{"channel"},
		),
		rejectionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fabric_validation_rejections_total",
				Help: "Total number of validation rejections by channel and reason.",
			},
			[]string{"channel", "reason"},
		),
		handlerFaults: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fabric_handler_faults_total",
				Help: "Total number of handler panics recovered by the channel worker.",
			},
			[]string{"channel"},
		),
		queueDepth: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "fabric_channel_queue_depth",
				Help: "Current number of messages queued in a channel.",
			},
			[]string{"channel"},
		),
	}
}

// ObserveSend records the outcome of one send attempt.
func (r *Recorder) ObserveSend(channel, result string) {
	if r == nil {
		return
	}
	r.sentTotal.WithLabelValues(channel, result).Inc()
}

// ObserveDelivered records one successful handler invocation.
func (r *Recorder) ObserveDelivered(channel string) {
	if r == nil {
		return
	}
	r.deliveredTotal.WithLabelValues(channel).Inc()
}

// ObserveRejection records one validation rejection and its reason.
func (r *Recorder) ObserveRejection(channel, reason string) {
	if r == nil {
		return
	}
	r.rejectionsTotal.WithLabelValues(channel, reason).Inc()
}

// ObserveHandlerFault records one recovered handler panic.
func (r *Recorder) ObserveHandlerFault(channel string) {
	if r == nil {
		return
	}
	r.handlerFaults.WithLabelValues(channel).Inc()
}

// SetQueueDepth records the current queue length for channel.
func (r *Recorder) SetQueueDepth(channel string, depth int) {
	if r == nil {
		return
	}
	r.queueDepth.WithLabelValues(channel).Set(float64(depth))
}
