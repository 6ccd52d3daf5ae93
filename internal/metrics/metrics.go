package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector receives counters from the payment core. NoOp keeps tests and
// broker-less deployments free of a registry.
type Collector interface {
	CallbackVerified()
	CallbackRejected()
	CallbackDuplicate()
	TransactionCompleted(kind string)
	TransactionFailed(kind string)
}

type NoOpCollector struct{}

func (NoOpCollector) CallbackVerified()           {}
func (NoOpCollector) CallbackRejected()           {}
func (NoOpCollector) CallbackDuplicate()          {}
func (NoOpCollector) TransactionCompleted(string) {}
func (NoOpCollector) TransactionFailed(string)    {}

// PrometheusCollector registers and serves the real counters.
type PrometheusCollector struct {
	callbacksVerified  prometheus.Counter
	callbacksRejected  prometheus.Counter
	callbacksDuplicate prometheus.Counter
	txCompleted        *prometheus.CounterVec
	txFailed           *prometheus.CounterVec
}

func NewPrometheusCollector() *PrometheusCollector {
	return &PrometheusCollector{
		callbacksVerified: promauto.NewCounter(prometheus.CounterOpts{
			Name: "laampay_callbacks_verified_total",
			Help: "Provider callbacks that passed signature verification.",
		}),
		callbacksRejected: promauto.NewCounter(prometheus.CounterOpts{
			Name: "laampay_callbacks_rejected_total",
			Help: "Provider callbacks rejected at the signature gate.",
		}),
		callbacksDuplicate: promauto.NewCounter(prometheus.CounterOpts{
			Name: "laampay_callbacks_duplicate_total",
			Help: "Provider callbacks acknowledged as idempotent duplicates.",
		}),
		txCompleted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "laampay_transactions_completed_total",
			Help: "Transactions that reached the completed state.",
		}, []string{"kind"}),
		txFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "laampay_transactions_failed_total",
			Help: "Transactions that reached the failed state.",
		}, []string{"kind"}),
	}
}

func (c *PrometheusCollector) CallbackVerified()  { c.callbacksVerified.Inc() }
func (c *PrometheusCollector) CallbackRejected()  { c.callbacksRejected.Inc() }
func (c *PrometheusCollector) CallbackDuplicate() { c.callbacksDuplicate.Inc() }

func (c *PrometheusCollector) TransactionCompleted(kind string) {
	c.txCompleted.WithLabelValues(kind).Inc()
}

func (c *PrometheusCollector) TransactionFailed(kind string) {
	c.txFailed.WithLabelValues(kind).Inc()
}

var (
	_ Collector = NoOpCollector{}
	_ Collector = (*PrometheusCollector)(nil)
)
