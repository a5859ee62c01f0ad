// Package metrics constructs the metrics the application will track.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics represents the set of metrics we gather. These fields are
// safe to be accessed concurrently thanks to prometheus.
type Metrics struct {
	Registry    *prometheus.Registry
	Requests    prometheus.Counter
	Errors      prometheus.Counter
	Panics      prometheus.Counter
	Blocks      *prometheus.CounterVec
	Submissions *prometheus.CounterVec
}

// New constructs the application metrics and registers them along with the
// go runtime and process collectors.
func New() *Metrics {
	m := Metrics{
		Registry: prometheus.NewRegistry(),
		Requests: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ledger",
			Name:      "requests_total",
			Help:      "Number of web requests handled.",
		}),
		Errors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ledger",
			Name:      "errors_total",
			Help:      "Number of web requests that failed.",
		}),
		Panics: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ledger",
			Name:      "panics_total",
			Help:      "Number of web requests that panicked.",
		}),
		Blocks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ledger",
			Name:      "blocks_total",
			Help:      "Number of blocks submitted to the chain by result.",
		}, []string{"result"}),
		Submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ledger",
			Name:      "transactions_total",
			Help:      "Number of transactions submitted to the mempool by result.",
		}, []string{"result"}),
	}

	m.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.Requests,
		m.Errors,
		m.Panics,
		m.Blocks,
		m.Submissions,
	)

	return &m
}

// Chain represents the chain values reported as gauges.
type Chain interface {
	HeadNumber() (uint64, bool)
	MempoolLength() int
	BranchCount() int
}

// RegisterChain adds gauges that read the chain when scraped.
func (m *Metrics) RegisterChain(chain Chain) {
	m.Registry.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "ledger",
			Name:      "head_number",
			Help:      "Height of the block at the head of the chain.",
		}, func() float64 {
			n, ok := chain.HeadNumber()
			if !ok {
				return -1
			}
			return float64(n)
		}),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "ledger",
			Name:      "mempool_transactions",
			Help:      "Number of transactions waiting in the mempool.",
		}, func() float64 {
			return float64(chain.MempoolLength())
		}),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "ledger",
			Name:      "branches",
			Help:      "Number of branch tips the chain retains.",
		}, func() float64 {
			return float64(chain.BranchCount())
		}),
	)
}

// Result returns the label for the outcome of a submission.
func Result(err error) string {
	if err != nil {
		return "rejected"
	}
	return "accepted"
}

// Subscribers represents the event fan out reported as gauges.
type Subscribers interface {
	Count() int
	Dropped() uint64
}

// RegisterEvents adds metrics that read the event subscribers when scraped.
func (m *Metrics) RegisterEvents(subs Subscribers) {
	m.Registry.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "ledger",
			Name:      "event_subscribers",
			Help:      "Number of websocket clients receiving chain events.",
		}, func() float64 {
			return float64(subs.Count())
		}),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: "ledger",
			Name:      "events_dropped_total",
			Help:      "Number of chain events not delivered to a slow subscriber.",
		}, func() float64 {
			return float64(subs.Dropped())
		}),
	)
}
