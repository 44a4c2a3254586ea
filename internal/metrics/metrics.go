// Package metrics collects and exposes Prometheus metrics for the
// periodic jobs and the conversation flow.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector records operational counters. Jobs and handlers receive it
// as a dependency; a nil *Collector is valid and records nothing, so
// tests don't have to wire a registry.
type Collector struct {
	checksSent       prometheus.Counter
	sendFailures     prometheus.Counter
	entriesSaved     prometheus.Counter
	digestsSent      prometheus.Counter
	dispatchDuration prometheus.Histogram
}

// NewCollector creates a Collector and registers its metrics on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		checksSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "diary_checks_sent_total",
			Help: "Check-in prompts delivered to users.",
		}),
		sendFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "diary_send_failures_total",
			Help: "Outbound messages that failed to deliver.",
		}),
		entriesSaved: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "diary_entries_saved_total",
			Help: "Diary entries committed.",
		}),
		digestsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "diary_digests_sent_total",
			Help: "Weekly digests delivered.",
		}),
		dispatchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "diary_dispatch_duration_seconds",
			Help:    "Duration of one dispatch pass.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(c.checksSent, c.sendFailures, c.entriesSaved, c.digestsSent, c.dispatchDuration)
	return c
}

func (c *Collector) CheckSent() {
	if c != nil {
		c.checksSent.Inc()
	}
}

func (c *Collector) SendFailed() {
	if c != nil {
		c.sendFailures.Inc()
	}
}

func (c *Collector) EntrySaved() {
	if c != nil {
		c.entriesSaved.Inc()
	}
}

func (c *Collector) DigestSent() {
	if c != nil {
		c.digestsSent.Inc()
	}
}

func (c *Collector) DispatchPass(d time.Duration) {
	if c != nil {
		c.dispatchDuration.Observe(d.Seconds())
	}
}
