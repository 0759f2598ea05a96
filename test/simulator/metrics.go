// Copyright 2024 The Accumulate Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package simulator

import (
	"github.com/prometheus/client_golang/prometheus"
	"gitlab.com/accumulatenetwork/chainsim/internal/core/events"
	"gitlab.com/accumulatenetwork/chainsim/pkg/types/messaging"
)

// metrics are registered with a registry owned by the network, so that
// networks running side by side do not share counters.
type metrics struct {
	registry  *prometheus.Registry
	rounds    prometheus.Counter
	enqueued  *prometheus.CounterVec
	delivered *prometheus.CounterVec
	forwarded prometheus.Counter
	failures  *prometheus.CounterVec
	emitted   *prometheus.CounterVec
	queued    *prometheus.GaugeVec
}

func newMetrics() *metrics {
	m := new(metrics)
	m.registry = prometheus.NewRegistry()
	m.rounds = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "chainsim",
		Name:      "rounds_total",
		Help:      "The number of rounds that have been completed",
	})
	m.enqueued = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chainsim",
		Name:      "envelopes_enqueued_total",
		Help:      "The number of envelopes enqueued, by channel kind",
	}, []string{"kind"})
	m.delivered = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chainsim",
		Name:      "envelopes_delivered_total",
		Help:      "The number of envelopes delivered, by channel kind",
	}, []string{"kind"})
	m.forwarded = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "chainsim",
		Name:      "envelopes_forwarded_total",
		Help:      "The number of horizontal envelopes forwarded through the relay chain",
	})
	m.failures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chainsim",
		Name:      "call_failures_total",
		Help:      "The number of failed calls, by chain",
	}, []string{"chain"})
	m.emitted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chainsim",
		Name:      "events_emitted_total",
		Help:      "The number of events emitted, by chain",
	}, []string{"chain"})
	m.queued = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "chainsim",
		Name:      "envelopes_queued",
		Help:      "The number of envelopes waiting for delivery at the end of the round, by channel kind",
	}, []string{"kind"})

	m.registry.MustRegister(m.rounds, m.enqueued, m.delivered, m.forwarded, m.failures, m.emitted, m.queued)
	return m
}

func (m *metrics) subscribe(bus *events.Bus) {
	events.SubscribeSync(bus, func(e events.DidExecuteCall) {
		if e.Err != nil {
			m.failures.WithLabelValues(e.Chain.String()).Inc()
		}
	})
	events.SubscribeSync(bus, func(e events.DidRouteEnvelopes) {
		if e.Forwarded {
			m.forwarded.Add(float64(len(e.Envelopes)))
			return
		}
		for _, env := range e.Envelopes {
			m.delivered.WithLabelValues(env.Kind.String()).Inc()
		}
	})
	events.SubscribeSync(bus, func(events.DidCommitRound) {
		m.rounds.Inc()
	})
}

func (m *metrics) didEnqueue(env *messaging.Envelope) {
	m.enqueued.WithLabelValues(env.Kind.String()).Inc()
}

func (m *metrics) didEmitEvent(chain messaging.ChainID) {
	m.emitted.WithLabelValues(chain.String()).Inc()
}

func (m *metrics) setQueued(channels []*Channel) {
	m.queued.Reset()
	for _, ch := range channels {
		m.queued.WithLabelValues(ch.ID().Kind.String()).Add(float64(ch.Len()))
	}
}
