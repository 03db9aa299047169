// Package metrics provides optional Prometheus counters for the codec's
// drop/decode/CRC/decrypt-failure events. There is no HTTP server here:
// the core is a pure codec with no I/O of its own; a host that wants a
// /metrics endpoint exposes the Registerer it supplied itself.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the counters a TrackReader/section builder can update as
// it runs. A nil *Metrics is valid everywhere its methods are called and
// simply does nothing, so callers that don't care about metrics never
// need a nil check of their own.
type Metrics struct {
	fieldsDropped   *prometheus.CounterVec
	sectionsDecoded prometheus.Counter
	crcFailures     *prometheus.CounterVec
	decryptFailures prometheus.Counter
}

// New registers RWTF's counters against reg and returns a *Metrics that
// updates them. Pass prometheus.NewRegistry() for an isolated registry,
// or prometheus.DefaultRegisterer to join the process-wide one.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		fieldsDropped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rwtf_fields_dropped_total",
				Help: "Total number of (row, field) cells dropped at write time due to coercion failure.",
			},
			[]string{"field"},
		),
		sectionsDecoded: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "rwtf_sections_decoded_total",
				Help: "Total number of sections successfully decoded.",
			},
		),
		crcFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rwtf_crc_failures_total",
				Help: "Total number of CRC check failures, by region.",
			},
			[]string{"region"},
		),
		decryptFailures: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "rwtf_decrypt_failures_total",
				Help: "Total number of AEAD authentication failures decoding encrypted sections.",
			},
		),
	}
}

func (m *Metrics) FieldDropped(field string) {
	if m == nil {
		return
	}
	m.fieldsDropped.WithLabelValues(field).Inc()
}

func (m *Metrics) SectionDecoded() {
	if m == nil {
		return
	}
	m.sectionsDecoded.Inc()
}

func (m *Metrics) CRCFailure(region string) {
	if m == nil {
		return
	}
	m.crcFailures.WithLabelValues(region).Inc()
}

func (m *Metrics) DecryptFailure() {
	if m == nil {
		return
	}
	m.decryptFailures.Inc()
}
