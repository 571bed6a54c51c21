// Package metrics exposes extraction counters to Prometheus. A nil *Metrics is
// valid and records nothing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "exhibitor_leads"

// Document outcomes.
const (
	DocumentOK          = "ok"
	DocumentFetchFailed = "fetch_failed"
	DocumentParseFailed = "parse_failed"
)

// Channel outcomes.
const (
	ChannelOK      = "ok"
	ChannelFailed  = "failed"
	ChannelTimeout = "timeout"
	ChannelSkipped = "skipped"
)

// Metrics groups the counters updated by the pipeline.
type Metrics struct {
	documents  *prometheus.CounterVec
	candidates *prometheus.CounterVec
	truncated  prometheus.Counter
	rejections *prometheus.CounterVec
	misses     *prometheus.CounterVec
	records    *prometheus.CounterVec
	channels   *prometheus.CounterVec
}

// New registers the counters on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		documents: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_total",
			Help:      "Documents handled, by outcome.",
		}, []string{"outcome"}),
		candidates: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "candidates_total",
			Help:      "Candidate nodes located, by phase.",
		}, []string{"phase"}),
		truncated: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "candidates_truncated_total",
			Help:      "Candidate nodes dropped by the candidate cap.",
		}),
		rejections: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rejections_total",
			Help:      "Candidates rejected by the record builder, by reason.",
		}, []string{"reason"}),
		misses: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "field_misses_total",
			Help:      "Optional fields no cascade rule matched, by field.",
		}, []string{"field"}),
		records: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_total",
			Help:      "Records kept after deduplication, by kind.",
		}, []string{"kind"}),
		channels: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "enrichment_channels_total",
			Help:      "Enrichment channel calls, by channel and outcome.",
		}, []string{"channel", "outcome"}),
	}
}

// Document counts one handled document.
func (m *Metrics) Document(outcome string) {
	if m == nil {
		return
	}
	m.documents.WithLabelValues(outcome).Inc()
}

// Candidates counts located candidates.
func (m *Metrics) Candidates(phase string, found, truncated int) {
	if m == nil {
		return
	}
	m.candidates.WithLabelValues(phase).Add(float64(found))
	m.truncated.Add(float64(truncated))
}

// Rejection counts one rejected candidate.
func (m *Metrics) Rejection(reason string) {
	if m == nil {
		return
	}
	m.rejections.WithLabelValues(reason).Inc()
}

// Misses counts optional fields left empty.
func (m *Metrics) Misses(fields []string) {
	if m == nil {
		return
	}
	for _, f := range fields {
		m.misses.WithLabelValues(f).Inc()
	}
}

// Records counts deduplicated records of one kind.
func (m *Metrics) Records(kind string, n int) {
	if m == nil {
		return
	}
	m.records.WithLabelValues(kind).Add(float64(n))
}

// Channel counts one enrichment channel call.
func (m *Metrics) Channel(channel, outcome string) {
	if m == nil {
		return
	}
	m.channels.WithLabelValues(channel, outcome).Inc()
}
