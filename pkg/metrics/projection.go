package metrics

import "github.com/prometheus/client_golang/prometheus"

// Projection outcomes.
const (
	OutcomeOK       = "ok"
	OutcomeFailed   = "failed"
	OutcomeConflict = "conflict"
	OutcomeSkipped  = "skipped"
)

// ProjectionMetrics counts directory projection attempts per flow.
type ProjectionMetrics struct {
	total  *prometheus.CounterVec
	marked *prometheus.CounterVec
}

func NewProjectionMetrics(reg prometheus.Registerer) *ProjectionMetrics {
	if reg == nil {
		return &ProjectionMetrics{}
	}
	m := &ProjectionMetrics{
		total: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "directory_projection_total",
			Help: "Directory projection attempts by flow and outcome.",
		}, []string{"flow", "outcome"}),
		marked: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "directory_repair_marked_total",
			Help: "Usernames queued for projection repair, by flow.",
		}, []string{"flow"}),
	}
	reg.MustRegister(m.total, m.marked)
	return m
}

// Observe records one projection attempt.
func (p *ProjectionMetrics) Observe(flow, outcome string) {
	if p == nil || p.total == nil {
		return
	}
	p.total.WithLabelValues(normalizeLabel(flow), normalizeLabel(outcome)).Inc()
}

// Marked records that flow queued a username for repair.
func (p *ProjectionMetrics) Marked(flow string) {
	if p == nil || p.marked == nil {
		return
	}
	p.marked.WithLabelValues(normalizeLabel(flow)).Inc()
}
