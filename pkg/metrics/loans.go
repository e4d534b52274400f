package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// LoanMetrics counts loan lifecycle transitions by outcome.
type LoanMetrics struct {
	transitions *prometheus.CounterVec
}

// NewLoanMetrics registers the loan transition counter on the provided registerer.
func NewLoanMetrics(reg prometheus.Registerer) *LoanMetrics {
	if reg == nil {
		return &LoanMetrics{}
	}
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "loan_transitions_total",
		Help: "Completed loan lifecycle transitions.",
	}, []string{"transition"})
	reg.MustRegister(transitions)
	return &LoanMetrics{transitions: transitions}
}

// IncTransition increments the counter for the named transition.
func (l *LoanMetrics) IncTransition(transition string) {
	if l == nil || l.transitions == nil {
		return
	}
	l.transitions.WithLabelValues(metricLabel(transition)).Inc()
}
