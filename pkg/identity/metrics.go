package identity

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the orchestrator's Prometheus collectors.
type Metrics struct {
	SignIns       *prometheus.CounterVec
	Restores      *prometheus.CounterVec
	RefreshTicks  prometheus.Counter
	StaleCommits  prometheus.Counter
	Authenticated prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg when non-nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		SignIns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "identity",
			Name:      "sign_ins_total",
			Help:      "Sign-in attempts by outcome (success, challenge, failure).",
		}, []string{"outcome"}),
		Restores: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "identity",
			Name:      "session_restores_total",
			Help:      "Session restore attempts by outcome (restored, invalid, failure).",
		}, []string{"outcome"}),
		RefreshTicks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "identity",
			Name:      "refresh_ticks_total",
			Help:      "Refresh timer ticks.",
		}),
		StaleCommits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "identity",
			Name:      "stale_commits_total",
			Help:      "State commits dropped because a newer flow started.",
		}),
		Authenticated: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "identity",
			Name:      "authenticated",
			Help:      "1 while a valid session is held.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.SignIns, m.Restores, m.RefreshTicks, m.StaleCommits, m.Authenticated)
	}
	return m
}

func (m *Metrics) signIn(outcome string) {
	if m != nil {
		m.SignIns.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) restore(outcome string) {
	if m != nil {
		m.Restores.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) tick() {
	if m != nil {
		m.RefreshTicks.Inc()
	}
}

func (m *Metrics) stale() {
	if m != nil {
		m.StaleCommits.Inc()
	}
}

func (m *Metrics) observe(st State) {
	if m == nil {
		return
	}
	if st.Authenticated {
		m.Authenticated.Set(1)
	} else {
		m.Authenticated.Set(0)
	}
}
