// Package metrics exposes prometheus counters for authentication outcomes.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	ResultSuccess            = "success"
	ResultInvalidCredentials = "invalid_credentials"
	ResultInactive           = "inactive"
	ResultInvalidToken       = "invalid_token"
	ResultInvalidSession     = "invalid_session"
	ResultStale              = "stale"
	ResultError              = "error"

	ScopeSession = "session"
	ScopeAll     = "all"

	KindChange = "change"
	KindReset  = "reset"
)

// Collector is safe to use as a nil pointer, in which case nothing is
// recorded.
type Collector struct {
	logins            *prometheus.CounterVec
	refreshes         *prometheus.CounterVec
	rotationConflicts prometheus.Counter
	logouts           *prometheus.CounterVec
	registrations     prometheus.Counter
	activations       prometheus.Counter
	passwordUpdates   *prometheus.CounterVec
}

func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "authority_login_total",
			Help: "Login attempts by result.",
		}, []string{"result"}),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "authority_refresh_total",
			Help: "Refresh token exchanges by result.",
		}, []string{"result"}),
		rotationConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "authority_rotation_conflicts_total",
			Help: "Refreshes that lost the rotation to a concurrent refresh of the same token.",
		}),
		logouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "authority_logout_total",
			Help: "Terminated sessions by scope.",
		}, []string{"scope"}),
		registrations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "authority_registrations_total",
			Help: "Accounts registered.",
		}),
		activations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "authority_activations_total",
			Help: "Accounts activated.",
		}),
		passwordUpdates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "authority_password_updates_total",
			Help: "Password changes and resets.",
		}, []string{"kind"}),
	}

	reg.MustRegister(
		c.logins,
		c.refreshes,
		c.rotationConflicts,
		c.logouts,
		c.registrations,
		c.activations,
		c.passwordUpdates,
	)

	return c
}

func (c *Collector) RecordLogin(result string) {
	if c == nil {
		return
	}
	c.logins.WithLabelValues(result).Inc()
}

func (c *Collector) RecordRefresh(result string) {
	if c == nil {
		return
	}
	c.refreshes.WithLabelValues(result).Inc()
	if result == ResultStale {
		c.rotationConflicts.Inc()
	}
}

func (c *Collector) RecordLogout(scope string, sessions int64) {
	if c == nil {
		return
	}
	c.logouts.WithLabelValues(scope).Add(float64(sessions))
}

func (c *Collector) RecordRegistration() {
	if c == nil {
		return
	}
	c.registrations.Inc()
}

func (c *Collector) RecordActivation() {
	if c == nil {
		return
	}
	c.activations.Inc()
}

func (c *Collector) RecordPasswordUpdate(kind string) {
	if c == nil {
		return
	}
	c.passwordUpdates.WithLabelValues(kind).Inc()
}

func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
