package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()

	families, err := reg.Gather()
	require.NoError(t, err)

	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
	metrics:
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if labels[lp.GetName()] != lp.GetValue() {
					continue metrics
				}
			}
			return m.GetCounter().GetValue()
		}
	}

	return 0
}

func TestCollector_Records(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordLogin(ResultSuccess)
	c.RecordLogin(ResultSuccess)
	c.RecordLogin(ResultInvalidCredentials)
	c.RecordRefresh(ResultSuccess)
	c.RecordRefresh(ResultStale)
	c.RecordLogout(ScopeSession, 1)
	c.RecordLogout(ScopeAll, 3)
	c.RecordRegistration()
	c.RecordActivation()
	c.RecordPasswordUpdate(KindReset)

	assert.Equal(t, 2.0, counterValue(t, reg, "authority_login_total", map[string]string{"result": ResultSuccess}))
	assert.Equal(t, 1.0, counterValue(t, reg, "authority_login_total", map[string]string{"result": ResultInvalidCredentials}))
	assert.Equal(t, 1.0, counterValue(t, reg, "authority_refresh_total", map[string]string{"result": ResultStale}))
	assert.Equal(t, 1.0, counterValue(t, reg, "authority_rotation_conflicts_total", nil))
	assert.Equal(t, 3.0, counterValue(t, reg, "authority_logout_total", map[string]string{"scope": ScopeAll}))
	assert.Equal(t, 1.0, counterValue(t, reg, "authority_registrations_total", nil))
	assert.Equal(t, 1.0, counterValue(t, reg, "authority_activations_total", nil))
	assert.Equal(t, 1.0, counterValue(t, reg, "authority_password_updates_total", map[string]string{"kind": KindReset}))
}

func TestCollector_NilIsNoop(t *testing.T) {
	var c *Collector

	assert.NotPanics(t, func() {
		c.RecordLogin(ResultSuccess)
		c.RecordRefresh(ResultStale)
		c.RecordLogout(ScopeAll, 2)
		c.RecordRegistration()
		c.RecordActivation()
		c.RecordPasswordUpdate(KindChange)
	})
}

func TestHandler(t *testing.T) {
	reg := NewRegistry()
	NewCollector(reg).RecordLogin(ResultSuccess)

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `authority_login_total{result="success"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}
