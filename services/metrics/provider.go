package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/fx"
)

func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func NewCollectorFromRegistry(reg *prometheus.Registry) *Collector {
	return NewCollector(reg)
}

var Module = fx.Options(
	fx.Provide(NewRegistry),
	fx.Provide(NewCollectorFromRegistry),
)
