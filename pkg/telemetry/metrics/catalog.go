package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/concierge/pkg/config"
)

// CatalogMetrics tracks catalog reloads and size.
type CatalogMetrics struct {
	reloadsTotal *prometheus.CounterVec
	entries      *prometheus.GaugeVec
}

// NewCatalogMetrics creates and registers catalog metrics.
func NewCatalogMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *CatalogMetrics {
	cm := &CatalogMetrics{
		reloadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "catalog",
				Name:      "reloads_total",
				Help:      "Catalog reload attempts by result",
			},
			[]string{"result"},
		),
		entries: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: "catalog",
				Name:      "entries",
				Help:      "Number of loaded catalog entries by type",
			},
			[]string{"type"},
		),
	}
	registry.MustRegister(cm.reloadsTotal, cm.entries)
	return cm
}

// RecordReload records a reload attempt. Sizes are updated only on success.
func (cm *CatalogMetrics) RecordReload(success bool, templates, personas int) {
	if !success {
		cm.reloadsTotal.WithLabelValues("error").Inc()
		return
	}
	cm.reloadsTotal.WithLabelValues("success").Inc()
	cm.entries.WithLabelValues("template").Set(float64(templates))
	cm.entries.WithLabelValues("persona").Set(float64(personas))
}
