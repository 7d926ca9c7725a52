// Package metrics exposes Prometheus metrics for prompt generation.
//
// The Collector is attached to the synthesis engine as an Observer and
// derives every series from the generation result metadata:
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	engine, _ := synthesis.New(synthesis.Options{
//		Catalog:   cat,
//		Observers: []synthesis.Observer{collector},
//	})
//	mux.Handle(cfg.Telemetry.Metrics.Path, collector.Handler())
//
// Template and persona labels pass through a CardinalityLimiter; once the
// limit is reached, new pairs are reported as "other".
package metrics
