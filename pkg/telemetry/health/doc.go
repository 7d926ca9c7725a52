// Package health provides liveness and readiness probes.
//
// Liveness always succeeds while the process serves requests. Readiness
// runs the registered checks concurrently, each bounded by a timeout:
//
//	checker := health.New(2 * time.Second)
//	checker.Register("catalog", health.CatalogCheck(srv.Catalog))
//	checker.Register("sessions", health.SessionStoreCheck(store))
//	mux.Handle("GET /ready", checker.ReadinessHandler())
package health
