// Package api hosts the HTTP server, middleware, and REST handlers for operator
// access. Notable routes:
//   - POST /scrape/{jurisdiction} to start a run (?wait=true blocks, ?generic=true
//     forces the configured selector source).
//   - POST /scrape/{jurisdiction}/cancel to stop an active run.
//   - GET /scrape/status/{jurisdiction}, /scrape/history, /scrape/stats and
//     /scrape/active for run bookkeeping.
//   - GET /scrape/robots-audit for the live robots compliance report.
//   - GET /statutes/{citation} for a stored section.
//   - GET /healthz, /readyz and /metrics for liveness checks and Prometheus.
package api
