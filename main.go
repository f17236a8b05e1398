// Command statute-crawler runs the statute scraping service and its CLI tools.
//
// Architecture overview:
//   - HTTP API: internal/api.Server exposes scrape control, session status, history, stats, the
//     robots audit report, stored statute lookup, health checks and /metrics.
//   - Coordinator: internal/coordinator admits at most one run per jurisdiction, runs it inline or
//     in the background, and releases the jurisdiction on every exit path.
//   - Scrapers: internal/scraper holds one Source per jurisdiction plus a selector-driven generic
//     source. Every target passes the robots guard and the request spacer before colly fetches it
//     and goquery parses it.
//   - Persistence: statutes are upserted by citation and each run is tracked as a scrape session,
//     in memory or in Postgres (pgx).
//
// Quick checklist:
//   - Configure with a YAML file (--config) or STATUTES_* env vars, e.g. STATUTES_DATABASE_DRIVER,
//     STATUTES_DATABASE_DSN, STATUTES_CRAWLER_USER_AGENT, STATUTES_CRAWLER_REQUIRE_ROBOTS.
//   - Run the API: statute-crawler serve
//   - One-off run: statute-crawler scrape CA
//   - Compliance check: statute-crawler audit
package main

import (
	"github.com/JakeFAU/statute-crawler/cmd"
)

func main() {
	cmd.Execute()
}
