// Package database archives finished crawls in SQLite.
//
// Each crawl becomes one row in crawl_runs plus one row per visited URL in
// crawl_urls, keyed by the scope host. The history command reads the
// archive back to list runs and to diff the URL sets of two runs.
//
// The driver is modernc.org/sqlite, which needs no CGO. The whole archive is
// a single file, scopecrawl.db, under the XDG data directory by default.
package database
