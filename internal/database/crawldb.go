package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/scopecrawl/internal/model"
)

// FileName is the archive file created inside the database directory.
const FileName = "scopecrawl.db"

// CrawlDB stores finished crawls.
type CrawlDB struct {
	db     *sql.DB
	dbPath string
}

// Options configures CrawlDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates the archive in dbDir.
// If CreateIfNotExists is false and the file is missing, an error is returned.
func Open(dbDir string, opts Options) (*CrawlDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// mode=rw refuses to create a missing file, mode=rwc allows it.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	cdb := &CrawlDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := cdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return cdb, nil
}

// Close closes the database connection.
func (cdb *CrawlDB) Close() error {
	return cdb.db.Close()
}

// Path returns the archive file path.
func (cdb *CrawlDB) Path() string {
	return cdb.dbPath
}

func (cdb *CrawlDB) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS crawl_runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		host TEXT NOT NULL,
		start_url TEXT NOT NULL,
		max_seen_urls INTEGER NOT NULL,
		termination TEXT NOT NULL,
		visited INTEGER NOT NULL,
		failures INTEGER NOT NULL,
		rejected INTEGER NOT NULL,
		started_at TEXT NOT NULL,
		finished_at TEXT NOT NULL,
		result_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_host ON crawl_runs(host);

	-- One row per visited URL, position is the visit order
	CREATE TABLE IF NOT EXISTS crawl_urls (
		run_id INTEGER NOT NULL REFERENCES crawl_runs(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		url TEXT NOT NULL,
		title TEXT,
		status_code INTEGER,
		hash TEXT,
		PRIMARY KEY (run_id, position)
	);

	CREATE INDEX IF NOT EXISTS idx_urls_url ON crawl_urls(url);
	`

	_, err := cdb.db.ExecContext(context.Background(), schema)
	return err
}

// Run is the summary of one archived crawl.
type Run struct {
	ID          int64
	Host        string
	StartURL    string
	MaxSeenURLs int
	Termination model.Termination
	Visited     int
	Failures    int
	Rejected    int
	StartedAt   time.Time
	FinishedAt  time.Time
}

// SaveCrawl archives result under its scope host and returns the run ID.
func (cdb *CrawlDB) SaveCrawl(ctx context.Context, result *model.CrawlResult) (int64, error) {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize result: %w", err)
	}

	tx, err := cdb.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after Commit

	res, err := tx.ExecContext(ctx, `
	INSERT INTO crawl_runs (host, start_url, max_seen_urls, termination, visited, failures, rejected, started_at, finished_at, result_json)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		result.ScopeHost,
		result.StartURL,
		result.MaxSeenURLs,
		result.Termination.String(),
		len(result.URLs),
		len(result.Failures),
		result.Rejected,
		formatTimestamp(result.StartedAt),
		formatTimestamp(result.FinishedAt),
		string(resultJSON),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert crawl run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get run id: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO crawl_urls (run_id, position, url, title, status_code, hash)
	VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare url insert: %w", err)
	}
	defer stmt.Close()

	for i, url := range result.URLs {
		var title, hash string
		var status int
		if i < len(result.Visits) {
			title = result.Visits[i].Title
			hash = result.Visits[i].Hash
			status = result.Visits[i].StatusCode
		}
		if _, err := stmt.ExecContext(ctx, id, i, url, title, status, hash); err != nil {
			return 0, fmt.Errorf("failed to insert url %s: %w", url, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit crawl: %w", err)
	}
	return id, nil
}

const runColumns = `id, host, start_url, max_seen_urls, termination, visited, failures, rejected, started_at, finished_at`

// ListRuns returns the runs archived for host, newest first.
func (cdb *CrawlDB) ListRuns(ctx context.Context, host string) ([]Run, error) {
	return cdb.queryRuns(ctx, `SELECT `+runColumns+` FROM crawl_runs WHERE host = ? ORDER BY id DESC`, host)
}

// LatestRuns returns at most n runs for host, newest first.
func (cdb *CrawlDB) LatestRuns(ctx context.Context, host string, n int) ([]Run, error) {
	if n <= 0 {
		return nil, nil
	}
	return cdb.queryRuns(ctx, `SELECT `+runColumns+` FROM crawl_runs WHERE host = ? ORDER BY id DESC LIMIT ?`, host, n)
}

func (cdb *CrawlDB) queryRuns(ctx context.Context, query string, args ...any) ([]Run, error) {
	rows, err := cdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			run               Run
			termination       string
			started, finished string
		)
		if err := rows.Scan(
			&run.ID,
			&run.Host,
			&run.StartURL,
			&run.MaxSeenURLs,
			&termination,
			&run.Visited,
			&run.Failures,
			&run.Rejected,
			&started,
			&finished,
		); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}

		if t, err := model.ParseTermination(termination); err == nil {
			run.Termination = t
		}
		run.StartedAt = parseTimestamp(started)
		run.FinishedAt = parseTimestamp(finished)
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// RunURLs returns the visited URLs of a run in visit order.
func (cdb *CrawlDB) RunURLs(ctx context.Context, runID int64) ([]string, error) {
	rows, err := cdb.db.QueryContext(ctx, `SELECT url FROM crawl_urls WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query urls: %w", err)
	}
	defer rows.Close()

	var urls []string
	for rows.Next() {
		var url string
		if err := rows.Scan(&url); err != nil {
			return nil, fmt.Errorf("failed to scan url: %w", err)
		}
		urls = append(urls, url)
	}
	return urls, rows.Err()
}

// GetResult returns the full archived result of a run, or nil if there is
// no run with that ID.
func (cdb *CrawlDB) GetResult(ctx context.Context, runID int64) (*model.CrawlResult, error) {
	var resultJSON string
	err := cdb.db.QueryRowContext(ctx, `SELECT result_json FROM crawl_runs WHERE id = ?`, runID).Scan(&resultJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get crawl result: %w", err)
	}

	var result model.CrawlResult
	if err := json.Unmarshal([]byte(resultJSON), &result); err != nil {
		return nil, fmt.Errorf("failed to parse crawl result: %w", err)
	}
	return &result, nil
}

// ListHosts returns every host with at least one archived run.
func (cdb *CrawlDB) ListHosts(ctx context.Context) ([]string, error) {
	rows, err := cdb.db.QueryContext(ctx, `SELECT DISTINCT host FROM crawl_runs ORDER BY host`)
	if err != nil {
		return nil, fmt.Errorf("failed to list hosts: %w", err)
	}
	defer rows.Close()

	var hosts []string
	for rows.Next() {
		var host string
		if err := rows.Scan(&host); err != nil {
			return nil, fmt.Errorf("failed to scan host: %w", err)
		}
		hosts = append(hosts, host)
	}
	return hosts, rows.Err()
}

// URLDiff is the difference between two URL sets.
type URLDiff struct {
	// Added holds URLs present only in the newer set, in its order.
	Added []string

	// Removed holds URLs present only in the older set, in its order.
	Removed []string
}

// Empty reports whether both sets were equal.
func (d URLDiff) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0
}

// Diff compares an older and a newer URL list.
func Diff(older, newer []string) URLDiff {
	inOlder := make(map[string]struct{}, len(older))
	for _, u := range older {
		inOlder[u] = struct{}{}
	}
	inNewer := make(map[string]struct{}, len(newer))
	for _, u := range newer {
		inNewer[u] = struct{}{}
	}

	var d URLDiff
	for _, u := range newer {
		if _, ok := inOlder[u]; !ok && !slices.Contains(d.Added, u) {
			d.Added = append(d.Added, u)
		}
	}
	for _, u := range older {
		if _, ok := inNewer[u]; !ok && !slices.Contains(d.Removed, u) {
			d.Removed = append(d.Removed, u)
		}
	}
	return d
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// timestampFormats contains the timestamp formats that SQLite may return.
// More specific formats come first.
var timestampFormats = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999",
}

// parseTimestamp tries each of timestampFormats and returns the zero time
// if none matches.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
