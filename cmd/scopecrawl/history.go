package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/scopecrawl/internal/config"
	"github.com/nao1215/scopecrawl/internal/database"
	"github.com/nao1215/scopecrawl/internal/scope"
	"github.com/nao1215/scopecrawl/internal/sink"
	"github.com/spf13/cobra"
)

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [host]",
		Short: "Show archived crawls and compare their URL sets",
		Long: `History lists the crawls archived for a host, newest first.

Hosts are matched by scope host, so "www.example.com", "example.com" and
"https://example.com/docs" all refer to the same archive entries.

Examples:
  # List crawls of example.com
  scopecrawl history example.com

  # Show URLs added and removed between the two latest crawls
  scopecrawl history example.com --diff

  # Compare a result file against the latest crawl
  scopecrawl history example.com --file example.com-urls.txt

  # List every host in the archive
  scopecrawl history --list-hosts`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().BoolP("diff", "d", false,
		"Show URLs added and removed between the two latest crawls")
	cmd.Flags().StringP("file", "f", "",
		"Compare a <host>-urls.txt file against the latest crawl")
	cmd.Flags().BoolP("list-hosts", "L", false,
		"List all hosts in the archive")
	cmd.Flags().String("db-dir", config.XDGDataDir(),
		"Directory of the history archive")

	return cmd
}

func runHistoryCmd(cmd *cobra.Command, args []string) error {
	listHosts, err := cmd.Flags().GetBool("list-hosts")
	if err != nil {
		return err
	}
	diff, err := cmd.Flags().GetBool("diff")
	if err != nil {
		return err
	}
	file, err := cmd.Flags().GetString("file")
	if err != nil {
		return err
	}
	dbDir, err := cmd.Flags().GetString("db-dir")
	if err != nil {
		return err
	}

	// Validate before opening the database.
	var host string
	if !listHosts {
		if len(args) == 0 {
			return errors.New("host is required (use --list-hosts to see archived hosts)")
		}
		if host, err = archiveHost(args[0]); err != nil {
			return configError(err)
		}
		if diff && file != "" {
			return configError(errors.New("--diff and --file cannot be used together"))
		}
	}

	db, err := database.Open(dbDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx := commandContext(cmd)
	out := cmd.OutOrStdout()

	switch {
	case listHosts:
		return listArchivedHosts(ctx, out, db)
	case file != "":
		return diffFile(ctx, out, db, host, file)
	case diff:
		return diffLatest(ctx, out, db, host)
	default:
		return listRuns(ctx, out, db, host)
	}
}

// archiveHost converts a host or URL argument into the scope host crawls
// are archived under.
func archiveHost(arg string) (string, error) {
	arg = strings.TrimSpace(arg)
	if !strings.Contains(arg, "://") {
		arg = "http://" + arg
	}
	filter, err := scope.New(arg)
	if err != nil {
		return "", err
	}
	return filter.ScopeHost(), nil
}

func listArchivedHosts(ctx context.Context, out io.Writer, db *database.CrawlDB) error {
	hosts, err := db.ListHosts(ctx)
	if err != nil {
		return err
	}
	if len(hosts) == 0 {
		fmt.Fprintln(out, "No crawls found in the archive.")
		fmt.Fprintln(out, "\nUse 'scopecrawl crawl <start_url>' to crawl a site.")
		return nil
	}

	fmt.Fprintf(out, "Archived hosts (%d):\n\n", len(hosts))
	for _, host := range hosts {
		fmt.Fprintf(out, "  • %s\n", host)
	}
	return nil
}

func listRuns(ctx context.Context, out io.Writer, db *database.CrawlDB, host string) error {
	runs, err := db.ListRuns(ctx, host)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintf(out, "No crawl history found for %s\n", host)
		return nil
	}

	fmt.Fprintf(out, "Crawl history for %s (%d crawls):\n\n", host, len(runs))
	fmt.Fprintf(out, "  %-6s  %-20s  %-10s  %-8s  %s\n", "ID", "Date", "Visited", "Failed", "Stopped")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 64))
	for _, run := range runs {
		fmt.Fprintf(out, "  %-6d  %-20s  %-10s  %-8d  %s\n",
			run.ID,
			run.StartedAt.Local().Format("2006-01-02 15:04:05"),
			fmt.Sprintf("%d/%d", run.Visited, run.MaxSeenURLs),
			run.Failures,
			run.Termination,
		)
	}
	fmt.Fprintln(out, "\nUse 'scopecrawl history --diff <host>' to compare the latest two crawls.")
	return nil
}

func diffLatest(ctx context.Context, out io.Writer, db *database.CrawlDB, host string) error {
	runs, err := db.LatestRuns(ctx, host, 2)
	if err != nil {
		return err
	}
	if len(runs) < 2 {
		return fmt.Errorf("at least 2 crawls of %s are required for a diff (found %d)", host, len(runs))
	}
	newer, older := runs[0], runs[1]

	newURLs, err := db.RunURLs(ctx, newer.ID)
	if err != nil {
		return err
	}
	oldURLs, err := db.RunURLs(ctx, older.ID)
	if err != nil {
		return err
	}

	writeDiff(out,
		fmt.Sprintf("crawl #%d", older.ID),
		fmt.Sprintf("crawl #%d", newer.ID),
		database.Diff(oldURLs, newURLs))
	return nil
}

func diffFile(ctx context.Context, out io.Writer, db *database.CrawlDB, host, path string) error {
	fileURLs, err := sink.Load(path)
	if err != nil {
		return err
	}

	runs, err := db.LatestRuns(ctx, host, 1)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		return fmt.Errorf("no archived crawl found for %s", host)
	}
	archived, err := db.RunURLs(ctx, runs[0].ID)
	if err != nil {
		return err
	}

	writeDiff(out, fmt.Sprintf("crawl #%d", runs[0].ID), path, database.Diff(archived, fileURLs))
	return nil
}

func writeDiff(out io.Writer, from, to string, d database.URLDiff) {
	fmt.Fprintf(out, "Comparing %s -> %s\n\n", from, to)
	if d.Empty() {
		fmt.Fprintln(out, "No changes.")
		return
	}
	for _, u := range d.Added {
		fmt.Fprintf(out, "  + %s\n", u)
	}
	for _, u := range d.Removed {
		fmt.Fprintf(out, "  - %s\n", u)
	}
	fmt.Fprintf(out, "\n%d added, %d removed\n", len(d.Added), len(d.Removed))
}
