package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/scopecrawl/internal/model"
)

// SimpleWriter outputs a plain text summary for terminal display.
type SimpleWriter struct {
	baseWriter

	// verbose adds hashes and latencies to the visit list.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose enables per-visit details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write implements Writer.
func (w *SimpleWriter) Write(result *model.CrawlResult) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, result)
	w.writeVisits(&sb, result)
	w.writeFailures(&sb, result)
	writeRule(&sb, "=")

	return w.output.Write([]byte(sb.String()))
}

func writeRule(sb *strings.Builder, char string) {
	sb.WriteString(strings.Repeat(char, 70))
	sb.WriteString("\n")
}

func writeSection(sb *strings.Builder, title string) {
	writeRule(sb, "-")
	sb.WriteString(title)
	sb.WriteString("\n")
	writeRule(sb, "-")
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeHeader(sb *strings.Builder, result *model.CrawlResult) {
	sb.WriteString("\n")
	writeRule(sb, "=")
	sb.WriteString("                         SCOPECRAWL REPORT\n")
	writeRule(sb, "=")
	sb.WriteString("\n")

	fmt.Fprintf(sb, "Start URL:    %s\n", result.StartURL)
	fmt.Fprintf(sb, "Scope Host:   %s\n", result.ScopeHost)
	fmt.Fprintf(sb, "Visited:      %d / %d\n", len(result.URLs), result.MaxSeenURLs)
	fmt.Fprintf(sb, "Failures:     %d\n", len(result.Failures))
	fmt.Fprintf(sb, "Rejected:     %d links\n", result.Rejected)
	fmt.Fprintf(sb, "Stopped:      %s\n", terminationText(result.Termination))
	fmt.Fprintf(sb, "Duration:     %s\n", formatDuration(result.Duration()))
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeVisits(sb *strings.Builder, result *model.CrawlResult) {
	writeSection(sb, "VISITED URLS")

	if len(result.Visits) == 0 {
		sb.WriteString("  No pages visited\n\n")
		return
	}

	for i, v := range result.Visits {
		fmt.Fprintf(sb, "  %3d. [%d] %s\n", i+1, v.StatusCode, v.URL)
		if v.Title != "" {
			fmt.Fprintf(sb, "       Title: %s\n", v.Title)
		}
		if w.verbose {
			fmt.Fprintf(sb, "       Links: %d  Latency: %s  Rendered: %t\n", v.Links, formatDuration(v.Latency), v.Rendered)
			if v.Hash != "" {
				fmt.Fprintf(sb, "       SHA3:  %s\n", v.Hash)
			}
		}
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeFailures(sb *strings.Builder, result *model.CrawlResult) {
	if len(result.Failures) == 0 {
		return
	}

	writeSection(sb, "FAILURES")
	for _, f := range result.Failures {
		fmt.Fprintf(sb, "  [%s] %s\n", f.Kind, f.URL)
		fmt.Fprintf(sb, "       %s\n", f.Message)
	}
	sb.WriteString("\n")
}
