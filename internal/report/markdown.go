package report

import (
	"io"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
	"github.com/nao1215/scopecrawl/internal/model"
)

// MarkdownWriter outputs the crawl result as a Markdown document.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{baseWriter: newBaseWriter(output)}
}

// Write implements Writer.
func (w *MarkdownWriter) Write(result *model.CrawlResult) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, result)
	w.writeChart(md, result)
	w.writeVisits(md, result)
	w.writeFailures(md, result)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, result *model.CrawlResult) {
	md.H1("Crawl Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Start URL", "`" + result.StartURL + "`"},
			{"Scope Host", "`" + result.ScopeHost + "`"},
			{"Visited", strconv.Itoa(len(result.URLs)) + " / " + strconv.Itoa(result.MaxSeenURLs)},
			{"Failures", strconv.Itoa(len(result.Failures))},
			{"Rejected Links", strconv.Itoa(result.Rejected)},
			{"Stopped", terminationText(result.Termination)},
			{"Started", result.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"Duration", formatDuration(result.Duration())},
		},
	})
	md.PlainText("")

	switch {
	case result.Termination == model.TerminationDeadline:
		md.Warningf("The crawl hit its deadline after %d page(s). Results are partial.", len(result.URLs))
	case len(result.Failures) > 0:
		md.Importantf("%d URL(s) could not be crawled. See the failures section.", len(result.Failures))
	case result.Termination == model.TerminationBudget:
		md.Note("The visit budget was reached. Raise max_seen_urls to crawl further.")
	default:
		md.Tip("Every reachable in-scope page was visited.")
	}
	md.PlainText("")
}

// writeChart writes a Mermaid pie chart of link and page outcomes.
func (w *MarkdownWriter) writeChart(md *markdown.Markdown, result *model.CrawlResult) {
	if len(result.URLs)+len(result.Failures)+result.Rejected == 0 {
		return
	}

	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Crawl Outcomes"),
		piechart.WithShowData(true),
	)
	if n := len(result.URLs); n > 0 {
		chart.LabelAndIntValue("Visited", uint64(n))
	}
	if n := result.FailureCount(model.FailureFetch); n > 0 {
		chart.LabelAndIntValue("Fetch failed", uint64(n))
	}
	if n := result.FailureCount(model.FailureExtraction); n > 0 {
		chart.LabelAndIntValue("Extraction failed", uint64(n))
	}
	if result.Rejected > 0 {
		chart.LabelAndIntValue("Rejected links", uint64(result.Rejected))
	}

	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

func (w *MarkdownWriter) writeVisits(md *markdown.Markdown, result *model.CrawlResult) {
	md.H2("Visited URLs")
	md.PlainText("")

	if len(result.Visits) == 0 {
		md.PlainText("No pages were visited.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(result.Visits))
	for i, v := range result.Visits {
		title := v.Title
		if title == "" {
			title = "-"
		}
		rows[i] = []string{
			strconv.Itoa(i + 1),
			v.URL,
			strconv.Itoa(v.StatusCode),
			truncateString(title, 60),
			strconv.Itoa(v.Links),
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"#", "URL", "Status", "Title", "New Links"},
		Rows:   rows,
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeFailures(md *markdown.Markdown, result *model.CrawlResult) {
	if len(result.Failures) == 0 {
		return
	}

	md.H2("Failures")
	md.PlainText("")

	rows := make([][]string, len(result.Failures))
	for i, f := range result.Failures {
		rows[i] = []string{f.URL, string(f.Kind), truncateString(f.Message, 80)}
	}
	md.Table(markdown.TableSet{
		Header: []string{"URL", "Kind", "Error"},
		Rows:   rows,
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [scopecrawl](https://github.com/nao1215/scopecrawl)*")
}

// truncateString truncates a string to maxLen bytes with an ellipsis.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
