package report

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nao1215/scopecrawl/internal/model"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Supported report formats.
const (
	FormatText     = "text"
	FormatJSON     = "json"
	FormatMarkdown = "markdown"
)

// ErrUnknownFormat is returned by NewWriter for unsupported formats.
var ErrUnknownFormat = errors.New("unknown report format")

// Writer renders a crawl result.
type Writer interface {
	// Write outputs the result and returns the number of bytes written.
	Write(result *model.CrawlResult) (int, error)
}

// NewWriter returns the Writer for format ("text", "json" or "markdown").
// version is embedded in JSON output.
func NewWriter(format string, output io.Writer, version string) (Writer, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case FormatText, "":
		return NewSimpleWriter(output), nil
	case FormatJSON:
		return NewFullJSONWriter(output, version, WithPrettyPrint()), nil
	case FormatMarkdown, "md":
		return NewMarkdownWriter(output), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// MultiWriter writes to several Writers in turn and stops at the first error.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write implements Writer. It returns the total bytes written.
func (m *MultiWriter) Write(result *model.CrawlResult) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(result)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter holds the output shared by all writers.
type baseWriter struct {
	output io.Writer
}

func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

var titleCaser = cases.Title(language.English)

// terminationText describes why the crawl stopped, e.g. "Budget reached".
func terminationText(t model.Termination) string {
	switch t {
	case model.TerminationBudget:
		return titleCaser.String(t.String()) + " reached"
	case model.TerminationDeadline:
		return titleCaser.String(t.String()) + " exceeded (partial results)"
	case model.TerminationExhausted:
		return "Frontier " + t.String()
	default:
		return titleCaser.String(t.String())
	}
}

func formatDuration(d time.Duration) string {
	return d.Round(time.Millisecond).String()
}
