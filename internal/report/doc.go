// Package report renders a crawl result for people and tools.
//
// Writers for three formats are provided:
//   - SimpleWriter: plain text for the terminal
//   - JSONWriter: the result as JSON, optionally wrapped with the tool version
//   - MarkdownWriter: a Markdown document with tables and a Mermaid chart
//
// The visited URL file itself is written by the sink package; reports are
// an optional summary next to it.
package report
