// Package extract pulls candidate links and metadata out of HTML documents.
//
// Hrefs streams the raw href value of every anchor element in document
// order. It does not resolve, filter or deduplicate anything; that is the
// job of the scope filter and the crawl engine.
//
// The tokenizer from golang.org/x/net/html tolerates malformed markup, so
// broken tags never end extraction early. Only a failing reader does, and
// that failure is yielded once as an *ExtractionError.
package extract
