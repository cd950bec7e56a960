package extract

import (
	"errors"
	"fmt"
	"io"
	"iter"
	"strings"

	"golang.org/x/net/html"
)

// ExtractionError reports that reading a document failed part way through.
// Links yielded before the error are still valid.
type ExtractionError struct {
	Err error
}

// Error implements the error interface.
func (e *ExtractionError) Error() string {
	return fmt.Sprintf("link extraction failed: %v", e.Err)
}

// Unwrap returns the underlying read error.
func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// Hrefs returns a single-pass sequence of the non-empty href attributes of
// all <a> elements in r, in document order.
//
// The sequence consumes r and cannot be restarted. If reading r fails with
// anything but io.EOF, the last pair yielded is ("", *ExtractionError).
func Hrefs(r io.Reader) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		z := html.NewTokenizer(r)
		for {
			switch z.Next() {
			case html.ErrorToken:
				if err := z.Err(); !errors.Is(err, io.EOF) {
					yield("", &ExtractionError{Err: err})
				}
				return

			case html.StartTagToken, html.SelfClosingTagToken:
				name, hasAttr := z.TagName()
				if !hasAttr || string(name) != "a" {
					continue
				}
				if href := getHref(z); href != "" {
					if !yield(href, nil) {
						return
					}
				}
			}
		}
	}
}

// Collect drains Hrefs into a slice. It returns the links read before the
// first error together with that error.
func Collect(r io.Reader) ([]string, error) {
	links := make([]string, 0)
	for href, err := range Hrefs(r) {
		if err != nil {
			return links, err
		}
		links = append(links, href)
	}
	return links, nil
}

// getHref returns the trimmed href attribute of the current tag.
func getHref(z *html.Tokenizer) string {
	for {
		key, val, more := z.TagAttr()
		if string(key) == "href" {
			return strings.TrimSpace(string(val))
		}
		if !more {
			return ""
		}
	}
}
