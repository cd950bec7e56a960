package extract

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Title returns the whitespace-collapsed text of the document's first
// <title> element, falling back to the og:title meta tag.
// It returns "" when neither is present or the document cannot be parsed.
func Title(body []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return ""
	}

	if title := collapse(doc.Find("title").First().Text()); title != "" {
		return title
	}

	if og, ok := doc.Find(`meta[property="og:title"]`).First().Attr("content"); ok {
		return collapse(og)
	}
	return ""
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
