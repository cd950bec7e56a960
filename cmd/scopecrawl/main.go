// Package main provides the entry point for the scopecrawl CLI.
//
// scopecrawl crawls a website breadth-first, staying on the start URL's host
// and its subdomains, and stops after a fixed number of visited pages. The
// visited URLs are written to <host>-urls.txt.
//
// Usage:
//
//	scopecrawl crawl <start_url> [max_seen_urls]
//	scopecrawl history <host>
//
// See --help for all available options.
package main

func main() {
	Execute()
}
