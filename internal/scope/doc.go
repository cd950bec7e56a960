// Package scope normalizes candidate links and decides whether they belong
// to the crawl.
//
// A Filter is built once from the crawl's start URL. It derives the scope
// host (the start host with a leading "www." removed) and then answers, for
// every raw href the extractor produces, either an accepted absolute URL or
// a rejection reason. Rejections are values, never panics or errors that
// unwind the caller.
//
// Rules, in order:
//  1. Strings that do not parse as URLs are rejected with ReasonParse.
//  2. Links without scheme and host are path-relative. A path longer than
//     one character replaces the start URL's path; a shorter path resolves
//     to the start URL itself.
//  3. Links whose scheme is not http or https are rejected with ReasonScheme.
//  4. Links whose host does not end with the scope host are rejected with
//     ReasonScope.
//
// The host test is a plain suffix match, so "evilexample.com" is in scope
// for "example.com". WithStrictSubdomain switches to a label boundary check.
//
// # Usage
//
//	f, err := scope.New("https://www.example.com/docs")
//	d := f.Accept("/guide/intro")
//	if d.Accepted() {
//	    fmt.Println(d.URL) // https://www.example.com/guide/intro
//	}
package scope
