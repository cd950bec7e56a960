// Package proxy routes crawler connections through a SOCKS5 proxy.
//
// Dialer wraps golang.org/x/net/proxy and plugs into the HTTP fetcher via
// its DialContext method. Tor starts an embedded Tor daemon with
// github.com/nao1215/tornago and hands out a Dialer for its SOCKS port, so
// a crawl can run over Tor without an external daemon.
//
// Proxying only affects the HTTP fetcher. The headless renderer talks to
// the network through the browser.
package proxy
