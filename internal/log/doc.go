// Package log provides slog loggers that sanitize sensitive information.
//
// SecureHandler wraps any slog.Handler and masks:
//   - values of sensitive keys (cookie, authorization, token, password...)
//   - values that look like secrets (JWTs, bearer tokens, private keys)
//   - passwords in URL user info and secret query parameters of crawled URLs
//
// Crawls are configured with cookies and custom headers, and crawled URLs
// may carry credentials, so masking applies in verbose mode too.
//
//	logger := log.NewSecureLogger(os.Stderr, verbose)
//	slog.SetDefault(logger)
package log
