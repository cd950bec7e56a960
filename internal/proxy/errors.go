package proxy

import "errors"

// Proxy errors.
var (
	// ErrInvalidAddress is returned when the proxy address is not host:port.
	ErrInvalidAddress = errors.New("invalid proxy address format: expected host:port")

	// ErrNotSOCKS5 is returned when the proxy answers but does not speak
	// SOCKS5 without authentication.
	ErrNotSOCKS5 = errors.New("proxy is not a SOCKS5 proxy")

	// ErrCannotConnect is returned when no TCP connection to the proxy
	// could be established.
	ErrCannotConnect = errors.New("cannot connect to proxy")

	// ErrTimeout is returned when the proxy check timed out.
	ErrTimeout = errors.New("timeout connecting to proxy")

	// ErrTorNotRunning is returned when a dialer is requested from an
	// embedded Tor daemon that has not been started.
	ErrTorNotRunning = errors.New("embedded Tor daemon is not running")
)

// Status is the result of checking a proxy.
type Status int

const (
	// StatusOK means the proxy completed a SOCKS5 greeting.
	StatusOK Status = iota

	// StatusWrongType means the proxy answered with something other than SOCKS5.
	StatusWrongType

	// StatusCannotConnect means the proxy refused the TCP connection.
	StatusCannotConnect

	// StatusTimeout means the check timed out.
	StatusTimeout
)

// String returns a human-readable description of the status.
func (s Status) String() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusWrongType:
		return "wrong type (not SOCKS5)"
	case StatusCannotConnect:
		return "cannot connect"
	case StatusTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Err returns the error for this status, or nil if OK.
func (s Status) Err() error {
	switch s {
	case StatusOK:
		return nil
	case StatusWrongType:
		return ErrNotSOCKS5
	case StatusCannotConnect:
		return ErrCannotConnect
	case StatusTimeout:
		return ErrTimeout
	default:
		return errors.New("unknown proxy status")
	}
}
