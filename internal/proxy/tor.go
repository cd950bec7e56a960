package proxy

import (
	"context"
	"fmt"
	"time"

	"github.com/nao1215/tornago"
)

// defaultTorStartupTimeout is how long Start waits for Tor to bootstrap.
const defaultTorStartupTimeout = 3 * time.Minute

// Tor manages an embedded Tor daemon.
// Bootstrapping takes one to three minutes on a cold start.
type Tor struct {
	process        *tornago.TorProcess
	socksAddr      string
	startupTimeout time.Duration
}

// TorOption configures a Tor instance.
type TorOption func(*Tor)

// WithStartupTimeout sets the maximum time to wait for Tor to bootstrap.
func WithStartupTimeout(timeout time.Duration) TorOption {
	return func(t *Tor) {
		if timeout > 0 {
			t.startupTimeout = timeout
		}
	}
}

// NewTor creates an embedded Tor manager. Call Start to launch the daemon.
func NewTor(opts ...TorOption) *Tor {
	t := &Tor{startupTimeout: defaultTorStartupTimeout}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Start launches the daemon on OS-assigned ports and blocks until it has
// bootstrapped or the startup timeout expires.
func (t *Tor) Start(ctx context.Context) error {
	launchCfg, err := tornago.NewTorLaunchConfig(
		tornago.WithTorSocksAddr(":0"),
		tornago.WithTorControlAddr(":0"),
		tornago.WithTorStartupTimeout(t.startupTimeout),
	)
	if err != nil {
		return fmt.Errorf("failed to create Tor launch config: %w", err)
	}

	process, err := tornago.StartTorDaemon(launchCfg)
	if err != nil {
		return fmt.Errorf("failed to start embedded Tor daemon: %w", err)
	}

	if err := ctx.Err(); err != nil {
		_ = process.Stop() //nolint:errcheck // best effort cleanup
		return err
	}

	t.process = process
	t.socksAddr = process.SocksAddr()
	return nil
}

// Stop shuts the daemon down. It is safe to call on a stopped instance.
func (t *Tor) Stop() error {
	if t.process == nil {
		return nil
	}
	err := t.process.Stop()
	t.process = nil
	t.socksAddr = ""
	return err
}

// IsRunning reports whether the daemon has been started and not stopped.
func (t *Tor) IsRunning() bool {
	return t.process != nil
}

// SocksAddr returns the daemon's SOCKS5 address, or "" when not running.
func (t *Tor) SocksAddr() string {
	return t.socksAddr
}

// Dialer returns a SOCKS5 dialer for the running daemon.
func (t *Tor) Dialer() (*Dialer, error) {
	if !t.IsRunning() {
		return nil, ErrTorNotRunning
	}
	return NewDialer(t.socksAddr)
}
