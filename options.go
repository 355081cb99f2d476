package raxftp

import (
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/raxftp/raxftp/internal/ratelimit"
)

// Option is a functional option for configuring a Client.
type Option func(*Client) error

// WithTimeout bounds the dial and every subsequent blocking socket
// operation (control reads/writes, data accept/dial, chunk I/O).
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) error {
		if timeout < 0 {
			return fmt.Errorf("timeout must not be negative")
		}
		c.timeout = timeout
		return nil
	}
}

// WithRetryPolicy replaces the retry policy used for the control dial and
// passive data dials.
func WithRetryPolicy(policy RetryPolicy) Option {
	return func(c *Client) error {
		if policy.MaxAttempts < 1 {
			return fmt.Errorf("retry policy needs at least one attempt")
		}
		c.retry = policy
		return nil
	}
}

// WithDataPortRange sets the inclusive local port range active mode binds
// its listeners from.
func WithDataPortRange(start, end int) Option {
	return func(c *Client) error {
		if start < 1 || end > 65535 || start > end {
			return fmt.Errorf("invalid data port range %d-%d", start, end)
		}
		c.portRange = PortRange{Start: start, End: end}
		return nil
	}
}

// WithActiveMode starts the session in active (PORT) mode instead of the
// passive default. The mode stays in effect until SetDataMode changes it.
func WithActiveMode() Option {
	return func(c *Client) error {
		c.mode = ModeActive
		return nil
	}
}

// WithLogger enables debug logging of commands, replies, data-connection
// lifecycle and retries.
//
// Example:
//
//	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	}))
//	client, _ := raxftp.Dial("127.0.0.1:2121", raxftp.WithLogger(logger))
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) error {
		if logger == nil {
			return fmt.Errorf("logger must not be nil")
		}
		c.logger = logger
		return nil
	}
}

// WithDialer sets a custom net.Dialer for outbound connections.
func WithDialer(dialer *net.Dialer) Option {
	return func(c *Client) error {
		if dialer == nil {
			return fmt.Errorf("dialer must not be nil")
		}
		c.dialer = dialer
		return nil
	}
}

// WithProgress registers an observer called after every transferred chunk
// and once at completion. The presentation (terminal bar, log line) is
// entirely the observer's concern.
func WithProgress(fn ProgressFunc) Option {
	return func(c *Client) error {
		c.progressFn = fn
		return nil
	}
}

// WithBandwidthLimit throttles transfer throughput to the given bytes per
// second. Zero or negative disables throttling.
func WithBandwidthLimit(bytesPerSecond int64) Option {
	return func(c *Client) error {
		c.limiter = ratelimit.New(bytesPerSecond)
		return nil
	}
}
