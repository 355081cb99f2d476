package raxftp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/hashicorp/go-multierror"
)

// DataMode selects how the per-transfer data connection is established.
// The mode is sticky: once set it applies to every subsequent transfer
// until changed.
type DataMode int

const (
	// ModePassive asks the server to listen (PASV) and dials out to the
	// advertised address. This is the default and works behind NAT.
	ModePassive DataMode = iota

	// ModeActive listens on a local port from the configured range and asks
	// the server to connect in (PORT).
	ModeActive
)

// String implements fmt.Stringer.
func (m DataMode) String() string {
	if m == ModeActive {
		return "active"
	}
	return "passive"
}

// PortRange is the inclusive range of local ports active mode may bind.
type PortRange struct {
	Start int
	End   int
}

// dataEndpoint is the per-transfer outcome of negotiation: either a local
// listener awaiting the server (active) or a resolved server address to dial
// (passive). It never outlives the transfer that created it.
type dataEndpoint struct {
	mode    DataMode
	timeout time.Duration

	// active
	listener net.Listener

	// passive
	addr   string
	dialer *net.Dialer
	retry  RetryPolicy

	logger *slog.Logger
	conn   net.Conn
}

// negotiateData prepares the data-connection endpoint for one transfer using
// the session's current mode. The connect/accept step is deferred to
// establish, which runs after the transfer verb is acknowledged.
func (c *Client) negotiateData() (*dataEndpoint, error) {
	if c.mode == ModeActive {
		return c.negotiateActive()
	}
	return c.negotiatePassive()
}

// negotiateActive binds the first free port in the configured range on the
// control connection's local interface and announces it with PORT.
func (c *Client) negotiateActive() (*dataEndpoint, error) {
	host := "127.0.0.1"
	c.mu.Lock()
	if c.conn != nil {
		if h, _, err := net.SplitHostPort(c.conn.LocalAddr().String()); err == nil {
			host = h
		}
	}
	c.mu.Unlock()

	listener, err := bindDataPort(host, c.portRange)
	if err != nil {
		return nil, err
	}

	portArg, err := formatHostPort(listener.Addr().String())
	if err != nil {
		listener.Close()
		return nil, err
	}

	if _, err := c.expectClass(2, verbPort, portArg); err != nil {
		listener.Close()
		return nil, err
	}

	c.logger.Debug("data listener ready", "addr", listener.Addr().String())
	return &dataEndpoint{
		mode:     ModeActive,
		listener: listener,
		timeout:  c.timeout,
		logger:   c.logger,
	}, nil
}

// bindDataPort binds a listener on the first free port in the range.
func bindDataPort(host string, r PortRange) (net.Listener, error) {
	for port := r.Start; port <= r.End; port++ {
		listener, err := net.Listen("tcp4", net.JoinHostPort(host, strconv.Itoa(port)))
		if err == nil {
			return listener, nil
		}
	}
	return nil, fmt.Errorf("%w (%d-%d)", ErrNoPortAvailable, r.Start, r.End)
}

// negotiatePassive asks the server to listen with PASV and decodes the
// advertised address from the reply.
func (c *Client) negotiatePassive() (*dataEndpoint, error) {
	reply, err := c.expectClass(2, verbPasv)
	if err != nil {
		return nil, err
	}

	addr, err := parseHostPort(reply.String())
	if err != nil {
		return nil, &ProtocolError{Command: verbPasv, Response: reply.Message, Code: reply.Code}
	}

	// Servers behind NAT advertise 0.0.0.0; substitute the control host.
	if host, port, splitErr := net.SplitHostPort(addr); splitErr == nil && host == "0.0.0.0" {
		addr = net.JoinHostPort(c.host, port)
	}

	c.logger.Debug("passive target resolved", "addr", addr)
	return &dataEndpoint{
		mode:    ModePassive,
		addr:    addr,
		timeout: c.timeout,
		dialer:  c.dialer,
		retry:   c.retry,
		logger:  c.logger,
	}, nil
}

// establish performs the connect/accept step and returns the ready data
// socket. On any failure the listening or half-open socket is closed before
// the error propagates.
func (d *dataEndpoint) establish(ctx context.Context) (net.Conn, error) {
	if d.mode == ModeActive {
		return d.acceptInbound()
	}
	return d.dialOutbound(ctx)
}

// acceptInbound waits for the server to connect to the active-mode listener,
// bounded by the accept timeout.
func (d *dataEndpoint) acceptInbound() (net.Conn, error) {
	if d.timeout > 0 {
		if tl, ok := d.listener.(*net.TCPListener); ok {
			_ = tl.SetDeadline(time.Now().Add(d.timeout))
		}
	}

	conn, err := d.listener.Accept()
	// The listener served its single accept; release the port either way.
	addr := d.listener.Addr().String()
	d.listener.Close()
	d.listener = nil

	if err != nil {
		if errors.Is(err, os.ErrDeadlineExceeded) {
			return nil, fmt.Errorf("%w on %s", ErrDataConnectTimeout, addr)
		}
		return nil, &TransportError{Op: "accept", Addr: addr, Err: err}
	}

	d.logger.Debug("data connection accepted", "peer", conn.RemoteAddr().String())
	d.conn = &deadlineConn{Conn: conn, timeout: d.timeout}
	return d.conn, nil
}

// dialOutbound connects to the server's advertised passive address, retrying
// transient faults under the shared retry policy.
func (d *dataEndpoint) dialOutbound(ctx context.Context) (net.Conn, error) {
	conn, err := retry(ctx, d.logger, d.retry, func() (net.Conn, error) {
		return d.dialer.DialContext(ctx, "tcp", d.addr)
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &TransportError{Op: "dial", Addr: d.addr, Err: err}
	}

	d.logger.Debug("data connection dialed", "addr", d.addr)
	d.conn = &deadlineConn{Conn: conn, timeout: d.timeout}
	return d.conn, nil
}

// close releases whatever the endpoint still holds. Safe to call on every
// exit path, including before establish ran.
func (d *dataEndpoint) close() error {
	var result *multierror.Error
	if d.conn != nil {
		result = multierror.Append(result, d.conn.Close())
		d.conn = nil
	}
	if d.listener != nil {
		result = multierror.Append(result, d.listener.Close())
		d.listener = nil
	}
	return result.ErrorOrNil()
}
