package raxftp

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net"
	"sync"
	"time"

	"github.com/raxftp/raxftp/internal/ratelimit"
)

// State is the session lifecycle position. Commands are gated on it before
// any byte is written to the socket.
type State int

const (
	// StateDisconnected means no control socket exists.
	StateDisconnected State = iota

	// StateConnected means the control socket is up and the greeting was
	// accepted, but no user is logged in.
	StateConnected

	// StateAuthenticated means a USER/PASS exchange completed.
	StateAuthenticated
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateConnected:
		return "connected"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "disconnected"
	}
}

// Client is an FTP session over one exclusively-owned control connection.
// It is a single-session client: the control connection and the at-most-one
// in-flight data connection are used sequentially, never concurrently.
type Client struct {
	// host and port of the server
	host string
	port string

	// timeout bounds every blocking socket operation
	timeout time.Duration

	// retry policy shared by the control dial and passive data dials
	retry RetryPolicy

	// portRange holds the local ports active mode may bind
	portRange PortRange

	// logger receives structured protocol events
	logger *slog.Logger

	// dialer establishes outbound connections
	dialer *net.Dialer

	// progressFn, when set, observes transfer progress per chunk
	progressFn ProgressFunc

	// limiter throttles transfer bandwidth when set
	limiter *ratelimit.Limiter

	// chunkSize is the transfer streaming unit
	chunkSize int

	// mu serializes the command/reply exchange and guards the fields below
	mu     sync.Mutex
	conn   net.Conn
	reader *bufio.Reader
	state  State
	mode   DataMode

	// user is the staged username between USER acceptance and PASS; cleared
	// once authentication completes or fails
	user string
}

// Dial connects to an FTP server at "host:port", retrying transient dial
// failures under the configured retry policy, and reads the greeting.
//
// Example:
//
//	client, err := raxftp.Dial("127.0.0.1:2121")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Quit()
func Dial(addr string, options ...Option) (*Client, error) {
	return DialContext(context.Background(), addr, options...)
}

// DialContext is Dial with a context that can cancel the dial attempts and
// the backoff sleeps between them.
func DialContext(ctx context.Context, addr string, options ...Option) (*Client, error) {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, fmt.Errorf("invalid address: %w", err)
	}

	c := &Client{
		host:      host,
		port:      port,
		timeout:   30 * time.Second,
		retry:     defaultRetryPolicy,
		portRange: PortRange{Start: 2122, End: 2130},
		dialer:    &net.Dialer{},
		logger:    slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.Level(math.MaxInt)})),
		chunkSize: defaultChunkSize,
		state:     StateDisconnected,
		mode:      ModePassive,
	}

	for _, opt := range options {
		if err := opt(c); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}
	c.dialer.Timeout = c.timeout

	if err := c.connect(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// connect establishes the control connection and consumes the greeting.
// A greeting outside the 2xx class is a rejected connection: the socket is
// closed and the session stays Disconnected.
func (c *Client) connect(ctx context.Context) error {
	addr := c.addr()
	c.logger.Debug("connecting to ftp server", "addr", addr)

	conn, err := retry(ctx, c.logger, c.retry, func() (net.Conn, error) {
		return c.dialer.DialContext(ctx, "tcp", addr)
	})
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &TransportError{Op: "dial", Addr: addr, Err: err}
	}

	c.mu.Lock()
	c.conn = conn
	c.reader = bufio.NewReader(conn)
	c.mu.Unlock()

	greeting, err := c.readGreeting()
	if err != nil {
		return fmt.Errorf("failed to read greeting: %w", err)
	}

	c.logger.Debug("ftp greeting", "code", greeting.Code, "message", greeting.Message)

	if !greeting.Is2xx() {
		c.mu.Lock()
		_ = c.conn.Close()
		c.conn = nil
		c.reader = nil
		c.mu.Unlock()
		return &ProtocolError{Command: "CONNECT", Response: greeting.Message, Code: greeting.Code}
	}

	c.mu.Lock()
	c.state = StateConnected
	c.mu.Unlock()
	return nil
}

// addr returns the control connection address.
func (c *Client) addr() string {
	return net.JoinHostPort(c.host, c.port)
}

// State returns the current session state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// DataMode returns the sticky data-connection mode.
func (c *Client) DataMode() DataMode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// SetDataMode switches between active (PORT) and passive (PASV) data
// connections for all subsequent transfers. Like every transfer-related
// command it requires an authenticated session.
func (c *Client) SetDataMode(mode DataMode) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateAuthenticated {
		return &InvalidStateError{Op: mode.verb(), State: c.state}
	}
	c.mode = mode
	c.logger.Debug("data mode set", "mode", mode.String())
	return nil
}

func (m DataMode) verb() string {
	if m == ModeActive {
		return verbPort
	}
	return verbPasv
}

// require rejects the operation unless the session is in the wanted state.
func (c *Client) require(want State, op string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != want {
		return &InvalidStateError{Op: op, State: c.state}
	}
	return nil
}

// Login authenticates with the server. A 3xx reply to USER means a password
// is required; a 2xx reply to USER alone completes authentication without
// one. Rejection leaves the session Connected with credentials cleared, and
// login may be retried.
func (c *Client) Login(username, password string) error {
	if err := c.require(StateConnected, verbUser); err != nil {
		return err
	}

	c.mu.Lock()
	c.user = username
	c.mu.Unlock()

	reply, err := c.cmd(verbUser, username)
	if err != nil {
		return err
	}

	switch {
	case reply.Is2xx():
		// No password needed.
		return c.finishLogin(true, 0, "")
	case reply.Is3xx():
		// Password required; proceed to PASS.
	default:
		return c.finishLogin(false, reply.Code, reply.Message)
	}

	reply, err = c.cmd(verbPass, password)
	if err != nil {
		return err
	}
	if !reply.Is2xx() {
		return c.finishLogin(false, reply.Code, reply.Message)
	}
	return c.finishLogin(true, 0, "")
}

// finishLogin clears the staged credential and records the outcome.
func (c *Client) finishLogin(ok bool, code int, message string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.user = ""
	if !ok {
		// Session stays Connected; the caller may retry.
		return &AuthError{Code: code, Message: message}
	}
	if c.state == StateConnected {
		c.state = StateAuthenticated
	}
	c.logger.Debug("login complete")
	return nil
}

// Logout ends the authenticated session but keeps the control connection,
// returning the session to Connected.
func (c *Client) Logout() error {
	if err := c.require(StateAuthenticated, verbLogout); err != nil {
		return err
	}
	if _, err := c.expectClass(2, verbLogout); err != nil {
		return err
	}
	c.mu.Lock()
	if c.state == StateAuthenticated {
		c.state = StateConnected
	}
	c.mu.Unlock()
	return nil
}

// Quit sends QUIT best-effort, closes the control socket unconditionally and
// leaves the session Disconnected. Calling it again is a no-op.
func (c *Client) Quit() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		c.state = StateDisconnected
		return nil
	}

	// The socket must close even if QUIT itself fails.
	_, _ = c.cmdLocked(verbQuit)

	var err error
	if c.conn != nil {
		err = c.conn.Close()
		c.conn = nil
		c.reader = nil
	}
	c.state = StateDisconnected
	c.user = ""
	c.logger.Debug("session closed")
	return err
}

// CurrentDir returns the server's working directory via PWD.
func (c *Client) CurrentDir() (string, error) {
	if err := c.require(StateAuthenticated, verbPwd); err != nil {
		return "", err
	}
	reply, err := c.expectClass(2, verbPwd)
	if err != nil {
		return "", err
	}
	return parsePwdReply(reply.Message), nil
}

// ChangeDir changes the server's working directory via CWD.
func (c *Client) ChangeDir(path string) error {
	if err := c.require(StateAuthenticated, verbCwd); err != nil {
		return err
	}
	_, err := c.expectClass(2, verbCwd, path)
	return err
}

// Delete removes a remote file via DEL.
func (c *Client) Delete(path string) error {
	if err := c.require(StateAuthenticated, verbDel); err != nil {
		return err
	}
	_, err := c.expectClass(2, verbDel, path)
	return err
}

// Rax sends the server's custom RAX command and returns its reply text.
func (c *Client) Rax() (string, error) {
	if err := c.require(StateAuthenticated, verbRax); err != nil {
		return "", err
	}
	reply, err := c.expectClass(2, verbRax)
	if err != nil {
		return "", err
	}
	return reply.Message, nil
}
