package raxftp

import (
	"errors"
	"fmt"
	"net"
	"syscall"
)

// Sentinel errors for connection-level failures. Callers can test for them
// with errors.Is even when they arrive wrapped in a TransportError or
// TransferError.
var (
	// ErrConnectionLost indicates the control socket was closed by the peer
	// (a write failed or a read returned zero bytes). The session is forced
	// back to Disconnected when this surfaces.
	ErrConnectionLost = errors.New("connection lost")

	// ErrNoPortAvailable indicates every port in the configured active-mode
	// data port range was already bound.
	ErrNoPortAvailable = errors.New("no data port available in configured range")

	// ErrDataConnectTimeout indicates the server never connected back to the
	// active-mode listener within the accept timeout.
	ErrDataConnectTimeout = errors.New("timed out waiting for data connection")
)

// ProtocolError represents an FTP protocol failure with full context of the
// command/response conversation: the command that was sent, the raw reply
// text, and the numeric reply code.
type ProtocolError struct {
	// Command is the FTP command that was sent (e.g., "STOR file.txt")
	Command string

	// Response is the reply text received from the server
	Response string

	// Code is the numeric FTP reply code (e.g., 550)
	Code int
}

// Error implements the error interface.
func (e *ProtocolError) Error() string {
	return fmt.Sprintf("ftp: %s failed: %s (code %d)", e.Command, e.Response, e.Code)
}

// IsTemporary returns true if the failure is in the 4xx class.
func (e *ProtocolError) IsTemporary() bool {
	return e.Code >= 400 && e.Code < 500
}

// IsPermanent returns true if the failure is in the 5xx class.
func (e *ProtocolError) IsPermanent() bool {
	return e.Code >= 500 && e.Code < 600
}

// TransportError represents a socket-level failure: a refused or timed-out
// dial, a dropped control connection, or an I/O fault on the data socket.
// Transport faults are the only errors the retry controller will retry.
type TransportError struct {
	// Op is the operation that failed: "dial", "read", "write" or "accept".
	Op string

	// Addr is the remote (or listening) address involved, when known.
	Addr string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	if e.Addr != "" {
		return fmt.Sprintf("ftp: %s %s: %v", e.Op, e.Addr, e.Err)
	}
	return fmt.Sprintf("ftp: %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *TransportError) Unwrap() error { return e.Err }

// Timeout reports whether the underlying failure was a timeout.
func (e *TransportError) Timeout() bool {
	var nerr net.Error
	return errors.As(e.Err, &nerr) && nerr.Timeout()
}

// InvalidStateError is returned when a command is issued in a session state
// that does not permit it. No bytes are written to the socket.
type InvalidStateError struct {
	// Op is the rejected operation (e.g., "STOR").
	Op string

	// State is the session state at the time of the call.
	State State
}

// Error implements the error interface.
func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("ftp: %s not allowed while %s", e.Op, e.State)
}

// AuthError is returned when the server rejects the USER/PASS exchange.
// The session remains Connected and login may be retried.
type AuthError struct {
	// Code is the rejecting reply code (typically 530).
	Code int

	// Message is the server's reply text.
	Message string
}

// Error implements the error interface.
func (e *AuthError) Error() string {
	return fmt.Sprintf("ftp: authentication failed: %s (code %d)", e.Message, e.Code)
}

// TransferError wraps a failure during the streaming phase of a transfer.
// Bytes reports how much data moved before the fault.
type TransferError struct {
	// Bytes is the number of payload bytes successfully transferred.
	Bytes int64

	// Err is the underlying failure (local I/O, data socket, or the final
	// control reply).
	Err error
}

// Error implements the error interface.
func (e *TransferError) Error() string {
	return fmt.Sprintf("ftp: transfer failed after %d bytes: %v", e.Bytes, e.Err)
}

// Unwrap returns the underlying error.
func (e *TransferError) Unwrap() error { return e.Err }

// isTransient reports whether err is a transport fault worth retrying:
// a refused connection or a timeout. Protocol failures never qualify.
func isTransient(err error) bool {
	if err == nil {
		return false
	}
	var perr *ProtocolError
	if errors.As(err, &perr) {
		return false
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}
	var nerr net.Error
	return errors.As(err, &nerr) && nerr.Timeout()
}
