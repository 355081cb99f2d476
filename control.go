package raxftp

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// Reply represents one complete FTP server reply.
type Reply struct {
	// Code is the three-digit reply code (e.g., 220, 550)
	Code int

	// Message is the human-readable text, concatenated across lines for
	// multi-line replies
	Message string

	// Lines contains every raw line of the reply
	Lines []string
}

// Is1xx returns true if the reply is preliminary (transfer about to start).
func (r *Reply) Is1xx() bool { return r.Code >= 100 && r.Code < 200 }

// Is2xx returns true if the reply indicates success.
func (r *Reply) Is2xx() bool { return r.Code >= 200 && r.Code < 300 }

// Is3xx returns true if the reply is intermediate (more input needed).
func (r *Reply) Is3xx() bool { return r.Code >= 300 && r.Code < 400 }

// Is4xx returns true if the reply is a temporary failure.
func (r *Reply) Is4xx() bool { return r.Code >= 400 && r.Code < 500 }

// Is5xx returns true if the reply is a permanent failure.
func (r *Reply) Is5xx() bool { return r.Code >= 500 && r.Code < 600 }

// String returns the full reply as a string.
func (r *Reply) String() string {
	return strings.Join(r.Lines, "\n")
}

// readReply reads one complete reply from the control stream.
//
// Single-line format: "220 Welcome\r\n"
// Multi-line format:
//
//	"220-Welcome to FTP\r\n"
//	"...anything at all...\r\n"
//	"220 Ready\r\n"
//
// A multi-line reply ends only at a line whose first four characters are the
// opening code followed by a space. Every other line is a continuation,
// including lines that happen to start with a different three-digit code:
// servers embed directory listings and banners in continuations, so their
// shape cannot be trusted.
//
// A malformed opening line (no three-digit code) is a protocol fault. A
// stream that ends mid-reply is a connection-closed condition and is
// reported as the read error, not as a parse failure.
func readReply(r *bufio.Reader) (*Reply, error) {
	line, err := r.ReadString('\n')
	if err != nil {
		return nil, err
	}

	line = strings.TrimRight(line, "\r\n")
	if len(line) < 3 {
		return nil, &ProtocolError{Command: "READ", Response: line, Code: 0}
	}

	code, err := strconv.Atoi(line[0:3])
	if err != nil {
		return nil, &ProtocolError{Command: "READ", Response: line, Code: 0}
	}

	sep := byte(' ')
	if len(line) > 3 {
		sep = line[3]
	}

	lines := []string{line}

	// Common case: single-line reply.
	if sep == ' ' {
		return &Reply{
			Code:    code,
			Message: replyText(line),
			Lines:   lines,
		}, nil
	}

	if sep != '-' {
		return nil, &ProtocolError{Command: "READ", Response: line, Code: code}
	}

	terminator := fmt.Sprintf("%03d ", code)
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				return nil, io.ErrUnexpectedEOF
			}
			return nil, err
		}
		line = strings.TrimRight(line, "\r\n")
		lines = append(lines, line)

		if strings.HasPrefix(line, terminator) {
			break
		}
	}

	codeStr := terminator[:3]
	var text []string
	for _, l := range lines {
		// Strip the "NNN-"/"NNN " prefix where present; continuation lines
		// of arbitrary shape are kept whole.
		if strings.HasPrefix(l, codeStr) && len(l) >= 4 && (l[3] == '-' || l[3] == ' ') {
			text = append(text, l[4:])
		} else {
			text = append(text, l)
		}
	}

	return &Reply{
		Code:    code,
		Message: strings.Join(text, "\n"),
		Lines:   lines,
	}, nil
}

// replyText returns the text portion of a single reply line.
func replyText(line string) string {
	if len(line) > 4 {
		return line[4:]
	}
	return ""
}

// cmd sends one command and reads exactly one reply. The exchange is strict
// lock-step: the client mutex serializes callers so a second command can
// never be written before the prior reply is fully consumed.
//
// Failure replies (4xx/5xx) are returned as values; only transport faults
// and malformed replies are errors. A transport fault closes the control
// socket and forces the session to Disconnected.
func (c *Client) cmd(verb string, args ...string) (*Reply, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cmdLocked(verb, args...)
}

func (c *Client) cmdLocked(verb string, args ...string) (*Reply, error) {
	if c.conn == nil {
		return nil, &TransportError{Op: "write", Addr: c.addr(), Err: ErrConnectionLost}
	}

	line := encodeCommand(verb, args...)
	c.logger.Debug("ftp command", "cmd", redactCommand(verb, line))

	if c.timeout > 0 {
		if err := c.conn.SetWriteDeadline(time.Now().Add(c.timeout)); err != nil {
			return nil, c.lost("write", err)
		}
	}

	if _, err := c.conn.Write([]byte(line + "\r\n")); err != nil {
		return nil, c.lost("write", err)
	}

	reply, err := c.readReplyLocked()
	if err != nil {
		return nil, err
	}

	c.logger.Debug("ftp reply", "code", reply.Code, "message", reply.Message)
	return reply, nil
}

// readReplyLocked reads one reply under the client mutex, applying the read
// deadline and mapping stream-end conditions to a lost connection.
func (c *Client) readReplyLocked() (*Reply, error) {
	if c.conn == nil {
		return nil, &TransportError{Op: "read", Addr: c.addr(), Err: ErrConnectionLost}
	}

	if c.timeout > 0 {
		if err := c.conn.SetReadDeadline(time.Now().Add(c.timeout)); err != nil {
			return nil, c.lost("read", err)
		}
	}

	reply, err := readReply(c.reader)
	if err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, c.lost("read", ErrConnectionLost)
		}
		var perr *ProtocolError
		if errors.As(err, &perr) {
			return nil, err
		}
		return nil, c.lost("read", err)
	}
	return reply, nil
}

// readGreeting reads the unsolicited opening reply sent by the server right
// after the control socket is established, before any command.
func (c *Client) readGreeting() (*Reply, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.readReplyLocked()
}

// lost tears down the control socket and returns the transport fault. Every
// exit through here leaves the session Disconnected.
func (c *Client) lost(op string, err error) error {
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
		c.reader = nil
	}
	c.state = StateDisconnected
	c.user = ""
	c.logger.Debug("control connection lost", "op", op, "err", err)
	return &TransportError{Op: op, Addr: c.addr(), Err: err}
}

// expectClass sends a command and asserts the reply class (2 for 2xx, etc.).
func (c *Client) expectClass(class int, verb string, args ...string) (*Reply, error) {
	reply, err := c.cmd(verb, args...)
	if err != nil {
		return nil, err
	}
	if reply.Code < class*100 || reply.Code >= (class+1)*100 {
		return reply, &ProtocolError{
			Command:  verb,
			Response: reply.Message,
			Code:     reply.Code,
		}
	}
	return reply, nil
}
