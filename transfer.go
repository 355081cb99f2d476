package raxftp

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"io/fs"
	"net"
	"os"
	"strings"

	"github.com/raxftp/raxftp/internal/ratelimit"
)

// defaultChunkSize is the streaming unit for transfers. Progress and
// cancellation are checked once per chunk.
const defaultChunkSize = 8192

// Store uploads data from r to the remote path. If r exposes a Stat method
// (as *os.File does) the expected size feeds progress reporting; otherwise
// the total is unknown until completion.
func (c *Client) Store(ctx context.Context, remotePath string, r io.Reader) error {
	total := int64(-1)
	if s, ok := r.(interface{ Stat() (fs.FileInfo, error) }); ok {
		if info, err := s.Stat(); err == nil {
			total = info.Size()
		}
	}
	return c.runTransfer(ctx, verbStor, remotePath, total,
		func(ctx context.Context, conn net.Conn, t *progressTracker) (int64, error) {
			return c.streamUp(ctx, conn, r, t)
		})
}

// StoreFile uploads a local file to the remote path. A local open failure
// aborts before any command is sent.
func (c *Client) StoreFile(ctx context.Context, remotePath, localPath string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open local file: %w", err)
	}
	defer f.Close()
	return c.Store(ctx, remotePath, f)
}

// Retrieve downloads the remote path into w.
func (c *Client) Retrieve(ctx context.Context, remotePath string, w io.Writer) error {
	return c.runTransfer(ctx, verbRetr, remotePath, -1,
		func(ctx context.Context, conn net.Conn, t *progressTracker) (int64, error) {
			return c.streamDown(ctx, conn, w, t)
		})
}

// RetrieveFile downloads the remote path to a local file. The partial file
// is removed when the transfer fails.
func (c *Client) RetrieveFile(ctx context.Context, remotePath, localPath string) error {
	f, err := os.Create(localPath)
	if err != nil {
		return fmt.Errorf("failed to create local file: %w", err)
	}
	if err := c.Retrieve(ctx, remotePath, f); err != nil {
		_ = f.Close()
		_ = os.Remove(localPath)
		return err
	}
	return f.Close()
}

// List retrieves the directory listing over a data connection and returns
// its raw lines. Formatting for display is the caller's concern.
func (c *Client) List(ctx context.Context) ([]string, error) {
	var buf bytes.Buffer
	err := c.runTransfer(ctx, verbList, "", -1,
		func(ctx context.Context, conn net.Conn, t *progressTracker) (int64, error) {
			return c.streamDown(ctx, conn, &buf, t)
		})
	if err != nil {
		return nil, err
	}

	var entries []string
	for _, line := range strings.Split(buf.String(), "\n") {
		line = strings.TrimRight(line, "\r")
		if line != "" {
			entries = append(entries, line)
		}
	}
	return entries, nil
}

// runTransfer orchestrates one transfer:
//
//  1. gate on the authenticated state
//  2. negotiate the data endpoint for the session's current mode
//  3. send the verb and require a 1xx preliminary reply
//  4. establish the data socket (accept or dial)
//  5. stream chunks with progress and cancellation checks
//  6. close the data socket and require the 2xx completion reply
//
// Every socket the transfer opens is released on every exit path. A failure
// after the 1xx reply still drains the pending completion reply best-effort
// so the control channel stays in lock-step.
func (c *Client) runTransfer(ctx context.Context, verb, path string, total int64,
	stream func(context.Context, net.Conn, *progressTracker) (int64, error)) error {

	if err := c.require(StateAuthenticated, verb); err != nil {
		return err
	}

	ep, err := c.negotiateData()
	if err != nil {
		return err
	}

	var reply *Reply
	if path != "" {
		reply, err = c.cmd(verb, path)
	} else {
		reply, err = c.cmd(verb)
	}
	if err != nil {
		_ = ep.close()
		return err
	}
	if !reply.Is1xx() {
		_ = ep.close()
		return &ProtocolError{Command: verb, Response: reply.Message, Code: reply.Code}
	}

	conn, err := ep.establish(ctx)
	if err != nil {
		_ = ep.close()
		c.drainFinalReply()
		return err
	}
	c.logger.Debug("data connection open", "verb", verb, "mode", ep.mode.String())

	tracker := newProgressTracker(path, total, c.progressFn)
	n, streamErr := stream(ctx, conn, tracker)
	closeErr := ep.close()
	c.logger.Debug("data connection closed", "verb", verb, "bytes", n)

	if streamErr != nil {
		c.drainFinalReply()
		return &TransferError{Bytes: n, Err: streamErr}
	}
	if closeErr != nil {
		c.drainFinalReply()
		return &TransferError{Bytes: n, Err: closeErr}
	}

	tracker.finish()

	final, err := c.finalReply()
	if err != nil {
		return err
	}
	if !final.Is2xx() {
		// The data layer succeeded but the server reports a protocol-level
		// failure; surfaced distinctly from a streaming fault.
		return &ProtocolError{Command: verb, Response: final.Message, Code: final.Code}
	}
	return nil
}

// finalReply reads the completion reply that follows the data phase.
func (c *Client) finalReply() (*Reply, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.readReplyLocked()
}

// drainFinalReply consumes whatever completion reply the server managed to
// send after a failed transfer, so the next command does not read a stale
// reply. Best-effort: errors are ignored.
func (c *Client) drainFinalReply() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return
	}
	_, _ = c.readReplyLocked()
}

// streamUp copies r to the data socket in fixed-size chunks, honoring the
// bandwidth limit and reporting progress per chunk. Cancellation is checked
// between chunks.
func (c *Client) streamUp(ctx context.Context, conn net.Conn, r io.Reader, t *progressTracker) (int64, error) {
	w := ratelimit.NewWriter(conn, c.limiter)
	buf := make([]byte, c.chunkSize)
	var total int64
	for {
		select {
		case <-ctx.Done():
			return total, ctx.Err()
		default:
		}

		n, rerr := r.Read(buf)
		if n > 0 {
			wn, werr := w.Write(buf[:n])
			total += int64(wn)
			t.add(wn)
			if werr != nil {
				return total, werr
			}
		}
		if rerr == io.EOF {
			return total, nil
		}
		if rerr != nil {
			return total, rerr
		}
	}
}

// streamDown copies the data socket to w in fixed-size chunks. The transfer
// ends when the server closes the data connection.
func (c *Client) streamDown(ctx context.Context, conn net.Conn, w io.Writer, t *progressTracker) (int64, error) {
	r := ratelimit.NewReader(conn, c.limiter)
	buf := make([]byte, c.chunkSize)
	var total int64
	for {
		select {
		case <-ctx.Done():
			return total, ctx.Err()
		default:
		}

		n, rerr := r.Read(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				return total, werr
			}
			total += int64(n)
			t.add(n)
		}
		if rerr == io.EOF {
			return total, nil
		}
		if rerr != nil {
			return total, rerr
		}
	}
}
