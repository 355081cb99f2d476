// Package raxftp implements a stateful FTP client driving one control
// connection and at most one data connection at a time.
//
// # Overview
//
// The client tracks an explicit session lifecycle
// (Disconnected → Connected → Authenticated) and rejects commands the
// current state does not permit before any byte reaches the socket. It
// supports:
//   - Active (PORT) and passive (PASV) data connections, with a sticky
//     per-session mode
//   - A configurable local port range for active-mode listeners
//   - Bounded exponential backoff for connection establishment
//   - Chunked transfers with per-chunk progress events and cooperative
//     cancellation
//   - Optional bandwidth throttling
//   - A typed error taxonomy separating transport faults, protocol
//     failures, state violations and authentication rejections
//
// # Basic Usage
//
// Connect, authenticate and upload a file:
//
//	client, err := raxftp.Dial("127.0.0.1:2121")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Quit()
//
//	if err := client.Login("user", "password"); err != nil {
//	    log.Fatal(err)
//	}
//
//	if err := client.StoreFile(ctx, "remote.txt", "local.txt"); err != nil {
//	    log.Fatal(err)
//	}
//
// # Data Connection Modes
//
// Passive mode is the default: the server listens and the client dials out,
// which works behind NAT. Active mode listens locally on a port from the
// configured range and asks the server to connect in:
//
//	client, err := raxftp.Dial("127.0.0.1:2121",
//	    raxftp.WithActiveMode(),
//	    raxftp.WithDataPortRange(2122, 2130),
//	)
//
// The mode persists across transfers until changed with SetDataMode.
//
// # Progress Reporting
//
// Progress is an observer relationship: register a callback and it receives
// a snapshot after every chunk and once at completion:
//
//	client, err := raxftp.Dial(addr, raxftp.WithProgress(func(p raxftp.Progress) {
//	    fmt.Printf("\r%s %.1f%%", p.Path, p.Percent())
//	}))
//
// # Error Handling
//
// Server failure replies (4xx/5xx) surface as *ProtocolError with the
// command, reply text and code. Socket-level faults surface as
// *TransportError; a dropped control connection additionally matches
// errors.Is(err, raxftp.ErrConnectionLost) and forces the session back to
// Disconnected. Commands issued in the wrong state return
// *InvalidStateError without touching the socket.
package raxftp
