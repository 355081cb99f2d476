package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"golang.org/x/term"

	"github.com/raxftp/raxftp"
)

// terminal runs the interactive prompt loop. It owns no protocol logic:
// every command maps to a client call and every error is printed and the
// loop continues.
type terminal struct {
	client  *raxftp.Client
	cfg     *raxftp.Config
	scanner *bufio.Scanner
	out     io.Writer
}

func newTerminal(client *raxftp.Client, cfg *raxftp.Config, in io.Reader, out io.Writer) *terminal {
	return &terminal{client: client, cfg: cfg, scanner: bufio.NewScanner(in), out: out}
}

// run reads commands until QUIT or EOF.
func (t *terminal) run() error {
	for {
		fmt.Fprintf(t.out, "raxftp (%s)> ", t.client.State())
		if !t.scanner.Scan() {
			break
		}
		line := strings.TrimSpace(t.scanner.Text())
		if line == "" {
			continue
		}

		quit, err := t.dispatch(line)
		if err != nil {
			fmt.Fprintf(t.out, "Error: %v\n", err)
		}
		if quit {
			break
		}
	}

	fmt.Fprintln(t.out, "Closing session...")
	return t.client.Quit()
}

// dispatch handles one input line. The returned bool ends the session.
func (t *terminal) dispatch(line string) (bool, error) {
	verb, arg := splitCommand(line)

	switch verb {
	case "HELP":
		t.printHelp()
		return false, nil
	case "QUIT":
		return true, nil
	case "USER":
		if arg == "" {
			fmt.Fprintln(t.out, "Usage: USER <username>")
			return false, nil
		}
		return false, t.login(arg)
	case "PASS":
		fmt.Fprintln(t.out, "Use USER first; the password is prompted for")
		return false, nil
	case "LOGOUT":
		return false, t.client.Logout()
	case "LIST":
		return false, t.list()
	case "STOR":
		if arg == "" {
			fmt.Fprintln(t.out, "Usage: STOR <filename>")
			return false, nil
		}
		return false, t.store(arg)
	case "RETR":
		if arg == "" {
			fmt.Fprintln(t.out, "Usage: RETR <filename>")
			return false, nil
		}
		return false, t.retrieve(arg)
	case "DEL":
		if arg == "" {
			fmt.Fprintln(t.out, "Usage: DEL <filename>")
			return false, nil
		}
		return false, t.client.Delete(arg)
	case "PWD":
		dir, err := t.client.CurrentDir()
		if err != nil {
			return false, err
		}
		fmt.Fprintln(t.out, dir)
		return false, nil
	case "CWD":
		if arg == "" {
			fmt.Fprintln(t.out, "Usage: CWD <directory>")
			return false, nil
		}
		return false, t.client.ChangeDir(arg)
	case "PORT":
		return false, t.client.SetDataMode(raxftp.ModeActive)
	case "PASV":
		return false, t.client.SetDataMode(raxftp.ModePassive)
	case "RAX":
		msg, err := t.client.Rax()
		if err != nil {
			return false, err
		}
		fmt.Fprintln(t.out, msg)
		return false, nil
	default:
		fmt.Fprintf(t.out, "Unknown command: %s. Type 'HELP' for available commands.\n", verb)
		return false, nil
	}
}

// splitCommand separates the verb from its argument.
func splitCommand(line string) (string, string) {
	parts := strings.SplitN(line, " ", 2)
	verb := strings.ToUpper(parts[0])
	arg := ""
	if len(parts) > 1 {
		arg = strings.TrimSpace(parts[1])
	}
	return verb, arg
}

// login prompts for the password without echo and authenticates.
func (t *terminal) login(username string) error {
	fmt.Fprint(t.out, "Password: ")
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(t.out)
	if err != nil {
		// Not a real terminal (piped input); read a plain line instead.
		if !t.scanner.Scan() {
			return io.EOF
		}
		password = []byte(strings.TrimSpace(t.scanner.Text()))
	}

	if err := t.client.Login(username, string(password)); err != nil {
		var authErr *raxftp.AuthError
		if errors.As(err, &authErr) {
			fmt.Fprintln(t.out, "Login rejected; try again")
		}
		return err
	}
	fmt.Fprintln(t.out, "Logged in")
	return nil
}

func (t *terminal) list() error {
	ctx, stop := interruptContext()
	defer stop()

	entries, err := t.client.List(ctx)
	fmt.Fprintln(t.out)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		fmt.Fprintln(t.out, entry)
	}
	return nil
}

func (t *terminal) store(name string) error {
	ctx, stop := interruptContext()
	defer stop()

	err := t.client.StoreFile(ctx, name, filepath.Join(t.cfg.LocalDirectory, name))
	fmt.Fprintln(t.out)
	if err != nil {
		return err
	}
	fmt.Fprintf(t.out, "Upload complete: %s\n", name)
	return nil
}

func (t *terminal) retrieve(name string) error {
	ctx, stop := interruptContext()
	defer stop()

	err := t.client.RetrieveFile(ctx, name, filepath.Join(t.cfg.LocalDirectory, name))
	fmt.Fprintln(t.out)
	if err != nil {
		return err
	}
	fmt.Fprintf(t.out, "Download complete: %s\n", name)
	return nil
}

// interruptContext cancels the transfer on Ctrl-C. The session itself
// survives an aborted transfer.
func interruptContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

func (t *terminal) printHelp() {
	fmt.Fprintln(t.out, "Available commands:")
	fmt.Fprintln(t.out, "  USER <username>   - Authenticate (password is prompted)")
	fmt.Fprintln(t.out, "  STOR <filename>   - Upload file to server")
	fmt.Fprintln(t.out, "  RETR <filename>   - Download file from server")
	fmt.Fprintln(t.out, "  PORT              - Use active mode data connections")
	fmt.Fprintln(t.out, "  PASV              - Use passive mode data connections")
	fmt.Fprintln(t.out, "  LIST              - List directory contents")
	fmt.Fprintln(t.out, "  PWD               - Print working directory")
	fmt.Fprintln(t.out, "  CWD <directory>   - Change working directory")
	fmt.Fprintln(t.out, "  DEL <filename>    - Delete file on server")
	fmt.Fprintln(t.out, "  LOGOUT            - Log out current user")
	fmt.Fprintln(t.out, "  RAX               - Custom server command")
	fmt.Fprintln(t.out, "  QUIT              - Disconnect and exit")
	fmt.Fprintln(t.out, "  HELP              - Show this help message")
	fmt.Fprintln(t.out)
	fmt.Fprintf(t.out, "Server: %s\n", t.cfg.DisplayName())
	fmt.Fprintf(t.out, "State: %s, data mode: %s\n", t.client.State(), t.client.DataMode())
	fmt.Fprintf(t.out, "Local directory: %s\n", t.cfg.LocalDirectory)
}
