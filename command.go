package raxftp

import (
	"fmt"
	"net"
	"regexp"
	"strconv"
	"strings"
)

// Wire verbs understood by the client. HELP is deliberately absent: it is a
// client-side command and never reaches the server.
const (
	verbUser   = "USER"
	verbPass   = "PASS"
	verbPort   = "PORT"
	verbPasv   = "PASV"
	verbStor   = "STOR"
	verbRetr   = "RETR"
	verbList   = "LIST"
	verbDel    = "DEL"
	verbPwd    = "PWD"
	verbCwd    = "CWD"
	verbLogout = "LOGOUT"
	verbRax    = "RAX"
	verbQuit   = "QUIT"
)

// encodeCommand renders a command as wire text without the trailing CRLF:
// the verb, a single space, and the space-joined arguments.
func encodeCommand(verb string, args ...string) string {
	if len(args) == 0 {
		return verb
	}
	return verb + " " + strings.Join(args, " ")
}

// redactCommand returns the loggable form of a command line, hiding
// credentials.
func redactCommand(verb, line string) string {
	if verb == verbPass {
		return verbPass + " ****"
	}
	return line
}

// hostPortRegex extracts the six comma-separated numbers of a PASV reply.
// The surrounding text varies between servers (parenthesized or bare), so
// only the sextet itself is required.
var hostPortRegex = regexp.MustCompile(`(\d{1,3}),(\d{1,3}),(\d{1,3}),(\d{1,3}),(\d{1,3}),(\d{1,3})`)

// formatHostPort encodes an IPv4 "host:port" address as the
// "h1,h2,h3,h4,p1,p2" argument of the PORT command, where
// port = p1*256 + p2.
func formatHostPort(addr string) (string, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return "", err
	}

	ip := net.ParseIP(host)
	if ip == nil {
		return "", fmt.Errorf("invalid IP address: %s", host)
	}
	ip = ip.To4()
	if ip == nil {
		return "", fmt.Errorf("PORT requires an IPv4 address")
	}

	port, err := strconv.Atoi(portStr)
	if err != nil || port < 0 || port > 65535 {
		return "", fmt.Errorf("invalid port: %s", portStr)
	}

	return fmt.Sprintf("%d,%d,%d,%d,%d,%d", ip[0], ip[1], ip[2], ip[3], port/256, port%256), nil
}

// parseHostPort decodes the sextet of a PASV reply into "host:port". It is
// the exact inverse of formatHostPort on any valid IPv4 address and port.
func parseHostPort(text string) (string, error) {
	matches := hostPortRegex.FindStringSubmatch(text)
	if len(matches) != 7 {
		return "", fmt.Errorf("no h1,h2,h3,h4,p1,p2 sextet in reply: %s", text)
	}

	var parts [6]int
	for i := 0; i < 6; i++ {
		val, err := strconv.Atoi(matches[i+1])
		if err != nil || val < 0 || val > 255 {
			return "", fmt.Errorf("sextet component out of range: %s", matches[i+1])
		}
		parts[i] = val
	}

	host := fmt.Sprintf("%d.%d.%d.%d", parts[0], parts[1], parts[2], parts[3])
	if ip := net.ParseIP(host); ip == nil || ip.To4() == nil {
		return "", fmt.Errorf("invalid IPv4 address in reply: %s", host)
	}

	port := parts[4]*256 + parts[5]
	return net.JoinHostPort(host, strconv.Itoa(port)), nil
}

// parsePwdReply extracts the directory from a PWD reply. Servers quote the
// path ("257 \"/home\" is current directory"); fall back to the raw message
// when they don't.
func parsePwdReply(message string) string {
	if start := strings.IndexByte(message, '"'); start >= 0 {
		if end := strings.IndexByte(message[start+1:], '"'); end >= 0 {
			return message[start+1 : start+1+end]
		}
	}
	return strings.TrimSpace(message)
}
