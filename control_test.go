package raxftp

import (
	"bufio"
	"errors"
	"io"
	"strings"
	"testing"
)

func replyFrom(t *testing.T, input string) (*Reply, error) {
	t.Helper()
	return readReply(bufio.NewReader(strings.NewReader(input)))
}

func TestReadReplySingleLine(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		code    int
		message string
	}{
		{"greeting", "220 Welcome to FTP\r\n", 220, "Welcome to FTP"},
		{"failure", "550 No such file\r\n", 550, "No such file"},
		{"bare code", "200\r\n", 200, ""},
		{"code and space only", "200 \r\n", 200, ""},
		{"lf only", "230 Logged in\n", 230, "Logged in"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reply, err := replyFrom(t, tt.input)
			if err != nil {
				t.Fatalf("readReply: %v", err)
			}
			if reply.Code != tt.code {
				t.Errorf("Code = %d, want %d", reply.Code, tt.code)
			}
			if reply.Message != tt.message {
				t.Errorf("Message = %q, want %q", reply.Message, tt.message)
			}
			if len(reply.Lines) != 1 {
				t.Errorf("Lines = %d, want 1", len(reply.Lines))
			}
		})
	}
}

func TestReadReplyMultiLine(t *testing.T) {
	t.Parallel()

	input := "220-Welcome to FTP\r\n" +
		"This server is for testing\r\n" +
		"220 Ready\r\n"

	reply, err := replyFrom(t, input)
	if err != nil {
		t.Fatalf("readReply: %v", err)
	}
	if reply.Code != 220 {
		t.Errorf("Code = %d, want 220", reply.Code)
	}
	if len(reply.Lines) != 3 {
		t.Fatalf("Lines = %d, want 3", len(reply.Lines))
	}
	want := "Welcome to FTP\nThis server is for testing\nReady"
	if reply.Message != want {
		t.Errorf("Message = %q, want %q", reply.Message, want)
	}
}

// Continuation lines can look exactly like replies of a different code.
// Only a line opening with the same code followed by a space ends the reply.
func TestReadReplyAmbiguousContinuations(t *testing.T) {
	t.Parallel()

	input := "230-Login notes\r\n" +
		"550 this is not a failure, it is a note\r\n" +
		"230-still going\r\n" +
		"230 Done\r\n" +
		"215 next reply\r\n"

	br := bufio.NewReader(strings.NewReader(input))

	reply, err := readReply(br)
	if err != nil {
		t.Fatalf("readReply: %v", err)
	}
	if reply.Code != 230 {
		t.Errorf("Code = %d, want 230", reply.Code)
	}
	if len(reply.Lines) != 4 {
		t.Fatalf("Lines = %d, want 4: %q", len(reply.Lines), reply.Lines)
	}

	// The stream position must be exactly at the next reply.
	next, err := readReply(br)
	if err != nil {
		t.Fatalf("second readReply: %v", err)
	}
	if next.Code != 215 {
		t.Errorf("next Code = %d, want 215", next.Code)
	}
}

func TestReadReplyMalformed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
	}{
		{"no code", "garbage line\r\n"},
		{"short line", "ab\r\n"},
		{"partial code", "22x hello\r\n"},
		{"bad separator", "220/Welcome\r\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := replyFrom(t, tt.input)
			var perr *ProtocolError
			if !errors.As(err, &perr) {
				t.Fatalf("err = %v, want *ProtocolError", err)
			}
		})
	}
}

func TestReadReplyStreamEnd(t *testing.T) {
	t.Parallel()

	t.Run("empty stream", func(t *testing.T) {
		_, err := replyFrom(t, "")
		if err != io.EOF {
			t.Errorf("err = %v, want io.EOF", err)
		}
	})

	t.Run("mid multi-line", func(t *testing.T) {
		_, err := replyFrom(t, "220-Welcome\r\npartial")
		if err != io.ErrUnexpectedEOF {
			t.Errorf("err = %v, want io.ErrUnexpectedEOF", err)
		}
	})
}

func TestReplyClasses(t *testing.T) {
	t.Parallel()

	r := &Reply{Code: 150}
	if !r.Is1xx() || r.Is2xx() {
		t.Errorf("150 classified wrong")
	}
	r = &Reply{Code: 226}
	if !r.Is2xx() || r.Is3xx() {
		t.Errorf("226 classified wrong")
	}
	r = &Reply{Code: 331}
	if !r.Is3xx() {
		t.Errorf("331 classified wrong")
	}
	r = &Reply{Code: 450}
	if !r.Is4xx() || r.Is5xx() {
		t.Errorf("450 classified wrong")
	}
	r = &Reply{Code: 530}
	if !r.Is5xx() || r.Is4xx() {
		t.Errorf("530 classified wrong")
	}
}

func TestEncodeCommand(t *testing.T) {
	t.Parallel()

	tests := []struct {
		verb string
		args []string
		want string
	}{
		{verbQuit, nil, "QUIT"},
		{verbUser, []string{"admin"}, "USER admin"},
		{verbStor, []string{"file.txt"}, "STOR file.txt"},
		{verbPort, []string{"127,0,0,1,8,74"}, "PORT 127,0,0,1,8,74"},
	}

	for _, tt := range tests {
		if got := encodeCommand(tt.verb, tt.args...); got != tt.want {
			t.Errorf("encodeCommand(%q, %v) = %q, want %q", tt.verb, tt.args, got, tt.want)
		}
	}
}

func TestRedactCommand(t *testing.T) {
	t.Parallel()

	if got := redactCommand(verbPass, "PASS hunter2"); got != "PASS ****" {
		t.Errorf("redactCommand(PASS) = %q", got)
	}
	if got := redactCommand(verbUser, "USER admin"); got != "USER admin" {
		t.Errorf("redactCommand(USER) = %q", got)
	}
}
