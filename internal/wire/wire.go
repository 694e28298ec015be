// Package wire implements the two framings yctrl speaks: the whitespace
// delimited control-socket requests it receives, and the NUL delimited
// command framing of the yabai socket it talks to.
package wire

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
)

const (
	// Bell prefixes every error response from yabai.
	Bell byte = 0x07

	nul byte = 0x00
)

var (
	// ErrMalformedRequest is returned for empty or tokenless control requests.
	ErrMalformedRequest = errors.New("malformed request")

	// ErrNulInArgument is returned when a command argument contains a NUL
	// byte. Nothing is written to the socket in that case.
	ErrNulInArgument = errors.New("unexpected NUL byte in argument")
)

// Request is a decoded control-socket message.
type Request struct {
	Kind string
	Args []string
}

// String renders the request the way it travels on the wire.
func (r Request) String() string {
	if len(r.Args) == 0 {
		return r.Kind
	}
	return r.Kind + " " + strings.Join(r.Args, " ")
}

// ParseRequest decodes a whole control-socket body. One trailing newline is
// stripped, then the body is split on ASCII whitespace. The first token is
// the request kind and the remaining tokens are passed through verbatim.
func ParseRequest(body []byte) (Request, error) {
	if n := len(body); n > 0 && body[n-1] == '\n' {
		body = body[:n-1]
	}

	fields := bytes.FieldsFunc(body, isASCIISpace)
	if len(fields) == 0 {
		return Request{}, ErrMalformedRequest
	}

	req := Request{Kind: string(fields[0])}
	if len(fields) > 1 {
		req.Args = make([]string, 0, len(fields)-1)
		for _, f := range fields[1:] {
			req.Args = append(req.Args, string(f))
		}
	}
	return req, nil
}

// EncodeRequest is the inverse of ParseRequest.
func EncodeRequest(kind string, args ...string) []byte {
	var buf bytes.Buffer
	buf.WriteString(kind)
	for _, arg := range args {
		buf.WriteByte(' ')
		buf.WriteString(arg)
	}
	buf.WriteByte('\n')
	return buf.Bytes()
}

func isASCIISpace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\v', '\f', '\r':
		return true
	}
	return false
}

// EncodeCommand frames args for the yabai socket: every argument is followed
// by a NUL byte and one extra NUL terminates the command.
func EncodeCommand(args []string) ([]byte, error) {
	size := 1
	for _, arg := range args {
		if strings.IndexByte(arg, nul) >= 0 {
			return nil, fmt.Errorf("%w: %q", ErrNulInArgument, arg)
		}
		size += len(arg) + 1
	}

	buf := make([]byte, 0, size)
	for _, arg := range args {
		buf = append(buf, arg...)
		buf = append(buf, nul)
	}
	buf = append(buf, nul)
	return buf, nil
}

// WriteCommand validates and writes a framed command to w.
func WriteCommand(w io.Writer, args []string) error {
	payload, err := EncodeCommand(args)
	if err != nil {
		return err
	}
	_, err = w.Write(payload)
	return err
}

// ManagerError is an error reported by yabai itself via the BEL sentinel.
type ManagerError struct {
	Message string
	Args    []string
}

func (e *ManagerError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "command failed"
	}
	if len(e.Args) == 0 {
		return "yabai: " + msg
	}
	return fmt.Sprintf("yabai: %s %q", msg, e.Args)
}

// DecodeResponse interprets a full response body. A body starting with BEL is
// an error whose message is the trimmed remainder.
func DecodeResponse(raw []byte) (string, error) {
	if len(raw) > 0 && raw[0] == Bell {
		return "", &ManagerError{Message: strings.TrimSpace(string(raw[1:]))}
	}
	return string(raw), nil
}

// CheckAck interprets the single byte read for fire-and-forget commands.
// A short read counts as success; only a leading BEL is an error. rest may
// carry whatever followed the BEL, for the error message.
func CheckAck(ack []byte, rest []byte) error {
	if len(ack) == 0 || ack[0] != Bell {
		return nil
	}
	return &ManagerError{Message: strings.TrimSpace(string(rest))}
}
