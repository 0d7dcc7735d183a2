// Package singleinstance lets one resident process own a loopback TCP port
// and run capture_or_recognize on behalf of short-lived invocations.
//
// The wire protocol is line based. A probe sends "PING\n" and expects
// "PONG\n". A request sends "STDOUT\n" or "DELIVER\n"; the resident answers
// "SUCCESS\n" followed by the payload, or "ERROR\n" followed by a message,
// and closes the connection.
package singleinstance

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

const (
	residentHost = "127.0.0.1"

	linePing    = "PING"
	linePong    = "PONG"
	lineStdout  = "STDOUT"
	lineDeliver = "DELIVER"
	lineSuccess = "SUCCESS"
	lineError   = "ERROR"
)

var (
	ErrNoPortAvailable = errors.New("no free port in single-instance range")
	ErrBadRequest      = errors.New("malformed single-instance request")
	ErrBadResponse     = errors.New("malformed single-instance response")
	ErrClosed          = errors.New("single-instance server closed")
)

// RemoteError carries the message a resident returned with ERROR.
type RemoteError struct {
	Message string
}

func (e *RemoteError) Error() string { return "resident: " + e.Message }

// Request is one delegated invocation.
type Request struct {
	// OutputToStdout asks for the recognized text back instead of having the
	// resident deliver it to the host.
	OutputToStdout bool
}

func (r Request) line() string {
	if r.OutputToStdout {
		return lineStdout
	}
	return lineDeliver
}

func readLine(br *bufio.Reader) (string, error) {
	s, err := br.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimRight(s, "\r\n"), nil
}

func writeLine(w *bufio.Writer, s string) error {
	if _, err := w.WriteString(s + "\n"); err != nil {
		return err
	}
	return w.Flush()
}

func parseRequest(line string) (Request, error) {
	switch line {
	case lineStdout:
		return Request{OutputToStdout: true}, nil
	case lineDeliver:
		return Request{}, nil
	default:
		return Request{}, fmt.Errorf("%w: %q", ErrBadRequest, line)
	}
}

// readResponse reads a status line and the payload up to EOF.
func readResponse(br *bufio.Reader) (string, error) {
	status, err := readLine(br)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBadResponse, err)
	}
	payload, err := io.ReadAll(br)
	if err != nil {
		return "", err
	}
	switch status {
	case lineSuccess:
		return string(payload), nil
	case lineError:
		return "", &RemoteError{Message: string(payload)}
	default:
		return "", fmt.Errorf("%w: status %q", ErrBadResponse, status)
	}
}
