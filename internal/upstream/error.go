// Package upstream defines the error returned when a remote model service fails.
package upstream

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// maxMessage bounds how much of an upstream body is kept in an Error.
const maxMessage = 512

// Error reports a failed call to an embedding or language-model backend:
// unreachable, non-2xx, or an undecodable response.
type Error struct {
	Service    string // "embedding" or "llm"
	StatusCode int    // 0 when no response was received
	Message    string
	Err        error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Service)
	b.WriteString(" backend")
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " returned %d", e.StatusCode)
	} else {
		b.WriteString(" failed")
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil && (e.Message == "" || e.Message != e.Err.Error()) {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Transport wraps a transport-level failure.
func Transport(service string, err error) *Error {
	return &Error{Service: service, Err: err}
}

// FromResponse builds an Error from a non-2xx response, keeping a bounded
// prefix of its body as the message. The body is not closed.
func FromResponse(service string, resp *http.Response) *Error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxMessage))
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		msg = resp.Status
	}
	return &Error{Service: service, StatusCode: resp.StatusCode, Message: msg}
}

// Malformed reports a response that could not be decoded.
func Malformed(service string, err error) *Error {
	return &Error{Service: service, Message: "malformed response", Err: err}
}

// Is reports whether err is, or wraps, an upstream Error.
func Is(err error) bool {
	var e *Error
	return errors.As(err, &e)
}
