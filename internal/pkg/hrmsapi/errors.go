package hrmsapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/cmlabs-hris/hris-mobile-bff/internal/domain/auth"
)

var (
	// ErrUnauthorized is wrapped by Error when the backend rejects the bearer token.
	ErrUnauthorized = errors.New("backend session expired")
	// ErrMalformedPayload is wrapped by Error when a 2xx body cannot be decoded.
	ErrMalformedPayload = errors.New("malformed backend payload")
)

// Error describes a failed call to the HRMS backend.
type Error struct {
	Op         string
	StatusCode int
	Message    string
	Transient  bool
	Err        error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("hrms api ")
	b.WriteString(e.Op)
	b.WriteString(": ")
	b.WriteString(e.Message)
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (status %d)", e.StatusCode)
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Timeout reports whether the call ran out of time.
func (e *Error) Timeout() bool {
	return errors.Is(e.Err, context.DeadlineExceeded)
}

// IsTransient reports whether err is a backend failure worth retrying.
func IsTransient(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Transient
}

func transportError(op string, err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &Error{Op: op, Message: "request timed out", Transient: true, Err: err}
	case errors.Is(err, context.Canceled):
		return &Error{Op: op, Message: "request cancelled", Err: err}
	case errors.Is(err, auth.ErrSessionNotFound):
		return &Error{Op: op, StatusCode: http.StatusUnauthorized, Message: auth.ErrSessionNotFound.Error(), Err: err}
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return &Error{Op: op, Message: "backend unreachable", Transient: true, Err: err}
}

func statusError(op string, status int, body []byte) error {
	msg := extractMessage(body)
	if msg == "" {
		msg = http.StatusText(status)
	}
	e := &Error{
		Op:         op,
		StatusCode: status,
		Message:    msg,
		Transient:  status >= 500 || status == http.StatusTooManyRequests || status == http.StatusRequestTimeout,
	}
	if status == http.StatusUnauthorized {
		e.Err = ErrUnauthorized
	}
	return e
}

// extractMessage returns the first non-empty string of message, error and
// detail in a backend error body.
func extractMessage(body []byte) string {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return ""
	}
	for _, key := range []string{"message", "error", "detail"} {
		raw, ok := fields[key]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil && strings.TrimSpace(s) != "" {
			return s
		}
	}
	return ""
}
