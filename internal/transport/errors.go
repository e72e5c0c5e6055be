package transport

import (
	"errors"
	"fmt"
)

// Kind classifies transport failures.
type Kind int

const (
	KindUnknown Kind = iota
	KindResolution
	KindSocket
	KindNotConnected
	KindInvalidInput
)

var (
	ErrResolution   = errors.New("transport: resolution failure")
	ErrSocket       = errors.New("transport: socket failure")
	ErrNotConnected = errors.New("transport: not connected")
	ErrInvalidInput = errors.New("transport: invalid input")
)

func (k Kind) String() string {
	switch k {
	case KindResolution:
		return "resolution"
	case KindSocket:
		return "socket"
	case KindNotConnected:
		return "not_connected"
	case KindInvalidInput:
		return "invalid_input"
	default:
		return "unknown"
	}
}

func (k Kind) sentinel() error {
	switch k {
	case KindResolution:
		return ErrResolution
	case KindSocket:
		return ErrSocket
	case KindNotConnected:
		return ErrNotConnected
	case KindInvalidInput:
		return ErrInvalidInput
	default:
		return nil
	}
}

// Error is the failure type returned by every Transport operation.
// errors.Is matches both the kind sentinel and the underlying cause.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func newError(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func (e *Error) Error() string {
	msg := "transport: unknown failure"
	if s := e.Kind.sentinel(); s != nil {
		msg = s.Error()
	}
	if e.Op != "" {
		msg = fmt.Sprintf("%s op=%s", msg, e.Op)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() []error {
	out := make([]error, 0, 2)
	if s := e.Kind.sentinel(); s != nil {
		out = append(out, s)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

// KindOf extracts the failure kind from err, or KindUnknown.
func KindOf(err error) Kind {
	var te *Error
	if errors.As(err, &te) {
		return te.Kind
	}
	return KindUnknown
}
