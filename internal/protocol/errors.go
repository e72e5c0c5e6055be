package protocol

import "errors"

var (
	ErrInvalidAddress     = errors.New("protocol: invalid address")
	ErrUnsupportedArgKind = errors.New("protocol: unsupported argument kind")
)
