package protocol

import (
	"encoding/binary"
	"fmt"
	"math"
)

// OSC type tags.
const (
	TagInt32   byte = 'i'
	TagFloat32 byte = 'f'
	TagString  byte = 's'
)

// Arg is one encodable OSC argument.
type Arg interface {
	Tag() byte
	appendTo(dst []byte) []byte
}

// Int is an explicit 32-bit integer argument.
type Int int32

// Float is a 32-bit IEEE-754 argument.
type Float float32

// String is a NUL-terminated, padded string argument.
type String string

func (Int) Tag() byte    { return TagInt32 }
func (Float) Tag() byte  { return TagFloat32 }
func (String) Tag() byte { return TagString }

func (v Int) appendTo(dst []byte) []byte {
	return binary.BigEndian.AppendUint32(dst, uint32(v))
}

func (v Float) appendTo(dst []byte) []byte {
	return binary.BigEndian.AppendUint32(dst, math.Float32bits(float32(v)))
}

func (v String) appendTo(dst []byte) []byte {
	return AppendPadded(dst, string(v))
}

// Message is an address plus its ordered arguments.
type Message struct {
	Address string
	Args    []any
}

func (m Message) String() string {
	return fmt.Sprintf("%s %v", m.Address, m.Args)
}

// ArgFromValue maps a Go value onto an OSC argument.
//
// Only int32 (and Int) encode as 'i'. Every other integer or floating kind is
// coerced to float32. Strings encode as 's'. Pointers to Int, Float and
// String are dereferenced; nil pointers and anything else are unsupported.
func ArgFromValue(v any) (Arg, error) {
	switch v := v.(type) {
	case *Int:
		if v == nil {
			return nil, fmt.Errorf("%w: nil %T", ErrUnsupportedArgKind, v)
		}
		return *v, nil
	case *Float:
		if v == nil {
			return nil, fmt.Errorf("%w: nil %T", ErrUnsupportedArgKind, v)
		}
		return *v, nil
	case *String:
		if v == nil {
			return nil, fmt.Errorf("%w: nil %T", ErrUnsupportedArgKind, v)
		}
		return *v, nil
	case Arg:
		return v, nil
	case int32:
		return Int(v), nil
	case float32:
		return Float(v), nil
	case float64:
		return Float(float32(v)), nil
	case int:
		return Float(float32(v)), nil
	case int8:
		return Float(float32(v)), nil
	case int16:
		return Float(float32(v)), nil
	case int64:
		return Float(float32(v)), nil
	case uint:
		return Float(float32(v)), nil
	case uint8:
		return Float(float32(v)), nil
	case uint16:
		return Float(float32(v)), nil
	case uint32:
		return Float(float32(v)), nil
	case uint64:
		return Float(float32(v)), nil
	case string:
		return String(v), nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedArgKind, v)
	}
}
