package protocol

import (
	"github.com/danmuck/oscctl/internal/logging"
)

// PaddedLen returns the on-wire size of a string of n bytes: the bytes, one
// NUL terminator, then zero padding up to a multiple of 4.
func PaddedLen(n int) int {
	return (n + 1 + 3) &^ 3
}

// AppendPadded appends s, its NUL terminator, and alignment padding to dst.
func AppendPadded(dst []byte, s string) []byte {
	dst = append(dst, s...)
	for pad := PaddedLen(len(s)) - len(s); pad > 0; pad-- {
		dst = append(dst, 0)
	}
	return dst
}

// Encode builds one OSC message: address section, type-tag section, payload.
// There is no length prefix; the datagram carries the message length.
//
// Unsupported arguments are logged and dropped from both the tag string and
// the payload so the rest of the message still goes out.
func Encode(address string, args ...any) []byte {
	tags := make([]byte, 1, len(args)+1)
	tags[0] = ','
	var payload []byte
	for i, v := range args {
		arg, err := ArgFromValue(v)
		if err != nil {
			logging.Warnf("protocol.Encode dropped argument address=%q index=%d err=%v", address, i, err)
			continue
		}
		tags = append(tags, arg.Tag())
		payload = arg.appendTo(payload)
	}

	buf := make([]byte, 0, PaddedLen(len(address))+PaddedLen(len(tags))+len(payload))
	buf = AppendPadded(buf, address)
	buf = AppendPadded(buf, string(tags))
	return append(buf, payload...)
}

// EncodeMessage is Encode for a Message value.
func EncodeMessage(m Message) []byte {
	return Encode(m.Address, m.Args...)
}
