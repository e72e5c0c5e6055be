// Package transport owns the single outbound OSC/UDP endpoint.
//
// Ownership boundary:
// - target resolution and socket lifecycle (connect, disconnect, reconnect)
// - datagram send with bounded write deadlines
// - typed failure kinds surfaced to callers
//
// A Transport is send-only and fire-and-forget: a nil error from Send means
// the datagram was handed to the OS, not that the receiver got it.
package transport
