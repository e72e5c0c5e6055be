// Package protocol owns the OSC 1.0 wire contract.
//
// Ownership boundary:
// - message encoding (address, type tags, argument payload)
// - argument kinds and their coercion rules
// - structured addresses with a typed layer slot
//
// The package is send-only: incoming OSC traffic is never parsed here.
package protocol
