// Package protocol owns the Aseba wire contract and parsing primitives.
//
// Ownership boundary:
// - frame read/write primitives (little-endian 16-bit words)
// - message id enumeration
// - typed payload views for inbound messages
// - request builders for outbound messages
//
// The codec is strictly frame-at-a-time: a decode consumes exactly one
// declared frame, so a dropped malformed frame leaves the stream aligned
// on the next frame boundary.
package protocol
