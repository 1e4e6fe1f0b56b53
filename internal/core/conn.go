// Package core is the room presence and message broadcast engine. It
// decides whether a join succeeds, keeps the live connection registry,
// and fans events out to a room's audience. Durable state lives behind
// the store interfaces in coordinator.go.
package core

// Frame is a raw outbound payload, already encoded.
type Frame []byte

// ConnID identifies one live transport session.
type ConnID string

// Conn abstracts a transport endpoint for fan-out.
// Owned by the adapter; the adapter must Close() it.
type Conn interface {
	// TrySend must not block; it reports backpressure instead.
	TrySend(Frame) error
	Close()
}
