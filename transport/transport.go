// Package transport defines the uniform shape a transport adapter (TCP,
// a Discord bridge, Telegram, etc.) must satisfy to feed external traffic
// into the fabric. The core ships only the interface; concrete adapters
// are out of scope, grounded on the teacher's thin seam between transport
// and business logic in pkg/github (a Transport here plays the role the
// teacher's github.Client plays for GitHub: an opaque carrier the rest of
// the system depends on only through its interface).
package transport

// Transport is a bidirectional, connection-oriented byte carrier. A
// concrete adapter owns the wire protocol; the fabric only ever sees
// opaque bytes in and out.
type Transport interface {
	// Connect establishes the carrier using descriptor (address, token,
	// channel name — adapter-specific) and reports whether it succeeded.
	Connect(descriptor string) bool

	// Disconnect tears down the carrier. Safe to call when not connected.
	Disconnect()

	// Send writes payload to the carrier and reports whether it was
	// accepted for delivery. It does not block on a remote acknowledgment.
	Send(payload []byte) bool

	// OnReceive registers the callback invoked for each inbound payload.
	// Replaces any previously registered callback.
	OnReceive(handler func(payload []byte))

	// Connected reports whether the carrier is currently usable.
	Connected() bool
}
