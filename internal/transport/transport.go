// Package transport abstracts the duplex channel the engine speaks over.
// The engine treats a Conn as a black box: messages in arrival order from
// ReadMessage, a Send that may fail, and Close. Connection failure is
// observed as an error from ReadMessage or Send, never as a panic.
package transport

import "context"

// Conn is one established duplex connection.
type Conn interface {
	// ReadMessage blocks until the next inbound text message or a
	// connection-level failure. After an error the connection is dead.
	ReadMessage() ([]byte, error)

	// Send transmits one outbound message. Errors are connection-level.
	Send(data []byte) error

	// Close tears the connection down. Safe to call more than once.
	Close() error
}

// Transport dials new connections. The engine calls Dial once per connect
// cycle; each returned Conn belongs to exactly one cycle.
type Transport interface {
	Dial(ctx context.Context) (Conn, error)
}
