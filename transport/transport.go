// Package transport
package transport

import "net/http"

// Transport is a bidirectional text-message channel to the chat hub.
// A single Read may return several record-separator-delimited records;
// splitting is the caller's concern.
type Transport interface {
	// Read returns the payload of the next inbound message.
	Read() ([]byte, error)

	// Write sends one outbound message.
	Write(data []byte) error

	// Close tears the connection down. When normal is true a normal
	// closure is signaled to the peer first.
	Close(normal bool) error
}

// Dialer opens a Transport to the given URL.
type Dialer interface {
	Dial(url string, header http.Header) (Transport, error)
}
