// Package transport owns the server socket. It receives query datagrams, hands
// them to the query handler one at a time and sends back whatever it produces.
package transport

import (
	"context"
)

// ServerTransport is a DNS listener with an explicit lifecycle.
type ServerTransport interface {
	// Start binds the socket and begins serving. A bind failure is returned.
	Start(ctx context.Context, handler RequestHandler) error

	// Stop closes the socket and waits for the receive loop to exit.
	Stop() error

	// Address returns the bound address, or the configured one before Start.
	Address() string
}

// RequestHandler turns a query datagram into a response datagram.
// A nil response with a nil error means nothing is sent.
type RequestHandler interface {
	HandleDatagram(data []byte) ([]byte, error)
}

// QueryCounter is incremented once for every datagram received.
type QueryCounter interface {
	IncQueries()
}

// TransportType names a transport protocol.
type TransportType string

const (
	// TransportUDP is DNS over UDP (RFC 1035).
	TransportUDP TransportType = "udp"
)
