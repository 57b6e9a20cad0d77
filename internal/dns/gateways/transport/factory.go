package transport

import (
	"fmt"

	"github.com/haukened/hesiod-dns/internal/dns/common/log"
)

// NewTransport creates a transport of the given type.
func NewTransport(transportType TransportType, addr string, counter QueryCounter, logger log.Logger) (ServerTransport, error) {
	switch transportType {
	case TransportUDP:
		return NewUDPTransport(addr, counter, logger), nil
	default:
		return nil, fmt.Errorf("unsupported transport type: %s", transportType)
	}
}

// GetSupportedTransports returns the transport types NewTransport accepts.
func GetSupportedTransports() []TransportType {
	return []TransportType{TransportUDP}
}

// IsTransportSupported reports whether NewTransport accepts transportType.
func IsTransportSupported(transportType TransportType) bool {
	for _, t := range GetSupportedTransports() {
		if t == transportType {
			return true
		}
	}
	return false
}
