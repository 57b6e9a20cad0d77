package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/miekg/dns"
	"golang.org/x/time/rate"

	"github.com/haukened/hesiod-dns/internal/dns/common/log"
	"github.com/haukened/hesiod-dns/internal/dns/gateways/wire"
)

// Receive errors beyond the burst are spaced at least ErrorBackoff apart.
const (
	ErrorBackoff = 100 * time.Millisecond
	ErrorBurst   = 5
)

// UDPTransport serves DNS over UDP from a single receive loop. Datagrams are
// handled strictly one at a time on the loop goroutine.
type UDPTransport struct {
	addr    string
	conn    *net.UDPConn
	counter QueryCounter
	logger  log.Logger
	limiter *rate.Limiter

	mu      sync.RWMutex
	running bool
	stopCh  chan struct{}
	done    chan struct{}
}

// NewUDPTransport creates a UDP transport for addr. counter may be nil.
func NewUDPTransport(addr string, counter QueryCounter, logger log.Logger) *UDPTransport {
	return &UDPTransport{
		addr:    addr,
		counter: counter,
		logger:  logger,
		limiter: rate.NewLimiter(rate.Every(ErrorBackoff), ErrorBurst),
		stopCh:  make(chan struct{}),
	}
}

// Start binds the UDP socket and starts the receive loop. The loop also stops
// when ctx is cancelled.
func (t *UDPTransport) Start(ctx context.Context, handler RequestHandler) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.running {
		return fmt.Errorf("UDP transport already running")
	}

	udpAddr, err := net.ResolveUDPAddr("udp", t.addr)
	if err != nil {
		return fmt.Errorf("failed to resolve UDP address %s: %w", t.addr, err)
	}

	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return fmt.Errorf("failed to bind UDP socket on %s: %w", t.addr, err)
	}

	t.conn = conn
	t.running = true
	t.stopCh = make(chan struct{})
	t.done = make(chan struct{})

	t.logger.Info(map[string]any{
		"transport": "udp",
		"address":   conn.LocalAddr().String(),
	}, "DNS transport started")

	go t.listenLoop(ctx, handler, conn, t.done)
	go t.stopOnCancel(ctx, t.stopCh)

	return nil
}

// Stop closes the socket and waits for the receive loop to return.
func (t *UDPTransport) Stop() error {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return nil
	}

	close(t.stopCh)
	t.running = false
	done := t.done

	closeErr := t.conn.Close()
	if closeErr != nil {
		t.logger.Warn(map[string]any{
			"error": closeErr.Error(),
		}, "Error closing UDP connection")
	}
	t.mu.Unlock()

	<-done

	t.logger.Info(map[string]any{
		"transport": "udp",
		"address":   t.addr,
	}, "DNS transport stopped")

	return closeErr
}

// Address returns the local address of the bound socket while running, which
// resolves a ":0" port to the one the OS chose.
func (t *UDPTransport) Address() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.running && t.conn != nil {
		return t.conn.LocalAddr().String()
	}
	return t.addr
}

func (t *UDPTransport) isRunning() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.running
}

func (t *UDPTransport) stopOnCancel(ctx context.Context, stopCh <-chan struct{}) {
	select {
	case <-ctx.Done():
		t.logger.Debug(nil, "UDP transport stopping due to context cancellation")
		if err := t.Stop(); err != nil {
			t.logger.Warn(map[string]any{"error": err.Error()}, "Error stopping UDP transport")
		}
	case <-stopCh:
	}
}

// listenLoop receives datagrams until the socket is closed.
func (t *UDPTransport) listenLoop(ctx context.Context, handler RequestHandler, conn *net.UDPConn, done chan<- struct{}) {
	defer close(done)
	buffer := make([]byte, dns.MaxMsgSize)

	for {
		n, clientAddr, err := conn.ReadFromUDP(buffer)
		if err != nil {
			if !t.isRunning() || errors.Is(err, net.ErrClosed) {
				return
			}

			t.logger.Warn(map[string]any{
				"error": err.Error(),
			}, "Failed to read UDP packet")

			if err := t.limiter.Wait(ctx); err != nil {
				return
			}
			continue
		}

		t.handlePacket(conn, buffer[:n], clientAddr, handler)
	}
}

// handlePacket answers one datagram. The counter moves whether or not a
// response is produced.
func (t *UDPTransport) handlePacket(conn *net.UDPConn, data []byte, clientAddr *net.UDPAddr, handler RequestHandler) {
	t.logger.Debug(map[string]any{
		"client": clientAddr.String(),
		"size":   len(data),
		"raw":    fmt.Sprintf("%x", data),
	}, "Received raw DNS query data")

	response, err := handler.HandleDatagram(data)
	if t.counter != nil {
		t.counter.IncQueries()
	}

	if err != nil {
		fields := map[string]any{
			"client": clientAddr.String(),
			"error":  err.Error(),
			"size":   len(data),
		}
		if errors.Is(err, wire.ErrMalformed) {
			t.logger.Warn(fields, "Dropped malformed DNS query")
		} else {
			t.logger.Error(fields, "Failed to handle DNS query")
		}
		return
	}
	if response == nil {
		return
	}

	if _, err := conn.WriteToUDP(response, clientAddr); err != nil {
		t.logger.Error(map[string]any{
			"client": clientAddr.String(),
			"error":  err.Error(),
		}, "Failed to send DNS response")
		return
	}

	t.logger.Debug(map[string]any{
		"client": clientAddr.String(),
		"size":   len(response),
	}, "Sent DNS response")
}
