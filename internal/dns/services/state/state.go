// Package state holds the context shared by the DNS loop and the health surface:
// the zone, the query counter and the start time. It is built once at startup and
// the counter is its only mutable part.
package state

import (
	"sync/atomic"
	"time"

	"github.com/haukened/hesiod-dns/internal/dns/common/clock"
	"github.com/haukened/hesiod-dns/internal/dns/repos/zone"
)

// State is the server context. The zero value is not usable; call New.
type State struct {
	zone    *zone.Zone
	clock   clock.Clock
	started time.Time
	queries atomic.Uint64
}

// New records the start time from clk and returns the context for z.
func New(z *zone.Zone, clk clock.Clock) *State {
	return &State{
		zone:    z,
		clock:   clk,
		started: clk.Now(),
	}
}

// Zone returns the zone being served.
func (s *State) Zone() *zone.Zone { return s.zone }

// IncQueries counts one received datagram.
func (s *State) IncQueries() {
	s.queries.Add(1)
}

// QueryCount returns the number of datagrams received so far.
func (s *State) QueryCount() uint64 {
	return s.queries.Load()
}

// StartTime returns when the server context was created.
func (s *State) StartTime() time.Time { return s.started }

// Uptime returns the time elapsed since start.
func (s *State) Uptime() time.Duration {
	return s.clock.Now().Sub(s.started)
}

// UptimeSeconds returns whole seconds of uptime.
func (s *State) UptimeSeconds() uint64 {
	up := s.Uptime()
	if up < 0 {
		return 0
	}
	return uint64(up / time.Second)
}

// QueriesPerSecond averages the query count over whole seconds of uptime.
// It is 0 during the first second.
func (s *State) QueriesPerSecond() float64 {
	secs := s.UptimeSeconds()
	if secs == 0 {
		return 0
	}
	return float64(s.QueryCount()) / float64(secs)
}
