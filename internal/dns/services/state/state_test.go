package state

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/haukened/hesiod-dns/internal/dns/common/clock"
	"github.com/haukened/hesiod-dns/internal/dns/repos/zone"
)

func newTestState() (*State, *clock.MockClock) {
	clk := clock.NewMockClock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	z := zone.Build("test.internal", ".ns", ".test.internal", 300, nil, nil,
		[]zone.ServiceEntry{{Name: "web", Host: "web.svc", Port: 443, Protocol: "tcp"}})
	return New(z, clk), clk
}

func TestState_Counter(t *testing.T) {
	s, _ := newTestState()
	assert.Equal(t, uint64(0), s.QueryCount())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.IncQueries()
		}()
	}
	wg.Wait()

	assert.Equal(t, uint64(50), s.QueryCount())
}

func TestState_Uptime(t *testing.T) {
	s, clk := newTestState()
	start := s.StartTime()

	assert.Equal(t, time.Duration(0), s.Uptime())
	assert.Equal(t, uint64(0), s.UptimeSeconds())

	clk.Advance(90*time.Second + 500*time.Millisecond)
	assert.Equal(t, 90*time.Second+500*time.Millisecond, s.Uptime())
	assert.Equal(t, uint64(90), s.UptimeSeconds())
	assert.Equal(t, start, s.StartTime())

	clk.Set(start.Add(-time.Minute))
	assert.Equal(t, uint64(0), s.UptimeSeconds())
}

func TestState_QueriesPerSecond(t *testing.T) {
	tests := []struct {
		name    string
		queries int
		elapsed time.Duration
		want    float64
	}{
		{"no uptime", 10, 0, 0},
		{"sub-second uptime", 10, 900 * time.Millisecond, 0},
		{"no queries", 0, 10 * time.Second, 0},
		{"steady rate", 100, 10 * time.Second, 10},
		{"fractional rate", 1, 4 * time.Second, 0.25},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, clk := newTestState()
			for i := 0; i < tt.queries; i++ {
				s.IncQueries()
			}
			clk.Advance(tt.elapsed)
			assert.InDelta(t, tt.want, s.QueriesPerSecond(), 1e-9)
		})
	}
}

func TestState_Zone(t *testing.T) {
	s, _ := newTestState()
	assert.Equal(t, 1, s.Zone().RecordCount())
	assert.Equal(t, "test.internal", s.Zone().Domain())
}
