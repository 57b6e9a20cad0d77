package clock

import (
	"sync"
	"testing"
	"time"
)

func TestRealClock_Now(t *testing.T) {
	clock := RealClock{}

	before := time.Now()
	now := clock.Now()
	after := time.Now()

	if now.Before(before) {
		t.Errorf("Clock time %v is before measurement time %v", now, before)
	}
	if now.After(after) {
		t.Errorf("Clock time %v is after measurement time %v", now, after)
	}
}

func TestMockClock_Now(t *testing.T) {
	fixedTime := time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)
	clock := NewMockClock(fixedTime)

	if now := clock.Now(); !now.Equal(fixedTime) {
		t.Errorf("Expected %v, got %v", fixedTime, now)
	}
	if first, second := clock.Now(), clock.Now(); !first.Equal(second) {
		t.Errorf("Mock clock should return consistent time: first=%v, second=%v", first, second)
	}
}

func TestMockClock_Advance(t *testing.T) {
	initialTime := time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)
	clock := &MockClock{CurrentTime: initialTime}

	testCases := []struct {
		name     string
		duration time.Duration
		expected time.Time
	}{
		{"advance by 1 hour", time.Hour, initialTime.Add(time.Hour)},
		{"advance by zero", 0, initialTime.Add(time.Hour)},
		{"advance backwards", -30 * time.Minute, initialTime.Add(30 * time.Minute)},
		{"advance by 1 microsecond", time.Microsecond, initialTime.Add(30*time.Minute + time.Microsecond)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			clock.Advance(tc.duration)
			if now := clock.Now(); !now.Equal(tc.expected) {
				t.Errorf("Expected %v, got %v", tc.expected, now)
			}
		})
	}
}

func TestMockClock_Set(t *testing.T) {
	clock := NewMockClock(time.Unix(0, 0))
	target := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)

	clock.Set(target)

	if now := clock.Now(); !now.Equal(target) {
		t.Errorf("Expected %v, got %v", target, now)
	}
}

func TestClock_Interface_Compliance(t *testing.T) {
	var _ Clock = RealClock{}
	var _ Clock = &MockClock{}
}

func TestMockClock_UptimeSimulation(t *testing.T) {
	start := time.Date(2025, 8, 1, 9, 0, 0, 0, time.UTC)
	clock := NewMockClock(start)

	steps := []struct {
		advance time.Duration
		uptime  time.Duration
	}{
		{0, 0},
		{time.Second, time.Second},
		{59 * time.Second, time.Minute},
		{time.Hour, time.Hour + time.Minute},
	}
	for _, s := range steps {
		clock.Advance(s.advance)
		if got := clock.Now().Sub(start); got != s.uptime {
			t.Errorf("Expected uptime %v, got %v", s.uptime, got)
		}
	}
}

func TestMockClock_Concurrent_Access(t *testing.T) {
	clock := NewMockClock(time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC))

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = clock.Now()
		}()
		go func() {
			defer wg.Done()
			clock.Advance(time.Second)
		}()
	}
	wg.Wait()

	want := time.Date(2025, 8, 1, 12, 0, 10, 0, time.UTC)
	if now := clock.Now(); !now.Equal(want) {
		t.Errorf("Expected %v, got %v", want, now)
	}
}
