// Package clock abstracts time so debounce and expiry logic can be driven
// deterministically in tests.
package clock

import (
	"sort"
	"sync"
	"time"
)

// Clock provides the current time and delayed callbacks.
type Clock interface {
	// Now returns the current time
	Now() time.Time
	// AfterFunc calls f on its own goroutine once d has elapsed.
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a pending AfterFunc callback.
type Timer interface {
	// Stop prevents the callback from firing. It reports whether the call
	// stopped the timer, false if it had already fired or been stopped.
	Stop() bool
}

// Real implements Clock with the time package.
type Real struct{}

// Now returns the current system time.
func (Real) Now() time.Time {
	return time.Now()
}

// AfterFunc wraps time.AfterFunc.
func (Real) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Mock is a manually advanced clock. Callbacks run synchronously on the
// goroutine that calls Advance or Set, in deadline order.
type Mock struct {
	mu     sync.Mutex
	now    time.Time
	seq    uint64
	timers []*mockTimer
}

type mockTimer struct {
	clock    *Mock
	deadline time.Time
	seq      uint64
	fn       func()
	stopped  bool
	fired    bool
}

// NewMock creates a Mock set to t.
func NewMock(t time.Time) *Mock {
	return &Mock{now: t}
}

// Now returns the mock's current time.
func (m *Mock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// AfterFunc registers f to run once the mock has been advanced by d.
func (m *Mock) AfterFunc(d time.Duration, f func()) Timer {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.seq++
	t := &mockTimer{
		clock:    m,
		deadline: m.now.Add(d),
		seq:      m.seq,
		fn:       f,
	}
	m.timers = append(m.timers, t)
	return t
}

// Advance moves the clock forward by d and fires every timer that came due.
func (m *Mock) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now.Add(d)
	m.mu.Unlock()
	m.Set(target)
}

// Set moves the clock to t and fires every timer that came due.
func (m *Mock) Set(t time.Time) {
	for {
		m.mu.Lock()
		due := m.nextDueLocked(t)
		if due == nil {
			m.now = t
			m.mu.Unlock()
			return
		}
		if due.deadline.After(m.now) {
			m.now = due.deadline
		}
		due.fired = true
		m.removeLocked(due)
		m.mu.Unlock()

		due.fn()
	}
}

// PendingTimers returns the number of timers that have neither fired nor
// been stopped.
func (m *Mock) PendingTimers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.timers)
}

func (m *Mock) nextDueLocked(limit time.Time) *mockTimer {
	if len(m.timers) == 0 {
		return nil
	}
	sort.SliceStable(m.timers, func(i, j int) bool {
		if m.timers[i].deadline.Equal(m.timers[j].deadline) {
			return m.timers[i].seq < m.timers[j].seq
		}
		return m.timers[i].deadline.Before(m.timers[j].deadline)
	})
	if m.timers[0].deadline.After(limit) {
		return nil
	}
	return m.timers[0]
}

func (m *Mock) removeLocked(t *mockTimer) {
	for i, candidate := range m.timers {
		if candidate == t {
			m.timers = append(m.timers[:i], m.timers[i+1:]...)
			return
		}
	}
}

func (t *mockTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()

	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	t.clock.removeLocked(t)
	return true
}
