package loop

import (
	"sort"
	"sync"
	"time"
)

// Manual is a deterministic Scheduler for tests. Nothing runs until Flush or
// Advance is called, and time only moves through Advance.
type Manual struct {
	mu     sync.Mutex
	now    time.Time
	queue  []func()
	timers []*pendingTimer
	seq    int
}

type pendingTimer struct {
	t        *Timer
	gen      uint64
	deadline time.Time
	seq      int
}

// NewManual returns a scheduler whose clock starts at now.
func NewManual(now time.Time) *Manual {
	return &Manual{now: now}
}

func (m *Manual) Post(fn func()) {
	m.mu.Lock()
	m.queue = append(m.queue, fn)
	m.mu.Unlock()
}

func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *Manual) NewTimer(interval time.Duration, fn func()) *Timer {
	return &Timer{host: m, interval: interval, fn: fn}
}

func (m *Manual) arm(t *Timer, gen uint64, d time.Duration) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	pt := &pendingTimer{t: t, gen: gen, deadline: m.now.Add(d), seq: m.seq}
	m.timers = append(m.timers, pt)
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		for i, p := range m.timers {
			if p == pt {
				m.timers = append(m.timers[:i], m.timers[i+1:]...)
				return
			}
		}
	}
}

// Flush runs queued tasks, including ones they post, until none are left.
func (m *Manual) Flush() {
	for {
		m.mu.Lock()
		if len(m.queue) == 0 {
			m.mu.Unlock()
			return
		}
		fn := m.queue[0]
		m.queue = m.queue[1:]
		m.mu.Unlock()
		fn()
	}
}

// Pending reports the number of queued tasks.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)
}

// Advance moves the clock forward by d, firing due timers in deadline order
// and flushing tasks before and after each one.
func (m *Manual) Advance(d time.Duration) {
	m.Flush()

	m.mu.Lock()
	target := m.now.Add(d)
	m.mu.Unlock()

	for {
		m.mu.Lock()
		sort.SliceStable(m.timers, func(i, j int) bool {
			if !m.timers[i].deadline.Equal(m.timers[j].deadline) {
				return m.timers[i].deadline.Before(m.timers[j].deadline)
			}
			return m.timers[i].seq < m.timers[j].seq
		})
		if len(m.timers) == 0 || m.timers[0].deadline.After(target) {
			m.now = target
			m.mu.Unlock()
			break
		}
		next := m.timers[0]
		m.timers = m.timers[1:]
		m.now = next.deadline
		m.mu.Unlock()

		next.t.fire(next.gen)
		m.Flush()
	}
	m.Flush()
}
