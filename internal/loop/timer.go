package loop

import "time"

type timerHost interface {
	arm(t *Timer, gen uint64, d time.Duration) (cancel func())
}

// Timer is a single-shot timer whose callback runs on the owner goroutine.
// Its methods must only be called from there.
//
// Start restarts a running timer (debounce); StartIfInactive leaves a
// running timer alone (throttle).
type Timer struct {
	host     timerHost
	interval time.Duration
	fn       func()

	gen    uint64
	active bool
	cancel func()
}

func (t *Timer) Interval() time.Duration { return t.interval }

func (t *Timer) SetInterval(d time.Duration) { t.interval = d }

func (t *Timer) Active() bool { return t.active }

// Start (re)arms the timer for a full interval.
func (t *Timer) Start() {
	t.Stop()
	t.gen++
	t.active = true
	t.cancel = t.host.arm(t, t.gen, t.interval)
}

// StartIfInactive arms the timer unless it is already running.
func (t *Timer) StartIfInactive() {
	if !t.active {
		t.Start()
	}
}

func (t *Timer) Stop() {
	if !t.active {
		return
	}
	t.active = false
	t.gen++
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
}

// fire runs the callback unless the timer was stopped or restarted since gen
// was armed.
func (t *Timer) fire(gen uint64) {
	if !t.active || gen != t.gen {
		return
	}
	t.active = false
	t.cancel = nil
	t.fn()
}
