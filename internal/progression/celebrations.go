package progression

import (
	"sync"
	"time"
)

// DefaultCelebrationDuration is how long a streak or level-up celebration
// stays on screen before auto-clearing.
const DefaultCelebrationDuration = 3000 * time.Millisecond

// Stopper is the cancellable half of a single-shot timer.
type Stopper interface {
	Stop() bool
}

// TimerFactory schedules fn after d and returns a handle to cancel it. Tests
// inject a manual factory so celebration expiry never needs wall-clock waits.
type TimerFactory func(d time.Duration, fn func()) Stopper

func realTimer(d time.Duration, fn func()) Stopper {
	return time.AfterFunc(d, fn)
}

// Celebrations tracks the time-bounded celebratory UI states fired by
// submissions. Each event kind owns one independent single-shot timer; a new
// trigger for an already-active kind resets its timer instead of stacking a
// second animation. A badge unlock additionally pins the badge key for the
// unlock modal until the user dismisses it.
type Celebrations struct {
	mu       sync.Mutex
	duration time.Duration
	newTimer TimerFactory
	onChange func()

	timers map[EventKind]Stopper
	active map[EventKind]bool
	gen    map[EventKind]uint64
	badge  string
}

// NewCelebrations builds a tracker with real timers. onChange is invoked
// (on the timer goroutine) whenever a celebration expires, so the view can
// request a redraw; it may be nil.
func NewCelebrations(duration time.Duration, onChange func()) *Celebrations {
	return newCelebrations(duration, onChange, realTimer)
}

func newCelebrations(duration time.Duration, onChange func(), factory TimerFactory) *Celebrations {
	if duration <= 0 {
		duration = DefaultCelebrationDuration
	}
	return &Celebrations{
		duration: duration,
		newTimer: factory,
		onChange: onChange,
		timers:   map[EventKind]Stopper{},
		active:   map[EventKind]bool{},
		gen:      map[EventKind]uint64{},
	}
}

// Trigger starts (or restarts) the celebration for every kind in ev.
func (c *Celebrations) Trigger(ev Events) {
	c.mu.Lock()
	for _, kind := range ev.Kinds() {
		c.startLocked(kind)
	}
	if ev.HasBadge {
		c.badge = ev.Badge
	}
	c.mu.Unlock()
}

func (c *Celebrations) startLocked(kind EventKind) {
	if t, ok := c.timers[kind]; ok {
		// Stop may return false when the timer already fired and its
		// expire callback is waiting on mu; the generation check below
		// keeps that stale callback from clearing the new celebration.
		t.Stop()
	}
	c.active[kind] = true
	c.gen[kind]++
	k, g := kind, c.gen[kind]
	c.timers[k] = c.newTimer(c.duration, func() { c.expire(k, g) })
}

func (c *Celebrations) expire(kind EventKind, gen uint64) {
	c.mu.Lock()
	if c.gen[kind] != gen {
		c.mu.Unlock()
		return
	}
	delete(c.timers, kind)
	c.active[kind] = false
	notify := c.onChange
	c.mu.Unlock()
	if notify != nil {
		notify()
	}
}

// Active reports whether the celebration for kind is currently on screen.
func (c *Celebrations) Active(kind EventKind) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active[kind]
}

// AnyActive reports whether any celebration is on screen (drives confetti).
func (c *Celebrations) AnyActive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, on := range c.active {
		if on {
			return true
		}
	}
	return c.badge != ""
}

// PendingBadge returns the badge key awaiting dismissal, if any.
func (c *Celebrations) PendingBadge() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.badge, c.badge != ""
}

// DismissBadge closes the badge unlock modal.
func (c *Celebrations) DismissBadge() {
	c.mu.Lock()
	c.badge = ""
	c.mu.Unlock()
}

// CancelAll stops every pending timer and clears all state. Called when the
// task screen is left so no timer fires into a discarded view.
func (c *Celebrations) CancelAll() {
	c.mu.Lock()
	for kind, t := range c.timers {
		t.Stop()
		c.gen[kind]++
		delete(c.timers, kind)
	}
	for kind := range c.active {
		c.active[kind] = false
	}
	c.badge = ""
	c.mu.Unlock()
}
