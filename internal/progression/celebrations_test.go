package progression

import (
	"testing"
	"time"
)

// manualTimers lets tests fire or count scheduled timers without waiting.
type manualTimers struct {
	scheduled []*manualTimer
}

type manualTimer struct {
	fn      func()
	stopped bool
}

func (m *manualTimer) Stop() bool {
	was := !m.stopped
	m.stopped = true
	return was
}

func (m *manualTimers) factory(_ time.Duration, fn func()) Stopper {
	t := &manualTimer{fn: fn}
	m.scheduled = append(m.scheduled, t)
	return t
}

func (m *manualTimers) fireLast() {
	t := m.scheduled[len(m.scheduled)-1]
	if !t.stopped {
		t.fn()
	}
}

func TestTriggerActivatesAndExpires(t *testing.T) {
	timers := &manualTimers{}
	var changes int
	c := newCelebrations(time.Second, func() { changes++ }, timers.factory)

	c.Trigger(Events{Streak: true})
	if !c.Active(EventStreak) {
		t.Fatalf("streak should be active after trigger")
	}
	if c.Active(EventLevelUp) {
		t.Fatalf("level up should stay inactive")
	}

	timers.fireLast()
	if c.Active(EventStreak) {
		t.Fatalf("streak should expire when its timer fires")
	}
	if changes != 1 {
		t.Fatalf("expected one change notification, got %d", changes)
	}
}

func TestRetriggerResetsInsteadOfStacking(t *testing.T) {
	timers := &manualTimers{}
	c := newCelebrations(time.Second, nil, timers.factory)

	c.Trigger(Events{Streak: true})
	c.Trigger(Events{Streak: true})

	if len(timers.scheduled) != 2 {
		t.Fatalf("expected a replacement timer, got %d", len(timers.scheduled))
	}
	if !timers.scheduled[0].stopped {
		t.Fatalf("first timer must be stopped on retrigger")
	}

	// The stale timer firing anyway must not clear the fresh celebration.
	timers.scheduled[0].fn = nil
	timers.fireLast()
	if c.Active(EventStreak) {
		t.Fatalf("streak should expire with the replacement timer")
	}
}

// firedTimer models a timer whose callback was already dispatched when Stop
// was called, which is what time.AfterFunc reports by returning false.
type firedTimer struct {
	fn func()
}

func (f *firedTimer) Stop() bool { return false }

type firedTimers struct {
	scheduled []*firedTimer
}

func (f *firedTimers) factory(_ time.Duration, fn func()) Stopper {
	t := &firedTimer{fn: fn}
	f.scheduled = append(f.scheduled, t)
	return t
}

func TestLateExpiryAfterRetriggerIsIgnored(t *testing.T) {
	timers := &firedTimers{}
	c := newCelebrations(time.Second, nil, timers.factory)

	c.Trigger(Events{Streak: true})
	c.Trigger(Events{Streak: true})
	if len(timers.scheduled) != 2 {
		t.Fatalf("expected a replacement timer, got %d", len(timers.scheduled))
	}

	// The first timer's callback was already in flight when the retrigger
	// tried to stop it. Running it now must leave the fresh celebration
	// alone; only its own replacement timer may clear it.
	timers.scheduled[0].fn()
	if !c.Active(EventStreak) {
		t.Fatalf("late expiry from the replaced timer must not clear the celebration")
	}

	timers.scheduled[1].fn()
	if c.Active(EventStreak) {
		t.Fatalf("streak should expire with the replacement timer")
	}
}

func TestLateExpiryAfterCancelAllIsIgnored(t *testing.T) {
	timers := &firedTimers{}
	var changes int
	c := newCelebrations(time.Second, func() { changes++ }, timers.factory)

	c.Trigger(Events{Streak: true})
	c.CancelAll()

	timers.scheduled[0].fn()
	if changes != 0 {
		t.Fatalf("cancelled timer must not notify, got %d changes", changes)
	}
}

func TestIndependentTimersPerKind(t *testing.T) {
	timers := &manualTimers{}
	c := newCelebrations(time.Second, nil, timers.factory)

	c.Trigger(Events{Streak: true, LevelUp: true})
	if len(timers.scheduled) != 2 {
		t.Fatalf("expected one timer per kind, got %d", len(timers.scheduled))
	}

	timers.scheduled[0].fn()
	if c.Active(EventStreak) {
		t.Fatalf("streak should have expired")
	}
	if !c.Active(EventLevelUp) {
		t.Fatalf("level up must survive the streak expiry")
	}
}

func TestBadgePinnedUntilDismissed(t *testing.T) {
	timers := &manualTimers{}
	c := newCelebrations(time.Second, nil, timers.factory)

	c.Trigger(Events{HasBadge: true, Badge: "streak_3"})
	badge, ok := c.PendingBadge()
	if !ok || badge != "streak_3" {
		t.Fatalf("pending badge: %q %v", badge, ok)
	}

	// Timer expiry clears the animation flag but not the pinned badge.
	for _, timer := range timers.scheduled {
		if !timer.stopped {
			timer.fn()
		}
	}
	if _, ok := c.PendingBadge(); !ok {
		t.Fatalf("badge must stay pinned after timer expiry")
	}

	c.DismissBadge()
	if _, ok := c.PendingBadge(); ok {
		t.Fatalf("badge must clear on dismissal")
	}
}

func TestCancelAllStopsEverything(t *testing.T) {
	timers := &manualTimers{}
	c := newCelebrations(time.Second, nil, timers.factory)

	c.Trigger(Events{Streak: true, LevelUp: true, HasBadge: true, Badge: "level_5"})
	c.CancelAll()

	if c.AnyActive() {
		t.Fatalf("nothing should stay active after cancel")
	}
	for i, timer := range timers.scheduled {
		if !timer.stopped {
			t.Fatalf("timer %d not stopped", i)
		}
	}
	if _, ok := c.PendingBadge(); ok {
		t.Fatalf("pinned badge must clear on cancel")
	}
}

func TestDefaultDurationFallback(t *testing.T) {
	timers := &manualTimers{}
	c := newCelebrations(0, nil, timers.factory)
	if c.duration != DefaultCelebrationDuration {
		t.Fatalf("duration: %v", c.duration)
	}
}
