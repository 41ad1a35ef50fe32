package progression

import (
	"strings"

	"labelarcade/internal/model"
)

// EventKind identifies one celebratory event fired by a submission response.
type EventKind int

const (
	EventStreak EventKind = iota
	EventLevelUp
	EventBadge
)

func (k EventKind) String() string {
	switch k {
	case EventStreak:
		return "streak"
	case EventLevelUp:
		return "level_up"
	case EventBadge:
		return "badge"
	}
	return "unknown"
}

// Events is the set of events a single submission fired. Badge holds the
// unlocked badge key when HasBadge is set. All three may co-occur.
type Events struct {
	Streak   bool
	LevelUp  bool
	HasBadge bool
	Badge    string
}

// None reports an empty event set.
func (e Events) None() bool {
	return !e.Streak && !e.LevelUp && !e.HasBadge
}

// Kinds lists the fired kinds in fixed order.
func (e Events) Kinds() []EventKind {
	var kinds []EventKind
	if e.Streak {
		kinds = append(kinds, EventStreak)
	}
	if e.LevelUp {
		kinds = append(kinds, EventLevelUp)
	}
	if e.HasBadge {
		kinds = append(kinds, EventBadge)
	}
	return kinds
}

// Classify inspects a submission result and decides which celebrations fire.
// The backend signals streaks and level-ups only through its free-text
// message, so the match is an exact case-sensitive substring check; badge
// unlocks arrive as a structured field.
func Classify(res model.SubmissionResult) Events {
	return Events{
		Streak:   strings.Contains(res.Message, "Streak"),
		LevelUp:  strings.Contains(res.Message, "Level Up"),
		HasBadge: res.NewBadge != "",
		Badge:    res.NewBadge,
	}
}
