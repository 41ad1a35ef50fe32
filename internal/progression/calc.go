// Package progression holds the pure gamification rules: XP-bar math, the
// submission event classifier, celebration timing, and the badge catalog.
package progression

// XPPerLevel is the fixed XP span of every level tier.
const XPPerLevel = 50

// XPBar is the derived display state of the XP progress bar.
type XPBar struct {
	CurrentFloor int
	NextCeiling  int
	Fraction     float64
}

// ComputeXPBar maps raw xp/level to bar geometry. The floor of level 1 is 0;
// every later level spans [(level-1)*50, level*50). The fraction is clamped
// to [0,1], and a degenerate zero-width span yields 0 rather than dividing
// by zero.
func ComputeXPBar(xp, level int) XPBar {
	floor := 0
	if level > 1 {
		floor = (level - 1) * XPPerLevel
	}
	ceiling := level * XPPerLevel

	bar := XPBar{CurrentFloor: floor, NextCeiling: ceiling}
	span := ceiling - floor
	if span <= 0 {
		return bar
	}
	bar.Fraction = clamp01(float64(xp-floor) / float64(span))
	return bar
}

// StreakVisible reports whether the HUD shows the streak line. A streak of 1
// is just "submitted today" and is not worth celebrating.
func StreakVisible(streakCount int) bool {
	return streakCount > 1
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
