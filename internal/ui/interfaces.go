package ui

import "time"

// Controller is the app-side half of the UI contract. The view dispatches
// every user action to it on a goroutine, so implementations may block on
// network calls.
type Controller interface {
	OnLogin(email, password string)
	OnRegister(email, username, password, avatar string)
	OnCompleteOnboarding(username, avatar string)
	OnOpenLogin()
	OnOpenRegister()
	OnAnswer(choiceKey string)
	OnDismissBadge()
	OnOpenHistory()
	OnOpenChart()
	OnOpenLeaderboard()
	OnOpenProfile()
	OnSaveProfile(username, avatar string)
	OnBackToTask()
	OnLogout()
	OnQuit()
}

// View is the surface the app drives. All setters are safe to call from any
// goroutine; they are serialized onto the bubbletea event loop.
type View interface {
	Run() error
	Stop()
	SetController(Controller)
	SetScreen(screen Screen)
	SetLoading(loading bool, label string)
	SetTaskState(TaskState)
	SetBadgeModal(state BadgeModalState)
	SetHistory(rows []HistoryRow)
	SetChart(bars []ChartBar)
	SetLeaderboard(rows []LeaderboardRow)
	SetProfileState(ProfileState)
	SetNotice(title, text string, open bool)
	FlashStatus(msg string)
	RequestDraw()
}

type Screen int

const (
	ScreenLogin Screen = iota
	ScreenRegister
	ScreenOnboarding
	ScreenTask
	ScreenHistory
	ScreenChart
	ScreenLeaderboard
	ScreenProfile
)

type LayoutMode int

const (
	LayoutWide LayoutMode = iota
	LayoutCompact
	LayoutTooSmall
)

// ChoiceRow is one selectable answer on the task screen.
type ChoiceRow struct {
	Key   string
	Label string
}

// TaskState is everything the task screen renders: the player HUD plus the
// current round.
type TaskState struct {
	Username    string
	Avatar      string
	Level       int
	XP          int
	NextCeiling int
	Fraction    float64
	Score       int
	Streak      int
	ShowStreak  bool

	CelebrateStreak  bool
	CelebrateLevelUp bool

	TaskID   string
	Prompt   string
	ImageURL string
	Choices  []ChoiceRow

	RoundsPlayed   int
	LifetimeRounds int
	LifetimeBadges int
	StartedAt      time.Time
}

// BadgeModalState drives the badge-unlock modal.
type BadgeModalState struct {
	Visible bool
	Title   string
	Desc    string
}

// HistoryRow is one card of the submission history screen.
type HistoryRow struct {
	TaskID    string
	Answer    string
	TimeLabel string
	CreatedAt time.Time
	HasTime   bool
}

// ChartBar is one bar of the average-time chart.
type ChartBar struct {
	Label   string
	Value   float64
	Samples int
}

// LeaderboardRow is one ranked row; Rank is 1-based.
type LeaderboardRow struct {
	Rank  int
	Name  string
	Score int
}

// BadgeRow is one unlocked badge in the profile gallery.
type BadgeRow struct {
	Title string
	Desc  string
}

// ProfileState is the profile screen, including the edit form's initial
// values.
type ProfileState struct {
	Email          string
	Username       string
	Avatar         string
	Score          int
	XP             int
	Level          int
	NextCeiling    int
	Fraction       float64
	Streak         int
	LastSubmission string
	Badges         []BadgeRow
	Saving         bool
}
