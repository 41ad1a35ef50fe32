// Package session persists the local session (token, onboarding flags,
// identity hints) and a log of locally played rounds across restarts.
package session

import (
	"context"
	"time"
)

// Session is the durable local state read once at startup, before any
// routing decision is made.
type Session struct {
	Token        string
	HasOnboarded bool
	Username     string
	Avatar       string
}

// Round is one locally recorded submission. Events are stored so the HUD can
// summarize past celebrations without another network call.
type Round struct {
	ID             int64
	TaskID         string
	AnswerKey      string
	AnswerLabel    string
	ElapsedSeconds int
	Streak         bool
	LevelUp        bool
	Badge          string
	CreatedTS      time.Time
}

// RoundSummary aggregates the local round log for the HUD.
type RoundSummary struct {
	Rounds   int
	Streaks  int
	LevelUps int
	Badges   int
}

// Store is the durable session + round-log storage.
type Store interface {
	EnsureSchema(ctx context.Context) error
	Load(ctx context.Context) error
	Current() Session
	Token() string
	SetToken(ctx context.Context, token string) error
	ClearToken(ctx context.Context) error
	SetOnboarded(ctx context.Context, onboarded bool) error
	SetIdentity(ctx context.Context, username, avatar string) error
	AppendRound(ctx context.Context, round Round) (int64, error)
	RoundSummary(ctx context.Context) (RoundSummary, error)
	RecentRounds(ctx context.Context, limit int) ([]Round, error)
	Close() error
}
