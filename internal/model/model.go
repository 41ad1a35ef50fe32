package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Task is one labeling round as served by GET /tasks/next. The backend nests
// the prompt under "task" and the optional image under "content", and some
// deployments wrap the whole thing in a single-element array; DecodeTask
// flattens all of that.
type Task struct {
	ID       string            `json:"id"`
	TrackID  string            `json:"track_id"`
	Prompt   string            `json:"-"`
	ImageURL string            `json:"-"`
	Choices  map[string]Choice `json:"-"`
}

// Choice is one selectable answer. The backend is inconsistent about the
// shape: sometimes a bare scalar, sometimes an object whose display label
// hides under one of several field names.
type Choice struct {
	raw json.RawMessage
}

// Label returns the display text for the choice: the first non-empty of the
// label/answer/value/text/VALUE fields for object values, the scalar itself
// otherwise, and the raw JSON as a last resort.
func (c Choice) Label() string {
	if len(c.raw) == 0 {
		return ""
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(c.raw, &obj); err == nil {
		for _, key := range []string{"label", "answer", "value", "text", "VALUE"} {
			v, ok := obj[key]
			if !ok {
				continue
			}
			if s := scalarString(v); s != "" {
				return s
			}
		}
		return string(c.raw)
	}
	if s := scalarString(c.raw); s != "" {
		return s
	}
	return string(c.raw)
}

func (c *Choice) UnmarshalJSON(data []byte) error {
	c.raw = append(json.RawMessage(nil), data...)
	return nil
}

func (c Choice) MarshalJSON() ([]byte, error) {
	if len(c.raw) == 0 {
		return []byte("null"), nil
	}
	return c.raw, nil
}

func scalarString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return strconv.FormatBool(b)
	}
	return ""
}

type taskEnvelope struct {
	ID      json.Number `json:"id"`
	TrackID json.Number `json:"track_id"`
	Content struct {
		Image struct {
			URL string `json:"url"`
		} `json:"image"`
	} `json:"content"`
	Task struct {
		Text    string            `json:"text"`
		Choices map[string]Choice `json:"choices"`
	} `json:"task"`
}

// DecodeTask parses a /tasks/next response body. A JSON array is accepted and
// its first element used; an empty array is an error.
func DecodeTask(body []byte) (Task, error) {
	trimmed := firstNonSpace(body)
	if trimmed == '[' {
		var many []taskEnvelope
		if err := json.Unmarshal(body, &many); err != nil {
			return Task{}, fmt.Errorf("decode task list: %w", err)
		}
		if len(many) == 0 {
			return Task{}, fmt.Errorf("task list is empty")
		}
		return many[0].toTask(), nil
	}
	var one taskEnvelope
	if err := json.Unmarshal(body, &one); err != nil {
		return Task{}, fmt.Errorf("decode task: %w", err)
	}
	return one.toTask(), nil
}

func (e taskEnvelope) toTask() Task {
	return Task{
		ID:       e.ID.String(),
		TrackID:  e.TrackID.String(),
		Prompt:   e.Task.Text,
		ImageURL: e.Content.Image.URL,
		Choices:  e.Task.Choices,
	}
}

func firstNonSpace(b []byte) byte {
	for _, c := range b {
		switch c {
		case ' ', '\t', '\r', '\n':
			continue
		}
		return c
	}
	return 0
}

// Profile is the server-authoritative player record. Level never decreases;
// the client treats it as read-mostly and refreshes it after every submit.
type Profile struct {
	Email              string     `json:"email"`
	Username           string     `json:"username"`
	Avatar             string     `json:"avatar"`
	XP                 int        `json:"xp"`
	Level              int        `json:"level"`
	Score              int        `json:"score"`
	StreakCount        int        `json:"streakCount"`
	LastSubmissionDate *time.Time `json:"lastSubmissionDate"`
	Badges             []string   `json:"badges"`
}

// ProfileUpdate carries the editable subset of Profile for PUT /user/profile.
// Nil fields are omitted so the server only touches what the user changed.
type ProfileUpdate struct {
	Username *string `json:"username,omitempty"`
	Avatar   *string `json:"avatar,omitempty"`
}

// SubmissionRecord is one append-only history entry from GET /submissions.
// TimeTakenInSeconds is nullable: old records predate elapsed-time tracking.
type SubmissionRecord struct {
	TaskID             json.Number `json:"taskId"`
	Answer             string      `json:"answer"`
	TimeTakenInSeconds *float64    `json:"timeTakenInSeconds"`
	CreatedAt          time.Time   `json:"createdAt"`
}

// SubmissionResult is the transient response to a submit call. Message is
// free text the event classifier inspects; NewBadge is set only when this
// submission unlocked a badge.
type SubmissionResult struct {
	Message  string `json:"message"`
	NewBadge string `json:"newBadge"`
}

// LeaderboardEntry is one row of GET /leaderboard, already ordered by the
// server (descending score); the client never re-sorts.
type LeaderboardEntry struct {
	ID       json.Number `json:"id"`
	Email    string      `json:"email"`
	Username string      `json:"username"`
	Score    int         `json:"score"`
	XP       int         `json:"xp"`
	Level    int         `json:"level"`
}

// DisplayName prefers the username and falls back to the email, mirroring the
// leaderboard screen's rendering rule.
func (e LeaderboardEntry) DisplayName() string {
	if e.Username != "" {
		return e.Username
	}
	if e.Email != "" {
		return e.Email
	}
	return "N/A"
}
