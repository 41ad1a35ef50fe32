package session

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

const timeLayout = "2006-01-02T15:04:05.000Z"

const (
	keyToken     = "token"
	keyOnboarded = "has_onboarded"
	keyUsername  = "username"
	keyAvatar    = "avatar"
)

// SQLiteStore keeps the session in a key/value table and the round log in an
// append-only table. The session is cached in memory after Load so Token()
// can be read synchronously on every request without touching the database.
type SQLiteStore struct {
	db *sql.DB

	mu     sync.RWMutex
	cached Session
}

func Open(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS session_values (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS round_log (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			task_id TEXT NOT NULL,
			answer_key TEXT NOT NULL,
			answer_label TEXT NOT NULL DEFAULT '',
			elapsed_seconds INTEGER NOT NULL DEFAULT 0,
			streak INTEGER NOT NULL DEFAULT 0,
			level_up INTEGER NOT NULL DEFAULT 0,
			badge TEXT NOT NULL DEFAULT '',
			created_ts TEXT NOT NULL
		);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// Load reads the persisted session into the in-memory cache. Missing keys
// leave zero values, which is the first-launch state.
func (s *SQLiteStore) Load(ctx context.Context) error {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM session_values`)
	if err != nil {
		return err
	}
	defer rows.Close()

	var sess Session
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return err
		}
		switch k {
		case keyToken:
			sess.Token = v
		case keyOnboarded:
			sess.HasOnboarded = v == "true"
		case keyUsername:
			sess.Username = v
		case keyAvatar:
			sess.Avatar = v
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	s.cached = sess
	s.mu.Unlock()
	return nil
}

func (s *SQLiteStore) Current() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cached
}

// Token satisfies the API client's token source.
func (s *SQLiteStore) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cached.Token
}

func (s *SQLiteStore) SetToken(ctx context.Context, token string) error {
	if err := s.setValue(ctx, keyToken, token); err != nil {
		return err
	}
	s.mu.Lock()
	s.cached.Token = token
	s.mu.Unlock()
	return nil
}

func (s *SQLiteStore) ClearToken(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM session_values WHERE key = ?`, keyToken); err != nil {
		return err
	}
	s.mu.Lock()
	s.cached.Token = ""
	s.mu.Unlock()
	return nil
}

func (s *SQLiteStore) SetOnboarded(ctx context.Context, onboarded bool) error {
	value := "false"
	if onboarded {
		value = "true"
	}
	if err := s.setValue(ctx, keyOnboarded, value); err != nil {
		return err
	}
	s.mu.Lock()
	s.cached.HasOnboarded = onboarded
	s.mu.Unlock()
	return nil
}

func (s *SQLiteStore) SetIdentity(ctx context.Context, username, avatar string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	for k, v := range map[string]string{keyUsername: username, keyAvatar: avatar} {
		if _, err = tx.ExecContext(ctx, upsertValueSQL, k, v); err != nil {
			return err
		}
	}
	if err = tx.Commit(); err != nil {
		return err
	}
	s.mu.Lock()
	s.cached.Username = username
	s.cached.Avatar = avatar
	s.mu.Unlock()
	return nil
}

const upsertValueSQL = `
	INSERT INTO session_values(key, value) VALUES(?, ?)
	ON CONFLICT(key) DO UPDATE SET value = excluded.value
`

func (s *SQLiteStore) setValue(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, upsertValueSQL, key, value)
	return err
}

func (s *SQLiteStore) AppendRound(ctx context.Context, round Round) (int64, error) {
	created := round.CreatedTS
	if created.IsZero() {
		created = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO round_log(task_id, answer_key, answer_label, elapsed_seconds, streak, level_up, badge, created_ts)
		VALUES(?,?,?,?,?,?,?,?)
	`,
		strings.TrimSpace(round.TaskID),
		round.AnswerKey,
		round.AnswerLabel,
		max(0, round.ElapsedSeconds),
		boolInt(round.Streak),
		boolInt(round.LevelUp),
		round.Badge,
		created.UTC().Format(timeLayout),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (s *SQLiteStore) RoundSummary(ctx context.Context) (RoundSummary, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COALESCE(SUM(streak), 0),
			COALESCE(SUM(level_up), 0),
			COALESCE(SUM(CASE WHEN badge <> '' THEN 1 ELSE 0 END), 0)
		FROM round_log
	`)
	var out RoundSummary
	if err := row.Scan(&out.Rounds, &out.Streaks, &out.LevelUps, &out.Badges); err != nil {
		return RoundSummary{}, err
	}
	return out, nil
}

func (s *SQLiteStore) RecentRounds(ctx context.Context, limit int) ([]Round, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, task_id, answer_key, answer_label, elapsed_seconds, streak, level_up, badge, created_ts
		FROM round_log
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Round
	for rows.Next() {
		var (
			r          Round
			streakInt  int
			levelUpInt int
			createdRaw string
		)
		if err := rows.Scan(&r.ID, &r.TaskID, &r.AnswerKey, &r.AnswerLabel, &r.ElapsedSeconds, &streakInt, &levelUpInt, &r.Badge, &createdRaw); err != nil {
			return nil, err
		}
		r.Streak = streakInt != 0
		r.LevelUp = levelUpInt != 0
		if t, err := time.Parse(timeLayout, createdRaw); err == nil {
			r.CreatedTS = t
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
