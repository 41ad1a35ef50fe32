package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"labelarcade/internal/api"
	"labelarcade/internal/model"
	"labelarcade/internal/progression"
	"labelarcade/internal/session"
	"labelarcade/internal/telemetry"
	"labelarcade/internal/ui"
)

// fakeView records every call the app makes against the view contract.
type fakeView struct {
	mu sync.Mutex

	screens  []ui.Screen
	notices  []string
	flashes  []string
	modals   []ui.BadgeModalState
	task     ui.TaskState
	history  []ui.HistoryRow
	chart    []ui.ChartBar
	leaders  []ui.LeaderboardRow
	profiles []ui.ProfileState
}

func (f *fakeView) Run() error                  { return nil }
func (f *fakeView) Stop()                       {}
func (f *fakeView) SetController(ui.Controller) {}
func (f *fakeView) SetScreen(s ui.Screen) {
	f.mu.Lock()
	f.screens = append(f.screens, s)
	f.mu.Unlock()
}
func (f *fakeView) SetLoading(bool, string) {}
func (f *fakeView) SetTaskState(s ui.TaskState) {
	f.mu.Lock()
	f.task = s
	f.mu.Unlock()
}
func (f *fakeView) SetBadgeModal(s ui.BadgeModalState) {
	f.mu.Lock()
	f.modals = append(f.modals, s)
	f.mu.Unlock()
}
func (f *fakeView) SetHistory(rows []ui.HistoryRow) {
	f.mu.Lock()
	f.history = rows
	f.mu.Unlock()
}
func (f *fakeView) SetChart(bars []ui.ChartBar) {
	f.mu.Lock()
	f.chart = bars
	f.mu.Unlock()
}
func (f *fakeView) SetLeaderboard(rows []ui.LeaderboardRow) {
	f.mu.Lock()
	f.leaders = rows
	f.mu.Unlock()
}
func (f *fakeView) SetProfileState(s ui.ProfileState) {
	f.mu.Lock()
	f.profiles = append(f.profiles, s)
	f.mu.Unlock()
}
func (f *fakeView) SetNotice(title, text string, open bool) {
	f.mu.Lock()
	f.notices = append(f.notices, title+": "+text)
	f.mu.Unlock()
}
func (f *fakeView) FlashStatus(msg string) {
	f.mu.Lock()
	f.flashes = append(f.flashes, msg)
	f.mu.Unlock()
}
func (f *fakeView) RequestDraw() {}

func (f *fakeView) lastScreen() (ui.Screen, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.screens) == 0 {
		return 0, false
	}
	return f.screens[len(f.screens)-1], true
}

func (f *fakeView) noticeContaining(substr string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, n := range f.notices {
		if strings.Contains(n, substr) {
			return true
		}
	}
	return false
}

// callCounter tallies backend requests by method and path.
type callCounter struct {
	mu    sync.Mutex
	calls map[string]int
}

func (c *callCounter) hit(r *http.Request) {
	c.mu.Lock()
	if c.calls == nil {
		c.calls = map[string]int{}
	}
	c.calls[r.Method+" "+r.URL.Path]++
	c.mu.Unlock()
}

func (c *callCounter) count(key string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[key]
}

func (c *callCounter) total() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, v := range c.calls {
		n += v
	}
	return n
}

func newTestApp(t *testing.T, handler http.Handler) (*App, *fakeView) {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	store, err := session.Open(filepath.Join(t.TempDir(), "session.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	ctx := context.Background()
	if err := store.EnsureSchema(ctx); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}
	if err := store.Load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}

	logger, err := telemetry.NewJSONLogger("", "test")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}

	view := &fakeView{}
	a := &App{
		cfg:    Config{APIBaseURL: srv.URL, APIKey: "k", HTTPTimeoutSec: 5, CelebrationMS: 3000},
		logger: logger,
		store:  store,
		client: api.NewClient(srv.Client(), srv.URL, "k", store),
		badges: progression.BuiltinBadges(),
		view:   view,
	}
	// Long enough that no celebration expires while a test is still asserting.
	a.celebrations = progression.NewCelebrations(time.Minute, nil)
	return a, view
}

func authedApp(t *testing.T, handler http.Handler) (*App, *fakeView) {
	t.Helper()
	a, view := newTestApp(t, handler)
	if err := a.store.SetToken(context.Background(), "tok"); err != nil {
		t.Fatalf("set token: %v", err)
	}
	return a, view
}

func TestLoginWithEmptyPasswordMakesNoNetworkCalls(t *testing.T) {
	counter := &callCounter{}
	a, view := newTestApp(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		counter.hit(r)
	}))

	a.OnLogin("a@b.c", "")

	if counter.total() != 0 {
		t.Fatalf("expected zero backend calls, got %d", counter.total())
	}
	if !view.noticeContaining("Missing Info") {
		t.Fatalf("expected validation notice, got %#v", view.notices)
	}
}

func TestLoginSuccessPersistsTokenAndEntersTask(t *testing.T) {
	a, view := newTestApp(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/login":
			_ = json.NewEncoder(w).Encode(map[string]string{"token": "fresh"})
		case "/tasks/next":
			w.Write([]byte(`{"id": 1, "track_id": 2, "task": {"text": "pick", "choices": {"a": "Cat"}}}`))
		case "/user/profile":
			w.Write([]byte(`{"username": "ace", "level": 1, "xp": 10}`))
		default:
			http.NotFound(w, r)
		}
	}))

	a.OnLogin("a@b.c", "secret")

	if a.store.Token() != "fresh" {
		t.Fatalf("token not persisted: %q", a.store.Token())
	}
	if screen, ok := view.lastScreen(); !ok || screen != ui.ScreenTask {
		t.Fatalf("expected task screen, got %v", screen)
	}
	view.mu.Lock()
	prompt := view.task.Prompt
	view.mu.Unlock()
	if prompt != "pick" {
		t.Fatalf("task state not synced: %q", prompt)
	}
}

func TestLoginRejectionShowsNotice(t *testing.T) {
	a, view := newTestApp(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad credentials", http.StatusUnauthorized)
	}))

	a.OnLogin("a@b.c", "wrong")

	if a.store.Token() != "" {
		t.Fatalf("token must stay empty on rejection")
	}
	if !view.noticeContaining("Login Failed") {
		t.Fatalf("expected failure notice, got %#v", view.notices)
	}
}

func TestSubmitErrorDoesNotReloadProfile(t *testing.T) {
	counter := &callCounter{}
	a, view := authedApp(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		counter.hit(r)
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	a.task = model.Task{ID: "1", TrackID: "9"}
	a.haveTask = true
	a.taskStart = time.Now()

	a.OnAnswer("a")

	if got := counter.count("POST /tasks/9/submit"); got != 1 {
		t.Fatalf("submit calls: %d", got)
	}
	if got := counter.count("GET /user/profile"); got != 0 {
		t.Fatalf("profile must not reload after a failed submit, got %d calls", got)
	}
	if got := counter.count("GET /tasks/next"); got != 0 {
		t.Fatalf("task must not reload after a failed submit, got %d calls", got)
	}
	if !view.noticeContaining("Failed to submit") {
		t.Fatalf("expected submit error notice, got %#v", view.notices)
	}
}

func TestSubmitSuccessCelebratesLogsAndReloads(t *testing.T) {
	counter := &callCounter{}
	a, view := authedApp(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		counter.hit(r)
		switch {
		case r.Method == http.MethodPost:
			_ = json.NewEncoder(w).Encode(map[string]string{
				"message":  "New Streak! Level Up achieved",
				"newBadge": "first_task",
			})
		case r.URL.Path == "/tasks/next":
			w.Write([]byte(`{"id": 2, "track_id": 9, "task": {"text": "next", "choices": {"a": "Cat"}}}`))
		case r.URL.Path == "/user/profile":
			w.Write([]byte(`{"username": "ace", "level": 2, "xp": 60, "streakCount": 2}`))
		default:
			http.NotFound(w, r)
		}
	}))
	a.task = model.Task{ID: "1", TrackID: "9", Choices: map[string]model.Choice{}}
	a.haveTask = true
	a.taskStart = time.Now()

	a.OnAnswer("a")

	if !a.celebrations.Active(progression.EventStreak) || !a.celebrations.Active(progression.EventLevelUp) {
		t.Fatalf("expected streak and level-up celebrations active")
	}
	view.mu.Lock()
	modalShown := false
	for _, m := range view.modals {
		if m.Visible && m.Title == "First Submission!" {
			modalShown = true
		}
	}
	flashes := append([]string(nil), view.flashes...)
	view.mu.Unlock()
	if !modalShown {
		t.Fatalf("expected badge modal, got %#v", view.modals)
	}
	if len(flashes) == 0 || !strings.HasPrefix(flashes[len(flashes)-1], "Answer Submitted") {
		t.Fatalf("flashes: %#v", flashes)
	}

	if got := counter.count("GET /tasks/next"); got != 1 {
		t.Fatalf("next task calls: %d", got)
	}
	if got := counter.count("GET /user/profile"); got != 1 {
		t.Fatalf("profile calls: %d", got)
	}

	sum, err := a.store.RoundSummary(context.Background())
	if err != nil {
		t.Fatalf("round summary: %v", err)
	}
	if sum.Rounds != 1 || sum.Streaks != 1 || sum.LevelUps != 1 || sum.Badges != 1 {
		t.Fatalf("round log: %#v", sum)
	}

	view.mu.Lock()
	lifetime := view.task.LifetimeRounds
	view.mu.Unlock()
	if lifetime != 1 {
		t.Fatalf("hud lifetime rounds: %d", lifetime)
	}
}

func TestHistoryFallsBackToLocalRoundLog(t *testing.T) {
	a, view := authedApp(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	if _, err := a.store.AppendRound(context.Background(), session.Round{
		TaskID: "7", AnswerKey: "a", AnswerLabel: "Cat", ElapsedSeconds: 3,
	}); err != nil {
		t.Fatalf("append round: %v", err)
	}

	a.OnOpenHistory()

	if !view.noticeContaining("Failed to load submission history") {
		t.Fatalf("notices: %#v", view.notices)
	}
	view.mu.Lock()
	rows := append([]ui.HistoryRow(nil), view.history...)
	view.mu.Unlock()
	if len(rows) != 1 {
		t.Fatalf("expected local rounds shown, got %#v", rows)
	}
	if rows[0].TaskID != "7" || rows[0].Answer != "Cat" {
		t.Fatalf("row: %#v", rows[0])
	}
}

func TestAuthFailureRoutesBackToLogin(t *testing.T) {
	a, view := authedApp(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "expired", http.StatusUnauthorized)
	}))

	a.OnOpenHistory()

	if a.store.Token() != "" {
		t.Fatalf("stale token must be cleared")
	}
	if screen, ok := view.lastScreen(); !ok || screen != ui.ScreenLogin {
		t.Fatalf("expected login screen, got %v", screen)
	}
	if !view.noticeContaining("Session Expired") {
		t.Fatalf("notices: %#v", view.notices)
	}
}

func TestOpenChartAggregatesHistory(t *testing.T) {
	a, view := authedApp(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/submissions" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`[
			{"taskId": 1, "answer": "a", "timeTakenInSeconds": 10, "createdAt": "2026-08-01T10:00:00Z"},
			{"taskId": 1, "answer": "b", "timeTakenInSeconds": 20, "createdAt": "2026-08-02T10:00:00Z"},
			{"taskId": 2, "answer": "a", "timeTakenInSeconds": null, "createdAt": "2026-08-03T10:00:00Z"}
		]`))
	}))

	a.OnOpenChart()

	view.mu.Lock()
	bars := append([]ui.ChartBar(nil), view.chart...)
	view.mu.Unlock()
	if len(bars) != 1 {
		t.Fatalf("bars: %#v", bars)
	}
	if bars[0].Label != "1" || bars[0].Value != 15 || bars[0].Samples != 2 {
		t.Fatalf("bar: %#v", bars[0])
	}
}

func TestOnLogoutResetsEverything(t *testing.T) {
	a, view := authedApp(t, http.NotFoundHandler())
	a.profile = model.Profile{Username: "ace"}
	a.haveProfile = true
	a.celebrations.Trigger(progression.Events{Streak: true})

	a.OnLogout()

	if a.store.Token() != "" {
		t.Fatalf("token must be cleared")
	}
	if a.celebrations.AnyActive() {
		t.Fatalf("celebrations must be cancelled")
	}
	if screen, ok := view.lastScreen(); !ok || screen != ui.ScreenLogin {
		t.Fatalf("expected login screen, got %v", screen)
	}
}

func TestOnCompleteOnboardingPersistsAndAdvances(t *testing.T) {
	a, view := newTestApp(t, http.NotFoundHandler())

	a.OnCompleteOnboarding("ace", "avatar2.png")

	sess := a.store.Current()
	if !sess.HasOnboarded || sess.Username != "ace" || sess.Avatar != "avatar2.png" {
		t.Fatalf("session: %#v", sess)
	}
	if screen, ok := view.lastScreen(); !ok || screen != ui.ScreenRegister {
		t.Fatalf("expected register screen, got %v", screen)
	}
}

func TestOnCompleteOnboardingRejectsBlankUsername(t *testing.T) {
	a, view := newTestApp(t, http.NotFoundHandler())

	a.OnCompleteOnboarding("   ", "avatar1.png")

	if a.store.Current().HasOnboarded {
		t.Fatalf("blank username must not complete onboarding")
	}
	if !view.noticeContaining("Missing Info") {
		t.Fatalf("notices: %#v", view.notices)
	}
}

func TestSaveProfileUpdatesLocalIdentity(t *testing.T) {
	a, view := authedApp(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.URL.Path != "/user/profile" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`{"username": "neo", "avatar": "avatar4.png", "level": 3, "xp": 120}`))
	}))

	a.OnSaveProfile("neo", "avatar4.png")

	sess := a.store.Current()
	if sess.Username != "neo" || sess.Avatar != "avatar4.png" {
		t.Fatalf("identity: %#v", sess)
	}
	view.mu.Lock()
	last := view.profiles[len(view.profiles)-1]
	flashed := len(view.flashes) > 0
	view.mu.Unlock()
	if last.Username != "neo" || last.Saving {
		t.Fatalf("profile state: %#v", last)
	}
	if !flashed {
		t.Fatalf("expected a confirmation flash")
	}
}

func TestRunRoutesByLocalState(t *testing.T) {
	a, view := newTestApp(t, http.NotFoundHandler())
	if err := a.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if screen, ok := view.lastScreen(); !ok || screen != ui.ScreenOnboarding {
		t.Fatalf("fresh install must open onboarding, got %v", screen)
	}

	b, viewB := newTestApp(t, http.NotFoundHandler())
	if err := b.store.SetOnboarded(context.Background(), true); err != nil {
		t.Fatalf("set onboarded: %v", err)
	}
	if err := b.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if screen, ok := viewB.lastScreen(); !ok || screen != ui.ScreenLogin {
		t.Fatalf("onboarded install must open login, got %v", screen)
	}
}
