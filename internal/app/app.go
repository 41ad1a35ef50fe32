// Package app wires the LabelArcade client together: it owns the session,
// drives the API client, derives the progression display state, and acts as
// the controller behind the terminal view. Every controller method runs on
// its own goroutine (the view dispatches them that way) and may block on the
// network; the App serializes its own state with a single mutex.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"labelarcade/internal/api"
	"labelarcade/internal/history"
	"labelarcade/internal/model"
	"labelarcade/internal/progression"
	"labelarcade/internal/session"
	"labelarcade/internal/telemetry"
	"labelarcade/internal/ui"

	"github.com/google/uuid"
)

const requestTimeout = 20 * time.Second

type App struct {
	cfg Config

	logger       *telemetry.JSONLogger
	store        session.Store
	client       *api.Client
	badges       *progression.BadgeCatalog
	celebrations *progression.Celebrations
	view         ui.View

	sessionID string

	mu           sync.Mutex
	profile      model.Profile
	haveProfile  bool
	task         model.Task
	haveTask     bool
	taskStart    time.Time
	roundsPlayed int
	summary      session.RoundSummary
	submitting   bool
}

func New(cfg Config) (*App, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, err
	}

	sessionID := uuid.NewString()
	logger, err := telemetry.NewJSONLogger(cfg.LogPath, sessionID)
	if err != nil {
		return nil, err
	}

	store, err := session.Open(filepath.Join(cfg.DataDir, "session.db"))
	if err != nil {
		_ = logger.Close()
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.EnsureSchema(ctx); err != nil {
		_ = store.Close()
		_ = logger.Close()
		return nil, err
	}
	if err := store.Load(ctx); err != nil {
		_ = store.Close()
		_ = logger.Close()
		return nil, err
	}

	badges := progression.BuiltinBadges()
	if cfg.BadgeCatalogPath != "" {
		loaded, err := progression.LoadBadgeCatalog(cfg.BadgeCatalogPath)
		if err != nil {
			logger.Warn("badges.catalog_load_failed", map[string]any{"path": cfg.BadgeCatalogPath, "error": err.Error()})
		} else {
			badges = loaded
		}
	}

	client := api.NewClient(
		&http.Client{Timeout: time.Duration(cfg.HTTPTimeoutSec) * time.Second},
		cfg.APIBaseURL,
		cfg.APIKey,
		store,
	)

	view := ui.New(ui.Options{
		ASCIIOnly:    cfg.ASCIIOnly,
		Debug:        cfg.Debug,
		StyleVariant: cfg.UI.StyleVariant,
	})

	a := &App{
		cfg:       cfg,
		logger:    logger,
		store:     store,
		client:    client,
		badges:    badges,
		view:      view,
		sessionID: sessionID,
	}
	a.celebrations = progression.NewCelebrations(
		time.Duration(cfg.CelebrationMS)*time.Millisecond,
		func() {
			a.syncTaskState()
			view.RequestDraw()
		},
	)
	view.SetController(a)
	return a, nil
}

func (a *App) Run(ctx context.Context) error {
	a.refreshRoundSummary(ctx)
	sess := a.store.Current()
	a.logger.Info("app.start", map[string]any{
		"onboarded": sess.HasOnboarded,
		"has_token": sess.Token != "",
	})

	switch {
	case sess.Token != "":
		a.view.SetScreen(ui.ScreenTask)
		go a.loadRound()
	case sess.HasOnboarded:
		a.view.SetScreen(ui.ScreenLogin)
	default:
		a.view.SetScreen(ui.ScreenOnboarding)
	}

	return a.view.Run()
}

func (a *App) Close() {
	a.celebrations.CancelAll()
	_ = a.store.Close()
	_ = a.logger.Close()
}

// --- auth flows ---

func (a *App) OnLogin(email, password string) {
	if err := requireFields(map[string]string{"email": email, "password": password}); err != nil {
		a.view.SetNotice("Missing Info", "Please enter both email and password", true)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	a.view.SetLoading(true, "Logging in...")
	token, err := a.client.Login(ctx, email, password)
	a.view.SetLoading(false, "")
	if err != nil {
		a.logger.Error("auth.login_failed", map[string]any{"error": err.Error()})
		a.view.SetNotice("Login Failed", userMessage(err), true)
		return
	}
	if err := a.store.SetToken(ctx, token); err != nil {
		a.view.SetNotice("Login Failed", "Could not persist session: "+err.Error(), true)
		return
	}
	a.logger.Info("auth.login", nil)
	a.view.FlashStatus("Welcome, " + email)
	a.view.SetScreen(ui.ScreenTask)
	a.loadRound()
}

func (a *App) OnRegister(email, username, password, avatar string) {
	if err := requireFields(map[string]string{
		"email": email, "username": username, "password": password, "avatar": avatar,
	}); err != nil {
		a.view.SetNotice("Missing Info", "Please fill all fields and choose an avatar", true)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	a.view.SetLoading(true, "Creating account...")
	token, err := a.client.Register(ctx, email, username, password, avatar)
	a.view.SetLoading(false, "")
	if err != nil {
		a.logger.Error("auth.register_failed", map[string]any{"error": err.Error()})
		a.view.SetNotice("Registration Failed", userMessage(err), true)
		return
	}
	if err := a.store.SetToken(ctx, token); err != nil {
		a.view.SetNotice("Registration Failed", "Could not persist session: "+err.Error(), true)
		return
	}
	_ = a.store.SetOnboarded(ctx, true)
	_ = a.store.SetIdentity(ctx, username, avatar)
	a.logger.Info("auth.register", nil)
	a.view.FlashStatus("Welcome to LabelArcade!")
	a.view.SetScreen(ui.ScreenTask)
	a.loadRound()
}

func (a *App) OnCompleteOnboarding(username, avatar string) {
	if err := requireFields(map[string]string{"username": username, "avatar": avatar}); err != nil {
		a.view.SetNotice("Missing Info", "Please enter a username and select an avatar", true)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = a.store.SetOnboarded(ctx, true)
	_ = a.store.SetIdentity(ctx, username, avatar)
	a.view.SetScreen(ui.ScreenRegister)
}

func (a *App) OnOpenLogin() {
	a.view.SetScreen(ui.ScreenLogin)
}

func (a *App) OnOpenRegister() {
	a.view.SetScreen(ui.ScreenRegister)
}

func (a *App) OnLogout() {
	a.celebrations.CancelAll()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.store.ClearToken(ctx); err != nil {
		a.logger.Error("auth.logout_failed", map[string]any{"error": err.Error()})
	}
	a.mu.Lock()
	a.profile = model.Profile{}
	a.haveProfile = false
	a.task = model.Task{}
	a.haveTask = false
	a.roundsPlayed = 0
	a.mu.Unlock()
	a.logger.Info("auth.logout", nil)
	a.view.SetBadgeModal(ui.BadgeModalState{})
	a.view.SetScreen(ui.ScreenLogin)
}

// --- task flow ---

// loadRound fetches the next task and the current profile. The two calls are
// independent; a profile failure degrades the HUD but keeps the round
// playable, matching the phone client.
func (a *App) loadRound() {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	a.view.SetLoading(true, "Loading task...")
	task, err := a.client.NextTask(ctx)
	a.view.SetLoading(false, "")
	if err != nil {
		a.logger.Error("task.load_failed", map[string]any{"error": err.Error()})
		if a.handleAuthFailure(err) {
			return
		}
		a.view.SetNotice("Error", "Failed to load task.", true)
	} else {
		a.mu.Lock()
		a.task = task
		a.haveTask = true
		a.taskStart = time.Now()
		a.mu.Unlock()
	}

	profile, err := a.client.Profile(ctx)
	if err != nil {
		a.logger.Error("profile.load_failed", map[string]any{"error": err.Error()})
	} else {
		a.mu.Lock()
		a.profile = profile
		a.haveProfile = true
		a.mu.Unlock()
	}

	a.syncTaskState()
}

func (a *App) OnAnswer(choiceKey string) {
	a.mu.Lock()
	if !a.haveTask || a.submitting {
		a.mu.Unlock()
		return
	}
	a.submitting = true
	task := a.task
	start := a.taskStart
	a.mu.Unlock()
	defer func() {
		a.mu.Lock()
		a.submitting = false
		a.mu.Unlock()
	}()

	label := choiceKey
	if choice, ok := task.Choices[choiceKey]; ok {
		label = choice.Label()
	}
	elapsed := int(time.Since(start).Seconds())

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	result, err := a.client.SubmitAnswer(ctx, task.TrackID, choiceKey, task.ID, elapsed)
	if err != nil {
		a.logger.Error("task.submit_failed", map[string]any{"task": task.ID, "error": err.Error()})
		if a.handleAuthFailure(err) {
			return
		}
		// Submission failed: no profile reload, the round stays live for a
		// manual retry.
		a.view.SetNotice("Error", "Failed to submit answer.", true)
		return
	}

	events := progression.Classify(result)
	a.logger.Info("task.submitted", map[string]any{
		"task":     task.ID,
		"elapsed":  elapsed,
		"streak":   events.Streak,
		"level_up": events.LevelUp,
		"badge":    events.Badge,
	})

	a.celebrations.Trigger(events)
	if events.HasBadge {
		info := a.badges.Lookup(events.Badge)
		a.view.SetBadgeModal(ui.BadgeModalState{Visible: true, Title: info.Title, Desc: info.Desc})
	}

	if _, err := a.store.AppendRound(ctx, session.Round{
		TaskID:         task.ID,
		AnswerKey:      choiceKey,
		AnswerLabel:    label,
		ElapsedSeconds: elapsed,
		Streak:         events.Streak,
		LevelUp:        events.LevelUp,
		Badge:          events.Badge,
	}); err != nil {
		a.logger.Warn("round_log.append_failed", map[string]any{"error": err.Error()})
	}
	a.mu.Lock()
	a.roundsPlayed++
	a.mu.Unlock()
	a.refreshRoundSummary(ctx)

	a.view.FlashStatus("Answer Submitted: " + label)

	// Next round, then the refreshed profile; the profile reload must come
	// after the submit settled so the HUD reflects server-side XP/level/badge
	// updates.
	a.loadRound()
}

func (a *App) OnDismissBadge() {
	a.celebrations.DismissBadge()
	a.view.SetBadgeModal(ui.BadgeModalState{})
}

func (a *App) OnBackToTask() {
	a.view.SetScreen(ui.ScreenTask)
	a.syncTaskState()
}

// --- secondary screens ---

func (a *App) OnOpenHistory() {
	a.leaveTaskScreen(ui.ScreenHistory)
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	a.view.SetLoading(true, "Loading submission history...")
	records, err := a.client.SubmissionHistory(ctx)
	a.view.SetLoading(false, "")
	if err != nil {
		a.logger.Error("history.load_failed", map[string]any{"error": err.Error()})
		if a.handleAuthFailure(err) {
			return
		}
		a.view.SetNotice("Error", "Failed to load submission history", true)
		a.showLocalHistory(ctx)
		return
	}

	rows := make([]ui.HistoryRow, 0, len(records))
	for _, rec := range records {
		row := ui.HistoryRow{
			TaskID:    firstNonEmpty(rec.TaskID.String(), "N/A"),
			Answer:    rec.Answer,
			CreatedAt: rec.CreatedAt,
		}
		if rec.TimeTakenInSeconds != nil {
			row.HasTime = true
			row.TimeLabel = fmt.Sprintf("%.0f sec", *rec.TimeTakenInSeconds)
		}
		rows = append(rows, row)
	}
	a.view.SetHistory(rows)
}

func (a *App) OnOpenChart() {
	a.leaveTaskScreen(ui.ScreenChart)
	if a.store.Token() == "" {
		a.view.SetNotice("Session Expired", "Please login again.", true)
		a.view.SetScreen(ui.ScreenLogin)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	a.view.SetLoading(true, "Loading chart...")
	records, err := a.client.SubmissionHistory(ctx)
	a.view.SetLoading(false, "")
	if err != nil {
		a.logger.Error("chart.load_failed", map[string]any{"error": err.Error()})
		if a.handleAuthFailure(err) {
			return
		}
		a.view.SetNotice("Error", "Failed to load chart data.", true)
		return
	}

	averages := history.AverageTimes(records)
	bars := make([]ui.ChartBar, 0, len(averages))
	for _, avg := range averages {
		bars = append(bars, ui.ChartBar{Label: avg.TaskID, Value: avg.AvgTime, Samples: avg.Samples})
	}
	a.view.SetChart(bars)
}

func (a *App) OnOpenLeaderboard() {
	a.leaveTaskScreen(ui.ScreenLeaderboard)
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	a.view.SetLoading(true, "Loading leaderboard...")
	entries, err := a.client.Leaderboard(ctx)
	a.view.SetLoading(false, "")
	if err != nil {
		a.logger.Error("leaderboard.load_failed", map[string]any{"error": err.Error()})
		if a.handleAuthFailure(err) {
			return
		}
		a.view.SetNotice("Error", "Failed to load leaderboard", true)
		return
	}

	rows := make([]ui.LeaderboardRow, 0, len(entries))
	for i, entry := range entries {
		rows = append(rows, ui.LeaderboardRow{
			Rank:  i + 1,
			Name:  entry.DisplayName(),
			Score: entry.Score,
		})
	}
	a.view.SetLeaderboard(rows)
}

func (a *App) OnOpenProfile() {
	a.leaveTaskScreen(ui.ScreenProfile)
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	a.view.SetLoading(true, "Loading profile...")
	profile, err := a.client.Profile(ctx)
	a.view.SetLoading(false, "")
	if err != nil {
		a.logger.Error("profile.load_failed", map[string]any{"error": err.Error()})
		if a.handleAuthFailure(err) {
			return
		}
		a.view.SetNotice("Error", "Failed to fetch profile", true)
		return
	}

	a.mu.Lock()
	a.profile = profile
	a.haveProfile = true
	a.mu.Unlock()
	a.view.SetProfileState(a.profileState(profile, false))
}

func (a *App) OnSaveProfile(username, avatar string) {
	if err := requireFields(map[string]string{"username": username}); err != nil {
		a.view.SetNotice("Missing Info", "Username cannot be empty", true)
		return
	}
	a.mu.Lock()
	current := a.profile
	a.mu.Unlock()
	a.view.SetProfileState(a.profileState(current, true))

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	profile, err := a.client.UpdateProfile(ctx, model.ProfileUpdate{
		Username: &username,
		Avatar:   &avatar,
	})
	if err != nil {
		a.logger.Error("profile.save_failed", map[string]any{"error": err.Error()})
		a.view.SetProfileState(a.profileState(current, false))
		if a.handleAuthFailure(err) {
			return
		}
		a.view.SetNotice("Error", "Failed to update profile.", true)
		return
	}

	_ = a.store.SetIdentity(ctx, profile.Username, profile.Avatar)
	a.mu.Lock()
	a.profile = profile
	a.haveProfile = true
	a.mu.Unlock()
	a.view.SetProfileState(a.profileState(profile, false))
	a.view.FlashStatus("Profile Updated!")
	a.syncTaskState()
}

func (a *App) OnQuit() {
	a.logger.Info("app.quit", nil)
	a.view.Stop()
}

// --- helpers ---

// leaveTaskScreen switches screens and cancels any pending celebration so no
// timer fires into a view that is gone.
func (a *App) leaveTaskScreen(to ui.Screen) {
	a.celebrations.CancelAll()
	a.view.SetBadgeModal(ui.BadgeModalState{})
	a.view.SetScreen(to)
}

// showLocalHistory fills the history screen from the local round log when the
// server copy cannot be fetched.
func (a *App) showLocalHistory(ctx context.Context) {
	rounds, err := a.store.RecentRounds(ctx, 50)
	if err != nil || len(rounds) == 0 {
		return
	}
	rows := make([]ui.HistoryRow, 0, len(rounds))
	for _, r := range rounds {
		rows = append(rows, ui.HistoryRow{
			TaskID:    r.TaskID,
			Answer:    firstNonEmpty(r.AnswerLabel, r.AnswerKey),
			TimeLabel: fmt.Sprintf("%d sec", r.ElapsedSeconds),
			HasTime:   true,
			CreatedAt: r.CreatedTS,
		})
	}
	a.view.SetHistory(rows)
}

func (a *App) refreshRoundSummary(ctx context.Context) {
	sum, err := a.store.RoundSummary(ctx)
	if err != nil {
		return
	}
	a.mu.Lock()
	a.summary = sum
	a.mu.Unlock()
}

// handleAuthFailure routes 401/403 back to the login screen. Returns true
// when it consumed the error.
func (a *App) handleAuthFailure(err error) bool {
	var authErr *api.AuthError
	if !errors.As(err, &authErr) {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = a.store.ClearToken(ctx)
	a.celebrations.CancelAll()
	a.view.SetNotice("Session Expired", "Please login again.", true)
	a.view.SetScreen(ui.ScreenLogin)
	return true
}

func (a *App) syncTaskState() {
	a.mu.Lock()
	profile := a.profile
	haveProfile := a.haveProfile
	task := a.task
	start := a.taskStart
	rounds := a.roundsPlayed
	summary := a.summary
	a.mu.Unlock()

	sess := a.store.Current()
	username := firstNonEmpty(profile.Username, sess.Username, "User")
	avatar := firstNonEmpty(profile.Avatar, sess.Avatar)
	level := profile.Level
	if !haveProfile || level < 1 {
		level = 1
	}
	bar := progression.ComputeXPBar(profile.XP, level)

	choices := make([]ui.ChoiceRow, 0, len(task.Choices))
	for _, key := range sortedKeys(task.Choices) {
		choices = append(choices, ui.ChoiceRow{Key: key, Label: task.Choices[key].Label()})
	}

	a.view.SetTaskState(ui.TaskState{
		Username:         username,
		Avatar:           avatar,
		Level:            level,
		XP:               profile.XP,
		NextCeiling:      bar.NextCeiling,
		Fraction:         bar.Fraction,
		Score:            profile.Score,
		Streak:           profile.StreakCount,
		ShowStreak:       progression.StreakVisible(profile.StreakCount),
		CelebrateStreak:  a.celebrations.Active(progression.EventStreak),
		CelebrateLevelUp: a.celebrations.Active(progression.EventLevelUp),
		TaskID:           task.ID,
		Prompt:           task.Prompt,
		ImageURL:         task.ImageURL,
		Choices:          choices,
		RoundsPlayed:     rounds,
		LifetimeRounds:   summary.Rounds,
		LifetimeBadges:   summary.Badges,
		StartedAt:        start,
	})
}

func (a *App) profileState(profile model.Profile, saving bool) ui.ProfileState {
	level := profile.Level
	if level < 1 {
		level = 1
	}
	bar := progression.ComputeXPBar(profile.XP, level)

	badges := make([]ui.BadgeRow, 0, len(profile.Badges))
	for _, key := range profile.Badges {
		info := a.badges.Lookup(key)
		badges = append(badges, ui.BadgeRow{Title: info.Title, Desc: info.Desc})
	}

	state := ui.ProfileState{
		Email:       profile.Email,
		Username:    profile.Username,
		Avatar:      profile.Avatar,
		Score:       profile.Score,
		XP:          profile.XP,
		Level:       level,
		NextCeiling: bar.NextCeiling,
		Fraction:    bar.Fraction,
		Streak:      profile.StreakCount,
		Badges:      badges,
		Saving:      saving,
	}
	if profile.LastSubmissionDate != nil {
		state.LastSubmission = profile.LastSubmissionDate.Local().Format("2006-01-02")
	}
	return state
}

// requireFields returns a ValidationError for the first empty field. The
// check runs before any network call is made.
func requireFields(fields map[string]string) error {
	for name, value := range fields {
		if strings.TrimSpace(value) == "" {
			return &api.ValidationError{Field: name, Reason: "must not be empty"}
		}
	}
	return nil
}

// userMessage maps an API error to the text shown in a notice.
func userMessage(err error) string {
	var authErr *api.AuthError
	if errors.As(err, &authErr) {
		return "Invalid credentials"
	}
	var transportErr *api.TransportError
	if errors.As(err, &transportErr) {
		return "Cannot reach the server. Check your connection and try again."
	}
	var serverErr *api.ServerError
	if errors.As(err, &serverErr) {
		if serverErr.Body != "" {
			return serverErr.Body
		}
		return fmt.Sprintf("Server error (status %d)", serverErr.Status)
	}
	return err.Error()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func sortedKeys(m map[string]model.Choice) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
