package ui

import (
	"fmt"
	"os"
	"runtime/debug"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"charm.land/bubbles/v2/help"
	"charm.land/bubbles/v2/key"
	"charm.land/bubbles/v2/progress"
	"charm.land/bubbles/v2/spinner"
	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/harmonica"
	clog "github.com/charmbracelet/log"
)

type applyMsg struct {
	fn func(*Root)
}

type drawMsg struct{}
type clockMsg time.Time
type animateMsg time.Time

type arcadeKeyMap struct {
	Answer      key.Binding
	History     key.Binding
	Chart       key.Binding
	Leaderboard key.Binding
	Profile     key.Binding
	Back        key.Binding
	Logout      key.Binding
	Help        key.Binding
}

func (k arcadeKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Answer, k.History, k.Chart, k.Leaderboard, k.Profile, k.Logout, k.Help}
}

func (k arcadeKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Answer, k.History, k.Chart, k.Leaderboard}, {k.Profile, k.Back, k.Logout, k.Help}}
}

const helpMD = `# How to play

Each round shows a labeling prompt with numbered choices. Press the number of
your answer to submit it; the elapsed time is reported with your submission.

Correct streaks of consecutive days, level-ups every 50 XP and one-time badges
are celebrated as they happen. Your score and the leaderboard are maintained
by the server.

* **1-9** answer the current task
* **h** submission history, **c** average-time chart, **l** leaderboard
* **p** profile editor
* **esc** back to the task screen
* **ctrl+l** logout, **ctrl+q** quit
`

type formField struct {
	label string
	input textinput.Model
}

type Root struct {
	theme   Theme
	ascii   bool
	debug   bool
	variant string
	ctrl    Controller

	mu      sync.Mutex
	program *tea.Program
	running bool

	screen Screen
	layout LayoutMode
	cols   int
	rows   int

	loading      bool
	loadingLabel string
	statusFlash  string

	task        TaskState
	badgeModal  BadgeModalState
	historyRows []HistoryRow
	chartBars   []ChartBar
	leaders     []LeaderboardRow
	profile     ProfileState

	noticeTitle string
	noticeText  string
	noticeOpen  bool
	helpOpen    bool

	loginFields    []formField
	registerFields []formField
	onboardField   formField
	profileField   formField
	focusIndex     int
	avatarIndex    int
	choiceIndex    int
	historyIndex   int
	leaderIndex    int

	help     help.Model
	keymap   arcadeKeyMap
	xpBar    progress.Model
	loadSpin spinner.Model
	markdown *glamour.TermRenderer
	logger   *clog.Logger

	bannerPos float64
	bannerVel float64
	spring    harmonica.Spring

	drawPending atomic.Bool
}

type Options struct {
	ASCIIOnly    bool
	Debug        bool
	StyleVariant string
}

func New(opts Options) *Root {
	logger := clog.NewWithOptions(os.Stderr, clog.Options{Prefix: "labelarcade-ui", Level: clog.WarnLevel})
	if opts.Debug {
		logger.SetLevel(clog.DebugLevel)
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithWordWrap(72),
	)
	if err != nil {
		renderer = nil
	}

	h := help.New()
	h.Styles = help.DefaultDarkStyles()

	theme := ThemeForVariant(opts.StyleVariant)
	xpBar := progress.New(
		progress.WithWidth(30),
		progress.WithColors(lipgloss.Color("#5EC2FF"), lipgloss.Color("#67F0A8")),
		progress.WithScaled(true),
	)
	loadSpin := spinner.New(
		spinner.WithSpinner(spinner.MiniDot),
		spinner.WithStyle(theme.Accent),
	)

	r := &Root{
		theme:    theme,
		ascii:    opts.ASCIIOnly,
		debug:    opts.Debug,
		variant:  opts.StyleVariant,
		screen:   ScreenLogin,
		layout:   LayoutWide,
		cols:     100,
		rows:     30,
		help:     h,
		xpBar:    xpBar,
		loadSpin: loadSpin,
		markdown: renderer,
		logger:   logger,
		spring:   harmonica.NewSpring(harmonica.FPS(60), 8.0, 0.7),
	}
	r.keymap = arcadeKeyMap{
		Answer:      key.NewBinding(key.WithKeys("1", "2", "3", "4", "5", "6", "7", "8", "9"), key.WithHelp("1-9", "Answer")),
		History:     key.NewBinding(key.WithKeys("h"), key.WithHelp("h", "History")),
		Chart:       key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "Chart")),
		Leaderboard: key.NewBinding(key.WithKeys("l"), key.WithHelp("l", "Leaders")),
		Profile:     key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "Profile")),
		Back:        key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "Back")),
		Logout:      key.NewBinding(key.WithKeys("ctrl+l"), key.WithHelp("^L", "Logout")),
		Help:        key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "Help")),
	}
	r.buildForms()
	return r
}

func (r *Root) buildForms() {
	mk := func(label, placeholder string, password bool) formField {
		ti := textinput.New()
		ti.Placeholder = placeholder
		ti.CharLimit = 120
		if password {
			ti.EchoMode = textinput.EchoPassword
		}
		return formField{label: label, input: ti}
	}
	r.loginFields = []formField{
		mk("Email", "you@example.com", false),
		mk("Password", "", true),
	}
	r.registerFields = []formField{
		mk("Email", "you@example.com", false),
		mk("Username", "player one", false),
		mk("Password", "", true),
	}
	r.onboardField = mk("Username", "pick a name", false)
	r.profileField = mk("Username", "", false)
	r.focusForm()
}

func (r *Root) Init() tea.Cmd {
	return tea.Batch(clockTickCmd(), spinnerTickCmd(r.loadSpin))
}

func (r *Root) Update(msg tea.Msg) (model tea.Model, cmd tea.Cmd) {
	defer func() {
		if rec := recover(); rec != nil {
			r.onModelPanic("update", rec, msg)
			model = r
			cmd = nil
		}
	}()

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		r.cols = msg.Width
		r.rows = msg.Height
		r.layout = DetermineLayoutMode(r.cols, r.rows)
		return r, nil
	case applyMsg:
		if msg.fn != nil {
			msg.fn(r)
		}
		return r, r.animateIfNeeded()
	case drawMsg:
		r.drawPending.Store(false)
		return r, nil
	case clockMsg:
		return r, clockTickCmd()
	case animateMsg:
		target := 0.0
		if r.celebrationActive() {
			target = 1.0
		}
		r.bannerPos, r.bannerVel = r.spring.Update(r.bannerPos, r.bannerVel, target)
		if r.shouldAnimate(target) {
			return r, animateTickCmd()
		}
		r.bannerPos = target
		r.bannerVel = 0
		return r, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		r.loadSpin, cmd = r.loadSpin.Update(msg)
		return r, cmd
	case tea.KeyPressMsg:
		return r.handleKey(msg)
	}
	return r, nil
}

func (r *Root) View() (view tea.View) {
	defer func() {
		if rec := recover(); rec != nil {
			r.onModelPanic("view", rec, nil)
			v := tea.NewView("UI recovered from a rendering panic. Check logs.")
			v.AltScreen = true
			view = v
		}
	}()

	if r.cols < 1 {
		r.cols = 100
	}
	if r.rows < 1 {
		r.rows = 30
	}

	var base string
	if DetermineLayoutMode(r.cols, r.rows) == LayoutTooSmall {
		panel := r.drawPanel("Resize Required", []string{
			"Terminal too small",
			fmt.Sprintf("Current: %dx%d", r.cols, r.rows),
			"Minimum: 60x20",
		}, min(50, r.cols), min(8, r.rows))
		base = lipgloss.Place(r.cols, r.rows, lipgloss.Center, lipgloss.Center, panel)
	} else {
		switch r.screen {
		case ScreenLogin:
			base = r.renderLogin()
		case ScreenRegister:
			base = r.renderRegister()
		case ScreenOnboarding:
			base = r.renderOnboarding()
		case ScreenHistory:
			base = r.renderHistory()
		case ScreenChart:
			base = r.renderChart()
		case ScreenLeaderboard:
			base = r.renderLeaderboard()
		case ScreenProfile:
			base = r.renderProfile()
		default:
			base = r.renderTask()
		}
		if overlay := r.renderOverlay(); overlay != "" {
			base = composeOverlay(base, overlay, r.cols, r.rows)
		}
	}

	v := tea.NewView(base)
	v.AltScreen = true
	return v
}

func (r *Root) Run() error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return nil
	}
	p := tea.NewProgram(r)
	r.program = p
	r.running = true
	r.mu.Unlock()

	_, err := p.Run()

	r.mu.Lock()
	r.program = nil
	r.running = false
	r.mu.Unlock()
	return err
}

func (r *Root) Stop() {
	r.mu.Lock()
	p := r.program
	r.mu.Unlock()
	if p != nil {
		p.Quit()
	}
}

func (r *Root) SetController(c Controller) {
	r.ctrl = c
}

func (r *Root) SetScreen(screen Screen) {
	r.apply(func(m *Root) {
		if m.screen != screen {
			m.logger.Debug("screen change", "from", m.screen, "to", screen)
		}
		m.screen = screen
		m.focusIndex = 0
		m.choiceIndex = 0
		m.historyIndex = 0
		m.leaderIndex = 0
		m.helpOpen = false
		switch screen {
		case ScreenProfile:
			m.profileField.input.SetValue(m.profile.Username)
			m.avatarIndex = avatarIndexOf(m.profile.Avatar)
		case ScreenOnboarding, ScreenRegister:
			m.avatarIndex = 0
		}
		m.focusForm()
	})
}

func (r *Root) SetLoading(loading bool, label string) {
	r.apply(func(m *Root) {
		m.loading = loading
		m.loadingLabel = label
	})
}

func (r *Root) SetTaskState(s TaskState) {
	r.apply(func(m *Root) {
		m.task = s
		if m.choiceIndex >= len(s.Choices) {
			m.choiceIndex = 0
		}
	})
}

func (r *Root) SetBadgeModal(state BadgeModalState) {
	r.apply(func(m *Root) {
		m.badgeModal = state
	})
}

func (r *Root) SetHistory(rows []HistoryRow) {
	r.apply(func(m *Root) {
		m.historyRows = append([]HistoryRow(nil), rows...)
		m.historyIndex = 0
	})
}

func (r *Root) SetChart(bars []ChartBar) {
	r.apply(func(m *Root) {
		m.chartBars = append([]ChartBar(nil), bars...)
	})
}

func (r *Root) SetLeaderboard(rows []LeaderboardRow) {
	r.apply(func(m *Root) {
		m.leaders = append([]LeaderboardRow(nil), rows...)
		m.leaderIndex = 0
	})
}

func (r *Root) SetProfileState(s ProfileState) {
	r.apply(func(m *Root) {
		m.profile = s
		if m.screen == ScreenProfile && !s.Saving {
			m.profileField.input.SetValue(s.Username)
			m.avatarIndex = avatarIndexOf(s.Avatar)
		}
	})
}

func (r *Root) SetNotice(title, text string, open bool) {
	r.apply(func(m *Root) {
		m.noticeTitle = title
		m.noticeText = text
		m.noticeOpen = open
	})
}

func (r *Root) FlashStatus(msg string) {
	r.apply(func(m *Root) {
		m.statusFlash = msg
	})
}

func (r *Root) RequestDraw() {
	r.mu.Lock()
	p := r.program
	running := r.running
	r.mu.Unlock()
	if !running || p == nil {
		return
	}
	if !r.drawPending.CompareAndSwap(false, true) {
		return
	}
	time.AfterFunc(16*time.Millisecond, func() {
		r.mu.Lock()
		p := r.program
		running := r.running
		r.mu.Unlock()
		if !running || p == nil {
			r.drawPending.Store(false)
			return
		}
		p.Send(drawMsg{})
	})
}

func (r *Root) apply(fn func(*Root)) {
	if fn == nil {
		return
	}
	r.mu.Lock()
	p := r.program
	running := r.running
	if !running || p == nil {
		fn(r)
		r.mu.Unlock()
		return
	}
	r.mu.Unlock()
	p.Send(applyMsg{fn: fn})
}

func (r *Root) dispatchController(fn func(Controller)) {
	if fn == nil || r.ctrl == nil {
		return
	}
	ctrl := r.ctrl
	go fn(ctrl)
}

func (r *Root) handleKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, key.NewBinding(key.WithKeys("ctrl+q"))) {
		r.dispatchController(func(c Controller) { c.OnQuit() })
		return r, nil
	}

	if r.badgeModal.Visible {
		switch msg.String() {
		case "enter", "esc", " ":
			r.dispatchController(func(c Controller) { c.OnDismissBadge() })
		}
		return r, nil
	}
	if r.noticeOpen {
		switch msg.String() {
		case "enter", "esc":
			r.noticeOpen = false
		}
		return r, nil
	}
	if r.helpOpen {
		r.helpOpen = false
		return r, nil
	}

	switch r.screen {
	case ScreenLogin:
		return r.handleLoginKey(msg)
	case ScreenRegister:
		return r.handleRegisterKey(msg)
	case ScreenOnboarding:
		return r.handleOnboardingKey(msg)
	case ScreenHistory, ScreenChart, ScreenLeaderboard:
		return r.handleBrowseKey(msg)
	case ScreenProfile:
		return r.handleProfileKey(msg)
	default:
		return r.handleTaskKey(msg)
	}
}

func (r *Root) handleLoginKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "tab", "down":
		r.focusIndex = wrapIndex(r.focusIndex+1, len(r.loginFields))
		r.focusForm()
		return r, nil
	case "shift+tab", "up":
		r.focusIndex = wrapIndex(r.focusIndex-1, len(r.loginFields))
		r.focusForm()
		return r, nil
	case "enter":
		email := strings.TrimSpace(r.loginFields[0].input.Value())
		password := r.loginFields[1].input.Value()
		r.dispatchController(func(c Controller) { c.OnLogin(email, password) })
		return r, nil
	case "ctrl+r":
		r.dispatchController(func(c Controller) { c.OnOpenRegister() })
		return r, nil
	}
	return r, r.updateFocusedInput(msg, r.loginFields)
}

func (r *Root) handleRegisterKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	fields := len(r.registerFields) + 1 // avatar picker is the last stop
	switch msg.String() {
	case "tab", "down":
		r.focusIndex = wrapIndex(r.focusIndex+1, fields)
		r.focusForm()
		return r, nil
	case "shift+tab", "up":
		r.focusIndex = wrapIndex(r.focusIndex-1, fields)
		r.focusForm()
		return r, nil
	case "enter":
		email := strings.TrimSpace(r.registerFields[0].input.Value())
		username := strings.TrimSpace(r.registerFields[1].input.Value())
		password := r.registerFields[2].input.Value()
		avatar := AvatarOptions()[r.avatarIndex]
		r.dispatchController(func(c Controller) { c.OnRegister(email, username, password, avatar) })
		return r, nil
	case "ctrl+o":
		r.dispatchController(func(c Controller) { c.OnOpenLogin() })
		return r, nil
	}
	if r.focusIndex == len(r.registerFields) {
		switch msg.String() {
		case "left":
			r.avatarIndex = wrapIndex(r.avatarIndex-1, len(AvatarOptions()))
		case "right":
			r.avatarIndex = wrapIndex(r.avatarIndex+1, len(AvatarOptions()))
		}
		return r, nil
	}
	return r, r.updateFocusedInput(msg, r.registerFields)
}

func (r *Root) handleOnboardingKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "left":
		r.avatarIndex = wrapIndex(r.avatarIndex-1, len(AvatarOptions()))
		return r, nil
	case "right":
		r.avatarIndex = wrapIndex(r.avatarIndex+1, len(AvatarOptions()))
		return r, nil
	case "enter":
		username := strings.TrimSpace(r.onboardField.input.Value())
		avatar := AvatarOptions()[r.avatarIndex]
		r.dispatchController(func(c Controller) { c.OnCompleteOnboarding(username, avatar) })
		return r, nil
	}
	var cmd tea.Cmd
	r.onboardField.input, cmd = r.onboardField.input.Update(msg)
	return r, cmd
}

func (r *Root) handleTaskKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	s := msg.String()
	if len(s) == 1 && s[0] >= '1' && s[0] <= '9' {
		idx := int(s[0] - '1')
		if idx < len(r.task.Choices) {
			choice := r.task.Choices[idx].Key
			r.dispatchController(func(c Controller) { c.OnAnswer(choice) })
		}
		return r, nil
	}
	switch s {
	case "up", "k":
		if len(r.task.Choices) > 0 {
			r.choiceIndex = wrapIndex(r.choiceIndex-1, len(r.task.Choices))
		}
	case "down", "j":
		if len(r.task.Choices) > 0 {
			r.choiceIndex = wrapIndex(r.choiceIndex+1, len(r.task.Choices))
		}
	case "enter":
		if r.choiceIndex < len(r.task.Choices) {
			choice := r.task.Choices[r.choiceIndex].Key
			r.dispatchController(func(c Controller) { c.OnAnswer(choice) })
		}
	case "h":
		r.dispatchController(func(c Controller) { c.OnOpenHistory() })
	case "c":
		r.dispatchController(func(c Controller) { c.OnOpenChart() })
	case "l":
		r.dispatchController(func(c Controller) { c.OnOpenLeaderboard() })
	case "p":
		r.dispatchController(func(c Controller) { c.OnOpenProfile() })
	case "ctrl+l":
		r.dispatchController(func(c Controller) { c.OnLogout() })
	case "?":
		r.helpOpen = true
	}
	return r, nil
}

func (r *Root) handleBrowseKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "q":
		r.dispatchController(func(c Controller) { c.OnBackToTask() })
	case "up", "k":
		if r.screen == ScreenHistory {
			r.historyIndex = max(0, r.historyIndex-1)
		}
		if r.screen == ScreenLeaderboard {
			r.leaderIndex = max(0, r.leaderIndex-1)
		}
	case "down", "j":
		if r.screen == ScreenHistory && r.historyIndex < len(r.historyRows)-1 {
			r.historyIndex++
		}
		if r.screen == ScreenLeaderboard && r.leaderIndex < len(r.leaders)-1 {
			r.leaderIndex++
		}
	}
	return r, nil
}

func (r *Root) handleProfileKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		r.dispatchController(func(c Controller) { c.OnBackToTask() })
		return r, nil
	case "tab", "shift+tab":
		r.focusIndex = wrapIndex(r.focusIndex+1, 2)
		r.focusForm()
		return r, nil
	case "enter":
		username := strings.TrimSpace(r.profileField.input.Value())
		avatar := AvatarOptions()[r.avatarIndex]
		r.dispatchController(func(c Controller) { c.OnSaveProfile(username, avatar) })
		return r, nil
	}
	if r.focusIndex == 1 {
		switch msg.String() {
		case "left":
			r.avatarIndex = wrapIndex(r.avatarIndex-1, len(AvatarOptions()))
		case "right":
			r.avatarIndex = wrapIndex(r.avatarIndex+1, len(AvatarOptions()))
		}
		return r, nil
	}
	var cmd tea.Cmd
	r.profileField.input, cmd = r.profileField.input.Update(msg)
	return r, cmd
}

func (r *Root) updateFocusedInput(msg tea.KeyPressMsg, fields []formField) tea.Cmd {
	if r.focusIndex >= len(fields) {
		return nil
	}
	var cmd tea.Cmd
	fields[r.focusIndex].input, cmd = fields[r.focusIndex].input.Update(msg)
	return cmd
}

func (r *Root) focusForm() {
	blurAll := func(fields []formField) {
		for i := range fields {
			fields[i].input.Blur()
		}
	}
	blurAll(r.loginFields)
	blurAll(r.registerFields)
	r.onboardField.input.Blur()
	r.profileField.input.Blur()

	switch r.screen {
	case ScreenLogin:
		if r.focusIndex < len(r.loginFields) {
			r.loginFields[r.focusIndex].input.Focus()
		}
	case ScreenRegister:
		if r.focusIndex < len(r.registerFields) {
			r.registerFields[r.focusIndex].input.Focus()
		}
	case ScreenOnboarding:
		r.onboardField.input.Focus()
	case ScreenProfile:
		if r.focusIndex == 0 {
			r.profileField.input.Focus()
		}
	}
}

func (r *Root) onModelPanic(where string, recovered any, msg tea.Msg) {
	if r.statusFlash == "" {
		r.statusFlash = "Recovered UI panic"
	}

	msgType := ""
	if msg != nil {
		msgType = fmt.Sprintf("%T", msg)
	}
	r.logger.Error("ui panic recovered",
		"where", where,
		"panic", fmt.Sprintf("%v", recovered),
		"messageType", msgType,
		"screen", r.screen,
		"cols", r.cols,
		"rows", r.rows,
		"stack", string(debug.Stack()),
	)
}

var _ tea.Model = (*Root)(nil)
var _ View = (*Root)(nil)
