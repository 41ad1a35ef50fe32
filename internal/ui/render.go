package ui

import (
	"fmt"
	"strings"
	"time"

	"charm.land/bubbles/v2/spinner"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"github.com/charmbracelet/x/ansi"
)

func (r *Root) renderLogin() string {
	header := r.theme.Header.Width(max(1, r.cols)).Render("LabelArcade")
	lines := []string{
		r.theme.PanelTitle.Render("Login to LabelArcade"),
		"",
	}
	lines = append(lines, r.formLines(r.loginFields)...)
	lines = append(lines,
		"",
		r.theme.Muted.Render("enter login  |  ctrl+r register  |  ctrl+q quit"),
	)
	panel := r.drawPanel("Login", lines, min(56, r.cols), min(12, r.rows-2))
	body := lipgloss.Place(r.cols, max(1, r.rows-2), lipgloss.Center, lipgloss.Center, panel)
	return header + "\n" + body + "\n" + r.statusText()
}

func (r *Root) renderRegister() string {
	header := r.theme.Header.Width(max(1, r.cols)).Render("LabelArcade - Join")
	lines := []string{
		r.theme.PanelTitle.Render("Join LabelArcade"),
		"",
	}
	lines = append(lines, r.formLines(r.registerFields)...)
	lines = append(lines, "", r.avatarPickerLine(r.focusIndex == len(r.registerFields)))
	lines = append(lines,
		"",
		r.theme.Muted.Render("enter create account  |  ctrl+o login  |  tab next field"),
	)
	panel := r.drawPanel("Register", lines, min(62, r.cols), min(16, r.rows-2))
	body := lipgloss.Place(r.cols, max(1, r.rows-2), lipgloss.Center, lipgloss.Center, panel)
	return header + "\n" + body + "\n" + r.statusText()
}

func (r *Root) renderOnboarding() string {
	header := r.theme.Header.Width(max(1, r.cols)).Render("LabelArcade - Welcome")
	lines := []string{
		r.theme.PanelTitle.Render("Welcome to LabelArcade!"),
		"",
		"Your Username",
		"  " + r.onboardField.input.View(),
		"",
		r.avatarPickerLine(true),
		"",
		r.theme.Muted.Render("left/right pick avatar  |  enter start labeling"),
	}
	panel := r.drawPanel("Onboarding", lines, min(60, r.cols), min(13, r.rows-2))
	body := lipgloss.Place(r.cols, max(1, r.rows-2), lipgloss.Center, lipgloss.Center, panel)
	return header + "\n" + body + "\n" + r.statusText()
}

func (r *Root) formLines(fields []formField) []string {
	lines := make([]string, 0, len(fields)*2)
	for i, f := range fields {
		label := f.label
		if i == r.focusIndex {
			label = r.theme.Accent.Render(label)
		}
		lines = append(lines, label, "  "+f.input.View())
	}
	return lines
}

func (r *Root) avatarPickerLine(focused bool) string {
	label := "Choose Your Avatar"
	if focused {
		label = r.theme.Accent.Render(label)
	}
	var parts []string
	for i, opt := range AvatarOptions() {
		glyph := AvatarGlyph(opt, r.ascii)
		if i == r.avatarIndex {
			glyph = r.theme.Selected.Render(" " + glyph + " ")
		} else {
			glyph = " " + glyph + " "
		}
		parts = append(parts, glyph)
	}
	return label + "  " + strings.Join(parts, " ")
}

func (r *Root) renderTask() string {
	w, h := r.cols, r.rows
	header := r.taskHeaderText()
	bodyH := max(3, h-2)

	var body string
	if DetermineLayoutMode(w, h) == LayoutWide {
		hudW := min(44, max(32, w/3))
		hud := r.drawPanel("Player", splitLines(r.hudText(hudW-4)), hudW, bodyH)
		taskW := max(24, w-lipgloss.Width(hud))
		taskPanel := r.drawPanel("Task", splitLines(r.taskText(taskW-4)), taskW, bodyH)
		body = lipgloss.JoinHorizontal(lipgloss.Top, hud, taskPanel)
	} else {
		hudH := min(10, bodyH/2)
		hud := r.drawPanel("Player", splitLines(r.hudText(w-4)), w, hudH)
		taskPanel := r.drawPanel("Task", splitLines(r.taskText(w-4)), w, bodyH-hudH)
		body = hud + "\n" + taskPanel
	}

	base := header + "\n" + body + "\n" + r.statusText()
	if banner := r.celebrationBanner(); banner != "" {
		row := 1 + int(r.bannerPos*2)
		base = composeOverlayAt(base, banner, w, h, row, max(0, (w-lipgloss.Width(banner))/2))
	}
	return base
}

func (r *Root) taskHeaderText() string {
	width := max(1, r.cols-1)
	elapsed := "0s"
	if !r.task.StartedAt.IsZero() {
		elapsed = time.Since(r.task.StartedAt).Truncate(time.Second).String()
	}
	parts := []string{"LabelArcade", fmt.Sprintf("Task #%s", firstNonEmptyStr(r.task.TaskID, "-")), elapsed}
	if r.task.RoundsPlayed > 0 {
		parts = append(parts, fmt.Sprintf("%d rounds this seat", r.task.RoundsPlayed))
	}
	txt := trimForWidth(strings.Join(parts, " | "), width)
	if r.debug {
		txt = trimForWidth(fmt.Sprintf("%s | %dx%d", txt, r.cols, r.rows), width)
	}
	return r.theme.Header.Width(max(1, r.cols)).Render(txt)
}

func (r *Root) hudText(width int) string {
	var b strings.Builder
	glyph := AvatarGlyph(r.task.Avatar, r.ascii)
	name := firstNonEmptyStr(r.task.Username, "User")
	if glyph != "" {
		b.WriteString(glyph + "  " + name + "\n")
	} else {
		b.WriteString(name + "\n")
	}
	b.WriteString(fmt.Sprintf("Level: %d\n", max(1, r.task.Level)))
	b.WriteString(fmt.Sprintf("XP: %d / %d\n", r.task.XP, r.task.NextCeiling))
	b.WriteString(r.xpBarView(min(28, max(10, width-2)), r.task.Fraction) + "\n")
	b.WriteString(fmt.Sprintf("Score: %d\n", r.task.Score))
	if r.task.ShowStreak {
		b.WriteString(fmt.Sprintf("Streak: %d days\n", r.task.Streak))
	}
	if r.task.CelebrateLevelUp {
		b.WriteString(r.theme.Warn.Render("Level Up!") + "\n")
	}
	if r.task.CelebrateStreak {
		b.WriteString(r.theme.Good.Render("Streak extended!") + "\n")
	}
	if r.task.LifetimeRounds > 0 {
		b.WriteString(r.theme.Muted.Render(fmt.Sprintf("Played here: %d rounds, %d badges", r.task.LifetimeRounds, r.task.LifetimeBadges)) + "\n")
	}
	b.WriteString("\n")
	b.WriteString(r.theme.Muted.Render("h history  c chart  l leaders") + "\n")
	b.WriteString(r.theme.Muted.Render("p profile  ^L logout  ? help") + "\n")
	return b.String()
}

func (r *Root) xpBarView(width int, fraction float64) string {
	m := r.xpBar
	m.SetWidth(max(8, width))
	return m.ViewAs(fraction)
}

func (r *Root) taskText(width int) string {
	if r.loading {
		return strings.TrimSpace(r.loadSpin.View()) + " " + firstNonEmptyStr(r.loadingLabel, "Loading task...")
	}
	if r.task.Prompt == "" && len(r.task.Choices) == 0 {
		return "No task found."
	}
	var b strings.Builder
	for _, line := range wrapText(r.task.Prompt, max(10, width)) {
		b.WriteString(line + "\n")
	}
	if r.task.ImageURL != "" {
		b.WriteString("\n")
		b.WriteString(r.theme.Muted.Render(trimForWidth("[image] "+r.task.ImageURL, max(10, width))) + "\n")
	}
	b.WriteString("\n")
	for i, choice := range r.task.Choices {
		line := fmt.Sprintf("%d. %s", i+1, choice.Label)
		line = trimForWidth(line, max(10, width))
		if i == r.choiceIndex {
			line = r.theme.Selected.Render(line)
		}
		b.WriteString(line + "\n")
	}
	return b.String()
}

func (r *Root) renderHistory() string {
	header := r.theme.Header.Width(max(1, r.cols)).Render("LabelArcade - Submission History")
	var lines []string
	if r.loading {
		lines = []string{strings.TrimSpace(r.loadSpin.View()) + " Loading submission history..."}
	} else if len(r.historyRows) == 0 {
		lines = []string{"No submissions found."}
	} else {
		visible := max(1, (r.rows-6)/3)
		start := min(r.historyIndex, max(0, len(r.historyRows)-visible))
		for i := start; i < len(r.historyRows) && i < start+visible; i++ {
			row := r.historyRows[i]
			marker := "  "
			if i == r.historyIndex {
				marker = "> "
			}
			timeLabel := row.TimeLabel
			if !row.HasTime {
				timeLabel = "N/A"
			}
			lines = append(lines,
				marker+r.theme.PanelTitle.Render("Task "+row.TaskID)+"  "+r.theme.Muted.Render(row.CreatedAt.Local().Format("2006-01-02 15:04")),
				"    Answer: "+firstNonEmptyStr(row.Answer, "N/A"),
				"    Time: "+timeLabel,
			)
		}
	}
	panel := r.drawPanel("History", lines, max(40, r.cols), max(5, r.rows-2))
	return header + "\n" + panel + "\n" + r.statusText()
}

func (r *Root) renderChart() string {
	header := r.theme.Header.Width(max(1, r.cols)).Render("LabelArcade - Average Time per Task (sec)")
	var lines []string
	switch {
	case r.loading:
		lines = []string{strings.TrimSpace(r.loadSpin.View()) + " Loading chart..."}
	case len(r.chartBars) == 0:
		lines = []string{"No data available to display chart."}
	default:
		maxVal := 0.0
		labelW := 0
		for _, bar := range r.chartBars {
			if bar.Value > maxVal {
				maxVal = bar.Value
			}
			if w := len("#" + bar.Label); w > labelW {
				labelW = w
			}
		}
		barSpace := max(10, r.cols-labelW-16)
		fill := "█"
		if r.ascii {
			fill = "#"
		}
		for _, bar := range r.chartBars {
			n := 1
			if maxVal > 0 {
				n = max(1, int(bar.Value/maxVal*float64(barSpace)))
			}
			lines = append(lines, fmt.Sprintf("%-*s %s %.2f (%d)",
				labelW, "#"+bar.Label,
				r.theme.Accent.Render(strings.Repeat(fill, n)),
				bar.Value, bar.Samples))
		}
	}
	panel := r.drawPanel("Average Time", lines, max(40, r.cols), max(5, r.rows-2))
	return header + "\n" + panel + "\n" + r.statusText()
}

func (r *Root) renderLeaderboard() string {
	header := r.theme.Header.Width(max(1, r.cols)).Render("LabelArcade - Leaderboard")
	var lines []string
	switch {
	case r.loading:
		lines = []string{strings.TrimSpace(r.loadSpin.View()) + " Loading leaderboard..."}
	case len(r.leaders) == 0:
		lines = []string{"No data found."}
	default:
		lines = append(lines, fmt.Sprintf("%-6s %-32s %s", "Rank", "Player", "Score"), "")
		for i, row := range r.leaders {
			marker := "  "
			if i == r.leaderIndex {
				marker = "> "
			}
			line := fmt.Sprintf("%s%-4s %-32s %d", marker, medalFor(row.Rank, r.ascii), trimForWidth(row.Name, 32), row.Score)
			if row.Rank <= 3 {
				line = r.theme.Warn.Render(line)
			}
			lines = append(lines, line)
		}
	}
	panel := r.drawPanel("Leaderboard", lines, max(40, r.cols), max(5, r.rows-2))
	return header + "\n" + panel + "\n" + r.statusText()
}

func medalFor(rank int, ascii bool) string {
	if ascii {
		return fmt.Sprintf("%d.", rank)
	}
	switch rank {
	case 1:
		return "🥇"
	case 2:
		return "🥈"
	case 3:
		return "🥉"
	}
	return fmt.Sprintf("%d.", rank)
}

func (r *Root) renderProfile() string {
	header := r.theme.Header.Width(max(1, r.cols)).Render("LabelArcade - Profile")
	p := r.profile

	usernameLabel := "Username"
	if r.focusIndex == 0 {
		usernameLabel = r.theme.Accent.Render(usernameLabel)
	}
	saveHint := "enter save profile"
	if p.Saving {
		saveHint = strings.TrimSpace(r.loadSpin.View()) + " Saving..."
	}
	lines := []string{
		r.theme.PanelTitle.Render("Edit Profile"),
		"",
		usernameLabel,
		"  " + r.profileField.input.View(),
		"",
		r.avatarPickerLine(r.focusIndex == 1),
		"",
		r.theme.Muted.Render(saveHint + "  |  tab switch field  |  esc back"),
		"",
		"Email: " + firstNonEmptyStr(p.Email, "-"),
		fmt.Sprintf("Score: %d", p.Score),
		fmt.Sprintf("XP: %d / %d", p.XP, p.NextCeiling),
		r.xpBarView(28, p.Fraction),
		fmt.Sprintf("Streak: %d days", p.Streak),
	}
	if p.LastSubmission != "" {
		lines = append(lines, "Last Submission: "+p.LastSubmission)
	}
	lines = append(lines, "", r.theme.PanelTitle.Render("My Badges"))
	if len(p.Badges) == 0 {
		lines = append(lines, r.theme.Muted.Render("No badges yet - go earn some!"))
	} else {
		for _, badge := range p.Badges {
			lines = append(lines, r.theme.Good.Render(badge.Title), "  "+r.theme.Muted.Render(badge.Desc))
		}
	}
	panel := r.drawPanel("Profile", lines, min(70, r.cols), max(5, r.rows-2))
	body := lipgloss.Place(r.cols, max(1, r.rows-2), lipgloss.Center, lipgloss.Top, panel)
	return header + "\n" + body + "\n" + r.statusText()
}

func (r *Root) renderOverlay() string {
	switch {
	case r.badgeModal.Visible:
		lines := []string{
			r.theme.OverlayTitle.Render(r.badgeModal.Title),
			"",
		}
		lines = append(lines, wrapText(r.badgeModal.Desc, 44)...)
		lines = append(lines, "", r.theme.Muted.Render("enter Awesome!"))
		return r.theme.Overlay.Render(strings.Join(lines, "\n"))
	case r.noticeOpen:
		lines := []string{r.theme.OverlayTitle.Render(r.noticeTitle), ""}
		lines = append(lines, wrapText(r.noticeText, 50)...)
		lines = append(lines, "", r.theme.Muted.Render("enter dismiss"))
		return r.theme.Overlay.Render(strings.Join(lines, "\n"))
	case r.helpOpen:
		body := helpMD
		if r.markdown != nil {
			if rendered, err := r.markdown.Render(helpMD); err == nil {
				body = rendered
			}
		}
		return r.theme.Overlay.Render(strings.TrimRight(body, "\n"))
	}
	return ""
}

func (r *Root) celebrationBanner() string {
	if !r.celebrationActive() {
		return ""
	}
	var parts []string
	if r.task.CelebrateStreak {
		parts = append(parts, "STREAK!")
	}
	if r.task.CelebrateLevelUp {
		parts = append(parts, "LEVEL UP!")
	}
	if len(parts) == 0 {
		return ""
	}
	spark := "✦ ✧ ✦"
	if r.ascii {
		spark = "* + *"
	}
	txt := spark + "  " + strings.Join(parts, "  ") + "  " + spark
	return r.theme.Selected.Render(" " + txt + " ")
}

func (r *Root) celebrationActive() bool {
	return r.task.CelebrateStreak || r.task.CelebrateLevelUp
}

func (r *Root) statusText() string {
	keys := r.help.View(r.keymap)
	if keys == "" {
		keys = "1-9 Answer  h History  c Chart  l Leaders  p Profile  ^L Logout  ? Help"
	}
	if r.loading {
		keys += " | " + r.theme.Accent.Render(strings.TrimSpace(r.loadSpin.View())+" "+firstNonEmptyStr(r.loadingLabel, "Working..."))
	}
	if r.statusFlash != "" {
		keys += " | " + r.statusFlash
	}
	keys = trimForWidth(keys, max(1, r.cols-1))
	return r.theme.Status.Width(max(1, r.cols)).Render(keys)
}

func (r *Root) drawPanel(title string, lines []string, width, height int) string {
	width = max(4, width)
	height = max(3, height)
	innerW := width - 2
	innerH := height - 2

	h := "─"
	v := "│"
	tl := "┌"
	tr := "┐"
	bl := "└"
	br := "┘"
	if r.ascii {
		h = "-"
		v = "|"
		tl, tr, bl, br = "+", "+", "+", "+"
	}

	top := tl + strings.Repeat(h, innerW) + tr
	if title != "" && innerW > 2 {
		t := " " + title + " "
		runes := []rune(top)
		for i, ch := range []rune(t) {
			pos := 1 + i
			if pos >= len(runes)-1 {
				break
			}
			runes[pos] = ch
		}
		top = string(runes)
	}

	out := make([]string, 0, height)
	out = append(out, r.theme.PanelBorder.Render(top))
	for row := 0; row < innerH; row++ {
		line := ""
		if row < len(lines) {
			line = lines[row]
		}
		line = padRune(line, innerW)
		out = append(out, r.theme.PanelBorder.Render(v)+r.theme.PanelBody.Render(line)+r.theme.PanelBorder.Render(v))
	}
	out = append(out, r.theme.PanelBorder.Render(bl+strings.Repeat(h, innerW)+br))
	return strings.Join(out, "\n")
}

func (r *Root) animateIfNeeded() tea.Cmd {
	target := 0.0
	if r.celebrationActive() {
		target = 1.0
	}
	if r.shouldAnimate(target) {
		return animateTickCmd()
	}
	return nil
}

func (r *Root) shouldAnimate(target float64) bool {
	if target > 0 {
		return r.bannerPos < 0.999 || absFloat(r.bannerVel) > 0.001
	}
	return r.bannerPos > 0.001 || absFloat(r.bannerVel) > 0.001
}

func clockTickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return clockMsg(t) })
}

func animateTickCmd() tea.Cmd {
	return tea.Tick(time.Second/60, func(t time.Time) tea.Msg { return animateMsg(t) })
}

func spinnerTickCmd(model spinner.Model) tea.Cmd {
	return func() tea.Msg {
		return model.Tick()
	}
}

func avatarIndexOf(avatar string) int {
	norm := normalizeAvatar(avatar)
	for i, opt := range AvatarOptions() {
		if opt == norm {
			return i
		}
	}
	return 0
}

func splitLines(s string) []string {
	return strings.Split(strings.TrimSuffix(s, "\n"), "\n")
}

func wrapText(s string, width int) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	words := strings.Fields(s)
	var lines []string
	var cur string
	for _, word := range words {
		if cur == "" {
			cur = word
			continue
		}
		if len(cur)+1+len(word) > width {
			lines = append(lines, cur)
			cur = word
			continue
		}
		cur += " " + word
	}
	if cur != "" {
		lines = append(lines, cur)
	}
	return lines
}

func firstNonEmptyStr(a, b string) string {
	if strings.TrimSpace(a) != "" {
		return a
	}
	return b
}

func wrapIndex(i, n int) int {
	if n <= 0 {
		return 0
	}
	i %= n
	if i < 0 {
		i += n
	}
	return i
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func padRune(s string, width int) string {
	r := []rune(ansi.Strip(s))
	if len(r) >= width {
		return trimForWidth(s, width)
	}
	return s + strings.Repeat(" ", width-len(r))
}

func trimForWidth(s string, width int) string {
	if width <= 0 {
		return ""
	}
	r := []rune(strings.ReplaceAll(ansi.Strip(s), "\n", " "))
	if len(r) <= width {
		return string(r)
	}
	if width == 1 {
		return "…"
	}
	return string(r[:width-1]) + "…"
}

func composeOverlay(base, overlay string, cols, rows int) string {
	if cols <= 0 || rows <= 0 {
		return base
	}
	overlayLines := strings.Split(strings.TrimRight(ansi.Strip(overlay), "\n"), "\n")
	oh := len(overlayLines)
	startRow := (rows - oh) / 2
	return composeOverlayAt(base, overlay, cols, rows, startRow, -1)
}

// composeOverlayAt paints overlay over base at the given cell position.
// Styling is stripped: the composited frame is plain text, same trade the
// terminal pane compositor makes for predictable cell math. startCol < 0
// centers horizontally.
func composeOverlayAt(base, overlay string, cols, rows, startRow, startCol int) string {
	if cols <= 0 || rows <= 0 {
		return base
	}
	base = ansi.Strip(base)
	overlay = ansi.Strip(overlay)
	baseLines := strings.Split(base, "\n")
	if len(baseLines) < rows {
		pad := make([]string, rows-len(baseLines))
		baseLines = append(baseLines, pad...)
	}
	for i := 0; i < rows; i++ {
		baseLines[i] = padRune(baseLines[i], cols)
	}

	overlayLines := strings.Split(strings.TrimRight(overlay, "\n"), "\n")
	if len(overlayLines) == 0 {
		return strings.Join(baseLines[:rows], "\n")
	}
	ow := 1
	for _, line := range overlayLines {
		if lw := len([]rune(line)); lw > ow {
			ow = lw
		}
	}
	if ow > cols {
		ow = cols
	}
	if startCol < 0 {
		startCol = (cols - ow) / 2
	}
	if startRow < 0 {
		startRow = 0
	}
	if startCol < 0 {
		startCol = 0
	}

	for i, line := range overlayLines {
		row := startRow + i
		if row < 0 || row >= rows {
			continue
		}
		dst := []rune(baseLines[row])
		src := []rune(line)
		if len(src) > ow {
			src = src[:ow]
		}
		for j := 0; j < ow && startCol+j < len(dst); j++ {
			dst[startCol+j] = ' '
		}
		for j := 0; j < len(src) && startCol+j < len(dst); j++ {
			dst[startCol+j] = src[j]
		}
		baseLines[row] = string(dst)
	}
	return strings.Join(baseLines[:rows], "\n")
}
