package ui

import lipgloss "charm.land/lipgloss/v2"

type Theme struct {
	Header       lipgloss.Style
	Status       lipgloss.Style
	PanelTitle   lipgloss.Style
	PanelBorder  lipgloss.Style
	PanelBody    lipgloss.Style
	Overlay      lipgloss.Style
	OverlayTitle lipgloss.Style
	Accent       lipgloss.Style
	Good         lipgloss.Style
	Bad          lipgloss.Style
	Warn         lipgloss.Style
	Muted        lipgloss.Style
	Selected     lipgloss.Style
}

func DefaultTheme() Theme {
	return ThemeForVariant("arcade")
}

func ThemeForVariant(variant string) Theme {
	if variant == "paper" {
		return paperTheme()
	}
	return arcadeTheme()
}

func arcadeTheme() Theme {
	gold := lipgloss.Color("#FFC857")
	mint := lipgloss.Color("#67F0A8")
	coral := lipgloss.Color("#FF6F91")
	ink := lipgloss.Color("#101828")
	slate := lipgloss.Color("#1C2A44")
	powder := lipgloss.Color("#EAF2FF")
	cyan := lipgloss.Color("#5EEBFF")
	border := lipgloss.Color("#4B5F8A")

	return Theme{
		Header:      lipgloss.NewStyle().Background(ink).Foreground(powder).Padding(0, 1),
		Status:      lipgloss.NewStyle().Background(slate).Foreground(powder).Padding(0, 1),
		PanelTitle:  lipgloss.NewStyle().Foreground(cyan).Bold(true),
		PanelBorder: lipgloss.NewStyle().Foreground(border),
		PanelBody:   lipgloss.NewStyle().Foreground(powder),
		Overlay: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(cyan).
			Background(ink).
			Foreground(powder).
			Padding(1, 2),
		OverlayTitle: lipgloss.NewStyle().Foreground(cyan).Bold(true),
		Accent:       lipgloss.NewStyle().Foreground(cyan).Bold(true),
		Good:         lipgloss.NewStyle().Foreground(mint).Bold(true),
		Bad:          lipgloss.NewStyle().Foreground(coral).Bold(true),
		Warn:         lipgloss.NewStyle().Foreground(gold),
		Muted:        lipgloss.NewStyle().Foreground(lipgloss.Color("#9CAAC6")),
		Selected:     lipgloss.NewStyle().Foreground(ink).Background(cyan).Bold(true),
	}
}

func paperTheme() Theme {
	honey := lipgloss.Color("#C98A2D")
	moss := lipgloss.Color("#4F8A5B")
	clay := lipgloss.Color("#B4524B")
	paper := lipgloss.Color("#FBF7EF")
	ink := lipgloss.Color("#2B2B28")
	line := lipgloss.Color("#C9BFA9")

	return Theme{
		Header:      lipgloss.NewStyle().Background(ink).Foreground(paper).Padding(0, 1),
		Status:      lipgloss.NewStyle().Background(line).Foreground(ink).Padding(0, 1),
		PanelTitle:  lipgloss.NewStyle().Foreground(honey).Bold(true),
		PanelBorder: lipgloss.NewStyle().Foreground(line),
		PanelBody:   lipgloss.NewStyle().Foreground(ink),
		Overlay: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(honey).
			Background(paper).
			Foreground(ink).
			Padding(1, 2),
		OverlayTitle: lipgloss.NewStyle().Foreground(honey).Bold(true),
		Accent:       lipgloss.NewStyle().Foreground(honey).Bold(true),
		Good:         lipgloss.NewStyle().Foreground(moss).Bold(true),
		Bad:          lipgloss.NewStyle().Foreground(clay).Bold(true),
		Warn:         lipgloss.NewStyle().Foreground(honey),
		Muted:        lipgloss.NewStyle().Foreground(lipgloss.Color("#8A8474")),
		Selected:     lipgloss.NewStyle().Foreground(paper).Background(honey).Bold(true),
	}
}

// AvatarGlyph maps a stored avatar id to its terminal rendering.
func AvatarGlyph(avatar string, ascii bool) string {
	glyphs := map[string]string{
		"avatar1.png": "ᕕ(⌐■_■)ᕗ",
		"avatar2.png": "(=^･ω･^=)",
		"avatar3.png": "ʕ•ᴥ•ʔ",
		"avatar4.png": "(⌐°□°)",
	}
	asciiGlyphs := map[string]string{
		"avatar1.png": "[:D]",
		"avatar2.png": "[=^.^=]",
		"avatar3.png": "[o.o]",
		"avatar4.png": "[>_<]",
	}
	m := glyphs
	if ascii {
		m = asciiGlyphs
	}
	if g, ok := m[normalizeAvatar(avatar)]; ok {
		return g
	}
	return ""
}

// AvatarOptions lists the selectable avatar ids in display order.
func AvatarOptions() []string {
	return []string{"avatar1.png", "avatar2.png", "avatar3.png", "avatar4.png"}
}

// normalizeAvatar strips the asset-path prefix older accounts stored
// ("../assets/avatar1.png") down to the bare id.
func normalizeAvatar(avatar string) string {
	for i := len(avatar) - 1; i >= 0; i-- {
		if avatar[i] == '/' {
			return avatar[i+1:]
		}
	}
	return avatar
}
