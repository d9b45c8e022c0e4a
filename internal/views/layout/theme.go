package layout

import (
	"sort"

	"homedeck/models"
)

// ThemeDefinition describes a light/dark mode.
type ThemeDefinition struct {
	ID        string
	Label     string
	Icon      string
	BodyClass string
}

var themeRegistry = map[string]ThemeDefinition{
	models.ThemeDark: {
		ID:        models.ThemeDark,
		Label:     "Dark",
		Icon:      "fa-solid fa-moon",
		BodyClass: "min-h-screen bg-slate-950 text-slate-100",
	},
	models.ThemeLight: {
		ID:        models.ThemeLight,
		Label:     "Light",
		Icon:      "fa-solid fa-sun",
		BodyClass: "min-h-screen bg-stone-50 text-stone-900 light",
	},
}

// ThemeByID returns the definition of id, falling back to dark.
func ThemeByID(id string) ThemeDefinition {
	if def, ok := themeRegistry[id]; ok {
		return def
	}
	return themeRegistry[models.ThemeDark]
}

// ThemeOptions lists the modes sorted by label.
func ThemeOptions() []ThemeDefinition {
	options := make([]ThemeDefinition, 0, len(themeRegistry))
	for _, def := range themeRegistry {
		options = append(options, def)
	}
	sort.Slice(options, func(i, j int) bool {
		return options[i].Label < options[j].Label
	})
	return options
}

// Toggled returns the opposite mode.
func Toggled(theme string) string {
	if theme == models.ThemeLight {
		return models.ThemeDark
	}
	return models.ThemeLight
}
