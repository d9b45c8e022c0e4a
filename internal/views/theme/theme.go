// Package theme holds the colour palettes selectable as colorTheme.
package theme

import (
	"strings"

	"homedeck/models"
)

// Option represents a selectable palette exposed to the UI.
type Option struct {
	Value string
	Label string
}

// Palette contains the accent colours of one colour theme. Blobs are the
// four background blob colours cycled by index.
type Palette struct {
	Key    string
	Label  string
	Brand  string
	Accent string
	Blobs  [4]string
}

// DefaultKey is the fallback palette.
const DefaultKey = models.ColorAurora

var catalogue = map[string]Palette{
	models.ColorAurora:   {Key: models.ColorAurora, Label: "Aurora", Brand: "#22d3ee", Accent: "#a78bfa", Blobs: [4]string{"#22d3ee", "#a78bfa", "#34d399", "#60a5fa"}},
	models.ColorSunset:   {Key: models.ColorSunset, Label: "Sunset", Brand: "#fb923c", Accent: "#f472b6", Blobs: [4]string{"#fb923c", "#f472b6", "#facc15", "#f87171"}},
	models.ColorOcean:    {Key: models.ColorOcean, Label: "Ocean", Brand: "#0ea5e9", Accent: "#14b8a6", Blobs: [4]string{"#0ea5e9", "#14b8a6", "#6366f1", "#38bdf8"}},
	models.ColorForest:   {Key: models.ColorForest, Label: "Forest", Brand: "#22c55e", Accent: "#84cc16", Blobs: [4]string{"#22c55e", "#84cc16", "#15803d", "#a3e635"}},
	models.ColorEmber:    {Key: models.ColorEmber, Label: "Ember", Brand: "#ef4444", Accent: "#f97316", Blobs: [4]string{"#ef4444", "#f97316", "#b91c1c", "#fbbf24"}},
	models.ColorLavender: {Key: models.ColorLavender, Label: "Lavender", Brand: "#a78bfa", Accent: "#e879f9", Blobs: [4]string{"#a78bfa", "#e879f9", "#c4b5fd", "#818cf8"}},
	models.ColorMidnight: {Key: models.ColorMidnight, Label: "Midnight", Brand: "#6366f1", Accent: "#1e3a8a", Blobs: [4]string{"#6366f1", "#1e3a8a", "#312e81", "#4f46e5"}},
	models.ColorRose:     {Key: models.ColorRose, Label: "Rose", Brand: "#f43f5e", Accent: "#fb7185", Blobs: [4]string{"#f43f5e", "#fb7185", "#be123c", "#fda4af"}},
}

// Resolve returns the palette registered for key, or the default palette.
func Resolve(key string) Palette {
	normalized := strings.ToLower(strings.TrimSpace(key))
	if value, ok := catalogue[normalized]; ok {
		return value
	}
	return catalogue[DefaultKey]
}

// Options lists the palettes in the order of models.ColorThemes.
func Options() []Option {
	keys := models.ColorThemes()
	out := make([]Option, 0, len(keys))
	for _, key := range keys {
		out = append(out, Option{Value: key, Label: catalogue[key].Label})
	}
	return out
}
