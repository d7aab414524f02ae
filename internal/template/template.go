// Package template manages named bundles of default edit parameters and
// merges them into incoming edit specifications.
package template

import (
	"errors"
	"strings"

	"github.com/maauso/mediaedit-api/internal/edit"
)

// ErrInvalidTemplate is returned when a template cannot be created from the given input.
var ErrInvalidTemplate = errors.New("invalid template")

// Config holds the per-kind defaults of a template.
type Config struct {
	Video edit.Spec `json:"video,omitempty"`
	Image edit.Spec `json:"image,omitempty"`
}

// For returns the defaults for kind. A missing section yields an empty Spec.
func (c Config) For(kind edit.Kind) edit.Spec {
	var s edit.Spec
	switch kind {
	case edit.KindVideo:
		s = c.Video
	case edit.KindImage:
		s = c.Image
	}
	return s.Clone()
}

func (c Config) clone() Config {
	out := Config{}
	if c.Video != nil {
		out.Video = c.Video.Clone()
	}
	if c.Image != nil {
		out.Image = c.Image.Clone()
	}
	return out
}

// Template is a named set of edit defaults.
type Template struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Config Config `json:"config"`
}

// Clone returns a copy whose specs can be modified independently.
func (t Template) Clone() Template {
	return Template{ID: t.ID, Name: t.Name, Config: t.Config.clone()}
}

// size builds a JSON-shaped (width, height) pair.
func size(w, h float64) []any { return []any{w, h} }

// catalog is the built-in template set. It is never persisted or mutated;
// Defaults hands out copies.
var catalog = []Template{
	{
		ID:   "social-short",
		Name: "Social Short",
		Config: Config{
			Video: edit.Spec{"resize": size(1080, 1920), "speed": 1.05, "text": "@yourbrand"},
			Image: edit.Spec{"resize": size(1080, 1080), "filter": "vivid"},
		},
	},
	{
		ID:   "cinematic",
		Name: "Cinematic",
		Config: Config{
			Video: edit.Spec{"resize": size(1920, 1080), "contrast": 1.1, "brightness": 1.05},
			Image: edit.Spec{"filter": "cinematic"},
		},
	},
	{
		ID:   "square-promo",
		Name: "Square Promo",
		Config: Config{
			Video: edit.Spec{"resize": size(1080, 1080), "speed": 1.0, "text": "New Drop"},
			Image: edit.Spec{"resize": size(1080, 1080), "filter": "vivid"},
		},
	},
	{
		ID:   "neon-pop",
		Name: "Neon Pop",
		Config: Config{
			Video: edit.Spec{"resize": size(1080, 1920), "speed": 1.15, "text": "NEW", "contrast": 1.2, "brightness": 1.15},
			Image: edit.Spec{"filter": "vivid", "contrast": 1.2, "brightness": 1.1},
		},
	},
	{
		ID:   "vlog-clean",
		Name: "Vlog Clean",
		Config: Config{
			Video: edit.Spec{"resize": size(1920, 1080), "speed": 1.0, "text": "VLOG", "brightness": 1.05},
			Image: edit.Spec{"brightness": 1.05, "contrast": 1.05},
		},
	},
	{
		ID:   "moody-dark",
		Name: "Moody Dark",
		Config: Config{
			Video: edit.Spec{"contrast": 1.25, "brightness": 0.9},
			Image: edit.Spec{"contrast": 1.25, "brightness": 0.9},
		},
	},
	{
		ID:   "bright-ads",
		Name: "Bright Ads",
		Config: Config{
			Video: edit.Spec{"brightness": 1.2, "contrast": 1.1, "text": "SALE"},
			Image: edit.Spec{"brightness": 1.2, "contrast": 1.1},
		},
	},
	{
		ID:   "soft-film",
		Name: "Soft Film",
		Config: Config{
			Video: edit.Spec{"brightness": 1.05, "contrast": 0.95},
			Image: edit.Spec{"brightness": 1.05, "contrast": 0.95, "blur": 0.5},
		},
	},
}

// Defaults returns a copy of the built-in catalog.
func Defaults() []Template {
	out := make([]Template, len(catalog))
	for i, t := range catalog {
		out[i] = t.Clone()
	}
	return out
}

// CustomID derives the identifier of a user template from its name.
func CustomID(name string) string {
	return strings.ReplaceAll(strings.ToLower(name), " ", "-") + "-custom"
}
