package template

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/maauso/mediaedit-api/internal/edit"
)

func TestDefaults_Catalog(t *testing.T) {
	defaults := Defaults()

	ids := make([]string, len(defaults))
	for i, tpl := range defaults {
		ids[i] = tpl.ID
	}
	assert.Equal(t, []string{
		"social-short", "cinematic", "square-promo", "neon-pop",
		"vlog-clean", "moody-dark", "bright-ads", "soft-film",
	}, ids)
}

func TestDefaults_ReturnsCopies(t *testing.T) {
	first := Defaults()
	first[0].Config.Video["speed"] = 99.0
	first[0].Name = "changed"

	second := Defaults()
	assert.Equal(t, 1.05, second[0].Config.Video["speed"])
	assert.Equal(t, "Social Short", second[0].Name)
}

func TestConfigFor(t *testing.T) {
	cfg := Config{Video: edit.Spec{"speed": 2.0}}

	assert.Equal(t, edit.Spec{"speed": 2.0}, cfg.For(edit.KindVideo))
	assert.Empty(t, cfg.For(edit.KindImage))
}

func TestCustomID(t *testing.T) {
	assert.Equal(t, "my-promo-custom", CustomID("My Promo"))
	assert.Equal(t, "x-custom", CustomID("x"))
}
