package edit

import (
	"errors"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noAssets(string) bool  { return false }
func allAssets(string) bool { return true }

func TestCompile_EmptySpec(t *testing.T) {
	for _, kind := range []Kind{KindVideo, KindImage} {
		t.Run(string(kind), func(t *testing.T) {
			steps, err := Compile(Spec{}, kind)
			require.NoError(t, err)
			assert.Empty(t, steps)
		})
	}
}

func TestCompile_UnknownKind(t *testing.T) {
	_, err := Compile(Spec{}, Kind("audio"))
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestCompile_FilterDoesNotOverrideExplicit(t *testing.T) {
	spec := Spec{"filter": "vivid", "brightness": 0.5}

	steps, err := Compile(spec, KindImage)
	require.NoError(t, err)

	require.Equal(t, []Op{OpBrightness, OpContrast, OpSaturation}, Ops(steps))
	assert.Equal(t, 0.5, steps[0].Factor)
	assert.Equal(t, 1.10, steps[1].Factor)
	assert.Equal(t, 1.15, steps[2].Factor)

	// the caller's spec is left untouched
	assert.Len(t, spec, 2)
}

func TestCompile_CinematicFilter(t *testing.T) {
	steps, err := Compile(Spec{"filter": "cinematic"}, KindVideo)
	require.NoError(t, err)

	require.Equal(t, []Op{OpBrightness, OpContrast, OpSaturation}, Ops(steps))
	assert.Equal(t, 0.98, steps[0].Factor)
	assert.Equal(t, 1.20, steps[1].Factor)
	assert.Equal(t, 0.90, steps[2].Factor)
}

func TestCompile_UnknownFilterIgnored(t *testing.T) {
	steps, err := Compile(Spec{"filter": "sepia"}, KindImage)
	require.NoError(t, err)
	assert.Empty(t, steps)

	steps, err = Compile(Spec{"filter": 3.0}, KindImage)
	require.NoError(t, err)
	assert.Empty(t, steps)
}

func TestCompile_ColorOrderIsFixed(t *testing.T) {
	spec := Spec{"saturation": 1.2, "brightness": 1.1, "contrast": 0.9}

	for i := 0; i < 20; i++ {
		steps, err := Compile(spec, KindVideo)
		require.NoError(t, err)
		assert.Equal(t, []Op{OpBrightness, OpContrast, OpSaturation}, Ops(steps))
	}
}

func TestCompile_VideoOrder(t *testing.T) {
	c := NewCompiler(WithAssetCheck(allAssets))
	spec := Spec{
		"overlay":    "/assets/logo.png",
		"text":       "hello",
		"saturation": 1.1,
		"resize":     []any{640.0, 360.0},
		"speed":      2.0,
		"trim":       []any{1.0, 4.0},
		"brightness": 1.2,
		"crop":       []any{0.0, 0.0, 10.0, 10.0},
		"blur":       2.0,
	}

	steps, err := c.Compile(spec, KindVideo)
	require.NoError(t, err)

	assert.Equal(t, []Op{
		OpTrim, OpSpeed, OpResize,
		OpBrightness, OpSaturation,
		OpText, OpOverlay,
	}, Ops(steps))
	assert.Equal(t, 1.0, steps[0].Range.Start)
	require.NotNil(t, steps[0].Range.End)
	assert.Equal(t, 4.0, *steps[0].Range.End)
	assert.Equal(t, Size{Width: 640, Height: 360}, steps[2].Size)
	assert.Equal(t, "/assets/logo.png", steps[6].Path)
}

func TestCompile_ImageOrder(t *testing.T) {
	spec := Spec{
		"text":     "caption",
		"blur":     1.5,
		"crop":     []any{10.0, 20.0, 110.0, 70.0},
		"contrast": 1.3,
		"resize":   []any{200.0, 100.0},
		"trim":     []any{0.0, 1.0},
		"speed":    2.0,
		"overlay":  "/assets/logo.png",
	}

	steps, err := NewCompiler(WithAssetCheck(allAssets)).Compile(spec, KindImage)
	require.NoError(t, err)

	assert.Equal(t, []Op{OpResize, OpCrop, OpContrast, OpBlur, OpText}, Ops(steps))
	assert.Equal(t, Box{Left: 10, Top: 20, Right: 110, Bottom: 70}, steps[1].Box)
	assert.Equal(t, 1.5, steps[3].Factor)
}

func TestCompile_BlurSkippedWhenFalsy(t *testing.T) {
	for _, v := range []any{0.0, "", nil, false, "0"} {
		steps, err := Compile(Spec{"blur": v}, KindImage)
		require.NoError(t, err, "blur=%v", v)
		assert.Empty(t, steps, "blur=%v", v)
	}
}

func TestCompile_TextDefaults(t *testing.T) {
	steps, err := Compile(Spec{"text": "hi"}, KindImage)
	require.NoError(t, err)
	require.Len(t, steps, 1)

	text := steps[0].Text
	require.NotNil(t, text)
	assert.Equal(t, "hi", text.Text)
	assert.Equal(t, 48, text.Size)
	assert.Equal(t, color.NRGBA{R: 255, G: 255, B: 255, A: 255}, text.Color)
	assert.Equal(t, Point{X: 20, Y: 20}, text.Pos)
}

func TestCompile_TextParams(t *testing.T) {
	spec := Spec{
		"text":       "Sale",
		"font_size":  "64",
		"text_color": "#ff000080",
		"text_pos":   []any{5.0, 7.0},
	}
	steps, err := Compile(spec, KindVideo)
	require.NoError(t, err)
	require.Len(t, steps, 1)

	text := steps[0].Text
	assert.Equal(t, 64, text.Size)
	assert.Equal(t, color.NRGBA{R: 255, A: 128}, text.Color)
	assert.Equal(t, Point{X: 5, Y: 7}, text.Pos)
}

func TestCompile_MissingOverlaySkipped(t *testing.T) {
	steps, err := NewCompiler(WithAssetCheck(noAssets)).Compile(Spec{"overlay": "/missing.png"}, KindVideo)
	require.NoError(t, err)
	assert.Empty(t, steps)
}

func TestCompile_OpenEndedTrim(t *testing.T) {
	steps, err := Compile(Spec{"trim": []any{2.5, nil}}, KindVideo)
	require.NoError(t, err)
	require.Len(t, steps, 1)
	assert.Equal(t, 2.5, steps[0].Range.Start)
	assert.Nil(t, steps[0].Range.End)
}

func TestCompile_NumericStrings(t *testing.T) {
	steps, err := Compile(Spec{"brightness": "1.5", "resize": []any{"100", 50.0}}, KindImage)
	require.NoError(t, err)
	require.Equal(t, []Op{OpResize, OpBrightness}, Ops(steps))
	assert.Equal(t, Size{Width: 100, Height: 50}, steps[0].Size)
	assert.Equal(t, 1.5, steps[1].Factor)
}

func TestCompile_ValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		spec Spec
		kind Kind
		key  string
	}{
		{"resize not a list", Spec{"resize": "big"}, KindImage, KeyResize},
		{"resize wrong arity", Spec{"resize": []any{100.0}}, KindImage, KeyResize},
		{"resize non-positive", Spec{"resize": []any{0.0, 10.0}}, KindVideo, KeyResize},
		{"resize too large", Spec{"resize": []any{20000.0, 10.0}}, KindImage, KeyResize},
		{"crop huge box", Spec{"crop": []any{0.0, 0.0, 2147483648.0, 2147483648.0}}, KindImage, KeyCrop},
		{"crop wider than limit", Spec{"crop": []any{-10000.0, 0.0, 10000.0, 10.0}}, KindImage, KeyCrop},
		{"text pos far away", Spec{"text": "x", "text_pos": []any{1e12, 0.0}}, KindImage, KeyTextPos},
		{"crop inverted", Spec{"crop": []any{50.0, 0.0, 10.0, 10.0}}, KindImage, KeyCrop},
		{"brightness not numeric", Spec{"brightness": "bright"}, KindImage, KeyBrightness},
		{"contrast wrong type", Spec{"contrast": []any{1.0}}, KindVideo, KeyContrast},
		{"trim end before start", Spec{"trim": []any{5.0, 1.0}}, KindVideo, KeyTrim},
		{"trim negative", Spec{"trim": []any{-1.0, 1.0}}, KindVideo, KeyTrim},
		{"speed zero", Spec{"speed": 0.0}, KindVideo, KeySpeed},
		{"blur negative", Spec{"blur": -2.0}, KindImage, KeyBlur},
		{"bad color", Spec{"text": "x", "text_color": "not-a-color"}, KindImage, KeyTextColor},
		{"bad text pos", Spec{"text": "x", "text_pos": []any{1.0}}, KindImage, KeyTextPos},
		{"bad font size", Spec{"text": "x", "font_size": "big"}, KindImage, KeyFontSize},
		{"overlay not a path", Spec{"overlay": 12.0}, KindVideo, KeyOverlay},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewCompiler(WithAssetCheck(allAssets)).Compile(tc.spec, tc.kind)
			require.Error(t, err)

			var verr *ValidationError
			require.True(t, errors.As(err, &verr), "expected ValidationError, got %T", err)
			assert.Equal(t, tc.key, verr.Key)
		})
	}
}

func TestApplyFilter(t *testing.T) {
	out := ApplyFilter(Spec{"filter": "vivid", "contrast": 2.0})
	assert.Equal(t, 1.10, out[KeyBrightness])
	assert.Equal(t, 2.0, out[KeyContrast])
	assert.Equal(t, 1.15, out[KeySaturation])
}
