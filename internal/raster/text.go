package raster

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// lineSpacing is the extra gap between lines of multi-line text.
const lineSpacing = 4

// Fonts resolves font faces by family file name, searching a list of
// directories. When the family cannot be found the bundled Go Regular font
// is used at the requested size.
type Fonts struct {
	dirs   []string
	family string
	logger *slog.Logger

	once   sync.Once
	parsed *opentype.Font
}

// NewFonts creates a resolver for family (for example "arial.ttf") in dirs.
func NewFonts(family string, dirs []string, logger *slog.Logger) *Fonts {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fonts{
		dirs:   dirs,
		family: family,
		logger: logger,
	}
}

// Face returns a new face rendering at size pixels. Faces are not safe for
// concurrent use, so every caller gets its own; the parsed font is shared.
// It never fails: if no scalable font can be loaded the fixed 7x13 bitmap
// face is returned.
func (f *Fonts) Face(size int) font.Face {
	f.once.Do(func() { f.parsed = f.load() })
	if f.parsed == nil {
		return basicfont.Face7x13
	}

	face, err := opentype.NewFace(f.parsed, &opentype.FaceOptions{
		Size:    float64(size),
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		f.logger.Warn("create font face failed, using bitmap font",
			slog.Int("size", size),
			slog.String("error", err.Error()),
		)
		return basicfont.Face7x13
	}
	return face
}

func (f *Fonts) load() *opentype.Font {
	if path, err := f.locate(); err == nil {
		data, err := os.ReadFile(path)
		if err == nil {
			parsed, err := opentype.Parse(data)
			if err == nil {
				return parsed
			}
			f.logger.Warn("parse font failed", slog.String("path", path), slog.String("error", err.Error()))
		}
	} else if f.family != "" {
		f.logger.Debug("font not found, using bundled font", slog.String("family", f.family))
	}

	parsed, err := opentype.Parse(goregular.TTF)
	if err != nil {
		f.logger.Warn("parse bundled font failed", slog.String("error", err.Error()))
		return nil
	}
	return parsed
}

var errFontNotFound = errors.New("font not found")

func (f *Fonts) locate() (string, error) {
	if f.family == "" {
		return "", errFontNotFound
	}
	if filepath.IsAbs(f.family) {
		if fileExists(f.family) {
			return f.family, nil
		}
		return "", fmt.Errorf("%w: %s", errFontNotFound, f.family)
	}
	for _, dir := range f.dirs {
		candidate := filepath.Join(dir, f.family)
		if fileExists(candidate) {
			return candidate, nil
		}
		// font files are often shipped with upper-case names
		if candidate = filepath.Join(dir, strings.ToUpper(f.family)); fileExists(candidate) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w: %s", errFontNotFound, f.family)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// DrawText renders text onto dst with the top of its ascender line at pos.
// Lines are separated by "\n".
func DrawText(dst *image.RGBA, text string, pos image.Point, c color.Color, face font.Face) {
	m := face.Metrics()
	lineHeight := m.Height.Ceil() + lineSpacing
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c),
		Face: face,
	}
	for i, line := range strings.Split(text, "\n") {
		d.Dot = fixed.P(pos.X, pos.Y+i*lineHeight+m.Ascent.Ceil())
		d.DrawString(line)
	}
}

// TextLayer renders text on a transparent w x h layer, ready to be
// composited over every frame of a video.
func TextLayer(w, h int, text string, pos image.Point, c color.Color, face font.Face) *image.RGBA {
	layer := image.NewRGBA(image.Rect(0, 0, w, h))
	DrawText(layer, text, pos, c, face)
	return layer
}
