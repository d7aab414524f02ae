package edit

import (
	"fmt"
	"log/slog"
	"os"
)

// Text overlay defaults.
const (
	DefaultFontSize  = 48
	DefaultTextColor = "white"
)

// DefaultTextPos is where text is anchored when text_pos is not given.
var DefaultTextPos = Point{X: 20, Y: 20}

type filterDefault struct {
	key   string
	value float64
}

// filterDefaults holds the color values a named filter implies.
var filterDefaults = map[string][]filterDefault{
	"vivid": {
		{KeyBrightness, 1.10},
		{KeyContrast, 1.10},
		{KeySaturation, 1.15},
	},
	"cinematic": {
		{KeyContrast, 1.20},
		{KeyBrightness, 0.98},
		{KeySaturation, 0.90},
	},
}

// ApplyFilter returns a copy of spec with the defaults of its named filter
// filled in for keys that are not already present. Unknown filters are ignored.
func ApplyFilter(spec Spec) Spec {
	out := spec.Clone()
	name, _ := out[KeyFilter].(string)
	for _, d := range filterDefaults[name] {
		if !out.Has(d.key) {
			out[d.key] = d.value
		}
	}
	return out
}

// Compiler turns edit specifications into ordered transform steps.
type Compiler struct {
	exists func(path string) bool
	logger *slog.Logger
}

// CompilerOption configures a Compiler.
type CompilerOption func(*Compiler)

// WithAssetCheck replaces the check used to decide whether an overlay asset exists.
func WithAssetCheck(fn func(path string) bool) CompilerOption {
	return func(c *Compiler) {
		c.exists = fn
	}
}

// WithLogger sets the logger used to report skipped steps.
func WithLogger(logger *slog.Logger) CompilerOption {
	return func(c *Compiler) {
		c.logger = logger
	}
}

// NewCompiler creates a Compiler that checks overlay assets on the local filesystem.
func NewCompiler(opts ...CompilerOption) *Compiler {
	c := &Compiler{
		exists: fileExists,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compile is a convenience wrapper around a default Compiler.
func Compile(spec Spec, kind Kind) ([]Step, error) {
	return NewCompiler().Compile(spec, kind)
}

// Compile resolves spec into the canonical step sequence for kind:
// filter defaults, geometry (image: resize, crop; video: trim, speed, resize),
// color (brightness, contrast, saturation), image blur, then compositing
// (text, and overlay for video). The order does not depend on key order in spec.
func (c *Compiler) Compile(spec Spec, kind Kind) ([]Step, error) {
	if kind != KindVideo && kind != KindImage {
		return nil, &ValidationError{Reason: fmt.Sprintf("unknown media kind %q", kind)}
	}
	spec = ApplyFilter(spec)

	var steps []Step
	add := func(s Step) { steps = append(steps, s) }

	if kind == KindVideo {
		if v, ok := spec[KeyTrim]; ok {
			r, err := ParseRange(KeyTrim, v)
			if err != nil {
				return nil, err
			}
			add(Step{Op: OpTrim, Range: r})
		}
		if v, ok := spec[KeySpeed]; ok {
			f, err := ParseFloat(KeySpeed, v)
			if err != nil {
				return nil, err
			}
			if f <= 0 {
				return nil, invalid(KeySpeed, "must be positive")
			}
			add(Step{Op: OpSpeed, Factor: f})
		}
	}

	if v, ok := spec[KeyResize]; ok {
		size, err := ParseSize(KeyResize, v)
		if err != nil {
			return nil, err
		}
		add(Step{Op: OpResize, Size: size})
	}

	if kind == KindImage {
		if v, ok := spec[KeyCrop]; ok {
			box, err := ParseBox(KeyCrop, v)
			if err != nil {
				return nil, err
			}
			add(Step{Op: OpCrop, Box: box})
		}
	}

	for _, adj := range []struct {
		key string
		op  Op
	}{
		{KeyBrightness, OpBrightness},
		{KeyContrast, OpContrast},
		{KeySaturation, OpSaturation},
	} {
		v, ok := spec[adj.key]
		if !ok {
			continue
		}
		f, err := ParseFloat(adj.key, v)
		if err != nil {
			return nil, err
		}
		add(Step{Op: adj.op, Factor: f})
	}

	if kind == KindImage && truthy(spec[KeyBlur]) {
		radius, err := ParseFloat(KeyBlur, spec[KeyBlur])
		if err != nil {
			return nil, err
		}
		if radius < 0 {
			return nil, invalid(KeyBlur, "radius must not be negative")
		}
		if radius > 0 {
			add(Step{Op: OpBlur, Factor: radius})
		}
	}

	if v, ok := spec[KeyText]; ok {
		text, err := c.textParams(spec, v)
		if err != nil {
			return nil, err
		}
		add(Step{Op: OpText, Text: text})
	}

	if kind == KindVideo {
		if v, ok := spec[KeyOverlay]; ok {
			path, isString := v.(string)
			switch {
			case !isString:
				return nil, invalid(KeyOverlay, "expected a file path, got %T", v)
			case !c.exists(path):
				c.logger.Warn("overlay asset not found, skipping",
					slog.String("path", path),
				)
			default:
				add(Step{Op: OpOverlay, Path: path})
			}
		}
	}

	return steps, nil
}

func (c *Compiler) textParams(spec Spec, v any) (*TextParams, error) {
	p := &TextParams{
		Text: stringify(v),
		Size: DefaultFontSize,
		Pos:  DefaultTextPos,
	}
	if raw, ok := spec[KeyFontSize]; ok {
		size, err := ParseInt(KeyFontSize, raw)
		if err != nil {
			return nil, err
		}
		if size <= 0 {
			return nil, invalid(KeyFontSize, "must be positive")
		}
		p.Size = size
	}
	colorName := DefaultTextColor
	if raw, ok := spec[KeyTextColor]; ok {
		s, isString := raw.(string)
		if !isString {
			return nil, invalid(KeyTextColor, "expected a color string, got %T", raw)
		}
		colorName = s
	}
	col, err := ParseColor(KeyTextColor, colorName)
	if err != nil {
		return nil, err
	}
	p.Color = col
	if raw, ok := spec[KeyTextPos]; ok {
		pos, err := ParsePoint(KeyTextPos, raw)
		if err != nil {
			return nil, err
		}
		p.Pos = pos
	}
	return p, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
