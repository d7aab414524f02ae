package edit

import (
	"fmt"
	"image/color"
)

// Op identifies a transform step.
type Op string

const (
	OpTrim       Op = "trim"
	OpSpeed      Op = "speed"
	OpResize     Op = "resize"
	OpCrop       Op = "crop"
	OpBrightness Op = "brightness"
	OpContrast   Op = "contrast"
	OpSaturation Op = "saturation"
	OpBlur       Op = "blur"
	OpText       Op = "text"
	OpOverlay    Op = "overlay"
)

// TextParams describes a text overlay.
type TextParams struct {
	Text  string
	Size  int
	Color color.NRGBA
	Pos   Point
}

// Step is one compiled transform. Only the fields relevant to Op are set.
type Step struct {
	Op Op
	// Size is the target of OpResize.
	Size Size
	// Box is the rectangle of OpCrop.
	Box Box
	// Range is the window of OpTrim.
	Range Range
	// Factor is the multiplier of OpSpeed, OpBrightness, OpContrast and
	// OpSaturation, and the radius of OpBlur.
	Factor float64
	// Text is set for OpText.
	Text *TextParams
	// Path is the image composited by OpOverlay.
	Path string
}

// Timeline reports whether the step changes timing or frame geometry of a
// video, as opposed to per-frame pixel work.
func (s Step) Timeline() bool {
	switch s.Op {
	case OpTrim, OpSpeed, OpResize:
		return true
	}
	return false
}

func (s Step) String() string {
	switch s.Op {
	case OpTrim:
		if s.Range.End == nil {
			return fmt.Sprintf("trim(%g, end)", s.Range.Start)
		}
		return fmt.Sprintf("trim(%g, %g)", s.Range.Start, *s.Range.End)
	case OpResize:
		return fmt.Sprintf("resize(%dx%d)", s.Size.Width, s.Size.Height)
	case OpCrop:
		return fmt.Sprintf("crop(%d,%d,%d,%d)", s.Box.Left, s.Box.Top, s.Box.Right, s.Box.Bottom)
	case OpText:
		return fmt.Sprintf("text(%q)", s.Text.Text)
	case OpOverlay:
		return fmt.Sprintf("overlay(%s)", s.Path)
	}
	return fmt.Sprintf("%s(%g)", s.Op, s.Factor)
}

// Ops lists the operations of steps in order.
func Ops(steps []Step) []Op {
	ops := make([]Op, len(steps))
	for i, s := range steps {
		ops[i] = s.Op
	}
	return ops
}
