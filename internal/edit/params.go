package edit

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// MaxDimension bounds every pixel coordinate and frame side of an edit.
const MaxDimension = 16384

// Size is a target frame size in pixels.
type Size struct {
	Width  int
	Height int
}

// Box is a crop rectangle given as left, top, right, bottom pixel edges.
type Box struct {
	Left   int
	Top    int
	Right  int
	Bottom int
}

// Point is a pixel position.
type Point struct {
	X int
	Y int
}

// Range is a time range in seconds. A nil End means "until the end".
type Range struct {
	Start float64
	End   *float64
}

// Duration returns the length of the range given the total media duration.
func (r Range) Duration(total float64) float64 {
	end := total
	if r.End != nil && *r.End < total {
		end = *r.End
	}
	if end < r.Start {
		return 0
	}
	return end - r.Start
}

// ParseFloat converts a JSON-decoded value to a float64. Numeric strings are
// accepted the same way numbers are.
func ParseFloat(key string, v any) (float64, error) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, invalid(key, "%q is not a number", n.String())
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, invalid(key, "%q is not a number", n)
		}
		f = parsed
	default:
		return 0, invalid(key, "expected a number, got %T", v)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, invalid(key, "must be finite")
	}
	return f, nil
}

// ParseInt converts a JSON-decoded value to an int, truncating fractional numbers.
func ParseInt(key string, v any) (int, error) {
	if s, ok := v.(string); ok {
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return 0, invalid(key, "%q is not an integer", s)
		}
		return n, nil
	}
	f, err := ParseFloat(key, v)
	if err != nil {
		return 0, err
	}
	return int(f), nil
}

// parseTuple reads a fixed-length list of numbers.
func parseTuple(key string, v any, n int) ([]float64, error) {
	var items []any
	switch list := v.(type) {
	case []any:
		items = list
	case []float64:
		for _, f := range list {
			items = append(items, f)
		}
	case []int:
		for _, i := range list {
			items = append(items, i)
		}
	default:
		return nil, invalid(key, "expected a list of %d numbers, got %T", n, v)
	}
	if len(items) != n {
		return nil, invalid(key, "expected %d values, got %d", n, len(items))
	}
	out := make([]float64, n)
	for i, item := range items {
		f, err := ParseFloat(key, item)
		if err != nil {
			return nil, err
		}
		out[i] = f
	}
	return out, nil
}

// checkPixels rejects coordinates outside [-MaxDimension, MaxDimension].
func checkPixels(key string, vals []float64) error {
	for _, v := range vals {
		if math.Abs(v) > MaxDimension {
			return invalid(key, "%g is outside +/-%d pixels", v, MaxDimension)
		}
	}
	return nil
}

// ParseSize reads a (width, height) pair.
func ParseSize(key string, v any) (Size, error) {
	vals, err := parseTuple(key, v, 2)
	if err != nil {
		return Size{}, err
	}
	if err := checkPixels(key, vals); err != nil {
		return Size{}, err
	}
	s := Size{Width: int(vals[0]), Height: int(vals[1])}
	if s.Width <= 0 || s.Height <= 0 {
		return Size{}, invalid(key, "width and height must be positive, got %dx%d", s.Width, s.Height)
	}
	return s, nil
}

// ParseBox reads a (left, top, right, bottom) crop box.
func ParseBox(key string, v any) (Box, error) {
	vals, err := parseTuple(key, v, 4)
	if err != nil {
		return Box{}, err
	}
	if err := checkPixels(key, vals); err != nil {
		return Box{}, err
	}
	b := Box{Left: int(vals[0]), Top: int(vals[1]), Right: int(vals[2]), Bottom: int(vals[3])}
	if b.Right <= b.Left || b.Bottom <= b.Top {
		return Box{}, invalid(key, "right/bottom must be greater than left/top")
	}
	if b.Right-b.Left > MaxDimension || b.Bottom-b.Top > MaxDimension {
		return Box{}, invalid(key, "box larger than %dx%d", MaxDimension, MaxDimension)
	}
	return b, nil
}

// ParsePoint reads an (x, y) position.
func ParsePoint(key string, v any) (Point, error) {
	vals, err := parseTuple(key, v, 2)
	if err != nil {
		return Point{}, err
	}
	if err := checkPixels(key, vals); err != nil {
		return Point{}, err
	}
	return Point{X: int(vals[0]), Y: int(vals[1])}, nil
}

// ParseRange reads a (start, end) pair where end may be null.
func ParseRange(key string, v any) (Range, error) {
	list, ok := v.([]any)
	if !ok {
		vals, err := parseTuple(key, v, 2)
		if err != nil {
			return Range{}, err
		}
		list = []any{vals[0], vals[1]}
	}
	if len(list) != 2 {
		return Range{}, invalid(key, "expected [start, end], got %d values", len(list))
	}
	start, err := ParseFloat(key, list[0])
	if err != nil {
		return Range{}, err
	}
	if start < 0 {
		return Range{}, invalid(key, "start must not be negative")
	}
	r := Range{Start: start}
	if list[1] == nil {
		return r, nil
	}
	end, err := ParseFloat(key, list[1])
	if err != nil {
		return Range{}, err
	}
	if end <= start {
		return Range{}, invalid(key, "end must be after start")
	}
	r.End = &end
	return r, nil
}

// truthy mirrors the loose "is this set" check used for optional effects.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case float64:
		return t != 0
	case int:
		return t != 0
	case []any:
		return len(t) > 0
	}
	return true
}

// stringify renders a text value the way it is shown on screen.
func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case nil:
		return "None"
	case bool:
		if t {
			return "True"
		}
		return "False"
	case float64:
		if t == math.Trunc(t) && math.Abs(t) < 1e15 {
			return strconv.FormatFloat(t, 'f', 1, 64)
		}
		return strconv.FormatFloat(t, 'g', -1, 64)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}
