// Package autocut finds the loud parts of an audio track. The track is
// measured in one-second windows and consecutive windows at or above a
// loudness threshold become retained spans.
package autocut

import (
	"fmt"
	"math"

	"github.com/maauso/mediaedit-api/internal/edit"
)

// Default segmentation parameters.
const (
	DefaultSilenceThreshold = 0.02
	DefaultMinClip          = 1.0
)

// Window is the length of one energy measurement, in seconds.
const Window = 1.0

// Span is a retained time range [Start, End) in seconds.
type Span struct {
	Start float64
	End   float64
}

// Duration returns the span length.
func (s Span) Duration() float64 {
	return s.End - s.Start
}

func (s Span) String() string {
	return fmt.Sprintf("[%g, %g)", s.Start, s.End)
}

// Options controls segmentation.
type Options struct {
	// SilenceThreshold is the RMS level at or above which a window counts as sound.
	SilenceThreshold float64
	// MinClip is the shortest span, in seconds, kept when it closes before the end.
	MinClip float64
}

// DefaultOptions returns the default segmentation parameters.
func DefaultOptions() Options {
	return Options{
		SilenceThreshold: DefaultSilenceThreshold,
		MinClip:          DefaultMinClip,
	}
}

// OptionsFromSpec reads silence_threshold and min_clip from spec, falling
// back to the defaults for missing keys.
func OptionsFromSpec(spec edit.Spec) (Options, error) {
	opts := DefaultOptions()
	if v, ok := spec[edit.KeySilenceThreshold]; ok {
		f, err := edit.ParseFloat(edit.KeySilenceThreshold, v)
		if err != nil {
			return Options{}, err
		}
		opts.SilenceThreshold = f
	}
	if v, ok := spec[edit.KeyMinClip]; ok {
		f, err := edit.ParseFloat(edit.KeyMinClip, v)
		if err != nil {
			return Options{}, err
		}
		opts.MinClip = f
	}
	return opts, nil
}

// Residual returns the edits of spec that are not segmentation parameters.
func Residual(spec edit.Spec) edit.Spec {
	return spec.Without(edit.KeySilenceThreshold, edit.KeyMinClip)
}

// Energy is the per-window RMS of a track together with its duration.
type Energy struct {
	// Windows holds the RMS of each complete one-second window.
	Windows []float64
	// Duration is the track length in seconds.
	Duration float64
}

// SegmentEnergy derives retained spans from measured window energy.
//
// Windows t = 0 .. floor(Duration)-1 are visited in order. A span opens at
// the first loud window and closes at the start of the next quiet one; it is
// kept only if it lasted at least MinClip. A span still open after the last
// window is closed at min(Duration, floor(Duration)) and kept regardless of
// its length.
func SegmentEnergy(e Energy, opts Options) []Span {
	n := int(math.Floor(e.Duration))

	var spans []Span
	open := false
	start := 0
	for t := 0; t < n; t++ {
		rms := 0.0
		if t < len(e.Windows) {
			rms = e.Windows[t]
		}
		if rms >= opts.SilenceThreshold {
			if !open {
				open, start = true, t
			}
			continue
		}
		if open {
			if float64(t-start) >= opts.MinClip {
				spans = append(spans, Span{Start: float64(start), End: float64(t)})
			}
			open = false
		}
	}
	if open {
		spans = append(spans, Span{Start: float64(start), End: math.Min(e.Duration, float64(n))})
	}
	return spans
}

// Track is decoded interleaved PCM audio.
type Track struct {
	Samples    []float32
	SampleRate int
	Channels   int
}

// Segment measures track and derives its retained spans.
func Segment(track Track, opts Options) []Span {
	m := NewMeter(track.SampleRate, track.Channels)
	m.Add(track.Samples)
	return SegmentEnergy(m.Energy(), opts)
}

// TotalDuration sums the lengths of spans.
func TotalDuration(spans []Span) float64 {
	var total float64
	for _, s := range spans {
		total += s.Duration()
	}
	return total
}
