package autocut

import "math"

// Meter accumulates window RMS from a stream of interleaved samples, so a
// track can be measured without holding it in memory.
type Meter struct {
	sampleRate int
	channels   int
	windowLen  int

	sum     float64
	count   int
	total   int
	windows []float64
}

// NewMeter creates a Meter for audio with the given layout. Non-positive
// values default to mono at 44.1 kHz.
func NewMeter(sampleRate, channels int) *Meter {
	if sampleRate <= 0 {
		sampleRate = 44100
	}
	if channels <= 0 {
		channels = 1
	}
	return &Meter{
		sampleRate: sampleRate,
		channels:   channels,
		windowLen:  int(Window * float64(sampleRate*channels)),
	}
}

// Add feeds interleaved samples to the meter.
func (m *Meter) Add(samples []float32) {
	for _, s := range samples {
		v := float64(s)
		m.sum += v * v
		m.count++
		if m.count == m.windowLen {
			m.windows = append(m.windows, math.Sqrt(m.sum/float64(m.windowLen)))
			m.sum, m.count = 0, 0
		}
	}
	m.total += len(samples)
}

// Energy returns the RMS of every complete window and the duration of
// everything added so far. A trailing partial window is not measured.
func (m *Meter) Energy() Energy {
	frames := m.total / m.channels
	return Energy{
		Windows:  append([]float64(nil), m.windows...),
		Duration: float64(frames) / float64(m.sampleRate),
	}
}
