// Package audio measures the loudness of the audio track of media files.
package audio

import (
	"context"
	"errors"

	"github.com/maauso/mediaedit-api/internal/autocut"
)

// Decoding layout used for analysis.
const (
	SampleRate = 44100
	Channels   = 2
)

// ErrNoAudio is returned when a file has no audio stream.
var ErrNoAudio = errors.New("no audio stream")

// Analyzer measures per-window loudness of a media file's audio track.
type Analyzer interface {
	// Energy decodes the first audio stream of path and returns its window
	// RMS and duration. Returns ErrNoAudio when the file has no audio.
	Energy(ctx context.Context, path string) (autocut.Energy, error)
}
