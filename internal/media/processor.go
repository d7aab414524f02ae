// Package media renders edit steps onto images and videos and assembles
// video segments, driving ffmpeg for decoding and encoding.
package media

import (
	"context"

	"github.com/maauso/mediaedit-api/internal/edit"
)

// Segment is one input of a concatenation, optionally trimmed.
type Segment struct {
	Path string
	Trim *edit.Range
}

// Processor defines the media operations used by the processing service.
type Processor interface {
	// Probe reads stream information of a media file.
	Probe(ctx context.Context, path string) (Info, error)

	// RenderVideo applies steps to the video at src and writes an H.264/AAC
	// file to dst. With no steps the input is re-encoded unchanged.
	RenderVideo(ctx context.Context, src, dst string, steps []edit.Step) error

	// RenderImage applies steps to the image at src and writes it to dst,
	// encoded according to the extension of dst.
	RenderImage(ctx context.Context, src, dst string, steps []edit.Step) error

	// Concat joins segments in order into one H.264/AAC file. Segments of
	// different sizes are centered on a canvas of the largest dimensions.
	// Returns ErrNoSegments when segments is empty.
	Concat(ctx context.Context, segments []Segment, dst string) error

	// Passthrough re-encodes src to dst without edits.
	Passthrough(ctx context.Context, src, dst string) error
}
