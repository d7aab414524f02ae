package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"

	"github.com/maauso/mediaedit-api/internal/raster"
)

// Static errors for media operations.
var (
	// ErrNoSegments is returned when a concatenation has nothing to join.
	ErrNoSegments = errors.New("no segments to concatenate")
	// ErrUnsupportedFormat is returned when an image cannot be encoded to the requested extension.
	ErrUnsupportedFormat = errors.New("unsupported image format")
	// ErrNoVideoStream is returned when a video operation gets a file without a video stream.
	ErrNoVideoStream = errors.New("no video stream")
	// ErrFFprobeExecution is returned when ffprobe command fails.
	ErrFFprobeExecution = errors.New("ffprobe execution failed")
)

// Output encoding settings shared by every video written.
const (
	videoCodec  = "libx264"
	audioCodec  = "aac"
	pixelFormat = "yuv420p"
	sampleRate  = 44100
)

// Compile-time check that FFmpegProcessor implements Processor.
var _ Processor = (*FFmpegProcessor)(nil)

// FFmpegProcessor implements Processor using the ffmpeg and ffprobe CLIs.
// Per-pixel steps run in Go on decoded frames.
type FFmpegProcessor struct {
	ffmpegPath  string
	ffprobePath string
	fonts       *raster.Fonts
	logger      *slog.Logger
}

// NewFFmpegProcessor creates a new FFmpegProcessor.
// Empty binary paths default to "ffmpeg" and "ffprobe" found via PATH.
// A nil fonts resolver uses the bundled font only.
func NewFFmpegProcessor(ffmpegPath, ffprobePath string, fonts *raster.Fonts, logger *slog.Logger) *FFmpegProcessor {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	if logger == nil {
		logger = slog.Default()
	}
	if fonts == nil {
		fonts = raster.NewFonts("", nil, logger)
	}
	return &FFmpegProcessor{
		ffmpegPath:  ffmpegPath,
		ffprobePath: ffprobePath,
		fonts:       fonts,
		logger:      logger,
	}
}

// FFmpegPath returns the ffmpeg binary used by the processor.
func (p *FFmpegProcessor) FFmpegPath() string {
	return p.ffmpegPath
}

// runFFmpeg executes ffmpeg with the given arguments and returns an error
// containing stderr output if the command fails.
func (p *FFmpegProcessor) runFFmpeg(ctx context.Context, args []string) error {
	// #nosec G204 - ffmpegPath is set by the application, not user input
	cmd := exec.CommandContext(ctx, p.ffmpegPath, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	p.logger.Debug("running ffmpeg", slog.Any("args", args))

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("ffmpeg cancelled: %w", ctx.Err())
		}
		return &FFmpegError{
			Args:   args,
			Stderr: stderr.String(),
			Err:    err,
		}
	}
	return nil
}

// FFmpegError represents an error from running ffmpeg, including the stderr output.
type FFmpegError struct {
	Args   []string
	Stderr string
	Err    error
}

func (e *FFmpegError) Error() string {
	return fmt.Sprintf("ffmpeg error: %v\nargs: %v\nstderr: %s", e.Err, e.Args, e.Stderr)
}

func (e *FFmpegError) Unwrap() error {
	return e.Err
}

// Passthrough re-encodes src to dst without edits.
func (p *FFmpegProcessor) Passthrough(ctx context.Context, src, dst string) error {
	return p.RenderVideo(ctx, src, dst, nil)
}
