package audio

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"os/exec"
	"strconv"

	"github.com/maauso/mediaedit-api/internal/autocut"
	"github.com/maauso/mediaedit-api/internal/media"
)

// Prober reports which streams a media file has.
type Prober interface {
	Probe(ctx context.Context, path string) (media.Info, error)
}

// Verify interface implementation at compile time.
var _ Analyzer = (*FFmpegAnalyzer)(nil)

// FFmpegAnalyzer implements Analyzer by decoding audio to 32-bit float PCM
// with the ffmpeg CLI and metering the stream as it is read.
type FFmpegAnalyzer struct {
	ffmpegPath string
	prober     Prober
}

// NewFFmpegAnalyzer creates a new FFmpegAnalyzer.
// If ffmpegPath is empty, it defaults to "ffmpeg" (found in PATH).
func NewFFmpegAnalyzer(ffmpegPath string, prober Prober) *FFmpegAnalyzer {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	return &FFmpegAnalyzer{ffmpegPath: ffmpegPath, prober: prober}
}

// Energy implements Analyzer.Energy.
func (a *FFmpegAnalyzer) Energy(ctx context.Context, path string) (autocut.Energy, error) {
	if _, err := os.Stat(path); err != nil {
		return autocut.Energy{}, fmt.Errorf("input file: %w", err)
	}

	info, err := a.prober.Probe(ctx, path)
	if err != nil {
		return autocut.Energy{}, fmt.Errorf("probe audio: %w", err)
	}
	if !info.HasAudio {
		return autocut.Energy{}, ErrNoAudio
	}

	args := []string{
		"-v", "error",
		"-i", path,
		"-map", "0:a:0",
		"-vn",
		"-f", "f32le",
		"-ac", strconv.Itoa(Channels),
		"-ar", strconv.Itoa(SampleRate),
		"pipe:1",
	}
	// #nosec G204 - ffmpegPath is set by the application, not user input
	cmd := exec.CommandContext(ctx, a.ffmpegPath, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return autocut.Energy{}, fmt.Errorf("ffmpeg stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return autocut.Energy{}, fmt.Errorf("start ffmpeg: %w", err)
	}

	meter := autocut.NewMeter(SampleRate, Channels)
	readErr := ReadPCM(stdout, meter.Add)
	if readErr != nil {
		_ = cmd.Process.Kill()
	}
	waitErr := cmd.Wait()

	if ctx.Err() != nil {
		return autocut.Energy{}, fmt.Errorf("ffmpeg cancelled: %w", ctx.Err())
	}
	if readErr != nil {
		return autocut.Energy{}, fmt.Errorf("read pcm: %w", readErr)
	}
	if waitErr != nil {
		return autocut.Energy{}, &media.FFmpegError{Args: args, Stderr: stderr.String(), Err: waitErr}
	}
	return meter.Energy(), nil
}

// pcmChunk is the number of bytes decoded per read.
const pcmChunk = 64 * 1024

// ReadPCM decodes little-endian float32 samples from r and passes them to
// fn in chunks until EOF. A trailing partial sample is ignored.
func ReadPCM(r io.Reader, fn func([]float32)) error {
	br := bufio.NewReaderSize(r, pcmChunk)
	buf := make([]byte, pcmChunk)
	samples := make([]float32, pcmChunk/4)

	for {
		n, err := io.ReadFull(br, buf)
		if count := n / 4; count > 0 {
			for i := 0; i < count; i++ {
				samples[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
			}
			fn(samples[:count])
		}
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}
