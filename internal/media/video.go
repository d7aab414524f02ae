package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"math"
	"os/exec"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/maauso/mediaedit-api/internal/edit"
	"github.com/maauso/mediaedit-api/internal/raster"
)

// videoPlan is the ffmpeg side of a video render: timing and geometry
// filters plus the resulting frame layout.
type videoPlan struct {
	videoFilters []string
	audioFilters []string
	width        int
	height       int
	frameRate    string
	hasAudio     bool
	// frameSteps run in Go on every decoded frame, in order.
	frameSteps []edit.Step
}

// planVideo splits steps into ffmpeg filters (trim, speed, resize) and
// per-frame steps. Output dimensions are rounded down to even values.
func planVideo(info Info, steps []edit.Step) videoPlan {
	plan := videoPlan{
		width:     info.Width,
		height:    info.Height,
		frameRate: info.FrameRate,
		hasAudio:  info.HasAudio,
	}
	if plan.frameRate == "" {
		plan.frameRate, _ = pickFrameRate()
	}
	rate := info.SampleRate
	if rate <= 0 {
		rate = sampleRate
	}

	for _, s := range steps {
		switch s.Op {
		case edit.OpTrim:
			plan.videoFilters = append(plan.videoFilters, trimFilter("trim", s.Range), "setpts=PTS-STARTPTS")
			plan.audioFilters = append(plan.audioFilters, trimFilter("atrim", s.Range), "asetpts=PTS-STARTPTS")
		case edit.OpSpeed:
			plan.videoFilters = append(plan.videoFilters, "setpts=PTS/"+formatFloat(s.Factor))
			plan.audioFilters = append(plan.audioFilters,
				fmt.Sprintf("asetrate=%d", int(math.Round(float64(rate)*s.Factor))),
				fmt.Sprintf("aresample=%d", rate),
			)
		case edit.OpResize:
			plan.width, plan.height = s.Size.Width, s.Size.Height
			plan.videoFilters = append(plan.videoFilters,
				fmt.Sprintf("scale=%d:%d:flags=bicubic", s.Size.Width, s.Size.Height))
		default:
			plan.frameSteps = append(plan.frameSteps, s)
		}
	}

	if w, h := raster.EvenSize(plan.width, plan.height); w != plan.width || h != plan.height {
		plan.width, plan.height = w, h
		plan.videoFilters = append(plan.videoFilters, fmt.Sprintf("scale=%d:%d", w, h))
	}
	return plan
}

func trimFilter(name string, r edit.Range) string {
	if r.End == nil {
		return fmt.Sprintf("%s=start=%s", name, formatFloat(r.Start))
	}
	return fmt.Sprintf("%s=start=%s:end=%s", name, formatFloat(r.Start), formatFloat(*r.End))
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// singlePassArgs encodes src straight to dst when no per-frame work is needed.
func (plan videoPlan) singlePassArgs(src, dst string) []string {
	args := []string{"-y", "-i", src, "-map", "0:v:0"}
	if plan.hasAudio {
		args = append(args, "-map", "0:a:0")
	}
	if len(plan.videoFilters) > 0 {
		args = append(args, "-vf", strings.Join(plan.videoFilters, ","))
	}
	if plan.hasAudio {
		if len(plan.audioFilters) > 0 {
			args = append(args, "-af", strings.Join(plan.audioFilters, ","))
		}
		args = append(args, "-c:a", audioCodec)
	} else {
		args = append(args, "-an")
	}
	return append(args, "-c:v", videoCodec, "-pix_fmt", pixelFormat, dst)
}

// decoderArgs decode src to raw RGBA frames on stdout at a constant rate.
func (plan videoPlan) decoderArgs(src string) []string {
	filters := append(append([]string{}, plan.videoFilters...), "fps="+plan.frameRate, "format=rgba")
	return []string{
		"-v", "error",
		"-i", src,
		"-map", "0:v:0",
		"-vf", strings.Join(filters, ","),
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
		"pipe:1",
	}
}

// encoderArgs read raw RGBA frames from stdin and mux them with the
// filtered audio of src.
func (plan videoPlan) encoderArgs(src, dst string) []string {
	args := []string{
		"-y",
		"-v", "error",
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
		"-s", fmt.Sprintf("%dx%d", plan.width, plan.height),
		"-r", plan.frameRate,
		"-i", "pipe:0",
	}
	if plan.hasAudio {
		args = append(args, "-i", src, "-map", "0:v:0", "-map", "1:a:0")
		if len(plan.audioFilters) > 0 {
			args = append(args, "-af", strings.Join(plan.audioFilters, ","))
		}
		args = append(args, "-c:a", audioCodec)
	} else {
		args = append(args, "-map", "0:v:0", "-an")
	}
	return append(args, "-c:v", videoCodec, "-pix_fmt", pixelFormat, dst)
}

// RenderVideo applies steps to the video at src and writes the result to dst.
func (p *FFmpegProcessor) RenderVideo(ctx context.Context, src, dst string, steps []edit.Step) error {
	info, err := p.Probe(ctx, src)
	if err != nil {
		return fmt.Errorf("probe input: %w", err)
	}
	if !info.HasVideo {
		return fmt.Errorf("%w: %s", ErrNoVideoStream, src)
	}

	plan := planVideo(info, steps)
	p.logger.Info("rendering video",
		slog.String("src", src),
		slog.Int("width", plan.width),
		slog.Int("height", plan.height),
		slog.Int("frame_steps", len(plan.frameSteps)),
		slog.Bool("audio", plan.hasAudio),
	)

	if len(plan.frameSteps) == 0 {
		return p.runFFmpeg(ctx, plan.singlePassArgs(src, dst))
	}

	apply, err := p.frameFunc(plan.frameSteps, plan.width, plan.height)
	if err != nil {
		return err
	}
	return p.pipeFrames(ctx, plan, src, dst, apply)
}

// frameFunc prepares the per-frame steps. Text layers and overlay images are
// rendered once and composited on every frame.
func (p *FFmpegProcessor) frameFunc(steps []edit.Step, w, h int) (func(*image.RGBA), error) {
	ops := make([]func(*image.RGBA), 0, len(steps))
	for _, s := range steps {
		switch s.Op {
		case edit.OpBrightness:
			f := s.Factor
			ops = append(ops, func(img *image.RGBA) { raster.Brightness(img, f) })
		case edit.OpContrast:
			f := s.Factor
			ops = append(ops, func(img *image.RGBA) { raster.ContrastAdditive(img, f) })
		case edit.OpSaturation:
			f := s.Factor
			ops = append(ops, func(img *image.RGBA) { raster.SaturationHSV(img, f) })
		case edit.OpText:
			t := s.Text
			layer := raster.TextLayer(w, h, t.Text, image.Pt(t.Pos.X, t.Pos.Y), t.Color, p.fonts.Face(t.Size))
			ops = append(ops, func(img *image.RGBA) { raster.Composite(img, layer, image.Point{}) })
		case edit.OpOverlay:
			overlay, err := decodeImageFile(s.Path)
			if err != nil {
				return nil, fmt.Errorf("load overlay: %w", err)
			}
			ops = append(ops, func(img *image.RGBA) { raster.Composite(img, overlay, image.Point{}) })
		default:
			p.logger.Warn("step not supported for video, skipping", slog.String("step", s.String()))
		}
	}
	return func(img *image.RGBA) {
		for _, op := range ops {
			op(img)
		}
	}, nil
}

// pipeFrames runs a decoder and an encoder ffmpeg process with apply
// called on every frame in between.
func (p *FFmpegProcessor) pipeFrames(ctx context.Context, plan videoPlan, src, dst string, apply func(*image.RGBA)) error {
	g, gctx := errgroup.WithContext(ctx)

	decArgs := plan.decoderArgs(src)
	encArgs := plan.encoderArgs(src, dst)

	// #nosec G204 - ffmpegPath is set by the application, not user input
	dec := exec.CommandContext(gctx, p.ffmpegPath, decArgs...)
	var decErr bytes.Buffer
	dec.Stderr = &decErr
	frames, err := dec.StdoutPipe()
	if err != nil {
		return fmt.Errorf("decoder stdout: %w", err)
	}

	// #nosec G204 - ffmpegPath is set by the application, not user input
	enc := exec.CommandContext(gctx, p.ffmpegPath, encArgs...)
	var encErr bytes.Buffer
	enc.Stderr = &encErr
	sink, err := enc.StdinPipe()
	if err != nil {
		return fmt.Errorf("encoder stdin: %w", err)
	}

	if err := enc.Start(); err != nil {
		return fmt.Errorf("start encoder: %w", err)
	}
	if err := dec.Start(); err != nil {
		_ = sink.Close()
		_ = enc.Wait()
		return fmt.Errorf("start decoder: %w", err)
	}

	g.Go(func() error {
		n, pumpErr := pumpFrames(frames, sink, plan.width, plan.height, apply)
		_ = sink.Close()
		if pumpErr != nil {
			_ = dec.Process.Kill()
			_ = dec.Wait()
			return pumpErr
		}
		if err := dec.Wait(); err != nil {
			return p.processError(gctx, decArgs, decErr.String(), err)
		}
		p.logger.Debug("frames processed", slog.Int("frames", n))
		return nil
	})
	g.Go(func() error {
		if err := enc.Wait(); err != nil {
			return p.processError(gctx, encArgs, encErr.String(), err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("ffmpeg cancelled: %w", ctx.Err())
		}
		return err
	}
	return nil
}

func (p *FFmpegProcessor) processError(ctx context.Context, args []string, stderr string, err error) error {
	if ctx.Err() != nil {
		return fmt.Errorf("ffmpeg cancelled: %w", ctx.Err())
	}
	return &FFmpegError{Args: args, Stderr: stderr, Err: err}
}

// pumpFrames copies w x h RGBA frames from r to out, calling apply on each.
// A trailing partial frame is dropped.
func pumpFrames(r io.Reader, out io.Writer, w, h int, apply func(*image.RGBA)) (int, error) {
	buf := make([]byte, w*h*4)
	frame := &image.RGBA{Pix: buf, Stride: w * 4, Rect: image.Rect(0, 0, w, h)}

	n := 0
	for {
		if _, err := io.ReadFull(r, buf); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return n, nil
			}
			return n, fmt.Errorf("read frame %d: %w", n, err)
		}
		apply(frame)
		if _, err := out.Write(buf); err != nil {
			return n, fmt.Errorf("write frame %d: %w", n, err)
		}
		n++
	}
}
