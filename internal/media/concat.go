package media

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// canvas is the common frame layout of a concatenation.
type canvas struct {
	width     int
	height    int
	frameRate string
}

// composeCanvas picks the largest width and height among infos, rounded up
// to even values, and the highest frame rate.
func composeCanvas(infos []Info) canvas {
	c := canvas{}
	best := -1.0
	for _, info := range infos {
		c.width = max(c.width, info.Width)
		c.height = max(c.height, info.Height)
		if info.FPS > best {
			best = info.FPS
			c.frameRate = info.FrameRate
		}
	}
	c.width += c.width % 2
	c.height += c.height % 2
	if c.frameRate == "" {
		c.frameRate, _ = pickFrameRate()
	}
	return c
}

// concatArgs builds the ffmpeg arguments joining segments (described by
// infos) into dst. Each segment is trimmed, brought to the common frame rate
// and centered on the canvas without scaling. Segments without audio get
// generated silence of their own length when any segment has audio.
func concatArgs(segments []Segment, infos []Info, dst string) []string {
	cv := composeCanvas(infos)

	anyAudio := false
	for _, info := range infos {
		anyAudio = anyAudio || info.HasAudio
	}

	args := []string{"-y"}
	for _, s := range segments {
		args = append(args, "-i", s.Path)
	}

	var graph []string
	var pads strings.Builder
	silence := len(segments)

	for i, s := range segments {
		info := infos[i]

		var vf []string
		if s.Trim != nil {
			vf = append(vf, trimFilter("trim", *s.Trim), "setpts=PTS-STARTPTS")
		}
		vf = append(vf,
			"fps="+cv.frameRate,
			fmt.Sprintf("pad=%d:%d:(ow-iw)/2:(oh-ih)/2:color=black", cv.width, cv.height),
			"setsar=1",
			"format="+pixelFormat,
		)
		graph = append(graph, fmt.Sprintf("[%d:v]%s[v%d]", i, strings.Join(vf, ","), i))
		fmt.Fprintf(&pads, "[v%d]", i)

		if !anyAudio {
			continue
		}

		layout := fmt.Sprintf("aresample=%d,aformat=sample_fmts=fltp:channel_layouts=stereo", sampleRate)
		if info.HasAudio {
			var af []string
			if s.Trim != nil {
				af = append(af, trimFilter("atrim", *s.Trim), "asetpts=PTS-STARTPTS")
			}
			af = append(af, layout)
			graph = append(graph, fmt.Sprintf("[%d:a]%s[a%d]", i, strings.Join(af, ","), i))
		} else {
			length := info.Duration
			if s.Trim != nil {
				length = s.Trim.Duration(info.Duration)
			}
			args = append(args,
				"-f", "lavfi",
				"-t", formatFloat(length),
				"-i", fmt.Sprintf("anullsrc=channel_layout=stereo:sample_rate=%d", sampleRate),
			)
			graph = append(graph, fmt.Sprintf("[%d:a]%s[a%d]", silence, layout, i))
			silence++
		}
		fmt.Fprintf(&pads, "[a%d]", i)
	}

	audioFlag := 0
	if anyAudio {
		audioFlag = 1
	}
	graph = append(graph, fmt.Sprintf("%sconcat=n=%d:v=1:a=%d[outv]", pads.String(), len(segments), audioFlag))
	if anyAudio {
		graph[len(graph)-1] += "[outa]"
	}

	args = append(args, "-filter_complex", strings.Join(graph, ";"), "-map", "[outv]")
	if anyAudio {
		args = append(args, "-map", "[outa]", "-c:a", audioCodec)
	}
	return append(args, "-c:v", videoCodec, "-pix_fmt", pixelFormat, dst)
}

// Concat joins segments in order into dst.
func (p *FFmpegProcessor) Concat(ctx context.Context, segments []Segment, dst string) error {
	if len(segments) == 0 {
		return ErrNoSegments
	}

	infos := make([]Info, len(segments))
	for i, s := range segments {
		info, err := p.Probe(ctx, s.Path)
		if err != nil {
			return fmt.Errorf("probe segment %d: %w", i, err)
		}
		if !info.HasVideo {
			return fmt.Errorf("%w: segment %d (%s)", ErrNoVideoStream, i, s.Path)
		}
		infos[i] = info
	}

	cv := composeCanvas(infos)
	p.logger.Info("concatenating segments",
		slog.Int("segments", len(segments)),
		slog.Int("width", cv.width),
		slog.Int("height", cv.height),
		slog.String("frame_rate", cv.frameRate),
	)
	return p.runFFmpeg(ctx, concatArgs(segments, infos, dst))
}
