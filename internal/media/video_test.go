package media

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maauso/mediaedit-api/internal/edit"
)

func ptr(f float64) *float64 { return &f }

func TestPlanVideo_SplitsTimelineAndFrameSteps(t *testing.T) {
	info := Info{Width: 1920, Height: 1080, FrameRate: "30/1", HasAudio: true, SampleRate: 48000}
	steps := []edit.Step{
		{Op: edit.OpTrim, Range: edit.Range{Start: 1, End: ptr(5.5)}},
		{Op: edit.OpSpeed, Factor: 2},
		{Op: edit.OpResize, Size: edit.Size{Width: 640, Height: 360}},
		{Op: edit.OpBrightness, Factor: 1.2},
		{Op: edit.OpText, Text: &edit.TextParams{Text: "hi"}},
	}

	plan := planVideo(info, steps)

	assert.Equal(t, []string{
		"trim=start=1:end=5.5",
		"setpts=PTS-STARTPTS",
		"setpts=PTS/2",
		"scale=640:360:flags=bicubic",
	}, plan.videoFilters)
	assert.Equal(t, []string{
		"atrim=start=1:end=5.5",
		"asetpts=PTS-STARTPTS",
		"asetrate=96000",
		"aresample=48000",
	}, plan.audioFilters)
	assert.Equal(t, 640, plan.width)
	assert.Equal(t, 360, plan.height)
	assert.Equal(t, []edit.Op{edit.OpBrightness, edit.OpText}, edit.Ops(plan.frameSteps))
}

func TestPlanVideo_OpenEndedTrimAndOddSize(t *testing.T) {
	info := Info{Width: 101, Height: 75, FrameRate: "25/1"}
	plan := planVideo(info, []edit.Step{{Op: edit.OpTrim, Range: edit.Range{Start: 2}}})

	assert.Equal(t, []string{"trim=start=2", "setpts=PTS-STARTPTS", "scale=100:74"}, plan.videoFilters)
	assert.Equal(t, 100, plan.width)
	assert.Equal(t, 74, plan.height)
	assert.Empty(t, plan.frameSteps)
}

func TestPlanVideo_Args(t *testing.T) {
	plan := planVideo(Info{Width: 64, Height: 48, FrameRate: "25/1"}, nil)

	single := strings.Join(plan.singlePassArgs("in.mp4", "out.mp4"), " ")
	assert.Equal(t, "-y -i in.mp4 -map 0:v:0 -an -c:v libx264 -pix_fmt yuv420p out.mp4", single)

	plan.hasAudio = true
	enc := strings.Join(plan.encoderArgs("in.mp4", "out.mp4"), " ")
	assert.Contains(t, enc, "-s 64x48 -r 25/1 -i pipe:0")
	assert.Contains(t, enc, "-map 0:v:0 -map 1:a:0")

	dec := strings.Join(plan.decoderArgs("in.mp4"), " ")
	assert.Contains(t, dec, "-vf fps=25/1,format=rgba")
	assert.Contains(t, dec, "-pix_fmt rgba pipe:1")
}

func TestPumpFrames(t *testing.T) {
	const w, h = 2, 2
	frame := bytes.Repeat([]byte{10, 20, 30, 255}, w*h)
	// two full frames and a truncated third
	in := bytes.NewReader(append(append(append([]byte{}, frame...), frame...), frame[:5]...))
	var out bytes.Buffer

	n, err := pumpFrames(in, &out, w, h, func(img *image.RGBA) {
		img.SetRGBA(0, 0, color.RGBA{R: 1, G: 2, B: 3, A: 255})
	})

	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.Equal(t, 2*w*h*4, out.Len())
	assert.Equal(t, []byte{1, 2, 3, 255, 10, 20, 30, 255}, out.Bytes()[:8])
}

func TestRenderVideo_FrameSteps(t *testing.T) {
	skipIfNoFFmpeg(t)

	tmpDir := t.TempDir()
	src := filepath.Join(tmpDir, "in.mp4")
	dst := filepath.Join(tmpDir, "out.mp4")
	createTestVideo(t, src, 2, "gray", "64x48", true)

	steps, err := edit.Compile(edit.Spec{
		"brightness": 1.3,
		"contrast":   1.1,
		"saturation": 1.2,
		"text":       "Hi",
		"font_size":  12,
		"text_pos":   []any{4.0, 4.0},
	}, edit.KindVideo)
	require.NoError(t, err)

	p := NewFFmpegProcessor("", "", nil, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	require.NoError(t, p.RenderVideo(ctx, src, dst, steps))

	fileNotEmpty(t, dst)
	verifyImageDimensions(t, dst, 64, 48)
	assert.InDelta(t, 2.0, getVideoDuration(t, dst), 0.2)

	info, err := p.Probe(ctx, dst)
	require.NoError(t, err)
	assert.True(t, info.HasAudio)
}

func TestRenderVideo_TrimSpeedResize(t *testing.T) {
	skipIfNoFFmpeg(t)

	tmpDir := t.TempDir()
	src := filepath.Join(tmpDir, "in.mp4")
	dst := filepath.Join(tmpDir, "out.mp4")
	createTestVideo(t, src, 3, "blue", "64x48", true)

	steps := []edit.Step{
		{Op: edit.OpTrim, Range: edit.Range{Start: 0.5, End: ptr(2.5)}},
		{Op: edit.OpSpeed, Factor: 2},
		{Op: edit.OpResize, Size: edit.Size{Width: 33, Height: 21}},
	}

	p := NewFFmpegProcessor("", "", nil, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	require.NoError(t, p.RenderVideo(ctx, src, dst, steps))

	verifyImageDimensions(t, dst, 32, 20)
	assert.InDelta(t, 1.0, getVideoDuration(t, dst), 0.2)
}

func TestPassthrough_NoAudio(t *testing.T) {
	skipIfNoFFmpeg(t)

	tmpDir := t.TempDir()
	src := filepath.Join(tmpDir, "in.mp4")
	dst := filepath.Join(tmpDir, "out.mp4")
	createTestVideo(t, src, 1, "red", "32x32", false)

	p := NewFFmpegProcessor("", "", nil, nil)
	require.NoError(t, p.Passthrough(context.Background(), src, dst))

	info, err := p.Probe(context.Background(), dst)
	require.NoError(t, err)
	assert.True(t, info.HasVideo)
	assert.False(t, info.HasAudio)
	assert.InDelta(t, 1.0, info.Duration, 0.2)
}

func TestRenderVideo_AudioOnlyInput(t *testing.T) {
	skipIfNoFFmpeg(t)

	tmpDir := t.TempDir()
	src := filepath.Join(tmpDir, "tone.wav")
	out, err := exec.Command("ffmpeg", "-y", "-f", "lavfi", "-i", "sine=duration=1", src).CombinedOutput()
	require.NoError(t, err, string(out))

	p := NewFFmpegProcessor("", "", nil, nil)
	err = p.RenderVideo(context.Background(), src, filepath.Join(tmpDir, "out.mp4"), nil)
	assert.ErrorIs(t, err, ErrNoVideoStream)
}

func TestRenderVideo_ContextCancelled(t *testing.T) {
	skipIfNoFFmpeg(t)

	tmpDir := t.TempDir()
	src := filepath.Join(tmpDir, "in.mp4")
	createTestVideo(t, src, 1, "red", "32x32", false)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := NewFFmpegProcessor("", "", nil, nil)
	err := p.RenderVideo(ctx, src, filepath.Join(tmpDir, "out.mp4"), nil)
	assert.ErrorIs(t, err, context.Canceled)
}
