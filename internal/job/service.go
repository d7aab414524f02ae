package job

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/maauso/mediaedit-api/internal/audio"
	"github.com/maauso/mediaedit-api/internal/autocut"
	"github.com/maauso/mediaedit-api/internal/edit"
	"github.com/maauso/mediaedit-api/internal/job/id"
	"github.com/maauso/mediaedit-api/internal/media"
	"github.com/maauso/mediaedit-api/internal/storage"
	"github.com/maauso/mediaedit-api/internal/timeline"
)

// fallbackImageExt is used for image outputs whose upload extension cannot be encoded.
const fallbackImageExt = ".png"

// TemplateResolver merges template defaults into request edits.
type TemplateResolver interface {
	Resolve(ctx context.Context, edits edit.Spec, templateID string, kind edit.Kind) (edit.Spec, error)
}

// Compiler turns an edit specification into ordered steps.
type Compiler interface {
	Compile(spec edit.Spec, kind edit.Kind) ([]edit.Step, error)
}

// FileInput is one uploaded file.
type FileInput struct {
	// Filename is the client-supplied name, sanitized before use.
	Filename string
	// Data is the file content.
	Data io.Reader
}

// ProcessInput contains the parameters of a single-file request.
type ProcessInput struct {
	File FileInput
	// Mode is the client's media hint: "image", "video" or anything else.
	Mode string
	// Action selects plain edits or autocut.
	Action Action
	// Edits is the request edit specification.
	Edits edit.Spec
	// TemplateID names a template whose defaults fill in missing edits.
	TemplateID string
}

// TimelineInput contains the parameters of a stitch request.
type TimelineInput struct {
	Files    []FileInput
	Timeline []timeline.Entry
}

// ProcessOutput contains the result of a request.
type ProcessOutput struct {
	// JobID identifies the request record.
	JobID string
	// Kind is the media kind the upload was processed as.
	Kind edit.Kind
	// OutputName is the file name in the output directory.
	OutputName string
	// OutputPath is the local path of the result.
	OutputPath string
	// OutputURL is the S3 URL of the result when S3 is configured.
	OutputURL string
}

// ProcessService runs edit, autocut and stitch requests end to end:
// it stores uploads, resolves templates, compiles edits, renders the result
// and records the outcome in the repository.
type ProcessService struct {
	repo      Repository
	storage   storage.Storage
	processor media.Processor
	analyzer  audio.Analyzer
	resolver  TemplateResolver
	compiler  Compiler
	logger    *slog.Logger
}

// ServiceOption configures a ProcessService.
type ServiceOption func(*ProcessService)

// WithCompiler replaces the edit compiler.
func WithCompiler(c Compiler) ServiceOption {
	return func(s *ProcessService) {
		s.compiler = c
	}
}

// NewProcessService creates a new ProcessService.
func NewProcessService(
	repo Repository,
	store storage.Storage,
	processor media.Processor,
	analyzer audio.Analyzer,
	resolver TemplateResolver,
	logger *slog.Logger,
	opts ...ServiceOption,
) *ProcessService {
	if logger == nil {
		logger = slog.Default()
	}
	s := &ProcessService{
		repo:      repo,
		storage:   store,
		processor: processor,
		analyzer:  analyzer,
		resolver:  resolver,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.compiler == nil {
		s.compiler = edit.NewCompiler(edit.WithLogger(logger))
	}
	return s
}

// GetJob retrieves a job by ID.
func (s *ProcessService) GetJob(ctx context.Context, jobID string) (*Job, error) {
	return s.repo.FindByID(ctx, jobID)
}

// ListJobs returns all recorded jobs, newest first.
func (s *ProcessService) ListJobs(ctx context.Context) ([]*Job, error) {
	return s.repo.List(ctx)
}

// ProcessMedia stores the upload, applies the requested edits (or autocut)
// and writes the result to the output directory.
func (s *ProcessService) ProcessMedia(ctx context.Context, in ProcessInput) (*ProcessOutput, error) {
	if in.File.Data == nil || in.File.Filename == "" {
		return nil, ErrNoUpload
	}

	job := New(in.Action)
	job.TemplateID = in.TemplateID
	if err := s.repo.Save(ctx, job); err != nil {
		return nil, fmt.Errorf("save job: %w", err)
	}

	out, err := s.processMedia(ctx, job, in)
	if err != nil {
		s.fail(ctx, job, err)
		return nil, err
	}
	s.complete(ctx, job, out)
	return out, nil
}

func (s *ProcessService) processMedia(ctx context.Context, job *Job, in ProcessInput) (*ProcessOutput, error) {
	upload, err := s.storage.SaveUpload(ctx, in.File.Filename, in.File.Data)
	if err != nil {
		return nil, fmt.Errorf("save upload: %w", err)
	}
	job.AddInput(upload.Path)

	kind := edit.DetectKind(in.Mode, upload.Name)
	job.SetKind(kind)

	out := &ProcessOutput{JobID: job.ID, Kind: kind, OutputName: outputName(upload, kind)}
	if out.OutputPath, err = s.storage.OutputPath(out.OutputName); err != nil {
		return nil, err
	}

	s.logger.Info("processing upload",
		slog.String("job_id", job.ID),
		slog.String("kind", string(kind)),
		slog.String("action", string(in.Action)),
		slog.String("template", in.TemplateID),
		slog.String("output", out.OutputName),
	)

	switch {
	case kind == edit.KindVideo && in.Action == ActionAutocut:
		err = s.autocut(ctx, upload.Path, out.OutputPath, in.Edits, in.TemplateID)
	default:
		err = s.applyEdits(ctx, upload.Path, out.OutputPath, in.Edits, in.TemplateID, kind)
	}
	if err != nil {
		return nil, err
	}

	if out.OutputURL, err = s.publish(ctx, out.OutputPath, out.OutputName); err != nil {
		return nil, err
	}
	return out, nil
}

// outputName derives the result file name from the upload. Video is always
// written as MP4; images keep their extension when it can be encoded.
func outputName(u storage.Upload, kind edit.Kind) string {
	if kind == edit.KindVideo {
		return u.ID + "_out.mp4"
	}
	ext := u.Ext
	if !media.CanEncode(u.Name) {
		ext = fallbackImageExt
	}
	return u.ID + "_out" + ext
}

// applyEdits resolves the template, compiles the edits and renders src into dst.
func (s *ProcessService) applyEdits(ctx context.Context, src, dst string, edits edit.Spec, templateID string, kind edit.Kind) error {
	spec, err := s.resolver.Resolve(ctx, edits, templateID, kind)
	if err != nil {
		return fmt.Errorf("resolve template: %w", err)
	}

	steps, err := s.compiler.Compile(spec, kind)
	if err != nil {
		return err
	}

	s.logger.Debug("compiled edits",
		slog.String("kind", string(kind)),
		slog.Any("steps", steps),
	)

	if kind == edit.KindImage {
		return s.processor.RenderImage(ctx, src, dst, steps)
	}
	return s.processor.RenderVideo(ctx, src, dst, steps)
}

// autocut keeps the loud spans of src, then applies any residual edits.
// A video without audio, or without any loud span, is passed through.
func (s *ProcessService) autocut(ctx context.Context, src, dst string, edits edit.Spec, templateID string) error {
	opts, err := autocut.OptionsFromSpec(edits)
	if err != nil {
		return err
	}
	residual := autocut.Residual(edits)

	cut := dst
	if len(residual) > 0 {
		cut = strings.TrimSuffix(dst, filepath.Ext(dst)) + "_cut.mp4"
		defer s.cleanup(ctx, cut)
	}

	if err := s.cut(ctx, src, cut, opts); err != nil {
		return err
	}

	if len(residual) == 0 {
		return nil
	}
	return s.applyEdits(ctx, cut, dst, residual, templateID, edit.KindVideo)
}

func (s *ProcessService) cut(ctx context.Context, src, dst string, opts autocut.Options) error {
	energy, err := s.analyzer.Energy(ctx, src)
	if errors.Is(err, audio.ErrNoAudio) {
		s.logger.Info("no audio track, passing video through", slog.String("path", src))
		return s.processor.Passthrough(ctx, src, dst)
	}
	if err != nil {
		return fmt.Errorf("measure audio: %w", err)
	}

	spans := autocut.SegmentEnergy(energy, opts)
	s.logger.Info("autocut spans",
		slog.Int("count", len(spans)),
		slog.Float64("kept_seconds", autocut.TotalDuration(spans)),
		slog.Float64("duration", energy.Duration),
	)
	if len(spans) == 0 {
		return s.processor.Passthrough(ctx, src, dst)
	}

	segments := make([]media.Segment, len(spans))
	for i, sp := range spans {
		end := sp.End
		segments[i] = media.Segment{Path: src, Trim: &edit.Range{Start: sp.Start, End: &end}}
	}
	return s.processor.Concat(ctx, segments, dst)
}

// ProcessTimeline stores the uploads in order and stitches them into one video.
// Files without a name are skipped; timeline indexes refer to the stored files.
func (s *ProcessService) ProcessTimeline(ctx context.Context, in TimelineInput) (*ProcessOutput, error) {
	job := New(ActionTimeline)
	job.SetKind(edit.KindVideo)

	var paths []string
	for i, f := range in.Files {
		if f.Filename == "" || f.Data == nil {
			continue
		}
		u, err := s.storage.SaveIndexedUpload(ctx, f.Filename, i, f.Data)
		if err != nil {
			return nil, fmt.Errorf("save upload %d: %w", i, err)
		}
		paths = append(paths, u.Path)
		job.AddInput(u.Path)
	}
	if len(paths) == 0 {
		return nil, ErrNoUpload
	}

	if err := s.repo.Save(ctx, job); err != nil {
		return nil, fmt.Errorf("save job: %w", err)
	}

	out, err := s.stitch(ctx, job, paths, in.Timeline)
	if err != nil {
		s.fail(ctx, job, err)
		return nil, err
	}
	s.complete(ctx, job, out)
	return out, nil
}

func (s *ProcessService) stitch(ctx context.Context, job *Job, paths []string, entries []timeline.Entry) (*ProcessOutput, error) {
	out := &ProcessOutput{JobID: job.ID, Kind: edit.KindVideo, OutputName: id.Hex() + "_timeline.mp4"}
	var err error
	if out.OutputPath, err = s.storage.OutputPath(out.OutputName); err != nil {
		return nil, err
	}

	s.logger.Info("stitching timeline",
		slog.String("job_id", job.ID),
		slog.Int("files", len(paths)),
		slog.Int("entries", len(entries)),
	)

	if err := timeline.Stitch(ctx, s.processor, paths, entries, out.OutputPath); err != nil {
		return nil, err
	}

	if out.OutputURL, err = s.publish(ctx, out.OutputPath, out.OutputName); err != nil {
		return nil, err
	}
	return out, nil
}

// publish uploads the output to S3 when configured and returns its URL.
func (s *ProcessService) publish(ctx context.Context, path, name string) (string, error) {
	f, err := os.Open(path) // #nosec G304 - path is inside the output directory
	if err != nil {
		return "", fmt.Errorf("open output: %w", err)
	}
	defer func() { _ = f.Close() }()

	url, err := s.storage.UploadToS3(ctx, name, f)
	if errors.Is(err, storage.ErrS3NotConfigured) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	s.logger.Info("output published", slog.String("url", url))
	return url, nil
}

// cleanup removes intermediate files. Failures are logged, not returned.
func (s *ProcessService) cleanup(ctx context.Context, paths ...string) {
	if err := s.storage.CleanupTemp(context.WithoutCancel(ctx), paths); err != nil {
		s.logger.Warn("failed to clean up intermediate files",
			slog.Any("paths", paths),
			slog.String("error", err.Error()),
		)
	}
}

func (s *ProcessService) complete(ctx context.Context, job *Job, out *ProcessOutput) {
	if err := job.Complete(out.OutputName, out.OutputURL); err != nil {
		s.logger.Error("failed to complete job", slog.String("job_id", job.ID), slog.String("error", err.Error()))
		return
	}
	s.save(ctx, job)
}

func (s *ProcessService) fail(ctx context.Context, job *Job, cause error) {
	s.logger.Error("processing failed",
		slog.String("job_id", job.ID),
		slog.String("error", cause.Error()),
	)
	if err := job.Fail(cause.Error()); err != nil {
		return
	}
	s.save(ctx, job)
}

// save records the job state. A cancelled request context must not prevent
// the final state from being stored.
func (s *ProcessService) save(ctx context.Context, job *Job) {
	if err := s.repo.Save(context.WithoutCancel(ctx), job); err != nil {
		s.logger.Error("failed to save job",
			slog.String("job_id", job.ID),
			slog.String("error", err.Error()),
		)
	}
}
