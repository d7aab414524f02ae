// Package bootstrap provides dependency initialization for the media edit API.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/maauso/mediaedit-api/internal/audio"
	"github.com/maauso/mediaedit-api/internal/config"
	"github.com/maauso/mediaedit-api/internal/job"
	"github.com/maauso/mediaedit-api/internal/media"
	"github.com/maauso/mediaedit-api/internal/raster"
	"github.com/maauso/mediaedit-api/internal/storage"
	"github.com/maauso/mediaedit-api/internal/template"
)

// Dependencies holds all initialized dependencies shared by the HTTP server
// and the command line tool.
type Dependencies struct {
	Service   *job.ProcessService
	Templates *template.Resolver
	Storage   storage.Storage
}

// NewDependencies creates and initializes all dependencies for the application.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	store, err := initStorage(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	fonts := raster.NewFonts(cfg.FontFamily, cfg.FontDirs, logger)
	processor := media.NewFFmpegProcessor(cfg.FFmpegPath, cfg.FFprobePath, fonts, logger)
	analyzer := audio.NewFFmpegAnalyzer(processor.FFmpegPath(), processor)

	templateStore := template.NewFileStore(cfg.TemplateStore, logger)
	templates := template.NewResolver(templateStore)
	logger.Info("media toolchain configured",
		slog.String("ffmpeg", processor.FFmpegPath()),
		slog.String("template_store", templateStore.Path()),
	)

	svc := job.NewProcessService(
		job.NewMemoryRepository(),
		store,
		processor,
		analyzer,
		templates,
		logger,
	)

	return &Dependencies{
		Service:   svc,
		Templates: templates,
		Storage:   store,
	}, nil
}

// initStorage creates the appropriate storage backend based on configuration.
func initStorage(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.Storage, error) {
	if cfg.S3Enabled() {
		s3Cfg := storage.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
		}
		s3Store, err := storage.NewS3Storage(ctx, cfg.UploadDir, cfg.OutputDir, s3Cfg)
		if err != nil {
			return nil, fmt.Errorf("create S3 storage: %w", err)
		}
		logger.Info("S3 storage configured",
			slog.String("bucket", cfg.S3Bucket),
			slog.String("region", cfg.S3Region),
		)
		return s3Store, nil
	}

	localStore, err := storage.NewLocalStorage(cfg.UploadDir, cfg.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("create local storage: %w", err)
	}
	logger.Info("local storage configured",
		slog.String("upload_dir", localStore.UploadDir()),
		slog.String("output_dir", localStore.OutputDir()),
	)
	return localStore, nil
}
