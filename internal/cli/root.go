// Package cli implements mediactl, a command line front end to the media
// processing service that works without the HTTP server.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/maauso/mediaedit-api/internal/bootstrap"
	"github.com/maauso/mediaedit-api/internal/config"
)

// Process exit codes.
const (
	ExitOK              = 0
	ExitCLIError        = 1
	ExitProcessingError = 2
)

// ExitError wraps an error with a process exit code.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

func usageError(format string, args ...any) error {
	return &ExitError{Code: ExitCLIError, Err: fmt.Errorf(format, args...)}
}

func processingError(err error) error {
	return &ExitError{Code: ExitProcessingError, Err: err}
}

// Loader builds the service dependencies for a command.
type Loader func(ctx context.Context, envFile string, stderr io.Writer) (*bootstrap.Dependencies, error)

// DefaultLoader reads configuration from the environment and envFile.
func DefaultLoader(ctx context.Context, envFile string, stderr io.Writer) (*bootstrap.Dependencies, error) {
	var files []string
	if envFile != "" {
		files = append(files, envFile)
	}
	cfg, err := config.Load(files...)
	if err != nil {
		return nil, err
	}
	return bootstrap.NewDependencies(ctx, cfg, cfg.NewLoggerTo(stderr))
}

// NewRootCmd creates the mediactl command tree.
func NewRootCmd(load Loader) *cobra.Command {
	root := &cobra.Command{
		Use:           "mediactl",
		Short:         "Edit, autocut and stitch media files",
		Long:          "mediactl applies edit specifications and templates to images and videos, cuts silence out of videos and stitches clips into one timeline, using the same pipeline as the HTTP API.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	bindRootFlags(root.PersistentFlags())

	root.AddCommand(newProcessCmd(load))
	root.AddCommand(newStitchCmd(load))
	root.AddCommand(newTemplatesCmd(load))

	return root
}

func bindRootFlags(fs *pflag.FlagSet) {
	fs.String("env-file", "", "Read variables from this file before the environment (default .env)")
}

// Execute runs the CLI with the provided context.
func Execute(ctx context.Context) error {
	return NewRootCmd(DefaultLoader).ExecuteContext(ctx)
}

func loadDeps(cmd *cobra.Command, load Loader) (*bootstrap.Dependencies, error) {
	envFile, _ := cmd.Flags().GetString("env-file")
	deps, err := load(cmd.Context(), envFile, cmd.ErrOrStderr())
	if err != nil {
		return nil, usageError("initialize: %w", err)
	}
	return deps, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
