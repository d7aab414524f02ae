package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/maauso/mediaedit-api/internal/edit"
	"github.com/maauso/mediaedit-api/internal/job"
	"github.com/maauso/mediaedit-api/internal/timeline"
)

type result struct {
	JobID  string `json:"job_id"`
	Kind   string `json:"kind,omitempty"`
	Output string `json:"output"`
	URL    string `json:"url,omitempty"`
}

func newProcessCmd(load Loader) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "process FILE",
		Short: "Apply edits or autocut to one image or video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProcess(cmd, args[0], load)
		},
	}
	fs := cmd.Flags()
	fs.String("edits", "", "Edit specification as a JSON object")
	fs.String("edits-file", "", "Read the edit specification from a JSON file")
	fs.String("template", "", "Template id whose defaults fill in missing edits")
	fs.String("mode", "", "Media kind: image or video (default: detect from the extension)")
	fs.Bool("autocut", false, "Remove silent stretches instead of plain editing (video only)")
	fs.StringP("out", "o", "", "Copy the result to this path")
	cmd.MarkFlagsMutuallyExclusive("edits", "edits-file")
	return cmd
}

func runProcess(cmd *cobra.Command, path string, load Loader) error {
	fs := cmd.Flags()
	editsJSON, _ := fs.GetString("edits")
	editsFile, _ := fs.GetString("edits-file")
	templateID, _ := fs.GetString("template")
	mode, _ := fs.GetString("mode")
	autocut, _ := fs.GetBool("autocut")
	out, _ := fs.GetString("out")

	spec, err := readSpec(editsJSON, editsFile)
	if err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return usageError("open input: %w", err)
	}
	defer f.Close()

	deps, err := loadDeps(cmd, load)
	if err != nil {
		return err
	}

	action := job.ActionEdits
	if autocut {
		action = job.ActionAutocut
	}
	res, err := deps.Service.ProcessMedia(cmd.Context(), job.ProcessInput{
		File:       job.FileInput{Filename: filepath.Base(path), Data: f},
		Mode:       mode,
		Action:     action,
		Edits:      spec,
		TemplateID: templateID,
	})
	if err != nil {
		return processingError(err)
	}

	return report(cmd, res, out)
}

func newStitchCmd(load Loader) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stitch FILE...",
		Short: "Concatenate clips into one video",
		Long:  "stitch concatenates the given clips in timeline order. Timeline indexes refer to the position of each FILE argument.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStitch(cmd, args, load)
		},
	}
	fs := cmd.Flags()
	fs.String("timeline", "", `Timeline as a JSON list, e.g. [{"index":0,"trim":[1,null]}] (default: every file in order)`)
	fs.StringP("out", "o", "", "Copy the result to this path")
	return cmd
}

func runStitch(cmd *cobra.Command, paths []string, load Loader) error {
	raw, _ := cmd.Flags().GetString("timeline")
	out, _ := cmd.Flags().GetString("out")

	var entries []timeline.Entry
	if raw != "" {
		parsed, err := timeline.Parse([]byte(raw))
		if err != nil {
			return usageError("timeline: %w", err)
		}
		entries = parsed
	} else {
		for i := range paths {
			entries = append(entries, timeline.Entry{Index: i})
		}
	}

	files := make([]job.FileInput, 0, len(paths))
	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			return usageError("open input: %w", err)
		}
		defer f.Close()
		files = append(files, job.FileInput{Filename: filepath.Base(p), Data: f})
	}

	deps, err := loadDeps(cmd, load)
	if err != nil {
		return err
	}

	res, err := deps.Service.ProcessTimeline(cmd.Context(), job.TimelineInput{
		Files:    files,
		Timeline: entries,
	})
	if err != nil {
		return processingError(err)
	}
	return report(cmd, res, out)
}

func readSpec(editsJSON, editsFile string) (edit.Spec, error) {
	data := []byte(editsJSON)
	if editsFile != "" {
		b, err := os.ReadFile(editsFile)
		if err != nil {
			return nil, usageError("read edits: %w", err)
		}
		data = b
	}
	if len(data) == 0 {
		return edit.Spec{}, nil
	}
	spec, err := edit.DecodeSpec(data)
	if err != nil {
		return nil, usageError("edits: %w", err)
	}
	return spec, nil
}

func report(cmd *cobra.Command, res *job.ProcessOutput, out string) error {
	output := res.OutputPath
	if out != "" {
		if err := copyFile(res.OutputPath, out); err != nil {
			return processingError(fmt.Errorf("copy result: %w", err))
		}
		output = out
	}
	return printJSON(cmd.OutOrStdout(), result{
		JobID:  res.JobID,
		Kind:   string(res.Kind),
		Output: output,
		URL:    res.OutputURL,
	})
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	outFile, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(outFile, in); err != nil {
		outFile.Close()
		return err
	}
	return outFile.Close()
}
