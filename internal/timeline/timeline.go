// Package timeline plans multi-clip stitches: which uploaded segments take
// part, in which order, and how each is trimmed.
package timeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"

	"github.com/maauso/mediaedit-api/internal/edit"
	"github.com/maauso/mediaedit-api/internal/media"
)

const fieldTimeline = "timeline"

// Entry associates an optional trim with the segment at Index.
type Entry struct {
	Index int
	Trim  *edit.Range
}

// Parse decodes a JSON timeline: a list of {"index": n, "trim": [start, end|null]}
// objects. Empty input is an empty timeline. Entries whose index is missing or
// not a non-negative integer are dropped, since they cannot refer to an upload.
func Parse(data []byte) ([]Entry, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	var raw []map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: timeline: %w", edit.ErrInvalidJSON, err)
	}

	entries := make([]Entry, 0, len(raw))
	for i, obj := range raw {
		idx, ok := parseIndex(obj["index"])
		if !ok {
			// never matches an upload position
			continue
		}
		e := Entry{Index: idx}
		if v, ok := obj["trim"]; ok && v != nil {
			r, err := edit.ParseRange("trim", v)
			if err != nil {
				return nil, &edit.ValidationError{Key: fieldTimeline, Reason: fmt.Sprintf("entry %d: %v", i, err)}
			}
			e.Trim = &r
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// parseIndex accepts non-negative integral JSON numbers.
func parseIndex(v any) (int, bool) {
	f, ok := v.(float64)
	if !ok || f < 0 || f != math.Trunc(f) || f > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}

// TrimFor returns the trim of the first entry for index that has one.
func TrimFor(entries []Entry, index int) *edit.Range {
	for _, e := range entries {
		if e.Index == index && e.Trim != nil {
			return e.Trim
		}
	}
	return nil
}

// Plan builds the ordered segment list for paths. Paths for which exists
// returns false are skipped; indexes always refer to positions in paths.
func Plan(paths []string, entries []Entry, exists func(string) bool) []media.Segment {
	if exists == nil {
		exists = fileExists
	}
	segments := make([]media.Segment, 0, len(paths))
	for i, p := range paths {
		if !exists(p) {
			continue
		}
		segments = append(segments, media.Segment{Path: p, Trim: TrimFor(entries, i)})
	}
	return segments
}

// Concatenator joins planned segments.
type Concatenator interface {
	Concat(ctx context.Context, segments []media.Segment, dst string) error
}

// Stitch plans paths against entries and concatenates the result into dst.
// It returns media.ErrNoSegments without writing anything when no path exists.
func Stitch(ctx context.Context, c Concatenator, paths []string, entries []Entry, dst string) error {
	segments := Plan(paths, entries, nil)
	if len(segments) == 0 {
		return media.ErrNoSegments
	}
	return c.Concat(ctx, segments, dst)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
