// Package edit defines the edit specification accepted by the service and
// compiles it into the canonical, ordered list of transform steps.
package edit

import (
	"path/filepath"
	"strings"
)

// Kind is the media kind a specification is compiled for.
// It is decided once per request and passed explicitly to every component.
type Kind string

const (
	// KindVideo selects the video pipeline.
	KindVideo Kind = "video"
	// KindImage selects the image pipeline.
	KindImage Kind = "image"
)

// Recognized edit keys.
const (
	KeyFilter           = "filter"
	KeyTrim             = "trim"
	KeySpeed            = "speed"
	KeyResize           = "resize"
	KeyCrop             = "crop"
	KeyBrightness       = "brightness"
	KeyContrast         = "contrast"
	KeySaturation       = "saturation"
	KeyBlur             = "blur"
	KeyText             = "text"
	KeyFontSize         = "font_size"
	KeyTextColor        = "text_color"
	KeyTextPos          = "text_pos"
	KeyOverlay          = "overlay"
	KeySilenceThreshold = "silence_threshold"
	KeyMinClip          = "min_clip"
)

var videoExts = map[string]bool{
	".mp4":  true,
	".mov":  true,
	".mkv":  true,
	".webm": true,
	".avi":  true,
}

// IsVideoFile reports whether the file extension is a recognized video container.
func IsVideoFile(name string) bool {
	return videoExts[strings.ToLower(filepath.Ext(name))]
}

// DetectKind resolves the media kind of an upload. An explicit "image" or
// "video" mode wins; any other mode falls back to the file extension.
func DetectKind(mode, filename string) Kind {
	switch mode {
	case string(KindImage):
		return KindImage
	case string(KindVideo):
		return KindVideo
	}
	if IsVideoFile(filename) {
		return KindVideo
	}
	return KindImage
}

// Spec maps edit names to their parameters, as decoded from JSON.
type Spec map[string]any

// Clone returns a shallow copy of s. A nil Spec clones to an empty one.
func (s Spec) Clone() Spec {
	out := make(Spec, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Without returns a copy of s with the given keys removed.
func (s Spec) Without(keys ...string) Spec {
	out := s.Clone()
	for _, k := range keys {
		delete(out, k)
	}
	return out
}

// Has reports whether key is present, whatever its value.
func (s Spec) Has(key string) bool {
	_, ok := s[key]
	return ok
}

// Merge overlays override on top of base. Keys in override always win;
// keys only present in base pass through.
func Merge(base, override Spec) Spec {
	out := base.Clone()
	for k, v := range override {
		out[k] = v
	}
	return out
}
