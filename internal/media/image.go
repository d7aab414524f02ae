package media

import (
	"context"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	_ "golang.org/x/image/webp" // decoder only

	"github.com/maauso/mediaedit-api/internal/edit"
	"github.com/maauso/mediaedit-api/internal/raster"
)

// JPEGQuality is the quality used for JPEG output.
const JPEGQuality = 75

type encoderFunc func(w io.Writer, img image.Image) error

var encoders = map[string]encoderFunc{
	".png": png.Encode,
	".jpg": func(w io.Writer, img image.Image) error {
		return jpeg.Encode(w, img, &jpeg.Options{Quality: JPEGQuality})
	},
	".jpeg": func(w io.Writer, img image.Image) error {
		return jpeg.Encode(w, img, &jpeg.Options{Quality: JPEGQuality})
	},
	".gif": func(w io.Writer, img image.Image) error {
		return gif.Encode(w, img, nil)
	},
	".bmp": bmp.Encode,
	".tif": func(w io.Writer, img image.Image) error {
		return tiff.Encode(w, img, nil)
	},
	".tiff": func(w io.Writer, img image.Image) error {
		return tiff.Encode(w, img, nil)
	},
}

// CanEncode reports whether images can be written with the extension of name.
func CanEncode(name string) bool {
	_, ok := encoders[strings.ToLower(filepath.Ext(name))]
	return ok
}

// EncodeImage writes img in the format selected by ext (".png", ".jpg", ...).
func EncodeImage(w io.Writer, img image.Image, ext string) error {
	enc, ok := encoders[strings.ToLower(ext)]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	return enc(w, img)
}

// decodeImageFile decodes png, jpeg, gif, bmp, tiff or webp files.
func decodeImageFile(path string) (image.Image, error) {
	f, err := os.Open(path) // #nosec G304 - path is produced by the application
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	defer func() { _ = f.Close() }()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode image %s: %w", filepath.Base(path), err)
	}
	return img, nil
}

// RenderImage applies steps to the image at src and writes it to dst.
func (p *FFmpegProcessor) RenderImage(ctx context.Context, src, dst string, steps []edit.Step) error {
	ext := filepath.Ext(dst)
	if !CanEncode(dst) {
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}

	decoded, err := decodeImageFile(src)
	if err != nil {
		return err
	}
	img := raster.ToRGBA(decoded)

	for _, s := range steps {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("context cancelled: %w", err)
		}
		img = p.applyImageStep(img, s)
	}

	return writeImageFile(dst, img, ext)
}

func (p *FFmpegProcessor) applyImageStep(img *image.RGBA, s edit.Step) *image.RGBA {
	switch s.Op {
	case edit.OpResize:
		return raster.Resize(img, s.Size.Width, s.Size.Height)
	case edit.OpCrop:
		return raster.Crop(img, image.Rect(s.Box.Left, s.Box.Top, s.Box.Right, s.Box.Bottom))
	case edit.OpBrightness:
		raster.Brightness(img, s.Factor)
	case edit.OpContrast:
		raster.ContrastEnhance(img, s.Factor)
	case edit.OpSaturation:
		raster.SaturationEnhance(img, s.Factor)
	case edit.OpBlur:
		return raster.Blur(img, s.Factor)
	case edit.OpText:
		t := s.Text
		raster.DrawText(img, t.Text, image.Pt(t.Pos.X, t.Pos.Y), t.Color, p.fonts.Face(t.Size))
	default:
		p.logger.Warn("step not supported for images, skipping", slog.String("step", s.String()))
	}
	return img
}

func writeImageFile(path string, img image.Image, ext string) error {
	f, err := os.Create(path) // #nosec G304 - path is produced by the application
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	if err := EncodeImage(f, img, ext); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return fmt.Errorf("encode image: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close output: %w", err)
	}
	return nil
}
