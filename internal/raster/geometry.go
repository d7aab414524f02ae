package raster

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	"github.com/nfnt/resize"
	xdraw "golang.org/x/image/draw"
)

// Resize resamples img to w x h with bicubic interpolation.
func Resize(img *image.RGBA, w, h int) *image.RGBA {
	if b := img.Bounds(); b.Dx() == w && b.Dy() == h {
		return img
	}
	return ToRGBA(resize.Resize(uint(w), uint(h), img, resize.Bicubic))
}

// Crop extracts the rectangle r. Parts of r outside img are black.
func Crop(img *image.RGBA, r image.Rectangle) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	xdraw.Draw(dst, dst.Bounds(), image.NewUniform(color.RGBA{A: 0xff}), image.Point{}, xdraw.Src)

	src := r.Intersect(img.Bounds())
	if src.Empty() {
		return dst
	}
	xdraw.Draw(dst, src.Sub(r.Min), img, src.Min, xdraw.Src)
	return dst
}

// Blur applies a Gaussian blur with the given radius used as sigma.
func Blur(img *image.RGBA, radius float64) *image.RGBA {
	if radius <= 0 {
		return img
	}
	return ToRGBA(imaging.Blur(img, radius))
}

// Composite draws src over dst with its top-left corner at at.
func Composite(dst *image.RGBA, src image.Image, at image.Point) {
	sb := src.Bounds()
	xdraw.Draw(dst, sb.Sub(sb.Min).Add(at), src, sb.Min, xdraw.Over)
}

// EvenSize rounds w and h down to even values, as required by yuv420p.
func EvenSize(w, h int) (int, int) {
	w -= w % 2
	h -= h % 2
	if w < 2 {
		w = 2
	}
	if h < 2 {
		h = 2
	}
	return w, h
}
