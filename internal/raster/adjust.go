package raster

import (
	"image"
	"math"
)

// Brightness scales every channel by f, truncating the result.
func Brightness(img *image.RGBA, f float64) {
	var lut [256]uint8
	for v := range lut {
		lut[v] = clip8f(float32(v) * float32(f))
	}
	applyLUT(img, &lut)
}

// ContrastAdditive applies the luminance contrast used for video frames:
// k = int((f-1)*100) and out = v + k*(v-127), clamped. f == 1 is an identity.
func ContrastAdditive(img *image.RGBA, f float64) {
	k := int((f - 1.0) * 100)
	if k == 0 {
		return
	}
	var lut [256]uint8
	for v := range lut {
		lut[v] = clipInt(v + k*(v-127))
	}
	applyLUT(img, &lut)
}

// ContrastEnhance blends img against a flat gray image at the rounded mean
// luma with weight f.
func ContrastEnhance(img *image.RGBA, f float64) {
	mean := int(MeanLuma(img) + 0.5)
	var lut [256]uint8
	for v := range lut {
		lut[v] = blend(uint8(mean), uint8(v), f)
	}
	applyLUT(img, &lut)
}

// SaturationEnhance blends each pixel against its own luma with weight f.
func SaturationEnhance(img *image.RGBA, f float64) {
	eachPixel(img, func(p []uint8) {
		l := luma(p[0], p[1], p[2])
		p[0] = blend(l, p[0], f)
		p[1] = blend(l, p[1], f)
		p[2] = blend(l, p[2], f)
	})
}

// SaturationHSV scales the 8-bit HSV saturation of every pixel by f.
func SaturationHSV(img *image.RGBA, f float64) {
	var lut [256]uint8
	for s := range lut {
		lut[s] = clip8f(float32(s) * float32(f))
	}
	eachPixel(img, func(p []uint8) {
		h, s, v := RGBToHSV(p[0], p[1], p[2])
		p[0], p[1], p[2] = HSVToRGB(h, lut[s], v)
	})
}

// MeanLuma returns the average grayscale value of img.
func MeanLuma(img *image.RGBA) float64 {
	b := img.Bounds()
	n := b.Dx() * b.Dy()
	if n == 0 {
		return 0
	}
	var sum uint64
	eachPixel(img, func(p []uint8) {
		sum += uint64(luma(p[0], p[1], p[2]))
	})
	return float64(sum) / float64(n)
}

// blend interpolates from a to b with weight alpha in single precision.
func blend(a, b uint8, alpha float64) uint8 {
	return clip8f(float32(a) + float32(alpha)*float32(int(b)-int(a)))
}

func applyLUT(img *image.RGBA, lut *[256]uint8) {
	eachPixel(img, func(p []uint8) {
		p[0] = lut[p[0]]
		p[1] = lut[p[1]]
		p[2] = lut[p[2]]
	})
}

const hsvShift = 12

var sdivTable, hdivTable [256]int

func init() {
	for i := 1; i < 256; i++ {
		sdivTable[i] = int(math.RoundToEven(float64(255<<hsvShift) / float64(i)))
		hdivTable[i] = int(math.RoundToEven(float64(180<<hsvShift) / (6.0 * float64(i))))
	}
}

// RGBToHSV converts to 8-bit HSV with hue in [0, 180).
func RGBToHSV(r, g, b uint8) (h, s, v uint8) {
	ri, gi, bi := int(r), int(g), int(b)
	vmax := max(ri, gi, bi)
	vmin := min(ri, gi, bi)
	diff := vmax - vmin

	var sat int
	if vmax > 0 {
		sat = (diff*sdivTable[vmax] + (1 << (hsvShift - 1))) >> hsvShift
	}

	var hue int
	switch {
	case diff == 0:
		hue = 0
	case vmax == ri:
		hue = gi - bi
	case vmax == gi:
		hue = bi - ri + 2*diff
	default:
		hue = ri - gi + 4*diff
	}
	hue = (hue*hdivTable[diff] + (1 << (hsvShift - 1))) >> hsvShift
	if hue < 0 {
		hue += 180
	}
	return uint8(hue), uint8(sat), uint8(vmax)
}

var hsvSectors = [6][3]int{{1, 3, 0}, {1, 0, 2}, {3, 0, 1}, {0, 2, 1}, {0, 1, 3}, {2, 1, 0}}

// HSVToRGB converts 8-bit HSV (hue in [0, 180)) back to RGB.
func HSVToRGB(h, s, v uint8) (r, g, b uint8) {
	vf := float32(v) / 255
	if s == 0 {
		c := round8(vf)
		return c, c, c
	}
	sf := float32(s) / 255
	hf := float32(h) * (6.0 / 180.0)
	for hf >= 6 {
		hf -= 6
	}
	sector := int(math.Floor(float64(hf)))
	hf -= float32(sector)
	if sector < 0 || sector >= 6 {
		sector, hf = 0, 0
	}

	tab := [4]float32{
		vf,
		vf * (1 - sf),
		vf * (1 - sf*hf),
		vf * (1 - sf*(1-hf)),
	}
	sec := hsvSectors[sector]
	b = round8(tab[sec[0]])
	g = round8(tab[sec[1]])
	r = round8(tab[sec[2]])
	return r, g, b
}

func round8(unit float32) uint8 {
	return clipInt(roundEven(float64(unit * 255)))
}
