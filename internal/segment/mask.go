package segment

import (
	"fmt"
	"image"

	"golang.org/x/image/draw"
)

// DefaultSmoothRadius is the half-width of the mask smoothing window.
const DefaultSmoothRadius = 2

// coverage reads the red channel of mask, resized to w x h, as 8-bit subject
// coverage.
func coverage(mask image.Image, w, h int) []uint8 {
	var src image.Image = mask
	if mb := mask.Bounds(); mb.Dx() != w || mb.Dy() != h {
		scaled := image.NewRGBA(image.Rect(0, 0, w, h))
		draw.BiLinear.Scale(scaled, scaled.Bounds(), mask, mb, draw.Src, nil)
		src = scaled
	}

	b := src.Bounds()
	cov := make([]uint8, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, _, _, _ := src.At(b.Min.X+x, b.Min.Y+y).RGBA()
			cov[y*w+x] = uint8(r >> 8)
		}
	}
	return cov
}

// threshold snaps soft model output to a hard mask: faint noise drops to
// zero and anything from 50 up becomes fully opaque.
func threshold(v uint8) uint8 {
	switch {
	case v > 1 && v < 50:
		return 0
	case v >= 50 && v < 255:
		return 255
	}
	return v
}

// smooth is a median filter over a (2r+1)^2 window. After thresholding the
// mask is binary, so the median is a majority vote computed from a
// summed-area table.
func smooth(cov []uint8, w, h, radius int) []uint8 {
	if radius <= 0 {
		return cov
	}
	sat := make([]int, (w+1)*(h+1))
	for y := 0; y < h; y++ {
		row := 0
		for x := 0; x < w; x++ {
			if cov[y*w+x] >= 128 {
				row++
			}
			sat[(y+1)*(w+1)+x+1] = sat[y*(w+1)+x+1] + row
		}
	}

	out := make([]uint8, len(cov))
	for y := 0; y < h; y++ {
		y0, y1 := max(y-radius, 0), min(y+radius+1, h)
		for x := 0; x < w; x++ {
			x0, x1 := max(x-radius, 0), min(x+radius+1, w)
			on := sat[y1*(w+1)+x1] - sat[y0*(w+1)+x1] - sat[y1*(w+1)+x0] + sat[y0*(w+1)+x0]
			if 2*on > (x1-x0)*(y1-y0) {
				out[y*w+x] = 255
			}
		}
	}
	return out
}

// Build derives the foreground and background cutouts of src from a subject
// mask. The mask is thresholded, smoothed and stretched to src bounds.
func Build(id string, src, mask image.Image, radius int) (*Result, error) {
	if src == nil || src.Bounds().Empty() {
		return nil, fmt.Errorf("%s: %w", id, ErrImageNotFound)
	}
	if mask == nil || mask.Bounds().Empty() {
		return nil, fmt.Errorf("%s: %w", id, ErrMaskUnusable)
	}

	b := src.Bounds()
	w, h := b.Dx(), b.Dy()

	cov := coverage(mask, w, h)
	for i, v := range cov {
		cov[i] = threshold(v)
	}
	cov = smooth(cov, w, h, radius)

	subject := 0
	for _, v := range cov {
		if v > 0 {
			subject++
		}
	}
	if subject == 0 {
		return nil, fmt.Errorf("%s: %w", id, ErrSubjectNotFound)
	}

	base := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(base, base.Bounds(), src, b.Min, draw.Src)

	fg := image.NewRGBA(base.Bounds())
	bg := image.NewRGBA(base.Bounds())
	for i, m := range cov {
		fm, bm := uint32(m), uint32(255-m)
		for c := 0; c < 4; c++ {
			v := uint32(base.Pix[i*4+c])
			fg.Pix[i*4+c] = uint8(v * fm / 255)
			bg.Pix[i*4+c] = uint8(v * bm / 255)
		}
	}

	return &Result{ID: id, Source: base, Background: bg, Foreground: fg}, nil
}
