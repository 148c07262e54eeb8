package segment

import (
	"fmt"
	"image"
	"math"

	"golang.org/x/image/draw"
)

// ContrastSegmenterName selects the built-in ContrastSegmenter as
// MaskProvider.Segmenter.
const ContrastSegmenterName = "contrast"

// ContrastSegmenter guesses a subject mask without a model: Sobel edges are
// dilated into regions and the largest connected region becomes the
// subject. It suits pages and flat-backdrop photos.
type ContrastSegmenter struct {
	EdgeThreshold float64 // gradient magnitude threshold
	Radius        int     // dilation half-width
	Iterations    int
}

func NewContrastSegmenter() *ContrastSegmenter {
	return &ContrastSegmenter{
		EdgeThreshold: 30.0,
		Radius:        2,
		Iterations:    2,
	}
}

// Mask returns a subject mask with the bounds of img placed at the origin.
func (d *ContrastSegmenter) Mask(img image.Image) (*image.Gray, error) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w < 3 || h < 3 {
		return nil, fmt.Errorf("%w: image %dx%d too small", ErrMaskUnusable, w, h)
	}

	gray := image.NewGray(image.Rect(0, 0, w, h))
	draw.Draw(gray, gray.Bounds(), img, b.Min, draw.Src)

	on := sobel(gray.Pix, w, h, d.EdgeThreshold)
	for i := 0; i < d.Iterations; i++ {
		on = dilate(on, w, h, d.Radius)
	}

	subject := largestRegion(on, w, h)
	if subject == nil {
		return nil, ErrSubjectNotFound
	}

	mask := image.NewGray(gray.Bounds())
	for i, v := range subject {
		if v {
			mask.Pix[i] = 255
		}
	}
	return mask, nil
}

func sobel(pix []uint8, w, h int, threshold float64) []bool {
	at := func(x, y int) float64 { return float64(pix[y*w+x]) }
	edges := make([]bool, w*h)
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			gx := -at(x-1, y-1) + at(x+1, y-1) - 2*at(x-1, y) + 2*at(x+1, y) - at(x-1, y+1) + at(x+1, y+1)
			gy := -at(x-1, y-1) - 2*at(x, y-1) - at(x+1, y-1) + at(x-1, y+1) + 2*at(x, y+1) + at(x+1, y+1)
			edges[y*w+x] = math.Sqrt(gx*gx+gy*gy) > threshold
		}
	}
	return edges
}

// dilate grows set pixels by r in every direction, one axis at a time.
func dilate(on []bool, w, h, r int) []bool {
	if r <= 0 {
		return on
	}
	rows := make([]bool, len(on))
	for y := 0; y < h; y++ {
		last := -r - 1
		for x := 0; x < w; x++ {
			if on[y*w+x] {
				last = x
			}
			if x-last <= r {
				rows[y*w+x] = true
			}
		}
		next := w + r + 1
		for x := w - 1; x >= 0; x-- {
			if on[y*w+x] {
				next = x
			}
			if next-x <= r {
				rows[y*w+x] = true
			}
		}
	}

	out := make([]bool, len(on))
	for x := 0; x < w; x++ {
		last := -r - 1
		for y := 0; y < h; y++ {
			if rows[y*w+x] {
				last = y
			}
			if y-last <= r {
				out[y*w+x] = true
			}
		}
		next := h + r + 1
		for y := h - 1; y >= 0; y-- {
			if rows[y*w+x] {
				next = y
			}
			if next-y <= r {
				out[y*w+x] = true
			}
		}
	}
	return out
}

// largestRegion keeps the biggest 4-connected set of pixels, or returns nil
// when nothing is set.
func largestRegion(on []bool, w, h int) []bool {
	labels := make([]int32, len(on))
	var best, bestSize int32
	var label int32
	stack := make([]int, 0, 1024)

	for start := range on {
		if !on[start] || labels[start] != 0 {
			continue
		}
		label++
		size := int32(0)
		labels[start] = label
		stack = append(stack[:0], start)
		for len(stack) > 0 {
			i := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			size++
			x, y := i%w, i/w
			for _, n := range [4]int{i - 1, i + 1, i - w, i + w} {
				switch {
				case n == i-1 && x == 0, n == i+1 && x == w-1, n == i-w && y == 0, n == i+w && y == h-1:
					continue
				}
				if on[n] && labels[n] == 0 {
					labels[n] = label
					stack = append(stack, n)
				}
			}
		}
		if size > bestSize {
			best, bestSize = label, size
		}
	}

	if best == 0 {
		return nil
	}
	out := make([]bool, len(on))
	for i, l := range labels {
		out[i] = l == best
	}
	return out
}
