package compositor

import (
	"fmt"
	"image"
	"math"

	"github.com/ivlev/segment2video/internal/media"
	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
)

// AspectFit returns the largest rectangle with the given width/height ratio
// that fits inside a rectangle of size content, centred in it.
func AspectFit(content media.Size, aspect float64) Rect {
	if content.W <= 0 || content.H <= 0 || aspect <= 0 {
		return Rect{}
	}
	w, h := content.W, content.W/aspect
	if h > content.H {
		h = content.H
		w = content.H * aspect
	}
	return Rect{X: (content.W - w) / 2, Y: (content.H - h) / 2, W: w, H: h}
}

type subImager interface {
	SubImage(r image.Rectangle) image.Image
}

// CropToAspect returns the centred aspect-fit crop of img. Images already at
// the target aspect are returned as is.
func CropToAspect(img image.Image, aspect float64) image.Image {
	if img == nil {
		return nil
	}
	b := img.Bounds()
	fit := AspectFit(media.SizeOf(img), aspect)
	if fit.W <= 0 || fit.H <= 0 {
		return img
	}
	crop := image.Rect(
		b.Min.X+int(math.Round(fit.X)), b.Min.Y+int(math.Round(fit.Y)),
		b.Min.X+int(math.Round(fit.X+fit.W)), b.Min.Y+int(math.Round(fit.Y+fit.H)),
	).Intersect(b)
	if crop == b || crop.Empty() {
		return img
	}
	if si, ok := img.(subImager); ok {
		return si.SubImage(crop)
	}
	out := image.NewRGBA(image.Rect(0, 0, crop.Dx(), crop.Dy()))
	draw.Draw(out, out.Bounds(), img, crop.Min, draw.Src)
	return out
}

// MaskWith keeps the pixels of content where mask is opaque. The mask is
// stretched over content and zoomed by scale about its centre, so scale > 1
// grows the silhouette past its original outline.
func MaskWith(content, mask image.Image, scale float64) (*image.RGBA, error) {
	if content == nil || mask == nil {
		return nil, ErrDegenerateLayer
	}
	cb, mb := content.Bounds(), mask.Bounds()
	if cb.Empty() || mb.Empty() {
		return nil, ErrDegenerateLayer
	}
	if scale <= 0 {
		return nil, fmt.Errorf("mask scale must be positive, got %f", scale)
	}

	w, h := cb.Dx(), cb.Dy()
	sx := float64(w) * scale / float64(mb.Dx())
	sy := float64(h) * scale / float64(mb.Dy())
	tx := float64(w)/2 - sx*float64(mb.Dx())/2 - sx*float64(mb.Min.X)
	ty := float64(h)/2 - sy*float64(mb.Dy())/2 - sy*float64(mb.Min.Y)

	zoomed := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.BiLinear.Transform(zoomed, f64.Aff3{sx, 0, tx, 0, sy, ty}, mask, mb, draw.Src, nil)

	out := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.DrawMask(out, out.Bounds(), content, cb.Min, zoomed, image.Point{}, draw.Src)
	return out, nil
}
