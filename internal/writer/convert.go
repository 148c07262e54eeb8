package writer

import (
	"image"
	"image/color"
	"io"
	"math"

	"github.com/ivlev/segment2video/internal/compositor"
	"github.com/ivlev/segment2video/internal/media"
	"github.com/ivlev/segment2video/internal/system"
	"golang.org/x/image/draw"
)

// converter turns frames into raw pixel buffers of the encode size. Two
// output buffers alternate so the previous frame stays intact for gap
// filling.
type converter struct {
	size   image.Rectangle
	format PixelFormat
	bufs   [2][]byte
	turn   int
}

func newConverter(w, h int, format PixelFormat) *converter {
	return &converter{size: image.Rect(0, 0, w, h), format: format}
}

func (c *converter) convert(img image.Image) []byte {
	rgba, pooled := c.fit(img)
	if pooled {
		defer system.PutImage(rgba)
	}

	n := len(rgba.Pix)
	buf := c.bufs[c.turn]
	if len(buf) != n {
		buf = make([]byte, n)
		c.bufs[c.turn] = buf
	}
	c.turn ^= 1

	src := rgba.Pix
	switch c.format {
	case BGRA:
		for i := 0; i < n; i += 4 {
			buf[i], buf[i+1], buf[i+2], buf[i+3] = src[i+2], src[i+1], src[i], src[i+3]
		}
	case ARGB:
		for i := 0; i < n; i += 4 {
			buf[i], buf[i+1], buf[i+2], buf[i+3] = src[i+3], src[i], src[i+1], src[i+2]
		}
	default:
		copy(buf, src)
	}
	return buf
}

// fit returns a tightly packed RGBA image of the encode size. Frames of
// another size are scaled to fit and letterboxed in black.
func (c *converter) fit(img image.Image) (*image.RGBA, bool) {
	b := img.Bounds()
	if b.Dx() == c.size.Dx() && b.Dy() == c.size.Dy() {
		if rgba, ok := img.(*image.RGBA); ok && rgba.Stride == b.Dx()*4 && b.Min == (image.Point{}) {
			return rgba, false
		}
		dst := system.GetImage(c.size)
		draw.Draw(dst, c.size, img, b.Min, draw.Src)
		return dst, true
	}

	dst := system.GetImage(c.size)
	draw.Draw(dst, c.size, image.NewUniform(color.Black), image.Point{}, draw.Src)
	fit := compositor.AspectFit(media.Size{W: float64(c.size.Dx()), H: float64(c.size.Dy())}, media.SizeOf(img).Aspect())
	r := image.Rect(int(fit.X+0.5), int(fit.Y+0.5), int(fit.X+fit.W+0.5), int(fit.Y+fit.H+0.5))
	draw.BiLinear.Scale(dst, r, img, b, draw.Over, nil)
	return dst, true
}

// grid lays frames onto the constant frame rate timeline. A frame takes the
// slot nearest its pts but never one at or before its predecessor's, and
// the previous frame is repeated across any gap.
type grid struct {
	fps   int
	start float64
	next  int64
	prev  []byte
}

func (g *grid) slot(pts media.Time) int64 {
	s := int64(math.Round((pts.Seconds() - g.start) * float64(g.fps)))
	return max(s, g.next)
}

// place writes frame into its slot, repeating the previous frame (or frame
// itself when there is none yet) over the slots in between.
func (g *grid) place(w io.Writer, frame []byte, pts media.Time) (int, error) {
	target := g.slot(pts)
	fill := g.prev
	if fill == nil {
		fill = frame
	}
	written := 0
	for ; g.next < target; g.next++ {
		if _, err := w.Write(fill); err != nil {
			return written, err
		}
		written++
	}
	if _, err := w.Write(frame); err != nil {
		return written, err
	}
	g.next++
	g.prev = frame
	return written + 1, nil
}

// hold repeats the last frame for n more slots.
func (g *grid) hold(w io.Writer, n int) (int, error) {
	for i := 0; i < n; i++ {
		if _, err := w.Write(g.prev); err != nil {
			return i, err
		}
		g.next++
	}
	return n, nil
}
