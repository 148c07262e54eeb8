package compositor

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
)

// Compositor flattens layer stacks onto an opaque canvas.
type Compositor struct {
	Interpolator draw.Interpolator
	Background   color.Color
}

// New returns a compositor drawing with bilinear filtering over black.
func New() *Compositor {
	return &Compositor{
		Interpolator: draw.BiLinear,
		Background:   color.Black,
	}
}

// Render paints the stack bottom-to-top onto a fresh canvas. The stack is
// not modified.
func (c *Compositor) Render(stack Stack, canvas image.Point) (*image.RGBA, error) {
	if canvas.X <= 0 || canvas.Y <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrDegenerateCanvas, canvas.X, canvas.Y)
	}

	dst := image.NewRGBA(image.Rect(0, 0, canvas.X, canvas.Y))
	bg := c.Background
	if bg == nil {
		bg = color.Black
	}
	draw.Draw(dst, dst.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)

	for i, l := range stack.layers {
		if err := c.drawLayer(dst, l, canvas); err != nil {
			return nil, fmt.Errorf("layer %d (%s): %w", i, l.Label, err)
		}
	}
	return dst, nil
}

func (c *Compositor) drawLayer(dst *image.RGBA, l Layer, canvas image.Point) error {
	if l.Content == nil {
		return ErrDegenerateLayer
	}
	sb := l.Content.Bounds()
	if sb.Empty() {
		return ErrDegenerateLayer
	}
	r := l.Resolve(canvas)
	if r.W <= 0 || r.H <= 0 {
		return fmt.Errorf("%w: placement %.2fx%.2f", ErrDegenerateLayer, r.W, r.H)
	}

	interp := c.Interpolator
	if interp == nil {
		interp = draw.BiLinear
	}

	if l.Rotation == 0 {
		dr := image.Rect(
			int(math.Round(r.X)), int(math.Round(r.Y)),
			int(math.Round(r.X+r.W)), int(math.Round(r.Y+r.H)),
		)
		if dr.Dx() == sb.Dx() && dr.Dy() == sb.Dy() {
			draw.Draw(dst, dr, l.Content, sb.Min, draw.Over)
			return nil
		}
		interp.Scale(dst, dr, l.Content, sb, draw.Over, nil)
		return nil
	}

	interp.Transform(dst, placement(r, sb, l.Rotation), l.Content, sb, draw.Over, nil)
	return nil
}

// placement maps source pixels of sb onto r, rotated by theta about the
// centre of r.
func placement(r Rect, sb image.Rectangle, theta float64) f64.Aff3 {
	sx := r.W / float64(sb.Dx())
	sy := r.H / float64(sb.Dy())
	cos, sin := math.Cos(theta), math.Sin(theta)
	cx, cy := r.X+r.W/2, r.Y+r.H/2
	minX, minY := float64(sb.Min.X), float64(sb.Min.Y)

	a, b := cos*sx, -sin*sy
	d, e := sin*sx, cos*sy
	return f64.Aff3{
		a, b, cx - cos*r.W/2 + sin*r.H/2 - a*minX - b*minY,
		d, e, cy - sin*r.W/2 - cos*r.H/2 - d*minX - e*minY,
	}
}
