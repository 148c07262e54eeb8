package media

import (
	"fmt"
	"image"
	"math"
)

// DefaultTimescale is the writer time-base: 1000 units per second.
const DefaultTimescale = 1000

// Time is a presentation timestamp expressed as Value/Timescale seconds.
type Time struct {
	Value     int64
	Timescale int32
}

// Millis converts seconds into the millisecond time-base, rounding to the
// nearest unit so that 1.575 becomes {1575, 1000}.
func Millis(seconds float64) Time {
	return Time{Value: int64(math.Round(seconds * DefaultTimescale)), Timescale: DefaultTimescale}
}

// Seconds returns the timestamp as floating point seconds.
func (t Time) Seconds() float64 {
	if t.Timescale <= 0 {
		return 0
	}
	return float64(t.Value) / float64(t.Timescale)
}

// Valid reports whether the timestamp has a usable time-base and is not negative.
func (t Time) Valid() bool {
	return t.Timescale > 0 && t.Value >= 0
}

// Before reports whether t is strictly earlier than o.
func (t Time) Before(o Time) bool {
	return t.Value*int64(o.Timescale) < o.Value*int64(t.Timescale)
}

func (t Time) String() string {
	return fmt.Sprintf("%d/%d (%.3fs)", t.Value, t.Timescale, t.Seconds())
}

// Size is a width/height pair in pixels.
type Size struct {
	W, H float64
}

// SizeOf returns the pixel size of an image's bounds.
func SizeOf(img image.Image) Size {
	b := img.Bounds()
	return Size{W: float64(b.Dx()), H: float64(b.Dy())}
}

// Aspect returns W/H, or 0 for a degenerate size.
func (s Size) Aspect() float64 {
	if s.H == 0 {
		return 0
	}
	return s.W / s.H
}

// Point returns the size as an integer image.Point.
func (s Size) Point() image.Point {
	return image.Pt(int(math.Round(s.W)), int(math.Round(s.H)))
}

// Frame is one rendered image tagged with its presentation timestamp.
// Index is the position of the frame in the emitted sequence.
type Frame struct {
	Index int
	Image image.Image
	PTS   Time
}
