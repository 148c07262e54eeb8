package compositor

import (
	"errors"
	"fmt"
	"image"
)

var (
	ErrIndexOutOfRange  = errors.New("layer index out of range")
	ErrDegenerateLayer  = errors.New("layer content is empty or degenerate")
	ErrDegenerateCanvas = errors.New("canvas size must be positive")
)

// Unit selects how a layer rectangle is interpreted.
type Unit string

const (
	// Fraction rectangles are multiplied by the canvas size at render time.
	Fraction Unit = "fraction"
	// Pixel rectangles are absolute canvas pixels.
	Pixel Unit = "pixel"
)

// Rect is a floating point placement rectangle (origin top-left).
type Rect struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
	W float64 `yaml:"w"`
	H float64 `yaml:"h"`
}

// Full is the whole canvas in Fraction units.
var Full = Rect{X: 0, Y: 0, W: 1, H: 1}

// Centered returns a rect of the given size whose centre is (cx, cy).
func Centered(cx, cy, w, h float64) Rect {
	return Rect{X: cx - w/2, Y: cy - h/2, W: w, H: h}
}

// Layer is one positioned, optionally rotated image in a Stack.
// Rotation is in radians, clockwise in canvas coordinates, about the
// centre of the placement rectangle.
type Layer struct {
	Label    string
	Content  image.Image
	Frame    Rect
	Unit     Unit
	Rotation float64
}

// Resolve returns the layer rectangle in canvas pixels.
func (l Layer) Resolve(canvas image.Point) Rect {
	if l.Unit == Pixel {
		return l.Frame
	}
	cw, ch := float64(canvas.X), float64(canvas.Y)
	return Rect{X: l.Frame.X * cw, Y: l.Frame.Y * ch, W: l.Frame.W * cw, H: l.Frame.H * ch}
}

func (l Layer) String() string {
	name := l.Label
	if name == "" {
		name = "layer"
	}
	return fmt.Sprintf("%s@(%.3f,%.3f %.3fx%.3f %s r=%.2f)", name, l.Frame.X, l.Frame.Y, l.Frame.W, l.Frame.H, l.Unit, l.Rotation)
}

// Stack is an ordered list of layers; later layers paint over earlier ones.
// The zero value is an empty stack.
type Stack struct {
	layers []Layer
}

// NewStack returns a stack holding a copy of layers.
func NewStack(layers ...Layer) Stack {
	s := Stack{}
	s.layers = append(s.layers, layers...)
	return s
}

func (s *Stack) Append(l Layer) {
	s.layers = append(s.layers, l)
}

// Insert places l at index at, shifting later layers up. at == Len() appends.
// An out of range index leaves the stack unchanged.
func (s *Stack) Insert(l Layer, at int) error {
	if at < 0 || at > len(s.layers) {
		return fmt.Errorf("%w: insert at %d, stack has %d layers", ErrIndexOutOfRange, at, len(s.layers))
	}
	s.layers = append(s.layers, Layer{})
	copy(s.layers[at+1:], s.layers[at:])
	s.layers[at] = l
	return nil
}

func (s *Stack) RemoveAll() {
	s.layers = nil
}

func (s Stack) Len() int {
	return len(s.layers)
}

// Layers returns a copy of the layers in paint order.
func (s Stack) Layers() []Layer {
	out := make([]Layer, len(s.layers))
	copy(out, s.layers)
	return out
}

// Clone returns an independent copy. Layer content images are shared; they
// are never modified after insertion.
func (s Stack) Clone() Stack {
	return NewStack(s.layers...)
}
