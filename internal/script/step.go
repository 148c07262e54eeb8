package script

import (
	"errors"
	"fmt"

	"github.com/ivlev/segment2video/internal/compositor"
	"github.com/ivlev/segment2video/internal/segment"
)

var (
	ErrInvalidScript = errors.New("invalid script")
	ErrUnknownOp     = errors.New("unknown step op")
	ErrMissingLayer  = errors.New("step has no layer")
)

// Op tags a script step.
type Op string

const (
	OpAppend Op = "append"
	OpInsert Op = "insert"
	OpClear  Op = "clear"
	OpEmit   Op = "emit"
)

// MaskSpec cuts a layer's content down to the silhouette of another segment
// image, zoomed by Scale about its centre.
type MaskSpec struct {
	Slot  int          `yaml:"slot"`
	Image segment.Kind `yaml:"image"`
	Scale float64      `yaml:"scale,omitempty"`
}

// LayerSpec names the content of a layer by slot and image kind and
// describes where it goes. With neither Frame nor Zoom set the layer covers
// the whole canvas. Zoom enlarges the layer about the canvas centre in pixel
// units.
type LayerSpec struct {
	Slot     int              `yaml:"slot"`
	Image    segment.Kind     `yaml:"image"`
	Mask     *MaskSpec        `yaml:"mask,omitempty"`
	Frame    *compositor.Rect `yaml:"frame,omitempty"`
	Unit     compositor.Unit  `yaml:"unit,omitempty"`
	Zoom     float64          `yaml:"zoom,omitempty"`
	Rotation float64          `yaml:"rotation,omitempty"`
}

// Source, Foreground and Background select an image of a slot.
func Source(slot int) LayerSpec     { return LayerSpec{Slot: slot, Image: segment.Source} }
func Foreground(slot int) LayerSpec { return LayerSpec{Slot: slot, Image: segment.Foreground} }
func Background(slot int) LayerSpec { return LayerSpec{Slot: slot, Image: segment.Background} }

// In places the layer at r, in canvas fractions.
func (l LayerSpec) In(r compositor.Rect) LayerSpec {
	l.Frame = &r
	l.Unit = compositor.Fraction
	return l
}

func (l LayerSpec) Rotated(theta float64) LayerSpec {
	l.Rotation = theta
	return l
}

func (l LayerSpec) Zoomed(z float64) LayerSpec {
	l.Zoom = z
	return l
}

// MaskedBy keeps only the part of the layer covered by m's silhouette
// enlarged by scale.
func (l LayerSpec) MaskedBy(m LayerSpec, scale float64) LayerSpec {
	l.Mask = &MaskSpec{Slot: m.Slot, Image: m.Image, Scale: scale}
	return l
}

func (l LayerSpec) String() string {
	s := fmt.Sprintf("%s[%d]", l.Image, l.Slot)
	if l.Mask != nil {
		s += fmt.Sprintf("/%s[%d]x%.2f", l.Mask.Image, l.Mask.Slot, l.Mask.Scale)
	}
	return s
}

// Step is one entry of a script. Index is the insert position; with FromEnd
// set it counts back from the top of the stack (len - Index). At is the
// presentation time of an emit in seconds.
type Step struct {
	Op      Op         `yaml:"op"`
	Layer   *LayerSpec `yaml:"layer,omitempty"`
	Index   int        `yaml:"index,omitempty"`
	FromEnd bool       `yaml:"from_end,omitempty"`
	At      float64    `yaml:"at,omitempty"`
}

func Append(l LayerSpec) Step {
	return Step{Op: OpAppend, Layer: &l}
}

func Insert(l LayerSpec, at int) Step {
	return Step{Op: OpInsert, Layer: &l, Index: at}
}

func InsertFromEnd(l LayerSpec, offset int) Step {
	return Step{Op: OpInsert, Layer: &l, Index: offset, FromEnd: true}
}

func Clear() Step {
	return Step{Op: OpClear}
}

func Emit(at float64) Step {
	return Step{Op: OpEmit, At: at}
}

func (s Step) String() string {
	switch s.Op {
	case OpAppend:
		return fmt.Sprintf("append %v", s.Layer)
	case OpInsert:
		if s.FromEnd {
			return fmt.Sprintf("insert %v at end-%d", s.Layer, s.Index)
		}
		return fmt.Sprintf("insert %v at %d", s.Layer, s.Index)
	case OpEmit:
		return fmt.Sprintf("emit @%.3fs", s.At)
	}
	return string(s.Op)
}

// Validate checks the structure of a script: known ops, layers where they
// are needed, and non-negative, non-decreasing emit times.
func Validate(steps []Step) error {
	var errs []error
	last := 0.0
	for i, s := range steps {
		switch s.Op {
		case OpAppend, OpInsert:
			if s.Layer == nil {
				errs = append(errs, fmt.Errorf("step %d: %w", i, ErrMissingLayer))
				continue
			}
			if !validKind(s.Layer.Image) || (s.Layer.Mask != nil && !validKind(s.Layer.Mask.Image)) {
				errs = append(errs, fmt.Errorf("step %d: unknown image kind in %v", i, s.Layer))
			}
			if s.Layer.Slot < 0 {
				errs = append(errs, fmt.Errorf("step %d: negative slot %d", i, s.Layer.Slot))
			}
		case OpClear:
		case OpEmit:
			if s.At < 0 {
				errs = append(errs, fmt.Errorf("step %d: negative emit time %.3f", i, s.At))
			} else if s.At < last {
				errs = append(errs, fmt.Errorf("step %d: emit time %.3f before previous %.3f", i, s.At, last))
			} else {
				last = s.At
			}
		default:
			errs = append(errs, fmt.Errorf("step %d: %w %q", i, ErrUnknownOp, s.Op))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidScript, errors.Join(errs...))
	}
	return nil
}

func validKind(k segment.Kind) bool {
	return k == segment.Source || k == segment.Foreground || k == segment.Background
}

// Emits returns the number of emit steps in a script.
func Emits(steps []Step) int {
	n := 0
	for _, s := range steps {
		if s.Op == OpEmit {
			n++
		}
	}
	return n
}

// Slots returns how many leading slots the script reads from.
func Slots(steps []Step) int {
	n := 0
	for _, s := range steps {
		if s.Layer == nil {
			continue
		}
		n = max(n, s.Layer.Slot+1)
		if s.Layer.Mask != nil {
			n = max(n, s.Layer.Mask.Slot+1)
		}
	}
	return n
}
