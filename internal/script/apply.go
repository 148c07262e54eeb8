package script

import (
	"fmt"
	"image"

	"github.com/ivlev/segment2video/internal/compositor"
	"github.com/ivlev/segment2video/internal/segment"
)

// Resolver turns a layer description into a drawable layer.
type Resolver interface {
	Layer(spec LayerSpec) (compositor.Layer, error)
}

// Apply returns the stack that results from running step on stack. The input
// stack is never modified; on error it is returned as is. Emit steps leave
// the stack unchanged.
func Apply(stack compositor.Stack, step Step, r Resolver) (compositor.Stack, error) {
	switch step.Op {
	case OpEmit:
		return stack, nil
	case OpClear:
		return compositor.NewStack(), nil
	case OpAppend, OpInsert:
	default:
		return stack, fmt.Errorf("%w %q", ErrUnknownOp, step.Op)
	}

	if step.Layer == nil {
		return stack, ErrMissingLayer
	}
	l, err := r.Layer(*step.Layer)
	if err != nil {
		return stack, err
	}

	next := stack.Clone()
	if step.Op == OpAppend {
		next.Append(l)
		return next, nil
	}

	at := step.Index
	if step.FromEnd {
		at = next.Len() - step.Index
	}
	if err := next.Insert(l, at); err != nil {
		return stack, err
	}
	return next, nil
}

type imageKey struct {
	slot int
	kind segment.Kind
}

// SlotResolver builds layers from gathered segments. Every image is cropped
// to the canvas aspect before use; crops are cached per slot and kind.
type SlotResolver struct {
	slots  segment.Slots
	canvas image.Point
	cache  map[imageKey]image.Image
}

func NewSlotResolver(slots segment.Slots, canvas image.Point) *SlotResolver {
	return &SlotResolver{
		slots:  slots,
		canvas: canvas,
		cache:  make(map[imageKey]image.Image),
	}
}

func (r *SlotResolver) image(slot int, kind segment.Kind) (image.Image, error) {
	key := imageKey{slot, kind}
	if img, ok := r.cache[key]; ok {
		return img, nil
	}

	res, err := r.slots.Get(slot)
	if err != nil {
		return nil, err
	}
	img := res.Image(kind)
	if img == nil || img.Bounds().Empty() {
		return nil, fmt.Errorf("slot %d %s: %w", slot, kind, compositor.ErrDegenerateLayer)
	}

	img = compositor.CropToAspect(img, float64(r.canvas.X)/float64(r.canvas.Y))
	r.cache[key] = img
	return img, nil
}

func (r *SlotResolver) Layer(spec LayerSpec) (compositor.Layer, error) {
	content, err := r.image(spec.Slot, spec.Image)
	if err != nil {
		return compositor.Layer{}, err
	}

	if spec.Mask != nil {
		mask, err := r.image(spec.Mask.Slot, spec.Mask.Image)
		if err != nil {
			return compositor.Layer{}, err
		}
		scale := spec.Mask.Scale
		if scale == 0 {
			scale = 1
		}
		masked, err := compositor.MaskWith(content, mask, scale)
		if err != nil {
			return compositor.Layer{}, fmt.Errorf("mask %s: %w", spec, err)
		}
		content = masked
	}

	l := compositor.Layer{
		Label:    spec.String(),
		Content:  content,
		Frame:    compositor.Full,
		Unit:     compositor.Fraction,
		Rotation: spec.Rotation,
	}
	switch {
	case spec.Frame != nil:
		l.Frame = *spec.Frame
		if spec.Unit != "" {
			l.Unit = spec.Unit
		}
	case spec.Zoom > 0:
		w, h := float64(r.canvas.X), float64(r.canvas.Y)
		l.Frame = compositor.Centered(w/2, h/2, w*spec.Zoom, h*spec.Zoom)
		l.Unit = compositor.Pixel
	}
	return l, nil
}
