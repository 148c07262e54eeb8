package script

import (
	"context"
	"fmt"
	"image"
	"log"
	"strings"

	"github.com/ivlev/segment2video/internal/compositor"
	"github.com/ivlev/segment2video/internal/media"
	"github.com/ivlev/segment2video/internal/segment"
)

// Policy decides what a failed step does to the run.
type Policy string

const (
	// PolicySkip drops the frame that depends on a failed step and carries on.
	PolicySkip Policy = "skip"
	// PolicyStrict aborts the run on the first failed step.
	PolicyStrict Policy = "strict"
)

// StepError is a failure of one script step.
type StepError struct {
	Index int
	Step  Step
	Err   error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d (%v): %v", e.Index, e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// Skipped records an emit that produced no frame.
type Skipped struct {
	Step  int
	At    float64
	Cause error
}

// Report summarises a sequencer run.
type Report struct {
	Steps   int
	Emits   int
	Emitted int
	Skipped []Skipped
}

func (r *Report) skip(step int, at float64, cause error) {
	r.Skipped = append(r.Skipped, Skipped{Step: step, At: at, Cause: cause})
}

func (r *Report) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "frames %d/%d", r.Emitted, r.Emits)
	for _, s := range r.Skipped {
		fmt.Fprintf(&b, "\n  skipped @%.3fs (step %d): %v", s.At, s.Step, s.Cause)
	}
	return b.String()
}

// Sequencer runs a script against one compositor and canvas.
type Sequencer struct {
	Compositor *compositor.Compositor
	Canvas     image.Point
	Policy     Policy
	// Debug stamps every frame with a QR code carrying its index and pts.
	Debug bool
}

// Run executes steps in order and hands every rendered frame to emit as soon
// as it is ready. Under PolicySkip a failed mutation taints the stack until
// the next emit, which is then skipped; Clear lifts the taint. A failed
// render skips that emit only. An error from emit ends the run.
func (s *Sequencer) Run(ctx context.Context, steps []Step, slots segment.Slots, emit func(media.Frame) error) (*Report, error) {
	if err := Validate(steps); err != nil {
		return nil, err
	}
	if s.Canvas.X <= 0 || s.Canvas.Y <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", compositor.ErrDegenerateCanvas, s.Canvas.X, s.Canvas.Y)
	}
	comp := s.Compositor
	if comp == nil {
		comp = compositor.New()
	}

	report := &Report{Steps: len(steps), Emits: Emits(steps)}
	resolver := NewSlotResolver(slots, s.Canvas)
	stack := compositor.NewStack()
	var taint error

	for i, step := range steps {
		if step.Op != OpEmit {
			next, err := Apply(stack, step, resolver)
			if err != nil {
				serr := &StepError{Index: i, Step: step, Err: err}
				if s.Policy == PolicyStrict {
					return report, serr
				}
				log.Printf("[!] %v", serr)
				if taint == nil {
					taint = serr
				}
				continue
			}
			stack = next
			if step.Op == OpClear {
				taint = nil
			}
			continue
		}

		if err := ctx.Err(); err != nil {
			return report, err
		}

		if taint != nil {
			report.skip(i, step.At, taint)
			taint = nil
			continue
		}

		img, err := comp.Render(stack, s.Canvas)
		if err != nil {
			serr := &StepError{Index: i, Step: step, Err: err}
			if s.Policy == PolicyStrict {
				return report, serr
			}
			log.Printf("[!] %v", serr)
			report.skip(i, step.At, serr)
			continue
		}

		frame := media.Frame{Index: report.Emitted, Image: img, PTS: media.Millis(step.At)}
		if s.Debug {
			if err := Stamp(img, frame); err != nil {
				log.Printf("[!] debug stamp frame %d: %v", frame.Index, err)
			}
			fmt.Printf("[>] frame %d @ %s: %v\n", frame.Index, frame.PTS, stack.Layers())
		}

		if err := emit(frame); err != nil {
			return report, fmt.Errorf("frame %d @ %s: %w", frame.Index, frame.PTS, err)
		}
		report.Emitted++
	}

	return report, nil
}

// Collect runs the script and returns all frames in order.
func (s *Sequencer) Collect(ctx context.Context, steps []Step, slots segment.Slots) ([]media.Frame, *Report, error) {
	var frames []media.Frame
	report, err := s.Run(ctx, steps, slots, func(f media.Frame) error {
		frames = append(frames, f)
		return nil
	})
	return frames, report, err
}
