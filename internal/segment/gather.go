package segment

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Slot is the settled outcome of one segmentation request.
type Slot struct {
	ID     string
	Result *Result
	Err    error
}

// Slots holds one settled outcome per requested identifier, in request order.
type Slots []Slot

// Get returns the result in slot i, or an error when the slot is missing,
// failed or out of range.
func (s Slots) Get(i int) (*Result, error) {
	if i < 0 || i >= len(s) {
		return nil, fmt.Errorf("slot %d: %w (have %d slots)", i, ErrImageNotFound, len(s))
	}
	if s[i].Err != nil {
		return nil, fmt.Errorf("slot %d (%s): %w", i, s[i].ID, s[i].Err)
	}
	if s[i].Result == nil {
		return nil, fmt.Errorf("slot %d (%s): %w", i, s[i].ID, ErrImageNotFound)
	}
	return s[i].Result, nil
}

// Failed returns the slots that did not produce a result.
func (s Slots) Failed() []Slot {
	var out []Slot
	for _, slot := range s {
		if slot.Err != nil || slot.Result == nil {
			out = append(out, slot)
		}
	}
	return out
}

// Gather requests segments for every id concurrently (at most workers at a
// time) and returns once every request has settled. A failed request is
// recorded in its slot and never cancels the others.
func Gather(ctx context.Context, p Provider, ids []string, workers int) Slots {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	slots := make(Slots, len(ids))

	var g errgroup.Group
	g.SetLimit(workers)
	for i, id := range ids {
		slots[i].ID = id
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				slots[i].Err = err
				return nil
			}
			res, err := p.GetSegments(ctx, id)
			slots[i].Result, slots[i].Err = res, err
			return nil
		})
	}
	g.Wait()
	return slots
}
