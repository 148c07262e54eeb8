package writer

import (
	"errors"
	"image"
	"sync"

	"github.com/ivlev/segment2video/internal/media"
)

// Sink is the readiness contract the Pump drives. NotifyWhenReady must call
// fn asynchronously and at most once.
type Sink interface {
	IsReady() bool
	Append(img image.Image, pts media.Time) error
	NotifyWhenReady(fn func())
}

// Pump feeds frames to a Sink in order. Frames the sink cannot take yet wait
// in a FIFO list that is drained on readiness notifications; at most one
// notification is outstanding. Submit blocks while the list is full.
type Pump struct {
	sink       Sink
	maxPending int

	mu         sync.Mutex
	cond       *sync.Cond
	pending    []media.Frame
	subscribed bool
	appended   int
	err        error
}

func NewPump(sink Sink, maxPending int) *Pump {
	if maxPending <= 0 {
		maxPending = DefaultQueueDepth
	}
	p := &Pump{sink: sink, maxPending: maxPending}
	p.cond = sync.NewCond(&p.mu)
	return p
}

// Submit hands f to the sink, or queues it behind the frames still waiting.
// It returns the first fatal append error.
func (p *Pump) Submit(f media.Frame) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for len(p.pending) >= p.maxPending && p.err == nil {
		p.cond.Wait()
	}
	if p.err != nil {
		return p.err
	}

	if len(p.pending) == 0 {
		err := p.sink.Append(f.Image, f.PTS)
		if err == nil {
			p.appended++
			return nil
		}
		if !errors.Is(err, ErrNotReady) {
			p.err = err
			p.cond.Broadcast()
			return err
		}
	}

	p.pending = append(p.pending, f)
	p.subscribe()
	return nil
}

func (p *Pump) subscribe() {
	if p.subscribed {
		return
	}
	p.subscribed = true
	p.sink.NotifyWhenReady(p.onReady)
}

func (p *Pump) onReady() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.subscribed = false
	// Append rather than IsReady decides, so a failed sink surfaces its
	// error here instead of re-arming the notification forever.
	for len(p.pending) > 0 && p.err == nil {
		head := p.pending[0]
		err := p.sink.Append(head.Image, head.PTS)
		if errors.Is(err, ErrNotReady) {
			break
		}
		if err != nil {
			p.err = err
			break
		}
		p.pending[0] = media.Frame{}
		p.pending = p.pending[1:]
		p.appended++
	}

	if len(p.pending) > 0 && p.err == nil {
		p.subscribe()
	}
	p.cond.Broadcast()
}

// Close waits until every submitted frame has been appended, or an append
// has failed.
func (p *Pump) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for len(p.pending) > 0 && p.err == nil {
		p.cond.Wait()
	}
	return p.err
}

// Appended is the number of frames the sink has accepted.
func (p *Pump) Appended() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.appended
}

// Pending is the length of the wait list.
func (p *Pump) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending)
}
