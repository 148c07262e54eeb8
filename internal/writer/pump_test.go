package writer

import (
	"context"
	"errors"
	"image"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/ivlev/segment2video/internal/media"
)

// slotSink accepts one frame per release and records subscriptions.
type slotSink struct {
	mu        sync.Mutex
	ready     bool
	callback  func()
	subs      int
	maxActive int
	attempts  map[int64]int
	appended  []int64
	failWith  error
}

func newSlotSink() *slotSink {
	return &slotSink{attempts: make(map[int64]int)}
}

func (s *slotSink) IsReady() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready
}

func (s *slotSink) Append(img image.Image, pts media.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts[pts.Value]++
	if s.failWith != nil {
		return s.failWith
	}
	if !s.ready {
		return ErrNotReady
	}
	s.ready = false
	s.appended = append(s.appended, pts.Value)
	return nil
}

func (s *slotSink) NotifyWhenReady(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs++
	active := 0
	if s.callback != nil {
		active = 1
	}
	s.maxActive = max(s.maxActive, active+1)
	s.callback = fn
}

// release opens one slot and delivers the pending notification.
func (s *slotSink) release() bool {
	s.mu.Lock()
	s.ready = true
	fn := s.callback
	s.callback = nil
	s.mu.Unlock()
	if fn == nil {
		return false
	}
	fn()
	return true
}

func frame(i int) media.Frame {
	return media.Frame{Index: i, Image: image.NewRGBA(image.Rect(0, 0, 1, 1)), PTS: media.Time{Value: int64(i), Timescale: 1000}}
}

func TestPumpDrainsInOrder(t *testing.T) {
	sink := newSlotSink()
	p := NewPump(sink, 8)

	for i := 0; i < 3; i++ {
		if err := p.Submit(frame(i)); err != nil {
			t.Fatalf("Submit %d failed: %v", i, err)
		}
	}
	if p.Pending() != 3 {
		t.Fatalf("Expected 3 pending frames, got %d", p.Pending())
	}
	if sink.subs != 1 {
		t.Fatalf("Expected a single subscription, got %d", sink.subs)
	}

	for i := 0; i < 3; i++ {
		if !sink.release() {
			t.Fatalf("No subscription outstanding before release %d", i)
		}
		if p.Pending() != 2-i {
			t.Errorf("After release %d expected %d pending, got %d", i, 2-i, p.Pending())
		}
	}

	if err := p.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if !reflect.DeepEqual(sink.appended, []int64{0, 1, 2}) {
		t.Errorf("Expected FIFO appends [0 1 2], got %v", sink.appended)
	}
	if sink.maxActive != 1 {
		t.Errorf("Expected at most one active subscription, saw %d", sink.maxActive)
	}
	if sink.callback != nil {
		t.Error("Drained pump should not stay subscribed")
	}
	if p.Appended() != 3 {
		t.Errorf("Expected 3 appended frames, got %d", p.Appended())
	}
}

func TestPumpAppendsDirectlyWhenReady(t *testing.T) {
	sink := newSlotSink()
	sink.ready = true
	p := NewPump(sink, 2)

	if err := p.Submit(frame(0)); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if p.Pending() != 0 || sink.subs != 0 {
		t.Errorf("Ready sink should take the frame at once: pending=%d subs=%d", p.Pending(), sink.subs)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
}

func TestPumpBlocksWhenFull(t *testing.T) {
	sink := newSlotSink()
	p := NewPump(sink, 2)

	p.Submit(frame(0))
	p.Submit(frame(1))

	done := make(chan error, 1)
	go func() { done <- p.Submit(frame(2)) }()

	select {
	case <-done:
		t.Fatal("Submit should block while the wait list is full")
	case <-time.After(50 * time.Millisecond):
	}

	sink.release()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Submit failed: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Submit did not resume after a slot opened")
	}

	sink.release()
	sink.release()
	if err := p.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if !reflect.DeepEqual(sink.appended, []int64{0, 1, 2}) {
		t.Errorf("Expected FIFO appends [0 1 2], got %v", sink.appended)
	}
}

func TestPumpStopsOnFatalAppend(t *testing.T) {
	sink := newSlotSink()
	p := NewPump(sink, 4)
	p.Submit(frame(0))

	boom := errors.New("encoder rejected frame")
	sink.mu.Lock()
	sink.failWith = boom
	sink.mu.Unlock()
	sink.release()

	if err := p.Close(); !errors.Is(err, boom) {
		t.Errorf("Close: expected %v, got %v", boom, err)
	}
	if err := p.Submit(frame(1)); !errors.Is(err, boom) {
		t.Errorf("Submit after failure: expected %v, got %v", boom, err)
	}
}

func TestPumpWithWriter(t *testing.T) {
	b := &memBackend{}
	w := openWriter(t, Options{Path: "out.mp4", Width: 1, Height: 1, FPS: 1000, QueueDepth: 1}, b)
	p := NewPump(w, 2)

	for i := 0; i < 20; i++ {
		if err := p.Submit(frame(i)); err != nil {
			t.Fatalf("Submit %d failed: %v", i, err)
		}
	}
	if err := p.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if w.Appended() != 20 {
		t.Errorf("Expected 20 appended frames, got %d", w.Appended())
	}
	asset, err := w.Finish(context.Background())
	if err != nil {
		t.Fatalf("Finish failed: %v", err)
	}
	if asset.Frames != 20 {
		t.Errorf("Expected 20 encoded frames, got %d", asset.Frames)
	}
}
