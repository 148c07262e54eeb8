// Package writer streams timestamped frames into an encoded video file.
package writer

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"sync"

	"github.com/ivlev/segment2video/internal/media"
)

var (
	ErrInvalidOptions = errors.New("invalid writer options")
	ErrNotOpen        = errors.New("writer is not open")
	ErrNotReady       = errors.New("writer is not ready for more frames")
	ErrClosed         = errors.New("writer is finished")
	ErrBadFrame       = errors.New("frame image is empty")
	ErrBadTimestamp   = errors.New("invalid presentation time")
	ErrNoFrames       = errors.New("no frames were written")
)

// Status is the session state. It only ever moves forward.
type Status int

const (
	Idle Status = iota
	Opened
	Writing
	Finalizing
	Sealed
	Failed
)

func (s Status) String() string {
	switch s {
	case Idle:
		return "idle"
	case Opened:
		return "opened"
	case Writing:
		return "writing"
	case Finalizing:
		return "finalizing"
	case Sealed:
		return "sealed"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// Asset is a sealed video file.
type Asset struct {
	Path     string
	Width    int
	Height   int
	Frames   int
	Duration float64
}

// Backend encodes raw frames of Options.PixelFormat, Width x Height, at a
// constant Options.FPS.
type Backend interface {
	Start(ctx context.Context, opts Options) (io.WriteCloser, error)
	Wait() error
}

type job struct {
	img image.Image
	pts media.Time
}

// Writer accepts frames in presentation order and feeds them to a Backend
// from its own goroutine. A bounded queue sits in between; IsReady reports
// whether it has room.
type Writer struct {
	opts    Options
	backend Backend

	mu       sync.Mutex
	status   Status
	err      error
	last     media.Time
	hasLast  bool
	appended int
	waiters  []func()

	queue     chan job
	inputDone bool
	done      chan struct{}
	frames    int
}

func New(opts Options, backend Backend) *Writer {
	return &Writer{opts: opts.withDefaults(), backend: backend}
}

// Open validates the options and starts the backend.
func (w *Writer) Open(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.status != Idle {
		return fmt.Errorf("open in state %s: %w", w.status, ErrClosed)
	}
	if err := w.opts.Validate(); err != nil {
		w.status, w.err = Failed, err
		return err
	}

	sink, err := w.backend.Start(ctx, w.opts)
	if err != nil {
		w.status, w.err = Failed, fmt.Errorf("start encoder: %w", err)
		return w.err
	}

	w.queue = make(chan job, w.opts.QueueDepth)
	w.done = make(chan struct{})
	w.status = Opened
	go w.run(sink)
	return nil
}

func (w *Writer) Options() Options {
	return w.opts
}

func (w *Writer) Status() Status {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.status
}

// Err returns the error that failed the session, if any.
func (w *Writer) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}

// LastPresentationTime is the pts of the most recently accepted frame.
func (w *Writer) LastPresentationTime() (media.Time, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.last, w.hasLast
}

// Appended is the number of frames accepted so far.
func (w *Writer) Appended() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.appended
}

func (w *Writer) IsReady() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.readyLocked()
}

func (w *Writer) readyLocked() bool {
	if w.status != Opened && w.status != Writing {
		return false
	}
	return w.err == nil && len(w.queue) < cap(w.queue)
}

// Append queues img for encoding at pts. ErrNotReady is transient and
// leaves the session untouched; any other error is final for the frame.
func (w *Writer) Append(img image.Image, pts media.Time) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	switch w.status {
	case Idle:
		return ErrNotOpen
	case Finalizing, Sealed:
		return ErrClosed
	case Failed:
		return w.err
	}
	if w.err != nil {
		return w.err
	}

	if img == nil || img.Bounds().Empty() {
		return ErrBadFrame
	}
	if !pts.Valid() || pts.Before(w.opts.StartTime) {
		return fmt.Errorf("%w: %v", ErrBadTimestamp, pts)
	}
	if w.hasLast && pts.Before(w.last) {
		return fmt.Errorf("%w: %v before %v", ErrBadTimestamp, pts, w.last)
	}

	select {
	case w.queue <- job{img: img, pts: pts}:
	default:
		return ErrNotReady
	}

	w.status = Writing
	w.last, w.hasLast = pts, true
	w.appended++
	return nil
}

// NotifyWhenReady calls fn once, on another goroutine, when the writer next
// has room for a frame or can no longer take any.
func (w *Writer) NotifyWhenReady(fn func()) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.readyLocked() || w.err != nil || w.status >= Finalizing {
		go fn()
		return
	}
	w.waiters = append(w.waiters, fn)
}

func (w *Writer) wake() {
	w.mu.Lock()
	waiters := w.waiters
	w.waiters = nil
	w.mu.Unlock()

	for _, fn := range waiters {
		go fn()
	}
}

func (w *Writer) fail(err error) {
	w.mu.Lock()
	if w.err == nil {
		w.err = err
	}
	w.mu.Unlock()
}

func (w *Writer) run(sink io.WriteCloser) {
	defer close(w.done)

	conv := newConverter(w.opts.Width, w.opts.Height, w.opts.PixelFormat)
	g := &grid{fps: w.opts.FPS, start: w.opts.StartTime.Seconds()}
	failed := false

	for j := range w.queue {
		if !failed {
			n, err := g.place(sink, conv.convert(j.img), j.pts)
			w.frames += n
			if err != nil {
				w.fail(fmt.Errorf("write frame @%v: %w", j.pts, err))
				failed = true
			}
		}
		w.wake()
	}

	if !failed && g.prev != nil {
		n, err := g.hold(sink, int(float64(w.opts.FPS)*w.opts.Hold+0.5))
		w.frames += n
		if err != nil {
			w.fail(fmt.Errorf("write hold frames: %w", err))
		}
	}
	if err := sink.Close(); err != nil {
		w.fail(fmt.Errorf("close encoder input: %w", err))
	}
}

// Finish ends input, waits for the encoder to seal the file and returns it.
// It is terminal: later calls to Append or Finish fail with ErrClosed.
func (w *Writer) Finish(ctx context.Context) (*Asset, error) {
	w.mu.Lock()
	switch w.status {
	case Idle:
		w.mu.Unlock()
		return nil, ErrNotOpen
	case Finalizing, Sealed:
		w.mu.Unlock()
		return nil, ErrClosed
	case Failed:
		if w.queue == nil || w.inputDone {
			err := w.err
			w.mu.Unlock()
			return nil, err
		}
	}
	if w.status != Failed {
		w.status = Finalizing
	}
	close(w.queue)
	w.inputDone = true
	waiters := w.waiters
	w.waiters = nil
	w.mu.Unlock()

	for _, fn := range waiters {
		go fn()
	}

	select {
	case <-w.done:
	case <-ctx.Done():
		w.fail(ctx.Err())
		w.mu.Lock()
		w.status = Failed
		w.mu.Unlock()
		return nil, ctx.Err()
	}

	waitErr := w.backend.Wait()

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err == nil && waitErr != nil {
		w.err = fmt.Errorf("encoder: %w", waitErr)
	}
	if w.err == nil && w.frames == 0 {
		w.err = ErrNoFrames
	}
	if w.err != nil {
		w.status = Failed
		return nil, w.err
	}

	w.status = Sealed
	return &Asset{
		Path:     w.opts.Path,
		Width:    w.opts.Width,
		Height:   w.opts.Height,
		Frames:   w.frames,
		Duration: float64(w.frames) / float64(w.opts.FPS),
	}, nil
}
