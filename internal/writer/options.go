package writer

import (
	"errors"
	"fmt"

	"github.com/ivlev/segment2video/internal/media"
)

// PixelFormat is the channel order of raw frames handed to the backend.
type PixelFormat string

const (
	RGBA PixelFormat = "rgba"
	BGRA PixelFormat = "bgra"
	ARGB PixelFormat = "argb"
)

const (
	DefaultFPS        = 30
	DefaultQueueDepth = 4
)

// Options configure one encoding session.
type Options struct {
	Path        string
	Width       int
	Height      int
	FPS         int
	Hold        float64 // seconds the last frame stays on screen
	PixelFormat PixelFormat
	QueueDepth  int
	StartTime   media.Time
	Encoder     string
	Quality     int
}

func (o Options) withDefaults() Options {
	if o.FPS == 0 {
		o.FPS = DefaultFPS
	}
	if o.PixelFormat == "" {
		o.PixelFormat = RGBA
	}
	if o.QueueDepth == 0 {
		o.QueueDepth = DefaultQueueDepth
	}
	if o.StartTime.Timescale == 0 {
		o.StartTime = media.Time{Timescale: media.DefaultTimescale}
	}
	if o.Encoder == "" {
		o.Encoder = "libx264"
	}
	return o
}

// Validate reports every problem with the options at once.
func (o Options) Validate() error {
	var errs []error
	if o.Path == "" {
		errs = append(errs, errors.New("output path is empty"))
	}
	if o.Width <= 0 || o.Height <= 0 {
		errs = append(errs, fmt.Errorf("frame size %dx%d must be positive", o.Width, o.Height))
	}
	if o.FPS <= 0 {
		errs = append(errs, fmt.Errorf("fps %d must be positive", o.FPS))
	}
	if o.Hold < 0 {
		errs = append(errs, fmt.Errorf("hold %.3f must not be negative", o.Hold))
	}
	switch o.PixelFormat {
	case RGBA, BGRA, ARGB:
	default:
		errs = append(errs, fmt.Errorf("unknown pixel format %q", o.PixelFormat))
	}
	if o.QueueDepth <= 0 {
		errs = append(errs, fmt.Errorf("queue depth %d must be positive", o.QueueDepth))
	}
	if !o.StartTime.Valid() {
		errs = append(errs, fmt.Errorf("invalid start time %v", o.StartTime))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidOptions, errors.Join(errs...))
	}
	return nil
}
