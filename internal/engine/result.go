package engine

import (
	"fmt"

	"github.com/ivlev/segment2video/internal/script"
	"github.com/ivlev/segment2video/internal/segment"
	"github.com/ivlev/segment2video/internal/writer"
)

// Code classifies how a run ended.
type Code int

const (
	OK Code = iota
	NoFrames
	InputUnavailable
	CompositionFailed
	WriterUnavailable
	AppendFailed
	FinalizeFailed
	ComposeFailed
)

func (c Code) String() string {
	switch c {
	case OK:
		return "ok"
	case NoFrames:
		return "no-frames"
	case InputUnavailable:
		return "input-unavailable"
	case CompositionFailed:
		return "composition-failed"
	case WriterUnavailable:
		return "writer-unavailable"
	case AppendFailed:
		return "append-failed"
	case FinalizeFailed:
		return "finalize-failed"
	case ComposeFailed:
		return "compose-failed"
	}
	return fmt.Sprintf("code(%d)", int(c))
}

// Result is the outcome of a run. Asset is set only when the video was
// sealed; Output only when it was also assembled.
type Result struct {
	RunID    string
	Code     Code
	Err      error
	Asset    *writer.Asset
	Output   string
	Report   *script.Report
	Failed   []segment.Slot
	Appended int
}

func (r *Result) OK() bool {
	return r.Code == OK
}

func (r *Result) String() string {
	if r.Err == nil {
		return r.Code.String()
	}
	return fmt.Sprintf("%s: %v", r.Code, r.Err)
}
