package engine

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"sync"
	"testing"

	"github.com/ivlev/segment2video/internal/config"
	"github.com/ivlev/segment2video/internal/script"
	"github.com/ivlev/segment2video/internal/segment"
	"github.com/ivlev/segment2video/internal/writer"
)

type countingBackend struct {
	mu       sync.Mutex
	bytes    int
	writeErr error
}

func (b *countingBackend) Start(ctx context.Context, opts writer.Options) (io.WriteCloser, error) {
	return b, nil
}

func (b *countingBackend) Wait() error { return nil }

func (b *countingBackend) Write(p []byte) (int, error) {
	if b.writeErr != nil {
		return 0, b.writeErr
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.bytes += len(p)
	return len(p), nil
}

func (b *countingBackend) Close() error { return nil }

type recordingComposer struct {
	asset *writer.Asset
	audio string
	out   string
	err   error
}

func (c *recordingComposer) Compose(ctx context.Context, asset *writer.Asset, audioPath, out string) error {
	c.asset, c.audio, c.out = asset, audioPath, out
	return c.err
}

// fakeProvider builds a segment triple for every id except those in fail.
func fakeProvider(w, h int, fail map[string]error) segment.Provider {
	return segment.ProviderFunc(func(ctx context.Context, id string) (*segment.Result, error) {
		if err := fail[id]; err != nil {
			return nil, fmt.Errorf("%s: %w", id, err)
		}
		src := image.NewRGBA(image.Rect(0, 0, w, h))
		for i := 0; i < len(src.Pix); i += 4 {
			src.Pix[i], src.Pix[i+1], src.Pix[i+2], src.Pix[i+3] = uint8(len(id)*10), 80, 160, 255
		}
		mask := image.NewGray(src.Bounds())
		for y := h / 4; y < 3*h/4; y++ {
			for x := w / 4; x < 3*w/4; x++ {
				mask.SetGray(x, y, color.Gray{Y: 255})
			}
		}
		return segment.Build(id, src, mask, 0)
	})
}

func testProject(t *testing.T, fail map[string]error) (*VideoProject, *countingBackend, *recordingComposer) {
	t.Helper()
	cfg := config.Default()
	cfg.Width, cfg.Height = 20, 29
	cfg.EncodeWidth, cfg.EncodeHeight = 20, 30
	cfg.CacheDir = t.TempDir()
	cfg.OutputVideo = cfg.CacheDir + "/out.mp4"
	cfg.AudioPath = "music.aac"
	cfg.Workers = 4

	backend := &countingBackend{}
	composer := &recordingComposer{}
	p := NewVideoProject(cfg, fakeProvider(40, 58, fail), script.Reference())
	p.Backend = backend
	p.Composer = composer
	return p, backend, composer
}

func TestRunReference(t *testing.T) {
	p, backend, composer := testProject(t, nil)

	res := p.Run(context.Background())
	if !res.OK() {
		t.Fatalf("Run failed: %v", res)
	}
	if res.Appended != 32 || res.Report.Emitted != 32 {
		t.Errorf("Expected 32 frames, got appended=%d emitted=%d", res.Appended, res.Report.Emitted)
	}
	if res.RunID == "" {
		t.Error("Run id is empty")
	}

	// 10.493s at 30 fps lands on slot 315, so 316 slots in total.
	if res.Asset == nil || res.Asset.Frames != 316 {
		t.Fatalf("Unexpected asset %+v", res.Asset)
	}
	if backend.bytes != 316*20*30*4 {
		t.Errorf("Backend received %d bytes", backend.bytes)
	}
	if composer.asset != res.Asset || composer.audio != "music.aac" || composer.out != p.Config.OutputVideo {
		t.Errorf("Composer called with %+v %q %q", composer.asset, composer.audio, composer.out)
	}
	if res.Output != p.Config.OutputVideo {
		t.Errorf("Unexpected output %q", res.Output)
	}
}

func TestRunToleratesMissingSlot(t *testing.T) {
	p, _, _ := testProject(t, map[string]error{"image-9": segment.ErrSubjectNotFound})

	res := p.Run(context.Background())
	if !res.OK() {
		t.Fatalf("Run failed: %v", res)
	}
	if len(res.Failed) != 1 || res.Failed[0].ID != "image-9" {
		t.Errorf("Unexpected failed slots %+v", res.Failed)
	}
	if res.Appended != 29 || len(res.Report.Skipped) != 3 {
		t.Errorf("Expected 29 frames and 3 skips, got %d and %v", res.Appended, res.Report)
	}
}

func TestRunStrictMissingSlot(t *testing.T) {
	p, _, composer := testProject(t, map[string]error{"image-9": segment.ErrSubjectNotFound})
	p.Config.MissingPolicy = "strict"

	res := p.Run(context.Background())
	if res.Code != InputUnavailable {
		t.Fatalf("Expected input-unavailable, got %v", res)
	}
	if res.Asset != nil || composer.asset != nil {
		t.Error("A failed run must not reach the assembler")
	}
}

func TestRunAllInputsMissing(t *testing.T) {
	fail := map[string]error{}
	for _, id := range config.DefaultIDs {
		fail[id] = segment.ErrModelUnavailable
	}
	p, _, _ := testProject(t, fail)

	if res := p.Run(context.Background()); res.Code != InputUnavailable {
		t.Errorf("Expected input-unavailable, got %v", res)
	}
}

func TestRunNoFrames(t *testing.T) {
	p, _, _ := testProject(t, nil)
	p.Script = []script.Step{script.Append(script.Source(0))}

	if res := p.Run(context.Background()); res.Code != NoFrames {
		t.Errorf("Expected no-frames, got %v", res)
	}
}

func TestRunWriterFailure(t *testing.T) {
	p, backend, composer := testProject(t, nil)
	backend.writeErr = errors.New("disk full")

	res := p.Run(context.Background())
	if res.Code != AppendFailed && res.Code != FinalizeFailed {
		t.Fatalf("Expected append or finalize failure, got %v", res)
	}
	if res.Asset != nil || composer.asset != nil {
		t.Error("No asset may be handed on after a writer failure")
	}
}

func TestRunWriterUnavailable(t *testing.T) {
	p, _, _ := testProject(t, nil)
	p.Config.EncodeWidth = 0

	if res := p.Run(context.Background()); res.Code != WriterUnavailable {
		t.Errorf("Expected writer-unavailable, got %v", res)
	}
}

func TestRunComposeFailure(t *testing.T) {
	p, _, composer := testProject(t, nil)
	composer.err = errors.New("mux failed")

	res := p.Run(context.Background())
	if res.Code != ComposeFailed {
		t.Fatalf("Expected compose-failed, got %v", res)
	}
	if res.Asset == nil {
		t.Error("The sealed asset should still be reported")
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err  error
		want Code
	}{
		{&script.StepError{Err: segment.ErrImageNotFound}, InputUnavailable},
		{&script.StepError{Err: errors.New("bad index")}, CompositionFailed},
		{errors.New("other"), NoFrames},
	}
	for _, tt := range tests {
		if got := classify(tt.err); got != tt.want {
			t.Errorf("classify(%v) = %s, want %s", tt.err, got, tt.want)
		}
	}
}
