package engine

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ivlev/segment2video/internal/assemble"
	"github.com/ivlev/segment2video/internal/compositor"
	"github.com/ivlev/segment2video/internal/config"
	"github.com/ivlev/segment2video/internal/media"
	"github.com/ivlev/segment2video/internal/script"
	"github.com/ivlev/segment2video/internal/segment"
	"github.com/ivlev/segment2video/internal/writer"
)

// Composer muxes the sealed video with the soundtrack.
type Composer interface {
	Compose(ctx context.Context, asset *writer.Asset, audioPath, out string) error
}

type VideoProject struct {
	Config   *config.Config
	Provider segment.Provider
	Script   []script.Step
	Backend  writer.Backend
	Composer Composer

	timings timings
}

type timings struct {
	start, gathered, sequenced, sealed, composed time.Time
}

func NewVideoProject(cfg *config.Config, provider segment.Provider, steps []script.Step) *VideoProject {
	composer := assemble.New()
	if cfg.FFmpeg != "" {
		composer.FFmpeg = cfg.FFmpeg
	}
	return &VideoProject{
		Config:   cfg,
		Provider: provider,
		Script:   steps,
		Backend:  &writer.FFmpegBackend{Binary: cfg.FFmpeg},
		Composer: composer,
	}
}

func (p *VideoProject) Run(ctx context.Context) *Result {
	res := &Result{RunID: uuid.New().String()}
	p.timings = timings{start: time.Now()}

	fmt.Println("--- [PROJECT: SEGMENT2VIDEO] ---")
	fmt.Printf("[*] Запуск: %s\n", res.RunID)
	fmt.Printf("[*] Источник: %s | Идентификаторов: %d | Шагов сценария: %d\n", p.Config.InputPath, len(p.Config.IDs), len(p.Script))
	fmt.Printf("[*] Холст: %dx%d | Видео: %dx%d @ %d FPS\n", p.Config.Width, p.Config.Height, p.Config.EncodeWidth, p.Config.EncodeHeight, p.Config.FPS)
	fmt.Println("-----------------------------")

	if need := script.Slots(p.Script); need > len(p.Config.IDs) {
		log.Printf("[!] Сценарий использует %d слотов, задано идентификаторов: %d", need, len(p.Config.IDs))
	}

	slots := segment.Gather(ctx, p.Provider, p.Config.IDs, p.Config.Workers)
	p.timings.gathered = time.Now()
	res.Failed = slots.Failed()
	for _, s := range res.Failed {
		log.Printf("[!] Сегментация %s: %v", s.ID, s.Err)
	}
	if len(res.Failed) == len(slots) {
		return p.fail(res, InputUnavailable, fmt.Errorf("ни один из %d идентификаторов не сегментирован", len(slots)))
	}
	fmt.Printf("[>] Сегментировано: %d/%d\n", len(slots)-len(res.Failed), len(slots))

	cacheDir, err := p.cacheDir()
	if err != nil {
		return p.fail(res, WriterUnavailable, err)
	}
	w := writer.New(writer.Options{
		Path:        filepath.Join(cacheDir, fmt.Sprintf("segment2video-%s.mp4", res.RunID)),
		Width:       p.Config.EncodeWidth,
		Height:      p.Config.EncodeHeight,
		FPS:         p.Config.FPS,
		Hold:        p.Config.Hold,
		PixelFormat: writer.PixelFormat(p.Config.PixelFormat),
		QueueDepth:  p.Config.QueueDepth,
		Encoder:     p.Config.VideoEncoder,
		Quality:     p.Config.Quality,
	}, p.Backend)
	if err := w.Open(ctx); err != nil {
		return p.fail(res, WriterUnavailable, err)
	}

	seq := &script.Sequencer{
		Compositor: compositor.New(),
		Canvas:     image.Pt(p.Config.Width, p.Config.Height),
		Policy:     script.Policy(p.Config.MissingPolicy),
		Debug:      p.Config.Debug,
	}

	report, seqErr, appendErr := p.stream(ctx, seq, slots, w)
	p.timings.sequenced = time.Now()
	res.Report = report
	res.Appended = w.Appended()
	if report != nil {
		fmt.Printf("[*] Кадров: %s\n", report)
	}

	switch {
	case appendErr != nil:
		w.Finish(ctx)
		return p.fail(res, AppendFailed, appendErr)
	case seqErr != nil:
		w.Finish(ctx)
		return p.fail(res, classify(seqErr), seqErr)
	case res.Appended == 0:
		w.Finish(ctx)
		return p.fail(res, NoFrames, errors.New("сценарий не выдал ни одного кадра"))
	}

	asset, err := w.Finish(ctx)
	p.timings.sealed = time.Now()
	if err != nil {
		return p.fail(res, FinalizeFailed, err)
	}
	res.Asset = asset
	fmt.Printf("[>] Видео запечатано: %d кадров, %.3fs\n", asset.Frames, asset.Duration)

	out := p.Config.OutputVideo
	if out == "" {
		out = filepath.Join(cacheDir, fmt.Sprintf("test-%d.mp4", time.Now().Unix()))
	}
	if err := p.Composer.Compose(ctx, asset, p.Config.AudioPath, out); err != nil {
		return p.fail(res, ComposeFailed, err)
	}
	p.timings.composed = time.Now()
	res.Output = out
	os.Remove(asset.Path)

	if p.Config.ShowStats {
		p.showStats(res)
	}
	return res
}

// stream runs the sequencer into a bounded channel drained by a Pump into
// the writer. It returns the sequencer error and the first append error
// separately.
func (p *VideoProject) stream(ctx context.Context, seq *script.Sequencer, slots segment.Slots, w *writer.Writer) (*script.Report, error, error) {
	frames := make(chan media.Frame, p.Config.QueueDepth)
	g, gctx := errgroup.WithContext(ctx)

	var report *script.Report
	var seqErr, appendErr error

	g.Go(func() error {
		defer close(frames)
		report, seqErr = seq.Run(gctx, p.Script, slots, func(f media.Frame) error {
			select {
			case frames <- f:
				return nil
			case <-gctx.Done():
				return gctx.Err()
			}
		})
		return seqErr
	})

	g.Go(func() error {
		pump := writer.NewPump(w, p.Config.QueueDepth)
		for f := range frames {
			if err := pump.Submit(f); err != nil {
				appendErr = err
				return err
			}
		}
		if err := pump.Close(); err != nil {
			appendErr = err
			return err
		}
		return nil
	})

	g.Wait()
	if appendErr != nil && errors.Is(seqErr, context.Canceled) {
		seqErr = nil
	}
	return report, seqErr, appendErr
}

func classify(err error) Code {
	for _, target := range []error{
		segment.ErrImageNotFound,
		segment.ErrModelUnavailable,
		segment.ErrInferenceFailed,
		segment.ErrMaskUnusable,
		segment.ErrSubjectNotFound,
	} {
		if errors.Is(err, target) {
			return InputUnavailable
		}
	}
	var serr *script.StepError
	if errors.As(err, &serr) {
		return CompositionFailed
	}
	return NoFrames
}

func (p *VideoProject) fail(res *Result, code Code, err error) *Result {
	res.Code, res.Err = code, err
	log.Printf("[-] %v", res)
	return res
}

func (p *VideoProject) cacheDir() (string, error) {
	dir := p.Config.CacheDir
	if dir == "" {
		base, err := os.UserCacheDir()
		if err != nil {
			base = os.TempDir()
		}
		dir = filepath.Join(base, "segment2video")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	return dir, nil
}
