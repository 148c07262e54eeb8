package segment

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/ivlev/segment2video/internal/source"
)

// MaskProvider builds segments from photos served by a source.Source and
// subject masks stored as <id>-mask.png in MaskDir. When a mask is missing
// and Segmenter is set, the command is run as
// `<Segmenter...> <input.png> <output-mask.png>` to produce it. The name
// "contrast" selects the built-in ContrastSegmenter instead, which keeps the
// guessed mask in memory.
type MaskProvider struct {
	Source    source.Source
	MaskDir   string
	Segmenter string
	Radius    int
}

// MaskPath returns where the mask for id is read from.
func (p *MaskProvider) MaskPath(id string) string {
	dir := p.MaskDir
	if dir == "" {
		dir = os.TempDir()
	}
	return filepath.Join(dir, id+"-mask.png")
}

func (p *MaskProvider) GetSegments(ctx context.Context, id string) (*Result, error) {
	img, err := p.Source.Load(id)
	if err != nil {
		if errors.Is(err, source.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", id, ErrImageNotFound)
		}
		return nil, fmt.Errorf("%s: %w: %v", id, ErrImageNotFound, err)
	}

	mask, err := p.loadMask(ctx, id, img)
	if err != nil {
		return nil, err
	}

	radius := p.Radius
	if radius == 0 {
		radius = DefaultSmoothRadius
	}
	return Build(id, img, mask, radius)
}

func (p *MaskProvider) loadMask(ctx context.Context, id string, img image.Image) (image.Image, error) {
	path := p.MaskPath(id)
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w: %v", id, ErrMaskUnusable, err)
		}
		if p.Segmenter == "" {
			return nil, fmt.Errorf("%s: %w: no mask at %s and no segmenter configured", id, ErrModelUnavailable, path)
		}
		if p.Segmenter == ContrastSegmenterName {
			mask, err := NewContrastSegmenter().Mask(img)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", id, err)
			}
			return mask, nil
		}
		if err := p.runSegmenter(ctx, id, img, path); err != nil {
			return nil, err
		}
	}

	mask, err := source.DecodeFile(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %v", id, ErrMaskUnusable, err)
	}
	return mask, nil
}

func (p *MaskProvider) runSegmenter(ctx context.Context, id string, img image.Image, maskPath string) error {
	args := strings.Fields(p.Segmenter)
	if len(args) == 0 {
		return fmt.Errorf("%s: %w", id, ErrModelUnavailable)
	}
	if _, err := exec.LookPath(args[0]); err != nil {
		return fmt.Errorf("%s: %w: %v", id, ErrModelUnavailable, err)
	}

	in, err := os.CreateTemp("", "segment2video_"+id+"_*.png")
	if err != nil {
		return fmt.Errorf("%s: %w: %v", id, ErrInferenceFailed, err)
	}
	defer os.Remove(in.Name())
	if err := png.Encode(in, img); err != nil {
		in.Close()
		return fmt.Errorf("%s: %w: %v", id, ErrInferenceFailed, err)
	}
	in.Close()

	if err := os.MkdirAll(filepath.Dir(maskPath), 0755); err != nil {
		return fmt.Errorf("%s: %w: %v", id, ErrInferenceFailed, err)
	}

	cmd := exec.CommandContext(ctx, args[0], append(args[1:], in.Name(), maskPath)...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %v, output: %s", id, ErrInferenceFailed, err, string(out))
	}
	return nil
}
