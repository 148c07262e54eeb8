package writer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
)

// FFmpegBackend pipes raw frames into an ffmpeg process that encodes H.264.
type FFmpegBackend struct {
	Binary string

	cmd *exec.Cmd
	out bytes.Buffer
}

func (b *FFmpegBackend) Start(ctx context.Context, opts Options) (io.WriteCloser, error) {
	bin := b.Binary
	if bin == "" {
		bin = "ffmpeg"
	}
	if dir := filepath.Dir(opts.Path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
	}

	b.cmd = exec.CommandContext(ctx, bin, buildFFmpegArgs(opts)...)
	b.cmd.Stdout = &b.out
	b.cmd.Stderr = &b.out

	stdin, err := b.cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe error: %w", err)
	}
	if err := b.cmd.Start(); err != nil {
		return nil, fmt.Errorf("ffmpeg start error: %w", err)
	}
	return stdin, nil
}

func (b *FFmpegBackend) Wait() error {
	if b.cmd == nil {
		return nil
	}
	if err := b.cmd.Wait(); err != nil {
		return fmt.Errorf("ffmpeg wait error: %v, output: %s", err, b.out.String())
	}
	return nil
}

func buildFFmpegArgs(opts Options) []string {
	args := []string{
		"-y",
		"-f", "rawvideo",
		"-pixel_format", string(opts.PixelFormat),
		"-video_size", fmt.Sprintf("%dx%d", opts.Width, opts.Height),
		"-framerate", fmt.Sprintf("%d", opts.FPS),
		"-i", "-",
		// yuv420p needs even dimensions
		"-vf", "pad=ceil(iw/2)*2:ceil(ih/2)*2",
		"-pix_fmt", "yuv420p",
		"-c:v", opts.Encoder,
	}
	args = append(args, QualityArgs(opts.Encoder, opts.Quality)...)
	args = append(args, "-movflags", "+faststart", opts.Path)
	return args
}

// QualityArgs maps a quality setting onto the rate control flags of an
// H.264 encoder. Zero picks the encoder's default.
func QualityArgs(encoder string, quality int) []string {
	if quality == 0 {
		quality = DefaultQuality(encoder)
	}
	switch encoder {
	case "h264_videotoolbox":
		// VideoToolbox не везде понимает -q:v, используем битрейт: 75 -> 7.5 Мбит/с
		return []string{"-b:v", fmt.Sprintf("%dk", quality*100)}
	case "h264_nvenc":
		return []string{"-cq", fmt.Sprintf("%d", quality)}
	default: // libx264
		return []string{"-crf", fmt.Sprintf("%d", quality), "-preset", "medium"}
	}
}

func DefaultQuality(encoder string) int {
	switch encoder {
	case "h264_videotoolbox":
		return 75
	case "h264_nvenc":
		return 28
	default:
		return 23
	}
}
