// Package assemble muxes a sealed video with its soundtrack.
package assemble

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/ivlev/segment2video/internal/system"
	"github.com/ivlev/segment2video/internal/writer"
)

var ErrNoVideo = errors.New("no sealed video to assemble")

// Assembler runs ffmpeg to combine a video asset with an audio track.
type Assembler struct {
	FFmpeg string
	// Probe reports the duration of a media file; nil skips the audio check.
	Probe func(ctx context.Context, path string) (float64, error)
}

func New() *Assembler {
	return &Assembler{FFmpeg: "ffmpeg", Probe: system.ProbeDuration}
}

// Compose writes out: the video stream of asset copied as is, and the audio
// encoded to AAC, padded with silence and cut to the video duration. Without
// audio the video is remuxed unchanged.
func (a *Assembler) Compose(ctx context.Context, asset *writer.Asset, audioPath, out string) error {
	if asset == nil || asset.Path == "" {
		return ErrNoVideo
	}
	if err := os.MkdirAll(filepath.Dir(out), 0755); err != nil {
		return err
	}

	if audioPath != "" && a.Probe != nil {
		if d, err := a.Probe(ctx, audioPath); err != nil {
			log.Printf("[!] Не удалось получить длительность аудио: %v", err)
		} else if d < asset.Duration {
			log.Printf("[!] Аудио (%.2fs) короче видео (%.2fs), остаток будет тишиной", d, asset.Duration)
		}
	}

	bin := a.FFmpeg
	if bin == "" {
		bin = "ffmpeg"
	}
	cmd := exec.CommandContext(ctx, bin, Args(asset, audioPath, out)...)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg mux error: %v, output: %s", err, string(output))
	}
	return nil
}

// Args builds the ffmpeg command line used by Compose.
func Args(asset *writer.Asset, audioPath, out string) []string {
	args := []string{"-y", "-i", asset.Path}
	if audioPath == "" {
		return append(args, "-map", "0:v:0", "-c", "copy", "-movflags", "+faststart", out)
	}

	args = append(args,
		"-i", audioPath,
		"-map", "0:v:0",
		"-map", "1:a:0",
		"-c:v", "copy",
		"-c:a", "aac",
		"-af", "apad",
		"-t", fmt.Sprintf("%.3f", asset.Duration),
		"-movflags", "+faststart",
		out,
	)
	return args
}
