package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// EnvPrefix namespaces the environment overrides, e.g. SEGMENT2VIDEO_AUDIO.
const EnvPrefix = "SEGMENT2VIDEO_"

// ApplyEnv loads a .env file from the working directory when present and
// overlays every SEGMENT2VIDEO_* variable onto c. Variables already set in
// the process environment win over the file.
func (c *Config) ApplyEnv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}

	str := func(name string, dst *string) {
		if v, ok := os.LookupEnv(EnvPrefix + name); ok {
			*dst = v
		}
	}
	var errs []string
	num := func(name string, dst *int) {
		if v, ok := os.LookupEnv(EnvPrefix + name); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Sprintf("%s%s=%q is not an integer", EnvPrefix, name, v))
				return
			}
			*dst = n
		}
	}
	flag := func(name string, dst *bool) {
		if v, ok := os.LookupEnv(EnvPrefix + name); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Sprintf("%s%s=%q is not a boolean", EnvPrefix, name, v))
				return
			}
			*dst = b
		}
	}

	str("INPUT", &c.InputPath)
	str("MASKS", &c.MaskDir)
	str("SCRIPT", &c.ScriptPath)
	str("OUTPUT", &c.OutputVideo)
	str("AUDIO", &c.AudioPath)
	str("CACHE_DIR", &c.CacheDir)
	str("PIXEL_FORMAT", &c.PixelFormat)
	str("VIDEO_ENCODER", &c.VideoEncoder)
	str("MISSING_POLICY", &c.MissingPolicy)
	str("SEGMENTER", &c.Segmenter)
	str("FFMPEG", &c.FFmpeg)
	num("WIDTH", &c.Width)
	num("HEIGHT", &c.Height)
	num("ENCODE_WIDTH", &c.EncodeWidth)
	num("ENCODE_HEIGHT", &c.EncodeHeight)
	num("FPS", &c.FPS)
	num("QUALITY", &c.Quality)
	num("WORKERS", &c.Workers)
	num("QUEUE_DEPTH", &c.QueueDepth)
	flag("DEBUG", &c.Debug)
	flag("STATS", &c.ShowStats)

	if v, ok := os.LookupEnv(EnvPrefix + "IDS"); ok {
		c.IDs = SplitIDs(v)
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid environment:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// SplitIDs parses a comma separated identifier list.
func SplitIDs(s string) []string {
	var ids []string
	for _, id := range strings.Split(s, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}
