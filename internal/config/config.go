package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultIDs are the photo identifiers the reference script is written for.
var DefaultIDs = []string{"image-2", "image-3", "image-4", "image-5", "image-6", "image-7", "image-8", "image-9"}

type Config struct {
	InputPath     string   `yaml:"input"`
	MaskDir       string   `yaml:"masks"`
	IDs           []string `yaml:"ids"`
	ScriptPath    string   `yaml:"script"`
	DumpScript    string   `yaml:"dump_script"`
	OutputVideo   string   `yaml:"output"`
	AudioPath     string   `yaml:"audio"`
	CacheDir      string   `yaml:"cache_dir"`
	Width         int      `yaml:"width"`
	Height        int      `yaml:"height"`
	EncodeWidth   int      `yaml:"encode_width"`
	EncodeHeight  int      `yaml:"encode_height"`
	FPS           int      `yaml:"fps"`
	Hold          float64  `yaml:"hold"`
	DPI           int      `yaml:"dpi"`
	PixelFormat   string   `yaml:"pixel_format"`
	VideoEncoder  string   `yaml:"video_encoder"`
	Quality       int      `yaml:"quality"`
	Workers       int      `yaml:"workers"`
	QueueDepth    int      `yaml:"queue_depth"`
	MissingPolicy string   `yaml:"missing_policy"`
	Segmenter     string   `yaml:"segmenter"`
	FFmpeg        string   `yaml:"ffmpeg"`
	Debug         bool     `yaml:"debug"`
	ShowStats     bool     `yaml:"stats"`
	BuildVersion  string   `yaml:"-"`
}

func Default() *Config {
	return &Config{
		InputPath:     "input/images",
		IDs:           append([]string(nil), DefaultIDs...),
		Width:         2000,
		Height:        2900,
		EncodeWidth:   2000,
		EncodeHeight:  2921,
		FPS:           30,
		DPI:           150,
		PixelFormat:   "rgba",
		Workers:       runtime.NumCPU(),
		QueueDepth:    4,
		MissingPolicy: "skip",
		FFmpeg:        "ffmpeg",
	}
}

// LoadFile reads a YAML config on top of the defaults.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// SaveFile writes cfg as YAML.
func SaveFile(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// PathFromArgs finds the -config value before flags are parsed, so the file
// can supply flag defaults.
func PathFromArgs(args []string) string {
	for i, arg := range args {
		switch {
		case (arg == "-config" || arg == "--config") && i+1 < len(args):
			return args[i+1]
		case strings.HasPrefix(arg, "-config="):
			return strings.TrimPrefix(arg, "-config=")
		case strings.HasPrefix(arg, "--config="):
			return strings.TrimPrefix(arg, "--config=")
		}
	}
	return ""
}

// Load returns the defaults overlaid with the config file named on the
// command line, if any, and the environment.
func Load(args []string) (*Config, error) {
	cfg := Default()
	if path := PathFromArgs(args); path != "" {
		var err error
		if cfg, err = LoadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}
