package config

import (
	"fmt"
	"os"
	"strings"
)

var (
	pixelFormats    = []string{"rgba", "bgra", "argb"}
	missingPolicies = []string{"skip", "strict"}
)

// Validate checks the whole configuration and reports every problem found.
func (c *Config) Validate() error {
	var errors []string

	if c.InputPath == "" {
		errors = append(errors, "input is required")
	} else if _, err := os.Stat(c.InputPath); os.IsNotExist(err) {
		errors = append(errors, fmt.Sprintf("input does not exist: %s", c.InputPath))
	}

	if len(c.IDs) == 0 {
		errors = append(errors, "at least one identifier is required")
	}
	seen := make(map[string]bool)
	for _, id := range c.IDs {
		if seen[id] {
			errors = append(errors, fmt.Sprintf("duplicate identifier %s", id))
		}
		seen[id] = true
	}

	if c.Width <= 0 || c.Height <= 0 {
		errors = append(errors, fmt.Sprintf("canvas %dx%d must be positive", c.Width, c.Height))
	}
	if c.EncodeWidth <= 0 || c.EncodeHeight <= 0 {
		errors = append(errors, fmt.Sprintf("encode size %dx%d must be positive", c.EncodeWidth, c.EncodeHeight))
	}
	if c.FPS <= 0 || c.FPS > 240 {
		errors = append(errors, fmt.Sprintf("fps %d must be between 1 and 240", c.FPS))
	}
	if c.Hold < 0 {
		errors = append(errors, "hold cannot be negative")
	}
	if c.Quality < 0 {
		errors = append(errors, "quality cannot be negative (use 0 for the encoder default)")
	}
	if c.Workers < 0 {
		errors = append(errors, "workers cannot be negative (use 0 for auto-detect)")
	}
	if c.QueueDepth <= 0 {
		errors = append(errors, "queue depth must be positive")
	}
	if !oneOf(c.PixelFormat, pixelFormats) {
		errors = append(errors, fmt.Sprintf("invalid pixel format '%s', must be one of: %s", c.PixelFormat, strings.Join(pixelFormats, ", ")))
	}
	if !oneOf(c.MissingPolicy, missingPolicies) {
		errors = append(errors, fmt.Sprintf("invalid missing policy '%s', must be one of: %s", c.MissingPolicy, strings.Join(missingPolicies, ", ")))
	}
	if c.AudioPath != "" {
		if _, err := os.Stat(c.AudioPath); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("audio does not exist: %s", c.AudioPath))
		}
	}
	if c.ScriptPath != "" {
		if _, err := os.Stat(c.ScriptPath); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("script does not exist: %s", c.ScriptPath))
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errors, "\n  - "))
	}
	return nil
}

func oneOf(v string, values []string) bool {
	for _, s := range values {
		if v == s {
			return true
		}
	}
	return false
}
