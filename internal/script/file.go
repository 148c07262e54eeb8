package script

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// File is the on-disk form of a script.
type File struct {
	Version string `yaml:"version"`
	Steps   []Step `yaml:"steps"`
}

// WriteScript writes a script to a YAML file
func WriteScript(steps []Step, path string) error {
	data, err := yaml.Marshal(&File{Version: "1.0", Steps: steps})
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// ReadScript reads a script from a YAML file and validates it
func ReadScript(path string) ([]Step, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	if len(f.Steps) == 0 {
		return nil, fmt.Errorf("%w: %s has no steps", ErrInvalidScript, path)
	}
	if err := Validate(f.Steps); err != nil {
		return nil, err
	}

	return f.Steps, nil
}
