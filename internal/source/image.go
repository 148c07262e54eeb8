package source

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

var imageExtensions = []string{".jpeg", ".jpg", ".png"}

// ImageSource serves photos from a directory; the identifier is the file
// name without extension, e.g. image-2 for image-2.jpeg.
type ImageSource struct {
	dir   string
	paths map[string]string
}

func NewImageSource(dir string) (*ImageSource, error) {
	fi, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}
	if !fi.IsDir() {
		dir = filepath.Dir(dir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	paths := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if !isImageExt(ext) {
			continue
		}
		id := strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))
		if _, dup := paths[id]; !dup {
			paths[id] = filepath.Join(dir, entry.Name())
		}
	}

	return &ImageSource{dir: dir, paths: paths}, nil
}

func isImageExt(ext string) bool {
	for _, e := range imageExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

func (s *ImageSource) Identifiers() []string {
	ids := make([]string, 0, len(s.paths))
	for id := range s.paths {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Path returns the file backing id.
func (s *ImageSource) Path(id string) (string, bool) {
	p, ok := s.paths[id]
	return p, ok
}

func (s *ImageSource) Load(id string) (image.Image, error) {
	path, ok := s.paths[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s in %s", ErrNotFound, id, s.dir)
	}
	return DecodeFile(path)
}

func (s *ImageSource) Close() error {
	return nil
}

// DecodeFile decodes a jpeg or png file.
func DecodeFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return img, nil
}
