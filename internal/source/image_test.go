package source

import (
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.White)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("encode %s: %v", path, err)
	}
}

func TestImageSource(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "image-3.png"), 6, 4)
	writePNG(t, filepath.Join(dir, "image-2.png"), 8, 5)
	os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("skip"), 0644)

	src, err := NewImageSource(dir)
	if err != nil {
		t.Fatalf("NewImageSource failed: %v", err)
	}
	defer src.Close()

	ids := src.Identifiers()
	if len(ids) != 2 || ids[0] != "image-2" || ids[1] != "image-3" {
		t.Fatalf("Unexpected identifiers: %v", ids)
	}

	img, err := src.Load("image-2")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if img.Bounds().Dx() != 8 || img.Bounds().Dy() != 5 {
		t.Errorf("Expected 8x5, got %v", img.Bounds())
	}

	if _, err := src.Load("image-9"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}
