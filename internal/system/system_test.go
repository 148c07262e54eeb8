package system

import (
	"image"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestPickEncoder(t *testing.T) {
	tests := []struct {
		listing string
		want    string
	}{
		{" V....D h264_videotoolbox    VideoToolbox H.264 Encoder (codec h264)", "h264_videotoolbox"},
		{" V....D h264_nvenc           NVIDIA NVENC H.264 encoder (codec h264)", "h264_nvenc"},
		{" V....D libx264              libx264 H.264 / AVC (codec h264)", "libx264"},
		{"", "libx264"},
	}
	for _, tt := range tests {
		if got := PickEncoder(tt.listing); got != tt.want {
			t.Errorf("PickEncoder(%q) = %s, want %s", tt.listing, got, tt.want)
		}
	}
}

func TestParseDuration(t *testing.T) {
	d, err := ParseDuration("12.345000\n")
	if err != nil || d != 12.345 {
		t.Errorf("ParseDuration = %f, %v", d, err)
	}
	if _, err := ParseDuration("N/A"); err == nil {
		t.Error("Expected an error for N/A")
	}
}

func TestFindLatest(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "old.mp3")
	fresh := filepath.Join(dir, "music.AAC")
	os.WriteFile(old, []byte("x"), 0644)
	os.WriteFile(fresh, []byte("x"), 0644)
	os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644)

	past := time.Now().Add(-time.Hour)
	os.Chtimes(old, past, past)

	got, err := FindLatest(dir, AudioExtensions...)
	if err != nil {
		t.Fatalf("FindLatest failed: %v", err)
	}
	if got != fresh {
		t.Errorf("Expected %s, got %s", fresh, got)
	}

	if _, err := FindLatest(dir, ".pdf"); err == nil {
		t.Error("Expected an error when nothing matches")
	}
}

func TestImagePool(t *testing.T) {
	p := NewImagePool()
	img := p.Get(image.Rect(0, 0, 4, 3))
	if img.Bounds() != image.Rect(0, 0, 4, 3) || len(img.Pix) != 4*3*4 {
		t.Fatalf("Unexpected pooled image %v (%d bytes)", img.Bounds(), len(img.Pix))
	}
	p.Put(img)

	moved := p.Get(image.Rect(10, 10, 14, 13))
	if moved.Bounds() != image.Rect(10, 10, 14, 13) {
		t.Errorf("Pooled image should take the requested bounds, got %v", moved.Bounds())
	}
	moved.Set(13, 12, image.White.C)
	if moved.Pix[len(moved.Pix)-1] != 0xff {
		t.Error("Last pixel should map to the end of the buffer")
	}
}

func TestFormatBytes(t *testing.T) {
	tests := map[uint64]string{
		512:             "512 B",
		2048:            "2.0 KiB",
		3 * 1024 * 1024: "3.0 MiB",
	}
	for n, want := range tests {
		if got := FormatBytes(n); got != want {
			t.Errorf("FormatBytes(%d) = %s, want %s", n, got, want)
		}
	}
}
