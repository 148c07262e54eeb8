package compositor

import (
	"errors"
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/ivlev/segment2video/internal/media"
)

func solid(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func sameRGBA(a, b color.Color) bool {
	ar, ag, ab, aa := a.RGBA()
	br, bg, bb, ba := b.RGBA()
	return ar>>8 == br>>8 && ag>>8 == bg>>8 && ab>>8 == bb>>8 && aa>>8 == ba>>8
}

var (
	red  = color.RGBA{R: 255, A: 255}
	blue = color.RGBA{B: 255, A: 255}
)

func TestRenderEmptyStack(t *testing.T) {
	c := New()
	img, err := c.Render(Stack{}, image.Pt(32, 18))
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if img.Bounds().Dx() != 32 || img.Bounds().Dy() != 18 {
		t.Fatalf("Expected 32x18 frame, got %v", img.Bounds())
	}
	for y := 0; y < 18; y++ {
		for x := 0; x < 32; x++ {
			if !sameRGBA(img.At(x, y), color.Black) {
				t.Fatalf("Pixel (%d,%d) is %v, expected opaque black", x, y, img.At(x, y))
			}
		}
	}
}

func TestRenderFractionPlacement(t *testing.T) {
	var s Stack
	s.Append(Layer{Label: "right", Content: solid(4, 4, red), Frame: Rect{X: 0.5, Y: 0, W: 0.5, H: 1}, Unit: Fraction})

	img, err := New().Render(s, image.Pt(10, 10))
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if !sameRGBA(img.At(7, 5), red) {
		t.Errorf("Expected red on the right half, got %v", img.At(7, 5))
	}
	if !sameRGBA(img.At(2, 5), color.Black) {
		t.Errorf("Expected black on the left half, got %v", img.At(2, 5))
	}
}

func TestRenderPainterOrder(t *testing.T) {
	s := NewStack(
		Layer{Content: solid(10, 10, red), Frame: Full, Unit: Fraction},
		Layer{Content: solid(5, 5, blue), Frame: Rect{X: 0, Y: 0, W: 5, H: 5}, Unit: Pixel},
	)
	img, err := New().Render(s, image.Pt(10, 10))
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if !sameRGBA(img.At(2, 2), blue) {
		t.Errorf("Top layer should win at (2,2), got %v", img.At(2, 2))
	}
	if !sameRGBA(img.At(8, 8), red) {
		t.Errorf("Bottom layer should show at (8,8), got %v", img.At(8, 8))
	}
	if s.Len() != 2 {
		t.Errorf("Render must not change the stack, len=%d", s.Len())
	}
}

func TestRenderRotationAboutCentre(t *testing.T) {
	content := image.NewRGBA(image.Rect(0, 0, 20, 20))
	for y := 0; y < 20; y++ {
		for x := 0; x < 20; x++ {
			if x < 10 {
				content.Set(x, y, red)
			} else {
				content.Set(x, y, blue)
			}
		}
	}
	s := NewStack(Layer{Content: content, Frame: Full, Unit: Fraction, Rotation: math.Pi})

	img, err := New().Render(s, image.Pt(20, 20))
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if !sameRGBA(img.At(4, 10), blue) {
		t.Errorf("Half-turn should move blue to the left, got %v", img.At(4, 10))
	}
	if !sameRGBA(img.At(15, 10), red) {
		t.Errorf("Half-turn should move red to the right, got %v", img.At(15, 10))
	}
}

func TestRenderDegenerateLayer(t *testing.T) {
	tests := []struct {
		name  string
		layer Layer
	}{
		{"nil content", Layer{Frame: Full, Unit: Fraction}},
		{"zero width", Layer{Content: image.NewRGBA(image.Rect(0, 0, 0, 5)), Frame: Full, Unit: Fraction}},
		{"zero placement", Layer{Content: solid(2, 2, red), Frame: Rect{W: 0, H: 1}, Unit: Fraction}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New().Render(NewStack(tt.layer), image.Pt(8, 8))
			if !errors.Is(err, ErrDegenerateLayer) {
				t.Errorf("Expected ErrDegenerateLayer, got %v", err)
			}
		})
	}

	if _, err := New().Render(Stack{}, image.Pt(0, 4)); !errors.Is(err, ErrDegenerateCanvas) {
		t.Errorf("Expected ErrDegenerateCanvas, got %v", err)
	}
}

func TestStackInsert(t *testing.T) {
	s := NewStack(Layer{Label: "a"}, Layer{Label: "b"}, Layer{Label: "c"})

	err := s.Insert(Layer{Label: "x"}, 5)
	if !errors.Is(err, ErrIndexOutOfRange) {
		t.Fatalf("Expected ErrIndexOutOfRange, got %v", err)
	}
	if s.Len() != 3 {
		t.Fatalf("Failed insert changed the stack: len=%d", s.Len())
	}

	if err := s.Insert(Layer{Label: "x"}, 1); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := s.Insert(Layer{Label: "end"}, s.Len()); err != nil {
		t.Fatalf("Insert at len failed: %v", err)
	}

	want := []string{"a", "x", "b", "c", "end"}
	got := s.Layers()
	if len(got) != len(want) {
		t.Fatalf("Expected %d layers, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i].Label != want[i] {
			t.Errorf("Layer %d: expected %s, got %s", i, want[i], got[i].Label)
		}
	}

	s.RemoveAll()
	if s.Len() != 0 {
		t.Errorf("RemoveAll left %d layers", s.Len())
	}
}

func TestStackCloneIsIndependent(t *testing.T) {
	s := NewStack(Layer{Label: "a"})
	c := s.Clone()
	c.Append(Layer{Label: "b"})
	if s.Len() != 1 || c.Len() != 2 {
		t.Errorf("Clone shares storage: original=%d clone=%d", s.Len(), c.Len())
	}
}

func TestAspectFit(t *testing.T) {
	tests := []struct {
		name    string
		content media.Size
		aspect  float64
		want    Rect
	}{
		{"wide into 4:3", media.Size{W: 400, H: 300}, 16.0 / 9.0, Rect{X: 0, Y: 37.5, W: 400, H: 225}},
		{"tall into 4:3", media.Size{W: 400, H: 300}, 0.5, Rect{X: 125, Y: 0, W: 150, H: 300}},
		{"same aspect", media.Size{W: 2000, H: 2900}, 2000.0 / 2900.0, Rect{X: 0, Y: 0, W: 2000, H: 2900}},
		{"degenerate", media.Size{W: 0, H: 300}, 1, Rect{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AspectFit(tt.content, tt.aspect)
			if math.Abs(got.X-tt.want.X) > 1e-9 || math.Abs(got.Y-tt.want.Y) > 1e-9 ||
				math.Abs(got.W-tt.want.W) > 1e-9 || math.Abs(got.H-tt.want.H) > 1e-9 {
				t.Errorf("AspectFit(%v, %.3f) = %+v, want %+v", tt.content, tt.aspect, got, tt.want)
			}
			if got.W == 0 {
				return
			}
			if math.Abs(got.W/got.H-tt.aspect) > 1e-9 {
				t.Errorf("Aspect mismatch: %f vs %f", got.W/got.H, tt.aspect)
			}
			if got.X < -1e-9 || got.Y < -1e-9 || got.X+got.W > tt.content.W+1e-9 || got.Y+got.H > tt.content.H+1e-9 {
				t.Errorf("Rect %+v not contained in %v", got, tt.content)
			}
		})
	}
}

func TestCropToAspect(t *testing.T) {
	img := solid(400, 300, red)
	cropped := CropToAspect(img, 16.0/9.0)
	b := cropped.Bounds()
	if b.Dx() != 400 || b.Dy() != 225 {
		t.Errorf("Expected 400x225 crop, got %dx%d", b.Dx(), b.Dy())
	}
	if b.Min.Y != 38 && b.Min.Y != 37 {
		t.Errorf("Crop should be vertically centred, got min %v", b.Min)
	}

	same := CropToAspect(img, 4.0/3.0)
	if same != image.Image(img) {
		t.Error("Crop at the native aspect should return the input")
	}
}

func TestMaskWith(t *testing.T) {
	content := solid(20, 20, red)
	mask := image.NewRGBA(image.Rect(0, 0, 20, 20))
	for y := 5; y < 15; y++ {
		for x := 5; x < 15; x++ {
			mask.Set(x, y, color.White)
		}
	}

	out, err := MaskWith(content, mask, 1.0)
	if err != nil {
		t.Fatalf("MaskWith failed: %v", err)
	}
	if !sameRGBA(out.At(10, 10), red) {
		t.Errorf("Centre should keep content, got %v", out.At(10, 10))
	}
	if _, _, _, a := out.At(1, 1).RGBA(); a != 0 {
		t.Errorf("Corner should be transparent, alpha=%d", a)
	}

	grown, err := MaskWith(content, mask, 1.6)
	if err != nil {
		t.Fatalf("MaskWith failed: %v", err)
	}
	if !sameRGBA(grown.At(3, 10), red) {
		t.Errorf("Zoomed mask should reach (3,10), got %v", grown.At(3, 10))
	}

	if _, err := MaskWith(nil, mask, 1); !errors.Is(err, ErrDegenerateLayer) {
		t.Errorf("Expected ErrDegenerateLayer for nil content, got %v", err)
	}
}
