package script

import (
	"fmt"
	"image"

	"github.com/ivlev/segment2video/internal/media"
	"github.com/skip2/go-qrcode"
	"golang.org/x/image/draw"
)

const stampMargin = 16

// Stamp draws a QR code with the frame index and pts into the top-left
// corner of img, so single frames can be traced back to script steps.
func Stamp(img *image.RGBA, f media.Frame) error {
	q, err := qrcode.New(fmt.Sprintf("frame=%d pts=%d/%d", f.Index, f.PTS.Value, f.PTS.Timescale), qrcode.Medium)
	if err != nil {
		return err
	}

	b := img.Bounds()
	size := min(b.Dx(), b.Dy()) / 8
	code := q.Image(size)
	cb := code.Bounds()
	at := image.Rect(b.Min.X+stampMargin, b.Min.Y+stampMargin, b.Min.X+stampMargin+cb.Dx(), b.Min.Y+stampMargin+cb.Dy())
	draw.Draw(img, at.Intersect(b), code, cb.Min, draw.Src)
	return nil
}
