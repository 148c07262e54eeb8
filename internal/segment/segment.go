// Package segment defines the segmented-image contract consumed by the frame
// sequencer and a file-backed provider that builds the image triple from a
// photo and its subject mask.
package segment

import (
	"context"
	"errors"
	"image"
)

var (
	ErrImageNotFound    = errors.New("source image not found")
	ErrModelUnavailable = errors.New("segmentation model unavailable")
	ErrInferenceFailed  = errors.New("segmentation inference failed")
	ErrMaskUnusable     = errors.New("segmentation mask unusable")
	ErrSubjectNotFound  = errors.New("subject not found in image")
)

// Kind selects one image of a Result.
type Kind string

const (
	Source     Kind = "source"
	Background Kind = "background"
	Foreground Kind = "foreground"
)

// Result is the immutable triple produced for one identifier. All three
// images share the same bounds.
type Result struct {
	ID         string
	Source     image.Image
	Background image.Image
	Foreground image.Image
}

// Image returns the image of the given kind, or nil for an unknown kind.
func (r *Result) Image(k Kind) image.Image {
	switch k {
	case Source:
		return r.Source
	case Background:
		return r.Background
	case Foreground:
		return r.Foreground
	}
	return nil
}

// Provider produces segments for a content identifier.
type Provider interface {
	GetSegments(ctx context.Context, id string) (*Result, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context, id string) (*Result, error)

func (f ProviderFunc) GetSegments(ctx context.Context, id string) (*Result, error) {
	return f(ctx, id)
}
