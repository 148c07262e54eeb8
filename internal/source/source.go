package source

import (
	"errors"
	"fmt"
	"image"
	"strconv"
	"strings"

	"github.com/gen2brain/go-fitz"
)

// ErrNotFound is returned when an identifier has no backing image.
var ErrNotFound = errors.New("source image not found")

// Source loads still photos by content identifier.
type Source interface {
	Identifiers() []string
	Load(id string) (image.Image, error)
	Close() error
}

// FitzPDFSource exposes PDF pages as photos named page-1 ... page-N.
type FitzPDFSource struct {
	doc  *fitz.Document
	path string
	dpi  int
}

func NewFitzPDFSource(path string, dpi int) (*FitzPDFSource, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, err
	}
	if dpi <= 0 {
		dpi = 150
	}
	return &FitzPDFSource{doc: doc, path: path, dpi: dpi}, nil
}

func (f *FitzPDFSource) Identifiers() []string {
	ids := make([]string, f.doc.NumPage())
	for i := range ids {
		ids[i] = fmt.Sprintf("page-%d", i+1)
	}
	return ids
}

func (f *FitzPDFSource) Load(id string) (image.Image, error) {
	n, err := strconv.Atoi(strings.TrimPrefix(id, "page-"))
	if err != nil || !strings.HasPrefix(id, "page-") || n < 1 || n > f.doc.NumPage() {
		return nil, fmt.Errorf("%w: %s in %s", ErrNotFound, id, f.path)
	}
	// Segmentation requests run concurrently; a document handle per call
	// keeps workers from serialising on the shared one.
	workerDoc, err := fitz.New(f.path)
	if err != nil {
		return nil, err
	}
	defer workerDoc.Close()
	return workerDoc.ImageDPI(n-1, float64(f.dpi))
}

func (f *FitzPDFSource) Close() error {
	return f.doc.Close()
}
