// Package source resolves per-page illustrations from external asset
// collections: a directory of image files or a PDF picture book.
package source

import (
	"image"

	"github.com/gen2brain/go-fitz"
)

type IllustrationSource interface {
	Count() int
	Render(index int) (image.Image, error)
	Close() error
}

// FitzPDFSource renders page illustrations from a PDF picture book: the
// illustration for page i is PDF page i.
type FitzPDFSource struct {
	doc  *fitz.Document
	path string
	dpi  float64
}

func NewFitzPDFSource(path string, dpi float64) (*FitzPDFSource, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, err
	}
	return &FitzPDFSource{doc: doc, path: path, dpi: dpi}, nil
}

func (f *FitzPDFSource) Count() int {
	return f.doc.NumPage()
}

func (f *FitzPDFSource) Render(index int) (image.Image, error) {
	// Открываем отдельный документ, чтобы не блокировать параллельную
	// предзагрузку остальных страниц.
	workerDoc, err := fitz.New(f.path)
	if err != nil {
		return nil, err
	}
	defer workerDoc.Close()
	return workerDoc.ImageDPI(index, f.dpi)
}

func (f *FitzPDFSource) Close() error {
	return f.doc.Close()
}
