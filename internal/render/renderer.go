// Package render rasterizes document pages to PNG bytes with a bounded long
// side, preserving aspect ratio.
package render

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gen2brain/go-fitz"

	"github.com/docfold/pagescribe/internal/config"
	"github.com/docfold/pagescribe/internal/domain"
)

// Renderer opens documents and image sets as page sources.
type Renderer struct {
	maxLongSide int
}

// NewRenderer creates a renderer with the configured resolution bound.
func NewRenderer(cfg config.RenderConfig) *Renderer {
	return &Renderer{maxLongSide: cfg.MaxLongSide}
}

// OpenDocument opens a multi-page document (PDF or any format the engine
// understands) as a page source.
func (r *Renderer) OpenDocument(path string) (*Document, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, domain.RenderError(fmt.Sprintf("open document %s", filepath.Base(path)), err)
	}
	return &Document{doc: doc, maxLongSide: r.maxLongSide}, nil
}

// Document is a page source backed by one open document.
type Document struct {
	doc         *fitz.Document
	maxLongSide int
}

// PageCount returns the number of pages.
func (d *Document) PageCount() int {
	return d.doc.NumPage()
}

// RenderPage rasterizes one page to PNG bytes, scaled so the longest side
// does not exceed the configured maximum.
func (d *Document) RenderPage(index int) ([]byte, error) {
	bounds, err := d.doc.Bound(index)
	if err != nil {
		return nil, domain.RenderError(fmt.Sprintf("measure page %d", index+1), err)
	}

	png, err := d.doc.ImagePNG(index, renderDPI(bounds.Dx(), bounds.Dy(), d.maxLongSide))
	if err != nil {
		return nil, domain.RenderError(fmt.Sprintf("render page %d", index+1), err)
	}
	return png, nil
}

// Close releases the underlying document.
func (d *Document) Close() error {
	return d.doc.Close()
}

// OpenImageSet opens a directory of page images as a page source. Pages are
// the image files in lexicographic order, rendered through the same engine
// so the resolution bound applies equally.
func (r *Renderer) OpenImageSet(dir string) (*ImageSet, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, domain.RenderError(fmt.Sprintf("read image directory %s", filepath.Base(dir)), err)
	}

	var paths []string
	for _, e := range entries {
		if e.Type().IsRegular() && IsImageFile(e.Name()) {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)

	if len(paths) == 0 {
		return nil, domain.RenderError(fmt.Sprintf("no images in %s", filepath.Base(dir)), nil)
	}
	return &ImageSet{paths: paths, maxLongSide: r.maxLongSide}, nil
}

// ImageSet is a page source backed by a sorted list of image files, opened
// lazily one page at a time.
type ImageSet struct {
	paths       []string
	maxLongSide int
}

// PageCount returns the number of image files.
func (s *ImageSet) PageCount() int {
	return len(s.paths)
}

// RenderPage re-encodes one image file as PNG within the resolution bound.
func (s *ImageSet) RenderPage(index int) ([]byte, error) {
	doc, err := fitz.New(s.paths[index])
	if err != nil {
		return nil, domain.RenderError(fmt.Sprintf("open image %s", filepath.Base(s.paths[index])), err)
	}
	defer doc.Close()

	bounds, err := doc.Bound(0)
	if err != nil {
		return nil, domain.RenderError(fmt.Sprintf("measure image %s", filepath.Base(s.paths[index])), err)
	}

	png, err := doc.ImagePNG(0, renderDPI(bounds.Dx(), bounds.Dy(), s.maxLongSide))
	if err != nil {
		return nil, domain.RenderError(fmt.Sprintf("render image %s", filepath.Base(s.paths[index])), err)
	}
	return png, nil
}

// Close is a no-op; image files are opened per page.
func (s *ImageSet) Close() error {
	return nil
}

// IsImageFile reports whether a file name has a supported image extension.
func IsImageFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".png", ".jpg", ".jpeg":
		return true
	default:
		return false
	}
}

// renderDPI computes the rasterization DPI so the longest page side comes
// out at maxLongSide pixels. Page bounds are expressed at 72 DPI.
func renderDPI(width, height, maxLongSide int) float64 {
	long := width
	if height > long {
		long = height
	}
	if long <= 0 {
		return 72
	}
	return 72 * float64(maxLongSide) / float64(long)
}
