// Package receipt normalizes receipt uploads into JPEG page images for the
// vision extractor. PDFs are rasterized page by page; images pass through.
package receipt

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"path/filepath"
	"strings"

	"github.com/gen2brain/go-fitz"
	"go.uber.org/zap"
)

const jpegQuality = 85

// maxPages caps how many PDF pages are rasterized; receipts past the first
// pages rarely carry the totals and only inflate vision costs.
const maxPages = 2

// Reader converts receipt uploads into JPEG pages.
type Reader struct {
	logger *zap.Logger
}

// NewReader creates a new receipt reader
func NewReader(logger *zap.Logger) *Reader {
	return &Reader{logger: logger}
}

// Pages returns the upload as one or more JPEG images, keyed off the filename
// extension.
func (r *Reader) Pages(data []byte, filename string) ([][]byte, error) {
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".pdf":
		return r.pdfPages(data)
	case ".jpg", ".jpeg":
		return [][]byte{data}, nil
	case ".png":
		page, err := reencode(data, png.Decode)
		if err != nil {
			return nil, err
		}
		return [][]byte{page}, nil
	default:
		return nil, fmt.Errorf("unsupported receipt type: %s", ext)
	}
}

func (r *Reader) pdfPages(data []byte) ([][]byte, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer doc.Close()

	pageCount := doc.NumPage()
	if pageCount > maxPages {
		pageCount = maxPages
	}

	var pages [][]byte
	for pageNum := 0; pageNum < pageCount; pageNum++ {
		img, err := doc.Image(pageNum)
		if err != nil {
			r.logger.Warn("Failed to rasterize PDF page", zap.Int("page", pageNum), zap.Error(err))
			continue
		}
		page, err := encodeJPEG(img)
		if err != nil {
			r.logger.Warn("Failed to encode PDF page", zap.Int("page", pageNum), zap.Error(err))
			continue
		}
		pages = append(pages, page)
	}

	if len(pages) == 0 {
		return nil, fmt.Errorf("no readable pages in PDF")
	}
	return pages, nil
}

func reencode(data []byte, decode func(r io.Reader) (image.Image, error)) ([]byte, error) {
	img, err := decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return encodeJPEG(img)
}

func encodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode JPEG: %w", err)
	}
	return buf.Bytes(), nil
}
