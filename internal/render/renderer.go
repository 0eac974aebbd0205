package render

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"
	"time"

	"github.com/gen2brain/go-fitz"
	"github.com/rs/zerolog/log"

	"github.com/local/pdfworkbench/internal/metrics"
)

// ColorMode defines the color mode for rendering
type ColorMode string

const (
	ColorRGB  ColorMode = "rgb"
	ColorGray ColorMode = "gray"
)

// Options control page rasterization.
type Options struct {
	DPI     int
	Quality int
	Color   ColorMode
}

// PageToJPEG renders one page of a PDF held in memory as JPEG. page is
// 1-based, matching the workspace's range arithmetic; go-fitz indexes from
// 0. Returns JPEG bytes, width, height.
func PageToJPEG(data []byte, page int, opts Options) ([]byte, int, int, error) {
	start := time.Now()
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer doc.Close()

	if page < 1 || page > doc.NumPage() {
		return nil, 0, 0, fmt.Errorf("page %d out of range (1-%d)", page, doc.NumPage())
	}

	img, err := doc.ImageDPI(page-1, float64(opts.DPI))
	if err != nil {
		return nil, 0, 0, fmt.Errorf("failed to render page %d: %w", page, err)
	}

	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	var finalImg image.Image
	if opts.Color == ColorGray {
		grayImg := image.NewGray(bounds)
		draw.Draw(grayImg, bounds, img, image.Point{}, draw.Src)
		finalImg = grayImg
	} else {
		finalImg = img
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, finalImg, &jpeg.Options{Quality: opts.Quality}); err != nil {
		return nil, 0, 0, fmt.Errorf("failed to encode JPEG: %w", err)
	}

	metrics.ObserveRender(time.Since(start))
	log.Debug().
		Int("page", page).
		Int("width", width).
		Int("height", height).
		Int("jpeg_size", buf.Len()).
		Int("dpi", opts.DPI).
		Str("color", string(opts.Color)).
		Msg("rendered page")

	return buf.Bytes(), width, height, nil
}
