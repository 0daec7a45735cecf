// Package raster converts rendered display SVGs into grayscale PNGs for
// e-ink screens that cannot show vector images.
package raster

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"io"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

// Rasterize draws svg onto a white grayscale canvas. A zero width or height
// takes the size from the SVG viewBox. Shapes are drawn by oksvg after <use>
// references are expanded; text is drawn with the Go fonts.
func Rasterize(svg io.Reader, width, height int) (*image.Gray, error) {
	flat, texts, err := flatten(svg)
	if err != nil {
		return nil, fmt.Errorf("failed to read SVG: %w", err)
	}

	icon, err := oksvg.ReadIconStream(bytes.NewReader(flat), oksvg.IgnoreErrorMode)
	if err != nil {
		return nil, fmt.Errorf("failed to read SVG: %w", err)
	}

	if width <= 0 {
		width = int(icon.ViewBox.W)
	}
	if height <= 0 {
		height = int(icon.ViewBox.H)
	}
	if width <= 0 || height <= 0 {
		return nil, errors.New("SVG has no viewBox and no output size was given")
	}

	icon.SetTarget(0, 0, float64(width), float64(height))

	rgba := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(rgba, rgba.Bounds(), image.White, image.Point{}, draw.Src)

	scanner := rasterx.NewScannerGV(width, height, rgba, rgba.Bounds())
	icon.Draw(rasterx.NewDasher(width, height, scanner), 1.0)

	mapping := textMapping{originX: icon.ViewBox.X, originY: icon.ViewBox.Y, scaleX: 1, scaleY: 1}
	if icon.ViewBox.W > 0 && icon.ViewBox.H > 0 {
		mapping.scaleX = float64(width) / icon.ViewBox.W
		mapping.scaleY = float64(height) / icon.ViewBox.H
	}
	if err := drawText(rgba, texts, mapping); err != nil {
		return nil, err
	}

	gray := image.NewGray(rgba.Bounds())
	draw.Draw(gray, gray.Bounds(), rgba, image.Point{}, draw.Src)
	return gray, nil
}

// EncodePNG rasterizes svg and writes it to w as a PNG.
func EncodePNG(w io.Writer, svg io.Reader, width, height int) error {
	img, err := Rasterize(svg, width, height)
	if err != nil {
		return err
	}

	encoder := png.Encoder{CompressionLevel: png.BestCompression}
	if err := encoder.Encode(w, img); err != nil {
		return fmt.Errorf("failed to encode PNG: %w", err)
	}
	return nil
}
