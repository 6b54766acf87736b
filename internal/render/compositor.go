/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package render composites a design into a raster print file.
//
// Output bounds are the print area or the bleed area. Logical canvas
// coordinates are mapped to output pixels by subtracting the bounds origin
// and multiplying by a scale derived from the product's physical size and a
// target DPI, or a fixed multiplier when no physical size is known.
package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"log/slog"

	"podcanvas/internal/domain"
	"podcanvas/internal/geometry"
	applog "podcanvas/internal/log"
	"podcanvas/internal/textlayout"
)

// MaxPixels caps the output raster.
const MaxPixels = 1 << 28

var (
	ErrEmptyPrintArea = errors.New("print area is empty")
	ErrTooLarge       = errors.New("output raster too large")
)

// ImageSource resolves the url of an image element to a bitmap.
type ImageSource interface {
	Image(ctx context.Context, url string) (image.Image, error)
}

// Options control a single render.
type Options struct {
	// Bleed renders the bleed area instead of the print area.
	Bleed bool
	// Scale, when > 0, fixes output pixels per logical unit.
	Scale float64
	// DPI is the target resolution used with a physical product size.
	DPI int
	// Multiplier is the scale used when the product has no physical size.
	Multiplier float64
	// CropMarks draws trim marks at the print-area corners. Ignored unless
	// the bleed area is rendered and has a positive margin.
	CropMarks bool
	// Placeholders draws an inert box where an image could not be loaded.
	Placeholders bool
}

// ScaleFor returns the output pixels per logical unit for product p.
// The physical size describes the print area, so its logical width is used
// even when the bleed area is rendered.
func (o Options) ScaleFor(p domain.Product) float64 {
	if o.Scale > 0 {
		return o.Scale
	}
	fb := o.Multiplier
	if fb <= 0 {
		fb = geometry.TestExportMultiplier
	}
	return geometry.PrintScale(p.PrintArea.Width, p.PhysicalSize, o.DPI, fb)
}

// Skipped records an element that was left out of the output.
type Skipped struct {
	ID  string
	Err error
}

// Result is a rendered print file.
type Result struct {
	Image *image.RGBA
	// Bounds are the logical output bounds.
	Bounds geometry.Rect
	Scale  float64
	// Marks reports whether crop marks were drawn.
	Marks   bool
	Skipped []Skipped
}

// WritePNG encodes the raster as PNG.
func (r *Result) WritePNG(w io.Writer) error {
	if err := png.Encode(w, r.Image); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

// PNG returns the raster as PNG bytes.
func (r *Result) PNG() ([]byte, error) {
	var buf bytes.Buffer
	if err := r.WritePNG(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Compositor draws designs. It holds no per-render state and may be shared.
type Compositor struct {
	images ImageSource
	fonts  textlayout.Provider
	log    *slog.Logger
}

// NewCompositor returns a compositor. A nil fonts provider uses the Go fonts.
func NewCompositor(images ImageSource, fonts textlayout.Provider) *Compositor {
	if fonts == nil {
		fonts = textlayout.OTProvider{Lib: textlayout.NewDefaultLibrary()}
	}
	return &Compositor{images: images, fonts: fonts, log: applog.WithComponent("render")}
}

// Render composites d. Elements whose resources fail are skipped and listed
// in Result.Skipped; the rest of the design still renders.
func (c *Compositor) Render(ctx context.Context, d domain.Design, opts Options) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l := applog.WithOperation(c.log, "render")
	p := d.Product
	if p.PrintArea.Geom().Empty() {
		return nil, ErrEmptyPrintArea
	}
	bounds := p.PrintArea.Geom()
	if opts.Bleed {
		bounds = p.BleedRect()
	}
	scale := opts.ScaleFor(p)
	w, h := geometry.OutputPixels(bounds, scale)
	if int64(w)*int64(h) > MaxPixels {
		return nil, fmt.Errorf("%dx%d px: %w", w, h, ErrTooLarge)
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	if !domain.IsWhiteOrEmpty(d.BackgroundColor) {
		bg := domain.ColorOr(d.BackgroundColor, color.RGBA{R: 255, G: 255, B: 255, A: 255})
		draw.Draw(dst, dst.Bounds(), image.NewUniform(nrgba(bg)), image.Point{}, draw.Src)
	}

	res := &Result{Image: dst, Bounds: bounds, Scale: scale}
	res.Skipped = c.drawElements(ctx, dst, d.Elements, bounds.Min(), scale, opts.Placeholders)

	if opts.CropMarks {
		if opts.Bleed && p.HasBleed() {
			if err := drawCropMarks(dst, p.PrintArea.Geom().Translate(bounds.Min().Mul(-1)), p.BleedArea.Insets(), scale); err != nil {
				l.WarnContext(ctx, "crop marks failed", slog.Any("err", err))
			} else {
				res.Marks = true
			}
		} else {
			l.DebugContext(ctx, "crop marks need a bleed render")
		}
	}
	l.InfoContext(ctx, "design rendered",
		slog.Int("w", w), slog.Int("h", h), slog.Float64("scale", scale),
		slog.Int("elements", len(d.Elements)), slog.Int("skipped", len(res.Skipped)))
	return res, nil
}

// DrawElements draws elems onto dst in slice order. origin is the logical
// point mapped to dst's top-left pixel and scale the output pixels per
// logical unit. Every image is resolved before the next element is drawn.
func (c *Compositor) DrawElements(ctx context.Context, dst *image.RGBA, elems []domain.Element, origin geometry.Pt, scale float64) []Skipped {
	return c.drawElements(ctx, dst, elems, origin, scale, false)
}

func (c *Compositor) drawElements(ctx context.Context, dst *image.RGBA, elems []domain.Element, origin geometry.Pt, scale float64, placeholders bool) []Skipped {
	var skipped []Skipped
	for _, e := range elems {
		var err error
		switch {
		case e.IsText():
			c.drawText(dst, e, origin, scale)
		case e.IsImage():
			err = c.drawImage(ctx, dst, e, origin, scale)
			if err != nil && placeholders {
				drawPlaceholder(dst, e, origin, scale)
			}
		default:
			err = fmt.Errorf("element %s: unknown kind %q", e.ID, e.Kind)
		}
		if err != nil {
			c.log.WarnContext(applog.WithElement(ctx, e.ID), "element skipped", slog.Any("err", err))
			skipped = append(skipped, Skipped{ID: e.ID, Err: err})
		}
	}
	return skipped
}

func nrgba(c color.RGBA) color.NRGBA { return color.NRGBA{R: c.R, G: c.G, B: c.B, A: c.A} }
