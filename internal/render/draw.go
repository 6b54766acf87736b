/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package render

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
	"strings"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/math/f64"
	"golang.org/x/image/math/fixed"

	"podcanvas/internal/domain"
	"podcanvas/internal/geometry"
	"podcanvas/internal/textlayout"
)

var (
	errNoSource  = errors.New("no image source")
	errEmptySize = errors.New("empty image size")
	errEmptyClip = errors.New("mask clips the whole image")
)

// textPad keeps antialiased glyph edges inside the text bitmap.
const textPad = 2

// elementToOutput maps the element's local frame (origin top-left, size s)
// to output pixels.
func elementToOutput(e domain.Element, s geometry.Size, origin geometry.Pt, scale float64) geometry.Affine2D {
	c := e.Center().Sub(origin)
	return geometry.Scale(scale, scale).
		Mul(geometry.Translate(c.X, c.Y)).
		Mul(geometry.RotateDeg(e.Rotation)).
		Mul(geometry.Translate(-s.W/2, -s.H/2))
}

func aff3(m geometry.Affine2D) f64.Aff3 { return f64.Aff3{m.A, m.C, m.E, m.B, m.D, m.F} }

// drawText renders the text block into a bitmap at output resolution and
// places it centred on the element, rotated about the centre.
func (c *Compositor) drawText(dst *image.RGBA, e domain.Element, origin geometry.Pt, scale float64) {
	t := e.Text
	if strings.TrimSpace(t.Content) == "" || t.FontSize <= 0 {
		return
	}
	blk := textlayout.Layout(c.fonts, textlayout.SpecFor(*t, scale), t.Content)
	tw := int(math.Ceil(blk.Width)) + 2*textPad
	th := int(math.Ceil(blk.Height)) + 2*textPad
	tmp := image.NewRGBA(image.Rect(0, 0, tw, th))
	col := domain.ColorOr(t.Color, color.RGBA{A: 255})
	d := &font.Drawer{Dst: tmp, Src: image.NewUniform(nrgba(col)), Face: blk.Face}
	for i, ln := range blk.Lines {
		x := textPad + (blk.Width-ln.Width)/2
		y := textPad + float64(i)*blk.Metrics.LineHeight + blk.Metrics.Ascent
		d.Dot = fixed.Point26_6{X: fixed.Int26_6(math.Round(x * 64)), Y: fixed.Int26_6(math.Round(y * 64))}
		d.DrawString(ln.Text)
	}

	ctr := e.Center().Sub(origin).Mul(scale)
	if geometry.NormalizeDeg(e.Rotation) == 0 {
		at := image.Pt(int(math.Round(ctr.X-float64(tw)/2)), int(math.Round(ctr.Y-float64(th)/2)))
		draw.Draw(dst, tmp.Bounds().Add(at), tmp, image.Point{}, draw.Over)
		return
	}
	m := geometry.Translate(ctr.X, ctr.Y).
		Mul(geometry.RotateDeg(e.Rotation)).
		Mul(geometry.Translate(-float64(tw)/2, -float64(th)/2))
	draw.BiLinear.Transform(dst, aff3(m), tmp, tmp.Bounds(), draw.Over, nil)
}

// drawImage resolves and draws an image element. A mask becomes a source
// sub-rectangle: its edge fractions of the full element box are applied to
// the bitmap, so the clip follows the rendered size.
func (c *Compositor) drawImage(ctx context.Context, dst *image.RGBA, e domain.Element, origin geometry.Pt, scale float64) error {
	p := e.Image
	if p.Width <= 0 || p.Height <= 0 {
		return errEmptySize
	}
	if c.images == nil {
		return errNoSource
	}
	src, err := c.images.Image(ctx, p.URL)
	if err != nil {
		return fmt.Errorf("load image: %w", err)
	}
	alpha := p.Alpha()
	if alpha <= 0 {
		return nil
	}
	b := src.Bounds()
	iw, ih := float64(b.Dx()), float64(b.Dy())
	if iw <= 0 || ih <= 0 {
		return errEmptySize
	}
	sr := b
	if e.Masked() {
		l, t, r, bt := p.Mask.Fractions(p.Size())
		sr = image.Rect(
			b.Min.X+int(math.Round(l*iw)), b.Min.Y+int(math.Round(t*ih)),
			b.Min.X+int(math.Round(r*iw)), b.Min.Y+int(math.Round(bt*ih)),
		).Intersect(b)
		if sr.Empty() {
			return errEmptyClip
		}
	}
	m := elementToOutput(e, p.Size(), origin, scale).
		Mul(geometry.Scale(p.Width/iw, p.Height/ih)).
		Mul(geometry.Translate(-float64(b.Min.X), -float64(b.Min.Y)))
	var opts *draw.Options
	if alpha < 1 {
		opts = &draw.Options{SrcMask: image.NewUniform(color.Alpha{A: uint8(math.Round(alpha * 255))})}
	}
	draw.BiLinear.Transform(dst, aff3(m), src, sr, draw.Over, opts)
	return nil
}

var placeholderFill = color.NRGBA{R: 0xcc, G: 0xcc, B: 0xcc, A: 0xff}

// drawPlaceholder fills the visible box of a broken image element.
func drawPlaceholder(dst *image.RGBA, e domain.Element, origin geometry.Pt, scale float64) {
	p := e.Image
	if p.Width <= 0 || p.Height <= 0 {
		return
	}
	sr := image.Rect(0, 0, int(math.Ceil(p.Width)), int(math.Ceil(p.Height)))
	if e.Masked() {
		lr := p.Mask.LocalRect()
		sr = image.Rect(int(math.Floor(lr.X)), int(math.Floor(lr.Y)), int(math.Ceil(lr.X+lr.W)), int(math.Ceil(lr.Y+lr.H)))
	}
	m := elementToOutput(e, p.Size(), origin, scale)
	draw.ApproxBiLinear.Transform(dst, aff3(m), image.NewUniform(placeholderFill), sr, draw.Over, nil)
}
