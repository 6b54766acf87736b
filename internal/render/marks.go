/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package render

import (
	"fmt"
	"image"
	"image/draw"
	"math"

	"github.com/gogpu/gg"

	"podcanvas/internal/domain"
	"podcanvas/internal/geometry"
)

// drawCropMarks strokes trim marks outside the corners of trim (logical,
// relative to the output origin). Each mark sits in the bleed margin on its
// side, starting a small gap away from the trim line.
func drawCropMarks(dst *image.RGBA, trim geometry.Rect, bleed domain.Sides, scale float64) error {
	dc := gg.NewContextForImage(dst)
	defer func() { _ = dc.Close() }()
	dc.SetRGB(0, 0, 0)
	dc.SetLineWidth(math.Max(1, 0.25*scale))

	x0, y0 := trim.X*scale, trim.Y*scale
	x1, y1 := (trim.X+trim.W)*scale, (trim.Y+trim.H)*scale
	seg := func(margin float64) (gap, end float64) {
		m := margin * scale
		return m * 0.2, m * 0.9
	}
	lg, le := seg(bleed.Left)
	rg, re := seg(bleed.Right)
	tg, te := seg(bleed.Top)
	bg, be := seg(bleed.Bottom)

	for _, y := range []float64{y0, y1} {
		if le > lg {
			dc.DrawLine(x0-le, y, x0-lg, y)
		}
		if re > rg {
			dc.DrawLine(x1+rg, y, x1+re, y)
		}
	}
	for _, x := range []float64{x0, x1} {
		if te > tg {
			dc.DrawLine(x, y0-te, x, y0-tg)
		}
		if be > bg {
			dc.DrawLine(x, y1+bg, x, y1+be)
		}
	}
	if err := dc.Stroke(); err != nil {
		return fmt.Errorf("stroke crop marks: %w", err)
	}
	draw.Draw(dst, dst.Bounds(), dc.Image(), dst.Bounds().Min, draw.Src)
	return nil
}
