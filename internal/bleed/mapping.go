/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package bleed maps design space onto an independently sized product
// background image and validates that the mapped bleed area stays on it.
//
// The mapping normalizes a design point to [0,1], scales it about 0.5 and
// then translates so the bleed rectangle's own centre lands on
// (CenterX/100, CenterY/100) of the display.
package bleed

import (
	"fmt"
	"math"

	"podcanvas/internal/domain"
	"podcanvas/internal/geometry"
)

const (
	MinScale = 0.1
	MaxScale = 5.0
	// BoundsTolerance is the overflow in display pixels accepted by Validate.
	BoundsTolerance = 1.0
)

// Mapper binds a product and a background display size.
type Mapper struct {
	Canvas  geometry.Canvas
	Product domain.Product
	Display geometry.Size
}

// NewMapper returns a Mapper on the default canvas.
func NewMapper(p domain.Product, display geometry.Size) Mapper {
	return Mapper{Canvas: geometry.DefaultCanvas, Product: p, Display: display}
}

func active(mp *domain.BleedAreaMapping) bool {
	return mp != nil && mp.Enabled && mp.Scale > 0
}

// translation returns the normalized offset that moves the scaled bleed
// centre onto the mapping centre.
func (m Mapper) translation(mp *domain.BleedAreaMapping) geometry.Pt {
	bc := m.Canvas.Normalize(m.Product.BleedRect().Center())
	sx := 0.5 + (bc.X-0.5)*mp.Scale
	sy := 0.5 + (bc.Y-0.5)*mp.Scale
	return geometry.Pt{X: mp.CenterX/100 - sx, Y: mp.CenterY/100 - sy}
}

// DesignToBackground maps a design point to display pixels. A nil or
// disabled mapping maps proportionally.
func (m Mapper) DesignToBackground(p geometry.Pt, mp *domain.BleedAreaMapping) geometry.Pt {
	n := m.Canvas.Normalize(p)
	if !active(mp) {
		return geometry.Pt{X: n.X * m.Display.W, Y: n.Y * m.Display.H}
	}
	t := m.translation(mp)
	sx := 0.5 + (n.X-0.5)*mp.Scale
	sy := 0.5 + (n.Y-0.5)*mp.Scale
	return geometry.Pt{X: (sx + t.X) * m.Display.W, Y: (sy + t.Y) * m.Display.H}
}

// BackgroundToDesign undoes DesignToBackground: translate, unscale, denormalize.
func (m Mapper) BackgroundToDesign(p geometry.Pt, mp *domain.BleedAreaMapping) geometry.Pt {
	if m.Display.W <= 0 || m.Display.H <= 0 {
		return geometry.Pt{}
	}
	n := geometry.Pt{X: p.X / m.Display.W, Y: p.Y / m.Display.H}
	if !active(mp) {
		return m.Canvas.Denormalize(n)
	}
	t := m.translation(mp)
	n.X = (n.X-t.X-0.5)/mp.Scale + 0.5
	n.Y = (n.Y-t.Y-0.5)/mp.Scale + 0.5
	return m.Canvas.Denormalize(n)
}

// MappedBleedBounds maps the four corners of the bleed rectangle and
// returns their axis-aligned bounds in display pixels.
func (m Mapper) MappedBleedBounds(mp *domain.BleedAreaMapping) geometry.Bounds {
	corners := m.Product.BleedRect().Corners()
	var pts [4]geometry.Pt
	for i, c := range corners {
		pts[i] = m.DesignToBackground(c, mp)
	}
	return geometry.BoundsFromRect(geometry.BoundsOf(pts[:]...))
}

// Validate returns every reason mp is unusable with this product and
// display. An empty result means the mapping is valid.
func (m Mapper) Validate(mp domain.BleedAreaMapping) []string {
	var reasons []string
	if math.IsNaN(mp.CenterX) || mp.CenterX < 0 || mp.CenterX > 100 {
		reasons = append(reasons, fmt.Sprintf("centerX must be between 0 and 100 (got %.2f)", mp.CenterX))
	}
	if math.IsNaN(mp.CenterY) || mp.CenterY < 0 || mp.CenterY > 100 {
		reasons = append(reasons, fmt.Sprintf("centerY must be between 0 and 100 (got %.2f)", mp.CenterY))
	}
	scaleOK := !math.IsNaN(mp.Scale) && mp.Scale > 0 && mp.Scale <= MaxScale
	if !scaleOK {
		reasons = append(reasons, fmt.Sprintf("scale must be greater than 0 and at most %.0f (got %.3f)", MaxScale, mp.Scale))
	}
	if m.Display.W <= 0 || m.Display.H <= 0 {
		return append(reasons, "background display size must be positive")
	}
	if !scaleOK {
		return reasons
	}
	enabled := mp
	enabled.Enabled = true
	b := m.MappedBleedBounds(&enabled)
	if b.Left < -BoundsTolerance {
		reasons = append(reasons, fmt.Sprintf("bleed area exceeds the left edge of the background by %.1fpx", -b.Left))
	}
	if b.Top < -BoundsTolerance {
		reasons = append(reasons, fmt.Sprintf("bleed area exceeds the top edge of the background by %.1fpx", -b.Top))
	}
	if b.Right > m.Display.W+BoundsTolerance {
		reasons = append(reasons, fmt.Sprintf("bleed area exceeds the right edge of the background by %.1fpx", b.Right-m.Display.W))
	}
	if b.Bottom > m.Display.H+BoundsTolerance {
		reasons = append(reasons, fmt.Sprintf("bleed area exceeds the bottom edge of the background by %.1fpx", b.Bottom-m.Display.H))
	}
	return reasons
}

// Constrain clamps the centre into [0,100] and the scale into
// [MinScale, MaxScale]. The result may still fail the bounds check.
func Constrain(mp domain.BleedAreaMapping) domain.BleedAreaMapping {
	if math.IsNaN(mp.CenterX) {
		mp.CenterX = 50
	}
	if math.IsNaN(mp.CenterY) {
		mp.CenterY = 50
	}
	if math.IsNaN(mp.Scale) {
		mp.Scale = 1
	}
	mp.CenterX = geometry.Clamp(mp.CenterX, 0, 100)
	mp.CenterY = geometry.Clamp(mp.CenterY, 0, 100)
	mp.Scale = geometry.Clamp(mp.Scale, MinScale, MaxScale)
	return mp
}

// ShrinkToFit constrains mp and, if the bounds still overflow, lowers the
// scale to the largest value that passes. ok is false when even MinScale
// overflows (the centre is too close to an edge).
func (m Mapper) ShrinkToFit(mp domain.BleedAreaMapping) (domain.BleedAreaMapping, bool) {
	mp = Constrain(mp)
	if len(m.Validate(mp)) == 0 {
		return mp, true
	}
	lo := mp
	lo.Scale = MinScale
	if len(m.Validate(lo)) != 0 {
		return mp, false
	}
	low, high := MinScale, mp.Scale
	for i := 0; i < 40; i++ {
		mid := (low + high) / 2
		try := mp
		try.Scale = mid
		if len(m.Validate(try)) == 0 {
			low = mid
		} else {
			high = mid
		}
	}
	mp.Scale = low
	return mp, true
}
