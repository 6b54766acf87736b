/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package geometry

import "math"

const (
	// DefaultCanvasSize is the edge of the square logical canvas.
	DefaultCanvasSize = 400.0
	MMPerInch         = 25.4
	PrintDPI          = 300
	// TestExportMultiplier scales logical units to pixels for quick test exports.
	TestExportMultiplier = 3.0
	// PrintMultiplier is used for print files when the product has no physical size.
	PrintMultiplier = 8.0
)

// Canvas is the logical square every design element is authored in.
// It is passed explicitly so the engine works at any logical resolution.
type Canvas struct {
	Size float64
}

// DefaultCanvas is the 400x400 logical canvas.
var DefaultCanvas = Canvas{Size: DefaultCanvasSize}

// Normalize maps canvas units into [0,1].
func (c Canvas) Normalize(p Pt) Pt { return Pt{p.X / c.Size, p.Y / c.Size} }

// Denormalize maps [0,1] back into canvas units.
func (c Canvas) Denormalize(p Pt) Pt { return Pt{p.X * c.Size, p.Y * c.Size} }

// Center returns the canvas centre.
func (c Canvas) Center() Pt { return Pt{c.Size / 2, c.Size / 2} }

// Bounds returns the full canvas rectangle.
func (c Canvas) Bounds() Rect { return Rect{W: c.Size, H: c.Size} }

// PhysicalSize is a product's real printed size.
type PhysicalSize struct {
	WidthMM  float64 `json:"widthMm"`
	HeightMM float64 `json:"heightMm"`
}

// Valid reports whether both dimensions are positive.
func (p *PhysicalSize) Valid() bool { return p != nil && p.WidthMM > 0 && p.HeightMM > 0 }

// PrintScale returns output pixels per logical unit for an output whose
// logical width is logicalWidth. With a physical size the target pixel width
// is widthMM/25.4*dpi; otherwise fallback is returned.
func PrintScale(logicalWidth float64, phys *PhysicalSize, dpi int, fallback float64) float64 {
	if !phys.Valid() || logicalWidth <= 0 {
		return fallback
	}
	if dpi <= 0 {
		dpi = PrintDPI
	}
	return (phys.WidthMM / MMPerInch * float64(dpi)) / logicalWidth
}

// LogicalToMM converts a logical length to millimetres given the logical and
// physical widths of the same printable area.
func LogicalToMM(v, logicalWidth float64, phys *PhysicalSize) float64 {
	if !phys.Valid() || logicalWidth <= 0 {
		return 0
	}
	return v * phys.WidthMM / logicalWidth
}

// RectToMM converts a logical rectangle into millimetres.
func RectToMM(r Rect, logicalWidth float64, phys *PhysicalSize) Rect {
	return Rect{
		X: LogicalToMM(r.X, logicalWidth, phys),
		Y: LogicalToMM(r.Y, logicalWidth, phys),
		W: LogicalToMM(r.W, logicalWidth, phys),
		H: LogicalToMM(r.H, logicalWidth, phys),
	}
}

// OutputPixels returns the pixel dimensions of r at scale, at least 1x1.
func OutputPixels(r Rect, scale float64) (int, int) {
	w := int(math.Round(r.W * scale))
	h := int(math.Round(r.H * scale))
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return w, h
}
