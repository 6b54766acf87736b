/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package textlayout measures and lays out the single-box text of text
// elements. All sizes are canvas units; a face resolved at 72 dpi maps one
// point to one unit.
package textlayout

import (
	"strconv"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"podcanvas/internal/domain"
	"podcanvas/internal/geometry"
)

// FontSpec describes a requested font.
type FontSpec struct {
	Family string // logical family name
	SizePt float64
	Weight int // 100..900
	Italic bool
}

// Metrics provides font metrics in pixels for the resolved face.
type Metrics struct {
	Ascent, Descent, LineHeight float64
}

// Provider maps FontSpec to a concrete font.Face.
type Provider interface {
	Resolve(FontSpec) (font.Face, Metrics)
}

// BasicProvider uses x/image/basicfont Face7x13 for deterministic tests.
type BasicProvider struct{}

func (BasicProvider) Resolve(FontSpec) (font.Face, Metrics) {
	return basicfont.Face7x13, metricsOf(basicfont.Face7x13)
}

func metricsOf(face font.Face) Metrics {
	m := face.Metrics()
	return Metrics{Ascent: fx(m.Ascent), Descent: fx(m.Descent), LineHeight: fx(m.Height)}
}

func fx(v fixed.Int26_6) float64 { return float64(v) / 64 }

// SpecFor converts text element properties to a FontSpec. scale multiplies
// the font size, for rendering at output resolution.
func SpecFor(t domain.TextProps, scale float64) FontSpec {
	if scale <= 0 {
		scale = 1
	}
	return FontSpec{
		Family: t.FontFamily,
		SizePt: t.FontSize * scale,
		Weight: ParseWeight(t.FontWeight),
		Italic: isItalic(t.FontStyle),
	}
}

// ParseWeight maps CSS-like weights ("bold", "600") to 100..900.
func ParseWeight(s string) int {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "", "normal", "regular":
		return 400
	case "bold":
		return 700
	case "bolder":
		return 800
	case "lighter", "light":
		return 300
	}
	if n, err := strconv.Atoi(s); err == nil && n >= 100 && n <= 900 {
		return n
	}
	return 400
}

func isItalic(style string) bool {
	s := strings.ToLower(strings.TrimSpace(style))
	return s == "italic" || s == "oblique"
}

// Line is a single laid out line.
type Line struct {
	Text  string
	Width float64
}

// Block is a laid out text box. Lines break only on '\n'.
type Block struct {
	Lines   []Line
	Width   float64
	Height  float64
	Metrics Metrics
	Face    font.Face
}

// Layout lays out content with the face resolved for spec.
func Layout(p Provider, spec FontSpec, content string) Block {
	if p == nil {
		p = BasicProvider{}
	}
	face, met := p.Resolve(spec)
	d := &font.Drawer{Face: face}
	b := Block{Metrics: met, Face: face}
	for _, s := range strings.Split(content, "\n") {
		w := fx(d.MeasureString(s))
		b.Lines = append(b.Lines, Line{Text: s, Width: w})
		if w > b.Width {
			b.Width = w
		}
	}
	b.Height = float64(len(b.Lines)) * met.LineHeight
	return b
}

// Measurer implements domain.Measurer with real font metrics.
type Measurer struct{ Provider Provider }

// NewMeasurer returns a measurer backed by the Go fonts plus lib, if given.
func NewMeasurer(lib *FontLibrary) Measurer {
	if lib == nil {
		lib = NewDefaultLibrary()
	}
	return Measurer{Provider: OTProvider{Lib: lib}}
}

func (m Measurer) MeasureText(t domain.TextProps) geometry.Size {
	if t.FontSize <= 0 {
		return geometry.Size{}
	}
	b := Layout(m.Provider, SpecFor(t, 1), t.Content)
	return geometry.Size{W: b.Width, H: b.Height}
}
