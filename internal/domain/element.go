/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany..
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"podcanvas/internal/geometry"
)

const (
	DefaultFontSize   = 24.0
	DefaultFontFamily = "Go"
	// text boxes are estimated from the font size when no measurer is available
	avgGlyphWidth = 0.6
	lineHeight    = 1.2
)

// Positioned is the trait shared by every element variant.
type Positioned interface {
	Center() geometry.Pt
	RotationDeg() float64
}

// Measurer reports the laid-out size of a text element.
type Measurer interface {
	MeasureText(t TextProps) geometry.Size
}

// NewID returns a fresh element id.
func NewID() string { return uuid.NewString() }

// NewText creates a text element centred at (x,y).
func NewText(content string, x, y, fontSize float64) Element {
	if fontSize <= 0 {
		fontSize = DefaultFontSize
	}
	return Element{
		ID:   NewID(),
		Kind: KindText,
		X:    x,
		Y:    y,
		Text: &TextProps{Content: content, FontSize: fontSize, Color: "#000000", FontFamily: DefaultFontFamily, FontWeight: "normal", FontStyle: "normal"},
	}
}

// NewImage creates an image element centred at (x,y).
func NewImage(url string, x, y, w, h float64) Element {
	one := 1.0
	return Element{
		ID:    NewID(),
		Kind:  KindImage,
		X:     x,
		Y:     y,
		Image: &ImageProps{URL: url, Width: w, Height: h, Opacity: &one, ScaleX: 1, ScaleY: 1, OriginalWidth: w, OriginalHeight: h},
	}
}

func (e Element) Center() geometry.Pt  { return geometry.Pt{X: e.X, Y: e.Y} }
func (e Element) RotationDeg() float64 { return e.Rotation }

// SetCenter moves the element centre.
func (e *Element) SetCenter(p geometry.Pt) { e.X, e.Y = p.X, p.Y }

func (e Element) IsText() bool  { return e.Kind == KindText && e.Text != nil }
func (e Element) IsImage() bool { return e.Kind == KindImage && e.Image != nil }

// Masked reports whether the element is an image with an active mask.
func (e Element) Masked() bool {
	return e.IsImage() && e.Image.HasMask && e.Image.Mask != nil
}

// Validate checks that the variant payload matches Kind.
func (e Element) Validate() error {
	switch e.Kind {
	case KindText:
		if e.Text == nil {
			return fmt.Errorf("element %s: text payload missing", e.ID)
		}
	case KindImage:
		if e.Image == nil {
			return fmt.Errorf("element %s: image payload missing", e.ID)
		}
		if e.Image.Width < 0 || e.Image.Height < 0 {
			return fmt.Errorf("element %s: negative size", e.ID)
		}
	default:
		return fmt.Errorf("element %s: unknown type %q", e.ID, e.Kind)
	}
	return nil
}

// Clone returns a deep copy.
func (e Element) Clone() Element {
	c := e
	if e.Text != nil {
		t := *e.Text
		c.Text = &t
	}
	if e.Image != nil {
		im := *e.Image
		if e.Image.Mask != nil {
			m := *e.Image.Mask
			im.Mask = &m
		}
		if e.Image.Opacity != nil {
			o := *e.Image.Opacity
			im.Opacity = &o
		}
		c.Image = &im
	}
	return c
}

// DisplayName is the layer label shown for the element.
func (e Element) DisplayName() string {
	if strings.TrimSpace(e.LayerName) != "" {
		return e.LayerName
	}
	if e.IsText() {
		s := strings.Join(strings.Fields(e.Text.Content), " ")
		if utf8.RuneCountInString(s) > 20 {
			s = string([]rune(s)[:20]) + "…"
		}
		return "Text: " + s
	}
	return "Image"
}

// Alpha returns the image opacity in [0,1], defaulting to opaque.
func (p *ImageProps) Alpha() float64 {
	if p == nil || p.Opacity == nil {
		return 1
	}
	return geometry.Clamp(*p.Opacity, 0, 1)
}

// Scales returns scaleX/scaleY with unset values treated as 1.
func (p *ImageProps) Scales() (float64, float64) {
	sx, sy := p.ScaleX, p.ScaleY
	if sx == 0 {
		sx = 1
	}
	if sy == 0 {
		sy = 1
	}
	return sx, sy
}

// Size returns the image placement size.
func (p *ImageProps) Size() geometry.Size { return geometry.Size{W: p.Width, H: p.Height} }

// BoundingSize returns the unrotated box of e using a font-size estimate for text.
func BoundingSize(e Element) geometry.Size { return BoundingSizeWith(e, nil) }

// BoundingSizeWith is BoundingSize with an optional text measurer.
func BoundingSizeWith(e Element, m Measurer) geometry.Size {
	switch {
	case e.IsImage():
		return e.Image.Size()
	case e.IsText():
		if m != nil {
			return m.MeasureText(*e.Text)
		}
		return EstimateTextSize(*e.Text)
	}
	return geometry.Size{}
}

// EstimateTextSize approximates a text box from its font size and line lengths.
func EstimateTextSize(t TextProps) geometry.Size {
	lines := strings.Split(t.Content, "\n")
	longest := 0
	for _, l := range lines {
		if n := utf8.RuneCountInString(l); n > longest {
			longest = n
		}
	}
	return geometry.Size{W: float64(longest) * t.FontSize * avgGlyphWidth, H: float64(len(lines)) * t.FontSize * lineHeight}
}

// Bounds returns the rotated axis-aligned bounds of e.
func Bounds(e Element, m Measurer) geometry.Bounds {
	return geometry.RotatedBounds(e.Center(), BoundingSizeWith(e, m), e.Rotation)
}

// MaskCenter returns the rotation/resize pivot of e: the absolute centre of
// its mask when masked, else its own centre.
func MaskCenter(e Element) geometry.Pt {
	if !e.Masked() {
		return e.Center()
	}
	m := e.Image.Mask
	return geometry.MaskCenter(e.Center(), e.Image.Size(), e.Rotation, geometry.Pt{X: m.X, Y: m.Y})
}

// VisibleSize is the mask size when masked, else the bounding size.
func VisibleSize(e Element) geometry.Size {
	if e.Masked() {
		return geometry.Size{W: e.Image.Mask.Width, H: e.Image.Mask.Height}
	}
	return BoundingSize(e)
}

// Hit reports whether p lies on the visible part of e. Masked images only
// hit inside their mask.
func Hit(e Element, p geometry.Pt, m Measurer) bool {
	center, size := e.Center(), BoundingSizeWith(e, m)
	if e.Masked() {
		center = MaskCenter(e)
		size = geometry.Size{W: e.Image.Mask.Width, H: e.Image.Mask.Height}
	}
	l := geometry.ToLocal(p, center, e.Rotation)
	return math.Abs(l.X) <= size.W/2 && math.Abs(l.Y) <= size.H/2
}
