/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany..
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

// This file defines the design data model shared by the editor, the compositor
// and the snapshot pipeline. Designs serialize to a JSON document.

import (
	"podcanvas/internal/geometry"
)

// Kind discriminates the Element variants.
type Kind string

const (
	KindText  Kind = "text"
	KindImage Kind = "image"
)

// Element is a design element placed on the logical canvas.
// X,Y is the centre in canvas units; Rotation is clockwise degrees.
// Exactly one of Text or Image is set, matching Kind.
type Element struct {
	ID             string      `json:"id"`
	Kind           Kind        `json:"type"`
	X              float64     `json:"x"`
	Y              float64     `json:"y"`
	Rotation       float64     `json:"rotation"`
	LayerName      string      `json:"layerName,omitempty"`
	IsFromTemplate bool        `json:"isFromTemplate,omitempty"`
	Locked         bool        `json:"locked,omitempty"`
	Text           *TextProps  `json:"text,omitempty"`
	Image          *ImageProps `json:"image,omitempty"`
}

// TextProps holds the text variant payload.
type TextProps struct {
	Content    string  `json:"content"`
	FontSize   float64 `json:"fontSize"`
	Color      string  `json:"color,omitempty"`
	FontFamily string  `json:"fontFamily,omitempty"`
	FontWeight string  `json:"fontWeight,omitempty"` // normal, bold
	FontStyle  string  `json:"fontStyle,omitempty"`  // normal, italic
}

// ImageProps holds the image variant payload.
// Width/Height describe the full image placement; Mask, when HasMask is set,
// restricts the visible part.
type ImageProps struct {
	URL            string   `json:"url"`
	Width          float64  `json:"width"`
	Height         float64  `json:"height"`
	Opacity        *float64 `json:"opacity,omitempty"`
	ScaleX         float64  `json:"scaleX,omitempty"`
	ScaleY         float64  `json:"scaleY,omitempty"`
	OriginalWidth  float64  `json:"originalWidth,omitempty"`
	OriginalHeight float64  `json:"originalHeight,omitempty"`
	HasMask        bool     `json:"hasMask,omitempty"`
	Mask           *Mask    `json:"mask,omitempty"`
	ShapeClip      string   `json:"shapeClip,omitempty"`
}

// Mask is a crop rectangle in the element's local unrotated frame.
// X,Y is the rectangle centre measured from the element's top-left corner.
type Mask struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Rect is a rectangle in canvas units.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Geom converts r to a geometry rectangle.
func (r Rect) Geom() geometry.Rect { return geometry.R(r.X, r.Y, r.Width, r.Height) }

// ProductType is 2D (mockup image) or 3D (GLB model).
type ProductType string

const (
	Product2D ProductType = "2D"
	Product3D ProductType = "3D"
)

// Sides are independent bleed margins.
type Sides struct {
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
	Left   float64 `json:"left"`
}

// BleedArea is either a uniform Margin or independent Sides around the print area.
type BleedArea struct {
	Margin float64 `json:"margin,omitempty"`
	Sides  *Sides  `json:"sides,omitempty"`
}

// Insets resolves the four margins. Sides win over Margin.
func (b *BleedArea) Insets() Sides {
	if b == nil {
		return Sides{}
	}
	if b.Sides != nil {
		return *b.Sides
	}
	return Sides{Top: b.Margin, Right: b.Margin, Bottom: b.Margin, Left: b.Margin}
}

// BleedAreaMapping places the design onto an independently sized background image.
// CenterX/CenterY are percent of the display size, Scale scales about the design centre.
type BleedAreaMapping struct {
	CenterX float64 `json:"centerX"`
	CenterY float64 `json:"centerY"`
	Scale   float64 `json:"scale"`
	Enabled bool    `json:"enabled"`
}

// Model3D references the product mesh.
type Model3D struct {
	GlbURL string `json:"glbUrl"`
}

// Product is the product descriptor the canvas renders against.
type Product struct {
	ID                     string                 `json:"id,omitempty"`
	Name                   string                 `json:"name,omitempty"`
	Type                   ProductType            `json:"type"`
	PrintArea              Rect                   `json:"printArea"`
	BleedArea              *BleedArea             `json:"bleedArea,omitempty"`
	BleedAreaMapping       *BleedAreaMapping      `json:"bleedAreaMapping,omitempty"`
	PhysicalSize           *geometry.PhysicalSize `json:"physicalSize,omitempty"`
	MockupImage            string                 `json:"mockupImage,omitempty"`
	Model3D                *Model3D               `json:"model3D,omitempty"`
	ProductBackgroundImage string                 `json:"productBackgroundImage,omitempty"`
}

// BleedRect returns the print area grown by the bleed margins.
// Without a bleed area it equals the print area.
func (p Product) BleedRect() geometry.Rect {
	in := p.BleedArea.Insets()
	r := p.PrintArea.Geom()
	return geometry.R(r.X-in.Left, r.Y-in.Top, r.W+in.Left+in.Right, r.H+in.Top+in.Bottom)
}

// HasBleed reports whether any bleed margin is positive.
func (p Product) HasBleed() bool {
	in := p.BleedArea.Insets()
	return in.Top > 0 || in.Right > 0 || in.Bottom > 0 || in.Left > 0
}

// Design is a product plus its ordered elements. Slice order is paint order.
type Design struct {
	ID              string    `json:"id,omitempty"`
	Product         Product   `json:"product"`
	Elements        []Element `json:"elements"`
	BackgroundColor string    `json:"backgroundColor,omitempty"`
	CanvasSize      float64   `json:"canvasSize,omitempty"`
}

// Canvas returns the logical canvas the design is authored in.
func (d Design) Canvas() geometry.Canvas {
	if d.CanvasSize > 0 {
		return geometry.Canvas{Size: d.CanvasSize}
	}
	return geometry.DefaultCanvas
}
