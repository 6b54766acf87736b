/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package imagefit places replacement images into existing image elements.
package imagefit

import (
	"math"

	"podcanvas/internal/domain"
	"podcanvas/internal/geometry"
)

// AspectTolerance is the aspect-ratio difference treated as equal.
const AspectTolerance = 1e-3

// Fit is the geometry a replacement image takes.
type Fit struct {
	Center geometry.Pt
	Size   geometry.Size
	// Mask is nil when the image exactly fills the target.
	Mask *domain.Mask
}

// CoverFit scales an image of imageW x imageH so it fills target without
// distortion. The overflowing axis is hidden by a mask equal to the target,
// centred in the new element.
func CoverFit(target geometry.Size, imageW, imageH float64) (geometry.Size, *domain.Mask) {
	if target.W <= 0 || target.H <= 0 || imageW <= 0 || imageH <= 0 {
		return target, nil
	}
	imgAspect := imageW / imageH
	targetAspect := target.W / target.H
	if math.Abs(imgAspect-targetAspect) <= AspectTolerance {
		return target, nil
	}
	var size geometry.Size
	if imgAspect > targetAspect {
		// wider: height fixed, overflow left/right
		size = geometry.Size{W: target.H * imgAspect, H: target.H}
	} else {
		size = geometry.Size{W: target.W, H: target.W / imgAspect}
	}
	m := domain.Mask{X: size.W / 2, Y: size.H / 2, Width: target.W, Height: target.H}
	return size, &m
}

// ContainFit scales an image to fit inside target, never cropping.
func ContainFit(target geometry.Size, imageW, imageH float64) geometry.Size {
	if target.W <= 0 || target.H <= 0 || imageW <= 0 || imageH <= 0 {
		return target
	}
	k := math.Min(target.W/imageW, target.H/imageH)
	return geometry.Size{W: imageW * k, H: imageH * k}
}

// Target returns the box a replacement must fill: the mask in absolute
// canvas coordinates when e is masked, else the element box.
func Target(e domain.Element) (geometry.Pt, geometry.Size) {
	if e.Masked() {
		m := e.Image.Mask
		return domain.MaskCenter(e), geometry.Size{W: m.Width, H: m.Height}
	}
	return e.Center(), e.Image.Size()
}

// FitElement computes the fit of an imageW x imageH image into e. Elements
// without content get a contain fit, all others a cover fit.
func FitElement(e domain.Element, imageW, imageH float64) Fit {
	center, target := Target(e)
	if e.Image.URL == "" {
		return Fit{Center: center, Size: ContainFit(target, imageW, imageH)}
	}
	size, mask := CoverFit(target, imageW, imageH)
	return Fit{Center: center, Size: size, Mask: mask}
}

// Apply writes f and the new url into e. Any free-transform deformation is
// reset: scale returns to 1 and the original size becomes the new size.
func Apply(e *domain.Element, url string, f Fit) {
	im := e.Image
	im.URL = url
	im.Width, im.Height = f.Size.W, f.Size.H
	im.ScaleX, im.ScaleY = 1, 1
	im.OriginalWidth, im.OriginalHeight = f.Size.W, f.Size.H
	if f.Mask != nil {
		m := *f.Mask
		im.Mask = &m
		im.HasMask = true
	} else {
		im.Mask = nil
		im.HasMask = false
	}
	// the new mask (if any) is centred, so the element centre is the target centre
	e.SetCenter(f.Center)
}
