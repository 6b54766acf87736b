/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany..
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

import "podcanvas/internal/geometry"

// FullMask covers the whole element of the given size.
func FullMask(s geometry.Size) Mask {
	return Mask{X: s.W / 2, Y: s.H / 2, Width: s.W, Height: s.H}
}

// Center returns the local mask centre.
func (m Mask) Center() geometry.Pt { return geometry.Pt{X: m.X, Y: m.Y} }

// LocalRect returns the mask rectangle in local coordinates (origin = element top-left).
func (m Mask) LocalRect() geometry.Rect {
	return geometry.R(m.X-m.Width/2, m.Y-m.Height/2, m.Width, m.Height)
}

// Clamp keeps the mask inside an element of size s: width/height never exceed
// the element and are at least minSize (or the element size if smaller),
// and the centre is moved so the rectangle stays within the element.
func (m Mask) Clamp(s geometry.Size, minSize float64) Mask {
	minW := minSize
	if minW > s.W {
		minW = s.W
	}
	minH := minSize
	if minH > s.H {
		minH = s.H
	}
	m.Width = geometry.Clamp(m.Width, minW, s.W)
	m.Height = geometry.Clamp(m.Height, minH, s.H)
	m.X = geometry.Clamp(m.X, m.Width/2, s.W-m.Width/2)
	m.Y = geometry.Clamp(m.Y, m.Height/2, s.H-m.Height/2)
	return m
}

// Scale multiplies the mask by sx,sy in the element frame.
func (m Mask) Scale(sx, sy float64) Mask {
	return Mask{X: m.X * sx, Y: m.Y * sy, Width: m.Width * sx, Height: m.Height * sy}
}

// Fractions returns the mask edges as fractions of the element size:
// left, top, right, bottom in [0,1].
func (m Mask) Fractions(s geometry.Size) (l, t, r, b float64) {
	if s.W <= 0 || s.H <= 0 {
		return 0, 0, 1, 1
	}
	lr := m.LocalRect()
	return lr.X / s.W, lr.Y / s.H, (lr.X + lr.W) / s.W, (lr.Y + lr.H) / s.H
}
