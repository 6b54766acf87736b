/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package geometry

// Bounds is an axis-aligned box in canvas units.
type Bounds struct {
	Left, Top, Right, Bottom float64
	Width, Height            float64
}

// Rect converts b to a Rect.
func (b Bounds) Rect() Rect { return Rect{X: b.Left, Y: b.Top, W: b.Width, H: b.Height} }

// BoundsFromRect converts r to Bounds.
func BoundsFromRect(r Rect) Bounds {
	return Bounds{Left: r.X, Top: r.Y, Right: r.X + r.W, Bottom: r.Y + r.H, Width: r.W, Height: r.H}
}

// RotatedBounds rotates the four corners of a box of the given size centred on
// center and returns their axis-aligned bounding box.
func RotatedBounds(center Pt, size Size, rotationDeg float64) Bounds {
	h := size.Half()
	local := [4]Pt{{-h.X, -h.Y}, {h.X, -h.Y}, {h.X, h.Y}, {-h.X, h.Y}}
	var pts [4]Pt
	for i, c := range local {
		pts[i] = center.Add(RotateVec(c, rotationDeg))
	}
	return BoundsFromRect(BoundsOf(pts[:]...))
}

// MaskCenter returns the absolute position of a mask centre given in the
// element's local unrotated frame (measured from the element's top-left).
// The offset from the element centre is rotated with the element.
func MaskCenter(center Pt, size Size, rotationDeg float64, maskLocal Pt) Pt {
	return center.Add(RotateVec(maskLocal.Sub(size.Half()), rotationDeg))
}

// CenterForMaskPivot is the inverse of MaskCenter: the element centre that
// places the local mask centre at pivot.
func CenterForMaskPivot(pivot Pt, size Size, rotationDeg float64, maskLocal Pt) Pt {
	return pivot.Sub(RotateVec(maskLocal.Sub(size.Half()), rotationDeg))
}

// ToLocal expresses an absolute point in the unrotated frame of a box centred
// on center, relative to the box centre.
func ToLocal(p, center Pt, rotationDeg float64) Pt {
	return RotateVec(p.Sub(center), -rotationDeg)
}
