/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package editor

import (
	"fmt"
	"log/slog"
	"math"

	"podcanvas/internal/domain"
	"podcanvas/internal/geometry"
)

// gesture is the state captured at pointer-down.
type gesture struct {
	id     string
	mode   Mode
	start  domain.Element
	p0     geometry.Pt
	offset geometry.Pt
	pivot  geometry.Pt
	free   bool
}

func (s *Session) begin(id string, mode Mode, p geometry.Pt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mode != Idle {
		return fmt.Errorf("begin %s: %w", mode, ErrBusy)
	}
	i := domain.IndexOf(s.elems, id)
	if i < 0 {
		return fmt.Errorf("begin %s %s: %w", mode, id, ErrNotFound)
	}
	e := s.elems[i]
	if e.Locked {
		return fmt.Errorf("begin %s %s: %w", mode, id, ErrLocked)
	}
	g := &gesture{id: id, mode: mode, start: e.Clone(), p0: p}
	switch mode {
	case Dragging:
		g.offset = p.Sub(e.Center())
	case Resizing, Rotating:
		g.pivot = domain.MaskCenter(e)
		g.free = s.freeTransform && !isShapeClipped(e)
	}
	s.g = g
	s.mode = mode
	s.selected = id
	s.log.Debug("gesture started", slog.String("mode", mode.String()), slog.String("element", id))
	return nil
}

// BeginDrag starts moving id; p is the pointer in canvas units.
func (s *Session) BeginDrag(id string, p geometry.Pt) error { return s.begin(id, Dragging, p) }

// BeginResize starts resizing id from a handle at p.
func (s *Session) BeginResize(id string, p geometry.Pt) error { return s.begin(id, Resizing, p) }

// BeginRotate starts rotating id with the rotation handle at p.
func (s *Session) BeginRotate(id string, p geometry.Pt) error { return s.begin(id, Rotating, p) }

// Move feeds a pointer position to the active gesture.
func (s *Session) Move(p geometry.Pt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g := s.g
	if g == nil {
		return ErrNoGesture
	}
	return s.updateLocked(g.id, func(e *domain.Element) error {
		var next domain.Element
		switch g.mode {
		case Dragging:
			next = g.start.Clone()
			next.SetCenter(p.Sub(g.offset))
		case Resizing:
			if g.start.IsText() {
				next = resizeText(g.start, g.pivot, g.p0, p, s.opts.MinFontSize, s.opts.MaxFontSize)
			} else {
				next = resizeImage(g.start, g.pivot, g.p0, p, g.free, s.opts.MinElementSize)
			}
		case Rotating:
			next = rotateTo(g.start, g.pivot, rotationAngle(g.pivot, p))
		default:
			return ErrNoGesture
		}
		// keep edits made by other writers to fields the gesture does not own
		next.LayerName, next.Locked = e.LayerName, e.Locked
		*e = next
		return nil
	})
}

// End finishes the active gesture and returns the resulting element.
func (s *Session) End() (domain.Element, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g := s.g
	if g == nil {
		return domain.Element{}, ErrNoGesture
	}
	s.g = nil
	s.mode = Idle
	i := domain.IndexOf(s.elems, g.id)
	if i < 0 {
		return domain.Element{}, fmt.Errorf("end %s: %w", g.id, ErrNotFound)
	}
	s.log.Debug("gesture finished", slog.String("mode", g.mode.String()), slog.String("element", g.id))
	return s.elems[i].Clone(), nil
}

// CancelGesture restores the element to its state at gesture start.
func (s *Session) CancelGesture() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g := s.g
	if g == nil {
		return ErrNoGesture
	}
	s.g = nil
	s.mode = Idle
	return s.updateLocked(g.id, func(e *domain.Element) error {
		*e = g.start.Clone()
		return nil
	})
}

// RotateBy rotates id by deg around its pivot outside of a pointer gesture.
func (s *Session) RotateBy(id string, deg float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mode != Idle {
		return ErrBusy
	}
	return s.updateLocked(id, func(e *domain.Element) error {
		if e.Locked {
			return fmt.Errorf("rotate %s: %w", id, ErrLocked)
		}
		*e = rotateTo(*e, domain.MaskCenter(*e), e.Rotation+deg)
		return nil
	})
}

// rotationAngle is the handle angle: 0 when the pointer is straight above the pivot.
func rotationAngle(pivot, p geometry.Pt) float64 {
	// rounded so straight-up handles give 0 instead of -1e-14
	return geometry.FloatRound(geometry.Deg(math.Atan2(p.Y-pivot.Y, p.X-pivot.X))+90, 9)
}

// rotateTo sets the rotation keeping the pivot fixed. For masked images the
// element centre is re-derived so the mask centre stays at pivot.
func rotateTo(start domain.Element, pivot geometry.Pt, deg float64) domain.Element {
	e := start.Clone()
	e.Rotation = geometry.NormalizeDeg(deg)
	if e.Masked() {
		m := e.Image.Mask
		e.SetCenter(geometry.CenterForMaskPivot(pivot, e.Image.Size(), e.Rotation, m.Center()))
	}
	return e
}

// resizeText maps the pointer distance ratio onto the font size.
func resizeText(start domain.Element, pivot, p0, p geometry.Pt, minFont, maxFont float64) domain.Element {
	e := start.Clone()
	d0 := p0.Dist(pivot)
	if d0 < 1e-6 {
		return e
	}
	e.Text.FontSize = geometry.Clamp(start.Text.FontSize*p.Dist(pivot)/d0, minFont, maxFont)
	return e
}

// resizeImage resizes the visible box (mask or full image) symmetrically about
// pivot. Deltas are measured in the element's unrotated frame and relative to
// the grab point, so the handle stays under the pointer.
func resizeImage(start domain.Element, pivot, p0, p geometry.Pt, free bool, minSize float64) domain.Element {
	e := start.Clone()
	box := domain.VisibleSize(start)
	if box.W <= 0 || box.H <= 0 {
		return e
	}
	d0 := geometry.ToLocal(p0, pivot, start.Rotation)
	d := geometry.ToLocal(p, pivot, start.Rotation)
	dx := math.Abs(d.X) - math.Abs(d0.X)
	dy := math.Abs(d.Y) - math.Abs(d0.Y)

	var sx, sy float64
	switch {
	case free:
		sx = math.Max((box.W+2*dx)/box.W, minSize/box.W)
		sy = math.Max((box.H+2*dy)/box.H, minSize/box.H)
	case isShapeClipped(start):
		// always square: the larger delta drives the side
		side := box.W + 2*dx
		if math.Abs(dy) > math.Abs(dx) {
			side = box.H + 2*dy
		}
		side = math.Max(side, minSize)
		sx, sy = side/box.W, side/box.H
	default:
		aspect := box.W / box.H
		k := (box.W + 2*dx) / box.W
		if math.Abs(dx) < math.Abs(dy*aspect) {
			k = (box.H + 2*dy) / box.H
		}
		k = math.Max(k, math.Max(minSize/box.W, minSize/box.H))
		sx, sy = k, k
	}

	im := e.Image
	if im.OriginalWidth <= 0 || im.OriginalHeight <= 0 {
		im.OriginalWidth, im.OriginalHeight = start.Image.Width, start.Image.Height
	}
	im.Width = start.Image.Width * sx
	im.Height = start.Image.Height * sy
	im.ScaleX = im.Width / im.OriginalWidth
	im.ScaleY = im.Height / im.OriginalHeight
	if e.Masked() {
		m := im.Mask.Scale(sx, sy)
		im.Mask = &m
		e.SetCenter(geometry.CenterForMaskPivot(pivot, im.Size(), e.Rotation, m.Center()))
	} else {
		e.SetCenter(pivot)
	}
	return e
}
