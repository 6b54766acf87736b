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

	"podcanvas/internal/domain"
	"podcanvas/internal/geometry"
)

// Handle identifies a crop overlay handle.
type Handle int

const (
	HandleTopLeft Handle = iota
	HandleTop
	HandleTopRight
	HandleRight
	HandleBottomRight
	HandleBottom
	HandleBottomLeft
	HandleLeft
)

// cropState is captured when the crop overlay opens. The rectangle lives in
// the element frame as it was at crop start.
type cropState struct {
	id       string
	rotation float64
	origin   geometry.Pt // element top-left at crop start
	size     geometry.Size
	rect     domain.Mask
}

// BeginCrop opens the crop overlay on an image. The element's rotation is set
// to zero until the crop is applied or cancelled.
func (s *Session) BeginCrop(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mode != Idle {
		return fmt.Errorf("begin crop: %w", ErrBusy)
	}
	i := domain.IndexOf(s.elems, id)
	if i < 0 {
		return fmt.Errorf("begin crop %s: %w", id, ErrNotFound)
	}
	e := s.elems[i]
	if !e.IsImage() {
		return fmt.Errorf("begin crop %s: %w", id, ErrNotImage)
	}
	if e.Locked {
		return fmt.Errorf("begin crop %s: %w", id, ErrLocked)
	}
	size := e.Image.Size()
	rect := domain.FullMask(size)
	if e.Masked() {
		rect = *e.Image.Mask
	}
	st := &cropState{
		id:       id,
		rotation: e.Rotation,
		origin:   e.Center().Sub(size.Half()),
		size:     size,
		rect:     rect.Clamp(size, s.opts.MinElementSize),
	}
	s.elems[i].Rotation = 0
	s.crop = st
	s.mode = Cropping
	s.selected = id
	s.log.Debug("crop started", slog.String("element", id), slog.Float64("rotation", st.rotation))
	return nil
}

// CropRect returns the in-progress crop rectangle.
func (s *Session) CropRect() (domain.Mask, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.crop == nil {
		return domain.Mask{}, false
	}
	return s.crop.rect, true
}

// SetCropRect replaces the crop rectangle, clamped to the element.
func (s *Session) SetCropRect(m domain.Mask) (domain.Mask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.crop == nil {
		return domain.Mask{}, fmt.Errorf("set crop: %w", ErrNoGesture)
	}
	s.crop.rect = m.Clamp(s.crop.size, s.opts.MinElementSize)
	return s.crop.rect, nil
}

// MoveCrop shifts the crop rectangle, keeping it inside the element.
func (s *Session) MoveCrop(dx, dy float64) (domain.Mask, error) {
	s.mu.Lock()
	r, ok := s.cropRectLocked()
	s.mu.Unlock()
	if !ok {
		return domain.Mask{}, fmt.Errorf("move crop: %w", ErrNoGesture)
	}
	r.X += dx
	r.Y += dy
	return s.SetCropRect(r)
}

func (s *Session) cropRectLocked() (domain.Mask, bool) {
	if s.crop == nil {
		return domain.Mask{}, false
	}
	return s.crop.rect, true
}

// ResizeCrop drags a crop handle to the canvas point p. Edges stay inside
// the element and at least the minimum size apart.
func (s *Session) ResizeCrop(h Handle, p geometry.Pt) (domain.Mask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.crop
	if st == nil {
		return domain.Mask{}, fmt.Errorf("resize crop: %w", ErrNoGesture)
	}
	minSize := s.opts.MinElementSize
	if minSize > st.size.W || minSize > st.size.H {
		minSize = 0
	}
	local := p.Sub(st.origin)
	r := st.rect.LocalRect()
	left, top, right, bottom := r.X, r.Y, r.X+r.W, r.Y+r.H
	switch h {
	case HandleTopLeft, HandleLeft, HandleBottomLeft:
		left = geometry.Clamp(local.X, 0, right-minSize)
	case HandleTopRight, HandleRight, HandleBottomRight:
		right = geometry.Clamp(local.X, left+minSize, st.size.W)
	}
	switch h {
	case HandleTopLeft, HandleTop, HandleTopRight:
		top = geometry.Clamp(local.Y, 0, bottom-minSize)
	case HandleBottomLeft, HandleBottom, HandleBottomRight:
		bottom = geometry.Clamp(local.Y, top+minSize, st.size.H)
	}
	st.rect = domain.Mask{
		X:      (left + right) / 2,
		Y:      (top + bottom) / 2,
		Width:  right - left,
		Height: bottom - top,
	}.Clamp(st.size, minSize)
	return st.rect, nil
}

// ApplyCrop commits the crop rectangle as the element's mask and restores the
// rotation. The rectangle is converted to an absolute canvas position using
// the element position at crop start, then re-expressed relative to the
// element's current position.
func (s *Session) ApplyCrop() (domain.Element, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.crop
	if st == nil {
		return domain.Element{}, fmt.Errorf("apply crop: %w", ErrNoGesture)
	}
	s.crop = nil
	s.mode = Idle
	var out domain.Element
	err := s.updateLocked(st.id, func(e *domain.Element) error {
		if !e.IsImage() {
			return ErrNotImage
		}
		abs := st.origin.Add(st.rect.Center())
		size := e.Image.Size()
		local := abs.Sub(e.Center().Sub(size.Half()))
		m := domain.Mask{X: local.X, Y: local.Y, Width: st.rect.Width, Height: st.rect.Height}.Clamp(size, s.opts.MinElementSize)
		e.Image.HasMask = true
		e.Image.Mask = &m
		e.Rotation = st.rotation
		out = e.Clone()
		return nil
	})
	if err != nil {
		s.restoreRotationLocked(st)
		return domain.Element{}, fmt.Errorf("apply crop %s: %w", st.id, err)
	}
	s.log.Debug("crop applied", slog.String("element", st.id))
	return out, nil
}

// CancelCrop discards the crop rectangle and restores the rotation.
func (s *Session) CancelCrop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.crop
	if st == nil {
		return fmt.Errorf("cancel crop: %w", ErrNoGesture)
	}
	s.crop = nil
	s.mode = Idle
	s.restoreRotationLocked(st)
	return nil
}

func (s *Session) restoreRotationLocked(st *cropState) {
	if i := domain.IndexOf(s.elems, st.id); i >= 0 {
		s.elems[i].Rotation = st.rotation
	}
}

// ResetCrop removes the mask of id. While cropping that element the overlay
// rectangle also returns to the full image.
func (s *Session) ResetCrop(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.mode == Cropping && s.crop != nil && s.crop.id == id:
		s.crop.rect = domain.FullMask(s.crop.size)
	case s.mode != Idle:
		return fmt.Errorf("reset crop: %w", ErrBusy)
	}
	return s.updateLocked(id, func(e *domain.Element) error {
		if !e.IsImage() {
			return ErrNotImage
		}
		e.Image.HasMask = false
		e.Image.Mask = nil
		return nil
	})
}
