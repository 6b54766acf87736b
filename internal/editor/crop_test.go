/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package editor

import (
	"errors"
	"testing"

	"podcanvas/internal/domain"
	"podcanvas/internal/geometry"
)

func TestBeginCropZeroesRotationAndCancelRestores(t *testing.T) {
	a := img("a", 200, 200, 200, 100)
	a.Rotation = 45
	s := NewSession([]domain.Element{a}, Options{})
	if err := s.BeginCrop("a"); err != nil {
		t.Fatalf("begin crop: %v", err)
	}
	if s.Mode() != Cropping || mustGet(t, s, "a").Rotation != 0 {
		t.Fatalf("crop must run unrotated")
	}
	r, ok := s.CropRect()
	if !ok || r != (domain.Mask{X: 100, Y: 50, Width: 200, Height: 100}) {
		t.Fatalf("expected full-bounds crop rect, got %+v", r)
	}
	if err := s.CancelCrop(); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	e := mustGet(t, s, "a")
	if e.Rotation != 45 || e.Masked() || s.Mode() != Idle {
		t.Fatalf("cancel must only restore rotation: %+v", e)
	}
}

func TestBeginCropStartsFromExistingMask(t *testing.T) {
	a := img("a", 200, 200, 200, 100)
	a.Image.HasMask = true
	a.Image.Mask = &domain.Mask{X: 60, Y: 40, Width: 80, Height: 60}
	s := NewSession([]domain.Element{a}, Options{})
	_ = s.BeginCrop("a")
	if r, _ := s.CropRect(); r != *a.Image.Mask {
		t.Fatalf("expected existing mask, got %+v", r)
	}
}

func TestResizeCropAndApply(t *testing.T) {
	a := img("a", 200, 200, 200, 100)
	a.Rotation = 30
	s := NewSession([]domain.Element{a}, Options{})
	_ = s.BeginCrop("a")
	// element top-left is (100,150) while cropping
	r, err := s.ResizeCrop(HandleTopLeft, geometry.Pt{X: 150, Y: 170})
	if err != nil {
		t.Fatalf("resize crop: %v", err)
	}
	want := domain.Mask{X: 125, Y: 60, Width: 150, Height: 80}
	if r != want {
		t.Fatalf("unexpected crop rect %+v", r)
	}
	e, err := s.ApplyCrop()
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !e.Masked() || *e.Image.Mask != want || e.Rotation != 30 || s.Mode() != Idle {
		t.Fatalf("unexpected applied element: %+v mask=%+v", e, e.Image.Mask)
	}
}

func TestResizeCropClampsToElementAndMinimum(t *testing.T) {
	s := NewSession([]domain.Element{img("a", 200, 200, 200, 100)}, Options{})
	_ = s.BeginCrop("a")
	r, _ := s.ResizeCrop(HandleBottomRight, geometry.Pt{X: 999, Y: 999})
	if r != (domain.Mask{X: 100, Y: 50, Width: 200, Height: 100}) {
		t.Fatalf("crop must stay inside the element: %+v", r)
	}
	r, _ = s.ResizeCrop(HandleRight, geometry.Pt{X: 0, Y: 0})
	if r.Width != 20 {
		t.Fatalf("crop must keep the minimum width: %+v", r)
	}
	r, _ = s.MoveCrop(1000, -1000)
	if r.X != 190 || r.Y != 50 {
		t.Fatalf("moved crop must stay inside: %+v", r)
	}
}

func TestApplyCropUsesCurrentElementPosition(t *testing.T) {
	s := NewSession([]domain.Element{img("a", 200, 200, 200, 100)}, Options{})
	_ = s.BeginCrop("a")
	_, _ = s.SetCropRect(domain.Mask{X: 125, Y: 60, Width: 150, Height: 80})
	// another writer moves the element mid-session
	if err := s.Update("a", func(e *domain.Element) error {
		e.X += 10
		return nil
	}); err != nil {
		t.Fatalf("update: %v", err)
	}
	e, err := s.ApplyCrop()
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if m := e.Image.Mask; m.X != 115 || m.Y != 60 {
		t.Fatalf("mask should be relative to the current position: %+v", m)
	}
}

func TestResetCrop(t *testing.T) {
	a := img("a", 200, 200, 200, 100)
	a.Image.HasMask = true
	a.Image.Mask = &domain.Mask{X: 60, Y: 40, Width: 80, Height: 60}
	s := NewSession([]domain.Element{a}, Options{})
	if err := s.ResetCrop("a"); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if mustGet(t, s, "a").Masked() {
		t.Fatalf("mask should be cleared")
	}
}

func TestResetCropWhileCropping(t *testing.T) {
	a := img("a", 200, 200, 200, 100)
	a.Image.HasMask = true
	a.Image.Mask = &domain.Mask{X: 60, Y: 40, Width: 80, Height: 60}
	s := NewSession([]domain.Element{a}, Options{})
	_ = s.BeginCrop("a")
	if err := s.ResetCrop("a"); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if r, _ := s.CropRect(); r != (domain.Mask{X: 100, Y: 50, Width: 200, Height: 100}) {
		t.Fatalf("overlay should return to full bounds: %+v", r)
	}
}

func TestCropRejections(t *testing.T) {
	s := NewSession([]domain.Element{txt("t", "Hi", 0, 0, 12), img("a", 100, 100, 50, 50)}, Options{})
	if err := s.BeginCrop("t"); !errors.Is(err, ErrNotImage) {
		t.Fatalf("expected ErrNotImage, got %v", err)
	}
	if err := s.BeginCrop("missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.ApplyCrop(); !errors.Is(err, ErrNoGesture) {
		t.Fatalf("expected ErrNoGesture, got %v", err)
	}
	_ = s.BeginCrop("a")
	if err := s.BeginDrag("a", geometry.Pt{X: 100, Y: 100}); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy while cropping, got %v", err)
	}
}
