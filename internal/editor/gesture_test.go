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
	"podcanvas/internal/viewport"
)

const tol = 1e-9

func near(a, b float64) bool { return geometry.NearlyEqual(a, b, tol) }

func gestureTo(t *testing.T, s *Session, begin func(string, geometry.Pt) error, id string, from geometry.Pt, to ...geometry.Pt) domain.Element {
	t.Helper()
	if err := begin(id, from); err != nil {
		t.Fatalf("begin: %v", err)
	}
	for _, p := range to {
		if err := s.Move(p); err != nil {
			t.Fatalf("move: %v", err)
		}
	}
	e, err := s.End()
	if err != nil {
		t.Fatalf("end: %v", err)
	}
	return e
}

func TestDragKeepsGrabOffsetWithoutClamping(t *testing.T) {
	s := NewSession([]domain.Element{img("a", 100, 100, 50, 50)}, Options{})
	e := gestureTo(t, s, s.BeginDrag, "a", geometry.Pt{X: 110, Y: 105}, geometry.Pt{X: 210, Y: 305})
	if e.X != 200 || e.Y != 300 {
		t.Fatalf("unexpected position: %v,%v", e.X, e.Y)
	}
	e = gestureTo(t, s, s.BeginDrag, "a", geometry.Pt{X: 200, Y: 300}, geometry.Pt{X: -500, Y: 900})
	if e.X != -500 || e.Y != 900 {
		t.Fatalf("drag must not clamp to the canvas: %v,%v", e.X, e.Y)
	}
}

func TestDragThroughZoomedViewport(t *testing.T) {
	view := viewport.New(geometry.DefaultCanvas, viewport.Options{})
	view.SetZoom(2)
	ptr := Pointer{View: view, Rect: viewport.Container{Width: 800, Height: 800}}
	s := NewSession([]domain.Element{img("a", 200, 200, 50, 50)}, Options{})

	down := view.CanvasToScreen(geometry.Pt{X: 200, Y: 200}, ptr.Rect)
	if err := s.BeginDrag("a", ptr.At(down.X, down.Y)); err != nil {
		t.Fatalf("begin: %v", err)
	}
	// 100 client px = 25 canvas units at 2x container scale and 2x zoom
	if err := s.Move(ptr.At(down.X+100, down.Y)); err != nil {
		t.Fatalf("move: %v", err)
	}
	e, _ := s.End()
	if !near(e.X, 225) || !near(e.Y, 200) {
		t.Fatalf("unexpected position through viewport: %v,%v", e.X, e.Y)
	}
}

func TestUniformResize(t *testing.T) {
	s := NewSession([]domain.Element{img("a", 200, 200, 100, 50)}, Options{})
	e := gestureTo(t, s, s.BeginResize, "a", geometry.Pt{X: 250, Y: 225}, geometry.Pt{X: 300, Y: 225})
	im := e.Image
	if !near(im.Width, 200) || !near(im.Height, 100) {
		t.Fatalf("unexpected size %vx%v", im.Width, im.Height)
	}
	if e.X != 200 || e.Y != 200 {
		t.Fatalf("centre must stay at the pivot: %v,%v", e.X, e.Y)
	}
	if im.OriginalWidth != 100 || im.OriginalHeight != 50 || !near(im.ScaleX, 2) || !near(im.ScaleY, 2) {
		t.Fatalf("unexpected scale bookkeeping: %+v", im)
	}
}

func TestUniformResizeHeightDrives(t *testing.T) {
	s := NewSession([]domain.Element{img("a", 200, 200, 100, 50)}, Options{})
	// dy=25 outweighs dx=10 once scaled by the 2:1 aspect
	e := gestureTo(t, s, s.BeginResize, "a", geometry.Pt{X: 250, Y: 225}, geometry.Pt{X: 260, Y: 250})
	if !near(e.Image.Width, 200) || !near(e.Image.Height, 100) {
		t.Fatalf("unexpected size %vx%v", e.Image.Width, e.Image.Height)
	}
}

func TestFreeResize(t *testing.T) {
	s := NewSession([]domain.Element{img("a", 200, 200, 100, 50)}, Options{})
	s.SetFreeTransform(true)
	e := gestureTo(t, s, s.BeginResize, "a", geometry.Pt{X: 250, Y: 225}, geometry.Pt{X: 300, Y: 225})
	if !near(e.Image.Width, 200) || !near(e.Image.Height, 50) {
		t.Fatalf("unexpected size %vx%v", e.Image.Width, e.Image.Height)
	}
	if !near(e.Image.ScaleX, 2) || !near(e.Image.ScaleY, 1) {
		t.Fatalf("unexpected scales %v/%v", e.Image.ScaleX, e.Image.ScaleY)
	}
}

func TestShapeClipResizeStaysSquare(t *testing.T) {
	sq := img("sq", 200, 200, 100, 100)
	sq.Image.ShapeClip = "heart"
	s := NewSession([]domain.Element{sq}, Options{})
	s.SetFreeTransform(true)
	e := gestureTo(t, s, s.BeginResize, "sq", geometry.Pt{X: 250, Y: 250}, geometry.Pt{X: 300, Y: 260})
	if !near(e.Image.Width, 200) || !near(e.Image.Height, 200) {
		t.Fatalf("shape clip must stay square, got %vx%v", e.Image.Width, e.Image.Height)
	}
}

func TestResizeFloor(t *testing.T) {
	s := NewSession([]domain.Element{img("a", 200, 200, 100, 50)}, Options{})
	e := gestureTo(t, s, s.BeginResize, "a", geometry.Pt{X: 250, Y: 225}, geometry.Pt{X: 201, Y: 201})
	if !near(e.Image.Width, 40) || !near(e.Image.Height, 20) {
		t.Fatalf("expected floor at 40x20, got %vx%v", e.Image.Width, e.Image.Height)
	}
}

func TestResizeRotatedElementUsesLocalFrame(t *testing.T) {
	a := img("a", 200, 200, 100, 50)
	a.Rotation = 90
	s := NewSession([]domain.Element{a}, Options{})
	e := gestureTo(t, s, s.BeginResize, "a", geometry.Pt{X: 175, Y: 250}, geometry.Pt{X: 175, Y: 300})
	if !near(e.Image.Width, 200) || !near(e.Image.Height, 100) {
		t.Fatalf("unexpected size %vx%v", e.Image.Width, e.Image.Height)
	}
}

func TestMaskedResizeKeepsMaskCentre(t *testing.T) {
	a := img("a", 200, 200, 200, 100)
	a.Rotation = 30
	a.Image.HasMask = true
	a.Image.Mask = &domain.Mask{X: 150, Y: 50, Width: 100, Height: 100}
	pivot := domain.MaskCenter(a)
	s := NewSession([]domain.Element{a}, Options{})
	from := pivot.Add(geometry.RotateVec(geometry.Pt{X: 50, Y: 50}, 30))
	to := pivot.Add(geometry.RotateVec(geometry.Pt{X: 100, Y: 100}, 30))
	e := gestureTo(t, s, s.BeginResize, "a", from, to)
	if !near(e.Image.Width, 400) || !near(e.Image.Height, 200) {
		t.Fatalf("unexpected size %vx%v", e.Image.Width, e.Image.Height)
	}
	m := e.Image.Mask
	if !near(m.X, 300) || !near(m.Y, 100) || !near(m.Width, 200) || !near(m.Height, 200) {
		t.Fatalf("mask not scaled proportionally: %+v", m)
	}
	if got := domain.MaskCenter(e); !got.Near(pivot, 1e-9) {
		t.Fatalf("mask centre moved: %+v -> %+v", pivot, got)
	}
}

func TestTextResizeScalesFontSize(t *testing.T) {
	s := NewSession([]domain.Element{txt("t", "Hi", 100, 100, 24)}, Options{})
	if err := s.BeginResize("t", geometry.Pt{X: 110, Y: 100}); err != nil {
		t.Fatalf("begin: %v", err)
	}
	check := func(p geometry.Pt, want float64) {
		t.Helper()
		if err := s.Move(p); err != nil {
			t.Fatalf("move: %v", err)
		}
		if got := mustGet(t, s, "t").Text.FontSize; !near(got, want) {
			t.Fatalf("font size at %+v = %v, want %v", p, got, want)
		}
	}
	check(geometry.Pt{X: 130, Y: 100}, 72)
	check(geometry.Pt{X: 100.01, Y: 100}, 2)
	check(geometry.Pt{X: 500, Y: 100}, 792)
	_, _ = s.End()
}

func TestRotateAngleFromPointer(t *testing.T) {
	s := NewSession([]domain.Element{img("a", 100, 100, 50, 50)}, Options{})
	if err := s.BeginRotate("a", geometry.Pt{X: 100, Y: 50}); err != nil {
		t.Fatalf("begin: %v", err)
	}
	cases := []struct {
		p    geometry.Pt
		want float64
	}{
		{geometry.Pt{X: 150, Y: 100}, 90},
		{geometry.Pt{X: 100, Y: 150}, 180},
		{geometry.Pt{X: 50, Y: 100}, 270},
		{geometry.Pt{X: 100, Y: 50}, 0},
	}
	for _, c := range cases {
		if err := s.Move(c.p); err != nil {
			t.Fatalf("move: %v", err)
		}
		if got := mustGet(t, s, "a").Rotation; !near(got, c.want) {
			t.Fatalf("rotation at %+v = %v, want %v", c.p, got, c.want)
		}
	}
	_, _ = s.End()
}

func TestMaskedRotationPivotsOnMask(t *testing.T) {
	a := img("a", 200, 200, 200, 100)
	a.Image.HasMask = true
	a.Image.Mask = &domain.Mask{X: 40, Y: 60, Width: 60, Height: 40}
	pivot := domain.MaskCenter(a)
	s := NewSession([]domain.Element{a}, Options{})
	if err := s.BeginRotate("a", pivot.Add(geometry.Pt{Y: -80})); err != nil {
		t.Fatalf("begin: %v", err)
	}
	for _, p := range []geometry.Pt{{X: 300, Y: 10}, {X: 20, Y: 390}, {X: 399, Y: 250}} {
		if err := s.Move(p); err != nil {
			t.Fatalf("move: %v", err)
		}
		if got := domain.MaskCenter(mustGet(t, s, "a")); !got.Near(pivot, 1e-9) {
			t.Fatalf("mask centre drifted to %+v from %+v", got, pivot)
		}
	}
	_, _ = s.End()
}

func TestRotateByThereAndBackRestoresMaskCentre(t *testing.T) {
	a := img("a", 180, 220, 160, 120)
	a.Rotation = 12
	a.Image.HasMask = true
	a.Image.Mask = &domain.Mask{X: 30, Y: 90, Width: 40, Height: 50}
	before := domain.MaskCenter(a)
	s := NewSession([]domain.Element{a}, Options{})
	for _, theta := range []float64{5, 47, 90, 179, 333} {
		if err := s.RotateBy("a", theta); err != nil {
			t.Fatalf("rotate: %v", err)
		}
		if err := s.RotateBy("a", -theta); err != nil {
			t.Fatalf("rotate back: %v", err)
		}
		e := mustGet(t, s, "a")
		if got := domain.MaskCenter(e); !got.Near(before, 1e-9) {
			t.Fatalf("theta %v: mask centre %+v, want %+v", theta, got, before)
		}
		if !near(e.Rotation, 12) {
			t.Fatalf("theta %v: rotation %v", theta, e.Rotation)
		}
	}
}

func TestCancelGestureRestoresStart(t *testing.T) {
	s := NewSession([]domain.Element{img("a", 200, 200, 100, 50)}, Options{})
	if err := s.BeginResize("a", geometry.Pt{X: 250, Y: 225}); err != nil {
		t.Fatalf("begin: %v", err)
	}
	_ = s.Move(geometry.Pt{X: 390, Y: 390})
	if err := s.CancelGesture(); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	e := mustGet(t, s, "a")
	if e.Image.Width != 100 || e.Image.Height != 50 || s.Mode() != Idle {
		t.Fatalf("cancel did not restore: %+v mode=%s", e.Image, s.Mode())
	}
	if err := s.CancelGesture(); !errors.Is(err, ErrNoGesture) {
		t.Fatalf("expected ErrNoGesture, got %v", err)
	}
}

func TestRotateByWhileBusy(t *testing.T) {
	s := NewSession([]domain.Element{img("a", 0, 0, 50, 50)}, Options{})
	_ = s.BeginDrag("a", geometry.Pt{})
	if err := s.RotateBy("a", 10); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
}
