/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package imagefit

import (
	"context"
	"errors"
	"testing"

	"podcanvas/internal/domain"
	"podcanvas/internal/editor"
	"podcanvas/internal/geometry"
)

type fakeDims map[string][2]int

var errMissing = errors.New("missing image")

func (f fakeDims) Dimensions(_ context.Context, url string) (int, int, error) {
	d, ok := f[url]
	if !ok {
		return 0, 0, errMissing
	}
	return d[0], d[1], nil
}

func imageEl(id, url string, x, y, w, h float64) domain.Element {
	e := domain.NewImage(url, x, y, w, h)
	e.ID = id
	return e
}

func TestReplaceScenarioWideImage(t *testing.T) {
	s := editor.NewSession([]domain.Element{imageEl("a", "old.png", 150, 150, 100, 100)}, editor.Options{})
	r := NewReplacer(s, fakeDims{"wide.png": {400, 200}})
	e, err := r.Replace(context.Background(), "a", "wide.png")
	if err != nil {
		t.Fatalf("replace: %v", err)
	}
	im := e.Image
	if im.URL != "wide.png" || im.Width != 200 || im.Height != 100 || !im.HasMask {
		t.Fatalf("unexpected result %+v", im)
	}
	if *im.Mask != (domain.Mask{X: 100, Y: 50, Width: 100, Height: 100}) {
		t.Fatalf("unexpected mask %+v", im.Mask)
	}
	if e.X != 150 || e.Y != 150 {
		t.Fatalf("centre must stay on the target: %v,%v", e.X, e.Y)
	}
	stored, _ := s.Element("a")
	if stored.Image.URL != "wide.png" {
		t.Fatalf("replace must be written through the store")
	}
}

func TestReplaceResetsDeformation(t *testing.T) {
	a := imageEl("a", "old.png", 150, 150, 200, 50)
	a.Image.ScaleX, a.Image.ScaleY = 2, 0.5
	a.Image.OriginalWidth, a.Image.OriginalHeight = 100, 100
	s := editor.NewSession([]domain.Element{a}, editor.Options{})
	r := NewReplacer(s, fakeDims{"new.png": {40, 10}})
	e, err := r.Replace(context.Background(), "a", "new.png")
	if err != nil {
		t.Fatalf("replace: %v", err)
	}
	im := e.Image
	if im.ScaleX != 1 || im.ScaleY != 1 || im.OriginalWidth != im.Width || im.OriginalHeight != im.Height {
		t.Fatalf("deformation not reset: %+v", im)
	}
	if im.HasMask {
		t.Fatalf("equal aspect should clear the mask")
	}
}

func TestReplaceLoadFailureLeavesElement(t *testing.T) {
	s := editor.NewSession([]domain.Element{imageEl("a", "old.png", 150, 150, 100, 100)}, editor.Options{})
	r := NewReplacer(s, fakeDims{})
	r.EnterReplaceMode("broken.png")
	_, err := r.ClickTarget(context.Background(), "a")
	if !errors.Is(err, errMissing) {
		t.Fatalf("expected load error, got %v", err)
	}
	if _, active := r.ReplaceMode(); active {
		t.Fatalf("replace mode must end on failure")
	}
	e, _ := s.Element("a")
	if e.Image.URL != "old.png" || e.Image.Width != 100 {
		t.Fatalf("element mutated on failure: %+v", e.Image)
	}
}

func TestReplaceRefusesTemplateAndText(t *testing.T) {
	tpl := imageEl("tpl", "t.png", 100, 100, 50, 50)
	tpl.IsFromTemplate = true
	txt := domain.NewText("Hi", 10, 10, 12)
	txt.ID = "txt"
	s := editor.NewSession([]domain.Element{tpl, txt}, editor.Options{})
	r := NewReplacer(s, fakeDims{"n.png": {10, 10}})
	if _, err := r.Replace(context.Background(), "tpl", "n.png"); !errors.Is(err, ErrTemplateElement) {
		t.Fatalf("expected ErrTemplateElement, got %v", err)
	}
	if _, err := r.Replace(context.Background(), "txt", "n.png"); !errors.Is(err, ErrNotImage) {
		t.Fatalf("expected ErrNotImage, got %v", err)
	}
	if _, err := r.Replace(context.Background(), "nope", "n.png"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestClickTargetRequiresReplaceMode(t *testing.T) {
	s := editor.NewSession([]domain.Element{imageEl("a", "old.png", 150, 150, 100, 100)}, editor.Options{})
	r := NewReplacer(s, fakeDims{"n.png": {10, 10}})
	if _, err := r.ClickTarget(context.Background(), "a"); !errors.Is(err, ErrNoReplaceMode) {
		t.Fatalf("expected ErrNoReplaceMode, got %v", err)
	}
	r.EnterReplaceMode("n.png")
	if _, err := r.ClickTarget(context.Background(), "a"); err != nil {
		t.Fatalf("click target: %v", err)
	}
	if _, active := r.ReplaceMode(); active {
		t.Fatalf("replace mode must end after a replace")
	}
}

func TestDropPassesThroughTemplateAndText(t *testing.T) {
	base := imageEl("base", "b.png", 200, 200, 200, 200)
	tpl := imageEl("tpl", "t.png", 200, 200, 100, 100)
	tpl.IsFromTemplate = true
	label := domain.NewText("Sale", 200, 200, 30)
	label.ID = "label"
	elems := []domain.Element{base, tpl, label}
	if id, ok := DropTarget(elems, geometry.Pt{X: 200, Y: 200}, nil); !ok || id != "base" {
		t.Fatalf("expected drop on base, got %q", id)
	}
	if _, ok := DropTarget(elems, geometry.Pt{X: 5, Y: 5}, nil); ok {
		t.Fatalf("expected no target outside elements")
	}

	s := editor.NewSession(elems, editor.Options{})
	r := NewReplacer(s, fakeDims{"drop.png": {100, 100}})
	e, err := r.Drop(context.Background(), geometry.Pt{X: 200, Y: 200}, "drop.png")
	if err != nil || e.ID != "base" || e.Image.URL != "drop.png" {
		t.Fatalf("drop: %+v %v", e, err)
	}
	if _, err := r.Drop(context.Background(), geometry.Pt{X: 5, Y: 5}, "drop.png"); !errors.Is(err, ErrNoDropTarget) {
		t.Fatalf("expected ErrNoDropTarget, got %v", err)
	}
}

func TestReplaceRefusedDuringGestureOnTarget(t *testing.T) {
	s := editor.NewSession([]domain.Element{imageEl("a", "old.png", 150, 150, 100, 100)}, editor.Options{})
	r := NewReplacer(s, fakeDims{"wide.png": {400, 200}})
	if err := s.BeginDrag("a", geometry.Pt{X: 150, Y: 150}); err != nil {
		t.Fatalf("begin drag: %v", err)
	}
	if _, err := r.Replace(context.Background(), "a", "wide.png"); !errors.Is(err, editor.ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
	if err := s.Move(geometry.Pt{X: 160, Y: 150}); err != nil {
		t.Fatalf("move: %v", err)
	}
	if _, err := s.End(); err != nil {
		t.Fatalf("end: %v", err)
	}
	e, err := r.Replace(context.Background(), "a", "wide.png")
	if err != nil {
		t.Fatalf("replace after gesture: %v", err)
	}
	if e.Image.URL != "wide.png" || e.Image.Width != 200 || !e.Masked() {
		t.Fatalf("unexpected replaced element %+v", e.Image)
	}
}
