/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package bleed

import (
	"strings"
	"testing"

	"podcanvas/internal/domain"
	"podcanvas/internal/geometry"
)

func square() domain.Product {
	return domain.Product{Type: domain.Product2D, PrintArea: domain.Rect{X: 100, Y: 100, Width: 200, Height: 200}}
}

func TestIdentityMappingKeepsPrintArea(t *testing.T) {
	m := NewMapper(square(), geometry.Size{W: 400, H: 400})
	mp := &domain.BleedAreaMapping{CenterX: 50, CenterY: 50, Scale: 1, Enabled: true}
	b := m.MappedBleedBounds(mp)
	want := geometry.Bounds{Left: 100, Top: 100, Right: 300, Bottom: 300, Width: 200, Height: 200}
	for _, pair := range [][2]float64{{b.Left, want.Left}, {b.Top, want.Top}, {b.Right, want.Right}, {b.Bottom, want.Bottom}, {b.Width, want.Width}, {b.Height, want.Height}} {
		if !geometry.NearlyEqual(pair[0], pair[1], 1e-9) {
			t.Fatalf("identity mapping changed bounds: %+v", b)
		}
	}
	if reasons := m.Validate(*mp); len(reasons) != 0 {
		t.Fatalf("identity mapping should validate: %v", reasons)
	}
}

func TestOffCentreMappingReportsLeftAndTop(t *testing.T) {
	m := NewMapper(square(), geometry.Size{W: 400, H: 400})
	reasons := m.Validate(domain.BleedAreaMapping{CenterX: 10, CenterY: 10, Scale: 1, Enabled: true})
	if len(reasons) != 2 {
		t.Fatalf("expected two violations, got %v", reasons)
	}
	if !strings.Contains(reasons[0], "left") || !strings.Contains(reasons[1], "top") {
		t.Fatalf("unexpected reasons: %v", reasons)
	}
	b := m.MappedBleedBounds(&domain.BleedAreaMapping{CenterX: 10, CenterY: 10, Scale: 1, Enabled: true})
	if b.Left >= 0 || b.Top >= 0 {
		t.Fatalf("expected negative mapped origin, got %+v", b)
	}
}

func TestValidateCollectsRangeErrors(t *testing.T) {
	m := NewMapper(square(), geometry.Size{W: 400, H: 400})
	reasons := m.Validate(domain.BleedAreaMapping{CenterX: 150, CenterY: 50, Scale: 0})
	if len(reasons) != 2 {
		t.Fatalf("expected centerX and scale errors, got %v", reasons)
	}
	if !strings.Contains(reasons[0], "centerX") || !strings.Contains(reasons[1], "scale") {
		t.Fatalf("unexpected reasons: %v", reasons)
	}
	if r := m.Validate(domain.BleedAreaMapping{CenterX: 50, CenterY: 50, Scale: 5.5}); len(r) != 1 {
		t.Fatalf("scale above 5 must be rejected: %v", r)
	}
}

func TestRoundTrip(t *testing.T) {
	p := square()
	p.BleedArea = &domain.BleedArea{Sides: &domain.Sides{Top: 3, Right: 10, Bottom: 0, Left: 6}}
	m := NewMapper(p, geometry.Size{W: 1024, H: 768})
	mappings := []domain.BleedAreaMapping{
		{CenterX: 50, CenterY: 50, Scale: 1, Enabled: true},
		{CenterX: 33, CenterY: 71, Scale: 0.4, Enabled: true},
		{CenterX: 90, CenterY: 5, Scale: 4.9, Enabled: true},
		{CenterX: 50, CenterY: 50, Scale: 2, Enabled: false},
	}
	points := []geometry.Pt{{}, {X: 400, Y: 400}, {X: 123.4, Y: 56.7}, {X: -20, Y: 450}}
	for _, mp := range mappings {
		mp := mp
		for _, pt := range points {
			bg := m.DesignToBackground(pt, &mp)
			back := m.BackgroundToDesign(bg, &mp)
			if !back.Near(pt, 1e-9) {
				t.Fatalf("mapping %+v: %+v -> %+v -> %+v", mp, pt, bg, back)
			}
			again := m.DesignToBackground(back, &mp)
			if !again.Near(bg, 1e-9) {
				t.Fatalf("mapping %+v: background point not stable: %+v vs %+v", mp, again, bg)
			}
		}
	}
}

func TestDisabledMappingIsProportional(t *testing.T) {
	m := NewMapper(square(), geometry.Size{W: 800, H: 600})
	for _, mp := range []*domain.BleedAreaMapping{nil, {CenterX: 10, CenterY: 10, Scale: 3}} {
		got := m.DesignToBackground(geometry.Pt{X: 100, Y: 100}, mp)
		if got != (geometry.Pt{X: 200, Y: 150}) {
			t.Fatalf("expected proportional mapping, got %+v", got)
		}
	}
}

func TestMappingPlacesBleedCentre(t *testing.T) {
	m := NewMapper(square(), geometry.Size{W: 1000, H: 500})
	mp := &domain.BleedAreaMapping{CenterX: 30, CenterY: 60, Scale: 0.5, Enabled: true}
	c := m.DesignToBackground(geometry.Pt{X: 200, Y: 200}, mp)
	if !c.Near(geometry.Pt{X: 300, Y: 300}, 1e-9) {
		t.Fatalf("bleed centre should land on the mapping centre, got %+v", c)
	}
	b := m.MappedBleedBounds(mp)
	// 200/400 of the display, halved by the scale
	if !geometry.NearlyEqual(b.Width, 250, 1e-9) || !geometry.NearlyEqual(b.Height, 125, 1e-9) {
		t.Fatalf("unexpected mapped size %+v", b)
	}
}

func TestConstrain(t *testing.T) {
	got := Constrain(domain.BleedAreaMapping{CenterX: -5, CenterY: 140, Scale: 0, Enabled: true})
	if got.CenterX != 0 || got.CenterY != 100 || got.Scale != MinScale || !got.Enabled {
		t.Fatalf("unexpected constrained mapping %+v", got)
	}
	if got := Constrain(domain.BleedAreaMapping{Scale: 9}); got.Scale != MaxScale {
		t.Fatalf("expected max scale, got %v", got.Scale)
	}
}

func TestShrinkToFit(t *testing.T) {
	m := NewMapper(square(), geometry.Size{W: 400, H: 400})
	mp, ok := m.ShrinkToFit(domain.BleedAreaMapping{CenterX: 50, CenterY: 50, Scale: 3, Enabled: true})
	if !ok {
		t.Fatalf("expected a fitting scale")
	}
	if mp.Scale < 1.99 || mp.Scale > 2.011 {
		t.Fatalf("unexpected shrunk scale %v", mp.Scale)
	}
	if r := m.Validate(mp); len(r) != 0 {
		t.Fatalf("shrunk mapping must validate: %v", r)
	}
	if _, ok := m.ShrinkToFit(domain.BleedAreaMapping{CenterX: 0, CenterY: 50, Scale: 1, Enabled: true}); ok {
		t.Fatalf("centre on the edge cannot fit")
	}
}
