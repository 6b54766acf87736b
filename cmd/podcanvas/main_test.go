/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * Licensed under the Apache License, Version 2.0.
 */

package main

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"podcanvas/internal/config"
	"podcanvas/internal/crash"
	"podcanvas/internal/domain"
	"podcanvas/internal/geometry"
	"podcanvas/internal/resource"
	"podcanvas/internal/storage"
)

func pngDataURL(t *testing.T, w, h int, c color.Color) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return resource.DataURL("image/png", buf.Bytes())
}

func writeDesign(t *testing.T, dir string) string {
	t.Helper()
	img := domain.NewImage(pngDataURL(t, 8, 8, color.RGBA{R: 255, A: 255}), 100, 100, 100, 80)
	img.ID = "photo"
	txt := domain.NewText("Hi", 150, 150, 24)
	txt.ID = "title"
	d := &domain.Design{
		ID: "cli-test",
		Product: domain.Product{
			Type:      domain.Product2D,
			PrintArea: domain.Rect{X: 50, Y: 50, Width: 200, Height: 150},
			BleedArea: &domain.BleedArea{Margin: 10},
		},
		Elements: []domain.Element{img, txt},
	}
	path := filepath.Join(dir, "design.json")
	if err := storage.SaveDesign(path, d); err != nil {
		t.Fatalf("SaveDesign: %v", err)
	}
	return path
}

func testConfig() config.AppConfig {
	cfg := config.Defaults()
	cfg.Cache.Dir = ""
	return cfg
}

func TestRunVersionAndUsage(t *testing.T) {
	var out bytes.Buffer
	if code := run([]string{"version"}, &out, testConfig(), nil); code != 0 || out.Len() == 0 {
		t.Fatalf("version: code=%d out=%q", code, out.String())
	}
	out.Reset()
	if code := run([]string{"nope"}, &out, testConfig(), nil); code != 2 {
		t.Fatalf("unknown command code = %d", code)
	}
	if !strings.Contains(out.String(), "Usage:") {
		t.Fatalf("usage not printed: %q", out.String())
	}
}

func TestRunRenderTestPreset(t *testing.T) {
	dir := t.TempDir()
	design := writeDesign(t, dir)
	outPath := filepath.Join(dir, "out", "proof.png")
	var out bytes.Buffer
	job := &crash.Job{}
	if code := run([]string{"render", design, outPath}, &out, testConfig(), job); code != 0 {
		t.Fatalf("render code=%d out=%s", code, out.String())
	}
	if job.Command != "render" || !strings.HasSuffix(job.Design, "design.json") {
		t.Fatalf("crash job not filled: %+v", job)
	}
	f, err := os.Open(outPath)
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	defer f.Close()
	cfg, err := png.DecodeConfig(f)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if cfg.Width != 600 || cfg.Height != 450 {
		t.Fatalf("proof size = %dx%d, want 600x450", cfg.Width, cfg.Height)
	}
}

func TestRunRenderUsesCache(t *testing.T) {
	dir := t.TempDir()
	design := writeDesign(t, dir)
	cfg := testConfig()
	cfg.Cache.Dir = filepath.Join(dir, "cache")
	var out bytes.Buffer
	for i := 0; i < 2; i++ {
		if code := run([]string{"render", "-scale", "1", design, filepath.Join(dir, "a.png")}, &out, cfg, nil); code != 0 {
			t.Fatalf("render %d code=%d out=%s", i, code, out.String())
		}
	}
	if _, err := os.Stat(storage.CachePath(cfg.Cache.Dir)); err != nil {
		t.Fatalf("cache db missing: %v", err)
	}
}

func TestRunPDF(t *testing.T) {
	dir := t.TempDir()
	design := writeDesign(t, dir)
	outPath := filepath.Join(dir, "print.pdf")
	var out bytes.Buffer
	if code := run([]string{"pdf", "-scale", "1", design, outPath}, &out, testConfig(), nil); code != 0 {
		t.Fatalf("pdf code=%d out=%s", code, out.String())
	}
	b, err := os.ReadFile(outPath)
	if err != nil || !bytes.HasPrefix(b, []byte("%PDF")) {
		t.Fatalf("not a pdf: %v", err)
	}
}

func TestRunValidate(t *testing.T) {
	dir := t.TempDir()
	design := writeDesign(t, dir)
	var out bytes.Buffer
	if code := run([]string{"validate", design}, &out, testConfig(), nil); code != 0 {
		t.Fatalf("valid design code=%d out=%s", code, out.String())
	}
	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte(`{"elements":[]}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	out.Reset()
	if code := run([]string{"validate", bad}, &out, testConfig(), nil); code != 1 {
		t.Fatalf("invalid design code=%d", code)
	}
}

func TestRunFit(t *testing.T) {
	var out bytes.Buffer
	if code := run([]string{"fit", "100", "100", "200", "100"}, &out, testConfig(), nil); code != 0 {
		t.Fatalf("fit code=%d", code)
	}
	s := out.String()
	if !strings.Contains(s, "size: 200.00 x 100.00") || !strings.Contains(s, "mask: centre=(100.00, 50.00) size=100.00 x 100.00") {
		t.Fatalf("unexpected fit output: %q", s)
	}
	out.Reset()
	if code := run([]string{"fit", "1", "x"}, &out, testConfig(), nil); code != 2 {
		t.Fatalf("bad fit args code=%d", code)
	}
}

func TestRunReplace(t *testing.T) {
	dir := t.TempDir()
	design := writeDesign(t, dir)
	outPath := filepath.Join(dir, "replaced.json")
	wide := pngDataURL(t, 20, 10, color.RGBA{B: 255, A: 255})
	var out bytes.Buffer
	if code := run([]string{"replace", "-o", outPath, design, "photo", wide}, &out, testConfig(), nil); code != 0 {
		t.Fatalf("replace code=%d out=%s", code, out.String())
	}
	d, err := storage.LoadDesign(outPath)
	if err != nil {
		t.Fatalf("LoadDesign: %v", err)
	}
	e := d.Elements[0]
	if e.Image.URL != wide || e.Image.Width != 160 || e.Image.Height != 80 || !e.Masked() {
		t.Fatalf("unexpected replaced element: %+v mask=%+v", e.Image, e.Image.Mask)
	}
}

func TestRunMapping(t *testing.T) {
	dir := t.TempDir()
	design := writeDesign(t, dir)
	var out bytes.Buffer
	if code := run([]string{"mapping", "-display", "400x400", design}, &out, testConfig(), nil); code != 0 {
		t.Fatalf("mapping code=%d out=%s", code, out.String())
	}
	// proportional mapping on a display the size of the canvas is the identity
	if !strings.Contains(out.String(), "left=40.0 top=40.0 width=220.0 height=170.0") {
		t.Fatalf("unexpected mapping output: %q", out.String())
	}
}

func TestRunRenderTestPresetUsesPhysicalSize(t *testing.T) {
	dir := t.TempDir()
	d := &domain.Design{
		ID: "physical",
		Product: domain.Product{
			Type:         domain.Product2D,
			PrintArea:    domain.Rect{X: 0, Y: 0, Width: 200, Height: 150},
			PhysicalSize: &geometry.PhysicalSize{WidthMM: 101.6, HeightMM: 76.2},
		},
		Elements: []domain.Element{},
	}
	design := filepath.Join(dir, "design.json")
	if err := storage.SaveDesign(design, d); err != nil {
		t.Fatalf("SaveDesign: %v", err)
	}
	outPath := filepath.Join(dir, "proof.png")
	var out bytes.Buffer
	if code := run([]string{"render", design, outPath}, &out, testConfig(), nil); code != 0 {
		t.Fatalf("render code=%d out=%s", code, out.String())
	}
	f, err := os.Open(outPath)
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	defer f.Close()
	cfg, err := png.DecodeConfig(f)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	// 4in at 300 dpi
	if cfg.Width < 1199 || cfg.Width > 1201 {
		t.Fatalf("proof width = %d, want 1200", cfg.Width)
	}
}

func writePNGFile(t *testing.T, path string, c color.Color) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestRunRenderCacheSeesChangedImageFile(t *testing.T) {
	dir := t.TempDir()
	art := filepath.Join(dir, "art.png")
	writePNGFile(t, art, color.RGBA{R: 255, A: 255})
	img := domain.NewImage("art.png", 100, 100, 100, 80)
	img.ID = "art"
	d := &domain.Design{
		ID: "file-art",
		Product: domain.Product{
			Type:      domain.Product2D,
			PrintArea: domain.Rect{X: 50, Y: 50, Width: 200, Height: 150},
		},
		Elements: []domain.Element{img},
	}
	design := filepath.Join(dir, "design.json")
	if err := storage.SaveDesign(design, d); err != nil {
		t.Fatalf("SaveDesign: %v", err)
	}
	cfg := testConfig()
	cfg.Cache.Dir = filepath.Join(dir, "cache")
	outPath := filepath.Join(dir, "out.png")

	pixel := func() color.RGBA {
		t.Helper()
		var out bytes.Buffer
		if code := run([]string{"render", "-scale", "1", design, outPath}, &out, cfg, nil); code != 0 {
			t.Fatalf("render code=%d out=%s", code, out.String())
		}
		f, err := os.Open(outPath)
		if err != nil {
			t.Fatalf("open output: %v", err)
		}
		defer f.Close()
		got, err := png.Decode(f)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		// design (110,110) inside the image, print area origin at (50,50)
		return color.RGBAModel.Convert(got.At(60, 60)).(color.RGBA)
	}

	if c := pixel(); c.R < 200 || c.B > 50 {
		t.Fatalf("first render pixel = %+v, want red", c)
	}
	writePNGFile(t, art, color.RGBA{B: 255, A: 255})
	if c := pixel(); c.B < 200 || c.R > 50 {
		t.Fatalf("render after file change pixel = %+v, want blue", c)
	}
}

func writeMappedDesign(t *testing.T, dir string, scale float64) string {
	t.Helper()
	path := writeDesign(t, dir)
	d, err := storage.LoadDesign(path)
	if err != nil {
		t.Fatalf("LoadDesign: %v", err)
	}
	d.Product.BleedAreaMapping = &domain.BleedAreaMapping{CenterX: 50, CenterY: 50, Scale: scale, Enabled: true}
	if err := storage.SaveDesign(path, d); err != nil {
		t.Fatalf("SaveDesign: %v", err)
	}
	return path
}

func TestRunMappingShrinkReportsOnlyRealChanges(t *testing.T) {
	fitting := writeMappedDesign(t, t.TempDir(), 1)
	var out bytes.Buffer
	if code := run([]string{"mapping", "-display", "400x400", "-shrink", fitting}, &out, testConfig(), nil); code != 0 {
		t.Fatalf("mapping code=%d out=%s", code, out.String())
	}
	if strings.Contains(out.String(), "shrunk") {
		t.Fatalf("fitting mapping reported as shrunk: %q", out.String())
	}
	if !strings.Contains(out.String(), "scale=1.0000") {
		t.Fatalf("scale changed: %q", out.String())
	}

	overflowing := writeMappedDesign(t, t.TempDir(), 3)
	out.Reset()
	if code := run([]string{"mapping", "-display", "400x400", "-shrink", overflowing}, &out, testConfig(), nil); code != 0 {
		t.Fatalf("mapping code=%d out=%s", code, out.String())
	}
	if !strings.Contains(out.String(), "shrunk scale to") {
		t.Fatalf("overflowing mapping not shrunk: %q", out.String())
	}
}

func TestRunMappingUsesConfiguredCanvas(t *testing.T) {
	design := writeDesign(t, t.TempDir())
	cfg := testConfig()
	cfg.Canvas.Size = 800
	var out bytes.Buffer
	if code := run([]string{"mapping", "-display", "400x400", design}, &out, cfg, nil); code != 0 {
		t.Fatalf("mapping code=%d out=%s", code, out.String())
	}
	// the bleed rectangle 40..260 x 40..210 on an 800 canvas shown at 400px
	if !strings.Contains(out.String(), "left=20.0 top=20.0 width=110.0 height=85.0") {
		t.Fatalf("configured canvas not applied: %q", out.String())
	}
}

func TestRunLocate(t *testing.T) {
	design := writeDesign(t, t.TempDir())
	var out bytes.Buffer
	if code := run([]string{"locate", "-container", "400x400", design, "130", "120"}, &out, testConfig(), nil); code != 0 {
		t.Fatalf("locate code=%d out=%s", code, out.String())
	}
	if !strings.Contains(out.String(), "canvas=(130.0, 120.0) element=photo") {
		t.Fatalf("unexpected locate output: %q", out.String())
	}

	out.Reset()
	if code := run([]string{"locate", "-zoom", "10", design, "200", "200"}, &out, testConfig(), nil); code != 0 {
		t.Fatalf("locate code=%d out=%s", code, out.String())
	}
	// zoom is clamped to the configured maximum; the container centre stays put
	if !strings.Contains(out.String(), "zoom=3.00 canvas=(200.0, 200.0)") {
		t.Fatalf("zoom not clamped: %q", out.String())
	}

	cfg := testConfig()
	cfg.Canvas.Size = 800
	cfg.Viewport.MaxZoom = 2
	out.Reset()
	if code := run([]string{"locate", "-zoom", "10", design, "200", "200"}, &out, cfg, nil); code != 0 {
		t.Fatalf("locate code=%d out=%s", code, out.String())
	}
	if !strings.Contains(out.String(), "zoom=2.00 canvas=(400.0, 400.0) element=none") {
		t.Fatalf("configured viewport not applied: %q", out.String())
	}

	if code := run([]string{"locate", design, "x", "1"}, &out, testConfig(), nil); code != 2 {
		t.Fatalf("non-numeric position code = %d", code)
	}
}
