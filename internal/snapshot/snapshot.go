/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package snapshot renders a preview of a design wrapped on the product's
// 3D mesh. The design is composited onto a square UV texture, the mesh is
// drawn once by a software rasteriser and the frame is returned as a JPEG
// data URL.
package snapshot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"log/slog"
	"math"

	"golang.org/x/image/draw"
	"gonum.org/v1/gonum/mat"

	"podcanvas/internal/domain"
	applog "podcanvas/internal/log"
	"podcanvas/internal/render"
	"podcanvas/internal/resource"
)

// MaxTextureSide caps the UV texture edge in pixels.
const MaxTextureSide = 4096

var (
	ErrNoModel   = errors.New("product has no 3D model")
	ErrNoTexture = errors.New("print area is empty")
)

// Source loads mesh bytes by url.
type Source interface {
	Bytes(ctx context.Context, url string) ([]byte, error)
}

// Options control texture resolution and the rendered frame.
type Options struct {
	Width, Height int
	// TextureScale is texture pixels per logical unit.
	TextureScale float64
	// Supersample renders at this multiple and downsamples.
	Supersample int
	JPEGQuality int
	Background  color.RGBA
	UV          UVTransform
	Camera      Camera
	Lights      Lights
}

func DefaultOptions() Options {
	return Options{
		Width:        512,
		Height:       512,
		TextureScale: 4,
		Supersample:  2,
		JPEGQuality:  85,
		Background:   color.RGBA{R: 0xf5, G: 0xf5, B: 0xf5, A: 0xff},
		UV:           DefaultUV,
		Camera:       DefaultCamera(),
		Lights:       DefaultLights(),
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Width <= 0 || o.Height <= 0 {
		o.Width, o.Height = d.Width, d.Height
	}
	if o.TextureScale <= 0 {
		o.TextureScale = d.TextureScale
	}
	if o.Supersample <= 0 {
		o.Supersample = 1
	}
	if o.JPEGQuality <= 0 || o.JPEGQuality > 100 {
		o.JPEGQuality = d.JPEGQuality
	}
	if o.Background == (color.RGBA{}) {
		o.Background = d.Background
	}
	if o.UV.RepeatU == 0 && o.UV.RepeatV == 0 {
		o.UV = d.UV
	}
	if o.Camera.FovY <= 0 {
		o.Camera = d.Camera
	}
	if o.Lights.Ambient == 0 && len(o.Lights.Directional) == 0 && len(o.Lights.Points) == 0 {
		o.Lights = d.Lights
	}
	return o
}

// Snapshot is one captured preview.
type Snapshot struct {
	DataURL   string
	Image     *image.RGBA
	Triangles int
}

// Pipeline captures snapshots. Captures are independent; nothing is kept
// between calls.
type Pipeline struct {
	comp *render.Compositor
	src  Source
	opts Options
	log  *slog.Logger
}

func NewPipeline(comp *render.Compositor, src Source, opts Options) *Pipeline {
	return &Pipeline{comp: comp, src: src, opts: opts.withDefaults(), log: applog.WithComponent("snapshot")}
}

// Texture composites d onto a square canvas whose side is the larger print
// area dimension; the print area sits at the top-left.
func (p *Pipeline) Texture(ctx context.Context, d domain.Design) (*image.RGBA, error) {
	pa := d.Product.PrintArea
	side := math.Max(pa.Width, pa.Height)
	if side <= 0 || pa.Width <= 0 || pa.Height <= 0 {
		return nil, ErrNoTexture
	}
	scale := p.opts.TextureScale
	if side*scale > MaxTextureSide {
		scale = MaxTextureSide / side
	}
	px := max(1, int(math.Round(side*scale)))
	tex := image.NewRGBA(image.Rect(0, 0, px, px))
	bg := domain.ColorOr(d.BackgroundColor, color.RGBA{R: 255, G: 255, B: 255, A: 255})
	draw.Draw(tex, tex.Bounds(), image.NewUniform(color.NRGBA{R: bg.R, G: bg.G, B: bg.B, A: bg.A}), image.Point{}, draw.Src)
	skipped := p.comp.DrawElements(ctx, tex, d.Elements, pa.Geom().Min(), scale)
	if len(skipped) > 0 {
		p.log.WarnContext(ctx, "texture drawn with skipped elements", slog.Int("skipped", len(skipped)))
	}
	return tex, nil
}

// Capture renders a preview of d. Any failure is logged and yields nil:
// callers proceed without a preview.
func (p *Pipeline) Capture(ctx context.Context, d domain.Design) *Snapshot {
	l := applog.WithOperation(p.log, "capture")
	s, err := p.capture(ctx, d)
	if err != nil {
		l.WarnContext(ctx, "snapshot unavailable", slog.Any("err", err))
		return nil
	}
	l.InfoContext(ctx, "snapshot captured", slog.Int("triangles", s.Triangles), slog.Int("bytes", len(s.DataURL)))
	return s
}

func (p *Pipeline) capture(ctx context.Context, d domain.Design) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if d.Product.Model3D == nil || d.Product.Model3D.GlbURL == "" {
		return nil, ErrNoModel
	}
	if p.src == nil {
		return nil, errors.New("no mesh source")
	}
	tex, err := p.Texture(ctx, d)
	if err != nil {
		return nil, err
	}
	raw, err := p.src.Bytes(ctx, d.Product.Model3D.GlbURL)
	if err != nil {
		return nil, fmt.Errorf("load mesh: %w", err)
	}
	mesh, err := LoadGLB(raw, p.opts.UV)
	if err != nil {
		return nil, err
	}
	sc := &scene{mesh: mesh, tex: tex}
	defer sc.Dispose()

	img := p.renderFrame(sc)
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: p.opts.JPEGQuality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return &Snapshot{
		DataURL:   resource.DataURL("image/jpeg", buf.Bytes()),
		Image:     img,
		Triangles: mesh.Triangles(),
	}, nil
}

// scene owns the buffers of one capture.
type scene struct {
	mesh *Mesh
	tex  *image.RGBA
}

// Dispose drops mesh and texture buffers.
func (s *scene) Dispose() {
	s.mesh.Dispose()
	s.mesh = nil
	s.tex = nil
}

func (p *Pipeline) renderFrame(sc *scene) *image.RGBA {
	o := p.opts
	ss := o.Supersample
	w, h := o.Width*ss, o.Height*ss
	model := normalizer(sc.mesh.min, sc.mesh.max)
	var mvp mat.Dense
	mvp.Product(o.Camera.projection(float64(w)/float64(h)), o.Camera.view(), model)

	r := newRaster(w, h, o.Background)
	r.drawMesh(sc.mesh, frame{
		mvp:    &mvp,
		model:  model,
		eye:    o.Camera.Eye,
		lights: o.Lights,
		tex:    sc.tex,
		flipY:  o.UV.FlipY,
	})
	if ss == 1 {
		return r.img
	}
	out := image.NewRGBA(image.Rect(0, 0, o.Width, o.Height))
	draw.CatmullRom.Scale(out, out.Bounds(), r.img, r.img.Bounds(), draw.Src, nil)
	return out
}
