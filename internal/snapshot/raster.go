/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package snapshot

import (
	"image"
	"image/color"
	"math"

	"gonum.org/v1/gonum/mat"
)

// DirLight shines along -Dir; Dir points from the surface towards the light.
type DirLight struct {
	Dir       [3]float64
	Intensity float64
}

type PointLight struct {
	Pos       [3]float64
	Intensity float64
}

// Lights is the illumination of a frame, in normalised scene space.
type Lights struct {
	Ambient     float64
	Directional []DirLight
	Points      []PointLight
}

// DefaultLights gives even illumination: strong ambient, a key and a fill
// light from the front and a point light above the camera.
func DefaultLights() Lights {
	return Lights{
		Ambient: 0.55,
		Directional: []DirLight{
			{Dir: [3]float64{0.5, 0.8, 1}, Intensity: 0.35},
			{Dir: [3]float64{-0.6, 0.3, 0.8}, Intensity: 0.2},
		},
		Points: []PointLight{{Pos: [3]float64{0, 2, 3}, Intensity: 0.15}},
	}
}

func (l Lights) shade(n, p [3]float64) float64 {
	s := l.Ambient
	for _, d := range l.Directional {
		s += math.Max(0, dot(n, normalize(d.Dir))) * d.Intensity
	}
	for _, pl := range l.Points {
		s += math.Max(0, dot(n, normalize(sub(pl.Pos, p)))) * pl.Intensity
	}
	return s
}

// untexturedColor is used for primitives without texture coordinates.
var untexturedColor = color.RGBA{R: 0xdd, G: 0xdd, B: 0xdd, A: 0xff}

type screenVert struct {
	x, y, z float64
	invW    float64
	uW, vW  float64
}

// raster is a colour buffer with a z-buffer.
type raster struct {
	img   *image.RGBA
	depth []float64
}

func newRaster(w, h int, bg color.RGBA) *raster {
	r := &raster{img: image.NewRGBA(image.Rect(0, 0, w, h)), depth: make([]float64, w*h)}
	for i := range r.depth {
		r.depth[i] = math.Inf(1)
	}
	pix := r.img.Pix
	for i := 0; i < len(pix); i += 4 {
		pix[i], pix[i+1], pix[i+2], pix[i+3] = bg.R, bg.G, bg.B, bg.A
	}
	return r
}

// frame holds everything needed to draw one image of a mesh.
type frame struct {
	mvp    *mat.Dense
	model  *mat.Dense
	eye    [3]float64
	lights Lights
	tex    *image.RGBA
	flipY  bool
}

func (r *raster) drawMesh(m *Mesh, f frame) {
	w, h := float64(r.img.Bounds().Dx()), float64(r.img.Bounds().Dy())
	for _, t := range m.tris {
		var sv [3]screenVert
		var wp [3][3]float64
		clipped := false
		for i, v := range t.v {
			c := transform4(f.mvp, v.pos)
			if c[3] <= 1e-6 {
				clipped = true
				break
			}
			iw := 1 / c[3]
			sv[i] = screenVert{
				x:    (c[0]*iw + 1) / 2 * w,
				y:    (1 - c[1]*iw) / 2 * h,
				z:    c[2] * iw,
				invW: iw,
				uW:   v.uv[0] * iw,
				vW:   v.uv[1] * iw,
			}
			wp[i] = transformPoint(f.model, v.pos)
		}
		if clipped {
			continue
		}
		n := normalize(cross(sub(wp[1], wp[0]), sub(wp[2], wp[0])))
		centroid := [3]float64{(wp[0][0] + wp[1][0] + wp[2][0]) / 3, (wp[0][1] + wp[1][1] + wp[2][1]) / 3, (wp[0][2] + wp[1][2] + wp[2][2]) / 3}
		if dot(n, sub(f.eye, centroid)) < 0 {
			n = [3]float64{-n[0], -n[1], -n[2]} // double sided
		}
		r.fill(sv, t.textured, f, f.lights.shade(n, centroid))
	}
}

func edge(a, b screenVert, x, y float64) float64 {
	return (x-a.x)*(b.y-a.y) - (y-a.y)*(b.x-a.x)
}

func (r *raster) fill(sv [3]screenVert, textured bool, f frame, shade float64) {
	area := edge(sv[0], sv[1], sv[2].x, sv[2].y)
	if math.Abs(area) < 1e-12 {
		return
	}
	b := r.img.Bounds()
	x0 := max(b.Min.X, int(math.Floor(math.Min(sv[0].x, math.Min(sv[1].x, sv[2].x)))))
	x1 := min(b.Max.X-1, int(math.Ceil(math.Max(sv[0].x, math.Max(sv[1].x, sv[2].x)))))
	y0 := max(b.Min.Y, int(math.Floor(math.Min(sv[0].y, math.Min(sv[1].y, sv[2].y)))))
	y1 := min(b.Max.Y-1, int(math.Ceil(math.Max(sv[0].y, math.Max(sv[1].y, sv[2].y)))))
	stride := b.Dx()
	for y := y0; y <= y1; y++ {
		py := float64(y) + 0.5
		for x := x0; x <= x1; x++ {
			px := float64(x) + 0.5
			w0 := edge(sv[1], sv[2], px, py) / area
			w1 := edge(sv[2], sv[0], px, py) / area
			w2 := edge(sv[0], sv[1], px, py) / area
			if w0 < 0 || w1 < 0 || w2 < 0 {
				continue
			}
			z := w0*sv[0].z + w1*sv[1].z + w2*sv[2].z
			if z < -1 || z > 1 {
				continue
			}
			di := (y-b.Min.Y)*stride + (x - b.Min.X)
			if z >= r.depth[di] {
				continue
			}
			r.depth[di] = z
			base := untexturedColor
			if textured && f.tex != nil {
				iw := w0*sv[0].invW + w1*sv[1].invW + w2*sv[2].invW
				u := (w0*sv[0].uW + w1*sv[1].uW + w2*sv[2].uW) / iw
				v := (w0*sv[0].vW + w1*sv[1].vW + w2*sv[2].vW) / iw
				base = sample(f.tex, u, v, f.flipY)
			}
			r.img.SetRGBA(x, y, color.RGBA{R: lit(base.R, shade), G: lit(base.G, shade), B: lit(base.B, shade), A: 0xff})
		}
	}
}

func lit(c uint8, s float64) uint8 {
	v := float64(c) * s
	if v > 255 {
		return 255
	}
	return uint8(v)
}

// texel maps a wrapped uv coordinate to a pixel of a w x h texture.
func texel(u, v float64, w, h int, flipY bool) (int, int) {
	u -= math.Floor(u)
	v -= math.Floor(v)
	if flipY {
		v = 1 - v
	}
	x := min(w-1, max(0, int(u*float64(w))))
	y := min(h-1, max(0, int(v*float64(h))))
	return x, y
}

func sample(tex *image.RGBA, u, v float64, flipY bool) color.RGBA {
	b := tex.Bounds()
	x, y := texel(u, v, b.Dx(), b.Dy(), flipY)
	c := tex.RGBAAt(b.Min.X+x, b.Min.Y+y)
	if c.A == 0xff {
		return c
	}
	// composite premultiplied texels over white
	a := 0xff - c.A
	return color.RGBA{R: c.R + a, G: c.G + a, B: c.B + a, A: 0xff}
}
