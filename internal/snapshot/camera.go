/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package snapshot

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Camera is a perspective camera. The mesh is normalised to a unit sphere
// at the origin before it is viewed, so one pose fits every product.
type Camera struct {
	Eye, Target, Up [3]float64
	FovY            float64 // degrees
	Near, Far       float64
}

// DefaultCamera looks at the origin from slightly above the front.
func DefaultCamera() Camera {
	return Camera{
		Eye:    [3]float64{0, 0.4, 3},
		Target: [3]float64{0, 0, 0},
		Up:     [3]float64{0, 1, 0},
		FovY:   42,
		Near:   0.1,
		Far:    100,
	}
}

func (c Camera) view() *mat.Dense {
	f := normalize(sub(c.Target, c.Eye))
	s := normalize(cross(f, c.Up))
	u := cross(s, f)
	return mat.NewDense(4, 4, []float64{
		s[0], s[1], s[2], -dot(s, c.Eye),
		u[0], u[1], u[2], -dot(u, c.Eye),
		-f[0], -f[1], -f[2], dot(f, c.Eye),
		0, 0, 0, 1,
	})
}

func (c Camera) projection(aspect float64) *mat.Dense {
	t := 1 / math.Tan(c.FovY*math.Pi/360)
	n, f := c.Near, c.Far
	return mat.NewDense(4, 4, []float64{
		t / aspect, 0, 0, 0,
		0, t, 0, 0,
		0, 0, (f + n) / (n - f), 2 * f * n / (n - f),
		0, 0, -1, 0,
	})
}

// normalizer maps the box [min,max] into a sphere of radius 1 at the origin.
func normalizer(min, max [3]float64) *mat.Dense {
	c := [3]float64{(min[0] + max[0]) / 2, (min[1] + max[1]) / 2, (min[2] + max[2]) / 2}
	r := math.Sqrt(dot(sub(max, min), sub(max, min))) / 2
	if r <= 0 || math.IsInf(r, 0) || math.IsNaN(r) {
		r = 1
	}
	var out mat.Dense
	out.Mul(scale4(1/r, 1/r, 1/r), translate4(-c[0], -c[1], -c[2]))
	return &out
}

func identity4() *mat.Dense {
	return mat.NewDense(4, 4, []float64{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1})
}

func translate4(x, y, z float64) *mat.Dense {
	return mat.NewDense(4, 4, []float64{1, 0, 0, x, 0, 1, 0, y, 0, 0, 1, z, 0, 0, 0, 1})
}

func scale4(x, y, z float64) *mat.Dense {
	return mat.NewDense(4, 4, []float64{x, 0, 0, 0, 0, y, 0, 0, 0, 0, z, 0, 0, 0, 0, 1})
}

func transformPoint(m mat.Matrix, p [3]float64) [3]float64 {
	v := transform4(m, p)
	if v[3] != 0 && v[3] != 1 {
		return [3]float64{v[0] / v[3], v[1] / v[3], v[2] / v[3]}
	}
	return [3]float64{v[0], v[1], v[2]}
}

func transform4(m mat.Matrix, p [3]float64) [4]float64 {
	in := mat.NewVecDense(4, []float64{p[0], p[1], p[2], 1})
	var out mat.VecDense
	out.MulVec(m, in)
	return [4]float64{out.AtVec(0), out.AtVec(1), out.AtVec(2), out.AtVec(3)}
}

func sub(a, b [3]float64) [3]float64 { return [3]float64{a[0] - b[0], a[1] - b[1], a[2] - b[2]} }
func dot(a, b [3]float64) float64    { return a[0]*b[0] + a[1]*b[1] + a[2]*b[2] }
func cross(a, b [3]float64) [3]float64 {
	return [3]float64{a[1]*b[2] - a[2]*b[1], a[2]*b[0] - a[0]*b[2], a[0]*b[1] - a[1]*b[0]}
}

func normalize(a [3]float64) [3]float64 {
	l := math.Sqrt(dot(a, a))
	if l == 0 {
		return a
	}
	return [3]float64{a[0] / l, a[1] / l, a[2] / l}
}
