/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package snapshot

import (
	"bytes"
	"errors"
	"fmt"
	"math"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"gonum.org/v1/gonum/mat"
)

// maxNodeDepth bounds scene graph recursion on malformed files.
const maxNodeDepth = 64

var ErrEmptyMesh = errors.New("mesh has no triangles")

// UVTransform is applied to the texture coordinates of every material.
type UVTransform struct {
	OffsetU, OffsetV float64
	RepeatU, RepeatV float64
	FlipY            bool
}

// DefaultUV covers the whole texture once, vertically flipped.
var DefaultUV = UVTransform{RepeatU: 1, RepeatV: 1, FlipY: true}

type vertex struct {
	pos [3]float64
	uv  [2]float64
}

type triangle struct {
	v        [3]vertex
	textured bool
}

// Mesh is a flattened triangle soup in scene space.
type Mesh struct {
	tris      []triangle
	min, max  [3]float64
	materials map[int]bool
}

// Triangles returns the number of triangles.
func (m *Mesh) Triangles() int { return len(m.tris) }

// Materials returns the number of distinct materials the texture was bound to.
func (m *Mesh) Materials() int { return len(m.materials) }

// LoadGLB decodes a binary or JSON glTF document and flattens every
// triangle primitive reachable from the default scene.
func LoadGLB(b []byte, uv UVTransform) (*Mesh, error) {
	doc := new(gltf.Document)
	if err := gltf.NewDecoder(bytes.NewReader(b)).Decode(doc); err != nil {
		return nil, fmt.Errorf("decode glb: %w", err)
	}
	m := &Mesh{materials: map[int]bool{}}
	for i := range m.min {
		m.min[i], m.max[i] = math.Inf(1), math.Inf(-1)
	}
	for _, n := range sceneRoots(doc) {
		if err := m.walk(doc, n, identity4(), 0, uv); err != nil {
			return nil, err
		}
	}
	if len(m.tris) == 0 {
		return nil, ErrEmptyMesh
	}
	return m, nil
}

// Dispose releases the triangle buffers.
func (m *Mesh) Dispose() {
	if m == nil {
		return
	}
	m.tris = nil
	m.materials = nil
}

func sceneRoots(doc *gltf.Document) []uint32 {
	if len(doc.Scenes) > 0 {
		s := 0
		if doc.Scene != nil && int(*doc.Scene) < len(doc.Scenes) {
			s = int(*doc.Scene)
		}
		return doc.Scenes[s].Nodes
	}
	// no scene: every node that is nobody's child
	child := make([]bool, len(doc.Nodes))
	for _, n := range doc.Nodes {
		for _, c := range n.Children {
			if int(c) < len(child) {
				child[c] = true
			}
		}
	}
	var roots []uint32
	for i := range doc.Nodes {
		if !child[i] {
			roots = append(roots, uint32(i))
		}
	}
	return roots
}

func (m *Mesh) walk(doc *gltf.Document, idx uint32, parent *mat.Dense, depth int, uv UVTransform) error {
	if depth > maxNodeDepth || int(idx) >= len(doc.Nodes) {
		return nil
	}
	n := doc.Nodes[idx]
	var world mat.Dense
	world.Mul(parent, nodeMatrix(n))
	if n.Mesh != nil && int(*n.Mesh) < len(doc.Meshes) {
		for _, p := range doc.Meshes[*n.Mesh].Primitives {
			if err := m.addPrimitive(doc, p, &world, uv); err != nil {
				return fmt.Errorf("node %d: %w", idx, err)
			}
		}
	}
	for _, c := range n.Children {
		if err := m.walk(doc, c, &world, depth+1, uv); err != nil {
			return err
		}
	}
	return nil
}

func (m *Mesh) addPrimitive(doc *gltf.Document, p *gltf.Primitive, world *mat.Dense, uvt UVTransform) error {
	switch p.Mode {
	case gltf.PrimitiveTriangles, gltf.PrimitiveTriangleStrip, gltf.PrimitiveTriangleFan:
	default:
		return nil
	}
	pi, ok := p.Attributes[gltf.POSITION]
	if !ok || int(pi) >= len(doc.Accessors) {
		return nil
	}
	pos, err := modeler.ReadPosition(doc, doc.Accessors[pi], nil)
	if err != nil {
		return fmt.Errorf("read positions: %w", err)
	}
	var uvs [][2]float32
	if ti, ok := p.Attributes[gltf.TEXCOORD_0]; ok && int(ti) < len(doc.Accessors) {
		uvs, err = modeler.ReadTextureCoord(doc, doc.Accessors[ti], nil)
		if err != nil {
			return fmt.Errorf("read uvs: %w", err)
		}
	}
	var idx []uint32
	if p.Indices != nil && int(*p.Indices) < len(doc.Accessors) {
		idx, err = modeler.ReadIndices(doc, doc.Accessors[*p.Indices], nil)
		if err != nil {
			return fmt.Errorf("read indices: %w", err)
		}
	} else {
		idx = make([]uint32, len(pos))
		for i := range idx {
			idx[i] = uint32(i)
		}
	}
	mi := -1
	if p.Material != nil {
		mi = int(*p.Material)
	}
	m.materials[mi] = true

	verts := make([]vertex, len(pos))
	for i, v := range pos {
		verts[i].pos = transformPoint(world, [3]float64{float64(v[0]), float64(v[1]), float64(v[2])})
		m.extend(verts[i].pos)
		if i < len(uvs) {
			verts[i].uv = [2]float64{
				float64(uvs[i][0])*uvt.RepeatU + uvt.OffsetU,
				float64(uvs[i][1])*uvt.RepeatV + uvt.OffsetV,
			}
		}
	}
	textured := len(uvs) >= len(pos)
	add := func(a, b, c uint32) {
		if int(a) >= len(verts) || int(b) >= len(verts) || int(c) >= len(verts) {
			return
		}
		m.tris = append(m.tris, triangle{v: [3]vertex{verts[a], verts[b], verts[c]}, textured: textured})
	}
	switch p.Mode {
	case gltf.PrimitiveTriangleStrip:
		for i := 2; i < len(idx); i++ {
			if i%2 == 0 {
				add(idx[i-2], idx[i-1], idx[i])
			} else {
				add(idx[i-1], idx[i-2], idx[i])
			}
		}
	case gltf.PrimitiveTriangleFan:
		for i := 2; i < len(idx); i++ {
			add(idx[0], idx[i-1], idx[i])
		}
	default:
		for i := 0; i+2 < len(idx); i += 3 {
			add(idx[i], idx[i+1], idx[i+2])
		}
	}
	return nil
}

func (m *Mesh) extend(p [3]float64) {
	for i := range p {
		m.min[i] = math.Min(m.min[i], p[i])
		m.max[i] = math.Max(m.max[i], p[i])
	}
}

// nodeMatrix returns the local transform of n: its matrix when one is set,
// else translation * rotation * scale.
func nodeMatrix(n *gltf.Node) *mat.Dense {
	if mx := n.Matrix; mx != ([16]float64{}) && mx != identityArray {
		d := mat.NewDense(4, 4, nil)
		for c := 0; c < 4; c++ {
			for r := 0; r < 4; r++ {
				d.Set(r, c, mx[c*4+r]) // column-major
			}
		}
		return d
	}
	t := n.Translation
	s := n.Scale
	if s == ([3]float64{}) {
		s = [3]float64{1, 1, 1}
	}
	q := n.Rotation
	if q == ([4]float64{}) {
		q = [4]float64{0, 0, 0, 1}
	}
	x, y, z, w := q[0], q[1], q[2], q[3]
	rot := mat.NewDense(4, 4, []float64{
		1 - 2*(y*y+z*z), 2 * (x*y - z*w), 2 * (x*z + y*w), 0,
		2 * (x*y + z*w), 1 - 2*(x*x+z*z), 2 * (y*z - x*w), 0,
		2 * (x*z - y*w), 2 * (y*z + x*w), 1 - 2*(x*x+y*y), 0,
		0, 0, 0, 1,
	})
	tr := translate4(t[0], t[1], t[2])
	sc := scale4(s[0], s[1], s[2])
	var out mat.Dense
	out.Product(tr, rot, sc)
	return &out
}

var identityArray = [16]float64{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1}
