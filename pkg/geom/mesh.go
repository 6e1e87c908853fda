package geom

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// ErrInvalidSampleLength is returned when a flat shape vector cannot be
// split into (x, y, z) vertex triples.
var ErrInvalidSampleLength = errors.New("sample length not divisible by 3")

// Mesh is a triangle mesh materialized from a shape model instance.
type Mesh struct {
	Vertices  []Vec3
	Triangles [][3]int
}

// FromSample builds a mesh from a flat [x y z x y z ...] shape vector, as
// produced by a shape model's mean or sampling operations, plus the model's
// triangle list. The triangle slice is referenced, not copied.
func FromSample(sample mat.Vector, triangles [][3]int) (*Mesh, error) {
	n := sample.Len()
	if n%3 != 0 {
		return nil, fmt.Errorf("%w: length %d", ErrInvalidSampleLength, n)
	}

	vertices := make([]Vec3, n/3)
	for v := range vertices {
		vertices[v] = Vec3{
			X: sample.AtVec(3 * v),
			Y: sample.AtVec(3*v + 1),
			Z: sample.AtVec(3*v + 2),
		}
	}

	return &Mesh{Vertices: vertices, Triangles: triangles}, nil
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Vertices)
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Triangles)
}

// Bounds returns the axis-aligned bounding box of all vertices.
func (m *Mesh) Bounds() Bounds {
	b := NewBounds()
	for _, v := range m.Vertices {
		b.Extend(v)
	}
	return b
}

// Centroid returns the average vertex position.
func (m *Mesh) Centroid() Vec3 {
	if len(m.Vertices) == 0 {
		return Vec3{}
	}
	var sum Vec3
	for _, v := range m.Vertices {
		sum = sum.Add(v)
	}
	return sum.Scale(1.0 / float64(len(m.Vertices)))
}

// SurfaceArea returns the total area of all triangles. Triangles whose
// indices fall outside the vertex slice are skipped; the triangle list is
// stored as given by the model and is not validated.
func (m *Mesh) SurfaceArea() float64 {
	var total float64
	for _, tri := range m.Triangles {
		if tri[0] >= len(m.Vertices) || tri[1] >= len(m.Vertices) || tri[2] >= len(m.Vertices) {
			continue
		}
		a := m.Vertices[tri[0]]
		e1 := m.Vertices[tri[1]].Sub(a)
		e2 := m.Vertices[tri[2]].Sub(a)
		total += e1.Cross(e2).Length() / 2
	}
	return total
}
