package shapemodel

import (
	crand "crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// ErrVertexOutOfRange is returned when a vertex index exceeds the model's
// vertex count.
var ErrVertexOutOfRange = errors.New("vertex index out of range")

// Model is a PCA shape model: a mean shape plus a linear basis of shape
// variation. The basis is stored both normalised (column j scaled by
// sqrt(eigenvalue j)) and unnormalised (unit-scale eigenvectors); the
// unnormalised form is derived once at construction and the two stay
// consistent for the life of the model.
//
// The model is immutable after construction except for the internal random
// source advanced by DrawRandomSample. Accessors are safe for concurrent
// readers; DrawRandomSample is not safe for concurrent use on the same
// model without external locking.
type Model struct {
	mean         *mat.VecDense
	normalised   *mat.Dense
	unnormalised *mat.Dense
	eigenvalues  []float64
	triangles    [][3]int

	src rand.Source // advanced by DrawRandomSample
}

// New constructs a model from a mean vector, a normalised PCA basis, the
// eigenvalue spectrum, and a triangle list. The unnormalised basis is
// derived immediately via UnnormaliseBasis and cached. The internal random
// source is seeded from system entropy.
//
// Inputs must already be dimensionally consistent: mean length = basis rows
// = 3 * vertex count, basis columns = len(eigenvalues), and all eigenvalues
// strictly positive. None of this is validated here; model loaders are
// expected to check before constructing (see pkg/formats).
func New(mean *mat.VecDense, normalisedBasis *mat.Dense, eigenvalues []float64, triangles [][3]int) *Model {
	return NewWithSource(mean, normalisedBasis, eigenvalues, triangles, entropySource())
}

// NewWithSource is New with an explicit random source for sampling. Passing
// a fixed-seed source makes DrawRandomSample reproducible, which is useful
// in tests and batch pipelines.
func NewWithSource(mean *mat.VecDense, normalisedBasis *mat.Dense, eigenvalues []float64, triangles [][3]int, src rand.Source) *Model {
	return &Model{
		mean:         mean,
		normalised:   normalisedBasis,
		unnormalised: UnnormaliseBasis(normalisedBasis, eigenvalues),
		eigenvalues:  eigenvalues,
		triangles:    triangles,
		src:          src,
	}
}

// entropySource returns a PCG source seeded from the system CSPRNG.
func entropySource() rand.Source {
	var seed [16]byte
	if _, err := crand.Read(seed[:]); err != nil {
		// crypto/rand does not fail on supported platforms
		panic(fmt.Sprintf("shapemodel: seeding random source: %v", err))
	}
	return rand.NewPCG(
		binary.LittleEndian.Uint64(seed[0:8]),
		binary.LittleEndian.Uint64(seed[8:16]),
	)
}

// NumComponents returns the number of principal components in the model.
func (m *Model) NumComponents() int {
	_, cols := m.normalised.Dims()
	return cols
}

// DataDimension returns the dimension of a shape vector. The data is laid
// out as [x y z x y z ...], so dividing by three yields the vertex count.
func (m *Model) DataDimension() int {
	rows, _ := m.normalised.Dims()
	return rows
}

// VertexCount returns the number of mesh vertices, DataDimension()/3.
func (m *Model) VertexCount() int {
	return m.DataDimension() / 3
}

// Triangles returns a copy of the triangle list describing how to assemble
// shape vertices into a mesh.
func (m *Model) Triangles() [][3]int {
	return append([][3]int(nil), m.triangles...)
}

// Mean returns a copy of the mean shape vector.
func (m *Model) Mean() *mat.VecDense {
	return mat.VecDenseCopyOf(m.mean)
}

// MeanAtVertex returns the mean position of the given vertex as a
// homogeneous (x, y, z, 1) point. It returns ErrVertexOutOfRange when the
// index is at or past the vertex count. Negative indices are a caller
// contract violation.
func (m *Model) MeanAtVertex(vertexIndex int) ([4]float64, error) {
	i := vertexIndex * 3
	if i >= m.mean.Len() {
		return [4]float64{}, fmt.Errorf("%w: vertex %d, model has %d vertices",
			ErrVertexOutOfRange, vertexIndex, m.VertexCount())
	}
	return [4]float64{m.mean.AtVec(i), m.mean.AtVec(i + 1), m.mean.AtVec(i + 2), 1.0}, nil
}

// Basis returns a copy of the full PCA basis matrix, normalised or
// unnormalised. Each column is one eigenvector. The copy is owned by the
// caller and may be modified freely.
func (m *Model) Basis(normalised bool) *mat.Dense {
	return mat.DenseCopyOf(m.basisFor(normalised))
}

// BasisAtVertex returns the 3-row block of the requested basis belonging to
// one vertex: rows [3v, 3v+3) across all components. The returned matrix
// aliases the model's internal storage to keep this accessor cheap inside
// fitting loops; callers must treat it as read-only. The vertex index is
// not bounds-checked.
func (m *Model) BasisAtVertex(vertexIndex int, normalised bool) mat.Matrix {
	row := vertexIndex * 3
	return m.basisFor(normalised).Slice(row, row+3, 0, m.NumComponents())
}

func (m *Model) basisFor(normalised bool) *mat.Dense {
	if normalised {
		return m.normalised
	}
	return m.unnormalised
}

// Eigenvalue returns the variance of principal component index. The index
// is not bounds-checked.
func (m *Model) Eigenvalue(index int) float64 {
	return m.eigenvalues[index]
}

// Eigenvalues returns a copy of the full eigenvalue spectrum.
func (m *Model) Eigenvalues() []float64 {
	return append([]float64(nil), m.eigenvalues...)
}

// DrawSample returns the shape instance mean + normalisedBasis * alphas.
// The coefficients are interpreted on a standard-normal scale; the
// eigenvalue scaling is already baked into the normalised basis. A
// coefficient slice shorter than NumComponents is zero-padded, so an empty
// slice yields the mean shape; extra trailing coefficients are ignored.
//
// DrawSample is deterministic: it never touches the model's random source.
func (m *Model) DrawSample(coefficients []float64) *mat.VecDense {
	n := m.NumComponents()
	alphas := make([]float64, n)
	copy(alphas, coefficients)

	sample := mat.NewVecDense(m.DataDimension(), nil)
	sample.MulVec(m.normalised, mat.NewVecDense(n, alphas))
	sample.AddVec(m.mean, sample)
	return sample
}

// DrawRandomSample draws NumComponents coefficients independently from a
// normal distribution with mean 0 and the given standard deviation, then
// returns DrawSample of those coefficients. Each call advances the model's
// random source, so consecutive calls differ unless the model was built
// with NewWithSource and a fixed seed.
func (m *Model) DrawRandomSample(sigma float64) *mat.VecDense {
	dist := distuv.Normal{Mu: 0, Sigma: sigma, Src: m.src}
	coefficients := make([]float64, m.NumComponents())
	for i := range coefficients {
		coefficients[i] = dist.Rand()
	}
	return m.DrawSample(coefficients)
}
