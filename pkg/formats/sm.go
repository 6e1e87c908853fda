// Package formats provides serialization of shape models: a binary SM
// container and a JSON document form. The loaders are the validation
// boundary of the library — they check the dimensional invariants that the
// shapemodel package itself trusts its callers to uphold.
package formats

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"gonum.org/v1/gonum/mat"

	"github.com/Faultbox/morphable/pkg/shapemodel"
)

// SM format errors.
var (
	ErrInvalidMagic       = errors.New("invalid SM magic: expected 'SMDL'")
	ErrUnsupportedVersion = errors.New("unsupported SM version")
	ErrTruncatedData      = errors.New("truncated SM data")
	ErrInvalidCounts      = errors.New("invalid SM counts")
	ErrInvalidEigenvalue  = errors.New("eigenvalue must be strictly positive")
)

// smMagic identifies a binary shape model file.
const smMagic = "SMDL"

// SMVersion is the binary container version.
type SMVersion struct {
	Major uint8
	Minor uint8
}

// String returns the version as "Major.Minor".
func (v SMVersion) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// Current container version written by WriteSM.
var smCurrentVersion = SMVersion{Major: 1, Minor: 0}

// smHeader is the fixed-size portion after magic and version.
type smHeader struct {
	VertexCount    uint32
	ComponentCount uint32
	TriangleCount  uint32
}

// ParseSM parses a binary shape model from raw bytes and constructs the
// model. Layout after the 6-byte preamble (magic + version): vertex,
// component, and triangle counts as uint32, then the mean (3m float64), the
// normalised basis row-major (3m*n float64), the eigenvalues (n float64),
// and the triangle index list (3t uint32), all little-endian.
func ParseSM(data []byte) (*shapemodel.Model, error) {
	if len(data) < 6 {
		return nil, ErrTruncatedData
	}
	if string(data[0:4]) != smMagic {
		return nil, ErrInvalidMagic
	}
	version := SMVersion{Major: data[4], Minor: data[5]}
	if version.Major != 1 {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedVersion, version)
	}

	r := bytes.NewReader(data[6:])

	var header smHeader
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("%w: reading header", ErrTruncatedData)
	}
	if header.VertexCount == 0 || header.ComponentCount == 0 {
		return nil, fmt.Errorf("%w: %d vertices, %d components",
			ErrInvalidCounts, header.VertexCount, header.ComponentCount)
	}

	// Size the payload from the header before allocating anything, so a
	// hostile header cannot drive an enormous allocation. The per-term
	// bounds keep dim64*n64 from overflowing uint64.
	rem := uint64(r.Len())
	dim64 := 3 * uint64(header.VertexCount)
	n64 := uint64(header.ComponentCount)
	t64 := uint64(header.TriangleCount)
	if dim64 > rem/8 || n64 > rem/8 || t64 > rem/12 ||
		n64 > (rem/8)/dim64 ||
		8*(dim64+dim64*n64+n64)+12*t64 > rem {
		return nil, fmt.Errorf("%w: header claims %d vertices, %d components, %d triangles",
			ErrTruncatedData, header.VertexCount, header.ComponentCount, header.TriangleCount)
	}

	dim := 3 * int(header.VertexCount)
	n := int(header.ComponentCount)

	meanData := make([]float64, dim)
	if err := binary.Read(r, binary.LittleEndian, meanData); err != nil {
		return nil, fmt.Errorf("%w: reading mean", ErrTruncatedData)
	}

	basisData := make([]float64, dim*n)
	if err := binary.Read(r, binary.LittleEndian, basisData); err != nil {
		return nil, fmt.Errorf("%w: reading basis", ErrTruncatedData)
	}

	eigenvalues := make([]float64, n)
	if err := binary.Read(r, binary.LittleEndian, eigenvalues); err != nil {
		return nil, fmt.Errorf("%w: reading eigenvalues", ErrTruncatedData)
	}
	for i, ev := range eigenvalues {
		if ev <= 0 {
			return nil, fmt.Errorf("%w: eigenvalue %d = %v", ErrInvalidEigenvalue, i, ev)
		}
	}

	indices := make([]uint32, 3*int(header.TriangleCount))
	if err := binary.Read(r, binary.LittleEndian, indices); err != nil {
		return nil, fmt.Errorf("%w: reading triangles", ErrTruncatedData)
	}
	triangles := make([][3]int, header.TriangleCount)
	for i := range triangles {
		triangles[i] = [3]int{int(indices[3*i]), int(indices[3*i+1]), int(indices[3*i+2])}
	}

	return shapemodel.New(
		mat.NewVecDense(dim, meanData),
		mat.NewDense(dim, n, basisData),
		eigenvalues,
		triangles,
	), nil
}

// LoadSM parses a binary shape model file from disk.
func LoadSM(path string) (*shapemodel.Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading SM file: %w", err)
	}
	return ParseSM(data)
}

// WriteSM serializes a model to the binary SM container.
func WriteSM(w io.Writer, m *shapemodel.Model) error {
	if _, err := w.Write([]byte(smMagic)); err != nil {
		return fmt.Errorf("writing magic: %w", err)
	}
	if _, err := w.Write([]byte{smCurrentVersion.Major, smCurrentVersion.Minor}); err != nil {
		return fmt.Errorf("writing version: %w", err)
	}

	triangles := m.Triangles()
	header := smHeader{
		VertexCount:    uint32(m.VertexCount()),
		ComponentCount: uint32(m.NumComponents()),
		TriangleCount:  uint32(len(triangles)),
	}
	if err := binary.Write(w, binary.LittleEndian, header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	mean := m.Mean()
	if err := binary.Write(w, binary.LittleEndian, mean.RawVector().Data); err != nil {
		return fmt.Errorf("writing mean: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, m.Basis(true).RawMatrix().Data); err != nil {
		return fmt.Errorf("writing basis: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, m.Eigenvalues()); err != nil {
		return fmt.Errorf("writing eigenvalues: %w", err)
	}

	indices := make([]uint32, 0, 3*len(triangles))
	for _, tri := range triangles {
		indices = append(indices, uint32(tri[0]), uint32(tri[1]), uint32(tri[2]))
	}
	if err := binary.Write(w, binary.LittleEndian, indices); err != nil {
		return fmt.Errorf("writing triangles: %w", err)
	}

	return nil
}

// SaveSM writes a model to a binary SM file on disk.
func SaveSM(path string, m *shapemodel.Model) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating SM file: %w", err)
	}
	if err := WriteSM(f, m); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
