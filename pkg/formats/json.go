package formats

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"gonum.org/v1/gonum/mat"

	"github.com/Faultbox/morphable/pkg/shapemodel"
)

// ErrDimensionMismatch is returned when the parts of a JSON model document
// do not agree on the data dimension or component count.
var ErrDimensionMismatch = errors.New("model dimension mismatch")

// jsonModel is the on-disk JSON document. The basis is stored row-major:
// basis[i][j] is row i (data dimension), column j (component).
type jsonModel struct {
	Mean        []float64   `json:"mean"`
	Basis       [][]float64 `json:"basis"`
	Eigenvalues []float64   `json:"eigenvalues"`
	Triangles   [][3]int    `json:"triangles"`
}

// ParseJSON decodes a JSON model document and constructs the model. Unlike
// the shapemodel constructor, this loader validates the dimensional
// invariants: mean length divisible by 3, basis rows matching the mean,
// every basis row as wide as the eigenvalue vector, and strictly positive
// eigenvalues.
func ParseJSON(data []byte) (*shapemodel.Model, error) {
	var doc jsonModel
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding model document: %w", err)
	}

	dim := len(doc.Mean)
	n := len(doc.Eigenvalues)
	if dim == 0 || dim%3 != 0 {
		return nil, fmt.Errorf("%w: mean length %d is not a positive multiple of 3",
			ErrDimensionMismatch, dim)
	}
	if len(doc.Basis) != dim {
		return nil, fmt.Errorf("%w: basis has %d rows, mean has %d entries",
			ErrDimensionMismatch, len(doc.Basis), dim)
	}
	if n == 0 {
		return nil, fmt.Errorf("%w: no eigenvalues", ErrDimensionMismatch)
	}

	basis := mat.NewDense(dim, n, nil)
	for i, row := range doc.Basis {
		if len(row) != n {
			return nil, fmt.Errorf("%w: basis row %d has %d columns, expected %d",
				ErrDimensionMismatch, i, len(row), n)
		}
		basis.SetRow(i, row)
	}

	for i, ev := range doc.Eigenvalues {
		if ev <= 0 {
			return nil, fmt.Errorf("%w: eigenvalue %d = %v", ErrInvalidEigenvalue, i, ev)
		}
	}

	return shapemodel.New(
		mat.NewVecDense(dim, doc.Mean),
		basis,
		doc.Eigenvalues,
		doc.Triangles,
	), nil
}

// LoadJSON parses a JSON model file from disk.
func LoadJSON(path string) (*shapemodel.Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading model document: %w", err)
	}
	return ParseJSON(data)
}

// WriteJSON serializes a model as an indented JSON document.
func WriteJSON(w io.Writer, m *shapemodel.Model) error {
	dim := m.DataDimension()
	n := m.NumComponents()
	basis := m.Basis(true)

	doc := jsonModel{
		Mean:        m.Mean().RawVector().Data,
		Basis:       make([][]float64, dim),
		Eigenvalues: m.Eigenvalues(),
		Triangles:   m.Triangles(),
	}
	for i := 0; i < dim; i++ {
		row := make([]float64, n)
		mat.Row(row, i, basis)
		doc.Basis[i] = row
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encoding model document: %w", err)
	}
	return nil
}

// SaveJSON writes a model to a JSON document file on disk.
func SaveJSON(path string, m *shapemodel.Model) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating model document: %w", err)
	}
	if err := WriteJSON(f, m); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
