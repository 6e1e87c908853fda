// Package shapemodel implements a PCA-based statistical 3D shape model.
//
// A model consists of a mean shape vector, a PCA eigenvector basis kept in
// both normalised and unnormalised form, the eigenvalue spectrum, and a
// triangle list describing mesh connectivity. Shape vectors are laid out as
// consecutive (x, y, z) triples per vertex, so a model with m vertices has
// data dimension 3m.
package shapemodel

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// NormaliseBasis multiplies each column of an unnormalised PCA basis by the
// square root of its eigenvalue. Column j of the result is eigenvector j
// scaled to the standard deviation of its mode of variation.
//
// The input matrix is not modified. Eigenvalues must be strictly positive
// and eigenvalues[j] must correspond to column j; neither is checked here.
func NormaliseBasis(unnormalised mat.Matrix, eigenvalues []float64) *mat.Dense {
	rows, cols := unnormalised.Dims()
	normalised := mat.NewDense(rows, cols, nil)
	for j := 0; j < cols; j++ {
		s := math.Sqrt(eigenvalues[j])
		for i := 0; i < rows; i++ {
			normalised.Set(i, j, unnormalised.At(i, j)*s)
		}
	}
	return normalised
}

// UnnormaliseBasis divides each column of a normalised PCA basis by the
// square root of its eigenvalue, recovering the unit-scale eigenvectors.
// It is the inverse of NormaliseBasis up to floating-point rounding.
//
// The input matrix is not modified. Eigenvalues must be strictly positive
// and eigenvalues[j] must correspond to column j; neither is checked here.
func UnnormaliseBasis(normalised mat.Matrix, eigenvalues []float64) *mat.Dense {
	rows, cols := normalised.Dims()
	unnormalised := mat.NewDense(rows, cols, nil)
	for j := 0; j < cols; j++ {
		s := 1.0 / math.Sqrt(eigenvalues[j])
		for i := 0; i < rows; i++ {
			unnormalised.Set(i, j, normalised.At(i, j)*s)
		}
	}
	return unnormalised
}
