package shapemodel

import (
	"math"
	"math/rand/v2"
	"testing"

	"gonum.org/v1/gonum/mat"
)

const tolerance = 1e-9

func matricesEqual(t *testing.T, got, want mat.Matrix, tol float64) {
	t.Helper()
	gr, gc := got.Dims()
	wr, wc := want.Dims()
	if gr != wr || gc != wc {
		t.Fatalf("dimension mismatch: got %dx%d, want %dx%d", gr, gc, wr, wc)
	}
	for i := 0; i < gr; i++ {
		for j := 0; j < gc; j++ {
			if math.Abs(got.At(i, j)-want.At(i, j)) > tol {
				t.Errorf("element (%d,%d) = %v, want %v", i, j, got.At(i, j), want.At(i, j))
			}
		}
	}
}

func TestNormaliseBasis_ScalesColumns(t *testing.T) {
	// 6x2 basis, eigenvalues 4 and 9: columns scale by 2 and 3.
	unnormalised := mat.NewDense(6, 2, []float64{
		1, 0,
		0, 1,
		1, 1,
		0, 0,
		2, -1,
		-1, 2,
	})
	eigenvalues := []float64{4, 9}

	got := NormaliseBasis(unnormalised, eigenvalues)

	want := mat.NewDense(6, 2, []float64{
		2, 0,
		0, 3,
		2, 3,
		0, 0,
		4, -3,
		-2, 6,
	})
	matricesEqual(t, got, want, tolerance)
}

func TestUnnormaliseBasis_ScalesColumns(t *testing.T) {
	normalised := mat.NewDense(6, 1, []float64{1, 0, 0, 0, 0, 1})
	eigenvalues := []float64{4}

	got := UnnormaliseBasis(normalised, eigenvalues)

	want := mat.NewDense(6, 1, []float64{0.5, 0, 0, 0, 0, 0.5})
	matricesEqual(t, got, want, tolerance)
}

func TestBasisNormalisation_RoundTrip(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))

	rows, cols := 12, 4
	data := make([]float64, rows*cols)
	for i := range data {
		data[i] = rng.NormFloat64()
	}
	basis := mat.NewDense(rows, cols, data)

	eigenvalues := make([]float64, cols)
	for i := range eigenvalues {
		eigenvalues[i] = 0.1 + rng.Float64()*10
	}

	t.Run("unnormalise of normalise", func(t *testing.T) {
		got := UnnormaliseBasis(NormaliseBasis(basis, eigenvalues), eigenvalues)
		matricesEqual(t, got, basis, 1e-9)
	})

	t.Run("normalise of unnormalise", func(t *testing.T) {
		got := NormaliseBasis(UnnormaliseBasis(basis, eigenvalues), eigenvalues)
		matricesEqual(t, got, basis, 1e-9)
	})
}

func TestNormaliseBasis_DoesNotMutateInput(t *testing.T) {
	basis := mat.NewDense(3, 1, []float64{1, 2, 3})
	NormaliseBasis(basis, []float64{16})
	UnnormaliseBasis(basis, []float64{16})

	want := mat.NewDense(3, 1, []float64{1, 2, 3})
	matricesEqual(t, basis, want, 0)
}
