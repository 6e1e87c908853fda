package formats

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"path/filepath"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/Faultbox/morphable/pkg/shapemodel"
)

// testModel returns a small model with 2 vertices and 1 component.
func testModel() *shapemodel.Model {
	mean := mat.NewVecDense(6, []float64{0, 0, 0, 1, 1, 1})
	basis := mat.NewDense(6, 1, []float64{1, 0, 0, 0, 0, 1})
	return shapemodel.New(mean, basis, []float64{4.0}, [][3]int{{0, 1, 0}})
}

func modelsEqual(t *testing.T, got, want *shapemodel.Model) {
	t.Helper()
	if got.DataDimension() != want.DataDimension() {
		t.Fatalf("DataDimension() = %d, want %d", got.DataDimension(), want.DataDimension())
	}
	if got.NumComponents() != want.NumComponents() {
		t.Fatalf("NumComponents() = %d, want %d", got.NumComponents(), want.NumComponents())
	}
	if !mat.EqualApprox(got.Mean(), want.Mean(), 1e-12) {
		t.Error("mean mismatch after round trip")
	}
	if !mat.EqualApprox(got.Basis(true), want.Basis(true), 1e-12) {
		t.Error("normalised basis mismatch after round trip")
	}
	for i, ev := range want.Eigenvalues() {
		if math.Abs(got.Eigenvalue(i)-ev) > 1e-12 {
			t.Errorf("eigenvalue %d = %v, want %v", i, got.Eigenvalue(i), ev)
		}
	}
	gotTris, wantTris := got.Triangles(), want.Triangles()
	if len(gotTris) != len(wantTris) {
		t.Fatalf("triangle count = %d, want %d", len(gotTris), len(wantTris))
	}
	for i := range wantTris {
		if gotTris[i] != wantTris[i] {
			t.Errorf("triangle %d = %v, want %v", i, gotTris[i], wantTris[i])
		}
	}
}

func TestSM_RoundTrip(t *testing.T) {
	want := testModel()

	var buf bytes.Buffer
	if err := WriteSM(&buf, want); err != nil {
		t.Fatalf("WriteSM() error: %v", err)
	}

	got, err := ParseSM(buf.Bytes())
	if err != nil {
		t.Fatalf("ParseSM() error: %v", err)
	}
	modelsEqual(t, got, want)
}

func TestSM_FileRoundTrip(t *testing.T) {
	want := testModel()
	path := filepath.Join(t.TempDir(), "model.sm")

	if err := SaveSM(path, want); err != nil {
		t.Fatalf("SaveSM() error: %v", err)
	}
	got, err := LoadSM(path)
	if err != nil {
		t.Fatalf("LoadSM() error: %v", err)
	}
	modelsEqual(t, got, want)
}

func TestParseSM_Errors(t *testing.T) {
	var valid bytes.Buffer
	if err := WriteSM(&valid, testModel()); err != nil {
		t.Fatalf("WriteSM() error: %v", err)
	}

	badVersion := append([]byte(nil), valid.Bytes()...)
	badVersion[4] = 9

	badMagic := append([]byte(nil), valid.Bytes()...)
	copy(badMagic, "XXXX")

	// 18-byte file whose header claims gigantic counts; the parser must
	// reject it from the header alone instead of allocating slices for it.
	hostile := []byte("SMDL")
	hostile = append(hostile, 1, 0)
	hostile = binary.LittleEndian.AppendUint32(hostile, 1<<30) // vertices
	hostile = binary.LittleEndian.AppendUint32(hostile, 3<<30) // components
	hostile = binary.LittleEndian.AppendUint32(hostile, 0)     // triangles

	tests := []struct {
		name    string
		data    []byte
		wantErr error
	}{
		{"empty data", []byte{}, ErrTruncatedData},
		{"short preamble", []byte("SMD"), ErrTruncatedData},
		{"bad magic", badMagic, ErrInvalidMagic},
		{"unsupported version", badVersion, ErrUnsupportedVersion},
		{"truncated payload", valid.Bytes()[:40], ErrTruncatedData},
		{"hostile header counts", hostile, ErrTruncatedData},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSM(tt.data)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ParseSM() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseSM_RejectsNonPositiveEigenvalue(t *testing.T) {
	mean := mat.NewVecDense(3, []float64{0, 0, 0})
	basis := mat.NewDense(3, 1, []float64{1, 0, 0})
	m := shapemodel.New(mean, basis, []float64{1.0}, nil)

	var buf bytes.Buffer
	if err := WriteSM(&buf, m); err != nil {
		t.Fatalf("WriteSM() error: %v", err)
	}

	// The eigenvalue is the last float64 before the (empty) triangle list.
	data := buf.Bytes()
	for i := len(data) - 8; i < len(data); i++ {
		data[i] = 0
	}

	if _, err := ParseSM(data); !errors.Is(err, ErrInvalidEigenvalue) {
		t.Errorf("ParseSM() error = %v, want ErrInvalidEigenvalue", err)
	}
}

func TestJSON_RoundTrip(t *testing.T) {
	want := testModel()

	var buf bytes.Buffer
	if err := WriteJSON(&buf, want); err != nil {
		t.Fatalf("WriteJSON() error: %v", err)
	}

	got, err := ParseJSON(buf.Bytes())
	if err != nil {
		t.Fatalf("ParseJSON() error: %v", err)
	}
	modelsEqual(t, got, want)
}

func TestParseJSON_Validation(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr error
	}{
		{
			name:    "mean not a multiple of 3",
			doc:     `{"mean":[1,2],"basis":[[1],[1]],"eigenvalues":[1],"triangles":[]}`,
			wantErr: ErrDimensionMismatch,
		},
		{
			name:    "basis rows disagree with mean",
			doc:     `{"mean":[0,0,0],"basis":[[1]],"eigenvalues":[1],"triangles":[]}`,
			wantErr: ErrDimensionMismatch,
		},
		{
			name:    "ragged basis row",
			doc:     `{"mean":[0,0,0],"basis":[[1,2],[1,2],[1]],"eigenvalues":[1,1],"triangles":[]}`,
			wantErr: ErrDimensionMismatch,
		},
		{
			name:    "no eigenvalues",
			doc:     `{"mean":[0,0,0],"basis":[[],[],[]],"eigenvalues":[],"triangles":[]}`,
			wantErr: ErrDimensionMismatch,
		},
		{
			name:    "negative eigenvalue",
			doc:     `{"mean":[0,0,0],"basis":[[1],[0],[0]],"eigenvalues":[-4],"triangles":[]}`,
			wantErr: ErrInvalidEigenvalue,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseJSON([]byte(tt.doc))
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ParseJSON() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestJSON_FileRoundTrip(t *testing.T) {
	want := testModel()
	path := filepath.Join(t.TempDir(), "model.json")

	if err := SaveJSON(path, want); err != nil {
		t.Fatalf("SaveJSON() error: %v", err)
	}
	got, err := LoadJSON(path)
	if err != nil {
		t.Fatalf("LoadJSON() error: %v", err)
	}
	modelsEqual(t, got, want)
}
