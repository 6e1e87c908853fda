package geom

import (
	"bufio"
	"fmt"
	"io"
	"os"
)

// WriteOBJ writes the mesh in Wavefront OBJ format. Vertex positions are
// written as "v x y z" lines and triangles as "f" lines with the 1-based
// indices OBJ requires.
func WriteOBJ(w io.Writer, m *Mesh) error {
	bw := bufio.NewWriter(w)

	for _, v := range m.Vertices {
		if _, err := fmt.Fprintf(bw, "v %g %g %g\n", v.X, v.Y, v.Z); err != nil {
			return fmt.Errorf("writing vertex: %w", err)
		}
	}
	for _, tri := range m.Triangles {
		if _, err := fmt.Fprintf(bw, "f %d %d %d\n", tri[0]+1, tri[1]+1, tri[2]+1); err != nil {
			return fmt.Errorf("writing face: %w", err)
		}
	}

	return bw.Flush()
}

// SaveOBJ writes the mesh to a file in Wavefront OBJ format.
func SaveOBJ(path string, m *Mesh) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating OBJ file: %w", err)
	}
	if err := WriteOBJ(f, m); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
