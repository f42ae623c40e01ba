package level

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"navbuild/recast"
)

// ReadObj parses the vertex and face records of a Wavefront OBJ stream.
// Polygonal faces are fanned into triangles. Other records are ignored.
func ReadObj(r io.Reader) ([]float32, []int, error) {
	var verts []float32
	var tris []int
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "v":
			if len(fields) < 4 {
				return nil, nil, fmt.Errorf("line %d: vertex needs 3 coordinates, found %d", line, len(fields)-1)
			}
			for _, f := range fields[1:4] {
				c, err := strconv.ParseFloat(f, 32)
				if err != nil {
					return nil, nil, fmt.Errorf("line %d: %w", line, err)
				}
				verts = append(verts, float32(c))
			}
		case "f":
			if len(fields) < 4 {
				return nil, nil, fmt.Errorf("line %d: face needs 3 vertices, found %d", line, len(fields)-1)
			}
			face := make([]int, 0, len(fields)-1)
			for _, f := range fields[1:] {
				idx, err := faceVertex(f, len(verts)/3)
				if err != nil {
					return nil, nil, fmt.Errorf("line %d: %w", line, err)
				}
				face = append(face, idx)
			}
			for j := 2; j < len(face); j++ {
				tris = append(tris, face[0], face[j-1], face[j])
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, err
	}
	return verts, tris, nil
}

// faceVertex resolves a "v/vt/vn" reference. Positive indices are 1-based,
// negative ones count back from the last vertex read.
func faceVertex(ref string, nverts int) (int, error) {
	v, _, _ := strings.Cut(ref, "/")
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, err
	}
	switch {
	case i > 0:
		i--
	case i < 0:
		i += nverts
	default:
		return 0, fmt.Errorf("vertex index 0 in %q", ref)
	}
	if i < 0 || i >= nverts {
		return 0, fmt.Errorf("vertex %q out of range, %d vertices read", ref, nverts)
	}
	return i, nil
}

// LoadObj reads an OBJ file into an InputGeom.
func LoadObj(path string) (*recast.InputGeom, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	verts, tris, err := ReadObj(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return recast.NewInputGeom(verts, tris)
}
