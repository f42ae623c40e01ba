package level

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"navbuild/recast"

	"github.com/vmihailenco/msgpack/v5"
)

// MeshDump is the msgpack export layout.
type MeshDump struct {
	Verts []float32  `msgpack:"verts"`
	Tris  []int32    `msgpack:"tris"`
	Bmin  [3]float32 `msgpack:"bmin"`
	Bmax  [3]float32 `msgpack:"bmax"`
}

func WriteObj(w io.Writer, g *recast.InputGeom) error {
	bw := bufio.NewWriter(w)
	verts, tris := g.Verts(), g.Tris()
	for i := 0; i < len(verts); i += 3 {
		fmt.Fprintf(bw, "v %g %g %g\n", verts[i], verts[i+1], verts[i+2])
	}
	for i := 0; i < len(tris); i += 3 {
		fmt.Fprintf(bw, "f %d %d %d\n", tris[i]+1, tris[i+1]+1, tris[i+2]+1)
	}
	return bw.Flush()
}

func WriteMsgpack(w io.Writer, g *recast.InputGeom) error {
	b := g.Bounds()
	dump := &MeshDump{
		Verts: g.Verts(),
		Tris:  make([]int32, len(g.Tris())),
		Bmin:  b.Min,
		Bmax:  b.Max,
	}
	for i, t := range g.Tris() {
		dump.Tris[i] = int32(t)
	}
	return msgpack.NewEncoder(w).Encode(dump)
}

// Export writes g to path: msgpack for .msgpack and .mpk, OBJ otherwise.
func Export(g *recast.InputGeom, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".msgpack", ".mpk":
		err = WriteMsgpack(f, g)
	default:
		err = WriteObj(f, g)
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return err
}
