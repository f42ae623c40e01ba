package detour

import (
	"encoding/binary"
	"errors"
	"reflect"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestCodecRoundTrip(t *testing.T) {
	p := twoQuads()
	p.OffMeshLinks = []OffMeshLink{{Start: mgl32.Vec3{5, 0, 5}, End: mgl32.Vec3{50, 0, 5}, Radius: 2, Area: 63, Flags: 1}}
	d, err := CreateNavMeshData(p)
	if err != nil {
		t.Fatal(err)
	}
	data, err := d.MarshalBinary()
	if err != nil {
		t.Fatal(err)
	}
	if len(data) != d.Header.DataSize() {
		t.Fatalf("encoded %d bytes, header says %d", len(data), d.Header.DataSize())
	}
	if len(data)%4 != 0 {
		t.Errorf("size %d not 4-byte aligned", len(data))
	}
	if got := int32(binary.LittleEndian.Uint32(data)); got != NavMeshMagic {
		t.Errorf("leading magic %x", got)
	}

	back, err := Decode(data)
	if err != nil {
		t.Fatal(err)
	}
	if back.Header != d.Header {
		t.Errorf("header mismatch:\n got %+v\nwant %+v", back.Header, d.Header)
	}
	if !reflect.DeepEqual(back.Polys, d.Polys) || !reflect.DeepEqual(back.BvTree, d.BvTree) {
		t.Error("polys or bv tree differ after decode")
	}
	if !reflect.DeepEqual(back.OffMeshCons, d.OffMeshCons) {
		t.Error("off-mesh connections differ after decode")
	}
	if len(back.DetailTris) != len(d.DetailTris) || len(back.Verts) != len(d.Verts) {
		t.Error("section lengths differ after decode")
	}
}

func TestDecodeRejects(t *testing.T) {
	d, err := CreateNavMeshData(twoQuads())
	if err != nil {
		t.Fatal(err)
	}
	good, err := d.MarshalBinary()
	if err != nil {
		t.Fatal(err)
	}

	badMagic := append([]byte(nil), good...)
	badMagic[0] ^= 0xff
	badVersion := append([]byte(nil), good...)
	binary.LittleEndian.PutUint32(badVersion[4:], 6)

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"short header", good[:40], ErrTruncated},
		{"short body", good[:len(good)-4], ErrTruncated},
		{"magic", badMagic, ErrWrongMagic},
		{"version", badVersion, ErrWrongVersion},
	}
	for _, tt := range tests {
		if _, err := Decode(tt.data); !errors.Is(err, tt.want) {
			t.Errorf("%s: error = %v, want %v", tt.name, err, tt.want)
		}
	}
}

func TestMarshalChecksCounts(t *testing.T) {
	d, err := CreateNavMeshData(twoQuads())
	if err != nil {
		t.Fatal(err)
	}
	d.Polys = d.Polys[:1]
	if _, err := d.MarshalBinary(); !errors.Is(err, ErrInvalidParams) {
		t.Errorf("error = %v, want ErrInvalidParams", err)
	}
}
