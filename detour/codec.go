package detour

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

func align4(n int) int { return (n + 3) &^ 3 }

// DataSize returns the encoded size of a tile with the counts in hdr.
func (hdr *MeshHeader) DataSize() int {
	return align4(binary.Size(MeshHeader{})) +
		align4(int(hdr.VertCount)*3*4) +
		align4(int(hdr.PolyCount)*binary.Size(Poly{})) +
		align4(int(hdr.MaxLinkCount)*binary.Size(Link{})) +
		align4(int(hdr.DetailMeshCount)*binary.Size(PolyDetail{})) +
		align4(int(hdr.DetailVertCount)*3*4) +
		align4(int(hdr.DetailTriCount)*4) +
		align4(int(hdr.BvNodeCount)*binary.Size(BVNode{})) +
		align4(int(hdr.OffMeshConCount)*binary.Size(OffMeshConnection{}))
}

// MarshalBinary encodes the tile in little endian with every section 4-byte aligned.
func (d *MeshData) MarshalBinary() ([]byte, error) {
	if err := d.checkCounts(); err != nil {
		return nil, err
	}
	buf := bytes.NewBuffer(make([]byte, 0, d.Header.DataSize()))
	sections := []any{
		&d.Header,
		d.Verts,
		d.Polys,
		d.Links,
		d.DetailMeshes,
		d.DetailVerts,
		d.DetailTris,
		d.BvTree,
		d.OffMeshCons,
	}
	for _, s := range sections {
		if err := binary.Write(buf, binary.LittleEndian, s); err != nil {
			return nil, err
		}
		if pad := align4(buf.Len()) - buf.Len(); pad > 0 {
			buf.Write(make([]byte, pad))
		}
	}
	return buf.Bytes(), nil
}

func (d *MeshData) checkCounts() error {
	h := &d.Header
	switch {
	case len(d.Verts) != int(h.VertCount)*3,
		len(d.Polys) != int(h.PolyCount),
		len(d.Links) != int(h.MaxLinkCount),
		len(d.DetailMeshes) != int(h.DetailMeshCount),
		len(d.DetailVerts) != int(h.DetailVertCount)*3,
		len(d.DetailTris) != int(h.DetailTriCount)*4,
		len(d.BvTree) != int(h.BvNodeCount),
		len(d.OffMeshCons) != int(h.OffMeshConCount):
		return fmt.Errorf("%w: section lengths disagree with header", ErrInvalidParams)
	}
	return nil
}

// Decode parses tile data produced by MarshalBinary.
func Decode(data []byte) (*MeshData, error) {
	var d MeshData
	r := bytes.NewReader(data)
	if err := binary.Read(r, binary.LittleEndian, &d.Header); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTruncated, err)
	}
	h := &d.Header
	if h.Magic != NavMeshMagic {
		return nil, ErrWrongMagic
	}
	if h.Version != NavMeshVersion {
		return nil, ErrWrongVersion
	}
	for _, c := range []int32{h.VertCount, h.PolyCount, h.MaxLinkCount, h.DetailMeshCount,
		h.DetailVertCount, h.DetailTriCount, h.BvNodeCount, h.OffMeshConCount} {
		if c < 0 {
			return nil, fmt.Errorf("%w: negative count in header", ErrInvalidParams)
		}
	}
	if size := h.DataSize(); size > len(data) {
		return nil, fmt.Errorf("%w: need %d bytes, have %d", ErrTruncated, size, len(data))
	}

	d.Verts = make([]float32, h.VertCount*3)
	d.Polys = make([]Poly, h.PolyCount)
	d.Links = make([]Link, h.MaxLinkCount)
	d.DetailMeshes = make([]PolyDetail, h.DetailMeshCount)
	d.DetailVerts = make([]float32, h.DetailVertCount*3)
	d.DetailTris = make([]uint8, h.DetailTriCount*4)
	d.BvTree = make([]BVNode, h.BvNodeCount)
	d.OffMeshCons = make([]OffMeshConnection, h.OffMeshConCount)

	off := align4(binary.Size(MeshHeader{}))
	sections := []any{d.Verts, d.Polys, d.Links, d.DetailMeshes, d.DetailVerts, d.DetailTris, d.BvTree, d.OffMeshCons}
	for _, s := range sections {
		n := binary.Size(s)
		if err := binary.Read(bytes.NewReader(data[off:off+n]), binary.LittleEndian, s); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrTruncated, err)
		}
		off += align4(n)
	}
	return &d, nil
}
