package index

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// Binary index file layout, little-endian:
// magic "RRIX", format version u32, dimension u32, count u32,
// then count*dimension float32 IEEE-754 bit patterns.
const (
	magic         = "RRIX"
	formatVersion = 1
)

// WriteTo serializes the index. The stream is opaque to callers and loaded
// wholesale, never partially read.
func (f *Flat) WriteTo(w io.Writer) error {
	bw := bufio.NewWriter(w)

	if _, err := bw.WriteString(magic); err != nil {
		return fmt.Errorf("write magic: %w", err)
	}
	for _, v := range []uint32{formatVersion, uint32(f.dim), uint32(len(f.vectors))} {
		if err := binary.Write(bw, binary.LittleEndian, v); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}

	buf := make([]byte, 4)
	for _, vec := range f.vectors {
		for _, x := range vec {
			binary.LittleEndian.PutUint32(buf, math.Float32bits(x))
			if _, err := bw.Write(buf); err != nil {
				return fmt.Errorf("write vector data: %w", err)
			}
		}
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("flush index: %w", err)
	}
	return nil
}

// Read deserializes an index written by WriteTo.
func Read(r io.Reader) (*Flat, error) {
	br := bufio.NewReader(r)

	head := make([]byte, len(magic))
	if _, err := io.ReadFull(br, head); err != nil {
		return nil, fmt.Errorf("read magic: %w", err)
	}
	if string(head) != magic {
		return nil, fmt.Errorf("bad index magic %q", head)
	}

	var version, dim, count uint32
	for _, p := range []*uint32{&version, &dim, &count} {
		if err := binary.Read(br, binary.LittleEndian, p); err != nil {
			return nil, fmt.Errorf("read header: %w", err)
		}
	}
	if version != formatVersion {
		return nil, fmt.Errorf("unsupported index format version %d", version)
	}
	if count > 0 && dim == 0 {
		return nil, fmt.Errorf("corrupt index header: %d vectors with dimension 0", count)
	}

	idx := &Flat{dim: int(dim)}
	buf := make([]byte, 4)
	for i := uint32(0); i < count; i++ {
		vec := make([]float32, dim)
		for j := range vec {
			if _, err := io.ReadFull(br, buf); err != nil {
				return nil, fmt.Errorf("read vector %d: %w", i, err)
			}
			vec[j] = math.Float32frombits(binary.LittleEndian.Uint32(buf))
		}
		idx.vectors = append(idx.vectors, vec)
	}

	return idx, nil
}
