package layout

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// Buffer write errors.
var (
	// ErrUnknownField is returned when writing a field the layout does
	// not contain.
	ErrUnknownField = errors.New("layout: field not in block")

	// ErrWriteTooLarge is returned when a write would exceed the field's
	// allotted byte range.
	ErrWriteTooLarge = errors.New("layout: write exceeds field size")
)

// Buffer is the CPU-side backing memory for one program's uniform block.
//
// The host's per-frame uniform writer fills it through the typed setters
// and uploads Bytes() to the GPU. Every setter bounds-checks against the
// field's layout entry, so a write can never spill into a neighbouring
// field.
//
// Buffer is not safe for concurrent use; the per-frame uniform update runs
// on a single thread.
type Buffer struct {
	layout *Layout
	data   []byte
}

// NewBuffer allocates a zeroed backing buffer for the given layout.
func NewBuffer(l *Layout) *Buffer {
	return &Buffer{layout: l, data: make([]byte, l.TotalSize())}
}

// Layout returns the layout the buffer was allocated for.
func (b *Buffer) Layout() *Layout {
	return b.layout
}

// Bytes returns the backing memory. The slice is the live buffer, not a
// copy; it is valid until the program is destroyed.
func (b *Buffer) Bytes() []byte {
	return b.data
}

// put locates a field and bounds-checks a write of n bytes.
func (b *Buffer) put(name string, n int) (Entry, error) {
	e, ok := b.layout.Entry(name)
	if !ok {
		return Entry{}, fmt.Errorf("%w: %s", ErrUnknownField, name)
	}
	if n > e.Size {
		return Entry{}, fmt.Errorf("%w: %s is %d bytes, writing %d", ErrWriteTooLarge, name, e.Size, n)
	}
	return e, nil
}

// SetFloat32 writes a float scalar.
func (b *Buffer) SetFloat32(name string, v float32) error {
	e, err := b.put(name, 4)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(b.data[e.Offset:], math.Float32bits(v))
	return nil
}

// SetInt32 writes a signed integer scalar.
func (b *Buffer) SetInt32(name string, v int32) error {
	e, err := b.put(name, 4)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(b.data[e.Offset:], uint32(v))
	return nil
}

// SetUint32 writes an unsigned integer scalar.
func (b *Buffer) SetUint32(name string, v uint32) error {
	e, err := b.put(name, 4)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(b.data[e.Offset:], v)
	return nil
}

// SetBool writes a boolean scalar (0 or 1 in 4 bytes).
func (b *Buffer) SetBool(name string, v bool) error {
	var u uint32
	if v {
		u = 1
	}
	return b.SetUint32(name, u)
}

// SetVec writes 2, 3, or 4 float components.
func (b *Buffer) SetVec(name string, v ...float32) error {
	e, err := b.put(name, 4*len(v))
	if err != nil {
		return err
	}
	for i, c := range v {
		binary.LittleEndian.PutUint32(b.data[e.Offset+4*i:], math.Float32bits(c))
	}
	return nil
}

// SetVec3 writes a three-component float vector.
func (b *Buffer) SetVec3(name string, x, y, z float32) error {
	return b.SetVec(name, x, y, z)
}

// SetVec4 writes a four-component float vector.
func (b *Buffer) SetVec4(name string, x, y, z, w float32) error {
	return b.SetVec(name, x, y, z, w)
}

// SetMat4 writes a 4x4 float matrix in column-major order.
func (b *Buffer) SetMat4(name string, m *[16]float32) error {
	e, err := b.put(name, 64)
	if err != nil {
		return err
	}
	for i, c := range m {
		binary.LittleEndian.PutUint32(b.data[e.Offset+4*i:], math.Float32bits(c))
	}
	return nil
}

// SetMat3 writes a 3x3 float matrix in column-major order. Each column
// occupies a 16-byte slot, so the nine values are written with a
// 16-byte column stride.
func (b *Buffer) SetMat3(name string, m *[9]float32) error {
	e, err := b.put(name, 48)
	if err != nil {
		return err
	}
	for col := 0; col < 3; col++ {
		for row := 0; row < 3; row++ {
			off := e.Offset + col*16 + row*4
			binary.LittleEndian.PutUint32(b.data[off:], math.Float32bits(m[col*3+row]))
		}
	}
	return nil
}
