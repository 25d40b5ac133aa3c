// Package layout computes the byte layout of the generated uniform block
// and manages the CPU-side backing buffer written by the host every frame.
//
// The packing rule is std140-style: scalars align to 4 bytes, vec3/vec4 and
// matrix columns to 16, and every array element occupies a 16-byte-aligned
// 16-byte-multiple slot regardless of its base type. The computed offsets
// must agree byte-for-byte with the layout the target compiler derives for
// the same ordered field list; a divergence silently corrupts every value
// written past the first wrong offset, which is why the invariants here are
// tested rather than assumed.
package layout

import (
	"errors"
	"fmt"

	"github.com/gogpu/shaderport/glsl"
)

// BlockAlign is the base alignment of the uniform block: field offsets for
// vectors, matrices, and array elements round up to it, and the total block
// size is always a multiple of it.
const BlockAlign = 16

// DefaultMaxBlockSize is the largest block Compute accepts by default.
// 65536 is the guaranteed minimum for maxUniformBufferRange across the
// target API's implementations.
const DefaultMaxBlockSize = 65536

// ErrBlockTooLarge is returned when the computed block size exceeds the
// configured limit. The failure happens before any allocation.
var ErrBlockTooLarge = errors.New("layout: uniform block exceeds size limit")

// Entry is the placement of one field inside the block.
type Entry struct {
	// Offset is the byte offset from the start of the block.
	Offset int

	// Size is the byte size of the field's data, excluding trailing
	// padding to the next field's alignment.
	Size int
}

// End returns the first byte past the entry's data.
func (e Entry) End() int {
	return e.Offset + e.Size
}

// Layout maps field names to their placement inside the uniform block.
//
// A Layout is computed once per program and never mutated; shader-pack
// reloads recompute it wholesale. Array fields store one entry per
// "name[index]" element plus an alias at the bare name pointing at
// element 0.
type Layout struct {
	entries map[string]Entry
	order   []string // field names in block order, arrays as bare name
	total   int
}

// Entry returns the placement of a field by name.
// Array elements are addressed as "name[2]"; the bare array name aliases
// element 0.
func (l *Layout) Entry(name string) (Entry, bool) {
	e, ok := l.entries[name]
	return e, ok
}

// Offset returns the byte offset of a field, or -1 if the field is not in
// the block.
func (l *Layout) Offset(name string) int {
	e, ok := l.entries[name]
	if !ok {
		return -1
	}
	return e.Offset
}

// TotalSize returns the block size in bytes, rounded up to BlockAlign.
func (l *Layout) TotalSize() int {
	return l.total
}

// FieldNames returns the block's field names in layout order (arrays once,
// under their bare name).
func (l *Layout) FieldNames() []string {
	return l.order
}

// align rounds n up to the next multiple of a. a must be a power of two.
func align(n, a int) int {
	return (n + a - 1) &^ (a - 1)
}

// Compute lays out the merged field list under the std140-style packing
// rule with the default size limit.
func Compute(fields *glsl.FieldList) (*Layout, error) {
	return ComputeWithLimit(fields, DefaultMaxBlockSize)
}

// ComputeWithLimit is Compute with an explicit block size limit.
//
// The walk keeps a running offset: each field rounds the offset up to its
// alignment (BlockAlign for arrays), records its entry, and advances by its
// size (per-element stride rounded to BlockAlign for arrays). The final
// offset rounds up to BlockAlign and becomes the total size.
//
// Compute is a pure function of the field list: identical input always
// produces identical offsets.
func ComputeWithLimit(fields *glsl.FieldList, maxSize int) (*Layout, error) {
	l := &Layout{entries: make(map[string]Entry, fields.Len())}

	offset := 0
	for _, f := range fields.Fields() {
		if f.IsArray() {
			n, ok := f.ArrayLen()
			if !ok {
				return nil, fmt.Errorf("layout: field %s has non-literal array size %q", f.Name, f.Array)
			}
			// Every array element sits in its own 16-byte-aligned,
			// 16-byte-multiple slot, whatever the base type.
			stride := align(f.Type.Size(), BlockAlign)
			offset = align(offset, BlockAlign)
			for i := 0; i < n; i++ {
				l.entries[fmt.Sprintf("%s[%d]", f.Name, i)] = Entry{
					Offset: offset + i*stride,
					Size:   f.Type.Size(),
				}
			}
			// Alias the bare name to element 0 for hosts that write
			// whole arrays starting at the base offset.
			l.entries[f.Name] = Entry{Offset: offset, Size: f.Type.Size()}
			l.order = append(l.order, f.Name)
			offset += n * stride
			continue
		}

		offset = align(offset, f.Type.Align())
		l.entries[f.Name] = Entry{Offset: offset, Size: f.Type.Size()}
		l.order = append(l.order, f.Name)
		offset += f.Type.Size()
	}

	l.total = align(offset, BlockAlign)
	if l.total > maxSize {
		return nil, fmt.Errorf("%w: %d bytes computed, limit %d", ErrBlockTooLarge, l.total, maxSize)
	}
	return l, nil
}
