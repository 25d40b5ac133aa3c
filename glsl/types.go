// Package glsl scans GLSL shader source for uniform and sampler
// declarations and merges the results across shader stages.
//
// The scanner is deliberately not a GLSL parser. Uniform declarations can
// only occur at file scope, so a line-oriented scan with comment tracking
// and an anchored declaration pattern is sufficient and much cheaper than
// building an AST.
package glsl

import "fmt"

// Type identifies a non-opaque GLSL uniform type.
//
// Each type carries the alignment and size it occupies inside a uniform
// block under std140-style packing: scalars align to 4 bytes, two-component
// vectors to 8, three- and four-component vectors to 16, and matrices are
// laid out as 16-byte-aligned column blocks.
type Type int

const (
	// TypeUnknown is the zero value; it is never produced by the scanner.
	TypeUnknown Type = iota

	// TypeFloat is a 32-bit float scalar.
	TypeFloat

	// TypeInt is a 32-bit signed integer scalar.
	TypeInt

	// TypeUint is a 32-bit unsigned integer scalar.
	TypeUint

	// TypeBool is a boolean scalar (4 bytes in a uniform block).
	TypeBool

	// TypeVec2 is a two-component float vector.
	TypeVec2

	// TypeVec3 is a three-component float vector.
	TypeVec3

	// TypeVec4 is a four-component float vector.
	TypeVec4

	// TypeIVec2 is a two-component signed integer vector.
	TypeIVec2

	// TypeIVec3 is a three-component signed integer vector.
	TypeIVec3

	// TypeIVec4 is a four-component signed integer vector.
	TypeIVec4

	// TypeUVec2 is a two-component unsigned integer vector.
	TypeUVec2

	// TypeUVec3 is a three-component unsigned integer vector.
	TypeUVec3

	// TypeUVec4 is a four-component unsigned integer vector.
	TypeUVec4

	// TypeBVec2 is a two-component boolean vector.
	TypeBVec2

	// TypeBVec3 is a three-component boolean vector.
	TypeBVec3

	// TypeBVec4 is a four-component boolean vector.
	TypeBVec4

	// TypeMat2 is a 2x2 float matrix (two 16-byte column slots).
	TypeMat2

	// TypeMat3 is a 3x3 float matrix (three 16-byte column slots).
	TypeMat3

	// TypeMat4 is a 4x4 float matrix (four 16-byte column slots).
	TypeMat4
)

// typeInfo holds the GLSL keyword plus std140 alignment and size for a Type.
type typeInfo struct {
	keyword string
	align   int
	size    int
}

// typeTable maps Type to its keyword, alignment, and size.
// Boolean types occupy 4 bytes per component like the integer types.
var typeTable = [...]typeInfo{
	TypeUnknown: {"", 0, 0},
	TypeFloat:   {"float", 4, 4},
	TypeInt:     {"int", 4, 4},
	TypeUint:    {"uint", 4, 4},
	TypeBool:    {"bool", 4, 4},
	TypeVec2:    {"vec2", 8, 8},
	TypeVec3:    {"vec3", 16, 12},
	TypeVec4:    {"vec4", 16, 16},
	TypeIVec2:   {"ivec2", 8, 8},
	TypeIVec3:   {"ivec3", 16, 12},
	TypeIVec4:   {"ivec4", 16, 16},
	TypeUVec2:   {"uvec2", 8, 8},
	TypeUVec3:   {"uvec3", 16, 12},
	TypeUVec4:   {"uvec4", 16, 16},
	TypeBVec2:   {"bvec2", 8, 8},
	TypeBVec3:   {"bvec3", 16, 12},
	TypeBVec4:   {"bvec4", 16, 16},
	TypeMat2:    {"mat2", 16, 32},
	TypeMat3:    {"mat3", 16, 48},
	TypeMat4:    {"mat4", 16, 64},
}

// keywordTypes maps GLSL keywords back to Type for the scanner.
var keywordTypes = func() map[string]Type {
	m := make(map[string]Type, len(typeTable))
	for t, info := range typeTable {
		if info.keyword != "" {
			m[info.keyword] = Type(t)
		}
	}
	return m
}()

// TypeFromKeyword returns the Type for a GLSL type keyword.
// Returns (TypeUnknown, false) for keywords that are not block-eligible
// uniform types (including all opaque types).
func TypeFromKeyword(keyword string) (Type, bool) {
	t, ok := keywordTypes[keyword]
	return t, ok
}

// Keyword returns the GLSL source keyword for the type ("vec3", "mat4", ...).
func (t Type) Keyword() string {
	if t <= TypeUnknown || int(t) >= len(typeTable) {
		return "unknown"
	}
	return typeTable[t].keyword
}

// Align returns the std140 base alignment of the type in bytes.
func (t Type) Align() int {
	if t <= TypeUnknown || int(t) >= len(typeTable) {
		return 0
	}
	return typeTable[t].align
}

// Size returns the std140 size of the type in bytes, excluding any
// trailing padding to the next member's alignment.
func (t Type) Size() int {
	if t <= TypeUnknown || int(t) >= len(typeTable) {
		return 0
	}
	return typeTable[t].size
}

// String returns the GLSL keyword for debugging output.
func (t Type) String() string {
	if t <= TypeUnknown || int(t) >= len(typeTable) {
		return fmt.Sprintf("Type(%d)", int(t))
	}
	return typeTable[t].keyword
}
