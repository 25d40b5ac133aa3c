package glsl

import (
	"strconv"
	"strings"
)

// Field is one non-opaque uniform declaration extracted from shader source.
//
// Field identity is its name. A Field is immutable once created; merging
// and layout computation never modify fields, they only order and measure
// them.
type Field struct {
	// Name is the declared uniform name.
	Name string

	// Type is the declared GLSL type.
	Type Type

	// Array is the verbatim array suffix including brackets ("[4]"),
	// or the empty string for non-array fields. It is preserved so the
	// rewriter can re-emit the declaration exactly as the author sized it.
	Array string
}

// IsArray reports whether the field carries an array suffix.
func (f Field) IsArray() bool {
	return f.Array != ""
}

// ArrayLen returns the declared array length, or (0, false) when the field
// is not an array or the suffix is not a plain integer literal.
func (f Field) ArrayLen() (int, bool) {
	if f.Array == "" {
		return 0, false
	}
	inner := strings.TrimSpace(strings.Trim(f.Array, "[]"))
	n, err := strconv.Atoi(inner)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// Declaration returns the field as GLSL block-member source text,
// without a trailing semicolon: "mat4 gbufferModelView" or
// "vec4 colors[4]".
func (f Field) Declaration() string {
	return f.Type.Keyword() + " " + f.Name + f.Array
}

// FieldList is an ordered list of fields with unique names.
//
// Insertion order is preserved; Add keeps the first occurrence of a name
// and drops later ones. The list is built once per program compile and
// consumed by the layout calculator and the source rewriter, which both
// depend on iterating the same order.
type FieldList struct {
	fields []Field
	index  map[string]int
}

// NewFieldList returns an empty list ready for Add.
func NewFieldList() *FieldList {
	return &FieldList{index: make(map[string]int)}
}

// Add appends a field unless its name is already present.
// Returns true if the field was added, false if a field with the same
// name was already in the list (the existing entry wins).
func (l *FieldList) Add(f Field) bool {
	if l.index == nil {
		l.index = make(map[string]int)
	}
	if _, ok := l.index[f.Name]; ok {
		return false
	}
	l.index[f.Name] = len(l.fields)
	l.fields = append(l.fields, f)
	return true
}

// Get returns the field with the given name.
func (l *FieldList) Get(name string) (Field, bool) {
	i, ok := l.index[name]
	if !ok {
		return Field{}, false
	}
	return l.fields[i], true
}

// Has reports whether a field with the given name is present.
func (l *FieldList) Has(name string) bool {
	_, ok := l.index[name]
	return ok
}

// Len returns the number of fields.
func (l *FieldList) Len() int {
	return len(l.fields)
}

// At returns the field at position i in insertion order.
func (l *FieldList) At(i int) Field {
	return l.fields[i]
}

// Fields returns the fields in insertion order.
// The returned slice is shared; callers must not modify it.
func (l *FieldList) Fields() []Field {
	return l.fields
}

// Names returns the field names in insertion order.
func (l *FieldList) Names() []string {
	names := make([]string, len(l.fields))
	for i, f := range l.fields {
		names[i] = f.Name
	}
	return names
}
