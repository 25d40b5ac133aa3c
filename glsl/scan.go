package glsl

import (
	"regexp"
	"strings"
)

// Opaque is a sampler, image, atomic counter, or subpass input declaration.
//
// Opaque uniforms never enter the generated uniform block; the target API
// binds them individually, so the scanner reports them on a separate list
// that the rewriter and the binding pass consume.
type Opaque struct {
	// Name is the declared uniform name.
	Name string

	// TypeKeyword is the verbatim GLSL type ("sampler2D", "sampler2DShadow").
	TypeKeyword string
}

// IsShadow reports whether the opaque uniform is a hardware
// shadow-comparison sampler variant.
func (o Opaque) IsShadow() bool {
	return strings.HasSuffix(o.TypeKeyword, "Shadow")
}

// declPattern matches a file-scope uniform declaration on a single
// comment-scrubbed line:
//
//	[layout(...)] uniform [precision] TYPE NAME [ [N] ] [= initializer];
//
// The pattern anchors on the trailing semicolon rather than balancing
// parentheses, so an initializer like "= vec3(foo(1.0), 0.0, 0.0);" cannot
// break the match.
var declPattern = regexp.MustCompile(
	`(?:layout\s*\([^)]*\)\s*)?\buniform\b\s+(?:(?:highp|mediump|lowp)\s+)?` +
		`([A-Za-z_][A-Za-z0-9_]*)\s+([A-Za-z_][A-Za-z0-9_]*)\s*(\[[^\]]*\])?\s*(?:=[^;]*)?;`)

// opaqueKeyword reports whether a GLSL type keyword names an opaque type:
// any sampler or image variant, atomic counters, or subpass inputs.
func opaqueKeyword(keyword string) bool {
	return strings.Contains(keyword, "sampler") ||
		strings.Contains(keyword, "image") ||
		keyword == "atomic_uint" ||
		strings.HasPrefix(keyword, "subpassInput")
}

// ScrubLine removes comments from one source line.
//
// inBlock is the carried block-comment state from the previous line. The
// returned bool is the state after this line: a "/*" without a matching
// "*/" leaves the scrubber inside a block comment, and subsequent lines
// yield no code until a line containing the terminator, whose remainder is
// scrubbed normally.
func ScrubLine(line string, inBlock bool) (string, bool) {
	var b strings.Builder
	i := 0
	for i < len(line) {
		if inBlock {
			end := strings.Index(line[i:], "*/")
			if end < 0 {
				return b.String(), true
			}
			i += end + 2
			inBlock = false
			continue
		}
		if strings.HasPrefix(line[i:], "//") {
			break
		}
		if strings.HasPrefix(line[i:], "/*") {
			inBlock = true
			i += 2
			continue
		}
		b.WriteByte(line[i])
		i++
	}
	return b.String(), inBlock
}

// memberPattern matches one interface-block member declaration:
// "TYPE NAME[ARRAY];" on a comment-scrubbed line.
var memberPattern = regexp.MustCompile(
	`^\s*([A-Za-z_][A-Za-z0-9_]*)\s+([A-Za-z_][A-Za-z0-9_]*)\s*(\[[^\]]*\])?\s*;\s*$`)

// ScanBlock extracts the member fields of a generated interface block.
//
// It accepts the text produced by the rewriter's block formatter: a header
// line, one member declaration per line, and a closing brace. Scanning a
// generated block returns exactly the field list that produced it, which
// the tests rely on to keep the formatter and scanner in agreement.
func ScanBlock(block string) *FieldList {
	fields := NewFieldList()
	inBlock := false
	for _, line := range strings.Split(block, "\n") {
		var code string
		code, inBlock = ScrubLine(line, inBlock)
		m := memberPattern.FindStringSubmatch(code)
		if m == nil {
			continue
		}
		t, ok := TypeFromKeyword(m[1])
		if !ok {
			continue
		}
		fields.Add(Field{Name: m[2], Type: t, Array: m[3]})
	}
	return fields
}

// Scan extracts uniform declarations from one shader stage's source.
//
// Non-opaque uniforms are returned as a FieldList in source order; sampler,
// image, atomic-counter, and subpass-input uniforms are returned separately
// as opaque declarations. Declarations whose type keyword is neither a
// known block-eligible type nor an opaque type are skipped (structs and
// user-defined types are outside the scanner's contract).
func Scan(source string) (*FieldList, []Opaque) {
	fields := NewFieldList()
	var opaque []Opaque

	inBlock := false
	for _, line := range strings.Split(source, "\n") {
		var code string
		code, inBlock = ScrubLine(line, inBlock)
		if !strings.Contains(code, "uniform") {
			continue
		}
		for _, m := range declPattern.FindAllStringSubmatch(code, -1) {
			keyword, name, array := m[1], m[2], m[3]
			if opaqueKeyword(keyword) {
				opaque = append(opaque, Opaque{Name: name, TypeKeyword: keyword})
				continue
			}
			t, ok := TypeFromKeyword(keyword)
			if !ok {
				continue
			}
			fields.Add(Field{Name: name, Type: t, Array: array})
		}
	}
	return fields, opaque
}
