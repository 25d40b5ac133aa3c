// Package transform rewrites GLSL shader source written against the source
// API's conventions into source the target API accepts: one canonical
// version directive, loose uniforms replaced by a single generated
// interface block, explicit binding and location annotations, renamed
// builtins, and shadow-sampler emulation for hardware comparison fetches
// the target lacks.
//
// The rewriter is purely textual and works on the same line-oriented,
// comment-aware scan the glsl package uses; it never builds an AST. Every
// step that needs an anchor point in the source (the main entry point)
// degrades gracefully: on a missing anchor the step leaves the source
// untouched and logs a warning, so the caller renders with reduced
// fidelity instead of a corrupted shader.
package transform

import (
	"regexp"
	"strings"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/shaderport/glsl"
)

// Default option values.
const (
	// DefaultVersionDirective replaces whatever version line(s) the pack
	// carried. 450 core is the dialect the target compiler consumes.
	DefaultVersionDirective = "#version 450"

	// DefaultBlockName names the generated uniform block. Members are
	// accessed unqualified, so the name only has to avoid colliding with
	// pack identifiers.
	DefaultBlockName = "PortedUniforms"
)

// Options configures a Rewriter. The zero value uses the defaults above
// with depth-range fixing disabled.
type Options struct {
	// VersionDirective is the canonical first line of every rewritten
	// shader. Empty means DefaultVersionDirective.
	VersionDirective string

	// BlockName names the generated uniform block.
	// Empty means DefaultBlockName.
	BlockName string

	// FixDepthRange rewrites the vertex entry point to remap clip-space
	// depth from the source API's [-1, 1] convention to the target's
	// [0, 1].
	FixDepthRange bool
}

// Rewriter transforms shader source for one program. It is stateless and
// safe for concurrent use; all per-program data arrives as arguments.
type Rewriter struct {
	version   string
	blockName string
	fixDepth  bool
}

// New creates a Rewriter with the given options.
func New(opts Options) *Rewriter {
	r := &Rewriter{
		version:   opts.VersionDirective,
		blockName: opts.BlockName,
		fixDepth:  opts.FixDepthRange,
	}
	if r.version == "" {
		r.version = DefaultVersionDirective
	}
	if r.blockName == "" {
		r.blockName = DefaultBlockName
	}
	return r
}

// versionPattern matches version directive lines anywhere in the source.
var versionPattern = regexp.MustCompile(`(?m)^[ \t]*#version[^\n]*\n?`)

// Rewrite produces the target-dialect source for one shader stage.
//
// Steps, in order: unify the version directive, strip the loose uniform
// declarations that moved into the block, insert the generated interface
// block, rename builtins, and emulate shadow samplers. Binding and
// location annotation is a separate pass (AssignBindings) because it needs
// the host's sampler and vertex-attribute mappings, which are not known at
// transform time.
//
// fields must be the merged program-wide field list; the generated block
// emits its fields in list order so that the block's source-level layout
// matches the layout package's computation for the same list.
func (r *Rewriter) Rewrite(source string, fields *glsl.FieldList, stage gputypes.ShaderStage) string {
	src := versionPattern.ReplaceAllString(source, "")
	src = r.version + "\n" + src
	src = stripLooseDeclarations(src, fields)
	src = insertBlock(src, r.blockName, fields)
	src = renameBuiltins(src)
	src = emulateShadowSamplers(src)
	if r.fixDepth && stage == gputypes.ShaderStageVertex {
		src = fixDepthRange(src)
	}
	return src
}

// stripLooseDeclarations removes every file-scope uniform declaration
// whose name is in fields. Opaque declarations (samplers, images) stay in
// place; they are only annotated later by the binding pass.
//
// Lines holding a removed declaration are re-emitted comment-scrubbed: the
// declaration text is gone and a line left empty by the removal is dropped
// entirely.
func stripLooseDeclarations(source string, fields *glsl.FieldList) string {
	lines := strings.Split(source, "\n")
	out := make([]string, 0, len(lines))

	inBlock := false
	for _, line := range lines {
		code, nextState := glsl.ScrubLine(line, inBlock)
		if !strings.Contains(code, "uniform") {
			inBlock = nextState
			out = append(out, line)
			continue
		}

		removed := false
		rewritten := declarationPattern.ReplaceAllStringFunc(code, func(m string) string {
			groups := declarationPattern.FindStringSubmatch(m)
			keyword, name := groups[1], groups[2]
			if _, isBlockType := glsl.TypeFromKeyword(keyword); !isBlockType {
				return m // opaque or user-defined type: keep
			}
			if !fields.Has(name) {
				return m
			}
			removed = true
			return ""
		})
		inBlock = nextState

		if !removed {
			out = append(out, line)
			continue
		}
		if strings.TrimSpace(rewritten) == "" {
			continue
		}
		out = append(out, rewritten)
	}
	return strings.Join(out, "\n")
}

// declarationPattern mirrors the glsl package's declaration shape for
// in-place removal. Kept in sync with glsl.Scan by the round-trip tests.
var declarationPattern = regexp.MustCompile(
	`(?:layout\s*\([^)]*\)\s*)?\buniform\b\s+(?:(?:highp|mediump|lowp)\s+)?` +
		`([A-Za-z_][A-Za-z0-9_]*)\s+([A-Za-z_][A-Za-z0-9_]*)\s*(\[[^\]]*\])?\s*(?:=[^;]*)?;`)

// FormatBlock renders the generated interface block for a field list.
// Field order is preserved exactly; the layout calculator and the target
// compiler both derive their layouts from this order.
func FormatBlock(blockName string, fields *glsl.FieldList) string {
	var b strings.Builder
	b.WriteString("layout(std140) uniform ")
	b.WriteString(blockName)
	b.WriteString(" {\n")
	for _, f := range fields.Fields() {
		b.WriteString("\t")
		b.WriteString(f.Declaration())
		b.WriteString(";\n")
	}
	b.WriteString("};\n")
	return b.String()
}

// insertBlock places the generated block after the leading run of
// directives and blank lines, before the first real code line.
func insertBlock(source, blockName string, fields *glsl.FieldList) string {
	if fields.Len() == 0 {
		return source
	}
	lines := strings.Split(source, "\n")
	at := 0
	for at < len(lines) {
		trimmed := strings.TrimSpace(lines[at])
		if trimmed != "" && !strings.HasPrefix(trimmed, "#") {
			break
		}
		at++
	}
	block := FormatBlock(blockName, fields)
	out := make([]string, 0, len(lines)+1)
	out = append(out, lines[:at]...)
	out = append(out, strings.TrimSuffix(block, "\n"))
	out = append(out, lines[at:]...)
	return strings.Join(out, "\n")
}

// mainPattern anchors on the canonical entry point definition.
var mainPattern = regexp.MustCompile(`(?m)^([ \t]*)void[ \t]+main[ \t]*\([ \t]*(?:void)?[ \t]*\)`)

// fixDepthRange renames the entry point and appends a wrapper main that
// remaps clip-space depth from [-1, 1] to [0, 1] after the pack's own
// vertex work. When no entry point is found the source is returned
// unchanged and a warning is logged; the caller renders without the depth
// remap.
func fixDepthRange(source string) string {
	loc := mainPattern.FindStringIndex(source)
	if loc == nil {
		slogger().Warn("depth-range fix skipped: no main entry point found")
		return source
	}
	src := source[:loc[0]] + mainPattern.ReplaceAllString(source[loc[0]:loc[1]], "${1}void portedMain()") + source[loc[1]:]
	src += "\n\nvoid main() {\n" +
		"\tportedMain();\n" +
		"\tgl_Position.z = (gl_Position.z + gl_Position.w) * 0.5;\n" +
		"}\n"
	return src
}
