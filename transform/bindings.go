package transform

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/shaderport/glsl"
)

// Binding index bases. The generated uniform block always takes binding 0;
// samplers follow in declaration order.
const (
	// BlockBinding is the binding index of the generated uniform block.
	BlockBinding = 0

	// FirstSamplerBinding is the binding index of the first sampler.
	FirstSamplerBinding = 1
)

// blockHeaderPattern matches the generated block's opening line so the
// binding pass can annotate it.
var blockHeaderPattern = regexp.MustCompile(`\blayout\(std140\) uniform\b`)

// inputPattern matches a plain vertex-stage input declaration without an
// existing layout qualifier.
var inputPattern = regexp.MustCompile(
	`(?m)^([ \t]*)in[ \t]+([A-Za-z_][A-Za-z0-9_]*)[ \t]+([A-Za-z_][A-Za-z0-9_]*)[ \t]*;`)

// AssignBindings runs the explicit-binding pass over rewritten source.
//
// It is a separate call from Rewrite because it depends on host-provided
// information that only exists once the texture-binding subsystem has
// mapped the program's samplers: the generated block receives binding 0,
// each distinct sampler gets a binding index in declaration order starting
// at 1, and (for the vertex stage) each input declaration is annotated
// with an explicit location from the host vertex format.
//
// attribs maps vertex input names to the fixed vertex format's attribute
// slots. Inputs the format does not supply fall back to sequential indices
// starting past the format's own attribute count. attribs is ignored for
// non-vertex stages.
//
// The returned map reports the binding index assigned to each sampler, for
// the host's descriptor-set construction.
func AssignBindings(source string, stage gputypes.ShaderStage, attribs map[string]int) (string, map[string]int) {
	src := blockHeaderPattern.ReplaceAllString(source,
		fmt.Sprintf("layout(std140, binding = %d) uniform", BlockBinding))

	src, samplers := annotateSamplers(src)

	if stage == gputypes.ShaderStageVertex {
		src = annotateInputs(src, attribs)
	}
	return src, samplers
}

// annotateSamplers prefixes each sampler/image declaration with an
// explicit binding index in declaration order.
func annotateSamplers(source string) (string, map[string]int) {
	_, opaque := glsl.Scan(source)
	bindings := make(map[string]int, len(opaque))

	next := FirstSamplerBinding
	for _, o := range opaque {
		if _, seen := bindings[o.Name]; seen {
			continue
		}
		decl := regexp.MustCompile(
			`(?m)^([ \t]*)uniform[ \t]+((?:highp|mediump|lowp)[ \t]+)?` + regexp.QuoteMeta(o.TypeKeyword) +
				`[ \t]+` + regexp.QuoteMeta(o.Name) + `[ \t]*;`)
		annotated := fmt.Sprintf("${1}layout(binding = %d) uniform ${2}%s %s;", next, o.TypeKeyword, o.Name)
		replaced := decl.ReplaceAllString(source, annotated)
		if replaced == source {
			// Already annotated or declared in a form the pass does not
			// handle; the sampler keeps whatever binding the source had.
			slogger().Warn("sampler declaration not annotated", "name", o.Name, "type", o.TypeKeyword)
			continue
		}
		source = replaced
		bindings[o.Name] = next
		next++
	}
	return source, bindings
}

// annotateInputs adds layout(location = N) to plain vertex input
// declarations. Known attributes take their slot from the host vertex
// format; extra inputs the format does not supply get sequential indices
// beyond the format's attribute count.
func annotateInputs(source string, attribs map[string]int) string {
	fallback := len(attribs)
	return inputPattern.ReplaceAllStringFunc(source, func(m string) string {
		groups := inputPattern.FindStringSubmatch(m)
		indent, typ, name := groups[1], groups[2], groups[3]
		// "in" followed by a type keyword only; skip interface-block-ish
		// or already-qualified lines that happen to match loosely.
		if strings.HasPrefix(typ, "layout") {
			return m
		}
		slot, ok := attribs[name]
		if !ok {
			slot = fallback
			fallback++
		}
		return fmt.Sprintf("%slayout(location = %d) in %s %s;", indent, slot, typ, name)
	})
}
