package transform

import (
	"regexp"
	"strings"

	"github.com/gogpu/shaderport/glsl"
)

// shadowRetypes maps hardware shadow-comparison sampler types to the plain
// sampler types they are rewritten to. The target has no comparison
// samplers, so the comparison happens in generated helper code instead.
var shadowRetypes = map[string]string{
	"sampler1DShadow":      "sampler1D",
	"sampler2DShadow":      "sampler2D",
	"sampler2DArrayShadow": "sampler2DArray",
	"samplerCubeShadow":    "samplerCube",
}

// Generated helper function names.
const (
	helperCompare        = "portShadowCompare"
	helperCompareLod     = "portShadowCompareLod"
	helperCompareProj    = "portShadowCompareProj"
	helperCompareProjLod = "portShadowCompareProjLod"
)

// helperCompareBody performs the 2x2 bilinear-weighted manual comparison
// that replaces a hardware PCF shadow fetch: four texel fetches, each
// stepped against the reference depth, blended by the sub-texel fractional
// position.
const helperCompareBody = `float ` + helperCompare + `(sampler2D s, vec3 pos) {
	vec2 size = vec2(textureSize(s, 0));
	vec2 texel = pos.xy * size - 0.5;
	vec2 f = fract(texel);
	ivec2 base = ivec2(floor(texel));
	float t00 = step(pos.z, texelFetch(s, base, 0).r);
	float t10 = step(pos.z, texelFetch(s, base + ivec2(1, 0), 0).r);
	float t01 = step(pos.z, texelFetch(s, base + ivec2(0, 1), 0).r);
	float t11 = step(pos.z, texelFetch(s, base + ivec2(1, 1), 0).r);
	return mix(mix(t00, t10, f.x), mix(t01, t11, f.x), f.y);
}
`

// The projective forms divide by the homogeneous coordinate and forward
// to the plain helpers, matching the builtin shadow2DProj semantics.
const helperCompareProjBody = `float ` + helperCompareProj + `(sampler2D s, vec4 pos) {
	return ` + helperCompare + `(s, pos.xyz / pos.w);
}
`

const helperCompareProjLodBody = `float ` + helperCompareProjLod + `(sampler2D s, vec4 pos, float lod) {
	return ` + helperCompareLod + `(s, pos.xyz / pos.w, lod);
}
`

const helperCompareLodBody = `float ` + helperCompareLod + `(sampler2D s, vec3 pos, float lod) {
	int level = int(lod);
	vec2 size = vec2(textureSize(s, level));
	vec2 texel = pos.xy * size - 0.5;
	vec2 f = fract(texel);
	ivec2 base = ivec2(floor(texel));
	float t00 = step(pos.z, texelFetch(s, base, level).r);
	float t10 = step(pos.z, texelFetch(s, base + ivec2(1, 0), level).r);
	float t01 = step(pos.z, texelFetch(s, base + ivec2(0, 1), level).r);
	float t11 = step(pos.z, texelFetch(s, base + ivec2(1, 1), level).r);
	return mix(mix(t00, t10, f.x), mix(t01, t11, f.x), f.y);
}
`

// emulateShadowSamplers rewrites every hardware shadow sampler into a
// plain sampler plus generated comparison code.
//
// For each declared shadow sampler: sample-and-compare call sites are
// redirected to a helper, the declaration is retyped to the plain sampler
// type, and only the helper bodies actually referenced are injected ahead
// of main. Injecting unconditionally would be wrong, not just wasteful: a
// helper that used derivative instructions would be illegal in stages that
// forbid them, so unreferenced bodies must never appear.
//
// If helpers are needed but no main entry point exists to anchor the
// injection, the source is returned unchanged and a warning is logged;
// the caller falls back to rendering without shadow emulation.
func emulateShadowSamplers(source string) string {
	_, opaque := glsl.Scan(source)
	var shadows []glsl.Opaque
	for _, o := range opaque {
		if o.IsShadow() {
			shadows = append(shadows, o)
		}
	}
	if len(shadows) == 0 {
		return source
	}

	src := source
	for _, o := range shadows {
		src = rewriteShadowCalls(src, o.Name)
		src = retypeShadowDeclaration(src, o)
	}

	// The projective helpers forward to the plain ones, so referencing a
	// Proj form pulls in its base helper too. Bodies are emitted bases
	// first to satisfy declaration-before-use.
	needProj := strings.Contains(src, helperCompareProj+"(")
	needProjLod := strings.Contains(src, helperCompareProjLod+"(")
	var helpers []string
	if strings.Contains(src, helperCompare+"(") || needProj {
		helpers = append(helpers, helperCompareBody)
	}
	if strings.Contains(src, helperCompareLod+"(") || needProjLod {
		helpers = append(helpers, helperCompareLodBody)
	}
	if needProj {
		helpers = append(helpers, helperCompareProjBody)
	}
	if needProjLod {
		helpers = append(helpers, helperCompareProjLodBody)
	}
	if len(helpers) == 0 {
		return src
	}

	loc := mainPattern.FindStringIndex(src)
	if loc == nil {
		slogger().Warn("shadow-sampler emulation skipped: no main entry point found",
			"samplers", len(shadows))
		return source
	}
	return src[:loc[0]] + strings.Join(helpers, "\n") + "\n" + src[loc[0]:]
}

// rewriteShadowCalls redirects the sample-and-compare call forms for one
// shadow sampler to the generated helpers:
//
//	texture(name, pos)            -> portShadowCompare(name, pos)
//	shadow2D(name, pos)           -> portShadowCompare(name, pos)
//	textureLod(name, pos, l)      -> portShadowCompareLod(name, pos, l)
//	shadow2DLod(name, pos, l)     -> portShadowCompareLod(name, pos, l)
//	textureProj(name, pos)        -> portShadowCompareProj(name, pos)
//	shadow2DProj(name, pos)       -> portShadowCompareProj(name, pos)
//	textureProjLod(name, pos, l)  -> portShadowCompareProjLod(name, pos, l)
//	shadow2DProjLod(name, pos, l) -> portShadowCompareProjLod(name, pos, l)
//
// The legacy shadow2D forms return vec4 in the source dialect; packs read
// them through .x/.r or .xyz, so call sites gain a vec4 wrap to stay
// expression-compatible. Longer form names go first so shadow2D never
// claims a shadow2DProjLod call site.
func rewriteShadowCalls(source, name string) string {
	legacyProjLod := regexp.MustCompile(`\bshadow2DProjLod\s*\(\s*` + regexp.QuoteMeta(name) + `\b`)
	source = replaceWrappingVec4(source, legacyProjLod, helperCompareProjLod+"("+name)

	legacyProj := regexp.MustCompile(`\bshadow2DProj\s*\(\s*` + regexp.QuoteMeta(name) + `\b`)
	source = replaceWrappingVec4(source, legacyProj, helperCompareProj+"("+name)

	legacyLod := regexp.MustCompile(`\bshadow2DLod\s*\(\s*` + regexp.QuoteMeta(name) + `\b`)
	source = replaceWrappingVec4(source, legacyLod, helperCompareLod+"("+name)

	projLodCalls := regexp.MustCompile(`\btextureProjLod\s*\(\s*` + regexp.QuoteMeta(name) + `\b`)
	source = projLodCalls.ReplaceAllString(source, helperCompareProjLod+"("+name)

	projCalls := regexp.MustCompile(`\btextureProj\s*\(\s*` + regexp.QuoteMeta(name) + `\b`)
	source = projCalls.ReplaceAllString(source, helperCompareProj+"("+name)

	lodCalls := regexp.MustCompile(`\btextureLod\s*\(\s*` + regexp.QuoteMeta(name) + `\b`)
	source = lodCalls.ReplaceAllString(source, helperCompareLod+"("+name)

	legacy := regexp.MustCompile(`\bshadow2D\s*\(\s*` + regexp.QuoteMeta(name) + `\b`)
	source = replaceWrappingVec4(source, legacy, helperCompare+"("+name)

	direct := regexp.MustCompile(`\btexture\s*\(\s*` + regexp.QuoteMeta(name) + `\b`)
	return direct.ReplaceAllString(source, helperCompare+"("+name)
}

// replaceWrappingVec4 rewrites legacy shadow2D call sites, wrapping the
// float helper result back into the vec4 the legacy builtin returned.
// The wrap closes at the call's matching parenthesis.
func replaceWrappingVec4(source string, call *regexp.Regexp, replacement string) string {
	for {
		loc := call.FindStringIndex(source)
		if loc == nil {
			return source
		}
		end := matchParen(source, loc[1])
		if end < 0 {
			// Unterminated call; leave the remainder untouched.
			return source
		}
		source = source[:loc[0]] + "vec4(" + replacement + source[loc[1]:end] + ")" + source[end:]
	}
}

// matchParen returns the index one past the parenthesis closing the call
// whose opening paren precedes from, or -1 when unbalanced. from points
// just past the opening paren and the first argument's leading text.
func matchParen(source string, from int) int {
	depth := 1
	for i := from; i < len(source); i++ {
		switch source[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i + 1
			}
		}
	}
	return -1
}

// retypeShadowDeclaration swaps the shadow sampler type keyword in the
// uniform's declaration for its plain equivalent.
func retypeShadowDeclaration(source string, o glsl.Opaque) string {
	plain, ok := shadowRetypes[o.TypeKeyword]
	if !ok {
		slogger().Warn("unhandled shadow sampler type left untouched",
			"type", o.TypeKeyword, "name", o.Name)
		return source
	}
	decl := regexp.MustCompile(
		`\buniform\s+` + regexp.QuoteMeta(o.TypeKeyword) + `\s+` + regexp.QuoteMeta(o.Name) + `\b`)
	return decl.ReplaceAllString(source, "uniform "+plain+" "+o.Name)
}
