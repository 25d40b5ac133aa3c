package transform

import (
	"strings"
	"testing"
)

func TestShadowEmulationRetypesAndRewrites(t *testing.T) {
	src := `#version 330
uniform sampler2DShadow shadowtex0;
void main() {
	float s = texture(shadowtex0, vec3(0.5, 0.5, 0.4));
}
`
	out := emulateShadowSamplers(src)

	if strings.Contains(out, "sampler2DShadow") {
		t.Errorf("shadow sampler type survived:\n%s", out)
	}
	if !strings.Contains(out, "uniform sampler2D shadowtex0;") {
		t.Errorf("declaration not retyped to plain sampler:\n%s", out)
	}
	if !strings.Contains(out, helperCompare+"(shadowtex0, vec3(0.5, 0.5, 0.4))") {
		t.Errorf("call site not redirected to helper:\n%s", out)
	}
	if !strings.Contains(out, "float "+helperCompare+"(sampler2D s, vec3 pos)") {
		t.Errorf("helper body not injected:\n%s", out)
	}
	// Helper must be injected ahead of main so it is declared before use.
	if strings.Index(out, "float "+helperCompare) > strings.Index(out, "void main") {
		t.Errorf("helper injected after main:\n%s", out)
	}
}

func TestShadowEmulationLegacyCallWrapsVec4(t *testing.T) {
	src := `#version 120
uniform sampler2DShadow shadowtex0;
void main() {
	vec4 s = shadow2D(shadowtex0, pos(1.0, coord));
}
`
	out := emulateShadowSamplers(src)

	want := "vec4(" + helperCompare + "(shadowtex0, pos(1.0, coord)))"
	if !strings.Contains(out, want) {
		t.Errorf("legacy call not wrapped:\nwant %s\nin:\n%s", want, out)
	}
}

func TestShadowEmulationLodVariant(t *testing.T) {
	src := `#version 330
uniform sampler2DShadow shadowtex1;
void main() {
	float s = textureLod(shadowtex1, sp, 0.0);
}
`
	out := emulateShadowSamplers(src)

	if !strings.Contains(out, helperCompareLod+"(shadowtex1, sp, 0.0)") {
		t.Errorf("lod call not redirected:\n%s", out)
	}
	if !strings.Contains(out, "float "+helperCompareLod+"(sampler2D s, vec3 pos, float lod)") {
		t.Errorf("lod helper body not injected:\n%s", out)
	}
	// Only the referenced helper is injected.
	if strings.Contains(out, "float "+helperCompare+"(sampler2D s, vec3 pos)") {
		t.Errorf("unreferenced plain helper injected:\n%s", out)
	}
}

func TestShadowEmulationProjVariants(t *testing.T) {
	src := `#version 120
uniform sampler2DShadow shadowtex0;
void main() {
	vec4 a = shadow2DProj(shadowtex0, sp4);
	float b = textureProj(shadowtex0, sp4);
	float c = textureProjLod(shadowtex0, sp4, 2.0);
}
`
	out := emulateShadowSamplers(src)

	if !strings.Contains(out, "vec4("+helperCompareProj+"(shadowtex0, sp4))") {
		t.Errorf("legacy proj call not wrapped:\n%s", out)
	}
	if !strings.Contains(out, "float b = "+helperCompareProj+"(shadowtex0, sp4);") {
		t.Errorf("proj call not redirected:\n%s", out)
	}
	if !strings.Contains(out, helperCompareProjLod+"(shadowtex0, sp4, 2.0)") {
		t.Errorf("proj lod call not redirected:\n%s", out)
	}
	if !strings.Contains(out, "uniform sampler2D shadowtex0;") {
		t.Errorf("declaration not retyped:\n%s", out)
	}
	if strings.Contains(out, "shadow2DProj(") || strings.Contains(out, "textureProj(") {
		t.Errorf("builtin proj call survived:\n%s", out)
	}
}

func TestShadowEmulationProjHelperPullsInBase(t *testing.T) {
	// The proj helper forwards to the plain helper, so both bodies must
	// be injected, the plain one first.
	src := `#version 120
uniform sampler2DShadow shadowtex0;
void main() {
	vec4 s = shadow2DProj(shadowtex0, sp4);
}
`
	out := emulateShadowSamplers(src)

	base := strings.Index(out, "float "+helperCompare+"(sampler2D s, vec3 pos)")
	proj := strings.Index(out, "float "+helperCompareProj+"(sampler2D s, vec4 pos)")
	if base < 0 {
		t.Fatalf("base helper body not injected:\n%s", out)
	}
	if proj < 0 {
		t.Fatalf("proj helper body not injected:\n%s", out)
	}
	if base > proj {
		t.Errorf("base helper injected after proj helper:\n%s", out)
	}
	if strings.Contains(out, "float "+helperCompareLod+"(sampler2D") {
		t.Errorf("unreferenced lod helper injected:\n%s", out)
	}
}

func TestShadowEmulationOnlyReferencedHelpers(t *testing.T) {
	src := `#version 330
uniform sampler2DShadow shadowtex0;
void main() {
	float s = texture(shadowtex0, sp);
}
`
	out := emulateShadowSamplers(src)
	if strings.Contains(out, helperCompareLod+"(sampler2D") {
		t.Errorf("unreferenced lod helper injected:\n%s", out)
	}
}

func TestShadowEmulationNoShadowSamplers(t *testing.T) {
	src := `#version 330
uniform sampler2D colortex0;
void main() { vec4 c = texture(colortex0, uv); }
`
	if out := emulateShadowSamplers(src); out != src {
		t.Errorf("source without shadow samplers was modified:\n%s", out)
	}
}

func TestShadowEmulationMissingMainFallsBack(t *testing.T) {
	// References a shadow sampler but has no main to anchor helper
	// injection: the step must leave the source unchanged.
	src := `#version 330
uniform sampler2DShadow shadowtex0;
float sampleShadow(vec3 sp) { return texture(shadowtex0, sp); }
`
	if out := emulateShadowSamplers(src); out != src {
		t.Errorf("source changed despite missing anchor:\n%s", out)
	}
}

func TestShadowEmulationUntouchedOtherSamplers(t *testing.T) {
	src := `#version 330
uniform sampler2DShadow shadowtex0;
uniform sampler2D colortex0;
void main() {
	float s = texture(shadowtex0, sp);
	vec4 c = texture(colortex0, uv);
}
`
	out := emulateShadowSamplers(src)
	if !strings.Contains(out, "texture(colortex0, uv)") {
		t.Errorf("non-shadow sampler call was rewritten:\n%s", out)
	}
}
