package glsl

// baselineFields is the fixed set of well-known uniforms the host
// environment populates every frame whether or not a shader pack declares
// them. The source API can inject these at the API level without them
// appearing in source, but the target API requires every host-written
// field to exist physically in the generated block, so Merge appends any
// of them the scan missed.
//
// Order matters: appending is deterministic so that merged lists (and the
// layouts computed from them) are stable across runs.
var baselineFields = []Field{
	{Name: "gbufferModelView", Type: TypeMat4},
	{Name: "gbufferModelViewInverse", Type: TypeMat4},
	{Name: "gbufferProjection", Type: TypeMat4},
	{Name: "gbufferProjectionInverse", Type: TypeMat4},
	{Name: "shadowModelView", Type: TypeMat4},
	{Name: "shadowProjection", Type: TypeMat4},
	{Name: "cameraPosition", Type: TypeVec3},
	{Name: "sunPosition", Type: TypeVec3},
	{Name: "moonPosition", Type: TypeVec3},
	{Name: "shadowLightPosition", Type: TypeVec3},
	{Name: "upPosition", Type: TypeVec3},
	{Name: "fogColor", Type: TypeVec3},
	{Name: "skyColor", Type: TypeVec3},
	{Name: "sunAngle", Type: TypeFloat},
	{Name: "rainStrength", Type: TypeFloat},
	{Name: "frameTimeCounter", Type: TypeFloat},
	{Name: "screenBrightness", Type: TypeFloat},
	{Name: "viewWidth", Type: TypeFloat},
	{Name: "viewHeight", Type: TypeFloat},
	{Name: "near", Type: TypeFloat},
	{Name: "far", Type: TypeFloat},
	{Name: "eyeAltitude", Type: TypeFloat},
	{Name: "worldTime", Type: TypeInt},
	{Name: "frameCounter", Type: TypeInt},
	{Name: "isEyeInWater", Type: TypeInt},
}

// BaselineFields returns a copy of the baseline field set appended by Merge.
func BaselineFields() []Field {
	out := make([]Field, len(baselineFields))
	copy(out, baselineFields)
	return out
}

// Merge combines per-stage field lists into one program-wide list.
//
// Lists are concatenated in stage order and the first occurrence of each
// name wins. A later duplicate declaring a different type is dropped like
// any other duplicate, but logged: the stages disagree and the first
// stage's type is the one that ends up in the block, which may not be what
// the author intended.
//
// After concatenation the baseline field set is appended for every
// standard name not already present. The whole operation is idempotent:
// merging a merged list again yields an equal list.
func Merge(lists ...*FieldList) *FieldList {
	merged := NewFieldList()
	for _, l := range lists {
		if l == nil {
			continue
		}
		for _, f := range l.Fields() {
			if merged.Add(f) {
				continue
			}
			if prev, ok := merged.Get(f.Name); ok && prev.Type != f.Type {
				slogger().Warn("uniform redeclared with different type across stages",
					"name", f.Name,
					"kept", prev.Type.String(),
					"dropped", f.Type.String())
			}
		}
	}
	for _, f := range baselineFields {
		merged.Add(f)
	}
	return merged
}
