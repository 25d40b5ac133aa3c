package transform

import "regexp"

// builtinRename maps one source-convention builtin identifier to its
// target-convention equivalent.
type builtinRename struct {
	pattern     *regexp.Regexp
	replacement string
}

// builtinRenames covers the builtins whose names differ between the two
// conventions. The per-vertex and per-instance index builtins also differ
// in semantics (the target's instance index includes the first-instance
// offset), which is the behavior shader packs expect anyway.
var builtinRenames = []builtinRename{
	{regexp.MustCompile(`\bgl_VertexID\b`), "gl_VertexIndex"},
	{regexp.MustCompile(`\bgl_InstanceID\b`), "gl_InstanceIndex"},
}

// renameBuiltins rewrites builtin identifiers in place. Plain word-boundary
// replacement is safe here: the names are reserved in both dialects, so
// they cannot appear as user identifiers.
func renameBuiltins(source string) string {
	for _, r := range builtinRenames {
		source = r.pattern.ReplaceAllString(source, r.replacement)
	}
	return source
}
