package layout

// Mismatch records one disagreement between the computed layout and the
// layout a compiled artifact actually reported for the same field.
type Mismatch struct {
	// Name is the field name.
	Name string

	// Computed is this package's placement for the field.
	Computed Entry

	// Reflected is the placement the compiled artifact reported,
	// with Size zero when the artifact did not report a size.
	Reflected Entry
}

// Verify cross-checks a computed layout against offsets reflected from a
// compiled artifact, when the host can obtain them.
//
// A mismatch is the most severe failure this system can produce: the block
// compiles, binds, and renders, but every value written at a wrong offset
// silently corrupts the field that actually lives there. Verify therefore
// logs every disagreement at error level and returns the full list, but
// does not fail: wrong-but-consistent rendering is recoverable by the
// caller, a crash mid-frame is not. Callers that prefer to fail closed can
// treat a non-empty result as fatal.
//
// Fields present in only one of the two layouts are skipped; the check
// covers placement, not membership.
func Verify(computed *Layout, reflected map[string]Entry) []Mismatch {
	var mismatches []Mismatch
	for name, got := range reflected {
		want, ok := computed.Entry(name)
		if !ok {
			continue
		}
		if want.Offset != got.Offset || (got.Size != 0 && want.Size != got.Size) {
			mismatches = append(mismatches, Mismatch{Name: name, Computed: want, Reflected: got})
			slogger().Error("uniform block offset mismatch",
				"field", name,
				"computedOffset", want.Offset,
				"computedSize", want.Size,
				"reflectedOffset", got.Offset,
				"reflectedSize", got.Size)
		}
	}
	return mismatches
}
