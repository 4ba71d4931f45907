package kbuild

// Builtins is the compile-time-shaped table of builtin reference names to
// their expansion sets. $(SRCARCH) is populated per tree from the
// directory names under arch/; the rest are fixed. An unknown builtin
// falls back to its own literal source text ("$(name)"), matching the
// architecture-agnostic reference behavior real Kbuild files rely on for
// things this parser doesn't model (automatic variables, function calls).
type Builtins struct {
	table map[string][]string
}

// NewBuiltins constructs the builtin table for one tree walk, given the
// architecture set discovered under arch/.
func NewBuiltins(archs []string) *Builtins {
	return &Builtins{table: map[string][]string{
		"SRCARCH": archs,
		"BITS":    {"32", "64"},
		"CSKYABI": {"abiv1", "abiv2"},
	}}
}

// Expand returns the expansion set for a builtin reference by name. raw is
// the exact source text of the reference (e.g. "$(SRCARCH)" or "$@"),
// returned verbatim when name isn't recognized. Adding a builtin is a
// one-line change to NewBuiltins.
func (b *Builtins) Expand(name, raw string) []string {
	if vs, ok := b.table[name]; ok && len(vs) > 0 {
		return vs
	}
	return []string{raw}
}
