package kbuild

import "strings"

// EntryKind classifies one expanded RHS string.
type EntryKind int

const (
	KindDirectory EntryKind = iota
	KindObject
)

// Entry is one (interesting, condition, kind, word) event emitted by
// ExprEvaluator for a single assignment.
type Entry struct {
	Absolute  bool // meaningful for the regular predicate; ignored for the target predicate
	Condition string
	Kind      EntryKind
	Word      string
}

// InterestPredicate classifies an LHS string against a recognized
// pattern. ok is false when the LHS matches neither predicate and the
// assignment should be skipped entirely.
type InterestPredicate func(lhs string) (tag bool, ok bool)

// regularPrefixes maps an LHS prefix to whether a Directory word it emits
// resolves against the tree root (true) or the current Makefile's
// directory (false).
var regularPrefixes = []struct {
	prefix   string
	absolute bool
}{
	{"obj-", false},
	{"lib-", false},
	{"subdir-", false},
	{"platform-", false},
	{"core-", true},
	{"drivers-", true},
	{"libs-", true},
	{"net-", true},
	{"virt-", true},
}

// RegularPredicate is used when handling a freshly popped Makefile: it
// recognizes the standard obj-/lib-/subdir-/platform- (relative) and
// core-/drivers-/libs-/net-/virt- (absolute) families.
func RegularPredicate(lhs string) (absolute bool, ok bool) {
	for _, p := range regularPrefixes {
		if strings.HasPrefix(lhs, p.prefix) {
			return p.absolute, true
		}
	}
	return false, false
}

// TargetPredicate builds the predicate used during composite-target
// resolution for stem S: it matches exactly "S-$…", "S-y", "S-m" or
// "S-objs".
func TargetPredicate(stem string) InterestPredicate {
	prefix := stem + "-"
	return func(lhs string) (bool, bool) {
		if !strings.HasPrefix(lhs, prefix) {
			return false, false
		}
		suffix := lhs[len(prefix):]
		if suffix == "y" || suffix == "m" || suffix == "objs" {
			return true, true
		}
		if strings.HasPrefix(suffix, "$") {
			return true, true
		}
		return false, false
	}
}

// isSubdirFlagsVariant reports whether lhs is one of the subdir- rules
// that carry compiler flags rather than a directory list: subdir-asflags-
// and subdir-ccflags- (with any condition/suffix attached).
func isSubdirFlagsVariant(lhs string) bool {
	return strings.HasPrefix(lhs, "subdir-asflags-") || strings.HasPrefix(lhs, "subdir-ccflags-")
}

// extractCondition implements §4.2's condition extraction: LHSCond when
// present, otherwise the trailing -y, -m or -objs suffix of the LHS without
// its dash ("y", "m" or "objs", all builtin conditions), otherwise the
// empty string. The empty result is returned explicitly rather than left
// to be patched up by a caller; callers push it onto the CondStack like
// any other condition, and CondStack.Resolve skips it as a builtin frame.
func extractCondition(a Assignment) string {
	if a.LHSCond != "" {
		return a.LHSCond
	}
	for _, suffix := range []string{"y", "m", "objs"} {
		if strings.HasSuffix(a.LHS, "-"+suffix) {
			return suffix
		}
	}
	return ""
}

// expandWord evaluates a word atom by atom: a literal atom yields a
// singleton set, a builtin reference yields its expansion set, and
// multiple atoms combine by cartesian concatenation. An empty initial
// accumulator is replaced by the first atom's set rather than intersected
// with it, so a single-atom word expands to exactly that atom's set.
func expandWord(w Word, b *Builtins) []string {
	var acc []string
	started := false
	for _, atom := range w {
		var set []string
		if atom.Builtin != "" {
			set = b.Expand(atom.Builtin, atom.Raw)
		} else {
			set = []string{atom.Literal}
		}
		if !started {
			acc = append([]string{}, set...)
			started = true
			continue
		}
		next := make([]string, 0, len(acc)*len(set))
		for _, a := range acc {
			for _, s := range set {
				next = append(next, a+s)
			}
		}
		acc = next
	}
	if !started {
		return nil
	}
	return acc
}

// classify implements §4.2's classification step for one expanded string.
func classify(lhs, expanded string) (EntryKind, bool) {
	if strings.HasSuffix(expanded, "/") {
		return KindDirectory, true
	}
	if strings.HasPrefix(lhs, "subdir-") && !isSubdirFlagsVariant(lhs) {
		return KindDirectory, true
	}
	if strings.HasSuffix(expanded, ".o") {
		return KindObject, true
	}
	return 0, false
}

// Evaluate runs ExprEvaluator over one assignment: it decides whether the
// LHS is interesting under predicate, extracts the condition, expands
// every RHS word over the builtin/architecture set, classifies each
// expanded string, and calls emit for every entry that survives
// classification.
func Evaluate(a Assignment, predicate InterestPredicate, builtins *Builtins, emit func(Entry)) {
	absolute, ok := predicate(a.LHS)
	if !ok {
		return
	}
	condition := extractCondition(a)
	for _, word := range a.RHSWords {
		for _, expanded := range expandWord(word, builtins) {
			kind, ok := classify(a.LHS, expanded)
			if !ok {
				continue
			}
			emit(Entry{Absolute: absolute, Condition: condition, Kind: kind, Word: expanded})
		}
	}
}
