package kbuild

import "path"

// resolveTarget is TargetResolver: it re-walks file's assignments with the
// target predicate for stem (the object's basename without ".o"), and
// routes each emitted Object entry back through object handling with the
// stack extended by whatever condition that assignment selected. Composite
// targets may chain — a leaf that is itself a composite recurses through
// objectHandling/resolveTarget again, bounded by visitedPaths.
//
// It returns whether the target predicate matched anything at all (i.e.
// whether this composite target has any leaves), independent of whether
// those leaves went on to resolve to a source file.
func (w *Walker) resolveTarget(stack CondStack, file *File, kbPath, objPath, moduleObject string) bool {
	stem := path.Base(stripSuffix(objPath, ".o"))
	predicate := TargetPredicate(stem)
	dir := path.Dir(kbPath)

	foundAny := false
	for _, a := range file.Assignments {
		Evaluate(a, predicate, w.builtins, func(entry Entry) {
			if entry.Kind != KindObject {
				return
			}
			foundAny = true
			leafPath := path.Join(dir, entry.Word)
			nextStack := stack.Push(entry.Condition)
			w.objectHandling(nextStack, file, kbPath, leafPath, moduleObject)
		})
	}
	return foundAny
}
