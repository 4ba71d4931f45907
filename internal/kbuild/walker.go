package kbuild

import (
	"io/fs"
	"path"
	"sort"
)

// sourceSuffixes lists the extensions tried, in order, against an object's
// stem before it is treated as a composite target.
var sourceSuffixes = []string{"c", "S", "rs"}

// WalkerOptions configures a Walker. All fields are optional.
type WalkerOptions struct {
	// Diagnostics receives parse diagnostics from every file the walker
	// parses. Nil discards them.
	Diagnostics DiagnosticListener

	// Verbose enables the "source not found" note for a composite target
	// whose TargetResolver pass finds no leaves at all, per §7's recovery
	// policy for MissingSource.
	Verbose bool

	// Notef receives verbose-only notes when Verbose is true. Nil is
	// treated as a no-op sink.
	Notef func(format string, args ...interface{})
}

func (o WalkerOptions) notef(format string, args ...interface{}) {
	if o.Verbose && o.Notef != nil {
		o.Notef(format, args...)
	}
}

type workItem struct {
	stack CondStack
	path  string
}

// Walker is TreeWalker: it orchestrates discovery of every Kconfig-gated
// source file and module in a kernel tree, single-threaded, and delivers
// resolved facts to a Visitor. One Walker is scoped to exactly one call to
// Run over one tree.
type Walker struct {
	fsys     fs.FS
	visitor  Visitor
	opts     WalkerOptions
	builtins *Builtins
	archs    []string

	visitedDirs  map[string]bool
	visitedPaths map[string]bool
	toWalk       []workItem
}

// NewWalker constructs a Walker over fsys (rooted at the kernel tree's top
// directory) delivering facts to visitor.
func NewWalker(fsys fs.FS, visitor Visitor, opts WalkerOptions) *Walker {
	archs := DiscoverArchs(fsys)
	return &Walker{
		fsys:         fsys,
		visitor:      visitor,
		opts:         opts,
		builtins:     NewBuiltins(archs),
		archs:        archs,
		visitedDirs:  map[string]bool{},
		visitedPaths: map[string]bool{},
	}
}

// Archs returns the architecture set discovered for this tree, sorted
// lexicographically.
func (w *Walker) Archs() []string { return w.archs }

func (w *Walker) exists(p string) bool {
	_, err := fs.Stat(w.fsys, p)
	return err == nil
}

func (w *Walker) isDir(p string) bool {
	info, err := fs.Stat(w.fsys, p)
	return err == nil && info.IsDir()
}

// push adds a work item to the top of the LIFO stack.
func (w *Walker) push(stack CondStack, filePath string) {
	w.toWalk = append(w.toWalk, workItem{stack: stack, path: filePath})
}

// pop removes and returns the item on top of the LIFO stack.
func (w *Walker) pop() (workItem, bool) {
	if len(w.toWalk) == 0 {
		return workItem{}, false
	}
	item := w.toWalk[len(w.toWalk)-1]
	w.toWalk = w.toWalk[:len(w.toWalk)-1]
	return item, true
}

// buildFileIn returns the Kbuild-or-Makefile path for directory dir,
// preferring Kbuild, or "" if neither exists.
func (w *Walker) buildFileIn(dir string) string {
	for _, name := range []string{"Kbuild", "Makefile"} {
		p := path.Join(dir, name)
		if w.exists(p) {
			return p
		}
	}
	return ""
}

// Run seeds the work list and drains it to completion. It never returns an
// error for a malformed tree: every recoverable condition is logged (via
// opts.Diagnostics / opts.Notef) and the walk continues, per §7.
func (w *Walker) Run() {
	w.seed()
	for {
		item, ok := w.pop()
		if !ok {
			return
		}
		w.processFile(item.stack, item.path)
	}
}

func (w *Walker) seed() {
	s := NewCondStack()

	if w.isDir("Documentation") {
		w.seedKernelRoot(s)
		return
	}
	if bf := w.buildFileIn("."); bf != "" {
		w.push(s, bf)
	}
}

// seedKernelRoot seeds the default kernel-tree entry points, in the exact
// push order the original resolver uses: since the work list is LIFO, the
// *last* pushed entry point is walked *first*.
func (w *Walker) seedKernelRoot(s CondStack) {
	w.push(s, "Makefile")
	w.push(s, "Kbuild")

	for _, arch := range w.archs {
		p := path.Join("arch", arch, "Makefile")
		if w.exists(p) {
			w.push(s, p)
		}
	}

	for _, name := range w.sortedSubdirs("arch/arm") {
		if hasAnyPrefix(name, "mach-", "plat-") {
			p := path.Join("arch/arm", name, "Makefile")
			if w.exists(p) {
				w.push(s, p)
			}
		}
	}

	if p := "arch/mips/Kbuild.platforms"; w.exists(p) {
		w.push(s, p)
	}
	if p := "arch/s390/boot/Makefile"; w.exists(p) {
		w.push(s, p)
	}
}

func (w *Walker) sortedSubdirs(dir string) []string {
	entries, err := fs.ReadDir(w.fsys, dir)
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names
}

func hasAnyPrefix(s string, prefixes ...string) bool {
	for _, p := range prefixes {
		if len(s) >= len(p) && s[:len(p)] == p {
			return true
		}
	}
	return false
}

// processFile pops one Makefile/Kbuild, parses it, and runs ExprEvaluator
// with the regular predicate over every assignment, dispatching each
// resulting entry to directory descent or object handling.
func (w *Walker) processFile(stack CondStack, kbPath string) {
	data, err := fs.ReadFile(w.fsys, kbPath)
	if err != nil {
		// FileNotFoundError: log and continue.
		w.opts.notef("kbuild: %v", &FileNotFoundError{Path: kbPath})
		return
	}

	file, err := Parse(kbPath, string(data), w.opts.Diagnostics)
	if err != nil {
		// ParseFailure: already reported via Diagnostics; skip this file.
		return
	}

	dir := path.Dir(kbPath)
	for _, a := range file.Assignments {
		Evaluate(a, RegularPredicate, w.builtins, func(entry Entry) {
			w.handleEntry(stack, file, kbPath, dir, entry)
		})
	}
}

func (w *Walker) handleEntry(stack CondStack, file *File, kbPath, dir string, entry Entry) {
	switch entry.Kind {
	case KindDirectory:
		w.descend(stack, dir, entry)
	case KindObject:
		objPath := path.Join(dir, entry.Word)
		nextStack := stack.Push(entry.Condition)
		w.objectHandling(nextStack, file, kbPath, objPath, "")
	}
}

func (w *Walker) descend(stack CondStack, kbDir string, entry Entry) {
	var target string
	if entry.Absolute {
		target = path.Clean(entry.Word)
	} else {
		target = path.Join(kbDir, entry.Word)
	}
	target = path.Clean(target)

	if w.visitedDirs[target] {
		return
	}
	w.visitedDirs[target] = true

	bf := w.buildFileIn(target)
	if bf == "" {
		w.opts.notef("kbuild: %s: no Kbuild or Makefile", target)
		return
	}
	w.push(stack.Push(entry.Condition), bf)
}

// objectHandling implements §4.3's object handling. moduleObject, when
// non-empty, is the composite target's own object path that the caller is
// currently resolving leaves for; every leaf that resolves to a source
// also gets reported to the visitor as belonging to that module.
//
// It returns the resolved source path and whether one was found. Module
// facts reach nested composites through moduleObject, not through this
// return value.
func (w *Walker) objectHandling(stack CondStack, file *File, kbPath, objPath, moduleObject string) (string, bool) {
	cond := stack.Resolve()
	if isBuiltinCond(cond) {
		// Unconditionally built: the core does not index such sources.
		return "", false
	}

	objPath = path.Clean(objPath)
	if w.visitedPaths[objPath] {
		w.opts.notef("kbuild: %s", VisitedCollision{Path: objPath})
		w.visitor.Ignored(objPath, cond)
		return "", false
	}
	w.visitedPaths[objPath] = true

	stem := stripSuffix(objPath, ".o")
	for _, ext := range sourceSuffixes {
		candidate := stem + "." + ext
		if w.exists(candidate) {
			w.visitor.Config(candidate, cond)
			if moduleObject != "" {
				w.visitor.Module(candidate, moduleObject)
			}
			return candidate, true
		}
	}

	// Composite target: re-scan the same AST for "<stem>-{y,m,objs,$(...)}"
	// assignments naming this object's leaf members. moduleObject
	// propagates to nested composites unchanged, so every leaf reached
	// through a chain of composites is still attributed to the outermost
	// module object.
	effectiveModule := moduleObject
	if effectiveModule == "" {
		effectiveModule = objPath
	}
	found := w.resolveTarget(stack, file, kbPath, objPath, effectiveModule)
	if !found {
		w.opts.notef("kbuild: %s: source not found", objPath)
	}
	return "", false
}

func stripSuffix(s, suffix string) string {
	if len(s) >= len(suffix) && s[len(s)-len(suffix):] == suffix {
		return s[:len(s)-len(suffix)]
	}
	return s
}
