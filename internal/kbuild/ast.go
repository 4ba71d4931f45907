// Package kbuild implements the Makefile-driven dependency resolver: a
// grammar-driven parser for the Kbuild/Makefile dialect used by the Linux
// kernel build, an expression evaluator that expands variable references
// across the architecture set, a condition-stack walker over the tree of
// included build files, and a target-backtracking resolver for composite
// objects.
//
// The package deliberately does not evaluate conditional includes or
// recursive make, and does not implement arbitrary GNU make semantics —
// only the small subset the kernel's own Makefiles rely on.
package kbuild

import "strconv"

// Pos identifies a location inside a parsed Makefile, for diagnostics.
type Pos struct {
	File   string
	Line   int
	Column int
}

func (p Pos) String() string {
	if p.File == "" {
		return "?"
	}
	return p.File + ":" + strconv.Itoa(p.Line) + ":" + strconv.Itoa(p.Column)
}

// Atom is one piece of a Word: either literal text or a builtin reference
// such as $(SRCARCH). A word is the concatenation of its atoms after each
// builtin has been expanded to one of its possible values.
type Atom struct {
	Literal string
	Builtin string // non-empty for a builtin reference; Literal is empty then
	Raw     string // exact source text of the reference, e.g. "$(SRCARCH)" or "$@"
}

// Word is an ordered sequence of atoms, e.g. "thing-$(SRCARCH).o" parses to
// [{Literal:"thing-"} {Builtin:"SRCARCH"} {Literal:".o"}].
type Word []Atom

// Assignment is one LHS/op/RHS statement out of a parsed Makefile.
//
// LHSCond carries the Kconfig-like symbol captured from inside $(...) on the
// LHS, e.g. "obj-$(CONFIG_FOO)" yields LHS "obj-$(CONFIG_FOO)" and
// LHSCond "CONFIG_FOO". It is empty when the LHS has no parenthesized
// reference, e.g. plain "obj-y".
type Assignment struct {
	Pos      Pos
	LHS      string
	LHSCond  string
	Op       string
	RHSWords []Word
}

// Directive is a structurally-preserved ifeq/ifneq/ifdef/ifndef/else/endif
// or include/-include line. The core never evaluates these; TreeWalker
// simply skips over them while scanning a file's assignments.
type Directive struct {
	Pos  Pos
	Kind string // "ifeq", "ifneq", "ifdef", "ifndef", "else", "endif", "include", "-include"
	Text string
}

// File is the parsed representation of one Makefile or Kbuild file: an
// ordered sequence of assignments, plus the directives encountered (kept
// only for diagnostics/tooling — the walker does not evaluate them).
type File struct {
	Path        string
	Assignments []Assignment
	Directives  []Directive
}
