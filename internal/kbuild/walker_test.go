package kbuild

import (
	"testing/fstest"

	check "gopkg.in/check.v1"
)

type recorder struct {
	configs []string // "source\tcond"
	modules []string // "source\tmoduleObject"
	ignored []string // "objectPath\tcond"
}

func (r *recorder) visitor() Visitor {
	return VisitorFuncs{
		OnConfig:  func(source, cond string) { r.configs = append(r.configs, source+"\t"+cond) },
		OnModule:  func(source, moduleObject string) { r.modules = append(r.modules, source+"\t"+moduleObject) },
		OnIgnored: func(objectPath, cond string) { r.ignored = append(r.ignored, objectPath+"\t"+cond) },
	}
}

// S1: a single-file tree, no arch discovery, one conditional source.
func (s *Suite) TestWalker_singleFileConditionalSource(c *check.C) {
	fsys := fstest.MapFS{
		"Kbuild":  {Data: []byte("obj-$(CONFIG_FOO) += foo.o\n")},
		"foo.c":   {Data: []byte("")},
	}
	r := &recorder{}
	w := NewWalker(fsys, r.visitor(), WalkerOptions{})
	w.Run()
	c.Check(r.configs, deepEquals, []string{"foo.c\tCONFIG_FOO"})
	c.Check(r.modules, check.HasLen, 0)
	c.Check(r.ignored, check.HasLen, 0)
}

// S2: a composite (module) target, per spec's literal example
// module(a.c, foo.o).
func (s *Suite) TestWalker_compositeTargetReportsModule(c *check.C) {
	fsys := fstest.MapFS{
		"Kbuild": {Data: []byte(
			"obj-$(CONFIG_FOO) += foo.o\n" +
				"foo-y := a.o b.o\n",
		)},
		"a.c": {Data: []byte("")},
		"b.c": {Data: []byte("")},
	}
	r := &recorder{}
	w := NewWalker(fsys, r.visitor(), WalkerOptions{})
	w.Run()

	c.Check(r.configs, deepEquals, []string{"a.c\tCONFIG_FOO", "b.c\tCONFIG_FOO"})
	c.Check(r.modules, deepEquals, []string{"a.c\tfoo.o", "b.c\tfoo.o"})
}

// S3: directory descent, both relative (obj-) and absolute (drivers-) forms.
func (s *Suite) TestWalker_directoryDescentRelativeAndAbsolute(c *check.C) {
	fsys := fstest.MapFS{
		"Kbuild":               {Data: []byte("obj-y += sub/\ndrivers-y += top/\n")},
		"sub/Kbuild":           {Data: []byte("obj-$(CONFIG_LEAF) += leaf.o\n")},
		"sub/leaf.c":           {Data: []byte("")},
		"top/Kbuild":           {Data: []byte("obj-$(CONFIG_OTHER) += other.o\n")},
		"top/other.c":          {Data: []byte("")},
	}
	r := &recorder{}
	w := NewWalker(fsys, r.visitor(), WalkerOptions{})
	w.Run()

	c.Check(len(r.configs), equals, 2)
	seen := map[string]bool{}
	for _, entry := range r.configs {
		seen[entry] = true
	}
	c.Check(seen["sub/leaf.c\tCONFIG_LEAF"], equals, true)
	c.Check(seen["top/other.c\tCONFIG_OTHER"], equals, true)
}

// S4: unconditionally-built object (builtin cond) is not indexed.
func (s *Suite) TestWalker_unconditionalObjectNotIndexed(c *check.C) {
	fsys := fstest.MapFS{
		"Kbuild": {Data: []byte("obj-y += foo.o\n")},
		"foo.c":  {Data: []byte("")},
	}
	r := &recorder{}
	w := NewWalker(fsys, r.visitor(), WalkerOptions{})
	w.Run()
	c.Check(r.configs, check.HasLen, 0)
}

// S5: a second assignment for the same object path is reported once and
// then Ignored (invariant #2).
func (s *Suite) TestWalker_duplicateObjectPathIsIgnoredSecondTime(c *check.C) {
	fsys := fstest.MapFS{
		"Kbuild": {Data: []byte(
			"obj-$(CONFIG_FOO) += foo.o\n" +
				"obj-$(CONFIG_BAR) += foo.o\n",
		)},
		"foo.c": {Data: []byte("")},
	}
	r := &recorder{}
	w := NewWalker(fsys, r.visitor(), WalkerOptions{})
	w.Run()
	c.Check(r.configs, deepEquals, []string{"foo.c\tCONFIG_FOO"})
	c.Check(r.ignored, deepEquals, []string{"foo.o\tCONFIG_BAR"})
}

// S6: same directory reachable from two parents is only descended once
// (invariant #3), and Run terminates (invariant #5) even with a cycle-prone
// layout (two Kbuild files both naming "../shared/"). A second descent
// would re-report shared/s.o as Ignored, so no Ignored event may appear.
func (s *Suite) TestWalker_sameDirectoryDescendedOnce(c *check.C) {
	fsys := fstest.MapFS{
		"Kbuild":          {Data: []byte("obj-y += a/\nobj-y += b/\n")},
		"a/Kbuild":        {Data: []byte("obj-y += ../shared/\n")},
		"b/Kbuild":        {Data: []byte("obj-y += ../shared/\n")},
		"shared/Kbuild":   {Data: []byte("obj-$(CONFIG_S) += s.o\n")},
		"shared/s.c":      {Data: []byte("")},
	}
	r := &recorder{}
	w := NewWalker(fsys, r.visitor(), WalkerOptions{})
	w.Run()
	c.Check(r.configs, deepEquals, []string{"shared/s.c\tCONFIG_S"})
	c.Check(r.ignored, check.HasLen, 0)
}

// invariant #6: running the walker twice over the same tree produces the
// same event multiset (the walker holds no cross-run state; each Run gets a
// fresh Walker here since that mirrors how the tool is actually invoked).
func (s *Suite) TestWalker_deterministicAcrossRuns(c *check.C) {
	fsys := fstest.MapFS{
		"Kbuild": {Data: []byte("obj-$(CONFIG_FOO) += foo.o\nobj-y += sub/\n")},
		"foo.c":  {Data: []byte("")},
		"sub/Kbuild": {Data: []byte("obj-$(CONFIG_BAR) += bar.o\n")},
		"sub/bar.c":  {Data: []byte("")},
	}

	run := func() []string {
		r := &recorder{}
		w := NewWalker(fsys, r.visitor(), WalkerOptions{})
		w.Run()
		return r.configs
	}

	first := run()
	second := run()
	c.Check(first, deepEquals, second)
}

// arch discovery seeds arch/<SRCARCH>/Makefile ahead of a generic root walk.
func (s *Suite) TestWalker_archMakefileSeededWhenPresent(c *check.C) {
	fsys := fstest.MapFS{
		"Documentation/index.rst": {Data: []byte("")},
		"Makefile":                {Data: []byte("obj-y += init/\n")},
		"Kbuild":                  {Data: []byte("")},
		"init/Kbuild":             {Data: []byte("")},
		"arch/x86/Makefile":       {Data: []byte("obj-$(CONFIG_X86) += head.o\n")},
		"arch/x86/head.c":         {Data: []byte("")},
	}
	r := &recorder{}
	w := NewWalker(fsys, r.visitor(), WalkerOptions{})
	w.Run()
	c.Check(w.Archs(), deepEquals, []string{"x86"})
	c.Check(r.configs, deepEquals, []string{"arch/x86/head.c\tCONFIG_X86"})
}
