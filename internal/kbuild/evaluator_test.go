package kbuild

import check "gopkg.in/check.v1"

func (s *Suite) TestRegularPredicate_matchesAndTagsAbsolute(c *check.C) {
	for _, tc := range []struct {
		lhs      string
		wantOk   bool
		wantAbs  bool
	}{
		{"obj-y", true, false},
		{"obj-$(CONFIG_FOO)", true, false},
		{"lib-y", true, false},
		{"subdir-y", true, false},
		{"platform-y", true, false},
		{"core-y", true, true},
		{"drivers-y", true, true},
		{"libs-y", true, true},
		{"net-y", true, true},
		{"virt-y", true, true},
		{"ccflags-y", false, false},
		{"CFLAGS_foo.o", false, false},
	} {
		abs, ok := RegularPredicate(tc.lhs)
		c.Check(ok, equals, tc.wantOk, check.Commentf("lhs=%s", tc.lhs))
		if tc.wantOk {
			c.Check(abs, equals, tc.wantAbs, check.Commentf("lhs=%s", tc.lhs))
		}
	}
}

func (s *Suite) TestTargetPredicate(c *check.C) {
	pred := TargetPredicate("foo")
	for _, tc := range []struct {
		lhs    string
		wantOk bool
	}{
		{"foo-y", true},
		{"foo-m", true},
		{"foo-objs", true},
		{"foo-$(CONFIG_BAR)", true},
		{"foobar-y", false},
		{"foo-z", false},
		{"bar-y", false},
	} {
		_, ok := pred(tc.lhs)
		c.Check(ok, equals, tc.wantOk, check.Commentf("lhs=%s", tc.lhs))
	}
}

func (s *Suite) TestExtractCondition(c *check.C) {
	for _, tc := range []struct {
		a    Assignment
		want string
	}{
		{Assignment{LHS: "obj-$(CONFIG_FOO)", LHSCond: "CONFIG_FOO"}, "CONFIG_FOO"},
		{Assignment{LHS: "obj-y"}, "y"},
		{Assignment{LHS: "foo-objs"}, "objs"},
		{Assignment{LHS: "foo-m"}, "m"},
		{Assignment{LHS: "subdir-y"}, "y"},
		{Assignment{LHS: "weird"}, ""},
	} {
		c.Check(extractCondition(tc.a), equals, tc.want, check.Commentf("%+v", tc.a))
	}
}

func (s *Suite) TestExpandWord_cartesianSize(c *check.C) {
	b := NewBuiltins([]string{"x86", "arm", "mips"})
	w := Word{{Literal: "thing-"}, {Builtin: "SRCARCH"}, {Literal: ".o"}}
	got := expandWord(w, b)
	c.Check(got, deepEquals, []string{"thing-x86.o", "thing-arm.o", "thing-mips.o"})
}

func (s *Suite) TestExpandWord_multiAtomProduct(c *check.C) {
	b := NewBuiltins([]string{"x86", "arm"})
	w := Word{{Builtin: "SRCARCH"}, {Literal: "-"}, {Builtin: "BITS"}, {Literal: ".o"}}
	got := expandWord(w, b)
	c.Check(len(got), equals, 4) // 2 archs * 1 * 2 bits * 1
}

func (s *Suite) TestExpandWord_literalOnly(c *check.C) {
	b := NewBuiltins(nil)
	w := Word{{Literal: "plain.o"}}
	c.Check(expandWord(w, b), deepEquals, []string{"plain.o"})
}

func (s *Suite) TestExpandWord_emptyWordProducesNoExpansions(c *check.C) {
	b := NewBuiltins(nil)
	c.Check(expandWord(nil, b), check.IsNil)
}

func (s *Suite) TestUnknownBuiltin_evaluatesToLiteralSourceText(c *check.C) {
	b := NewBuiltins(nil)
	c.Check(b.Expand("WEIRD", "$(WEIRD)"), deepEquals, []string{"$(WEIRD)"})
}

func (s *Suite) TestClassify_trailingSlashIsDirectory(c *check.C) {
	kind, ok := classify("obj-y", "drivers/net/")
	c.Check(ok, equals, true)
	c.Check(kind, equals, KindDirectory)
}

func (s *Suite) TestClassify_subdirWithoutSlashIsStillDirectory(c *check.C) {
	// invariant: "subdir-y := foo" with foo lacking a trailing slash still
	// classifies as Directory.
	kind, ok := classify("subdir-y", "foo")
	c.Check(ok, equals, true)
	c.Check(kind, equals, KindDirectory)
}

func (s *Suite) TestClassify_subdirFlagsVariantIsNotDirectoryOrObject(c *check.C) {
	// invariant: "subdir-ccflags-y := -Wall" classifies as neither.
	_, ok := classify("subdir-ccflags-y", "-Wall")
	c.Check(ok, equals, false)

	_, ok = classify("subdir-asflags-y", "-Wall")
	c.Check(ok, equals, false)
}

func (s *Suite) TestClassify_objectSuffix(c *check.C) {
	kind, ok := classify("obj-y", "foo.o")
	c.Check(ok, equals, true)
	c.Check(kind, equals, KindObject)
}

func (s *Suite) TestClassify_discardsUnrecognized(c *check.C) {
	_, ok := classify("obj-y", "foo.h")
	c.Check(ok, equals, false)
}

func (s *Suite) TestEvaluate_unmatchedLHSProducesNoEvents(c *check.C) {
	// invariant: an LHS matching neither predicate produces no events,
	// even if the RHS has objects.
	a := Assignment{LHS: "ccflags-y", RHSWords: []Word{{{Literal: "foo.o"}}}}
	var got []Entry
	Evaluate(a, RegularPredicate, NewBuiltins(nil), func(e Entry) { got = append(got, e) })
	c.Check(got, check.HasLen, 0)
}

func (s *Suite) TestEvaluate_emptyRHSProducesNoEvents(c *check.C) {
	a := Assignment{LHS: "obj-y"}
	var got []Entry
	Evaluate(a, RegularPredicate, NewBuiltins(nil), func(e Entry) { got = append(got, e) })
	c.Check(got, check.HasLen, 0)
}
