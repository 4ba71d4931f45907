package kbuild

import check "gopkg.in/check.v1"

func (s *Suite) TestParse_simpleAssignment(c *check.C) {
	file, err := Parse("Kbuild", "obj-$(CONFIG_ABC) := mod-abc.o\nobj-y := mod-y.o\n", nil)
	c.Assert(err, check.IsNil)
	c.Assert(file.Assignments, check.HasLen, 2)
	a0 := file.Assignments[0]
	c.Check(a0.LHS, equals, "obj-$(CONFIG_ABC)")
	c.Check(a0.LHSCond, equals, "CONFIG_ABC")
	c.Check(a0.Op, equals, ":=")
	c.Assert(a0.RHSWords, check.HasLen, 1)
	c.Assert(a0.RHSWords[0], check.HasLen, 1)
	c.Check(a0.RHSWords[0][0].Literal, equals, "mod-abc.o")
}

func (s *Suite) TestParse_lineContinuation(c *check.C) {
	file, err := Parse("Kbuild", "obj-y := a.o \\\n\tb.o \\\n\tc.o\n", nil)
	c.Assert(err, check.IsNil)
	c.Assert(file.Assignments, check.HasLen, 1)
	c.Check(file.Assignments[0].RHSWords, check.HasLen, 3)
}

func (s *Suite) TestParse_commentStripped(c *check.C) {
	file, err := Parse("Kbuild", "obj-y := a.o # trailing comment\n", nil)
	c.Assert(err, check.IsNil)
	c.Check(file.Assignments[0].RHSWords[0][0].Literal, equals, "a.o")
}

func (s *Suite) TestParse_directivesPreservedNotEvaluated(c *check.C) {
	src := "ifeq ($(CONFIG_FOO),y)\nobj-y := a.o\nendif\n"
	file, err := Parse("Kbuild", src, nil)
	c.Assert(err, check.IsNil)
	c.Check(file.Directives, check.HasLen, 2)
	c.Check(file.Assignments, check.HasLen, 1)
}

func (s *Suite) TestParse_fastAndFullPathsAgreeOnSimpleAssignment(c *check.C) {
	src := "obj-$(CONFIG_X) += thing-$(SRCARCH).o\n"
	ll := splitLogicalLines("Kbuild", src)[0]
	fast, ok := fastParseAssignment(ll)
	c.Assert(ok, check.Equals, true)
	full := fullParseAssignment(ll, func(Diagnostic) { c.Fatalf("unexpected diagnostic on unambiguous line") })
	c.Check(fast.LHS, equals, full.LHS)
	c.Check(fast.LHSCond, equals, full.LHSCond)
	c.Check(fast.Op, equals, full.Op)
	c.Check(len(fast.RHSWords), equals, len(full.RHSWords))
}

func (s *Suite) TestParse_fallsBackToFullPassOnFunctionCall(c *check.C) {
	// $(patsubst %.o,%.c,$(SOMETHING)) is a function call with arguments,
	// outside the small whitelist the fast grammar accepts; the full pass
	// must still produce an assignment (with a diagnostic) rather than
	// failing the whole file.
	src := "obj-y := $(patsubst %.o,%.c,$(SOMETHING))\n"
	var diags []Diagnostic
	file, err := Parse("Kbuild", src, DiagnosticFunc(func(d Diagnostic) { diags = append(diags, d) }))
	c.Assert(err, check.IsNil)
	c.Assert(file.Assignments, check.HasLen, 1)
	c.Check(len(diags) > 0, check.Equals, true)
}

func (s *Suite) TestParse_emptyRHS(c *check.C) {
	file, err := Parse("Kbuild", "obj-y :=\n", nil)
	c.Assert(err, check.IsNil)
	c.Check(file.Assignments[0].RHSWords, check.HasLen, 0)
}
