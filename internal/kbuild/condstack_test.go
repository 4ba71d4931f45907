package kbuild

import check "gopkg.in/check.v1"

func (s *Suite) TestCondStackResolve_empty(c *check.C) {
	stack := NewCondStack()
	c.Check(stack.Resolve(), equals, "y")
}

func (s *Suite) TestCondStackResolve_singleGuard(c *check.C) {
	stack := NewCondStack().Push("CONFIG_FOO")
	c.Check(stack.Resolve(), equals, "CONFIG_FOO")
}

func (s *Suite) TestCondStackResolve_skipsBuiltinTop(c *check.C) {
	stack := NewCondStack().Push("CONFIG_FOO").Push("y")
	c.Check(stack.Resolve(), equals, "CONFIG_FOO")
}

func (s *Suite) TestCondStackResolve_allBuiltin(c *check.C) {
	stack := NewCondStack().Push("m").Push("objs").Push("")
	c.Check(stack.Resolve(), equals, "y")
}

func (s *Suite) TestCondStackPush_doesNotMutateParent(c *check.C) {
	base := NewCondStack()
	child := base.Push("CONFIG_X")
	c.Check(len(base), equals, 1)
	c.Check(len(child), equals, 2)
	c.Check(child.Resolve(), equals, "CONFIG_X")
	c.Check(base.Resolve(), equals, "y")
}
