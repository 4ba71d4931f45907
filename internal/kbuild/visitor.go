package kbuild

import (
	"fmt"
	"io"
)

// Visitor is the sink abstraction the walker drains resolved facts into.
// It is a capability set rather than a class hierarchy: console and
// database sinks are independent implementations, and a test can supply
// one built from plain function values.
type Visitor interface {
	// Config records that source is gated by Kconfig symbol cond, exactly
	// as it appears in the Makefile (no CONFIG_ prefix stripping).
	Config(source string, cond string)

	// Module records that source contributes to loadable module
	// moduleObject (a .o or .ko path, as emitted by the caller).
	Module(source string, moduleObject string)

	// Ignored records a second attempt to register objectPath: a
	// diagnostic only, no fact is recorded.
	Ignored(objectPath string, cond string)
}

// VisitorFuncs adapts three plain functions to the Visitor interface, the
// way a test or a small collaborator would build one without declaring a
// named type.
type VisitorFuncs struct {
	OnConfig  func(source, cond string)
	OnModule  func(source, moduleObject string)
	OnIgnored func(objectPath, cond string)
}

func (v VisitorFuncs) Config(source, cond string)          { v.OnConfig(source, cond) }
func (v VisitorFuncs) Module(source, moduleObject string)  { v.OnModule(source, moduleObject) }
func (v VisitorFuncs) Ignored(objectPath, cond string)     { v.OnIgnored(objectPath, cond) }

// ConsoleVisitor writes every event as a tab-separated line to Out, for
// dry runs and debugging without a database.
type ConsoleVisitor struct {
	Out io.Writer
}

func (c ConsoleVisitor) Config(source, cond string) {
	fmt.Fprintf(c.Out, "config\t%s\t%s\n", source, cond)
}

func (c ConsoleVisitor) Module(source, moduleObject string) {
	fmt.Fprintf(c.Out, "module\t%s\t%s\n", source, moduleObject)
}

func (c ConsoleVisitor) Ignored(objectPath, cond string) {
	fmt.Fprintf(c.Out, "ignored\t%s\t%s\n", objectPath, cond)
}
