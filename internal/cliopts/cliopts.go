// Package cliopts is a self-written option parser supporting repeatable
// long options (--branch appearing more than once accumulates values),
// adapted from the teacher's getopt.go so both binaries in this module
// share one parsing style instead of two inconsistent ones.
package cliopts

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// OptErr is the error type Parse returns for a malformed command line.
type OptErr string

func (e OptErr) Error() string { return string(e) }

type kind int

const (
	kindFlag kind = iota
	kindString
	kindRepeated
)

type option struct {
	longName    string
	argName     string
	description string
	kind        kind

	flag     *bool
	str      *string
	repeated *[]string
}

// Options is a set of long-form flags this process accepts. Short options
// are not supported; every flag in this CLI surface is spelled out in full.
type Options struct {
	options []*option
	out     io.Writer
}

func New(out io.Writer) *Options {
	return &Options{out: out}
}

// Flag registers a boolean toggle, e.g. --force.
func (o *Options) Flag(longName string, target *bool, description string) {
	*target = false
	o.options = append(o.options, &option{longName: longName, description: description, kind: kindFlag, flag: target})
}

// String registers a single-valued option, e.g. --dest=/scratch. A later
// occurrence overwrites an earlier one.
func (o *Options) String(longName, argName string, target *string, description string) {
	o.options = append(o.options, &option{longName: longName, argName: argName, description: description, kind: kindString, str: target})
}

// Repeated registers a multi-valued option, e.g. --branch, which may be
// given more than once; every occurrence appends to target.
func (o *Options) Repeated(longName, argName string, target *[]string, description string) {
	o.options = append(o.options, &option{longName: longName, argName: argName, description: description, kind: kindRepeated, repeated: target})
}

// Parse consumes args[1:] (args[0] is the program name, as with os.Args),
// applying every recognized --flag / --key=value / --key value option in
// order, and returns whatever positional arguments remain.
func (o *Options) Parse(args []string) (remaining []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			if rerr, ok := r.(OptErr); ok {
				err = rerr
				return
			}
			panic(r)
		}
	}()

	i := 1
	for i < len(args) {
		arg := args[i]
		if arg == "--" {
			return args[i+1:], nil
		}
		if !strings.HasPrefix(arg, "--") {
			return args[i:], nil
		}
		i += o.consume(args, i, arg[2:])
	}
	return nil, nil
}

func (o *Options) consume(args []string, i int, body string) int {
	name, inlineValue, hasInline := strings.Cut(body, "=")
	for _, opt := range o.options {
		if opt.longName != name {
			continue
		}
		switch opt.kind {
		case kindFlag:
			if hasInline {
				panic(OptErr("--" + name + " takes no argument"))
			}
			*opt.flag = true
			return 1
		case kindString, kindRepeated:
			var value string
			consumed := 1
			if hasInline {
				value = inlineValue
			} else {
				if i+1 >= len(args) {
					panic(OptErr("--" + name + " requires an argument"))
				}
				value = args[i+1]
				consumed = 2
			}
			if opt.kind == kindString {
				*opt.str = value
			} else {
				*opt.repeated = append(*opt.repeated, value)
			}
			return consumed
		}
	}
	panic(OptErr("unknown option: --" + name))
}

// Help writes a usage summary to Options.out.
func (o *Options) Help(usage string) {
	wr := tabwriter.NewWriter(o.out, 1, 0, 2, ' ', tabwriter.TabIndent)
	fmt.Fprintf(wr, "usage: %s\n\n", usage)
	for _, opt := range o.options {
		if opt.argName == "" {
			fmt.Fprintf(wr, "  --%s\t %s\n", opt.longName, opt.description)
		} else {
			fmt.Fprintf(wr, "  --%s=%s\t %s\n", opt.longName, opt.argName, opt.description)
		}
	}
	wr.Flush()
}
