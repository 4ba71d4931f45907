package kbuild

import "strings"

// assignOps lists the assignment operators recognized in Kbuild files,
// longest first so the scanner doesn't stop at "=" inside "+=" or ":=".
var assignOps = []string{"::=", ":=", "+=", "?=", "!=", "="}

// Parse implements MakeGrammar: it tokenizes and parses one Makefile/Kbuild
// file into a File AST. It runs a fast predictive parser first; if that
// parser bails on any line (because the line's shape is ambiguous under the
// fast grammar), the whole file is re-parsed with a full recursive-descent
// parser that never bails and instead reports diagnostics through listener
// for whatever it cannot confidently resolve. The two parsers produce
// identical ASTs for every line the fast parser accepts.
//
// A nil listener means diagnostics are discarded; Parse still returns
// ParseFailure only when unresolved syntax errors remain after the second
// pass.
func Parse(path, source string, listener DiagnosticListener) (*File, error) {
	lines := splitLogicalLines(path, source)

	file := &File{Path: path}
	needsFullPass := false
	fastAssignments := make([]*Assignment, len(lines))

	for i, ll := range lines {
		kind, dir := classifyLine(ll)
		switch kind {
		case lineDirective:
			file.Directives = append(file.Directives, dir)
		case lineAssignment:
			a, ok := fastParseAssignment(ll)
			if !ok {
				needsFullPass = true
				continue
			}
			fastAssignments[i] = a
		}
	}

	if !needsFullPass {
		for _, a := range fastAssignments {
			if a != nil {
				file.Assignments = append(file.Assignments, *a)
			}
		}
		return file, nil
	}

	// Full-lookahead retry: reset and re-run every assignment line through
	// the recursive-descent parser, which never bails and instead emits
	// diagnostics for what it cannot resolve. A line it recovers from (a
	// diagnostic plus an assignment) is not an error; a line it cannot turn
	// into an assignment at all is.
	file.Assignments = nil
	file.Directives = nil
	errCount := 0
	var diags []Diagnostic
	diag := func(d Diagnostic) {
		diags = append(diags, d)
		if listener != nil {
			listener.Diag(d)
		}
	}

	for _, ll := range lines {
		kind, dir := classifyLine(ll)
		switch kind {
		case lineDirective:
			file.Directives = append(file.Directives, dir)
		case lineAssignment:
			a := fullParseAssignment(ll, diag)
			if a == nil {
				errCount++
				continue
			}
			file.Assignments = append(file.Assignments, *a)
		}
	}

	if errCount > 0 {
		return file, &ParseFailure{Path: path, Diagnostics: diags}
	}
	return file, nil
}

type lineKind int

const (
	lineOther lineKind = iota
	lineAssignment
	lineDirective
)

var directiveKinds = []string{"ifeq", "ifneq", "ifdef", "ifndef", "else", "endif", "-include", "include"}

func classifyLine(ll logicalLine) (lineKind, Directive) {
	trimmed := strings.TrimSpace(ll.text)
	if trimmed == "" || strings.HasPrefix(ll.text, "\t") {
		return lineOther, Directive{}
	}
	for _, kw := range directiveKinds {
		if trimmed == kw || strings.HasPrefix(trimmed, kw+" ") || strings.HasPrefix(trimmed, kw+"\t") {
			return lineDirective, Directive{Pos: ll.pos, Kind: kw, Text: trimmed}
		}
	}
	if findAssignOp(trimmed) >= 0 {
		return lineAssignment, Directive{}
	}
	return lineOther, Directive{}
}

// findAssignOp finds the byte offset of the first top-level (outside any
// $(...) or ${...} nesting) assignment operator in s, or -1.
func findAssignOp(s string) int {
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(', '{':
			depth++
		case ')', '}':
			if depth > 0 {
				depth--
			}
		}
		if depth == 0 {
			for _, op := range assignOps {
				if strings.HasPrefix(s[i:], op) {
					return i
				}
			}
		}
	}
	return -1
}

// splitLogicalLines joins backslash-newline continuations into single
// logical lines and strips trailing unescaped comments.
type logicalLine struct {
	text string
	pos  Pos
}

func splitLogicalLines(path, source string) []logicalLine {
	rawLines := strings.Split(source, "\n")
	var out []logicalLine
	i := 0
	lineNo := 0
	for i < len(rawLines) {
		startLine := lineNo + 1
		var sb strings.Builder
		for {
			raw := rawLines[i]
			lineNo++
			i++
			stripped := stripComment(raw)
			if strings.HasSuffix(stripped, "\\") && i < len(rawLines) {
				sb.WriteString(strings.TrimSuffix(stripped, "\\"))
				sb.WriteByte(' ')
				continue
			}
			sb.WriteString(stripped)
			break
		}
		out = append(out, logicalLine{text: sb.String(), pos: Pos{File: path, Line: startLine, Column: 1}})
		if i >= len(rawLines) {
			break
		}
	}
	return out
}

// stripComment removes a trailing "# ..." comment, honoring "\#" as a
// literal hash.
func stripComment(line string) string {
	for i := 0; i < len(line); i++ {
		if line[i] == '#' {
			if i > 0 && line[i-1] == '\\' {
				continue
			}
			return line[:i]
		}
	}
	return line
}
