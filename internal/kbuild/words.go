package kbuild

import "strings"

// splitTopLevelFields splits s on runs of whitespace that occur outside any
// $(...) or ${...} nesting, the way make splits a value into words.
func splitTopLevelFields(s string) []string {
	var fields []string
	var cur strings.Builder
	depth := 0
	flush := func() {
		if cur.Len() > 0 {
			fields = append(fields, cur.String())
			cur.Reset()
		}
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '(' || c == '{':
			depth++
			cur.WriteByte(c)
		case c == ')' || c == '}':
			if depth > 0 {
				depth--
			}
			cur.WriteByte(c)
		case depth == 0 && (c == ' ' || c == '\t'):
			flush()
		default:
			cur.WriteByte(c)
		}
	}
	flush()
	return fields
}

// scanAtoms tokenizes one whitespace-delimited word into a Word (a sequence
// of literal and builtin atoms). It returns ok=false when the word contains
// a construct the fast grammar refuses to guess at: an unbalanced
// $(...)/${...} group, or a function-style reference with arguments
// (a space inside the parens), which the small subset of make semantics
// this parser supports does not model.
func scanAtoms(word string) (Word, bool) {
	var w Word
	var lit strings.Builder
	flushLit := func() {
		if lit.Len() > 0 {
			w = append(w, Atom{Literal: lit.String()})
			lit.Reset()
		}
	}

	i := 0
	for i < len(word) {
		c := word[i]
		if c != '$' {
			lit.WriteByte(c)
			i++
			continue
		}
		if i+1 >= len(word) {
			// trailing lone '$'
			lit.WriteByte(c)
			i++
			continue
		}
		next := word[i+1]
		if next == '$' {
			lit.WriteByte('$')
			i += 2
			continue
		}
		if next == '(' || next == '{' {
			open, close := next, matchingClose(next)
			inner, consumed, ok := scanBalanced(word[i+2:], open, close)
			if !ok {
				return nil, false
			}
			if strings.ContainsAny(inner, " \t,") {
				// function-style reference with arguments: outside this
				// parser's small whitelist.
				return nil, false
			}
			flushLit()
			raw := word[i : i+2+consumed+1]
			w = append(w, Atom{Builtin: inner, Raw: raw})
			i += 2 + consumed + 1
			continue
		}
		if isNameByte(next) {
			j := i + 1
			for j < len(word) && isNameByte(word[j]) {
				j++
			}
			flushLit()
			w = append(w, Atom{Builtin: word[i+1 : j], Raw: word[i:j]})
			i = j
			continue
		}
		// "$@", "$<" and similar single-character automatic variables:
		// treated as an opaque builtin the table doesn't recognize, so it
		// expands to its own literal source text (see builtins.go).
		flushLit()
		w = append(w, Atom{Builtin: string(next), Raw: word[i : i+2]})
		i += 2
	}
	flushLit()
	return w, true
}

// scanAtomsLenient is the full-parser counterpart to scanAtoms: it never
// bails, and instead reports a diagnostic for whatever it cannot resolve,
// falling back to treating the offending text as a literal atom.
func scanAtomsLenient(pos Pos, word string, diag func(Diagnostic)) Word {
	if w, ok := scanAtoms(word); ok {
		return w
	}
	if diag != nil {
		diag(Diagnostic{Pos: pos, Message: "unsupported reference in word", Token: word})
	}
	return Word{{Literal: word}}
}

func matchingClose(open byte) byte {
	if open == '(' {
		return ')'
	}
	return '}'
}

// scanBalanced returns the text between the already-consumed opening
// delimiter and its matching close, honoring nested occurrences of the
// same delimiter pair, plus the number of bytes consumed up to and
// including that matching close (not counted in the returned inner text).
func scanBalanced(s string, open, close byte) (inner string, consumed int, ok bool) {
	depth := 1
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return s[:i], i, true
			}
		}
	}
	return "", 0, false
}

func isNameByte(b byte) bool {
	return b == '_' || (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z') || (b >= '0' && b <= '9')
}
