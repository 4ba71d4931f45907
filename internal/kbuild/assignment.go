package kbuild

import "strings"

// fastParseAssignment parses one assignment line using the predictive
// fast path. It returns ok=false for any line whose LHS or RHS uses a
// construct the fast grammar refuses to guess at, so the caller can retry
// the whole file with the full-lookahead parser.
func fastParseAssignment(ll logicalLine) (*Assignment, bool) {
	trimmed := strings.TrimSpace(ll.text)
	opIdx := findAssignOp(trimmed)
	if opIdx < 0 {
		return nil, false
	}
	op := matchedOp(trimmed, opIdx)
	lhsRaw := strings.TrimSpace(trimmed[:opIdx])
	rhsRaw := strings.TrimSpace(trimmed[opIdx+len(op):])

	lhs, lhsCond, ok := parseLHS(lhsRaw)
	if !ok {
		return nil, false
	}

	var words []Word
	for _, f := range splitTopLevelFields(rhsRaw) {
		w, ok := scanAtoms(f)
		if !ok {
			return nil, false
		}
		words = append(words, w)
	}

	return &Assignment{Pos: ll.pos, LHS: lhs, LHSCond: lhsCond, Op: op, RHSWords: words}, true
}

// fullParseAssignment is the full-lookahead counterpart: it always
// produces an Assignment, reporting diagnostics for anything it can't
// confidently resolve rather than bailing.
func fullParseAssignment(ll logicalLine, diag func(Diagnostic)) *Assignment {
	trimmed := strings.TrimSpace(ll.text)
	opIdx := findAssignOp(trimmed)
	if opIdx < 0 {
		diag(Diagnostic{Pos: ll.pos, Message: "expected an assignment operator", Token: trimmed})
		return nil
	}
	op := matchedOp(trimmed, opIdx)
	lhsRaw := strings.TrimSpace(trimmed[:opIdx])
	rhsRaw := strings.TrimSpace(trimmed[opIdx+len(op):])

	lhs, lhsCond, ok := parseLHS(lhsRaw)
	if !ok {
		diag(Diagnostic{Pos: ll.pos, Message: "malformed left-hand side", Token: lhsRaw})
		lhs, lhsCond = lhsRaw, ""
	}

	var words []Word
	for _, f := range splitTopLevelFields(rhsRaw) {
		words = append(words, scanAtomsLenient(ll.pos, f, diag))
	}

	return &Assignment{Pos: ll.pos, LHS: lhs, LHSCond: lhsCond, Op: op, RHSWords: words}
}

func matchedOp(s string, idx int) string {
	for _, op := range assignOps {
		if strings.HasPrefix(s[idx:], op) {
			return op
		}
	}
	return "="
}

// parseLHS accepts a literal identifier such as "obj-y" or one containing
// exactly one "$(SYMBOL)" reference such as "obj-$(CONFIG_FOO)", returning
// the LHS text unchanged and the captured symbol (empty when there is
// none). It refuses (ok=false) an LHS with more than one parenthesized
// reference or an unbalanced one — those never occur in real Kbuild files
// and are treated as a full-parser-only edge case.
func parseLHS(s string) (lhs string, cond string, ok bool) {
	i := strings.Index(s, "$(")
	if i < 0 {
		if strings.ContainsAny(s, "$)") {
			return s, "", false
		}
		return s, "", true
	}
	inner, consumed, matched := scanBalanced(s[i+2:], '(', ')')
	if !matched {
		return s, "", false
	}
	rest := s[i+2+consumed+1:]
	if strings.Contains(rest, "$(") {
		return s, "", false // more than one reference
	}
	return s, inner, true
}
