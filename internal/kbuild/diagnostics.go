package kbuild

import "fmt"

// Diagnostic is a single parse-time or walk-time note attached to a
// position in a source file. The core never aborts because of one of
// these; see §7 of the design: nothing is fatal except a database I/O
// failure or a programmer invariant, and those live outside this package.
type Diagnostic struct {
	Pos      Pos
	Message  string
	RuleTrail []string // parser rule stack, populated by the full-lookahead pass
	Token    string    // offending token text, for an "underline" style report
}

func (d Diagnostic) String() string {
	if len(d.RuleTrail) == 0 {
		return fmt.Sprintf("%s: %s", d.Pos, d.Message)
	}
	return fmt.Sprintf("%s: %s (in %v, at %q)", d.Pos, d.Message, d.RuleTrail, d.Token)
}

// DiagnosticListener receives diagnostics as they are produced. A nil
// listener means "parse silently," mirroring the teacher's convention of
// accepting a nil Autofixer/diagnoser.
type DiagnosticListener interface {
	Diag(Diagnostic)
}

// DiagnosticFunc adapts a plain function to DiagnosticListener.
type DiagnosticFunc func(Diagnostic)

func (f DiagnosticFunc) Diag(d Diagnostic) { f(d) }

// ParseFailure is returned by Parse when the file could not be parsed even
// after the full-lookahead retry. It carries every diagnostic collected
// along the way.
type ParseFailure struct {
	Path        string
	Diagnostics []Diagnostic
}

func (e *ParseFailure) Error() string {
	return fmt.Sprintf("kbuild: parse of %s failed with %d error(s)", e.Path, len(e.Diagnostics))
}

func (e *ParseFailure) Kind() string { return "ParseFailureError" }

// ErrorKind is satisfied by every error kind in the closed taxonomy of §7:
// FileNotFoundError, ParseFailureError, VisitedCollision,
// DatabaseConstraintViolation, DatabaseIOFailure, MergeCommitOnQuery. Callers
// in internal/store and the CLI layer branch on Kind() rather than on
// string-matching an error's Error() text.
type ErrorKind interface {
	Kind() string
}

// FileNotFoundError is logged and does not halt TreeWalker's walk: a source
// or Kbuild/Makefile path referenced by an assignment did not exist.
type FileNotFoundError struct {
	Path string
}

func (e *FileNotFoundError) Error() string { return fmt.Sprintf("kbuild: file not found: %s", e.Path) }
func (e *FileNotFoundError) Kind() string  { return "FileNotFoundError" }

// VisitedCollision marks a path TreeWalker has already handled once; it is
// not a Go error returned from any function, only a diagnostic classifier —
// callers emit an `ignored` visitor event and continue.
type VisitedCollision struct {
	Path string
}

func (e VisitedCollision) Kind() string   { return "VisitedCollision" }
func (e VisitedCollision) String() string { return fmt.Sprintf("%s: already visited", e.Path) }

// DatabaseConstraintViolation marks a unique-constraint failure on an
// idempotent insert (e.g. INSERT OR IGNORE colliding with an existing row).
// internal/store treats this kind as success, never surfacing it as a Go
// error to its caller.
type DatabaseConstraintViolation struct {
	Table string
	Err   error
}

func (e *DatabaseConstraintViolation) Error() string {
	return fmt.Sprintf("kbuild: constraint violation on %s: %v", e.Table, e.Err)
}
func (e *DatabaseConstraintViolation) Kind() string { return "DatabaseConstraintViolation" }
func (e *DatabaseConstraintViolation) Unwrap() error { return e.Err }

// DatabaseIOFailure is the one kind that propagates: internal/store wraps
// any non-constraint database/sql error in this kind, and the CLI layer
// aborts the current branch's transaction on sight of it.
type DatabaseIOFailure struct {
	Op  string
	Err error
}

func (e *DatabaseIOFailure) Error() string {
	return fmt.Sprintf("kbuild: database I/O failure during %s: %v", e.Op, e.Err)
}
func (e *DatabaseIOFailure) Kind() string  { return "DatabaseIOFailure" }
func (e *DatabaseIOFailure) Unwrap() error { return e.Err }

// MergeCommitOnQuery marks a commit sha passed to the query tool that has
// more than one parent; internal/gitrepo logs a warning and skips it rather
// than resolving its changed-file set.
type MergeCommitOnQuery struct {
	SHA string
}

func (e *MergeCommitOnQuery) Error() string {
	return fmt.Sprintf("kbuild: %s is a merge commit, skipping", e.SHA)
}
func (e *MergeCommitOnQuery) Kind() string { return "MergeCommitOnQuery" }
