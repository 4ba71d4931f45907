package main

import (
	"bufio"
	"bytes"
	"database/sql"
	"io"
	"os"
	"testing"

	"github.com/suse/f2c/internal/store"
	check "gopkg.in/check.v1"
	_ "modernc.org/sqlite"
)

func Test(t *testing.T) { check.TestingT(t) }

type Suite struct {
	dbPath string
}

var _ = check.Suite(&Suite{})

func (s *Suite) SetUpTest(c *check.C) {
	s.dbPath = c.MkDir() + "/f2c.sqlite"

	db, err := sql.Open("sqlite", s.dbPath)
	c.Assert(err, check.IsNil)
	c.Assert(store.CreateSchema(db), check.IsNil)

	tx, err := db.Begin()
	c.Assert(err, check.IsNil)

	branchID, err := store.UpsertBranch(tx, "master", "abc123", "6.10.0", false)
	c.Assert(err, check.IsNil)

	v := store.NewVisitor(tx, branchID, nil, nil)
	v.Config("drivers/net/x.c", "CONFIG_Y")
	v.Module("drivers/net/x.c", "drivers/net/x.o")

	c.Assert(tx.Commit(), check.IsNil)
	c.Assert(db.Close(), check.IsNil)
}

// TestQueryOne_knownFile exercises queryOne directly against an on-disk
// database, bypassing run's flag parsing.
func (s *Suite) TestQueryOne_knownFile(c *check.C) {
	db, err := sql.Open("sqlite", s.dbPath)
	c.Assert(err, check.IsNil)
	defer db.Close()

	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)
	found := queryOne(db, "master", "drivers/net/x.c", false, w)
	c.Assert(w.Flush(), check.IsNil)

	c.Check(found, check.Equals, true)
	c.Check(buf.String(), check.Equals, "drivers/net/x.c CONFIG_Y\n")
}

func (s *Suite) TestQueryOne_unknownFileReportsQuestionMark(c *check.C) {
	db, err := sql.Open("sqlite", s.dbPath)
	c.Assert(err, check.IsNil)
	defer db.Close()

	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)
	found := queryOne(db, "master", "drivers/net/missing.c", false, w)
	c.Assert(w.Flush(), check.IsNil)

	c.Check(found, check.Equals, false)
	c.Check(buf.String(), check.Equals, "drivers/net/missing.c ?\n")
}

func (s *Suite) TestQueryOne_moduleColumn(c *check.C) {
	db, err := sql.Open("sqlite", s.dbPath)
	c.Assert(err, check.IsNil)
	defer db.Close()

	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)
	found := queryOne(db, "master", "drivers/net/x.c", true, w)
	c.Assert(w.Flush(), check.IsNil)

	c.Check(found, check.Equals, true)
	c.Check(buf.String(), check.Equals, "drivers/net/x.c CONFIG_Y drivers/net/x.o\n")
}

// TestRun_endToEnd drives run() the way the binary itself is invoked,
// with an os.Pipe standing in for stdout and /dev/null for stdin, rather
// than calling queryOne directly.
func (s *Suite) TestRun_endToEnd(c *check.C) {
	r, w, err := os.Pipe()
	c.Assert(err, check.IsNil)

	devNull, err := os.Open(os.DevNull)
	c.Assert(err, check.IsNil)
	defer devNull.Close()

	args := []string{"f2c-query", "--branch", "master", "--file", "drivers/net/x.c", "--sqlite", s.dbPath}

	rc := run(args, w, devNull)
	c.Assert(w.Close(), check.IsNil)

	out, err := io.ReadAll(r)
	c.Assert(err, check.IsNil)

	c.Check(rc, check.Equals, 0)
	c.Check(string(out), check.Equals, "drivers/net/x.c CONFIG_Y\n")
}

func (s *Suite) TestRun_missingFileExitsNonZero(c *check.C) {
	r, w, err := os.Pipe()
	c.Assert(err, check.IsNil)

	devNull, err := os.Open(os.DevNull)
	c.Assert(err, check.IsNil)
	defer devNull.Close()

	args := []string{"f2c-query", "--branch", "master", "--file", "drivers/net/missing.c", "--sqlite", s.dbPath}

	rc := run(args, w, devNull)
	c.Assert(w.Close(), check.IsNil)

	out, err := io.ReadAll(r)
	c.Assert(err, check.IsNil)

	c.Check(rc, check.Equals, 1)
	c.Check(string(out), check.Equals, "drivers/net/missing.c ?\n")
}
