// Package patch expands a SUSE-style series.conf plus a patches.* tree
// into a flat, ordered list of applicable patch paths.
package patch

import (
	"bufio"
	"fmt"
	"io"
	"io/fs"
	"strings"
)

// Entry is one line of series.conf after conditional evaluation: a patch
// path relative to the series.conf's directory, and whether it is
// currently enabled.
type Entry struct {
	Path    string
	Enabled bool
}

// Expand reads seriesPath from fsys and evaluates its "+"/"-" enable
// markers and "%if"/"%else"/"%endif" conditional blocks against the given
// symbol set (flavor/config names considered "defined"), returning the
// ordered patch list with disabled entries filtered out.
func Expand(fsys fs.FS, seriesPath string, defined map[string]bool) ([]string, error) {
	f, err := fsys.Open(seriesPath)
	if err != nil {
		return nil, fmt.Errorf("patch: open %s: %w", seriesPath, err)
	}
	defer f.Close()

	entries, err := parseSeries(f, defined)
	if err != nil {
		return nil, fmt.Errorf("patch: parse %s: %w", seriesPath, err)
	}

	var out []string
	for _, e := range entries {
		if e.Enabled {
			out = append(out, e.Path)
		}
	}
	return out, nil
}

type condFrame struct {
	active   bool // this frame's own condition holds
	parentOK bool // every enclosing frame is active too
	taken    bool // some branch of this %if/%else chain has already been taken
}

func (f condFrame) effective() bool { return f.active && f.parentOK }

func parseSeries(r io.Reader, defined map[string]bool) ([]Entry, error) {
	var entries []Entry
	var stack []condFrame

	currentlyActive := func() bool {
		for _, f := range stack {
			if !f.effective() {
				return false
			}
		}
		return true
	}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), " \t")
		trimmed := strings.TrimSpace(line)

		switch {
		case trimmed == "" || strings.HasPrefix(trimmed, "#"):
			continue

		case strings.HasPrefix(trimmed, "%if "):
			cond := strings.TrimSpace(strings.TrimPrefix(trimmed, "%if "))
			stack = append(stack, condFrame{
				active:   defined[cond],
				parentOK: currentlyActive(),
				taken:    defined[cond],
			})
			continue

		case trimmed == "%else":
			if len(stack) == 0 {
				return nil, fmt.Errorf("%%else without matching %%if")
			}
			top := &stack[len(stack)-1]
			top.active = !top.taken
			top.taken = true
			continue

		case trimmed == "%endif":
			if len(stack) == 0 {
				return nil, fmt.Errorf("%%endif without matching %%if")
			}
			stack = stack[:len(stack)-1]
			continue
		}

		if !currentlyActive() {
			continue
		}

		enabled := true
		path := trimmed
		switch path[0] {
		case '-':
			enabled = false
			path = strings.TrimSpace(path[1:])
		case '+':
			path = strings.TrimSpace(path[1:])
		}
		if path == "" {
			continue
		}
		entries = append(entries, Entry{Path: path, Enabled: enabled})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}
