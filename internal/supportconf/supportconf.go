// Package supportconf parses a kernel-source tree's supported.conf file,
// which classifies each kernel module by support level, and answers
// module_details_map's "supported" question for a given module path.
//
// The upstream SupportedConf/CollectConfigs headers that the original
// implementation includes (sl/kerncvs/SupportedConf.h,
// sl/kerncvs/CollectConfigs.h) are not part of the retrieved source: this
// package reconstructs their externally observable behavior from
// main.cpp's getSupported/processConfigs call sites and the well-known
// supported.conf line format, not from the header itself.
package supportconf

import (
	"bufio"
	"io"
	"strings"

	"github.com/suse/f2c/internal/globpat"
)

// Support levels, matching module_details_map's CHECK (supported BETWEEN
// -3 AND 4): Unlisted is the schema's lower bound, used for modules that
// match no supported.conf entry at all.
const (
	Unlisted    = -3
	Unsupported = -1
	Base        = 0
	External    = 1
)

type entry struct {
	pattern *globpat.Pattern
	state   int
}

// Conf is a parsed supported.conf: an ordered list of glob-pattern rules,
// each associating a module path pattern with a support level. The last
// matching rule wins, mirroring how supported.conf's more specific
// overrides are conventionally listed after the broader defaults.
type Conf struct {
	entries []entry
}

// Parse reads a supported.conf body. Blank lines and lines starting with
// "#" are skipped. Each remaining line is a module path glob, optionally
// prefixed with "+" (External, e.g. an externally maintained KMP) or "-"
// (Unsupported); a bare path is Base support.
func Parse(r io.Reader) (*Conf, error) {
	conf := &Conf{}
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		state := Base
		switch line[0] {
		case '+':
			state = External
			line = strings.TrimSpace(line[1:])
		case '-':
			state = Unsupported
			line = strings.TrimSpace(line[1:])
		}
		if line == "" {
			continue
		}
		pat, err := globpat.Compile(line)
		if err != nil {
			return nil, err
		}
		conf.entries = append(conf.entries, entry{pattern: pat, state: state})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return conf, nil
}

// State reports modulePath's support level, Unlisted if no rule matches.
func (c *Conf) State(modulePath string) int {
	if c == nil {
		return Unlisted
	}
	state := Unlisted
	for _, e := range c.entries {
		if e.pattern.Match(modulePath) {
			state = e.state
		}
	}
	return state
}
