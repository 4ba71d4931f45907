package gitrepo

import (
	"sort"
	"testing"

	check "gopkg.in/check.v1"
)

func Test(t *testing.T) { check.TestingT(t) }

type Suite struct{}

var _ = check.Suite(&Suite{})

func (s *Suite) TestScratchPath_sanitizesSlashes(c *check.C) {
	got := ScratchPath("/scratch", "stable/6.1")
	c.Check(got, check.Equals, "/scratch/stable_6.1")
}

func (s *Suite) TestVersionLineRE_extractsAllFour(c *check.C) {
	content := "VERSION = 6\nPATCHLEVEL = 10\nSUBLEVEL = 0\nEXTRAVERSION = -rc1\nNAME = Baby Opossum\n"
	matches := versionLineRE.FindAllStringSubmatch(content, -1)
	c.Assert(matches, check.HasLen, 4)
	got := map[string]string{}
	for _, m := range matches {
		got[m[1]] = m[2]
	}
	c.Check(got["VERSION"], check.Equals, "6")
	c.Check(got["PATCHLEVEL"], check.Equals, "10")
	c.Check(got["SUBLEVEL"], check.Equals, "0")
	c.Check(got["EXTRAVERSION"], check.Equals, "-rc1")
}

func (s *Suite) TestCompareVersions_numericNotLexicographic(c *check.C) {
	c.Check(compareVersions("v6.2", "v6.10") < 0, check.Equals, true,
		check.Commentf("v6.2 must sort before v6.10 despite '1' < '2' lexicographically"))
	c.Check(compareVersions("v6.10", "v6.2") > 0, check.Equals, true)
	c.Check(compareVersions("v6.1", "v6.1") == 0, check.Equals, true)
}

func (s *Suite) TestCompareVersions_patchAndRcComponents(c *check.C) {
	c.Check(compareVersions("v6.1.1", "v6.1.10") < 0, check.Equals, true)
	c.Check(compareVersions("v6.1-rc1", "v6.1-rc9") < 0, check.Equals, true)
	c.Check(compareVersions("v6.1", "v6.1-rc9") < 0, check.Equals, true,
		check.Commentf("a release with no rc suffix has fewer components and sorts first"))
}

func (s *Suite) TestTags_sortsReleaseOrderNotRefname(c *check.C) {
	tags := []string{"v6.10", "v6.2", "v6.1", "v5.19"}
	sort.Slice(tags, func(i, j int) bool { return compareVersions(tags[i], tags[j]) < 0 })
	c.Check(tags, check.DeepEquals, []string{"v5.19", "v6.1", "v6.2", "v6.10"})
}
