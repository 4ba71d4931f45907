package kconfigtree

import (
	"sort"
	"testing"
	"testing/fstest"

	check "gopkg.in/check.v1"
)

func Test(t *testing.T) { check.TestingT(t) }

type Suite struct{}

var _ = check.Suite(&Suite{})

func (s *Suite) TestCollect_parsesSetAndUnsetLines(c *check.C) {
	fsys := fstest.MapFS{
		"config/x86_64/default": {Data: []byte(
			"CONFIG_NET=y\n" +
				"CONFIG_WLAN=m\n" +
				"# CONFIG_DEBUG_KERNEL is not set\n" +
				"# a plain comment, not a config line\n",
		)},
	}
	values, err := Collect(fsys)
	c.Assert(err, check.IsNil)

	sort.Slice(values, func(i, j int) bool { return values[i].Config < values[j].Config })
	c.Assert(values, check.HasLen, 3)
	c.Check(values[0], check.DeepEquals, Value{Arch: "x86_64", Flavor: "default", Config: "CONFIG_DEBUG_KERNEL", Value: "n"})
	c.Check(values[1], check.DeepEquals, Value{Arch: "x86_64", Flavor: "default", Config: "CONFIG_NET", Value: "y"})
	c.Check(values[2], check.DeepEquals, Value{Arch: "x86_64", Flavor: "default", Config: "CONFIG_WLAN", Value: "m"})
}

func (s *Suite) TestCollect_noConfigDirYieldsNoValues(c *check.C) {
	fsys := fstest.MapFS{"README": {Data: []byte("hi\n")}}
	values, err := Collect(fsys)
	c.Assert(err, check.IsNil)
	c.Check(values, check.HasLen, 0)
}

func (s *Suite) TestCollect_multipleArchesAndFlavors(c *check.C) {
	fsys := fstest.MapFS{
		"config/x86_64/default": {Data: []byte("CONFIG_NET=y\n")},
		"config/s390x/default":  {Data: []byte("CONFIG_NET=m\n")},
	}
	values, err := Collect(fsys)
	c.Assert(err, check.IsNil)
	c.Assert(values, check.HasLen, 2)

	byArch := map[string]string{}
	for _, v := range values {
		byArch[v.Arch] = v.Value
	}
	c.Check(byArch["x86_64"], check.Equals, "y")
	c.Check(byArch["s390x"], check.Equals, "m")
}
