package vercmp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompare(t *testing.T) {
	for _, test := range []struct {
		desc string
		a, b string
		want int
	}{
		{desc: "equal", a: "1.0-1", b: "1.0-1", want: 0},
		{desc: "release bump", a: "1.0-2", b: "1.0-1", want: 1},
		{desc: "epoch wins", a: "1:1.0-1", b: "2.0-1", want: 1},
		{desc: "alpha before numeric segment", a: "1.0alpha", b: "1.0", want: -1},
		{desc: "numeric segment length", a: "1.011", b: "1.012", want: -1},
		{desc: "leading zeros ignored", a: "1.0011-1", b: "1.011-1", want: 0},
		{desc: "simple less", a: "2.31", b: "2.32", want: -1},
		{desc: "simple greater", a: "2.32", b: "2.31", want: 1},
	} {
		t.Run(test.desc, func(t *testing.T) {
			assert.Equal(t, test.want, Compare(test.a, test.b), "Compare(%q, %q)", test.a, test.b)
		})
	}
}

func TestSatisfies(t *testing.T) {
	for _, test := range []struct {
		desc      string
		installed string
		mod       Modifier
		version   string
		want      bool
	}{
		{desc: "any always satisfies", installed: "1.0-1", mod: Any, version: "99.0-1", want: true},
		{desc: "ge satisfied", installed: "2.31-1", mod: Ge, version: "2.30-1", want: true},
		{desc: "ge missing", installed: "2.31-1", mod: Ge, version: "99.0-1", want: false},
		{desc: "eq satisfied", installed: "2.31-1", mod: Eq, version: "2.31-1", want: true},
		{desc: "lt satisfied", installed: "2.31-1", mod: Lt, version: "2.32-1", want: true},
	} {
		t.Run(test.desc, func(t *testing.T) {
			assert.Equal(t, test.want, Satisfies(test.installed, test.mod, test.version),
				"Satisfies(%q, %v, %q)", test.installed, test.mod, test.version)
		})
	}
}
