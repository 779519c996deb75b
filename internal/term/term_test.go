package term

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWCWidth(t *testing.T) {
	for _, test := range []struct {
		desc string
		s    string
		want int
	}{
		{desc: "ascii", s: "hello", want: 5},
		{desc: "empty", s: "", want: 0},
		{desc: "wide cjk", s: "中文", want: 4},
		{desc: "mixed", s: "a中b", want: 4},
	} {
		t.Run(test.desc, func(t *testing.T) {
			assert.Equal(t, test.want, WCWidth(test.s), "WCWidth(%q)", test.s)
		})
	}
}

func TestTruncate(t *testing.T) {
	for _, test := range []struct {
		desc     string
		s        string
		maxWidth int
		want     string
	}{
		{desc: "fits", s: "short", maxWidth: 10, want: "short"},
		{desc: "truncated", s: "this-is-a-very-long-package-name", maxWidth: 10, want: "this-is..."},
		{desc: "exact fit no truncation", s: "exactly10!", maxWidth: 10, want: "exactly10!"},
	} {
		t.Run(test.desc, func(t *testing.T) {
			got := Truncate(test.s, test.maxWidth)
			assert.Equal(t, test.want, got, "Truncate(%q, %d)", test.s, test.maxWidth)
			assert.LessOrEqual(t, WCWidth(got), test.maxWidth, "Truncate(%q, %d) = %q overflows", test.s, test.maxWidth, got)
		})
	}
}

func TestHumanizeSize(t *testing.T) {
	for _, test := range []struct {
		desc      string
		bytes     float64
		precision int
		wantVal   float64
		wantUnit  string
	}{
		{desc: "bytes", bytes: 512, precision: -1, wantVal: 512, wantUnit: "B"},
		{desc: "exactly 1 KiB", bytes: 1024, precision: -1, wantVal: 1, wantUnit: "KiB"},
		{desc: "mebibytes", bytes: 5 * 1024 * 1024, precision: -1, wantVal: 5, wantUnit: "MiB"},
		{desc: "gibibytes", bytes: 2.5 * 1024 * 1024 * 1024, precision: -1, wantVal: 2.5, wantUnit: "GiB"},
	} {
		t.Run(test.desc, func(t *testing.T) {
			val, unit := HumanizeSize(test.bytes, test.precision)
			assert.Equal(t, test.wantVal, val, "HumanizeSize(%v, %d) value", test.bytes, test.precision)
			assert.Equal(t, test.wantUnit, unit, "HumanizeSize(%v, %d) unit", test.bytes, test.precision)
		})
	}
}
