package ops

import "strings"

// containsFold reports whether haystack contains needle, ignoring case,
// used by the search subcommands (`-Qs`/`-Ss`/`-Fs`).
func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}
