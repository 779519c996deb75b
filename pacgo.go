// Package pacgo implements the front-end driver of a system package
// manager: argument parsing, configuration loading, transaction
// orchestration and interactive terminal rendering. The actual dependency
// resolver, archive extractor, package database and network fetcher are
// external collaborators reached only through internal/backend.Backend.
package pacgo

// Architectures enumerates the CPU architecture identifiers the
// configuration resolver accepts for the Architecture directive.
var Architectures = map[string]bool{
	"amd64":   true,
	"i686":    true,
	"aarch64": true,
	"armv7h":  true,
}
