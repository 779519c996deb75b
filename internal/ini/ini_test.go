package ini

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type event struct {
	section, key, value         string
	hasSection, hasKey, hasValue bool
}

func recordingCallback(events *[]event) Callback {
	return func(file string, lineno int, section, key, value string, hasSection, hasKey, hasValue bool) int {
		*events = append(*events, event{section, key, value, hasSection, hasKey, hasValue})
		return 0
	}
}

func TestParseBasic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pacman.conf")
	os.WriteFile(path, []byte("# comment\n[options]\nRootDir = /\nUseSyslog\n[core]\nServer = https://example/$repo\n"), 0o644)

	var events []event
	require.NoError(t, Parse(path, recordingCallback(&events), nil))

	want := []event{
		{section: "options", hasSection: true},
		{section: "options", key: "RootDir", value: "/", hasSection: true, hasKey: true, hasValue: true},
		{section: "options", key: "UseSyslog", hasSection: true, hasKey: true, hasValue: false},
		{section: "core", hasSection: true},
		{section: "core", key: "Server", value: "https://example/$repo", hasSection: true, hasKey: true, hasValue: true},
		{},
	}
	require.Equal(t, want, events)
}

func TestParseIncludeInheritsEnclosingSection(t *testing.T) {
	dir := t.TempDir()
	mirrorlist := filepath.Join(dir, "mirrorlist")
	os.WriteFile(mirrorlist, []byte("Server = https://mirror.one/$repo\nServer = https://mirror.two/$repo\n"), 0o644)

	path := filepath.Join(dir, "pacman.conf")
	os.WriteFile(path, []byte("[core]\nInclude = "+mirrorlist+"\n"), 0o644)

	var events []event
	require.NoError(t, Parse(path, recordingCallback(&events), nil))

	var servers []string
	for _, e := range events {
		if e.key == "Server" {
			servers = append(servers, e.value)
			require.Equal(t, "core", e.section, "Server directive from included mirrorlist attributed to wrong section")
		}
	}
	require.Len(t, servers, 2, "Server directives via Include")
}

func chainOf(dir string, n int) []string {
	var paths []string
	for i := 0; i < n; i++ {
		paths = append(paths, filepath.Join(dir, "f"+string(rune('a'+i))))
	}
	for i, p := range paths {
		content := "[options]\n"
		if i+1 < len(paths) {
			content += "Include = " + paths[i+1] + "\n"
		}
		os.WriteFile(p, []byte(content), 0o644)
	}
	return paths
}

func TestParseMaxDepthBoundary(t *testing.T) {
	t.Run("chain of 10 succeeds", func(t *testing.T) {
		paths := chainOf(t.TempDir(), 10)
		require.NoError(t, Parse(paths[0], recordingCallback(&[]event{}), nil), "a 10-file include chain should succeed")
	})
	t.Run("chain of 11 fails", func(t *testing.T) {
		paths := chainOf(t.TempDir(), 11)
		err := Parse(paths[0], recordingCallback(&[]event{}), nil)
		pe, ok := err.(*ParseError)
		require.True(t, ok, "Parse error = %v, want a *ParseError", err)
		require.Equal(t, MaxDepthExceeded, pe.Kind)
	})
}

func TestParseDirectiveOutsideSectionFails(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pacman.conf")
	os.WriteFile(path, []byte("RootDir = /\n"), 0o644)

	err := Parse(path, recordingCallback(&[]event{}), nil)
	require.Error(t, err, "Parse should fail for a directive preceding any section")
}

func TestParseIncludeGlobNoMatchIsNotAnError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pacman.conf")
	os.WriteFile(path, []byte("[options]\nInclude = "+filepath.Join(dir, "nonexistent.d/*.conf")+"\n"), 0o644)

	var debugged []string
	debug := func(format string, args ...interface{}) { debugged = append(debugged, format) }
	require.NoError(t, Parse(path, recordingCallback(&[]event{}), debug))
}

func TestParseEmptySectionNameIsBad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pacman.conf")
	os.WriteFile(path, []byte("[]\n"), 0o644)

	err := Parse(path, recordingCallback(&[]event{}), nil)
	pe, ok := err.(*ParseError)
	require.True(t, ok, "Parse error = %v, want a *ParseError", err)
	require.Equal(t, BadSectionHeader, pe.Kind)
}

func TestParseCallbackRejectionAborts(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pacman.conf")
	os.WriteFile(path, []byte("[options]\nRootDir = /\nDBPath = /var/lib/pacgo/\n"), 0o644)

	seen := 0
	cb := func(file string, lineno int, section, key, value string, hasSection, hasKey, hasValue bool) int {
		if hasKey {
			seen++
		}
		return 42
	}
	err := Parse(path, cb, nil)
	pe, ok := err.(*ParseError)
	require.True(t, ok, "Parse error = %v, want a *ParseError", err)
	require.Equal(t, CallbackRejected, pe.Kind)
	require.Equal(t, 42, pe.Code)
	// The [options] header callback is the first invocation and already
	// rejects, so no directive is ever delivered.
	require.Equal(t, 0, seen, "directive callbacks after the section header was rejected")
}
