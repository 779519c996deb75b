// Package ini implements the hierarchical configuration resolver of
// spec.md C3: a streaming INI parser with globbed recursive includes,
// bounded recursion depth and a three-shape callback protocol. Grounded
// directly on pacman's src/pacman/ini.c (_parse_ini/parse_ini).
package ini

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// MaxDepth bounds Include recursion, matching ini.c's ini_max_recursion.
const MaxDepth = 10

// ErrorKind enumerates the failure taxonomy of spec.md §4.3 / §7.1.
type ErrorKind int

const (
	OpenFailed ErrorKind = iota
	MaxDepthExceeded
	BadSectionHeader
	MissingKey
	IncludeNeedsValue
	CallbackRejected
)

func (k ErrorKind) String() string {
	switch k {
	case OpenFailed:
		return "open failed"
	case MaxDepthExceeded:
		return "max recursion depth exceeded"
	case BadSectionHeader:
		return "bad section header"
	case MissingKey:
		return "missing key"
	case IncludeNeedsValue:
		return "Include directive needs a value"
	case CallbackRejected:
		return "callback rejected"
	default:
		return "unknown ini error"
	}
}

// ParseError is returned by Parse on any parse failure.
type ParseError struct {
	Kind     ErrorKind
	File     string
	Line     int
	Code     int // set when Kind == CallbackRejected
	Underlying error
}

func (e *ParseError) Error() string {
	if e.File != "" && e.Line > 0 {
		return fmt.Sprintf("%s:%d: %s", e.File, e.Line, e.Kind)
	}
	if e.Underlying != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Underlying)
	}
	return e.Kind.String()
}

func (e *ParseError) Unwrap() error { return e.Underlying }

// Callback is invoked:
//   - once with section set and key/value nil when a new section header
//     is entered;
//   - once per key/value directive (value nil for boolean-style directives);
//   - once finally with all four fields nil/empty to signal end of the
//     root file (only at depth 0).
//
// Any non-zero return aborts parsing and is surfaced as a CallbackRejected
// ParseError carrying that code.
type Callback func(file string, lineno int, section, key, value string, hasSection, hasKey, hasValue bool) int

// DebugLogger receives debug-level notices (glob misses, recursion,
// file-open attempts) the way pacman's ALPM_LOG_DEBUG calls do. It may be
// nil.
type DebugLogger func(format string, args ...interface{})

// Parse parses the pacman-style INI file at path, invoking cb per
// spec.md §4.3. debug, if non-nil, receives low-priority diagnostics.
func Parse(path string, cb Callback, debug DebugLogger) error {
	if debug == nil {
		debug = func(string, ...interface{}) {}
	}
	state := &parseState{}
	return parseDepth(path, cb, debug, 0, state)
}

// parseState is shared across the whole recursive Include chain of one
// Parse call, mirroring _parse_ini's shared `section_name` pointer in
// ini.c: a mirrorlist pulled in via Include inside a repository section
// continues in that same section, it does not need (or allow) its own
// header.
type parseState struct {
	section     string
	haveSection bool
}

func parseDepth(path string, cb Callback, debug DebugLogger, depth int, state *parseState) error {
	if depth >= MaxDepth {
		return &ParseError{Kind: MaxDepthExceeded, File: path}
	}

	debug("config: attempting to read file %s", path)
	f, err := os.Open(path)
	if err != nil {
		return &ParseError{Kind: OpenFailed, File: path, Underlying: err}
	}
	defer f.Close()

	lineno := 0
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 4096), 1<<20)
	for scanner.Scan() {
		lineno++
		line := scanner.Text()
		if idx := strings.IndexByte(line, '#'); idx >= 0 {
			line = line[:idx]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if line[0] == '[' && strings.HasSuffix(line, "]") {
			if len(line) <= 2 {
				return &ParseError{Kind: BadSectionHeader, File: path, Line: lineno}
			}
			name := line[1 : len(line)-1]
			if name == "" {
				return &ParseError{Kind: BadSectionHeader, File: path, Line: lineno}
			}
			if ret := cb(path, lineno, name, "", "", true, false, false); ret != 0 {
				return &ParseError{Kind: CallbackRejected, File: path, Line: lineno, Code: ret}
			}
			state.section = name
			state.haveSection = true
			continue
		}

		key, value, hasValue := splitDirective(line)
		if key == "" {
			return &ParseError{Kind: MissingKey, File: path, Line: lineno}
		}

		if key == "Include" {
			if !hasValue || value == "" {
				return &ParseError{Kind: IncludeNeedsValue, File: path, Line: lineno}
			}
			matches, globErr := filepath.Glob(value)
			if globErr != nil || len(matches) == 0 {
				// NOCHECK semantics: no match is a debug notice, not an
				// error; the driver silently continues.
				debug("config file %s, line %d: no include found for %s", path, lineno, value)
				continue
			}
			for _, m := range matches {
				debug("config file %s, line %d: including %s", path, lineno, m)
				if err := parseDepth(m, cb, debug, depth+1, state); err != nil {
					return err
				}
			}
			continue
		}

		if !state.haveSection {
			return &ParseError{Kind: MissingKey, File: path, Line: lineno,
				Underlying: fmt.Errorf("directive %q outside of any section", key)}
		}

		if ret := cb(path, lineno, state.section, key, value, true, true, hasValue); ret != 0 {
			return &ParseError{Kind: CallbackRejected, File: path, Line: lineno, Code: ret}
		}
	}
	if err := scanner.Err(); err != nil && err != io.EOF {
		return &ParseError{Kind: OpenFailed, File: path, Underlying: err}
	}

	if depth == 0 {
		if ret := cb("", 0, "", "", "", false, false, false); ret != 0 {
			return &ParseError{Kind: CallbackRejected, Code: ret}
		}
	}
	debug("config: finished parsing %s", path)
	return nil
}

// splitDirective splits "key = value" / "key" into key, value, hasValue.
func splitDirective(line string) (key, value string, hasValue bool) {
	idx := strings.IndexByte(line, '=')
	if idx < 0 {
		return strings.TrimSpace(line), "", false
	}
	key = strings.TrimSpace(line[:idx])
	value = strings.TrimSpace(line[idx+1:])
	return key, value, true
}
