// Package term provides the terminal primitives the rest of the driver
// builds on: column width detection, cursor movement, wide-character
// width estimation and humanized byte sizes. Grounded on pacman's
// src/pacman/util.c:getcols() and callback.c's wcswidth-based rendering,
// adapted to golang.org/x/term and github.com/mattn/go-isatty instead of
// raw ioctl(2) calls.
package term

import (
	"fmt"
	"os"
	"sync"

	"github.com/mattn/go-isatty"
	"golang.org/x/term"
)

var (
	mu          sync.Mutex
	cachedCols  int
	cacheValid  bool
	defaultCols = 80
)

// Columns returns the terminal width in columns, caching the value until
// ResetCache is called (normally from a SIGWINCH handler). Returns 80 when
// stdout is not a terminal, matching pacman's getcols() fallback.
func Columns() int {
	mu.Lock()
	defer mu.Unlock()
	if cacheValid {
		return cachedCols
	}
	cachedCols = queryColumns()
	cacheValid = true
	return cachedCols
}

func queryColumns() int {
	fd := int(os.Stdout.Fd())
	if !isatty.IsTerminal(uintptr(fd)) && !isatty.IsCygwinTerminal(uintptr(fd)) {
		return defaultCols
	}
	w, _, err := term.GetSize(fd)
	if err != nil || w <= 0 {
		return defaultCols
	}
	return w
}

// ResetCache invalidates the cached column count. Call this on SIGWINCH.
func ResetCache() {
	mu.Lock()
	defer mu.Unlock()
	cacheValid = false
}

// IsTerminal reports whether stdout is attached to a terminal.
func IsTerminal() bool {
	fd := uintptr(os.Stdout.Fd())
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// CursorUp writes the ANSI escape sequence that moves the cursor up n lines.
func CursorUp(w *os.File, n int) {
	if n <= 0 {
		return
	}
	fmt.Fprintf(w, "\033[%dA", n)
}

// CursorDown writes the ANSI escape sequence that moves the cursor down n lines.
func CursorDown(w *os.File, n int) {
	if n <= 0 {
		return
	}
	fmt.Fprintf(w, "\033[%dB", n)
}

// EraseLine clears from the cursor to the end of the current line.
func EraseLine(w *os.File) {
	fmt.Fprint(w, "\033[K")
}

// CarriageReturn returns the cursor to the start of the current line
// without moving vertically.
func CarriageReturn(w *os.File) {
	fmt.Fprint(w, "\r")
}

// wide-character width table: a practical subset of East Asian Wide /
// Fullwidth ranges. Anything outside of this table falls back to 1 column
// per code point per spec.md §9's documented limitation (no general
// wcwidth(3) equivalent in the standard library).
var wideRanges = [][2]rune{
	{0x1100, 0x115F}, {0x2E80, 0xA4CF}, {0xAC00, 0xD7A3},
	{0xF900, 0xFAFF}, {0xFF00, 0xFF60}, {0xFFE0, 0xFFE6},
	{0x20000, 0x3FFFD},
}

func runeWidth(r rune) int {
	if r == 0 {
		return 0
	}
	if r < 0x20 {
		return 0
	}
	for _, rg := range wideRanges {
		if r >= rg[0] && r <= rg[1] {
			return 2
		}
	}
	return 1
}

// WCWidth returns the visual column width of s, summing per-rune widths.
// Unlike len(s) or utf8.RuneCountInString(s), this accounts for
// double-width CJK characters so label truncation/padding lines up with
// the terminal.
func WCWidth(s string) int {
	width := 0
	for _, r := range s {
		width += runeWidth(r)
	}
	return width
}

// Truncate shortens s to at most maxWidth visual columns, appending "..."
// when truncation occurs, the way callback.c's cb_progress and
// draw_pacman_progress_bar do for package names and file names.
func Truncate(s string, maxWidth int) string {
	if WCWidth(s) <= maxWidth {
		return s
	}
	if maxWidth <= 3 {
		return "..."[:max(0, maxWidth)]
	}
	budget := maxWidth - 3
	var out []rune
	w := 0
	for _, r := range s {
		rw := runeWidth(r)
		if w+rw > budget {
			break
		}
		out = append(out, r)
		w += rw
	}
	return string(out) + "..."
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// HumanizeSize picks the largest unit (B, KiB, MiB, GiB, TiB, PiB) such that the
// mantissa lies in [1, 1024), matching pacman's humanize_size(). precision
// controls how many of the finer boundary cases round up to the next unit;
// a precision of -1 (pacman's default) always normalizes to [1,1024).
func HumanizeSize(bytes float64, precision int) (float64, string) {
	units := []string{"B", "KiB", "MiB", "GiB", "TiB", "PiB"}
	val := bytes
	idx := 0
	for val >= 1024 && idx < len(units)-1 {
		val /= 1024
		idx++
	}
	if precision >= 0 {
		// Round to the requested precision before re-checking the
		// boundary, so e.g. 1023.96 KiB at precision 0 becomes "1 MiB"
		// instead of "1024 KiB".
		scale := 1.0
		for i := 0; i < precision; i++ {
			scale *= 10
		}
		rounded := float64(int(val*scale+0.5)) / scale
		if rounded >= 1024 && idx < len(units)-1 {
			val = rounded / 1024
			idx++
		} else {
			val = rounded
		}
	}
	return val, units[idx]
}
