// Package multibar implements the stacked multi-line download progress
// renderer of spec.md C7: an ordered set of active bars tracked by a
// single cursor line, EWMA rate smoothing, ETA formatting and
// reorder-on-completion. Grounded directly on pacman's
// src/pacman/callback.c (pacman_multibar_ui, dload_init_event,
// dload_progress_event, dload_complete_event, draw_pacman_progress_bar,
// fill_progress) and src/pacman/downloadprog.c for the chomp glyph table,
// reused here as the fill-bar primitive shared by the one true (multibar)
// driver per spec.md §9 — the legacy single-bar driver itself is not
// reproduced.
package multibar

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/orcaman/writerseeker"

	"github.com/distr1/pacgo/internal/term"
)

// updateInterval rate-limits progress redraws, matching
// callback.c's UPDATE_SPEED_MS.
const updateInterval = 200 * time.Millisecond

// Result is the terminal state of one completed download.
type Result int

const (
	Ok Result = iota
	UpToDate
	Failed
)

// Bar is one tracked download, owned exclusively by the enclosing State
// (spec.md §3 ProgressBar).
type Bar struct {
	Filename  string
	Xfered    int64
	TotalSize int64
	InitTime  time.Time
	SyncTime  time.Time
	Rate      float64 // EWMA bytes/sec
	ETA       time.Duration
	Completed bool
}

var (
	chompFill = lipgloss.NewStyle().Foreground(lipgloss.Color("3")).Bold(true)
	chompDot  = lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
)

// State is the multibar UI's mutable state (spec.md §3 MultibarState). All
// methods assume the caller already holds the driver's single callback
// mutex (spec.md §5): this type performs no locking of its own.
type State struct {
	Out             io.Writer
	bars            []*Bar
	cursorLine      int
	moveCompletedUp bool
	noProgressBar   bool
	chomp           bool
	color           bool

	// chomp animation state, shared across every bar redraw the way the
	// single static lasthash/mouth pair in fill_progress is.
	lastHash int
	mouth    bool
}

// New builds a multibar renderer writing to out. moveCompletedUp reorders
// a finishing non-head bar to the front (pacman's multibar_move_completed_up);
// noProgressBar/chomp mirror the NoProgressBar/ILoveCandy config directives.
func New(out io.Writer, moveCompletedUp, noProgressBar, chomp, color bool) *State {
	return &State{
		Out:             out,
		moveCompletedUp: moveCompletedUp,
		noProgressBar:   noProgressBar,
		chomp:           chomp,
		color:           color,
	}
}

// Len reports the number of active (not yet trimmed) bars.
func (s *State) Len() int { return len(s.bars) }

// enabled reports whether the multibar renders at all (progress bars
// disabled, or not a terminal / zero columns both degrade to plain lines).
func (s *State) enabled() bool {
	return !s.noProgressBar && term.Columns() > 0
}

func (s *State) findByFilename(filename string) (int, *Bar) {
	for i, b := range s.bars {
		if b.Filename == filename {
			return i, b
		}
	}
	return -1, nil
}

// gotoLine moves the shared cursor to line num (0 = first bar's line,
// Len() = the line after the last bar), matching cursor_goto_bar.
func (s *State) gotoLine(buf io.Writer, num int) {
	if num > s.cursorLine {
		fmt.Fprintf(buf, "\033[%dB", num-s.cursorLine)
	} else if num < s.cursorLine {
		fmt.Fprintf(buf, "\033[%dA", s.cursorLine-num)
	}
	s.cursorLine = num
}

// CursorToEnd moves the cursor to the line after the last active bar, the
// point at which delayed log output may be safely interleaved (spec.md
// §4.6's on_progress clearing points).
func (s *State) CursorToEnd() {
	if !s.enabled() {
		return
	}
	buf := &writerseeker.WriterSeeker{}
	s.gotoLine(buf, len(s.bars))
	buf.Seek(0, io.SeekStart)
	io.Copy(s.Out, buf)
}

// Init registers filename as a new active download and prints its
// "downloading..." line, per dload_init_event.
func (s *State) Init(filename string) {
	if !s.enabled() {
		fmt.Fprintf(s.Out, " %s downloading...\n", filename)
		return
	}
	b := &Bar{Filename: filename, InitTime: time.Now()}
	s.bars = append(s.bars, b)

	buf := &writerseeker.WriterSeeker{}
	s.gotoLine(buf, len(s.bars)-1)
	fmt.Fprintf(buf, " %s downloading...\n", filename)
	s.cursorLine++
	buf.Seek(0, io.SeekStart)
	io.Copy(s.Out, buf)
}

// Progress updates the named bar's transfer counters and redraws it,
// rate-limited to once per updateInterval; only the bar's first update
// bypasses the limit. Mirrors dload_progress_event's EWMA:
// rate <- (last_chunk_rate + 2*rate) / 3.
func (s *State) Progress(filename string, downloaded, total int64) {
	if !s.enabled() {
		return
	}
	index, bar := s.findByFilename(filename)
	if bar == nil {
		return
	}
	now := time.Now()
	dt := now.Sub(bar.SyncTime)
	if bar.SyncTime.IsZero() {
		dt = updateInterval // force first update through
	}
	if dt < updateInterval {
		return
	}
	bar.SyncTime = now

	lastChunkRate := float64(downloaded-bar.Xfered) / dt.Seconds()
	bar.Rate = (lastChunkRate + 2*bar.Rate) / 3
	if bar.Rate > 0 {
		bar.ETA = time.Duration(float64(total-downloaded) / bar.Rate * float64(time.Second))
	} else {
		bar.ETA = time.Duration(1<<63 - 1)
	}
	bar.TotalSize = total
	bar.Xfered = downloaded

	buf := &writerseeker.WriterSeeker{}
	s.gotoLine(buf, index)
	s.draw(buf, bar)
	buf.Seek(0, io.SeekStart)
	io.Copy(s.Out, buf)
}

// Complete finalizes the named bar per result, optionally swaps it to the
// head of the list (move_completed_up), then trims every completed bar
// found at the head in a single pass. A trimmed bar is never redrawn
// again, matching spec.md's MultibarState invariant.
func (s *State) Complete(filename string, result Result) {
	if !s.enabled() {
		return
	}
	index, bar := s.findByFilename(filename)
	if bar == nil {
		return
	}
	bar.Completed = true

	buf := &writerseeker.WriterSeeker{}
	switch result {
	case UpToDate:
		s.gotoLine(buf, index)
		fmt.Fprintf(buf, " %s is up to date", bar.Filename)
		buf.Write([]byte("\033[K"))
	case Failed:
		s.gotoLine(buf, index)
		fmt.Fprintf(buf, " %s failed to download", bar.Filename)
		buf.Write([]byte("\033[K"))
	case Ok:
		bar.Xfered = bar.TotalSize
		elapsed := time.Since(bar.InitTime)
		if elapsed < time.Millisecond {
			elapsed = time.Millisecond
		}
		bar.Rate = float64(bar.Xfered) / elapsed.Seconds()
		bar.ETA = (elapsed + 500*time.Millisecond).Truncate(time.Second)

		if s.moveCompletedUp && index != 0 {
			former := s.bars[0]
			s.bars[0], s.bars[index] = bar, former
			s.gotoLine(buf, index)
			s.draw(buf, former)
			index = 0
		}
		s.gotoLine(buf, index)
		s.draw(buf, bar)
	}
	buf.Seek(0, io.SeekStart)
	io.Copy(s.Out, buf)

	for len(s.bars) > 0 && s.bars[0].Completed {
		if s.cursorLine == 0 {
			// Step off the line being trimmed so the cursor stays within
			// [0, Len()] once the head bar is dropped.
			s.gotoLine(s.Out, 1)
		}
		s.bars = s.bars[1:]
		s.cursorLine--
	}
}

// draw renders one bar's line: trimmed filename, transferred/rate
// columns, ETA, fill-bar. Mirrors draw_pacman_progress_bar exactly,
// including its magic-33-columns budget for the non-filename fields.
func (s *State) draw(w io.Writer, bar *Bar) {
	cols := term.Columns()
	infolen := cols * 6 / 10
	if infolen < 50 {
		infolen = 50
	}

	filePercent := 100
	if bar.TotalSize > 0 {
		filePercent = int(bar.Xfered * 100 / bar.TotalSize)
	}

	etaH := int(bar.ETA / time.Hour)
	rem := bar.ETA - time.Duration(etaH)*time.Hour
	etaM := int(rem / time.Minute)
	rem -= time.Duration(etaM) * time.Minute
	etaS := int(rem / time.Second)

	fname := trimArchiveExt(bar.Filename)
	filenameLen := infolen - 33
	if etaH == 0 || etaH >= 100 {
		filenameLen += 3
	}
	fname = term.Truncate(fname, filenameLen)
	pad := filenameLen - term.WCWidth(fname)
	if pad < 0 {
		pad = 0
	}

	rateVal, rateUnit := term.HumanizeSize(bar.Rate, -1)
	xferedVal, xferedUnit := term.HumanizeSize(float64(bar.Xfered), -1)

	fmt.Fprintf(w, " %s%s ", fname, strings.Repeat(" ", pad))
	switch {
	case rateVal < 9.995:
		fmt.Fprintf(w, "%6.1f %3s  %4.2f %3s/s ", xferedVal, xferedUnit, rateVal, rateUnit)
	case rateVal < 99.95:
		fmt.Fprintf(w, "%6.1f %3s  %4.1f %3s/s ", xferedVal, xferedUnit, rateVal, rateUnit)
	default:
		fmt.Fprintf(w, "%6.1f %3s  %4.0f %3s/s ", xferedVal, xferedUnit, rateVal, rateUnit)
	}
	switch {
	case etaH == 0:
		fmt.Fprintf(w, "%02d:%02d", etaM, etaS)
	case etaH < 100:
		fmt.Fprintf(w, "%02d:%02d:%02d", etaH, etaM, etaS)
	default:
		fmt.Fprint(w, "--:--")
	}

	s.fillProgress(w, filePercent, cols-infolen)
}

func trimArchiveExt(name string) string {
	for _, ext := range []string{".pkg", ".db", ".files"} {
		if idx := strings.Index(name, ext); idx >= 0 {
			return name[:idx]
		}
	}
	return name
}

// fillProgress renders the "[####----] NN%" bar, switching to the chomp
// (pac-man) glyph animation when enabled, matching fill_progress's
// lasthash/mouth state machine.
func (s *State) fillProgress(w io.Writer, percent, proglen int) {
	hashlen := proglen - 8
	if hashlen < 0 {
		hashlen = 0
	}
	hash := percent * hashlen / 100
	if percent == 0 {
		s.lastHash = 0
		s.mouth = false
	}

	if hashlen > 0 {
		fmt.Fprint(w, " [")
		for i := hashlen; i > 0; i-- {
			switch {
			case s.chomp:
				w.Write([]byte(s.chompGlyph(i, hashlen, hash)))
			case i > hashlen-hash:
				fmt.Fprint(w, "#")
			default:
				fmt.Fprint(w, "-")
			}
		}
		fmt.Fprint(w, "]")
	}
	if proglen >= 5 {
		fmt.Fprintf(w, " %3d%%", percent)
	}
	fmt.Fprint(w, "\r")
}

func (s *State) chompGlyph(i, hashlen, hash int) string {
	var glyph string
	switch {
	case i > hashlen-hash:
		glyph = "-"
	case i == hashlen-hash:
		if s.lastHash != hash {
			s.lastHash = hash
			s.mouth = !s.mouth
		}
		if s.mouth {
			glyph = "C"
		} else {
			glyph = "c"
		}
		if s.color {
			return chompFill.Render(glyph)
		}
		return glyph
	case i%3 == 0:
		glyph = "o"
	default:
		glyph = " "
	}
	if s.color {
		return chompDot.Render(glyph)
	}
	return glyph
}

// ensure *os.File satisfies io.Writer trivially; kept as a compile-time
// reminder that State works against any stream, not just a terminal.
var _ io.Writer = (*os.File)(nil)
