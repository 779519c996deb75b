// Package output implements leveled print and the interactive prompt
// primitives (spec.md C2), grounded on pacman's src/pacman/output.c and
// log.c (pm_fprintf, yesno, set_output_padding) but built on log/slog with
// a github.com/phsym/console-slog handler instead of hand-rolled
// vsnprintf/fprintf plumbing, and styled with charmbracelet/lipgloss.
package output

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	consoleslog "github.com/phsym/console-slog"

	"github.com/distr1/pacgo/internal/term"
)

// Level mirrors the leveled print contract of spec.md §4.2: Error,
// Warning, Debug and Function go to stderr; Info goes to stdout. Debug is
// gated by verbose_level.
type Level int

const (
	Error Level = iota
	Warning
	Info
	Debug
	Function
)

func (l Level) String() string {
	switch l {
	case Error:
		return "error"
	case Warning:
		return "warning"
	case Info:
		return "info"
	case Debug:
		return "debug"
	case Function:
		return "function"
	default:
		return "unknown"
	}
}

var (
	errorStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("1"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	debugStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// Printer is the process-wide leveled-output sink. It must be constructed
// once (normally in main) and threaded through the driver context; all of
// its methods are safe for concurrent use, serialized through mu per the
// "one logical mutex" requirement in spec.md §5.
type Printer struct {
	mu           sync.Mutex
	stdout       *bufio.Writer
	stderr       *bufio.Writer
	stdoutLogger *slog.Logger
	stderrLogger *slog.Logger
	verboseLevel int
	colorEnabled bool
	padding      bool
	reader       *bufio.Reader
	noConfirm    bool
}

// New builds a Printer writing to the given streams. verboseLevel enables
// Debug output when > 0; Function output additionally requires
// verboseLevel > 1, mirroring pacman's -v/-vv behavior.
func New(stdout, stderr io.Writer, verboseLevel int, color bool, noConfirm bool) *Printer {
	p := &Printer{
		stdout:       bufio.NewWriter(stdout),
		stderr:       bufio.NewWriter(stderr),
		verboseLevel: verboseLevel,
		colorEnabled: color,
		noConfirm:    noConfirm,
	}
	p.stdoutLogger = slog.New(consoleslog.NewHandler(stdout, &consoleslog.HandlerOptions{
		NoColor: !color,
	}))
	p.stderrLogger = slog.New(consoleslog.NewHandler(stderr, &consoleslog.HandlerOptions{
		NoColor: !color,
	}))
	if f, ok := stdin.(*os.File); ok {
		p.reader = bufio.NewReader(f)
	} else {
		p.reader = bufio.NewReader(stdin)
	}
	return p
}

// stdin is a package variable so tests can substitute a scripted reader.
var stdin io.Reader = os.Stdin

// SetPadding toggles right-padding of emitted lines to the terminal width,
// matching set_output_padding(): used so a trailing progress-bar redraw
// overwrites prior text cleanly.
func (p *Printer) SetPadding(on bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.padding = on
}

func (p *Printer) enabled(level Level) bool {
	switch level {
	case Debug:
		return p.verboseLevel > 0
	case Function:
		return p.verboseLevel > 1
	default:
		return true
	}
}

// Print renders one leveled line to the appropriate stream. Levels other
// than Info go to stderr.
func (p *Printer) Print(level Level, format string, args ...interface{}) {
	if !p.enabled(level) {
		return
	}
	msg := fmt.Sprintf(format, args...)
	p.mu.Lock()
	defer p.mu.Unlock()

	w := p.stderr
	if level == Info {
		w = p.stdout
	}
	line := p.prefix(level) + msg
	if p.padding {
		cols := term.Columns()
		if pad := cols - term.WCWidth(strings.TrimRight(line, "\n")); pad > 0 {
			line = strings.TrimRight(line, "\n") + strings.Repeat(" ", pad) + "\n"
		}
	}
	fmt.Fprint(w, line)
	w.Flush()
}

func (p *Printer) prefix(level Level) string {
	if level == Info {
		return ""
	}
	tag := level.String() + ": "
	if !p.colorEnabled {
		return tag
	}
	switch level {
	case Error:
		return errorStyle.Render(tag)
	case Warning:
		return warnStyle.Render(tag)
	default:
		return debugStyle.Render(tag)
	}
}

// Raw writes s to stdout verbatim, with no level prefix and no trailing
// newline added, matching cb_event's ALPM_EVENT_SCRIPTLET_INFO handling
// (fputs(line, stdout)) and the install-progress bar's in-place redraws.
func (p *Printer) Raw(s string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprint(p.stdout, s)
	p.stdout.Flush()
}

// Colon prints a ":: "-prefixed informational header to stdout, matching
// pacman's colon_printf used for section banners like "Retrieving
// packages..." and "Processing package changes...".
func (p *Printer) Colon(format string, args ...interface{}) {
	p.Print(Info, ":: "+format, args...)
}

// YesNo prompts on stderr and reads one line from stdin. def is the
// answer returned for an empty line or EOF-free "accept default" input.
// no_confirm bypasses the prompt entirely, returning def.
func (p *Printer) YesNo(def bool, format string, args ...interface{}) (bool, error) {
	suffix := " [Y/n] "
	if !def {
		suffix = " [y/N] "
	}
	msg := fmt.Sprintf(format, args...) + suffix

	p.mu.Lock()
	if p.noConfirm {
		p.mu.Unlock()
		return def, nil
	}
	fmt.Fprint(p.stderr, msg)
	p.stderr.Flush()
	line, err := p.reader.ReadString('\n')
	p.mu.Unlock()
	if err != nil && line == "" {
		return false, fmt.Errorf("reading answer: %w", err)
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return def, nil
	}
	switch strings.ToUpper(line) {
	case "Y", "YES":
		return true, nil
	case "N", "NO":
		return false, nil
	default:
		return def, nil
	}
}

// NoYes is YesNo with an inverted default, matching pacman's noyes().
func (p *Printer) NoYes(format string, args ...interface{}) (bool, error) {
	return p.YesNo(false, format, args...)
}

// SelectQuestion reads an integer answer in [1, count], re-prompting on
// invalid input. An EOF is surfaced as an error to the caller.
func (p *Printer) SelectQuestion(count int) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.noConfirm {
		return 1, nil
	}
	for {
		fmt.Fprintf(p.stderr, "Enter a number (default=1): ")
		p.stderr.Flush()
		line, err := p.reader.ReadString('\n')
		line = strings.TrimSpace(line)
		if line == "" && err == nil {
			return 1, nil
		}
		if line == "" && err != nil {
			return 0, fmt.Errorf("reading selection: %w", err)
		}
		n, convErr := strconv.Atoi(line)
		if convErr == nil && n >= 1 && n <= count {
			return n, nil
		}
		fmt.Fprintf(p.stderr, "invalid value: %s\n", line)
		if err != nil {
			return 0, fmt.Errorf("reading selection: %w", err)
		}
	}
}

// Structured is a slog-based structured debug sink for internals that want
// key/value fields (e.g. the transaction driver's correlation id) rather
// than a formatted string. It respects the same verbose gating as Print.
func (p *Printer) Structured(level Level, msg string, args ...any) {
	if !p.enabled(level) {
		return
	}
	logger := p.stderrLogger
	if level == Info {
		logger = p.stdoutLogger
	}
	switch level {
	case Error:
		logger.Error(msg, args...)
	case Warning:
		logger.Warn(msg, args...)
	case Debug, Function:
		logger.Debug(msg, args...)
	default:
		logger.Info(msg, args...)
	}
}
