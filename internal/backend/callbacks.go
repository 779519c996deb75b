package backend

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/distr1/pacgo/internal/config"
	"github.com/distr1/pacgo/internal/multibar"
	"github.com/distr1/pacgo/internal/output"
	"github.com/distr1/pacgo/internal/term"
)

// progressUpdateInterval mirrors callback.c's UPDATE_SPEED_MS for the
// install/remove progress bar (distinct from the download multibar, which
// rate-limits itself in the multibar package).
const progressUpdateInterval = 200 * time.Millisecond

// Callbacks is the capability record handed to the back-end in place of
// five raw function pointers (spec.md §9: "model this as a record of
// functions ... so tests can substitute a scripted back-end").
type Callbacks struct {
	Log      func(level output.Level, format string, args ...interface{})
	Event    func(Event)
	Question func(*Question)
	Progress func(event ProgressEvent, pkgName string, percent int, howmany, current uint)
	Download func(DownloadEvent)
}

// Context is the single driver context collecting the global mutable
// state spec.md §9 warns not to scatter across module-level variables:
// the on_progress flag, the delayed-log queue, the multibar and the
// config, all behind one logical mutex (spec.md §5).
type Context struct {
	Printer  *output.Printer
	Multibar *multibar.State
	Cfg      *config.Config

	// IsSyncOperation and IsFilesOperation select the DatabaseMissing
	// hint ("-Sy" vs "-Fy"); set once by main before dispatch.
	IsSyncOperation  bool
	IsFilesOperation bool

	// PrintOnly mirrors config->print (the print-URIs / --print flag):
	// cb_event/cb_question short-circuit to a fixed non-interactive
	// answer instead of rendering or prompting.
	PrintOnly bool

	mu         sync.Mutex
	onProgress bool
	queue      []LogEntry

	prevPercent int
	prevCurrent uint
	lastUpdate  time.Time
	progLastHash int
	progMouth    bool

	// TransactionID correlates one transaction's structured log lines,
	// threaded through as a slog field.
	TransactionID uuid.UUID
}

// NewContext builds a driver Context. A fresh TransactionID is minted
// per call so each transaction's log lines correlate independently.
func NewContext(p *output.Printer, mb *multibar.State, cfg *config.Config) *Context {
	return &Context{
		Printer:       p,
		Multibar:      mb,
		Cfg:           cfg,
		TransactionID: uuid.New(),
	}
}

// Callbacks returns the capability record bound to this Context's
// methods, ready to register with the back-end.
func (c *Context) Callbacks() Callbacks {
	return Callbacks{
		Log:      c.Log,
		Event:    c.HandleEvent,
		Question: c.HandleQuestion,
		Progress: c.HandleProgress,
		Download: c.HandleDownload,
	}
}

// Log implements the Log callback (spec.md §4.6): while on_progress is
// set, messages are queued in FIFO order for later flush; otherwise
// written immediately.
func (c *Context) Log(level output.Level, format string, args ...interface{}) {
	if format == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	msg := fmt.Sprintf(format, args...)
	if c.onProgress {
		c.queue = append(c.queue, LogEntry{Level: level, Text: msg})
		return
	}
	c.Printer.Print(level, "%s", msg)
}

func (c *Context) flushQueueLocked() {
	for _, e := range c.queue {
		c.Printer.Print(e.Level, "%s", e.Text)
	}
	c.queue = c.queue[:0]
}

// HandleEvent implements the Event callback, grounded on cb_event.
func (c *Context) HandleEvent(ev Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.PrintOnly {
		c.Multibar.CursorToEnd()
		return
	}

	switch ev.Kind {
	case HookStart:
		if ev.HookWhen == HookPreTransaction {
			c.Printer.Colon("Running pre-transaction hooks...\n")
		} else {
			c.Printer.Colon("Running post-transaction hooks...\n")
		}
	case HookRunStart:
		digits := numberLength(ev.HookTotal)
		desc := ev.HookDesc
		if desc == "" {
			desc = ev.HookName
		}
		c.Printer.Print(output.Info, "%s\n", fmt.Sprintf("(%*d/%*d) %s", digits, ev.HookPosition, digits, ev.HookTotal, desc))
	case CheckDepsStart:
		c.Printer.Print(output.Info, "checking dependencies...\n")
	case FileConflictsStart:
		if c.Cfg.NoProgressBar {
			c.Printer.Print(output.Info, "checking for file conflicts...\n")
		}
	case ResolveDepsStart:
		c.Printer.Print(output.Info, "resolving dependencies...\n")
	case InterConflictsStart:
		c.Printer.Print(output.Info, "looking for conflicting packages...\n")
	case TransactionStart:
		c.Printer.Colon("Processing package changes...\n")
	case PackageOperationStart:
		if c.Cfg.NoProgressBar {
			name := ev.NewPkgName
			if ev.Operation == OpRemove {
				name = ev.OldPkgName
			}
			c.Printer.Print(output.Info, "%s %s...\n", ev.Operation, name)
		}
	case PackageOperationDone:
		c.displayOptdepends(ev)
	case IntegrityStart:
		if c.Cfg.NoProgressBar {
			c.Printer.Print(output.Info, "checking package integrity...\n")
		}
	case KeyringStart:
		if c.Cfg.NoProgressBar {
			c.Printer.Print(output.Info, "checking keyring...\n")
		}
	case KeyDownloadStart:
		c.Printer.Print(output.Info, "downloading required keys...\n")
	case LoadStart:
		if c.Cfg.NoProgressBar {
			c.Printer.Print(output.Info, "loading package files...\n")
		}
	case ScriptletInfo:
		c.Printer.Raw(ev.Line)
	case DbRetrieveStart:
		c.onProgress = true
	case PkgRetrieveStart:
		c.Printer.Colon("Retrieving packages...\n")
		c.onProgress = true
	case DiskspaceStart:
		if c.Cfg.NoProgressBar {
			c.Printer.Print(output.Info, "checking available disk space...\n")
		}
	case OptdepRemoval:
		c.Printer.Colon("%s optionally requires %s\n", ev.OptdepPkgName, ev.OptdepString)
	case DatabaseMissing:
		if !c.IsSyncOperation {
			hint := "-Sy"
			if c.IsFilesOperation {
				hint = "-Fy"
			}
			c.Printer.Print(output.Warning, "database file for '%s' does not exist (use '%s' to download)\n", ev.DBName, hint)
		}
	case PacnewCreated:
		msg := fmt.Sprintf("%s installed as %s.pacnew\n", ev.File, ev.File)
		if c.onProgress {
			c.queue = append(c.queue, LogEntry{Level: output.Warning, Text: msg})
		} else {
			c.Printer.Print(output.Warning, "%s", msg)
		}
	case PacsaveCreated:
		msg := fmt.Sprintf("%s saved as %s.pacsave\n", ev.File, ev.File)
		if c.onProgress {
			c.queue = append(c.queue, LogEntry{Level: output.Warning, Text: msg})
		} else {
			c.Printer.Print(output.Warning, "%s", msg)
		}
	case DbRetrieveDone, DbRetrieveFailed, PkgRetrieveDone, PkgRetrieveFailed:
		c.Multibar.CursorToEnd()
		c.flushQueueLocked()
		c.onProgress = false
	default:
		// CheckDepsDone, ResolveDepsDone, InterConflictsDone,
		// FileConflictsDone, IntegrityDone, KeyringDone, KeyDownloadDone,
		// LoadDone, DiskspaceDone, HookDone, HookRunDone, TransactionDone:
		// no rendering, matching cb_event's fallthrough no-ops.
	}
}

func (c *Context) displayOptdepends(ev Event) {
	switch ev.Operation {
	case OpInstall:
		for _, dep := range ev.NewPkgOptdepends {
			c.Printer.Colon("%s optionally requires %s\n", ev.NewPkgName, dep)
		}
	case OpUpgrade, OpDowngrade:
		for _, dep := range newOptdeps(ev.OldPkgOptdepends, ev.NewPkgOptdepends) {
			c.Printer.Colon("%s optionally requires %s\n", ev.NewPkgName, dep)
		}
	case OpReinstall, OpRemove:
		// no optdep display, matching cb_event's fallthrough.
	}
}

// newOptdeps returns the entries of next not present in prev, in next's
// order, implementing display_new_optdepends' old->new set diff.
func newOptdeps(prev, next []string) []string {
	seen := make(map[string]bool, len(prev))
	for _, d := range prev {
		seen[d] = true
	}
	var out []string
	for _, d := range next {
		if !seen[d] {
			out = append(out, d)
		}
	}
	return out
}

// HandleQuestion implements the Question callback, grounded on
// cb_question. When PrintOnly, it mirrors cb_question's --print
// short-circuit: accept install/replace, reject everything else,
// without prompting.
func (c *Context) HandleQuestion(q *Question) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.PrintOnly {
		switch q.Kind {
		case config.InstallIgnorePkg:
			q.InstallAnswer = true
		case config.ReplacePkg:
			q.ReplaceAnswer = true
		}
		return
	}

	switch q.Kind {
	case config.InstallIgnorePkg:
		if !q.DownloadOnly {
			q.InstallAnswer, _ = c.Printer.YesNo(false, "%s is in IgnorePkg/IgnoreGroup. Install anyway?", q.PkgName)
		} else {
			q.InstallAnswer = true
		}
	case config.ReplacePkg:
		q.ReplaceAnswer, _ = c.Printer.YesNo(true, "Replace %s with %s/%s?", q.OldPkgName, q.NewRepoName, q.NewPkgName)
	case config.ConflictPkg:
		if q.Package1 == q.ConflictReason || q.Package2 == q.ConflictReason {
			q.RemoveAnswer, _ = c.Printer.NoYes("%s and %s are in conflict. Remove %s?", q.Package1, q.Package2, q.Package2)
		} else {
			q.RemoveAnswer, _ = c.Printer.NoYes("%s and %s are in conflict (%s). Remove %s?", q.Package1, q.Package2, q.ConflictReason, q.Package2)
		}
	case config.RemovePkgs:
		c.Printer.Colon("The following packages cannot be upgraded due to unresolvable dependencies:\n")
		for _, name := range q.Packages {
			c.Printer.Print(output.Info, "     %s\n", name)
		}
		q.SkipAnswer, _ = c.Printer.NoYes("Do you want to skip the above packages for this upgrade?")
	case config.SelectProvider:
		count := len(q.Providers)
		c.Printer.Colon("There are %d providers available for %s:\n", count, q.DepString)
		for i, p := range q.Providers {
			c.Printer.Print(output.Info, "%d) %s\n", i+1, p)
		}
		n, _ := c.Printer.SelectQuestion(count)
		q.SelectedIndex = n - 1
	case config.CorruptedPkg:
		q.DeleteAnswer, _ = c.Printer.YesNo(true, "File %s is corrupted (%s).\nDo you want to delete it?", q.FilePath, q.CorruptReason)
	case config.ImportKey:
		if q.KeyUID == "" {
			q.ImportAnswer, _ = c.Printer.YesNo(true, "Import PGP key %s?", q.KeyFingerprint)
		} else {
			q.ImportAnswer, _ = c.Printer.YesNo(true, "Import PGP key %s, %q?", q.KeyFingerprint, q.KeyUID)
		}
	}

	if c.Cfg.AskMask&q.Kind != 0 {
		q.invertAnswer()
	}
}

// HandleProgress implements the Progress callback, grounded on
// cb_progress: rate-limited to once per 200ms except when current
// advances or percent hits 0/100.
func (c *Context) HandleProgress(event ProgressEvent, pkgName string, percent int, howmany, current uint) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.Cfg.NoProgressBar || term.Columns() == 0 {
		return
	}

	switch {
	case percent == 0:
		c.lastUpdate = time.Now()
	case percent == 100:
		if c.prevPercent == 100 {
			return
		}
	default:
		if current != c.prevCurrent {
			c.lastUpdate = time.Now()
		} else if pkgName == "" || percent == c.prevPercent || time.Since(c.lastUpdate) < progressUpdateInterval {
			return
		} else {
			c.lastUpdate = time.Now()
		}
	}
	c.prevPercent = percent
	c.prevCurrent = current

	label, ok := event.label()
	if !ok {
		return
	}

	cols := term.Columns()
	infolen := cols * 6 / 10
	if infolen < 50 {
		infolen = 50
	}
	digits := numberLength(int(howmany))
	textlen := infolen - 3 - 2*digits - 1

	text := label
	if pkgName != "" {
		text = label + " " + pkgName
	}
	text = term.Truncate(text, textlen)
	pad := textlen - term.WCWidth(text)
	if pad < 0 {
		pad = 0
	}

	var buf strings.Builder
	fmt.Fprintf(&buf, "(%*d/%*d) %s%s", digits, current, digits, howmany, text, strings.Repeat(" ", pad))
	c.fillProgress(&buf, percent, cols-infolen)
	c.Printer.Raw(buf.String())

	if percent == 100 {
		c.Printer.Raw("\n")
		c.flushQueueLocked()
		c.onProgress = false
	} else {
		c.onProgress = true
	}
}

// fillProgress renders the install/remove progress bar's "[###-] NN%"
// segment, the same glyph algorithm as multibar's fill-bar (fill_progress
// in callback.c), kept against this Context's own chomp-animation state
// since it tracks a logically separate bar from the download multibar.
func (c *Context) fillProgress(buf *strings.Builder, percent, proglen int) {
	hashlen := proglen - 8
	if hashlen < 0 {
		hashlen = 0
	}
	hash := percent * hashlen / 100
	if percent == 0 {
		c.progLastHash = 0
		c.progMouth = false
	}
	if hashlen > 0 {
		buf.WriteString(" [")
		for i := hashlen; i > 0; i-- {
			switch {
			case c.Cfg.Chomp:
				buf.WriteString(c.chompGlyph(i, hashlen, hash))
			case i > hashlen-hash:
				buf.WriteByte('#')
			default:
				buf.WriteByte('-')
			}
		}
		buf.WriteByte(']')
	}
	if proglen >= 5 {
		fmt.Fprintf(buf, " %3d%%", percent)
	}
	buf.WriteByte('\r')
}

func (c *Context) chompGlyph(i, hashlen, hash int) string {
	switch {
	case i > hashlen-hash:
		return "-"
	case i == hashlen-hash:
		if c.progLastHash != hash {
			c.progLastHash = hash
			c.progMouth = !c.progMouth
		}
		if c.progMouth {
			return "C"
		}
		return "c"
	case i%3 == 0:
		return "o"
	default:
		return " "
	}
}

// HandleDownload implements the Download callback, routing to the
// multibar renderer (spec.md §4.7).
func (c *Context) HandleDownload(ev DownloadEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch ev.Kind {
	case DownloadInit:
		c.Multibar.Init(ev.Filename)
	case DownloadProgress:
		c.Multibar.Progress(ev.Filename, ev.Downloaded, ev.Total)
	case DownloadCompleted:
		var r multibar.Result
		switch ev.Result {
		case DownloadOk:
			r = multibar.Ok
		case DownloadUpToDate:
			r = multibar.UpToDate
		default:
			r = multibar.Failed
		}
		c.Multibar.Complete(ev.Filename, r)
	}
}

func numberLength(n int) int {
	if n <= 0 {
		return 1
	}
	digits := 0
	for n > 0 {
		digits++
		n /= 10
	}
	return digits
}
