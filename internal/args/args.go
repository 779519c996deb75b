// Package args implements the operation dispatcher of spec.md C5: a
// mode-exclusive command parser producing a single typed Operation, with
// short option letters reinterpreted per selected operation (e.g. `-s`
// means `--recursive` under Remove but `--search` under Query/Sync).
//
// Grounded on pacman.c's parseargs/parseargs_op two-pass shape (scan for
// the operation first, then parse the rest under that operation's table)
// and on the teacher's per-subcommand flag.FlagSet convention
// (install.go, update.go each build their own *flag.FlagSet rather than
// sharing one global set). flag.FlagSet cannot express polysemous short
// letters shared across subcommands, so this package resolves the
// operation first and only then constructs the FlagSet whose flags are
// meaningful for that operation, exactly mirroring the teacher's
// per-subcommand isolation.
package args

import (
	"flag"
	"fmt"
	"sort"
	"strings"
)

// Kind is the selected Operation's variant, matching spec.md §3's
// tagged union.
type Kind int

const (
	KindInstall Kind = iota
	KindRemove
	KindUpgrade
	KindQuery
	KindSync
	KindFiles
	KindDatabase
	KindDepTest
	KindVerTest
	KindHelp
	KindVersion
)

func (k Kind) String() string {
	switch k {
	case KindInstall:
		return "install"
	case KindRemove:
		return "remove"
	case KindUpgrade:
		return "upgrade"
	case KindQuery:
		return "query"
	case KindSync:
		return "sync"
	case KindFiles:
		return "files"
	case KindDatabase:
		return "database"
	case KindDepTest:
		return "deptest"
	case KindVerTest:
		return "vertest"
	case KindHelp:
		return "help"
	case KindVersion:
		return "version"
	default:
		return "unknown"
	}
}

// operationFlag associates one CLI letter/long-name pair with the Kind
// it selects. -Y is reserved by upstream pacman for future use; here it
// selects Help, keeping every letter in spec.md §6's list meaningful.
type operationFlag struct {
	short rune
	long  string
	kind  Kind
}

var operationFlags = []operationFlag{
	{'A', "install", KindInstall},
	{'R', "remove", KindRemove},
	{'U', "upgrade", KindUpgrade},
	{'F', "files", KindFiles},
	{'Q', "query", KindQuery},
	{'S', "sync", KindSync},
	{'T', "deptest", KindDepTest},
	{'D', "database", KindDatabase},
	{'V', "version", KindVersion},
	{'Y', "help", KindHelp},
}

// RemoveOptions are the `-R` operation's modifiers.
type RemoveOptions struct {
	Recursive    bool // -s / --recursive: also remove now-unneeded deps
	Cascade      bool // -c / --cascade: also remove packages depending on the target
	Nosave       bool // -n / --nosave: ignore NoSave file backups
	Unneeded     bool // -u / --unneeded: remove unneeded packages
}

// SyncOptions are the `-S` operation's modifiers.
type SyncOptions struct {
	Clean      int  // -c (repeatable): cache-clean level
	Refresh    int  // -y (repeatable): force database refresh
	Sysupgrade bool // -u / --sysupgrade
	Search     bool // -s / --search
	Groups     bool // -g / --groups
	Info       int  // -i (repeatable): package info, -ii includes extended info
	List       bool // -l / --list
	DownloadOnly bool // -w / --downloadonly
	PrintOnly  bool // --print: print the targets instead of installing
}

// QueryOptions are the `-Q` operation's modifiers.
type QueryOptions struct {
	Search  bool   // -s / --search
	Groups  bool   // -g / --groups
	Info    int    // -i (repeatable)
	List    bool   // -l / --list
	Owns    string // -o FILE / --owns FILE
	Foreign bool   // -m / --foreign
	Orphans bool   // -e / --unrequired (installed-as-dep, required by none)
	File    string // -p FILE / --file FILE: query a package file, not the db
}

// FilesOptions are the `-F` operation's modifiers.
type FilesOptions struct {
	Owns            bool // -o / --owns
	Search          bool // -s / --search
	List            bool // -l / --list
	Refresh         int  // -y (repeatable)
	MachineReadable bool // --machinereadable
}

// DatabaseOptions are the `-D` operation's modifiers.
type DatabaseOptions struct {
	AsDeps     bool // --asdeps
	AsExplicit bool // --asexplicit
}

// DepTestOptions are the `-T` operation's modifiers.
type DepTestOptions struct {
	VerCmp bool // --vercmp: bypass the transaction probe, compare two versions
}

// Global is the set of options meaningful across every operation,
// overriding Config values loaded from the INI file (spec.md §4.4's
// CLIOverrides).
type Global struct {
	RootDir       string
	DBPath        string
	CacheDirs     []string
	ConfigPath    string
	LogFile       string
	GPGDir        string
	Architecture  string
	NoConfirm     bool
	NoProgressBar bool
	Color         string // "auto", "always", "never"
	Debug         bool
	Verbose       int
	IgnorePkg     []string
	HoldPkg       []string
	Ask           int // --ask=<bitmask>, pre-answers question kinds
}

// Operation is the single typed parse result (spec.md §3). Exactly one
// Kind is selected; the corresponding *Options field is populated and
// the others are left zero.
type Operation struct {
	Kind    Kind
	Targets []string
	Global  Global

	Remove   RemoveOptions
	Sync     SyncOptions
	Query    QueryOptions
	Files    FilesOptions
	Database DatabaseOptions
	DepTest  DepTestOptions

	// HelpFor is the operation -h/--help should print usage for; valid
	// only when Kind == KindHelp and non-empty (empty means "print the
	// summary usage").
	HelpFor string
}

// ErrorKind distinguishes the Arguments error taxonomy of spec.md §7.
type ErrorKind int

const (
	ErrMultipleOperations ErrorKind = iota
	ErrUnknownOption
	ErrMissingTargets
)

// ParseError reports a CLI parsing failure; Kind maps to spec.md §7's
// Arguments taxonomy and always yields exit code 2 (spec.md §4.5).
type ParseError struct {
	Kind ErrorKind
	Msg  string
}

func (e *ParseError) Error() string { return e.Msg }

// Parse interprets argv (not including argv[0]) into an Operation.
// Mirrors pacman.c's two-pass parseargs: first a lightweight scan for
// the operation-selecting token (after expanding short-option clusters,
// since the operation letter may appear inside one, e.g. "-Syu"), then a
// flag.FlagSet scoped to that operation parses everything else.
func Parse(argv []string) (*Operation, error) {
	expanded := expandClusters(argv)

	kind, found, helpRequested, versionRequested, rest, err := scanOperation(expanded)
	if err != nil {
		return nil, err
	}
	if versionRequested {
		return &Operation{Kind: KindVersion}, nil
	}
	if helpRequested {
		op := &Operation{Kind: KindHelp}
		if found {
			op.HelpFor = kind.String()
		}
		return op, nil
	}
	if !found {
		return nil, &ParseError{Kind: ErrMultipleOperations, Msg: "no operation specified (one of -S -R -U -Q -F -D -T required)"}
	}

	op := &Operation{Kind: kind}
	fs := flag.NewFlagSet(kind.String(), flag.ContinueOnError)
	fs.SetOutput(new(strings.Builder)) // usage text is rendered by internal/ops, not flag's default writer

	bindGlobal(fs, &op.Global)
	bindOperation(fs, op)

	if err := fs.Parse(rest); err != nil {
		return nil, &ParseError{Kind: ErrUnknownOption, Msg: err.Error()}
	}
	op.Targets = fs.Args()
	return op, nil
}

// expandClusters splits a single-dash multi-letter token like "-Syu"
// into "-S" "-y" "-u" so a flag.FlagSet (which only understands one
// flag per token) can parse pacman-style clustered short options. Long
// options ("--foo") and the bare "-" pass through unchanged.
func expandClusters(argv []string) []string {
	out := make([]string, 0, len(argv))
	for _, a := range argv {
		if len(a) > 2 && a[0] == '-' && a[1] != '-' {
			for _, r := range a[1:] {
				out = append(out, "-"+string(r))
			}
			continue
		}
		out = append(out, a)
	}
	return out
}

// scanOperation finds the operation-selecting token among expanded,
// enforcing exclusivity (spec.md §3's Operation invariant, §8's
// "Operation exclusivity" testable property), and strips --help/-h and
// --version/-V regardless of position (spec.md §4.5: "either causes an
// early normal exit").
func scanOperation(expanded []string) (kind Kind, found, help, version bool, rest []string, err error) {
	for _, tok := range expanded {
		if tok == "-h" || tok == "--help" {
			help = true
			continue
		}
		if tok == "-V" || tok == "--version" {
			// -V is also an operation letter (Version); either spelling
			// means the same thing here, so no exclusivity conflict.
			version = true
			continue
		}
		matched, ok := matchOperationToken(tok)
		if !ok {
			rest = append(rest, tok)
			continue
		}
		if found && matched != kind {
			err = &ParseError{Kind: ErrMultipleOperations, Msg: fmt.Sprintf("only one operation may be used at a time (got %s and %s)", kind, matched)}
			return
		}
		kind = matched
		found = true
	}
	return
}

func matchOperationToken(tok string) (Kind, bool) {
	for _, of := range operationFlags {
		if tok == "-"+string(of.short) || tok == "--"+of.long {
			return of.kind, true
		}
	}
	return 0, false
}

func bindGlobal(fs *flag.FlagSet, g *Global) {
	fs.StringVar(&g.RootDir, "r", "", "set an alternate installation root")
	fs.StringVar(&g.RootDir, "root", "", "set an alternate installation root")
	fs.StringVar(&g.DBPath, "b", "", "set an alternate database location")
	fs.StringVar(&g.DBPath, "dbpath", "", "set an alternate database location")
	fs.StringVar(&g.ConfigPath, "config", "/etc/pacgo.conf", "set an alternate configuration file")
	fs.StringVar(&g.LogFile, "logfile", "", "set an alternate log file")
	fs.StringVar(&g.GPGDir, "gpgdir", "", "set an alternate home directory for GnuPG")
	fs.StringVar(&g.Architecture, "arch", "", "set an alternate architecture")
	fs.BoolVar(&g.NoConfirm, "noconfirm", false, "bypass any and all 'are you sure?' messages")
	fs.BoolVar(&g.NoProgressBar, "noprogressbar", false, "do not show a progress bar when downloading files")
	fs.StringVar(&g.Color, "color", "", "colorize output (auto, always, never)")
	fs.BoolVar(&g.Debug, "debug", false, "display debug messages")
	fs.Var(counter{&g.Verbose}, "v", "be more verbose (repeatable)")
	fs.IntVar(&g.Ask, "ask", 0, "pre-answer questions (see ask_mask)")
	fs.Var(repeatedString{&g.CacheDirs}, "cachedir", "set an alternate package cache location")
	fs.Var(repeatedString{&g.IgnorePkg}, "ignore", "ignore a package upgrade (repeatable)")
	fs.Var(repeatedString{&g.HoldPkg}, "hold", "hold a package back from removal (repeatable)")
}

// bindOperation registers op.Kind's short-letter table, per spec.md
// §4.5's "short letters are polysemous by operation".
func bindOperation(fs *flag.FlagSet, op *Operation) {
	switch op.Kind {
	case KindRemove:
		fs.BoolVar(&op.Remove.Recursive, "s", false, "remove dependencies also no longer needed")
		fs.BoolVar(&op.Remove.Recursive, "recursive", false, "remove dependencies also no longer needed")
		fs.BoolVar(&op.Remove.Cascade, "c", false, "remove packages that depend on the targets too")
		fs.BoolVar(&op.Remove.Cascade, "cascade", false, "remove packages that depend on the targets too")
		fs.BoolVar(&op.Remove.Nosave, "n", false, "ignore file backup designations (NoSave)")
		fs.BoolVar(&op.Remove.Nosave, "nosave", false, "ignore file backup designations (NoSave)")
		fs.BoolVar(&op.Remove.Unneeded, "u", false, "remove unneeded packages")
		fs.BoolVar(&op.Remove.Unneeded, "unneeded", false, "remove unneeded packages")
	case KindSync:
		fs.Var(counter{&op.Sync.Clean}, "c", "remove old packages from cache (repeat to remove all)")
		fs.Var(counter{&op.Sync.Clean}, "clean", "remove old packages from cache (repeat to remove all)")
		fs.Var(counter{&op.Sync.Refresh}, "y", "download fresh package databases (repeat to force)")
		fs.Var(counter{&op.Sync.Refresh}, "refresh", "download fresh package databases (repeat to force)")
		fs.BoolVar(&op.Sync.Sysupgrade, "u", false, "upgrade installed packages")
		fs.BoolVar(&op.Sync.Sysupgrade, "sysupgrade", false, "upgrade installed packages")
		fs.BoolVar(&op.Sync.Search, "s", false, "search remote repositories for matching strings")
		fs.BoolVar(&op.Sync.Search, "search", false, "search remote repositories for matching strings")
		fs.BoolVar(&op.Sync.Groups, "g", false, "view all members of a package group")
		fs.BoolVar(&op.Sync.Groups, "groups", false, "view all members of a package group")
		fs.Var(counter{&op.Sync.Info}, "i", "view package information (-ii for extended)")
		fs.Var(counter{&op.Sync.Info}, "info", "view package information (-ii for extended)")
		fs.BoolVar(&op.Sync.List, "l", false, "list all packages in a repository")
		fs.BoolVar(&op.Sync.List, "list", false, "list all packages in a repository")
		fs.BoolVar(&op.Sync.DownloadOnly, "w", false, "download packages but do not install/upgrade anything")
		fs.BoolVar(&op.Sync.DownloadOnly, "downloadonly", false, "download packages but do not install/upgrade anything")
		fs.BoolVar(&op.Sync.PrintOnly, "print", false, "print the targets instead of performing the operation")
	case KindQuery:
		fs.BoolVar(&op.Query.Search, "s", false, "search locally installed packages for matching strings")
		fs.BoolVar(&op.Query.Search, "search", false, "search locally installed packages for matching strings")
		fs.BoolVar(&op.Query.Groups, "g", false, "view all members of a package group")
		fs.BoolVar(&op.Query.Groups, "groups", false, "view all members of a package group")
		fs.Var(counter{&op.Query.Info}, "i", "view package information (-ii includes backup files)")
		fs.Var(counter{&op.Query.Info}, "info", "view package information (-ii includes backup files)")
		fs.BoolVar(&op.Query.List, "l", false, "list all files owned by the queried package")
		fs.BoolVar(&op.Query.List, "list", false, "list all files owned by the queried package")
		fs.StringVar(&op.Query.Owns, "o", "", "query the package that owns a file")
		fs.StringVar(&op.Query.Owns, "owns", "", "query the package that owns a file")
		fs.BoolVar(&op.Query.Foreign, "m", false, "list installed packages not found in any sync db")
		fs.BoolVar(&op.Query.Foreign, "foreign", false, "list installed packages not found in any sync db")
		fs.BoolVar(&op.Query.Orphans, "e", false, "list packages installed as deps but required by none")
		fs.BoolVar(&op.Query.Orphans, "unrequired", false, "list packages installed as deps but required by none")
		fs.StringVar(&op.Query.File, "p", "", "query a package file instead of the database")
		fs.StringVar(&op.Query.File, "file", "", "query a package file instead of the database")
	case KindFiles:
		fs.BoolVar(&op.Files.Owns, "o", false, "query the package that owns a file")
		fs.BoolVar(&op.Files.Owns, "owns", false, "query the package that owns a file")
		fs.BoolVar(&op.Files.Search, "s", false, "search package file names for matching strings")
		fs.BoolVar(&op.Files.Search, "search", false, "search package file names for matching strings")
		fs.BoolVar(&op.Files.List, "l", false, "list the files owned by a package")
		fs.BoolVar(&op.Files.List, "list", false, "list the files owned by a package")
		fs.Var(counter{&op.Files.Refresh}, "y", "download fresh file databases")
		fs.Var(counter{&op.Files.Refresh}, "refresh", "download fresh file databases")
		fs.BoolVar(&op.Files.MachineReadable, "machinereadable", false, "print output as repo\\0name\\0ver\\0path\\n")
	case KindDatabase:
		fs.BoolVar(&op.Database.AsDeps, "asdeps", false, "mark targets as non-explicitly installed")
		fs.BoolVar(&op.Database.AsExplicit, "asexplicit", false, "mark targets as explicitly installed")
	case KindDepTest:
		fs.BoolVar(&op.DepTest.VerCmp, "vercmp", false, "compare two version strings and exit")
	case KindInstall, KindUpgrade:
		// no operation-specific modifiers beyond the global set; URL
		// targets are pre-fetched by internal/ops before the transaction.
	}
}

// repeatedString implements flag.Value, appending each occurrence
// instead of overwriting, for directives like --ignore that may be
// repeated.
type repeatedString struct{ dst *[]string }

func (r repeatedString) String() string { return "" }
func (r repeatedString) Set(v string) error {
	*r.dst = append(*r.dst, v)
	return nil
}

// counter implements flag.Value for flags like `-y`/`-yy` that count
// repetitions rather than taking a value.
type counter struct{ dst *int }

func (c counter) String() string { return "" }
func (c counter) Set(string) error {
	*c.dst++
	return nil
}
func (c counter) IsBoolFlag() bool { return true } // allows bare "-y" with no argument

// Usage returns the operation summary text for --help with no operation
// selected (spec.md §4.5).
func Usage() string {
	var b strings.Builder
	b.WriteString("usage: pac <operation> [...]\n\noperations:\n")
	names := make([]string, 0, len(operationFlags))
	width := 0
	for _, of := range operationFlags {
		s := fmt.Sprintf("  -%c, --%s", of.short, of.long)
		if len(s) > width {
			width = len(s)
		}
		names = append(names, s)
	}
	sort.Strings(names)
	for _, n := range names {
		fmt.Fprintf(&b, "%-*s\n", width, n)
	}
	return b.String()
}
