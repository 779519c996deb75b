// Package ops implements spec.md C9: one handler per dispatched
// Operation (install/remove/upgrade/sync/query/files/database/deptest/
// vertest), each consuming an internal/args.Operation and driving either
// an internal/transaction.Handle or a narrow read-only query surface.
//
// Grounded per-handler on the corresponding original_source/src/pacman/
// *.c file: add.c/upgrade.c (Install/Upgrade), remove.c (Remove),
// sync.c (Sync), query.c (Query), files.c (Files), database.c
// (Database), deptest.c (DepTest/VerTest).
package ops

import (
	"github.com/distr1/pacgo/internal/args"
	"github.com/distr1/pacgo/internal/backend"
	"github.com/distr1/pacgo/internal/config"
	"github.com/distr1/pacgo/internal/output"
	"github.com/distr1/pacgo/internal/signals"
	"github.com/distr1/pacgo/internal/transaction"
)

// PackageInfo is one row of package metadata as reported by the
// back-end's query surface (query.c's alpm_pkg_getinfo family).
type PackageInfo struct {
	Name          string
	Version       string
	Repo          string // empty for locally-installed-only results
	Description   string
	Groups        []string
	Size          int64
	InstallReason string // "explicit" or "dependency"
	Optdepends    []string
	RequiredBy    []string
}

// FileEntry is one row of a `-F`/files-database query result.
type FileEntry struct {
	Repo    string
	Name    string
	Version string
	Path    string
}

// QueryBackend is the narrow read-only surface Query/Files/Sync's
// informational subcommands need from the back-end, distinct from
// transaction.Engine's mutating surface. A real binding and a scripted
// test double both satisfy this.
type QueryBackend interface {
	// InstalledPackages returns every locally-installed package,
	// optionally narrowed; handlers apply their own filters
	// (search/groups/foreign/orphans) over the full result.
	InstalledPackages() ([]PackageInfo, error)
	// SyncPackages returns every package known across configured sync
	// repositories.
	SyncPackages() ([]PackageInfo, error)
	// OwnerOfPath returns the package owning an on-disk file, or an
	// error if none does.
	OwnerOfPath(path string) (PackageInfo, error)
	// FilesOf lists the files owned by an installed package.
	FilesOf(pkgName string) ([]string, error)
	// GroupMembers expands a group name (local or sync, per local bool)
	// to its member package names. ok is false when name isn't a group.
	GroupMembers(name string, local bool) (members []string, ok bool)
	// InspectPackageFile reads a standalone package archive (the -Qp/-p
	// target) without consulting the database.
	InspectPackageFile(path string) (PackageInfo, error)
	// SyncFileEntries supports `-F`'s file-database search/owner modes.
	SyncFileEntries() ([]FileEntry, error)
	// SetInstallReason implements `-D --asdeps`/`--asexplicit`.
	SetInstallReason(pkgName string, explicit bool) error
	// RefreshSyncDatabases implements `-Sy`/`-Fy`; force re-downloads
	// even if the local copy looks current when force is true.
	RefreshSyncDatabases(force bool) error
	// CleanCache implements `-Sc`/`-Scc`; level 2 removes everything,
	// level 1 keeps installed-and-current packages.
	CleanCache(level int) error
	// FetchRemoteTarget pre-fetches a URL install target into the
	// package cache (add.c's pre-addtarget URL handling), returning the
	// local path to substitute for the original URL string. The back-end
	// performs the actual transfer; this layer only observes it via the
	// download callbacks already wired through backend.Context.
	FetchRemoteTarget(url string) (localPath string, err error)
}

// Env bundles everything a handler needs beyond its own args.Operation:
// the resolved configuration, the rendering/prompt surface, the
// callback context (for print-only/no-confirm policy already folded
// into DefaultConfirm), and the two back-end seams.
type Env struct {
	Cfg     *config.Config
	Out     *output.Printer
	Ctx     *backend.Context
	Backend backend.Backend
	Query   QueryBackend
	NewTxn  func() transaction.Engine

	// SetCommitState, when non-nil, is invoked with every Handle this Env
	// builds, so main's signal handler always defers SIGINT/SIGHUP to the
	// transaction actually in flight (see cmd/pac's dispatchWithCommitTracking).
	SetCommitState func(signals.CommitState)

	// Confirm prompts the user with a yes/no question outside the normal
	// transaction.DefaultConfirm summary, used by the sysupgrade
	// self-upgrade sub-flow. Defaults to Out.YesNo(true, prompt) when nil.
	Confirm func(prompt string) (bool, error)

	handle *transaction.Handle
}

// newHandle builds a fresh transaction.Handle and, if SetCommitState is
// set, registers it with the signal handler immediately — every Handle
// this Env hands out, not just the first, must be the one signals.Handler
// defers to.
func (e *Env) newHandle() *transaction.Handle {
	h := transaction.New(e.NewTxn(), e.Ctx, e.Out)
	if e.SetCommitState != nil {
		e.SetCommitState(h)
	}
	return h
}

// Handle returns the single transaction.Handle for this dispatch,
// creating it on first use. Handlers and the caller driving signal
// registration (main's SetCommitState) must share one instance — a
// second Handle would track its own, separate "still committing" state,
// defeating the SIGINT/SIGHUP deferral spec.md §5 requires.
func (e *Env) Handle() *transaction.Handle {
	if e.handle == nil {
		e.handle = e.newHandle()
	}
	return e.handle
}

// ResetHandle discards the memoized Handle and builds a fresh one,
// re-registering it with SetCommitState. transaction.Handle is strictly
// single-use (Init refuses a second call), so the sysupgrade self-upgrade
// sub-flow — which must Release its first Handle and then run a second,
// self-only transaction — calls this instead of Handle after releasing
// the original.
func (e *Env) ResetHandle() *transaction.Handle {
	e.handle = e.newHandle()
	return e.handle
}

// confirmYesNo asks prompt via Confirm if set, otherwise falls back to
// Out.YesNo with a default answer of yes.
func (e *Env) confirmYesNo(prompt string) (bool, error) {
	if e.Confirm != nil {
		return e.Confirm(prompt)
	}
	if e.Out == nil {
		return true, nil
	}
	return e.Out.YesNo(true, prompt)
}

// txnFlags maps the global+operation-specific modifiers that influence
// transaction.Flags, independent of which operation is dispatching.
func txnFlags(noDeps, force, noSave, cascade, recurse, dbOnly, downloadOnly, noScriptlet, noConfirm, printOnly bool) transaction.Flags {
	var f transaction.Flags
	if noDeps {
		f |= transaction.FlagNoDeps
	}
	if force {
		f |= transaction.FlagForce
	}
	if noSave {
		f |= transaction.FlagNoSave
	}
	if cascade {
		f |= transaction.FlagCascade
	}
	if recurse {
		f |= transaction.FlagRecurse
	}
	if dbOnly {
		f |= transaction.FlagDbOnly
	}
	if downloadOnly {
		f |= transaction.FlagDownloadOnly
	}
	if noScriptlet {
		f |= transaction.FlagNoScriptlet
	}
	if noConfirm {
		f |= transaction.FlagNoConfirm
	}
	if printOnly {
		f |= transaction.FlagPrintOnly
	}
	return f
}

// Dispatch routes op to its handler, returning the process exit code
// (spec.md §6's contract: 0 success, 1 error, 2 invalid/not-found,
// 126/127 deptest).
func Dispatch(env *Env, op *args.Operation) int {
	switch op.Kind {
	case args.KindInstall, args.KindUpgrade:
		return handleInstall(env, op)
	case args.KindRemove:
		return handleRemove(env, op)
	case args.KindSync:
		return handleSync(env, op)
	case args.KindQuery:
		return handleQuery(env, op)
	case args.KindFiles:
		return handleFiles(env, op)
	case args.KindDatabase:
		return handleDatabase(env, op)
	case args.KindDepTest, args.KindVerTest:
		return handleDepTest(env, op)
	case args.KindHelp:
		if op.HelpFor != "" {
			env.Out.Raw("usage: pac --" + op.HelpFor + " [options] [targets]\n")
		} else {
			env.Out.Raw(args.Usage())
		}
		return 0
	case args.KindVersion:
		env.Out.Raw("pacgo\n")
		return 0
	default:
		env.Out.Print(output.Error, "unhandled operation %v\n", op.Kind)
		return 1
	}
}
