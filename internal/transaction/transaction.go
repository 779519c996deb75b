// Package transaction implements the uniform four-phase transaction
// driver of spec.md C8: Init → AddTargets → Prepare → Commit → Release,
// structured error unpacking for Prepare/Commit failures, the
// pre-commit confirmation summary, and the PrepareResult.SelfUpgradeTarget
// report that internal/ops' sysupgrade self-upgrade sub-flow branches on.
// Grounded on original_source/src/pacman/add.c's
// init/addtarget/prepare/commit/"goto cleanup" shape, generalized from
// its single PM_TRANS_TYPE_ADD/UPGRADE pair to the full Type set, and on
// trans.c's confirmation-summary fields.
package transaction

import (
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/xerrors"

	"github.com/distr1/pacgo/internal/backend"
	"github.com/distr1/pacgo/internal/output"
	"github.com/distr1/pacgo/internal/term"
	"github.com/distr1/pacgo/internal/vercmp"
)

// Type is the kind of mutation a transaction performs, mirroring
// pmtranstype_t.
type Type int

const (
	TypeInstall Type = iota
	TypeUpgrade
	TypeRemove
	TypeSync
)

// Flags mirrors alpm_transflag_t's bitset of modifiers threaded into
// Init.
type Flags uint

const (
	FlagNoDeps Flags = 1 << iota
	FlagForce
	FlagNoSave
	FlagCascade
	FlagRecurse
	FlagDbOnly
	FlagDownloadOnly
	FlagNoScriptlet
	FlagNoConfirm
	FlagPrintOnly
)

// state is the lifecycle position of a Handle, mirroring spec.md §3's
// Uninit → Active → Released.
type state int

const (
	stateUninit state = iota
	stateActive
	stateReleased
)

// DepMissing is one unsatisfied dependency in an UnsatisfiedDeps error
// payload (spec.md §4.8), grounded on deptest.c's PM_DEP_MOD switch.
type DepMissing struct {
	Target   string
	DepName  string
	Modifier vercmp.Modifier
	Version  string
}

func (d DepMissing) String() string {
	if d.Modifier == vercmp.Any || d.Version == "" {
		return fmt.Sprintf(":: %s: requires %s", d.Target, d.DepName)
	}
	return fmt.Sprintf(":: %s: requires %s%s%s", d.Target, d.DepName, d.Modifier, d.Version)
}

// Conflict is one package-vs-package dependency conflict.
type Conflict struct {
	Target string
	Name   string
}

func (c Conflict) String() string {
	return fmt.Sprintf(":: %s: conflicts with %s", c.Target, c.Name)
}

// FileConflictType distinguishes the two shapes add.c's
// alpm_conflict_get_type switches on.
type FileConflictType int

const (
	ConflictTarget FileConflictType = iota
	ConflictFile
)

// FileConflict is one file-level conflict in a FileConflicts payload.
type FileConflict struct {
	Type           FileConflictType
	Target         string
	ConflictTarget string // set when Type == ConflictTarget
	File           string
}

func (c FileConflict) String() string {
	if c.Type == ConflictTarget {
		return fmt.Sprintf("%s exists in both %q and %q", c.File, c.Target, c.ConflictTarget)
	}
	return fmt.Sprintf("%s: %s exists in filesystem", c.Target, c.File)
}

// Sentinel error kinds (spec.md §7 "Back-end" taxonomy). Use
// errors.As/errors.Is against the concrete wrapper types below rather
// than these strings directly; they exist so callers can log a stable
// kind name.
var (
	ErrHandleLock = xerrors.New("handle lock")
)

// UnsatisfiedDepsError wraps a Prepare/Commit failure whose payload is a
// list of DepMissing.
type UnsatisfiedDepsError struct{ Missing []DepMissing }

func (e *UnsatisfiedDepsError) Error() string { return "unsatisfied dependencies" }

// ConflictingDepsError wraps a Prepare failure whose payload is a list
// of Conflict.
type ConflictingDepsError struct{ Conflicts []Conflict }

func (e *ConflictingDepsError) Error() string { return "conflicting dependencies" }

// FileConflictsError wraps a Prepare or Commit failure whose payload is
// a list of FileConflict.
type FileConflictsError struct{ Conflicts []FileConflict }

func (e *FileConflictsError) Error() string { return "file conflicts" }

// DiskFullError wraps a Prepare failure reporting required vs. free
// space, in bytes.
type DiskFullError struct{ Required, Free int64 }

func (e *DiskFullError) Error() string {
	return fmt.Sprintf(":: %.1f MB required, have %.1f MB",
		float64(e.Required)/(1024*1024), float64(e.Free)/(1024*1024))
}

// PkgCorruptedError wraps a Commit failure reporting a corrupted
// archive.
type PkgCorruptedError struct{ Message string }

func (e *PkgCorruptedError) Error() string { return e.Message }

// HandleLockError reports that a transaction is already in progress,
// surfacing the lock file path so the user can intervene (spec.md §4.8).
type HandleLockError struct{ LockPath string }

func (e *HandleLockError) Error() string {
	return fmt.Sprintf("failed to init transaction (unable to lock database): %s", e.LockPath)
}

func (e *HandleLockError) Unwrap() error { return ErrHandleLock }

// Engine is the narrow back-end surface this driver needs beyond the
// five-callback registration in package backend: init/addtarget/
// prepare/commit/release/interrupt, and the data this layer renders
// into the pre-commit summary. A real back-end binding and a scripted
// test double both satisfy this.
type Engine interface {
	Init(t Type, flags Flags) error
	AddTarget(target string) error
	Prepare() (*PrepareResult, error)
	Commit() error
	Release() error
	// Interrupt reports whether a destructive commit is still in
	// flight. Handle never calls it: Handle.StillCommitting, which is
	// what signals.CommitState sees, reports Handle's own Commit call.
	Interrupt() (stillCommitting bool)
	LockPath() string
}

// PrepareResult is the non-error summary data a successful Prepare
// gathers for the pre-commit confirmation (spec.md §4.8): removed
// packages, new/updated targets with sizes, and totals.
type PrepareResult struct {
	Remove            []string
	Targets           []TargetSummary
	TotalDownloadSize int64
	TotalInstalledSize int64
	// SelfUpgradeTarget is set when the transaction includes the
	// package manager's own package alongside other targets, triggering
	// the sysupgrade self-upgrade sub-flow.
	SelfUpgradeTarget string
}

// TargetSummary is one line of the "Targets:" confirmation list.
type TargetSummary struct {
	NameVersion string
	Size        int64 // bytes; 0 = unknown/unset
}

// Handle is a scoped, single-use driver around one Engine transaction,
// implementing the "goto cleanup" pattern of add.c as a Go value with a
// guaranteed Release on every exit path (spec.md §9).
type Handle struct {
	engine Engine
	ctx    *backend.Context
	out    *output.Printer

	mu    sync.Mutex
	state state

	committing atomic.Bool
}

// New builds a Handle bound to engine. ctx and out are used to render
// the confirmation summary and resolve no_confirm/print-only policy;
// both may be nil in tests that only exercise the phase sequencing.
func New(engine Engine, ctx *backend.Context, out *output.Printer) *Handle {
	return &Handle{engine: engine, ctx: ctx, out: out, state: stateUninit}
}

// StillCommitting implements signals.CommitState: true only while
// Commit() is actually running, never merely while a callback is
// executing (that would conflate callback serialization with
// transaction-commit state — a distinct concept).
func (h *Handle) StillCommitting() bool {
	return h.committing.Load()
}

// logStructured emits a debug-level structured log line carrying this
// Handle's transaction id, via the same leveled printer renderSummary
// writes through. Both out and ctx may be nil in phase-sequencing-only
// tests, so this is a no-op in that case.
func (h *Handle) logStructured(msg string, kv ...any) {
	if h.out == nil || h.ctx == nil {
		return
	}
	args := append([]any{"txn_id", h.ctx.TransactionID.String()}, kv...)
	h.out.Structured(output.Debug, msg, args...)
}

// Init acquires the back-end transaction lock (spec.md §4.8 step 1).
func (h *Handle) Init(t Type, flags Flags) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state != stateUninit {
		return xerrors.New("transaction: Init called out of order")
	}
	if err := h.engine.Init(t, flags); err != nil {
		if lockErr, ok := err.(*HandleLockError); ok {
			return lockErr
		}
		return xerrors.Errorf("transaction init: %w", err)
	}
	h.state = stateActive
	h.logStructured("transaction initialized", "type", t, "flags", flags)
	return nil
}

// AddTargets adds each target in order, stopping at the first failure
// (spec.md §4.8 step 2). On failure the handle is released before
// returning, matching add.c's "goto cleanup" on addtarget error.
func (h *Handle) AddTargets(targets []string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, t := range targets {
		if err := h.engine.AddTarget(t); err != nil {
			h.releaseLocked()
			return xerrors.Errorf("failed to add target %q: %w", t, err)
		}
	}
	return nil
}

// Prepare resolves dependencies/conflicts/disk space for the added
// targets (spec.md §4.8 step 3). The engine's error is returned as is,
// unwrapped, so the structured *...Error types above reach the caller
// unchanged.
func (h *Handle) Prepare() (*PrepareResult, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	res, err := h.engine.Prepare()
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Commit performs the installation/removal (spec.md §4.8 step 4). While
// Commit is running, StillCommitting reports true so a concurrent
// SIGINT/SIGHUP defers to it instead of tearing the process down.
func (h *Handle) Commit() error {
	h.committing.Store(true)
	defer h.committing.Store(false)
	h.logStructured("commit starting")
	err := h.engine.Commit()
	if err != nil {
		h.logStructured("commit failed", "error", err)
	} else {
		h.logStructured("commit finished")
	}
	return err
}

// Release always attempts the back-end release (spec.md §4.8 step 5).
// Its own failure only downgrades an otherwise-successful result; it
// never overrides a prior error — callers must track that themselves,
// e.g. via Run below.
func (h *Handle) Release() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.releaseLocked()
}

func (h *Handle) releaseLocked() error {
	if h.state == stateReleased {
		return nil
	}
	h.state = stateReleased
	err := h.engine.Release()
	if err == nil {
		h.logStructured("transaction released")
	}
	return err
}

// Run drives the full Init → AddTargets → Prepare → [confirm] → Commit
// → Release flow for one non-interactive caller (an operation handler),
// returning the process exit code spec.md §7 documents (0 success, 1
// generic error). It does not implement the sysupgrade self-upgrade
// sub-flow or the print-URIs short-circuit directly — those are
// orchestrated by internal/ops, which has the operation-specific
// context (self package name, print flag) Run does not.
func (h *Handle) Run(t Type, flags Flags, targets []string, confirm func(*PrepareResult) (bool, error)) (exitCode int, err error) {
	if err := h.Init(t, flags); err != nil {
		return 1, err
	}
	defer func() {
		if relErr := h.Release(); relErr != nil && err == nil {
			exitCode = 1
			err = xerrors.Errorf("release: %w", relErr)
		}
	}()

	if err := h.AddTargets(targets); err != nil {
		return 1, err
	}

	res, err := h.Prepare()
	if err != nil {
		return 1, err
	}

	if confirm == nil {
		confirm = h.DefaultConfirm
	}
	ok, cerr := confirm(res)
	if cerr != nil {
		return 1, cerr
	}
	if !ok {
		return 0, nil
	}

	if err := h.Commit(); err != nil {
		return 1, err
	}
	return 0, nil
}

// renderSummary prints the "Remove:"/"Targets:" pre-commit confirmation
// block (spec.md §4.8), grounded on trans.c's confirmation fields.
func (h *Handle) renderSummary(res *PrepareResult) {
	if h.out == nil || res == nil {
		return
	}
	if len(res.Remove) > 0 {
		h.out.Colon("Remove:\n")
		for _, name := range res.Remove {
			h.out.Print(output.Info, "    %s\n", name)
		}
	}
	if len(res.Targets) > 0 {
		h.out.Colon("Targets:\n")
		for _, t := range res.Targets {
			if t.Size > 0 {
				value, unit := term.HumanizeSize(float64(t.Size), -1)
				h.out.Print(output.Info, "    %s [%.2f %s]\n", t.NameVersion, value, unit)
			} else {
				h.out.Print(output.Info, "    %s\n", t.NameVersion)
			}
		}
	}
	if res.TotalDownloadSize > 0 {
		value, unit := term.HumanizeSize(float64(res.TotalDownloadSize), -1)
		h.out.Print(output.Info, "\nTotal Download Size:    %.2f %s\n", value, unit)
	}
	if res.TotalInstalledSize > 0 {
		value, unit := term.HumanizeSize(float64(res.TotalInstalledSize), -1)
		h.out.Print(output.Info, "Total Installed Size:   %.2f %s\n", value, unit)
	}
}

// DefaultConfirm renders the pre-commit summary and prompts for
// confirmation, bypassed by no_confirm or the print-URIs flag (spec.md
// §4.8's "prompts for confirmation (bypassed by no_confirm or by
// op_d_resolve)"). Operation handlers needing a different prompt (e.g.
// the sysupgrade self-upgrade sub-flow) pass their own confirm func to
// Run instead.
func (h *Handle) DefaultConfirm(res *PrepareResult) (bool, error) {
	h.renderSummary(res)
	if h.out == nil {
		return true, nil
	}
	if h.ctx != nil && h.ctx.PrintOnly {
		return true, nil
	}
	if h.ctx != nil && h.ctx.Cfg != nil && h.ctx.Cfg.NoConfirm {
		return true, nil
	}
	return h.out.YesNo(true, "Proceed with transaction")
}
