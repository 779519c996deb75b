// Package backend implements the driver side of the five-function
// event/question/progress/log/download callback protocol (spec.md C6):
// the closed Event/Question/Progress/Download variant types, the
// Callbacks capability record ("model as a record of functions or a
// trait/interface", spec.md §9), and the driver Context that owns the
// shared on_progress flag, delayed-log queue and multibar state behind
// one logical mutex (spec.md §5). Grounded directly on pacman's
// src/pacman/callback.c.
package backend

// PackageOperation is the kind of package mutation an event/progress
// callback is reporting on, matching alpm_package_operation_t /
// alpm_progress_t's *_START variants.
type PackageOperation int

const (
	OpInstall PackageOperation = iota
	OpUpgrade
	OpReinstall
	OpDowngrade
	OpRemove
)

func (o PackageOperation) String() string {
	switch o {
	case OpInstall:
		return "installing"
	case OpUpgrade:
		return "upgrading"
	case OpReinstall:
		return "reinstalling"
	case OpDowngrade:
		return "downgrading"
	case OpRemove:
		return "removing"
	default:
		return "processing"
	}
}

// EventKind enumerates the closed event variant set of spec.md §4.6,
// grounded on alpm_event_type_t.
type EventKind int

const (
	CheckDepsStart EventKind = iota
	CheckDepsDone
	ResolveDepsStart
	ResolveDepsDone
	InterConflictsStart
	InterConflictsDone
	FileConflictsStart
	FileConflictsDone
	IntegrityStart
	IntegrityDone
	KeyringStart
	KeyringDone
	LoadStart
	LoadDone
	DiskspaceStart
	DiskspaceDone
	TransactionStart
	TransactionDone
	PackageOperationStart
	PackageOperationDone
	HookStart
	HookDone
	HookRunStart
	HookRunDone
	DatabaseMissing
	PacnewCreated
	PacsaveCreated
	OptdepRemoval
	ScriptletInfo
	DbRetrieveStart
	DbRetrieveDone
	DbRetrieveFailed
	PkgRetrieveStart
	PkgRetrieveDone
	PkgRetrieveFailed
	KeyDownloadStart
	KeyDownloadDone
)

// HookWhen distinguishes pre- from post-transaction hook runs
// (ALPM_HOOK_PRE_TRANSACTION / POST_TRANSACTION).
type HookWhen int

const (
	HookPreTransaction HookWhen = iota
	HookPostTransaction
)

// Event is the payload delivered to the Event callback. Only the fields
// relevant to Kind are populated, mirroring alpm_event_t's tagged union.
type Event struct {
	Kind EventKind

	// HookStart/HookDone
	HookWhen HookWhen

	// HookRunStart/HookRunDone
	HookPosition, HookTotal int
	HookDesc, HookName      string

	// PackageOperationStart/Done
	Operation          PackageOperation
	OldPkgName         string
	NewPkgName         string
	NewPkgOptdepends   []string
	OldPkgOptdepends   []string

	// OptdepRemoval
	OptdepPkgName string
	OptdepString  string

	// DatabaseMissing
	DBName string

	// PacnewCreated / PacsaveCreated
	File string

	// ScriptletInfo
	Line string
}
