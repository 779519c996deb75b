package main

import (
	"fmt"

	"github.com/distr1/pacgo/internal/backend"
	"github.com/distr1/pacgo/internal/ops"
	"github.com/distr1/pacgo/internal/transaction"
	"github.com/distr1/pacgo/internal/vercmp"
)

// unconfiguredBackend stands in for the package-management library this
// driver is specified against but never implements itself (spec.md §1's
// "deliberately out of scope" back-end). It satisfies backend.Backend,
// transaction.Engine and ops.QueryBackend so main can wire a complete
// Env without a real dependency solver/archive/database/network stack;
// every mutating call fails with errNoBackend, and the read-only listing
// calls report an empty result rather than erroring, so `-Qi` etc. degrade
// gracefully instead of refusing to run at all. OwnerOfPath and
// InspectPackageFile, which look up one specific item, fail with
// errNoBackend.
type unconfiguredBackend struct {
	cb backend.Callbacks
}

var errNoBackend = fmt.Errorf("no package-management back-end is configured")

func (b *unconfiguredBackend) SetCallbacks(cb backend.Callbacks) { b.cb = cb }

// CompareVersions falls back to the pure-Go comparator; a real back-end
// binding would use its own vercmp, which may differ in edge cases (see
// backend.Backend's doc comment).
func (b *unconfiguredBackend) CompareVersions(a, c string) int { return vercmp.Compare(a, c) }

func (b *unconfiguredBackend) Init(t transaction.Type, flags transaction.Flags) error {
	return errNoBackend
}
func (b *unconfiguredBackend) AddTarget(string) error                    { return errNoBackend }
func (b *unconfiguredBackend) Prepare() (*transaction.PrepareResult, error) { return nil, errNoBackend }
func (b *unconfiguredBackend) Commit() error                             { return errNoBackend }
func (b *unconfiguredBackend) Release() error                            { return nil }
func (b *unconfiguredBackend) Interrupt() bool                          { return false }
func (b *unconfiguredBackend) LockPath() string                         { return "/var/lib/pacgo/db.lck" }

func (b *unconfiguredBackend) InstalledPackages() ([]ops.PackageInfo, error)   { return nil, nil }
func (b *unconfiguredBackend) SyncPackages() ([]ops.PackageInfo, error)        { return nil, nil }
func (b *unconfiguredBackend) OwnerOfPath(string) (ops.PackageInfo, error)     { return ops.PackageInfo{}, errNoBackend }
func (b *unconfiguredBackend) FilesOf(string) ([]string, error)               { return nil, nil }
func (b *unconfiguredBackend) GroupMembers(string, bool) ([]string, bool)     { return nil, false }
func (b *unconfiguredBackend) InspectPackageFile(string) (ops.PackageInfo, error) {
	return ops.PackageInfo{}, errNoBackend
}
func (b *unconfiguredBackend) SyncFileEntries() ([]ops.FileEntry, error) { return nil, nil }
func (b *unconfiguredBackend) SetInstallReason(string, bool) error      { return errNoBackend }
func (b *unconfiguredBackend) RefreshSyncDatabases(bool) error          { return errNoBackend }
func (b *unconfiguredBackend) CleanCache(int) error                     { return errNoBackend }
func (b *unconfiguredBackend) FetchRemoteTarget(url string) (string, error) {
	return "", errNoBackend
}
