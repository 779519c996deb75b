package ops

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/distr1/pacgo/internal/args"
	"github.com/distr1/pacgo/internal/backend"
	"github.com/distr1/pacgo/internal/config"
	"github.com/distr1/pacgo/internal/output"
	"github.com/distr1/pacgo/internal/transaction"
)

// fakeQuery is a scripted QueryBackend test double.
type fakeQuery struct {
	installed    []PackageInfo
	sync         []PackageInfo
	owner        map[string]PackageInfo
	files        map[string][]string
	groups       map[string][]string
	fileEntries  []FileEntry
	setReason    map[string]bool
	refreshCalls int
	cleanLevel   int
	fetched      map[string]string
	fetchDir     string
}

func (f *fakeQuery) InstalledPackages() ([]PackageInfo, error) { return f.installed, nil }
func (f *fakeQuery) SyncPackages() ([]PackageInfo, error)      { return f.sync, nil }
func (f *fakeQuery) OwnerOfPath(path string) (PackageInfo, error) {
	if p, ok := f.owner[path]; ok {
		return p, nil
	}
	return PackageInfo{}, errors.New("no owner")
}
func (f *fakeQuery) FilesOf(name string) ([]string, error) { return f.files[name], nil }
func (f *fakeQuery) GroupMembers(name string, local bool) ([]string, bool) {
	m, ok := f.groups[name]
	return m, ok
}
func (f *fakeQuery) InspectPackageFile(path string) (PackageInfo, error) {
	return PackageInfo{Name: "frompkgfile"}, nil
}
func (f *fakeQuery) SyncFileEntries() ([]FileEntry, error) { return f.fileEntries, nil }
func (f *fakeQuery) SetInstallReason(name string, explicit bool) error {
	if f.setReason == nil {
		f.setReason = map[string]bool{}
	}
	f.setReason[name] = explicit
	return nil
}
func (f *fakeQuery) RefreshSyncDatabases(force bool) error {
	f.refreshCalls++
	return nil
}
func (f *fakeQuery) CleanCache(level int) error {
	f.cleanLevel = level
	return nil
}

// FetchRemoteTarget simulates a back-end download by writing real bytes
// to a scratch directory, so the front-end's own cache-placement step
// (renameio) has something real to copy.
func (f *fakeQuery) FetchRemoteTarget(url string) (string, error) {
	if f.fetched == nil {
		f.fetched = map[string]string{}
	}
	dir := f.fetchDir
	if dir == "" {
		var err error
		dir, err = os.MkdirTemp("", "pacgo-fetch-")
		if err != nil {
			return "", err
		}
		f.fetchDir = dir
	}
	local := filepath.Join(dir, url[strings.LastIndex(url, "/")+1:])
	if err := os.WriteFile(local, []byte("fake-package-contents"), 0o644); err != nil {
		return "", err
	}
	f.fetched[url] = local
	return local, nil
}

// fakeEngine mirrors internal/transaction's own test double, scripted
// per-test via the fields below.
type fakeEngine struct {
	prepareErr    error
	prepareResult *transaction.PrepareResult
	added         []string
	released      int
}

func (e *fakeEngine) Init(t transaction.Type, flags transaction.Flags) error { return nil }
func (e *fakeEngine) AddTarget(target string) error {
	e.added = append(e.added, target)
	return nil
}
func (e *fakeEngine) Prepare() (*transaction.PrepareResult, error) {
	if e.prepareErr != nil {
		return nil, e.prepareErr
	}
	if e.prepareResult != nil {
		return e.prepareResult, nil
	}
	return &transaction.PrepareResult{}, nil
}
func (e *fakeEngine) Commit() error { return nil }
func (e *fakeEngine) Release() error {
	e.released++
	return nil
}
func (e *fakeEngine) Interrupt() bool  { return false }
func (e *fakeEngine) LockPath() string { return "/var/lib/pacgo/db.lck" }

func newTestEnv(t *testing.T, q *fakeQuery, eng *fakeEngine) (*Env, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cfg := config.Default()
	cfg.NoConfirm = true
	cfg.CacheDirs = []string{t.TempDir()}
	out := output.New(&stdout, &stderr, 0, false, true)
	return &Env{
		Cfg:   cfg,
		Out:   out,
		Query: q,
		NewTxn: func() transaction.Engine {
			if eng != nil {
				return eng
			}
			return &fakeEngine{}
		},
	}, &stdout, &stderr
}

func TestHandleDepTestSatisfied(t *testing.T) {
	env, stdout, _ := newTestEnv(t, &fakeQuery{}, &fakeEngine{})
	op := &args.Operation{Kind: args.KindDepTest, Targets: []string{"glibc>=2.30"}}
	require.Equal(t, 0, Dispatch(env, op))
	assert.Zero(t, stdout.Len(), "stdout should be empty on success")
}

func TestHandleDepTestUnsatisfied(t *testing.T) {
	eng := &fakeEngine{prepareErr: &transaction.UnsatisfiedDepsError{
		Missing: []transaction.DepMissing{{Target: "dummy", DepName: "glibc", Modifier: 0}},
	}}
	env, _, stderr := newTestEnv(t, &fakeQuery{}, eng)
	op := &args.Operation{Kind: args.KindDepTest, Targets: []string{"glibc>=99.0"}}
	require.Equal(t, 126, Dispatch(env, op))
	_ = stderr
	require.Len(t, eng.added, 1)
	assert.Contains(t, eng.added[0], "depend=glibc>=99.0")
}

func TestHandleDepTestConflict(t *testing.T) {
	eng := &fakeEngine{prepareErr: &transaction.ConflictingDepsError{
		Conflicts: []transaction.Conflict{{Target: "a", Name: "b"}},
	}}
	env, _, _ := newTestEnv(t, &fakeQuery{}, eng)
	op := &args.Operation{Kind: args.KindDepTest, Targets: []string{"b"}}
	assert.Equal(t, 127, Dispatch(env, op))
}

func TestHandleDepTestVerCmp(t *testing.T) {
	env, stdout, _ := newTestEnv(t, &fakeQuery{}, &fakeEngine{})
	env.Backend = scriptedBackend{cmp: -1}
	op := &args.Operation{Kind: args.KindDepTest, Targets: []string{"1.0", "2.0"}, DepTest: args.DepTestOptions{VerCmp: true}}
	require.Equal(t, 0, Dispatch(env, op))
	assert.Equal(t, "-1", strings.TrimSpace(stdout.String()))
}

type scriptedBackend struct{ cmp int }

func (s scriptedBackend) SetCallbacks(cb backend.Callbacks) {}
func (s scriptedBackend) CompareVersions(a, b string) int   { return s.cmp }

func TestHandleRemoveGroupExpansionAll(t *testing.T) {
	q := &fakeQuery{groups: map[string][]string{"base-devel": {"make", "gcc"}}}
	env, _, _ := newTestEnv(t, q, &fakeEngine{})
	op := &args.Operation{Kind: args.KindRemove, Targets: []string{"base-devel"}}
	assert.Equal(t, 0, Dispatch(env, op))
}

func TestHandleQueryOwnerFound(t *testing.T) {
	q := &fakeQuery{owner: map[string]PackageInfo{
		"/usr/bin/ls": {Name: "coreutils", Version: "9.1-1"},
	}}
	env, stdout, _ := newTestEnv(t, q, &fakeEngine{})
	op := &args.Operation{Kind: args.KindQuery, Query: args.QueryOptions{Owns: "/usr/bin/ls"}}
	require.Equal(t, 0, Dispatch(env, op))
	assert.Contains(t, stdout.String(), "coreutils 9.1-1")
}

func TestHandleQueryOwnerMissing(t *testing.T) {
	env, _, stderr := newTestEnv(t, &fakeQuery{owner: map[string]PackageInfo{}}, &fakeEngine{})
	op := &args.Operation{Kind: args.KindQuery, Query: args.QueryOptions{Owns: "/tmp/not-a-pkg-file"}}
	require.Equal(t, 1, Dispatch(env, op))
	assert.Contains(t, stderr.String(), "No package owns /tmp/not-a-pkg-file")
}

func TestHandleDatabaseAsDeps(t *testing.T) {
	q := &fakeQuery{}
	env, stdout, _ := newTestEnv(t, q, &fakeEngine{})
	op := &args.Operation{Kind: args.KindDatabase, Targets: []string{"foo"}, Database: args.DatabaseOptions{AsDeps: true}}
	require.Equal(t, 0, Dispatch(env, op))
	assert.False(t, q.setReason["foo"], "SetInstallReason(foo) = explicit, want dependency (AsDeps)")
	assert.Contains(t, stdout.String(), "installed as dependency")
}

func TestHandleDatabaseNoReasonIsAnError(t *testing.T) {
	env, _, stderr := newTestEnv(t, &fakeQuery{}, &fakeEngine{})
	op := &args.Operation{Kind: args.KindDatabase, Targets: []string{"foo"}}
	require.Equal(t, 1, Dispatch(env, op))
	assert.Contains(t, stderr.String(), "no install reason specified")
}

func TestHandleInstallPreFetchesURLTargets(t *testing.T) {
	q := &fakeQuery{}
	env, _, _ := newTestEnv(t, q, &fakeEngine{})
	op := &args.Operation{Kind: args.KindInstall, Targets: []string{"https://example/pkg-1.0.pkg"}}
	require.Equal(t, 0, Dispatch(env, op))
	require.NotEmpty(t, q.fetched["https://example/pkg-1.0.pkg"], "remote target was never pre-fetched")

	cached := filepath.Join(env.Cfg.CacheDirs[0], "pkg-1.0.pkg")
	data, err := os.ReadFile(cached)
	require.NoError(t, err, "fetched file was not placed into the cache directory")
	assert.Equal(t, "fake-package-contents", string(data))
}

func TestHandleSyncSearchMatchesByNameOrDescription(t *testing.T) {
	q := &fakeQuery{sync: []PackageInfo{
		{Name: "glibc", Repo: "core", Description: "GNU C Library"},
		{Name: "linux", Repo: "core", Description: "The kernel"},
	}}
	env, stdout, _ := newTestEnv(t, q, &fakeEngine{})
	op := &args.Operation{Kind: args.KindSync, Sync: args.SyncOptions{Search: true}, Targets: []string{"kernel"}}
	require.Equal(t, 0, Dispatch(env, op))
	got := stdout.String()
	assert.Contains(t, got, "core/linux")
	assert.NotContains(t, got, "glibc")
}

func TestHandleSyncSysupgradeSelfUpgradePromptsThenCommitsAlone(t *testing.T) {
	eng := &fakeEngine{prepareResult: &transaction.PrepareResult{SelfUpgradeTarget: "pacgo"}}
	env, stdout, _ := newTestEnv(t, &fakeQuery{}, eng)
	env.Cfg.NoConfirm = false
	env.Confirm = func(prompt string) (bool, error) { return true, nil }

	op := &args.Operation{Kind: args.KindSync, Sync: args.SyncOptions{Sysupgrade: true}}
	code := Dispatch(env, op)
	require.Equal(t, 0, code)
	assert.Contains(t, stdout.String(), "pacgo")
	assert.Equal(t, []string{"pacgo"}, eng.added, "only the self-upgrade target should have been committed")
	assert.Equal(t, 2, eng.released, "the first handle is released before the self-only commit, which releases its own handle too")
}

func TestHandleSyncSysupgradeDeclineSelfUpgradeCommitsFullSet(t *testing.T) {
	eng := &fakeEngine{prepareResult: &transaction.PrepareResult{SelfUpgradeTarget: "pacgo"}}
	env, _, _ := newTestEnv(t, &fakeQuery{}, eng)
	env.Cfg.NoConfirm = false
	env.Confirm = func(prompt string) (bool, error) { return false, nil }

	op := &args.Operation{Kind: args.KindSync, Sync: args.SyncOptions{Sysupgrade: true}}
	code := Dispatch(env, op)
	require.Equal(t, 0, code)
	assert.Empty(t, eng.added, "declining should fall through to the original handle, which was never re-initialized")
}
