package transaction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/distr1/pacgo/internal/vercmp"
)

// fakeEngine is a scripted Engine test double, mirroring
// backend.ScriptedBackend's role for the callback protocol.
type fakeEngine struct {
	initErr       error
	addTargetErrs map[string]error
	prepareResult *PrepareResult
	prepareErr    error
	commitErr     error
	releaseErr    error

	initCalled    bool
	addedTargets  []string
	committed     bool
	released      int
	interruptFunc func() bool
	duringCommit  bool
}

func (f *fakeEngine) Init(t Type, flags Flags) error {
	f.initCalled = true
	return f.initErr
}

func (f *fakeEngine) AddTarget(target string) error {
	f.addedTargets = append(f.addedTargets, target)
	if f.addTargetErrs != nil {
		if err, ok := f.addTargetErrs[target]; ok {
			return err
		}
	}
	return nil
}

func (f *fakeEngine) Prepare() (*PrepareResult, error) {
	if f.prepareErr != nil {
		return nil, f.prepareErr
	}
	if f.prepareResult == nil {
		return &PrepareResult{}, nil
	}
	return f.prepareResult, nil
}

func (f *fakeEngine) Commit() error {
	f.committed = true
	if f.interruptFunc != nil {
		f.duringCommit = f.interruptFunc()
	}
	return f.commitErr
}

func (f *fakeEngine) Release() error {
	f.released++
	return f.releaseErr
}

func (f *fakeEngine) Interrupt() bool {
	if f.interruptFunc != nil {
		return f.interruptFunc()
	}
	return false
}

func (f *fakeEngine) LockPath() string { return "/var/lib/pacgo/db.lck" }

func alwaysConfirm(*PrepareResult) (bool, error) { return true, nil }

func TestRunHappyPath(t *testing.T) {
	eng := &fakeEngine{}
	h := New(eng, nil, nil)

	code, err := h.Run(TypeInstall, 0, []string{"pkg-a", "pkg-b"}, alwaysConfirm)
	require.NoError(t, err)
	require.Equal(t, 0, code)
	require.True(t, eng.initCalled)
	require.True(t, eng.committed)
	require.Equal(t, 1, eng.released)
	require.Len(t, eng.addedTargets, 2)
}

func TestRunDeclinedConfirmationSkipsCommit(t *testing.T) {
	eng := &fakeEngine{}
	h := New(eng, nil, nil)

	code, err := h.Run(TypeInstall, 0, []string{"pkg-a"}, func(*PrepareResult) (bool, error) { return false, nil })
	require.NoError(t, err)
	require.Equal(t, 0, code, "declined confirmation is not a failure")
	assert.False(t, eng.committed, "Commit was called despite a declined confirmation")
	assert.Equal(t, 1, eng.released, "release is always attempted")
}

func TestAddTargetsFailureReleasesHandle(t *testing.T) {
	eng := &fakeEngine{addTargetErrs: map[string]error{"bad-pkg": &UnsatisfiedDepsError{}}}
	h := New(eng, nil, nil)

	require.NoError(t, h.Init(TypeInstall, 0))
	err := h.AddTargets([]string{"good-pkg", "bad-pkg", "never-reached"})
	require.Error(t, err, "AddTargets should fail on the second target")
	require.Equal(t, []string{"good-pkg", "bad-pkg"}, eng.addedTargets, "AddTargets should stop at the first failure")
	require.Equal(t, 1, eng.released, "AddTargets failure should release the handle")

	// A second Release (e.g. from a deferred caller) must be a no-op.
	require.NoError(t, h.Release())
	assert.Equal(t, 1, eng.released, "a second Release must not call the engine again")
}

func TestPrepareUnsatisfiedDepsPropagates(t *testing.T) {
	want := &UnsatisfiedDepsError{Missing: []DepMissing{
		{Target: "foo", DepName: "glibc", Modifier: vercmp.Ge, Version: "99.0"},
	}}
	eng := &fakeEngine{prepareErr: want}
	h := New(eng, nil, nil)
	require.NoError(t, h.Init(TypeInstall, 0))

	_, err := h.Prepare()
	got, ok := err.(*UnsatisfiedDepsError)
	require.True(t, ok, "Prepare error = %v (%T), want *UnsatisfiedDepsError", err, err)
	require.Len(t, got.Missing, 1)
	assert.Equal(t, ":: foo: requires glibc>=99.0", got.Missing[0].String())
}

func TestHandleLockErrorSurfacesLockPath(t *testing.T) {
	eng := &fakeEngine{initErr: &HandleLockError{LockPath: "/var/lib/pacgo/db.lck"}}
	h := New(eng, nil, nil)

	err := h.Init(TypeInstall, 0)
	lockErr, ok := err.(*HandleLockError)
	require.True(t, ok, "Init error = %v (%T), want *HandleLockError", err, err)
	assert.Equal(t, "/var/lib/pacgo/db.lck", lockErr.LockPath)
}

func TestTransactionIdempotence(t *testing.T) {
	eng := &fakeEngine{}
	h := New(eng, nil, nil)

	require.NoError(t, h.Init(TypeInstall, 0))
	require.NoError(t, h.Release())
	assert.Equal(t, 1, eng.released)
	assert.False(t, eng.committed)
}

func TestStillCommittingOnlyDuringCommit(t *testing.T) {
	eng := &fakeEngine{}
	h := New(eng, nil, nil)

	require.False(t, h.StillCommitting(), "StillCommitting should be false before Commit was ever called")

	eng.interruptFunc = func() bool { return h.StillCommitting() }
	// Simulate Commit's synchronous body observing its own in-flight state
	// the way a real back-end would report it mid-call.
	require.NoError(t, h.Commit())
	require.True(t, eng.duringCommit, "StillCommitting should be true while Commit runs")
	require.False(t, h.StillCommitting(), "StillCommitting should be false after Commit returned")
}

func TestFileConflictRendering(t *testing.T) {
	target := FileConflict{Type: ConflictTarget, Target: "foo", ConflictTarget: "bar", File: "/usr/bin/x"}
	assert.Equal(t, `/usr/bin/x exists in both "foo" and "bar"`, target.String())

	file := FileConflict{Type: ConflictFile, Target: "foo", File: "/usr/bin/y"}
	assert.Equal(t, "foo: /usr/bin/y exists in filesystem", file.String())
}
