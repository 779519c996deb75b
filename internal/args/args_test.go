package args

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOperationExclusivity(t *testing.T) {
	_, err := Parse([]string{"-S", "-R", "foo"})
	pe, ok := err.(*ParseError)
	require.True(t, ok, "Parse(-S -R) error = %v, want *ParseError", err)
	assert.Equal(t, ErrMultipleOperations, pe.Kind)
}

func TestOperationExclusivityWithinCluster(t *testing.T) {
	// "-SR" expands to "-S" "-R": still two distinct operation letters.
	_, err := Parse([]string{"-SR", "foo"})
	pe, ok := err.(*ParseError)
	require.True(t, ok, "Parse(-SR) error = %v, want *ParseError", err)
	assert.Equal(t, ErrMultipleOperations, pe.Kind)
}

func TestRepeatedOperationLetterIsNotAConflict(t *testing.T) {
	op, err := Parse([]string{"-S", "-S", "foo"})
	require.NoError(t, err)
	assert.Equal(t, KindSync, op.Kind)
}

func TestSyncClusterSysupgradeRefresh(t *testing.T) {
	op, err := Parse([]string{"-Syu"})
	require.NoError(t, err)
	require.Equal(t, KindSync, op.Kind)
	assert.True(t, op.Sync.Sysupgrade, "Sync = %+v, want Sysupgrade=true", op.Sync)
	assert.Equal(t, 1, op.Sync.Refresh)
}

func TestDoubleRefreshForcesRefresh(t *testing.T) {
	op, err := Parse([]string{"-Syy"})
	require.NoError(t, err)
	assert.Equal(t, 2, op.Sync.Refresh)
}

func TestPolysemousShortLetter(t *testing.T) {
	remove, err := Parse([]string{"-Rs", "foo"})
	require.NoError(t, err)
	assert.True(t, remove.Remove.Recursive, "-s under Remove should set Recursive")

	query, err := Parse([]string{"-Qs", "foo"})
	require.NoError(t, err)
	assert.True(t, query.Query.Search, "-s under Query should set Search, not Recursive")
}

func TestTargetsAfterOptions(t *testing.T) {
	op, err := Parse([]string{"-S", "-u", "pkg-a", "pkg-b"})
	require.NoError(t, err)
	assert.Equal(t, []string{"pkg-a", "pkg-b"}, op.Targets)
}

func TestHelpWithOperationSelectsItsTopic(t *testing.T) {
	op, err := Parse([]string{"-S", "--help"})
	require.NoError(t, err)
	require.Equal(t, KindHelp, op.Kind)
	assert.Equal(t, "sync", op.HelpFor)
}

func TestHelpWithoutOperationIsSummary(t *testing.T) {
	op, err := Parse([]string{"--help"})
	require.NoError(t, err)
	require.Equal(t, KindHelp, op.Kind)
	assert.Equal(t, "", op.HelpFor)
}

func TestVersionFlagShortCircuits(t *testing.T) {
	op, err := Parse([]string{"-S", "-V"})
	require.NoError(t, err)
	assert.Equal(t, KindVersion, op.Kind)
}

func TestNoOperationIsAnError(t *testing.T) {
	_, err := Parse([]string{"foo", "bar"})
	pe, ok := err.(*ParseError)
	require.True(t, ok, "Parse with no operation = %v, want a *ParseError", err)
	assert.Equal(t, ErrMultipleOperations, pe.Kind)
}

func TestGlobalOverridesParsed(t *testing.T) {
	op, err := Parse([]string{"-S", "--root", "/mnt", "--noconfirm", "--ignore", "foo", "--ignore", "bar", "pkg"})
	require.NoError(t, err)
	assert.Equal(t, "/mnt", op.Global.RootDir)
	assert.True(t, op.Global.NoConfirm)
	assert.Equal(t, []string{"foo", "bar"}, op.Global.IgnorePkg)
}

func TestQueryInfoDoubleFlagCounts(t *testing.T) {
	op, err := Parse([]string{"-Q", "-i", "-i", "pkg"})
	require.NoError(t, err)
	assert.Equal(t, 2, op.Query.Info)
}
