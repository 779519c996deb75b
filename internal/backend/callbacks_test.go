package backend

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/distr1/pacgo/internal/config"
	"github.com/distr1/pacgo/internal/multibar"
	"github.com/distr1/pacgo/internal/output"
)

func newTestContext(t *testing.T) (*Context, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cfg := config.Default()
	cfg.NoConfirm = true
	p := output.New(&stdout, &stderr, 0, false, true)
	mb := multibar.New(&stderr, false, true, false, false)
	return NewContext(p, mb, cfg), &stdout, &stderr
}

func TestQuestionDefaultsWithNoConfirm(t *testing.T) {
	c, _, _ := newTestContext(t)

	for _, test := range []struct {
		kind config.QuestionKind
		q    *Question
		get  func(*Question) bool
		want bool
	}{
		{kind: config.InstallIgnorePkg, q: &Question{Kind: config.InstallIgnorePkg, PkgName: "foo"}, get: func(q *Question) bool { return q.InstallAnswer }, want: false},
		{kind: config.ReplacePkg, q: &Question{Kind: config.ReplacePkg}, get: func(q *Question) bool { return q.ReplaceAnswer }, want: true},
		{kind: config.ConflictPkg, q: &Question{Kind: config.ConflictPkg, Package1: "a", Package2: "b", ConflictReason: "a"}, get: func(q *Question) bool { return q.RemoveAnswer }, want: false},
		{kind: config.CorruptedPkg, q: &Question{Kind: config.CorruptedPkg}, get: func(q *Question) bool { return q.DeleteAnswer }, want: true},
		{kind: config.ImportKey, q: &Question{Kind: config.ImportKey}, get: func(q *Question) bool { return q.ImportAnswer }, want: true},
	} {
		c.HandleQuestion(test.q)
		assert.Equal(t, test.want, test.get(test.q), "kind %v", test.kind)
	}
}

func TestQuestionAskMaskInvertsAnswer(t *testing.T) {
	c, _, _ := newTestContext(t)
	c.Cfg.AskMask = config.ReplacePkg

	q := &Question{Kind: config.ReplacePkg}
	c.HandleQuestion(q)
	require.False(t, q.ReplaceAnswer, "ReplaceAnswer with AskMask bit set should invert to false")
}

func TestLogQueuesWhileOnProgress(t *testing.T) {
	c, _, stderr := newTestContext(t)
	c.onProgress = true

	c.Log(output.Warning, "first")
	c.Log(output.Warning, "second")
	require.Zero(t, stderr.Len(), "stderr should be empty while on_progress is set")
	require.Len(t, c.queue, 2)

	c.mu.Lock()
	c.flushQueueLocked()
	c.onProgress = false
	c.mu.Unlock()

	out := stderr.String()
	require.Contains(t, out, "first")
	require.Contains(t, out, "second")
	firstIdx := bytes.Index([]byte(out), []byte("first"))
	secondIdx := bytes.Index([]byte(out), []byte("second"))
	require.True(t, firstIdx >= 0 && secondIdx >= 0 && firstIdx < secondIdx, "messages not flushed in FIFO order: %q", out)
}

func TestPackageOperationDoneDisplaysNewOptdepsOnly(t *testing.T) {
	c, stdout, _ := newTestContext(t)
	c.HandleEvent(Event{
		Kind:             PackageOperationDone,
		Operation:        OpUpgrade,
		NewPkgName:       "glibc",
		OldPkgOptdepends: []string{"gd-locale: for locale support"},
		NewPkgOptdepends: []string{"gd-locale: for locale support", "gd-icu: for unicode support"},
	})
	got := stdout.String()
	assert.NotContains(t, got, "gd-locale", "output should not contain a previously-known optdep")
	assert.Contains(t, got, "gd-icu", "output missing newly-gained optdep")
}
