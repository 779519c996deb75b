package backend

import "github.com/distr1/pacgo/internal/vercmp"

// ScriptedBackend is a test double satisfying Backend, letting tests
// drive the driver without a real package-management library underneath
// (spec.md §9: "model as ... a trait/interface ... so tests can
// substitute a scripted back-end"). It records the callbacks it was
// given so a test can invoke them directly to simulate back-end
// notifications.
type ScriptedBackend struct {
	Callbacks Callbacks
}

func (s *ScriptedBackend) SetCallbacks(cb Callbacks) {
	s.Callbacks = cb
}

// CompareVersions delegates to internal/vercmp, adequate for tests that
// do not need to exercise a real back-end's comparator quirks.
func (s *ScriptedBackend) CompareVersions(a, b string) int {
	return vercmp.Compare(a, b)
}

var _ Backend = (*ScriptedBackend)(nil)
