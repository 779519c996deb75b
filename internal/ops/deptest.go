package ops

import (
	"strconv"

	"github.com/distr1/pacgo/internal/args"
	"github.com/distr1/pacgo/internal/output"
	"github.com/distr1/pacgo/internal/transaction"
)

// handleDepTest drives `-T` and its `--vercmp` bypass (spec.md §4.9's
// DepTest row), grounded on deptest.c's pacman_deptest: a dummy package
// carrying each target as a `depend=` clause is fed through
// Init/AddTarget/Prepare purely to reuse the back-end's dependency
// checker as a probe, never reaching Commit.
//
// Exit codes mirror the original exactly: 0 all deps satisfied, 126
// deps missing (but not conflicting/unresolvable), 127 conflicts or any
// other Prepare failure.
func handleDepTest(env *Env, op *args.Operation) int {
	if op.DepTest.VerCmp {
		if len(op.Targets) != 2 {
			return 0
		}
		result := env.Backend.CompareVersions(op.Targets[0], op.Targets[1])
		env.Out.Raw(strconv.Itoa(result) + "\n")
		return 0
	}

	if len(op.Targets) == 0 {
		return 0
	}

	eng := env.NewTxn()
	if err := eng.Init(transaction.TypeInstall, 0); err != nil {
		if lockErr, ok := err.(*transaction.HandleLockError); ok {
			env.Out.Print(output.Error, "%v\n", lockErr)
		}
		return 1
	}
	defer eng.Release()

	if err := eng.AddTarget(probeTarget(op.Targets)); err != nil {
		env.Out.Print(output.Error, "could not add target (%v)\n", err)
		return 1
	}

	_, err := eng.Prepare()
	if err == nil {
		return 0
	}
	switch miss := err.(type) {
	case *transaction.UnsatisfiedDepsError:
		for _, m := range miss.Missing {
			env.Out.Raw(m.String() + "\n")
		}
		return 126
	case *transaction.ConflictingDepsError:
		for _, c := range miss.Conflicts {
			env.Out.Raw(c.String() + "\n")
		}
		return 127
	default:
		return 127
	}
}

// probeTarget builds the synthetic "name=dummy|version=1.0-1|depend=..."
// target string deptest.c constructs to exploit alpm_trans_addtarget's
// hidden dependency-only facility.
func probeTarget(deps []string) string {
	s := "name=dummy|version=1.0-1"
	for _, d := range deps {
		s += "|depend=" + d
	}
	return s
}

