package ops

import (
	"github.com/distr1/pacgo/internal/args"
	"github.com/distr1/pacgo/internal/output"
	"github.com/distr1/pacgo/internal/transaction"
)

// handleDatabase drives `-D` (spec.md §4.9's Database row): sets the
// install reason on already-installed targets, wrapped in a lock
// acquisition (database.c's pacman_database: trans_init/set_reason/
// trans_release with no addtarget/prepare/commit phases at all, since
// this mutates package metadata directly rather than the file set).
func handleDatabase(env *Env, op *args.Operation) int {
	if len(op.Targets) == 0 {
		env.Out.Print(output.Error, "no targets specified (use -h for help)\n")
		return 1
	}
	if op.Database.AsDeps == op.Database.AsExplicit {
		env.Out.Print(output.Error, "no install reason specified (use -h for help)\n")
		return 1
	}

	eng := env.NewTxn()
	if err := eng.Init(transaction.TypeInstall, 0); err != nil {
		env.Out.Print(output.Error, "%v\n", err)
		return 1
	}
	defer eng.Release()

	retval := 0
	for _, target := range op.Targets {
		if err := env.Query.SetInstallReason(target, op.Database.AsExplicit); err != nil {
			env.Out.Print(output.Error, "could not set install reason for package %s (%v)\n", target, err)
			retval = 1
			continue
		}
		if op.Database.AsExplicit {
			env.Out.Print(output.Info, "%s: install reason has been set to 'explicitly installed'\n", target)
		} else {
			env.Out.Print(output.Info, "%s: install reason has been set to 'installed as dependency'\n", target)
		}
	}
	return retval
}
