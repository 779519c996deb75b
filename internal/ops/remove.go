package ops

import (
	"github.com/distr1/pacgo/internal/args"
	"github.com/distr1/pacgo/internal/output"
	"github.com/distr1/pacgo/internal/transaction"
)

// handleRemove drives `-R`: any target naming an installed group is
// expanded to its members with an all-or-individual prompt before the
// targets reach the transaction (remove.c's pre-transaction group-expand
// loop, since the back-end itself can't remove a group directly).
func handleRemove(env *Env, op *args.Operation) int {
	if len(op.Targets) == 0 {
		env.Out.Print(output.Error, "no targets specified (use -h for help)\n")
		return 1
	}

	var final []string
	for _, t := range op.Targets {
		members, ok := env.Query.GroupMembers(t, true)
		if !ok {
			final = append(final, t)
			continue
		}
		env.Out.Colon("group %s:\n", t)
		for _, m := range members {
			env.Out.Print(output.Info, "    %s\n", m)
		}
		all, err := env.Out.YesNo(true, "Remove whole content?")
		if err != nil {
			env.Out.Print(output.Error, "%v\n", err)
			return 1
		}
		for _, m := range members {
			if all {
				final = append(final, m)
				continue
			}
			yes, err := env.Out.YesNo(true, "Remove %s from group %s?", m, t)
			if err != nil {
				env.Out.Print(output.Error, "%v\n", err)
				return 1
			}
			if yes {
				final = append(final, m)
			}
		}
	}

	flags := txnFlags(false, false, op.Remove.Nosave, op.Remove.Cascade,
		op.Remove.Recursive, false, false, false, op.Global.NoConfirm, false)
	h := env.Handle()

	code, err := h.Run(transaction.TypeRemove, flags, final, nil)
	if err != nil {
		env.Out.Print(output.Error, "%v\n", err)
	}
	return code
}
