package ops

import (
	"fmt"

	"github.com/distr1/pacgo/internal/args"
	"github.com/distr1/pacgo/internal/output"
)

// handleFiles drives `-F` (spec.md §4.9's Files row): queries over the
// sync file databases rather than the local package database, grounded
// on files.c's owner/search/list dispatch.
func handleFiles(env *Env, op *args.Operation) int {
	f := op.Files

	if f.Refresh > 0 {
		if err := env.Query.RefreshSyncDatabases(f.Refresh > 1); err != nil {
			env.Out.Print(output.Error, "failed to synchronize file databases: %v\n", err)
			return 1
		}
	}

	entries, err := env.Query.SyncFileEntries()
	if err != nil {
		env.Out.Print(output.Error, "%v\n", err)
		return 1
	}

	switch {
	case f.Owns:
		if len(op.Targets) == 0 {
			env.Out.Print(output.Error, "no targets specified (use -h for help)\n")
			return 1
		}
		path := op.Targets[0]
		for _, e := range entries {
			if e.Path == path {
				printFileEntry(env.Out, e, f.MachineReadable)
				return 0
			}
		}
		env.Out.Print(output.Error, "No package owns %s\n", path)
		return 1
	case f.Search:
		matched := false
		for _, e := range entries {
			for _, n := range op.Targets {
				if containsFold(e.Path, n) {
					printFileEntry(env.Out, e, f.MachineReadable)
					matched = true
					break
				}
			}
		}
		if !matched {
			return 1
		}
		return 0
	case f.List:
		for _, name := range op.Targets {
			for _, e := range entries {
				if e.Name == name {
					printFileEntry(env.Out, e, f.MachineReadable)
				}
			}
		}
		return 0
	}
	return 0
}

func printFileEntry(out *output.Printer, e FileEntry, machine bool) {
	if machine {
		out.Raw(fmt.Sprintf("%s\x00%s\x00%s\x00%s\n", e.Repo, e.Name, e.Version, e.Path))
		return
	}
	out.Print(output.Info, "%s/%s %s\t%s\n", e.Repo, e.Name, e.Version, e.Path)
}
