package ops

import (
	"golang.org/x/exp/slices"

	"github.com/distr1/pacgo/internal/args"
	"github.com/distr1/pacgo/internal/output"
	"github.com/distr1/pacgo/internal/transaction"
)

// handleSync drives `-S` and its many subcommands (spec.md §4.9's Sync
// row), grounded on sync.c's sync_cleancache/sync_synctree/sync_search/
// sync_group dispatch, each mutually exclusive the way the original
// switches on config->op_s_*.
func handleSync(env *Env, op *args.Operation) int {
	s := op.Sync

	switch {
	case s.Clean > 0:
		return syncClean(env, s.Clean)
	case s.Search:
		return syncSearch(env, op.Targets)
	case s.Groups:
		return syncGroups(env, op.Targets)
	case s.Info > 0:
		return syncInfo(env, op.Targets, s.Info > 1)
	case s.List:
		return syncList(env, op.Targets)
	}

	if s.Refresh > 0 {
		if err := env.Query.RefreshSyncDatabases(s.Refresh > 1); err != nil {
			env.Out.Print(output.Error, "failed to synchronize databases: %v\n", err)
			return 1
		}
		if !s.Sysupgrade && len(op.Targets) == 0 {
			return 0
		}
	}

	if !s.Sysupgrade && len(op.Targets) == 0 {
		env.Out.Print(output.Error, "no targets specified (use -h for help)\n")
		return 1
	}

	flags := txnFlags(false, false, false, false, false, false,
		s.DownloadOnly, false, op.Global.NoConfirm, s.PrintOnly)
	if env.Ctx != nil {
		env.Ctx.PrintOnly = s.PrintOnly
	}

	return runSyncTransaction(env, flags, op.Targets)
}

// runSyncTransaction drives a sync transaction through to completion,
// handling the sysupgrade self-upgrade sub-flow (spec.md §4.8): when the
// prepared transaction would also upgrade the package manager itself,
// the user is asked whether to upgrade it alone first. Accepting
// releases the original handle, commits a second, self-only transaction
// with no further confirmation, and returns without touching the
// remaining targets — matching pacman's re-exec-after-self-upgrade
// behavior, where a fresh invocation picks up the rest. Declining falls
// through to the normal confirm-and-commit path on the original handle.
func runSyncTransaction(env *Env, flags transaction.Flags, targets []string) (exitCode int) {
	h := env.Handle()
	if err := h.Init(transaction.TypeSync, flags); err != nil {
		env.Out.Print(output.Error, "%v\n", err)
		return 1
	}
	// Release is idempotent: this covers every early-return path below,
	// including the self-upgrade branch's own explicit Release.
	defer func() {
		if err := h.Release(); err != nil && exitCode == 0 {
			env.Out.Print(output.Error, "%v\n", err)
			exitCode = 1
		}
	}()

	if err := h.AddTargets(targets); err != nil {
		env.Out.Print(output.Error, "%v\n", err)
		return 1
	}
	res, err := h.Prepare()
	if err != nil {
		env.Out.Print(output.Error, "%v\n", err)
		return 1
	}

	if res.SelfUpgradeTarget != "" {
		env.Out.Print(output.Info, "%s needs to be upgraded first, which requires a restart after it's installed\n", res.SelfUpgradeTarget)
		yes, err := env.confirmYesNo("Upgrade it alone first?")
		if err != nil {
			env.Out.Print(output.Error, "%v\n", err)
			return 1
		}
		if yes {
			if err := h.Release(); err != nil {
				env.Out.Print(output.Error, "%v\n", err)
				return 1
			}
			self := env.ResetHandle()
			code, err := self.Run(transaction.TypeSync, flags, []string{res.SelfUpgradeTarget}, alwaysCommit)
			if err != nil {
				env.Out.Print(output.Error, "%v\n", err)
			}
			return code
		}
	}

	ok, err := h.DefaultConfirm(res)
	if err != nil {
		env.Out.Print(output.Error, "%v\n", err)
		return 1
	}
	if !ok {
		return 0
	}
	if err := h.Commit(); err != nil {
		env.Out.Print(output.Error, "%v\n", err)
		return 1
	}
	return 0
}

// alwaysCommit is the confirm func passed to the self-upgrade sub-flow's
// own Run: the user already answered the "upgrade it alone first?"
// prompt, so the sub-transaction falls straight through to commit.
func alwaysCommit(*transaction.PrepareResult) (bool, error) { return true, nil }

func syncClean(env *Env, level int) int {
	prompt := "Do you want to remove all cached packages?"
	if level == 1 {
		prompt = "Do you want to remove uninstalled packages from cache?"
	}
	yes, err := env.Out.YesNo(true, prompt)
	if err != nil {
		env.Out.Print(output.Error, "%v\n", err)
		return 1
	}
	if !yes {
		return 0
	}
	if err := env.Query.CleanCache(level); err != nil {
		env.Out.Print(output.Error, "failed to clean cache: %v\n", err)
		return 1
	}
	return 0
}

func syncSearch(env *Env, needles []string) int {
	pkgs, err := env.Query.SyncPackages()
	if err != nil {
		env.Out.Print(output.Error, "%v\n", err)
		return 1
	}
	matched := filterPackages(pkgs, needles)
	for _, p := range matched {
		env.Out.Print(output.Info, "%s/%s %s\n    %s\n", p.Repo, p.Name, p.Version, p.Description)
	}
	if len(matched) == 0 {
		return 1
	}
	return 0
}

func syncGroups(env *Env, names []string) int {
	if len(names) == 0 {
		return 0
	}
	found := false
	for _, name := range names {
		members, ok := env.Query.GroupMembers(name, false)
		if !ok {
			env.Out.Print(output.Error, "group %q was not found\n", name)
			continue
		}
		found = true
		for _, m := range members {
			env.Out.Print(output.Info, "%s %s\n", name, m)
		}
	}
	if !found {
		return 2
	}
	return 0
}

func syncInfo(env *Env, names []string, extended bool) int {
	pkgs, err := env.Query.SyncPackages()
	if err != nil {
		env.Out.Print(output.Error, "%v\n", err)
		return 1
	}
	found := false
	for _, name := range names {
		for _, p := range pkgs {
			if p.Name == name {
				printPackageInfo(env.Out, p, extended)
				found = true
			}
		}
	}
	if !found && len(names) > 0 {
		return 2
	}
	return 0
}

func syncList(env *Env, repos []string) int {
	pkgs, err := env.Query.SyncPackages()
	if err != nil {
		env.Out.Print(output.Error, "%v\n", err)
		return 1
	}
	var filtered []PackageInfo
	for _, p := range pkgs {
		if len(repos) > 0 && !slices.Contains(repos, p.Repo) {
			continue
		}
		filtered = append(filtered, p)
	}
	slices.SortFunc(filtered, func(a, b PackageInfo) int {
		switch {
		case a.Repo != b.Repo:
			if a.Repo < b.Repo {
				return -1
			}
			return 1
		case a.Name < b.Name:
			return -1
		case a.Name > b.Name:
			return 1
		}
		return 0
	})
	for _, p := range filtered {
		env.Out.Print(output.Info, "%s %s %s\n", p.Repo, p.Name, p.Version)
	}
	return 0
}

func filterPackages(pkgs []PackageInfo, needles []string) []PackageInfo {
	if len(needles) == 0 {
		return pkgs
	}
	var out []PackageInfo
	for _, p := range pkgs {
		for _, n := range needles {
			if containsFold(p.Name, n) || containsFold(p.Description, n) {
				out = append(out, p)
				break
			}
		}
	}
	return out
}

func printPackageInfo(out *output.Printer, p PackageInfo, extended bool) {
	out.Print(output.Info, "Name            : %s\n", p.Name)
	out.Print(output.Info, "Version         : %s\n", p.Version)
	if p.Repo != "" {
		out.Print(output.Info, "Repository      : %s\n", p.Repo)
	}
	out.Print(output.Info, "Description     : %s\n", p.Description)
	if p.InstallReason != "" {
		out.Print(output.Info, "Install Reason  : %s\n", p.InstallReason)
	}
	if extended {
		for _, f := range p.RequiredBy {
			out.Print(output.Info, "Required By     : %s\n", f)
		}
	}
	out.Print(output.Info, "\n")
}
