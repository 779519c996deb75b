package ops

import (
	"golang.org/x/exp/slices"

	"github.com/distr1/pacgo/internal/args"
	"github.com/distr1/pacgo/internal/output"
)

// handleQuery drives `-Q` (spec.md §4.9's Query row), grounded on
// query.c's query_fileowner/query_search/query_group dispatch over the
// local database.
func handleQuery(env *Env, op *args.Operation) int {
	q := op.Query

	switch {
	case q.File != "":
		p, err := env.Query.InspectPackageFile(q.File)
		if err != nil {
			env.Out.Print(output.Error, "%v\n", err)
			return 1
		}
		printPackageInfo(env.Out, p, q.Info > 1)
		return 0
	case q.Owns != "":
		p, err := env.Query.OwnerOfPath(q.Owns)
		if err != nil {
			env.Out.Print(output.Error, "No package owns %s\n", q.Owns)
			return 1
		}
		env.Out.Print(output.Info, "%s is owned by %s %s\n", q.Owns, p.Name, p.Version)
		return 0
	}

	pkgs, err := env.Query.InstalledPackages()
	if err != nil {
		env.Out.Print(output.Error, "%v\n", err)
		return 1
	}

	switch {
	case q.Foreign:
		pkgs = filterForeign(pkgs)
	case q.Orphans:
		pkgs = filterOrphans(pkgs)
	}
	if q.Search {
		pkgs = filterPackages(pkgs, op.Targets)
	} else if len(op.Targets) > 0 {
		pkgs = filterByName(pkgs, op.Targets)
		if len(pkgs) == 0 {
			env.Out.Print(output.Error, "package %q was not found\n", op.Targets[0])
			return 1
		}
	}

	switch {
	case q.Groups:
		for _, p := range pkgs {
			for _, g := range p.Groups {
				env.Out.Print(output.Info, "%s %s\n", g, p.Name)
			}
		}
	case q.Info > 0:
		for _, p := range pkgs {
			printPackageInfo(env.Out, p, q.Info > 1)
		}
	case q.List:
		for _, p := range pkgs {
			files, err := env.Query.FilesOf(p.Name)
			if err != nil {
				env.Out.Print(output.Error, "%v\n", err)
				return 1
			}
			for _, f := range files {
				env.Out.Print(output.Info, "%s %s\n", p.Name, f)
			}
		}
	default:
		for _, p := range pkgs {
			env.Out.Print(output.Info, "%s %s\n", p.Name, p.Version)
		}
	}
	return 0
}

func filterForeign(pkgs []PackageInfo) []PackageInfo {
	var out []PackageInfo
	for _, p := range pkgs {
		if p.Repo == "" {
			out = append(out, p)
		}
	}
	return out
}

func filterOrphans(pkgs []PackageInfo) []PackageInfo {
	var out []PackageInfo
	for _, p := range pkgs {
		if p.InstallReason == "dependency" && len(p.RequiredBy) == 0 {
			out = append(out, p)
		}
	}
	return out
}

func filterByName(pkgs []PackageInfo, names []string) []PackageInfo {
	var out []PackageInfo
	for _, p := range pkgs {
		if slices.Contains(names, p.Name) {
			out = append(out, p)
		}
	}
	return out
}
