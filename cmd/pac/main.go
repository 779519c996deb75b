// Command pac is the front-end driver of a system package manager
// (spec.md §1): it parses arguments, resolves the layered
// configuration, registers the callback protocol with the back-end,
// and dispatches to the operation handler that drives the transaction.
//
// Grounded on the teacher's cmd/distri/distri.go (flag-driven entry
// point, os.Exit(run()) shape) generalized from distri's own
// subcommand table to pacman's operation dispatcher.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/distr1/pacgo"
	"github.com/distr1/pacgo/internal/args"
	"github.com/distr1/pacgo/internal/backend"
	"github.com/distr1/pacgo/internal/config"
	"github.com/distr1/pacgo/internal/multibar"
	"github.com/distr1/pacgo/internal/ops"
	"github.com/distr1/pacgo/internal/output"
	"github.com/distr1/pacgo/internal/signals"
	"github.com/distr1/pacgo/internal/term"
	"github.com/distr1/pacgo/internal/transaction"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(argv []string) int {
	op, err := args.Parse(argv)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 2
	}

	cfg := config.Default()
	if op.Global.ConfigPath != "" {
		if err := config.Load(op.Global.ConfigPath, cfg, nil); err != nil && !errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return 1
		}
	}
	applyGlobalOverrides(cfg, op.Global)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 2
	}

	color := term.IsTerminal() && cfg.ColorMode != "never"
	if cfg.ColorMode == "always" {
		color = true
	}
	out := output.New(os.Stdout, os.Stderr, cfg.VerboseLevel, color, cfg.NoConfirm || op.Global.NoConfirm)
	mb := multibar.New(os.Stderr, true, cfg.NoProgressBar || op.Global.NoProgressBar, cfg.Chomp, color)
	ctx := backend.NewContext(out, mb, cfg)
	ctx.IsSyncOperation = op.Kind == args.KindSync
	ctx.IsFilesOperation = op.Kind == args.KindFiles

	be := &unconfiguredBackend{}
	be.SetCallbacks(ctx.Callbacks())
	pacgo.RegisterAtExit(be.Release)
	defer func() {
		if err := pacgo.RunAtExit(); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
	}()

	sig := signals.New(os.Stderr)
	sig.RegisterCleanup(func() { be.Release() })

	env := &ops.Env{
		Cfg:     cfg,
		Out:     out,
		Ctx:     ctx,
		Backend: be,
		Query:   be,
		NewTxn: func() transaction.Engine {
			return be
		},
		SetCommitState: sig.SetCommitState,
	}

	return dispatchWithCommitTracking(sig, env, op)
}

// dispatchWithCommitTracking ensures the signal handler's CommitState is
// cleared once the dispatch returns. Registration itself happens
// automatically: Env.SetCommitState fires from Env.newHandle every time
// a Handle is built, including the sysupgrade self-upgrade sub-flow's
// second Handle, so SIGINT/SIGHUP always defers to whichever transaction
// is actually in flight (spec.md §5).
func dispatchWithCommitTracking(sig *signals.Handler, env *ops.Env, op *args.Operation) int {
	switch op.Kind {
	case args.KindInstall, args.KindUpgrade, args.KindRemove, args.KindSync:
		defer sig.SetCommitState(nil)
	}
	return ops.Dispatch(env, op)
}

func applyGlobalOverrides(cfg *config.Config, g args.Global) {
	o := config.CLIOverrides{
		IgnorePkg: g.IgnorePkg,
		HoldPkg:   g.HoldPkg,
		CacheDirs: g.CacheDirs,
	}
	if g.RootDir != "" {
		o.RootDir = &g.RootDir
	}
	if g.DBPath != "" {
		o.DBPath = &g.DBPath
	}
	if g.LogFile != "" {
		o.LogFile = &g.LogFile
	}
	if g.GPGDir != "" {
		o.GPGDir = &g.GPGDir
	}
	if g.Architecture != "" {
		o.Architecture = &g.Architecture
	}
	if g.NoConfirm {
		v := true
		o.NoConfirm = &v
	}
	if g.NoProgressBar {
		v := true
		o.NoProgressBar = &v
	}
	if g.Color != "" {
		o.Color = &g.Color
	}
	if g.Verbose > 0 {
		o.VerboseLevel = &g.Verbose
	}
	o.Apply(cfg)
}
