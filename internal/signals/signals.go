// Package signals installs the process-wide signal policy of spec.md §5/§9:
// SIGINT/SIGHUP during a transaction commit are deferred to the back-end
// (which reports whether it is still committing atomically), SIGWINCH
// invalidates the cached terminal width, and SIGSEGV prints a fixed
// diagnostic and exits with the signal number itself. Grounded on the teacher's
// internal/oninterrupt (goroutine-plus-channel signal loop, 128+signum exit
// convention) and context.go's InterruptibleContext, generalized from a
// single SIGINT/SIGTERM cancel to the full signal table pacman's
// sighandler.c installs.
package signals

import (
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/distr1/pacgo/internal/term"
)

// CommitState is queried by the SIGINT/SIGHUP handler to decide whether a
// transaction commit is in flight and, if so, whether the back-end reports
// still being mid-commit (in which case the signal is a no-op: the back-end
// finishes atomically and the driver returns control on its own).
type CommitState interface {
	// StillCommitting reports whether a destructive commit is underway that
	// must not be interrupted. Called from the signal handler goroutine.
	StillCommitting() bool
}

// Handler owns the installed signal disposition for one process run.
type Handler struct {
	mu      sync.Mutex
	state   CommitState
	cleanup []func()
	stderr  *os.File
}

// New installs the signal handler goroutine and returns a Handler. stderr
// receives the SIGSEGV diagnostic; main passes os.Stderr.
func New(stderr *os.File) *Handler {
	h := &Handler{stderr: stderr}
	h.install()
	return h
}

// SetCommitState registers the transaction driver's commit-state query,
// replacing any previously registered one. Call this once Prepare succeeds
// and the commit phase is about to begin, and clear it (nil) once Commit
// returns.
func (h *Handler) SetCommitState(s CommitState) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.state = s
}

// RegisterCleanup adds a function run before the process exits in response
// to a terminating signal, e.g. releasing the back-end database lock.
func (h *Handler) RegisterCleanup(f func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cleanup = append(h.cleanup, f)
}

func (h *Handler) install() {
	terminating := make(chan os.Signal, 1)
	signal.Notify(terminating, os.Interrupt, syscall.SIGHUP)

	winch := make(chan os.Signal, 1)
	signal.Notify(winch, unix.SIGWINCH)

	segv := make(chan os.Signal, 1)
	signal.Notify(segv, syscall.SIGSEGV)

	go func() {
		for {
			select {
			case sig := <-terminating:
				h.handleTerminating(sig)
			case <-winch:
				term.ResetCache()
			case sig := <-segv:
				h.handleSegv(sig)
			}
		}
	}()
}

func (h *Handler) handleTerminating(sig os.Signal) {
	h.mu.Lock()
	state := h.state
	h.mu.Unlock()

	if state != nil && state.StillCommitting() {
		// The back-end owns the atomic operation; let it finish and the
		// commit phase will return normally.
		return
	}
	h.runCleanupAndExit(128 + signum(sig))
}

func (h *Handler) handleSegv(sig os.Signal) {
	fmt.Fprintln(h.stderr, "error: pacgo has crashed (segmentation fault)")
	h.runCleanupAndExit(signum(sig))
}

func (h *Handler) runCleanupAndExit(code int) {
	h.mu.Lock()
	fns := append([]func(){}, h.cleanup...)
	h.mu.Unlock()
	for _, f := range fns {
		f()
	}
	os.Exit(code)
}

func signum(sig os.Signal) int {
	if s, ok := sig.(syscall.Signal); ok {
		return int(s)
	}
	return 0
}
