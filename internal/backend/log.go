package backend

import "github.com/distr1/pacgo/internal/output"

// LogEntry is one message queued while on_progress is true (spec.md §3),
// flushed in FIFO order at the next multibar-idle boundary.
type LogEntry struct {
	Level output.Level
	Text  string
}
