package backend

// ProgressEvent is the installation/removal step a Progress callback
// invocation is reporting on, matching alpm_progress_t.
type ProgressEvent int

const (
	ProgressAddStart ProgressEvent = iota
	ProgressUpgradeStart
	ProgressDowngradeStart
	ProgressReinstallStart
	ProgressRemoveStart
	ProgressConflictsStart
	ProgressDiskspaceStart
	ProgressIntegrityStart
	ProgressKeyringStart
	ProgressLoadStart
)

// label returns the opr string cb_progress prints ("installing",
// "checking for file conflicts", ...), or ok=false for an event that
// produces no progress line.
func (e ProgressEvent) label() (string, bool) {
	switch e {
	case ProgressAddStart:
		return "installing", true
	case ProgressUpgradeStart:
		return "upgrading", true
	case ProgressDowngradeStart:
		return "downgrading", true
	case ProgressReinstallStart:
		return "reinstalling", true
	case ProgressRemoveStart:
		return "removing", true
	case ProgressConflictsStart:
		return "checking for file conflicts", true
	case ProgressDiskspaceStart:
		return "checking available disk space", true
	case ProgressIntegrityStart:
		return "checking package integrity", true
	case ProgressKeyringStart:
		return "checking keys in keyring", true
	case ProgressLoadStart:
		return "loading package files", true
	default:
		return "", false
	}
}

// DownloadEventKind distinguishes the three shapes of a Download
// callback invocation (alpm_download_event_type_t).
type DownloadEventKind int

const (
	DownloadInit DownloadEventKind = iota
	DownloadProgress
	DownloadCompleted
)

// DownloadResult mirrors the three outcomes of
// alpm_download_event_completed_t.result (ok, up to date, failed) as
// DownloadOk = 0, DownloadUpToDate = 1, DownloadFailed = 2.
type DownloadResult int

const (
	DownloadOk DownloadResult = iota
	DownloadUpToDate
	DownloadFailed
)

// DownloadEvent is the payload delivered to the Download callback.
type DownloadEvent struct {
	Filename   string
	Kind       DownloadEventKind
	Downloaded int64
	Total      int64
	Result     DownloadResult
}
