package backend

// Backend is the narrow contract this driver needs from the external
// package-management library (spec.md §1's "deliberately out of scope"
// collaborator): registering the five-function capability record and
// comparing two version strings the way the library's own vercmp does
// internally (the deptest operation's --vercmp mode calls it).
// Everything else the back-end does — dependency resolution, archive
// extraction, signature verification, the on-disk database format, the
// network stack — is reached only through internal/transaction.Handle,
// never through this interface.
type Backend interface {
	// SetCallbacks registers cb as the sink for every event, question,
	// progress, log and download notification the back-end emits from
	// here on.
	SetCallbacks(cb Callbacks)

	// CompareVersions returns -1, 0 or 1 the way the back-end's own
	// vercmp does, which may differ in edge cases from internal/vercmp's
	// pure-Go reimplementation.
	CompareVersions(a, b string) int
}
