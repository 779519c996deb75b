package backend

import "github.com/distr1/pacgo/internal/config"

// Question is the payload delivered to the Question callback and written
// back into by the handler, mirroring alpm_question_t's tagged union
// (spec.md §3 QuestionKind / §4.6).
type Question struct {
	Kind config.QuestionKind

	// InstallIgnorePkg
	PkgName        string
	DownloadOnly   bool
	InstallAnswer  bool

	// ReplacePkg
	OldPkgName, NewRepoName, NewPkgName string
	ReplaceAnswer                       bool

	// ConflictPkg
	Package1, Package2, ConflictReason string
	RemoveAnswer                      bool

	// RemovePkgs
	Packages   []string
	SkipAnswer bool

	// SelectProvider
	DepString string
	Providers []string
	SelectedIndex int

	// CorruptedPkg
	FilePath, CorruptReason string
	DeleteAnswer            bool

	// ImportKey
	KeyFingerprint, KeyUID string
	ImportAnswer           bool
}

// applyDefault fills in the documented default answer for q.Kind (spec.md
// §4.6's defaults table).
func (q *Question) applyDefault() {
	switch q.Kind {
	case config.InstallIgnorePkg:
		q.InstallAnswer = q.DownloadOnly || false
	case config.ReplacePkg:
		q.ReplaceAnswer = true
	case config.ConflictPkg:
		q.RemoveAnswer = false
	case config.RemovePkgs:
		q.SkipAnswer = false
	case config.SelectProvider:
		q.SelectedIndex = 0
	case config.CorruptedPkg:
		q.DeleteAnswer = true
	case config.ImportKey:
		q.ImportAnswer = true
	}
}

// invertAnswer flips whichever boolean answer field applies to q.Kind,
// implementing ask_mask's documented "inverse of default" semantics.
// SelectProvider has no boolean answer and is unaffected.
func (q *Question) invertAnswer() {
	switch q.Kind {
	case config.InstallIgnorePkg:
		q.InstallAnswer = !q.InstallAnswer
	case config.ReplacePkg:
		q.ReplaceAnswer = !q.ReplaceAnswer
	case config.ConflictPkg:
		q.RemoveAnswer = !q.RemoveAnswer
	case config.RemovePkgs:
		q.SkipAnswer = !q.SkipAnswer
	case config.CorruptedPkg:
		q.DeleteAnswer = !q.DeleteAnswer
	case config.ImportKey:
		q.ImportAnswer = !q.ImportAnswer
	}
}
