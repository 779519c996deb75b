// Package config implements the hierarchical configuration resolver's
// typed model (spec.md C4): Config, Repository, the directive table, and
// CLI-vs-file merge semantics. Grounded on
// original_source/src/pacman/conf.c's directive switch, adapted to the
// streaming internal/ini callback protocol instead of conf.c's own
// hand-rolled line parser.
package config

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/net/idna"

	"github.com/distr1/pacgo"
	"github.com/distr1/pacgo/internal/ini"
)

// QuestionKind enumerates the closed set of interactive question kinds
// that may be pre-answered via AskMask (spec.md §3).
type QuestionKind uint

const (
	InstallIgnorePkg QuestionKind = 1 << iota
	ReplacePkg
	ConflictPkg
	RemovePkgs
	SelectProvider
	CorruptedPkg
	ImportKey
)

// CleanMethod selects the cache-clean strategy for `-Sc`/`-Scc`.
type CleanMethod int

const (
	CleanKeepInstalled CleanMethod = iota
	CleanKeepCurrent
)

// Repository is one configured package source (spec.md §3).
type Repository struct {
	Name     string
	Servers  []string
	SigLevel []string
	Usage    uint
}

// Usage bits for a Repository, matching pacman's "Usage = Sync Install
// Search Upgrade All".
const (
	UsageSync uint = 1 << iota
	UsageSearch
	UsageInstall
	UsageUpgrade
)

const UsageAll = UsageSync | UsageSearch | UsageInstall | UsageUpgrade

// Config is the process-wide, read-only-after-construction configuration
// (spec.md §3).
type Config struct {
	RootDir                string
	DBPath                 string
	CacheDirs              []string
	LogFile                string
	GPGDir                 string
	HookDirs               []string
	Architecture           string
	XferCommand            string
	CleanMethod            CleanMethod
	UseSyslog              bool
	ColorMode              string // "auto", "always", "never"
	NoProgressBar          bool
	Chomp                  bool
	VerboseLevel           int
	DisableDownloadTimeout bool
	ParallelDownloads      int
	NoConfirm              bool
	AskMask                QuestionKind
	CheckSpace             bool
	VerbosePkgLists        bool

	SigLevel           []string
	LocalFileSigLevel  []string
	RemoteFileSigLevel []string
	HoldPkg            []string
	IgnorePkg          []string
	IgnoreGroup        []string
	NoUpgrade          []string
	NoExtract          []string

	Repos []Repository

	sawOptions bool
}

// Default returns a Config with pacman's documented defaults.
func Default() *Config {
	return &Config{
		RootDir:           "/",
		DBPath:            "/var/lib/pacgo/",
		GPGDir:            "/etc/pacgo.d/gnupg/",
		CacheDirs:         []string{"/var/cache/pacgo/pkg/"},
		Architecture:      "auto",
		ColorMode:         "never",
		ParallelDownloads: 1,
		CleanMethod:       CleanKeepInstalled,
	}
}

// reservedRepoName is the one repository name rejected outright (spec.md
// §3, §4.4).
const reservedRepoName = "local"

// Load parses path (and any globbed Include chain) into a Config,
// applying directives in file order. A fresh Config (Default()) should
// normally be passed in so CLI overrides already applied survive.
func Load(path string, cfg *Config, debug ini.DebugLogger) error {
	if cfg == nil {
		cfg = Default()
	}
	var cur *Repository
	var err error

	cb := func(file string, lineno int, section, key, value string, hasSection, hasKey, hasValue bool) int {
		if hasSection && !hasKey {
			// New section header.
			if section == reservedRepoName {
				err = fmt.Errorf("%s:%d: %q is reserved and cannot be used as a repository name", file, lineno, section)
				return 1
			}
			if section == "options" {
				if cfg.sawOptions {
					err = fmt.Errorf("%s:%d: duplicate [options] section", file, lineno)
					return 1
				}
				cfg.sawOptions = true
				cur = nil
				return 0
			}
			for i := range cfg.Repos {
				if cfg.Repos[i].Name == section {
					cur = &cfg.Repos[i]
					return 0
				}
			}
			cfg.Repos = append(cfg.Repos, Repository{Name: section})
			cur = &cfg.Repos[len(cfg.Repos)-1]
			return 0
		}
		if !hasKey {
			// End-of-root sentinel; nothing to do.
			return 0
		}
		if cur == nil {
			if e := applyOptionDirective(cfg, key, value, hasValue); e != nil {
				err = fmt.Errorf("%s:%d: %w", file, lineno, e)
				return 1
			}
			return 0
		}
		if e := applyRepoDirective(cur, key, value, hasValue); e != nil {
			err = fmt.Errorf("%s:%d: %w", file, lineno, e)
			return 1
		}
		return 0
	}

	if parseErr := ini.Parse(path, cb, debug); parseErr != nil {
		return parseErr
	}
	return err
}

func applyOptionDirective(cfg *Config, key, value string, hasValue bool) error {
	switch key {
	case "RootDir":
		cfg.RootDir = ensureTrailingSlash(value)
	case "DBPath":
		cfg.DBPath = ensureTrailingSlash(value)
	case "CacheDir":
		cfg.CacheDirs = append(cfg.CacheDirs, value)
	case "LogFile":
		cfg.LogFile = value
	case "GPGDir":
		cfg.GPGDir = ensureTrailingSlash(value)
	case "HookDir":
		cfg.HookDirs = append(cfg.HookDirs, value)
	case "Architecture":
		cfg.Architecture = value
	case "XferCommand":
		if !strings.Contains(value, "%u") || !strings.Contains(value, "%o") {
			return fmt.Errorf("XferCommand must contain both %%u and %%o")
		}
		cfg.XferCommand = value
	case "UseSyslog":
		cfg.UseSyslog = true
	case "Color":
		cfg.ColorMode = "always"
	case "NoProgressBar":
		cfg.NoProgressBar = true
	case "CheckSpace":
		cfg.CheckSpace = true
	case "ILoveCandy":
		cfg.Chomp = true
	case "VerbosePkgLists":
		cfg.VerbosePkgLists = true
	case "DisableDownloadTimeout":
		cfg.DisableDownloadTimeout = true
	case "ParallelDownloads":
		n, err := strconv.Atoi(value)
		if err != nil || n < 1 {
			return fmt.Errorf("ParallelDownloads must be a positive integer, got %q", value)
		}
		cfg.ParallelDownloads = n
	case "SigLevel":
		cfg.SigLevel = fields(value)
	case "LocalFileSigLevel":
		cfg.LocalFileSigLevel = fields(value)
	case "RemoteFileSigLevel":
		cfg.RemoteFileSigLevel = fields(value)
	case "HoldPkg":
		cfg.HoldPkg = append(cfg.HoldPkg, fields(value)...)
	case "IgnorePkg":
		cfg.IgnorePkg = append(cfg.IgnorePkg, fields(value)...)
	case "IgnoreGroup":
		cfg.IgnoreGroup = append(cfg.IgnoreGroup, fields(value)...)
	case "NoUpgrade":
		cfg.NoUpgrade = append(cfg.NoUpgrade, fields(value)...)
	case "NoExtract":
		cfg.NoExtract = append(cfg.NoExtract, fields(value)...)
	case "CleanMethod":
		switch value {
		case "KeepInstalled":
			cfg.CleanMethod = CleanKeepInstalled
		case "KeepCurrent":
			cfg.CleanMethod = CleanKeepCurrent
		default:
			return fmt.Errorf("unknown CleanMethod %q", value)
		}
	case "Server":
		return fmt.Errorf("Server directive is not valid in the [options] section")
	default:
		// Unknown directives are ignored at low verbosity, matching
		// pacman's tolerant behavior for forward-compatible configs; a
		// stricter caller can wrap Load to reject these.
	}
	return nil
}

func applyRepoDirective(repo *Repository, key, value string, hasValue bool) error {
	switch key {
	case "Server":
		norm, err := normalizeServerURL(value)
		if err != nil {
			return err
		}
		repo.Servers = append(repo.Servers, norm)
	case "SigLevel":
		repo.SigLevel = fields(value)
	case "Usage":
		u, err := parseUsage(value)
		if err != nil {
			return err
		}
		repo.Usage = u
	default:
	}
	return nil
}

func parseUsage(value string) (uint, error) {
	var u uint
	for _, tok := range fields(value) {
		switch tok {
		case "Sync":
			u |= UsageSync
		case "Search":
			u |= UsageSearch
		case "Install":
			u |= UsageInstall
		case "Upgrade":
			u |= UsageUpgrade
		case "All":
			u |= UsageAll
		default:
			return 0, fmt.Errorf("unknown Usage token %q", tok)
		}
	}
	return u, nil
}

func fields(value string) []string {
	return strings.Fields(value)
}

func ensureTrailingSlash(p string) string {
	if p == "" || strings.HasSuffix(p, "/") {
		return p
	}
	return p + "/"
}

// normalizeServerURL applies IDNA normalization to the host component of a
// Server = url directive so internationalized mirror hostnames compare
// and resolve consistently.
func normalizeServerURL(raw string) (string, error) {
	schemeIdx := strings.Index(raw, "://")
	if schemeIdx < 0 {
		return raw, nil // no scheme, e.g. a plain path
	}
	rest := raw[schemeIdx+3:]
	hostEnd := strings.IndexAny(rest, "/:")
	host := rest
	tail := ""
	if hostEnd >= 0 {
		host = rest[:hostEnd]
		tail = rest[hostEnd:]
	}
	ascii, err := idna.Lookup.ToASCII(host)
	if err != nil {
		// Not every mirror host is a valid IDNA label (e.g. plain IPs);
		// fall back to the original string rather than rejecting it.
		return raw, nil
	}
	return raw[:schemeIdx+3] + ascii + tail, nil
}

// CLIOverrides carries the CLI-side values that Apply merges with
// CLI-vs-file override semantics (spec.md §4.4):
// scalar/path/boolean fields from the CLI replace the file value when
// set; collection directives (CacheDir, HoldPkg, IgnorePkg, ...) are
// CLI-replaces-file, not merged, when the CLI supplies any values at all.
type CLIOverrides struct {
	RootDir       *string
	DBPath        *string
	CacheDirs     []string
	LogFile       *string
	GPGDir        *string
	Architecture  *string
	NoConfirm     *bool
	NoProgressBar *bool
	Color         *string
	Debug         *bool
	VerboseLevel  *int
	IgnorePkg     []string
	HoldPkg       []string
}

func (o CLIOverrides) Apply(cfg *Config) {
	if o.RootDir != nil {
		cfg.RootDir = ensureTrailingSlash(*o.RootDir)
	}
	if o.DBPath != nil {
		cfg.DBPath = ensureTrailingSlash(*o.DBPath)
	}
	if len(o.CacheDirs) > 0 {
		cfg.CacheDirs = append([]string(nil), o.CacheDirs...)
	}
	if o.LogFile != nil {
		cfg.LogFile = *o.LogFile
	}
	if o.GPGDir != nil {
		cfg.GPGDir = ensureTrailingSlash(*o.GPGDir)
	}
	if o.Architecture != nil {
		cfg.Architecture = *o.Architecture
	}
	if o.NoConfirm != nil {
		cfg.NoConfirm = *o.NoConfirm
	}
	if o.NoProgressBar != nil {
		cfg.NoProgressBar = *o.NoProgressBar
	}
	if o.Color != nil {
		cfg.ColorMode = *o.Color
	}
	if o.VerboseLevel != nil {
		cfg.VerboseLevel = *o.VerboseLevel
	}
	if len(o.IgnorePkg) > 0 {
		cfg.IgnorePkg = append([]string(nil), o.IgnorePkg...)
	}
	if len(o.HoldPkg) > 0 {
		cfg.HoldPkg = append([]string(nil), o.HoldPkg...)
	}
}

// Validate checks the invariants of spec.md §3: root_dir ends with a
// separator, parallel_downloads >= 1, at most one [options] section (that
// invariant is enforced during Load itself), every repo section yields a
// repository with a unique, non-reserved name.
func (c *Config) Validate() error {
	if !strings.HasSuffix(c.RootDir, "/") {
		return fmt.Errorf("root_dir %q must end with a separator", c.RootDir)
	}
	if c.ParallelDownloads < 1 {
		return fmt.Errorf("parallel_downloads must be >= 1, got %d", c.ParallelDownloads)
	}
	if c.Architecture != "auto" && !pacgo.Architectures[c.Architecture] {
		return fmt.Errorf("architecture %q is not a recognized CPU architecture", c.Architecture)
	}
	seen := map[string]bool{}
	for _, r := range c.Repos {
		if r.Name == reservedRepoName {
			return fmt.Errorf("repository name %q is reserved", r.Name)
		}
		if seen[r.Name] {
			return fmt.Errorf("duplicate repository name %q", r.Name)
		}
		seen[r.Name] = true
	}
	return nil
}

// AskDefault returns the documented default answer for kind (spec.md
// §4.6), then applies the AskMask inversion.
func (c *Config) AskDefault(kind QuestionKind) bool {
	def := defaultAnswer(kind)
	if c.AskMask&kind != 0 {
		return !def
	}
	return def
}

func defaultAnswer(kind QuestionKind) bool {
	switch kind {
	case InstallIgnorePkg:
		return false
	case ReplacePkg:
		return true
	case ConflictPkg:
		return false
	case RemovePkgs:
		return false
	case CorruptedPkg:
		return true
	case ImportKey:
		return true
	default:
		return false
	}
}
