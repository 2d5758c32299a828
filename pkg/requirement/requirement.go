// Package requirement models desired-state package entries and turns the
// heterogeneous ways callers describe them (inline strings, per-name
// entries, conditional VCS records) into one canonical ordered list.
package requirement

import (
	"regexp"
	"strings"

	"github.com/ParisNeo/pipmaster/pkg/errors"
)

// Requirement is a single desired-state entry. Exactly one of two semantics
// applies: a plain index requirement checked against Specifier, or a VCS
// requirement (VCSURL non-empty) checked only against Condition.
type Requirement struct {
	// Name is the bare distribution name. Comparisons use NormalizeName.
	Name string
	// Extras carries an optional extras clause including brackets, e.g.
	// "[socks]".
	Extras string
	// Specifier is a PEP 440 version constraint, empty meaning any version.
	Specifier string
	// IndexURL overrides the package index for this entry only.
	IndexURL string
	// VCSURL is the version-control source to install from when Condition
	// is unmet. Non-empty marks this a VCS-conditional entry.
	VCSURL string
	// Condition is the specifier that, when already satisfied by the
	// installed version, suppresses the VCS install.
	Condition string
}

// IsVCS reports whether this entry installs from a version-control source.
func (r Requirement) IsVCS() bool {
	return r.VCSURL != ""
}

// Source names where this entry installs from.
func (r Requirement) Source() string {
	if r.IsVCS() {
		return "vcs"
	}
	return "index"
}

// InstallTarget returns the string handed to the installer: the VCS URL for
// VCS entries, otherwise name, extras, and specifier joined back together.
func (r Requirement) InstallTarget() string {
	if r.IsVCS() {
		return r.VCSURL
	}
	return r.Name + r.Extras + r.Specifier
}

func (r Requirement) String() string {
	return r.InstallTarget()
}

var (
	namePattern = regexp.MustCompile(`^([A-Za-z0-9][-A-Za-z0-9._]*)\s*(\[[^\]]*\])?`)
	nameSepRuns = regexp.MustCompile(`[-_.]+`)
)

// NormalizeName canonicalizes a distribution name for comparison: lowercase,
// with runs of hyphens, underscores, and dots collapsed to a single hyphen
// (PEP 503 rules).
func NormalizeName(name string) string {
	return strings.ToLower(nameSepRuns.ReplaceAllString(strings.TrimSpace(name), "-"))
}

// SameName reports whether two distribution names refer to the same package
// under normalized comparison.
func SameName(a, b string) bool {
	return NormalizeName(a) == NormalizeName(b)
}

// Parse splits an inline requirement line such as "requests[socks]>=2.0,<3"
// into a plain Requirement. The specifier is carried verbatim; whether it is
// a valid PEP 440 expression is decided at comparison time.
func Parse(line string) (Requirement, error) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return Requirement{}, errors.NewParseError(line, "empty requirement", nil)
	}

	match := namePattern.FindStringSubmatch(trimmed)
	if match == nil {
		return Requirement{}, errors.NewParseError(line, "no package name", nil)
	}

	rest := strings.TrimSpace(trimmed[len(match[0]):])
	if rest != "" && !strings.ContainsRune("=<>!~", rune(rest[0])) {
		return Requirement{}, errors.NewParseError(line, "malformed version specifier", nil)
	}

	return Requirement{
		Name:      match[1],
		Extras:    match[2],
		Specifier: rest,
	}, nil
}
