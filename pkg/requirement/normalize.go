package requirement

import (
	pep440 "github.com/aquasecurity/go-pep440-version"
	"github.com/rs/zerolog"
)

// Item is one element of a desired-package description. Callers build an
// ordered slice of Items; Normalize resolves the shapes into canonical
// Requirements so everything downstream handles a single type.
type Item interface {
	requirementItem()
}

// Line is an inline requirement string, e.g. "requests" or "numpy>=1.26".
type Line string

// Entry is one name-to-constraint element, covering the "any version",
// "specifier string", and "record with index URL" value forms.
type Entry struct {
	Name      string
	Specifier string
	IndexURL  string
}

// VCSEntry is a conditional VCS record: install from VCS only while
// Condition is unmet by the installed version.
type VCSEntry struct {
	Name      string
	VCS       string
	Condition string
}

func (Line) requirementItem()     {}
func (Entry) requirementItem()    {}
func (VCSEntry) requirementItem() {}

// FromStrings wraps plain requirement lines as Items, preserving order.
func FromStrings(lines []string) []Item {
	items := make([]Item, len(lines))
	for i, line := range lines {
		items[i] = Line(line)
	}
	return items
}

// Normalize resolves items into an ordered list of Requirements.
//
// Order is preserved. Duplicate names (normalized comparison) keep the
// earliest position but take the latest content. Malformed items are skipped
// with a warning rather than failing the whole set: reconciliation stays
// best-effort in the face of bad input.
func Normalize(items []Item, log zerolog.Logger) []Requirement {
	out := make([]Requirement, 0, len(items))
	position := make(map[string]int, len(items))

	keep := func(req Requirement) {
		// A malformed specifier would end up inside an install target and
		// poison the whole batch, so reject it here. VCS conditions never
		// reach pip and are handled at reconciliation time instead.
		if req.Specifier != "" {
			if _, err := pep440.NewSpecifiers(req.Specifier); err != nil {
				log.Warn().
					Err(err).
					Str("package", req.Name).
					Str("specifier", req.Specifier).
					Msg("skipping requirement with invalid version specifier")
				return
			}
		}
		key := NormalizeName(req.Name)
		if at, seen := position[key]; seen {
			out[at] = req
			return
		}
		position[key] = len(out)
		out = append(out, req)
	}

	for _, item := range items {
		switch v := item.(type) {
		case Line:
			req, err := Parse(string(v))
			if err != nil {
				log.Warn().Err(err).Str("entry", string(v)).Msg("skipping malformed requirement")
				continue
			}
			keep(req)

		case Entry:
			if v.Name == "" {
				log.Warn().Msg("skipping requirement entry with empty name")
				continue
			}
			keep(Requirement{Name: v.Name, Specifier: v.Specifier, IndexURL: v.IndexURL})

		case VCSEntry:
			if v.Name == "" || v.VCS == "" {
				log.Warn().
					Str("name", v.Name).
					Str("vcs", v.VCS).
					Msg("skipping VCS requirement missing name or url")
				continue
			}
			if err := ValidateVCSURL(v.VCS); err != nil {
				log.Warn().Err(err).Str("name", v.Name).Msg("skipping VCS requirement with invalid url")
				continue
			}
			keep(Requirement{Name: v.Name, VCSURL: v.VCS, Condition: v.Condition})

		default:
			log.Warn().Msg("skipping requirement item of unknown shape")
		}
	}

	return out
}
