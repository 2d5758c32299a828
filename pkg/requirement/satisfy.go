package requirement

import (
	"strings"

	pep440 "github.com/aquasecurity/go-pep440-version"

	"github.com/ParisNeo/pipmaster/pkg/errors"
)

// Satisfies reports whether installed meets the specifier set. An empty
// specifier is no constraint. An empty installed version satisfies nothing.
// Parse failures come back as errors so callers can log them and treat the
// requirement as unmet instead of aborting.
func Satisfies(installed, specifier string) (bool, error) {
	specifier = strings.TrimSpace(specifier)
	if specifier == "" {
		return true, nil
	}

	spec, err := pep440.NewSpecifiers(specifier)
	if err != nil {
		return false, errors.NewParseError(specifier, "invalid version specifier", err)
	}

	installed = strings.TrimSpace(installed)
	if installed == "" {
		return false, nil
	}

	version, err := pep440.Parse(installed)
	if err != nil {
		return false, errors.NewParseError(installed, "invalid installed version", err)
	}

	return spec.Check(version), nil
}
