package requirement

import (
	"fmt"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/transport"

	"github.com/ParisNeo/pipmaster/pkg/errors"
)

// Schemes accepted for VCS install URLs. The git+ prefixes are pip's
// direct-reference syntax; the rest are what git itself speaks.
var vcsSchemes = map[string]bool{
	"git":       true,
	"git+http":  true,
	"git+https": true,
	"git+ssh":   true,
	"git+file":  true,
	"http":      true,
	"https":     true,
	"ssh":       true,
	"file":      true,
}

// ValidateVCSURL checks that a VCS source URL is well formed enough to hand
// to the installer: an allowed scheme followed by an endpoint go-git can
// parse. Revision suffixes (@ref) and egg fragments (#egg=name) pass
// through.
func ValidateVCSURL(raw string) error {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return errors.NewParseError(raw, "empty VCS URL", nil)
	}

	scheme, _, found := strings.Cut(trimmed, "://")
	if !found {
		return errors.NewParseError(raw, "missing URL scheme", nil)
	}
	if !vcsSchemes[strings.ToLower(scheme)] {
		return errors.NewParseError(raw, fmt.Sprintf("unsupported VCS scheme %q", scheme), nil)
	}

	// pip's git+ prefix is not a real transport scheme; strip it before
	// endpoint parsing.
	candidate := strings.TrimPrefix(trimmed, "git+")
	if _, err := transport.NewEndpoint(candidate); err != nil {
		return errors.NewParseError(raw, "invalid VCS URL", err)
	}
	return nil
}
