package execx

import (
	"strconv"
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

// Display renders argv as a single shell-style line for logs and dry-run
// output. Arguments needing it are quoted POSIX-style. The rendered string
// is never executed; actual invocations always use the argument vector.
func Display(argv []string) string {
	parts := make([]string, len(argv))
	for i, arg := range argv {
		parts[i] = quoteArg(arg)
	}
	return strings.Join(parts, " ")
}

func quoteArg(arg string) string {
	quoted, err := syntax.Quote(arg, syntax.LangPOSIX)
	if err != nil {
		// Arguments with bytes no shell syntax can carry (e.g. NUL) fall
		// back to Go escaping so the log line stays printable.
		return strconv.Quote(arg)
	}
	return quoted
}
