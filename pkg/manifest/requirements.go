package manifest

import (
	"bufio"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ParisNeo/pipmaster/pkg/errors"
	"github.com/ParisNeo/pipmaster/pkg/requirement"
)

// ParseRequirementsFile reads a pip requirements file into reconciliation
// input, preserving line order. Blank lines and comments are dropped. Pip
// option lines (-r, --index-url and friends) are skipped with a log entry:
// they configure pip's own resolution and have no reconciliation meaning.
func ParseRequirementsFile(path string, log zerolog.Logger) ([]requirement.Item, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.NewEnvironmentError(path, "cannot read requirements file", err)
	}
	defer f.Close()

	var items []requirement.Item
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := stripComment(scanner.Text())
		if line == "" {
			continue
		}
		if line[0] == '-' {
			log.Debug().Str("line", line).Str("file", path).Msg("skipping pip option line")
			continue
		}
		items = append(items, requirement.Line(line))
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.NewParseError(path, "cannot read requirements file", err)
	}
	return items, nil
}

// stripComment trims whitespace and removes trailing comments. A comment
// starts with # at the beginning of the line or after whitespace.
func stripComment(line string) string {
	line = strings.TrimSpace(line)
	if line == "" || line[0] == '#' {
		return ""
	}
	for i := 1; i < len(line); i++ {
		if line[i] == '#' && (line[i-1] == ' ' || line[i-1] == '\t') {
			return strings.TrimSpace(line[:i])
		}
	}
	return line
}
