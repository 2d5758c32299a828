package execx

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDisplayLeavesPlainArgsAlone(t *testing.T) {
	t.Parallel()

	line := Display([]string{"python", "-m", "pip", "install", "requests"})
	assert.Equal(t, "python -m pip install requests", line)
}

func TestDisplayQuotesSpecifiers(t *testing.T) {
	t.Parallel()

	line := Display([]string{"python", "-m", "pip", "install", "requests>=2.0"})
	assert.Equal(t, "python -m pip install 'requests>=2.0'", line)
}

func TestDisplayQuotesWhitespace(t *testing.T) {
	t.Parallel()

	line := Display([]string{"pip", "install", "-r", "my requirements.txt"})
	assert.Equal(t, "pip install -r 'my requirements.txt'", line)
}

func TestDisplayQuotesEmptyArg(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "run ''", Display([]string{"run", ""}))
}

func TestDisplayFallsBackOnUnquotableBytes(t *testing.T) {
	t.Parallel()

	raw := "a\x00b"
	assert.Equal(t, strconv.Quote(raw), Display([]string{raw}))
}
