package requirement

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/ParisNeo/pipmaster/pkg/errors"
)

func TestSatisfiesRangeSpecifier(t *testing.T) {
	t.Parallel()

	ok, err := Satisfies("1.2.0", ">=1.0,<2.0")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Satisfies("1.2.0", ">=2.0")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSatisfiesAbsentVersion(t *testing.T) {
	t.Parallel()

	ok, err := Satisfies("", ">=1.0")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSatisfiesEmptySpecifier(t *testing.T) {
	t.Parallel()

	ok, err := Satisfies("1.2.0", "")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Satisfies("1.2.0", "   ")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSatisfiesExactPin(t *testing.T) {
	t.Parallel()

	ok, err := Satisfies("2.31.0", "==2.31.0")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Satisfies("2.30.0", "==2.31.0")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSatisfiesCompatibleRelease(t *testing.T) {
	t.Parallel()

	ok, err := Satisfies("1.4.5", "~=1.4.2")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Satisfies("1.5.0", "~=1.4.2")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSatisfiesExclusion(t *testing.T) {
	t.Parallel()

	ok, err := Satisfies("1.0.0", "!=1.0.0")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSatisfiesMalformedSpecifier(t *testing.T) {
	t.Parallel()

	ok, err := Satisfies("1.0.0", "not a specifier")
	require.Error(t, err)
	assert.False(t, ok)

	var parseErr *pkgerrors.ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, "not a specifier", parseErr.Input)
}

func TestSatisfiesMalformedInstalledVersion(t *testing.T) {
	t.Parallel()

	ok, err := Satisfies("not.a.version!", ">=1.0")
	require.Error(t, err)
	assert.False(t, ok)

	var parseErr *pkgerrors.ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, "not.a.version!", parseErr.Input)
}

func TestSatisfiesSpecifierCheckedBeforeVersion(t *testing.T) {
	t.Parallel()

	// When both sides are malformed the specifier error wins, so callers
	// can tell a broken requirement apart from broken installed metadata.
	_, err := Satisfies("not.a.version!", "also not a specifier")
	require.Error(t, err)

	var parseErr *pkgerrors.ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, "also not a specifier", parseErr.Input)
}
