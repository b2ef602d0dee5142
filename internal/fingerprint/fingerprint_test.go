package fingerprint_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakepage91/page-watcher/internal/fingerprint"
	"github.com/jakepage91/page-watcher/internal/hash/sha256"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

func newEngine(caseFold bool) *fingerprint.Engine {
	return fingerprint.New(sha256.New(), fixedClock{t: time.Unix(1700000000, 0).UTC()}, caseFold)
}

func TestComputeDeterministic(t *testing.T) {
	t.Parallel()

	e := newEngine(false)
	first, err := e.Compute("visa slots open", nil)
	require.NoError(t, err)
	second, err := e.Compute("visa slots open", nil)
	require.NoError(t, err)
	assert.Equal(t, first.ContentHash, second.ContentHash)
	assert.Len(t, first.ContentHash, 64)
}

func TestComputeCaseSensitiveByDefault(t *testing.T) {
	t.Parallel()

	e := newEngine(false)
	lower, err := e.Compute("open", nil)
	require.NoError(t, err)
	upper, err := e.Compute("OPEN", nil)
	require.NoError(t, err)
	assert.NotEqual(t, lower.ContentHash, upper.ContentHash)
}

func TestComputeCaseFoldKnob(t *testing.T) {
	t.Parallel()

	e := newEngine(true)
	lower, err := e.Compute("open", nil)
	require.NoError(t, err)
	upper, err := e.Compute("OPEN", nil)
	require.NoError(t, err)
	assert.Equal(t, lower.ContentHash, upper.ContentHash)
}

func TestComputeKeywordHits(t *testing.T) {
	t.Parallel()

	e := newEngine(false)
	fp, err := e.Compute("Visa appointments OPEN for registration", []string{"VISA", "closed", " open ", "visa"})
	require.NoError(t, err)
	assert.Equal(t, []string{"open", "visa"}, fp.KeywordHits, "lower-cased, deduplicated, sorted")
}

func TestComputeNoKeywords(t *testing.T) {
	t.Parallel()

	e := newEngine(false)
	fp, err := e.Compute("anything", nil)
	require.NoError(t, err)
	assert.Empty(t, fp.KeywordHits)
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), fp.CapturedAt)
}
