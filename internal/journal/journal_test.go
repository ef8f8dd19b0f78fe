package journal

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenMissingFile(t *testing.T) {
	j, err := Open(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, j.Recent(10))
}

func TestRecordAndRecentNewestFirst(t *testing.T) {
	dir := t.TempDir()
	j, err := Open(dir)
	require.NoError(t, err)

	require.NoError(t, j.Record("libera", "registered as bridgebot"))
	require.NoError(t, j.Record("libera", "connection closed"))

	recent := j.Recent(10)
	require.Len(t, recent, 2)
	assert.Contains(t, recent[0], "connection closed")
	assert.Contains(t, recent[1], "registered as bridgebot")
	assert.Contains(t, recent[0], "[libera]")
}

func TestRoundTripThroughDisk(t *testing.T) {
	dir := t.TempDir()

	j, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, j.Record("oftc", "probe ok"))
	require.NoError(t, j.Record("oftc", "stopped"))

	reopened, err := Open(dir)
	require.NoError(t, err)

	assert.Equal(t, j.Recent(10), reopened.Recent(10))
}

func TestRecordCapsEntries(t *testing.T) {
	dir := t.TempDir()
	j, err := Open(dir)
	require.NoError(t, err)

	for i := 0; i < maxEntries+25; i++ {
		require.NoError(t, j.Record("default", fmt.Sprintf("event %d", i)))
	}

	all := j.Recent(maxEntries + 100)
	assert.Len(t, all, maxEntries)
	// Newest entry kept, oldest dropped.
	assert.True(t, strings.HasSuffix(all[0], fmt.Sprintf("event %d", maxEntries+24)))
	for _, e := range all {
		assert.False(t, strings.HasSuffix(e, "event 0"))
	}
}
