package internal

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntriesSortedNewestFirst(t *testing.T) {
	idx, err := LoadProcessedIndex(filepath.Join(t.TempDir(), "index.json"))
	require.NoError(t, err)

	base := time.Unix(1700000000, 0)
	require.NoError(t, idx.Record(ProcessedEntry{BVID: "BV1aa411c7aa", ProcessedAt: base}))
	require.NoError(t, idx.Record(ProcessedEntry{BVID: "BV1cc411c7cc", ProcessedAt: base.Add(2 * time.Hour)}))
	require.NoError(t, idx.Record(ProcessedEntry{BVID: "BV1bb411c7bb", ProcessedAt: base.Add(time.Hour)}))

	app := &App{index: idx}
	entries := app.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, "BV1cc411c7cc", entries[0].BVID)
	assert.Equal(t, "BV1bb411c7bb", entries[1].BVID)
	assert.Equal(t, "BV1aa411c7aa", entries[2].BVID)
}
