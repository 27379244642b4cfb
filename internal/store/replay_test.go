package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/materialscodegraph/materialscodegraph/internal/asset"
)

func TestFileStore_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "ledger.json")

	s1, err := OpenFile(path)
	require.NoError(t, err)

	a, err := asset.New(asset.KindSystem, map[string]any{"label": "si"})
	require.NoError(t, err)
	_, err = s1.Put(ctx, a)
	require.NoError(t, err)
	_, err = s1.Append(ctx, []asset.Edge{testEdge(a.ID, "R1", asset.RelUses)})
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	s2, err := OpenFile(path)
	require.NoError(t, err)
	defer s2.Close()

	got, ok, err := s2.Get(ctx, a.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, a, got)

	edges, err := s2.Query(ctx, EdgeFilter{})
	require.NoError(t, err)
	assert.Len(t, edges, 1)
}

func TestFileStore_NoTempFilesLeftBehind(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := OpenFile(filepath.Join(dir, "ledger.json"))
	require.NoError(t, err)
	defer s.Close()

	for i := 0; i < 5; i++ {
		_, err := s.Append(ctx, []asset.Edge{testEdge("S1", "R1", asset.RelUses)})
		require.NoError(t, err)
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "ledger.json", entries[0].Name())
}

func TestSQLiteStore_ReplayReconstructsGraph(t *testing.T) {
	// Replaying the ledger rows of one store into an empty store must
	// yield the exact same graph.
	ctx := context.Background()

	src, err := OpenSQLite(filepath.Join(t.TempDir(), "src.db"))
	require.NoError(t, err)
	defer src.Close()

	edges := []asset.Edge{
		testEdge("S1", "R1", asset.RelUses),
		testEdge("P1", "R1", asset.RelConfigures),
		testEdge("R1", "Res1", asset.RelProduces),
		testEdge("R1", "A1", asset.RelLogs),
	}
	_, err = src.Append(ctx, edges)
	require.NoError(t, err)

	replayed, err := src.Query(ctx, EdgeFilter{})
	require.NoError(t, err)

	dst, err := OpenSQLite(filepath.Join(t.TempDir(), "dst.db"))
	require.NoError(t, err)
	defer dst.Close()

	// Replay one edge at a time, as a recovery process would.
	for _, e := range replayed {
		_, err := dst.Append(ctx, []asset.Edge{e})
		require.NoError(t, err)
	}

	got, err := dst.Query(ctx, EdgeFilter{})
	require.NoError(t, err)
	assert.Equal(t, edges, got)
}

func TestSQLiteStore_OpenIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")

	for i := 0; i < 3; i++ {
		s, err := OpenSQLite(path)
		require.NoError(t, err, "open iteration %d", i)
		require.NoError(t, s.Close())
	}
}
