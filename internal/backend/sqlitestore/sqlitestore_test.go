package sqlitestore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/spraylog/internal/backend"
	"github.com/JonMunkholm/spraylog/internal/record"
)

func openTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "spraylog.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, path
}

func TestStore_CreateListNewestFirst(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()

	a, err := s.Create(ctx, record.Candidate{Date: "2024-05-01", Field: "North-3", Product: "Glyphosate", Dose: 2.5})
	require.NoError(t, err)
	b, err := s.Create(ctx, record.Candidate{Date: "2024-04-01", Field: "South-1", Product: "Copper", Dose: 3, Notes: "nat"})
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)

	list, err := s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []record.Record{b, a}, list, "insertion order, not date order")
}

func TestStore_DeleteKeepsOrder(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()

	var created []record.Record
	for _, f := range []string{"A", "B", "C"} {
		r, err := s.Create(ctx, record.Candidate{Date: "2024-05-01", Field: f, Product: "P", Dose: 1})
		require.NoError(t, err)
		created = append(created, r)
	}

	require.NoError(t, s.Delete(ctx, created[1].ID))
	assert.ErrorIs(t, s.Delete(ctx, created[1].ID), backend.ErrNotFound)

	list, err := s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []record.Record{created[2], created[0]}, list)
}

func TestStore_DeleteAllAndReopen(t *testing.T) {
	s, path := openTestStore(t)
	ctx := context.Background()

	_, err := s.Create(ctx, record.Candidate{Date: "2024-05-01", Field: "A", Product: "P", Dose: 1})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	list, err := reopened.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, reopened.DeleteAll(ctx))
	list, err = reopened.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestStore_RejectsNonPositiveDose(t *testing.T) {
	s, _ := openTestStore(t)
	_, err := s.Create(context.Background(), record.Candidate{Date: "2024-05-01", Field: "A", Product: "P", Dose: 0})
	assert.Error(t, err)
}
