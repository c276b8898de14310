package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTest(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestInsertGet(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	r := &Record{Name: "water", Kind: "density", Label: "H2O", Triangles: 12, Warnings: 1, Blob: []byte("JVXL-GO 2\n")}
	require.NoError(t, s.Insert(ctx, r))
	_, err := uuid.Parse(r.ID)
	require.NoError(t, err, "generated id should be a uuid")
	assert.NotZero(t, r.CreatedAtNs)

	got, err := s.Get(ctx, r.ID)
	require.NoError(t, err)
	if diff := cmp.Diff(r, got); diff != "" {
		t.Errorf("record mismatch (-want +got):\n%s", diff)
	}
}

func TestInsertKeepsGivenID(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	r := &Record{ID: "fixed", Name: "cut", Kind: "plane", CreatedAtNs: 42}
	require.NoError(t, s.Insert(ctx, r))
	assert.Equal(t, "fixed", r.ID)

	got, err := s.Get(ctx, "fixed")
	require.NoError(t, err)
	assert.Equal(t, int64(42), got.CreatedAtNs)
	assert.Empty(t, got.Label)
	assert.Empty(t, got.Blob)

	assert.Error(t, s.Insert(ctx, &Record{ID: "fixed", Name: "again", Kind: "plane"}), "duplicate id")
}

func TestGetMissing(t *testing.T) {
	s := openTest(t)
	_, err := s.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListOrderedWithoutBlobs(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	for i, name := range []string{"c", "a", "b"} {
		require.NoError(t, s.Insert(ctx, &Record{Name: name, Kind: "density", CreatedAtNs: int64(i + 1), Blob: []byte{1, 2, 3}}))
	}
	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	for i, want := range []string{"c", "a", "b"} {
		assert.Equal(t, want, list[i].Name)
		assert.Nil(t, list[i].Blob)
	}
}

func TestReopenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "surfaces.db")
	ctx := context.Background()

	s, err := Open(path)
	require.NoError(t, err)
	r := &Record{Name: "mep", Kind: "potential", Blob: []byte("payload")}
	require.NoError(t, s.Insert(ctx, r))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	got, err := s.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), got.Blob)
}
