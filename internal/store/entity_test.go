package store_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listoapp/listo/internal/store"
)

type testEntity struct {
	ID    string   `json:"id"`
	Group string   `json:"group"`
	Tags  []string `json:"tags"`
}

func setupTestEntity(t *testing.T) *store.Entity[testEntity] {
	t.Helper()

	s, err := store.New(t.TempDir(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	return store.NewEntity[testEntity](s, "test:").
		WithIndex("group", func(e *testEntity) []string { return []string{e.Group} }).
		WithIndex("tag", func(e *testEntity) []string { return e.Tags })
}

func listIDs(t *testing.T, seq func(func(*testEntity, error) bool)) []string {
	t.Helper()
	var out []string
	for e, err := range seq {
		require.NoError(t, err)
		out = append(out, e.ID)
	}
	return out
}

func TestEntity_CreateGet(t *testing.T) {
	e := setupTestEntity(t)
	ctx := context.Background()

	require.NoError(t, e.Create(ctx, "1", &testEntity{ID: "1", Group: "a"}))

	got, err := e.Get(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "a", got.Group)

	err = e.Create(ctx, "1", &testEntity{ID: "1"})
	assert.ErrorIs(t, err, store.ErrAlreadyExists)

	_, err = e.Get(ctx, "2")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestEntity_ListByIndex_MultiValue(t *testing.T) {
	e := setupTestEntity(t)
	ctx := context.Background()

	require.NoError(t, e.Create(ctx, "1", &testEntity{ID: "1", Group: "a", Tags: []string{"x", "y"}}))
	require.NoError(t, e.Create(ctx, "2", &testEntity{ID: "2", Group: "a", Tags: []string{"y"}}))
	require.NoError(t, e.Create(ctx, "3", &testEntity{ID: "3", Group: "b"}))

	assert.Equal(t, []string{"1", "2"}, listIDs(t, e.ListByIndex(ctx, "group", "a")))
	assert.Equal(t, []string{"1", "2"}, listIDs(t, e.ListByIndex(ctx, "tag", "y")))
	assert.Equal(t, []string{"1"}, listIDs(t, e.ListByIndex(ctx, "tag", "x")))
	assert.Empty(t, listIDs(t, e.ListByIndex(ctx, "group", "c")))
}

func TestEntity_IndexValueIsNotAPrefixMatch(t *testing.T) {
	e := setupTestEntity(t)
	ctx := context.Background()

	require.NoError(t, e.Create(ctx, "1", &testEntity{ID: "1", Group: "u1"}))
	require.NoError(t, e.Create(ctx, "2", &testEntity{ID: "2", Group: "u1x"}))

	assert.Equal(t, []string{"1"}, listIDs(t, e.ListByIndex(ctx, "group", "u1")))
}

func TestEntity_Update_ReindexesAndAborts(t *testing.T) {
	e := setupTestEntity(t)
	ctx := context.Background()

	require.NoError(t, e.Create(ctx, "1", &testEntity{ID: "1", Group: "a", Tags: []string{"x"}}))

	_, err := e.Update(ctx, "1", func(v *testEntity) error {
		v.Group = "b"
		v.Tags = []string{"x", "z"}
		return nil
	})
	require.NoError(t, err)

	assert.Empty(t, listIDs(t, e.ListByIndex(ctx, "group", "a")))
	assert.Equal(t, []string{"1"}, listIDs(t, e.ListByIndex(ctx, "group", "b")))
	assert.Equal(t, []string{"1"}, listIDs(t, e.ListByIndex(ctx, "tag", "x")))
	assert.Equal(t, []string{"1"}, listIDs(t, e.ListByIndex(ctx, "tag", "z")))

	boom := errors.New("boom")
	_, err = e.Update(ctx, "1", func(v *testEntity) error {
		v.Group = "c"
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := e.Get(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "b", got.Group)

	_, err = e.Update(ctx, "missing", func(*testEntity) error { return nil })
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestEntity_Upsert(t *testing.T) {
	e := setupTestEntity(t)
	ctx := context.Background()

	written, err := e.Upsert(ctx, "1", func(cur *testEntity) (*testEntity, error) {
		assert.Nil(t, cur)
		return &testEntity{ID: "1", Group: "a"}, nil
	})
	require.NoError(t, err)
	assert.True(t, written)

	written, err = e.Upsert(ctx, "1", func(cur *testEntity) (*testEntity, error) {
		require.NotNil(t, cur)
		return nil, nil
	})
	require.NoError(t, err)
	assert.False(t, written)
}

func TestEntity_List(t *testing.T) {
	e := setupTestEntity(t)
	ctx := context.Background()

	require.NoError(t, e.Create(ctx, "1", &testEntity{ID: "1", Group: "a"}))
	require.NoError(t, e.Create(ctx, "2", &testEntity{ID: "2", Group: "b"}))

	assert.ElementsMatch(t, []string{"1", "2"}, listIDs(t, e.List(ctx)))
	assert.Equal(t, []string{"2"}, listIDs(t, e.ListByIndex(ctx, "group", "b")))
}

func TestEntity_DropAll(t *testing.T) {
	e := setupTestEntity(t)
	ctx := context.Background()

	require.NoError(t, e.Create(ctx, "1", &testEntity{ID: "1", Group: "a"}))
	require.NoError(t, e.DropAll())

	assert.Empty(t, listIDs(t, e.List(ctx)))
	assert.Empty(t, listIDs(t, e.ListByIndex(ctx, "group", "a")))
}

func TestEntity_CanceledContext(t *testing.T) {
	e := setupTestEntity(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, e.Create(ctx, "1", &testEntity{ID: "1"}), context.Canceled)
	_, err := e.Get(ctx, "1")
	assert.ErrorIs(t, err, context.Canceled)
}
