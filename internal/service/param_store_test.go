package service

import (
	"context"
	"math"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"pdfhistory/internal/repository"
)

func newRedisParamStore(t *testing.T) (*ParamStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewParamStore(repository.NewRedisKeyValueStore(client, "test:")), mr
}

func TestParamStore_SaveLoad(t *testing.T) {
	ctx := context.Background()
	store, _ := newRedisParamStore(t)

	store.Save(ctx, DefaultParamsNamespace, "rotate", map[string]any{"angle": 90, "blob": []byte("x")})
	store.Save(ctx, DefaultParamsNamespace, "compress", map[string]any{"level": math.NaN()})

	require.Equal(t, map[string]any{"angle": float64(90)}, store.Load(ctx, DefaultParamsNamespace, "rotate"))
	require.Equal(t, map[string]any{"level": nil}, store.Load(ctx, DefaultParamsNamespace, "compress"))
	require.Nil(t, store.Load(ctx, DefaultParamsNamespace, "split"))
	require.Len(t, store.Tools(ctx, DefaultParamsNamespace), 2)
}

func TestParamStore_UnrepresentableValueKeepsPrevious(t *testing.T) {
	ctx := context.Background()
	store, _ := newRedisParamStore(t)

	store.Save(ctx, "ns", "ocr", map[string]any{"lang": "eng"})
	store.Save(ctx, "ns", "ocr", []byte("binary"))

	require.Equal(t, map[string]any{"lang": "eng"}, store.Load(ctx, "ns", "ocr"))
}

func TestParamStore_NonObjectValueLoadsAsNil(t *testing.T) {
	ctx := context.Background()
	store, _ := newRedisParamStore(t)

	store.Save(ctx, "ns", "merge", []string{"a", "b"})
	require.Nil(t, store.Load(ctx, "ns", "merge"))
}

func TestParamStore_CorruptNamespaceIsEmpty(t *testing.T) {
	ctx := context.Background()
	store, mr := newRedisParamStore(t)

	require.NoError(t, mr.Set("test:ns", "{not json"))
	require.Nil(t, store.Load(ctx, "ns", "rotate"))

	store.Save(ctx, "ns", "rotate", map[string]any{"angle": 180})
	require.Equal(t, map[string]any{"angle": float64(180)}, store.Load(ctx, "ns", "rotate"))
}

func TestParamStore_ClearAndClearAll(t *testing.T) {
	ctx := context.Background()
	store, mr := newRedisParamStore(t)

	store.Save(ctx, "ns", "a", map[string]any{"x": 1})
	store.Save(ctx, "ns", "b", map[string]any{"y": 2})

	store.Clear(ctx, "ns", "a")
	require.Nil(t, store.Load(ctx, "ns", "a"))
	require.NotNil(t, store.Load(ctx, "ns", "b"))

	store.Clear(ctx, "ns", "missing")

	store.ClearAll(ctx, "ns")
	require.False(t, mr.Exists("test:ns"))
	require.Nil(t, store.Load(ctx, "ns", "b"))
}

type splitParams struct {
	Mode  string `json:"mode"`
	Pages []int  `json:"pages"`
	Every int    `json:"every"`
}

func TestParamStore_LoadInto(t *testing.T) {
	ctx := context.Background()
	store, _ := newRedisParamStore(t)

	store.Save(ctx, "ns", "split", splitParams{Mode: "pages", Pages: []int{2, 5}, Every: 3})

	var got splitParams
	require.True(t, store.LoadInto(ctx, "ns", "split", &got))
	require.Equal(t, splitParams{Mode: "pages", Pages: []int{2, 5}, Every: 3}, got)

	require.False(t, store.LoadInto(ctx, "ns", "missing", &got))
}

type failingKeyValueStore struct{}

func (failingKeyValueStore) GetItem(context.Context, string) (string, bool, error) {
	return "", false, errors.New("quota exceeded")
}

func (failingKeyValueStore) SetItem(context.Context, string, string) error {
	return errors.New("quota exceeded")
}

func (failingKeyValueStore) RemoveItem(context.Context, string) error {
	return errors.New("quota exceeded")
}

func TestParamStore_StorageErrorsAreSwallowed(t *testing.T) {
	ctx := context.Background()
	store := NewParamStore(failingKeyValueStore{})

	require.NotPanics(t, func() {
		store.Save(ctx, "ns", "rotate", map[string]any{"angle": 90})
		require.Nil(t, store.Load(ctx, "ns", "rotate"))
		store.Clear(ctx, "ns", "rotate")
		store.ClearAll(ctx, "ns")
	})
}
