package store_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/relate/backend"
	"github.com/hupe1980/relate/codec"
	"github.com/hupe1980/relate/internal/cache"
	"github.com/hupe1980/relate/params"
	"github.com/hupe1980/relate/store"
)

type soapInfo struct {
	Dim int `json:"dim"`
}

func soapParams(t *testing.T, rcut any) params.Params {
	t.Helper()
	p, err := params.New(map[string]any{"rcut": rcut, "nmax": 9, "lmax": 9})
	require.NoError(t, err)
	return p
}

func newStores(t *testing.T) map[string]*store.Store {
	t.Helper()
	local, err := backend.NewLocal(t.TempDir())
	require.NoError(t, err)

	return map[string]*store.Store{
		"memory": store.New(backend.NewMemory()),
		"local":  store.New(local, store.WithCompression(codec.CompressionZSTD)),
	}
}

func TestStoreAndGetDescription(t *testing.T) {
	for name, s := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			p := soapParams(t, 5)

			rec, err := s.StoreDescription(ctx, []float64{1, 2, 3}, soapInfo{Dim: 3}, "a", "soap", p)
			require.NoError(t, err)
			assert.Equal(t, store.Descriptions, rec.Namespace)
			assert.Equal(t, "lmax_9__nmax_9__rcut_5", rec.ParamsKey)

			var got []float64
			rec, err = s.GetDescription(ctx, "a", "soap", p, &got)
			require.NoError(t, err)
			assert.Equal(t, []float64{1, 2, 3}, got)

			var info soapInfo
			require.NoError(t, rec.DecodeInfo(&info))
			assert.Equal(t, 3, info.Dim)
		})
	}
}

func TestParameterOrderAndNumericEquality(t *testing.T) {
	s := store.New(backend.NewMemory())
	ctx := context.Background()

	_, err := s.StoreDescription(ctx, "x", nil, "a", "soap", soapParams(t, 5))
	require.NoError(t, err)

	// Same parameters built in a different order and with an equal float.
	p, err := params.New(map[string]any{"lmax": 9.0, "rcut": 5.0, "nmax": 9})
	require.NoError(t, err)

	ok, err := s.Exists(ctx, store.DescriptionQuery("a", "soap", p))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Exists(ctx, store.DescriptionQuery("a", "soap", soapParams(t, 6)))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGetMissingIsNotFound(t *testing.T) {
	s := store.New(backend.NewMemory())

	var out []float64
	_, err := s.GetDescription(context.Background(), "a", "soap", soapParams(t, 5), &out)
	require.ErrorIs(t, err, store.ErrNotFound)

	var nf *store.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "a", nf.Key1)
	assert.Equal(t, "soap", nf.Key2)
}

func TestFalsyPayloadIsAHit(t *testing.T) {
	s := store.New(backend.NewMemory())
	ctx := context.Background()
	p := soapParams(t, 5)

	_, err := s.StoreDescription(ctx, []float64{}, nil, "a", "soap", p)
	require.NoError(t, err)

	out := []float64{42}
	_, err = s.GetDescription(ctx, "a", "soap", p, &out)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestBasedOnSeparatesResults(t *testing.T) {
	s := store.New(backend.NewMemory())
	ctx := context.Background()
	p := params.MustNew(map[string]any{"epsilon": 0.3})
	ref := store.Ref("soap", soapParams(t, 5))

	_, err := s.StoreCollectionResult(ctx, "with", nil, "c", "ler", ref, p)
	require.NoError(t, err)

	ok, err := s.Exists(ctx, store.CollectionQuery("c", "ler", nil, p))
	require.NoError(t, err)
	assert.False(t, ok, "result without dependency must not match one with")

	ok, err = s.Exists(ctx, store.CollectionQuery("c", "ler", store.Ref("soap", soapParams(t, 6)), p))
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.StoreCollectionResult(ctx, "without", nil, "c", "ler", nil, p)
	require.NoError(t, err)

	var got string
	_, err = s.GetCollectionResult(ctx, "c", "ler", ref, p, &got)
	require.NoError(t, err)
	assert.Equal(t, "with", got)

	_, err = s.GetCollectionResult(ctx, "c", "ler", nil, p, &got)
	require.NoError(t, err)
	assert.Equal(t, "without", got)
}

func TestReplaceKeepsSingleRecord(t *testing.T) {
	s := store.New(backend.NewMemory())
	ctx := context.Background()
	p := soapParams(t, 5)

	_, err := s.StoreDescription(ctx, 1, nil, "a", "soap", p)
	require.NoError(t, err)
	_, err = s.StoreDescription(ctx, 2, nil, "a", "soap", p)
	require.NoError(t, err)

	recs, err := s.List(ctx, store.Descriptions)
	require.NoError(t, err)
	require.Len(t, recs, 1)

	var got int
	_, err = s.GetDescription(ctx, "a", "soap", p, &got)
	require.NoError(t, err)
	assert.Equal(t, 2, got)
}

func TestExclusiveConflict(t *testing.T) {
	s := store.New(backend.NewMemory(), store.WithWriteMode(store.WriteExclusive))
	ctx := context.Background()
	p := soapParams(t, 5)

	first, err := s.StoreDescription(ctx, 1, nil, "a", "soap", p)
	require.NoError(t, err)

	_, err = s.StoreDescription(ctx, 2, nil, "a", "soap", p)
	require.ErrorIs(t, err, store.ErrConcurrencyConflict)

	var conflict *store.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, first.Key, conflict.Existing.Key)
}

func TestConcurrentExclusiveWriters(t *testing.T) {
	s := store.New(backend.NewMemory(), store.WithWriteMode(store.WriteExclusive))
	ctx := context.Background()
	p := soapParams(t, 5)

	const writers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		ok, clash int
	)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.StoreDescription(ctx, i, nil, "a", "soap", p)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, store.ErrConcurrencyConflict):
				clash++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, ok)
	assert.Equal(t, writers-1, clash)
}

func TestCorruptPayloadIsDeserializationError(t *testing.T) {
	b := backend.NewMemory()
	s := store.New(b)
	ctx := context.Background()
	p := soapParams(t, 5)

	rec, err := s.StoreDescription(ctx, []float64{1}, nil, "a", "soap", p)
	require.NoError(t, err)
	require.NoError(t, b.Put(ctx, rec.Key, []byte("garbage")))

	var out []float64
	_, err = s.GetDescription(ctx, "a", "soap", p, &out)
	require.ErrorIs(t, err, store.ErrDeserialization)
	assert.NotErrorIs(t, err, store.ErrNotFound)
	assert.ErrorIs(t, err, codec.ErrFormat)

	// Delete and recompute.
	require.NoError(t, s.ClearDescription(ctx, "a", "soap", p))
	_, err = s.StoreDescription(ctx, []float64{2}, nil, "a", "soap", p)
	require.NoError(t, err)

	_, err = s.GetDescription(ctx, "a", "soap", p, &out)
	require.NoError(t, err)
	assert.Equal(t, []float64{2}, out)
}

func TestCorruptMetadataIsAMiss(t *testing.T) {
	b := backend.NewMemory()
	s := store.New(b)
	ctx := context.Background()
	p := soapParams(t, 5)

	rec, err := s.StoreDescription(ctx, []float64{1}, nil, "a", "soap", p)
	require.NoError(t, err)

	// A fresh store has no cached metadata.
	s = store.New(b)
	require.NoError(t, b.Put(ctx, rec.InfoKey, []byte("RLR1 truncated")))

	ok, err := s.Exists(ctx, store.DescriptionQuery("a", "soap", p))
	require.NoError(t, err)
	assert.False(t, ok)

	// A parameter set that was never stored is a plain miss too.
	_, err = s.Lookup(ctx, store.DescriptionQuery("a", "soap", soapParams(t, 6)))
	require.ErrorIs(t, err, store.ErrNotFound)
	assert.NotErrorIs(t, err, store.ErrDeserialization)

	require.NoError(t, s.ClearDescription(ctx, "a", "soap", p))
	assert.Zero(t, b.Len())
}

func TestPutReplacesCorruptMetadata(t *testing.T) {
	b := backend.NewMemory()
	s := store.New(b)
	ctx := context.Background()
	p := soapParams(t, 5)

	rec, err := s.StoreDescription(ctx, []float64{1}, nil, "a", "soap", p)
	require.NoError(t, err)

	s = store.New(b)
	require.NoError(t, b.Put(ctx, rec.InfoKey, []byte("RLR1 truncated")))

	_, err = s.StoreDescription(ctx, []float64{2}, nil, "a", "soap", p)
	require.NoError(t, err)
	assert.Equal(t, 2, b.Len())

	var out []float64
	_, err = s.GetDescription(ctx, "a", "soap", p, &out)
	require.NoError(t, err)
	assert.Equal(t, []float64{2}, out)
}

func TestMissingPayloadIsDeserializationError(t *testing.T) {
	b := backend.NewMemory()
	s := store.New(b)
	ctx := context.Background()
	p := soapParams(t, 5)

	rec, err := s.StoreDescription(ctx, []float64{1}, nil, "a", "soap", p)
	require.NoError(t, err)
	require.NoError(t, b.Delete(ctx, rec.Key))

	var out []float64
	_, err = s.GetDescription(ctx, "a", "soap", p, &out)
	require.ErrorIs(t, err, store.ErrDeserialization)
}

func TestUncommittedPayloadIsInvisible(t *testing.T) {
	b := backend.NewMemory()
	s := store.New(b)
	ctx := context.Background()
	p := soapParams(t, 5)

	rec, err := s.StoreDescription(ctx, []float64{1}, nil, "a", "soap", p)
	require.NoError(t, err)
	require.NoError(t, b.Delete(ctx, rec.InfoKey))

	s = store.New(b)
	ok, err := s.Exists(ctx, store.DescriptionQuery("a", "soap", p))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestClearDescriptionPrunes(t *testing.T) {
	root := t.TempDir()
	local, err := backend.NewLocal(root)
	require.NoError(t, err)

	s := store.New(local)
	ctx := context.Background()
	p := soapParams(t, 5)

	_, err = s.StoreDescription(ctx, 1, nil, "a", "soap", p)
	require.NoError(t, err)
	_, err = s.StoreDescription(ctx, 2, nil, "b", "soap", p)
	require.NoError(t, err)
	_, err = s.StoreDescription(ctx, 3, nil, "a", "acsf", p)
	require.NoError(t, err)

	require.NoError(t, s.ClearDescription(ctx, "a", "soap", p))

	ok, err := s.Exists(ctx, store.DescriptionQuery("a", "soap", p))
	require.NoError(t, err)
	assert.False(t, ok)

	for _, q := range []store.Query{
		store.DescriptionQuery("b", "soap", p),
		store.DescriptionQuery("a", "acsf", p),
	} {
		ok, err := s.Exists(ctx, q)
		require.NoError(t, err)
		assert.True(t, ok, q.Key1+"/"+q.Key2)
	}

	_, err = os.Stat(filepath.Join(root, "Descriptions", "a", "soap"))
	assert.True(t, os.IsNotExist(err), "empty descriptor directory must be pruned")
	_, err = os.Stat(filepath.Join(root, "Descriptions", "a"))
	assert.NoError(t, err)

	err = s.ClearDescription(ctx, "a", "soap", p)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestBulkClears(t *testing.T) {
	ctx := context.Background()
	p := soapParams(t, 5)
	lp := params.MustNew(map[string]any{"epsilon": 0.3})

	fill := func(t *testing.T) *store.Store {
		s := store.New(backend.NewMemory())
		for _, e := range []string{"a", "b"} {
			for _, d := range []string{"soap", "acsf"} {
				_, err := s.StoreDescription(ctx, 1, nil, e, d, p)
				require.NoError(t, err)
			}
		}
		for _, c := range []string{"c1", "c2"} {
			for _, m := range []string{"ler", "other"} {
				_, err := s.StoreCollectionResult(ctx, 1, nil, c, m, store.Ref("soap", p), lp)
				require.NoError(t, err)
			}
		}
		return s
	}

	count := func(t *testing.T, s *store.Store, ns store.Namespace) int {
		recs, err := s.List(ctx, ns)
		require.NoError(t, err)
		return len(recs)
	}

	t.Run("descriptions of entity and descriptor", func(t *testing.T) {
		s := fill(t)
		require.NoError(t, s.ClearDescriptions(ctx, "a", "soap"))
		assert.Equal(t, 3, count(t, s, store.Descriptions))
		require.NoError(t, s.ClearDescriptions(ctx, "a", "soap"))
	})

	t.Run("entity", func(t *testing.T) {
		s := fill(t)
		require.NoError(t, s.ClearEntity(ctx, "a"))
		assert.Equal(t, 2, count(t, s, store.Descriptions))
	})

	t.Run("descriptor subtree", func(t *testing.T) {
		s := fill(t)
		require.NoError(t, s.ClearDescriptor(ctx, "soap"))
		recs, err := s.List(ctx, store.Descriptions)
		require.NoError(t, err)
		require.Len(t, recs, 2)
		for _, r := range recs {
			assert.Equal(t, "acsf", r.Key2)
		}
	})

	t.Run("method subtree", func(t *testing.T) {
		s := fill(t)
		require.NoError(t, s.ClearMethod(ctx, "c1", "ler"))
		assert.Equal(t, 3, count(t, s, store.Collections))
		assert.Equal(t, 4, count(t, s, store.Descriptions))
	})

	t.Run("collection", func(t *testing.T) {
		s := fill(t)
		require.NoError(t, s.ClearCollection(ctx, "c2"))
		assert.Equal(t, 2, count(t, s, store.Collections))
	})

	t.Run("single collection result", func(t *testing.T) {
		s := fill(t)
		require.NoError(t, s.ClearCollectionResult(ctx, "c1", "ler", store.Ref("soap", p), lp))
		assert.Equal(t, 3, count(t, s, store.Collections))
		assert.ErrorIs(t, s.ClearCollectionResult(ctx, "c1", "ler", store.Ref("soap", p), lp), store.ErrNotFound)
	})

	t.Run("all", func(t *testing.T) {
		s := fill(t)
		require.NoError(t, s.ClearAll(ctx))
		assert.Zero(t, count(t, s, ""))
		assert.Zero(t, s.Backend().(*backend.Memory).Len())
		require.NoError(t, s.ClearAll(ctx))
	})
}

func TestBulkClearDropsCachedReads(t *testing.T) {
	ctx := context.Background()
	inner := backend.NewMemory()
	lru := cache.NewLRU(1<<20, nil)
	st := store.New(backend.NewCaching(inner, lru))
	p := soapParams(t, 5.0)

	_, err := st.StoreDescription(ctx, []float64{1}, nil, "a", "soap", p)
	require.NoError(t, err)
	_, err = st.StoreDescription(ctx, []float64{2}, nil, "b", "soap", p)
	require.NoError(t, err)

	var out []float64
	_, err = st.GetDescription(ctx, "a", "soap", p, &out)
	require.NoError(t, err)
	_, err = st.GetDescription(ctx, "b", "soap", p, &out)
	require.NoError(t, err)
	require.Positive(t, lru.Len())

	// Another process removes a's record behind the cache.
	keys, err := inner.List(ctx, "Descriptions/a/")
	require.NoError(t, err)
	for _, k := range keys {
		require.NoError(t, inner.Delete(ctx, k))
	}

	require.NoError(t, st.ClearNamespace(ctx, store.Descriptions))
	assert.Zero(t, lru.Len())
	assert.Zero(t, inner.Len())

	_, err = st.GetDescription(ctx, "a", "soap", p, &out)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestListOrdering(t *testing.T) {
	s := store.New(backend.NewMemory())
	ctx := context.Background()
	p := soapParams(t, 5)

	_, err := s.StoreDescription(ctx, 1, nil, "b", "soap", p)
	require.NoError(t, err)
	_, err = s.StoreDescription(ctx, 1, nil, "a", "soap", soapParams(t, 6))
	require.NoError(t, err)
	_, err = s.StoreDescription(ctx, 1, nil, "a", "soap", p)
	require.NoError(t, err)
	_, err = s.StoreCollectionResult(ctx, 1, nil, "c", "ler", nil, p)
	require.NoError(t, err)

	recs, err := s.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, recs, 4)

	assert.Equal(t, store.Collections, recs[0].Namespace)
	assert.Equal(t, "a", recs[1].Key1)
	assert.Equal(t, "lmax_9__nmax_9__rcut_6", recs[1].ParamsKey)
	assert.Equal(t, "a", recs[2].Key1)
	assert.Equal(t, "lmax_9__nmax_9__rcut_5", recs[2].ParamsKey)
	assert.Equal(t, "b", recs[3].Key1)

	_, err = s.List(ctx, "Bogus")
	assert.ErrorIs(t, err, store.ErrInvalidArgument)
}

func TestInvalidKeys(t *testing.T) {
	s := store.New(backend.NewMemory())
	ctx := context.Background()

	for _, id := range []string{"", ".", "..", ".hidden", "a/b", `a\b`} {
		_, err := s.StoreDescription(ctx, 1, nil, id, "soap", nil)
		assert.ErrorIs(t, err, store.ErrInvalidArgument, "%q", id)
	}

	_, err := s.Exists(ctx, store.Query{Namespace: "Other", Key1: "a", Key2: "b"})
	assert.ErrorIs(t, err, store.ErrInvalidArgument)
}

func TestCodecInterop(t *testing.T) {
	b := backend.NewMemory()
	ctx := context.Background()
	p := soapParams(t, 5)

	w := store.New(b, store.WithCodec(codec.JSON{}), store.WithCompression(codec.CompressionLZ4))
	_, err := w.StoreDescription(ctx, map[string]float64{"x": 1.5}, nil, "a", "soap", p)
	require.NoError(t, err)

	r := store.New(b)
	var got map[string]float64
	rec, err := r.GetDescription(ctx, "a", "soap", p, &got)
	require.NoError(t, err)
	assert.Equal(t, 1.5, got["x"])
	assert.Equal(t, "json", rec.Codec)
	assert.Equal(t, "lz4", rec.Compression)
}

func TestMetrics(t *testing.T) {
	m := &store.BasicMetricsCollector{}
	s := store.New(backend.NewMemory(), store.WithMetrics(m))
	ctx := context.Background()
	p := soapParams(t, 5)

	_, err := s.Exists(ctx, store.DescriptionQuery("a", "soap", p))
	require.NoError(t, err)
	_, err = s.StoreDescription(ctx, 1, nil, "a", "soap", p)
	require.NoError(t, err)
	var out int
	_, err = s.GetDescription(ctx, "a", "soap", p, &out)
	require.NoError(t, err)

	stats := m.GetStats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, int64(1), stats.Writes)
	assert.Equal(t, int64(1), stats.Loads)
	assert.Positive(t, stats.BytesWritten)
	assert.InDelta(t, 0.5, stats.HitRatio(), 1e-9)
}
