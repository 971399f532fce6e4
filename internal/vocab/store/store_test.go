package store

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/review-vocab/internal/vocab/index"
	"github.com/Adithya-Monish-Kumar-K/review-vocab/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/review-vocab/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/review-vocab/pkg/sqlite"
)

func sampleIndex() *index.Index {
	c := index.NewCounts()
	for _, w := range []string{"great", "food", "great", "!", "not", "great", "food"} {
		c.Inc(w)
	}
	return index.Build(c, 3)
}

func TestFileStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewFileStore(t.TempDir())
	ix := sampleIndex()

	require.NoError(t, s.Save(ctx, "index", ix))
	back, err := s.Load(ctx, "index")
	require.NoError(t, err)
	assert.True(t, ix.Equal(back))

	_, err = s.Load(ctx, "other")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	db, err := sqlite.New(config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "vocab.db")})
	require.NoError(t, err)
	defer db.Close()

	s, err := NewSQLStore(ctx, db)
	require.NoError(t, err)

	_, err = s.Load(ctx, "index")
	assert.ErrorIs(t, err, ErrNotFound)

	ix := sampleIndex()
	require.NoError(t, s.Save(ctx, "index", ix))
	back, err := s.Load(ctx, "index")
	require.NoError(t, err)
	assert.Equal(t, ix.Entries(), back.Entries())

	// saving again replaces the previous entries
	smaller := index.Build(index.NewCounts(), 5)
	require.NoError(t, s.Save(ctx, "index", smaller))
	back, err = s.Load(ctx, "index")
	require.NoError(t, err)
	assert.Equal(t, 0, back.Len())

	// schema creation is idempotent
	_, err = NewSQLStore(ctx, db)
	require.NoError(t, err)
}

func TestSQLiteStoreDetectsCorruption(t *testing.T) {
	ctx := context.Background()
	db, err := sqlite.New(config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "vocab.db")})
	require.NoError(t, err)
	defer db.Close()
	s, err := NewSQLStore(ctx, db)
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, "index", sampleIndex()))

	_, err = db.ExecContext(ctx, `UPDATE vocab_entries SET id = 7 WHERE id = 1`)
	require.NoError(t, err)
	_, err = s.Load(ctx, "index")
	assert.True(t, apperrors.Is(err, apperrors.ErrCorruptIndex))

	_, err = db.ExecContext(ctx, `DELETE FROM vocab_entries WHERE id = 7`)
	require.NoError(t, err)
	_, err = s.Load(ctx, "index")
	assert.True(t, apperrors.Is(err, apperrors.ErrCorruptIndex))
}

var errNil = errors.New("redis: nil")

type fakeKV struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (f *fakeKV) Bytes(ctx context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.data[key]
	if !ok {
		return nil, errNil
	}
	return v, nil
}

func (f *fakeKV) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = append([]byte(nil), value.([]byte)...)
	return nil
}

func TestRedisStore(t *testing.T) {
	ctx := context.Background()
	kv := &fakeKV{data: map[string][]byte{}}
	s := &RedisStore{kv: kv, prefix: "vocab:", isNil: func(err error) bool { return err == errNil }}

	_, err := s.Load(ctx, "index")
	assert.ErrorIs(t, err, ErrNotFound)

	ix := sampleIndex()
	require.NoError(t, s.Save(ctx, "index", ix))
	assert.Contains(t, kv.data, "vocab:index")

	back, err := s.Load(ctx, "index")
	require.NoError(t, err)
	assert.True(t, ix.Equal(back))

	kv.data["vocab:index"] = []byte("garbage")
	_, err = s.Load(ctx, "index")
	assert.True(t, apperrors.Is(err, apperrors.ErrCorruptIndex))
	assert.Equal(t, "redis:vocab:index", apperrors.Path(err))
}

type countingStore struct {
	Store
	loads atomic.Int32
	delay time.Duration
}

func (c *countingStore) Load(ctx context.Context, name string) (*index.Index, error) {
	c.loads.Add(1)
	time.Sleep(c.delay)
	return c.Store.Load(ctx, name)
}

func TestCachedStoreCollapsesLoads(t *testing.T) {
	ctx := context.Background()
	files := NewFileStore(t.TempDir())
	require.NoError(t, files.Save(ctx, "index", sampleIndex()))

	backend := &countingStore{Store: files, delay: 50 * time.Millisecond}
	cached := NewCachedStore(backend)

	var wg sync.WaitGroup
	results := make([]*index.Index, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ix, err := cached.Load(ctx, "index")
			assert.NoError(t, err)
			results[i] = ix
		}(i)
	}
	wg.Wait()

	assert.LessOrEqual(t, backend.loads.Load(), int32(2))
	for _, ix := range results {
		assert.True(t, sampleIndex().Equal(ix))
	}

	before := backend.loads.Load()
	_, err := cached.Load(ctx, "index")
	require.NoError(t, err)
	assert.Equal(t, before, backend.loads.Load())
}

func TestCachedStoreSaveReplaces(t *testing.T) {
	ctx := context.Background()
	cached := NewCachedStore(NewFileStore(t.TempDir()))
	require.NoError(t, cached.Save(ctx, "index", sampleIndex()))

	empty := index.Build(index.NewCounts(), 1)
	require.NoError(t, cached.Save(ctx, "index", empty))
	got, err := cached.Load(ctx, "index")
	require.NoError(t, err)
	assert.Equal(t, 0, got.Len())

	_, err = cached.Load(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
