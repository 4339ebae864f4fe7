package state

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	redislib "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type memoryBlobs struct {
	mu   sync.Mutex
	data map[string]string
	ttls map[string]time.Duration
}

func newMemoryBlobs() *memoryBlobs {
	return &memoryBlobs{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (m *memoryBlobs) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = fmt.Sprint(value)
	m.ttls[key] = ttl
	return nil
}

func (m *memoryBlobs) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return "", redislib.Nil
	}
	return v, nil
}

func (m *memoryBlobs) Del(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func (m *memoryBlobs) StateKey(kind, owner string) string {
	return "grmc:state:" + kind + ":" + owner
}

type counter struct {
	N int `json:"n"`
}

func TestLoadMissingYieldsZeroState(t *testing.T) {
	blobs := newMemoryBlobs()
	store := newStore(blobs, blobs, time.Hour)

	var c counter
	found, err := store.Load(context.Background(), KindCart, "user-1", &c)
	require.NoError(t, err)
	require.False(t, found)
	require.Equal(t, 0, c.N)
}

func TestSaveThenLoad(t *testing.T) {
	blobs := newMemoryBlobs()
	store := newStore(blobs, blobs, time.Hour)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, KindWishlist, "user-1", counter{N: 4}))
	require.Equal(t, `{"n":4}`, blobs.data["grmc:state:wishlist:user-1"])
	require.Equal(t, time.Hour, blobs.ttls["grmc:state:wishlist:user-1"])

	var c counter
	found, err := store.Load(ctx, KindWishlist, "user-1", &c)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, 4, c.N)
}

func TestBlobsAreIndependent(t *testing.T) {
	blobs := newMemoryBlobs()
	store := newStore(blobs, blobs, 0)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, KindCart, "u", counter{N: 1}))
	require.NoError(t, store.Save(ctx, KindWishlist, "u", counter{N: 2}))
	require.NoError(t, store.Save(ctx, KindAuth, "u", counter{N: 3}))

	require.NoError(t, store.Clear(ctx, "u", KindCart))
	_, stillThere := blobs.data["grmc:state:wishlist:u"]
	require.True(t, stillThere)

	require.NoError(t, store.Clear(ctx, "u"))
	require.Empty(t, blobs.data)
}

func TestMutateSavesOnlyOnSuccess(t *testing.T) {
	blobs := newMemoryBlobs()
	store := newStore(blobs, blobs, 0)
	ctx := context.Background()

	var c counter
	require.NoError(t, store.Mutate(ctx, KindCart, "u", &c, func() error {
		c.N++
		return nil
	}))

	var failed counter
	err := store.Mutate(ctx, KindCart, "u", &failed, func() error {
		failed.N = 100
		return errors.New("rejected")
	})
	require.Error(t, err)
	require.Equal(t, `{"n":1}`, blobs.data["grmc:state:cart:u"])
}

func TestMutateSerializesConcurrentWriters(t *testing.T) {
	blobs := newMemoryBlobs()
	store := newStore(blobs, blobs, 0)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var c counter
			_ = store.Mutate(ctx, KindCart, "u", &c, func() error {
				c.N++
				return nil
			})
		}()
	}
	wg.Wait()

	var c counter
	_, err := store.Load(ctx, KindCart, "u", &c)
	require.NoError(t, err)
	require.Equal(t, 20, c.N)
}

func TestClearWaitsForMutateInFlight(t *testing.T) {
	blobs := newMemoryBlobs()
	store := newStore(blobs, blobs, 0)
	ctx := context.Background()

	entered := make(chan struct{})
	release := make(chan struct{})
	mutated := make(chan error, 1)
	go func() {
		var c counter
		mutated <- store.Mutate(ctx, KindCart, "u", &c, func() error {
			close(entered)
			<-release
			c.N = 7
			return nil
		})
	}()
	<-entered

	cleared := make(chan error, 1)
	go func() { cleared <- store.Clear(ctx, "u") }()

	select {
	case err := <-cleared:
		t.Fatalf("clear returned while mutate held the key: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	require.NoError(t, <-mutated)
	require.NoError(t, <-cleared)

	var c counter
	ok, err := store.Load(ctx, KindCart, "u", &c)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestClearAllKindsThenMutate(t *testing.T) {
	blobs := newMemoryBlobs()
	store := newStore(blobs, blobs, 0)
	ctx := context.Background()
	for _, kind := range AllKinds {
		require.NoError(t, store.Save(ctx, kind, "u", counter{N: 1}))
	}

	require.NoError(t, store.Clear(ctx, "u", KindCart, KindCart, KindWishlist))
	require.NoError(t, store.Clear(ctx, "u"))
	require.Empty(t, blobs.data)

	var c counter
	require.NoError(t, store.Mutate(ctx, KindWishlist, "u", &c, func() error {
		c.N++
		return nil
	}))
	require.Equal(t, `{"n":1}`, blobs.data["grmc:state:wishlist:u"])
}

func TestOwnerRequired(t *testing.T) {
	blobs := newMemoryBlobs()
	store := newStore(blobs, blobs, 0)
	require.Error(t, store.Save(context.Background(), KindCart, " ", counter{}))

	var nilStore *Store
	_, err := nilStore.Load(context.Background(), KindCart, "u", &counter{})
	require.Error(t, err)
}
