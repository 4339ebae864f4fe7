package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"sort"
	"strings"
	"sync"
	"time"

	redisclient "github.com/grmc/storefront-backend/pkg/redis"
	redislib "github.com/redis/go-redis/v9"
)

// Kind names one of the per-owner snapshot blobs.
type Kind string

const (
	KindAuth     Kind = "auth"
	KindCart     Kind = "cart"
	KindWishlist Kind = "wishlist"
)

// AllKinds is every blob an owner can have.
var AllKinds = []Kind{KindAuth, KindCart, KindWishlist}

const lockStripes = 64

type blobStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
}

type keyer interface {
	StateKey(kind, owner string) string
}

// Store persists JSON snapshots of client state, one blob per kind and owner.
type Store struct {
	blobs blobStore
	keys  keyer
	ttl   time.Duration
	locks [lockStripes]sync.Mutex
}

func NewStore(client *redisclient.Client, ttl time.Duration) (*Store, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	return newStore(client, client, ttl), nil
}

func newStore(blobs blobStore, keys keyer, ttl time.Duration) *Store {
	return &Store{blobs: blobs, keys: keys, ttl: ttl}
}

// Load decodes the owner's blob into dst. A missing blob reports false and
// leaves dst untouched so callers start from the zero state.
func (s *Store) Load(ctx context.Context, kind Kind, owner string, dst any) (bool, error) {
	key, err := s.key(kind, owner)
	if err != nil {
		return false, err
	}
	raw, err := s.blobs.Get(ctx, key)
	if err != nil {
		if errors.Is(err, redislib.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("load %s state: %w", kind, err)
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return false, fmt.Errorf("decode %s state: %w", kind, err)
	}
	return true, nil
}

// Save replaces the owner's blob with the JSON encoding of v.
func (s *Store) Save(ctx context.Context, kind Kind, owner string, v any) error {
	key, err := s.key(kind, owner)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s state: %w", kind, err)
	}
	if err := s.blobs.Set(ctx, key, string(payload), s.ttl); err != nil {
		return fmt.Errorf("save %s state: %w", kind, err)
	}
	return nil
}

// Clear removes the listed blobs for owner, or all of them when kinds is empty.
// It waits for any Mutate in flight on those blobs.
func (s *Store) Clear(ctx context.Context, owner string, kinds ...Kind) error {
	if len(kinds) == 0 {
		kinds = AllKinds
	}
	keys := make([]string, 0, len(kinds))
	for _, kind := range kinds {
		key, err := s.key(kind, owner)
		if err != nil {
			return err
		}
		keys = append(keys, key)
	}
	defer s.lockKeys(keys)()

	if err := s.blobs.Del(ctx, keys...); err != nil {
		return fmt.Errorf("clear state: %w", err)
	}
	return nil
}

// Mutate loads the blob into v, runs fn, and saves v when fn succeeds. Calls for
// the same key are serialized within this process.
func (s *Store) Mutate(ctx context.Context, kind Kind, owner string, v any, fn func() error) error {
	key, err := s.key(kind, owner)
	if err != nil {
		return err
	}
	mu := s.stripe(key)
	mu.Lock()
	defer mu.Unlock()

	if _, err := s.Load(ctx, kind, owner, v); err != nil {
		return err
	}
	if err := fn(); err != nil {
		return err
	}
	return s.Save(ctx, kind, owner, v)
}

func (s *Store) key(kind Kind, owner string) (string, error) {
	if s == nil || s.blobs == nil {
		return "", fmt.Errorf("state store not initialized")
	}
	if strings.TrimSpace(owner) == "" {
		return "", fmt.Errorf("state owner is required")
	}
	return s.keys.StateKey(string(kind), owner), nil
}

func (s *Store) stripe(key string) *sync.Mutex {
	return &s.locks[stripeIndex(key)]
}

// lockKeys takes every stripe covering keys in ascending order and returns the
// matching unlock.
func (s *Store) lockKeys(keys []string) func() {
	idx := make([]int, 0, len(keys))
	for _, key := range keys {
		idx = append(idx, stripeIndex(key))
	}
	sort.Ints(idx)
	held := make([]int, 0, len(idx))
	for _, n := range idx {
		if len(held) > 0 && held[len(held)-1] == n {
			continue
		}
		s.locks[n].Lock()
		held = append(held, n)
	}
	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			s.locks[held[i]].Unlock()
		}
	}
}

func stripeIndex(key string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % lockStripes)
}
