package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RefreshTokenStore lleva el registro de los refresh tokens vivos por jti.
// Consume es atómico: un token rotado no puede usarse dos veces aunque lleguen
// dos refresh en paralelo.
type RefreshTokenStore interface {
	Store(jti string, userID int64, ttl time.Duration) error
	Consume(jti string) (userID int64, ok bool, err error)
	Revoke(jti string) error
}

const (
	defaultRefreshTTL   = 7 * 24 * time.Hour
	refreshStoreTimeout = 500 * time.Millisecond
)

type refreshEntry struct {
	userID    int64
	expiresAt time.Time
}

type memoryRefreshTokenStore struct {
	mu    sync.Mutex
	items map[string]refreshEntry
	now   func() time.Time
}

// NewMemoryRefreshTokenStore sirve para tests y para correr sin redis. No se
// comparte entre procesos.
func NewMemoryRefreshTokenStore() RefreshTokenStore {
	return &memoryRefreshTokenStore{
		items: make(map[string]refreshEntry),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (s *memoryRefreshTokenStore) Store(jti string, userID int64, ttl time.Duration) error {
	jti = strings.TrimSpace(jti)
	if jti == "" {
		return nil
	}
	if ttl <= 0 {
		ttl = defaultRefreshTTL
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for k, e := range s.items {
		if now.After(e.expiresAt) {
			delete(s.items, k)
		}
	}
	s.items[jti] = refreshEntry{userID: userID, expiresAt: now.Add(ttl)}
	return nil
}

func (s *memoryRefreshTokenStore) Consume(jti string) (int64, bool, error) {
	jti = strings.TrimSpace(jti)
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.items[jti]
	if !ok {
		return 0, false, nil
	}
	delete(s.items, jti)
	if s.now().After(e.expiresAt) {
		return 0, false, nil
	}
	return e.userID, true, nil
}

func (s *memoryRefreshTokenStore) Revoke(jti string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, strings.TrimSpace(jti))
	return nil
}

type redisKV interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	GetDel(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

type redisRefreshTokenStore struct {
	client redisKV
	prefix string
}

// NewRedisRefreshTokenStore guarda cada jti como auth:refresh:<jti> = user id,
// con el TTL del token.
func NewRedisRefreshTokenStore(client *redis.Client) RefreshTokenStore {
	if client == nil {
		return nil
	}
	return &redisRefreshTokenStore{client: client, prefix: "auth:refresh:"}
}

func (s *redisRefreshTokenStore) key(jti string) (string, bool) {
	jti = strings.TrimSpace(jti)
	return s.prefix + jti, jti != ""
}

func (s *redisRefreshTokenStore) Store(jti string, userID int64, ttl time.Duration) error {
	key, ok := s.key(jti)
	if !ok {
		return nil
	}
	if ttl <= 0 {
		ttl = defaultRefreshTTL
	}
	ctx, cancel := context.WithTimeout(context.Background(), refreshStoreTimeout)
	defer cancel()
	return s.client.Set(ctx, key, userID, ttl).Err()
}

func (s *redisRefreshTokenStore) Consume(jti string) (int64, bool, error) {
	key, ok := s.key(jti)
	if !ok {
		return 0, false, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), refreshStoreTimeout)
	defer cancel()
	userID, err := s.client.GetDel(ctx, key).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return userID, true, nil
}

func (s *redisRefreshTokenStore) Revoke(jti string) error {
	key, ok := s.key(jti)
	if !ok {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), refreshStoreTimeout)
	defer cancel()
	return s.client.Del(ctx, key).Err()
}
