package session

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	redislib "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/groupcart-backend/pkg/config"
	redisclient "github.com/angelmondragon/groupcart-backend/pkg/redis"
)

type memoryStore struct {
	mu   sync.Mutex
	data map[string]string
	ttls map[string]time.Duration
}

func newMemoryStore() *memoryStore {
	return &memoryStore{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (m *memoryStore) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = fmt.Sprint(value)
	m.ttls[key] = ttl
	return nil
}

func (m *memoryStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return "", redislib.Nil
	}
	return v, nil
}

func (m *memoryStore) GetDel(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return "", redislib.Nil
	}
	delete(m.data, key)
	return v, nil
}

func (m *memoryStore) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func (m *memoryStore) AccessSessionKey(accessID string) string {
	return "gc:session:access:" + accessID
}

func TestGenerateStoresDigestOnly(t *testing.T) {
	store := newMemoryStore()
	manager := &Manager{store: store, ttl: 7 * 24 * time.Hour}

	token, err := manager.Generate(context.Background(), "jti-1")
	require.NoError(t, err)
	stored := store.data["gc:session:access:jti-1"]
	assert.NotEqual(t, token, stored)
	assert.Equal(t, digest(token), stored)
	assert.Equal(t, 7*24*time.Hour, store.ttls["gc:session:access:jti-1"])

	_, err = manager.Generate(context.Background(), " ")
	assert.Error(t, err)
}

func TestRotateConsumesOldSession(t *testing.T) {
	store := newMemoryStore()
	manager := &Manager{store: store, ttl: time.Hour}
	ctx := context.Background()

	token, err := manager.Generate(ctx, "jti-1")
	require.NoError(t, err)

	_, _, err = manager.Rotate(ctx, "jti-1", "not-the-token")
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
	ok, err := manager.HasSession(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, ok, "a wrong token must not end the session")

	newID, newToken, err := manager.Rotate(ctx, "jti-1", token)
	require.NoError(t, err)
	assert.NotEqual(t, "jti-1", newID)
	assert.Equal(t, digest(newToken), store.data["gc:session:access:"+newID])

	ok, err = manager.HasSession(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, err = manager.Rotate(ctx, "jti-1", token)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken, "a refresh token is single use")
}

func TestConcurrentRotateHasOneWinner(t *testing.T) {
	store := newMemoryStore()
	manager := &Manager{store: store, ttl: time.Hour}
	ctx := context.Background()
	token, err := manager.Generate(ctx, "jti-1")
	require.NoError(t, err)

	const attempts = 8
	var wg sync.WaitGroup
	results := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := manager.Rotate(ctx, "jti-1", token)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	wins := 0
	for err := range results {
		if err == nil {
			wins++
			continue
		}
		assert.ErrorIs(t, err, ErrInvalidRefreshToken)
	}
	assert.Equal(t, 1, wins)
}

func TestRevokeEndsSession(t *testing.T) {
	store := newMemoryStore()
	manager := &Manager{store: store, ttl: time.Hour}
	ctx := context.Background()

	_, err := manager.Generate(ctx, "jti-1")
	require.NoError(t, err)
	require.NoError(t, manager.Revoke(ctx, "jti-1"))

	ok, err := manager.HasSession(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Error(t, manager.Revoke(ctx, ""))
	_, err = manager.HasSession(ctx, "")
	assert.Error(t, err)
}

func TestNewManagerValidatesTTL(t *testing.T) {
	_, err := NewManager(nil, config.JWTConfig{})
	assert.Error(t, err)

	client := &redisclient.Client{}
	cfg := config.JWTConfig{ExpirationMinutes: 60, RefreshTokenTTLMinutes: 30}
	_, err = NewManager(client, cfg)
	assert.Error(t, err)

	cfg.RefreshTokenTTLMinutes = 120
	_, err = NewManager(client, cfg)
	assert.NoError(t, err)
}
