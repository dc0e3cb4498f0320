package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	appErrors "github.com/noah-isme/planner-api/pkg/errors"
)

type memoryCacheRepo struct {
	mu     sync.Mutex
	store  map[string][]byte
	ttls   map[string]time.Duration
	getErr error
}

func (m *memoryCacheRepo) Get(_ context.Context, key string, dest interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return m.getErr
	}
	payload, ok := m.store[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(payload, dest)
}

func (m *memoryCacheRepo) Set(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.store == nil {
		m.store = make(map[string][]byte)
		m.ttls = make(map[string]time.Duration)
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.store[key] = payload
	m.ttls[key] = ttl
	return nil
}

func (m *memoryCacheRepo) DeleteByPattern(_ context.Context, pattern string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	prefix := strings.TrimSuffix(pattern, "*")
	for key := range m.store {
		if strings.HasPrefix(key, prefix) {
			delete(m.store, key)
		}
	}
	return nil
}

func TestCacheServiceRoundTrip(t *testing.T) {
	repo := &memoryCacheRepo{}
	svc := NewCacheService(repo, NewMetricsService(), time.Minute, zap.NewNop(), true)
	ctx := context.Background()

	var dest []string
	assert.False(t, svc.Get(ctx, "requisites:coreq:CS101", &dest))

	require.NoError(t, svc.Set(ctx, "requisites:coreq:CS101", []string{"CS101L"}, 0))
	assert.Equal(t, time.Minute, repo.ttls["requisites:coreq:CS101"])
	assert.True(t, svc.Get(ctx, "requisites:coreq:CS101", &dest))
	assert.Equal(t, []string{"CS101L"}, dest)

	require.NoError(t, svc.Invalidate(ctx, "requisites:*"))
	assert.False(t, svc.Get(ctx, "requisites:coreq:CS101", &dest))
}

func TestCacheServiceDisabled(t *testing.T) {
	repo := &memoryCacheRepo{}
	svc := NewCacheService(repo, nil, 0, nil, false)
	ctx := context.Background()

	assert.False(t, svc.Enabled())
	require.NoError(t, svc.Set(ctx, "k", "v", time.Minute))
	assert.Empty(t, repo.store)
	var dest string
	assert.False(t, svc.Get(ctx, "k", &dest))

	var nilSvc *CacheService
	assert.False(t, nilSvc.Enabled())
}

func TestCacheServiceBackendErrorIsAMiss(t *testing.T) {
	repo := &memoryCacheRepo{getErr: errors.New("connection refused")}
	svc := NewCacheService(repo, nil, time.Minute, nil, true)

	var dest string
	assert.False(t, svc.Get(context.Background(), "k", &dest))
}
