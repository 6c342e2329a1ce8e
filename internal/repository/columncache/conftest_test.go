package columncache

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/viewdex/internal/db"
)

type mockDescriber struct {
	cols  []db.ColumnInfo
	err   error
	calls int
}

func (m *mockDescriber) DescribeView(_ context.Context, _ string) ([]db.ColumnInfo, error) {
	m.calls++
	return m.cols, m.err
}

// mockKVStore implements the consumer interface for tests.
type mockKVStore struct {
	getFn func(ctx context.Context, key string) ([]byte, error)
	setFn func(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

func (m *mockKVStore) Get(ctx context.Context, key string) ([]byte, error) {
	if m.getFn != nil {
		return m.getFn(ctx, key)
	}
	return nil, db.ErrKeyNotFound
}

func (m *mockKVStore) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if m.setFn != nil {
		return m.setFn(ctx, key, value, ttl)
	}
	return nil
}

func newTestCachedDescriber(t *testing.T, inner *mockDescriber) (*CachedDescriber, *mockKVStore, *prometheus.CounterVec) {
	t.Helper()
	ms := &mockKVStore{}
	counter := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "test_cache_total"}, []string{"result"})
	cd := New(inner, ms, "viewdex:", 5*time.Minute, counter, zap.NewNop())
	return cd, ms, counter
}
