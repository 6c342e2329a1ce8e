// Package columncache caches information_schema lookups in a key-value store.
package columncache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/viewdex/internal/db"
)

const keySegment = "columns:"

// store is the consumer interface for the column cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// CachedDescriber decorates a db.Describer with a TTL cache.
type CachedDescriber struct {
	inner      db.Describer
	store      store
	prefix     string
	ttl        time.Duration
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

var _ db.Describer = (*CachedDescriber)(nil)

// New creates a caching decorator.
// cacheTotal is a counter vec with label "result" ("hit"/"miss"), passed explicitly.
func New(
	inner db.Describer,
	s store,
	prefix string,
	ttl time.Duration,
	cacheTotal *prometheus.CounterVec,
	logger *zap.Logger,
) *CachedDescriber {
	return &CachedDescriber{
		inner:      inner,
		store:      s,
		prefix:     prefix,
		ttl:        ttl,
		cacheTotal: cacheTotal,
		logger:     logger,
	}
}

// DescribeView returns cached columns or asks the inner describer.
// Cache failures are logged and never fail the lookup.
func (c *CachedDescriber) DescribeView(ctx context.Context, view string) ([]db.ColumnInfo, error) {
	key := c.cacheKey(view)

	if cols, ok := c.getFromCache(ctx, key); ok {
		c.incCache("hit")
		return cols, nil
	}

	c.incCache("miss")

	cols, err := c.inner.DescribeView(ctx, view)
	if err != nil {
		return nil, fmt.Errorf("describe view: %w", err)
	}

	c.putToCache(ctx, key, cols)
	return cols, nil
}

func (c *CachedDescriber) incCache(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(result).Inc()
	}
}

func (c *CachedDescriber) cacheKey(view string) string {
	return c.prefix + keySegment + strings.ToLower(view)
}

func (c *CachedDescriber) getFromCache(ctx context.Context, key string) ([]db.ColumnInfo, bool) {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("Failed to get cached columns", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	if len(data) == 0 {
		return nil, false
	}

	var cols []db.ColumnInfo
	if err := json.Unmarshal(data, &cols); err != nil || len(cols) == 0 {
		c.logger.Warn("Failed to parse cached columns", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return cols, true
}

func (c *CachedDescriber) putToCache(ctx context.Context, key string, cols []db.ColumnInfo) {
	data, err := json.Marshal(cols)
	if err != nil {
		c.logger.Warn("Failed to encode columns", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.store.SetWithTTL(ctx, key, data, c.ttl); err != nil {
		c.logger.Warn("Failed to cache columns", zap.String("key", key), zap.Error(err))
	}
}
