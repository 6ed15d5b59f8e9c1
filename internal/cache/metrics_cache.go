package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/fplsim/fpl-optimizer/internal/types"
)

// MetricsCacheService memoizes the MetricsRecord set per snapshot version so
// concurrent callers against the same snapshot can skip recomputation.
// Recomputing is always correct (the calculation is idempotent); the cache
// only saves duplicate work.
type MetricsCacheService struct {
	client *redis.Client
	logger *logrus.Logger
}

// NewMetricsCacheService creates a new metrics cache service
func NewMetricsCacheService(client *redis.Client, logger *logrus.Logger) *MetricsCacheService {
	return &MetricsCacheService{
		client: client,
		logger: logger,
	}
}

// ErrCacheMiss is returned when no record set is cached for the version.
var ErrCacheMiss = fmt.Errorf("metrics not found in cache")

// SetMetrics stores a computed record set keyed by snapshot version.
func (c *MetricsCacheService) SetMetrics(ctx context.Context, snapshotVersion string, records []types.MetricsRecord, expiration time.Duration) error {
	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("failed to marshal metrics records: %w", err)
	}

	fullKey := fmt.Sprintf("metrics:%s", snapshotVersion)
	if err := c.client.Set(ctx, fullKey, data, expiration).Err(); err != nil {
		return fmt.Errorf("failed to set metrics in cache: %w", err)
	}

	c.logger.WithFields(logrus.Fields{
		"cache_key":  fullKey,
		"expiration": expiration,
		"records":    len(records),
	}).Debug("Cached metrics records")

	return nil
}

// GetMetrics retrieves the record set for a snapshot version.
func (c *MetricsCacheService) GetMetrics(ctx context.Context, snapshotVersion string) ([]types.MetricsRecord, error) {
	fullKey := fmt.Sprintf("metrics:%s", snapshotVersion)
	data, err := c.client.Get(ctx, fullKey).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to get metrics from cache: %w", err)
	}

	var records []types.MetricsRecord
	if err := json.Unmarshal([]byte(data), &records); err != nil {
		return nil, fmt.Errorf("failed to unmarshal metrics records: %w", err)
	}

	c.logger.WithFields(logrus.Fields{
		"cache_key": fullKey,
		"records":   len(records),
	}).Debug("Retrieved metrics records from cache")

	return records, nil
}

// Invalidate removes the record set for a snapshot version. Called when the
// ingestion collaborator swaps in a new snapshot under the same version tag.
func (c *MetricsCacheService) Invalidate(ctx context.Context, snapshotVersion string) error {
	fullKey := fmt.Sprintf("metrics:%s", snapshotVersion)
	if err := c.client.Del(ctx, fullKey).Err(); err != nil {
		return fmt.Errorf("failed to delete metrics from cache: %w", err)
	}

	c.logger.WithField("cache_key", fullKey).Debug("Invalidated cached metrics")
	return nil
}

// FlushMetricsCache clears every cached record set.
func (c *MetricsCacheService) FlushMetricsCache(ctx context.Context) error {
	keys, err := c.client.Keys(ctx, "metrics:*").Result()
	if err != nil {
		return fmt.Errorf("failed to get metrics keys: %w", err)
	}

	if len(keys) > 0 {
		if err := c.client.Del(ctx, keys...).Err(); err != nil {
			return fmt.Errorf("failed to delete metrics keys: %w", err)
		}
	}

	c.logger.WithField("deleted_keys", len(keys)).Info("Flushed metrics cache")
	return nil
}
