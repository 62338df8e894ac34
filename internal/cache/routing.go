package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/codehound/hound-search/internal/pkg/hash"
	"github.com/codehound/hound-search/internal/pkg/logger"
)

// RoutingTTL bounds how long a computed routing table is reused. Node
// membership changes are tolerated inside this window: a stale entry at
// dispatch time is a soft skip, not a failure.
const RoutingTTL = 10 * time.Minute

// RoutingTable maps a backend node id to the repository ids it owns.
type RoutingTable map[int64][]int64

// ComputeRoutes builds a fresh routing table for a project scope.
type ComputeRoutes func(ctx context.Context) (RoutingTable, error)

// RoutingCache memoizes routing tables per project scope.
type RoutingCache struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
	log    *logger.Logger
}

// NewRoutingCache wraps a Redis client.
func NewRoutingCache(client *redis.Client, log *logger.Logger) *RoutingCache {
	if log == nil {
		log = logger.Default()
	}
	return &RoutingCache{
		rdb:    client,
		prefix: "hound:routing:",
		ttl:    RoutingTTL,
		log:    log,
	}
}

// Routes returns the routing table for a project scope, computing and
// storing it when absent. Compute errors are returned as-is; cache
// store errors only degrade to a fresh computation next call.
func (r *RoutingCache) Routes(ctx context.Context, projectIDs []int64, compute ComputeRoutes) (RoutingTable, error) {
	key := r.key(projectIDs)

	raw, err := r.rdb.Get(ctx, key).Bytes()
	if err == nil {
		var table RoutingTable
		if err := json.Unmarshal(raw, &table); err == nil {
			return table, nil
		}
		r.log.Warn("discarding corrupt routing entry", "key", key)
	} else if !errors.Is(err, redis.Nil) {
		r.log.Warn("reading routing cache failed", "error", err)
	}

	table, err := compute(ctx)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(table); err == nil {
		if err := r.rdb.Set(ctx, key, data, r.ttl).Err(); err != nil {
			r.log.Warn("writing routing cache failed", "error", err)
		}
	}

	return table, nil
}

func (r *RoutingCache) key(projectIDs []int64) string {
	sorted := make([]int64, len(projectIDs))
	copy(sorted, projectIDs)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	parts := make([]string, len(sorted))
	for i, id := range sorted {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return fmt.Sprintf("%s%s", r.prefix, hash.Fields(parts...))
}
