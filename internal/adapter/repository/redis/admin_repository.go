package redis

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// BrokerInfo summarizes the state of the live event channel and the cache.
type BrokerInfo struct {
	Channel     string         `json:"channel"`
	Subscribers int64          `json:"subscribers"`
	CachedKeys  map[string]int `json:"cached_keys"`
}

// cacheFamilies are the key prefixes owned by the cache. Info counts them and
// the cache flushes them when Redis comes back.
var cacheFamilies = []string{"cache:floor_plan:", "cache:all_floor_plans:", "cache:floor_plan_status:"}

// AdminRepository exposes read-only Redis diagnostics for the ops server.
type AdminRepository struct {
	client  *redis.Client
	channel string
	logger  *slog.Logger
}

// NewAdminRepository creates a new Redis admin repository.
func NewAdminRepository(client *redis.Client, channel string, logger *slog.Logger) *AdminRepository {
	return &AdminRepository{
		client:  client,
		channel: channel,
		logger:  logger,
	}
}

// Info reports how many processes listen on the live event channel and how many
// keys each cache family holds.
func (r *AdminRepository) Info(ctx context.Context) (*BrokerInfo, error) {
	counts, err := r.client.PubSubNumSub(ctx, r.channel).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get subscriber count for %s: %w", r.channel, err)
	}

	info := &BrokerInfo{
		Channel:     r.channel,
		Subscribers: counts[r.channel],
		CachedKeys:  make(map[string]int, len(cacheFamilies)),
	}
	for _, prefix := range cacheFamilies {
		n, err := r.countKeys(ctx, prefix+"*")
		if err != nil {
			return nil, err
		}
		info.CachedKeys[prefix] = n
	}
	return info, nil
}

func (r *AdminRepository) countKeys(ctx context.Context, match string) (int, error) {
	var (
		cursor uint64
		total  int
	)
	for {
		keys, next, err := r.client.Scan(ctx, cursor, match, 100).Result()
		if err != nil {
			return 0, fmt.Errorf("failed to scan keys matching %s: %w", match, err)
		}
		total += len(keys)
		if next == 0 {
			return total, nil
		}
		cursor = next
	}
}
