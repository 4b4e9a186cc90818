package redisrepo

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"

	"github.com/redis/go-redis/v9"

	"torrentstream/queueservice/internal/domain"
)

const defaultQueueConfigKey = "queue:configs:v1"

// QueueConfigStore keeps queue descriptors in one Redis hash, field =
// "appid|prefix" key, value = JSON descriptor.
type QueueConfigStore struct {
	client redis.UniversalClient
	key    string
}

func NewQueueConfigStore(client redis.UniversalClient, key string) *QueueConfigStore {
	if client == nil {
		return nil
	}
	storeKey := strings.TrimSpace(key)
	if storeKey == "" {
		storeKey = defaultQueueConfigKey
	}
	return &QueueConfigStore{
		client: client,
		key:    storeKey,
	}
}

// List returns stored descriptors ordered by key. Undecodable entries are
// skipped.
func (s *QueueConfigStore) List(ctx context.Context) ([]domain.QueueConfig, error) {
	if s == nil || s.client == nil {
		return nil, nil
	}
	items, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	fields := make([]string, 0, len(items))
	for field := range items {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	out := make([]domain.QueueConfig, 0, len(items))
	for _, field := range fields {
		encoded := items[field]
		if strings.TrimSpace(encoded) == "" {
			continue
		}
		var cfg domain.QueueConfig
		if err := json.Unmarshal([]byte(encoded), &cfg); err != nil {
			continue
		}
		out = append(out, cfg)
	}
	return out, nil
}

func (s *QueueConfigStore) Upsert(ctx context.Context, cfg domain.QueueConfig) error {
	if s == nil || s.client == nil {
		return nil
	}
	if strings.TrimSpace(cfg.AppID) == "" {
		return nil
	}
	payload, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	return s.client.HSet(ctx, s.key, cfg.Key(), payload).Err()
}

func (s *QueueConfigStore) Delete(ctx context.Context, key string) error {
	if s == nil || s.client == nil {
		return nil
	}
	key = strings.ToLower(strings.TrimSpace(key))
	if key == "" {
		return nil
	}
	return s.client.HDel(ctx, s.key, key).Err()
}
