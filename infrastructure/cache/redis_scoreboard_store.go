// Package cache stores derived score boards, in process or in Redis.
package cache

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"chatter/application/ports"
	"chatter/domain/core/valueobjects"
	"chatter/domain/services"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const keyPrefix = "chatter:scoreboard:"

// RedisScoreBoardStore keeps boards as JSON strings with a TTL and tracks
// which users hold a board per category in a set
type RedisScoreBoardStore struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisClient parses url and checks the connection
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

// NewRedisScoreBoardStore creates a store on client
func NewRedisScoreBoardStore(client *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisScoreBoardStore {
	return &RedisScoreBoardStore{client: client, ttl: ttl, logger: logger}
}

var _ ports.ScoreBoardStore = (*RedisScoreBoardStore)(nil)

func (s *RedisScoreBoardStore) Get(ctx context.Context, userID string, category valueobjects.Category) (*services.ScoreBoard, bool, error) {
	data, err := s.client.Get(ctx, boardKey(userID, category)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get score board: %w", err)
	}

	board := services.NewScoreBoard()
	if err := json.Unmarshal(data, board); err != nil {
		return nil, false, fmt.Errorf("decode score board: %w", err)
	}
	return board, true, nil
}

func (s *RedisScoreBoardStore) Save(ctx context.Context, userID string, category valueobjects.Category, board *services.ScoreBoard) error {
	data, err := json.Marshal(board)
	if err != nil {
		return fmt.Errorf("encode score board: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, boardKey(userID, category), data, s.ttl)
	pipe.SAdd(ctx, indexKey(category), userID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis save score board: %w", err)
	}
	return nil
}

func (s *RedisScoreBoardStore) Delete(ctx context.Context, userID string, category valueobjects.Category) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, boardKey(userID, category))
	pipe.SRem(ctx, indexKey(category), userID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis delete score board: %w", err)
	}
	return nil
}

// Users returns the indexed users whose board has not expired, pruning
// the ones that have
func (s *RedisScoreBoardStore) Users(ctx context.Context, category valueobjects.Category) ([]string, error) {
	members, err := s.client.SMembers(ctx, indexKey(category)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis list score boards: %w", err)
	}
	if len(members) == 0 {
		return nil, nil
	}

	pipe := s.client.Pipeline()
	exists := make([]*redis.IntCmd, len(members))
	for i, userID := range members {
		exists[i] = pipe.Exists(ctx, boardKey(userID, category))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("redis check score boards: %w", err)
	}

	var users, expired []string
	for i, userID := range members {
		if exists[i].Val() > 0 {
			users = append(users, userID)
		} else {
			expired = append(expired, userID)
		}
	}

	if len(expired) > 0 {
		if err := s.client.SRem(ctx, indexKey(category), stringsToArgs(expired)...).Err(); err != nil {
			s.logger.Warn("Failed to prune expired score boards", zap.Error(err))
		}
	}

	sort.Strings(users)
	return users, nil
}

func boardKey(userID string, category valueobjects.Category) string {
	return keyPrefix + category.String() + ":" + userID
}

func indexKey(category valueobjects.Category) string {
	return keyPrefix + "users:" + category.String()
}

func stringsToArgs(values []string) []interface{} {
	args := make([]interface{}, len(values))
	for i, v := range values {
		args[i] = v
	}
	return args
}
