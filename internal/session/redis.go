package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nidhogg/smart-money/internal/calc"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const keyPrefix = "smartmoney:session:"

// RedisStore keeps sessions in Redis so several server replicas can share
// them. Keys carry no TTL, matching MemoryStore.
//
// Layout per session:
//
//	smartmoney:session:<id>         hash  created_at, salary (JSON)
//	smartmoney:session:<id>:memory  list  JSON exchanges, oldest first
type RedisStore struct {
	rdb    *redis.Client
	window int
	logger *zap.Logger
}

// NewRedisStore connects to redisURL and verifies the connection.
func NewRedisStore(redisURL string, window int, logger *zap.Logger) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewRedisStoreWithClient(rdb, window, logger), nil
}

// NewRedisStoreWithClient wraps an existing client.
func NewRedisStoreWithClient(rdb *redis.Client, window int, logger *zap.Logger) *RedisStore {
	if window <= 0 {
		window = DefaultWindow
	}
	return &RedisStore{rdb: rdb, window: window, logger: logger}
}

func stateKey(id string) string  { return keyPrefix + id }
func memoryKey(id string) string { return keyPrefix + id + ":memory" }

func (s *RedisStore) touch(ctx context.Context, id string) error {
	if id == "" {
		return ErrEmptyID
	}
	err := s.rdb.HSetNX(ctx, stateKey(id), "created_at", time.Now().UTC().Format(time.RFC3339Nano)).Err()
	if err != nil {
		return fmt.Errorf("create session %s: %w", id, err)
	}
	return nil
}

func (s *RedisStore) GetOrCreate(ctx context.Context, id string) (State, error) {
	if err := s.touch(ctx, id); err != nil {
		return State{}, err
	}
	fields, err := s.rdb.HGetAll(ctx, stateKey(id)).Result()
	if err != nil {
		return State{}, fmt.Errorf("load session %s: %w", id, err)
	}

	st := State{ID: id}
	if ts, ok := fields["created_at"]; ok {
		st.CreatedAt, _ = time.Parse(time.RFC3339Nano, ts)
	}
	if raw, ok := fields["salary"]; ok {
		var p calc.SalaryProfile
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			return State{}, fmt.Errorf("decode salary for %s: %w", id, err)
		}
		st.Salary = &p
	}

	items, err := s.rdb.LRange(ctx, memoryKey(id), 0, -1).Result()
	if err != nil {
		return State{}, fmt.Errorf("load memory for %s: %w", id, err)
	}
	st.Memory = make([]Exchange, 0, len(items))
	for _, item := range items {
		var ex Exchange
		if err := json.Unmarshal([]byte(item), &ex); err != nil {
			s.logger.Warn("skipping malformed exchange", zap.String("session", id), zap.Error(err))
			continue
		}
		st.Memory = append(st.Memory, ex)
	}
	return st, nil
}

func (s *RedisStore) UpdateSalary(ctx context.Context, id string, p calc.SalaryProfile) error {
	if err := s.touch(ctx, id); err != nil {
		return err
	}
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode salary: %w", err)
	}
	if err := s.rdb.HSet(ctx, stateKey(id), "salary", string(data)).Err(); err != nil {
		return fmt.Errorf("update salary for %s: %w", id, err)
	}
	return nil
}

func (s *RedisStore) GetSalary(ctx context.Context, id string) (*calc.SalaryProfile, error) {
	if id == "" {
		return nil, ErrEmptyID
	}
	raw, err := s.rdb.HGet(ctx, stateKey(id), "salary").Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get salary for %s: %w", id, err)
	}
	var p calc.SalaryProfile
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, fmt.Errorf("decode salary for %s: %w", id, err)
	}
	return &p, nil
}

func (s *RedisStore) AppendExchange(ctx context.Context, id string, ex Exchange) error {
	if err := s.touch(ctx, id); err != nil {
		return err
	}
	if ex.At.IsZero() {
		ex.At = time.Now()
	}
	data, err := json.Marshal(ex)
	if err != nil {
		return fmt.Errorf("encode exchange: %w", err)
	}
	key := memoryKey(id)
	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key, string(data))
		pipe.LTrim(ctx, key, int64(-s.window), -1)
		return nil
	})
	if err != nil {
		return fmt.Errorf("append exchange for %s: %w", id, err)
	}
	return nil
}

// Close shuts down the Redis connection.
func (s *RedisStore) Close() error {
	return s.rdb.Close()
}
