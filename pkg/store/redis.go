package store

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// RedisStore is the production Store implementation, backed by a single
// Redis (or Redis-protocol-compatible) instance addressed by REDIS_URI.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore dials the backend named by uri (e.g.
// "redis://localhost:6379/0").
func NewRedisStore(uri string) (*RedisStore, error) {
	opts, err := redis.ParseURL(uri)
	if err != nil {
		return nil, fmt.Errorf("parse redis uri: %w", err)
	}
	return &RedisStore{client: redis.NewClient(opts)}, nil
}

func inputKey(job string) string         { return fmt.Sprintf("matrices_input:%s", job) }
func resultKey(job string) string        { return fmt.Sprintf("matrices_output:%s", job) }
func matrixPartialKey(job string, row, column int) string {
	return fmt.Sprintf("matrix:%s:%d,%d", job, row, column)
}
func matrixPartialGlob(job string) string { return fmt.Sprintf("matrix:%s:*", job) }
func countPartialKey(file string, part int) string {
	return fmt.Sprintf("count:%s:%d", file, part)
}
func countPartialGlob(file string) string { return fmt.Sprintf("count:%s:*", file) }
func countResultKey(file string) string   { return fmt.Sprintf("count:%s", file) }

func (s *RedisStore) PutInput(ctx context.Context, job string, payload []byte) error {
	return s.client.Set(ctx, inputKey(job), payload, 0).Err()
}

func (s *RedisStore) GetInput(ctx context.Context, job string) ([]byte, error) {
	v, err := s.client.Get(ctx, inputKey(job)).Bytes()
	if err != nil {
		return nil, err
	}
	return v, nil
}

func (s *RedisStore) PutResult(ctx context.Context, job string, payload []byte) error {
	return s.client.Set(ctx, resultKey(job), payload, 0).Err()
}

func (s *RedisStore) PutMatrixPartial(ctx context.Context, job string, row, column int, payload []byte) error {
	return s.client.Set(ctx, matrixPartialKey(job, row, column), payload, 0).Err()
}

func (s *RedisStore) GetAllMatrixPartials(ctx context.Context, job string) ([][]byte, error) {
	keys, err := s.client.Keys(ctx, matrixPartialGlob(job)).Result()
	if err != nil {
		return nil, err
	}
	out := make([][]byte, 0, len(keys))
	for _, k := range keys {
		v, err := s.client.Get(ctx, k).Bytes()
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (s *RedisStore) PutCountPartial(ctx context.Context, file string, part int, count int) error {
	return s.client.Set(ctx, countPartialKey(file, part), strconv.Itoa(count), 0).Err()
}

func (s *RedisStore) GetAllCountPartials(ctx context.Context, file string) ([]int, error) {
	keys, err := s.client.Keys(ctx, countPartialGlob(file)).Result()
	if err != nil {
		return nil, err
	}
	out := make([]int, 0, len(keys))
	for _, k := range keys {
		v, err := s.client.Get(ctx, k).Result()
		if err != nil {
			return nil, err
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("non-integer value at %s: %w", k, err)
		}
		out = append(out, n)
	}
	return out, nil
}

func (s *RedisStore) DeleteCountPartials(ctx context.Context, file string) error {
	keys, err := s.client.Keys(ctx, countPartialGlob(file)).Result()
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return s.client.Del(ctx, keys...).Err()
}

func (s *RedisStore) PutCountResult(ctx context.Context, file string, total int) error {
	return s.client.Set(ctx, countResultKey(file), strconv.Itoa(total), 0).Err()
}

func (s *RedisStore) ClearJob(ctx context.Context, job string) error {
	keys, err := s.client.Keys(ctx, matrixPartialGlob(job)).Result()
	if err != nil {
		return err
	}
	keys = append(keys, inputKey(job), resultKey(job))
	return s.client.Del(ctx, keys...).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
