package serving

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v7"
)

var ErrJobNotFound = errors.New("job not found")

type ResultStore interface {
	Put(result Result) error
	// Get returns ErrJobNotFound for unknown or expired jobs.
	Get(id string) (Result, error)
}

// redisResultStore keeps results as JSON values which expire after ttl.
type redisResultStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisResultStore(client *redis.Client, ttl time.Duration) *redisResultStore {
	return &redisResultStore{client: client, ttl: ttl}
}

func resultKey(id string) string {
	return "pagetime:result:" + id
}

func (s *redisResultStore) Put(result Result) error {
	b, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("redisResultStore.Put() marshalling result %s: %w", result.ID, err)
	}
	if err := s.client.Set(resultKey(result.ID), b, s.ttl).Err(); err != nil {
		return fmt.Errorf("redisResultStore.Put() storing result %s: %w", result.ID, err)
	}
	return nil
}

func (s *redisResultStore) Get(id string) (Result, error) {
	b, err := s.client.Get(resultKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Result{}, ErrJobNotFound
	} else if err != nil {
		return Result{}, fmt.Errorf("redisResultStore.Get() reading result %s: %w", id, err)
	}

	var result Result
	if err := json.Unmarshal(b, &result); err != nil {
		return Result{}, fmt.Errorf("redisResultStore.Get() unmarshalling result %s: %w", id, err)
	}
	return result, nil
}
