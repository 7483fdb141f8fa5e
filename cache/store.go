package cache

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/go-redis/redis/v8"
)

// Store adapts the client into the evaluation cache a screening test expects:
// a JSON value per evaluation key with a TTL, where a miss is not an error.
type Store struct {
	client Client
}

// NewStore opens a store on the evaluation database.
func NewStore() (*Store, error) {
	client, err := NewClient(EvalDB)
	if err != nil {
		return nil, err
	}
	return &Store{client: client}, nil
}

func (s *Store) Get(ctx context.Context, key string, into interface{}) (bool, error) {
	response := s.client.client.Get(ctx, key)
	if err := response.Err(); err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}
	b, err := response.Bytes()
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(b, into); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) Put(ctx context.Context, key string, v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.client.client.Set(ctx, key, b, s.client.evalTTL).Err()
}

func (s *Store) Close() error {
	return s.client.Close()
}
