// Package cache wraps the shared Redis connection: evaluation-result caching
// for screen runs and locked document storage for task state.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/go-redis/redis/v8"
	"github.com/kelseyhightower/envconfig"
)

type DB int

// Databases used by the screening services.
const (
	TasksDB DB = 0
	EvalDB  DB = 1
)

type ReleaseLock func() error

type Config struct {
	LockExpirationSeconds   int     `envconfig:"THS_REDIS_LOCK_EXPIRATION" default:"3"`
	Host                    string  `envconfig:"THS_REDIS_HOST" required:"true"`
	Port                    string  `envconfig:"THS_REDIS_PORT" required:"true"`
	HASentinelPort          string  `envconfig:"THS_REDIS_HA_SENTINEL_PORT" default:"26379"`
	HASentinelMasterName    string  `envconfig:"THS_REDIS_HA_MASTER_NAME" default:"mymaster"`
	Password                string  `envconfig:"THS_REDIS_AUTH_PASSWORD" default:"0"`
	AuthRequired            bool    `envconfig:"THS_REDIS_AUTH_REQUIRED" default:"false"`
	HAMode                  bool    `envconfig:"THS_REDIS_HA_MODE" default:"false"`
	HASentinelSocketTimeout float32 `envconfig:"THS_REDIS_SOCKET_TIMEOUT" default:"0.5"`
	EvalTTLHours            int     `envconfig:"THS_REDIS_EVAL_TTL_HOURS" default:"168"`
}

type Client struct {
	client         redis.UniversalClient
	lockExpiration time.Duration
	evalTTL        time.Duration
}

func NewClient(db DB) (Client, error) {
	cfg, err := readEnvironment()
	if err != nil {
		return Client{}, err
	}
	var client redis.UniversalClient
	if cfg.HAMode {
		client = CreateClusterClient(cfg, db)
	} else {
		client = CreateClient(cfg, db)
	}
	return Client{
		client:         client,
		lockExpiration: time.Duration(cfg.LockExpirationSeconds) * time.Second,
		evalTTL:        time.Duration(cfg.EvalTTLHours) * time.Hour,
	}, nil
}

func CreateClusterClient(cfg *Config, db DB) *redis.ClusterClient {
	addr := fmt.Sprintf("%s:%s", cfg.Host, cfg.HASentinelPort)
	timeout := time.Duration(cfg.HASentinelSocketTimeout) * time.Second
	options := redis.FailoverOptions{
		SentinelAddrs: []string{addr},
		ReadTimeout:   timeout,
		WriteTimeout:  timeout,
		MaxRetries:    6,
		DB:            int(db),
		MasterName:    cfg.HASentinelMasterName,
	}
	if cfg.AuthRequired {
		options.Password = cfg.Password
	}
	return redis.NewFailoverClusterClient(&options)
}

func CreateClient(cfg *Config, db DB) *redis.Client {
	addr := fmt.Sprintf("%s:%s", cfg.Host, cfg.Port)
	options := redis.Options{
		Addr:       addr,
		MaxRetries: 6,
		DB:         int(db),
	}
	if cfg.AuthRequired {
		options.Password = cfg.Password
	}
	return redis.NewClient(&options)
}

// GetDoc unmarshals the JSON document at redisKey into doc. Missing keys are
// an error; use Store for optional reads.
func (client *Client) GetDoc(ctx context.Context, redisKey string, doc interface{}) error {
	response := client.client.Get(ctx, redisKey)
	if response.Err() != nil {
		return response.Err()
	}
	b, err := response.Bytes()
	if err != nil {
		return err
	}
	return json.Unmarshal(b, doc)
}

func (client *Client) SaveDoc(ctx context.Context, redisKey string, doc interface{}) error {
	b, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	return client.client.Set(ctx, redisKey, b, 0).Err()
}

// UpdateDoc applies update to the stored document under a per-key lock so
// concurrent workers never clobber each other's writes.
func (client *Client) UpdateDoc(ctx context.Context, redisKey string, doc interface{}, update func()) (err error) {
	releaseLock, err := client.Lock(ctx, redisKey)
	if err != nil {
		return err
	}
	defer func() {
		if relErr := releaseLock(); err == nil {
			err = relErr
		}
	}()
	if err = client.GetDoc(ctx, redisKey, doc); err != nil {
		return err
	}
	update()
	return client.SaveDoc(ctx, redisKey, doc)
}

func (client *Client) Lock(ctx context.Context, redisKey string) (ReleaseLock, error) {
	lockCl := redislock.New(client.client)
	str := redislock.LimitRetry(redislock.LinearBackoff(time.Second), 20)
	lockKey := fmt.Sprintf("lock:%s", redisKey)
	lock, err := lockCl.Obtain(ctx, lockKey, client.lockExpiration, &redislock.Options{RetryStrategy: str})
	if err != nil {
		return nil, err
	}
	return func() error {
		return lock.Release(ctx)
	}, nil
}

func (client *Client) Close() error {
	return client.client.Close()
}

func readEnvironment() (*Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}
