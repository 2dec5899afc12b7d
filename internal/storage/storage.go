package storage

import (
	"context"
	"errors"
	"fmt"

	"chat-widget/internal/config"
	"chat-widget/internal/database"

	"github.com/go-redis/redis/v8"
)

var (
	ErrInvalidDriver = errors.New("storage: invalid driver")
	ErrInvalidConfig = errors.New("storage: invalid config")
	ErrUnavailable   = errors.New("storage: unavailable")
)

// Storage is a string key-value store that survives process restarts. A
// missing key is reported through the bool, never as an error.
type Storage interface {
	GetItem(ctx context.Context, key string) (string, bool, error)
	SetItem(ctx context.Context, key, value string) error
	RemoveItem(ctx context.Context, key string) error
	Close() error
}

type Option func(*options)

type options struct {
	redisClient  *redis.Client
	dynamoClient DynamoClient
}

// WithRedisClient makes the redis driver use client instead of dialing
// cfg.RedisAddr.
func WithRedisClient(client *redis.Client) Option {
	return func(o *options) {
		o.redisClient = client
	}
}

// WithDynamoClient makes the dynamodb driver use client instead of building
// one from the AWS config.
func WithDynamoClient(client DynamoClient) Option {
	return func(o *options) {
		o.dynamoClient = client
	}
}

// NewStorage opens the store selected by cfg.Driver.
func NewStorage(ctx context.Context, cfg config.Storage, awsCfg config.AWS, opts ...Option) (Storage, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	switch cfg.Driver {
	case config.DriverMemory:
		return NewMemory(), nil

	case config.DriverSQLite:
		if cfg.SQLitePath == "" {
			return nil, fmt.Errorf("%w: sqlite path is empty", ErrInvalidConfig)
		}
		return NewSQLite(cfg.SQLitePath)

	case config.DriverRedis:
		client := o.redisClient
		if client == nil {
			if cfg.RedisAddr == "" {
				return nil, fmt.Errorf("%w: redis address is empty", ErrInvalidConfig)
			}
			client = redis.NewClient(&redis.Options{
				Addr:     cfg.RedisAddr,
				Password: cfg.RedisPassword,
				DB:       cfg.RedisDB,
			})
		}
		return NewRedis(client), nil

	case config.DriverDynamoDB:
		if cfg.DynamoTable == "" {
			return nil, fmt.Errorf("%w: dynamodb table is empty", ErrInvalidConfig)
		}
		client := o.dynamoClient
		if client == nil {
			c, err := database.NewDynamoDBClient(ctx, awsCfg)
			if err != nil {
				return nil, err
			}
			client = c
		}
		return NewDynamo(client, cfg.DynamoTable), nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidDriver, cfg.Driver)
	}
}
