package activity

import (
	"context"
	"encoding/json"

	redis "github.com/redis/go-redis/v9"

	"retailpro/backend/internal/domain"
)

// Publisher forwards committed activity entries to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, entry domain.ActivityLogEntry) error
}

type NoopPublisher struct{}

func (NoopPublisher) Publish(_ context.Context, _ domain.ActivityLogEntry) error {
	return nil
}

// RedisStreamPublisher appends each entry to a capped Redis stream.
type RedisStreamPublisher struct {
	client *redis.Client
	stream string
	maxLen int64
}

func NewRedisStreamPublisher(addr string, password string, db int, stream string) *RedisStreamPublisher {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return NewRedisStreamPublisherWithClient(client, stream)
}

func NewRedisStreamPublisherWithClient(client *redis.Client, stream string) *RedisStreamPublisher {
	if stream == "" {
		stream = "retailpro:activity"
	}
	return &RedisStreamPublisher{client: client, stream: stream, maxLen: 10000}
}

func (p *RedisStreamPublisher) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

func (p *RedisStreamPublisher) Close() error {
	return p.client.Close()
}

func (p *RedisStreamPublisher) Publish(ctx context.Context, entry domain.ActivityLogEntry) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		MaxLen: p.maxLen,
		Approx: true,
		Values: map[string]any{
			"id":      entry.ID,
			"action":  entry.Action,
			"payload": string(payload),
		},
	}).Err()
}
