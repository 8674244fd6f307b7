package bus

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	// activityStream is the Redis Stream activity events land on.
	activityStream = "trace:activity"

	// maxStreamLen caps the stream so a long-lived console cannot grow Redis
	// without bound. Approximate trimming keeps XADD cheap.
	maxStreamLen = 1000

	connectTimeout = 5 * time.Second
)

// RedisBus publishes activity events to a capped Redis Stream.
type RedisBus struct {
	client *redis.Client
	logger *log.Logger
}

// NewRedisBus creates a new Redis bus instance and verifies the connection.
func NewRedisBus(redisURL string, logger *log.Logger) (*RedisBus, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	if logger == nil {
		logger = log.New(log.Writer(), "[RedisBus] ", log.LstdFlags)
	}

	return &RedisBus{
		client: client,
		logger: logger,
	}, nil
}

// Close closes the Redis connection.
func (rb *RedisBus) Close() error {
	return rb.client.Close()
}

// Publish sends one activity event to the stream. Optional fields are
// omitted rather than sent empty.
func (rb *RedisBus) Publish(ctx context.Context, ev Event) error {
	if ev.Timestamp == 0 {
		ev.Timestamp = time.Now().Unix()
	}

	fields := map[string]interface{}{
		"type":      ev.Type,
		"timestamp": ev.Timestamp,
	}
	if ev.CaseID != "" {
		fields["case_id"] = ev.CaseID
	}
	if ev.EntityID != "" {
		fields["entity_id"] = ev.EntityID
	}
	if ev.Summary != "" {
		fields["summary"] = ev.Summary
	}
	if ev.Actor != "" {
		fields["actor"] = ev.Actor
	}

	result := rb.client.XAdd(ctx, &redis.XAddArgs{
		Stream: activityStream,
		MaxLen: maxStreamLen,
		Approx: true,
		Values: fields,
	})
	if err := result.Err(); err != nil {
		return fmt.Errorf("failed to publish activity event: %w", err)
	}

	rb.logger.Printf("published %s to %s", ev.Type, activityStream)
	return nil
}

// HealthCheck performs a health check on the Redis connection.
func (rb *RedisBus) HealthCheck(ctx context.Context) error {
	return rb.client.Ping(ctx).Err()
}
