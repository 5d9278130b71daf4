package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// redisClient is the part of *redis.Client the sink uses.
type redisClient interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
	LPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	LTrim(ctx context.Context, key string, start, stop int64) *redis.StatusCmd
}

// RedisSink publishes notifications on a channel and, when list is set,
// keeps the most recent listSize of them in a capped list.
type RedisSink struct {
	client   redisClient
	channel  string
	list     string
	listSize int64
}

func NewRedisSink(client redisClient, channel, list string, listSize int) *RedisSink {
	if listSize <= 0 {
		listSize = 100
	}
	return &RedisSink{
		client:   client,
		channel:  channel,
		list:     list,
		listSize: int64(listSize),
	}
}

func (s *RedisSink) Name() string {
	return "redis"
}

func (s *RedisSink) Notify(ctx context.Context, n Notification) error {
	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	var errs []error
	if s.channel != "" {
		if err := s.client.Publish(ctx, s.channel, data).Err(); err != nil {
			errs = append(errs, fmt.Errorf("publish to %s: %w", s.channel, err))
		}
	}

	if s.list != "" {
		if err := s.client.LPush(ctx, s.list, data).Err(); err != nil {
			errs = append(errs, fmt.Errorf("push to %s: %w", s.list, err))
		} else if err := s.client.LTrim(ctx, s.list, 0, s.listSize-1).Err(); err != nil {
			errs = append(errs, fmt.Errorf("trim %s: %w", s.list, err))
		}
	}

	return errors.Join(errs...)
}
