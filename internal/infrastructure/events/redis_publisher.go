package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"b2c-hub/internal/domain"

	"github.com/redis/go-redis/v9"
)

// DefaultStream is the Redis stream operation results are appended to.
const DefaultStream = "b2c:operations"

const defaultMaxLen = 10000

// RedisPublisher appends operation results to a Redis stream so other
// services can consume them. Implements domain.EventSink.
type RedisPublisher struct {
	client *redis.Client
	stream string
	maxLen int64
}

// NewRedisPublisher creates a publisher using an existing client.
func NewRedisPublisher(client *redis.Client, stream string) *RedisPublisher {
	if stream == "" {
		stream = DefaultStream
	}
	return &RedisPublisher{client: client, stream: stream, maxLen: defaultMaxLen}
}

// NewRedisPublisherWithURL creates a publisher from a Redis URL.
func NewRedisPublisherWithURL(url, stream string) (*RedisPublisher, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return NewRedisPublisher(redis.NewClient(opts), stream), nil
}

// Ping checks the Redis connection.
func (p *RedisPublisher) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}

// Publish appends result to the stream and trims it to roughly maxLen entries.
func (p *RedisPublisher) Publish(ctx context.Context, result domain.OperationResult) error {
	values, err := resultToValues(result)
	if err != nil {
		return err
	}

	return p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		MaxLen: p.maxLen,
		Approx: true,
		Values: values,
	}).Err()
}

func resultToValues(result domain.OperationResult) (map[string]interface{}, error) {
	reason, err := result.Reason.MarshalText()
	if err != nil {
		return nil, err
	}

	data := []byte(`""`)
	if result.Data != nil {
		data, err = json.Marshal(result.Data)
		if err != nil {
			return nil, fmt.Errorf("marshal event data: %w", err)
		}
	}

	return map[string]interface{}{
		"seq":    strconv.FormatUint(result.Seq, 10),
		"source": result.Source,
		"reason": string(reason),
		"tag":    result.Tag,
		"data":   string(data),
	}, nil
}
