package websocket

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultEventChannel is the Redis channel closure events travel on
	DefaultEventChannel = "coopbank:events"

	redisPublishTimeout = 2 * time.Second
)

// ConnectRedis builds a Redis client from a redis:// URL or a host:port address
func ConnectRedis(ctx context.Context, redisURL string) (*redis.Client, error) {
	var client *redis.Client
	if strings.HasPrefix(redisURL, "redis://") || strings.HasPrefix(redisURL, "rediss://") {
		opt, err := redis.ParseURL(redisURL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		client = redis.NewClient(opt)
	} else {
		client = redis.NewClient(&redis.Options{Addr: redisURL})
	}

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// RedisPublisher publishes events to a Redis channel so every API instance
// can deliver them to its own WebSocket clients
type RedisPublisher struct {
	client  *redis.Client
	channel string
}

var _ EventPublisher = (*RedisPublisher)(nil)

// NewRedisPublisher creates a publisher on the given channel
func NewRedisPublisher(client *redis.Client, channel string) *RedisPublisher {
	return &RedisPublisher{client: client, channel: channel}
}

// Publish implements EventPublisher
func (p *RedisPublisher) Publish(branchID int32, event Event) {
	event.BranchID = branchID
	data, err := event.ToJSON()
	if err != nil {
		log.Error().Err(err).Str("event_type", event.Type).Msg("Failed to serialize event")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), redisPublishTimeout)
	defer cancel()

	if err := p.client.Publish(ctx, p.channel, data).Err(); err != nil {
		log.Warn().
			Err(err).
			Int32("branch_id", branchID).
			Str("event_type", event.Type).
			Msg("Failed to publish event to Redis")
	}
}

// RedisRelay subscribes to the event channel and broadcasts what it receives on the local hub
type RedisRelay struct {
	client  *redis.Client
	channel string
	hub     *Hub
}

// NewRedisRelay creates a relay feeding the given hub
func NewRedisRelay(client *redis.Client, channel string, hub *Hub) *RedisRelay {
	return &RedisRelay{client: client, channel: channel, hub: hub}
}

// Run relays events until ctx is cancelled
func (r *RedisRelay) Run(ctx context.Context) error {
	sub := r.client.Subscribe(ctx, r.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", r.channel, err)
	}
	log.Info().Str("channel", r.channel).Msg("Relaying Redis events to WebSocket hub")

	messages := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			r.deliver([]byte(msg.Payload))
		}
	}
}

func (r *RedisRelay) deliver(data []byte) {
	event, err := EventFromJSON(data)
	if err != nil {
		log.Warn().Err(err).Str("channel", r.channel).Msg("Dropping malformed event")
		return
	}
	r.hub.Broadcast(event.BranchID, event)
}
