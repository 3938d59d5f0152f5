package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	channelPrefix = "session:"
	eventTTL      = 5 * time.Second
)

// redisPayload is the message published to Redis for cross-instance broadcast.
// Origin identifies the publishing instance so subscribers can drop their own
// echo: the hub already delivered the event locally before publishing.
type redisPayload struct {
	Origin string          `json:"origin"`
	Event  string          `json:"event"`
	Data   json.RawMessage `json:"data"`
	At     int64           `json:"at"`
}

// RedisPubSub implements RedisPublisher and RedisSubscriber using Redis pub/sub.
type RedisPubSub struct {
	client *redis.Client
	logger *zap.Logger
	id     string // per-process instance id stamped on published payloads
}

// NewRedisPubSub creates a Redis pub/sub bridge for session events.
func NewRedisPubSub(client *redis.Client, logger *zap.Logger) *RedisPubSub {
	return &RedisPubSub{client: client, logger: logger, id: uuid.New().String()}
}

// PublishSessionEvent publishes an event to the session's Redis channel.
func (r *RedisPubSub) PublishSessionEvent(code, event string, payload []byte) error {
	channel := channelPrefix + code
	body, err := json.Marshal(redisPayload{Origin: r.id, Event: event, Data: payload, At: time.Now().Unix()})
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), eventTTL)
	defer cancel()
	return r.client.Publish(ctx, channel, body).Err()
}

// decode parses a raw pub/sub message, dropping malformed payloads and this
// instance's own publishes. Without the origin check every local client would
// receive each event twice: once from the direct broadcast and once from the
// Redis round trip.
func (r *RedisPubSub) decode(raw []byte) (event string, data []byte, ok bool) {
	var p redisPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return "", nil, false
	}
	if p.Origin == r.id {
		return "", nil, false
	}
	return p.Event, p.Data, true
}

// SubscribeSession subscribes to a session's Redis channel and calls handler
// for each message published by other instances. Returns a cancel function to
// stop the subscription.
func (r *RedisPubSub) SubscribeSession(code string, handler func(event string, payload []byte)) (cancel func(), err error) {
	channel := channelPrefix + code
	ctx, cancelCtx := context.WithCancel(context.Background())
	pubsub := r.client.Subscribe(ctx, channel)
	_, err = pubsub.Receive(ctx)
	if err != nil {
		cancelCtx()
		return nil, fmt.Errorf("subscribe: %w", err)
	}
	ch := pubsub.Channel()
	go func() {
		defer pubsub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				event, data, ok := r.decode([]byte(msg.Payload))
				if !ok {
					continue
				}
				handler(event, data)
			}
		}
	}()
	cancel = func() { cancelCtx() }
	return cancel, nil
}
