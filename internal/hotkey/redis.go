package hotkey

import (
	"context"
	"fmt"
	"log"

	redis "github.com/redis/go-redis/v9"
)

// ToggleMessage is the payload published for one key press
const ToggleMessage = "toggle"

// RedisSource forwards toggle messages published on a Redis channel to a
// Bridge. A global hotkey daemon (or `voiceclip toggle`) publishes; the
// running shell subscribes.
type RedisSource struct {
	client  *redis.Client
	channel string
	bridge  *Bridge
}

// NewRedisSource creates a source for channel
func NewRedisSource(client *redis.Client, channel string, bridge *Bridge) *RedisSource {
	return &RedisSource{client: client, channel: channel, bridge: bridge}
}

// Run subscribes and fires the bridge for every toggle message until ctx is
// done. Other payloads are ignored.
func (s *RedisSource) Run(ctx context.Context) error {
	sub := s.client.Subscribe(ctx, s.channel)
	defer sub.Close()

	// Wait for the subscription to be confirmed
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("redis SUBSCRIBE %s: %w", s.channel, err)
	}
	log.Printf("Listening for toggle events on redis channel %s", s.channel)

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			if msg.Payload != ToggleMessage {
				log.Printf("Ignoring unknown hotkey payload %q", msg.Payload)
				continue
			}
			if !s.bridge.Fire() {
				log.Println("Toggle received with no listener registered")
			}
		}
	}
}

// Publish sends one toggle event and returns the number of subscribers that
// received it
func Publish(ctx context.Context, client *redis.Client, channel string) (int64, error) {
	n, err := client.Publish(ctx, channel, ToggleMessage).Result()
	if err != nil {
		return 0, fmt.Errorf("redis PUBLISH %s: %w", channel, err)
	}
	return n, nil
}
