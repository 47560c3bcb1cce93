package ws

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/XavierBriggs/fortuna/services/ultimate-stats/internal/broadcast"
	"github.com/redis/go-redis/v9"
)

// Relay subscribes to the broadcast channels on Redis and forwards every
// message into the hub, so WebSocket subscribers see the same stream the
// pipeline publishes.
type Relay struct {
	client *redis.Client
	hub    *Hub
}

// NewRelay creates a relay
func NewRelay(client *redis.Client, hub *Hub) *Relay {
	return &Relay{client: client, hub: hub}
}

// Run consumes the player and summary channels until ctx is cancelled
func (r *Relay) Run(ctx context.Context) {
	pubsub := r.client.PSubscribe(ctx, "player:*:stats", broadcast.SummaryChannel)
	defer pubsub.Close()

	log.Println("[ws] relay subscribed to broadcast channels")

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			r.hub.Broadcast(Message{
				Channel:   msg.Channel,
				Payload:   json.RawMessage(msg.Payload),
				Timestamp: time.Now().UTC(),
			})
		}
	}
}
