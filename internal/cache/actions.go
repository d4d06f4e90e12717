// internal/cache/actions.go
package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jason-s-yu/tilehearts/internal/models"
	"github.com/redis/go-redis/v9"
)

// ActionPublisher pushes room actions onto the historian queue.
type ActionPublisher struct {
	client *redis.Client
	queue  string
}

// NewActionPublisher returns a publisher for queue. An empty queue uses DefaultQueueName.
func NewActionPublisher(client *redis.Client, queue string) *ActionPublisher {
	if queue == "" {
		queue = DefaultQueueName
	}
	return &ActionPublisher{client: client, queue: queue}
}

// PublishRoomAction serializes the given record to JSON, then pushes it to the Redis queue.
func (p *ActionPublisher) PublishRoomAction(ctx context.Context, record models.RoomAction) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal RoomAction: %w", err)
	}
	if err := p.client.RPush(ctx, p.queue, data).Err(); err != nil {
		return fmt.Errorf("failed to RPush to Redis list '%s': %w", p.queue, err)
	}
	return nil
}
